package schema

import (
	"fmt"
	"sort"
	"strings"
)

// assignmentSep joins class and subject in the wire form of an assignment key.
const assignmentSep = "_"

// AssignmentKey identifies who teaches a subject in a class.
type AssignmentKey struct {
	ClassID   string `json:"classId"`
	SubjectID string `json:"subjectId"`
}

// String returns the wire form "classId_subjectId".
func (k AssignmentKey) String() string {
	return k.ClassID + assignmentSep + k.SubjectID
}

// ParseAssignmentKey parses the wire form. The class id ends at the first separator.
func ParseAssignmentKey(s string) (AssignmentKey, error) {
	classID, subjectID, ok := strings.Cut(s, assignmentSep)
	if !ok || strings.TrimSpace(classID) == "" || strings.TrimSpace(subjectID) == "" {
		return AssignmentKey{}, fmt.Errorf("invalid assignment key %q: want classId_subjectId", s)
	}
	return AssignmentKey{ClassID: strings.TrimSpace(classID), SubjectID: strings.TrimSpace(subjectID)}, nil
}

// AssignmentTable maps a class and subject to the teacher's name.
type AssignmentTable map[AssignmentKey]string

// Keys returns the keys sorted by class, then subject.
func (t AssignmentTable) Keys() []AssignmentKey {
	keys := make([]AssignmentKey, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ClassID != keys[j].ClassID {
			return keys[i].ClassID < keys[j].ClassID
		}
		return keys[i].SubjectID < keys[j].SubjectID
	})
	return keys
}

// AssignmentPayload is the persisted shape of an assignment table.
// SchoolMap is keyed by the wire key or by teacher name.
type AssignmentPayload struct {
	Map       map[string]string `json:"map" yaml:"map"`
	SchoolMap map[string]string `json:"schoolMap" yaml:"schoolMap"`
}

// Table converts the wire map into an AssignmentTable.
func (p AssignmentPayload) Table() (AssignmentTable, error) {
	table := make(AssignmentTable, len(p.Map))
	for raw, teacher := range p.Map {
		key, err := ParseAssignmentKey(raw)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(teacher) == "" {
			continue
		}
		table[key] = strings.TrimSpace(teacher)
	}
	return table, nil
}

// NewAssignmentPayload builds the wire form of a table.
func NewAssignmentPayload(table AssignmentTable, schoolMap map[string]string) AssignmentPayload {
	p := AssignmentPayload{
		Map:       make(map[string]string, len(table)),
		SchoolMap: make(map[string]string, len(schoolMap)),
	}
	for k, teacher := range table {
		p.Map[k.String()] = teacher
	}
	for k, school := range schoolMap {
		p.SchoolMap[k] = school
	}
	return p
}
