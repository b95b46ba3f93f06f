package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/huangsam/examlens/core/keys"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
)

// WriteSyncResult writes the outcome of a save or load.
func WriteSyncResult(w io.Writer, res schema.SyncResult, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeJSON(w, res)
	}
	if _, err := fmt.Fprintf(w, "Status: %s\nKey: %s\n", res.Status, res.Key); err != nil {
		return err
	}
	if !res.UpdatedAt.IsZero() {
		if _, err := fmt.Fprintf(w, "Updated: %s\n", res.UpdatedAt.Format(contract.DateTimeFormat)); err != nil {
			return err
		}
	}
	if len(res.TriedKeys) > 0 {
		if _, err := fmt.Fprintf(w, "Tried: %s\n", strings.Join(res.TriedKeys, " | ")); err != nil {
			return err
		}
	}
	if res.Message != "" {
		if _, err := fmt.Fprintln(w, res.Message); err != nil {
			return err
		}
	}
	return nil
}

// WriteTeacherLoad writes a loaded assignment table with its search details.
func WriteTeacherLoad(w io.Writer, res schema.TeacherLoadResult, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, res)
	case schema.CSVOut:
		return writeAssignmentsCSV(w, res.Payload)
	}
	if err := WriteSyncResult(w, res.SyncResult, cfg); err != nil {
		return err
	}
	if res.Status != schema.SyncFound {
		return nil
	}
	if _, err := fmt.Fprintf(w, "Candidates: %d, matched by name: %t\n", res.Candidates, res.MatchedByName); err != nil {
		return err
	}
	rows := assignmentRows(res.Payload)
	if cfg.Output == schema.MarkdownOut {
		return writeMarkdownTable(w, []string{"Class", "Subject", "Teacher", "School"}, rows)
	}
	return writeTable(w, []string{"Class", "Subject", "Teacher", "School"}, rows)
}

// assignmentRows lists the payload sorted by key. The school comes from the
// key entry of SchoolMap, falling back to the teacher's entry.
func assignmentRows(p schema.AssignmentPayload) [][]string {
	raw := make([]string, 0, len(p.Map))
	for k := range p.Map {
		raw = append(raw, k)
	}
	sort.Strings(raw)
	data := make([][]string, 0, len(raw))
	for _, k := range raw {
		teacher := p.Map[k]
		classID, subjectID, _ := strings.Cut(k, "_")
		school, ok := p.SchoolMap[k]
		if !ok {
			school = p.SchoolMap[teacher]
		}
		data = append(data, []string{classID, subjectID, teacher, school})
	}
	return data
}

func writeAssignmentsCSV(w io.Writer, p schema.AssignmentPayload) error {
	return writeCSVWithHeader(w, []string{"class", "subject", "teacher", "school"}, func(cw *csv.Writer) error {
		for _, rec := range assignmentRows(p) {
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteExamKey writes the storage key of an exam.
func WriteExamKey(w io.Writer, key string, meta schema.ExamMeta, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeJSON(w, struct {
			Key  string          `json:"key"`
			Exam schema.ExamMeta `json:"exam"`
		}{key, meta})
	}
	_, err := fmt.Fprintln(w, key)
	return err
}

// WriteTeacherKey writes the assignment key and notes an inferred cohort.
func WriteTeacherKey(w io.Writer, res keys.TeacherKeyResult, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeJSON(w, res)
	}
	if _, err := fmt.Fprintln(w, res.Key); err != nil {
		return err
	}
	if res.CohortInferred {
		if _, err := fmt.Fprintf(w, "note: cohort %s inferred from term %s; set --cohort to override\n", res.CohortID, res.BaseTerm); err != nil {
			return err
		}
	}
	return nil
}

// WriteMatchResult writes a self-lookup outcome and its candidates.
func WriteMatchResult(w io.Writer, res schema.MatchResult, subjects []string, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeJSON(w, res)
	}
	fmtFloat, _ := createFormatters(cfg.Precision)
	if _, err := fmt.Fprintf(w, "Strategy: %s\n", res.Strategy); err != nil {
		return err
	}
	if !res.Found() {
		_, err := fmt.Fprintf(w, "No match among %d candidates\n", len(res.Candidates))
		return err
	}

	headers := append([]string{"", "Name", "Class", "School"}, subjects...)
	candidates := res.Candidates
	if cfg.ResultLimit > 0 && len(candidates) > cfg.ResultLimit {
		candidates = candidates[:cfg.ResultLimit]
	}
	var data [][]string
	for _, c := range candidates {
		marker := ""
		if c.Name == res.Student.Name && c.Class == res.Student.Class && c.School == res.Student.School {
			marker = "*"
		}
		row := []string{marker, c.Name, c.Class, c.School}
		for _, sub := range subjects {
			if v, ok := c.Score(sub); ok {
				row = append(row, fmtFloat(v))
			} else {
				row = append(row, contract.Unranked)
			}
		}
		data = append(data, row)
	}
	if cfg.Output == schema.MarkdownOut {
		return writeMarkdownTable(w, headers, data)
	}
	return writeTable(w, headers, data)
}

// WriteStudents writes student records as JSON or CSV. Text output falls back to CSV.
func WriteStudents(w io.Writer, students []schema.StudentRecord, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeJSON(w, students)
	}
	subjects := subjectsOf(students)
	header := append([]string{"姓名", "班级", "学校"}, subjects...)
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, s := range students {
			rec := []string{s.Name, s.Class, s.School}
			for _, sub := range subjects {
				if v, ok := s.Score(sub); ok {
					rec = append(rec, fmt.Sprintf("%g", v))
				} else {
					rec = append(rec, "")
				}
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// subjectsOf returns every subject present, default subjects first.
func subjectsOf(students []schema.StudentRecord) []string {
	var extra []string
	present := make(map[string]bool)
	for _, s := range students {
		for sub := range s.Scores {
			if !present[sub] {
				present[sub] = true
				if !slices.Contains(schema.DefaultSubjects, sub) {
					extra = append(extra, sub)
				}
			}
		}
	}
	var subjects []string
	for _, sub := range schema.DefaultSubjects {
		if present[sub] {
			subjects = append(subjects, sub)
		}
	}
	sort.Strings(extra)
	return append(subjects, extra...)
}
