package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/examlens/schema"
	"gopkg.in/yaml.v3"
)

// payloadFromMap accepts either {map, schoolMap} or a flat key to teacher map.
// Non-string values of a flat map are skipped.
func payloadFromMap(raw map[string]any) schema.AssignmentPayload {
	payload := schema.AssignmentPayload{Map: map[string]string{}, SchoolMap: map[string]string{}}
	if inner, ok := raw["map"].(map[string]any); ok {
		copyStrings(payload.Map, inner)
		if schools, ok := raw["schoolMap"].(map[string]any); ok {
			copyStrings(payload.SchoolMap, schools)
		}
		return payload
	}
	copyStrings(payload.Map, raw)
	return payload
}

func copyStrings(dst map[string]string, src map[string]any) {
	for k, v := range src {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			dst[strings.TrimSpace(k)] = strings.TrimSpace(s)
		}
	}
}

func assignmentsFromYAML(path string) (schema.AssignmentPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.AssignmentPayload{}, fmt.Errorf("read %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return schema.AssignmentPayload{}, fmt.Errorf("decode assignments %s: %w", path, err)
	}
	return payloadFromMap(raw), nil
}

func assignmentsFromJSON(path string) (schema.AssignmentPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.AssignmentPayload{}, fmt.Errorf("read %s: %w", path, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return schema.AssignmentPayload{}, fmt.Errorf("decode assignments %s: %w", path, err)
	}
	return payloadFromMap(raw), nil
}

// assignmentsFromCSV reads rows of class, subject, teacher and an optional school.
// A leading header row is skipped.
func assignmentsFromCSV(path string) (schema.AssignmentPayload, error) {
	payload := schema.AssignmentPayload{Map: map[string]string{}, SchoolMap: map[string]string{}}
	rows, err := readCSV(path)
	if err != nil {
		return payload, err
	}
	for i, row := range rows {
		line := i + 1
		if blankRow(row) {
			continue
		}
		if i == 0 && matchHeader(cellAt(row, 0), classHeaders) {
			continue
		}
		if len(row) < 3 {
			return payload, &ValidationError{File: path, Row: line, Err: errors.New("want class, subject, teacher[, school]")}
		}
		key := schema.AssignmentKey{ClassID: cellAt(row, 0), SubjectID: cellAt(row, 1)}
		if key.ClassID == "" || key.SubjectID == "" {
			return payload, &ValidationError{File: path, Row: line, Field: "key", Err: errors.New("class and subject are required")}
		}
		if strings.Contains(key.ClassID, "_") {
			return payload, &ValidationError{File: path, Row: line, Field: "class", Err: fmt.Errorf("class id %q contains '_'", key.ClassID)}
		}
		teacher := cellAt(row, 2)
		if teacher == "" {
			return payload, &ValidationError{File: path, Row: line, Field: "teacher", Err: errors.New("teacher is required")}
		}
		payload.Map[key.String()] = teacher
		if school := cellAt(row, 3); school != "" {
			payload.SchoolMap[key.String()] = school
		}
	}
	return payload, nil
}
