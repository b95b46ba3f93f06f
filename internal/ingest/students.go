package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/huangsam/examlens/schema"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Header aliases for the identity columns.
var (
	nameHeaders   = []string{"姓名", "name"}
	classHeaders  = []string{"班级", "class"}
	schoolHeaders = []string{"学校", "school"}
)

// ignoredHeaders are sheet columns that are neither identity nor subject scores.
var ignoredHeaders = []string{"学号", "考号", "id", "总分", "total", "排名", "rank", "序号", "no"}

// absentMarkers are cell values read as a missing score.
var absentMarkers = []string{"-", "/", "缺考", "缺"}

// sheetColumns is the resolved header row of a score sheet.
type sheetColumns struct {
	name     int
	class    int
	school   int
	subjects map[int]string
}

func matchHeader(cell string, aliases []string) bool {
	for _, a := range aliases {
		if strings.EqualFold(cell, a) {
			return true
		}
	}
	return false
}

func parseHeader(file string, header []string) (sheetColumns, error) {
	cols := sheetColumns{name: -1, class: -1, school: -1, subjects: make(map[int]string)}
	for i, raw := range header {
		cell := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		switch {
		case cell == "":
		case matchHeader(cell, nameHeaders):
			cols.name = i
		case matchHeader(cell, classHeaders):
			cols.class = i
		case matchHeader(cell, schoolHeaders):
			cols.school = i
		case matchHeader(cell, ignoredHeaders):
		default:
			cols.subjects[i] = cell
		}
	}
	if cols.name < 0 {
		return cols, &ValidationError{File: file, Row: 1, Field: "name", Err: errors.New("missing 姓名/name column")}
	}
	if len(cols.subjects) == 0 {
		return cols, &ValidationError{File: file, Row: 1, Err: errors.New("no subject columns")}
	}
	return cols, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseScore reads a score cell. ok is false for a blank or absent cell.
func parseScore(cell string) (v float64, ok bool, err error) {
	if cell == "" {
		return 0, false, nil
	}
	for _, m := range absentMarkers {
		if cell == m {
			return 0, false, nil
		}
	}
	v, err = strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid score %q", cell)
	}
	return v, true, nil
}

// studentsFromRows converts a header row and data rows into records.
// rows[0] is the header and sits on sheet row 1.
func (l *Loader) studentsFromRows(file string, rows [][]string) ([]schema.StudentRecord, error) {
	if len(rows) == 0 {
		return nil, &ValidationError{File: file, Row: 1, Err: errors.New("empty sheet")}
	}
	cols, err := parseHeader(file, rows[0])
	if err != nil {
		return nil, err
	}

	students := make([]schema.StudentRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if blankRow(row) {
			continue
		}
		rec := schema.StudentRecord{
			Name:   cellAt(row, cols.name),
			Class:  cellAt(row, cols.class),
			School: cellAt(row, cols.school),
			Scores: make(map[string]float64, len(cols.subjects)),
		}
		if rec.School == "" {
			rec.School = l.DefaultSchool
		}
		for idx, subject := range cols.subjects {
			v, ok, err := parseScore(cellAt(row, idx))
			if err != nil {
				return nil, &ValidationError{File: file, Row: line, Field: subject, Err: err}
			}
			if ok {
				rec.Scores[subject] = v
			}
		}
		if err := validateStudent(file, line, rec); err != nil {
			return nil, err
		}
		students = append(students, rec)
	}
	if len(students) == 0 {
		l.logger.Warn("sheet has no student rows", zap.String("file", file))
	}
	return students, nil
}

func (l *Loader) studentsFromExcel(path string) ([]schema.StudentRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open excel %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	l.logger.Debug("reading sheet", zap.String("sheet", sheets[0]), zap.Int("rows", len(rows)))
	return l.studentsFromRows(path, rows)
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func (l *Loader) studentsFromCSV(path string) ([]schema.StudentRecord, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	return l.studentsFromRows(path, rows)
}

func (l *Loader) studentsFromJSON(path string) ([]schema.StudentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var students []schema.StudentRecord
	if err := json.Unmarshal(data, &students); err != nil {
		return nil, fmt.Errorf("decode students %s: %w", path, err)
	}
	for i := range students {
		rec := &students[i]
		rec.Name = strings.TrimSpace(rec.Name)
		rec.Class = strings.TrimSpace(rec.Class)
		rec.School = strings.TrimSpace(rec.School)
		if rec.School == "" {
			rec.School = l.DefaultSchool
		}
		if err := validateStudent(path, i+1, *rec); err != nil {
			return nil, err
		}
	}
	return students, nil
}
