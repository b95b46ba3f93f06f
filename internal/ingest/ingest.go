// Package ingest reads score sheets and teacher assignment tables from disk.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/examlens/schema"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for file extensions no loader handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ValidationError is a rejected row. Row is 1-based; for sheets the header is row 1.
type ValidationError struct {
	File  string
	Row   int
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s row %d: %v", filepath.Base(e.File), e.Row, e.Err)
	}
	return fmt.Sprintf("%s row %d: %s: %v", filepath.Base(e.File), e.Row, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Loader reads input files. The zero value is not usable; call NewLoader.
type Loader struct {
	logger *zap.Logger

	// DefaultSchool fills rows that have no school column or an empty school cell.
	DefaultSchool string
}

// NewLoader returns a Loader that logs through logger.
func NewLoader(logger *zap.Logger, defaultSchool string) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger.Named("ingest"), DefaultSchool: strings.TrimSpace(defaultSchool)}
}

// LoadStudents reads students with a default Loader.
func LoadStudents(path string) ([]schema.StudentRecord, error) {
	return NewLoader(nil, "").Students(path)
}

// LoadAssignments reads an assignment table with a default Loader.
func LoadAssignments(path string) (schema.AssignmentPayload, error) {
	return NewLoader(nil, "").Assignments(path)
}

// Students reads a score sheet. The format follows the extension: .xlsx, .csv or .json.
func (l *Loader) Students(path string) ([]schema.StudentRecord, error) {
	var (
		students []schema.StudentRecord
		err      error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		students, err = l.studentsFromExcel(path)
	case ".csv":
		students, err = l.studentsFromCSV(path)
	case ".json":
		students, err = l.studentsFromJSON(path)
	default:
		return nil, fmt.Errorf("%w for students: %q (want .xlsx, .csv or .json)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	l.logger.Info("students loaded", zap.String("file", path), zap.Int("count", len(students)))
	return students, nil
}

// Assignments reads an assignment table: .yaml, .yml, .json or .csv.
func (l *Loader) Assignments(path string) (schema.AssignmentPayload, error) {
	var (
		payload schema.AssignmentPayload
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		payload, err = assignmentsFromYAML(path)
	case ".json":
		payload, err = assignmentsFromJSON(path)
	case ".csv":
		payload, err = assignmentsFromCSV(path)
	default:
		return payload, fmt.Errorf("%w for assignments: %q (want .yaml, .json or .csv)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return payload, err
	}
	if _, err := payload.Table(); err != nil {
		return payload, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	l.logger.Info("assignments loaded", zap.String("file", path), zap.Int("count", len(payload.Map)))
	return payload, nil
}

// validateStudent checks a record and reports the first failing field.
func validateStudent(file string, row int, rec schema.StudentRecord) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{File: file, Row: row, Field: fe.Field(), Err: fmt.Errorf("failed %q check (value %v)", fe.Tag(), fe.Value())}
	}
	return &ValidationError{File: file, Row: row, Err: err}
}
