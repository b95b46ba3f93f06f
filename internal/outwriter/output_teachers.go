package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
)

var teacherHeaders = []string{"Teacher", "Subject", "Classes", "Students", "Avg", "Contrib", "Excellent", "Pass", "Low", "Final"}

// WriteTeacherAnalysis writes the teacher statistics of one school in the configured format.
func WriteTeacherAnalysis(w io.Writer, analysis schema.TeacherAnalysis, cfg *contract.Config) error {
	fmtFloat, fmtRate := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, analysis); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVResultsForTeachers(w, analysis, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.MarkdownOut:
		return writeMarkdownTable(w, teacherHeaders, teacherRows(analysis, cfg, fmtFloat, fmtRate))
	default:
		if err := writeTeacherTable(w, analysis, cfg, fmtFloat, fmtRate); err != nil {
			return fmt.Errorf("error writing teacher table: %w", err)
		}
	}
	return nil
}

func teacherRows(analysis schema.TeacherAnalysis, cfg *contract.Config, fmtFloat, fmtRate func(float64) string) [][]string {
	width := GetMaxTableNameWidth(cfg)
	data := make([][]string, 0, len(analysis.Stats))
	for _, st := range analysis.Stats {
		data = append(data, []string{
			st.Teacher,
			st.Subject,
			contract.TruncateText(st.ClassList(), width),
			strconv.Itoa(st.StudentCount),
			fmtFloat(st.Avg),
			fmtFloat(st.Contribution),
			fmtRate(st.ExcellentRate),
			fmtRate(st.PassRate),
			fmtRate(st.LowRate),
			fmtFloat(st.FinalScore),
		})
	}
	return data
}

func writeTeacherTable(w io.Writer, analysis schema.TeacherAnalysis, cfg *contract.Config, fmtFloat, fmtRate func(float64) string) error {
	if _, err := fmt.Fprintf(w, "School: %s\n", analysis.School); err != nil {
		return err
	}
	if err := writeTable(w, teacherHeaders, teacherRows(analysis, cfg, fmtFloat, fmtRate)); err != nil {
		return err
	}
	var parts []string
	for _, sub := range analysis.Subjects {
		if b, ok := analysis.Baselines[sub]; ok {
			parts = append(parts, fmt.Sprintf("%s avg %s (n=%d)", sub, fmtFloat(b.Avg), b.Count))
		}
	}
	if len(parts) > 0 {
		if _, err := fmt.Fprintf(w, "Grade baselines: %s\n", strings.Join(parts, ", ")); err != nil {
			return err
		}
	}
	if len(analysis.Skipped) > 0 {
		keys := make([]string, len(analysis.Skipped))
		for i, k := range analysis.Skipped {
			keys[i] = k.String()
		}
		if _, err := fmt.Fprintf(w, "Skipped assignments without students: %s\n", strings.Join(keys, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVResultsForTeachers(w io.Writer, analysis schema.TeacherAnalysis, fmtFloat func(float64) string) error {
	header := []string{"school", "teacher", "subject", "classes", "student_count", "avg", "contribution", "excellent_rate", "pass_rate", "low_rate", "final_score"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, st := range analysis.Stats {
			rec := []string{
				analysis.School,
				st.Teacher,
				st.Subject,
				strings.Join(st.Classes, "|"),
				strconv.Itoa(st.StudentCount),
				fmtFloat(st.Avg),
				fmtFloat(st.Contribution),
				fmtFloat(st.ExcellentRate),
				fmtFloat(st.PassRate),
				fmtFloat(st.LowRate),
				fmtFloat(st.FinalScore),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
