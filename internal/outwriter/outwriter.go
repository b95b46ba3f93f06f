// Package outwriter has output and writer logic.
package outwriter

import (
	"io"
	"os"

	"github.com/huangsam/examlens/core/keys"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// Each method writes to cfg.OutputFile, or stdout when it is empty.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

func (ow *OutWriter) write(cfg *contract.Config, what string, fn func(io.Writer) error) error {
	return writeWithFile(cfg.OutputFile, fn, "Wrote "+what)
}

// WriteSchools prints school metrics.
func (ow *OutWriter) WriteSchools(metrics schema.SchoolMetrics, cfg *contract.Config) error {
	return ow.write(cfg, "school metrics", func(w io.Writer) error {
		return WriteSchoolMetrics(w, metrics, cfg)
	})
}

// WriteTeachers prints teacher statistics.
func (ow *OutWriter) WriteTeachers(analysis schema.TeacherAnalysis, cfg *contract.Config) error {
	return ow.write(cfg, "teacher statistics", func(w io.Writer) error {
		return WriteTeacherAnalysis(w, analysis, cfg)
	})
}

// WriteTownship prints a township ranking.
func (ow *OutWriter) WriteTownship(ranking schema.TownshipRanking, cfg *contract.Config) error {
	return ow.write(cfg, "township ranking", func(w io.Writer) error {
		return WriteTownshipRanking(w, ranking, cfg)
	})
}

// WriteComparison prints an exam comparison report.
func (ow *OutWriter) WriteComparison(report schema.ExamComparison, cfg *contract.Config) error {
	return ow.write(cfg, "comparison report", func(w io.Writer) error {
		return WriteExamComparison(w, report, cfg)
	})
}

// WriteMatch prints a self-lookup result.
func (ow *OutWriter) WriteMatch(res schema.MatchResult, subjects []string, cfg *contract.Config) error {
	return ow.write(cfg, "match result", func(w io.Writer) error {
		return WriteMatchResult(w, res, subjects, cfg)
	})
}

// WriteSync prints a save or load result.
func (ow *OutWriter) WriteSync(res schema.SyncResult, cfg *contract.Config) error {
	return ow.write(cfg, "sync result", func(w io.Writer) error {
		return WriteSyncResult(w, res, cfg)
	})
}

// WriteTeacherLoad prints loaded teacher assignments.
func (ow *OutWriter) WriteTeacherLoad(res schema.TeacherLoadResult, cfg *contract.Config) error {
	return ow.write(cfg, "teacher assignments", func(w io.Writer) error {
		return WriteTeacherLoad(w, res, cfg)
	})
}

// WriteExamKey prints an exam storage key.
func (ow *OutWriter) WriteExamKey(key string, meta schema.ExamMeta, cfg *contract.Config) error {
	return ow.write(cfg, "exam key", func(w io.Writer) error {
		return WriteExamKey(w, key, meta, cfg)
	})
}

// WriteTeacherKey prints a teacher assignment key.
func (ow *OutWriter) WriteTeacherKey(res keys.TeacherKeyResult, cfg *contract.Config) error {
	return ow.write(cfg, "teacher key", func(w io.Writer) error {
		return WriteTeacherKey(w, res, cfg)
	})
}

// WriteStudents prints student records.
func (ow *OutWriter) WriteStudents(students []schema.StudentRecord, cfg *contract.Config) error {
	return ow.write(cfg, "students", func(w io.Writer) error {
		return WriteStudents(w, students, cfg)
	})
}

// GetMaxTableNameWidth calculates the maximum width for free-text columns in
// table output based on terminal width.
func GetMaxTableNameWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Teacher, subject and the seven numeric columns with borders and padding
	baseWidth := 95

	available := termWidth - baseWidth
	if available < 10 {
		return 10
	}
	if available > 60 {
		return 60
	}
	return available
}
