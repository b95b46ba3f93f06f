package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/examlens/core"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/internal/ingest"
	"github.com/huangsam/examlens/internal/outwriter"
	"github.com/huangsam/examlens/internal/parquet"
	"github.com/huangsam/examlens/schema"
	"github.com/spf13/cobra"
)

// newLoader returns an ingest loader using the configured default school.
func newLoader() *ingest.Loader {
	return ingest.NewLoader(logger, cfg.Sync.DefaultSchool)
}

// loadExamInput reads a score sheet and an optional assignment table into an exam input.
func loadExamInput(tag, sheet, assignments string) (core.ExamInput, error) {
	in := core.ExamInput{
		Tag:        tag,
		School:     cfg.TargetSchool,
		Subject:    cfg.Subject,
		Subjects:   cfg.Subjects,
		Thresholds: cfg.Thresholds,
	}
	loader := newLoader()
	students, err := loader.Students(sheet)
	if err != nil {
		return in, err
	}
	in.Students = students
	if assignments == "" {
		return in, nil
	}
	payload, err := loader.Assignments(assignments)
	if err != nil {
		return in, err
	}
	if in.Assignments, err = payload.Table(); err != nil {
		return in, fmt.Errorf("%s: %w", assignments, err)
	}
	return in, nil
}

// requireTargetSchool fails early when a teacher analysis has no school to focus on.
func requireTargetSchool() error {
	if cfg.TargetSchool == "" {
		return errors.New("--target-school is required")
	}
	return nil
}

// exportParquet writes the analysis tables into the --output-file directory.
func exportParquet(analysis schema.ExamAnalysis) error {
	if cfg.OutputFile == "" {
		return errors.New("parquet output needs --output-file set to a directory")
	}
	paths, err := parquet.ExportExam(cfg.OutputFile, time.Now(), analysis)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("Wrote %s\n", p)
	}
	return nil
}

// analyzeCmd groups the single-exam analyses.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one exam by school, teacher or township",
	Long: `Analyze a single exam score sheet.

Subcommands:
  schools  - Per-school subject metrics with peer ranks
  teachers - Teacher statistics and final scores for one school
  township - Teachers of one school ranked against peer schools`,
}

// analyzeSchoolsCmd aggregates school metrics.
var analyzeSchoolsCmd = &cobra.Command{
	Use:   "schools",
	Short: "Show per-school averages, rates and ranks",
	Long: `Aggregate every school's subject and total metrics and rank schools against each other.

Blank cells are missing scores and never count as zero. A school without any
score in a subject stays unranked for it.

Examples:
  # Rank schools on the default subjects
  examlens analyze schools --students scores.xlsx

  # Only math and English, as CSV
  examlens analyze schools --students scores.csv --subjects 数学,英语 --output csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		in, err := loadExamInput("", studentsPath, "")
		if err != nil {
			contract.LogFatal("Cannot load score sheet", err)
		}
		metrics := core.AggregateSchools(in.Students, in.Subjects, in.Thresholds)
		if cfg.Output == schema.ParquetOut {
			err = exportParquet(schema.ExamAnalysis{Metrics: metrics})
		} else {
			err = outwriter.NewOutWriter().WriteSchools(metrics, cfg)
		}
		if err != nil {
			contract.LogFatal("Cannot write school metrics", err)
		}
	},
}

// analyzeTeachersCmd computes teacher statistics.
var analyzeTeachersCmd = &cobra.Command{
	Use:   "teachers",
	Short: "Show teacher statistics and final scores for one school",
	Long: `Pool each teacher's classes per subject and score them against the grade baseline.

The final score weighs contribution, excellent rate, pass rate and low rate.
Assignments whose class has no students are listed as skipped.

Examples:
  examlens analyze teachers --students scores.xlsx --assignments teachers.yaml --target-school 实验中学`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := sharedSetupWrapper(cmd, args); err != nil {
			return err
		}
		return requireTargetSchool()
	},
	Run: func(_ *cobra.Command, _ []string) {
		in, err := loadExamInput("", studentsPath, assignmentsPath)
		if err != nil {
			contract.LogFatal("Cannot load exam inputs", err)
		}
		analysis := core.AnalyzeTeachers(in.Students, in.Assignments, in.School, in.Subjects, in.Thresholds)
		if cfg.Output == schema.ParquetOut {
			err = exportParquet(schema.ExamAnalysis{Teachers: analysis})
		} else {
			err = outwriter.NewOutWriter().WriteTeachers(analysis, cfg)
		}
		if err != nil {
			contract.LogFatal("Cannot write teacher statistics", err)
		}
	},
}

// analyzeTownshipCmd merges teachers and peer schools into one ranking.
var analyzeTownshipCmd = &cobra.Command{
	Use:   "township",
	Short: "Rank one school's teachers against peer schools",
	Long: `Rank the target school's teachers of one subject together with every other school.

Examples:
  examlens analyze township --students scores.xlsx --assignments teachers.yaml --target-school 实验中学 --subject 数学`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := sharedSetupWrapper(cmd, args); err != nil {
			return err
		}
		if cfg.Subject == "" {
			return errors.New("--subject is required")
		}
		return requireTargetSchool()
	},
	Run: func(_ *cobra.Command, _ []string) {
		in, err := loadExamInput("", studentsPath, assignmentsPath)
		if err != nil {
			contract.LogFatal("Cannot load exam inputs", err)
		}
		analysis := core.AnalyzeExam(in)
		if cfg.Output == schema.ParquetOut {
			err = exportParquet(analysis)
		} else {
			err = outwriter.NewOutWriter().WriteTownship(analysis.Township, cfg)
		}
		if err != nil {
			contract.LogFatal("Cannot write township ranking", err)
		}
	},
}
