package cmd

import (
	"errors"

	"github.com/huangsam/examlens/core/keys"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/internal/outwriter"
	"github.com/spf13/cobra"
)

// keyCmd groups the storage key calculators.
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Print the shared-store keys of the configured exam and term",
	Long: `Compute the keys sync commands read and write, without touching the store.

Subcommands:
  exam     - Key of the exam snapshot
  teachers - Key of the teacher assignment table`,
}

// keyExamCmd prints the exam snapshot key.
var keyExamCmd = &cobra.Command{
	Use:   "exam",
	Short: "Print the exam snapshot key",
	Long: `Print the key of the exam described by --cohort, --grade, --year, --term,
--exam-type and --exam-name.

Examples:
  examlens key exam --cohort 2023 --grade 9 --year 2025 --term 上学期 --exam-type 期中`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		meta := cfg.Sync.Exam
		key, ok := keys.ExamKey(meta)
		if !ok {
			contract.LogFatal("Cannot build exam key", errors.New("--cohort, --year, --term and --exam-type are required"))
		}
		if err := outwriter.NewOutWriter().WriteExamKey(key, meta, cfg); err != nil {
			contract.LogFatal("Cannot write exam key", err)
		}
	},
}

// keyTeachersCmd prints the teacher assignment key.
var keyTeachersCmd = &cobra.Command{
	Use:   "teachers",
	Short: "Print the teacher assignment key",
	Long: `Print the key of the assignment table for --cohort and --term-id.

Without --cohort the cohort is inferred from the grade in the term id,
and the output says so.

Examples:
  examlens key teachers --term-id 2025-2026_上学期_9年级`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		res, ok := keys.TeacherKey(cfg.Sync.CohortID, cfg.Sync.TermID)
		if !ok {
			contract.LogFatal("Cannot build teacher key", errors.New("--cohort or a --term-id with a grade is required"))
		}
		if err := outwriter.NewOutWriter().WriteTeacherKey(res, cfg); err != nil {
			contract.LogFatal("Cannot write teacher key", err)
		}
	},
}
