package cmd

import (
	"context"
	"errors"

	"github.com/huangsam/examlens/core"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/internal/outwriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// demoExamInputs builds the before/after inputs from the built-in demo dataset.
func demoExamInputs() (before, after core.ExamInput, err error) {
	school := cfg.TargetSchool
	if school == "" {
		school = core.DemoSchool
	}
	for _, in := range []*core.ExamInput{&before, &after} {
		in.School = school
		in.Subject = cfg.Subject
		in.Subjects = cfg.Subjects
		in.Thresholds = cfg.Thresholds
		in.Assignments = core.DemoAssignments()
	}
	before.Tag, after.Tag = core.MidtermTag, core.FinalTag
	if before.Students, err = core.DemoExam(core.MidtermTag); err != nil {
		return before, after, err
	}
	after.Students, err = core.DemoExam(core.FinalTag)
	return before, after, err
}

// fileExamInputs loads the before/after inputs from --before, --after and --assignments.
func fileExamInputs() (before, after core.ExamInput, err error) {
	if beforePath == "" || afterPath == "" || assignmentsPath == "" {
		return before, after, errors.New("--before, --after and --assignments are required without --demo")
	}
	if err = requireTargetSchool(); err != nil {
		return before, after, err
	}
	if before, err = loadExamInput(core.MidtermTag, beforePath, assignmentsPath); err != nil {
		return before, after, err
	}
	after, err = loadExamInput(core.FinalTag, afterPath, assignmentsPath)
	return before, after, err
}

// reportCmd compares two exams for a school, teacher and subject.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compare two exams for one teacher and subject",
	Long: `Build a before/after report for a target school, teacher and subject.

The report covers the school total, the subject, the teacher's pooled classes
and the township ranks, followed by validation checks:
- every rate lies within [0, 1]
- the final score matches its formula
- the teacher's student count is stable (and equals --expected-count when set)
- the school total average improved

Examples:
  # Built-in demo dataset
  examlens report --demo --teacher 张老师 --subject 数学 --output markdown

  # Two real exams
  examlens report --before midterm.xlsx --after final.xlsx --assignments teachers.yaml \
    --target-school 实验中学 --teacher 张老师 --subject 数学`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := sharedSetupWrapper(cmd, args); err != nil {
			return err
		}
		if cfg.Teacher == "" || cfg.Subject == "" {
			return errors.New("--teacher and --subject are required")
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		var before, after core.ExamInput
		var err error
		if useDemo {
			before, after, err = demoExamInputs()
		} else {
			before, after, err = fileExamInputs()
		}
		if err != nil {
			contract.LogFatal("Cannot load exams", err)
		}

		ctx, cancel := context.WithTimeout(rootCtx, cfg.Timeout)
		defer cancel()
		report, err := core.CompareExams(ctx, before, after, core.CompareOptions{
			Teacher:       cfg.Teacher,
			ExpectedCount: cfg.ExpectedCount,
		})
		if err != nil {
			contract.LogFatal("Cannot compare exams", err)
		}
		if err := outwriter.NewOutWriter().WriteComparison(report, cfg); err != nil {
			contract.LogFatal("Cannot write comparison report", err)
		}
		for _, check := range report.Checks {
			if !check.Passed {
				logger.Warn("validation check failed", zap.String("check", check.Name), zap.String("detail", check.Detail))
			}
		}
	},
}
