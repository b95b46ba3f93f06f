package cmd

import (
	"errors"

	"github.com/huangsam/examlens/core/identity"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/internal/outwriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// matchCmd finds a student's own row in a roster.
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find a student's own row in a roster",
	Long: `Look up a student by name, class and school.

Missing flags fall back to the acting user (--user-name, --user-class, --user-school).
Names ignore whitespace and case. Classes compare by their digits, so "701班"
matches "701". Rows from another school are never picked.

Examples:
  examlens match --roster scores.xlsx --name 张三 --class 701
  EXAMLENS_USER_NAME=张三 examlens match --roster scores.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		target := identity.ResolveTarget(matchTarget, cfg.Sync.User)
		if target.Name == "" && target.Class == "" {
			contract.LogFatal("Cannot match student", errors.New("a name or class is required"))
		}
		rows, err := newLoader().Students(rosterPath)
		if err != nil {
			contract.LogFatal("Cannot load roster", err)
		}
		res := identity.PickSelf(rows, target)
		logger.Debug("self lookup", zap.String("strategy", string(res.Strategy)), zap.Int("candidates", len(res.Candidates)))
		if err := outwriter.NewOutWriter().WriteMatch(res, cfg.Subjects, cfg); err != nil {
			contract.LogFatal("Cannot write match result", err)
		}
	},
}
