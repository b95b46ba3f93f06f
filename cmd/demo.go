package cmd

import (
	"github.com/huangsam/examlens/core"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/internal/outwriter"
	"github.com/spf13/cobra"
)

// demoCmd writes the built-in demo exam as a score sheet.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Generate the built-in demo exam",
	Long: `Write the deterministic demo exam: three schools, two classes each and
twenty students per class, for the 期中 or 期末 exam.

The output can be fed back into every other command.

Examples:
  examlens demo --tag 期中 --output json --output-file midterm.json
  examlens demo --tag 期末 --output csv --output-file final.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		students, err := core.DemoExam(demoTag)
		if err != nil {
			contract.LogFatal("Cannot generate demo exam", err)
		}
		if err := outwriter.NewOutWriter().WriteStudents(students, cfg); err != nil {
			contract.LogFatal("Cannot write demo exam", err)
		}
	},
}
