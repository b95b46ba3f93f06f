package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/examlens/core"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/internal/parquet"
	"github.com/spf13/cobra"
)

// sheetTag names an exam after its score sheet file.
func sheetTag(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// exportBatch analyses several sheets in parallel and exports each into its own subdirectory.
func exportBatch(sheets []string) error {
	if cfg.OutputFile == "" {
		return errors.New("parquet output needs --output-file set to a directory")
	}
	inputs := make([]core.ExamInput, 0, len(sheets))
	seen := make(map[string]struct{}, len(sheets))
	for _, sheet := range sheets {
		tag := sheetTag(sheet)
		if _, dup := seen[tag]; dup {
			return fmt.Errorf("two score sheets share the name %q", tag)
		}
		seen[tag] = struct{}{}
		in, err := loadExamInput(tag, sheet, assignmentsPath)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}

	ctx, cancel := context.WithTimeout(rootCtx, cfg.Timeout)
	defer cancel()
	analyses, err := core.AnalyzeBatch(ctx, inputs, cfg.Workers)
	if err != nil {
		return err
	}
	at := time.Now()
	for _, a := range analyses {
		paths, err := parquet.ExportExam(filepath.Join(cfg.OutputFile, a.Tag), at, a)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Tag, err)
		}
		for _, p := range paths {
			fmt.Printf("Wrote %s\n", p)
		}
	}
	return nil
}

// exportCmd writes an exam analysis to Parquet files.
var exportCmd = &cobra.Command{
	Use:   "export [more sheets...]",
	Short: "Export an exam analysis to Parquet for BI tools",
	Long: `Analyze one exam and write its tables as Parquet files into a directory:
- school_metrics.parquet    - per-school subject and total metrics
- teacher_stats.parquet     - teacher statistics (needs --assignments and --target-school)
- township_rankings.parquet - township ranking (needs --subject as well)

Extra score sheets given as arguments are analysed in parallel (--workers) and
each exam is written into a subdirectory named after its file.

Requires: --output-file set to the target directory

Examples:
  examlens export --students scores.xlsx --output-file out/
  examlens export --students 期中.xlsx 期末.xlsx --output-file out/
  duckdb -c "SELECT * FROM read_parquet('out/school_metrics.parquet')"`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		if len(args) > 0 {
			if err := exportBatch(append([]string{studentsPath}, args...)); err != nil {
				contract.LogFatal("Failed to export analyses", err)
			}
			return
		}
		in, err := loadExamInput("", studentsPath, assignmentsPath)
		if err != nil {
			contract.LogFatal("Cannot load exam inputs", err)
		}
		if err := exportParquet(core.AnalyzeExam(in)); err != nil {
			contract.LogFatal("Failed to export analysis", err)
		}
	},
}
