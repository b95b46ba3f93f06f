package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
)

// WriteExamComparison writes the before/after exam report in the configured format.
func WriteExamComparison(w io.Writer, report schema.ExamComparison, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, report); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVResultsForComparison(w, report, cfg.Precision); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.MarkdownOut:
		if err := writeComparisonMarkdown(w, report, cfg.Precision); err != nil {
			return fmt.Errorf("error writing Markdown output: %w", err)
		}
	default:
		if err := writeComparisonTable(w, report, cfg); err != nil {
			return fmt.Errorf("error writing comparison table: %w", err)
		}
	}
	return nil
}

// formatValue formats a comparison value by its kind.
func formatValue(kind schema.ValueKind, v float64, precision int) string {
	switch kind {
	case schema.RateValue:
		return fmt.Sprintf("%.*f%%", precision, v*100)
	case schema.RankValue:
		return contract.GetPlainRank(int(v))
	case schema.CountValue:
		return strconv.Itoa(int(v))
	default:
		return fmt.Sprintf("%.*f", precision, v)
	}
}

// formatDelta formats a signed change. Rate changes are in percentage points.
func formatDelta(kind schema.ValueKind, d float64, precision int) string {
	switch kind {
	case schema.RateValue:
		return fmt.Sprintf("%+.*fpp", precision, d*100)
	case schema.RankValue, schema.CountValue:
		return fmt.Sprintf("%+d", int(d))
	default:
		return fmt.Sprintf("%+.*f", precision, d)
	}
}

// improved reports whether a change is good news. Lower ranks and lower low rates are better.
func improved(row schema.ComparisonRow) bool {
	if row.Kind == schema.RankValue || row.Metric == "Low rate" {
		return row.Delta < 0
	}
	return row.Delta > 0
}

func writeComparisonTable(w io.Writer, report schema.ExamComparison, cfg *contract.Config) error {
	var red, green func(...any) string
	if cfg.UseColors {
		red = color.New(color.FgRed).SprintFunc()
		green = color.New(color.FgGreen).SprintFunc()
	} else {
		red = fmt.Sprint
		green = fmt.Sprint
	}

	if _, err := fmt.Fprintf(w, "%s | %s | %s: %s -> %s\n", report.School, report.Teacher, report.Subject, report.BeforeTag, report.AfterTag); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Classes: %s -> %s\n", report.BeforeClasses, report.AfterClasses); err != nil {
		return err
	}
	for _, section := range report.Sections {
		if _, err := fmt.Fprintf(w, "\n%s\n", section.Title); err != nil {
			return err
		}
		data := make([][]string, 0, len(section.Rows))
		for _, row := range section.Rows {
			delta := formatDelta(row.Kind, row.Delta, cfg.Precision)
			switch {
			case row.Delta == 0:
			case improved(row):
				delta = green(delta)
			default:
				delta = red(delta)
			}
			data = append(data, []string{
				row.Metric,
				formatValue(row.Kind, row.Before, cfg.Precision),
				formatValue(row.Kind, row.After, cfg.Precision),
				delta,
			})
		}
		if err := writeTable(w, []string{"Metric", report.BeforeTag, report.AfterTag, "Delta"}, data); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "\nChecks"); err != nil {
		return err
	}
	data := make([][]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		data = append(data, []string{check.Name, checkCell(cfg, check.Passed), check.Detail})
	}
	return writeTable(w, []string{"Check", "Result", "Detail"}, data)
}

func writeComparisonMarkdown(w io.Writer, report schema.ExamComparison, precision int) error {
	if _, err := fmt.Fprintf(w, "# %s %s: %s vs %s\n\n", report.School, report.Subject, report.BeforeTag, report.AfterTag); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "- Teacher: %s\n- Classes: %s -> %s\n", report.Teacher, report.BeforeClasses, report.AfterClasses); err != nil {
		return err
	}
	for _, section := range report.Sections {
		if _, err := fmt.Fprintf(w, "\n## %s\n\n", section.Title); err != nil {
			return err
		}
		data := make([][]string, 0, len(section.Rows))
		for _, row := range section.Rows {
			data = append(data, []string{
				row.Metric,
				formatValue(row.Kind, row.Before, precision),
				formatValue(row.Kind, row.After, precision),
				formatDelta(row.Kind, row.Delta, precision),
			})
		}
		if err := writeMarkdownTable(w, []string{"Metric", report.BeforeTag, report.AfterTag, "Delta"}, data); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n## Checks\n\n"); err != nil {
		return err
	}
	for _, check := range report.Checks {
		mark := " "
		if check.Passed {
			mark = "x"
		}
		if _, err := fmt.Fprintf(w, "- [%s] %s (%s)\n", mark, check.Name, check.Detail); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVResultsForComparison(w io.Writer, report schema.ExamComparison, precision int) error {
	header := []string{"section", "metric", "kind", "before", "after", "delta"}
	fmtFloat := func(v float64) string { return strconv.FormatFloat(v, 'f', precision+2, 64) }
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, section := range report.Sections {
			for _, row := range section.Rows {
				rec := []string{section.Title, row.Metric, string(row.Kind), fmtFloat(row.Before), fmtFloat(row.After), fmtFloat(row.Delta)}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
		for _, check := range report.Checks {
			rec := []string{"Checks", check.Name, "check", "", contract.GetPlainCheck(check.Passed), check.Detail}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
