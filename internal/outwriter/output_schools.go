package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
)

var schoolHeaders = []string{"School", "Subject", "Count", "Avg", "Excellent", "Pass", "Rank Avg", "Rank Exc", "Rank Pass", "Two-rate", "Rank 2R"}

// WriteSchoolMetrics writes the school metrics in the configured format.
func WriteSchoolMetrics(w io.Writer, metrics schema.SchoolMetrics, cfg *contract.Config) error {
	fmtFloat, fmtRate := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, metrics); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVResultsForSchools(w, metrics, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.MarkdownOut:
		return writeMarkdownTable(w, schoolHeaders, schoolRows(metrics, nil, fmtFloat, fmtRate))
	default:
		if err := writeSchoolTable(w, metrics, cfg, fmtFloat, fmtRate); err != nil {
			return fmt.Errorf("error writing school table: %w", err)
		}
	}
	return nil
}

// schoolRows flattens the metrics into one row per school and subject, totals last.
// rank formats rank cells; nil means plain.
func schoolRows(metrics schema.SchoolMetrics, rank func(int) string, fmtFloat, fmtRate func(float64) string) [][]string {
	if rank == nil {
		rank = contract.GetPlainRank
	}
	var data [][]string
	for _, sm := range metrics.Schools {
		for _, sub := range metrics.Subjects {
			m := sm.Subjects[sub]
			data = append(data, []string{
				sm.School, sub, strconv.Itoa(m.Count),
				fmtFloat(m.Avg), fmtRate(m.ExcRate), fmtRate(m.PassRate),
				rank(m.RankAvg), rank(m.RankExc), rank(m.RankPass),
				"", "",
			})
		}
		t := sm.Total
		data = append(data, []string{
			sm.School, schema.TotalSubject, strconv.Itoa(t.Count),
			fmtFloat(t.Avg), fmtRate(t.ExcRate), fmtRate(t.PassRate),
			rank(t.RankAvg), rank(t.RankExc), rank(t.RankPass),
			fmtFloat(t.Score2Rate), rank(t.Rank2Rate),
		})
	}
	return data
}

func writeSchoolTable(w io.Writer, metrics schema.SchoolMetrics, cfg *contract.Config, fmtFloat, fmtRate func(float64) string) error {
	total := len(metrics.Schools)
	rank := func(r int) string { return rankCell(cfg, r, total) }
	if err := writeTable(w, schoolHeaders, schoolRows(metrics, rank, fmtFloat, fmtRate)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d schools, %d subjects. Total cutoffs: excellent %s, pass %s\n",
		total, len(metrics.Subjects), fmtFloat(metrics.Total.Excellent), fmtFloat(metrics.Total.Pass))
	return err
}

func writeCSVResultsForSchools(w io.Writer, metrics schema.SchoolMetrics, fmtFloat func(float64) string) error {
	header := []string{"school", "subject", "count", "avg", "exc_rate", "pass_rate", "rank_avg", "rank_exc", "rank_pass", "score_2rate", "rank_2rate"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, sm := range metrics.Schools {
			for _, sub := range metrics.Subjects {
				m := sm.Subjects[sub]
				rec := []string{
					sm.School, sub, strconv.Itoa(m.Count),
					fmtFloat(m.Avg), fmtFloat(m.ExcRate), fmtFloat(m.PassRate),
					strconv.Itoa(m.RankAvg), strconv.Itoa(m.RankExc), strconv.Itoa(m.RankPass),
					"", "",
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
			t := sm.Total
			rec := []string{
				sm.School, schema.TotalSubject, strconv.Itoa(t.Count),
				fmtFloat(t.Avg), fmtFloat(t.ExcRate), fmtFloat(t.PassRate),
				strconv.Itoa(t.RankAvg), strconv.Itoa(t.RankExc), strconv.Itoa(t.RankPass),
				fmtFloat(t.Score2Rate), strconv.Itoa(t.Rank2Rate),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
