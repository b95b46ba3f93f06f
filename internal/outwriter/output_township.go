package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
)

var townshipHeaders = []string{"Name", "Kind", "Avg", "Excellent", "Pass", "Rank Avg", "Rank Exc", "Rank Pass"}

// WriteTownshipRanking writes a merged teacher and school ranking in the configured format.
// The table formats show at most cfg.ResultLimit entries.
func WriteTownshipRanking(w io.Writer, ranking schema.TownshipRanking, cfg *contract.Config) error {
	fmtFloat, fmtRate := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, ranking); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVResultsForTownship(w, ranking, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.MarkdownOut:
		return writeMarkdownTable(w, townshipHeaders, townshipRows(ranking, cfg, contract.GetPlainRank, fmtFloat, fmtRate))
	default:
		if err := writeTownshipTable(w, ranking, cfg, fmtFloat, fmtRate); err != nil {
			return fmt.Errorf("error writing township table: %w", err)
		}
	}
	return nil
}

func visibleEntries(ranking schema.TownshipRanking, cfg *contract.Config) []schema.RankingEntry {
	if cfg.ResultLimit > 0 && len(ranking.Entries) > cfg.ResultLimit {
		return ranking.Entries[:cfg.ResultLimit]
	}
	return ranking.Entries
}

func townshipRows(ranking schema.TownshipRanking, cfg *contract.Config, rank func(int) string, fmtFloat, fmtRate func(float64) string) [][]string {
	entries := visibleEntries(ranking, cfg)
	data := make([][]string, 0, len(entries))
	for _, e := range entries {
		data = append(data, []string{
			e.Name,
			string(e.Kind),
			fmtFloat(e.Avg),
			fmtRate(e.ExcellentRate),
			fmtRate(e.PassRate),
			rank(e.RankAvg),
			rank(e.RankExc),
			rank(e.RankPass),
		})
	}
	return data
}

func writeTownshipTable(w io.Writer, ranking schema.TownshipRanking, cfg *contract.Config, fmtFloat, fmtRate func(float64) string) error {
	total := len(ranking.Entries)
	rank := func(r int) string { return rankCell(cfg, r, total) }
	if _, err := fmt.Fprintf(w, "Township ranking: %s (%s teachers and peer schools)\n", ranking.Subject, ranking.School); err != nil {
		return err
	}
	if err := writeTable(w, townshipHeaders, townshipRows(ranking, cfg, rank, fmtFloat, fmtRate)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d of %d entries\n", len(visibleEntries(ranking, cfg)), total)
	return err
}

func writeCSVResultsForTownship(w io.Writer, ranking schema.TownshipRanking, fmtFloat func(float64) string) error {
	header := []string{"subject", "name", "kind", "avg", "excellent_rate", "pass_rate", "rank_avg", "rank_exc", "rank_pass"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, e := range ranking.Entries {
			rec := []string{
				ranking.Subject,
				e.Name,
				string(e.Kind),
				fmtFloat(e.Avg),
				fmtFloat(e.ExcellentRate),
				fmtFloat(e.PassRate),
				strconv.Itoa(e.RankAvg),
				strconv.Itoa(e.RankExc),
				strconv.Itoa(e.RankPass),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
