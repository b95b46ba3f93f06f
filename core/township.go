package core

import (
	"strings"

	"github.com/huangsam/examlens/core/algo"
	"github.com/huangsam/examlens/schema"
)

// TownshipRanking merges the target school's teachers for one subject with every
// other school's aggregate and ranks the combined list by avg, excellence and pass rate.
func TownshipRanking(teachers schema.TeacherAnalysis, metrics schema.SchoolMetrics, subject string) schema.TownshipRanking {
	out := schema.TownshipRanking{Subject: subject, School: teachers.School}

	for _, st := range teachers.Stats {
		if st.Subject != subject {
			continue
		}
		out.Entries = append(out.Entries, schema.RankingEntry{
			Name:          st.Teacher,
			Kind:          schema.TeacherKind,
			Avg:           st.Avg,
			ExcellentRate: st.ExcellentRate,
			PassRate:      st.PassRate,
		})
	}
	for _, sm := range metrics.Schools {
		if sm.School == strings.TrimSpace(teachers.School) {
			continue
		}
		m, ok := sm.Subjects[subject]
		if !ok || m.Count == 0 {
			continue
		}
		out.Entries = append(out.Entries, schema.RankingEntry{
			Name:          sm.School,
			Kind:          schema.SchoolKind,
			Avg:           m.Avg,
			ExcellentRate: m.ExcRate,
			PassRate:      m.PassRate,
		})
	}

	rankAvg := algo.RankDesc(out.Entries, func(e schema.RankingEntry) float64 { return e.Avg }, nil)
	rankExc := algo.RankDesc(out.Entries, func(e schema.RankingEntry) float64 { return e.ExcellentRate }, nil)
	rankPass := algo.RankDesc(out.Entries, func(e schema.RankingEntry) float64 { return e.PassRate }, nil)
	for i := range out.Entries {
		out.Entries[i].RankAvg = rankAvg[i]
		out.Entries[i].RankExc = rankExc[i]
		out.Entries[i].RankPass = rankPass[i]
	}
	return out
}
