// Package core has core logic for aggregation, teacher analysis and ranking.
package core

import (
	"strings"

	"github.com/huangsam/examlens/core/algo"
	"github.com/huangsam/examlens/schema"
)

// Weights of the two-rates-one-score composite.
const (
	avgWeight  = 60.0
	excWeight  = 70.0
	passWeight = 70.0
)

// tally accumulates scores against one pair of cutoffs.
type tally struct {
	count int
	sum   float64
	exc   int
	pass  int
}

func (t *tally) add(v float64, th schema.SubjectThreshold) {
	t.count++
	t.sum += v
	if v >= th.Excellent {
		t.exc++
	}
	if v >= th.Pass {
		t.pass++
	}
}

// metric turns a tally into rates. A zero count yields a zero metric.
func (t tally) metric() schema.SubjectMetric {
	if t.count == 0 {
		return schema.SubjectMetric{}
	}
	n := float64(t.count)
	return schema.SubjectMetric{
		Count:    t.count,
		Avg:      t.sum / n,
		ExcRate:  float64(t.exc) / n,
		PassRate: float64(t.pass) / n,
	}
}

// AggregateSchools groups students by school in first-encounter order and computes
// per-subject and total metrics plus the composite score and all rankings.
func AggregateSchools(students []schema.StudentRecord, subjects []string, thresholds schema.ThresholdTable) schema.SchoolMetrics {
	if len(subjects) == 0 {
		subjects = schema.DefaultSubjects
	}
	totalTh := thresholds.Total(subjects)

	schools := schema.SchoolsOf(students)
	index := make(map[string]int, len(schools))
	for i, s := range schools {
		index[s] = i
	}

	perSubject := make([]map[string]*tally, len(schools))
	totals := make([]tally, len(schools))
	for i := range schools {
		perSubject[i] = make(map[string]*tally, len(subjects))
		for _, sub := range subjects {
			perSubject[i][sub] = &tally{}
		}
	}

	for _, st := range students {
		i := index[strings.TrimSpace(st.School)]
		for _, sub := range subjects {
			if v, ok := st.Score(sub); ok {
				perSubject[i][sub].add(v, thresholds.For(sub))
			}
		}
		if sum, ok := st.Total(subjects); ok {
			totals[i].add(sum, totalTh)
		}
	}

	out := schema.SchoolMetrics{
		Subjects: subjects,
		Total:    totalTh,
		Schools:  make([]schema.SchoolMetric, len(schools)),
	}
	for i, school := range schools {
		sm := schema.SchoolMetric{
			School:   school,
			Subjects: make(map[string]schema.SubjectMetric, len(subjects)),
			Total:    schema.TotalMetric{SubjectMetric: totals[i].metric()},
		}
		for _, sub := range subjects {
			sm.Subjects[sub] = perSubject[i][sub].metric()
		}
		out.Schools[i] = sm
	}

	scoreTotals(out.Schools)
	rankSubjects(out.Schools, subjects)
	return out
}

// scoreTotals fills score2Rate against the best school and ranks on it.
func scoreTotals(schools []schema.SchoolMetric) {
	var maxAvg, maxExc, maxPass float64
	for _, s := range schools {
		maxAvg = max(maxAvg, s.Total.Avg)
		maxExc = max(maxExc, s.Total.ExcRate)
		maxPass = max(maxPass, s.Total.PassRate)
	}
	for i := range schools {
		t := &schools[i].Total
		t.Score2Rate = avgWeight*ratio(t.Avg, maxAvg) +
			excWeight*ratio(t.ExcRate, maxExc) +
			passWeight*ratio(t.PassRate, maxPass)
	}

	hasTotal := func(s schema.SchoolMetric) bool { return s.Total.Count > 0 }
	rank2 := algo.RankDesc(schools, func(s schema.SchoolMetric) float64 { return s.Total.Score2Rate }, hasTotal)
	rankAvg := algo.RankDesc(schools, func(s schema.SchoolMetric) float64 { return s.Total.Avg }, hasTotal)
	rankExc := algo.RankDesc(schools, func(s schema.SchoolMetric) float64 { return s.Total.ExcRate }, hasTotal)
	rankPass := algo.RankDesc(schools, func(s schema.SchoolMetric) float64 { return s.Total.PassRate }, hasTotal)
	for i := range schools {
		schools[i].Total.Rank2Rate = rank2[i]
		schools[i].Total.RankAvg = rankAvg[i]
		schools[i].Total.RankExc = rankExc[i]
		schools[i].Total.RankPass = rankPass[i]
	}
}

// rankSubjects assigns the per-subject rankings. Schools with no scores stay unranked.
func rankSubjects(schools []schema.SchoolMetric, subjects []string) {
	for _, sub := range subjects {
		has := func(s schema.SchoolMetric) bool { return s.Subjects[sub].Count > 0 }
		rankAvg := algo.RankDesc(schools, func(s schema.SchoolMetric) float64 { return s.Subjects[sub].Avg }, has)
		rankExc := algo.RankDesc(schools, func(s schema.SchoolMetric) float64 { return s.Subjects[sub].ExcRate }, has)
		rankPass := algo.RankDesc(schools, func(s schema.SchoolMetric) float64 { return s.Subjects[sub].PassRate }, has)
		for i := range schools {
			m := schools[i].Subjects[sub]
			m.RankAvg, m.RankExc, m.RankPass = rankAvg[i], rankExc[i], rankPass[i]
			schools[i].Subjects[sub] = m
		}
	}
}

// ratio divides and substitutes 0 for a zero denominator.
func ratio(v, denom float64) float64 {
	if denom == 0 {
		return 0
	}
	return v / denom
}
