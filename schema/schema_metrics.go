package schema

import (
	"slices"
	"strings"
)

// SubjectMetric is a school's statistics for one subject.
// A zero rank means the school was not ranked for that subject (no scores).
type SubjectMetric struct {
	Count    int     `json:"count"`
	Avg      float64 `json:"avg"`
	ExcRate  float64 `json:"excRate"`
	PassRate float64 `json:"passRate"`
	RankAvg  int     `json:"rankAvg,omitempty"`
	RankExc  int     `json:"rankExc,omitempty"`
	RankPass int     `json:"rankPass,omitempty"`
}

// TotalMetric is the total pseudo-subject with the two-rates-one-score composite.
type TotalMetric struct {
	SubjectMetric
	Score2Rate float64 `json:"score2Rate"`
	Rank2Rate  int     `json:"rank2Rate,omitempty"`
}

// SchoolMetric holds every subject metric of a single school.
type SchoolMetric struct {
	School   string                   `json:"school"`
	Subjects map[string]SubjectMetric `json:"subjects"`
	Total    TotalMetric              `json:"total"`
}

// SchoolMetrics is the aggregator output. Schools keep first-encounter order.
type SchoolMetrics struct {
	Subjects []string         `json:"subjects"`
	Total    SubjectThreshold `json:"totalThreshold"`
	Schools  []SchoolMetric   `json:"schools"`
}

// Get returns the metrics of a school.
func (m SchoolMetrics) Get(school string) (SchoolMetric, bool) {
	for _, sm := range m.Schools {
		if sm.School == school {
			return sm, true
		}
	}
	return SchoolMetric{}, false
}

// GradeBaseline is the school-wide reference for one subject in teacher analysis.
type GradeBaseline struct {
	Count     int     `json:"count"`
	Avg       float64 `json:"avg"`
	Excellent float64 `json:"excellent"`
	Pass      float64 `json:"pass"`
	Low       float64 `json:"low"`
}

// TeacherStat is one teacher's pooled statistics for one subject.
type TeacherStat struct {
	Teacher       string   `json:"teacher"`
	Subject       string   `json:"subject"`
	Classes       []string `json:"classes"`
	StudentCount  int      `json:"studentCount"`
	Avg           float64  `json:"avg"`
	Contribution  float64  `json:"contribution"`
	ExcellentRate float64  `json:"excellentRate"`
	PassRate      float64  `json:"passRate"`
	LowRate       float64  `json:"lowRate"`
	FinalScore    float64  `json:"finalScore"`
}

// ClassList returns the credited classes joined by commas.
func (t TeacherStat) ClassList() string {
	return strings.Join(t.Classes, ",")
}

// TeacherAnalysis is the analyzer output for a single target school.
type TeacherAnalysis struct {
	School    string                   `json:"school"`
	Subjects  []string                 `json:"subjects"`
	Baselines map[string]GradeBaseline `json:"baselines"`
	Stats     []TeacherStat            `json:"stats"`
	Skipped   []AssignmentKey          `json:"skipped,omitempty"`
}

// Find returns the statistics of a teacher for a subject.
func (a TeacherAnalysis) Find(teacher, subject string) (TeacherStat, bool) {
	for _, st := range a.Stats {
		if st.Teacher == teacher && st.Subject == subject {
			return st, true
		}
	}
	return TeacherStat{}, false
}

// Teachers returns the distinct teacher names in output order.
func (a TeacherAnalysis) Teachers() []string {
	var names []string
	for _, st := range a.Stats {
		if !slices.Contains(names, st.Teacher) {
			names = append(names, st.Teacher)
		}
	}
	return names
}

// RankingEntry is a teacher or a peer school in a township ranking.
type RankingEntry struct {
	Name          string     `json:"name"`
	Kind          EntityKind `json:"kind"`
	Avg           float64    `json:"avg"`
	ExcellentRate float64    `json:"excellentRate"`
	PassRate      float64    `json:"passRate"`
	RankAvg       int        `json:"rankAvg"`
	RankExc       int        `json:"rankExc"`
	RankPass      int        `json:"rankPass"`
}

// TownshipRanking is the merged ranking of one subject.
type TownshipRanking struct {
	Subject string         `json:"subject"`
	School  string         `json:"school"`
	Entries []RankingEntry `json:"entries"`
}

// Find returns the entry with the given name.
func (r TownshipRanking) Find(name string) (RankingEntry, bool) {
	for _, e := range r.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return RankingEntry{}, false
}
