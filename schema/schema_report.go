package schema

// ValueKind tells writers how to format a comparison value.
type ValueKind string

// Kinds of comparison values.
const (
	ScoreValue ValueKind = "score"
	RateValue  ValueKind = "rate"
	RankValue  ValueKind = "rank"
	CountValue ValueKind = "count"
)

// ExamAnalysis bundles every derived table of one exam for one target school.
type ExamAnalysis struct {
	Tag      string          `json:"tag"`      // Exam label such as 期中 or 期末
	Metrics  SchoolMetrics   `json:"metrics"`  // All schools
	Teachers TeacherAnalysis `json:"teachers"` // Target school only
	Township TownshipRanking `json:"township"` // Target subject only
}

// ComparisonRow is one metric before and after.
type ComparisonRow struct {
	Metric string    `json:"metric"`
	Kind   ValueKind `json:"kind"`
	Before float64   `json:"before"`
	After  float64   `json:"after"`
	Delta  float64   `json:"delta"` // After - Before (for ranks, negative means better)
}

// ComparisonSection groups rows under a heading.
type ComparisonSection struct {
	Title string          `json:"title"`
	Rows  []ComparisonRow `json:"rows"`
}

// ValidationCheck is a named consistency check run on a comparison.
type ValidationCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// ExamComparison is the report comparing two exams for a school, teacher and subject.
type ExamComparison struct {
	School        string              `json:"school"`
	Teacher       string              `json:"teacher"`
	Subject       string              `json:"subject"`
	BeforeTag     string              `json:"before_tag"`
	AfterTag      string              `json:"after_tag"`
	BeforeClasses string              `json:"before_classes"`
	AfterClasses  string              `json:"after_classes"`
	Sections      []ComparisonSection `json:"sections"`
	Checks        []ValidationCheck   `json:"checks"`
}

// AllPassed reports whether every validation check passed.
func (c ExamComparison) AllPassed() bool {
	for _, check := range c.Checks {
		if !check.Passed {
			return false
		}
	}
	return true
}
