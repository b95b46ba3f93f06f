package core

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/huangsam/examlens/schema"
	"golang.org/x/sync/errgroup"
)

// formulaTolerance bounds the difference allowed when recomputing a final score.
const formulaTolerance = 1e-9

// ErrTeacherNotFound is returned when a compared teacher has no statistics for the subject.
var ErrTeacherNotFound = errors.New("teacher not found")

// ExamInput is everything needed to analyse one exam for one target school.
type ExamInput struct {
	Tag         string
	Students    []schema.StudentRecord
	Assignments schema.AssignmentTable
	School      string
	Subject     string
	Subjects    []string
	Thresholds  schema.ThresholdTable
}

// AnalyzeExam runs the aggregator, the teacher analyzer and the township merger on one exam.
func AnalyzeExam(in ExamInput) schema.ExamAnalysis {
	subjects := in.Subjects
	if len(subjects) == 0 {
		subjects = schema.DefaultSubjects
	}
	metrics := AggregateSchools(in.Students, subjects, in.Thresholds)
	teachers := AnalyzeTeachers(in.Students, in.Assignments, in.School, subjects, in.Thresholds)
	return schema.ExamAnalysis{
		Tag:      in.Tag,
		Metrics:  metrics,
		Teachers: teachers,
		Township: TownshipRanking(teachers, metrics, in.Subject),
	}
}

// CompareOptions selects what a comparison report focuses on.
type CompareOptions struct {
	Teacher string
	// ExpectedCount is the student count both exams must report for the teacher. Zero skips it.
	ExpectedCount int
}

// CompareExams analyses two exams concurrently and builds the before/after report
// for the target school, teacher and subject.
func CompareExams(ctx context.Context, before, after ExamInput, opts CompareOptions) (schema.ExamComparison, error) {
	var beforeRes, afterRes schema.ExamAnalysis
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		beforeRes = AnalyzeExam(before)
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		afterRes = AnalyzeExam(after)
		return nil
	})
	if err := g.Wait(); err != nil {
		return schema.ExamComparison{}, err
	}
	return BuildComparison(beforeRes, afterRes, opts)
}

// BuildComparison builds the report from two finished analyses.
func BuildComparison(before, after schema.ExamAnalysis, opts CompareOptions) (schema.ExamComparison, error) {
	school := before.Teachers.School
	subject := before.Township.Subject

	bSchool, ok := before.Metrics.Get(school)
	if !ok {
		return schema.ExamComparison{}, fmt.Errorf("school %q not found in %s", school, before.Tag)
	}
	aSchool, ok := after.Metrics.Get(school)
	if !ok {
		return schema.ExamComparison{}, fmt.Errorf("school %q not found in %s", school, after.Tag)
	}
	bTeacher, ok := before.Teachers.Find(opts.Teacher, subject)
	if !ok {
		return schema.ExamComparison{}, fmt.Errorf("%w: %s/%s in %s", ErrTeacherNotFound, opts.Teacher, subject, before.Tag)
	}
	aTeacher, ok := after.Teachers.Find(opts.Teacher, subject)
	if !ok {
		return schema.ExamComparison{}, fmt.Errorf("%w: %s/%s in %s", ErrTeacherNotFound, opts.Teacher, subject, after.Tag)
	}
	bRank, _ := before.Township.Find(opts.Teacher)
	aRank, _ := after.Township.Find(opts.Teacher)

	bSub, aSub := bSchool.Subjects[subject], aSchool.Subjects[subject]
	bTot, aTot := bSchool.Total, aSchool.Total

	report := schema.ExamComparison{
		School:        school,
		Teacher:       opts.Teacher,
		Subject:       subject,
		BeforeTag:     before.Tag,
		AfterTag:      after.Tag,
		BeforeClasses: bTeacher.ClassList(),
		AfterClasses:  aTeacher.ClassList(),
		Sections: []schema.ComparisonSection{
			{
				Title: "School total",
				Rows: []schema.ComparisonRow{
					row("Average", schema.ScoreValue, bTot.Avg, aTot.Avg),
					row("Excellent rate", schema.RateValue, bTot.ExcRate, aTot.ExcRate),
					row("Pass rate", schema.RateValue, bTot.PassRate, aTot.PassRate),
					row("Two-rate score", schema.ScoreValue, bTot.Score2Rate, aTot.Score2Rate),
					row("School rank", schema.RankValue, float64(bTot.Rank2Rate), float64(aTot.Rank2Rate)),
				},
			},
			{
				Title: "Subject " + subject,
				Rows: []schema.ComparisonRow{
					row("Average", schema.ScoreValue, bSub.Avg, aSub.Avg),
					row("Excellent rate", schema.RateValue, bSub.ExcRate, aSub.ExcRate),
					row("Pass rate", schema.RateValue, bSub.PassRate, aSub.PassRate),
					row("Average rank", schema.RankValue, float64(bSub.RankAvg), float64(aSub.RankAvg)),
				},
			},
			{
				Title: "Teacher " + opts.Teacher,
				Rows: []schema.ComparisonRow{
					row("Students", schema.CountValue, float64(bTeacher.StudentCount), float64(aTeacher.StudentCount)),
					row("Average", schema.ScoreValue, bTeacher.Avg, aTeacher.Avg),
					row("Contribution", schema.ScoreValue, bTeacher.Contribution, aTeacher.Contribution),
					row("Excellent rate", schema.RateValue, bTeacher.ExcellentRate, aTeacher.ExcellentRate),
					row("Pass rate", schema.RateValue, bTeacher.PassRate, aTeacher.PassRate),
					row("Low rate", schema.RateValue, bTeacher.LowRate, aTeacher.LowRate),
					row("Final score", schema.ScoreValue, bTeacher.FinalScore, aTeacher.FinalScore),
				},
			},
			{
				Title: "Township " + subject,
				Rows: []schema.ComparisonRow{
					row("Average rank", schema.RankValue, float64(bRank.RankAvg), float64(aRank.RankAvg)),
					row("Excellent rank", schema.RankValue, float64(bRank.RankExc), float64(aRank.RankExc)),
					row("Pass rank", schema.RankValue, float64(bRank.RankPass), float64(aRank.RankPass)),
				},
			},
		},
	}
	report.Checks = validateComparison(bTeacher, aTeacher, bTot, aTot, opts.ExpectedCount)
	return report, nil
}

func row(metric string, kind schema.ValueKind, before, after float64) schema.ComparisonRow {
	return schema.ComparisonRow{Metric: metric, Kind: kind, Before: before, After: after, Delta: after - before}
}

// validateComparison runs the report's consistency checks.
func validateComparison(before, after schema.TeacherStat, bTot, aTot schema.TotalMetric, expected int) []schema.ValidationCheck {
	inRange := true
	for _, v := range []float64{before.ExcellentRate, before.PassRate, before.LowRate, after.ExcellentRate, after.PassRate, after.LowRate} {
		if v < 0 || v > 1 {
			inRange = false
		}
	}

	formulaOK := func(st schema.TeacherStat) bool {
		return math.Abs(st.FinalScore-FinalScore(st.Contribution, st.ExcellentRate, st.PassRate, st.LowRate)) < formulaTolerance
	}

	countOK := before.StudentCount == after.StudentCount
	countDetail := fmt.Sprintf("%d vs %d", before.StudentCount, after.StudentCount)
	if expected > 0 {
		countOK = countOK && after.StudentCount == expected
		countDetail += fmt.Sprintf(", expected %d", expected)
	}

	return []schema.ValidationCheck{
		{Name: "Rates within [0,1]", Passed: inRange, Detail: "excellent, pass and low rates of both exams"},
		{Name: "Final score recomputation", Passed: formulaOK(before) && formulaOK(after), Detail: fmt.Sprintf("tolerance %g", formulaTolerance)},
		{Name: "Student count consistency", Passed: countOK, Detail: countDetail},
		{Name: "Total average improved", Passed: aTot.Avg > bTot.Avg, Detail: fmt.Sprintf("%.2f -> %.2f", bTot.Avg, aTot.Avg)},
	}
}
