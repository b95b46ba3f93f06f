package core

import (
	"math"
	"testing"

	"github.com/huangsam/examlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func student(name, class, school string, scores map[string]float64) schema.StudentRecord {
	return schema.StudentRecord{Name: name, Class: class, School: school, Scores: scores}
}

func scores3(chinese, math, english float64) map[string]float64 {
	return map[string]float64{
		schema.SubjectChinese: chinese,
		schema.SubjectMath:    math,
		schema.SubjectEnglish: english,
	}
}

// TestAggregateSchools tests per-subject metrics, the composite score and ranks.
func TestAggregateSchools(t *testing.T) {
	students := []schema.StudentRecord{
		student("s1", "701", "A", scores3(95, 80, 70)),
		student("s2", "701", "A", scores3(60, 90, 90)),
		student("s3", "701", "B", scores3(85, 85, 85)),
	}

	out := AggregateSchools(students, schema.DefaultSubjects, schema.DefaultThresholds())
	require.Len(t, out.Schools, 2)
	assert.Equal(t, "A", out.Schools[0].School)
	assert.Equal(t, "B", out.Schools[1].School)
	assert.Equal(t, schema.SubjectThreshold{Excellent: 270, Pass: 216}, out.Total)

	a, ok := out.Get("A")
	require.True(t, ok)
	b, ok := out.Get("B")
	require.True(t, ok)

	t.Run("subject metrics", func(t *testing.T) {
		chinese := a.Subjects[schema.SubjectChinese]
		assert.Equal(t, 2, chinese.Count)
		assert.InDelta(t, 77.5, chinese.Avg, 1e-9)
		assert.InDelta(t, 0.5, chinese.ExcRate, 1e-9)
		assert.InDelta(t, 0.5, chinese.PassRate, 1e-9)
	})

	t.Run("subject ranks", func(t *testing.T) {
		assert.Equal(t, 2, a.Subjects[schema.SubjectChinese].RankAvg)
		assert.Equal(t, 1, b.Subjects[schema.SubjectChinese].RankAvg)
		assert.Equal(t, 1, a.Subjects[schema.SubjectChinese].RankExc)
		assert.Equal(t, 2, b.Subjects[schema.SubjectChinese].RankExc)
		assert.Equal(t, 2, a.Subjects[schema.SubjectChinese].RankPass)
		assert.Equal(t, 1, b.Subjects[schema.SubjectChinese].RankPass)
	})

	t.Run("total and composite", func(t *testing.T) {
		assert.InDelta(t, 242.5, a.Total.Avg, 1e-9)
		assert.InDelta(t, 255.0, b.Total.Avg, 1e-9)
		assert.InDelta(t, 60*242.5/255+70, a.Total.Score2Rate, 1e-9)
		assert.InDelta(t, 130.0, b.Total.Score2Rate, 1e-9)
		assert.Equal(t, 2, a.Total.Rank2Rate)
		assert.Equal(t, 1, b.Total.Rank2Rate)
	})
}

// TestAggregateSchoolsRates checks that every rate stays within [0,1].
func TestAggregateSchoolsRates(t *testing.T) {
	students, err := DemoExam(FinalTag)
	require.NoError(t, err)

	out := AggregateSchools(students, schema.DefaultSubjects, schema.DefaultThresholds())
	for _, sm := range out.Schools {
		for sub, m := range sm.Subjects {
			assert.True(t, m.ExcRate >= 0 && m.ExcRate <= 1, "%s/%s excRate", sm.School, sub)
			assert.True(t, m.PassRate >= 0 && m.PassRate <= 1, "%s/%s passRate", sm.School, sub)
		}
		assert.True(t, sm.Total.ExcRate >= 0 && sm.Total.ExcRate <= 1)
		assert.True(t, sm.Total.PassRate >= 0 && sm.Total.PassRate <= 1)
	}
}

// TestAggregateSchoolsTies checks that ties keep first-encounter order on every run.
func TestAggregateSchoolsTies(t *testing.T) {
	students := []schema.StudentRecord{
		student("x", "1", "Z", scores3(80, 80, 80)),
		student("y", "1", "Y", scores3(80, 80, 80)),
		student("z", "1", "X", scores3(80, 80, 80)),
	}

	first := AggregateSchools(students, schema.DefaultSubjects, schema.DefaultThresholds())
	for range 5 {
		again := AggregateSchools(students, schema.DefaultSubjects, schema.DefaultThresholds())
		assert.Equal(t, first, again)
	}
	for i, sm := range first.Schools {
		assert.Equal(t, i+1, sm.Total.Rank2Rate)
		assert.Equal(t, i+1, sm.Subjects[schema.SubjectMath].RankAvg)
	}
}

// TestAggregateSchoolsZeroCount checks that empty groups are unranked and never NaN.
func TestAggregateSchoolsZeroCount(t *testing.T) {
	students := []schema.StudentRecord{
		student("a", "1", "A", scores3(80, 80, 80)),
		student("b", "1", "B", map[string]float64{schema.SubjectChinese: 70}),
		student("c", "1", "C", scores3(90, 90, math.NaN())),
	}

	out := AggregateSchools(students, schema.DefaultSubjects, schema.DefaultThresholds())

	b, _ := out.Get("B")
	assert.Equal(t, 0, b.Subjects[schema.SubjectMath].Count)
	assert.Equal(t, 0, b.Subjects[schema.SubjectMath].RankAvg)
	assert.Equal(t, 0, b.Total.Count)
	assert.Equal(t, 0, b.Total.Rank2Rate)
	assert.Equal(t, 3, b.Subjects[schema.SubjectChinese].RankAvg)

	c, _ := out.Get("C")
	assert.Equal(t, 0, c.Subjects[schema.SubjectEnglish].Count)
	assert.Equal(t, 0, c.Total.Count)

	for _, sm := range out.Schools {
		assert.False(t, math.IsNaN(sm.Total.Score2Rate))
		for _, m := range sm.Subjects {
			assert.False(t, math.IsNaN(m.Avg))
		}
	}

	a, _ := out.Get("A")
	assert.Equal(t, 1, a.Total.Rank2Rate)
	assert.Equal(t, 2, a.Subjects[schema.SubjectMath].RankAvg)
	assert.Equal(t, 1, c.Subjects[schema.SubjectMath].RankAvg)
	assert.Equal(t, 2, c.Subjects[schema.SubjectMath].RankPass)
}

// TestAggregateSchoolsTotalOverride checks the configured total cutoffs win over the sum.
func TestAggregateSchoolsTotalOverride(t *testing.T) {
	thresholds := schema.DefaultThresholds()
	thresholds[schema.TotalSubject] = schema.SubjectThreshold{Excellent: 240, Pass: 200}

	students := []schema.StudentRecord{student("a", "1", "A", scores3(80, 80, 85))}
	out := AggregateSchools(students, schema.DefaultSubjects, thresholds)

	a, _ := out.Get("A")
	assert.Equal(t, 1.0, a.Total.ExcRate)
	assert.Equal(t, 1.0, a.Total.PassRate)
}
