package core

import (
	"testing"

	"github.com/huangsam/examlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoAnalysis(t *testing.T, tag string) schema.ExamAnalysis {
	t.Helper()
	students, err := DemoExam(tag)
	require.NoError(t, err)
	return AnalyzeExam(ExamInput{
		Tag:         tag,
		Students:    students,
		Assignments: DemoAssignments(),
		School:      DemoSchool,
		Subject:     schema.SubjectMath,
		Thresholds:  schema.DefaultThresholds(),
	})
}

// TestTownshipRanking tests merging teachers with peer schools.
func TestTownshipRanking(t *testing.T) {
	tests := []struct {
		tag      string
		expected map[string][3]int
	}{
		{
			tag: MidtermTag,
			expected: map[string][3]int{
				"张老师":  {2, 1, 1},
				"李老师":  {3, 2, 3},
				"城关中学": {1, 3, 2},
				"广益中学": {4, 4, 4},
			},
		},
		{
			tag: FinalTag,
			expected: map[string][3]int{
				"张老师":  {1, 1, 1},
				"李老师":  {3, 3, 2},
				"城关中学": {2, 2, 3},
				"广益中学": {4, 4, 4},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			ranking := demoAnalysis(t, tt.tag).Township
			require.Len(t, ranking.Entries, 4)

			_, ok := ranking.Find(DemoSchool)
			assert.False(t, ok, "own school must not be a peer")

			for name, ranks := range tt.expected {
				e, ok := ranking.Find(name)
				require.True(t, ok, name)
				assert.Equal(t, ranks, [3]int{e.RankAvg, e.RankExc, e.RankPass}, name)
			}
		})
	}
}

// TestTownshipRankingKinds checks entry kinds and ordering of teachers before schools.
func TestTownshipRankingKinds(t *testing.T) {
	ranking := demoAnalysis(t, MidtermTag).Township
	kinds := make([]schema.EntityKind, 0, len(ranking.Entries))
	for _, e := range ranking.Entries {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []schema.EntityKind{schema.TeacherKind, schema.TeacherKind, schema.SchoolKind, schema.SchoolKind}, kinds)
}

// TestTownshipRankingSkipsEmptySchools checks that schools without scores are not ranked.
func TestTownshipRankingSkipsEmptySchools(t *testing.T) {
	students := []schema.StudentRecord{
		mathOnly("a", "701", "X", 80),
		mathOnly("b", "701", "Y", 70),
		student("c", "701", "Z", map[string]float64{schema.SubjectChinese: 90}),
	}
	metrics := AggregateSchools(students, schema.DefaultSubjects, schema.DefaultThresholds())
	teachers := AnalyzeTeachers(students, schema.AssignmentTable{{ClassID: "701", SubjectID: schema.SubjectMath}: "T1"}, "X", schema.DefaultSubjects, schema.DefaultThresholds())

	ranking := TownshipRanking(teachers, metrics, schema.SubjectMath)
	require.Len(t, ranking.Entries, 2)
	assert.Equal(t, "T1", ranking.Entries[0].Name)
	assert.Equal(t, "Y", ranking.Entries[1].Name)
}
