package keys

import (
	"testing"

	"github.com/huangsam/examlens/schema"
	"github.com/stretchr/testify/assert"
)

// TestExamKey tests snapshot key construction.
func TestExamKey(t *testing.T) {
	tests := []struct {
		name     string
		meta     schema.ExamMeta
		expected string
		ok       bool
	}{
		{
			name:     "default exam name",
			meta:     schema.ExamMeta{CohortID: "2023", Grade: "9", Year: "2025", Term: "上学期", ExamType: "期中"},
			expected: "2023级_9年级_2025_上学期_期中_标准考试",
			ok:       true,
		},
		{
			name:     "unknown grade",
			meta:     schema.ExamMeta{CohortID: "2023", Year: "2025", Term: "下学期", ExamType: "期末", ExamName: "联考"},
			expected: "2023级_未知年级_2025_下学期_期末_联考",
			ok:       true,
		},
		{
			name:     "strips whitespace and separators",
			meta:     schema.ExamMeta{CohortID: "2023", Grade: "9", Year: "2025", Term: "上 学期", ExamType: "期中", ExamName: "a/b\\c?d"},
			expected: "2023级_9年级_2025_上学期_期中_abcd",
			ok:       true,
		},
		{
			name: "missing cohort",
			meta: schema.ExamMeta{Grade: "9", Year: "2025", Term: "上学期", ExamType: "期中"},
		},
		{
			name: "missing exam type",
			meta: schema.ExamMeta{CohortID: "2023", Year: "2025", Term: "上学期", ExamType: " "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := ExamKey(tt.meta)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, key)
		})
	}
}

// TestBaseTerm tests grade segment stripping.
func TestBaseTerm(t *testing.T) {
	assert.Equal(t, "2025-2026_上学期", BaseTerm("2025-2026_上学期_9年级"))
	assert.Equal(t, "2025-2026_上学期", BaseTerm("2025-2026_上学期"))
	assert.Equal(t, "2025-2026_上学期_extra", BaseTerm("2025-2026_上学期_extra"))
	assert.Equal(t, "", BaseTerm(""))
}

// TestTeacherKey tests assignment key construction and cohort inference.
func TestTeacherKey(t *testing.T) {
	t.Run("explicit cohort", func(t *testing.T) {
		res, ok := TeacherKey("23", "2025-2026_上学期_9年级")
		assert.True(t, ok)
		assert.Equal(t, "TEACHERS_23级_2025-2026_上学期", res.Key)
		assert.Equal(t, "2025-2026_上学期", res.BaseTerm)
		assert.False(t, res.CohortInferred)
	})

	t.Run("inferred cohort", func(t *testing.T) {
		res, ok := TeacherKey("", "2025-2026_上学期_9年级")
		assert.True(t, ok)
		assert.Equal(t, "2022", res.CohortID)
		assert.Equal(t, "TEACHERS_2022级_2025-2026_上学期", res.Key)
		assert.True(t, res.CohortInferred)
	})

	t.Run("no cohort and no grade", func(t *testing.T) {
		_, ok := TeacherKey("", "2025-2026_上学期")
		assert.False(t, ok)
	})

	t.Run("no term", func(t *testing.T) {
		_, ok := TeacherKey("23", "")
		assert.False(t, ok)
	})
}

// TestInferCohort tests the enrollment-year heuristic.
func TestInferCohort(t *testing.T) {
	c, ok := InferCohort("2024-2025_下学期_7年级")
	assert.True(t, ok)
	assert.Equal(t, "2023", c)

	_, ok = InferCohort("学年_上学期_9年级")
	assert.False(t, ok)
}

// TestPatterns tests the fallback LIKE patterns.
func TestPatterns(t *testing.T) {
	assert.Equal(t, "23", CohortDigits("23级"))
	assert.Equal(t, "TEACHERS_23级_2025-2026_上学期", CohortTermPattern("23", "2025-2026_上学期"))
	assert.Equal(t, "TEACHERS_23级_%", CohortPattern("23"))
	assert.Equal(t, "TEACHERS_%_2025-2026_上学期", TermPattern("2025-2026_上学期"))
	assert.Equal(t, "TEACHERS_%", AnyTeacherPattern())
}
