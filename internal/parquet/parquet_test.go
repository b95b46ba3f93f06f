package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/examlens/core"
	"github.com/huangsam/examlens/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportedAt = time.Date(2025, 11, 3, 8, 30, 0, 0, time.UTC)

func readRows[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func demoAnalysis(t *testing.T) schema.ExamAnalysis {
	t.Helper()
	students, err := core.DemoExam(core.MidtermTag)
	require.NoError(t, err)
	return core.AnalyzeExam(core.ExamInput{
		Tag:         core.MidtermTag,
		Students:    students,
		Assignments: core.DemoAssignments(),
		School:      core.DemoSchool,
		Subject:     schema.SubjectMath,
		Thresholds:  schema.DefaultThresholds(),
	})
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{"school metrics", new(SchoolMetricRow), []string{"exam_tag", "exported_at", "school", "subject", "count", "avg", "exc_rate", "pass_rate", "rank_avg", "rank_exc", "rank_pass", "score_2rate", "rank_2rate"}},
		{"teacher stats", new(TeacherStatRow), []string{"exam_tag", "school", "teacher", "subject", "classes", "student_count", "contribution", "final_score"}},
		{"rankings", new(RankingRow), []string{"exam_tag", "subject", "name", "kind", "rank_avg", "rank_exc", "rank_pass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.model)
			for _, col := range tt.columns {
				_, ok := s.Lookup(col)
				assert.True(t, ok, "column %s should exist", col)
			}
		})
	}
}

func TestConvertSchoolMetrics(t *testing.T) {
	metrics := schema.SchoolMetrics{
		Subjects: []string{"数学"},
		Schools: []schema.SchoolMetric{{
			School:   "实验中学",
			Subjects: map[string]schema.SubjectMetric{"数学": {}},
			Total:    schema.TotalMetric{SubjectMetric: schema.SubjectMetric{Count: 1, Avg: 60, RankAvg: 1}, Score2Rate: 30},
		}},
	}
	rows := ConvertSchoolMetrics("期中", exportedAt, metrics)
	require.Len(t, rows, 2)

	assert.Equal(t, "数学", rows[0].Subject)
	assert.Nil(t, rows[0].RankAvg, "unranked subject has null ranks")
	assert.Nil(t, rows[0].Score2Rate)

	assert.Equal(t, schema.TotalSubject, rows[1].Subject)
	require.NotNil(t, rows[1].RankAvg)
	assert.Equal(t, int32(1), *rows[1].RankAvg)
	require.NotNil(t, rows[1].Score2Rate)
	assert.InDelta(t, 30.0, *rows[1].Score2Rate, 1e-9)
	assert.Nil(t, rows[1].Rank2Rate)
}

func TestExportExam(t *testing.T) {
	analysis := demoAnalysis(t)
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := ExportExam(dir, exportedAt, analysis)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, SchoolMetricsFile),
		filepath.Join(dir, TeacherStatsFile),
		filepath.Join(dir, TownshipFile),
	}, paths)

	schools := readRows[SchoolMetricRow](t, paths[0])
	assert.Len(t, schools, len(analysis.Metrics.Schools)*(len(analysis.Metrics.Subjects)+1))
	assert.Equal(t, core.MidtermTag, schools[0].ExamTag)
	assert.True(t, exportedAt.Equal(schools[0].ExportedAt))

	teachers := readRows[TeacherStatRow](t, paths[1])
	require.Len(t, teachers, len(analysis.Teachers.Stats))
	for i, st := range analysis.Teachers.Stats {
		assert.Equal(t, st.Teacher, teachers[i].Teacher)
		assert.Equal(t, int32(st.StudentCount), teachers[i].StudentCount)
		assert.InDelta(t, st.FinalScore, teachers[i].FinalScore, 1e-9)
	}

	rankings := readRows[RankingRow](t, paths[2])
	require.Len(t, rankings, len(analysis.Township.Entries))
	for i, e := range analysis.Township.Entries {
		assert.Equal(t, e.Name, rankings[i].Name)
		assert.Equal(t, string(e.Kind), rankings[i].Kind)
	}
}

func TestExportExamWithoutTeachers(t *testing.T) {
	analysis := demoAnalysis(t)
	analysis.Teachers = schema.TeacherAnalysis{}

	paths, err := ExportExam(t.TempDir(), exportedAt, analysis)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestWriteEmptyData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteRankingsParquet([]RankingRow{}, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.Empty(t, readRows[RankingRow](t, path))
}

func TestWriteInvalidPath(t *testing.T) {
	err := WriteSchoolMetricsParquet(nil, filepath.Join(t.TempDir(), "missing", "x.parquet"))
	assert.ErrorContains(t, err, "failed to create output file")
}
