package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/examlens/core/keys"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(out schema.OutputMode) *contract.Config {
	return &contract.Config{Output: out, Precision: 2, Width: 120}
}

func sampleMetrics() schema.SchoolMetrics {
	return schema.SchoolMetrics{
		Subjects: []string{"数学"},
		Total:    schema.SubjectThreshold{Excellent: 90, Pass: 72},
		Schools: []schema.SchoolMetric{
			{
				School:   "实验中学",
				Subjects: map[string]schema.SubjectMetric{"数学": {Count: 2, Avg: 85, ExcRate: 0.5, PassRate: 1, RankAvg: 1, RankExc: 1, RankPass: 1}},
				Total:    schema.TotalMetric{SubjectMetric: schema.SubjectMetric{Count: 2, Avg: 85, ExcRate: 0.5, PassRate: 1, RankAvg: 1, RankExc: 1, RankPass: 1}, Score2Rate: 91.25, Rank2Rate: 1},
			},
			{
				School:   "城南中学",
				Subjects: map[string]schema.SubjectMetric{"数学": {}},
				Total:    schema.TotalMetric{},
			},
		},
	}
}

func sampleTeachers() schema.TeacherAnalysis {
	return schema.TeacherAnalysis{
		School:    "实验中学",
		Subjects:  []string{"数学"},
		Baselines: map[string]schema.GradeBaseline{"数学": {Count: 40, Avg: 80}},
		Stats: []schema.TeacherStat{
			{Teacher: "张老师", Subject: "数学", Classes: []string{"701", "702"}, StudentCount: 40, Avg: 82.5, Contribution: 2.5, ExcellentRate: 0.25, PassRate: 0.9, LowRate: 0.05, FinalScore: 61.3},
		},
		Skipped: []schema.AssignmentKey{{ClassID: "703", SubjectID: "数学"}},
	}
}

func sampleRanking() schema.TownshipRanking {
	return schema.TownshipRanking{
		Subject: "数学",
		School:  "实验中学",
		Entries: []schema.RankingEntry{
			{Name: "张老师", Kind: schema.TeacherKind, Avg: 82.5, ExcellentRate: 0.25, PassRate: 0.9, RankAvg: 1, RankExc: 1, RankPass: 1},
			{Name: "城南中学", Kind: schema.SchoolKind, Avg: 70, ExcellentRate: 0.1, PassRate: 0.6, RankAvg: 2, RankExc: 2, RankPass: 2},
		},
	}
}

func sampleComparison() schema.ExamComparison {
	return schema.ExamComparison{
		School: "实验中学", Teacher: "张老师", Subject: "数学",
		BeforeTag: "期中", AfterTag: "期末",
		BeforeClasses: "701,702", AfterClasses: "701,702",
		Sections: []schema.ComparisonSection{
			{Title: "School total", Rows: []schema.ComparisonRow{
				{Metric: "Average", Kind: schema.ScoreValue, Before: 200, After: 210.5, Delta: 10.5},
				{Metric: "Pass rate", Kind: schema.RateValue, Before: 0.5, After: 0.55, Delta: 0.05},
				{Metric: "School rank", Kind: schema.RankValue, Before: 2, After: 1, Delta: -1},
			}},
		},
		Checks: []schema.ValidationCheck{
			{Name: "Rates within [0,1]", Passed: true, Detail: "ok"},
			{Name: "Total average improved", Passed: false, Detail: "200.00 -> 190.00"},
		},
	}
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteSchoolMetrics(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSchoolMetrics(&buf, sampleMetrics(), testConfig(schema.TextOut)))
		out := buf.String()
		assert.Contains(t, out, "实验中学")
		assert.Contains(t, out, "85.00")
		assert.Contains(t, out, "50.00%")
		assert.Contains(t, out, "91.25")
		assert.Contains(t, out, "2 schools, 1 subjects. Total cutoffs: excellent 90.00, pass 72.00")
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSchoolMetrics(&buf, sampleMetrics(), testConfig(schema.CSVOut)))
		records := readCSV(t, buf.String())
		require.Len(t, records, 5)
		assert.Equal(t, "school", records[0][0])
		assert.Equal(t, []string{"实验中学", "total", "2", "85.00", "0.50", "1.00", "1", "1", "1", "91.25", "1"}, records[2])
		assert.Equal(t, "0", records[3][6], "unranked school keeps rank 0")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSchoolMetrics(&buf, sampleMetrics(), testConfig(schema.JSONOut)))
		var decoded schema.SchoolMetrics
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, sampleMetrics(), decoded)
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSchoolMetrics(&buf, sampleMetrics(), testConfig(schema.MarkdownOut)))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 6)
		assert.True(t, strings.HasPrefix(lines[0], "| School | Subject |"))
		assert.True(t, strings.HasPrefix(lines[1], "| --- |"))
		assert.Contains(t, lines[4], "| 城南中学 | 数学 | 0 | 0.00 | 0.00% | 0.00% | - | - | - |")
	})
}

func TestWriteTeacherAnalysis(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTeacherAnalysis(&buf, sampleTeachers(), testConfig(schema.TextOut)))
	out := buf.String()
	assert.Contains(t, out, "School: 实验中学")
	assert.Contains(t, out, "701,702")
	assert.Contains(t, out, "61.30")
	assert.Contains(t, out, "Grade baselines: 数学 avg 80.00 (n=40)")
	assert.Contains(t, out, "Skipped assignments without students: 703_数学")

	buf.Reset()
	require.NoError(t, WriteTeacherAnalysis(&buf, sampleTeachers(), testConfig(schema.CSVOut)))
	records := readCSV(t, buf.String())
	require.Len(t, records, 2)
	assert.Equal(t, []string{"实验中学", "张老师", "数学", "701|702", "40", "82.50", "2.50", "0.25", "0.90", "0.05", "61.30"}, records[1])
}

func TestWriteTownshipRanking(t *testing.T) {
	cfg := testConfig(schema.TextOut)
	cfg.ResultLimit = 1

	var buf bytes.Buffer
	require.NoError(t, WriteTownshipRanking(&buf, sampleRanking(), cfg))
	out := buf.String()
	assert.Contains(t, out, "Township ranking: 数学 (实验中学 teachers and peer schools)")
	assert.Contains(t, out, "张老师")
	assert.NotContains(t, out, "城南中学")
	assert.Contains(t, out, "Showing 1 of 2 entries")

	buf.Reset()
	cfg.Output = schema.CSVOut
	require.NoError(t, WriteTownshipRanking(&buf, sampleRanking(), cfg))
	records := readCSV(t, buf.String())
	require.Len(t, records, 3, "CSV keeps every entry")
	assert.Equal(t, "school", records[2][2])
}

func TestWriteExamComparison(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteExamComparison(&buf, sampleComparison(), testConfig(schema.TextOut)))
		out := buf.String()
		assert.Contains(t, out, "实验中学 | 张老师 | 数学: 期中 -> 期末")
		assert.Contains(t, out, "+10.50")
		assert.Contains(t, out, "+5.00pp")
		assert.Contains(t, out, "-1")
		assert.Contains(t, out, contract.PassedValue)
		assert.Contains(t, out, contract.FailedValue)
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteExamComparison(&buf, sampleComparison(), testConfig(schema.MarkdownOut)))
		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "# 实验中学 数学: 期中 vs 期末\n"))
		assert.Contains(t, out, "## School total")
		assert.Contains(t, out, "| Pass rate | 50.00% | 55.00% | +5.00pp |")
		assert.Contains(t, out, "| School rank | 2 | 1 | -1 |")
		assert.Contains(t, out, "- [x] Rates within [0,1] (ok)")
		assert.Contains(t, out, "- [ ] Total average improved (200.00 -> 190.00)")
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteExamComparison(&buf, sampleComparison(), testConfig(schema.CSVOut)))
		records := readCSV(t, buf.String())
		require.Len(t, records, 6)
		assert.Equal(t, []string{"School total", "Average", "score", "200.0000", "210.5000", "10.5000"}, records[1])
		assert.Equal(t, []string{"Checks", "Total average improved", "check", "", "FAIL", "200.00 -> 190.00"}, records[5])
	})
}

func TestImproved(t *testing.T) {
	assert.True(t, improved(schema.ComparisonRow{Kind: schema.RankValue, Delta: -1}))
	assert.False(t, improved(schema.ComparisonRow{Kind: schema.RankValue, Delta: 1}))
	assert.True(t, improved(schema.ComparisonRow{Metric: "Low rate", Kind: schema.RateValue, Delta: -0.1}))
	assert.True(t, improved(schema.ComparisonRow{Metric: "Average", Kind: schema.ScoreValue, Delta: 0.1}))
}

func TestWriteSyncOutputs(t *testing.T) {
	cfg := testConfig(schema.TextOut)

	t.Run("sync result", func(t *testing.T) {
		var buf bytes.Buffer
		res := schema.SyncResult{Status: schema.SyncSaved, Key: "k1", UpdatedAt: time.Date(2025, 11, 3, 8, 30, 0, 0, time.UTC)}
		require.NoError(t, WriteSyncResult(&buf, res, cfg))
		assert.Equal(t, "Status: saved\nKey: k1\nUpdated: 2025-11-03T08:30:00Z\n", buf.String())
	})

	t.Run("teacher load", func(t *testing.T) {
		var buf bytes.Buffer
		res := schema.TeacherLoadResult{
			SyncResult: schema.SyncResult{Status: schema.SyncFound, Key: "TEACHERS_2023级_2025-2026_上学期"},
			Payload: schema.AssignmentPayload{
				Map:       map[string]string{"702_数学": "张老师", "701_语文": "陈老师"},
				SchoolMap: map[string]string{"702_数学": "实验中学", "陈老师": "城南中学"},
			},
			Candidates: 2,
		}
		require.NoError(t, WriteTeacherLoad(&buf, res, cfg))
		out := buf.String()
		assert.Contains(t, out, "Candidates: 2, matched by name: false")
		assert.Less(t, strings.Index(out, "陈老师"), strings.Index(out, "张老师"))

		assert.Equal(t, [][]string{
			{"701", "语文", "陈老师", "城南中学"},
			{"702", "数学", "张老师", "实验中学"},
		}, assignmentRows(res.Payload))
	})

	t.Run("not found load skips the table", func(t *testing.T) {
		var buf bytes.Buffer
		res := schema.TeacherLoadResult{SyncResult: schema.SyncResult{Status: schema.SyncNotFound, Message: "no teacher assignments found", TriedKeys: []string{"a", "like:b"}}}
		require.NoError(t, WriteTeacherLoad(&buf, res, cfg))
		assert.Equal(t, "Status: not_found\nKey: \nTried: a | like:b\nno teacher assignments found\n", buf.String())
	})

	t.Run("teacher key note", func(t *testing.T) {
		var buf bytes.Buffer
		res := keys.TeacherKeyResult{Key: "TEACHERS_2022级_2025-2026_上学期", CohortID: "2022", BaseTerm: "2025-2026_上学期", CohortInferred: true}
		require.NoError(t, WriteTeacherKey(&buf, res, cfg))
		assert.Contains(t, buf.String(), "note: cohort 2022 inferred")
	})

	t.Run("exam key json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteExamKey(&buf, "k", schema.ExamMeta{CohortID: "2023"}, testConfig(schema.JSONOut)))
		assert.Contains(t, buf.String(), `"key": "k"`)
	})
}

func TestWriteMatchResult(t *testing.T) {
	self := schema.StudentRecord{Name: "张三", Class: "701", School: "实验中学", Scores: map[string]float64{"数学": 90}}
	res := schema.MatchResult{
		Student:    &self,
		Strategy:   schema.NameOnlyMatch,
		Candidates: []schema.StudentRecord{self, {Name: "张三", Class: "702", School: "实验中学"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMatchResult(&buf, res, []string{"数学"}, testConfig(schema.MarkdownOut)))
	out := buf.String()
	assert.Contains(t, out, "Strategy: name-only")
	assert.Contains(t, out, "| * | 张三 | 701 | 实验中学 | 90.00 |")
	assert.Contains(t, out, "|  | 张三 | 702 | 实验中学 | - |")

	buf.Reset()
	require.NoError(t, WriteMatchResult(&buf, schema.MatchResult{Strategy: schema.NoMatch}, nil, testConfig(schema.TextOut)))
	assert.Equal(t, "Strategy: none\nNo match among 0 candidates\n", buf.String())
}

func TestWriteStudents(t *testing.T) {
	students := []schema.StudentRecord{
		{Name: "张三", Class: "701", School: "实验中学", Scores: map[string]float64{"数学": 90, "物理": 60}},
		{Name: "李四", Class: "701", School: "实验中学", Scores: map[string]float64{"语文": 88.5}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteStudents(&buf, students, testConfig(schema.CSVOut)))
	assert.Equal(t, [][]string{
		{"姓名", "班级", "学校", "语文", "数学", "物理"},
		{"张三", "701", "实验中学", "", "90", "60"},
		{"李四", "701", "实验中学", "88.5", "", ""},
	}, readCSV(t, buf.String()))
}

func TestOutWriterToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schools.json")
	cfg := testConfig(schema.JSONOut)
	cfg.OutputFile = path

	require.NoError(t, NewOutWriter().WriteSchools(sampleMetrics(), cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"school": "实验中学"`)
}

func TestGetMaxTableNameWidth(t *testing.T) {
	assert.Equal(t, 10, GetMaxTableNameWidth(&contract.Config{Width: 80}))
	assert.Equal(t, 25, GetMaxTableNameWidth(&contract.Config{Width: 120}))
	assert.Equal(t, 60, GetMaxTableNameWidth(&contract.Config{Width: 400}))
}
