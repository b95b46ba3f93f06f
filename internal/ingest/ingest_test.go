package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/examlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "scores.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadStudentsExcel(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"姓名", "班级", "学校", "数学", "语文", "总分"},
		{"张三", "701", "实验中学", 95, 88.5, 183.5},
		{"李四", "702", "实验中学", nil, 70, 70},
		{},
		{"王五", "701", "城南中学", "缺考", 66, 66},
	})

	students, err := LoadStudents(path)
	require.NoError(t, err)
	require.Len(t, students, 3)

	assert.Equal(t, schema.StudentRecord{
		Name: "张三", Class: "701", School: "实验中学",
		Scores: map[string]float64{"数学": 95, "语文": 88.5},
	}, students[0])

	_, ok := students[1].Score("数学")
	assert.False(t, ok, "blank cell is a missing score")
	_, ok = students[2].Score("数学")
	assert.False(t, ok, "absent marker is a missing score")
	assert.Equal(t, "城南中学", students[2].School)
}

func TestLoadStudentsCSV(t *testing.T) {
	t.Run("english header and default school", func(t *testing.T) {
		path := writeFile(t, "scores.csv", "\ufeffname,class,数学,英语\n张三,701,90,\n李四,701,72,80\n")
		students, err := NewLoader(zap.NewNop(), "实验中学").Students(path)
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, "实验中学", students[0].School)
		assert.Equal(t, map[string]float64{"数学": 90}, students[0].Scores)
		assert.Equal(t, map[string]float64{"数学": 72, "英语": 80}, students[1].Scores)
	})

	t.Run("bad score reports the row", func(t *testing.T) {
		path := writeFile(t, "scores.csv", "姓名,班级,学校,数学\n张三,701,实验中学,90\n李四,701,实验中学,abc\n")
		_, err := LoadStudents(path)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 3, verr.Row)
		assert.Equal(t, "数学", verr.Field)
		assert.EqualError(t, err, `scores.csv row 3: 数学: invalid score "abc"`)
	})

	t.Run("out of range score", func(t *testing.T) {
		path := writeFile(t, "scores.csv", "姓名,学校,数学\n张三,实验中学,1200\n")
		_, err := LoadStudents(path)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 2, verr.Row)
		assert.Contains(t, verr.Field, "scores")
	})

	t.Run("missing school", func(t *testing.T) {
		path := writeFile(t, "scores.csv", "姓名,数学\n张三,90\n")
		_, err := LoadStudents(path)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "school", verr.Field)
	})

	t.Run("missing name column", func(t *testing.T) {
		path := writeFile(t, "scores.csv", "学校,数学\n实验中学,90\n")
		_, err := LoadStudents(path)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 1, verr.Row)
	})

	t.Run("no subjects", func(t *testing.T) {
		path := writeFile(t, "scores.csv", "姓名,学校,总分\n张三,实验中学,90\n")
		_, err := LoadStudents(path)
		assert.ErrorContains(t, err, "no subject columns")
	})
}

func TestLoadStudentsJSON(t *testing.T) {
	path := writeFile(t, "scores.json", `[
		{"name": " 张三 ", "class": "701", "school": "实验中学", "scores": {"数学": 91}},
		{"name": "李四", "class": "702", "school": "", "scores": {"数学": 60}}
	]`)

	students, err := NewLoader(nil, "城南中学").Students(path)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "张三", students[0].Name)
	assert.Equal(t, "城南中学", students[1].School)

	bad := writeFile(t, "bad.json", `[{"name": "", "school": "实验中学", "scores": {}}]`)
	_, err = LoadStudents(bad)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.Row)
	assert.Equal(t, "name", verr.Field)
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := LoadStudents("scores.txt")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = LoadAssignments("teachers.xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadAssignments(t *testing.T) {
	want := map[string]string{"701_数学": "张老师", "701_语文": "陈老师"}

	t.Run("yaml payload", func(t *testing.T) {
		path := writeFile(t, "teachers.yaml", "map:\n  701_数学: 张老师\n  701_语文: 陈老师\nschoolMap:\n  张老师: 实验中学\n")
		payload, err := LoadAssignments(path)
		require.NoError(t, err)
		assert.Equal(t, want, payload.Map)
		assert.Equal(t, map[string]string{"张老师": "实验中学"}, payload.SchoolMap)
	})

	t.Run("flat json", func(t *testing.T) {
		path := writeFile(t, "teachers.json", `{"701_数学": "张老师", "701_语文": "陈老师", "note": 3}`)
		payload, err := LoadAssignments(path)
		require.NoError(t, err)
		assert.Equal(t, want, payload.Map)
		assert.Empty(t, payload.SchoolMap)
	})

	t.Run("csv with header", func(t *testing.T) {
		path := writeFile(t, "teachers.csv", "class,subject,teacher,school\n701,数学,张老师,实验中学\n701,语文,陈老师\n")
		payload, err := LoadAssignments(path)
		require.NoError(t, err)
		assert.Equal(t, want, payload.Map)
		assert.Equal(t, map[string]string{"701_数学": "实验中学"}, payload.SchoolMap)

		table, err := payload.Table()
		require.NoError(t, err)
		assert.Equal(t, "张老师", table[schema.AssignmentKey{ClassID: "701", SubjectID: "数学"}])
	})

	t.Run("csv rows are validated", func(t *testing.T) {
		path := writeFile(t, "teachers.csv", "701,数学,张老师\n702,语文\n")
		_, err := LoadAssignments(path)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 2, verr.Row)

		path = writeFile(t, "teachers.csv", "7_01,数学,张老师\n")
		_, err = LoadAssignments(path)
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "class", verr.Field)
	})

	t.Run("bad wire key", func(t *testing.T) {
		path := writeFile(t, "teachers.yml", "map:\n  701数学: 张老师\n")
		_, err := LoadAssignments(path)
		assert.ErrorContains(t, err, "invalid assignment key")
	})
}
