package core

import (
	"fmt"
	"math"

	"github.com/huangsam/examlens/schema"
)

// Demo exam tags.
const (
	MidtermTag = "期中"
	FinalTag   = "期末"
)

// Demo dataset shape.
const (
	DemoSchool           = "实验中学"
	DemoStudentsPerClass = 20
	demoMinScore         = 35.0
	demoMaxScore         = 100.0
)

var (
	demoSchools = []string{DemoSchool, "城关中学", "广益中学"}
	demoClasses = []string{"701", "702"}

	demoSchoolBase = map[string]map[string]float64{
		"实验中学": {schema.SubjectChinese: 81, schema.SubjectMath: 78, schema.SubjectEnglish: 79},
		"城关中学": {schema.SubjectChinese: 83, schema.SubjectMath: 81, schema.SubjectEnglish: 82},
		"广益中学": {schema.SubjectChinese: 79, schema.SubjectMath: 76, schema.SubjectEnglish: 77},
	}

	demoExamShift = map[string]map[string]float64{
		MidtermTag: {schema.SubjectChinese: 0, schema.SubjectMath: 0, schema.SubjectEnglish: 0},
		FinalTag:   {schema.SubjectChinese: 1.8, schema.SubjectMath: 4.2, schema.SubjectEnglish: 2.6},
	}

	// Class shifts only apply to DemoSchool.
	demoClassShift = map[string]map[string]map[string]float64{
		MidtermTag: {
			"701": {schema.SubjectChinese: 0.8, schema.SubjectMath: 2.0, schema.SubjectEnglish: 1.2},
			"702": {schema.SubjectChinese: -0.2, schema.SubjectMath: -0.5, schema.SubjectEnglish: -0.1},
		},
		FinalTag: {
			"701": {schema.SubjectChinese: 1.5, schema.SubjectMath: 6.5, schema.SubjectEnglish: 2.4},
			"702": {schema.SubjectChinese: 0.2, schema.SubjectMath: 0.8, schema.SubjectEnglish: 0.5},
		},
	}
)

// DemoExam generates the deterministic three-school demo exam for a tag.
func DemoExam(tag string) ([]schema.StudentRecord, error) {
	shift, ok := demoExamShift[tag]
	if !ok {
		return nil, fmt.Errorf("unknown demo tag %q: want %s or %s", tag, MidtermTag, FinalTag)
	}

	students := make([]schema.StudentRecord, 0, len(demoSchools)*len(demoClasses)*DemoStudentsPerClass)
	for _, school := range demoSchools {
		prefix := string([]rune(school)[:2])
		for cidx, cls := range demoClasses {
			for i := 1; i <= DemoStudentsPerClass; i++ {
				scores := make(map[string]float64, len(schema.DefaultSubjects))
				for _, sub := range schema.DefaultSubjects {
					noise := float64((i*7+cidx*11)%13 - 6)
					val := demoSchoolBase[school][sub] + noise
					if school == DemoSchool {
						val += demoClassShift[tag][cls][sub]
					}
					val += shift[sub]
					scores[sub] = math.Max(demoMinScore, math.Min(demoMaxScore, roundTenth(val)))
				}
				students = append(students, schema.StudentRecord{
					Name:   fmt.Sprintf("%s%s%02d", prefix, cls, i),
					Class:  cls,
					School: school,
					Scores: scores,
				})
			}
		}
	}
	return students, nil
}

// DemoAssignments returns the demo school's teacher table.
func DemoAssignments() schema.AssignmentTable {
	return schema.AssignmentTable{
		{ClassID: "701", SubjectID: schema.SubjectMath}:    "张老师",
		{ClassID: "702", SubjectID: schema.SubjectMath}:    "李老师",
		{ClassID: "701", SubjectID: schema.SubjectChinese}: "王老师",
		{ClassID: "702", SubjectID: schema.SubjectChinese}: "赵老师",
		{ClassID: "701", SubjectID: schema.SubjectEnglish}: "陈老师",
		{ClassID: "702", SubjectID: schema.SubjectEnglish}: "刘老师",
	}
}

// roundTenth rounds half up to one decimal place.
func roundTenth(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
