package core

import (
	"slices"
	"strings"

	"github.com/huangsam/examlens/schema"
)

// Weights of the teacher performance score.
const (
	finalBase       = 30.0
	finalExcWeight  = 30.0
	finalPassWeight = 30.0
	finalLowWeight  = 20.0
)

// FinalScore is the teacher performance formula.
func FinalScore(contribution, excellentRate, passRate, lowRate float64) float64 {
	return finalBase + contribution + excellentRate*finalExcWeight + passRate*finalPassWeight - lowRate*finalLowWeight
}

type teacherSubject struct {
	teacher string
	subject string
}

type teacherPool struct {
	classes []string
	scores  []float64
}

// AnalyzeTeachers computes per-teacher, per-subject statistics for one target school.
// Pairs without any matched student are left out. Assignments with no matched student
// are listed in Skipped, and their class still counts toward the teacher's classes.
func AnalyzeTeachers(students []schema.StudentRecord, table schema.AssignmentTable, school string, subjects []string, thresholds schema.ThresholdTable) schema.TeacherAnalysis {
	if len(subjects) == 0 {
		subjects = schema.DefaultSubjects
	}
	school = strings.TrimSpace(school)

	var local []schema.StudentRecord
	for _, st := range students {
		if strings.TrimSpace(st.School) == school {
			local = append(local, st)
		}
	}

	out := schema.TeacherAnalysis{
		School:    school,
		Subjects:  subjects,
		Baselines: gradeBaselines(local, subjects, thresholds),
	}

	pools := make(map[teacherSubject]*teacherPool)
	var teachers []string
	for _, key := range table.Keys() {
		teacher := table[key]
		if !slices.Contains(subjects, key.SubjectID) {
			out.Skipped = append(out.Skipped, key)
			continue
		}
		var matched []float64
		for _, st := range local {
			if strings.TrimSpace(st.Class) != key.ClassID {
				continue
			}
			if v, ok := st.Score(key.SubjectID); ok {
				matched = append(matched, v)
			}
		}
		// A class is credited to the teacher even when none of its students matched.
		ts := teacherSubject{teacher: teacher, subject: key.SubjectID}
		pool, ok := pools[ts]
		if !ok {
			pool = &teacherPool{}
			pools[ts] = pool
		}
		if !slices.Contains(pool.classes, key.ClassID) {
			pool.classes = append(pool.classes, key.ClassID)
		}
		if len(matched) == 0 {
			out.Skipped = append(out.Skipped, key)
			continue
		}
		if !slices.Contains(teachers, teacher) {
			teachers = append(teachers, teacher)
		}
		pool.scores = append(pool.scores, matched...)
	}

	for _, teacher := range teachers {
		for _, sub := range subjects {
			pool, ok := pools[teacherSubject{teacher: teacher, subject: sub}]
			if !ok || len(pool.scores) == 0 {
				continue
			}
			out.Stats = append(out.Stats, teacherStat(teacher, sub, pool, out.Baselines[sub]))
		}
	}
	return out
}

// gradeBaselines computes the school-wide reference of each subject.
func gradeBaselines(local []schema.StudentRecord, subjects []string, thresholds schema.ThresholdTable) map[string]schema.GradeBaseline {
	out := make(map[string]schema.GradeBaseline, len(subjects))
	for _, sub := range subjects {
		th := thresholds.For(sub)
		base := schema.GradeBaseline{Excellent: th.Excellent, Pass: th.Pass, Low: th.Low()}
		var sum float64
		for _, st := range local {
			if v, ok := st.Score(sub); ok {
				sum += v
				base.Count++
			}
		}
		base.Avg = ratio(sum, float64(base.Count))
		out[sub] = base
	}
	return out
}

func teacherStat(teacher, subject string, pool *teacherPool, base schema.GradeBaseline) schema.TeacherStat {
	n := float64(len(pool.scores))
	var sum float64
	var exc, pass, low int
	for _, v := range pool.scores {
		sum += v
		if v >= base.Excellent {
			exc++
		}
		if v >= base.Pass {
			pass++
		}
		if v < base.Low {
			low++
		}
	}
	classes := slices.Clone(pool.classes)
	slices.Sort(classes)

	stat := schema.TeacherStat{
		Teacher:       teacher,
		Subject:       subject,
		Classes:       classes,
		StudentCount:  len(pool.scores),
		Avg:           sum / n,
		ExcellentRate: float64(exc) / n,
		PassRate:      float64(pass) / n,
		LowRate:       float64(low) / n,
	}
	stat.Contribution = stat.Avg - base.Avg
	stat.FinalScore = FinalScore(stat.Contribution, stat.ExcellentRate, stat.PassRate, stat.LowRate)
	return stat
}
