// Package keys derives the system_data keys of exam snapshots and teacher assignments.
package keys

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/huangsam/examlens/schema"
)

const (
	// TeacherPrefix starts every teacher assignment key.
	TeacherPrefix = "TEACHERS_"

	cohortSuffix   = "级"
	gradeSuffix    = "年级"
	unknownGrade   = "未知年级"
	defaultExam    = "标准考试"
	termSep        = "_"
	likeWildcard   = "%"
	primaryGrade   = 6 // grades completed before the cohort enrolls
	termGradeIndex = 2
)

var (
	keyStripper = regexp.MustCompile(`[\s/\\?]`)
	digitRun    = regexp.MustCompile(`\d+`)
	yearRun     = regexp.MustCompile(`\d{4}`)
	nonDigit    = regexp.MustCompile(`\D`)
)

// ExamKey builds the snapshot key of an exam. It returns false when the cohort,
// year, term or exam type is missing.
func ExamKey(meta schema.ExamMeta) (string, bool) {
	for _, required := range []string{meta.CohortID, meta.Year, meta.Term, meta.ExamType} {
		if strings.TrimSpace(required) == "" {
			return "", false
		}
	}
	gradePart := unknownGrade
	if strings.TrimSpace(meta.Grade) != "" {
		gradePart = meta.Grade + gradeSuffix
	}
	namePart := meta.ExamName
	if strings.TrimSpace(namePart) == "" {
		namePart = defaultExam
	}
	parts := []string{meta.CohortID + cohortSuffix, gradePart, meta.Year, meta.Term, meta.ExamType, namePart}
	return keyStripper.ReplaceAllString(strings.Join(parts, termSep), ""), true
}

// BaseTerm drops a trailing grade segment from a term id, so
// "2025-2026_上学期_9年级" becomes "2025-2026_上学期".
func BaseTerm(termID string) string {
	parts := strings.Split(termID, termSep)
	if len(parts) > termGradeIndex && strings.Contains(parts[termGradeIndex], gradeSuffix) {
		return strings.Join(parts[:termGradeIndex], termSep)
	}
	return termID
}

// TeacherKeyResult is a teacher assignment key with how it was derived.
type TeacherKeyResult struct {
	Key            string `json:"key"`
	CohortID       string `json:"cohortId"`
	BaseTerm       string `json:"baseTerm"`
	CohortInferred bool   `json:"cohortInferred"`
}

// TeacherKey builds the assignment key for a cohort and term. Without a cohort it
// infers one from the term id's grade and year as year - (grade - 6). It returns
// false when no cohort or term is available.
func TeacherKey(cohortID, termID string) (TeacherKeyResult, bool) {
	termID = strings.TrimSpace(termID)
	res := TeacherKeyResult{CohortID: strings.TrimSpace(cohortID), BaseTerm: BaseTerm(termID)}
	if res.CohortID == "" && termID != "" {
		if inferred, ok := InferCohort(termID); ok {
			res.CohortID = inferred
			res.CohortInferred = true
		}
	}
	if res.CohortID == "" || res.BaseTerm == "" {
		return res, false
	}
	res.Key = TeacherPrefix + res.CohortID + cohortSuffix + termSep + res.BaseTerm
	return res, true
}

// InferCohort estimates the enrollment year from a term id such as "2025-2026_上学期_9年级".
func InferCohort(termID string) (string, bool) {
	parts := strings.Split(termID, termSep)
	if len(parts) <= termGradeIndex {
		return "", false
	}
	gradeMatch := digitRun.FindString(parts[termGradeIndex])
	yearMatch := yearRun.FindString(parts[0])
	if gradeMatch == "" || yearMatch == "" {
		return "", false
	}
	grade, err := strconv.Atoi(gradeMatch)
	if err != nil {
		return "", false
	}
	year, err := strconv.Atoi(yearMatch)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(year - (grade - primaryGrade)), true
}

// CohortDigits keeps only the digits of a cohort id.
func CohortDigits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// CohortTermPattern matches assignment keys of one cohort and base term.
func CohortTermPattern(cohort, baseTerm string) string {
	return TeacherPrefix + cohort + cohortSuffix + termSep + baseTerm
}

// CohortPattern matches assignment keys of one cohort in any term.
func CohortPattern(cohort string) string {
	return TeacherPrefix + cohort + cohortSuffix + termSep + likeWildcard
}

// TermPattern matches assignment keys of any cohort in one base term.
func TermPattern(baseTerm string) string {
	return TeacherPrefix + likeWildcard + termSep + baseTerm
}

// AnyTeacherPattern matches every assignment key.
func AnyTeacherPattern() string {
	return TeacherPrefix + likeWildcard
}
