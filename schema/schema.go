// Package schema has models and shared constants for all parts of examlens.
package schema

import (
	"math"
	"strings"
)

// StudentRecord is one student's scores for a single exam.
// Records are never mutated once an analysis pass has started.
type StudentRecord struct {
	Name   string             `json:"name" yaml:"name" validate:"required"`
	Class  string             `json:"class" yaml:"class"`
	School string             `json:"school" yaml:"school" validate:"required"`
	Scores map[string]float64 `json:"scores" yaml:"scores" validate:"dive,gte=0,lte=1000"`
}

// Score returns the student's score for a subject and whether it is a usable number.
func (s StudentRecord) Score(subject string) (float64, bool) {
	v, ok := s.Scores[subject]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Total returns the sum of the given subjects, or false when any of them is missing.
func (s StudentRecord) Total(subjects []string) (float64, bool) {
	var sum float64
	for _, sub := range subjects {
		v, ok := s.Score(sub)
		if !ok {
			return 0, false
		}
		sum += v
	}
	return sum, true
}

// SubjectThreshold holds the cutoffs of one subject.
type SubjectThreshold struct {
	Excellent float64 `json:"excellent" yaml:"excellent" mapstructure:"excellent" validate:"gte=0"`
	Pass      float64 `json:"pass" yaml:"pass" mapstructure:"pass" validate:"gte=0,ltefield=Excellent"`
}

// Low returns the low-score cutoff derived from the pass cutoff.
func (t SubjectThreshold) Low() float64 {
	return t.Pass * LowCutoffRatio
}

// ThresholdTable maps a subject to its cutoffs. An entry under TotalSubject
// overrides the summed total cutoffs.
type ThresholdTable map[string]SubjectThreshold

// For returns the cutoffs for a subject, falling back to the defaults.
func (t ThresholdTable) For(subject string) SubjectThreshold {
	if th, ok := t[subject]; ok {
		return th
	}
	return SubjectThreshold{Excellent: DefaultExcellentCutoff, Pass: DefaultPassCutoff}
}

// Total returns the total cutoffs: the explicit TotalSubject entry if present,
// otherwise the sum of the per-subject cutoffs.
func (t ThresholdTable) Total(subjects []string) SubjectThreshold {
	if th, ok := t[TotalSubject]; ok {
		return th
	}
	var total SubjectThreshold
	for _, sub := range subjects {
		th := t.For(sub)
		total.Excellent += th.Excellent
		total.Pass += th.Pass
	}
	return total
}

// SchoolsOf returns the distinct schools in first-encounter order.
func SchoolsOf(students []StudentRecord) []string {
	seen := make(map[string]struct{})
	var schools []string
	for _, s := range students {
		school := strings.TrimSpace(s.School)
		if _, ok := seen[school]; ok {
			continue
		}
		seen[school] = struct{}{}
		schools = append(schools, school)
	}
	return schools
}
