// Package identity normalizes student names and classes and picks a student's own row.
package identity

import (
	"strings"
	"unicode"

	"github.com/huangsam/examlens/schema"
)

// NormalizeName trims, drops all whitespace and lowercases a name for comparison.
func NormalizeName(s string) string {
	return strings.ToLower(stripSpace(s))
}

// NormalizeClass reduces a class label to its digits when it has any, without
// leading zeros. Labels without digits are lowercased and stripped of whitespace.
func NormalizeClass(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ""
	}
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() > 0 {
		trimmed := strings.TrimLeft(digits.String(), "0")
		if trimmed == "" {
			return "0"
		}
		return trimmed
	}
	return strings.ToLower(stripSpace(raw))
}

// ClassEquivalent reports whether two class labels refer to the same class.
// An empty label is never equivalent to anything.
func ClassEquivalent(a, b string) bool {
	c1, c2 := NormalizeClass(a), NormalizeClass(b)
	if c1 == "" || c2 == "" {
		return false
	}
	return c1 == c2
}

// ResolveTarget fills empty target fields from the current user.
// The returned name is normalized.
func ResolveTarget(target schema.MatchTarget, user schema.UserInfo) schema.MatchTarget {
	return schema.MatchTarget{
		Name:   NormalizeName(firstNonEmpty(target.Name, user.Name)),
		Class:  strings.TrimSpace(firstNonEmpty(target.Class, user.Class)),
		School: strings.TrimSpace(firstNonEmpty(target.School, user.School)),
	}
}

// PickSelf finds the target's own row. Tiers, first hit wins:
//  1. name and class (any class when the target has none)
//  2. name only
//  3. class only, when exactly one row has that class
//
// Rows from another school are never considered; rows without a school are.
func PickSelf(rows []schema.StudentRecord, target schema.MatchTarget) schema.MatchResult {
	name := NormalizeName(target.Name)
	class := strings.TrimSpace(target.Class)
	school := strings.TrimSpace(target.School)

	var inSchool []schema.StudentRecord
	for _, r := range rows {
		rs := strings.TrimSpace(r.School)
		if school == "" || rs == "" || rs == school {
			inSchool = append(inSchool, r)
		}
	}

	sameName := func(r schema.StudentRecord) bool { return NormalizeName(r.Name) == name }
	sameClass := func(r schema.StudentRecord) bool { return class != "" && ClassEquivalent(r.Class, class) }

	if m := filter(inSchool, func(r schema.StudentRecord) bool {
		return sameName(r) && (class == "" || sameClass(r))
	}); len(m) > 0 {
		return found(m, schema.NameClassMatch)
	}
	if m := filter(inSchool, sameName); len(m) > 0 {
		return found(m, schema.NameOnlyMatch)
	}
	if m := filter(inSchool, sameClass); len(m) == 1 {
		return found(m, schema.ClassUniqueMatch)
	}
	return schema.MatchResult{Strategy: schema.NoMatch, Candidates: []schema.StudentRecord{}}
}

func found(candidates []schema.StudentRecord, strategy schema.MatchStrategy) schema.MatchResult {
	picked := candidates[0]
	return schema.MatchResult{Student: &picked, Strategy: strategy, Candidates: candidates}
}

func filter(rows []schema.StudentRecord, keep func(schema.StudentRecord) bool) []schema.StudentRecord {
	var out []schema.StudentRecord
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
