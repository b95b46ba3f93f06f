package cloudsync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/examlens/core/identity"
	"github.com/huangsam/examlens/core/keys"
	"github.com/huangsam/examlens/internal/codec"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
	"go.uber.org/zap"
)

// Row limits of the pattern tiers.
const (
	cohortTermLimit = 20
	cohortLimit     = 30
	termLimit       = 30
	latestLimit     = 30
)

// candidates accumulates rows across tiers. The first row seen for a key wins.
type candidates struct {
	rows  []schema.CloudRecord
	seen  map[string]struct{}
	tried []string
}

func (c *candidates) push(records ...schema.CloudRecord) {
	for _, rec := range records {
		if rec.Key == "" || rec.Content == "" {
			continue
		}
		if _, ok := c.seen[rec.Key]; ok {
			continue
		}
		c.seen[rec.Key] = struct{}{}
		c.rows = append(c.rows, rec)
	}
}

// LoadTeachers finds the assignment table of the current cohort and term. Tiers:
//  1. the exact key
//  2. keys of the cohort and base term
//  3. keys of the cohort in any term
//  4. keys of the base term in any cohort
//  5. the most recent assignment keys, only when nothing else matched
//
// Tiers 2 to 4 run when nothing matched yet, or always for teachers so their own
// table can be found by name across every tier.
func (r *Reconciler) LoadTeachers(ctx context.Context) (res schema.TeacherLoadResult, err error) {
	o := r.begin(OpLoadTeachers, "loading teacher assignments")
	defer func() { o.end(res.Status, err) }()

	if err = r.connected(OpLoadTeachers); err != nil {
		return res, err
	}
	sc, err := r.current(ctx, OpLoadTeachers)
	if err != nil {
		return res, err
	}

	baseTerm := keys.BaseTerm(strings.TrimSpace(sc.TermID))
	cohort := keys.CohortDigits(cohortOf(sc))
	userName := identity.NormalizeName(sc.User.Name)
	broad := sc.User.Role.IsTeacherLike()

	c := &candidates{seen: make(map[string]struct{})}
	list := func(pattern string, limit int) error {
		c.tried = append(c.tried, "like:"+pattern)
		rows, lerr := r.store.ListLike(ctx, pattern, limit)
		if lerr != nil {
			return newSyncError(OpLoadTeachers, pattern, Classify(lerr), lerr)
		}
		c.push(rows...)
		return nil
	}

	if kr, ok := r.teacherKey(sc); ok {
		c.tried = append(c.tried, kr.Key)
		rec, found, gerr := r.store.Get(ctx, kr.Key)
		if gerr != nil {
			return res, newSyncError(OpLoadTeachers, kr.Key, Classify(gerr), gerr)
		}
		if found {
			c.push(rec)
		}
	}
	if (len(c.rows) == 0 || broad) && cohort != "" && baseTerm != "" {
		if err = list(keys.CohortTermPattern(cohort, baseTerm), cohortTermLimit); err != nil {
			return res, err
		}
	}
	if (len(c.rows) == 0 || broad) && cohort != "" {
		if err = list(keys.CohortPattern(cohort), cohortLimit); err != nil {
			return res, err
		}
	}
	if (len(c.rows) == 0 || broad) && baseTerm != "" {
		if err = list(keys.TermPattern(baseTerm), termLimit); err != nil {
			return res, err
		}
	}
	if len(c.rows) == 0 {
		c.tried = append(c.tried, "like:"+keys.AnyTeacherPattern()+" (latest)")
		rows, lerr := r.store.ListLike(ctx, keys.AnyTeacherPattern(), latestLimit)
		if lerr != nil {
			return res, newSyncError(OpLoadTeachers, keys.AnyTeacherPattern(), Classify(lerr), lerr)
		}
		c.push(rows...)
	}

	res.TriedKeys = c.tried
	res.Candidates = len(c.rows)
	if len(c.rows) == 0 {
		res.Status = schema.SyncNotFound
		res.Message = notFoundMessage(cohort, baseTerm, sc.TermID, c.tried)
		r.notifier.Notify(contract.NoticeWarning, res.Message)
		return res, nil
	}

	selected := c.rows[0]
	if broad && userName != "" {
		for _, row := range c.rows {
			p, perr := decodeAssignments(row.Content)
			if perr == nil && hasTeacher(p.Map, userName) {
				selected = row
				res.MatchedByName = true
				r.logger.Info("assignment table matched by teacher name", zap.String("key", row.Key))
				break
			}
		}
	}

	payload, err := decodeAssignments(selected.Content)
	if err != nil {
		return res, newSyncError(OpLoadTeachers, selected.Key, KindMalformedPayload, err)
	}
	if len(payload.SchoolMap) == 0 && len(payload.Map) > 0 && strings.TrimSpace(sc.DefaultSchool) != "" {
		for k := range payload.Map {
			payload.SchoolMap[k] = strings.TrimSpace(sc.DefaultSchool)
		}
	}

	res.Status = schema.SyncFound
	res.Key = selected.Key
	res.UpdatedAt = selected.UpdatedAt
	res.Payload = payload
	res.Message = fmt.Sprintf("loaded %d teacher assignments from %s", len(payload.Map), selected.Key)

	r.bestEffort("audit", r.audit.Record(ctx, ActionTeacherSync, "assignments loaded: "+selected.Key))
	r.notifier.Notify(contract.NoticeSuccess, res.Message)
	return res, nil
}

func notFoundMessage(cohort, baseTerm, termID string, tried []string) string {
	cohortHint := "unknown cohort"
	if cohort != "" {
		cohortHint = cohort + "级"
	}
	termHint := baseTerm
	if termHint == "" {
		termHint = termID
	}
	if termHint == "" {
		termHint = "unknown term"
	}
	keyHint := "(none)"
	if len(tried) > 0 {
		keyHint = strings.Join(tried, " | ")
	}
	return fmt.Sprintf("no teacher assignments found: cohort=%s, term=%s; tried=%s", cohortHint, termHint, keyHint)
}

// hasTeacher reports whether a normalized name appears in the table, either exactly
// or followed by a parenthesized note.
func hasTeacher(table map[string]string, name string) bool {
	for _, teacher := range table {
		norm := identity.NormalizeName(teacher)
		if norm == name || strings.HasPrefix(norm, name+"(") || strings.HasPrefix(norm, name+"（") {
			return true
		}
	}
	return false
}

// decodeAssignments reads an assignment payload. Content without a "map" object is
// treated as a flat class_subject to teacher map. Non-string values are ignored.
func decodeAssignments(content string) (schema.AssignmentPayload, error) {
	p := schema.AssignmentPayload{Map: map[string]string{}, SchoolMap: map[string]string{}}

	var top map[string]json.RawMessage
	if err := codec.Decode(content, &top); err != nil {
		return p, err
	}
	if m, ok := objectField(top, "map"); ok {
		p.Map = stringValues(m)
		if sm, ok := objectField(top, "schoolMap"); ok {
			p.SchoolMap = stringValues(sm)
		}
		return p, nil
	}
	p.Map = stringValues(top)
	return p, nil
}

func objectField(top map[string]json.RawMessage, name string) (map[string]json.RawMessage, bool) {
	raw, ok := top[name]
	if !ok {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func stringValues(obj map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(obj))
	for k, raw := range obj {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out[k] = s
		}
	}
	return out
}
