// Package cloudsync saves and loads exam snapshots and teacher assignment tables
// to the shared system_data table.
package cloudsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/huangsam/examlens/core/keys"
	"github.com/huangsam/examlens/internal/codec"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
	"go.uber.org/zap"
)

// Local cache keys written after a sync.
const (
	CurrentProjectKey = "CURRENT_PROJECT_KEY"
	CloudSyncAtKey    = "CLOUD_SYNC_AT"
	TeacherSyncAtKey  = "TEACHER_SYNC_AT"
	snapshotPrefix    = "cache_"
)

// Audit actions.
const (
	ActionCloudSync   = "云端同步"
	ActionCloudLoad   = "云端加载"
	ActionTeacherSync = "任课同步"
)

// Operation names used in errors, logs and metrics.
const (
	OpSave         = "save"
	OpLoad         = "load"
	OpSaveTeachers = "save_teachers"
	OpLoadTeachers = "load_teachers"
)

// State is the reconciler's position in Idle, Checking, then an outcome, then Idle.
type State int32

// Reconciler states.
const (
	StateIdle State = iota
	StateChecking
	StateFound
	StateNotFound
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateFound:
		return "found"
	case StateNotFound:
		return "not_found"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Reconciler runs sync operations against a RemoteStore.
// Operations on one Reconciler are expected to run one at a time.
type Reconciler struct {
	meta         contract.MetadataProvider
	store        contract.RemoteStore
	cache        contract.LocalCache
	notifier     contract.Notifier
	audit        contract.AuditLog
	logger       *zap.Logger
	metrics      *Metrics
	now          func() time.Time
	onTransition func(from, to State)
	state        atomic.Int32
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithStore sets the shared store. Without one every operation fails with NotConnected.
func WithStore(store contract.RemoteStore) Option {
	return func(r *Reconciler) { r.store = store }
}

// WithLocalCache sets the cache mirrored after a sync.
func WithLocalCache(cache contract.LocalCache) Option {
	return func(r *Reconciler) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithNotifier sets the sink for loading and user messages.
func WithNotifier(n contract.Notifier) Option {
	return func(r *Reconciler) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithAuditLog sets the audit sink.
func WithAuditLog(a contract.AuditLog) Option {
	return func(r *Reconciler) {
		if a != nil {
			r.audit = a
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records operation counts and latencies.
func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithTransitionHook is called on every state change.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(r *Reconciler) { r.onTransition = fn }
}

// NewReconciler returns a Reconciler. The metadata provider is required; every other
// collaborator is optional.
func NewReconciler(meta contract.MetadataProvider, opts ...Option) (*Reconciler, error) {
	if meta == nil {
		return nil, ErrNoMetadata
	}
	r := &Reconciler{
		meta:     meta,
		cache:    noopCache{},
		notifier: noopNotifier{},
		audit:    noopAudit{},
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("cloudsync")
	return r, nil
}

// State returns the current state.
func (r *Reconciler) State() State {
	return State(r.state.Load())
}

func (r *Reconciler) transition(to State) {
	from := State(r.state.Swap(int32(to)))
	r.logger.Debug("state", zap.Stringer("from", from), zap.Stringer("to", to))
	if r.onTransition != nil {
		r.onTransition(from, to)
	}
}

// run tracks one operation from Checking to its outcome and back to Idle.
type run struct {
	r     *Reconciler
	op    string
	start time.Time
}

func (r *Reconciler) begin(op, message string) *run {
	r.transition(StateChecking)
	r.notifier.Loading(true, message)
	return &run{r: r, op: op, start: time.Now()}
}

// end resolves the loading indicator on every path.
func (o *run) end(status schema.SyncStatus, err error) {
	r := o.r
	r.notifier.Loading(false, "")

	outcome := StateFound
	label := string(status)
	switch {
	case err != nil:
		outcome = StateError
		var se *SyncError
		if errors.As(err, &se) {
			label = string(se.Kind)
		} else {
			label = string(KindBackend)
		}
		r.notifier.Notify(contract.NoticeError, err.Error()+"\n"+Guidance(err))
		r.logger.Warn("sync failed", zap.String("op", o.op), zap.Error(err))
	case status == schema.SyncNotFound:
		outcome = StateNotFound
	}

	r.transition(outcome)
	r.transition(StateIdle)
	r.metrics.observe(o.op, label, time.Since(o.start))
}

func (r *Reconciler) current(ctx context.Context, op string) (schema.SyncContext, error) {
	sc, err := r.meta.Current(ctx)
	if err != nil {
		return sc, newSyncError(op, "", KindConfigIncomplete, fmt.Errorf("read sync context: %w", err))
	}
	return sc, nil
}

func (r *Reconciler) connected(op string) error {
	if r.store == nil {
		return newSyncError(op, "", KindNotConnected, errors.New("no store configured"))
	}
	return nil
}

// bestEffort logs a failed side effect that must not fail the operation.
func (r *Reconciler) bestEffort(what string, err error) {
	if err != nil {
		r.logger.Warn("best-effort step failed", zap.String("step", what), zap.Error(err))
	}
}

func (r *Reconciler) timestamp() string {
	return r.now().Format(time.RFC3339)
}

// Save writes an exam snapshot under the exam's key. The last writer wins.
func (r *Reconciler) Save(ctx context.Context, payload any) (res schema.SyncResult, err error) {
	o := r.begin(OpSave, "syncing exam data")
	defer func() { o.end(res.Status, err) }()

	if err = r.connected(OpSave); err != nil {
		return res, err
	}
	sc, err := r.current(ctx, OpSave)
	if err != nil {
		return res, err
	}
	key, ok := keys.ExamKey(sc.Exam)
	if !ok {
		return res, newSyncError(OpSave, "", KindConfigIncomplete, errors.New("exam metadata needs cohort, year, term and exam type"))
	}

	content, err := codec.Encode(payload)
	if err != nil {
		return res, newSyncError(OpSave, key, KindMalformedPayload, err)
	}
	now := r.now()
	if err = r.store.Upsert(ctx, schema.CloudRecord{Key: key, Content: content, UpdatedAt: now}); err != nil {
		return res, newSyncError(OpSave, key, Classify(err), err)
	}

	r.bestEffort("record current key", r.cache.Set(ctx, CurrentProjectKey, key))
	if raw, merr := json.Marshal(payload); merr != nil {
		r.bestEffort("mirror snapshot", merr)
	} else {
		r.bestEffort("mirror snapshot", r.cache.Set(ctx, snapshotPrefix+key, string(raw)))
	}
	r.bestEffort("record sync time", r.cache.Set(ctx, CloudSyncAtKey, r.timestamp()))
	r.bestEffort("audit", r.audit.Record(ctx, ActionCloudSync, "snapshot saved: "+key))

	msg := "exam data synced: " + key
	r.notifier.Notify(contract.NoticeSuccess, msg)
	r.logger.Info("snapshot saved", zap.String("key", key), zap.Int("bytes", len(content)))
	return schema.SyncResult{Status: schema.SyncSaved, Key: key, Message: msg, UpdatedAt: now}, nil
}

// Load reads the exam snapshot into out. Without exam metadata it falls back to the
// last key saved from this machine. A missing row is a NotFound result, not an error.
func (r *Reconciler) Load(ctx context.Context, out any) (res schema.SyncResult, err error) {
	o := r.begin(OpLoad, "checking cloud data")
	defer func() { o.end(res.Status, err) }()

	if err = r.connected(OpLoad); err != nil {
		return res, err
	}
	sc, err := r.current(ctx, OpLoad)
	if err != nil {
		return res, err
	}
	key, ok := keys.ExamKey(sc.Exam)
	if !ok {
		cached, found, cerr := r.cache.Get(ctx, CurrentProjectKey)
		r.bestEffort("read current key", cerr)
		key, ok = strings.TrimSpace(cached), found && strings.TrimSpace(cached) != ""
	}
	if !ok {
		return res, newSyncError(OpLoad, "", KindConfigIncomplete, errors.New("no exam metadata and no previously synced key"))
	}

	rec, found, err := r.store.Get(ctx, key)
	if err != nil {
		return res, newSyncError(OpLoad, key, Classify(err), err)
	}
	if !found {
		msg := "no cloud data for " + key
		r.notifier.Notify(contract.NoticeInfo, msg)
		return schema.SyncResult{Status: schema.SyncNotFound, Key: key, Message: msg, TriedKeys: []string{key}}, nil
	}
	if out != nil {
		if err = codec.Decode(rec.Content, out); err != nil {
			return res, newSyncError(OpLoad, key, KindMalformedPayload, err)
		}
	}

	r.bestEffort("audit", r.audit.Record(ctx, ActionCloudLoad, "snapshot loaded: "+key))
	msg := "exam data loaded: " + key
	r.notifier.Notify(contract.NoticeSuccess, msg)
	return schema.SyncResult{Status: schema.SyncFound, Key: key, Message: msg, TriedKeys: []string{key}, UpdatedAt: rec.UpdatedAt}, nil
}

// teacherKey resolves the assignment key of the current cohort and term.
func (r *Reconciler) teacherKey(sc schema.SyncContext) (keys.TeacherKeyResult, bool) {
	kr, ok := keys.TeacherKey(cohortOf(sc), sc.TermID)
	if ok && kr.CohortInferred {
		r.logger.Warn("cohort inferred from term id",
			zap.String("termId", sc.TermID), zap.String("cohort", kr.CohortID))
	}
	return kr, ok
}

func cohortOf(sc schema.SyncContext) string {
	if c := strings.TrimSpace(sc.CohortID); c != "" {
		return c
	}
	return strings.TrimSpace(sc.Exam.CohortID)
}

// SaveTeachers writes the assignment table of the current cohort and term, then reads
// the key back. A row that cannot be read back means a policy blocked the write.
func (r *Reconciler) SaveTeachers(ctx context.Context, payload schema.AssignmentPayload) (res schema.SyncResult, err error) {
	o := r.begin(OpSaveTeachers, "syncing teacher assignments")
	defer func() { o.end(res.Status, err) }()

	if err = r.connected(OpSaveTeachers); err != nil {
		return res, err
	}
	sc, err := r.current(ctx, OpSaveTeachers)
	if err != nil {
		return res, err
	}
	kr, ok := r.teacherKey(sc)
	if !ok {
		return res, newSyncError(OpSaveTeachers, "", KindConfigIncomplete, errors.New("cannot determine cohort or term"))
	}
	key := kr.Key
	if len(payload.Map) == 0 {
		return res, newSyncError(OpSaveTeachers, key, KindConfigIncomplete, errors.New("no assignment data"))
	}
	if payload.SchoolMap == nil {
		payload.SchoolMap = map[string]string{}
	}

	content, err := codec.Encode(payload)
	if err != nil {
		return res, newSyncError(OpSaveTeachers, key, KindMalformedPayload, err)
	}
	now := r.now()
	if err = r.store.Upsert(ctx, schema.CloudRecord{Key: key, Content: content, UpdatedAt: now}); err != nil {
		return res, newSyncError(OpSaveTeachers, key, Classify(err), err)
	}

	_, found, verr := r.store.Get(ctx, key)
	switch {
	case verr != nil:
		r.logger.Warn("verify after write failed", zap.String("key", key), zap.Error(verr))
	case !found:
		return res, newSyncError(OpSaveTeachers, key, KindPermissionDenied,
			errors.New("write likely blocked by row-level security: row not readable after upsert"))
	}

	r.bestEffort("record sync time", r.cache.Set(ctx, TeacherSyncAtKey, r.timestamp()))
	r.bestEffort("audit", r.audit.Record(ctx, ActionTeacherSync, "assignments saved: "+key))

	msg := fmt.Sprintf("teacher assignments synced (%s)", key)
	r.notifier.Notify(contract.NoticeSuccess, msg)
	r.logger.Info("assignments saved", zap.String("key", key), zap.Int("entries", len(payload.Map)))
	return schema.SyncResult{Status: schema.SyncSaved, Key: key, Message: msg, TriedKeys: []string{key}, UpdatedAt: now}, nil
}
