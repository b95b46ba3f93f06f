package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/huangsam/examlens/internal/cloudsync"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/internal/iocache"
	"github.com/huangsam/examlens/internal/outwriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newReconciler wires the configured stores, notifier, audit log and metrics.
func newReconciler() *cloudsync.Reconciler {
	r, err := cloudsync.NewReconciler(contract.StaticMetadata(cfg.Sync),
		cloudsync.WithStore(iocache.Manager.GetRemoteStore()),
		cloudsync.WithLocalCache(iocache.Manager.GetLocalStore()),
		cloudsync.WithNotifier(contract.ConsoleNotifier{W: os.Stderr, UseColors: cfg.UseColors}),
		cloudsync.WithAuditLog(cloudsync.NewZapAudit(logger)),
		cloudsync.WithLogger(logger),
		cloudsync.WithMetrics(syncMetrics),
		cloudsync.WithTransitionHook(func(from, to cloudsync.State) {
			logger.Debug("sync state", zap.Stringer("from", from), zap.Stringer("to", to))
		}),
	)
	if err != nil {
		contract.LogFatal("Cannot create reconciler", err)
	}
	return r
}

// syncFatal prints the failure with its recovery guidance and exits.
func syncFatal(msg string, err error) {
	if hint := cloudsync.Guidance(err); hint != "" {
		_, _ = fmt.Fprintln(os.Stderr, hint)
	}
	_ = writeMetricsTextfile()
	contract.LogFatal(msg, err)
}

// syncContext bounds one store operation by --timeout.
func syncContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(rootCtx, cfg.Timeout)
}

// syncCmd groups the shared-store operations.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Save and load exam snapshots and teacher tables in the shared store",
	Long: `Synchronize with the shared system_data store.

Exam snapshots are keyed by cohort, grade, year, term, exam type and name.
Teacher tables are keyed by cohort and term. Content is compressed on write
and both compressed and plain JSON are accepted on read.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  save     - Upload an exam snapshot (last writer wins)
  load     - Download the exam snapshot
  teachers - Save or load teacher assignment tables`,
}

// syncSaveCmd uploads an exam snapshot.
var syncSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Upload an exam snapshot",
	Long: `Upload a JSON snapshot under the configured exam's key, replacing any previous one.

Examples:
  examlens sync save --payload exam.json --cohort 2023 --grade 9 --year 2025 --term 上学期 --exam-type 期中`,
	PreRunE: syncSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		raw, err := os.ReadFile(payloadPath)
		if err != nil {
			contract.LogFatal("Cannot read payload", err)
		}
		if !json.Valid(raw) {
			contract.LogFatal("Cannot read payload", fmt.Errorf("%s is not valid JSON", payloadPath))
		}

		ctx, cancel := syncContext()
		defer cancel()
		res, err := newReconciler().Save(ctx, json.RawMessage(raw))
		if err != nil {
			syncFatal("Cannot save exam snapshot", err)
		}
		if err := outwriter.NewOutWriter().WriteSync(res, cfg); err != nil {
			contract.LogFatal("Cannot write sync result", err)
		}
	},
}

// syncLoadCmd downloads an exam snapshot.
var syncLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Download the exam snapshot",
	Long: `Download the configured exam's snapshot. Without exam metadata the last key
saved from this machine is used.

Examples:
  examlens sync load --cohort 2023 --grade 9 --year 2025 --term 上学期 --exam-type 期中 --payload exam.json`,
	PreRunE: syncSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, cancel := syncContext()
		defer cancel()

		var snapshot json.RawMessage
		res, err := newReconciler().Load(ctx, &snapshot)
		if err != nil {
			syncFatal("Cannot load exam snapshot", err)
		}
		if payloadPath != "" && len(snapshot) > 0 {
			if err := os.WriteFile(payloadPath, snapshot, 0o644); err != nil {
				contract.LogFatal("Cannot write snapshot", err)
			}
		}
		if err := outwriter.NewOutWriter().WriteSync(res, cfg); err != nil {
			contract.LogFatal("Cannot write sync result", err)
		}
	},
}

// syncTeachersCmd groups teacher table operations.
var syncTeachersCmd = &cobra.Command{
	Use:   "teachers",
	Short: "Save or load teacher assignment tables",
}

// syncTeachersSaveCmd uploads a teacher assignment table.
var syncTeachersSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Upload the teacher assignment table of the configured term",
	Long: `Upload an assignment table under the key built from --cohort and --term-id.
Without --cohort the cohort is inferred from the grade in the term id.

Examples:
  examlens sync teachers save --assignments teachers.yaml --term-id 2025-2026_上学期_9年级`,
	PreRunE: syncSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		payload, err := newLoader().Assignments(assignmentsPath)
		if err != nil {
			contract.LogFatal("Cannot load assignments", err)
		}

		ctx, cancel := syncContext()
		defer cancel()
		res, err := newReconciler().SaveTeachers(ctx, payload)
		if err != nil {
			syncFatal("Cannot save teacher assignments", err)
		}
		if err := outwriter.NewOutWriter().WriteSync(res, cfg); err != nil {
			contract.LogFatal("Cannot write sync result", err)
		}
	},
}

// syncTeachersLoadCmd downloads the best matching teacher assignment table.
var syncTeachersLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Download the teacher assignment table of the configured term",
	Long: `Search the store for the assignment table, from the exact key to the most
recent table of any term. A teacher user prefers a table naming them.

Examples:
  examlens sync teachers load --cohort 2022 --term-id 2025-2026_上学期_9年级 --output json`,
	PreRunE: syncSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, cancel := syncContext()
		defer cancel()
		res, err := newReconciler().LoadTeachers(ctx)
		if err != nil {
			syncFatal("Cannot load teacher assignments", err)
		}
		if err := outwriter.NewOutWriter().WriteTeacherLoad(res, cfg); err != nil {
			contract.LogFatal("Cannot write teacher assignments", err)
		}
	},
}
