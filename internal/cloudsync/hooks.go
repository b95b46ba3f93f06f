package cloudsync

import (
	"context"

	"github.com/google/uuid"
	"github.com/huangsam/examlens/internal/contract"
	"go.uber.org/zap"
)

// ZapAudit writes audit events to a structured logger, one id per event.
type ZapAudit struct {
	logger *zap.Logger
}

var _ contract.AuditLog = &ZapAudit{} // Compile-time check

// NewZapAudit returns an AuditLog backed by logger.
func NewZapAudit(logger *zap.Logger) *ZapAudit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAudit{logger: logger.Named("audit")}
}

// Record logs an audit event.
func (a *ZapAudit) Record(_ context.Context, action string, detail string) error {
	a.logger.Info("audit",
		zap.String("id", uuid.NewString()),
		zap.String("action", action),
		zap.String("detail", detail),
	)
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (noopCache) Set(context.Context, string, string) error         { return nil }

type noopNotifier struct{}

func (noopNotifier) Loading(bool, string)                {}
func (noopNotifier) Notify(contract.NoticeLevel, string) {}

type noopAudit struct{}

func (noopAudit) Record(context.Context, string, string) error { return nil }
