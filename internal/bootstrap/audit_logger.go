package bootstrap

import (
	"context"
	"sort"
	"time"

	"go-payroll/internal/shared/contextutil"

	"go.uber.org/zap"
)

// ZapAuditLogger writes audit entries as structured log lines on the "audit"
// logger. Meta keys become top-level fields in key order.
type ZapAuditLogger struct {
	log *zap.Logger
	now func() time.Time
}

func NewZapAuditLogger(logger *zap.Logger) *ZapAuditLogger {
	if logger == nil {
		logger = zap.L()
	}
	return &ZapAuditLogger{
		log: logger.Named("audit"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (l *ZapAuditLogger) Log(ctx context.Context, entry AuditLog) {
	fields := make([]zap.Field, 0, len(entry.Meta)+3)
	fields = append(fields,
		zap.String("timestamp", l.now().Format(time.RFC3339)),
		zap.String("action", entry.Action),
	)
	if _, ok := entry.Meta["request_id"]; !ok {
		if rid := contextutil.GetRequestID(ctx); rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
	}

	keys := make([]string, 0, len(entry.Meta))
	for k := range entry.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, entry.Meta[k]))
	}

	l.log.Info(entry.Message, fields...)
}
