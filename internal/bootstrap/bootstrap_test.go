package bootstrap

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"go-payroll/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditLog
}

func (a *recordingAudit) Log(_ context.Context, entry AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func TestZapAuditLogger_Log(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewZapAuditLogger(zap.New(core))
	l.now = func() time.Time { return time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC) }

	ctx := contextutil.WithRequestID(context.Background(), "rid-7")
	l.Log(ctx, AuditLog{
		Action:  "PAYMENT_SETTLED",
		Message: "payment PAY-1 of 500000 settled on payslip 7",
		Meta:    map[string]any{"payslip_id": int64(7), "amount": int64(500000)},
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "audit", entry.LoggerName)
	assert.Equal(t, "payment PAY-1 of 500000 settled on payslip 7", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "PAYMENT_SETTLED", fields["action"])
	assert.Equal(t, "2026-10-01T09:30:00Z", fields["timestamp"])
	assert.Equal(t, "rid-7", fields["request_id"])
	assert.Equal(t, int64(7), fields["payslip_id"])
	assert.Equal(t, int64(500000), fields["amount"])
}

func TestZapAuditLogger_MetaRequestIDWins(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewZapAuditLogger(zap.New(core))

	ctx := contextutil.WithRequestID(context.Background(), "from-ctx")
	l.Log(ctx, AuditLog{Action: "PAYMENT_SETTLED", Meta: map[string]any{"request_id": "from-event"}})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "from-event", logs.All()[0].ContextMap()["request_id"])
}

func TestRunHTTPServer_ShutsDownOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audit := &recordingAudit{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- RunHTTPServer(ctx, gin.New(), ServerConfig{Port: "0", ShutdownTimeout: time.Second}, audit)
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	require.Len(t, audit.entries, 1)
	assert.Equal(t, ServerShutdownAuditAction, audit.entries[0].Action)
	assert.Equal(t, context.Canceled.Error(), audit.entries[0].Meta["reason"])
}

func TestRunHTTPServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	audit := &recordingAudit{}
	err = RunHTTPServer(context.Background(), gin.New(), ServerConfig{Port: port}, audit)

	var opErr *net.OpError
	assert.True(t, errors.As(err, &opErr), "got %v", err)
	assert.Empty(t, audit.entries)
}
