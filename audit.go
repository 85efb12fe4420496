package edgeauth

import (
	"io"

	internalaudit "github.com/MrEthical07/edgeauth/internal/audit"
	"go.uber.org/zap"
)

// Audit event types emitted by the engine.
const (
	AuditLoginSuccess         = "login_success"
	AuditLoginFailure         = "login_failure"
	AuditRefreshSuccess       = "refresh_success"
	AuditRefreshFailure       = "refresh_failure"
	AuditRefreshReuseDetected = "refresh_reuse_detected"
	AuditLogout               = "logout"
	AuditRateLimited          = "rate_limited"
	AuditRoleChanged          = "role_changed"
)

// NewChannelSink returns a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink returns a sink that logs events through log.
func NewZapSink(log *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(log)
}
