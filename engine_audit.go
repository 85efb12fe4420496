package edgeauth

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        ClientIPFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = string(auditErrorCode(err))
	}

	e.audit.Emit(ctx, event)
}

// auditDropped counts an event the dispatcher gave up on. Only the first drop and
// every 1000th after it are logged.
func (e *Engine) auditDropped(event AuditEvent, total uint64) {
	e.metricInc(MetricAuditDropped)
	if total == 1 || total%1000 == 0 {
		e.log.Warn("audit events dropped",
			zap.String("last_event", event.EventType),
			zap.Uint64("total", total),
		)
	}
}

func (e *Engine) emitRateLimit(ctx context.Context, class RateClass, ip, userID string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, AuditRateLimited, false, userID, "", ErrRateLimited, func() map[string]string {
		return map[string]string{
			"class": string(class),
			"ip":    ip,
		}
	})
}

// auditErrorCode reduces err to an engine code. Anything outside the taxonomy is
// reported as internal_error so raw messages never reach audit sinks.
func auditErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
