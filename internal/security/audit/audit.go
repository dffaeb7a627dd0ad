package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger emits structured audit events for operator-facing actions
// (issuance, cancellation, barrier decisions). This is the operational
// audit trail in the logs; the durable passage ledger lives in
// barrier_access_logs.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, complexID, userID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID := ctx.Value("request_id"); reqID != nil {
		requestID = reqID.(string)
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("complex_id", complexID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogIssue(ctx context.Context, complexID, userID, credentialID, status, details string) {
	al.LogAction(ctx, complexID, userID, "issue", "guest_credential", credentialID, status, details)
}

func (al *Logger) LogCancel(ctx context.Context, complexID, userID, credentialID, status, details string) {
	al.LogAction(ctx, complexID, userID, "cancel", "guest_credential", credentialID, status, details)
}

func (al *Logger) LogDecision(ctx context.Context, complexID, barrierID, credentialID, outcome, reason string) {
	al.LogAction(ctx, complexID, "", "validate", "barrier:"+barrierID, credentialID, outcome, reason)
}
