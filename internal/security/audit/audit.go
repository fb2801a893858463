package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

type requestIDKey struct{}

// WithRequestID stores the request id used to correlate audit lines
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, if any
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Logger mirrors registry audit entries and access decisions to the structured log
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("stream", "audit"))}
}

func (al *Logger) LogAction(ctx context.Context, userID string, role domain.Role, action, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("role", string(role)),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

// LogEntry mirrors a committed registry audit entry
func (al *Logger) LogEntry(ctx context.Context, entry domain.AuditLog) {
	al.LogAction(ctx, entry.UserID, entry.Role, string(entry.Action), entry.TargetID, "committed", entry.Details)
}

// LogRequest records an inbound mutating request before it is handled
func (al *Logger) LogRequest(ctx context.Context, user *domain.User, method, path string) {
	if user == nil {
		al.LogAction(ctx, "", "", method+" "+path, "", "initiated", "")
		return
	}
	al.LogAction(ctx, user.ID, user.Role, method+" "+path, "", "initiated", "")
}

func (al *Logger) LogDenied(ctx context.Context, user *domain.User, action, reason string) {
	if user == nil {
		al.LogAction(ctx, "", "", action, "", "denied", reason)
		return
	}
	al.LogAction(ctx, user.ID, user.Role, action, "", "denied", reason)
}
