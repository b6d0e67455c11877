package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventLogin           = "login"
	EventResetRequested  = "password_reset_requested"
	EventResetConfirmed  = "password_reset_confirmed"
	EventPasswordChange  = "password_change"
	EventPasswordUpgrade = "password_upgrade"
	EventUserCreated     = "user_created"
	EventUserUpdated     = "user_updated"
	EventUserDeleted     = "user_deleted"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Username      string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality. A nil *AuditLogger
// discards every event.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

func (al *AuditLogger) emit(auditType string, event AuditEvent) {
	if al == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Username != "" {
		attrs = append(attrs, slog.String("username", event.Username))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogAuthAttempt logs authentication attempts
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	if event.EventType == "" {
		event.EventType = EventLogin
	}
	al.emit("auth", event)
}

// LogPasswordChange logs password change events. eventType is one of the
// password event constants.
func (al *AuditLogger) LogPasswordChange(eventType, userID, username string, success bool, reason string) {
	al.emit("password", AuditEvent{
		EventType:     eventType,
		UserID:        userID,
		Username:      username,
		Success:       success,
		FailureReason: reason,
	})
}

// LogAccountAction logs general account actions
func (al *AuditLogger) LogAccountAction(eventType, userID string, metadata map[string]string) {
	al.emit("account", AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Success:   true,
		Metadata:  metadata,
	})
}
