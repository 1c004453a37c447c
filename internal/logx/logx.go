package logx

import (
	"context"
	"strings"

	"pkt.systems/pslog"
)

type contextKey int

const (
	attemptKey contextKey = iota
	taskKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithTask annotates the logger with a background task name.
func WithTask(log pslog.Logger, task string) pslog.Logger {
	if task != "" {
		log = log.With("task", task)
	}
	return log
}

// WithAttempt annotates the logger with a login attempt id and the email
// being tried. The password is never logged.
func WithAttempt(log pslog.Logger, attemptID, email string) pslog.Logger {
	if attemptID != "" {
		log = log.With("attempt", attemptID)
	}
	if email = strings.TrimSpace(email); email != "" {
		log = log.With("email", email)
	}
	return log
}

// WithState annotates the logger with the login state name.
func WithState(log pslog.Logger, state string) pslog.Logger {
	if state != "" {
		log = log.With("state", state)
	}
	return log
}

// AttemptFromContext returns the login attempt id stored on ctx.
func AttemptFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(attemptKey).(string)
	return id
}

// ContextWithAttempt stores the attempt marker on the context.
func ContextWithAttempt(ctx context.Context, attemptID string) context.Context {
	if ctx == nil || attemptID == "" {
		return ctx
	}
	return context.WithValue(ctx, attemptKey, attemptID)
}

// ContextWithTaskLogger attaches a task-scoped logger and marker to the context.
func ContextWithTaskLogger(ctx context.Context, log pslog.Logger, task string) context.Context {
	if current, ok := ctx.Value(taskKey).(string); !ok || current != task {
		log = WithTask(log, task)
		ctx = context.WithValue(ctx, taskKey, task)
	}
	return pslog.ContextWithLogger(ctx, log)
}
