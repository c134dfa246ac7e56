package logging

import "context"

// Field represents a log field that can be added to a log entry
type Field interface {
	Apply(entry *LogEntry)
}

// fieldFunc wraps a function as a Field
type fieldFunc func(*LogEntry)

func (f fieldFunc) Apply(entry *LogEntry) {
	f(entry)
}

// Common field constructors

func SessionID(id string) Field {
	return fieldFunc(func(e *LogEntry) {
		e.SessionID = id
	})
}

func SenderID(id string) Field {
	return fieldFunc(func(e *LogEntry) {
		e.SenderID = id
	})
}

func AdminUser(id string) Field {
	return fieldFunc(func(e *LogEntry) {
		e.AdminUser = id
	})
}

func ClOrdID(id string) Field {
	return fieldFunc(func(e *LogEntry) {
		e.ClOrdID = id
	})
}

func String(key, value string) Field {
	return fieldFunc(func(e *LogEntry) {
		if e.Extra == nil {
			e.Extra = make(map[string]interface{})
		}
		e.Extra[key] = value
	})
}

func Int(key string, value int) Field {
	return fieldFunc(func(e *LogEntry) {
		if e.Extra == nil {
			e.Extra = make(map[string]interface{})
		}
		e.Extra[key] = value
	})
}

func Int64(key string, value int64) Field {
	return fieldFunc(func(e *LogEntry) {
		if e.Extra == nil {
			e.Extra = make(map[string]interface{})
		}
		e.Extra[key] = value
	})
}

// Context keys for storing values in context

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	adminUserKey contextKey = "admin_user"
)

// Context helpers

func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func ContextWithAdminUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, adminUserKey, user)
}

func FieldsFromContext(ctx context.Context) []Field {
	var fields []Field

	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok && sessionID != "" {
		fields = append(fields, SessionID(sessionID))
	}

	if adminUser, ok := ctx.Value(adminUserKey).(string); ok && adminUser != "" {
		fields = append(fields, AdminUser(adminUser))
	}

	return fields
}
