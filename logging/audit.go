package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType represents the type of audit event
type AuditEventType string

const (
	AuditOrderSubmitted     AuditEventType = "order_submitted"
	AuditOrderFilled        AuditEventType = "order_filled"
	AuditOrderCanceled      AuditEventType = "order_canceled"
	AuditOrderRejected      AuditEventType = "order_rejected"
	AuditAuthentication     AuditEventType = "authentication"
	AuditAuthenticationFail AuditEventType = "authentication_failed"
	AuditAdminAction        AuditEventType = "admin_action"
	AuditSymbolReload       AuditEventType = "symbol_reload"
)

// AuditEvent represents a single audit trail entry
type AuditEvent struct {
	EventID     string                 `json:"event_id"`
	Timestamp   time.Time              `json:"timestamp"`
	EventType   AuditEventType         `json:"event_type"`
	AdminUser   string                 `json:"admin_user,omitempty"`
	SenderID    string                 `json:"sender_id,omitempty"`
	IPAddress   string                 `json:"ip_address,omitempty"`
	Action      string                 `json:"action"`
	Resource    string                 `json:"resource,omitempty"`
	ResourceID  string                 `json:"resource_id,omitempty"`
	Before      map[string]interface{} `json:"before,omitempty"`
	After       map[string]interface{} `json:"after,omitempty"`
	Status      string                 `json:"status"` // success, failed, denied
	Reason      string                 `json:"reason,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Compliance  bool                   `json:"compliance"` // Flag for regulatory compliance
	Environment string                 `json:"environment"`
	SessionID   string                 `json:"session_id,omitempty"`
}

// AuditLogger handles audit trail logging. Events are buffered in memory
// and written to the audit file when 100 are pending, every 5 seconds,
// and on Close; events still buffered when the process exits without
// Close are not written.
type AuditLogger struct {
	mu          sync.Mutex
	file        *os.File
	encoder     *json.Encoder
	filePath    string
	rotateSize  int64 // Max file size before rotation
	currentSize int64
	buffer      []*AuditEvent
	bufferSize  int
	flushTicker *time.Ticker
	stopChan    chan struct{}
	environment string
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(auditDir string) (*AuditLogger, error) {
	if err := os.MkdirAll(auditDir, 0755); err != nil {
		return nil, err
	}

	filePath := filepath.Join(auditDir, "audit.log")
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	stat, _ := file.Stat()

	al := &AuditLogger{
		file:        file,
		encoder:     json.NewEncoder(file),
		filePath:    filePath,
		rotateSize:  100 * 1024 * 1024, // 100MB
		currentSize: stat.Size(),
		buffer:      make([]*AuditEvent, 0, 100),
		bufferSize:  100,
		flushTicker: time.NewTicker(5 * time.Second),
		stopChan:    make(chan struct{}),
		environment: getEnvironment(),
	}

	// Start auto-flush goroutine
	go al.autoFlush()

	return al, nil
}

// LogOrderSubmitted logs an accepted or rejected NewOrderSingle.
func (al *AuditLogger) LogOrderSubmitted(ctx context.Context, orderID, clOrdID, senderID, symbol, side string, qty int64, orderType string, accepted bool, reason string) {
	status := "success"
	if !accepted {
		status = "denied"
	}
	al.logEvent(ctx, &AuditEvent{
		EventID:    generateEventID(),
		EventType:  AuditOrderSubmitted,
		Action:     "submit_order",
		Resource:   "order",
		ResourceID: orderID,
		SenderID:   senderID,
		Status:     status,
		Reason:     reason,
		Metadata: map[string]interface{}{
			"cl_ord_id":  clOrdID,
			"symbol":     symbol,
			"side":       side,
			"quantity":   qty,
			"order_type": orderType,
		},
		Compliance: true,
	})
}

// LogOrderFilled logs a fill transition, full or partial.
func (al *AuditLogger) LogOrderFilled(ctx context.Context, orderID, senderID string, execQty int64, execPrice string, cumQty, leavesQty int64) {
	al.logEvent(ctx, &AuditEvent{
		EventID:    generateEventID(),
		EventType:  AuditOrderFilled,
		Action:     "fill_order",
		Resource:   "order",
		ResourceID: orderID,
		SenderID:   senderID,
		Status:     "success",
		Metadata: map[string]interface{}{
			"exec_quantity": execQty,
			"exec_price":    execPrice,
			"cum_qty":       cumQty,
			"leaves_qty":    leavesQty,
		},
		Compliance: true,
	})
}

// LogOrderCanceled logs a cancel transition, whether FIX-originated or
// administrative.
func (al *AuditLogger) LogOrderCanceled(ctx context.Context, orderID, senderID, reason string) {
	al.logEvent(ctx, &AuditEvent{
		EventID:    generateEventID(),
		EventType:  AuditOrderCanceled,
		Action:     "cancel_order",
		Resource:   "order",
		ResourceID: orderID,
		SenderID:   senderID,
		Status:     "success",
		Reason:     reason,
		Compliance: true,
	})
}

// LogOrderRejected logs an administrative reject.
func (al *AuditLogger) LogOrderRejected(ctx context.Context, orderID, senderID, reason string) {
	al.logEvent(ctx, &AuditEvent{
		EventID:    generateEventID(),
		EventType:  AuditOrderRejected,
		Action:     "reject_order",
		Resource:   "order",
		ResourceID: orderID,
		SenderID:   senderID,
		Status:     "success",
		Reason:     reason,
		Compliance: true,
	})
}

// LogAuthentication logs a successful admin API authentication.
func (al *AuditLogger) LogAuthentication(ctx context.Context, adminUser, ipAddress string) {
	al.logEvent(ctx, &AuditEvent{
		EventID:   generateEventID(),
		EventType: AuditAuthentication,
		Action:    "login",
		AdminUser: adminUser,
		IPAddress: ipAddress,
		Status:    "success",
	})
}

// LogAuthenticationFailed logs a failed admin API authentication attempt.
func (al *AuditLogger) LogAuthenticationFailed(ctx context.Context, username, ipAddress, reason string) {
	al.logEvent(ctx, &AuditEvent{
		EventID:   generateEventID(),
		EventType: AuditAuthenticationFail,
		Action:    "login_failed",
		IPAddress: ipAddress,
		Status:    "failed",
		Reason:    reason,
		Metadata: map[string]interface{}{
			"username": username,
		},
	})
}

// LogAdminAction logs an administrative command (§6's submit_fill /
// submit_cancel / submit_reject / reload_symbols).
func (al *AuditLogger) LogAdminAction(ctx context.Context, adminUser, action, resource, resourceID string, before, after map[string]interface{}) {
	al.logEvent(ctx, &AuditEvent{
		EventID:    generateEventID(),
		EventType:  AuditAdminAction,
		AdminUser:  adminUser,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Before:     before,
		After:      after,
		Status:     "success",
		Compliance: true,
	})
}

// LogSymbolReload logs a symbol universe reload.
func (al *AuditLogger) LogSymbolReload(ctx context.Context, adminUser string, count int) {
	al.logEvent(ctx, &AuditEvent{
		EventID:   generateEventID(),
		EventType: AuditSymbolReload,
		AdminUser: adminUser,
		Action:    "reload_symbols",
		Resource:  "symbol_registry",
		Status:    "success",
		Metadata: map[string]interface{}{
			"symbol_count": count,
		},
		Compliance: true,
	})
}

// logEvent writes an audit event to the log
func (al *AuditLogger) logEvent(ctx context.Context, event *AuditEvent) {
	// Enrich event with context data
	event.Timestamp = time.Now().UTC()
	event.Environment = al.environment

	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		event.SessionID = sessionID
	}

	if event.AdminUser == "" {
		if adminUser, ok := ctx.Value(adminUserKey).(string); ok {
			event.AdminUser = adminUser
		}
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	// Add to buffer
	al.buffer = append(al.buffer, event)

	// Flush if buffer is full
	if len(al.buffer) >= al.bufferSize {
		al.flush()
	}
}

// flush writes buffered events to disk
func (al *AuditLogger) flush() {
	if len(al.buffer) == 0 {
		return
	}

	for _, event := range al.buffer {
		if err := al.encoder.Encode(event); err == nil {
			// Estimate size (rough approximation)
			al.currentSize += 500
		}
	}

	al.file.Sync() // Force write to disk
	al.buffer = al.buffer[:0]

	// Check if rotation is needed
	if al.currentSize >= al.rotateSize {
		al.rotate()
	}
}

// autoFlush periodically flushes the buffer
func (al *AuditLogger) autoFlush() {
	for {
		select {
		case <-al.flushTicker.C:
			al.mu.Lock()
			al.flush()
			al.mu.Unlock()
		case <-al.stopChan:
			return
		}
	}
}

// rotate rotates the log file
func (al *AuditLogger) rotate() {
	al.file.Close()

	// Rename current file with timestamp
	timestamp := time.Now().Format("20060102-150405")
	rotatedPath := al.filePath + "." + timestamp
	os.Rename(al.filePath, rotatedPath)

	// Create new file
	file, err := os.OpenFile(al.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}

	al.file = file
	al.encoder = json.NewEncoder(file)
	al.currentSize = 0
}

// Close flushes and closes the audit logger
func (al *AuditLogger) Close() error {
	close(al.stopChan)
	al.flushTicker.Stop()

	al.mu.Lock()
	defer al.mu.Unlock()

	al.flush()
	return al.file.Close()
}

// generateEventID generates a unique event ID
func generateEventID() string {
	return fmt.Sprintf("audit-%d", time.Now().UnixNano())
}
