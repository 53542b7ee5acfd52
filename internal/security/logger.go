package security

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phuslu/log"
)

// Severity of an audit event
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityHigh
)

// SecurityEvent represents a security-relevant event for audit logging
type SecurityEvent struct {
	EventType string
	Severity  Severity
	User      string
	Host      string
	Endpoint  string
	Action    string
	Details   string
	Success   bool
}

// SecurityLogger writes audit events as JSON lines. A nil *SecurityLogger
// is valid and drops everything.
type SecurityLogger struct {
	mu        sync.Mutex
	logger    log.Logger
	closer    io.Closer
	userAgent string
}

// NewSecurityLogger returns a logger writing JSON events to w
func NewSecurityLogger(w io.Writer, userAgent string) *SecurityLogger {
	return &SecurityLogger{
		logger: log.Logger{
			Level:      log.InfoLevel,
			TimeField:  "timestamp",
			TimeFormat: time.RFC3339,
			Writer:     &log.IOWriter{Writer: w},
		},
		userAgent: userAgent,
	}
}

// OpenSecurityLogger opens (or creates with 0600) the audit log at path
func OpenSecurityLogger(path, userAgent string) (*SecurityLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := CreateSecureFileForAppend(path, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create security audit log: %w", err)
	}

	sl := NewSecurityLogger(file, userAgent)
	sl.closer = file
	sl.Log(SecurityEvent{
		EventType: "AUDIT_INIT",
		Action:    "security_audit_logging_initialized",
		Details:   fmt.Sprintf("Security audit logging enabled, log file: %s", path),
		Success:   true,
	})
	return sl, nil
}

// Close flushes a closing event and releases the file
func (sl *SecurityLogger) Close() error {
	if sl == nil {
		return nil
	}
	sl.Log(SecurityEvent{
		EventType: "AUDIT_CLOSE",
		Action:    "security_audit_logging_closed",
		Details:   "Security audit logging session ended",
		Success:   true,
	})
	if sl.closer != nil {
		return sl.closer.Close()
	}
	return nil
}

// Log writes a single event
func (sl *SecurityLogger) Log(event SecurityEvent) {
	if sl == nil {
		return
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	var entry *log.Entry
	switch event.Severity {
	case SeverityHigh:
		entry = sl.logger.Error()
	case SeverityWarning:
		entry = sl.logger.Warn()
	default:
		entry = sl.logger.Info()
	}

	entry = entry.Str("event_type", event.EventType).
		Str("action", event.Action).
		Bool("success", event.Success).
		Str("user_agent", sl.userAgent)
	if event.User != "" {
		entry = entry.Str("user", event.User)
	}
	if event.Host != "" {
		entry = entry.Str("host", event.Host)
	}
	if event.Endpoint != "" {
		entry = entry.Str("endpoint", event.Endpoint)
	}
	entry.Msg(event.Details)
}

// LogHandshakeStarted records the start of a browser handshake
func (sl *SecurityLogger) LogHandshakeStarted(endpoint, handshakeID string) {
	sl.Log(SecurityEvent{
		EventType: "HANDSHAKE",
		Endpoint:  endpoint,
		Action:    "handshake_started",
		Details:   fmt.Sprintf("Authentication handshake %s started", handshakeID),
		Success:   true,
	})
}

// LogHandshakeFinished records the terminal state of a handshake
func (sl *SecurityLogger) LogHandshakeFinished(endpoint, state string, success bool) {
	severity := SeverityInfo
	if !success {
		severity = SeverityWarning
	}
	sl.Log(SecurityEvent{
		EventType: "HANDSHAKE",
		Severity:  severity,
		Endpoint:  endpoint,
		Action:    "handshake_finished",
		Details:   fmt.Sprintf("Authentication handshake ended in state %s", state),
		Success:   success,
	})
}

// LogTokenStored records that an access token was persisted
func (sl *SecurityLogger) LogTokenStored(endpoint string) {
	sl.Log(SecurityEvent{
		EventType: "TOKEN",
		Endpoint:  endpoint,
		Action:    "token_stored",
		Details:   "Access token saved to the keyring",
		Success:   true,
	})
}

// LogTokenDeleted records that an access token was removed
func (sl *SecurityLogger) LogTokenDeleted(endpoint, reason string) {
	sl.Log(SecurityEvent{
		EventType: "TOKEN",
		Endpoint:  endpoint,
		Action:    "token_deleted",
		Details:   fmt.Sprintf("Access token removed from the keyring (%s)", reason),
		Success:   true,
	})
}

// LogInsecureEndpoint records use of a plain-http server URL
func (sl *SecurityLogger) LogInsecureEndpoint(endpoint string) {
	sl.Log(SecurityEvent{
		EventType: "INSECURE_ENDPOINT",
		Severity:  SeverityHigh,
		Endpoint:  endpoint,
		Action:    "insecure_endpoint_used",
		Details:   "Server URL uses http; allowed by explicit override",
		Success:   true,
	})
}

// LogRemoteAuthorized records a successful authorization for a remote
func (sl *SecurityLogger) LogRemoteAuthorized(alias, user, host string, certificate bool) {
	details := fmt.Sprintf("Remote %s authorized", alias)
	if certificate {
		details += " with short-lived certificate"
	}
	sl.Log(SecurityEvent{
		EventType: "REMOTE_AUTHORIZED",
		User:      user,
		Host:      host,
		Action:    "remote_authorized",
		Details:   details,
		Success:   true,
	})
}

// LogTransportLaunched records the outcome of a launched ssh/scp process
func (sl *SecurityLogger) LogTransportLaunched(program, user, host string, exitCode int, launchErr error) {
	severity := SeverityInfo
	details := fmt.Sprintf("%s exited with status %d", program, exitCode)
	if launchErr != nil {
		severity = SeverityWarning
		details = fmt.Sprintf("%s could not be started: %v", program, launchErr)
	}
	sl.Log(SecurityEvent{
		EventType: "TRANSPORT",
		Severity:  severity,
		User:      user,
		Host:      host,
		Action:    "transport_launched",
		Details:   details,
		Success:   launchErr == nil && exitCode == 0,
	})
}
