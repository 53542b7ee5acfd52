package errors

import (
	stderrors "errors"
	"fmt"
	"log"
)

// Kind classifies errors produced by geofront-cli
type Kind int

const (
	KindUnknown Kind = iota
	KindUsage
	KindConfiguration
	KindServerUnavailable
	KindUnauthenticated
	KindHandshakeNotFinished
	KindHandshakeNotFound
	KindHandshakeDenied
	KindHandshakeTimedOut
	KindHandshakeFailed
	KindProtocol
	KindUnknownAlias
	KindDuplicateKey
	KindTransportLaunch
	KindAborted
)

// Sentinel values, one per kind. Any *Error matches the sentinel of its
// kind under errors.Is.
var (
	ErrUsage                = stderrors.New("invalid usage")
	ErrConfiguration        = stderrors.New("configuration error")
	ErrServerUnavailable    = stderrors.New("server unavailable")
	ErrUnauthenticated      = stderrors.New("authentication required")
	ErrHandshakeNotFinished = stderrors.New("authentication not finished yet")
	ErrHandshakeNotFound    = stderrors.New("authentication session not found or expired")
	ErrHandshakeDenied      = stderrors.New("authentication denied")
	ErrHandshakeTimedOut    = stderrors.New("authentication timed out")
	ErrHandshakeFailed      = stderrors.New("authentication failed")
	ErrProtocol             = stderrors.New("protocol error")
	ErrUnknownAlias         = stderrors.New("unknown remote alias")
	ErrDuplicateKey         = stderrors.New("public key already registered")
	ErrTransportLaunch      = stderrors.New("failed to launch transport")
	ErrAborted              = stderrors.New("aborted")
)

var sentinels = map[Kind]error{
	KindUsage:                ErrUsage,
	KindConfiguration:        ErrConfiguration,
	KindServerUnavailable:    ErrServerUnavailable,
	KindUnauthenticated:      ErrUnauthenticated,
	KindHandshakeNotFinished: ErrHandshakeNotFinished,
	KindHandshakeNotFound:    ErrHandshakeNotFound,
	KindHandshakeDenied:      ErrHandshakeDenied,
	KindHandshakeTimedOut:    ErrHandshakeTimedOut,
	KindHandshakeFailed:      ErrHandshakeFailed,
	KindProtocol:             ErrProtocol,
	KindUnknownAlias:         ErrUnknownAlias,
	KindDuplicateKey:         ErrDuplicateKey,
	KindTransportLaunch:      ErrTransportLaunch,
	KindAborted:              ErrAborted,
}

// Exit codes. Values follow sysexits(3) where one fits.
const (
	ExitOK                = 0
	ExitUnknown           = 1
	ExitUsage             = 2
	ExitConfiguration     = 64
	ExitUnknownAlias      = 68
	ExitServerUnavailable = 69
	ExitTransportLaunch   = 71
	ExitProtocol          = 76
	ExitUnauthenticated   = 77
	ExitHandshakeDenied   = 78
	ExitHandshakeTimedOut = 79
	ExitHandshakeFailed   = 80
	ExitDuplicateKey      = 81
	ExitAborted           = 130
)

var exitCodes = map[Kind]int{
	KindUnknown:              ExitUnknown,
	KindUsage:                ExitUsage,
	KindConfiguration:        ExitConfiguration,
	KindServerUnavailable:    ExitServerUnavailable,
	KindUnauthenticated:      ExitUnauthenticated,
	KindHandshakeNotFinished: ExitHandshakeFailed,
	KindHandshakeNotFound:    ExitHandshakeFailed,
	KindHandshakeDenied:      ExitHandshakeDenied,
	KindHandshakeTimedOut:    ExitHandshakeTimedOut,
	KindHandshakeFailed:      ExitHandshakeFailed,
	KindProtocol:             ExitProtocol,
	KindUnknownAlias:         ExitUnknownAlias,
	KindDuplicateKey:         ExitDuplicateKey,
	KindTransportLaunch:      ExitTransportLaunch,
	KindAborted:              ExitAborted,
}

// Error represents a structured error with operation context and kind
type Error struct {
	Op      string // Operation that failed (e.g., "list remotes", "poll handshake")
	Kind    Kind   // Error classification
	Err     error  // Underlying error
	Context string // Additional context (optional)
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Context != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Context, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap returns the underlying error for error wrapping support
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's kind
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && target == s
}

// New creates an error of the given kind for an operation
func New(kind Kind, op string, err error) *Error {
	if err == nil {
		err = sentinels[kind]
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Newf creates an error of the given kind with a formatted message
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WithContext returns a copy of e carrying additional context
func (e *Error) WithContext(format string, args ...interface{}) *Error {
	c := *e
	c.Context = fmt.Sprintf(format, args...)
	return &c
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	for kind, s := range sentinels {
		if stderrors.Is(err, s) {
			return kind
		}
	}
	return KindUnknown
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	s, ok := sentinels[kind]
	if !ok {
		return false
	}
	return stderrors.Is(err, s)
}

// ExitCode maps an error chain to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if code, ok := exitCodes[KindOf(err)]; ok {
		return code
	}
	return ExitUnknown
}

// String returns the upper-case name of the kind
func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "USAGE"
	case KindConfiguration:
		return "CONFIGURATION"
	case KindServerUnavailable:
		return "SERVER_UNAVAILABLE"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindHandshakeNotFinished:
		return "HANDSHAKE_NOT_FINISHED"
	case KindHandshakeNotFound:
		return "HANDSHAKE_NOT_FOUND"
	case KindHandshakeDenied:
		return "HANDSHAKE_DENIED"
	case KindHandshakeTimedOut:
		return "HANDSHAKE_TIMED_OUT"
	case KindHandshakeFailed:
		return "HANDSHAKE_FAILED"
	case KindProtocol:
		return "PROTOCOL"
	case KindUnknownAlias:
		return "UNKNOWN_ALIAS"
	case KindDuplicateKey:
		return "DUPLICATE_KEY"
	case KindTransportLaunch:
		return "TRANSPORT_LAUNCH"
	case KindAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// ErrorHandler provides standardized error reporting across the application
type ErrorHandler struct {
	logger *log.Logger
	debug  bool
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *log.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
		debug:  debug,
	}
}

// Handle returns the exit code the process should use for err. The
// user-facing message is rendered by the command runner (fang prints the
// returned error to stderr); in debug mode the kind is logged as well so a
// failure can be matched to its exit code. A nil error yields ExitOK.
func (eh *ErrorHandler) Handle(err error) int {
	if err == nil {
		return ExitOK
	}

	code := ExitCode(err)
	if eh.debug {
		eh.logger.Printf("[%s] %s (exit %d)", KindOf(err), err.Error(), code)
	}
	return code
}

// Helper functions for creating common error types

// NewServerUnavailableError creates an error for network failures and 5xx responses
func NewServerUnavailableError(op string, err error) *Error {
	return New(KindServerUnavailable, op, err)
}

// NewProtocolError creates a protocol/payload mismatch error
func NewProtocolError(op, format string, args ...interface{}) *Error {
	return Newf(KindProtocol, op, format, args...)
}

// NewUnknownAliasError creates an error for an alias the server does not know
func NewUnknownAliasError(alias string, err error) *Error {
	e := New(KindUnknownAlias, "resolve remote", err)
	e.Context = fmt.Sprintf("alias: %s", alias)
	return e
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(op string, err error) *Error {
	return New(KindConfiguration, op, err)
}

// NewTransportLaunchError creates an error for a transport binary that could not be started
func NewTransportLaunchError(program string, err error) *Error {
	e := New(KindTransportLaunch, "launch transport", err)
	e.Context = fmt.Sprintf("program: %s", program)
	return e
}

// NewUsageError creates a usage error with a formatted message
func NewUsageError(format string, args ...interface{}) *Error {
	return Newf(KindUsage, "usage", format, args...)
}
