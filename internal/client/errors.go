package client

import (
	"fmt"
	"net/http"

	gerrors "github.com/derekg/geofront-cli/internal/errors"
)

// Server error codes carried in the "error" field of 4xx/5xx bodies
const (
	CodeInvalidToken             = "invalid-token"
	CodeExpiredToken             = "expired-token"
	CodeTokenNotFound            = "token-not-found"
	CodeUnfinishedAuthentication = "unfinished-authentication"
	CodeHandshakeDenied          = "handshake-denied"
	CodeHandshakeNotFound        = "handshake-not-found"
	CodeNotFound                 = "not-found"
	CodeDuplicateKey             = "duplicate-key"
	CodeConnectionFailure        = "connection-failure"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Endpoint   string
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("server error (%d %s) at %s: %s", e.StatusCode, e.Code, e.Endpoint, msg)
	}
	return fmt.Sprintf("server error (%d) at %s: %s", e.StatusCode, e.Endpoint, msg)
}

// scope tells classify which resource a request addressed, since the same
// status/code pair means different things on different paths.
type scope int

const (
	scopeAccount scope = iota
	scopeHandshake
	scopeRemote
)

// classify maps an API error to an error kind
func classify(e *APIError, sc scope) gerrors.Kind {
	switch {
	case e.StatusCode >= 500:
		return gerrors.KindServerUnavailable
	case e.StatusCode == http.StatusUnauthorized,
		e.Code == CodeInvalidToken,
		e.Code == CodeExpiredToken:
		return gerrors.KindUnauthenticated
	case e.StatusCode == http.StatusPreconditionFailed,
		e.Code == CodeUnfinishedAuthentication:
		return gerrors.KindHandshakeNotFinished
	case e.Code == CodeHandshakeDenied:
		return gerrors.KindHandshakeDenied
	case e.Code == CodeHandshakeNotFound,
		e.Code == CodeTokenNotFound && sc == scopeHandshake:
		return gerrors.KindHandshakeNotFound
	case e.Code == CodeTokenNotFound:
		// a token the server forgot is as good as revoked
		return gerrors.KindUnauthenticated
	case sc == scopeHandshake && (e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone):
		return gerrors.KindHandshakeNotFound
	case sc == scopeRemote && e.StatusCode == http.StatusNotFound:
		return gerrors.KindUnknownAlias
	case e.StatusCode == http.StatusBadRequest && e.Code == CodeDuplicateKey:
		return gerrors.KindDuplicateKey
	default:
		return gerrors.KindProtocol
	}
}
