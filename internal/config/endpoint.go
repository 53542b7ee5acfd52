package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Endpoint is a validated server base URL. The zero value is not usable.
type Endpoint struct {
	u *url.URL
}

// ErrInsecureEndpoint is returned for http URLs when the insecure override is not set.
var ErrInsecureEndpoint = errors.New("server URL must use https (set " + EnvAllowInsecure + "=1 to allow http)")

// ParseEndpoint validates raw as a server base URL. Only https is accepted
// unless allowInsecure is true, in which case http is accepted too.
func ParseEndpoint(raw string, allowInsecure bool) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, errors.NotValidf("empty server URL")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, errors.Annotatef(err, "parsing server URL %q", raw)
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		if !allowInsecure {
			return Endpoint{}, errors.Trace(ErrInsecureEndpoint)
		}
	default:
		return Endpoint{}, errors.NotValidf("server URL %q (scheme must be https)", raw)
	}

	if u.Host == "" || u.Hostname() == "" {
		return Endpoint{}, errors.NotValidf("server URL %q (missing host)", raw)
	}
	if u.User != nil {
		return Endpoint{}, errors.NotValidf("server URL %q (credentials are not allowed)", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return Endpoint{}, errors.NotValidf("server URL %q (query and fragment are not allowed)", raw)
	}
	if port := u.Port(); port != "" {
		if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
			return Endpoint{}, errors.NotValidf("server URL %q (bad port)", raw)
		}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawPath = ""

	return Endpoint{u: u}, nil
}

// String returns the normalised URL. It is also the keyring key for the token.
func (e Endpoint) String() string {
	if e.u == nil {
		return ""
	}
	return e.u.String()
}

// IsZero reports whether e was never set
func (e Endpoint) IsZero() bool {
	return e.u == nil
}

// Insecure reports whether the endpoint uses plain http
func (e Endpoint) Insecure() bool {
	return e.u != nil && e.u.Scheme == "http"
}

// Host returns the host[:port] part of the endpoint
func (e Endpoint) Host() string {
	if e.u == nil {
		return ""
	}
	return e.u.Host
}

// Resolve joins a relative API path such as "remotes/web-1/authorize" onto
// the endpoint. Each segment is escaped individually.
func (e Endpoint) Resolve(path string, segments ...string) string {
	if e.u == nil {
		return ""
	}
	rel := strings.TrimPrefix(path, "/")
	for _, s := range segments {
		if rel != "" && !strings.HasSuffix(rel, "/") {
			rel += "/"
		}
		rel += url.PathEscape(s)
	}
	ref, err := url.Parse(rel)
	if err != nil {
		return e.u.String() + rel
	}
	return e.u.ResolveReference(ref).String()
}

// AllowInsecureFromEnv reports whether the insecure override is switched on
func AllowInsecureFromEnv() bool {
	return truthy(os.Getenv(EnvAllowInsecure))
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	}
	return false
}

// InsecureWarning is the message shown whenever an http endpoint is used
func InsecureWarning(e Endpoint) string {
	return fmt.Sprintf("warning: %s is not using https; the access token is sent in clear text", e)
}

// AuditLogFromEnv returns the audit log path when auditing is switched on
// through the environment. An explicit path implies auditing.
func AuditLogFromEnv(dir string) (string, bool) {
	if path := strings.TrimSpace(os.Getenv(EnvAuditLog)); path != "" {
		return path, true
	}
	if truthy(os.Getenv(EnvAudit)) {
		return filepath.Join(dir, AuditLogFileName), true
	}
	return "", false
}
