package security

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"unicode"
)

// InputValidator checks values that end up on a transport command line.
// Server-supplied addresses pass through it before they become targets.
type InputValidator struct {
	MaxHostnameLength int
	MaxPathLength     int
	AllowedHostChars  *regexp.Regexp
	AllowedUserChars  *regexp.Regexp
}

// Security constants for input validation
const (
	MaxHostnameLength = 253  // RFC 1035 limit
	MaxPathLength     = 4096 // Common filesystem limit
	MaxPortNumber     = 65535
	MinPortNumber     = 1
	MaxSSHUserLength  = 32
	MaxAliasLength    = 255
)

// dangerousChars are shell and ssh_config metacharacters
const dangerousChars = ";|&`$(){}[]<>\\\"'!*?,"

// NewInputValidator creates a new input validator with secure defaults
func NewInputValidator() *InputValidator {
	return &InputValidator{
		MaxHostnameLength: MaxHostnameLength,
		MaxPathLength:     MaxPathLength,
		// Simple pattern to avoid exponential backtracking
		AllowedHostChars: regexp.MustCompile(`^[a-zA-Z0-9_]([a-zA-Z0-9._-]*[a-zA-Z0-9_])?$`),
		AllowedUserChars: regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9._-]*$`),
	}
}

// ValidateHostname validates a host name or IP address
func (iv *InputValidator) ValidateHostname(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("hostname cannot be empty")
	}

	if len(hostname) > iv.MaxHostnameLength {
		return fmt.Errorf("hostname too long: %d characters (max %d)", len(hostname), iv.MaxHostnameLength)
	}

	if strings.ContainsAny(hostname, dangerousChars) {
		return fmt.Errorf("hostname contains invalid characters")
	}

	if net.ParseIP(hostname) != nil {
		return nil
	}
	// IPv6 with a zone, e.g. fe80::1%eth0
	if i := strings.IndexByte(hostname, '%'); i > 0 && net.ParseIP(hostname[:i]) != nil {
		return nil
	}

	if strings.HasPrefix(hostname, "-") || strings.HasSuffix(hostname, "-") {
		return fmt.Errorf("hostname cannot start or end with hyphen")
	}

	if !iv.AllowedHostChars.MatchString(hostname) {
		return fmt.Errorf("hostname format invalid (must comply with RFC 1123)")
	}

	for _, label := range strings.Split(hostname, ".") {
		if len(label) == 0 {
			return fmt.Errorf("hostname contains empty label")
		}
		if len(label) > 63 {
			return fmt.Errorf("hostname label too long: %s (max 63 characters)", label)
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return fmt.Errorf("hostname label cannot start or end with hyphen: %s", label)
		}
	}

	return nil
}

// ValidateSSHUser validates login names
func (iv *InputValidator) ValidateSSHUser(username string) error {
	if username == "" {
		return fmt.Errorf("SSH username cannot be empty")
	}

	if len(username) > MaxSSHUserLength {
		return fmt.Errorf("SSH username too long: %d characters (max %d)", len(username), MaxSSHUserLength)
	}

	if strings.HasPrefix(username, "-") {
		return fmt.Errorf("SSH username cannot start with hyphen")
	}

	if !iv.AllowedUserChars.MatchString(username) {
		return fmt.Errorf("SSH username contains invalid characters (only alphanumeric, dot, hyphen, underscore allowed)")
	}

	return nil
}

// ValidatePort validates network port numbers
func (iv *InputValidator) ValidatePort(port int) error {
	if port < MinPortNumber || port > MaxPortNumber {
		return fmt.Errorf("port number out of range: %d (must be %d-%d)", port, MinPortNumber, MaxPortNumber)
	}
	return nil
}

// ValidateAlias validates a remote alias as typed by the user or listed by the server
func (iv *InputValidator) ValidateAlias(alias string) error {
	if alias == "" {
		return fmt.Errorf("alias cannot be empty")
	}

	if len(alias) > MaxAliasLength {
		return fmt.Errorf("alias too long: %d characters (max %d)", len(alias), MaxAliasLength)
	}

	if strings.HasPrefix(alias, "-") {
		return fmt.Errorf("alias cannot start with hyphen")
	}

	for _, r := range alias {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("alias contains whitespace or control character: %U", r)
		}
		if r == '/' || r == '@' || r == ':' {
			return fmt.Errorf("alias contains reserved character %q", r)
		}
	}

	return nil
}

// ValidateRemotePath validates the remote side of a copy
func (iv *InputValidator) ValidateRemotePath(path string) error {
	if len(path) > iv.MaxPathLength {
		return fmt.Errorf("remote path too long: %d characters (max %d)", len(path), iv.MaxPathLength)
	}

	if strings.HasPrefix(path, "-") {
		return fmt.Errorf("remote path cannot start with hyphen")
	}

	for _, r := range path {
		if r == '\x00' {
			return fmt.Errorf("remote path contains null byte")
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("remote path contains control character: %U", r)
		}
	}

	return nil
}

// Global validator instance
var DefaultValidator = NewInputValidator()

// Convenience functions using the default validator
func ValidateHostname(hostname string) error {
	return DefaultValidator.ValidateHostname(hostname)
}

func ValidateSSHUser(username string) error {
	return DefaultValidator.ValidateSSHUser(username)
}

func ValidatePort(port int) error {
	return DefaultValidator.ValidatePort(port)
}

func ValidateAlias(alias string) error {
	return DefaultValidator.ValidateAlias(alias)
}

func ValidateRemotePath(path string) error {
	return DefaultValidator.ValidateRemotePath(path)
}
