package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Address is one way to reach a remote, optionally through jump hosts.
// Jumps are ordered outermost first.
type Address struct {
	User  string    `json:"user"`
	Host  string    `json:"host"`
	Port  int       `json:"port"`
	Jumps []Address `json:"jumps,omitempty"`
}

// HostPort renders host:port, bracketing IPv6 literals
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// String renders user@host:port
func (a Address) String() string {
	if a.User == "" {
		return a.HostPort()
	}
	return a.User + "@" + a.HostPort()
}

// Addresses decodes either a list of addresses or a single address object
type Addresses []Address

// UnmarshalJSON implements json.Unmarshaler
func (as *Addresses) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var a Address
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		*as = Addresses{a}
		return nil
	}
	var list []Address
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*as = list
	return nil
}

// Remote is an alias together with the addresses the server lists for it
type Remote struct {
	Alias     string
	Addresses []Address
}

// Handshake is a started browser authentication
type Handshake struct {
	ID         string `json:"handshakeId"`
	BrowserURL string `json:"browserUrl"`
}

// HandshakeStatus is the server-side state of a handshake
type HandshakeStatus string

const (
	StatusPending  HandshakeStatus = "pending"
	StatusDone     HandshakeStatus = "done"
	StatusDenied   HandshakeStatus = "denied"
	StatusNotFound HandshakeStatus = "not_found"
)

// Valid reports whether s is one of the known statuses
func (s HandshakeStatus) Valid() bool {
	switch s {
	case StatusPending, StatusDone, StatusDenied, StatusNotFound:
		return true
	}
	return false
}

// PollResult is the answer to a handshake poll. Token is set only when done.
type PollResult struct {
	Status HandshakeStatus `json:"status"`
	Token  string          `json:"token,omitempty"`
}

// Authorization is the server's answer to an authorize request
type Authorization struct {
	Remote      *Address
	Certificate string
	ExpiresAt   time.Time
}

type authorizeResponse struct {
	Success     authorizeSuccess `json:"success"`
	Remote      *Address         `json:"remote,omitempty"`
	Certificate string           `json:"certificate,omitempty"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
}

// authorizeSuccess accepts true as well as the legacy "authorized" string
type authorizeSuccess bool

func (s *authorizeSuccess) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = authorizeSuccess(b)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("success must be a boolean or string: %w", err)
	}
	*s = str == "authorized"
	return nil
}

// Identity is the account a token belongs to
type Identity struct {
	TeamType   string `json:"team_type"`
	Identifier string `json:"identifier"`
}

type publicKeyRequest struct {
	PublicKey string `json:"public_key"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
