package config

import "time"

// Application constants
const (
	ClientName = "geofront-cli"

	// Keyring service the access token is stored under
	KeyringService = "geofront-cli"

	// Files inside the XDG config directory
	ConfigDirName    = "geofront-cli"
	ServerFileName   = "server"
	SettingsFileName = "config.yaml"
	AuditLogFileName = "audit.log"

	// File permission constants
	SecureFilePermissions      = 0600 // -rw-------
	SecureDirectoryPermissions = 0700 // drwx------
)

// Environment variables
const (
	EnvAllowInsecure = "GEOFRONT_CLI_ALLOW_INSECURE"
	EnvLanguage      = "GEOFRONT_CLI_LANG"
	EnvAudit         = "GEOFRONT_CLI_AUDIT"
	EnvAuditLog      = "GEOFRONT_CLI_AUDIT_LOG"
)

// Protocol and timing defaults
const (
	DefaultRequestTimeout   = 30 * time.Second
	DefaultPollInterval     = 2 * time.Second
	DefaultPollAttempts     = 60
	DefaultHandshakeTimeout = 2 * time.Minute

	// Server protocol versions this client speaks, inclusive
	MinServerVersion = "0.2.0"
	MaxServerVersion = "0.4.999"

	DefaultSSHPort = 22
	DefaultSSH     = "ssh"
	DefaultSCP     = "scp"
	SSHConfigDir   = ".ssh"
)

// Public key files offered for registration, in order of preference
var PublicKeyFiles = []string{
	"id_ed25519.pub",
	"id_ecdsa.pub",
	"id_rsa.pub",
}

// Version and build information (will be set by build process)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
