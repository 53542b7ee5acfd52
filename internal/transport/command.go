// Package transport builds and runs the ssh and scp command lines for a
// resolved target.
package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/derekg/geofront-cli/internal/client"
	"github.com/derekg/geofront-cli/internal/config"
	gerrors "github.com/derekg/geofront-cli/internal/errors"
	"github.com/derekg/geofront-cli/internal/remote"
)

// Kind selects the transport program
type Kind int

const (
	SSH Kind = iota
	SCP
)

func (k Kind) String() string {
	switch k {
	case SSH:
		return config.DefaultSSH
	case SCP:
		return config.DefaultSCP
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Options are the command-line choices that do not come from the target
type Options struct {
	// Program is argv[0]; defaults to the kind's name
	Program string
	// SSHProgram is passed to scp as -S
	SSHProgram string
	// Identity is a private key passed as -i
	Identity string
	// CertificateFile is passed as -o CertificateFile=
	CertificateFile string
	// Recursive adds -r to scp
	Recursive bool
	// DynamicPort is passed to ssh as -D for SOCKS forwarding
	DynamicPort string
	// Extra are passed as -o values, in order
	Extra []string
	// RemoteCommand follows the host for ssh
	RemoteCommand []string
}

// BuildCommand returns the argv for running kind against t. The result
// depends only on its arguments.
func BuildCommand(kind Kind, t *remote.Target, opts Options) ([]string, error) {
	if t == nil {
		return nil, gerrors.NewUsageError("no target to connect to")
	}
	program := opts.Program
	if program == "" {
		program = kind.String()
	}

	argv := []string{program}
	switch kind {
	case SSH:
		argv = append(argv, commonArgs(t, opts)...)
		if t.Address.User != "" {
			argv = append(argv, "-l", t.Address.User)
		}
		argv = append(argv, "-p", strconv.Itoa(t.Address.Port))
		if opts.DynamicPort != "" {
			argv = append(argv, "-D", opts.DynamicPort)
		}
		argv = append(argv, extraArgs(opts.Extra)...)
		argv = append(argv, t.Address.Host)
		argv = append(argv, opts.RemoteCommand...)

	case SCP:
		if t.Copy == nil {
			return nil, gerrors.NewUsageError("scp needs a source and a destination")
		}
		if opts.SSHProgram != "" {
			argv = append(argv, "-S", opts.SSHProgram)
		}
		if opts.Recursive {
			argv = append(argv, "-r")
		}
		argv = append(argv, commonArgs(t, opts)...)
		argv = append(argv, "-P", strconv.Itoa(t.Address.Port))
		argv = append(argv, extraArgs(opts.Extra)...)

		remotePath := scpRemote(t.Address, t.Copy.Remote)
		if t.Copy.Upload {
			argv = append(argv, t.Copy.Local, remotePath)
		} else {
			argv = append(argv, remotePath, t.Copy.Local)
		}

	default:
		return nil, gerrors.NewUsageError("unknown transport %s", kind)
	}
	return argv, nil
}

// commonArgs are the identity, certificate and jump options both programs share
func commonArgs(t *remote.Target, opts Options) []string {
	var args []string
	if opts.Identity != "" {
		args = append(args, "-i", opts.Identity)
	}
	if opts.CertificateFile != "" {
		args = append(args, "-o", "CertificateFile="+opts.CertificateFile)
	}
	if len(t.Jumps) > 0 {
		args = append(args, "-J", JumpSpec(t.Jumps))
	}
	return args
}

func extraArgs(extra []string) []string {
	args := make([]string, 0, 2*len(extra))
	for _, o := range extra {
		args = append(args, "-o", o)
	}
	return args
}

// JumpSpec renders jump hosts for -J, outermost first
func JumpSpec(jumps []client.Address) string {
	parts := make([]string, len(jumps))
	for i, j := range jumps {
		parts[i] = j.String()
	}
	return strings.Join(parts, ",")
}

// scpRemote renders user@host:path, bracketing IPv6 hosts
func scpRemote(a client.Address, path string) string {
	host := a.Host
	if strings.Contains(host, ":") && net.ParseIP(strings.SplitN(host, "%", 2)[0]) != nil {
		host = "[" + host + "]"
	}
	if a.User != "" {
		host = a.User + "@" + host
	}
	return host + ":" + path
}
