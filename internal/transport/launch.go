package transport

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	gerrors "github.com/derekg/geofront-cli/internal/errors"
	"github.com/derekg/geofront-cli/internal/remote"
	"github.com/derekg/geofront-cli/internal/security"
)

// Launcher runs transport programs in the foreground
type Launcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// TempDir holds certificate files; empty means os.TempDir()
	TempDir string

	logger *log.Logger
	audit  *security.SecurityLogger
}

// NewLauncher returns a launcher wired to the process's stdio
func NewLauncher(logger *log.Logger, audit *security.SecurityLogger) *Launcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Launcher{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		logger: logger,
		audit:  audit,
	}
}

// LookPath resolves the program for kind. A non-empty override wins over
// the default name; either is looked up in $PATH unless it contains a
// path separator.
func LookPath(kind Kind, override string) (string, error) {
	name := override
	if name == "" {
		name = kind.String()
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", gerrors.NewTransportLaunchError(name, err)
	}
	return path, nil
}

// Launch runs argv with the launcher's stdio and waits for it. The child's
// exit status is returned unchanged; err is set only when the program could
// not be started. Interrupts reach the child through the terminal and are
// not acted on here. ctx is only checked before starting.
func (l *Launcher) Launch(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return -1, gerrors.NewUsageError("empty command")
	}
	if err := ctx.Err(); err != nil {
		return -1, gerrors.NewTransportLaunchError(argv[0], err)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	l.logger.Printf("exec: %s", strings.Join(argv, " "))

	stop := ignoreInterrupts()
	defer stop()

	if err := cmd.Start(); err != nil {
		return -1, gerrors.NewTransportLaunchError(argv[0], err)
	}

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code := exitStatus(ee)
		l.logger.Printf("%s exited with status %d", filepath.Base(argv[0]), code)
		return code, nil
	}
	return -1, gerrors.NewTransportLaunchError(argv[0], err)
}

// Run launches kind against t. A certificate on the target is written to
// a private temp file for the lifetime of the child.
func (l *Launcher) Run(ctx context.Context, kind Kind, t *remote.Target, opts Options) (int, error) {
	if t != nil && t.Certificate != "" && opts.CertificateFile == "" {
		path, cleanup, err := security.WriteSecureTempFile(l.TempDir, "geofront-cert-", []byte(t.Certificate+"\n"))
		if err != nil {
			return -1, gerrors.NewTransportLaunchError(kind.String(), err)
		}
		defer cleanup()
		opts.CertificateFile = path
	}

	argv, err := BuildCommand(kind, t, opts)
	if err != nil {
		return -1, err
	}

	code, err := l.Launch(ctx, argv)
	l.audit.LogTransportLaunched(filepath.Base(argv[0]), t.Address.User, t.Address.Host, code, err)
	return code, err
}
