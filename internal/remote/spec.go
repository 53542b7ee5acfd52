package remote

import (
	"strings"

	gerrors "github.com/derekg/geofront-cli/internal/errors"
	"github.com/derekg/geofront-cli/internal/security"
)

// Spec is a parsed [user@]alias[:port] argument. A port suffix is accepted
// for compatibility and ignored; the server decides the port.
type Spec struct {
	User  string
	Alias string
}

// String renders the spec back as [user@]alias
func (s Spec) String() string {
	if s.User == "" {
		return s.Alias
	}
	return s.User + "@" + s.Alias
}

// ParseSpec parses [user@]alias[:port]
func ParseSpec(arg string) (Spec, error) {
	var sp Spec
	rest := strings.TrimSpace(arg)
	if i := strings.Index(rest, "@"); i >= 0 {
		sp.User, rest = rest[:i], rest[i+1:]
		if sp.User == "" {
			return Spec{}, gerrors.NewUsageError("empty user in %q", arg)
		}
		if err := security.ValidateSSHUser(sp.User); err != nil {
			return Spec{}, gerrors.NewUsageError("invalid user in %q: %v", arg, err)
		}
	}
	if i := strings.Index(rest, ":"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return Spec{}, gerrors.NewUsageError("missing remote alias in %q", arg)
	}
	if err := security.ValidateAlias(rest); err != nil {
		return Spec{}, gerrors.NewUsageError("invalid remote alias %q: %v", rest, err)
	}
	sp.Alias = rest
	return sp, nil
}

// CopyPaths are the scp arguments once the remote side has been identified
type CopyPaths struct {
	Local  string
	Remote string
	// Upload is true when the local file is the source
	Upload bool
}

// isRemoteArg follows scp's rule: a colon before any slash marks a remote path
func isRemoteArg(arg string) bool {
	colon := strings.Index(arg, ":")
	if colon <= 0 {
		return false
	}
	slash := strings.Index(arg, "/")
	return slash < 0 || colon < slash
}

// ParseCopyArgs finds the one remote side of src and dst and returns the
// alias spec together with the paths.
func ParseCopyArgs(src, dst string) (Spec, CopyPaths, error) {
	srcRemote, dstRemote := isRemoteArg(src), isRemoteArg(dst)
	if srcRemote == dstRemote {
		return Spec{}, CopyPaths{}, gerrors.NewUsageError("exactly one of source and destination must be a remote path (alias:path)")
	}

	remoteArg, local := src, dst
	if dstRemote {
		remoteArg, local = dst, src
	}

	i := strings.Index(remoteArg, ":")
	sp, err := ParseSpec(remoteArg[:i])
	if err != nil {
		return Spec{}, CopyPaths{}, err
	}
	path := remoteArg[i+1:]
	if path == "" {
		path = "."
	}
	if err := security.ValidateRemotePath(path); err != nil {
		return Spec{}, CopyPaths{}, gerrors.NewUsageError("invalid remote path %q: %v", path, err)
	}
	if strings.HasPrefix(local, "-") {
		return Spec{}, CopyPaths{}, gerrors.NewUsageError("local path must not begin with '-': %q", local)
	}

	return sp, CopyPaths{Local: local, Remote: path, Upload: dstRemote}, nil
}
