package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"btrsnap/src/transport"
)

// ErrUnreachable reports that a snapshot repository could not be listed at
// all: the local directory is missing or the remote listing command failed.
// This invalidates the whole invocation, so callers never continue past it.
var ErrUnreachable = errors.New("snapshot repository unreachable")

// Lister enumerates the snapshot names present at one repository location.
// An empty repository yields an empty slice, not an error. Order is
// directory order; callers sort where it matters.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Local lists snapshots in a directory on this host.
type Local struct {
	Dir string
}

func (l Local) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnreachable, l.Dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Remote lists snapshots in a directory on an SSH host. Snapshots are
// directories, so the remote command enumerates subdirectory names only.
type Remote struct {
	Endpoint transport.SSHEndpoint
	Dir      string
}

func (r Remote) List(ctx context.Context) ([]string, error) {
	stdout, stderr, err := r.Endpoint.Run(ctx, listCommand(r.Dir))
	if err != nil {
		return nil, fmt.Errorf("%w: list %s on %s: %v: %s", ErrUnreachable, r.Dir, r.Endpoint, err, strings.TrimSpace(stderr))
	}
	var names []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ".") {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

// listCommand prints one subdirectory name per line. The -d test filters out
// the literal glob the shell leaves behind when the directory is empty; the
// trailing true absorbs that failed test but stays inside the group so a
// failed cd still exits non-zero.
func listCommand(dir string) string {
	quoted := "'" + strings.ReplaceAll(strings.TrimRight(dir, "/"), "'", `'\''`) + "'"
	return fmt.Sprintf(`cd %s && { for d in */; do [ -d "$d" ] && printf '%%s\n' "${d%%/}"; done; true; }`, quoted)
}
