package transport

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// connectTimeout bounds how long an SSH connection attempt may hang before
// the invocation fails; key auth is assumed, there is never a password prompt.
const connectTimeout = "ConnectTimeout=3"

// SSHEndpoint identifies a remote host reachable with public-key SSH.
type SSHEndpoint struct {
	User string
	Host string
	Port int
}

func (e SSHEndpoint) String() string {
	return fmt.Sprintf("%s@%s:%d", e.User, e.Host, e.Port)
}

// command builds the ssh invocation for one remote shell command line.
func (e SSHEndpoint) command(ctx context.Context, remote string) *exec.Cmd {
	args := []string{
		"-o", connectTimeout,
		"-p", strconv.Itoa(e.Port),
		e.User + "@" + e.Host,
		remote,
	}
	return exec.CommandContext(ctx, "ssh", args...)
}

// Run executes a remote shell command and returns its stdout and stderr.
func (e SSHEndpoint) Run(ctx context.Context, remote string) (string, string, error) {
	cmd := e.command(ctx, remote)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// CheckConnection verifies that the endpoint accepts a non-interactive SSH
// session. Run before any remote phase so auth problems surface as one clear
// error instead of failing halfway through a sync.
func (e SSHEndpoint) CheckConnection(ctx context.Context) error {
	if _, stderr, err := e.Run(ctx, "true"); err != nil {
		return fmt.Errorf("ssh %s: %w: %s", e, err, strings.TrimSpace(stderr))
	}
	return nil
}

// CheckDir verifies that a directory exists on the remote host.
func (e SSHEndpoint) CheckDir(ctx context.Context, path string) error {
	if _, stderr, err := e.Run(ctx, "test -d "+shellQuote(path)); err != nil {
		return fmt.Errorf("remote path %s missing on %s: %w: %s", path, e, err, strings.TrimSpace(stderr))
	}
	return nil
}

// shellQuote single-quotes s for the remote shell, which parses the command
// line we hand to sshd.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
