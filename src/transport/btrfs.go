package transport

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// CreateSnapshot creates a read-only btrfs snapshot of subvol at dest.
func CreateSnapshot(ctx context.Context, subvol, dest string) error {
	if _, stderr, err := runCommand(ctx, "btrfs", "subvolume", "snapshot", "-r", subvol, dest); err != nil {
		return fmt.Errorf("create snapshot %s: %w: %s", dest, err, stderr)
	}
	return nil
}

// CheckSubvolume verifies that path is a valid btrfs subvolume.
func CheckSubvolume(ctx context.Context, path string) error {
	if _, stderr, err := runCommand(ctx, "btrfs", "subvolume", "show", path); err != nil {
		return fmt.Errorf("not a btrfs subvolume %s: %w: %s", path, err, stderr)
	}
	return nil
}

// LocalDir deletes snapshot subvolumes beneath a directory on this host.
type LocalDir struct {
	Dir string
}

func (d LocalDir) Delete(ctx context.Context, name string) error {
	path := filepath.Join(d.Dir, name)
	if _, stderr, err := runCommand(ctx, "btrfs", "subvolume", "delete", path); err != nil {
		return fmt.Errorf("delete snapshot %s: %w: %s", path, err, stderr)
	}
	return nil
}

// RemoteDir deletes snapshot subvolumes beneath a directory on an SSH host.
type RemoteDir struct {
	Endpoint SSHEndpoint
	Dir      string
}

func (d RemoteDir) Delete(ctx context.Context, name string) error {
	remote := "btrfs subvolume delete " + shellQuote(d.Dir+"/"+name)
	if _, stderr, err := d.Endpoint.Run(ctx, remote); err != nil {
		return fmt.Errorf("delete snapshot %s/%s on %s: %w: %s", d.Dir, name, d.Endpoint, err, strings.TrimSpace(stderr))
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
