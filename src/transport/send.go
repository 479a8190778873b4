package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"btrsnap/src/util/progress"
)

// ErrTransferFailed marks a failed full or incremental snapshot transfer.
// The current sync pass aborts; snapshots transferred by earlier steps stay
// in place.
var ErrTransferFailed = errors.New("snapshot transfer failed")

// LocalReplicator streams snapshots from a source directory into a target
// directory on the same host via `btrfs send | btrfs receive`.
type LocalReplicator struct {
	SourceDir string
	TargetDir string

	log *zap.Logger
}

func NewLocalReplicator(sourceDir, targetDir string, log *zap.Logger) *LocalReplicator {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalReplicator{SourceDir: sourceDir, TargetDir: targetDir, log: log}
}

func (r *LocalReplicator) SendFull(ctx context.Context, snap string) error {
	return runPipe(ctx, sendCmd(ctx, r.SourceDir, "", snap), r.receiveCmd(ctx), r.log, snap)
}

func (r *LocalReplicator) SendIncremental(ctx context.Context, base, snap string) error {
	return runPipe(ctx, sendCmd(ctx, r.SourceDir, base, snap), r.receiveCmd(ctx), r.log, snap)
}

func (r *LocalReplicator) receiveCmd(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, "btrfs", "receive", r.TargetDir)
}

// RemoteReplicator streams snapshots from a local source directory into a
// directory on an SSH host, piping `btrfs send` into a remote
// `btrfs receive`.
type RemoteReplicator struct {
	SourceDir string
	TargetDir string
	Endpoint  SSHEndpoint

	log *zap.Logger
}

func NewRemoteReplicator(sourceDir, targetDir string, endpoint SSHEndpoint, log *zap.Logger) *RemoteReplicator {
	if log == nil {
		log = zap.NewNop()
	}
	return &RemoteReplicator{SourceDir: sourceDir, TargetDir: targetDir, Endpoint: endpoint, log: log}
}

func (r *RemoteReplicator) SendFull(ctx context.Context, snap string) error {
	return runPipe(ctx, sendCmd(ctx, r.SourceDir, "", snap), r.receiveCmd(ctx), r.log, snap)
}

func (r *RemoteReplicator) SendIncremental(ctx context.Context, base, snap string) error {
	return runPipe(ctx, sendCmd(ctx, r.SourceDir, base, snap), r.receiveCmd(ctx), r.log, snap)
}

func (r *RemoteReplicator) receiveCmd(ctx context.Context) *exec.Cmd {
	return r.Endpoint.command(ctx, "btrfs receive "+shellQuote(r.TargetDir))
}

func sendCmd(ctx context.Context, dir, base, snap string) *exec.Cmd {
	args := []string{"send"}
	if base != "" {
		args = append(args, "-p", filepath.Join(dir, base))
	}
	args = append(args, filepath.Join(dir, snap))
	return exec.CommandContext(ctx, "btrfs", args...)
}

// runPipe streams send's stdout into recv's stdin and waits for both sides.
// The payload is never buffered; a counting writer sits between the two so
// the transferred size can be logged per step.
func runPipe(ctx context.Context, send, recv *exec.Cmd, log *zap.Logger, snap string) error {
	var sendStderr, recvStderr bytes.Buffer
	send.Stderr = &sendStderr
	recv.Stderr = &recvStderr

	out, err := send.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: acquire send stdout: %v", ErrTransferFailed, err)
	}
	in, err := recv.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: acquire receive stdin: %v", ErrTransferFailed, err)
	}

	if err := recv.Start(); err != nil {
		return fmt.Errorf("%w: start receive: %v", ErrTransferFailed, err)
	}
	if err := send.Start(); err != nil {
		in.Close()
		_ = recv.Wait()
		return fmt.Errorf("%w: start send: %v", ErrTransferFailed, err)
	}

	counted := progress.NewWriter(in)
	copyErr := make(chan error, 1)
	go func() {
		_, err := io.Copy(counted, out)
		in.Close()
		copyErr <- err
	}()

	streamErr := <-copyErr
	sendErr := send.Wait()
	recvErr := recv.Wait()

	switch {
	case sendErr != nil:
		return fmt.Errorf("%w: btrfs send %s: %v: %s", ErrTransferFailed, snap, sendErr, strings.TrimSpace(sendStderr.String()))
	case recvErr != nil:
		return fmt.Errorf("%w: btrfs receive %s: %v: %s", ErrTransferFailed, snap, recvErr, strings.TrimSpace(recvStderr.String()))
	case streamErr != nil:
		return fmt.Errorf("%w: stream %s: %v", ErrTransferFailed, snap, streamErr)
	}

	log.Info("snapshot transferred",
		zap.String("snapshot", snap),
		zap.Int64("bytes", counted.Count()))
	return nil
}
