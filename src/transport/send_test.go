package transport

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunPipeStreamsProducerIntoConsumer(t *testing.T) {
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "received")

	send := exec.CommandContext(ctx, "sh", "-c", "printf 'snapshot payload'")
	recv := exec.CommandContext(ctx, "sh", "-c", "cat > "+out)

	err := runPipe(ctx, send, recv, zap.NewNop(), "2024_01_01_00_00_db")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "snapshot payload", string(data))
}

func TestRunPipeSurfacesSendFailure(t *testing.T) {
	ctx := context.Background()

	send := exec.CommandContext(ctx, "sh", "-c", "echo 'send blew up' >&2; exit 1")
	recv := exec.CommandContext(ctx, "sh", "-c", "cat > /dev/null")

	err := runPipe(ctx, send, recv, zap.NewNop(), "snap")
	require.ErrorIs(t, err, ErrTransferFailed)
	assert.Contains(t, err.Error(), "send blew up")
}

func TestRunPipeSurfacesReceiveFailure(t *testing.T) {
	ctx := context.Background()

	send := exec.CommandContext(ctx, "sh", "-c", "printf 'data'")
	recv := exec.CommandContext(ctx, "sh", "-c", "echo 'receive blew up' >&2; exit 3")

	err := runPipe(ctx, send, recv, zap.NewNop(), "snap")
	require.ErrorIs(t, err, ErrTransferFailed)
	assert.Contains(t, err.Error(), "receive blew up")
}

func TestSendCmdArgs(t *testing.T) {
	ctx := context.Background()

	full := sendCmd(ctx, "/snaps", "", "2024_01_01_00_00_db")
	assert.Equal(t, []string{"send", "/snaps/2024_01_01_00_00_db"}, full.Args[1:])

	inc := sendCmd(ctx, "/snaps", "2024_01_01_00_00_db", "2024_01_08_00_00_db")
	assert.Equal(t,
		[]string{"send", "-p", "/snaps/2024_01_01_00_00_db", "/snaps/2024_01_08_00_00_db"},
		inc.Args[1:])
}

func TestSSHEndpointCommandArgs(t *testing.T) {
	e := SSHEndpoint{User: "root", Host: "10.0.0.2", Port: 2222}
	cmd := e.command(context.Background(), "btrfs receive '/backup'")
	assert.Equal(t, []string{
		"-o", "ConnectTimeout=3",
		"-p", "2222",
		"root@10.0.0.2",
		"btrfs receive '/backup'",
	}, cmd.Args[1:])
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'/backup/snaps'", shellQuote("/backup/snaps"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
