package progress_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btrsnap/src/util/progress"
)

func TestWriterCountsBytes(t *testing.T) {
	var buf bytes.Buffer
	w := progress.NewWriter(&buf)

	n, err := io.Copy(w, strings.NewReader("snapshot payload"))
	require.NoError(t, err)

	assert.Equal(t, n, w.Count())
	assert.Equal(t, "snapshot payload", buf.String())
}

func TestWriterZeroBeforeUse(t *testing.T) {
	w := progress.NewWriter(io.Discard)
	assert.Zero(t, w.Count())
}
