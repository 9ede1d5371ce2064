package process

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestExecRunner_Success(t *testing.T) {
	sh := requireShell(t)

	res, err := NewExecRunner().Run(context.Background(), sh, "-c", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err", res.TrimmedStderr())
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	sh := requireShell(t)

	res, err := NewExecRunner().Run(context.Background(), sh, "-c", "echo broken 1>&2; exit 3")
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "broken", res.TrimmedStderr())
}

func TestExecRunner_LargeOutput(t *testing.T) {
	sh := requireShell(t)

	// Well past a pipe buffer on both streams.
	script := "i=0; while [ $i -lt 20000 ]; do echo line-$i; echo err-$i 1>&2; i=$((i+1)); done"
	res, err := NewExecRunner().Run(context.Background(), sh, "-c", script)
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, 20000, strings.Count(res.Stdout, "\n"))
	assert.Equal(t, 20000, strings.Count(res.Stderr, "\n"))
}

func TestExecRunner_MissingExecutable(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), "/definitely/not/here")
	assert.Error(t, err)
}
