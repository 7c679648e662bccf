//go:build unix

package platform

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec_PropagatesExitCode(t *testing.T) {
	p := NewLocal(t.TempDir(), nil)
	var out bytes.Buffer
	code, err := p.Exec(context.Background(), Command{
		Path:   "/bin/sh",
		Args:   []string{"-c", "echo $GREETING; exit 3"},
		Env:    []string{"GREETING=hello"},
		Stdin:  strings.NewReader(""),
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "hello\n", out.String())
}

func TestExec_Success(t *testing.T) {
	p := NewLocal(t.TempDir(), nil)
	code, err := p.Exec(context.Background(), Command{Path: "/bin/sh", Args: []string{"-c", "true"}, Stdin: strings.NewReader("")})
	require.NoError(t, err)
	assert.Zero(t, code)
}

func TestExec_SignalledChild(t *testing.T) {
	p := NewLocal(t.TempDir(), nil)
	code, err := p.Exec(context.Background(), Command{Path: "/bin/sh", Args: []string{"-c", "kill -TERM $$"}, Stdin: strings.NewReader("")})
	require.NoError(t, err)
	assert.Equal(t, 128+15, code)
}

func TestExec_MissingBinary(t *testing.T) {
	p := NewLocal(t.TempDir(), nil)
	code, err := p.Exec(context.Background(), Command{Path: "/definitely/not/here", Stdin: strings.NewReader("")})
	require.Error(t, err)
	assert.Equal(t, 127, code)
}

func TestProcessProber(t *testing.T) {
	alive, err := ProcessProber{}.Alive(os.Getpid())
	require.NoError(t, err)
	assert.True(t, alive)

	_, err = ProcessProber{}.Alive(0)
	assert.Error(t, err)
}
