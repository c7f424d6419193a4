package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/w2807/fuzz/pkg/argvtmpl"
)

func run(t *testing.T, cmdline string, cfg Config, data []byte) Result {
	t.Helper()
	tmpl := argvtmpl.Split(cmdline)
	e := New(tmpl, cfg)
	return e.Run(data)
}

func TestRunExitCode(t *testing.T) {
	r := run(t, "sh -c 'exit 3'", Config{TimeoutMS: 1000}, nil)
	require.Equal(t, 3, r.ExitCode)
	require.Equal(t, 0, r.TermSig)
	require.False(t, r.TimedOut)
}

func TestRunSignal(t *testing.T) {
	r := run(t, "sh -c 'kill -SEGV $$'", Config{TimeoutMS: 1000}, nil)
	require.Equal(t, 11, r.TermSig)
	require.Equal(t, 0, r.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	r := run(t, "sh -c 'sleep 10'", Config{TimeoutMS: 100}, nil)
	require.True(t, r.TimedOut)
}

func TestRunStdinMode(t *testing.T) {
	r := run(t, "cat {stdin}", Config{TimeoutMS: 1000}, []byte("hello"))
	require.Equal(t, 0, r.ExitCode)
	require.Equal(t, "hello", string(r.Stdout))
}

func TestRunFileMode(t *testing.T) {
	r := run(t, "cat @@", Config{TimeoutMS: 1000}, []byte("world"))
	require.Equal(t, 0, r.ExitCode)
	require.Equal(t, "world", string(r.Stdout))
}

func TestRunMissingExecutable(t *testing.T) {
	r := run(t, "/no/such/binary-xyz", Config{TimeoutMS: 1000}, nil)
	require.Equal(t, -1, r.ExitCode)
	require.NotEmpty(t, r.Err)
}
