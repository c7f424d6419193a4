package triage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestOutcomeDeepEqualAcrossRuns(t *testing.T) {
	a := Analyze(Input{TermSignal: 11})
	b := Analyze(Input{TermSignal: 11})
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("repeated analysis of identical input diverged (-want +got):\n%s", diff)
	}
}

func TestTimeout(t *testing.T) {
	o := Analyze(Input{TimedOut: true})
	require.True(t, o.Crashed)
	require.Equal(t, "timeout", o.Reason)
	require.Equal(t, "timeout", o.Signature)
}

func TestRunnerError(t *testing.T) {
	o := Analyze(Input{ExitCode: -1})
	require.False(t, o.Crashed)
	require.Equal(t, "runner", o.Reason)
	require.Empty(t, o.Signature)
}

func TestExecvpError(t *testing.T) {
	o := Analyze(Input{ExitCode: 127, Stderr: "execvp: No such file or directory"})
	require.False(t, o.Crashed)
	require.Equal(t, "execvp", o.Reason)
}

func TestSignalCrash(t *testing.T) {
	o := Analyze(Input{TermSignal: 11})
	require.True(t, o.Crashed)
	require.Equal(t, "signal:11", o.Reason)
	require.NotEmpty(t, o.Signature)
}

func TestAllowedExitIsNotACrash(t *testing.T) {
	o := Analyze(Input{ExitCode: 2, AllowedExits: map[int]bool{2: true}})
	require.False(t, o.Crashed)
}

func TestDisallowedExitIsACrash(t *testing.T) {
	o := Analyze(Input{ExitCode: 3, AllowedExits: map[int]bool{}})
	require.True(t, o.Crashed)
	require.Equal(t, "exit:3", o.Reason)
}

func TestSameExitCodeGivesSameSignature(t *testing.T) {
	a := Analyze(Input{ExitCode: 7})
	b := Analyze(Input{ExitCode: 7})
	require.Equal(t, a.Signature, b.Signature)
}

const asanSample = `==1234== ERROR: AddressSanitizer: heap-buffer-overflow on address 0x602000000010
    #0 0x55d1a2b3c4d5 in vuln_func target.c:42
    #1 0x55d1a2b3c999 in main target.c:60
    #2 0x7f1234567890 in __libc_start_main libc.so
`

func TestAsanSignatureNormalizesAcrossPIDsAndAddresses(t *testing.T) {
	a := Analyze(Input{Stderr: asanSample})
	require.True(t, a.Crashed)
	require.Equal(t, "asan", a.Reason)

	other := `==9999== ERROR: AddressSanitizer: heap-buffer-overflow on address 0x602000099999
    #0 0x00007fabcdef1234 in vuln_func target.c:42
    #1 0x00007fabcdef5678 in main target.c:60
    #2 0x7f1234567890 in __libc_start_main libc.so
`
	b := Analyze(Input{Stderr: other})
	require.Equal(t, a.Signature, b.Signature)
}

func TestAsanDifferentKindGivesDifferentSignature(t *testing.T) {
	a := Analyze(Input{Stderr: asanSample})
	b := Analyze(Input{Stderr: `ERROR: AddressSanitizer: stack-buffer-overflow on address 0x1
    #0 0x1 in vuln_func target.c:42
`})
	require.NotEqual(t, a.Signature, b.Signature)
}
