// Package triage classifies one execution's outcome as crashed or not,
// and computes a de-duplicating signature for crashes.
//
// The decision tree and the basic shape of the signature come from
// _examples/original_source/src/crash.cpp; the signature itself is
// richer here (ASan-kind plus up to three normalized, demangled stack
// frames) per the spec this was distilled into, so that two runs whose
// sanitizer output differs only in PIDs, addresses, source lines, or
// mangled-vs-demangled symbol spelling still collapse to one signature.
package triage

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// Outcome is the result of analyzing one execution.
type Outcome struct {
	Crashed   bool
	Reason    string
	Signature string
}

// Input bundles everything triage needs from an execution.
type Input struct {
	ExitCode     int
	TermSignal   int
	TimedOut     bool
	Stdout       string
	Stderr       string
	AllowedExits map[int]bool
}

var (
	asanErrRe    = regexp.MustCompile(`ERROR: AddressSanitizer: (\S+)`)
	asanDeadlyRe = regexp.MustCompile(`AddressSanitizer:DEADLYSIGNAL`)
	frameRe      = regexp.MustCompile(`(?m)^\s*#\d+\s+.*$`)
	pidRe        = regexp.MustCompile(`==\d+==`)
	hexLiteralRe = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	longHexRunRe = regexp.MustCompile(`\b[0-9a-fA-F]{8,}\b`)
	pathLineRe   = regexp.MustCompile(`([\w./-]*[./][\w./-]*):(\d+)\b`)
	mangledRe    = regexp.MustCompile(`_Z[A-Za-z0-9_.$]+`)
)

var frameExcludeSubstrings = []string{
	"libasan", "__asan", "asan_", "__interceptor", "libc.so",
	"libstdc++", "libgcc", "ld-linux", "linux-vdso", "libpthread",
	"start_thread",
}

// Analyze classifies an execution and, if it crashed, computes its
// signature. It never errors; demangling or regex failures degrade to
// unnormalized text rather than aborting classification.
func Analyze(in Input) Outcome {
	if in.TimedOut {
		return Outcome{Crashed: true, Reason: "timeout", Signature: "timeout"}
	}

	combined := in.Stdout + "\n" + in.Stderr

	execFailed := in.ExitCode == 127 && strings.Contains(in.Stderr, "execvp:")
	runnerError := in.ExitCode < 0
	if execFailed || runnerError {
		reason := "runner"
		if execFailed {
			reason = "execvp"
		}
		return Outcome{Crashed: false, Reason: reason}
	}

	if in.TermSignal != 0 {
		frames := extractFrames(combined)
		sig := hashSignature(fmt.Sprintf("sig|%d|%s", in.TermSignal, strings.Join(frames, " ; ")))
		return Outcome{Crashed: true, Reason: fmt.Sprintf("signal:%d", in.TermSignal), Signature: sig}
	}

	if kind, ok := asanKind(combined); ok {
		frames := extractFrames(combined)
		sig := hashSignature(fmt.Sprintf("asan|%s|%s", kind, strings.Join(frames, " ; ")))
		return Outcome{Crashed: true, Reason: "asan", Signature: sig}
	}

	if in.ExitCode != 0 && !in.AllowedExits[in.ExitCode] {
		sig := hashSignature(fmt.Sprintf("rc|%d", in.ExitCode))
		return Outcome{Crashed: true, Reason: fmt.Sprintf("exit:%d", in.ExitCode), Signature: sig}
	}

	return Outcome{Crashed: false}
}

func asanKind(combined string) (string, bool) {
	if m := asanErrRe.FindStringSubmatch(combined); m != nil {
		return strings.TrimSuffix(m[1], ":"), true
	}
	if asanDeadlyRe.MatchString(combined) {
		return "DEADLYSIGNAL", true
	}
	return "", false
}

// extractFrames pulls up to three stack-frame lines out of combined,
// skipping sanitizer/libc internals, demangling any C++ symbol, and
// normalizing PIDs, addresses, and source locations so the result is
// stable across reruns and rebuilds.
func extractFrames(combined string) []string {
	var out []string
	for _, line := range frameRe.FindAllString(combined, -1) {
		if containsAny(line, frameExcludeSubstrings) {
			continue
		}
		out = append(out, normalizeFrame(line))
		if len(out) == 3 {
			break
		}
	}
	return out
}

func normalizeFrame(line string) string {
	line = mangledRe.ReplaceAllStringFunc(line, func(sym string) string {
		return demangle.Filter(sym)
	})
	line = pidRe.ReplaceAllString(line, "==PID==")
	line = hexLiteralRe.ReplaceAllString(line, "0xX")
	line = longHexRunRe.ReplaceAllString(line, "HEX")
	line = pathLineRe.ReplaceAllStringFunc(line, func(m string) string {
		sub := pathLineRe.FindStringSubmatch(m)
		return filepath.Base(sub[1]) + ":*"
	})
	return strings.TrimSpace(line)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hashSignature(composite string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(composite))
	return fmt.Sprintf("%016x", h.Sum64())
}
