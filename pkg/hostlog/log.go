// Package hostlog provides the leveled logger used by the fuzzing host.
//
// It follows the same calling convention as syzkaller's fuzzer logger
// (Logf(level int, format string, args ...any), gated by a verbosity
// threshold) but is self-contained: no dashboard/report plumbing, just
// tagged output to stderr.
package hostlog

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

var verbosity int32

// SetVerbosity sets the highest level at which Logf calls are printed.
func SetVerbosity(v int) {
	atomic.StoreInt32(&verbosity, int32(v))
}

// Logf prints a message tagged "[i]" if level is at or below the current
// verbosity. Level 0 is always printed.
func Logf(level int, format string, args ...interface{}) {
	if int32(level) > atomic.LoadInt32(&verbosity) {
		return
	}
	emit("[i]", format, args...)
}

// Errorf always prints, tagged "[!]".
func Errorf(format string, args ...interface{}) {
	emit("[!]", format, args...)
}

// Goodf always prints, tagged "[+]" - used for positive/progress events
// such as a newly saved crash.
func Goodf(format string, args ...interface{}) {
	emit("[+]", format, args...)
}

// Fatalf prints the message tagged "[!]" and terminates the process with
// exit code 1.
func Fatalf(format string, args ...interface{}) {
	emit("[!]", format, args...)
	os.Exit(1)
}

func emit(tag, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s %s %s\n", time.Now().UTC().Format("15:04:05.000"), tag, msg)
}
