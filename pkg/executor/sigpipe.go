package executor

import (
	"os/signal"
	"syscall"
)

// signalIgnoreSIGPIPE installs a process-wide SIG_IGN for SIGPIPE. Unlike
// Go's default runtime handling (which delivers SIGPIPE as a panic only
// to fd 1/2 writers in the current goroutine), an explicit signal.Ignore
// here installs a real kernel-level SIG_IGN disposition that survives
// execve into every child this process forks.
func signalIgnoreSIGPIPE() {
	signal.Ignore(syscall.SIGPIPE)
}
