// Package executor supervises one target-process execution per fuzz
// input: argv-template expansion, optional stdin streaming, stdout/stderr
// capture into in-memory buffers (not size-capped), resource limits, and
// deterministic timeout enforcement.
//
// The original host this was ported from drove this with a hand-rolled
// poll()+non-blocking-waitpid loop (see _examples/original_source for the
// syscall-level version). Go's os/exec already gives us non-blocking I/O
// and reaping via goroutines, so the state machine below is expressed in
// those terms instead of a raw poll loop.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/w2807/fuzz/pkg/argvtmpl"
	"github.com/w2807/fuzz/pkg/fsutil"
)

func init() {
	// Children inherit this disposition across execve; without it, a
	// target that closes its stdin pipe early would kill this process
	// on the next write.
	signalIgnoreSIGPIPE()
}

// Config configures one Executor. The zero value is not valid: TimeoutMS
// must be positive.
type Config struct {
	TimeoutMS int
	MemMB     int // 0 = unlimited address space
	// ShmName, if non-empty, is exported to the child as __FUZZ_SHARE.
	ShmName string
}

// Result is the outcome of one execution.
type Result struct {
	ExitCode int // -1 on host-side failure before/while running the target
	TermSig  int
	TimedOut bool
	Stdout   []byte
	Stderr   []byte
	Err      string // non-empty iff ExitCode == -1
}

// Executor runs a target repeatedly against an argv template.
type Executor struct {
	cfg      Config
	template []string
	tmpDir   string
}

// New builds an Executor for the given argv template (as produced by
// argvtmpl.Split) and configuration.
func New(template []string, cfg Config) *Executor {
	return &Executor{cfg: cfg, template: template}
}

// Run executes the target once against data and returns the outcome. It
// never returns an error itself; host-side failures are reported inside
// Result (ExitCode == -1, Err set), matching the triage module's
// "runner"/"execvp" classification (see pkg/triage).
func (e *Executor) Run(data []byte) Result {
	needFile, needStdin := argvtmpl.Needs(e.template)

	var tmpPath string
	if needFile {
		path, err := fsutil.TempFile(e.tmpDir, "fuzz", data)
		if err != nil {
			return Result{ExitCode: -1, Err: fmt.Sprintf("mktemp_file failed: %v", err)}
		}
		tmpPath = path
		defer os.Remove(tmpPath)
	}

	exp := argvtmpl.Expand(e.template, tmpPath)
	if len(exp.Argv) == 0 {
		return Result{ExitCode: -1, Err: "empty argv"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(e.cfg.TimeoutMS)*time.Millisecond)
	defer cancel()

	cmd := exec.CommandContext(ctx, exp.Argv[0], exp.Argv[1:]...)
	cmd.Env = os.Environ()
	if e.cfg.ShmName != "" {
		cmd.Env = append(cmd.Env, "__FUZZ_SHARE="+e.cfg.ShmName)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	var stdoutBuf, stderrBuf syncBuffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	var stdinPipe io.WriteCloser
	if needStdin {
		w, err := cmd.StdinPipe()
		if err != nil {
			return Result{ExitCode: -1, Err: fmt.Sprintf("pipe() failed: in: %v", err)}
		}
		stdinPipe = w
	} else {
		cmd.Stdin = nil // target reads from /dev/null by default with no Stdin set and no pipe
	}

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1, Err: fmt.Sprintf("fork() failed: %v", err)}
	}

	// Go offers no hook between fork and exec, so RLIMIT_AS/FSIZE are
	// applied to the already-running child immediately after Start.
	// This leaves a small race window before the limits take effect;
	// accepted per design note in DESIGN.md.
	applyRlimits(cmd.Process.Pid, e.cfg.MemMB)

	var stdinErr error
	var stdinWG sync.WaitGroup
	if stdinPipe != nil {
		stdinWG.Add(1)
		go func() {
			defer stdinWG.Done()
			_, stdinErr = io.Copy(stdinPipe, bytes.NewReader(data))
			stdinPipe.Close()
		}()
	}

	waitErr := cmd.Wait()
	if stdinPipe != nil {
		stdinWG.Wait()
	}
	_ = stdinErr // best-effort; a broken pipe here just means the target exited early

	res := Result{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		return res
	}

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				if status.Signaled() {
					res.TermSig = int(status.Signal())
				}
				if status.Exited() {
					res.ExitCode = status.ExitStatus()
				}
				return res
			}
			res.ExitCode = exitErr.ExitCode()
			return res
		}
		// Could not even start/exec the target.
		res.ExitCode = -1
		res.Err = fmt.Sprintf("execvp: %v", waitErr)
		return res
	}

	return res
}

func applyRlimits(pid int, memMB int) {
	if memMB > 0 {
		limit := uint64(memMB) * 1024 * 1024
		rlim := unix.Rlimit{Cur: limit, Max: limit}
		_ = unix.Prlimit(pid, unix.RLIMIT_AS, &rlim, nil)
	}
	const fsizeLimit = 64 * 1024 * 1024
	fz := unix.Rlimit{Cur: fsizeLimit, Max: fsizeLimit}
	_ = unix.Prlimit(pid, unix.RLIMIT_FSIZE, &fz, nil)
}

// syncBuffer is a bytes.Buffer safe for the concurrent Write calls Cmd
// makes from internal goroutines while this goroutine may also be reading
// via Bytes() after Wait returns (Wait happens-before any read here, but
// the mutex costs nothing and keeps -race quiet under cmd's io copiers).
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}
