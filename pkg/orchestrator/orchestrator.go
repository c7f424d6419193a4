// Package orchestrator runs the worker pool that ties the mutator,
// executor, coverage map, corpus, and crash triage together into a fuzz
// campaign, and persists crash reproducers.
//
// The per-worker loop, its deterministic crossover/corpus-add rules, and
// the crash file format are ported from
// _examples/original_source/src/main.cpp's worker-thread body; the pool
// itself is built with golang.org/x/sync/errgroup instead of raw
// std::thread, in the structured-concurrency idiom pkg/fuzzer/fuzzer.go
// uses throughout the teacher repo.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/w2807/fuzz/pkg/argvtmpl"
	"github.com/w2807/fuzz/pkg/corpus"
	"github.com/w2807/fuzz/pkg/covmap"
	"github.com/w2807/fuzz/pkg/executor"
	"github.com/w2807/fuzz/pkg/fsutil"
	"github.com/w2807/fuzz/pkg/hostlog"
	"github.com/w2807/fuzz/pkg/metrics"
	"github.com/w2807/fuzz/pkg/mutator"
	"github.com/w2807/fuzz/pkg/osutil"
	"github.com/w2807/fuzz/pkg/triage"
)

// Config holds everything a fuzzing campaign needs.
type Config struct {
	ArgvTemplate []string
	OutDir       string
	Iterations   uint64
	Threads      int
	TimeoutMS    int
	MemMB        int
	MaxSize      int
	Seed         uint64
	AllowedExits map[int]bool
	Dict         mutator.Dict
	Corpus       *corpus.Corpus
	Metrics      *metrics.Recorder // nil disables metrics updates
}

// Orchestrator owns the shared state across all workers of one campaign.
type Orchestrator struct {
	cfg Config

	iterDone atomic.Uint64
	crashes  atomic.Uint64
	saved    atomic.Uint64
	crashID  atomic.Uint64

	seenMu sync.Mutex
	seen   map[string]bool

	runID string
}

// New builds an Orchestrator. cfg.Corpus must already be loaded.
func New(cfg Config) *Orchestrator {
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	return &Orchestrator{
		cfg:   cfg,
		seen:  make(map[string]bool),
		runID: uuid.NewString(),
	}
}

// Summary holds the final tallies of a campaign.
type Summary struct {
	Iterations uint64
	Crashes    uint64
	Saved      uint64
}

// Run executes the campaign to completion (or until ctx is canceled) and
// returns the final tallies.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	hostlog.Logf(0, "run %s: seed=%d threads=%d iterations=%d seeds=%d",
		o.runID, o.cfg.Seed, o.cfg.Threads, o.cfg.Iterations, o.cfg.Corpus.Size())

	if err := osutil.MkdirAll(o.cfg.OutDir); err != nil {
		return Summary{}, fmt.Errorf("orchestrator: create out dir: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < o.cfg.Threads; t++ {
		t := t
		g.Go(func() error {
			return o.worker(gctx, t)
		})
	}
	if err := g.Wait(); err != nil {
		return o.summary(), err
	}

	hostlog.Logf(0, "done. total=%d crashes=%d saved=%d",
		o.iterDone.Load(), o.crashes.Load(), o.saved.Load())
	return o.summary(), nil
}

func (o *Orchestrator) summary() Summary {
	return Summary{
		Iterations: o.iterDone.Load(),
		Crashes:    o.crashes.Load(),
		Saved:      o.saved.Load(),
	}
}

func (o *Orchestrator) worker(ctx context.Context, id int) error {
	seed := fsutil.WorkerSeed(o.cfg.Seed, id)
	mut := mutator.New(seed, o.cfg.MaxSize, o.cfg.Dict)
	rnd := rand.New(rand.NewSource(int64(seed)))

	cov, err := covmap.New()
	if err != nil {
		hostlog.Errorf("worker %d: coverage setup failed, continuing without feedback: %v", id, err)
	} else {
		defer cov.Close()
	}

	exec := executor.New(o.cfg.ArgvTemplate, executor.Config{
		TimeoutMS: o.cfg.TimeoutMS,
		MemMB:     o.cfg.MemMB,
		ShmName:   shmName(cov),
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		done := o.iterDone.Add(1) - 1
		if done >= o.cfg.Iterations {
			return nil
		}

		base := o.cfg.Corpus.Pick(rnd)
		var test []byte
		if (seed+done)%5 == 0 && o.cfg.Corpus.Size() >= 2 {
			other := o.cfg.Corpus.Pick(rnd)
			test = mut.Crossover(base, other)
		} else {
			test = mut.Mutate(base)
		}

		if cov != nil {
			cov.Reset()
		}
		res := exec.Run(test)

		outcome := triage.Analyze(triage.Input{
			ExitCode:     res.ExitCode,
			TermSignal:   res.TermSig,
			TimedOut:     res.TimedOut,
			Stdout:       string(res.Stdout),
			Stderr:       string(res.Stderr),
			AllowedExits: o.cfg.AllowedExits,
		})

		if o.cfg.Metrics != nil {
			o.cfg.Metrics.Iterations.Inc()
			o.cfg.Metrics.ExecResults.WithLabelValues(outcome.Reason).Inc()
			o.cfg.Metrics.CorpusSize.Set(float64(o.cfg.Corpus.Size()))
		}

		if outcome.Crashed {
			o.onCrash(test, res, outcome)
		} else if cov != nil && cov.HasNewEdge() {
			cov.Merge()
			o.cfg.Corpus.Add(test, 1)
		} else if (seed+done)&0xFF < 3 {
			o.cfg.Corpus.Add(test, 1)
		}

		if (done+1)%1000 == 0 {
			hostlog.Logf(0, "run %s: iter %d/%d crashes=%d saved=%d seeds=%d",
				o.runID, done+1, o.cfg.Iterations, o.crashes.Load(), o.saved.Load(), o.cfg.Corpus.Size())
		}
	}
}

func shmName(cov *covmap.Coverage) string {
	if cov == nil {
		return ""
	}
	return cov.ShmName()
}

func (o *Orchestrator) onCrash(data []byte, res executor.Result, outcome triage.Outcome) {
	o.seenMu.Lock()
	novel := !o.seen[outcome.Signature]
	if novel {
		o.seen[outcome.Signature] = true
	}
	var id uint64
	if novel {
		id = o.crashID.Add(1) - 1
	}
	o.seenMu.Unlock()

	if novel {
		if err := o.saveCrash(id, data, res, outcome); err != nil {
			hostlog.Errorf("failed to save crash %d: %v", id, err)
		} else {
			o.saved.Add(1)
			if o.cfg.Metrics != nil {
				o.cfg.Metrics.Saved.Inc()
			}
			hostlog.Goodf("new crash sig=%s id=%d reason=%s", outcome.Signature, id, outcome.Reason)
		}
	}
	o.crashes.Add(1)
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.Crashes.Inc()
	}
}

func (o *Orchestrator) saveCrash(id uint64, data []byte, res executor.Result, outcome triage.Outcome) error {
	base := fmt.Sprintf("crash-%d", id)
	binPath := filepath.Join(o.cfg.OutDir, base+".bin")
	metaPath := filepath.Join(o.cfg.OutDir, base+".meta.txt")

	if err := osutil.WriteFile(binPath, data); err != nil {
		return fmt.Errorf("write %s: %w", binPath, err)
	}

	meta := fmt.Sprintf(
		"time: %s\nrun: %s\nreason: %s\nsig: %s\nexit: %d term_sig: %d timeout: %s\nstdout:\n%s\n--- stderr ---\n%s\n",
		fsutil.NowISO8601(), o.runID, outcome.Reason, outcome.Signature,
		res.ExitCode, res.TermSig, yesNo(res.TimedOut), res.Stdout, res.Stderr)
	if err := osutil.WriteFile(metaPath, []byte(meta)); err != nil {
		return fmt.Errorf("write %s: %w", metaPath, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ParseArgvTemplate is a thin re-export so callers need only import
// orchestrator for the common path of building a Config from a raw
// command-line string.
func ParseArgvTemplate(cmdline string) []string {
	return argvtmpl.Split(cmdline)
}
