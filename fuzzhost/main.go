// Command fuzzhost drives a coverage-guided, mutation-based fuzzing
// campaign against a native executable target. See SPEC_FULL.md for the
// full design; this file wires pkg/corpus, pkg/mutator, pkg/executor,
// pkg/triage, pkg/covmap, pkg/metrics, and pkg/orchestrator together
// behind a flag-parsed CLI, following the shape of
// _examples/original_source/src/main.cpp (parse_options, preflight_target,
// startup/summary logging) and the teacher's top-level-binary-directory
// convention (one plain main package per tool, no cmd/ wrapper).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/w2807/fuzz/pkg/config"
	"github.com/w2807/fuzz/pkg/corpus"
	"github.com/w2807/fuzz/pkg/fsutil"
	"github.com/w2807/fuzz/pkg/hostlog"
	"github.com/w2807/fuzz/pkg/metrics"
	"github.com/w2807/fuzz/pkg/mutator"
	"github.com/w2807/fuzz/pkg/orchestrator"
	"github.com/w2807/fuzz/pkg/osutil"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: fuzzhost --target "./prog @@/{stdin}" --seeds dir --out dir [opts]
  --iterations N        total testcases (default 10000)
  --threads N           parallel workers (default 1)
  --timeout-ms N        per-run timeout (default 1000)
  --mem-mb N            RLIMIT_AS in MB (default 0 unlimited)
  --max-size N          max testcase bytes (default 4096)
  --dict path           dictionary file
  --seed N              rng seed (default random)
  --allowed-exits CSV   e.g. 1,2,3 treated as non-crash
  --metrics-addr addr   expose Prometheus metrics, e.g. :9090 (default off)
  --config path         YAML run profile; explicit flags override it
`)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("fuzzhost", flag.ContinueOnError)
	fs.Usage = usage

	target := fs.String("target", "", "target command-line template")
	seedsDir := fs.String("seeds", "", "seed directory")
	outDir := fs.String("out", "", "output directory for crashes")
	iterations := fs.Int("iterations", 10000, "total testcases")
	threads := fs.Int("threads", 1, "parallel workers")
	timeoutMS := fs.Int("timeout-ms", 1000, "per-run timeout")
	memMB := fs.Int("mem-mb", 0, "RLIMIT_AS in MB, 0 = unlimited")
	maxSize := fs.Int("max-size", 4096, "max testcase bytes")
	dictPath := fs.String("dict", "", "dictionary file")
	seedFlag := fs.Uint64("seed", 0, "rng seed, 0 = derive from OS entropy")
	allowedExitsCSV := fs.String("allowed-exits", "", "comma-separated exit codes treated as non-crash")
	metricsAddr := fs.String("metrics-addr", "", "expose Prometheus metrics on this address")
	configPath := fs.String("config", "", "YAML run profile")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *configPath != "" {
		f, err := config.Load(*configPath)
		if err != nil {
			hostlog.Errorf("failed to load config %v: %v", *configPath, err)
			return 1
		}
		*target = config.MergeString(*target, f.Target)
		*seedsDir = config.MergeString(*seedsDir, f.SeedsDir)
		*outDir = config.MergeString(*outDir, f.OutDir)
		*dictPath = config.MergeString(*dictPath, f.DictPath)
		*metricsAddr = config.MergeString(*metricsAddr, f.MetricsAddr)
		*iterations = config.MergeInt(*iterations, f.Iterations, 10000)
		*threads = config.MergeInt(*threads, f.Threads, 1)
		*timeoutMS = config.MergeInt(*timeoutMS, f.TimeoutMS, 1000)
		*memMB = config.MergeInt(*memMB, f.MemMB, 0)
		*maxSize = config.MergeInt(*maxSize, f.MaxSize, 4096)
		if *seedFlag == 0 && f.Seed != 0 {
			*seedFlag = f.Seed
		}
		if *allowedExitsCSV == "" && len(f.AllowedExits) > 0 {
			parts := make([]string, len(f.AllowedExits))
			for i, v := range f.AllowedExits {
				parts[i] = strconv.Itoa(v)
			}
			*allowedExitsCSV = strings.Join(parts, ",")
		}
	}

	if *target == "" || *seedsDir == "" || *outDir == "" {
		usage()
		hostlog.Errorf("missing required args")
		return 1
	}
	if *threads < 1 {
		*threads = 1
	}

	allowedExits, err := parseAllowedExits(*allowedExitsCSV)
	if err != nil {
		hostlog.Errorf("%v", err)
		return 1
	}

	argvTemplate := orchestrator.ParseArgvTemplate(*target)
	if len(argvTemplate) == 0 {
		hostlog.Errorf("empty target")
		return 1
	}
	if err := preflightTarget(argvTemplate[0]); err != nil {
		hostlog.Errorf("%v", err)
		return 1
	}

	if err := osutil.MkdirAll(*outDir); err != nil {
		hostlog.Errorf("create out dir: %v", err)
		return 1
	}

	c := corpus.New(*maxSize, 0)
	if !c.LoadDir(*seedsDir) {
		hostlog.Errorf("failed to load seeds")
		return 1
	}

	var dict mutator.Dict
	if *dictPath != "" {
		d, err := mutator.LoadDict(*dictPath)
		if err != nil || len(d.Tokens) == 0 {
			hostlog.Errorf("dict empty or load failed: %v", err)
		} else {
			dict = d
			hostlog.Logf(0, "dict loaded: %d tokens", len(d.Tokens))
		}
	}

	globalSeed := *seedFlag
	if globalSeed == 0 {
		globalSeed = fsutil.SeedFromOS()
	}
	hostlog.Logf(0, "seed: %d", globalSeed)

	var rec *metrics.Recorder
	if *metricsAddr != "" {
		r, reg := metrics.NewRecorder()
		rec = r
		go func() {
			if err := metrics.Serve(*metricsAddr, reg); err != nil {
				hostlog.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	orc := orchestrator.New(orchestrator.Config{
		ArgvTemplate: argvTemplate,
		OutDir:       *outDir,
		Iterations:   uint64(*iterations),
		Threads:      *threads,
		TimeoutMS:    *timeoutMS,
		MemMB:        *memMB,
		MaxSize:      *maxSize,
		Seed:         globalSeed,
		AllowedExits: allowedExits,
		Dict:         dict,
		Corpus:       c,
		Metrics:      rec,
	})

	if _, err := orc.Run(ctx); err != nil {
		hostlog.Errorf("campaign failed: %v", err)
		return 1
	}
	return 0
}

func parseAllowedExits(csv string) (map[int]bool, error) {
	out := map[int]bool{}
	if csv == "" {
		return out, nil
	}
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid --allowed-exits value %q: %w", tok, err)
		}
		out[n] = true
	}
	return out, nil
}

// preflightTarget resolves exe against PATH (or checks it directly if
// path-qualified) and rejects a non-executable target before the worker
// pool starts, matching the original's preflight_target.
func preflightTarget(exe string) error {
	if strings.Contains(exe, "/") {
		if !osutil.IsExecutable(exe) {
			return fmt.Errorf("target not executable: %s", exe)
		}
		return nil
	}
	if _, err := exec.LookPath(exe); err != nil {
		return fmt.Errorf("cannot find target in PATH: %s", exe)
	}
	return nil
}
