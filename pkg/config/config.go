// Package config implements the optional YAML run-profile overlay: flag
// values that differ from their defaults (non-empty strings, non-default
// numbers) take precedence over values loaded from --config; everything
// else falls through to the file (or to the flag defaults if no file was
// given). A flag passed on the command line with its default value is not
// told apart from an unset one, so a non-zero file value overrides it.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// File mirrors the CLI flag set, so it can be loaded as a run profile and
// merged with explicit flags.
type File struct {
	Target       string `yaml:"target"`
	SeedsDir     string `yaml:"seeds_dir"`
	OutDir       string `yaml:"out_dir"`
	DictPath     string `yaml:"dict_path"`
	AllowedExits []int  `yaml:"allowed_exits"`
	Iterations   int    `yaml:"iterations"`
	Threads      int    `yaml:"threads"`
	TimeoutMS    int    `yaml:"timeout_ms"`
	MemMB        int    `yaml:"mem_mb"`
	MaxSize      int    `yaml:"max_size"`
	Seed         uint64 `yaml:"seed"`
	MetricsAddr  string `yaml:"metrics_addr"`
}

// Load parses a YAML run profile from path.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, err
	}
	return f, nil
}

// MergeString returns fileVal when flagVal is the empty string, else
// flagVal (an explicitly-set flag always wins).
func MergeString(flagVal, fileVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return fileVal
}

// MergeInt returns fileVal when flagVal equals flagDefault and fileVal is
// non-zero, else flagVal.
func MergeInt(flagVal, fileVal, flagDefault int) int {
	if flagVal != flagDefault {
		return flagVal
	}
	if fileVal != 0 {
		return fileVal
	}
	return flagVal
}
