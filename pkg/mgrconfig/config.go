// Copyright 2015 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mgrconfig

type Config struct {
	// Instance name (used for identification in logs and on the web UI).
	Name string `json:"name" env:"NAME"`
	// Instrumented target to fuzz, one of pkg/targets names (e.g. "usbctl").
	Target string `json:"target" env:"TARGET"`
	// Address to serve the web UI and /metrics on (e.g. "localhost:56741").
	// Empty disables the web UI.
	HTTP string `json:"http" env:"HTTP"`
	// Location of a working directory for the stf-manager process. Outputs here include:
	// - <workdir>/crashes/*: crash reports and reproducers
	// - <workdir>/corpus/*: minimized corpus saved at exit
	// - <workdir>/snapshots/*: accumulated coverage snapshots (if snapshots are enabled)
	Workdir string `json:"workdir" env:"WORKDIR"`
	// Number of parallel workers, each owns a separate state table.
	Workers int `json:"workers" env:"WORKERS"`
	// Maximum length of generated inputs.
	MaxLen int `json:"max_len" env:"MAX_LEN"`
	// Stop after this many executions in total (0 means run until interrupted).
	MaxExecs int `json:"max_execs" env:"MAX_EXECS"`
	// Number of executions per worker after which the accumulated table is reset
	// (0 means never).
	EpochExecs int `json:"epoch_execs" env:"EPOCH_EXECS"`
	// Save accumulated coverage at every epoch end and load it on start.
	Snapshots bool `json:"snapshots" env:"SNAPSHOTS"`
	// Print raw counter values instead of hit marks in coverage reports.
	PrintAllCounters bool `json:"print_all_counters" env:"PRINT_ALL_COUNTERS"`
	// Random seed, 0 means seed from the current time.
	Seed int64 `json:"seed" env:"SEED"`
	// Log verbosity.
	Verbosity int `json:"verbosity" env:"VERBOSITY"`

	// Implementation details beyond this point. Filled after parsing.
	SnapshotDir string `json:"-"`
}
