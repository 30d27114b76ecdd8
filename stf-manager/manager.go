// Copyright 2015 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/statefuzz/statefuzz/pkg/fuzzer"
	"github.com/statefuzz/statefuzz/pkg/hash"
	"github.com/statefuzz/statefuzz/pkg/log"
	"github.com/statefuzz/statefuzz/pkg/mgrconfig"
	"github.com/statefuzz/statefuzz/pkg/osutil"
	"github.com/statefuzz/statefuzz/pkg/stat"
	"github.com/statefuzz/statefuzz/pkg/targets"
)

type Manager struct {
	cfg       *mgrconfig.Config
	target    *targets.Target
	fuzzer    *fuzzer.Fuzzer
	crashdir  string
	corpusDir string
	startTime time.Time

	mu         sync.Mutex
	lastSignal int
}

func newManager(cfg *mgrconfig.Config) (*Manager, error) {
	target, err := targets.Get(cfg.Target)
	if err != nil {
		return nil, err
	}
	mgr := &Manager{
		cfg:       cfg,
		target:    target,
		crashdir:  filepath.Join(cfg.Workdir, "crashes"),
		corpusDir: filepath.Join(cfg.Workdir, "corpus"),
		startTime: time.Now(),
	}
	for _, dir := range []string{mgr.crashdir, mgr.corpusDir} {
		if err := osutil.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("failed to create %v: %w", dir, err)
		}
	}
	seeds, err := mgr.loadCorpus()
	if err != nil {
		return nil, err
	}
	fcfg := &fuzzer.Config{
		Target:     target,
		Workers:    cfg.Workers,
		MaxLen:     cfg.MaxLen,
		MaxExecs:   cfg.MaxExecs,
		EpochExecs: cfg.EpochExecs,
		Seed:       cfg.Seed,
		Logf:       log.Logf,
		NewCrash:   mgr.saveCrash,
	}
	if cfg.Snapshots {
		fcfg.SnapshotDir = cfg.SnapshotDir
	}
	mgr.fuzzer, err = fuzzer.NewFuzzer(fcfg, seeds)
	if err != nil {
		return nil, err
	}
	stat.New("uptime", "Time since the manager start", stat.Console,
		func() int { return int(time.Since(mgr.startTime) / time.Second) },
		func(v int, period time.Duration) string {
			return (time.Duration(v) * time.Second).String()
		})
	return mgr, nil
}

// loadCorpus returns target seeds followed by inputs saved by previous runs.
func (mgr *Manager) loadCorpus() ([][]byte, error) {
	seeds := append([][]byte{}, mgr.target.Seeds...)
	files, err := osutil.ListDir(mgr.corpusDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus dir: %w", err)
	}
	for _, file := range files {
		data, err := os.ReadFile(filepath.Join(mgr.corpusDir, file))
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, data)
	}
	log.Logf(0, "loaded %v seeds and %v corpus inputs", len(mgr.target.Seeds), len(seeds)-len(mgr.target.Seeds))
	return seeds, nil
}

func (mgr *Manager) run(ctx context.Context) error {
	if mgr.cfg.HTTP != "" {
		if err := mgr.initHTTP(ctx); err != nil {
			return err
		}
	}
	go mgr.printStats(ctx, 10*time.Second)
	log.Logf(0, "fuzzing %v with %v workers, campaign %v",
		mgr.target.Name, mgr.cfg.Workers, mgr.fuzzer.Config.Campaign)
	if err := mgr.fuzzer.Loop(ctx); err != nil {
		return err
	}
	log.Logf(0, "fuzzing stopped after %v executions", mgr.fuzzer.Execs())
	return mgr.finish()
}

func (mgr *Manager) printStats(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		log.Logf(0, "%v", mgr.consoleStats())
	}
}

func (mgr *Manager) consoleStats() string {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.lastSignal += mgr.fuzzer.Cover.GrabNewSignal().Len()
	str := fmt.Sprintf("new signal %v", mgr.lastSignal)
	for _, st := range stat.Collect(stat.Console) {
		str += fmt.Sprintf(", %v %v", st.Name, st.Value)
	}
	return str
}

func (mgr *Manager) saveCrash(crash *fuzzer.Crash) {
	log.Logf(0, "new crash: %v", crash.Title)
	dir := filepath.Join(mgr.crashdir, crash.ID())
	if err := osutil.MkdirAll(dir); err != nil {
		log.Logf(0, "failed to create crash dir: %v", err)
		return
	}
	files := map[string][]byte{
		"description": []byte(crash.Title + "\n"),
		"report":      crash.Output,
		"input":       crash.Input,
	}
	for name, data := range files {
		if err := osutil.WriteFile(filepath.Join(dir, name), data); err != nil {
			log.Logf(0, "failed to write crash: %v", err)
		}
	}
}

// finish saves the minimized corpus and the smallest input of every crash
// and prints the accumulated coverage.
func (mgr *Manager) finish() error {
	if err := mgr.saveCorpus(); err != nil {
		return err
	}
	// Earlier inputs for the same crash might have been longer.
	for _, crash := range mgr.fuzzer.Crashes() {
		file := filepath.Join(mgr.crashdir, crash.ID(), "input")
		if err := osutil.WriteFile(file, crash.Input); err != nil {
			return err
		}
	}
	return mgr.fuzzer.PrintCoverage(os.Stdout, mgr.cfg.PrintAllCounters)
}

func (mgr *Manager) saveCorpus() error {
	before := len(mgr.fuzzer.Corpus.Inputs())
	inputs := mgr.fuzzer.Corpus.Minimize()
	log.Logf(0, "minimized corpus: %v -> %v", before, len(inputs))
	keep := make(map[string]bool)
	for _, inp := range inputs {
		name := hash.String(inp.Data)
		keep[name] = true
		if err := osutil.WriteFile(filepath.Join(mgr.corpusDir, name), inp.Data); err != nil {
			return err
		}
	}
	if pending := mgr.fuzzer.PendingCandidates(); pending != 0 {
		// Inputs that were not executed are not known to be redundant.
		log.Logf(0, "keeping old corpus files: %v inputs were not executed", pending)
		return nil
	}
	files, err := osutil.ListDir(mgr.corpusDir)
	if err != nil {
		return err
	}
	for _, file := range files {
		if !keep[file] {
			os.Remove(filepath.Join(mgr.corpusDir, file))
		}
	}
	return nil
}
