// Copyright 2024 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fuzzer drives instrumented targets with stateful coverage feedback.
// Every worker owns a state table; new max signal puts inputs into the corpus.
package fuzzer

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/statefuzz/statefuzz/pkg/hash"
	"github.com/statefuzz/statefuzz/pkg/log"
	"github.com/statefuzz/statefuzz/pkg/osutil"
	"github.com/statefuzz/statefuzz/pkg/signal"
	"github.com/statefuzz/statefuzz/pkg/stat"
	"github.com/statefuzz/statefuzz/pkg/statetable"
	"github.com/statefuzz/statefuzz/pkg/targets"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Target  *targets.Target
	Workers int
	MaxLen  int
	// Total number of executions, 0 means unlimited.
	MaxExecs int
	// Per-worker number of executions after which the accumulated table is reset.
	EpochExecs int
	// If set, accumulated coverage is saved there at the end of every epoch
	// and max signal is restored from there on start.
	SnapshotDir string
	// Campaign id used in snapshot names, random if empty.
	Campaign string
	Seed     int64
	Logf     func(level int, msg string, args ...interface{})
	// NewCrash is called for the first occurrence of every unique crash.
	NewCrash func(crash *Crash)
}

type Fuzzer struct {
	*Stats
	Config *Config
	Cover  *Cover
	Corpus *Corpus

	workers    []*worker
	slots      atomic.Int64
	execs      atomic.Int64
	candidates chan []byte
	smashQueue *priorityQueue[*smashJob]
	crashMu    sync.Mutex
	crashes    crashes
}

type worker struct {
	id    int
	mu    sync.Mutex // protects tab
	tab   *statetable.Table
	rnd   *rand.Rand
	mut   *mutator
	execs int
	epoch int
	// Start of the current epoch.
	epochStart time.Time
}

type smashJob struct {
	inp  *Input
	prio int
	left int
}

// Number of mutations of every new input before it joins the regular corpus rotation.
const smashIters = 32

func NewFuzzer(cfg *Config, seeds [][]byte) (*Fuzzer, error) {
	if cfg.Target == nil {
		return nil, fmt.Errorf("no target")
	}
	if cfg.Workers < 1 || cfg.MaxLen < 1 {
		return nil, fmt.Errorf("bad workers/max len: %v/%v", cfg.Workers, cfg.MaxLen)
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Logf
	}
	if cfg.Campaign == "" {
		cfg.Campaign = uuid.NewString()
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	f := &Fuzzer{
		Stats:      newStats(),
		Config:     cfg,
		Cover:      newCover(),
		Corpus:     newCorpus(),
		candidates: make(chan []byte, len(seeds)),
		smashQueue: makePriorityQueue[*smashJob](),
		crashes:    crashes{all: make(map[string]*Crash)},
	}
	for _, seed := range seeds {
		if len(seed) > cfg.MaxLen {
			seed = seed[:cfg.MaxLen]
		}
		f.candidates <- append([]byte{}, seed...)
	}
	close(f.candidates)
	if cfg.SnapshotDir != "" {
		if err := osutil.MkdirAll(cfg.SnapshotDir); err != nil {
			return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
		}
		sign, files, err := LoadSnapshots(cfg.SnapshotDir)
		if err != nil {
			return nil, err
		}
		f.Cover.AddMaxSignal(sign)
		cfg.Logf(0, "loaded %v snapshots with %v features", files, sign.Len())
	}
	for i := 0; i < cfg.Workers; i++ {
		tab, err := statetable.New()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to allocate state table: %w", err)
		}
		w := &worker{
			id:         i,
			tab:        tab,
			rnd:        rand.New(rand.NewSource(cfg.Seed + int64(i))),
			epochStart: time.Now(),
		}
		w.mut = &mutator{
			r:      w.rnd,
			maxLen: cfg.MaxLen,
			other: func() []byte {
				if inp := f.Corpus.chooseInput(w.rnd); inp != nil {
					return inp.Data
				}
				return nil
			},
		}
		f.workers = append(f.workers, w)
	}
	stat.New("corpus", "Number of inputs in the corpus", stat.Console,
		func() int { return f.Corpus.Stat().Inputs }, stat.Prometheus("stf_corpus"))
	stat.New("max signal", "Number of distinct features observed", stat.Console,
		f.Cover.MaxSignalLen, stat.Prometheus("stf_max_signal"))
	stat.New("smash queue", "Inputs waiting to be mutated", f.smashQueue.Len)
	return f, nil
}

// Close releases worker state tables. The fuzzer must not be running.
func (f *Fuzzer) Close() error {
	var firstErr error
	for _, w := range f.workers {
		if err := w.tab.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.workers = nil
	return firstErr
}

// Loop runs all workers until ctx is cancelled or MaxExecs executions are done.
func (f *Fuzzer) Loop(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range f.workers {
		g.Go(func() error {
			return f.workerLoop(ctx, w)
		})
	}
	return g.Wait()
}

func (f *Fuzzer) workerLoop(ctx context.Context, w *worker) error {
	for ctx.Err() == nil {
		if n := f.slots.Add(1); f.Config.MaxExecs != 0 && n > int64(f.Config.MaxExecs) {
			return nil
		}
		data, kind := f.nextInput(w)
		f.execute(w, data, kind)
		if f.Config.EpochExecs != 0 && w.execs%f.Config.EpochExecs == 0 {
			if err := f.endEpoch(w); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *Fuzzer) nextInput(w *worker) ([]byte, *stat.Val) {
	if data, ok := <-f.candidates; ok {
		return data, f.statExecSeed
	}
	if job, ok := f.smashQueue.tryPop(); ok {
		if job.left--; job.left > 0 {
			f.smashQueue.push(job, job.prio)
		}
		return w.mut.mutate(job.inp.Data), f.statExecSmash
	}
	inp := f.Corpus.chooseInput(w.rnd)
	if inp == nil || w.rnd.Intn(100) == 0 {
		return randInput(w.rnd, f.Config.MaxLen), f.statExecGenerate
	}
	return w.mut.mutate(inp.Data), f.statExecFuzz
}

type execResult struct {
	informative int
	newSignal   int
	crashed     bool
}

// countingRecorder counts informative transitions of one execution.
type countingRecorder struct {
	tab         *statetable.Table
	informative int
}

func (rec *countingRecorder) UpdateState(machine, node int) bool {
	fresh := rec.tab.UpdateState(machine, node)
	if fresh {
		rec.informative++
	}
	return fresh
}

func (f *Fuzzer) execute(w *worker, data []byte, kind *stat.Val) execResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tab.Reset()
	rec := &countingRecorder{tab: w.tab}
	start := time.Now()
	output := runTarget(f.Config.Target, data, rec)
	f.statExecTime.Add(int(time.Since(start).Microseconds()))
	w.execs++
	f.execs.Add(1)
	f.statExecTotal.Add(1)
	kind.Add(1)
	f.statInformative.Add(rec.informative)

	res := execResult{
		informative: rec.informative,
		crashed:     output != nil,
	}
	if output != nil {
		f.saveCrash(data, output)
	}
	sign := signal.FromTable(w.tab)
	diff := f.Cover.addMaxSignal(sign)
	res.newSignal = diff.Len()
	// Candidates are kept even if their signal is already known (e.g. restored
	// from snapshots), otherwise a restart would lose the saved corpus.
	candidate := kind == f.statExecSeed
	if res.crashed || sign.Empty() || diff.Empty() && !candidate {
		return res
	}
	inp := &Input{
		Data:        data,
		Signal:      sign,
		Informative: rec.informative,
		Sig:         hash.Hash(data),
	}
	if !f.Corpus.Save(inp) || diff.Empty() {
		return res
	}
	f.statNewInputs.Add(1)
	f.smashQueue.push(&smashJob{inp: inp, prio: diff.Len(), left: smashIters}, diff.Len())
	f.Config.Logf(2, "worker %v: new input %v: %v new features, %v informative transitions",
		w.id, inp.Sig.String()[:8], diff.Len(), rec.informative)
	return res
}

func (f *Fuzzer) saveCrash(data, output []byte) {
	f.crashMu.Lock()
	crash, isNew := f.crashes.add(data, output)
	var report Crash
	if isNew {
		report = *crash
	}
	f.crashMu.Unlock()
	f.statCrashes.Add(1)
	if !isNew {
		return
	}
	f.statCrashTypes.Add(1)
	f.Config.Logf(0, "new crash: %v", report.Title)
	if f.Config.NewCrash != nil {
		f.Config.NewCrash(&report)
	}
}

// Crashes returns copies of all unique crashes.
func (f *Fuzzer) Crashes() []*Crash {
	f.crashMu.Lock()
	defer f.crashMu.Unlock()
	var res []*Crash
	for _, crash := range f.crashes.list() {
		c := *crash
		res = append(res, &c)
	}
	return res
}

func (f *Fuzzer) endEpoch(w *worker) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if f.Config.SnapshotDir != "" {
		snap := &Snapshot{
			Campaign: f.Config.Campaign,
			Worker:   w.id,
			Epoch:    w.epoch,
			Execs:    w.execs,
			Time:     time.Now(),
			Signal:   signal.FromAccumulated(w.tab).Serialize(),
		}
		file := filepath.Join(f.Config.SnapshotDir, snap.fileName())
		if err := SaveSnapshot(file, snap); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		f.statSnapshots.Add(1)
	}
	st := w.tab.Accumulated().Stats()
	f.Config.Logf(1, "worker %v: epoch %v done: %v machines, %v nodes, %v edges",
		w.id, w.epoch, st.Machines, st.Nodes, st.Edges)
	w.tab.ResetAccumulated()
	w.epoch++
	f.statEpochs.Add(1)
	f.avgEpochTime.Save(time.Since(w.epochStart))
	w.epochStart = time.Now()
	return nil
}

// PendingCandidates returns the number of seed inputs not executed yet.
func (f *Fuzzer) PendingCandidates() int {
	return len(f.candidates)
}

// Execs returns the number of finished executions.
func (f *Fuzzer) Execs() int {
	return int(f.execs.Load())
}

// AccumulatedCoverage merges accumulated tables of all workers into a new table.
// The caller must close the result.
func (f *Fuzzer) AccumulatedCoverage() (*statetable.Table, error) {
	res, err := statetable.New()
	if err != nil {
		return nil, err
	}
	for _, w := range f.workers {
		w.mu.Lock()
		res.MergeAccumulated(w.tab)
		w.mu.Unlock()
	}
	return res, nil
}

func (f *Fuzzer) PrintCoverage(w io.Writer, printAllCounters bool) error {
	tab, err := f.AccumulatedCoverage()
	if err != nil {
		return err
	}
	defer tab.Close()
	return tab.PrintAccumulated(w, printAllCounters)
}
