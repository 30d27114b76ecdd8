// Copyright 2024 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"math/rand"
	"sync"

	"github.com/statefuzz/statefuzz/pkg/hash"
	"github.com/statefuzz/statefuzz/pkg/signal"
)

type Input struct {
	Data   []byte
	Signal signal.Signal
	// Number of state transitions that increased a not yet saturated counter.
	Informative int
	Sig         hash.Sig
}

type Corpus struct {
	mu     sync.RWMutex
	inputs []*Input
	hashes map[hash.Sig]struct{}
	signal signal.Signal // signal of inputs in corpus
}

// CorpusStat is a snapshot of the relevant current state figures.
type CorpusStat struct {
	Inputs int
	Signal int
}

func newCorpus() *Corpus {
	return &Corpus{
		hashes: make(map[hash.Sig]struct{}),
	}
}

// Save adds the input unless an input with the same contents is already there.
func (corpus *Corpus) Save(inp *Input) bool {
	corpus.mu.Lock()
	defer corpus.mu.Unlock()
	corpus.signal.Merge(inp.Signal)
	if _, ok := corpus.hashes[inp.Sig]; ok {
		return false
	}
	corpus.hashes[inp.Sig] = struct{}{}
	corpus.inputs = append(corpus.inputs, inp)
	return true
}

// chooseInput runs a tournament of two random inputs,
// the one with more informative transitions wins.
func (corpus *Corpus) chooseInput(r *rand.Rand) *Input {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	if len(corpus.inputs) == 0 {
		return nil
	}
	a := corpus.inputs[r.Intn(len(corpus.inputs))]
	b := corpus.inputs[r.Intn(len(corpus.inputs))]
	if b.Informative > a.Informative {
		return b
	}
	return a
}

func (corpus *Corpus) Inputs() []*Input {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return append([]*Input{}, corpus.inputs...)
}

// Minimize returns a subset of inputs that covers the whole corpus signal.
func (corpus *Corpus) Minimize() []*Input {
	corpus.mu.RLock()
	contexts := make([]signal.Context, len(corpus.inputs))
	for i, inp := range corpus.inputs {
		contexts[i] = signal.Context{Signal: inp.Signal, Context: inp}
	}
	corpus.mu.RUnlock()
	var res []*Input
	for _, ctx := range signal.Minimize(contexts) {
		res = append(res, ctx.(*Input))
	}
	return res
}

func (corpus *Corpus) Stat() CorpusStat {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return CorpusStat{
		Inputs: len(corpus.inputs),
		Signal: len(corpus.signal),
	}
}
