// Copyright 2024 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"sync"

	"github.com/statefuzz/statefuzz/pkg/signal"
)

// Cover keeps track of the signal known to the fuzzer.
type Cover struct {
	mu        sync.RWMutex
	maxSignal signal.Signal // max signal ever observed
	newSignal signal.Signal // newly identified max signal
}

func newCover() *Cover {
	return new(Cover)
}

// Signal that should no longer be chased after.
func (cover *Cover) AddMaxSignal(sign signal.Signal) {
	cover.mu.Lock()
	defer cover.mu.Unlock()
	cover.maxSignal.Merge(sign)
}

// addMaxSignal returns the part of sign that is new and adds it to the max signal.
func (cover *Cover) addMaxSignal(sign signal.Signal) signal.Signal {
	cover.mu.RLock()
	diff := cover.maxSignal.Diff(sign)
	cover.mu.RUnlock()
	if diff.Empty() {
		return nil
	}
	cover.mu.Lock()
	defer cover.mu.Unlock()
	// Somebody could have added the same signal in between.
	diff = cover.maxSignal.Diff(diff)
	cover.maxSignal.Merge(diff)
	cover.newSignal.Merge(diff)
	return diff
}

func (cover *Cover) CopyMaxSignal() signal.Signal {
	cover.mu.RLock()
	defer cover.mu.RUnlock()
	return cover.maxSignal.Copy()
}

func (cover *Cover) GrabNewSignal() signal.Signal {
	cover.mu.Lock()
	defer cover.mu.Unlock()
	sign := cover.newSignal
	cover.newSignal = nil
	return sign
}

func (cover *Cover) MaxSignalLen() int {
	cover.mu.RLock()
	defer cover.mu.RUnlock()
	return len(cover.maxSignal)
}
