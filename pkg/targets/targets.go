// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package targets contains built-in instrumented targets.
// A target interprets a fuzzer input and reports every state transition
// of its internal state machines to a Recorder.
package targets

import (
	"fmt"
	"sort"
	"strings"
)

// Recorder receives state transitions. *statetable.Table implements it.
type Recorder interface {
	UpdateState(machine, node int) bool
}

type Target struct {
	Name        string
	Description string
	// Fn executes one input. It may panic, a panic is a crash.
	Fn func(data []byte, rec Recorder)
	// Seeds are initial corpus inputs.
	Seeds [][]byte
}

var registry = make(map[string]*Target)

func register(target *Target) {
	if registry[target.Name] != nil {
		panic(fmt.Sprintf("duplicate target %v", target.Name))
	}
	registry[target.Name] = target
}

func Get(name string) (*Target, error) {
	target := registry[name]
	if target == nil {
		var names []string
		for _, t := range List() {
			names = append(names, t.Name)
		}
		return nil, fmt.Errorf("unknown target %q, supported: %v", name, strings.Join(names, ", "))
	}
	return target, nil
}

// List returns all targets sorted by name.
func List() []*Target {
	var res []*Target
	for _, target := range registry {
		res = append(res, target)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// NopRecorder discards transitions.
type NopRecorder struct{}

func (NopRecorder) UpdateState(machine, node int) bool { return false }
