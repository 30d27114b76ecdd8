// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package statetable records stateful coverage feedback for a fuzzing engine.
//
// A Table tracks up to MaxMachines independent abstract state machines.
// For each machine it counts how many times every node (state) and every
// edge (pair of consecutively observed nodes) was seen, using 8-bit
// saturating counters. Two structurally identical tables are kept:
// the current one covers a single execution and is reset before every run,
// the accumulated one covers the whole campaign and is reset only on request.
//
// Every counter has a stable feature id (see NodeFeature and EdgeFeature),
// so a fuzzer can compare runs by feature rather than by memory layout.
//
// A Table is not safe for concurrent use. Concurrent fuzzing workers
// must own separate tables.
package statetable

import (
	"fmt"
	"unsafe"

	"github.com/statefuzz/statefuzz/pkg/osutil"
)

const (
	MaxMachines = 1 << 8
	NodeCount   = 1 << 6
	// NoNode is the cursor value of a machine that has not observed any node
	// since the last reset.
	NoNode = NodeCount
	// EdgeCount is the number of edge counters stored per machine.
	// Edges are indexed by prev*NodeCount+cur, self-loops included.
	EdgeCount  = NodeCount * NodeCount
	MaxCounter = 1<<8 - 1

	// FeatureEdges is the number of edges with a feature id per machine:
	// all ordered pairs of distinct nodes.
	FeatureEdges       = NodeCount * (NodeCount - 1)
	FeaturesPerMachine = NodeCount + FeatureEdges
)

// machine is 4160 bytes long, a multiple of the cache line size,
// so every record of an aligned table starts on a cache line.
type machine struct {
	nodes [NodeCount]uint8
	edges [EdgeCount]uint8
}

type table struct {
	machines [MaxMachines]machine
	// Edges of both tables are computed from the current cursors.
	// The accumulated cursors only mirror them for View.Cursor.
	cursors [MaxMachines]uint8
}

type tables struct {
	cur table
	acc table
}

// Table holds the current and the accumulated coverage of all state machines.
type Table struct {
	mem []byte
	cur *table
	acc *table
}

// New allocates a table with both the current and the accumulated parts reset.
// The storage is page-aligned and must be released with Close.
func New() (*Table, error) {
	mem, err := osutil.MapAnonymous(int(unsafe.Sizeof(tables{})))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate state table: %w", err)
	}
	tabs := (*tables)(unsafe.Pointer(&mem[0]))
	t := &Table{
		mem: mem,
		cur: &tabs.cur,
		acc: &tabs.acc,
	}
	t.Reset()
	t.ResetAccumulated()
	return t, nil
}

func (t *Table) Close() error {
	if t.mem == nil {
		return nil
	}
	mem := t.mem
	t.mem, t.cur, t.acc = nil, nil, nil
	return osutil.UnmapAnonymous(mem)
}

// SizeInBytes returns the size of the feature space, which is the upper bound
// of feature ids reported by ForEachNonZeroByte.
func (t *Table) SizeInBytes() int {
	return MaxMachines * FeaturesPerMachine
}

// PreconditionError is the panic value for out-of-range machine ids, nodes and edges.
// These are caller bugs: clamping the value would corrupt edge encoding.
type PreconditionError struct {
	What  string
	Value int
	Limit int
}

func (err *PreconditionError) Error() string {
	return fmt.Sprintf("statetable: %v %v out of range [0, %v)", err.What, err.Value, err.Limit)
}

func checkMachine(m int) {
	if uint(m) >= MaxMachines {
		panic(&PreconditionError{"machine", m, MaxMachines})
	}
}

func checkNode(n int) {
	if uint(n) >= NodeCount {
		panic(&PreconditionError{"node", n, NodeCount})
	}
}

func checkEdge(e int) {
	if uint(e) >= EdgeCount {
		panic(&PreconditionError{"edge", e, EdgeCount})
	}
}
