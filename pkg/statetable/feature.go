// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package statetable

import (
	"fmt"
	"iter"
)

// Feature ids are laid out per machine: machine*FeaturesPerMachine+offset.
// Offsets [0, NodeCount) are node counters. Offsets [NodeCount, FeaturesPerMachine)
// are edges between distinct nodes ordered by (prev, cur). Self-loop edges
// are counted in the table but have no feature id.

func NodeFeature(machine, node int) uint32 {
	checkMachine(machine)
	checkNode(node)
	return uint32(machine*FeaturesPerMachine + node)
}

// EdgeFeature returns the feature id of the edge prev->cur,
// or false if prev == cur.
func EdgeFeature(machine, prev, cur int) (uint32, bool) {
	checkMachine(machine)
	checkNode(prev)
	checkNode(cur)
	if prev == cur {
		return 0, false
	}
	col := cur
	if cur > prev {
		col--
	}
	return uint32(machine*FeaturesPerMachine + NodeCount + prev*(NodeCount-1) + col), true
}

// Feature is a decoded feature id.
type Feature struct {
	Machine int
	Edge    bool
	Prev    int // only for edges
	Node    int
}

func DecodeFeature(f uint32) Feature {
	if f >= MaxMachines*FeaturesPerMachine {
		panic(&PreconditionError{"feature", int(f), MaxMachines * FeaturesPerMachine})
	}
	res := Feature{Machine: int(f / FeaturesPerMachine)}
	off := int(f % FeaturesPerMachine)
	if off < NodeCount {
		res.Node = off
		return res
	}
	off -= NodeCount
	res.Edge = true
	res.Prev = off / (NodeCount - 1)
	res.Node = off % (NodeCount - 1)
	if res.Node >= res.Prev {
		res.Node++
	}
	return res
}

func (f Feature) String() string {
	if f.Edge {
		return fmt.Sprintf("sm%v:%v->%v", f.Machine, f.Prev, f.Node)
	}
	return fmt.Sprintf("sm%v:%v", f.Machine, f.Node)
}

// ForEachNonZeroByte calls cb for every non-zero counter of the current table
// that has a feature id, in ascending feature order.
// Self-loop edges have no feature id and are never visited, so an execution
// whose only novelty is a self-loop produces no new signal even though
// UpdateState reported it as fresh.
func (t *Table) ForEachNonZeroByte(cb func(feature uint32, val uint8)) {
	t.cur.walk(func(f uint32, v uint8) bool {
		cb(f, v)
		return true
	})
}

// ForEachAccumulated is ForEachNonZeroByte for the accumulated table.
func (t *Table) ForEachAccumulated(cb func(feature uint32, val uint8)) {
	t.acc.walk(func(f uint32, v uint8) bool {
		cb(f, v)
		return true
	})
}

// NonZero returns the same sequence as ForEachNonZeroByte.
// Every iteration performs a fresh pass over the current table.
func (t *Table) NonZero() iter.Seq2[uint32, uint8] {
	return t.cur.walk
}

func (tab *table) walk(yield func(uint32, uint8) bool) {
	for m := range tab.machines {
		mc := &tab.machines[m]
		base := uint32(m * FeaturesPerMachine)
		// Edges are only counted together with nodes,
		// so a machine without node hits has no edge hits either.
		empty := true
		for n, v := range mc.nodes {
			if v == 0 {
				continue
			}
			empty = false
			if !yield(base+uint32(n), v) {
				return
			}
		}
		if empty {
			continue
		}
		f := base + NodeCount
		for prev := 0; prev < NodeCount; prev++ {
			row := mc.edges[prev*NodeCount : (prev+1)*NodeCount]
			for cur, v := range row {
				if cur == prev {
					continue
				}
				if v != 0 && !yield(f, v) {
					return
				}
				f++
			}
		}
	}
}
