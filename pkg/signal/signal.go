// Copyright 2018 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package signal provides types for working with feedback signal.
//
// Signal elements are state table feature ids, priorities are
// log-scale buckets of the feature counters.
package signal

import (
	"sort"

	"github.com/statefuzz/statefuzz/pkg/statetable"
)

type (
	elemType uint32
	prioType int8
)

type Signal map[elemType]prioType

type Serial struct {
	Elems []elemType `json:"elems"`
	Prios []prioType `json:"prios"`
}

// Prio maps a counter value to its bucket, so that small changes in hit counts
// of already frequent features do not count as new signal.
func Prio(count uint8) uint8 {
	switch {
	case count <= 3:
		return count
	case count <= 7:
		return 4
	case count <= 15:
		return 5
	case count <= 31:
		return 6
	case count <= 127:
		return 7
	default:
		return 8
	}
}

// FromTable returns the signal of the current table of t.
func FromTable(t *statetable.Table) Signal {
	var s Signal
	t.ForEachNonZeroByte(func(f uint32, v uint8) {
		if s == nil {
			s = make(Signal)
		}
		s[elemType(f)] = prioType(Prio(v))
	})
	return s
}

// FromAccumulated returns the features of the accumulated table of t.
// Accumulated counters are summed over many executions and are not comparable
// with per-execution counters, so all elements get the priority of a single hit.
func FromAccumulated(t *statetable.Table) Signal {
	var s Signal
	t.ForEachAccumulated(func(f uint32, v uint8) {
		if s == nil {
			s = make(Signal)
		}
		s[elemType(f)] = prioType(Prio(1))
	})
	return s
}

func (s Signal) Len() int {
	return len(s)
}

func (s Signal) Empty() bool {
	return len(s) == 0
}

func (s Signal) Copy() Signal {
	c := make(Signal, len(s))
	for e, p := range s {
		c[e] = p
	}
	return c
}

// Elems returns sorted feature ids.
func (s Signal) Elems() []uint32 {
	res := make([]uint32, 0, len(s))
	for e := range s {
		res = append(res, uint32(e))
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

func (s Signal) Prio(elem uint32) (uint8, bool) {
	p, ok := s[elemType(elem)]
	return uint8(p), ok
}

func FromRaw(raw []uint32, prio uint8) Signal {
	if len(raw) == 0 {
		return nil
	}
	s := make(Signal, len(raw))
	for _, e := range raw {
		s[elemType(e)] = prioType(prio)
	}
	return s
}

// Serialize returns elements in ascending order.
func (s Signal) Serialize() Serial {
	if s.Empty() {
		return Serial{}
	}
	res := Serial{
		Elems: make([]elemType, 0, len(s)),
		Prios: make([]prioType, 0, len(s)),
	}
	for _, e := range s.Elems() {
		res.Elems = append(res.Elems, elemType(e))
		res.Prios = append(res.Prios, s[elemType(e)])
	}
	return res
}

func (ser Serial) Deserialize() Signal {
	if len(ser.Elems) != len(ser.Prios) {
		panic("corrupted Serial")
	}
	if len(ser.Elems) == 0 {
		return nil
	}
	s := make(Signal, len(ser.Elems))
	for i, e := range ser.Elems {
		s[e] = ser.Prios[i]
	}
	return s
}

// Diff returns elements of s1 that are missing in s or have a higher priority in s1.
func (s Signal) Diff(s1 Signal) Signal {
	if s1.Empty() {
		return nil
	}
	var res Signal
	for e, p1 := range s1 {
		if p, ok := s[e]; ok && p >= p1 {
			continue
		}
		if res == nil {
			res = make(Signal)
		}
		res[e] = p1
	}
	return res
}

func (s Signal) Intersection(s1 Signal) Signal {
	if s1.Empty() {
		return nil
	}
	res := make(Signal, len(s))
	for e, p := range s {
		if p1, ok := s1[e]; ok && p1 >= p {
			res[e] = p
		}
	}
	return res
}

func (s *Signal) Merge(s1 Signal) {
	if s1.Empty() {
		return
	}
	s0 := *s
	if s0 == nil {
		s0 = make(Signal, len(s1))
		*s = s0
	}
	for e, p1 := range s1 {
		if p, ok := s0[e]; !ok || p < p1 {
			s0[e] = p1
		}
	}
}

type Context struct {
	Signal  Signal
	Context interface{}
}

// Minimize returns contexts that together cover every element of the corpus
// signal with its maximum priority.
func Minimize(corpus []Context) []interface{} {
	type ContextPrio struct {
		prio prioType
		idx  int
	}
	covered := make(map[elemType]ContextPrio)
	for i, inp := range corpus {
		for e, p := range inp.Signal {
			if prev, ok := covered[e]; !ok || p > prev.prio {
				covered[e] = ContextPrio{
					prio: p,
					idx:  i,
				}
			}
		}
	}
	indices := make([]int, 0, len(corpus))
	seen := make(map[int]bool, len(corpus))
	for _, cp := range covered {
		if !seen[cp.idx] {
			seen[cp.idx] = true
			indices = append(indices, cp.idx)
		}
	}
	sort.Ints(indices)
	result := make([]interface{}, 0, len(indices))
	for _, idx := range indices {
		result = append(result, corpus[idx].Context)
	}
	return result
}
