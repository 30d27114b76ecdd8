// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package statetable

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/statefuzz/statefuzz/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type featureVal struct {
	F uint32
	V uint8
}

func collect(tab *Table) []featureVal {
	var res []featureVal
	tab.ForEachNonZeroByte(func(f uint32, v uint8) {
		res = append(res, featureVal{f, v})
	})
	return res
}

func TestFeatureHighMachine(t *testing.T) {
	tab := newTable(t)
	tab.UpdateState(200, 10)
	assert.Equal(t, []featureVal{{200*4096 + 10, 1}}, collect(tab))
}

func TestFeatureSequence(t *testing.T) {
	tab := newTable(t)
	tab.UpdateState(3, 5)
	tab.UpdateState(3, 7)
	tab.UpdateState(3, 5)
	tab.UpdateState(255, 63)
	tab.UpdateState(255, 62)
	e57, ok := EdgeFeature(3, 5, 7)
	require.True(t, ok)
	e75, ok := EdgeFeature(3, 7, 5)
	require.True(t, ok)
	e6362, ok := EdgeFeature(255, 63, 62)
	require.True(t, ok)
	want := []featureVal{
		{3*4096 + 5, 2},
		{3*4096 + 7, 1},
		{e57, 1},
		{e75, 1},
		{255*4096 + 62, 1},
		{255*4096 + 63, 1},
		{e6362, 1},
	}
	if diff := cmp.Diff(want, collect(tab)); diff != "" {
		t.Fatal(diff)
	}
	assert.Equal(t, uint32(3*4096+64+5*63+6), e57)
	assert.Equal(t, uint32(3*4096+64+7*63+5), e75)
	assert.Equal(t, uint32(256*4096-1), e6362)
}

func TestFeatureAccumulated(t *testing.T) {
	tab := newTable(t)
	tab.UpdateState(1, 1)
	tab.UpdateState(1, 2)
	tab.Reset()
	tab.UpdateState(1, 3)
	var acc []featureVal
	tab.ForEachAccumulated(func(f uint32, v uint8) {
		acc = append(acc, featureVal{f, v})
	})
	e12, _ := EdgeFeature(1, 1, 2)
	assert.Equal(t, []featureVal{{4097, 1}, {4098, 1}, {4099, 1}, {e12, 1}}, acc)
	assert.Equal(t, []featureVal{{4099, 1}}, collect(tab))
}

func TestNonZeroRestartable(t *testing.T) {
	tab := newTable(t)
	tab.UpdateState(0, 1)
	tab.UpdateState(0, 2)
	tab.UpdateState(0, 3)
	seq := tab.NonZero()
	var first []uint32
	for f := range seq {
		first = append(first, f)
	}
	assert.Len(t, first, 5)
	var second []uint32
	for f := range seq {
		second = append(second, f)
		break
	}
	assert.Equal(t, first[:1], second)
	var third []uint32
	for f, v := range seq {
		assert.Equal(t, uint8(1), v)
		third = append(third, f)
	}
	assert.Equal(t, first, third)
}

func TestFeatureEncoding(t *testing.T) {
	seen := make([]bool, MaxMachines*FeaturesPerMachine)
	check := func(f uint32, want Feature, prev uint32) {
		if seen[f] {
			t.Fatalf("duplicate feature %v (%v)", f, DecodeFeature(f))
		}
		seen[f] = true
		if got := DecodeFeature(f); got != want {
			t.Fatalf("feature %v decoded as %+v, want %+v", f, got, want)
		}
		if f != 0 && f <= prev {
			t.Fatalf("feature %v (%v) is not above %v", f, want, prev)
		}
	}
	prev := uint32(0)
	for m := 0; m < MaxMachines; m++ {
		for n := 0; n < NodeCount; n++ {
			f := NodeFeature(m, n)
			check(f, Feature{Machine: m, Node: n}, prev)
			prev = f
		}
		for p := 0; p < NodeCount; p++ {
			for c := 0; c < NodeCount; c++ {
				f, ok := EdgeFeature(m, p, c)
				if ok != (p != c) {
					t.Fatalf("edge %v->%v: ok=%v", p, c, ok)
				}
				if !ok {
					continue
				}
				check(f, Feature{Machine: m, Edge: true, Prev: p, Node: c}, prev)
				prev = f
			}
		}
	}
	for f, ok := range seen {
		if !ok {
			t.Fatalf("feature %v is not reachable", f)
		}
	}
}

func TestFeatureString(t *testing.T) {
	e, _ := EdgeFeature(4, 1, 0)
	assert.Equal(t, "sm4:1->0", DecodeFeature(e).String())
	assert.Equal(t, "sm0:63", DecodeFeature(NodeFeature(0, 63)).String())
}

func TestEnumerationOrder(t *testing.T) {
	tab := newTable(t)
	rnd := rand.New(testutil.RandSource(t))
	for i := 0; i < testutil.IterCount(); i++ {
		tab.UpdateState(rnd.Intn(MaxMachines), rnd.Intn(NodeCount))
	}
	features := collect(tab)
	require.NotEmpty(t, features)
	for i, fv := range features {
		require.NotZero(t, fv.V)
		if i != 0 {
			require.Greater(t, fv.F, features[i-1].F)
		}
		dec := DecodeFeature(fv.F)
		if dec.Edge {
			require.Equal(t, fv.V, tab.Current().Edge(dec.Machine, dec.Prev*NodeCount+dec.Node))
		} else {
			require.Equal(t, fv.V, tab.Current().Node(dec.Machine, dec.Node))
		}
	}
	// Every non-zero counter except self-loops is enumerated.
	st := tab.Current().Stats()
	selfLoops := 0
	for m := 0; m < MaxMachines; m++ {
		for n := 0; n < NodeCount; n++ {
			if tab.Current().Edge(m, n*NodeCount+n) != 0 {
				selfLoops++
			}
		}
	}
	assert.Equal(t, st.Nodes+st.Edges-selfLoops, len(features))
}

func BenchmarkUpdateState(b *testing.B) {
	tab := newTable(b)
	rnd := rand.New(rand.NewSource(0))
	nodes := make([]int, 1024)
	for i := range nodes {
		nodes[i] = rnd.Intn(NodeCount)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tab.UpdateState(i%MaxMachines, nodes[i%len(nodes)])
	}
}

func BenchmarkForEachNonZeroByte(b *testing.B) {
	tab := newTable(b)
	for i := 0; i < 10000; i++ {
		tab.UpdateState(i%7, i%NodeCount)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tab.ForEachNonZeroByte(func(f uint32, v uint8) {
			benchSink += int(v)
		})
	}
}

var benchSink int
