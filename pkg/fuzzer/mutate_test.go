// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/statefuzz/statefuzz/pkg/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMutate(t *testing.T) {
	r := rand.New(testutil.RandSource(t))
	other := []byte("other input")
	for _, maxLen := range []int{1, 8, 100} {
		m := &mutator{
			r:      r,
			maxLen: maxLen,
			other:  func() []byte { return other },
		}
		changed := 0
		for i := 0; i < testutil.IterCount(); i++ {
			data := testutil.RandInput(r, maxLen+1)
			orig := append([]byte{}, data...)
			res := m.mutate(data)
			if len(res) > maxLen {
				t.Fatalf("mutated input is too long: %v > %v", len(res), maxLen)
			}
			if !bytes.Equal(data, orig) {
				t.Fatalf("input was modified in place")
			}
			if !bytes.Equal(res, orig) {
				changed++
			}
		}
		assert.Greater(t, changed, testutil.IterCount()/2, "max len %v", maxLen)
		assert.Equal(t, []byte("other input"), other)
	}
}

func TestMutateEachFunc(t *testing.T) {
	r := rand.New(testutil.RandSource(t))
	m := &mutator{r: r, maxLen: 16}
	for i, f := range mutateDataFuncs {
		for iter := 0; iter < 100; iter++ {
			data := []byte("0123456789")
			res, ok := f(m, data)
			if len(res) > 10+8 {
				t.Fatalf("func %v: result is too long: %q", i, res)
			}
			if !ok && !bytes.Equal(res, []byte("0123456789")) {
				t.Fatalf("func %v: changed data, but returned false", i)
			}
		}
		// Nothing to splice with.
		if i == len(mutateDataFuncs)-1 {
			_, ok := f(m, []byte("abc"))
			assert.False(t, ok)
		}
	}
}

func TestRandInput(t *testing.T) {
	r := rand.New(testutil.RandSource(t))
	for i := 0; i < 100; i++ {
		data := randInput(r, 5)
		assert.NotEmpty(t, data)
		assert.LessOrEqual(t, len(data), 5)
	}
}
