// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"math/rand"
)

type mutator struct {
	r      *rand.Rand
	maxLen int
	// other returns another corpus input for splicing, or nil.
	other func() []byte
}

// mutate returns a mutated copy of data no longer than maxLen.
// Mutations are applied until one of them decides to stop.
func (m *mutator) mutate(data []byte) []byte {
	data = append([]byte{}, data...)
	for stop := false; !stop; stop = stop && m.r.Intn(3) == 0 {
		f := mutateDataFuncs[m.r.Intn(len(mutateDataFuncs))]
		data, stop = f(m, data)
	}
	if len(data) > m.maxLen {
		data = data[:m.maxLen]
	}
	return data
}

// Values that often hit boundary conditions in register and length fields.
var interestingBytes = []byte{0, 1, 2, 4, 8, 0x10, 0x20, 0x40, 0x7f, 0x80, 0xfe, 0xff}

var mutateDataFuncs = [...]func(m *mutator, data []byte) ([]byte, bool){
	// Flip bit in byte.
	func(m *mutator, data []byte) ([]byte, bool) {
		if len(data) == 0 {
			return data, false
		}
		data[m.r.Intn(len(data))] ^= 1 << uint(m.r.Intn(8))
		return data, true
	},
	// Set a random byte.
	func(m *mutator, data []byte) ([]byte, bool) {
		if len(data) == 0 {
			return data, false
		}
		data[m.r.Intn(len(data))] = byte(m.r.Intn(256))
		return data, true
	},
	// Set an interesting byte.
	func(m *mutator, data []byte) ([]byte, bool) {
		if len(data) == 0 {
			return data, false
		}
		data[m.r.Intn(len(data))] = interestingBytes[m.r.Intn(len(interestingBytes))]
		return data, true
	},
	// Insert random bytes.
	func(m *mutator, data []byte) ([]byte, bool) {
		n := min(m.r.Intn(8)+1, m.maxLen-len(data))
		if n <= 0 {
			return data, false
		}
		pos := m.r.Intn(len(data) + 1)
		ins := make([]byte, n)
		m.r.Read(ins)
		data = append(data[:pos], append(ins, data[pos:]...)...)
		return data, true
	},
	// Remove bytes.
	func(m *mutator, data []byte) ([]byte, bool) {
		if len(data) == 0 {
			return data, false
		}
		n := min(m.r.Intn(8)+1, len(data))
		pos := m.r.Intn(len(data) - n + 1)
		data = append(data[:pos], data[pos+n:]...)
		return data, true
	},
	// Duplicate a chunk, repeating a command sequence drives state machines further.
	func(m *mutator, data []byte) ([]byte, bool) {
		if len(data) == 0 || len(data) >= m.maxLen {
			return data, false
		}
		n := min(m.r.Intn(len(data))+1, m.maxLen-len(data))
		pos := m.r.Intn(len(data) - n + 1)
		chunk := append([]byte{}, data[pos:pos+n]...)
		at := m.r.Intn(len(data) + 1)
		data = append(data[:at], append(chunk, data[at:]...)...)
		return data, true
	},
	// Splice with another corpus input.
	func(m *mutator, data []byte) ([]byte, bool) {
		if m.other == nil {
			return data, false
		}
		other := m.other()
		if len(other) == 0 {
			return data, false
		}
		head := m.r.Intn(len(data) + 1)
		tail := m.r.Intn(len(other))
		res := append(data[:head:head], other[tail:]...)
		return res, true
	},
}

// randInput generates an input from scratch.
func randInput(r *rand.Rand, maxLen int) []byte {
	data := make([]byte, r.Intn(min(maxLen, 64))+1)
	r.Read(data)
	return data
}
