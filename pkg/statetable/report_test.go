// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package statetable

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintAccumulatedEmpty(t *testing.T) {
	tab := newTable(t)
	buf := new(bytes.Buffer)
	require.NoError(t, tab.PrintAccumulated(buf, false))
	assert.Empty(t, buf.String())
}

func TestPrintAccumulated(t *testing.T) {
	tab := newTable(t)
	tab.UpdateState(3, 0)
	tab.UpdateState(3, 2)
	tab.UpdateState(3, 0)
	tab.UpdateState(3, 2)
	tab.UpdateState(9, 1)
	tab.Reset()

	buf := new(bytes.Buffer)
	require.NoError(t, tab.PrintAccumulated(buf, false))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	// Two machines, each: header, nodes title, nodes row, edges title, 64 edge rows.
	require.Len(t, lines, 2*(4+NodeCount))
	assert.Equal(t, "state machine 3:", lines[0])
	assert.Equal(t, "  nodes:", lines[1])
	assert.Equal(t, "        #.#"+strings.Repeat(".", NodeCount-3), lines[2])
	assert.Equal(t, "  edges:", lines[3])
	assert.Equal(t, "    00  ..#"+strings.Repeat(".", NodeCount-3), lines[4])
	assert.Equal(t, "    01  "+strings.Repeat(".", NodeCount), lines[5])
	assert.Equal(t, "    02  #"+strings.Repeat(".", NodeCount-1), lines[6])
	assert.Equal(t, "state machine 9:", lines[4+NodeCount])

	buf.Reset()
	require.NoError(t, tab.PrintAccumulated(buf, true))
	lines = strings.Split(buf.String(), "\n")
	cells := strings.Fields(lines[2])
	require.Len(t, cells, NodeCount)
	assert.Equal(t, []string{"02", "00", "02", "00"}, cells[:4])
	cells = strings.Fields(lines[4])
	require.Len(t, cells, NodeCount+1)
	assert.Equal(t, []string{"00", "00", "00", "02"}, cells[:4])
	cells = strings.Fields(lines[6])
	assert.Equal(t, []string{"02", "01", "00"}, cells[:3])
}

func TestPrintAccumulatedSaturated(t *testing.T) {
	tab := newTable(t)
	for i := 0; i < 300; i++ {
		tab.UpdateState(0, 1)
	}
	buf := new(bytes.Buffer)
	require.NoError(t, tab.PrintAccumulated(buf, true))
	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "ff", strings.Fields(lines[2])[1])
	assert.Equal(t, "ff", strings.Fields(lines[5])[2])
}
