// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package statetable

import (
	"bufio"
	"fmt"
	"io"
)

const (
	hitGlyph  = '#'
	missGlyph = '.'
)

// PrintAccumulated writes the accumulated coverage of every machine with node hits.
// Each machine gets a row of node counters followed by the edge grid,
// one row per previous node. If printAllCounters is set, cells are hex counter
// values, otherwise cells are hit/miss glyphs.
func (t *Table) PrintAccumulated(w io.Writer, printAllCounters bool) error {
	buf := bufio.NewWriter(w)
	for m := range t.acc.machines {
		mc := &t.acc.machines[m]
		if !mc.active() {
			continue
		}
		fmt.Fprintf(buf, "state machine %v:\n", m)
		buf.WriteString("  nodes:\n        ")
		printRow(buf, mc.nodes[:], printAllCounters)
		buf.WriteString("  edges:\n")
		for prev := 0; prev < NodeCount; prev++ {
			fmt.Fprintf(buf, "    %02d  ", prev)
			printRow(buf, mc.edges[prev*NodeCount:(prev+1)*NodeCount], printAllCounters)
		}
	}
	return buf.Flush()
}

func printRow(buf *bufio.Writer, row []uint8, printAllCounters bool) {
	for i, v := range row {
		if printAllCounters {
			if i != 0 {
				buf.WriteByte(' ')
			}
			fmt.Fprintf(buf, "%02x", v)
			continue
		}
		if v != 0 {
			buf.WriteByte(hitGlyph)
		} else {
			buf.WriteByte(missGlyph)
		}
	}
	buf.WriteByte('\n')
}
