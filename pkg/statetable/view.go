// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package statetable

// View gives read access to one of the two tables.
type View struct {
	tab *table
}

func (t *Table) Current() View {
	return View{t.cur}
}

func (t *Table) Accumulated() View {
	return View{t.acc}
}

func (v View) Node(machine, node int) uint8 {
	checkMachine(machine)
	checkNode(node)
	return v.tab.machines[machine].nodes[node]
}

// Edge returns the counter of the edge with index prev*NodeCount+cur.
func (v View) Edge(machine, edge int) uint8 {
	checkMachine(machine)
	checkEdge(edge)
	return v.tab.machines[machine].edges[edge]
}

// Cursor returns the last recorded node of the machine, or NoNode.
// Both views return the cursor of the current table.
func (v View) Cursor(machine int) int {
	checkMachine(machine)
	return int(v.tab.cursors[machine])
}

// Machines returns ids of machines with at least one non-zero node counter.
func (v View) Machines() []int {
	var res []int
	for m := range v.tab.machines {
		if v.tab.machines[m].active() {
			res = append(res, m)
		}
	}
	return res
}

func (mc *machine) active() bool {
	for _, v := range mc.nodes {
		if v != 0 {
			return true
		}
	}
	return false
}

type Stats struct {
	Machines       int
	Nodes          int
	Edges          int
	SaturatedNodes int
	SaturatedEdges int
}

// Stats counts non-zero and saturated counters. Self-loop edges are included.
func (v View) Stats() Stats {
	var st Stats
	for m := range v.tab.machines {
		mc := &v.tab.machines[m]
		if !mc.active() {
			continue
		}
		st.Machines++
		for _, c := range mc.nodes {
			if c != 0 {
				st.Nodes++
			}
			if c == MaxCounter {
				st.SaturatedNodes++
			}
		}
		for _, c := range mc.edges {
			if c != 0 {
				st.Edges++
			}
			if c == MaxCounter {
				st.SaturatedEdges++
			}
		}
	}
	return st
}
