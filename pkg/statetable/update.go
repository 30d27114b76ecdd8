// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package statetable

// UpdateState records that the given machine entered the given node.
//
// The node counter is incremented in both tables. If the machine already has
// a cursor, the edge from the cursor to node is incremented in both tables as
// well, and the cursor moves to node only if the current edge counter was not
// saturated. The first node after a reset only sets the cursor.
//
// Returns true if both the node and the edge counters of the current table
// were still able to grow, i.e. the observation carried new signal.
func (t *Table) UpdateState(machine, node int) bool {
	checkMachine(machine)
	checkNode(node)
	cur := &t.cur.machines[machine]
	acc := &t.acc.machines[machine]
	nodeFresh := bump(&cur.nodes[node])
	bump(&acc.nodes[node])

	last := t.cur.cursors[machine]
	if last == NoNode {
		t.cur.cursors[machine] = uint8(node)
		t.acc.cursors[machine] = uint8(node)
		return false
	}
	edge := int(last)*NodeCount + node
	edgeFresh := bump(&cur.edges[edge])
	bump(&acc.edges[edge])
	if edgeFresh {
		t.cur.cursors[machine] = uint8(node)
		t.acc.cursors[machine] = uint8(node)
	}
	return nodeFresh && edgeFresh
}

// bump increments a saturating counter and reports whether it was not saturated.
func bump(c *uint8) bool {
	if *c == MaxCounter {
		return false
	}
	*c++
	return true
}

// Reset clears the current table. It must be called before every execution
// whose coverage is measured in isolation.
func (t *Table) Reset() {
	t.cur.reset()
	t.acc.cursors = t.cur.cursors
}

// ResetAccumulated clears the accumulated counters and starts a new measurement epoch.
// The current table is not affected.
func (t *Table) ResetAccumulated() {
	t.acc.reset()
	t.acc.cursors = t.cur.cursors
}

func (tab *table) reset() {
	clear(tab.machines[:])
	for i := range tab.cursors {
		tab.cursors[i] = NoNode
	}
}

// MergeAccumulated folds the accumulated table of other into t taking
// the per-counter maximum. It is used to combine the campaign coverage
// of several fuzzing workers. Cursors are not touched.
func (t *Table) MergeAccumulated(other *Table) {
	for m := range t.acc.machines {
		dst, src := &t.acc.machines[m], &other.acc.machines[m]
		for i, v := range src.nodes {
			dst.nodes[i] = max(dst.nodes[i], v)
		}
		for i, v := range src.edges {
			dst.edges[i] = max(dst.edges[i], v)
		}
	}
}
