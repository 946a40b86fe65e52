package rwregister

import (
	"log"
	"sort"

	"github.com/jepsen-go/elle-core/pkg/core"
)

// writeIdx maps key -> written value -> the transaction that wrote it.
// Entries point into the history slice so that vertices built from them
// coincide with vertices built by any other analyzer over the same history.
type writeIdx map[string]map[int]*core.Op

// readIdx maps key -> externally-read value -> the transactions that read
// it.
type readIdx map[string]map[int][]*core.Op

// verifyWellFormed asserts the invariants the version-order inference
// leans on: every write carries an int value, no two committed or
// indeterminate writes to a key share a value (aborted writes are not
// checked for duplicates), and read values are ints (or nil for the
// initial state). A
// history violating these is a configuration error, not an anomaly.
func verifyWellFormed(history core.History) {
	seen := map[string]map[int]struct{}{}
	for _, op := range history {
		if op.Type != core.OpTypeOk && op.Type != core.OpTypeInfo && op.Type != core.OpTypeFail {
			continue
		}
		for _, mop := range op.Value {
			switch {
			case mop.IsWrite():
				v, ok := mop.Value.(int)
				if !ok {
					log.Panicf("write value must be an int, op %s, key %s, value %+v", op.String(), mop.Key, mop.Value)
				}
				if op.Type != core.OpTypeOk && op.Type != core.OpTypeInfo {
					continue
				}
				if _, e := seen[mop.Key]; !e {
					seen[mop.Key] = map[int]struct{}{}
				}
				if _, e := seen[mop.Key][v]; e {
					log.Panicf("duplicate writes, op %s, key: %s, value: %d", op.String(), mop.Key, v)
				}
				seen[mop.Key][v] = struct{}{}
			case mop.IsRead():
				if mop.Value == nil {
					continue
				}
				if _, ok := mop.Value.(int); !ok {
					log.Panicf("read value must be an int or nil, op %s, key %s, value %+v", op.String(), mop.Key, mop.Value)
				}
			}
		}
	}
}

// writeIndex indexes every write by committed and indeterminate
// transactions.
func writeIndex(history core.History) writeIdx {
	idx := writeIdx{}
	for i := range history {
		op := &history[i]
		if op.Type != core.OpTypeOk && op.Type != core.OpTypeInfo {
			continue
		}
		for _, mop := range op.Value {
			if !mop.IsWrite() {
				continue
			}
			v := mop.Value.(int)
			if _, ok := idx[mop.Key]; !ok {
				idx[mop.Key] = map[int]*core.Op{}
			}
			idx[mop.Key][v] = op
		}
	}
	return idx
}

// readIndex indexes the external reads of committed transactions: for each
// key, only the read before the transaction touches that key counts.
// initialReads collects the transactions whose external read observed the
// pre-history state (a nil value).
func readIndex(history core.History) (idx readIdx, initialReads map[string][]*core.Op) {
	idx = readIdx{}
	initialReads = map[string][]*core.Op{}
	for i := range history {
		op := &history[i]
		if op.Type != core.OpTypeOk {
			continue
		}
		touched := map[string]struct{}{}
		for _, mop := range op.Value {
			if mop.IsRead() {
				if _, ok := touched[mop.Key]; !ok {
					if mop.Value == nil {
						initialReads[mop.Key] = append(initialReads[mop.Key], op)
					} else {
						v := mop.Value.(int)
						if _, ok := idx[mop.Key]; !ok {
							idx[mop.Key] = map[int][]*core.Op{}
						}
						idx[mop.Key][v] = append(idx[mop.Key][v], op)
					}
				}
			}
			touched[mop.Key] = struct{}{}
		}
	}
	return idx, initialReads
}

// versionOrders sorts each key's written values ascending. Writes grow
// monotonically per key, so value order is version order.
func versionOrders(writes writeIdx) map[string][]int {
	orders := map[string][]int{}
	for k, byValue := range writes {
		vals := make([]int, 0, len(byValue))
		for v := range byValue {
			vals = append(vals, v)
		}
		sort.Ints(vals)
		orders[k] = vals
	}
	return orders
}

// successor returns the version directly after v in order, if any.
func successor(order []int, v int) (int, bool) {
	i := sort.SearchInts(order, v)
	if i < len(order) && order[i] == v && i+1 < len(order) {
		return order[i+1], true
	}
	return 0, false
}

func sortedKeys(orders map[string][]int) []string {
	keys := make([]string, 0, len(orders))
	for k := range orders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// extReadValues returns each key's external read of op: the value its first
// access observed, provided that first access was a read. A nil entry
// means the initial state was observed.
func extReadValues(op core.Op) map[string]core.MopValueType {
	res := map[string]core.MopValueType{}
	touched := map[string]struct{}{}
	for _, mop := range op.Value {
		if _, ok := touched[mop.Key]; !ok && mop.IsRead() {
			res[mop.Key] = mop.Value
		}
		touched[mop.Key] = struct{}{}
	}
	return res
}

// writtenValues returns every value op wrote, per key, in mop order.
func writtenValues(op core.Op) map[string][]int {
	res := map[string][]int{}
	for _, mop := range op.Value {
		if !mop.IsWrite() {
			continue
		}
		if v, ok := mop.Value.(int); ok {
			res[mop.Key] = append(res[mop.Key], v)
		}
	}
	return res
}
