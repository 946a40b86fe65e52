package anomaly

import (
	"fmt"
	"strings"

	"github.com/jepsen-go/elle-core/pkg/core"
)

// TypeLostUpdate names the lost-update anomaly.
const TypeLostUpdate = "lost-update"

// LostUpdate records a group of committed transactions that each externally
// read Key = Value and then wrote Key: at most one of their writes can have
// survived.
type LostUpdate struct {
	Key   string
	Value core.MopValueType
	Txns  []core.Op
}

// IAnomaly identifies this record as an anomaly.
func (l LostUpdate) IAnomaly() string { return TypeLostUpdate }

func (l LostUpdate) String() string {
	txns := make([]string, len(l.Txns))
	for i, t := range l.Txns {
		txns[i] = t.String()
	}
	return fmt.Sprintf("(LostUpdate) key: %s, read value: %v, txns: [%s]",
		l.Key, l.Value, strings.Join(txns, " "))
}

// LostUpdates scans the committed transactions for lost-update groups. A
// transaction participates for key k when its first access to k is a read
// and it subsequently writes k; two or more such transactions off the same
// read value form a case. The cycle search can miss these when the
// version-order inference dropped a ww edge, so they are reported directly.
func LostUpdates(history core.History) []core.Anomaly {
	type group struct {
		key   string
		value core.MopValueType
		txns  []core.Op
	}
	var order []*group
	index := map[string]map[core.MopValueType]*group{}

	for _, op := range core.FilterOkHistory(history) {
		firstAccess := map[string]core.Mop{}
		var keys []string
		wrote := map[string]struct{}{}
		for _, mop := range op.Value {
			if _, seen := firstAccess[mop.Key]; !seen {
				firstAccess[mop.Key] = mop
				keys = append(keys, mop.Key)
			}
			if mop.IsWrite() {
				wrote[mop.Key] = struct{}{}
			}
		}
		for _, k := range keys {
			first := firstAccess[k]
			if !first.IsRead() {
				continue
			}
			if _, ok := wrote[k]; !ok {
				continue
			}
			if index[k] == nil {
				index[k] = map[core.MopValueType]*group{}
			}
			g, ok := index[k][first.Value]
			if !ok {
				g = &group{key: k, value: first.Value}
				index[k][first.Value] = g
				order = append(order, g)
			}
			g.txns = append(g.txns, op)
		}
	}

	var anomalies []core.Anomaly
	for _, g := range order {
		if len(g.txns) >= 2 {
			anomalies = append(anomalies, LostUpdate{Key: g.key, Value: g.value, Txns: g.txns})
		}
	}
	return anomalies
}
