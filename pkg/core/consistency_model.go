package core

import "sort"

// ConsistencyModelName names a Jepsen consistency model, e.g.
// "strict-serializable". See https://jepsen.io/consistency.
type ConsistencyModelName = string

var impliedAnomalies = newStringGraph(map[string][]string{
	"G0":                     {"G1c"},
	"G0-process":             {"G1c-process", "G0-realtime"},
	"G0-realtime":            {"G1c-realtime"},
	"G1a":                    {"G1"},
	"G1b":                    {"G1"},
	"G1c":                    {"G1"},
	"G1c-process":            {"G1-process", "G1c-realtime"},
	"G-single":               {"G-nonadjacent", "GSIb"},
	"G-single-process":       {"G-nonadjacent-process", "G-single-realtime"},
	"G-single-realtime":      {"G-nonadjacent-realtime"},
	"G-nonadjacent":          {"G2"},
	"G-nonadjacent-process":  {"G2-process", "G-nonadjacent-realtime"},
	"G-nonadjacent-realtime": {"G2-realtime"},
	"G2-item":                {"G2"},
	"G2-item-process":        {"G2-process", "G2-item-realtime"},
	"G2-item-realtime":       {"G2-realtime"},
	"G2-process":             {"G2-realtime"},
	"GSIa":                   {"GSI"},
	"GSIb":                   {"GSI"},
	"incompatible-order":     {"G1a"},
	"dirty-update":           {"G1a"},
	// A lost update always manifests as a ww/rw cycle with a single rw edge.
	"lost-update": {"G-single"},
})

var canonicalModelNames = map[ConsistencyModelName]string{
	"consistent-view":         "PL-2+",
	"conflict-serializable":   "PL-3",
	"cursor-stability":        "PL-CS",
	"forward-consistent-view": "PL-FCV",
	"monotonic-snapshot-read": "PL-MSR",
	"monotonic-view":          "PL-2L",
	"read-committed":          "PL-2",
	"read-uncommitted":        "PL-1",
	"repeatable-read":         "PL-2.99",
	"serializable":            "PL-3",
	"snapshot-isolation":      "PL-SI",
	"strict-serializable":     "PL-SS",
	"update-serializable":     "PL-3U",
}

// AllAnomaliesImplying yields the set of anomalies which would imply any of
// the given anomalies.
func AllAnomaliesImplying(anomalies []string) []string {
	return dedup(impliedAnomalies.bfs(anomalies, false))
}

// AllImpliedAnomalies yields the set of anomalies implied by any of the
// given anomalies.
func AllImpliedAnomalies(anomalies []string) []string {
	return dedup(impliedAnomalies.bfs(anomalies, true))
}

func canonicalModelName(name string) string {
	if cname, ok := canonicalModelNames[name]; ok {
		return cname
	}
	return name
}

func friendlyModelName(name string) string {
	if name == "PL-3" {
		return "serializable"
	}
	for friendly, canonical := range canonicalModelNames {
		if canonical == name {
			return friendly
		}
	}
	return name
}

// Models encodes the "is implied by" partial order between Jepsen
// consistency models.
var Models = newStringGraph(map[string][]string{
	"causal-cerone":                     {"read-atomic"},
	"consistent-view":                   {"cursor-stability", "monotonic-view"},
	"conflict-serializable":             {"view-serializable"},
	"cursor-stability":                  {"read-committed", "PL-2"},
	"forward-consistent-view":           {"consistent-view", "PL-1"},
	"PL-3":                              {"repeatable-read", "update-serializable"},
	"update-serializable":               {"forward-consistent-view"},
	"monotonic-atomic-view":             {"read-committed"},
	"monotonic-view":                    {"PL-2"},
	"monotonic-snapshot-read":           {"PL-2"},
	"parallel-snapshot-isolation":       {"causal-cerone"},
	"prefix":                            {"causal-cerone"},
	"read-committed":                    {"read-uncommitted"},
	"repeatable-read":                   {"cursor-stability", "monotonic-atomic-view"},
	"serializable":                      {"repeatable-read", "snapshot-isolation", "view-serializable"},
	"session-serializable":              {"1SR"},
	"snapshot-isolation":                {"forward-consistent-view", "monotonic-atomic-view", "monotonic-snapshot-read", "parallel-snapshot-isolation", "prefix"},
	"strict-serializable":               {"PL-3", "serializable", "linearizable", "snapshot-isolation", "strong-session-serializable"},
	"strong-serializable":               {"session-serializable"},
	"strong-session-serializable":       {"serializable"},
	"strong-session-snapshot-isolation": {"snapshot-isolation"},
	"strong-snapshot-isolation":         {"strong-session-snapshot-isolation"},
	"linearizable":                      {"sequential"},
	"causal":                            {"writes-follow-reads", "PRAM"},
	"PRAM":                              {"monotonic-reads", "monotonic-writes", "read-your-writes"},
}).mapVertices(canonicalModelName)

// allImpliedModels expands a set of models to every model implied by any of
// them.
func allImpliedModels(models []string) []string {
	return dedup(Models.bfs(canonicalize(models), true))
}

// allImpossibleModels expands a set of impossible models to every model
// that's also rendered impossible.
func allImpossibleModels(models []string) []string {
	return dedup(Models.bfs(models, false))
}

func canonicalize(models []string) []string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = canonicalModelName(m)
	}
	return out
}

func mostModels(ms []string, forward bool) []string {
	cnames := dedup(canonicalize(ms))
	res := append([]string{}, cnames...)
	for _, model := range cnames {
		if hasCommon(without(res, model), Models.bfs([]string{model}, forward)) {
			res = without(res, model)
		}
	}
	return res
}

// strongestModels returns the subset of ms not implied by any other model
// in ms (i.e. the models whose guarantees are the strongest).
func strongestModels(ms []string) []string { return mostModels(ms, false) }

// weakestModels returns the subset of ms that don't imply any other model
// in ms.
func weakestModels(ms []string) []string { return mostModels(ms, true) }

var directProscribedAnomalies = newStringGraph(map[string][]string{
	"causal-cerone":                     {"internal", "G1a"},
	"cursor-stability":                  {"G1", "G-cursor"},
	"monotonic-view":                    {"G1", "G-monotonic"},
	"monotonic-snapshot-read":           {"G1", "G-MSR"},
	"consistent-view":                   {"G1", "G-single"},
	"forward-consistent-view":           {"G1", "G-SIb"},
	"parallel-snapshot-isolation":       {"internal", "G1a"},
	"PL-3":                              {"G1", "G2"},
	"PL-2":                              {"G1"},
	"PL-1":                              {"G0", "duplicate-elements", "cyclic-versions"},
	"prefix":                            {"internal", "G1a"},
	"serializable":                      {"internal"},
	"snapshot-isolation":                {"internal", "G1", "G-SI"},
	"read-atomic":                       {"internal", "G1a"},
	"repeatable-read":                   {"G1", "G2-item"},
	"strict-serializable":               {"G1", "G1c-realtime", "G2-realtime"},
	"strong-session-snapshot-isolation": {"G-nonadjacent"},
	"strong-session-serializable":       {"G1c-process", "G2-process"},
	"update-serializable":               {"G1", "G-update"},
}).mapVertices(canonicalModelName)

// AnomaliesProhibitedBy returns the set of anomalies which can't be present
// if every one of the given consistency models is to hold.
func AnomaliesProhibitedBy(models []string) []string {
	cnames := allImpliedModels(canonicalize(models))
	var anomalies []string
	for _, model := range cnames {
		anomalies = append(anomalies, directProscribedAnomalies.successors(model)...)
	}
	return AllAnomaliesImplying(anomalies)
}

// anomaliesImpossibleModels takes a collection of anomalies and returns the
// set of models which can't hold given those anomalies are present.
func anomaliesImpossibleModels(anomalies []string) []string {
	as := AllImpliedAnomalies(anomalies)
	var allAnomalies []string
	for _, anomaly := range as {
		allAnomalies = append(allAnomalies, directProscribedAnomalies.predecessors(anomaly)...)
	}
	return allImpossibleModels(dedup(allAnomalies))
}

// FriendlyBoundary takes a set of detected anomalies and yields `not`, the
// weakest set of consistency models they invalidate, and `alsoNot`, every
// other (stronger) model they invalidate too.
func FriendlyBoundary(anomalies []string) (not []string, alsoNot []string) {
	impossible := anomaliesImpossibleModels(anomalies)
	not = weakestModels(impossible)
	alsoNot = dedup(impossible)
	for _, n := range not {
		alsoNot = without(alsoNot, n)
	}
	return dedup(mapStrings(not, friendlyModelName)), dedup(mapStrings(alsoNot, friendlyModelName))
}

func without(models []string, model string) []string {
	var res []string
	for _, m := range models {
		if m != model {
			res = append(res, m)
		}
	}
	return res
}

func contains(target string, set []string) bool {
	for _, s := range set {
		if s == target {
			return true
		}
	}
	return false
}

func hasCommon(s1, s2 []string) bool {
	for _, s := range s1 {
		if contains(s, s2) {
			return true
		}
	}
	return false
}

func dedup(items []string) []string {
	seen := map[string]struct{}{}
	res := make([]string, 0, len(items))
	for _, s := range items {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			res = append(res, s)
		}
	}
	sort.Strings(res)
	return res
}

func mapStrings(items []string, f func(string) string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = f(s)
	}
	return out
}
