package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
)

var (
	operationPattern = regexp.MustCompile(`\{(.*)\}`)
	opIndexPattern   = regexp.MustCompile(`:index\s+(\d+)`)
	opProcessPattern = regexp.MustCompile(`:process\s+(\d+)`)
	opTypePattern    = regexp.MustCompile(`:type\s+(:\S+)`)
	opValuePattern   = regexp.MustCompile(`:value\s+\[(.*)\]\s*$`)
	mopPattern       = regexp.MustCompile(`\[:(r|w)\s+(\S+)\s+(nil|-?\d+)\]\s*`)
)

// MopValueType is the value carried by a micro-operation: nil, or an int.
type MopValueType interface{}

// OpType is a transaction's outcome.
type OpType string

// MopType distinguishes a micro-operation's function.
type MopType string

// OpType enums.
const (
	OpTypeInvoke OpType = "invoke"
	OpTypeOk     OpType = "ok"
	OpTypeFail   OpType = "fail"
	OpTypeInfo   OpType = "info"
)

// MopType enums.
const (
	MopTypeAll   MopType = "all"
	MopTypeRead  MopType = "read"
	MopTypeWrite MopType = "write"
)

// Mop is a single micro-operation: (f, k, v).
type Mop struct {
	F     MopType
	Key   string
	Value MopValueType
}

// IsRead reports whether the mop is a read.
func (m Mop) IsRead() bool { return m.F == MopTypeRead }

// IsWrite reports whether the mop is a write.
func (m Mop) IsWrite() bool { return m.F == MopTypeWrite }

// IsEqual reports structural equality between two mops.
func (m Mop) IsEqual(o Mop) bool {
	return m.F == o.F && m.Key == o.Key && m.Value == o.Value
}

func (m Mop) String() string {
	v := "nil"
	if m.Value != nil {
		v = fmt.Sprintf("%v", m.Value)
	}
	f := "r"
	if m.IsWrite() {
		f = "w"
	}
	return fmt.Sprintf("[:%s %s %s]", f, m.Key, v)
}

// Read builds a read mop. A nil value means "not yet observed" (the
// invocation half of a read whose result isn't known yet).
func Read(key string, value MopValueType) Mop {
	return Mop{F: MopTypeRead, Key: key, Value: value}
}

// Write builds a write mop.
func Write(key string, value MopValueType) Mop {
	return Mop{F: MopTypeWrite, Key: key, Value: value}
}

// Op is a single transaction: an outcome plus its ordered micro-operations.
//
// Index and Process are pointers because both are optional: a freshly
// generated invocation has no index until it's appended to a History, and
// an operation may have no associated process.
type Op struct {
	Index   *int
	Process *int
	Time    time.Time
	Type    OpType
	Value   []Mop
}

func (op Op) String() string {
	var parts []string
	for _, m := range op.Value {
		parts = append(parts, m.String())
	}
	proc := "nil"
	if op.Process != nil {
		proc = strconv.Itoa(*op.Process)
	}
	return fmt.Sprintf("{:process %s :type %s :value [%s]}", proc, op.Type, strings.Join(parts, " "))
}

// History is a sequence of transactions in the order they were recorded.
type History []Op

// intPtr copies i and returns its address.
func intPtr(i int) *int { return &i }

// ParseHistory parses elle's textual history format, one operation per line.
func ParseHistory(content string) (History, error) {
	var history History
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		op, err := ParseOp(line)
		if err != nil {
			return nil, errors.Annotatef(err, "parsing line %q", line)
		}
		history = append(history, op)
	}
	return history, nil
}

// ParseOp parses a single operation from elle's row text, e.g.
// `{:index 0 :process 1 :type :ok :value [[:w x 1] [:r y nil]]}`.
func ParseOp(opString string) (Op, error) {
	var op Op

	m := operationPattern.FindStringSubmatch(opString)
	if len(m) != 2 {
		return op, errors.New("operation should be surrounded by {}")
	}
	body := m[1]

	if idx := opIndexPattern.FindStringSubmatch(body); len(idx) == 2 {
		n, err := strconv.Atoi(idx[1])
		if err != nil {
			return op, errors.Annotate(err, "parsing :index")
		}
		op.Index = intPtr(n)
	}

	if proc := opProcessPattern.FindStringSubmatch(body); len(proc) == 2 {
		n, err := strconv.Atoi(proc[1])
		if err != nil {
			return op, errors.Annotate(err, "parsing :process")
		}
		op.Process = intPtr(n)
	}

	typ := opTypePattern.FindStringSubmatch(body)
	if len(typ) != 2 {
		return op, errors.New("operation should have a :type field")
	}
	switch typ[1] {
	case ":invoke":
		op.Type = OpTypeInvoke
	case ":ok":
		op.Type = OpTypeOk
	case ":fail":
		op.Type = OpTypeFail
	case ":info":
		op.Type = OpTypeInfo
	default:
		return op, errors.Errorf("invalid :type %q", typ[1])
	}

	if val := opValuePattern.FindStringSubmatch(body); len(val) == 2 {
		rest := strings.TrimSpace(val[1])
		for rest != "" {
			mm := mopPattern.FindStringSubmatch(rest)
			if len(mm) != 4 {
				break
			}
			rest = strings.TrimSpace(rest[len(mm[0]):])

			var f MopType
			switch mm[1] {
			case "r":
				f = MopTypeRead
			case "w":
				f = MopTypeWrite
			}

			var value MopValueType
			if mm[3] != "nil" {
				n, err := strconv.Atoi(mm[3])
				if err != nil {
					return op, errors.Annotate(err, "parsing mop value")
				}
				value = n
			}
			op.Value = append(op.Value, Mop{F: f, Key: mm[2], Value: value})
		}
	}

	return op, nil
}

// AttachIndexIfNoExists numbers every operation in recorded order. A
// history that already carries indexes is left untouched.
func (h History) AttachIndexIfNoExists() {
	for _, op := range h {
		if op.Index != nil {
			return
		}
	}
	for i := range h {
		idx := i
		h[i].Index = &idx
	}
}

// FilterType filters a history to operations of the given type.
func (h History) FilterType(t OpType) History {
	var out History
	for _, op := range h {
		if op.Type == t {
			out = append(out, op)
		}
	}
	return out
}

// FilterProcess filters a history to operations from a single process.
func (h History) FilterProcess(p int) History {
	var out History
	for _, op := range h {
		if op.Process != nil && *op.Process == p {
			out = append(out, op)
		}
	}
	return out
}

// GetKeys returns the keys touched by mops of the given type across h.
// Pass MopTypeAll to get keys touched by any mop.
func (h History) GetKeys(t MopType) []string {
	var keys []string
	for _, op := range h {
		for _, mop := range op.Value {
			if t == MopTypeAll || mop.F == t {
				keys = append(keys, mop.Key)
			}
		}
	}
	return keys
}

// FilterOkHistory keeps only committed transactions.
func FilterOkHistory(history History) History {
	return history.FilterType(OpTypeOk)
}

// FilterOkOrInfoHistory keeps committed and indeterminate transactions —
// the set that mustn't be assumed to have failed.
func FilterOkOrInfoHistory(history History) History {
	var out History
	for _, op := range history {
		if op.Type == OpTypeOk || op.Type == OpTypeInfo {
			out = append(out, op)
		}
	}
	return out
}

// FilterFailedHistory keeps only aborted transactions.
func FilterFailedHistory(history History) History {
	return history.FilterType(OpTypeFail)
}

// ReverseHistory returns a reversed copy of history.
func ReverseHistory(history History) History {
	h := make(History, len(history))
	copy(h, history)
	for i, j := 0, len(h)-1; i < j; i, j = i+1, j-1 {
		h[i], h[j] = h[j], h[i]
	}
	return h
}
