package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleHistory = `{:index 0 :type :invoke :process 0 :value [[:w x 1] [:r y nil]]}
{:index 1 :type :ok     :process 0 :value [[:w x 1] [:r y 2]]}
{:index 2 :type :invoke :process 1 :value [[:r x nil]]}
{:index 3 :type :fail   :process 1 :value [[:r x nil]]}
{:index 4 :type :invoke :process 1 :value [[:w y 2]]}
{:index 5 :type :info   :process 1 :value [[:w y 2]]}`

func TestParseHistory(t *testing.T) {
	history, err := ParseHistory(sampleHistory)
	assert.NoError(t, err)
	assert.Len(t, history, 6)

	assert.Equal(t, OpTypeInvoke, history[0].Type)
	assert.Equal(t, 0, *history[0].Process)
	assert.Equal(t, []Mop{Write("x", 1), Read("y", nil)}, history[0].Value)

	assert.Equal(t, OpTypeOk, history[1].Type)
	assert.Equal(t, []Mop{Write("x", 1), Read("y", 2)}, history[1].Value)

	assert.Equal(t, OpTypeFail, history[3].Type)
	assert.Equal(t, OpTypeInfo, history[5].Type)
}

func TestParseOpRejectsMissingBraces(t *testing.T) {
	_, err := ParseOp(":type :ok")
	assert.Error(t, err)
}

func TestParseOpRejectsMissingType(t *testing.T) {
	_, err := ParseOp("{:index 0}")
	assert.Error(t, err)
}

func TestMopIsReadWrite(t *testing.T) {
	r := Read("x", 1)
	w := Write("x", 1)
	assert.True(t, r.IsRead())
	assert.False(t, r.IsWrite())
	assert.True(t, w.IsWrite())
	assert.False(t, w.IsRead())
	assert.True(t, r.IsEqual(Read("x", 1)))
	assert.False(t, r.IsEqual(w))
}

func TestFilterOkOrInfoHistory(t *testing.T) {
	history, err := ParseHistory(sampleHistory)
	assert.NoError(t, err)

	kept := FilterOkOrInfoHistory(history)
	assert.Len(t, kept, 2)
	for _, op := range kept {
		assert.NotEqual(t, OpTypeFail, op.Type)
		assert.NotEqual(t, OpTypeInvoke, op.Type)
	}
}

func TestFilterProcess(t *testing.T) {
	history, err := ParseHistory(sampleHistory)
	assert.NoError(t, err)

	p1 := history.FilterProcess(1)
	assert.Len(t, p1, 4)
}

func TestGetKeys(t *testing.T) {
	history, err := ParseHistory(sampleHistory)
	assert.NoError(t, err)

	assert.ElementsMatch(t, []string{"y", "y", "x", "x"}, history.GetKeys(MopTypeRead))
	assert.ElementsMatch(t, []string{"x", "x", "y", "y"}, history.GetKeys(MopTypeWrite))
}

func TestReverseHistory(t *testing.T) {
	history, err := ParseHistory(sampleHistory)
	assert.NoError(t, err)

	reversed := ReverseHistory(history)
	assert.Equal(t, *history[0].Index, *reversed[len(reversed)-1].Index)
	assert.Equal(t, *history[len(history)-1].Index, *reversed[0].Index)
}
