package value

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompareSameTag(t *testing.T) {
	assert.Equal(t, -1, Compare(NewInt(1), NewInt(2)))
	assert.Equal(t, 0, Compare(NewInt(2), NewInt(2)))
	assert.Equal(t, 1, Compare(NewInt(3), NewInt(2)))
	assert.Equal(t, -1, Compare(NewString("a"), NewString("b")))
	assert.Equal(t, 0, Compare(NewBool(true), NewBool(true)))
	assert.Equal(t, -1, Compare(NewBool(false), NewBool(true)))
}

func TestCompareNumericPromotion(t *testing.T) {
	assert.Equal(t, 0, Compare(NewInt(3), NewDouble(3.0)))
	assert.Equal(t, -1, Compare(NewInt(3), NewDouble(3.5)))
	assert.Equal(t, 1, Compare(NewDouble(4.5), NewInt(4)))
}

func TestCompareMixedTagRank(t *testing.T) {
	null := NewNull()
	b := NewBool(true)
	n := NewInt(1)
	s := NewString("x")
	ts := NewTimestamp(time.Now())
	bs := NewBytes([]byte{1})

	assert.Equal(t, -1, Compare(null, b))
	assert.Equal(t, -1, Compare(b, n))
	assert.Equal(t, -1, Compare(n, s))
	assert.Equal(t, -1, Compare(s, ts))
	assert.Equal(t, -1, Compare(ts, bs))
	assert.Equal(t, 1, Compare(bs, null))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(NewInt(5), NewInt(5)))
	assert.False(t, Equal(NewInt(5), NewInt(6)))
}

func TestCloneBytesIndependence(t *testing.T) {
	orig := []byte{1, 2, 3}
	v := NewBytes(orig)
	orig[0] = 99
	got, ok := v.AsBytes()
	assert.True(t, ok)
	assert.Equal(t, byte(1), got[0])
}

func TestHashDeterministic(t *testing.T) {
	a := NewString("hello")
	b := NewString("hello")
	assert.Equal(t, a.Hash(), b.Hash())

	c := NewString("world")
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestToTupleElementOrdering(t *testing.T) {
	lo := NewInt(-5).ToTupleElement()
	hi := NewInt(5).ToTupleElement()
	assert.True(t, bytesLess(lo, hi))

	loF := NewDouble(-1.5).ToTupleElement()
	hiF := NewDouble(1.5).ToTupleElement()
	assert.True(t, bytesLess(loF, hiF))
}

func bytesLess(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
