package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumb_AddSubRoundTrips(t *testing.T) {
	cases := []struct{ a, b uint64 }{
		{0, 0},
		{10, 3},
		{1, NumbMask},
		{NumbMask, NumbMask},
		{1 << 59, 1 << 59},
	}
	for _, c := range cases {
		a, b := NewNumb(c.a), NewNumb(c.b)
		assert.Equal(t, a, a.Add(b).Sub(b), "(%d+%d)-%d", c.a, c.b, c.b)
	}
}

func TestNumb_StaysInDomain(t *testing.T) {
	a := NewNumb(NumbMask)
	for _, n := range []Numb{a.Add(a), a.Mul(a), a.Sub(1), a.Shl(5), a.Xor(a >> 1)} {
		assert.LessOrEqual(t, uint64(n), NumbMask)
	}
	assert.Equal(t, Numb(0), NewNumb(NumbMask).Add(1), "wraparound at 2^60")
}

func TestNumb_SafeDivision(t *testing.T) {
	assert.Equal(t, Numb(0), NewNumb(10).Div(0))
	assert.Equal(t, Numb(0), NewNumb(10).Mod(0))
	assert.Equal(t, Numb(3), NewNumb(10).Div(3))
	assert.Equal(t, Numb(1), NewNumb(10).Mod(3))
}

func TestNumb_Apply(t *testing.T) {
	cases := []struct {
		op   Oper
		a, b uint64
		want uint64
	}{
		{OpAdd, 10, 3, 13},
		{OpSub, 3, 10, NumbMask - 6},
		{OpMul, 6, 7, 42},
		{OpDiv, 10, 0, 0},
		{OpMod, 10, 4, 2},
		{OpAnd, 0b1100, 0b1010, 0b1000},
		{OpOr, 0b1100, 0b1010, 0b1110},
		{OpXor, 0b1100, 0b1010, 0b0110},
		{OpShl, 1, 4, 16},
		{OpShr, 16, 4, 1},
		{OpLtn, 3, 10, 1},
		{OpLte, 10, 10, 1},
		{OpEql, 10, 3, 0},
		{OpGte, 3, 10, 0},
		{OpGtn, 10, 3, 1},
		{OpNeq, 10, 3, 1},
	}
	for _, c := range cases {
		got := NewNumb(c.a).Apply(c.op, NewNumb(c.b))
		assert.Equal(t, NewNumb(c.want), got, "%d %s %d", c.a, c.op, c.b)
	}
}

func TestOper_Names(t *testing.T) {
	for op := OpAdd; op <= OpNeq; op++ {
		back, ok := OperByName(op.String())
		assert.True(t, ok, "name %q", op)
		assert.Equal(t, op, back)
	}
	_, ok := OperByName("nope")
	assert.False(t, ok)
}
