package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNet(t *testing.T) (*Net, *Mem) {
	t.Helper()
	n, err := NewNet(NetConfig{HeapWords: 1 << 12, MaxHeapWords: 1 << 16, Workers: 1})
	require.NoError(t, err)
	return n, n.Mem(0)
}

func TestNewNet_Validation(t *testing.T) {
	_, err := NewNet(NetConfig{HeapWords: 16, Workers: 0})
	assert.ErrorIs(t, err, ErrBadConfig)

	_, err = NewNet(NetConfig{HeapWords: 1, Workers: 1})
	assert.ErrorIs(t, err, ErrBadConfig)
}

func TestNet_RootReserved(t *testing.T) {
	n, m := newTestNet(t)
	assert.Equal(t, Var(0), n.Root())
	assert.Equal(t, Hole, n.Result())

	// First allocation never hands out the root slot.
	addr, err := m.Alloc(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), addr)
}

func TestNet_AllocFreeReuse(t *testing.T) {
	_, m := newTestNet(t)
	a, err := m.Alloc(3)
	require.NoError(t, err)
	m.Free(a, 3)
	b, err := m.Alloc(3)
	require.NoError(t, err)
	assert.Equal(t, a, b, "freed block is reused for the same size")

	// Freed slots are scrubbed.
	m.Free(b, 3)
	for i := uint64(0); i < 3; i++ {
		assert.Equal(t, Hole, m.Net().Port(b+i))
	}
}

func TestNet_RedexBagLIFO(t *testing.T) {
	n, _ := newTestNet(t)
	n.PushRedex(Redex{Num(1), Num(2)})
	n.PushRedex(Redex{Num(3), Num(4)})
	assert.Equal(t, 2, n.Pending())

	r, ok := n.PopRedex()
	require.True(t, ok)
	assert.Equal(t, Redex{Num(3), Num(4)}, r)

	snapshot := n.PendingRedexes()
	assert.Equal(t, []Redex{{Num(1), Num(2)}}, snapshot)

	_, ok = n.PopRedex()
	require.True(t, ok)
	_, ok = n.PopRedex()
	assert.False(t, ok, "empty bag pops nothing")
}

func TestNet_LinkParksFirstArrival(t *testing.T) {
	n, m := newTestNet(t)
	v, err := m.FreshVar()
	require.NoError(t, err)

	m.Link(v, Num(7))
	assert.Equal(t, Num(7), n.Port(v.Addr()), "first side parks its port")
	assert.Equal(t, 0, n.Pending())
}

func TestNet_LinkSecondArrivalResolves(t *testing.T) {
	n, m := newTestNet(t)
	v, err := m.FreshVar()
	require.NoError(t, err)

	a, err := m.Alloc(2)
	require.NoError(t, err)
	n.SetPort(a, Era())
	n.SetPort(a+1, Era())

	m.Link(v, Num(7))
	m.Link(Lam(a), v)
	require.Equal(t, 1, n.Pending(), "resolution brought two principals together")
	r, _ := n.PopRedex()
	assert.ElementsMatch(t, []Port{Lam(a), Num(7)}, []Port{r.A, r.B})
}

func TestNet_LinkVarVarChains(t *testing.T) {
	n, m := newTestNet(t)
	v1, _ := m.FreshVar()
	v2, _ := m.FreshVar()

	m.Link(v1, v2)
	m.Link(v1, Num(9))
	m.Link(v2, Num(8))
	// One side parked through the chain, the other fired the redex.
	require.Equal(t, 1, n.Pending())
	r, _ := n.PopRedex()
	assert.ElementsMatch(t, []Port{Num(9), Num(8)}, []Port{r.A, r.B})
}

func TestNet_ExhaustionIsFixedForMultiWorker(t *testing.T) {
	n, err := NewNet(NetConfig{HeapWords: 4, MaxHeapWords: 1 << 10, Workers: 2})
	require.NoError(t, err)
	m := n.Mem(0)

	_, err = m.Alloc(2)
	require.NoError(t, err)
	_, err = m.Alloc(2)
	assert.ErrorIs(t, err, ErrArenaFull, "multi-worker arena never grows")
	assert.Equal(t, uint64(4), n.Cap())
}

func TestNet_GrowthSingleWorker(t *testing.T) {
	n, err := NewNet(NetConfig{HeapWords: 4, MaxHeapWords: 64, Workers: 1})
	require.NoError(t, err)
	m := n.Mem(0)

	for i := 0; i < 20; i++ {
		_, err := m.Alloc(3)
		require.NoError(t, err)
	}
	assert.Greater(t, n.Cap(), uint64(4))

	for {
		if _, err = m.Alloc(3); err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrArenaFull, "growth stops at the ceiling")
	assert.LessOrEqual(t, n.Cap(), uint64(64))
}

func TestNet_MemViews(t *testing.T) {
	n, err := NewNet(NetConfig{HeapWords: 1 << 10, Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n.Workers())
	assert.NotNil(t, n.Mem(2))

	a, err := n.Mem(1).Alloc(2)
	require.NoError(t, err)
	b, err := n.Mem(2).Alloc(2)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "views allocate from a common frontier")

	var evil error
	func() {
		defer func() {
			if recover() != nil {
				evil = errors.New("panicked")
			}
		}()
		n.Port(1 << 20)
	}()
	assert.Error(t, evil, "addressing past the arena is a contract violation")
}
