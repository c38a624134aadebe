package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityDef is λx x: a lambda whose binder and body share one wire.
func identityDef() Def {
	return Def{
		Arity: 1,
		Root:  Lam(0),
		Slots: []Port{Var(2), Var(2), Hole},
	}
}

func TestBook_InsertGet(t *testing.T) {
	b := NewBook()
	assert.Equal(t, 0, b.Len())

	id := b.Insert("id", identityDef())
	assert.Equal(t, uint32(0), id)
	assert.Equal(t, 1, b.Len())

	def, ok := b.Get("id")
	require.True(t, ok)
	assert.Equal(t, "id", def.Name)
	assert.Equal(t, 1, def.Arity)

	_, ok = b.Get("missing")
	assert.False(t, ok, "absence is expected, not an error")
}

func TestBook_OverwriteKeepsID(t *testing.T) {
	b := NewBook()
	first := b.Insert("f", identityDef())
	b.Insert("g", identityDef())

	replacement := identityDef()
	replacement.Arity = 9
	again := b.Insert("f", replacement)

	assert.Equal(t, first, again, "last write wins without changing the id")
	def, ok := b.DefByID(first)
	require.True(t, ok)
	assert.Equal(t, 9, def.Arity, "live Ref ports see the new body")
}

func TestBook_RefAndNames(t *testing.T) {
	b := NewBook()
	b.Insert("zeta", identityDef())
	b.Insert("alpha", identityDef())

	p, ok := b.Ref("zeta")
	require.True(t, ok)
	assert.Equal(t, TagRef, p.Tag())
	name, ok := b.NameOf(p.DefID())
	require.True(t, ok)
	assert.Equal(t, "zeta", name)

	_, ok = b.Ref("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"alpha", "zeta"}, b.Names())
}

func TestBook_Expand(t *testing.T) {
	n, m := newTestNet(t)
	bk := NewBook()
	id := bk.Insert("boot", Def{
		Root:    Var(0),
		Slots:   []Port{Hole, Num(1), Num(2)},
		Redexes: []Redex{{Lam(1), App(1)}},
	})

	root, err := bk.Expand(m, id)
	require.NoError(t, err)
	assert.Equal(t, TagVar, root.Tag())
	assert.Equal(t, 1, n.Pending())

	_, err = bk.Expand(m, 99)
	assert.ErrorIs(t, err, ErrUndefinedRef)
}

func TestDef_InstantiateRelocates(t *testing.T) {
	_, m := newTestNet(t)
	def := identityDef()

	root, rds, err := def.instantiate(m)
	require.NoError(t, err)
	assert.Empty(t, rds)

	base := root.Addr()
	assert.Equal(t, TagLam, root.Tag())
	assert.Equal(t, Var(base+2), m.Net().Port(base), "binder wire relocated")
	assert.Equal(t, Var(base+2), m.Net().Port(base+1), "body wire relocated")
	assert.Equal(t, Hole, m.Net().Port(base+2), "variable slot starts unresolved")

	// A second instantiation is a fresh copy, never an alias.
	root2, _, err := def.instantiate(m)
	require.NoError(t, err)
	assert.NotEqual(t, root.Addr(), root2.Addr())
}

func TestDef_InstantiateRelocatesRedexes(t *testing.T) {
	_, m := newTestNet(t)
	def := Def{
		Root:    Var(0),
		Slots:   []Port{Hole, Num(1), Num(2)},
		Redexes: []Redex{{Lam(1), App(1)}},
	}
	root, rds, err := def.instantiate(m)
	require.NoError(t, err)
	base := root.Addr()
	require.Len(t, rds, 1)
	assert.Equal(t, Lam(base+1), rds[0].A)
	assert.Equal(t, App(base+1), rds[0].B)

	// Leaves never relocate.
	assert.Equal(t, Num(1), m.Net().Port(base+1))
}
