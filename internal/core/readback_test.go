package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadback_Leaves(t *testing.T) {
	n, _ := newTestNet(t)
	assert.Equal(t, "42", Readback(n, nil, Num(42)))
	assert.Equal(t, "0", Readback(n, nil, Num(0)))
	assert.Equal(t, "*", Readback(n, nil, Era()))
	assert.Equal(t, "@7", Readback(n, nil, Ref(7)))

	bk := NewBook()
	id := bk.Insert("succ", identityDef())
	assert.Equal(t, "@succ", Readback(n, bk, Ref(id)))
}

func TestReadback_Identity(t *testing.T) {
	n, m := newTestNet(t)
	v, _ := m.FreshVar()
	lam := node(t, m, v, v)
	assert.Equal(t, "λx0 x0", Readback(n, nil, Lam(lam)))
}

func TestReadback_ErasedBinder(t *testing.T) {
	n, m := newTestNet(t)
	lam := node(t, m, Era(), Num(5))
	assert.Equal(t, "λ_ 5", Readback(n, nil, Lam(lam)))
}

func TestReadback_Application(t *testing.T) {
	n, m := newTestNet(t)
	v, _ := m.FreshVar()
	lam := node(t, m, v, v)
	app := node(t, m, Num(9), Lam(lam))
	assert.Equal(t, "(app 9 λx0 x0)", Readback(n, nil, App(app)))
}

func TestReadback_ConstructorTree(t *testing.T) {
	n, m := newTestNet(t)
	leaf := node(t, m, Num(1), Num(2))
	root := node(t, m, Con(3, 2, leaf), Num(7), Era())
	assert.Equal(t, "(C4 (C3 1 2) 7 *)", Readback(n, nil, Con(4, 3, root)))
}

func TestReadback_DupAndOper(t *testing.T) {
	n, m := newTestNet(t)
	d := node(t, m, Num(1), Num(2))
	assert.Equal(t, "{1 2}", Readback(n, nil, Dup(0, d)))

	o := node(t, m, Num(10), Num(3))
	assert.Equal(t, "(add 10 3)", Readback(n, nil, Opr(OpAdd, o)))
}

func TestReadback_ResolvesSubstitutedVars(t *testing.T) {
	n, m := newTestNet(t)
	v, _ := m.FreshVar()
	m.Link(v, Num(11))
	assert.Equal(t, "11", Readback(n, nil, v))
}

func TestReadback_SharedNamesStable(t *testing.T) {
	n, m := newTestNet(t)
	x, _ := m.FreshVar()
	y, _ := m.FreshVar()
	c := node(t, m, x, y, x)
	assert.Equal(t, "(C0 x0 x1 x0)", Readback(n, nil, Con(0, 3, c)))
}

func TestReadback_CycleGuard(t *testing.T) {
	n, m := newTestNet(t)
	addr, err := m.Alloc(2)
	require.NoError(t, err)
	n.SetPort(addr, Con(0, 2, addr))
	n.SetPort(addr+1, Num(1))
	assert.Equal(t, "(C0 ... 1)", Readback(n, nil, Con(0, 2, addr)))
}
