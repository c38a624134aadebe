package main

import (
	"github.com/scoobiii/HVMx/internal/bookio"
	"github.com/scoobiii/HVMx/internal/core"
)

// demoBook builds the built-in book used when no book file is given:
//
//	id     = λx x
//	add    = λa λb (+ a b)
//	double = λx (+ x x)
//	main   = (double 21)
func demoBook() *core.Book {
	bk := core.NewBook()

	bk.Insert("id", core.Def{
		Arity: 1,
		Root:  core.Lam(0),
		Slots: []core.Port{
			core.Var(2), core.Var(2),
			core.Hole,
		},
	})

	// Binder a faces the operator's principal; binder b reaches the
	// pending operand wire at slot 6, the result flows through slot 7.
	bk.Insert("add", core.Def{
		Arity: 2,
		Root:  core.Lam(0),
		Slots: []core.Port{
			core.Opr(core.OpAdd, 4), core.Lam(2),
			core.Var(6), core.Var(7),
			core.Var(6), core.Var(7),
			core.Hole, core.Hole,
		},
	})

	// The binder feeds a duplicator: one copy hits the operator's
	// principal, the other arrives as the second operand.
	bk.Insert("double", core.Def{
		Arity: 1,
		Root:  core.Lam(0),
		Slots: []core.Port{
			core.Dup(0, 2), core.Var(6),
			core.Opr(core.OpAdd, 4), core.Var(7),
			core.Var(7), core.Var(6),
			core.Hole, core.Hole,
		},
	})

	dbl, _ := bk.Ref("double")
	bk.Insert("main", core.Def{
		Arity: 0,
		Root:  core.Var(0),
		Slots: []core.Port{
			core.Hole,
			core.Num(21), core.Var(0),
		},
		Redexes: []core.Redex{{A: dbl, B: core.App(1)}},
	})

	return bk
}

// loadBook returns the configured book file, or the demo book when no path
// is set.
func loadBook() (*core.Book, error) {
	if cfg.Book.Path == "" {
		return demoBook(), nil
	}
	return bookio.Load(cfg.Book.Path)
}
