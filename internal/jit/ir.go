// Package jit lowers a live net into a linear instruction program that a
// backend can replay and reduce. The CPU backend replays through the core;
// device backends consume the same program from their own arenas.
package jit

import (
	"fmt"

	"github.com/scoobiii/HVMx/internal/core"
)

// OpKind discriminates program instructions.
type OpKind uint8

const (
	// OpAlloc reserves arena words ahead of any store.
	OpAlloc OpKind = iota
	// OpNode stores structural content: a node auxiliary or a parked port.
	OpNode
	// OpWire stores wiring state: an unresolved or forwarding variable slot.
	OpWire
	// OpRedex enqueues a pending redex.
	OpRedex
)

func (k OpKind) String() string {
	switch k {
	case OpAlloc:
		return "alloc"
	case OpNode:
		return "node"
	case OpWire:
		return "wire"
	case OpRedex:
		return "redex"
	default:
		return "op?"
	}
}

// Op is one program instruction. Field use depends on Kind: OpAlloc reads
// Size; OpNode and OpWire read Addr and A; OpRedex reads A and B.
type Op struct {
	Kind OpKind
	Addr uint64
	Size uint64
	A, B core.Port
}

// Program is a replayable image of a net: one leading allocation, a store
// per live slot, and the pending redexes. Replaying it into a fresh arena
// reproduces the source net exactly.
type Program struct {
	Words uint64
	Ops   []Op
}

// Compile linearizes n. The net must be at rest: no worker may be rewriting
// while the slots are scanned.
func Compile(n *core.Net) *Program {
	used := n.Used()
	p := &Program{
		Words: used,
		Ops:   make([]Op, 0, used+1),
	}
	if used > 1 {
		p.Ops = append(p.Ops, Op{Kind: OpAlloc, Size: used - 1})
	}
	for addr := uint64(1); addr < used; addr++ {
		pt := n.Port(addr)
		kind := OpNode
		if pt == core.Hole || pt.Tag() == core.TagVar {
			kind = OpWire
		}
		p.Ops = append(p.Ops, Op{Kind: kind, Addr: addr, A: pt})
	}
	if root := n.Result(); root != core.Hole {
		p.Ops = append(p.Ops, Op{Kind: OpWire, Addr: 0, A: root})
	}
	for _, r := range n.PendingRedexes() {
		p.Ops = append(p.Ops, Op{Kind: OpRedex, A: r.A, B: r.B})
	}
	return p
}

// Replay writes the program into n, which must be freshly constructed with
// capacity for Words.
func (p *Program) Replay(n *core.Net) error {
	for _, op := range p.Ops {
		switch op.Kind {
		case OpAlloc:
			if _, err := n.Reserve(op.Size); err != nil {
				return fmt.Errorf("replaying alloc of %d words: %w", op.Size, err)
			}
		case OpNode, OpWire:
			if op.Addr >= n.Used() {
				return fmt.Errorf("%w: store at %d outside reserved %d words",
					core.ErrMalformedNet, op.Addr, n.Used())
			}
			n.SetPort(op.Addr, op.A)
		case OpRedex:
			n.PushRedex(core.Redex{A: op.A, B: op.B})
		default:
			return fmt.Errorf("%w: unknown instruction kind %d", core.ErrMalformedNet, op.Kind)
		}
	}
	return nil
}
