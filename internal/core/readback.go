package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Readback renders the term reachable from p as text. Variable names are
// assigned in traversal order, so two nets that are equal up to address
// renaming read back identically; confluence tests and the CLI rely on this.
func Readback(n *Net, bk *Book, p Port) string {
	r := &reader{n: n, bk: bk, names: make(map[uint64]string), visited: make(map[uint64]bool)}
	var sb strings.Builder
	r.term(&sb, p)
	return sb.String()
}

type reader struct {
	n       *Net
	bk      *Book
	names   map[uint64]string
	visited map[uint64]bool
	next    int
}

// resolve chases substituted variable slots to the port they now stand for.
func (r *reader) resolve(p Port) Port {
	for p.Tag() == TagVar {
		s := r.n.Port(p.Addr())
		if s == Hole {
			return p
		}
		p = s
	}
	return p
}

func (r *reader) name(slot uint64) string {
	if nm, ok := r.names[slot]; ok {
		return nm
	}
	nm := "x" + strconv.Itoa(r.next)
	r.next++
	r.names[slot] = nm
	return nm
}

func (r *reader) term(sb *strings.Builder, p Port) {
	p = r.resolve(p)
	if p.IsNode() {
		if r.visited[p.Addr()] {
			sb.WriteString("...")
			return
		}
		r.visited[p.Addr()] = true
	}
	switch p.Tag() {
	case TagVar:
		sb.WriteString(r.name(p.Addr()))
	case TagNum:
		sb.WriteString(strconv.FormatUint(uint64(p.Numb()), 10))
	case TagEra:
		sb.WriteString("*")
	case TagRef:
		if r.bk != nil {
			if nm, ok := r.bk.NameOf(p.DefID()); ok {
				sb.WriteString("@" + nm)
				return
			}
		}
		fmt.Fprintf(sb, "@%d", p.DefID())
	case TagLam:
		bind := r.resolve(r.n.Port(p.Addr()))
		sb.WriteString("λ")
		switch bind.Tag() {
		case TagVar:
			sb.WriteString(r.name(bind.Addr()))
		case TagEra:
			sb.WriteString("_")
		default:
			r.term(sb, bind)
		}
		sb.WriteString(" ")
		r.term(sb, r.n.Port(p.Addr()+1))
	case TagApp:
		sb.WriteString("(app ")
		r.term(sb, r.n.Port(p.Addr()))
		sb.WriteString(" ")
		r.term(sb, r.n.Port(p.Addr()+1))
		sb.WriteString(")")
	case TagCon:
		fmt.Fprintf(sb, "(C%d", p.Lab())
		for i := 0; i < p.Ari(); i++ {
			sb.WriteString(" ")
			r.term(sb, r.n.Port(p.Addr()+uint64(i)))
		}
		sb.WriteString(")")
	case TagDup:
		sb.WriteString("{")
		r.term(sb, r.n.Port(p.Addr()))
		sb.WriteString(" ")
		r.term(sb, r.n.Port(p.Addr()+1))
		sb.WriteString("}")
	case TagOpr:
		fmt.Fprintf(sb, "(%s ", p.Oper())
		r.term(sb, r.n.Port(p.Addr()))
		sb.WriteString(" ")
		r.term(sb, r.n.Port(p.Addr()+1))
		sb.WriteString(")")
	default:
		sb.WriteString("_")
	}
}
