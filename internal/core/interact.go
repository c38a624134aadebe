package core

import (
	"fmt"
	"sync/atomic"
)

// Rule names the interaction applied to a redex. The set is closed: every
// well-formed tag pair maps to exactly one rule.
type Rule uint8

const (
	RuleLink  Rule = iota // variable vs anything: resolve the pending wire
	RuleDeref             // reference vs anything: instantiate a definition
	RuleAnni              // same kind, same label: annihilate
	RuleComm              // constructor/duplicator kinds, otherwise: commute
	RuleEras              // eraser vs anything: discard or propagate
	RuleCall              // application vs lambda: beta reduction
	RuleCopy              // duplicator vs non-matching node: duplicate
	RuleOper              // numeral vs operator: wrapped arithmetic

	ruleNone Rule = 0xFF
)

func (r Rule) String() string {
	switch r {
	case RuleLink:
		return "link"
	case RuleDeref:
		return "deref"
	case RuleAnni:
		return "anni"
	case RuleComm:
		return "comm"
	case RuleEras:
		return "eras"
	case RuleCall:
		return "call"
	case RuleCopy:
		return "copy"
	case RuleOper:
		return "oper"
	default:
		return "none"
	}
}

// RuleFor classifies a redex, symmetric in its operands. The second result
// is false for tag pairs outside the rule set; such a redex is an upstream
// defect in net construction.
//
// Overlap resolution: variables take precedence over everything, erasure
// over dereference (discarding a reference must not expand it, or erasing a
// recursive definition would never terminate), and annihilation requires
// equal kind and equal label. A duplicator meeting a constructor commutes;
// meeting any other node or a leaf it copies.
func RuleFor(a, b Port) (Rule, bool) {
	ta, tb := a.Tag(), b.Tag()
	switch {
	case ta == TagVar || tb == TagVar:
		return RuleLink, true
	case ta == TagEra || tb == TagEra:
		return RuleEras, true
	case ta == TagRef || tb == TagRef:
		return RuleDeref, true
	case ta == TagNum && tb == TagNum:
		return RuleOper, true
	case (ta == TagOpr && tb == TagNum) || (ta == TagNum && tb == TagOpr):
		return RuleOper, true
	case ta == tb && (ta == TagCon || ta == TagDup):
		if a.Lab() == b.Lab() {
			return RuleAnni, true
		}
		return RuleComm, true
	case (ta == TagCon && tb == TagDup) || (ta == TagDup && tb == TagCon):
		return RuleComm, true
	case (ta == TagApp && tb == TagLam) || (ta == TagLam && tb == TagApp):
		return RuleCall, true
	case ta == TagDup || tb == TagDup:
		return RuleCopy, true
	default:
		return ruleNone, false
	}
}

// Interact applies exactly one rule to the redex (a, b), mutating the net
// through m. Each rewrite is O(1) local surgery: it touches only the nodes
// directly reachable from the two operand ports, consumes the redex, and
// enqueues at most arity-bounded new redexes. On failure the error reports
// the offending pair and rule; a lookup failure leaves the net unmutated.
func Interact(m *Mem, bk *Book, a, b Port) error {
	rule, ok := RuleFor(a, b)
	if !ok {
		return &InvariantError{A: a, B: b, Rule: ruleNone, Reason: "no applicable rule"}
	}
	var err error
	switch rule {
	case RuleLink:
		m.Link(a, b)
	case RuleDeref:
		ref, other := orient(a, b, TagRef)
		err = interactDeref(m, bk, ref, other)
	case RuleAnni:
		err = interactAnni(m, a, b)
	case RuleComm:
		err = interactComm(m, a, b)
	case RuleEras:
		era, other := orient(a, b, TagEra)
		interactEras(m, era, other)
	case RuleCall:
		app, lam := orient(a, b, TagApp)
		interactCall(m, app, lam)
	case RuleCopy:
		dup, other := orient(a, b, TagDup)
		err = interactCopy(m, dup, other)
	case RuleOper:
		num, opr := orient(a, b, TagNum)
		err = interactOper(m, num, opr)
	}
	if err != nil {
		return err
	}
	atomic.AddUint64(&m.Count, 1)
	return nil
}

// orient puts the operand with the wanted tag first.
func orient(a, b Port, want Tag) (Port, Port) {
	if a.Tag() == want {
		return a, b
	}
	return b, a
}

func interactDeref(m *Mem, bk *Book, ref, other Port) error {
	if bk == nil {
		return fmt.Errorf("%w: id %d against %s (no book)", ErrUndefinedRef, ref.DefID(), other)
	}
	def, ok := bk.DefByID(ref.DefID())
	if !ok {
		return fmt.Errorf("%w: id %d against %s", ErrUndefinedRef, ref.DefID(), other)
	}
	root, rds, err := def.instantiate(m)
	if err != nil {
		return err
	}
	for _, r := range rds {
		m.net.PushRedex(r)
	}
	m.Link(root, other)
	return nil
}

func interactAnni(m *Mem, a, b Port) error {
	k := a.Ari()
	if b.Ari() != k {
		return &InvariantError{A: a, B: b, Rule: RuleAnni, Reason: "arity mismatch"}
	}
	if k > 0 && a.Addr() == b.Addr() {
		return &InvariantError{A: a, B: b, Rule: RuleAnni, Reason: "node annihilating itself"}
	}
	var xs, ys [MaxArity]Port
	for i := 0; i < k; i++ {
		xs[i] = m.net.Port(a.Addr() + uint64(i))
		ys[i] = m.net.Port(b.Addr() + uint64(i))
	}
	if k > 0 {
		m.Free(a.Addr(), k)
		m.Free(b.Addr(), k)
	}
	for i := 0; i < k; i++ {
		m.Link(xs[i], ys[i])
	}
	return nil
}

// interactComm commutes two nodes of different kind or label: each is
// duplicated once per auxiliary of the other, the duplicates are cross-wired
// through fresh variables, and each old auxiliary is linked against a
// duplicate's principal. Sharing is preserved without collapsing structure.
// Nullary nodes copy freely: their "duplicate" is the port itself.
func interactComm(m *Mem, a, b Port) error {
	ka, kb := a.Ari(), b.Ari()
	var as, bs [MaxArity]Port
	for i := 0; i < ka; i++ {
		as[i] = m.net.Port(a.Addr() + uint64(i))
	}
	for j := 0; j < kb; j++ {
		bs[j] = m.net.Port(b.Addr() + uint64(j))
	}

	if ka == 0 || kb == 0 {
		if ka > 0 {
			m.Free(a.Addr(), ka)
		}
		if kb > 0 {
			m.Free(b.Addr(), kb)
		}
		for i := 0; i < ka; i++ {
			m.Link(as[i], b)
		}
		for j := 0; j < kb; j++ {
			m.Link(bs[j], a)
		}
		return nil
	}

	// One allocation covers both copy sets and the cross wires, so a full
	// arena fails the rewrite before any slot is written and the operand
	// nodes survive intact.
	base, err := m.Alloc(3 * ka * kb)
	if err != nil {
		return fmt.Errorf("commuting (%s, %s): %w", a, b, err)
	}

	// bc[i]: copy of b faced by a's old auxiliary i; ac[j] likewise.
	// Cross wire variables occupy the tail of the block.
	var bc, ac [MaxArity]uint64
	for i := 0; i < ka; i++ {
		bc[i] = base + uint64(i*kb)
	}
	for j := 0; j < kb; j++ {
		ac[j] = base + uint64(ka*kb+j*ka)
	}
	vars := base + uint64(2*ka*kb)
	for i := 0; i < ka; i++ {
		for j := 0; j < kb; j++ {
			slot := vars + uint64(i*kb+j)
			m.net.SetPort(slot, Hole)
			m.net.SetPort(ac[j]+uint64(i), Var(slot))
			m.net.SetPort(bc[i]+uint64(j), Var(slot))
		}
	}
	m.Free(a.Addr(), ka)
	m.Free(b.Addr(), kb)
	for i := 0; i < ka; i++ {
		m.Link(as[i], b.WithAddr(bc[i]))
	}
	for j := 0; j < kb; j++ {
		m.Link(bs[j], a.WithAddr(ac[j]))
	}
	return nil
}

func interactEras(m *Mem, _ Port, other Port) {
	if !other.IsNode() {
		return // leaf: discarded outright
	}
	k := other.Ari()
	if k == 0 {
		return
	}
	var aux [MaxArity]Port
	for i := 0; i < k; i++ {
		aux[i] = m.net.Port(other.Addr() + uint64(i))
	}
	m.Free(other.Addr(), k)
	for i := 0; i < k; i++ {
		m.Link(aux[i], Era())
	}
}

func interactCall(m *Mem, app, lam Port) {
	bind := m.net.Port(lam.Addr())
	body := m.net.Port(lam.Addr() + 1)
	arg := m.net.Port(app.Addr())
	ret := m.net.Port(app.Addr() + 1)
	m.Free(app.Addr(), 2)
	m.Free(lam.Addr(), 2)
	m.Link(bind, arg)
	m.Link(body, ret)
}

func interactCopy(m *Mem, dup, other Port) error {
	if other.IsLeaf() {
		d0 := m.net.Port(dup.Addr())
		d1 := m.net.Port(dup.Addr() + 1)
		m.Free(dup.Addr(), 2)
		m.Link(d0, other)
		m.Link(d1, other)
		return nil
	}
	return interactComm(m, dup, other)
}

// interactOper implements the two-phase binary operator: the first numeral
// to reach the operator's principal is stored as the left operand and the
// operator is re-exposed against the pending wire; the second numeral fires
// the operation and the redex collapses to one numeral port.
func interactOper(m *Mem, num, opr Port) error {
	if opr.Tag() == TagNum {
		return &InvariantError{A: num, B: opr, Rule: RuleOper, Reason: "operator-less numeral pair"}
	}
	p := opr.Addr()
	fst := m.net.Port(p)
	if fst.Tag() == TagNum {
		c := fst.Numb().Apply(opr.Oper(), num.Numb())
		ret := m.net.Port(p + 1)
		m.Free(p, 2)
		m.Link(ret, Num(c))
		return nil
	}
	m.net.SetPort(p, num)
	m.Link(fst, opr)
	return nil
}
