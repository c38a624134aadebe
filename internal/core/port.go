// Package core implements the interaction-net runtime: tagged ports, the
// shared node arena, the definition book, and the eight interaction rules.
//
// A Port is a 64-bit tagged word. A Net owns a flat arena of port slots; a
// node of arity k occupies k consecutive slots holding its auxiliary ports,
// and its base address doubles as the node's principal identity. Variables
// are single slots resolved by an atomic swap, which is what makes linking
// safe under concurrent rewriting.
package core

import (
	"fmt"
)

// Port is an immutable tagged value: 4-bit tag in the high bits, 60-bit
// payload in the low bits. For node tags the payload subdivides further into
// a 4-bit arity, a 16-bit label and a 40-bit arena address. Numerals use the
// full 60-bit payload.
type Port uint64

// Tag identifies the kind of node a port denotes. The set is closed;
// classification in RuleFor is exhaustive over it.
type Tag uint8

const (
	TagVar Tag = iota // free variable, payload = variable slot address
	TagRef            // global reference, payload = definition id
	TagEra            // eraser, no payload
	TagNum            // numeral, payload = 60-bit Numb
	TagCon            // constructor, labeled, user-defined arity
	TagDup            // duplicator, labeled, arity 2
	TagLam            // lambda, arity 2: binder wire, body
	TagApp            // application, arity 2: argument, result
	TagOpr            // binary operator, label = Oper code, arity 2
)

func (t Tag) String() string {
	switch t {
	case TagVar:
		return "var"
	case TagRef:
		return "ref"
	case TagEra:
		return "era"
	case TagNum:
		return "num"
	case TagCon:
		return "con"
	case TagDup:
		return "dup"
	case TagLam:
		return "lam"
	case TagApp:
		return "app"
	case TagOpr:
		return "opr"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

const (
	tagShift = 60
	ariShift = 56
	labShift = 40

	// PayloadMask covers the 60 payload bits of a port.
	PayloadMask uint64 = (1 << 60) - 1
	// AddrMask covers the 40 address bits of a node port's payload.
	AddrMask uint64 = (1 << 40) - 1

	ariMask uint64 = 0xF
	labMask uint64 = 0xFFFF

	// MaxArity is the largest node arity representable in a port.
	MaxArity = 15
)

// Hole marks an unresolved variable slot in the arena and in definition
// templates. Its tag (0xF) is outside the closed tag set, so it can never be
// confused with a live port.
const Hole Port = Port(uint64(0xF) << tagShift)

// New packs a tag and payload into a port. The payload is masked to its bit
// width; malformed input is truncated, never rejected.
func New(tag Tag, payload uint64) Port {
	return Port(uint64(tag)<<tagShift | payload&PayloadMask)
}

func newNode(tag Tag, lab uint16, ari uint8, addr uint64) Port {
	payload := uint64(ari&0xF)<<ariShift | uint64(lab)<<labShift | addr&AddrMask
	return New(tag, payload)
}

// Var returns a variable port addressing the given slot.
func Var(addr uint64) Port { return New(TagVar, addr&AddrMask) }

// Ref returns a global-reference port for a definition id.
func Ref(id uint32) Port { return New(TagRef, uint64(id)) }

// Era returns the eraser port.
func Era() Port { return New(TagEra, 0) }

// Num returns a numeral port carrying the given value.
func Num(n Numb) Port { return New(TagNum, uint64(n)) }

// Con returns a constructor port with the given label and arity, addressing
// its auxiliary block.
func Con(lab uint16, ari uint8, addr uint64) Port { return newNode(TagCon, lab, ari, addr) }

// Dup returns a duplicator port. Duplicators always have arity 2.
func Dup(lab uint16, addr uint64) Port { return newNode(TagDup, lab, 2, addr) }

// Lam returns a lambda port. Slot 0 is the binder wire, slot 1 the body.
func Lam(addr uint64) Port { return newNode(TagLam, 0, 2, addr) }

// App returns an application port. Slot 0 is the argument, slot 1 the result.
func App(addr uint64) Port { return newNode(TagApp, 0, 2, addr) }

// Opr returns a binary-operator port. Slot 0 holds the pending operand wire
// (or, once bound, the left operand numeral), slot 1 the result wire.
func Opr(op Oper, addr uint64) Port { return newNode(TagOpr, uint16(op), 2, addr) }

// Tag projects the port's tag.
func (p Port) Tag() Tag { return Tag(p >> tagShift) }

// Payload projects the full 60-bit payload.
func (p Port) Payload() uint64 { return uint64(p) & PayloadMask }

// Addr projects the arena address of a node or variable port.
func (p Port) Addr() uint64 { return uint64(p) & AddrMask }

// Ari projects the arity field of a node port.
func (p Port) Ari() int { return int(uint64(p) >> ariShift & ariMask) }

// Lab projects the label field of a node port.
func (p Port) Lab() uint16 { return uint16(uint64(p) >> labShift & labMask) }

// Numb projects a numeral port's value.
func (p Port) Numb() Numb { return Numb(p.Payload()) }

// Oper projects an operator port's operation code.
func (p Port) Oper() Oper { return Oper(p.Lab()) }

// DefID projects a reference port's definition id.
func (p Port) DefID() uint32 { return uint32(p.Payload()) }

// IsNode reports whether the port addresses an auxiliary block (constructor,
// duplicator, lambda, application or operator).
func (p Port) IsNode() bool {
	switch p.Tag() {
	case TagCon, TagDup, TagLam, TagApp, TagOpr:
		return true
	}
	return false
}

// IsLeaf reports whether the port carries no auxiliary structure at all.
func (p Port) IsLeaf() bool {
	switch p.Tag() {
	case TagRef, TagEra, TagNum:
		return true
	}
	return false
}

// WithAddr returns a port identical to p but addressing addr. Used when a
// rewrite materializes a copy of a node at a fresh location.
func (p Port) WithAddr(addr uint64) Port {
	return Port(uint64(p)&^AddrMask | addr&AddrMask)
}

// String renders the port in the textual form the book loader parses:
// var@N, ref#N, era, #N, conLAB/ARI@N, dupLAB@N, lam@N, app@N, opr:OP@N.
func (p Port) String() string {
	switch p.Tag() {
	case TagVar:
		return fmt.Sprintf("var@%d", p.Addr())
	case TagRef:
		return fmt.Sprintf("ref#%d", p.DefID())
	case TagEra:
		return "era"
	case TagNum:
		return fmt.Sprintf("#%d", uint64(p.Numb()))
	case TagCon:
		return fmt.Sprintf("con%d/%d@%d", p.Lab(), p.Ari(), p.Addr())
	case TagDup:
		return fmt.Sprintf("dup%d@%d", p.Lab(), p.Addr())
	case TagLam:
		return fmt.Sprintf("lam@%d", p.Addr())
	case TagApp:
		return fmt.Sprintf("app@%d", p.Addr())
	case TagOpr:
		return fmt.Sprintf("opr:%s@%d", p.Oper(), p.Addr())
	default:
		if p == Hole {
			return "_"
		}
		return fmt.Sprintf("?%016x", uint64(p))
	}
}
