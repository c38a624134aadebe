package core

// Numb is a 60-bit numeral. All arithmetic wraps modulo 2^60 and division or
// modulo by zero yields zero; the machine never traps on arithmetic.
type Numb uint64

// NumbMask covers the 60-bit numeral domain.
const NumbMask uint64 = (1 << 60) - 1

// NewNumb masks a value into the numeral domain.
func NewNumb(v uint64) Numb { return Numb(v & NumbMask) }

func (a Numb) Add(b Numb) Numb { return Numb((uint64(a) + uint64(b)) & NumbMask) }
func (a Numb) Sub(b Numb) Numb { return Numb((uint64(a) - uint64(b)) & NumbMask) }
func (a Numb) Mul(b Numb) Numb { return Numb(uint64(a) * uint64(b) & NumbMask) }

// Div returns a/b, or zero when b is zero.
func (a Numb) Div(b Numb) Numb {
	if b == 0 {
		return 0
	}
	return Numb(uint64(a) / uint64(b) & NumbMask)
}

// Mod returns a%b, or zero when b is zero, matching Div's policy.
func (a Numb) Mod(b Numb) Numb {
	if b == 0 {
		return 0
	}
	return Numb(uint64(a) % uint64(b) & NumbMask)
}

func (a Numb) And(b Numb) Numb { return a & b }
func (a Numb) Or(b Numb) Numb  { return a | b }
func (a Numb) Xor(b Numb) Numb { return a ^ b }

// Shl shifts left by b mod 64; results stay in the 60-bit domain.
func (a Numb) Shl(b Numb) Numb { return Numb(uint64(a) << (uint64(b) & 63) & NumbMask) }

// Shr shifts right by b mod 64.
func (a Numb) Shr(b Numb) Numb { return Numb(uint64(a) >> (uint64(b) & 63) & NumbMask) }

func boolNumb(v bool) Numb {
	if v {
		return 1
	}
	return 0
}

// Oper is a binary operation code carried in the label field of an operator
// port.
type Oper uint16

const (
	OpAdd Oper = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpLtn
	OpLte
	OpEql
	OpGte
	OpGtn
	OpNeq
)

var operNames = [...]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpMod: "mod", OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpShl: "shl", OpShr: "shr", OpLtn: "ltn", OpLte: "lte",
	OpEql: "eql", OpGte: "gte", OpGtn: "gtn", OpNeq: "neq",
}

func (o Oper) String() string {
	if int(o) < len(operNames) {
		return operNames[o]
	}
	return "op?"
}

// OperByName resolves the textual operation names used in book files.
func OperByName(name string) (Oper, bool) {
	for i, n := range operNames {
		if n == name {
			return Oper(i), true
		}
	}
	return 0, false
}

// Apply evaluates "a o b". Unknown codes yield zero rather than trapping,
// consistent with the rest of the arithmetic policy.
func (a Numb) Apply(o Oper, b Numb) Numb {
	switch o {
	case OpAdd:
		return a.Add(b)
	case OpSub:
		return a.Sub(b)
	case OpMul:
		return a.Mul(b)
	case OpDiv:
		return a.Div(b)
	case OpMod:
		return a.Mod(b)
	case OpAnd:
		return a.And(b)
	case OpOr:
		return a.Or(b)
	case OpXor:
		return a.Xor(b)
	case OpShl:
		return a.Shl(b)
	case OpShr:
		return a.Shr(b)
	case OpLtn:
		return boolNumb(a < b)
	case OpLte:
		return boolNumb(a <= b)
	case OpEql:
		return boolNumb(a == b)
	case OpGte:
		return boolNumb(a >= b)
	case OpGtn:
		return boolNumb(a > b)
	case OpNeq:
		return boolNumb(a != b)
	default:
		return 0
	}
}
