package ir

import (
	"github.com/minic-lang/minic/compiler/tp"
)

type (
	// Instr is one linear IR instruction. Every instruction is also a
	// Value: its own result, so expression lowering chains instructions
	// without a separate temporary-naming pass.
	Instr interface {
		Value

		instr()
	}

	base struct {
		Storage

		typ tp.Type
	}

	Entry struct {
		base
	}

	// Exit returns from the function. Ret is nil for void functions.
	Exit struct {
		base

		Ret Value
	}

	Label struct {
		base

		Name string
	}

	Goto struct {
		base

		Target *Label
	}

	// Bc branches to True if Cond is nonzero, to False otherwise.
	Bc struct {
		base

		Cond        Value
		True, False *Label
	}

	BinOp int

	Binary struct {
		base

		Op   BinOp
		L, R Value
	}

	Cond string

	// Icmp compares L and R; the instruction itself is the boolean
	// result.
	Icmp struct {
		base

		Cond Cond
		L, R Value
	}

	MoveKind int

	// Move copies Src to Dst. Load reads through Src as a pointer,
	// Store writes through Dst as a pointer; both are the array
	// access/assignment variants.
	Move struct {
		base

		Kind     MoveKind
		Dst, Src Value
	}

	Call struct {
		base

		F    *Func
		Args []Value
	}

	// Arg marks one marshaled call argument; the selector counts them
	// against the next call's operand list.
	Arg struct {
		base

		X Value
	}
)

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
)

const (
	CondLT Cond = "lt"
	CondLE Cond = "le"
	CondGT Cond = "gt"
	CondGE Cond = "ge"
	CondEQ Cond = "eq"
	CondNE Cond = "ne"
)

const (
	MoveSimple MoveKind = iota
	MoveLoad
	MoveStore
)

func (base) instr() {}

func (b base) Type() tp.Type {
	if b.typ == nil {
		return tp.Void{}
	}

	return b.typ
}

func NewEntry() *Entry { return &Entry{} }

func NewExit(ret Value) *Exit {
	return &Exit{Ret: ret}
}

func NewGoto(l *Label) *Goto {
	return &Goto{Target: l}
}

func NewBc(cond Value, t, f *Label) *Bc {
	return &Bc{Cond: cond, True: t, False: f}
}

func NewBinary(op BinOp, l, r Value) *Binary {
	return &Binary{base: base{typ: tp.Int{}}, Op: op, L: l, R: r}
}

func NewIcmp(cc Cond, l, r Value) *Icmp {
	return &Icmp{base: base{typ: tp.Bool{}}, Cond: cc, L: l, R: r}
}

func NewMove(dst, src Value) *Move {
	return &Move{Dst: dst, Src: src}
}

func NewLoad(dst, addr Value) *Move {
	return &Move{Kind: MoveLoad, Dst: dst, Src: addr}
}

func NewStore(addr, src Value) *Move {
	return &Move{Kind: MoveStore, Dst: addr, Src: src}
}

func NewCall(f *Func, args []Value) *Call {
	return &Call{base: base{typ: f.Ret}, F: f, Args: args}
}

func NewArg(x Value) *Arg {
	return &Arg{X: x}
}

var binNames = [...]string{"add", "sub", "mul", "div", "mod"}

func (op BinOp) String() string {
	if op < 0 || int(op) >= len(binNames) {
		return "bin?"
	}

	return binNames[op]
}
