package ir

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/minic-lang/minic/compiler/tp"
)

type (
	// Printer renders IR as text. The text form is a debugging aid
	// (and asm comments), not a load-bearing format.
	Printer struct {
		names map[Value]string
		n     int
	}
)

func NewPrinter() *Printer {
	return &Printer{names: make(map[Value]string)}
}

func (p *Printer) Name(v Value) string {
	switch v := v.(type) {
	case nil:
		return "<nil>"
	case *ConstInt:
		return hf("%d", v.V)
	case *Global:
		return "@" + v.Name
	case *Param:
		return "%" + v.Name
	case *RegVal:
		return v.Name
	case *Local:
		if v.Name != "" {
			return "%" + v.Name
		}
	case *Label:
		return v.Name
	}

	if n, ok := p.names[v]; ok {
		return n
	}

	n := hf("%%t%d", p.n)
	p.n++
	p.names[v] = n

	return n
}

func (p *Printer) Inst(b []byte, x Instr) []byte {
	switch x := x.(type) {
	case *Entry:
		b = append(b, "entry"...)
	case *Exit:
		if x.Ret != nil {
			b = hfmt.Appendf(b, "exit %s", p.Name(x.Ret))
		} else {
			b = append(b, "exit"...)
		}
	case *Label:
		b = hfmt.Appendf(b, "%s:", x.Name)
	case *Goto:
		b = hfmt.Appendf(b, "br %s", x.Target.Name)
	case *Bc:
		b = hfmt.Appendf(b, "bc %s, %s, %s", p.Name(x.Cond), x.True.Name, x.False.Name)
	case *Binary:
		b = hfmt.Appendf(b, "%s = %v %s, %s", p.Name(x), x.Op, p.Name(x.L), p.Name(x.R))
	case *Icmp:
		b = hfmt.Appendf(b, "%s = icmp %s %s, %s", p.Name(x), x.Cond, p.Name(x.L), p.Name(x.R))
	case *Move:
		switch x.Kind {
		case MoveLoad:
			b = hfmt.Appendf(b, "%s = *%s", p.Name(x.Dst), p.Name(x.Src))
		case MoveStore:
			b = hfmt.Appendf(b, "*%s = %s", p.Name(x.Dst), p.Name(x.Src))
		default:
			b = hfmt.Appendf(b, "%s = %s", p.Name(x.Dst), p.Name(x.Src))
		}
	case *Call:
		if x.F.Ret != nil && !tp.IsVoid(x.F.Ret) {
			b = hfmt.Appendf(b, "%s = call %s(", p.Name(x), x.F.Name)
		} else {
			b = hfmt.Appendf(b, "call %s(", x.F.Name)
		}

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = append(b, p.Name(a)...)
		}

		b = append(b, ')')
	case *Arg:
		b = hfmt.Appendf(b, "arg %s", p.Name(x.X))
	default:
		b = hfmt.Appendf(b, "instr %T", x)
	}

	return b
}

func (p *Printer) Func(b []byte, f *Func) []byte {
	b = hfmt.Appendf(b, "func %s(", f.Name)

	for i, a := range f.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = append(b, p.Name(a)...)
	}

	b = append(b, ")\n"...)

	for _, x := range f.Code {
		if _, ok := x.(*Label); !ok {
			b = append(b, '\t')
		}

		b = p.Inst(b, x)
		b = append(b, '\n')
	}

	return b
}

func hf(f string, args ...any) string {
	return string(hfmt.Appendf(nil, f, args...))
}
