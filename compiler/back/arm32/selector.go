package arm32

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/minic-lang/minic/compiler/ir"
	"github.com/minic-lang/minic/compiler/tp"
)

type (
	// Selector walks each function's linear IR and emits assembly.
	// Unsupported instructions are collected as diagnostics instead of
	// aborting, so one bad function does not hide the rest.
	Selector struct {
		mod *ir.Module

		// EmitIR interleaves the IR as comments with the assembly.
		EmitIR bool

		// Entry limits .global to one function; empty exports all.
		Entry string

		p  *ir.Printer
		f  *ir.Func
		ra *allocator
		tr tlog.Span

		fused *ir.Icmp
		args  int

		errs []error
	}
)

func New(m *ir.Module) *Selector {
	return &Selector{mod: m}
}

func (s *Selector) Run(ctx context.Context) (_ []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "select_instructions")
	defer tr.Finish("err", &err)

	s.tr = tr

	o := &out{}

	o.inst(".text")
	o.inst(".align\t2")

	for _, f := range s.mod.Funcs {
		s.selectFunc(o, f)
	}

	s.data(o)

	if len(s.errs) != 0 {
		return nil, errors.Wrap(s.errs[0], "%d diagnostics", len(s.errs))
	}

	return o.b, nil
}

func (s *Selector) selectFunc(o *out, f *ir.Func) {
	s.f = f
	s.ra = newAllocator(f)
	s.p = ir.NewPrinter()
	s.fused = nil
	s.args = 0

	layout(f)

	// the body is selected into its own buffer first: the prologue
	// depends on scratch register usage, known only afterwards
	body := &out{}

	for i, x := range f.Code {
		if s.EmitIR {
			if _, ok := x.(*ir.Entry); !ok {
				body.comment("%s", s.p.Inst(nil, x))
			}
		}

		s.instSafe(body, x, f.Code, i)
	}

	if s.Entry == "" || s.Entry == f.Name {
		o.inst(".global\t%s", f.Name)
	}

	s.prologue(o, f)

	o.b = append(o.b, body.b...)

	s.tr.V("select").Printw("selected function", "name", f.Name, "frame", f.Frame, "protected", f.Protected)
}

// instSafe keeps one bad instruction from taking the rest of the
// output down with it.
func (s *Selector) instSafe(o *out, x ir.Instr, code []ir.Instr, i int) {
	defer func() {
		if p := recover(); p != nil {
			s.err("select %T: %v", x, p)
		}
	}()

	s.inst(o, x, code, i)
}

func (s *Selector) inst(o *out, x ir.Instr, code []ir.Instr, i int) {
	switch x := x.(type) {
	case *ir.Entry:
		// emitted as the prologue
	case *ir.Label:
		o.label(x.Name)
	case *ir.Goto:
		if x.Target == nil {
			s.err("goto without a target")
			break
		}

		o.inst("b\t%s", x.Target.Name)
	case *ir.Icmp:
		var next ir.Instr
		if i+1 < len(code) {
			next = code[i+1]
		}

		s.icmp(o, x, next)
	case *ir.Bc:
		s.branch(o, x)
	case *ir.Binary:
		s.binary(o, x)
	case *ir.Move:
		s.move(o, x)
	case *ir.Arg:
		s.args++
	case *ir.Call:
		s.call(o, x)
	case *ir.Exit:
		s.exit(o, x)
	default:
		s.err("unsupported instruction: %T", x)
	}
}

func (s *Selector) icmp(o *out, x *ir.Icmp, next ir.Instr) {
	rl := s.load(o, x.L)
	s.cmp(o, rl, x.R)

	if bc, ok := next.(*ir.Bc); ok && bc.Cond == ir.Value(x) {
		// the branch consumes the flags directly
		s.fused = x

		s.ra.freeValue(x.L)
		s.ra.freeValue(x.R)

		return
	}

	rd := s.ra.alloc(x)

	o.inst("mov\t%s, #0", regName(rd))
	o.inst("mov%s\t%s, #1", x.Cond, regName(rd))

	s.store(o, rd, x)

	s.ra.freeValue(x.L)
	s.ra.freeValue(x.R)
	s.ra.freeValue(x)
}

func (s *Selector) cmp(o *out, rl int, r ir.Value) {
	if c, ok := r.(*ir.ConstInt); ok && immOK(c.V) {
		o.inst("cmp\t%s, #%d", regName(rl), c.V)
		return
	}

	rr := s.load(o, r)
	o.inst("cmp\t%s, %s", regName(rl), regName(rr))
}

func (s *Selector) branch(o *out, x *ir.Bc) {
	if x.True == nil || x.False == nil {
		s.err("branch without targets")
		return
	}

	if s.fused != nil && x.Cond == ir.Value(s.fused) {
		o.inst("b%s\t%s", s.fused.Cond, x.True.Name)
		o.inst("b\t%s", x.False.Name)

		s.fused = nil

		return
	}

	s.fused = nil

	r := s.load(o, x.Cond)

	o.inst("cmp\t%s, #0", regName(r))
	o.inst("bne\t%s", x.True.Name)
	o.inst("b\t%s", x.False.Name)

	s.ra.freeValue(x.Cond)
}

func (s *Selector) binary(o *out, x *ir.Binary) {
	if c, ok := x.L.(*ir.ConstInt); ok && c.V == 0 && x.Op == ir.BinSub {
		rr := s.load(o, x.R)
		rd := s.ra.alloc(x)

		o.inst("rsb\t%s, %s, #0", regName(rd), regName(rr))

		s.store(o, rd, x)

		s.ra.freeValue(x.R)
		s.ra.freeValue(x)

		return
	}

	rl := s.load(o, x.L)

	if x.Op == ir.BinAdd || x.Op == ir.BinSub {
		if c, ok := x.R.(*ir.ConstInt); ok && immOK(c.V) {
			rd := s.ra.alloc(x)

			o.inst("%v\t%s, %s, #%d", x.Op, regName(rd), regName(rl), c.V)

			s.store(o, rd, x)

			s.ra.freeValue(x.L)
			s.ra.freeValue(x)

			return
		}
	}

	rr := s.load(o, x.R)

	var rd int

	switch x.Op {
	case ir.BinAdd, ir.BinSub, ir.BinMul:
		rd = s.ra.alloc(x)
		o.inst("%v\t%s, %s, %s", x.Op, regName(rd), regName(rl), regName(rr))
	case ir.BinDiv:
		rd = s.ra.alloc(x)
		o.inst("sdiv\t%s, %s, %s", regName(rd), regName(rl), regName(rr))
	case ir.BinMod:
		// l - l/r*r
		rq := s.ra.alloc(nil)
		rm := s.ra.alloc(nil)
		rd = s.ra.alloc(x)

		o.inst("sdiv\t%s, %s, %s", regName(rq), regName(rl), regName(rr))
		o.inst("mul\t%s, %s, %s", regName(rm), regName(rq), regName(rr))
		o.inst("sub\t%s, %s, %s", regName(rd), regName(rl), regName(rm))

		s.ra.freeReg(rq)
		s.ra.freeReg(rm)
	default:
		s.err("unsupported binary op: %v", x.Op)
		return
	}

	s.store(o, rd, x)

	s.ra.freeValue(x.L)
	s.ra.freeValue(x.R)
	s.ra.freeValue(x)
}

func (s *Selector) move(o *out, x *ir.Move) {
	switch x.Kind {
	case ir.MoveSimple:
		r := s.load(o, x.Src)
		s.store(o, r, x.Dst)

		s.ra.freeValue(x.Src)
	case ir.MoveLoad:
		ra := s.load(o, x.Src)
		rd := s.ra.alloc(x.Dst)

		o.inst("ldr\t%s, [%s]", regName(rd), regName(ra))

		s.store(o, rd, x.Dst)

		s.ra.freeValue(x.Src)
		s.ra.freeValue(x.Dst)
	case ir.MoveStore:
		ra := s.load(o, x.Dst)
		rv := s.load(o, x.Src)

		o.inst("str\t%s, [%s]", regName(rv), regName(ra))

		s.ra.freeValue(x.Dst)
		s.ra.freeValue(x.Src)
	default:
		s.err("unsupported move kind: %v", x.Kind)
	}
}

func (s *Selector) call(o *out, x *ir.Call) {
	if s.args != len(x.Args) {
		s.tr.Printw("call argument mismatch", "func", x.F.Name, "marshaled", s.args, "expected", len(x.Args))
	}

	s.args = 0

	// stack arguments go below the frame, the callee sees them above
	// its saved registers
	for i := 4; i < len(x.Args); i++ {
		slot := ir.NewMem(x.Args[i].Type(), regSP, wordSize*(i-4))

		r := s.load(o, x.Args[i])
		s.store(o, r, slot)

		s.ra.freeValue(x.Args[i])
	}

	n := len(x.Args)
	if n > 4 {
		n = 4
	}

	for i := 0; i < n; i++ {
		s.ra.allocReg(i, ir.NewRegVal(regName(i), i))
		s.emitLoad(o, i, x.Args[i])
	}

	o.inst("bl\t%s", x.F.Name)

	for i := 0; i < n; i++ {
		s.ra.freeReg(i)
	}

	if !tp.IsVoid(x.F.Ret) {
		s.store(o, 0, x)
	}
}

func (s *Selector) exit(o *out, x *ir.Exit) {
	if x.Ret != nil {
		s.emitLoad(o, 0, x.Ret)
	}

	o.inst("mov\tsp, fp")
	o.inst("pop\t{%s}", s.saveList())
	o.inst("bx\tlr")
}

func (s *Selector) prologue(o *out, f *ir.Func) {
	o.label(f.Name)

	o.inst("push\t{%s}", s.saveList())
	o.inst("mov\tfp, sp")

	if f.Frame != 0 {
		if immOK(int32(f.Frame)) {
			o.inst("sub\tsp, sp, #%d", f.Frame)
		} else {
			o.inst("ldr\t%s, =%d", regName(regTmp), f.Frame)
			o.inst("sub\tsp, sp, %s", regName(regTmp))
		}
	}

	pushed := wordSize * (f.Protected.Size() + 2) // saved regs + fp + lr

	for i, p := range f.Params {
		_, off, _ := p.MemAddr()

		if i < 4 {
			o.inst("str\t%s, %s", regName(i), s.addr(o, regFP, off))
			continue
		}

		o.inst("ldr\t%s, %s", regName(regTmp2), s.addr(o, regFP, pushed+wordSize*(i-4)))
		o.inst("str\t%s, %s", regName(regTmp2), s.addr(o, regFP, off))
	}
}

func (s *Selector) saveList() string {
	var b []byte

	s.f.Protected.Range(func(r int) bool {
		b = hfmt.Appendf(b, "%s, ", regName(r))
		return true
	})

	b = append(b, "fp, lr"...)

	return string(b)
}

func (s *Selector) data(o *out) {
	if len(s.mod.Globals) == 0 {
		return
	}

	o.inst(".data")
	o.inst(".align\t2")

	for _, g := range s.mod.Globals {
		o.label(g.Name)

		if tp.IsArray(g.Type()) {
			o.inst(".space\t%d", g.Type().Size())
			continue
		}

		o.inst(".word\t%d", g.Init)
	}
}

func (s *Selector) err(f string, args ...any) {
	e := errors.New(f, args...)

	s.errs = append(s.errs, e)
	s.tr.Printw("selection diagnostic", "func", s.f.Name, "err", e, "from", loc.Callers(1, 2))
}
