package arm32

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/minic-lang/minic/compiler/ir"
	"github.com/minic-lang/minic/compiler/tp"
)

// out accumulates assembly text.
type out struct {
	b []byte
}

func (o *out) inst(f string, args ...any) {
	o.b = append(o.b, '\t')
	o.b = hfmt.Appendf(o.b, f, args...)
	o.b = append(o.b, '\n')
}

func (o *out) label(name string) {
	o.b = append(o.b, name...)
	o.b = append(o.b, ':', '\n')
}

func (o *out) comment(f string, args ...any) {
	o.b = append(o.b, '\t', '@', ' ')
	o.b = hfmt.Appendf(o.b, f, args...)
	o.b = append(o.b, '\n')
}

// load brings v into some register, allocating one unless the value is
// already loaded.
func (s *Selector) load(o *out, v ir.Value) int {
	if r := v.RegID(); r >= 0 {
		return r
	}

	r := s.ra.alloc(v)
	s.emitLoad(o, r, v)

	return r
}

func (s *Selector) emitLoad(o *out, rd int, v ir.Value) {
	if c, ok := v.(*ir.ConstInt); ok {
		s.loadImm(o, rd, c.V)
		return
	}

	if g, ok := v.(*ir.Global); ok {
		o.inst("ldr\t%s, =%s", regName(rd), g.Name)

		if !tp.IsArray(g.Type()) {
			o.inst("ldr\t%s, [%s]", regName(rd), regName(rd))
		}

		return
	}

	_, isParam := v.(*ir.Param)

	base, off, ok := v.MemAddr()
	if !ok {
		s.err("value has no location: %T", v)
		return
	}

	// a local array evaluates to its base address; an array parameter
	// is a decayed pointer, its slot already holds the address
	if tp.IsArray(v.Type()) && !isParam {
		if immOK(int32(-off)) {
			o.inst("sub\t%s, %s, #%d", regName(rd), regName(base), -off)
		} else {
			o.inst("ldr\t%s, =%d", regName(regTmp), off)
			o.inst("add\t%s, %s, %s", regName(rd), regName(base), regName(regTmp))
		}

		return
	}

	o.inst("ldr\t%s, %s", regName(rd), s.addr(o, base, off))
}

func (s *Selector) loadImm(o *out, rd int, v int32) {
	switch {
	case immOK(v):
		o.inst("mov\t%s, #%d", regName(rd), v)
	case immOK(^v):
		o.inst("mvn\t%s, #%d", regName(rd), ^v)
	default:
		o.inst("ldr\t%s, =%d", regName(rd), v)
	}
}

func (s *Selector) store(o *out, r int, v ir.Value) {
	if g, ok := v.(*ir.Global); ok {
		o.inst("ldr\t%s, =%s", regName(regTmp), g.Name)
		o.inst("str\t%s, [%s]", regName(r), regName(regTmp))

		return
	}

	base, off, ok := v.MemAddr()
	if !ok {
		s.err("value has no location: %T", v)
		return
	}

	o.inst("str\t%s, %s", regName(r), s.addr(o, base, off))
}

// addr renders a base+offset operand, spilling the offset through the
// scratch register when it does not fit the ldr/str encoding.
func (s *Selector) addr(o *out, base, off int) string {
	if off == 0 {
		return hf("[%s]", regName(base))
	}

	if off >= -maxMemOff && off <= maxMemOff {
		return hf("[%s, #%d]", regName(base), off)
	}

	o.inst("ldr\t%s, =%d", regName(regTmp), off)
	o.inst("add\t%s, %s, %s", regName(regTmp), regName(base), regName(regTmp))

	return hf("[%s]", regName(regTmp))
}

func hf(f string, args ...any) string {
	return string(hfmt.Appendf(nil, f, args...))
}
