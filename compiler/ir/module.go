package ir

import (
	"fmt"

	"github.com/minic-lang/minic/compiler/set"
	"github.com/minic-lang/minic/compiler/tp"
)

type (
	// Module is the symbol table and function registry for one
	// compilation unit. It also owns the label counter, so label names
	// are unique across the whole unit.
	Module struct {
		Funcs   []*Func
		Globals []*Global

		funcs  map[string]*Func
		scopes []map[string]Value

		cur *Func

		labels int
	}

	Func struct {
		Name string
		Ret  tp.Type

		Params []*Param
		Locals []*Local

		Code []Instr

		// RetVal is the designated return-value slot; return
		// statements move into it and jump to ExitLabel.
		RetVal    *Local
		ExitLabel *Label

		// MaxCallArgs is the largest outgoing call argument count,
		// which drives the stack space reserved for argument passing.
		MaxCallArgs int

		// Protected registers were used as scratch by the selector and
		// must be saved across the function boundary.
		Protected set.Bits[int]

		// Frame is the stack frame size in bytes, set by the back end.
		Frame int

		HasCall bool

		overrides map[string]*Local
	}
)

func NewModule() *Module {
	return &Module{
		funcs:  make(map[string]*Func),
		scopes: []map[string]Value{make(map[string]Value)},
	}
}

func (m *Module) EnterScope() {
	m.scopes = append(m.scopes, make(map[string]Value))
}

func (m *Module) LeaveScope() {
	if len(m.scopes) == 1 {
		panic("leaving global scope")
	}

	m.scopes = m.scopes[:len(m.scopes)-1]
}

// FindVar looks a name up from the innermost scope outward.
func (m *Module) FindVar(name string) Value {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		if v, ok := m.scopes[i][name]; ok {
			return v
		}
	}

	return nil
}

// FindVarInScope only checks the innermost scope, for redefinition
// checks.
func (m *Module) FindVarInScope(name string) Value {
	return m.scopes[len(m.scopes)-1][name]
}

func (m *Module) Insert(name string, v Value) {
	m.scopes[len(m.scopes)-1][name] = v
}

// NewVar creates a named variable in the current scope: a Global at
// unit level, a Local inside a function.
func (m *Module) NewVar(typ tp.Type, name string) Value {
	if m.cur == nil || len(m.scopes) == 1 {
		g := &Global{Name: name, typ: typ}

		m.Globals = append(m.Globals, g)
		m.Insert(name, g)

		return g
	}

	l := &Local{Name: name, typ: typ}
	m.cur.Locals = append(m.cur.Locals, l)
	m.Insert(name, l)

	return l
}

// NewTemp creates an unnamed function-local temporary.
func (m *Module) NewTemp(typ tp.Type) *Local {
	if m.cur == nil {
		panic("temp outside of a function")
	}

	l := &Local{typ: typ}
	m.cur.Locals = append(m.cur.Locals, l)

	return l
}

func (m *Module) NewConstInt(v int32) *ConstInt {
	return &ConstInt{V: v}
}

// NewFunc registers a function; nil means the name is already taken.
func (m *Module) NewFunc(name string, ret tp.Type) *Func {
	if _, ok := m.funcs[name]; ok {
		return nil
	}

	f := &Func{
		Name:      name,
		Ret:       ret,
		overrides: make(map[string]*Local),
	}

	m.funcs[name] = f
	m.Funcs = append(m.Funcs, f)

	return f
}

func (m *Module) FindFunc(name string) *Func {
	return m.funcs[name]
}

func (m *Module) CurFunc() *Func     { return m.cur }
func (m *Module) SetCurFunc(f *Func) { m.cur = f }

// NewLabel allocates the next unit-unique label.
func (m *Module) NewLabel() *Label {
	l := &Label{Name: fmt.Sprintf("L%d", m.labels)}
	m.labels++

	return l
}

// ResetLabels is for tests that need reproducible label names.
func (m *Module) ResetLabels() { m.labels = 0 }

func (f *Func) Add(in ...Instr) {
	f.Code = append(f.Code, in...)
}

func (f *Func) Protect(reg int) {
	f.Protected.Set(reg)
}

// Override returns the shadow local standing in for a reassigned
// parameter, creating it on first use.
func (f *Func) Override(name string, typ tp.Type) (_ *Local, created bool) {
	if l, ok := f.overrides[name]; ok {
		return l, false
	}

	l := &Local{Name: name, typ: typ}

	f.Locals = append(f.Locals, l)
	f.overrides[name] = l

	return l, true
}

func (f *Func) FindOverride(name string) *Local {
	return f.overrides[name]
}
