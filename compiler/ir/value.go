package ir

import (
	"github.com/minic-lang/minic/compiler/tp"
)

type (
	// Value is anything an instruction can reference: constants,
	// variables, formal parameters and instructions themselves (their
	// own result). Placement is attached by the back end: a register
	// id, or a (base register, offset) memory address.
	Value interface {
		Type() tp.Type

		RegID() int // -1 means not in a register
		SetRegID(r int)
		DropReg()

		MemAddr() (base, off int, ok bool)
		SetMemAddr(base, off int)
	}

	// Storage is the placement state shared by all values.
	Storage struct {
		reg  int // register id + 1; 0 means in memory
		base int
		off  int
		mem  bool
	}

	ConstInt struct {
		Storage

		V int32
	}

	Local struct {
		Storage

		Name string // empty for temporaries
		typ  tp.Type
	}

	Global struct {
		Storage

		Name string
		Init int32 // initial value; arrays are always zeroed
		typ  tp.Type
	}

	Param struct {
		Storage

		Name  string
		Index int
		typ   tp.Type
	}

	// Mem is a synthetic stack slot created by the selector for
	// stack-passed call arguments.
	Mem struct {
		Storage

		typ tp.Type
	}

	// RegVal is a fixed machine register (argument or return register).
	RegVal struct {
		Storage

		Name string
	}
)

func (s *Storage) RegID() int     { return s.reg - 1 }
func (s *Storage) SetRegID(r int) { s.reg = r + 1 }
func (s *Storage) DropReg()       { s.reg = 0 }

func (s *Storage) MemAddr() (base, off int, ok bool) {
	return s.base, s.off, s.mem
}

func (s *Storage) SetMemAddr(base, off int) {
	s.base, s.off, s.mem = base, off, true
}

func (x *ConstInt) Type() tp.Type { return tp.Int{} }
func (x *Local) Type() tp.Type    { return x.typ }
func (x *Global) Type() tp.Type   { return x.typ }
func (x *Param) Type() tp.Type    { return x.typ }
func (x *Mem) Type() tp.Type      { return x.typ }
func (x *RegVal) Type() tp.Type   { return tp.Int{} }

func NewParam(name string, index int, typ tp.Type) *Param {
	return &Param{Name: name, Index: index, typ: typ}
}

func NewMem(typ tp.Type, base, off int) *Mem {
	m := &Mem{typ: typ}
	m.SetMemAddr(base, off)

	return m
}

func NewRegVal(name string, reg int) *RegVal {
	v := &RegVal{Name: name}
	v.SetRegID(reg)

	return v
}
