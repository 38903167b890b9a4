package arm32

import (
	"github.com/minic-lang/minic/compiler/ir"
	"github.com/minic-lang/minic/compiler/tp"
)

// layout assigns a frame slot to every parameter, local and
// instruction result, all at negative offsets from fp. The bottom of
// the frame, at [sp] and up, is reserved for outgoing stack arguments.
//
// Incoming register arguments are stored to their slots by the
// prologue, so the body treats parameters like any other local.
func layout(f *ir.Func) {
	off := 0

	slot := func(v ir.Value, size int) {
		off += size
		v.SetMemAddr(regFP, -off)
	}

	for _, p := range f.Params {
		slot(p, wordSize)
	}

	for _, l := range f.Locals {
		slot(l, l.Type().Size())
	}

	for _, x := range f.Code {
		switch x := x.(type) {
		case *ir.Binary, *ir.Icmp:
			slot(x, wordSize)
		case *ir.Call:
			if !tp.IsVoid(x.F.Ret) {
				slot(x, wordSize)
			}
		}
	}

	args := 0
	if f.MaxCallArgs > 4 {
		args = wordSize * (f.MaxCallArgs - 4)
	}

	f.Frame = align(off+args, 8)
}

func align(x, to int) int {
	return (x + to - 1) / to * to
}
