// Package arm32 selects ARM32 instructions for the linear IR and does
// trivial register allocation. Every value lives in a stack slot;
// registers only hold operands for the duration of one instruction.
package arm32

import (
	"math/bits"
)

// Calling convention: the first four integer arguments go in r0-r3,
// the rest are pushed on the stack left to right at [sp], [sp, #4] and
// so on. The result comes back in r0.
const (
	// registers the allocator may hand out
	numAlloc = 9 // r0-r8

	// r4-r8 must be saved by the callee if used
	firstCalleeSaved = 4

	regTmp  = 10 // scratch for address fixups, never allocated
	regTmp2 = 9  // holds the value while addr may claim regTmp
	regFP   = 11
	regSP  = 13
	regLR  = 14

	// ldr/str immediate offset limit
	maxMemOff = 4095

	wordSize = 4
)

var regNames = [...]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "fp", "r12", "sp", "lr", "pc",
}

func regName(r int) string {
	if r < 0 || r >= len(regNames) {
		return "r?"
	}

	return regNames[r]
}

// immOK reports whether v is encodable as an operand2 immediate: an
// 8-bit value rotated right by an even amount.
func immOK(v int32) bool {
	u := uint32(v)

	for r := 0; r < 32; r += 2 {
		if bits.RotateLeft32(u, r) <= 0xff {
			return true
		}
	}

	return false
}
