package arm32

import (
	"nikand.dev/go/heap"

	"github.com/minic-lang/minic/compiler/ir"
)

// allocator hands out scratch registers, lowest number first, and
// remembers which value sits in which register so a value loaded twice
// within one instruction reuses the same register.
type allocator struct {
	free  heap.Heap[int]
	owner map[int]ir.Value

	f *ir.Func
}

func newAllocator(f *ir.Func) *allocator {
	a := &allocator{
		free:  heap.Heap[int]{Less: regLess},
		owner: make(map[int]ir.Value),
		f:     f,
	}

	for r := 0; r < numAlloc; r++ {
		a.free.Push(r)
	}

	return a
}

func regLess(d []int, i, j int) bool { return d[i] < d[j] }

func (a *allocator) alloc(v ir.Value) int {
	if a.free.Len() == 0 {
		panic("out of registers")
	}

	r := a.free.Pop()
	a.take(r, v)

	return r
}

// allocReg pins a specific register. It must be free: values are
// spilled after every instruction, so nothing is live at pin sites.
func (a *allocator) allocReg(r int, v ir.Value) {
	var rest []int
	found := false

	for a.free.Len() != 0 {
		x := a.free.Pop()
		if x == r {
			found = true
			break
		}

		rest = append(rest, x)
	}

	for _, x := range rest {
		a.free.Push(x)
	}

	if !found {
		panic("register is busy")
	}

	a.take(r, v)
}

func (a *allocator) take(r int, v ir.Value) {
	a.owner[r] = v

	if v != nil {
		v.SetRegID(r)
	}

	if r >= firstCalleeSaved {
		a.f.Protect(r)
	}
}

func (a *allocator) freeReg(r int) {
	if v := a.owner[r]; v != nil {
		v.DropReg()
	}

	delete(a.owner, r)
	a.free.Push(r)
}

func (a *allocator) freeValue(v ir.Value) {
	if v == nil {
		return
	}

	if r := v.RegID(); r >= 0 {
		a.freeReg(r)
	}
}
