package gen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minic-lang/minic/compiler/front"
	"github.com/minic-lang/minic/compiler/ir"
	"github.com/minic-lang/minic/compiler/tp"
)

// machine is a tiny IR interpreter used to check lowering semantics.
// Scalars live in per-call environments, arrays in a flat word-indexed
// memory so address arithmetic behaves like on the target.
type machine struct {
	mod *ir.Module

	mem  []int32
	brk  int32 // bump allocator
	genv map[*ir.Global]int32
}

func newMachine(m *ir.Module) *machine {
	mm := &machine{
		mod:  m,
		mem:  make([]int32, 1<<16),
		brk:  4,
		genv: make(map[*ir.Global]int32),
	}

	for _, g := range m.Globals {
		if tp.IsArray(g.Type()) {
			mm.genv[g] = mm.alloc(g.Type().Size())
			continue
		}

		mm.genv[g] = g.Init
	}

	return mm
}

func (m *machine) alloc(size int) int32 {
	a := m.brk
	m.brk += int32(size)

	return a
}

func (m *machine) global(name string) int32 {
	for _, g := range m.mod.Globals {
		if g.Name == name {
			return m.genv[g]
		}
	}

	panic("no global " + name)
}

func (m *machine) call(f *ir.Func, args []int32) int32 {
	env := make(map[ir.Value]int32)

	for i, p := range f.Params {
		env[p] = args[i]
	}

	for _, l := range f.Locals {
		if tp.IsArray(l.Type()) {
			env[l] = m.alloc(l.Type().Size())
		}
	}

	labels := make(map[*ir.Label]int)

	for i, x := range f.Code {
		if l, ok := x.(*ir.Label); ok {
			labels[l] = i
		}
	}

	i := 0

	for i < len(f.Code) {
		switch x := f.Code[i].(type) {
		case *ir.Entry, *ir.Label, *ir.Arg:
		case *ir.Goto:
			i = labels[x.Target]
			continue
		case *ir.Bc:
			if m.val(env, x.Cond) != 0 {
				i = labels[x.True]
			} else {
				i = labels[x.False]
			}

			continue
		case *ir.Move:
			switch x.Kind {
			case ir.MoveSimple:
				m.set(env, x.Dst, m.val(env, x.Src))
			case ir.MoveLoad:
				m.set(env, x.Dst, m.mem[m.val(env, x.Src)/4])
			case ir.MoveStore:
				m.mem[m.val(env, x.Dst)/4] = m.val(env, x.Src)
			}
		case *ir.Binary:
			l, r := m.val(env, x.L), m.val(env, x.R)

			switch x.Op {
			case ir.BinAdd:
				env[x] = l + r
			case ir.BinSub:
				env[x] = l - r
			case ir.BinMul:
				env[x] = l * r
			case ir.BinDiv:
				env[x] = l / r
			case ir.BinMod:
				env[x] = l % r
			}
		case *ir.Icmp:
			l, r := m.val(env, x.L), m.val(env, x.R)

			res := false

			switch x.Cond {
			case ir.CondLT:
				res = l < r
			case ir.CondLE:
				res = l <= r
			case ir.CondGT:
				res = l > r
			case ir.CondGE:
				res = l >= r
			case ir.CondEQ:
				res = l == r
			case ir.CondNE:
				res = l != r
			}

			if res {
				env[x] = 1
			} else {
				env[x] = 0
			}
		case *ir.Call:
			sub := make([]int32, len(x.Args))

			for j, a := range x.Args {
				sub[j] = m.val(env, a)
			}

			env[x] = m.call(x.F, sub)
		case *ir.Exit:
			if x.Ret != nil {
				return m.val(env, x.Ret)
			}

			return 0
		}

		i++
	}

	return 0
}

func (m *machine) val(env map[ir.Value]int32, v ir.Value) int32 {
	switch v := v.(type) {
	case *ir.ConstInt:
		return v.V
	case *ir.Global:
		return m.genv[v]
	}

	return env[v]
}

func (m *machine) set(env map[ir.Value]int32, v ir.Value, x int32) {
	if g, ok := v.(*ir.Global); ok {
		m.genv[g] = x
		return
	}

	env[v] = x
}

func lowerT(t *testing.T, src string) *ir.Module {
	t.Helper()

	x, err := front.Parse(context.Background(), "test.mc", []byte(src))
	require.NoError(t, err)

	m := ir.NewModule()

	err = Generate(context.Background(), m, x)
	require.NoError(t, err)

	return m
}

func run(t *testing.T, src, fn string, args ...int32) int32 {
	t.Helper()

	m := lowerT(t, src)

	f := m.FindFunc(fn)
	require.NotNil(t, f, "function %v", fn)

	return newMachine(m).call(f, args)
}

func TestArith(t *testing.T) {
	const src = `
int div(int a, int b) { return a / b; }
int mod(int a, int b) { return a % b; }
int comb(int a, int b) { return a / b * b + a % b; }
`

	require.Equal(t, int32(-3), run(t, src, "div", 7, -2))
	require.Equal(t, int32(1), run(t, src, "mod", 7, -2))
	require.Equal(t, int32(-1), run(t, src, "mod", -7, 2))

	for _, a := range []int32{7, -7, 13, 0} {
		for _, b := range []int32{2, -2, 5} {
			require.Equal(t, a, run(t, src, "comb", a, b), "a=%d b=%d", a, b)
		}
	}
}

func TestNegNot(t *testing.T) {
	const src = `
int f(int a) { return -(!a) + !!a; }
int g(int a) { return -a; }
`

	require.Equal(t, int32(-1), run(t, src, "f", 0))
	require.Equal(t, int32(1), run(t, src, "f", 5))
	require.Equal(t, int32(-3), run(t, src, "g", 3))
	require.Equal(t, int32(3), run(t, src, "g", -3))
}

func TestShortCircuit(t *testing.T) {
	const src = `
int g;

int set(int v) { g = v; return v; }

int and(int a) { return a != 0 && set(1) != 0; }
int or(int a) { return a != 0 || set(2) != 0; }
`

	m := lowerT(t, src)
	mm := newMachine(m)

	require.Equal(t, int32(0), mm.call(m.FindFunc("and"), []int32{0}))
	require.Equal(t, int32(0), mm.global("g"), "right operand evaluated")

	require.Equal(t, int32(1), mm.call(m.FindFunc("and"), []int32{3}))
	require.Equal(t, int32(1), mm.global("g"))

	require.Equal(t, int32(1), mm.call(m.FindFunc("or"), []int32{3}))
	require.Equal(t, int32(1), mm.global("g"), "right operand evaluated")

	require.Equal(t, int32(1), mm.call(m.FindFunc("or"), []int32{0}))
	require.Equal(t, int32(2), mm.global("g"))
}

func TestLoops(t *testing.T) {
	const src = `
int f(int n) {
	int i = 0, s = 0;

	while (i < n) {
		i = i + 1;

		if (i % 2 == 0)
			continue;
		if (i > 7)
			break;

		s = s + i;
	}

	return s;
}

int nested() {
	int i = 0, s = 0;

	while (i < 3) {
		int j = 0;

		while (1) {
			j = j + 1;
			if (j == 2)
				break;
		}

		s = s + j;
		i = i + 1;
	}

	return s;
}
`

	require.Equal(t, int32(16), run(t, src, "f", 10)) // 1+3+5+7
	require.Equal(t, int32(6), run(t, src, "nested"))
}

func TestImplicitReturnZero(t *testing.T) {
	const src = `
int f(int a) { a = a + 1; }
`

	require.Equal(t, int32(0), run(t, src, "f", 41))
}

func TestParamOverride(t *testing.T) {
	const src = `
int f(int x, int y) {
	x = x + y;
	x = x * 2;
	return x;
}
`

	m := lowerT(t, src)

	f := m.FindFunc("f")
	require.NotNil(t, f.FindOverride("x"))
	require.Nil(t, f.FindOverride("y"))
	require.Len(t, f.Params, 2)

	require.Equal(t, int32(14), newMachine(m).call(f, []int32{3, 4}))
}

func TestArrayAddressing(t *testing.T) {
	const src = `
int f(int i, int j) {
	int a[3][4];
	int x, y;

	x = 0;
	while (x < 3) {
		y = 0;
		while (y < 4) {
			a[x][y] = x * 10 + y;
			y = y + 1;
		}
		x = x + 1;
	}

	return a[i][j];
}
`

	for i := int32(0); i < 3; i++ {
		for j := int32(0); j < 4; j++ {
			require.Equal(t, i*10+j, run(t, src, "f", i, j), "i=%d j=%d", i, j)
		}
	}
}

func TestArrayParam(t *testing.T) {
	const src = `
int sum(int a[], int n) {
	int i = 0, s = 0;

	while (i < n) {
		s = s + a[i];
		i = i + 1;
	}

	return s;
}

int f() {
	int b[4];

	b[0] = 1;
	b[1] = 2;
	b[2] = 3;
	b[3] = 4;

	return sum(b, 4);
}
`

	require.Equal(t, int32(10), run(t, src, "f"))
}

func TestGlobalArray(t *testing.T) {
	const src = `
int g[2][2];

int f() {
	g[1][1] = 5;
	g[0][1] = 2;

	return g[1][1] - g[0][1] + g[0][0];
}
`

	require.Equal(t, int32(3), run(t, src, "f"))
}

func TestRecursion(t *testing.T) {
	const src = `
int fib(int n) {
	if (n < 2)
		return n;

	return fib(n - 1) + fib(n - 2);
}
`

	require.Equal(t, int32(55), run(t, src, "fib", 10))
}

func TestCallThroughShadowedName(t *testing.T) {
	const src = `
int f() {
	int g;

	g = 7;

	return g();
}

int g() { return 1; }
`

	require.Equal(t, int32(7), run(t, src, "f"))
}

func TestManyArgs(t *testing.T) {
	const src = `
int f(int a, int b, int c, int d, int e, int g) {
	return a + 10*b + 100*c + 1000*d + 10000*e + 100000*g;
}

int main() {
	return f(1, 2, 3, 4, 5, 6);
}
`

	m := lowerT(t, src)

	require.Equal(t, int32(654321), newMachine(m).call(m.FindFunc("main"), nil))
	require.Equal(t, 6, m.FindFunc("main").MaxCallArgs)
	require.True(t, m.FindFunc("main").HasCall)
}
