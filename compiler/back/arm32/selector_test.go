package arm32

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minic-lang/minic/compiler/front"
	"github.com/minic-lang/minic/compiler/gen"
	"github.com/minic-lang/minic/compiler/ir"
	"github.com/minic-lang/minic/compiler/tp"
)

func compileT(t *testing.T, src string) (*ir.Module, string) {
	t.Helper()

	ctx := context.Background()

	x, err := front.Parse(ctx, "test.mc", []byte(src))
	require.NoError(t, err)

	m := ir.NewModule()

	err = gen.Generate(ctx, m, x)
	require.NoError(t, err)

	b, err := New(m).Run(ctx)
	require.NoError(t, err)

	return m, string(b)
}

func TestSmoke(t *testing.T) {
	_, asm := compileT(t, `
int main() {
	int a;

	a = 3 + 4 * 2;

	return a;
}
`)

	for _, sub := range []string{
		".text",
		".global\tmain",
		"main:",
		"push\t{fp, lr}",
		"mov\tfp, sp",
		"mul\t",
		"mov\tsp, fp",
		"pop\t{fp, lr}",
		"bx\tlr",
	} {
		assert.Contains(t, asm, sub)
	}

	t.Logf("asm:\n%s", asm)
}

func TestCallConvention(t *testing.T) {
	m, asm := compileT(t, `
int f(int a, int b, int c, int d, int e, int g) {
	return a + b + c + d + e + g;
}

int main() {
	return f(1, 2, 3, 4, 5, 6);
}
`)

	// first four arguments in r0-r3
	assert.Contains(t, asm, "mov\tr0, #1")
	assert.Contains(t, asm, "mov\tr1, #2")
	assert.Contains(t, asm, "mov\tr2, #3")
	assert.Contains(t, asm, "mov\tr3, #4")

	// the rest on the stack
	assert.Contains(t, asm, "str\tr0, [sp]")
	assert.Contains(t, asm, "str\tr0, [sp, #4]")

	assert.Contains(t, asm, "bl\tf")

	// callee stores register args and picks stack args up above the
	// saved registers
	f := m.FindFunc("f")
	pushed := 4 * (f.Protected.Size() + 2)

	assert.Contains(t, asm, "str\tr0, [fp, #-4]")
	assert.Contains(t, asm, "str\tr3, [fp, #-16]")
	assert.Contains(t, asm, hf("ldr\tr9, [fp, #%d]", pushed))
	assert.Contains(t, asm, hf("ldr\tr9, [fp, #%d]", pushed+4))

	require.Equal(t, 6, m.FindFunc("main").MaxCallArgs)
	assert.Zero(t, m.FindFunc("main").Frame%8)
}

func TestBigFrameStackArgs(t *testing.T) {
	m, asm := compileT(t, `
int f(int a, int b, int c, int d, int e) {
	int big[2000];

	big[0] = e;

	return big[0];
}
`)

	f := m.FindFunc("f")
	require.Greater(t, f.Frame, maxMemOff)

	pushed := 4 * (f.Protected.Size() + 2)

	// address fixups for the oversized frame go through r10, so the
	// stack argument rides in a separate register
	assert.Contains(t, asm, "sub\tsp, sp, r10")
	assert.Contains(t, asm, hf("ldr\tr9, [fp, #%d]", pushed))
	assert.Contains(t, asm, "str\tr9, [fp, #-20]")
}

func TestBranchFusion(t *testing.T) {
	_, asm := compileT(t, `
int f(int a, int b) {
	if (a < b)
		return 1;

	return 2;
}
`)

	// the comparison feeds the branch directly
	assert.Contains(t, asm, "blt\t")
	assert.NotContains(t, asm, "movlt")
}

func TestCompareMaterialized(t *testing.T) {
	_, asm := compileT(t, `
int f(int a, int b) {
	return a < b;
}
`)

	assert.Contains(t, asm, "mov\tr2, #0")
	assert.Contains(t, asm, "movlt\tr2, #1")
}

func TestDivMod(t *testing.T) {
	_, asm := compileT(t, `
int f(int a, int b) {
	return a / b + a % b;
}
`)

	assert.Contains(t, asm, "sdiv\t")
	assert.Contains(t, asm, "mul\t")
}

func TestNeg(t *testing.T) {
	_, asm := compileT(t, `
int f(int a) {
	return -a;
}
`)

	assert.Contains(t, asm, "rsb\tr1, r0, #0")
}

func TestGlobals(t *testing.T) {
	_, asm := compileT(t, `
int g = 5;
int a[3][4];

int f() {
	g = g + 1;

	return g;
}
`)

	assert.Contains(t, asm, ".data")
	assert.Contains(t, asm, "g:\n\t.word\t5")
	assert.Contains(t, asm, "a:\n\t.space\t48")

	assert.Contains(t, asm, "ldr\tr0, =g")
	assert.Contains(t, asm, "ldr\tr10, =g")
}

func TestArrayAccess(t *testing.T) {
	_, asm := compileT(t, `
int f(int i) {
	int a[8];

	a[i] = 42;

	return a[i];
}
`)

	// base address computed off fp, element stored through it
	assert.Contains(t, asm, "sub\t")
	assert.Contains(t, asm, "str\tr1, [r0]")
	assert.Contains(t, asm, "ldr\t")
}

func TestFrameLayout(t *testing.T) {
	m, _ := compileT(t, `
int f(int a, int b) {
	int x, y[4];

	x = a + b;
	y[0] = x;

	return y[0];
}
`)

	f := m.FindFunc("f")

	require.NotZero(t, f.Frame)
	require.Zero(t, f.Frame%8)

	seen := map[int]bool{}

	check := func(v ir.Value) {
		base, off, ok := v.MemAddr()
		require.True(t, ok)
		require.Equal(t, regFP, base)
		require.Negative(t, off)
		require.False(t, seen[off], "slot %d reused", off)

		seen[off] = true
	}

	for _, p := range f.Params {
		check(p)
	}

	for _, l := range f.Locals {
		check(l)
	}
}

func TestDiagnostics(t *testing.T) {
	m := ir.NewModule()

	f := m.NewFunc("bad", tp.Void{})
	f.Add(ir.NewEntry())
	f.Add(ir.NewBc(m.NewConstInt(1), nil, nil))
	f.Add(ir.NewGoto(nil))
	f.Add(ir.NewExit(nil))

	_, err := New(m).Run(context.Background())
	require.Error(t, err)
}

func TestEmitIR(t *testing.T) {
	ctx := context.Background()

	x, err := front.Parse(ctx, "test.mc", []byte(`
int f(int a) { return a + 1; }
`))
	require.NoError(t, err)

	m := ir.NewModule()
	require.NoError(t, gen.Generate(ctx, m, x))

	s := New(m)
	s.EmitIR = true

	b, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Contains(t, string(b), "= add %a, 1")
}
