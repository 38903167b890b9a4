package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSrc = `
int limit = 10;

int fib(int n) {
	if (n < 2)
		return n;

	return fib(n - 1) + fib(n - 2);
}

int main() {
	int i = 0, r[10];

	while (i < limit) {
		r[i] = fib(i);
		i = i + 1;
	}

	return r[9];
}
`

func TestCompile(t *testing.T) {
	ctx := context.Background()

	obj, err := Compile(ctx, "test.mc", []byte(testSrc), nil)
	require.NoError(t, err)

	asm := string(obj)

	for _, sub := range []string{".text", ".global\tfib", ".global\tmain", "bl\tfib", "limit:", ".word\t10"} {
		assert.Contains(t, asm, sub)
	}

	assert.NotContains(t, asm, "@ ")

	t.Logf("asm:\n%s", asm)
}

func TestCompileEmitIR(t *testing.T) {
	ctx := context.Background()

	obj, err := Compile(ctx, "test.mc", []byte(testSrc), &Config{EmitIR: true})
	require.NoError(t, err)

	assert.Contains(t, string(obj), "@ exit")
	assert.Contains(t, string(obj), "= icmp lt %n, 2")
}

func TestCompileEntry(t *testing.T) {
	ctx := context.Background()

	obj, err := Compile(ctx, "test.mc", []byte(testSrc), &Config{Entry: "main"})
	require.NoError(t, err)

	assert.Contains(t, string(obj), ".global\tmain")
	assert.NotContains(t, string(obj), ".global\tfib")
}

func TestIRText(t *testing.T) {
	ctx := context.Background()

	b, err := IRText(ctx, "test.mc", []byte(testSrc))
	require.NoError(t, err)

	assert.Contains(t, string(b), "func fib(%n)")
	assert.Contains(t, string(b), "call fib(")
}

func TestCompileErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Compile(ctx, "test.mc", []byte("int f() { return"), nil)
	require.Error(t, err)

	_, err = Compile(ctx, "test.mc", []byte("int f() { return g; }"), nil)
	require.Error(t, err)
}
