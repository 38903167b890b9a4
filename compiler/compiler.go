package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/minic-lang/minic/compiler/back/arm32"
	"github.com/minic-lang/minic/compiler/front"
	"github.com/minic-lang/minic/compiler/gen"
	"github.com/minic-lang/minic/compiler/ir"
)

type (
	Config struct {
		// EmitIR interleaves the IR as comments into the assembly.
		EmitIR bool `yaml:"emit_ir"`

		// Entry limits exported symbols to the entry function; all
		// functions are exported when empty.
		Entry string `yaml:"entry"`
	}
)

func CompileFile(ctx context.Context, name string, cfg *Config) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, cfg)
}

// Compile runs the full pipeline: parse, lower to IR, select
// instructions. obj is ARM32 assembly text.
func Compile(ctx context.Context, name string, text []byte, cfg *Config) (obj []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name)
	defer tr.Finish("err", &err)

	m, err := lower(ctx, name, text)
	if err != nil {
		return nil, err
	}

	s := arm32.New(m)
	if cfg != nil {
		s.EmitIR = cfg.EmitIR
		s.Entry = cfg.Entry
	}

	obj, err = s.Run(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "select instructions")
	}

	return obj, nil
}

// IRText compiles the unit down to IR only and renders it as text.
func IRText(ctx context.Context, name string, text []byte) (_ []byte, err error) {
	m, err := lower(ctx, name, text)
	if err != nil {
		return nil, err
	}

	p := ir.NewPrinter()

	var b []byte

	for _, f := range m.Funcs {
		b = p.Func(b, f)
		b = append(b, '\n')
	}

	return b, nil
}

func lower(ctx context.Context, name string, text []byte) (*ir.Module, error) {
	x, err := front.Parse(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	m := ir.NewModule()

	err = gen.Generate(ctx, m, x)
	if err != nil {
		return nil, errors.Wrap(err, "generate ir")
	}

	return m, nil
}
