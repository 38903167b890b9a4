// Package gen lowers the AST into linear IR. It is a single pass over
// the tree: declarations populate the symbol table, statements and
// expressions append instructions to the current function.
package gen

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/minic-lang/minic/compiler/ast"
	"github.com/minic-lang/minic/compiler/ir"
	"github.com/minic-lang/minic/compiler/tp"
)

type (
	state struct {
		mod *ir.Module
		fn  *ir.Func

		loops []loop

		tr tlog.Span
	}

	// loop is one entry of the enclosing-loops stack. break jumps to
	// End, continue to Start.
	loop struct {
		Start, End *ir.Label
	}
)

// Generate lowers a compile unit into m. Function signatures are
// registered before any body is generated, so calls may reference
// functions defined later in the unit.
func Generate(ctx context.Context, m *ir.Module, root *ast.Node) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "generate_ir")
	defer tr.Finish("err", &err)

	if root == nil || root.Op != ast.CompileUnit {
		return errors.New("compile unit expected, got %v", root.Op)
	}

	g := &state{mod: m, tr: tr}

	for _, son := range root.Sons {
		switch son.Op {
		case ast.DeclStmt:
			err = g.declStmt(son)
		case ast.FuncDef:
			err = g.declFunc(son)
		default:
			err = errors.New("line %d: unexpected %v at unit level", son.Line, son.Op)
		}

		if err != nil {
			return err
		}
	}

	for _, son := range root.Sons {
		if son.Op != ast.FuncDef {
			continue
		}

		err = g.genFunc(son)
		if err != nil {
			return errors.Wrap(err, "func %v", son.Sons[1].Name)
		}
	}

	return nil
}

// declFunc registers the signature without generating the body.
func (g *state) declFunc(n *ast.Node) error {
	ret := n.Sons[0].Type
	name := n.Sons[1].Name
	params := n.Sons[2]

	f := g.mod.NewFunc(name, ret)
	if f == nil {
		return errors.New("line %d: function %v redefined", n.Line, name)
	}

	for i, p := range params.Sons {
		f.Params = append(f.Params, ir.NewParam(p.Name, i, p.Type))
	}

	return nil
}

func (g *state) genFunc(n *ast.Node) (err error) {
	name := n.Sons[1].Name
	body := n.Sons[3]

	f := g.mod.FindFunc(name)

	g.fn = f
	g.mod.SetCurFunc(f)

	defer func() {
		g.fn = nil
		g.mod.SetCurFunc(nil)
	}()

	g.mod.EnterScope()
	defer g.mod.LeaveScope()

	for _, p := range f.Params {
		g.mod.Insert(p.Name, p)
	}

	f.ExitLabel = g.mod.NewLabel()

	f.Add(ir.NewEntry())

	if !tp.IsVoid(f.Ret) {
		f.RetVal = g.mod.NewTemp(f.Ret)
		f.Add(ir.NewMove(f.RetVal, g.mod.NewConstInt(0)))
	}

	// the body block shares the parameters' scope, it is not reopened
	for _, son := range body.Sons {
		err = g.stmt(son)
		if err != nil {
			return err
		}
	}

	f.Add(f.ExitLabel)
	f.Add(ir.NewExit(f.RetVal))

	g.tr.V("gen").Printw("generated function", "name", name, "insts", len(f.Code))

	return nil
}

func (g *state) stmt(n *ast.Node) (err error) {
	switch n.Op {
	case ast.Block:
		g.mod.EnterScope()
		defer g.mod.LeaveScope()

		for _, son := range n.Sons {
			err = g.stmt(son)
			if err != nil {
				return err
			}
		}

		return nil
	case ast.DeclStmt:
		return g.declStmt(n)
	case ast.Assign:
		return g.assign(n)
	case ast.If:
		return g.genIf(n)
	case ast.IfElse:
		return g.genIfElse(n)
	case ast.While:
		return g.genWhile(n)
	case ast.Break:
		if len(g.loops) == 0 {
			return errors.New("line %d: break outside of a loop", n.Line)
		}

		g.fn.Add(ir.NewGoto(g.loops[len(g.loops)-1].End))

		return nil
	case ast.Continue:
		if len(g.loops) == 0 {
			return errors.New("line %d: continue outside of a loop", n.Line)
		}

		g.fn.Add(ir.NewGoto(g.loops[len(g.loops)-1].Start))

		return nil
	case ast.Return:
		return g.genReturn(n)
	case ast.FuncDef:
		return errors.New("line %d: nested function definition", n.Line)
	}

	// expression statement, evaluated for side effects
	_, err = g.expr(n)

	return err
}

// declStmt handles both global and local declarations; VarDecl and
// initializer Assign sons come interleaved in source order.
func (g *state) declStmt(n *ast.Node) (err error) {
	for _, son := range n.Sons {
		switch son.Op {
		case ast.VarDecl:
			err = g.varDecl(son)
		case ast.Assign:
			if g.fn != nil {
				err = g.assign(son)
				break
			}

			err = g.globalInit(son)
		default:
			err = errors.New("line %d: unexpected %v in declaration", son.Line, son.Op)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (g *state) varDecl(n *ast.Node) error {
	item := n.Sons[1]

	switch item.Op {
	case ast.Ident:
		if g.mod.FindVarInScope(item.Name) != nil {
			return errors.New("line %d: %v redefined", n.Line, item.Name)
		}

		g.mod.NewVar(n.Sons[0].Type, item.Name)

		return nil
	case ast.ArrayDef:
		return g.arrayDef(n.Sons[0].Type, item)
	}

	return errors.New("line %d: unexpected declarator %v", n.Line, item.Op)
}

// globalInit folds a unit-level initializer into the data segment.
func (g *state) globalInit(n *ast.Node) error {
	lhs, rhs := n.Sons[0], n.Sons[1]

	if lhs.Op != ast.Ident || rhs.Op != ast.Lit {
		return errors.New("line %d: global initializer must be a constant", n.Line)
	}

	v := g.mod.FindVar(lhs.Name)

	glob, ok := v.(*ir.Global)
	if !ok {
		return errors.New("line %d: %v is not a global", n.Line, lhs.Name)
	}

	glob.Init = rhs.Int

	return nil
}

func (g *state) assign(n *ast.Node) error {
	lhs, rhs := n.Sons[0], n.Sons[1]

	val, err := g.expr(rhs)
	if err != nil {
		return err
	}

	switch lhs.Op {
	case ast.Ident:
		dst, err := g.assignDst(lhs)
		if err != nil {
			return err
		}

		g.fn.Add(ir.NewMove(dst, val))

		return nil
	case ast.ArrayAccess:
		addr, err := g.arrayAddr(lhs)
		if err != nil {
			return err
		}

		g.fn.Add(ir.NewStore(addr, val))

		return nil
	}

	return errors.New("line %d: cannot assign to %v", n.Line, lhs.Op)
}

// assignDst resolves an assignment target. Writing to a parameter
// redirects to a shadow local, so the incoming argument slot is never
// clobbered and later reads keep seeing one consistent variable.
func (g *state) assignDst(lhs *ast.Node) (ir.Value, error) {
	if l := g.fn.FindOverride(lhs.Name); l != nil {
		return l, nil
	}

	v := g.mod.FindVar(lhs.Name)
	if v == nil {
		return nil, errors.New("line %d: %v is not declared", lhs.Line, lhs.Name)
	}

	if p, ok := v.(*ir.Param); ok {
		l, _ := g.fn.Override(p.Name, p.Type())
		return l, nil
	}

	if tp.IsArray(v.Type()) {
		return nil, errors.New("line %d: cannot assign to array %v", lhs.Line, lhs.Name)
	}

	return v, nil
}

func (g *state) genIf(n *ast.Node) error {
	then := g.mod.NewLabel()
	end := g.mod.NewLabel()

	cond, err := g.expr(n.Sons[0])
	if err != nil {
		return err
	}

	g.fn.Add(ir.NewBc(cond, then, end))
	g.fn.Add(then)

	err = g.stmt(n.Sons[1])
	if err != nil {
		return err
	}

	g.fn.Add(end)

	return nil
}

func (g *state) genIfElse(n *ast.Node) error {
	then := g.mod.NewLabel()
	els := g.mod.NewLabel()
	end := g.mod.NewLabel()

	cond, err := g.expr(n.Sons[0])
	if err != nil {
		return err
	}

	g.fn.Add(ir.NewBc(cond, then, els))
	g.fn.Add(then)

	err = g.stmt(n.Sons[1])
	if err != nil {
		return err
	}

	g.fn.Add(ir.NewGoto(end))
	g.fn.Add(els)

	err = g.stmt(n.Sons[2])
	if err != nil {
		return err
	}

	g.fn.Add(end)

	return nil
}

func (g *state) genWhile(n *ast.Node) error {
	start := g.mod.NewLabel()
	body := g.mod.NewLabel()
	end := g.mod.NewLabel()

	g.fn.Add(start)

	cond, err := g.expr(n.Sons[0])
	if err != nil {
		return err
	}

	g.fn.Add(ir.NewBc(cond, body, end))
	g.fn.Add(body)

	g.loops = append(g.loops, loop{Start: start, End: end})

	err = g.stmt(n.Sons[1])

	g.loops = g.loops[:len(g.loops)-1]

	if err != nil {
		return err
	}

	g.fn.Add(ir.NewGoto(start))
	g.fn.Add(end)

	return nil
}

func (g *state) genReturn(n *ast.Node) error {
	if len(n.Sons) == 0 {
		if !tp.IsVoid(g.fn.Ret) {
			return errors.New("line %d: return without a value in %v", n.Line, g.fn.Name)
		}

		g.fn.Add(ir.NewGoto(g.fn.ExitLabel))

		return nil
	}

	if tp.IsVoid(g.fn.Ret) {
		return errors.New("line %d: return with a value in void %v", n.Line, g.fn.Name)
	}

	// the slot was zeroed at entry and any path that wrote it already
	// jumped to the exit, so returning a literal 0 needs no move
	if e := n.Sons[0]; e.Op == ast.Lit && e.Int == 0 {
		g.fn.Add(ir.NewGoto(g.fn.ExitLabel))

		return nil
	}

	val, err := g.expr(n.Sons[0])
	if err != nil {
		return err
	}

	g.fn.Add(ir.NewMove(g.fn.RetVal, val))
	g.fn.Add(ir.NewGoto(g.fn.ExitLabel))

	return nil
}
