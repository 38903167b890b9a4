package gen

import (
	"tlog.app/go/errors"

	"github.com/minic-lang/minic/compiler/ast"
	"github.com/minic-lang/minic/compiler/ir"
	"github.com/minic-lang/minic/compiler/tp"
)

var binOps = map[ast.Op]ir.BinOp{
	ast.Add: ir.BinAdd,
	ast.Sub: ir.BinSub,
	ast.Mul: ir.BinMul,
	ast.Div: ir.BinDiv,
	ast.Mod: ir.BinMod,
}

var cmpOps = map[ast.Op]ir.Cond{
	ast.LT: ir.CondLT,
	ast.LE: ir.CondLE,
	ast.GT: ir.CondGT,
	ast.GE: ir.CondGE,
	ast.EQ: ir.CondEQ,
	ast.NE: ir.CondNE,
}

func (g *state) expr(n *ast.Node) (ir.Value, error) {
	switch n.Op {
	case ast.Lit:
		return g.mod.NewConstInt(n.Int), nil
	case ast.Ident:
		return g.identRead(n)
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		return g.binary(binOps[n.Op], n)
	case ast.LT, ast.LE, ast.GT, ast.GE, ast.EQ, ast.NE:
		return g.compare(cmpOps[n.Op], n)
	case ast.Neg:
		return g.neg(n)
	case ast.Not:
		return g.not(n)
	case ast.And, ast.Or:
		return g.logic(n)
	case ast.FuncCall:
		return g.call(n)
	case ast.ArrayAccess:
		return g.arrayRead(n)
	}

	// leave room for new node kinds without crashing the whole unit
	g.tr.Printw("unsupported expression", "op", n.Op, "line", n.Line)

	return g.mod.NewConstInt(0), nil
}

func (g *state) identRead(n *ast.Node) (ir.Value, error) {
	if l := g.fn.FindOverride(n.Name); l != nil {
		return l, nil
	}

	v := g.mod.FindVar(n.Name)
	if v == nil {
		return nil, errors.New("line %d: %v is not declared", n.Line, n.Name)
	}

	return v, nil
}

func (g *state) binary(op ir.BinOp, n *ast.Node) (ir.Value, error) {
	l, err := g.expr(n.Sons[0])
	if err != nil {
		return nil, err
	}

	r, err := g.expr(n.Sons[1])
	if err != nil {
		return nil, err
	}

	x := ir.NewBinary(op, l, r)
	g.fn.Add(x)

	return x, nil
}

func (g *state) compare(cc ir.Cond, n *ast.Node) (ir.Value, error) {
	l, err := g.expr(n.Sons[0])
	if err != nil {
		return nil, err
	}

	r, err := g.expr(n.Sons[1])
	if err != nil {
		return nil, err
	}

	x := ir.NewIcmp(cc, l, r)
	g.fn.Add(x)

	return x, nil
}

func (g *state) neg(n *ast.Node) (ir.Value, error) {
	v, err := g.expr(n.Sons[0])
	if err != nil {
		return nil, err
	}

	v = g.widen(v)

	x := ir.NewBinary(ir.BinSub, g.mod.NewConstInt(0), v)
	g.fn.Add(x)

	return x, nil
}

// not compares with zero and widens the comparison bit back to an int,
// so !x composes with arithmetic.
func (g *state) not(n *ast.Node) (ir.Value, error) {
	v, err := g.expr(n.Sons[0])
	if err != nil {
		return nil, err
	}

	c := ir.NewIcmp(ir.CondEQ, v, g.mod.NewConstInt(0))
	g.fn.Add(c)

	return g.widen(c), nil
}

// widen moves a comparison result into an int temporary. Values that
// already are ints pass through.
func (g *state) widen(v ir.Value) ir.Value {
	if _, ok := v.Type().(tp.Bool); !ok {
		return v
	}

	t := g.mod.NewTemp(tp.Int{})
	g.fn.Add(ir.NewMove(t, v))

	return t
}

// logic lowers && and || with short-circuit evaluation. Both forms
// funnel into the same shape: test the left operand, conditionally
// evaluate the right one, and join on a shared 0/1 result temporary.
func (g *state) logic(n *ast.Node) (ir.Value, error) {
	right := g.mod.NewLabel()
	yes := g.mod.NewLabel()
	no := g.mod.NewLabel()
	end := g.mod.NewLabel()

	res := g.mod.NewTemp(tp.Int{})

	l, err := g.expr(n.Sons[0])
	if err != nil {
		return nil, err
	}

	c := ir.NewIcmp(ir.CondNE, l, g.mod.NewConstInt(0))
	g.fn.Add(c)

	if n.Op == ast.And {
		g.fn.Add(ir.NewBc(c, right, no))
	} else {
		g.fn.Add(ir.NewBc(c, yes, right))
	}

	g.fn.Add(right)

	r, err := g.expr(n.Sons[1])
	if err != nil {
		return nil, err
	}

	c = ir.NewIcmp(ir.CondNE, r, g.mod.NewConstInt(0))
	g.fn.Add(c)
	g.fn.Add(ir.NewBc(c, yes, no))

	g.fn.Add(yes)
	g.fn.Add(ir.NewMove(res, g.mod.NewConstInt(1)))
	g.fn.Add(ir.NewGoto(end))

	g.fn.Add(no)
	g.fn.Add(ir.NewMove(res, g.mod.NewConstInt(0)))
	g.fn.Add(ir.NewGoto(end))

	g.fn.Add(end)

	return res, nil
}

func (g *state) call(n *ast.Node) (ir.Value, error) {
	name := n.Sons[0].Name
	args := n.Sons[1]

	if l, ok := g.mod.FindVar(name).(*ir.Local); ok {
		// a local shadows the function name, the call collapses to a
		// plain variable read
		return l, nil
	}

	f := g.mod.FindFunc(name)
	if f == nil {
		return nil, errors.New("line %d: function %v is not declared", n.Line, name)
	}

	if len(args.Sons) != len(f.Params) {
		return nil, errors.New("line %d: %v expects %d arguments, got %d",
			n.Line, name, len(f.Params), len(args.Sons))
	}

	vals := make([]ir.Value, len(args.Sons))

	for i, a := range args.Sons {
		v, err := g.expr(a)
		if err != nil {
			return nil, err
		}

		vals[i] = v
	}

	for _, v := range vals {
		g.fn.Add(ir.NewArg(v))
	}

	x := ir.NewCall(f, vals)
	g.fn.Add(x)

	g.fn.HasCall = true

	if len(vals) > g.fn.MaxCallArgs {
		g.fn.MaxCallArgs = len(vals)
	}

	return x, nil
}
