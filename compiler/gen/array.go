package gen

import (
	"tlog.app/go/errors"

	"github.com/minic-lang/minic/compiler/ast"
	"github.com/minic-lang/minic/compiler/ir"
	"github.com/minic-lang/minic/compiler/tp"
)

func (g *state) arrayDef(elem tp.Type, n *ast.Node) error {
	if g.mod.FindVarInScope(n.Name) != nil {
		return errors.New("line %d: %v redefined", n.Line, n.Name)
	}

	typ := elem

	for i := len(n.Sons) - 1; i >= 0; i-- {
		d := n.Sons[i]

		if d.Op != ast.Lit || d.Int <= 0 {
			return errors.New("line %d: array %v: dimension must be a positive constant", n.Line, n.Name)
		}

		typ = tp.Array{X: typ, Len: int(d.Int)}
	}

	g.mod.NewVar(typ, n.Name)

	return nil
}

func (g *state) arrayRead(n *ast.Node) (ir.Value, error) {
	addr, err := g.arrayAddr(n)
	if err != nil {
		return nil, err
	}

	t := g.mod.NewTemp(tp.Int{})
	g.fn.Add(ir.NewLoad(t, addr))

	return t, nil
}

// arrayAddr computes the element address of a (possibly
// multidimensional) access: row-major linearization of the indexes,
// scaled by the element size, added to the array base. The address is
// always recomputed at the access site.
func (g *state) arrayAddr(n *ast.Node) (ir.Value, error) {
	name := n.Sons[0].Name
	idxs := n.Sons[1:]

	v := g.mod.FindVar(name)
	if v == nil {
		return nil, errors.New("line %d: %v is not declared", n.Line, name)
	}

	dims, elem := tp.Dims(v.Type())
	if len(dims) == 0 {
		return nil, errors.New("line %d: %v is not an array", n.Line, name)
	}

	if len(idxs) != len(dims) {
		return nil, errors.New("line %d: %v has %d dimensions, %d indexes given",
			n.Line, name, len(dims), len(idxs))
	}

	lin, err := g.expr(idxs[0])
	if err != nil {
		return nil, err
	}

	for j := 1; j < len(idxs); j++ {
		m := ir.NewBinary(ir.BinMul, lin, g.mod.NewConstInt(int32(dims[j])))
		g.fn.Add(m)

		iv, err := g.expr(idxs[j])
		if err != nil {
			return nil, err
		}

		a := ir.NewBinary(ir.BinAdd, m, iv)
		g.fn.Add(a)

		lin = a
	}

	off := ir.NewBinary(ir.BinMul, lin, g.mod.NewConstInt(int32(elem.Size())))
	g.fn.Add(off)

	addr := ir.NewBinary(ir.BinAdd, v, off)
	g.fn.Add(addr)

	return addr, nil
}
