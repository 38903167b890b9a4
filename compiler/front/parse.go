package front

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/minic-lang/minic/compiler/ast"
	"github.com/minic-lang/minic/compiler/tp"
)

func ParseFile(ctx context.Context, name string) (*ast.Node, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, name, text)
}

// Parse parses one MiniC compilation unit into an AST.
func Parse(ctx context.Context, name string, text []byte) (x *ast.Node, err error) {
	tr := tlog.SpanFromContext(ctx)

	s := &state{name: name, b: text}

	root := ast.New(ast.CompileUnit, 1)

	i := 0

	for {
		t, e, err := s.token(i)
		if err != nil {
			return nil, errors.Wrap(err, "at %v:%d", s.name, s.lineAt(i))
		}

		if t == nil {
			break
		}

		var son *ast.Node

		son, e, err = s.parseTop(t, e, i)
		if err != nil {
			return nil, errors.Wrap(err, "at %v:%d", s.name, s.lineAt(i))
		}

		root.Sons = append(root.Sons, son)
		i = e
	}

	tr.V("ast").Printw("parsed unit", "name", name, "decls", len(root.Sons))

	return root, nil
}

// parseTop parses one unit-level declaration: a function definition or
// a variable declaration statement.
func (s *state) parseTop(t token, e, st int) (x *ast.Node, i int, err error) {
	line := s.lineAt(st)

	typ, ok := s.typeName(t)
	if !ok {
		return nil, st, errors.New("type expected, got %s (%[1]T)", t)
	}

	t, i, err = s.token(e)
	if err != nil {
		return nil, i, err
	}

	name, ok := t.(ident)
	if !ok {
		return nil, i, errors.New("name expected, got %s (%[1]T)", t)
	}

	t, e, err = s.token(i)
	if err != nil {
		return nil, e, err
	}

	if p, ok := t.(punct); ok && p == "(" {
		return s.parseFunc(typ, string(name), line, e)
	}

	if _, ok := typ.(tp.Void); ok {
		return nil, i, errors.New("void variable %s", name)
	}

	return s.parseDeclTail(string(name), line, i)
}

func (s *state) parseFunc(ret tp.Type, name string, line, st int) (x *ast.Node, i int, err error) {
	params := ast.New(ast.FormalParams, line)

	i, err = s.parseParams(params, st)
	if err != nil {
		return nil, i, errors.Wrap(err, "func %v params", name)
	}

	body, i, err := s.parseBlock(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "func %v body", name)
	}

	x = ast.New(ast.FuncDef, line,
		&ast.Node{Op: ast.Type, Type: ret, Line: line},
		&ast.Node{Op: ast.Ident, Name: name, Line: line},
		params,
		body,
	)

	return x, i, nil
}

func (s *state) parseParams(params *ast.Node, st int) (i int, err error) {
	t, i, err := s.token(st)
	if err != nil {
		return i, err
	}

	if p, ok := t.(punct); ok && p == ")" {
		return i, nil
	}

	for {
		typ, ok := s.typeName(t)
		if !ok {
			return i, errors.New("param type expected, got %s (%[1]T)", t)
		}

		if _, ok := typ.(tp.Void); ok {
			// void parameter list
			return s.expect(i, ")")
		}

		t, i, err = s.token(i)
		if err != nil {
			return i, err
		}

		name, ok := t.(ident)
		if !ok {
			return i, errors.New("param name expected, got %s (%[1]T)", t)
		}

		ptyp, e, err := s.parseParamDims(typ, i)
		if err != nil {
			return e, errors.Wrap(err, "param %s", name)
		}

		i = e

		params.Sons = append(params.Sons, &ast.Node{
			Op:   ast.FormalParam,
			Name: string(name),
			Type: ptyp,
			Line: s.lineAt(i),
		})

		t, i, err = s.token(i)
		if err != nil {
			return i, err
		}

		p, ok := t.(punct)
		if !ok {
			return i, errors.New("',' or ')' expected, got %s (%[1]T)", t)
		}

		switch p {
		case ")":
			return i, nil
		case ",":
		default:
			return i, errors.New("',' or ')' expected, got %s", p)
		}

		t, i, err = s.token(i)
		if err != nil {
			return i, err
		}
	}
}

// parseParamDims parses an optional array shape on a parameter. The
// outer dimension is empty and decays to a pointer (Len 0).
func (s *state) parseParamDims(elem tp.Type, st int) (typ tp.Type, i int, err error) {
	i = st

	t, e, err := s.token(i)
	if err != nil {
		return nil, e, err
	}

	if p, ok := t.(punct); !ok || p != "[" {
		return elem, i, nil
	}

	e, err = s.expect(e, "]")
	if err != nil {
		return nil, e, err
	}

	i = e

	var dims []int

	for {
		t, e, err = s.token(i)
		if err != nil {
			return nil, e, err
		}

		p, ok := t.(punct)
		if !ok || p != "[" {
			break
		}

		t, e, err = s.token(e)
		if err != nil {
			return nil, e, err
		}

		n, ok := t.(number)
		if !ok {
			return nil, e, errors.New("array dimension expected, got %s (%[1]T)", t)
		}

		e, err = s.expect(e, "]")
		if err != nil {
			return nil, e, err
		}

		dims = append(dims, int(n.v))
		i = e
	}

	typ = elem

	for j := len(dims) - 1; j >= 0; j-- {
		typ = tp.Array{X: typ, Len: dims[j]}
	}

	return tp.Array{X: typ, Len: 0}, i, nil
}

// parseDeclTail parses the rest of a variable declaration statement,
// the type and the first name being already consumed.
func (s *state) parseDeclTail(first string, line, st int) (x *ast.Node, i int, err error) {
	x = ast.New(ast.DeclStmt, line)

	name := first
	i = st

	for {
		i, err = s.parseDeclItem(x, name, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "declaration of %v", name)
		}

		t, e, err := s.token(i)
		if err != nil {
			return nil, e, err
		}

		p, ok := t.(punct)
		if !ok {
			return nil, e, errors.New("',' or ';' expected, got %s (%[1]T)", t)
		}

		switch p {
		case ";":
			return x, e, nil
		case ",":
		default:
			return nil, e, errors.New("',' or ';' expected, got %s", p)
		}

		t, i, err = s.token(e)
		if err != nil {
			return nil, i, err
		}

		id, ok := t.(ident)
		if !ok {
			return nil, i, errors.New("name expected, got %s (%[1]T)", t)
		}

		name = string(id)
	}
}

// parseDeclItem parses one declarator: optional array dimensions and an
// optional scalar initializer.
func (s *state) parseDeclItem(decl *ast.Node, name string, st int) (i int, err error) {
	line := s.lineAt(st)
	i = st

	var dims []*ast.Node

	for {
		t, e, err := s.token(i)
		if err != nil {
			return e, err
		}

		p, ok := t.(punct)
		if !ok || p != "[" {
			break
		}

		var dim *ast.Node

		dim, e, err = s.parseExpr(e)
		if err != nil {
			return e, errors.Wrap(err, "array dimension")
		}

		e, err = s.expect(e, "]")
		if err != nil {
			return e, err
		}

		dims = append(dims, dim)
		i = e
	}

	typeLeaf := &ast.Node{Op: ast.Type, Type: tp.Int{}, Line: line}

	if len(dims) != 0 {
		arr := &ast.Node{Op: ast.ArrayDef, Name: name, Sons: dims, Line: line}
		decl.Sons = append(decl.Sons, ast.New(ast.VarDecl, line, typeLeaf, arr))

		return i, nil
	}

	decl.Sons = append(decl.Sons, ast.New(ast.VarDecl, line, typeLeaf,
		&ast.Node{Op: ast.Ident, Name: name, Line: line}))

	t, e, err := s.token(i)
	if err != nil {
		return e, err
	}

	if p, ok := t.(punct); ok && p == "=" {
		rhs, e, err := s.parseExpr(e)
		if err != nil {
			return e, errors.Wrap(err, "initializer")
		}

		decl.Sons = append(decl.Sons, ast.New(ast.Assign, line,
			&ast.Node{Op: ast.Ident, Name: name, Line: line}, rhs))

		i = e
	}

	return i, nil
}

func (s *state) parseBlock(st int) (x *ast.Node, i int, err error) {
	i, err = s.expect(st, "{")
	if err != nil {
		return nil, i, err
	}

	x = ast.New(ast.Block, s.lineAt(st))

	for {
		t, e, err := s.token(i)
		if err != nil {
			return nil, e, err
		}

		if p, ok := t.(punct); ok && p == "}" {
			return x, e, nil
		}

		if t == nil {
			return nil, e, errors.New("unexpected end of block")
		}

		var stmt *ast.Node

		stmt, i, err = s.parseStmt(i)
		if err != nil {
			return nil, i, err
		}

		if stmt != nil {
			x.Sons = append(x.Sons, stmt)
		}
	}
}

func (s *state) parseStmt(st int) (x *ast.Node, i int, err error) {
	line := s.lineAt(st)

	t, e, err := s.token(st)
	if err != nil {
		return nil, e, err
	}

	if p, ok := t.(punct); ok {
		switch p {
		case "{":
			return s.parseBlock(st)
		case ";":
			return nil, e, nil
		}
	}

	id, ok := t.(ident)
	if !ok {
		return s.parseExprStmt(st)
	}

	switch string(id) {
	case "int":
		t, e, err = s.token(e)
		if err != nil {
			return nil, e, err
		}

		name, ok := t.(ident)
		if !ok {
			return nil, e, errors.New("name expected, got %s (%[1]T)", t)
		}

		return s.parseDeclTail(string(name), line, e)
	case "if":
		return s.parseIf(line, e)
	case "while":
		return s.parseWhile(line, e)
	case "break":
		i, err = s.expect(e, ";")
		return ast.New(ast.Break, line), i, err
	case "continue":
		i, err = s.expect(e, ";")
		return ast.New(ast.Continue, line), i, err
	case "return":
		return s.parseReturn(line, e)
	}

	return s.parseExprStmt(st)
}

func (s *state) parseIf(line, st int) (x *ast.Node, i int, err error) {
	i, err = s.expect(st, "(")
	if err != nil {
		return nil, i, err
	}

	cond, i, err := s.parseExpr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "if cond")
	}

	i, err = s.expect(i, ")")
	if err != nil {
		return nil, i, err
	}

	then, i, err := s.parseStmt(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "then")
	}

	if then == nil {
		then = ast.New(ast.Block, line)
	}

	t, e, err := s.token(i)
	if err != nil {
		return nil, e, err
	}

	if id, ok := t.(ident); !ok || string(id) != "else" {
		return ast.New(ast.If, line, cond, then), i, nil
	}

	els, i, err := s.parseStmt(e)
	if err != nil {
		return nil, i, errors.Wrap(err, "else")
	}

	if els == nil {
		els = ast.New(ast.Block, line)
	}

	return ast.New(ast.IfElse, line, cond, then, els), i, nil
}

func (s *state) parseWhile(line, st int) (x *ast.Node, i int, err error) {
	i, err = s.expect(st, "(")
	if err != nil {
		return nil, i, err
	}

	cond, i, err := s.parseExpr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "while cond")
	}

	i, err = s.expect(i, ")")
	if err != nil {
		return nil, i, err
	}

	body, i, err := s.parseStmt(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "while body")
	}

	if body == nil {
		body = ast.New(ast.Block, line)
	}

	return ast.New(ast.While, line, cond, body), i, nil
}

func (s *state) parseReturn(line, st int) (x *ast.Node, i int, err error) {
	t, e, err := s.token(st)
	if err != nil {
		return nil, e, err
	}

	if p, ok := t.(punct); ok && p == ";" {
		return ast.New(ast.Return, line), e, nil
	}

	expr, i, err := s.parseExpr(st)
	if err != nil {
		return nil, i, errors.Wrap(err, "return value")
	}

	i, err = s.expect(i, ";")

	return ast.New(ast.Return, line, expr), i, err
}

// parseExprStmt parses `lvalue = expr ;` or a bare expression
// statement.
func (s *state) parseExprStmt(st int) (x *ast.Node, i int, err error) {
	line := s.lineAt(st)

	x, i, err = s.parseExpr(st)
	if err != nil {
		return nil, i, err
	}

	t, e, err := s.token(i)
	if err != nil {
		return nil, e, err
	}

	if p, ok := t.(punct); ok && p == "=" {
		if x.Op != ast.Ident && x.Op != ast.ArrayAccess {
			return nil, e, errors.New("assignment to non-lvalue %v", x.Op)
		}

		rhs, e, err := s.parseExpr(e)
		if err != nil {
			return nil, e, errors.Wrap(err, "assignment rhs")
		}

		x = ast.New(ast.Assign, line, x, rhs)
		i = e
	}

	i, err = s.expect(i, ";")

	return x, i, err
}

var binLevels = []map[punct]ast.Op{
	{"||": ast.Or},
	{"&&": ast.And},
	{"==": ast.EQ, "!=": ast.NE},
	{"<": ast.LT, "<=": ast.LE, ">": ast.GT, ">=": ast.GE},
	{"+": ast.Add, "-": ast.Sub},
	{"*": ast.Mul, "/": ast.Div, "%": ast.Mod},
}

func (s *state) parseExpr(st int) (x *ast.Node, i int, err error) {
	return s.parseBin(0, st)
}

func (s *state) parseBin(level, st int) (x *ast.Node, i int, err error) {
	if level == len(binLevels) {
		return s.parseUnary(st)
	}

	x, i, err = s.parseBin(level+1, st)
	if err != nil {
		return nil, i, err
	}

	for {
		t, e, err := s.token(i)
		if err != nil {
			return nil, e, err
		}

		p, ok := t.(punct)
		if !ok {
			return x, i, nil
		}

		op, ok := binLevels[level][p]
		if !ok {
			return x, i, nil
		}

		r, e, err := s.parseBin(level+1, e)
		if err != nil {
			return nil, e, errors.Wrap(err, "%s right operand", p)
		}

		x = ast.New(op, x.Line, x, r)
		i = e
	}
}

func (s *state) parseUnary(st int) (x *ast.Node, i int, err error) {
	line := s.lineAt(st)

	t, e, err := s.token(st)
	if err != nil {
		return nil, e, err
	}

	if p, ok := t.(punct); ok {
		switch p {
		case "-":
			x, i, err = s.parseUnary(e)
			return ast.New(ast.Neg, line, x), i, err
		case "!":
			x, i, err = s.parseUnary(e)
			return ast.New(ast.Not, line, x), i, err
		case "+":
			return s.parseUnary(e)
		}
	}

	return s.parsePrimary(st)
}

func (s *state) parsePrimary(st int) (x *ast.Node, i int, err error) {
	line := s.lineAt(st)

	t, i, err := s.token(st)
	if err != nil {
		return nil, i, err
	}

	switch t := t.(type) {
	case number:
		return &ast.Node{Op: ast.Lit, Int: t.v, Base: t.base, Line: line}, i, nil
	case punct:
		if t != "(" {
			return nil, i, errors.New("expression expected, got %s", t)
		}

		x, i, err = s.parseExpr(i)
		if err != nil {
			return nil, i, err
		}

		i, err = s.expect(i, ")")

		return x, i, err
	case ident:
		return s.parseIdentExpr(string(t), line, i)
	}

	return nil, i, errors.New("expression expected, got %s (%[1]T)", t)
}

// parseIdentExpr parses a variable reference, a call or an array
// access, the name being already consumed.
func (s *state) parseIdentExpr(name string, line, st int) (x *ast.Node, i int, err error) {
	id := &ast.Node{Op: ast.Ident, Name: name, Line: line}
	i = st

	t, e, err := s.token(i)
	if err != nil {
		return nil, e, err
	}

	p, ok := t.(punct)
	if !ok {
		return id, i, nil
	}

	switch p {
	case "(":
		args := ast.New(ast.Args, line)

		e, err = s.parseArgs(args, e)
		if err != nil {
			return nil, e, errors.Wrap(err, "call %v", name)
		}

		return ast.New(ast.FuncCall, line, id, args), e, nil
	case "[":
		x = ast.New(ast.ArrayAccess, line, id)

		for {
			var idx *ast.Node

			idx, e, err = s.parseExpr(e)
			if err != nil {
				return nil, e, errors.Wrap(err, "index of %v", name)
			}

			e, err = s.expect(e, "]")
			if err != nil {
				return nil, e, err
			}

			x.Sons = append(x.Sons, idx)
			i = e

			t, e, err = s.token(i)
			if err != nil {
				return nil, e, err
			}

			if p, ok := t.(punct); !ok || p != "[" {
				return x, i, nil
			}
		}
	}

	return id, i, nil
}

func (s *state) parseArgs(args *ast.Node, st int) (i int, err error) {
	t, i, err := s.token(st)
	if err != nil {
		return i, err
	}

	if p, ok := t.(punct); ok && p == ")" {
		return i, nil
	}

	i = st

	for {
		var a *ast.Node

		a, i, err = s.parseExpr(i)
		if err != nil {
			return i, err
		}

		args.Sons = append(args.Sons, a)

		t, i, err = s.token(i)
		if err != nil {
			return i, err
		}

		p, ok := t.(punct)
		if !ok {
			return i, errors.New("',' or ')' expected, got %s (%[1]T)", t)
		}

		switch p {
		case ")":
			return i, nil
		case ",":
		default:
			return i, errors.New("',' or ')' expected, got %s", p)
		}
	}
}

func (s *state) expect(st int, want punct) (i int, err error) {
	t, i, err := s.token(st)
	if err != nil {
		return i, err
	}

	if p, ok := t.(punct); !ok || p != want {
		return i, errors.New("%q expected, got %s (%[1]T)", want, t)
	}

	return i, nil
}

func (s *state) typeName(t token) (tp.Type, bool) {
	id, ok := t.(ident)
	if !ok {
		return nil, false
	}

	switch string(id) {
	case "int":
		return tp.Int{}, true
	case "void":
		return tp.Void{}, true
	}

	return nil, false
}
