package ast

import (
	"github.com/minic-lang/minic/compiler/tp"
)

type (
	Op int

	// Node is one AST node. The parser owns the tree; the generator
	// consumes it read-only in a single pass.
	//
	// Child layout per Op:
	//
	//	CompileUnit:  var-decl-stmts and func-defs in source order
	//	FuncDef:      [Type, Ident, FormalParams, Block]
	//	FormalParam:  none; Name + Type payload
	//	FuncCall:     [Ident, Args]
	//	DeclStmt:     VarDecl and Assign nodes
	//	VarDecl:      [Type, Ident] or [Type, ArrayDef]
	//	ArrayDef:     dimension expressions, outer first; Name payload
	//	ArrayAccess:  [Ident, index...]
	//	Assign:       [lhs, rhs]
	//	If:           [cond, then]; IfElse: [cond, then, else]
	//	While:        [cond, body]
	//	Return:       [] or [expr]
	//	binary ops:   [left, right]; Neg, Not: [x]
	Node struct {
		Op   Op
		Sons []*Node

		Name string  // Ident, ArrayDef, FormalParam
		Int  int32   // Lit
		Base int     // numeric base of Lit: 8, 10 or 16
		Type tp.Type // Type leaf, FormalParam

		Line int
	}
)

const (
	None Op = iota

	// leaves
	Lit
	Ident
	Type

	// arithmetic
	Add
	Sub
	Mul
	Div
	Mod
	Neg

	// relational
	LT
	LE
	GT
	GE
	EQ
	NE

	// logical
	And
	Or
	Not

	// control flow
	If
	IfElse
	While
	Break
	Continue

	// statements
	Assign
	Return
	DeclStmt
	VarDecl
	Block

	// functions
	FuncDef
	FormalParams
	FormalParam
	FuncCall
	Args

	// arrays
	ArrayDef
	ArrayAccess

	CompileUnit
)

var opNames = map[Op]string{
	None: "none", Lit: "lit", Ident: "ident", Type: "type",
	Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%", Neg: "neg",
	LT: "<", LE: "<=", GT: ">", GE: ">=", EQ: "==", NE: "!=",
	And: "&&", Or: "||", Not: "!",
	If: "if", IfElse: "if-else", While: "while", Break: "break", Continue: "continue",
	Assign: "assign", Return: "return", DeclStmt: "decl-stmt", VarDecl: "var-decl", Block: "block",
	FuncDef: "func-def", FormalParams: "formal-params", FormalParam: "formal-param",
	FuncCall: "func-call", Args: "args",
	ArrayDef: "array-def", ArrayAccess: "array-access",
	CompileUnit: "compile-unit",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}

	return "op?"
}

func New(op Op, line int, sons ...*Node) *Node {
	return &Node{
		Op:   op,
		Line: line,
		Sons: sons,
	}
}
