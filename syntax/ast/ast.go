package ast

import (
	"github.com/siadat/blatte/syntax/token"
)

// Every expression the parser returns is a Wrapped: the whitespace that
// preceded the expression in the source, paired with the expression itself.
// The whitespace is preserved verbatim, never merged or trimmed.
type Wrapped struct {
	WS string
	X  Expr
}

// Text is an atomic word or a delimited string literal, with metacharacter
// escapes already resolved.
type Text struct {
	Lit string
}

type VarRef struct {
	Name string
	Pos  token.Pos
}

// Define is {\define \x EXPR}.
type Define struct {
	Name  string
	Value Expr
}

// DefineFunc is {\define {\name PARAM...} EXPR...}.
type DefineFunc struct {
	Name   string
	Params []Param
	Body   []Expr
}

// Set is {\set! \x EXPR}. Pos is the position of the target variable.
type Set struct {
	Name  string
	Pos   token.Pos
	Value Expr
}

type If struct {
	Test Expr
	Then Expr
	Else []Expr
}

type And struct {
	Exprs []Expr
}

type Or struct {
	Exprs []Expr
}

type CondClause struct {
	Test Expr
	Body []Expr
}

type Cond struct {
	Clauses []CondClause
}

type While struct {
	Test Expr
	Body []Expr
}

type Lambda struct {
	Params []Param
	Body   []Expr
}

type LetKind int

const (
	Plain LetKind = iota // bindings see only the enclosing scope
	Seq                  // let*: each binding sees the previous ones
	Rec                  // letrec: bindings see each other
)

type Let struct {
	Kind     LetKind
	Bindings []Binding
	Body     []Expr
}

type Binding struct {
	Name  string
	Value Expr
}

// Group is any {...} that matched no special form. Whether it is a call or a
// literal list depends on the runtime type of its first element, so the
// distinction is left to the generated code.
type Group struct {
	Items []Expr
}

// NamedArg is a \name=EXPR argument inside a group.
type NamedArg struct {
	Name  string
	Value Expr
}

type ParamKind int

const (
	Positional ParamKind = iota
	Named
	Rest
)

type Param struct {
	Name string
	Kind ParamKind
}

type Node interface {
	node()
}

type Expr interface {
	Node
	expr()
}

func (Wrapped) node()    {}
func (Text) node()       {}
func (VarRef) node()     {}
func (Define) node()     {}
func (DefineFunc) node() {}
func (Set) node()        {}
func (If) node()         {}
func (And) node()        {}
func (Or) node()         {}
func (Cond) node()       {}
func (While) node()      {}
func (Lambda) node()     {}
func (Let) node()        {}
func (Group) node()      {}
func (NamedArg) node()   {}

func (Wrapped) expr()    {}
func (Text) expr()       {}
func (VarRef) expr()     {}
func (Define) expr()     {}
func (DefineFunc) expr() {}
func (Set) expr()        {}
func (If) expr()         {}
func (And) expr()        {}
func (Or) expr()         {}
func (Cond) expr()       {}
func (While) expr()      {}
func (Lambda) expr()     {}
func (Let) expr()        {}
func (Group) expr()      {}
func (NamedArg) expr()   {}

// Unwrap strips whitespace wrappers until a non-wrapper is reached.
func Unwrap(e Expr) Expr {
	for {
		if w, ok := e.(Wrapped); ok {
			e = w.X
			continue
		}
		return e
	}
}
