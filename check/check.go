// Package check reports variable references that resolve to neither a
// binding in scope nor a predeclared name. It is advisory: generated code for
// an unresolved reference fails to compile anyway, but the report points at
// the document position instead of the generated Go.
package check

import (
	"fmt"

	"github.com/siadat/blatte/syntax/ast"
	"github.com/siadat/blatte/syntax/token"
)

// Ref is one unresolved reference.
type Ref struct {
	Name string
	Pos  token.Pos
}

func (r Ref) String() string {
	return fmt.Sprintf("%s: unresolved variable \\%s", r.Pos, r.Name)
}

type Checker struct {
	scopes     []map[string]bool
	unresolved []Ref
}

// NewChecker predeclares the given names in the outermost scope.
func NewChecker(known map[string]bool) *Checker {
	var outer = map[string]bool{}
	for name := range known {
		outer[name] = true
	}
	return &Checker{scopes: []map[string]bool{outer}}
}

// Unresolved walks a parsed document and returns its unresolved references
// in document order. Scoping mirrors the generated code: a define is visible
// from its own position onward within its body, let bindings are visible in
// the body only, let* values see earlier bindings, letrec values see all.
func (c *Checker) Unresolved(exprs []ast.Wrapped) []Ref {
	c.unresolved = nil
	c.push()
	for _, expr := range exprs {
		c.walkBodyItem(expr)
	}
	c.pop()
	return c.unresolved
}

func (c *Checker) push() {
	c.scopes = append(c.scopes, map[string]bool{})
}

func (c *Checker) pop() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *Checker) declare(name string) {
	c.scopes[len(c.scopes)-1][name] = true
}

func (c *Checker) resolve(name string, pos token.Pos) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i][name] {
			return
		}
	}
	c.unresolved = append(c.unresolved, Ref{Name: name, Pos: pos})
}

// walk visits an expression in value position; a declaration form here binds
// nothing outside itself.
func (c *Checker) walk(expr ast.Expr) {
	switch x := expr.(type) {
	case ast.Wrapped:
		c.walk(x.X)
	case ast.Text:
	case ast.VarRef:
		c.resolve(x.Name, x.Pos)
	case ast.Define, ast.DefineFunc, ast.Set:
		c.push()
		c.walkBodyItem(expr)
		c.pop()
	case ast.If:
		c.walk(x.Test)
		c.walk(x.Then)
		c.walkBody(x.Else)
	case ast.And:
		for _, e := range x.Exprs {
			c.walk(e)
		}
	case ast.Or:
		for _, e := range x.Exprs {
			c.walk(e)
		}
	case ast.Cond:
		for _, clause := range x.Clauses {
			c.walk(clause.Test)
			c.walkBody(clause.Body)
		}
	case ast.While:
		c.walk(x.Test)
		c.walkBody(x.Body)
	case ast.Lambda:
		c.push()
		for _, param := range x.Params {
			c.declare(param.Name)
		}
		c.walkBody(x.Body)
		c.pop()
	case ast.Let:
		c.walkLet(x)
	case ast.Group:
		for _, item := range x.Items {
			c.walk(item)
		}
	case ast.NamedArg:
		c.walk(x.Value)
	}
}

// walkBody visits a sequence in which declaration forms bind the items after
// them.
func (c *Checker) walkBody(items []ast.Expr) {
	c.push()
	for _, item := range items {
		c.walkBodyItem(item)
	}
	c.pop()
}

func (c *Checker) walkBodyItem(item ast.Expr) {
	switch x := ast.Unwrap(item).(type) {
	case ast.Define:
		// declared before the value is walked, so self-reference resolves
		c.declare(x.Name)
		c.walk(x.Value)
	case ast.DefineFunc:
		c.declare(x.Name)
		c.push()
		for _, param := range x.Params {
			c.declare(param.Name)
		}
		c.walkBody(x.Body)
		c.pop()
	case ast.Set:
		c.resolve(x.Name, x.Pos)
		c.walk(x.Value)
	default:
		c.walk(item)
	}
}

func (c *Checker) walkLet(x ast.Let) {
	switch x.Kind {
	case ast.Seq:
		c.push()
		for _, binding := range x.Bindings {
			c.walk(binding.Value)
			c.declare(binding.Name)
		}
		c.walkBody(x.Body)
		c.pop()
	case ast.Rec:
		c.push()
		for _, binding := range x.Bindings {
			c.declare(binding.Name)
		}
		for _, binding := range x.Bindings {
			c.walk(binding.Value)
		}
		c.walkBody(x.Body)
		c.pop()
	default:
		for _, binding := range x.Bindings {
			c.walk(binding.Value)
		}
		c.push()
		for _, binding := range x.Bindings {
			c.declare(binding.Name)
		}
		c.walkBody(x.Body)
		c.pop()
	}
}
