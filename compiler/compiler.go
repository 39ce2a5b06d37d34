// Package compiler turns parsed expressions into Go source text. The
// generated text is never executed here; running it is the caller's concern.
//
// Every form has exactly one translation template, addressed to the runtime
// package under the import alias blatte:
//
//	word, string      blatte.Text("...")
//	whitespace        blatte.WrapWS("...", X)        (omitted when empty)
//	\x                b_x                            (injective mangling)
//	{\define \x E}    var b_x blatte.Value; b_x = E  (statements; a redefine assigns only)
//	{\define {\f P} B}  same, with a blatte.Callable func literal
//	{\set! \x E}      b_x = E                        (statement)
//	{\if T THEN E...} func literal using Go if
//	{\and E...}       func literal, stops at the first false value
//	{\or E...}        func literal, stops at the first true value
//	{\cond {T B}...}  func literal, chain of Go ifs
//	{\while T B...}   func literal, Go for loop accumulating a list
//	{\lambda {P} B}   blatte.Callable(func(named blatte.Named, args ...blatte.Value) blatte.Value)
//	{\let ...}        func literal with parameters    (let* nests, letrec declares first)
//	{E1 E2 ...}       blatte.Group(E1, E2, ...)       (list-or-call decided at run time)
//
// A define or set! in expression position is wrapped in a func literal and
// evaluates to the empty list. Generated callables receive the
// named-argument mapping first and bind positionals via blatte.BindArgs.
package compiler

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/siadat/blatte/erroring"
	"github.com/siadat/blatte/syntax/ast"
	"github.com/siadat/blatte/syntax/parser"
)

// RuntimeImport is the package generated code addresses as blatte.
const RuntimeImport = "github.com/siadat/blatte/runtime"
const RuntimeAlias = "blatte"

// CodeGenError reports a malformed node that slipped past parsing. It should
// be unreachable when the parser's contract is honored.
type CodeGenError struct {
	Msg string
}

func (e CodeGenError) Error() string {
	return e.Msg
}

// Parse consumes the leading expression of *buf, removes its text from the
// front of the buffer, and returns the generated Go source for it.
func Parse(buf *string) (string, error) {
	var expr, parseErr = parser.Default().ParseLeading(buf)
	if parseErr != nil {
		return "", parseErr
	}
	return NewGenerator().Generate(expr)
}

// ParseDocument parses src as a whole document and generates code for each
// of its top-level expressions.
func ParseDocument(src io.Reader) ([]string, error) {
	var exprs, parseErr = parser.Default().ParseAll(src)
	if parseErr != nil {
		return nil, parseErr
	}
	var g = NewGenerator()
	var out = make([]string, 0, len(exprs))
	for _, expr := range exprs {
		var code, err = g.Generate(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, nil
}

type Generator struct {
	indentLevel int

	// scopes tracks the names declared in each generated Go block, outermost
	// first. A define of a name already declared in the current block emits a
	// bare assignment, since a second var would not compile.
	scopes []map[string]bool
}

func NewGenerator() *Generator {
	return &Generator{scopes: []map[string]bool{{}}}
}

// Predeclare marks name as already bound in the program that surrounds the
// generated code, so a define of it assigns instead of redeclaring.
func (g *Generator) Predeclare(name string) {
	g.scopes[0][name] = true
}

// Generate returns Go source for one parsed expression: statements for the
// declaration forms (define, set!), an expression of type blatte.Value for
// everything else.
func (g *Generator) Generate(expr ast.Expr) (string, error) {
	return erroring.CallAndRecover[CodeGenError](func() string {
		g.indentLevel = 0
		g.scopes = g.scopes[:1] // the outermost scope survives across calls
		switch x := ast.Unwrap(expr).(type) {
		case ast.Define:
			return strings.Join(g.genDefine(x.Name, g.genExpr(x.Value)), "\n")
		case ast.DefineFunc:
			return strings.Join(g.genDefine(x.Name, g.genCallable(x.Params, x.Body)), "\n")
		case ast.Set:
			return fmt.Sprintf("%s = %s", Mangle(x.Name), g.genExpr(x.Value))
		default:
			return g.genExpr(expr)
		}
	})
}

// Mangle maps a source identifier to a Go identifier. The prefix keeps
// mangled names clear of Go keywords and the runtime alias; underscore is
// escaped so that the mapping stays injective.
func Mangle(name string) string {
	var b strings.Builder
	b.WriteString("b_")
	for _, ch := range name {
		switch ch {
		case '_':
			b.WriteString("__")
		case '!':
			b.WriteString("_b")
		case '*':
			b.WriteString("_s")
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

func (g *Generator) tab() string {
	return strings.Repeat("\t", g.indentLevel)
}

func (g *Generator) pushScope() {
	g.scopes = append(g.scopes, map[string]bool{})
}

func (g *Generator) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
}

// declare records name in the current scope and reports whether it was new.
func (g *Generator) declare(name string) bool {
	var scope = g.scopes[len(g.scopes)-1]
	if scope[name] {
		return false
	}
	scope[name] = true
	return true
}

func (g *Generator) failf(layout string, args ...interface{}) {
	panic(CodeGenError{Msg: fmt.Sprintf(layout, args...)})
}

// genExpr returns a Go expression. The first line carries no indentation;
// continuation lines are indented relative to the current level.
func (g *Generator) genExpr(expr ast.Expr) string {
	switch x := expr.(type) {
	case ast.Wrapped:
		var inner = g.genExpr(x.X)
		if x.WS == "" {
			return inner
		}
		return fmt.Sprintf("%s.WrapWS(%s, %s)", RuntimeAlias, strconv.Quote(x.WS), inner)
	case ast.Text:
		return fmt.Sprintf("%s.Text(%s)", RuntimeAlias, strconv.Quote(x.Lit))
	case ast.VarRef:
		return Mangle(x.Name)
	case ast.Define:
		g.pushScope()
		var stmts = g.genDefine(x.Name, g.genExpr(x.Value))
		g.popScope()
		return g.genStmtExpr(stmts)
	case ast.DefineFunc:
		g.pushScope()
		var stmts = g.genDefine(x.Name, g.genCallable(x.Params, x.Body))
		g.popScope()
		return g.genStmtExpr(stmts)
	case ast.Set:
		return g.genStmtExpr([]string{fmt.Sprintf("%s = %s", Mangle(x.Name), g.genExpr(x.Value))})
	case ast.If:
		return g.genIf(x)
	case ast.And:
		return g.genAndOr(x.Exprs, true)
	case ast.Or:
		return g.genAndOr(x.Exprs, false)
	case ast.Cond:
		return g.genCond(x)
	case ast.While:
		return g.genWhile(x)
	case ast.Lambda:
		return g.genCallable(x.Params, x.Body)
	case ast.Let:
		return g.genLet(x)
	case ast.Group:
		return g.genGroup(x)
	case ast.NamedArg:
		g.failf("named argument \\%s= outside a call", x.Name)
	case nil:
		g.failf("missing expression node")
	}
	g.failf("unexpected node %T", expr)
	return ""
}

// genDefine emits the declaration-then-assignment pair; declaring first lets
// a function definition refer to itself. Redefining a name that is already
// declared in the current scope assigns to the existing variable.
func (g *Generator) genDefine(name, value string) []string {
	var v = Mangle(name)
	if !g.declare(name) {
		return []string{fmt.Sprintf("%s = %s", v, value)}
	}
	return []string{
		fmt.Sprintf("var %s %s.Value", v, RuntimeAlias),
		fmt.Sprintf("%s = %s", v, value),
		fmt.Sprintf("_ = %s", v),
	}
}

// genStmtExpr hoists statements into expression position; the value of a
// declaration form is the empty list.
func (g *Generator) genStmtExpr(stmts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func() %s.Value {\n", RuntimeAlias)
	g.indentLevel += 1
	for _, stmt := range stmts {
		fmt.Fprintf(&b, "%s%s\n", g.tab(), stmt)
	}
	fmt.Fprintf(&b, "%sreturn %s.List{}\n", g.tab(), RuntimeAlias)
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s}()", g.tab())
	return b.String()
}

// genBody compiles an expression sequence: defines and set!s become
// statements, the remaining values are captured in evaluation order. One
// value yields itself, several yield a list, none the empty list.
func (g *Generator) genBody(items []ast.Expr) (stmts []string, value string) {
	var plain = true
	for _, item := range items {
		switch ast.Unwrap(item).(type) {
		case ast.Define, ast.DefineFunc, ast.Set:
			plain = false
		}
	}

	if plain {
		switch len(items) {
		case 0:
			return nil, fmt.Sprintf("%s.List{}", RuntimeAlias)
		case 1:
			return nil, g.genExpr(items[0])
		default:
			return nil, g.genList(items)
		}
	}

	var captured []string
	for _, item := range items {
		switch x := ast.Unwrap(item).(type) {
		case ast.Define:
			stmts = append(stmts, g.genDefine(x.Name, g.genExpr(x.Value))...)
		case ast.DefineFunc:
			stmts = append(stmts, g.genDefine(x.Name, g.genCallable(x.Params, x.Body))...)
		case ast.Set:
			stmts = append(stmts, fmt.Sprintf("%s = %s", Mangle(x.Name), g.genExpr(x.Value)))
		default:
			var v = fmt.Sprintf("v%d", len(captured))
			stmts = append(stmts, fmt.Sprintf("var %s = %s", v, g.genExpr(item)))
			captured = append(captured, v)
		}
	}
	switch len(captured) {
	case 0:
		return stmts, fmt.Sprintf("%s.List{}", RuntimeAlias)
	case 1:
		return stmts, captured[0]
	default:
		return stmts, fmt.Sprintf("%s.List{%s}", RuntimeAlias, strings.Join(captured, ", "))
	}
}

func (g *Generator) genList(items []ast.Expr) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.List{\n", RuntimeAlias)
	g.indentLevel += 1
	for _, item := range items {
		fmt.Fprintf(&b, "%s%s,\n", g.tab(), g.genExpr(item))
	}
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s}", g.tab())
	return b.String()
}

func (g *Generator) genIf(x ast.If) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func() %s.Value {\n", RuntimeAlias)
	g.indentLevel += 1
	g.pushScope()
	fmt.Fprintf(&b, "%sif %s.True(%s) {\n", g.tab(), RuntimeAlias, g.genExprIndented(x.Test))
	g.indentLevel += 1
	fmt.Fprintf(&b, "%sreturn %s\n", g.tab(), g.genExpr(x.Then))
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s}\n", g.tab())
	var stmts, value = g.genBody(x.Else)
	for _, stmt := range stmts {
		fmt.Fprintf(&b, "%s%s\n", g.tab(), stmt)
	}
	fmt.Fprintf(&b, "%sreturn %s\n", g.tab(), value)
	g.popScope()
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s}()", g.tab())
	return b.String()
}

// genExprIndented nudges the level so that a multi-line sub-expression
// embedded mid-line still lines up.
func (g *Generator) genExprIndented(expr ast.Expr) string {
	g.indentLevel += 1
	defer func() { g.indentLevel -= 1 }()
	return g.genExpr(expr)
}

func (g *Generator) genAndOr(exprs []ast.Expr, isAnd bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func() %s.Value {\n", RuntimeAlias)
	g.indentLevel += 1
	fmt.Fprintf(&b, "%svar v %s.Value\n", g.tab(), RuntimeAlias)
	for i, expr := range exprs {
		fmt.Fprintf(&b, "%sv = %s\n", g.tab(), g.genExpr(expr))
		if i == len(exprs)-1 {
			break
		}
		if isAnd {
			fmt.Fprintf(&b, "%sif !%s.True(v) {\n", g.tab(), RuntimeAlias)
		} else {
			fmt.Fprintf(&b, "%sif %s.True(v) {\n", g.tab(), RuntimeAlias)
		}
		g.indentLevel += 1
		fmt.Fprintf(&b, "%sreturn v\n", g.tab())
		g.indentLevel -= 1
		fmt.Fprintf(&b, "%s}\n", g.tab())
	}
	fmt.Fprintf(&b, "%sreturn v\n", g.tab())
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s}()", g.tab())
	return b.String()
}

func (g *Generator) genCond(x ast.Cond) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func() %s.Value {\n", RuntimeAlias)
	g.indentLevel += 1
	for _, clause := range x.Clauses {
		if len(clause.Body) == 0 {
			// a bare test is its own result
			fmt.Fprintf(&b, "%sif v := %s; %s.True(v) {\n", g.tab(), g.genExprIndented(clause.Test), RuntimeAlias)
			g.indentLevel += 1
			fmt.Fprintf(&b, "%sreturn v\n", g.tab())
			g.indentLevel -= 1
			fmt.Fprintf(&b, "%s}\n", g.tab())
			continue
		}
		fmt.Fprintf(&b, "%sif %s.True(%s) {\n", g.tab(), RuntimeAlias, g.genExprIndented(clause.Test))
		g.indentLevel += 1
		g.pushScope()
		var stmts, value = g.genBody(clause.Body)
		for _, stmt := range stmts {
			fmt.Fprintf(&b, "%s%s\n", g.tab(), stmt)
		}
		fmt.Fprintf(&b, "%sreturn %s\n", g.tab(), value)
		g.popScope()
		g.indentLevel -= 1
		fmt.Fprintf(&b, "%s}\n", g.tab())
	}
	fmt.Fprintf(&b, "%sreturn %s.List{}\n", g.tab(), RuntimeAlias)
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s}()", g.tab())
	return b.String()
}

func (g *Generator) genWhile(x ast.While) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func() %s.Value {\n", RuntimeAlias)
	g.indentLevel += 1
	fmt.Fprintf(&b, "%svar acc %s.List\n", g.tab(), RuntimeAlias)
	fmt.Fprintf(&b, "%sfor %s.True(%s) {\n", g.tab(), RuntimeAlias, g.genExprIndented(x.Test))
	g.indentLevel += 1
	g.pushScope()
	var stmts, value = g.genBody(x.Body)
	for _, stmt := range stmts {
		fmt.Fprintf(&b, "%s%s\n", g.tab(), stmt)
	}
	fmt.Fprintf(&b, "%sacc = append(acc, %s)\n", g.tab(), value)
	g.popScope()
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s}\n", g.tab())
	fmt.Fprintf(&b, "%sreturn acc\n", g.tab())
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s}()", g.tab())
	return b.String()
}

func (g *Generator) genCallable(params []ast.Param, body []ast.Expr) string {
	var npos = 0
	var hasRest = false
	for _, param := range params {
		switch param.Kind {
		case ast.Positional:
			npos += 1
		case ast.Rest:
			hasRest = true
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s.Callable(func(named %s.Named, args ...%s.Value) %s.Value {\n",
		RuntimeAlias, RuntimeAlias, RuntimeAlias, RuntimeAlias)
	g.indentLevel += 1
	g.pushScope()

	var posName, restName = "_", "_"
	if npos > 0 {
		posName = "pos"
	}
	if hasRest {
		restName = "rest"
	}
	fmt.Fprintf(&b, "%svar %s, %s = %s.BindArgs(args, %d, %v)\n",
		g.tab(), posName, restName, RuntimeAlias, npos, hasRest)

	var bound []string
	var posIdx = 0
	for _, param := range params {
		var v = Mangle(param.Name)
		g.declare(param.Name)
		switch param.Kind {
		case ast.Positional:
			fmt.Fprintf(&b, "%svar %s %s.Value = pos[%d]\n", g.tab(), v, RuntimeAlias, posIdx)
			posIdx += 1
		case ast.Named:
			fmt.Fprintf(&b, "%svar %s %s.Value = named[%s]\n", g.tab(), v, RuntimeAlias, strconv.Quote(param.Name))
		case ast.Rest:
			fmt.Fprintf(&b, "%svar %s %s.Value = rest\n", g.tab(), v, RuntimeAlias)
		}
		bound = append(bound, v)
	}
	if len(bound) > 0 {
		var blanks = strings.TrimSuffix(strings.Repeat("_, ", len(bound)), ", ")
		fmt.Fprintf(&b, "%s%s = %s\n", g.tab(), blanks, strings.Join(bound, ", "))
	}

	var stmts, value = g.genBody(body)
	for _, stmt := range stmts {
		fmt.Fprintf(&b, "%s%s\n", g.tab(), stmt)
	}
	fmt.Fprintf(&b, "%sreturn %s\n", g.tab(), value)
	g.popScope()
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s})", g.tab())
	return b.String()
}

func (g *Generator) genLet(x ast.Let) string {
	switch x.Kind {
	case ast.Seq:
		return g.genLetSeq(x.Bindings, x.Body)
	case ast.Rec:
		return g.genLetRec(x.Bindings, x.Body)
	}

	// plain let: values are evaluated before any binding is visible
	var names = make([]string, 0, len(x.Bindings))
	var values = make([]string, 0, len(x.Bindings))
	for _, binding := range x.Bindings {
		names = append(names, Mangle(binding.Name))
	}

	var b strings.Builder
	if len(names) == 0 {
		fmt.Fprintf(&b, "func() %s.Value {\n", RuntimeAlias)
	} else {
		fmt.Fprintf(&b, "func(%s %s.Value) %s.Value {\n", strings.Join(names, ", "), RuntimeAlias, RuntimeAlias)
	}
	g.indentLevel += 1
	g.pushScope()
	for _, binding := range x.Bindings {
		g.declare(binding.Name)
	}
	var stmts, value = g.genBody(x.Body)
	for _, stmt := range stmts {
		fmt.Fprintf(&b, "%s%s\n", g.tab(), stmt)
	}
	fmt.Fprintf(&b, "%sreturn %s\n", g.tab(), value)
	g.popScope()
	g.indentLevel -= 1
	for _, binding := range x.Bindings {
		values = append(values, g.genExpr(binding.Value))
	}
	fmt.Fprintf(&b, "%s}(%s)", g.tab(), strings.Join(values, ", "))
	return b.String()
}

// genLetSeq nests one func literal per binding so that each value sees the
// bindings before it, and a name may shadow an earlier one.
func (g *Generator) genLetSeq(bindings []ast.Binding, body []ast.Expr) string {
	if len(bindings) == 0 {
		return g.genLet(ast.Let{Kind: ast.Plain, Body: body})
	}

	var binding = bindings[0]
	var b strings.Builder
	fmt.Fprintf(&b, "func(%s %s.Value) %s.Value {\n", Mangle(binding.Name), RuntimeAlias, RuntimeAlias)
	g.indentLevel += 1
	g.pushScope()
	g.declare(binding.Name)
	if len(bindings) == 1 {
		var stmts, value = g.genBody(body)
		for _, stmt := range stmts {
			fmt.Fprintf(&b, "%s%s\n", g.tab(), stmt)
		}
		fmt.Fprintf(&b, "%sreturn %s\n", g.tab(), value)
	} else {
		fmt.Fprintf(&b, "%sreturn %s\n", g.tab(), g.genLetSeq(bindings[1:], body))
	}
	g.popScope()
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s}(%s)", g.tab(), g.genExpr(binding.Value))
	return b.String()
}

// genLetRec declares every binding before assigning any, so the values may
// refer to each other; a binding read before its assignment ran behaves as
// the empty list.
func (g *Generator) genLetRec(bindings []ast.Binding, body []ast.Expr) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func() %s.Value {\n", RuntimeAlias)
	g.indentLevel += 1
	g.pushScope()
	var names = make([]string, 0, len(bindings))
	for _, binding := range bindings {
		g.declare(binding.Name)
		names = append(names, Mangle(binding.Name))
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, "%svar %s %s.Value\n", g.tab(), strings.Join(names, ", "), RuntimeAlias)
	}
	for i, binding := range bindings {
		fmt.Fprintf(&b, "%s%s = %s\n", g.tab(), names[i], g.genExpr(binding.Value))
	}
	if len(names) > 0 {
		var blanks = strings.TrimSuffix(strings.Repeat("_, ", len(names)), ", ")
		fmt.Fprintf(&b, "%s%s = %s\n", g.tab(), blanks, strings.Join(names, ", "))
	}
	var stmts, value = g.genBody(body)
	for _, stmt := range stmts {
		fmt.Fprintf(&b, "%s%s\n", g.tab(), stmt)
	}
	fmt.Fprintf(&b, "%sreturn %s\n", g.tab(), value)
	g.popScope()
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s}()", g.tab())
	return b.String()
}

func (g *Generator) genGroup(x ast.Group) string {
	if len(x.Items) == 0 {
		return fmt.Sprintf("%s.List{}", RuntimeAlias)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s.Group(\n", RuntimeAlias)
	g.indentLevel += 1
	for _, item := range x.Items {
		if na, ok := item.(ast.NamedArg); ok {
			fmt.Fprintf(&b, "%s%s.NamedArg{Name: %s, Value: %s},\n",
				g.tab(), RuntimeAlias, strconv.Quote(na.Name), g.genExpr(na.Value))
			continue
		}
		fmt.Fprintf(&b, "%s%s,\n", g.tab(), g.genExpr(item))
	}
	g.indentLevel -= 1
	fmt.Fprintf(&b, "%s)", g.tab())
	return b.String()
}
