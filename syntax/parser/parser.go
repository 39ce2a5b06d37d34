package parser

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/siadat/blatte/syntax/ast"
	"github.com/siadat/blatte/syntax/scanner"
	"github.com/siadat/blatte/syntax/token"
)

type ParseError struct {
	Msg string
	Pos token.Pos
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Parser holds only configuration; each call gets its own cursor, so a
// single instance may be shared freely across calls.
type Parser struct {
	debug bool
}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) SetDebug(v bool) {
	p.debug = v
}

var defaultOnce sync.Once
var defaultParser *Parser

// Default returns a shared parser with default configuration.
func Default() *Parser {
	defaultOnce.Do(func() {
		defaultParser = NewParser()
	})
	return defaultParser
}

// Parse consumes the leading expression of src and returns it fully wrapped
// in its preceding whitespace.
func (p *Parser) Parse(src io.Reader) (retExpr ast.Wrapped, retErr error) {
	defer recoverSyntaxError(&retErr)

	var s = p.newSession(src)
	retExpr = s.parseExpr()
	return
}

// ParseAll consumes the whole document as a sequence of expressions. A
// trailing whitespace run, which precedes no expression, is preserved as a
// wrapped empty word so that rendering the sequence reproduces the document.
func (p *Parser) ParseAll(src io.Reader) (retExprs []ast.Wrapped, retErr error) {
	defer recoverSyntaxError(&retErr)

	var s = p.newSession(src)
	for {
		var ws = s.takeSpace()
		if s.scanner.CurrToken().Typ == token.EOF {
			if ws != "" {
				retExprs = append(retExprs, ast.Wrapped{WS: ws, X: ast.Text{}})
			}
			return
		}
		retExprs = append(retExprs, ast.Wrapped{WS: ws, X: s.parsePrimary()})
	}
}

// ParseLeading consumes the leading expression of *buf and removes its text
// from the front of the buffer, so that repeated calls walk a stream of
// expressions.
func (p *Parser) ParseLeading(buf *string) (retExpr ast.Wrapped, retErr error) {
	defer recoverSyntaxError(&retErr)

	var s = p.newSession(strings.NewReader(*buf))
	retExpr = s.parseExpr()
	*buf = (*buf)[s.scanner.ByteOffset(s.scanner.CurrToken().Pos):]
	return
}

func recoverSyntaxError(retErr *error) {
	switch err := recover().(type) {
	case nil:
	case ParseError:
		*retErr = err
	case scanner.LexError:
		*retErr = err
	default:
		panic(err)
	}
}

func (p *Parser) newSession(src io.Reader) *session {
	var s = &session{scanner: scanner.NewScanner(src)}
	s.scanner.SetDebug(p.debug)
	s.proceed()
	return s
}

// session is the per-call parse state.
type session struct {
	scanner *scanner.Scanner
}

func (s *session) proceed() scanner.Token {
	var t, err = s.scanner.NextToken()
	if err != nil {
		panic(err)
	}
	return t
}

func (s *session) failf(pos int, layout string, args ...interface{}) {
	panic(ParseError{
		Msg: fmt.Sprintf(layout, args...),
		Pos: s.scanner.PosInfo(pos),
	})
}

// takeSpace consumes the current whitespace run, if any, and returns it.
func (s *session) takeSpace() string {
	if t := s.scanner.CurrToken(); t.Typ == token.SPACE {
		s.proceed()
		return t.Lit
	}
	return ""
}

func (s *session) expect(typ token.Token, what string) scanner.Token {
	var t = s.scanner.CurrToken()
	if t.Typ != typ {
		s.failf(t.Pos, "expected %s, got %s", what, t)
	}
	s.proceed()
	return t
}

func (s *session) parseExpr() ast.Wrapped {
	var ws = s.takeSpace()
	return ast.Wrapped{WS: ws, X: s.parsePrimary()}
}

func (s *session) parsePrimary() ast.Expr {
	switch t := s.scanner.CurrToken(); t.Typ {
	case token.WORD, token.STRING:
		s.proceed()
		return ast.Text{Lit: t.Lit}
	case token.VAR:
		s.proceed()
		return ast.VarRef{Name: t.Lit, Pos: s.scanner.PosInfo(t.Pos)}
	case token.LBRACE:
		return s.parseGroup()
	case token.NAMEDARG:
		s.failf(t.Pos, "named argument \\%s= is only allowed inside a call", t.Lit)
	case token.NAMEDPARAM, token.RESTPARAM:
		s.failf(t.Pos, "parameter syntax is only allowed inside a parameter list")
	case token.RBRACE:
		s.failf(t.Pos, "unmatched }")
	case token.EOF:
		s.failf(t.Pos, "unexpected end of input, expected an expression")
	}
	var t = s.scanner.CurrToken()
	s.failf(t.Pos, "unexpected %s", t)
	return nil
}

// parseGroup parses anything between { and }. A group whose first element is
// one of the special form keywords is parsed against that form's shape;
// everything else is a generic list-or-call group, disambiguated at run time.
func (s *session) parseGroup() ast.Expr {
	var lbrace = s.expect(token.LBRACE, "{")

	// Whitespace before a special form keyword is syntax and is dropped;
	// for a generic group it wraps the first element as usual.
	var ws = s.takeSpace()

	if t := s.scanner.CurrToken(); t.Typ == token.VAR {
		switch t.Lit {
		case "define":
			s.proceed()
			return s.parseDefine(lbrace)
		case "set!":
			s.proceed()
			return s.parseSet(lbrace)
		case "if":
			s.proceed()
			return s.parseIf(lbrace)
		case "and", "or":
			s.proceed()
			return s.parseAndOr(lbrace, t.Lit)
		case "cond":
			s.proceed()
			return s.parseCond(lbrace)
		case "while":
			s.proceed()
			return s.parseWhile(lbrace)
		case "lambda":
			s.proceed()
			return s.parseLambda(lbrace)
		case "let", "let*", "letrec":
			s.proceed()
			return s.parseLet(lbrace, t.Lit)
		}
	}

	var items []ast.Expr
	if t := s.scanner.CurrToken(); t.Typ == token.RBRACE {
		s.proceed()
		return ast.Group{}
	} else if t.Typ == token.NAMEDARG {
		s.failf(t.Pos, "named argument cannot start a group")
	}
	items = append(items, ast.Wrapped{WS: ws, X: s.parsePrimary()})
	items = append(items, s.parseSeq(lbrace, true)...)
	return ast.Group{Items: items}
}

// parseSeq parses expressions up to the closing brace. Named arguments are
// accepted only where allowNamed is set (generic groups).
func (s *session) parseSeq(lbrace scanner.Token, allowNamed bool) []ast.Expr {
	var items []ast.Expr
	for {
		var ws = s.takeSpace()
		switch t := s.scanner.CurrToken(); t.Typ {
		case token.RBRACE:
			s.proceed()
			return items
		case token.EOF:
			s.failf(lbrace.Pos, "expected matching }")
		case token.NAMEDARG:
			// whitespace before the marker is syntax; the value keeps
			// its own wrapper
			if !allowNamed {
				s.failf(t.Pos, "named argument \\%s= is only allowed inside a call", t.Lit)
			}
			s.proceed()
			items = append(items, ast.NamedArg{Name: t.Lit, Value: s.parseNamedValue(t)})
		default:
			items = append(items, ast.Wrapped{WS: ws, X: s.parsePrimary()})
		}
	}
}

func (s *session) parseNamedValue(arg scanner.Token) ast.Expr {
	switch t := s.scanner.CurrToken(); t.Typ {
	case token.RBRACE, token.EOF:
		s.failf(arg.Pos, "missing value for named argument \\%s=", arg.Lit)
	}
	return s.parseExpr()
}

func (s *session) parseDefine(lbrace scanner.Token) ast.Expr {
	s.takeSpace()
	switch t := s.scanner.CurrToken(); t.Typ {
	case token.VAR:
		s.proceed()
		var value = s.parseExpr()
		s.takeSpace()
		s.expect(token.RBRACE, "} to close define")
		return ast.Define{Name: t.Lit, Value: value}
	case token.LBRACE:
		s.proceed()
		s.takeSpace()
		var name = s.expect(token.VAR, "function name")
		var params = s.parseParams(lbrace)
		var body = s.parseSeq(lbrace, false)
		return ast.DefineFunc{Name: name.Lit, Params: params, Body: body}
	default:
		s.failf(t.Pos, "define expects a variable or a function header, got %s", t)
		return nil
	}
}

func (s *session) parseSet(lbrace scanner.Token) ast.Expr {
	s.takeSpace()
	var t = s.scanner.CurrToken()
	if t.Typ != token.VAR {
		s.failf(t.Pos, "set! target must be a variable reference, got %s", t)
	}
	s.proceed()
	var value = s.parseExpr()
	s.takeSpace()
	s.expect(token.RBRACE, "} to close set!")
	return ast.Set{Name: t.Lit, Pos: s.scanner.PosInfo(t.Pos), Value: value}
}

func (s *session) parseIf(lbrace scanner.Token) ast.Expr {
	var items = s.parseSeq(lbrace, false)
	if len(items) < 2 {
		s.failf(lbrace.Pos, "if requires a test and a then expression")
	}
	return ast.If{Test: items[0], Then: items[1], Else: items[2:]}
}

func (s *session) parseAndOr(lbrace scanner.Token, name string) ast.Expr {
	var items = s.parseSeq(lbrace, false)
	if len(items) == 0 {
		s.failf(lbrace.Pos, "%s requires at least one expression", name)
	}
	if name == "and" {
		return ast.And{Exprs: items}
	}
	return ast.Or{Exprs: items}
}

func (s *session) parseCond(lbrace scanner.Token) ast.Expr {
	var clauses []ast.CondClause
	for {
		s.takeSpace()
		switch t := s.scanner.CurrToken(); t.Typ {
		case token.RBRACE:
			s.proceed()
			return ast.Cond{Clauses: clauses}
		case token.LBRACE:
			s.proceed()
			var items = s.parseSeq(t, false)
			if len(items) == 0 {
				s.failf(t.Pos, "cond clause must be a non-empty group")
			}
			clauses = append(clauses, ast.CondClause{Test: items[0], Body: items[1:]})
		case token.EOF:
			s.failf(lbrace.Pos, "expected matching }")
		default:
			s.failf(t.Pos, "cond clause must be a non-empty group, got %s", t)
		}
	}
}

func (s *session) parseWhile(lbrace scanner.Token) ast.Expr {
	var items = s.parseSeq(lbrace, false)
	if len(items) == 0 {
		s.failf(lbrace.Pos, "while requires a test expression")
	}
	return ast.While{Test: items[0], Body: items[1:]}
}

func (s *session) parseLambda(lbrace scanner.Token) ast.Expr {
	s.takeSpace()
	s.expect(token.LBRACE, "{ to open the parameter list")
	var params = s.parseParams(lbrace)
	var body = s.parseSeq(lbrace, false)
	return ast.Lambda{Params: params, Body: body}
}

// parseParams reads parameter declarations up to the closing brace of the
// parameter list. At most one rest parameter is allowed and it must come
// last; duplicate names are rejected because the generated code would not
// compile.
func (s *session) parseParams(lbrace scanner.Token) []ast.Param {
	var params []ast.Param
	var seen = map[string]bool{}
	var restAt = -1
	for {
		s.takeSpace()
		var t = s.scanner.CurrToken()
		switch t.Typ {
		case token.RBRACE:
			s.proceed()
			if restAt >= 0 && restAt != len(params)-1 {
				s.failf(t.Pos, "rest parameter must be the final parameter")
			}
			return params
		case token.VAR:
			params = append(params, ast.Param{Name: t.Lit, Kind: ast.Positional})
		case token.NAMEDPARAM:
			params = append(params, ast.Param{Name: t.Lit, Kind: ast.Named})
		case token.RESTPARAM:
			if restAt >= 0 {
				s.failf(t.Pos, "duplicate rest parameter \\&%s", t.Lit)
			}
			restAt = len(params)
			params = append(params, ast.Param{Name: t.Lit, Kind: ast.Rest})
		case token.EOF:
			s.failf(lbrace.Pos, "expected matching }")
		default:
			s.failf(t.Pos, "malformed parameter list, got %s", t)
		}
		if seen[t.Lit] {
			s.failf(t.Pos, "duplicate parameter \\%s", t.Lit)
		}
		seen[t.Lit] = true
		s.proceed()
	}
}

func (s *session) parseLet(lbrace scanner.Token, name string) ast.Expr {
	var kind ast.LetKind
	switch name {
	case "let":
		kind = ast.Plain
	case "let*":
		kind = ast.Seq
	case "letrec":
		kind = ast.Rec
	}

	s.takeSpace()
	s.expect(token.LBRACE, "{ to open the binding list")

	var bindings []ast.Binding
	var seen = map[string]bool{}
	for {
		s.takeSpace()
		switch t := s.scanner.CurrToken(); t.Typ {
		case token.RBRACE:
			s.proceed()
			var body = s.parseSeq(lbrace, false)
			return ast.Let{Kind: kind, Bindings: bindings, Body: body}
		case token.LBRACE:
			s.proceed()
			s.takeSpace()
			var v = s.scanner.CurrToken()
			if v.Typ != token.VAR {
				s.failf(v.Pos, "binding pair must be {\\VAR VAL}, got %s", v)
			}
			if seen[v.Lit] {
				s.failf(v.Pos, "duplicate binding \\%s", v.Lit)
			}
			seen[v.Lit] = true
			s.proceed()
			var value = s.parseExpr()
			s.takeSpace()
			s.expect(token.RBRACE, "} to close the binding pair")
			bindings = append(bindings, ast.Binding{Name: v.Lit, Value: value})
		case token.EOF:
			s.failf(lbrace.Pos, "expected matching }")
		default:
			s.failf(t.Pos, "binding pair must be {\\VAR VAL}, got %s", t)
		}
	}
}
