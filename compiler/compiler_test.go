package compiler_test

import (
	"strings"
	"testing"

	"github.com/siadat/blatte/compiler"
	"github.com/siadat/blatte/runtime"
	"github.com/siadat/blatte/syntax/ast"
	"github.com/siadat/blatte/syntax/parser"
)

func generate(tt *testing.T, src string) string {
	tt.Helper()
	var expr, parseErr = parser.Default().Parse(strings.NewReader(src))
	if parseErr != nil {
		tt.Fatalf("Parse(%q) failed: %v", src, parseErr)
	}
	var code, genErr = compiler.NewGenerator().Generate(expr)
	if genErr != nil {
		tt.Fatalf("Generate(%q) failed: %v", src, genErr)
	}
	return code
}

func TestGenerate(tt *testing.T) {
	var testCases = []struct {
		src  string
		want string
	}{
		{
			src:  `hello`,
			want: `blatte.Text("hello")`,
		},
		{
			src:  "  hi",
			want: `blatte.WrapWS("  ", blatte.Text("hi"))`,
		},
		{
			src:  `\x`,
			want: `b_x`,
		},
		{
			src:  `{}`,
			want: `blatte.List{}`,
		},
		{
			src: `{a b}`,
			want: `blatte.Group(
	blatte.Text("a"),
	blatte.WrapWS(" ", blatte.Text("b")),
)`,
		},
		{
			src: `{\f \sep= ,}`,
			want: `blatte.Group(
	b_f,
	blatte.NamedArg{Name: "sep", Value: blatte.WrapWS(" ", blatte.Text(","))},
)`,
		},
		{
			src: `{\define \x 1}`,
			want: `var b_x blatte.Value
b_x = blatte.WrapWS(" ", blatte.Text("1"))
_ = b_x`,
		},
		{
			src: `{\set! \x 2}`,
			want: `b_x = blatte.WrapWS(" ", blatte.Text("2"))`,
		},
		{
			src: `{\if \t a b}`,
			want: `func() blatte.Value {
	if blatte.True(blatte.WrapWS(" ", b_t)) {
		return blatte.WrapWS(" ", blatte.Text("a"))
	}
	return blatte.WrapWS(" ", blatte.Text("b"))
}()`,
		},
		{
			src: `{\and \a \b}`,
			want: `func() blatte.Value {
	var v blatte.Value
	v = blatte.WrapWS(" ", b_a)
	if !blatte.True(v) {
		return v
	}
	v = blatte.WrapWS(" ", b_b)
	return v
}()`,
		},
		{
			src: `{\or \a}`,
			want: `func() blatte.Value {
	var v blatte.Value
	v = blatte.WrapWS(" ", b_a)
	return v
}()`,
		},
		{
			src: `{\cond {\t} {\u x}}`,
			want: `func() blatte.Value {
	if v := b_t; blatte.True(v) {
		return v
	}
	if blatte.True(b_u) {
		return blatte.WrapWS(" ", blatte.Text("x"))
	}
	return blatte.List{}
}()`,
		},
		{
			src: `{\while \t x}`,
			want: `func() blatte.Value {
	var acc blatte.List
	for blatte.True(blatte.WrapWS(" ", b_t)) {
		acc = append(acc, blatte.WrapWS(" ", blatte.Text("x")))
	}
	return acc
}()`,
		},
		{
			src: `{\lambda {\a \&r} \a}`,
			want: `blatte.Callable(func(named blatte.Named, args ...blatte.Value) blatte.Value {
	var pos, rest = blatte.BindArgs(args, 1, true)
	var b_a blatte.Value = pos[0]
	var b_r blatte.Value = rest
	_, _ = b_a, b_r
	return blatte.WrapWS(" ", b_a)
})`,
		},
		{
			src: `{\lambda {\=opt} \opt}`,
			want: `blatte.Callable(func(named blatte.Named, args ...blatte.Value) blatte.Value {
	var _, _ = blatte.BindArgs(args, 0, false)
	var b_opt blatte.Value = named["opt"]
	_ = b_opt
	return blatte.WrapWS(" ", b_opt)
})`,
		},
		{
			src: `{\let {{\a 1}} \a}`,
			want: `func(b_a blatte.Value) blatte.Value {
	return blatte.WrapWS(" ", b_a)
}(blatte.WrapWS(" ", blatte.Text("1")))`,
		},
		{
			src: `{\let* {{\a 1} {\b \a}} \b}`,
			want: `func(b_a blatte.Value) blatte.Value {
	return func(b_b blatte.Value) blatte.Value {
		return blatte.WrapWS(" ", b_b)
	}(blatte.WrapWS(" ", b_a))
}(blatte.WrapWS(" ", blatte.Text("1")))`,
		},
		{
			src: `{\letrec {{\f \g} {\g 1}} \f}`,
			want: `func() blatte.Value {
	var b_f, b_g blatte.Value
	b_f = blatte.WrapWS(" ", b_g)
	b_g = blatte.WrapWS(" ", blatte.Text("1"))
	_, _ = b_f, b_g
	return blatte.WrapWS(" ", b_f)
}()`,
		},
		{
			// a define mid-body becomes a statement; remaining values are
			// captured in evaluation order
			src: `{\lambda {} a {\define \x 1} \x}`,
			want: `blatte.Callable(func(named blatte.Named, args ...blatte.Value) blatte.Value {
	var _, _ = blatte.BindArgs(args, 0, false)
	var v0 = blatte.WrapWS(" ", blatte.Text("a"))
	var b_x blatte.Value
	b_x = blatte.WrapWS(" ", blatte.Text("1"))
	_ = b_x
	var v1 = blatte.WrapWS(" ", b_x)
	return blatte.List{v0, v1}
})`,
		},
		{
			// a declaration form in expression position yields the empty list
			src: `{\if \t {\set! \x 1} b}`,
			want: `func() blatte.Value {
	if blatte.True(blatte.WrapWS(" ", b_t)) {
		return blatte.WrapWS(" ", func() blatte.Value {
			b_x = blatte.WrapWS(" ", blatte.Text("1"))
			return blatte.List{}
		}())
	}
	return blatte.WrapWS(" ", blatte.Text("b"))
}()`,
		},
	}

	for _, tc := range testCases {
		var got = generate(tt, tc.src)
		if got != tc.want {
			tt.Fatalf("Generate(%q) =\n%s\nwant:\n%s", tc.src, got, tc.want)
		}
	}
}

func TestGenerateRedefine(tt *testing.T) {
	var testCases = []struct {
		src  string
		want string
	}{
		{
			// a second define of the same name in one body assigns to the
			// first declaration
			src: `{\lambda {} {\define \x 1} {\define \x 2} \x}`,
			want: `blatte.Callable(func(named blatte.Named, args ...blatte.Value) blatte.Value {
	var _, _ = blatte.BindArgs(args, 0, false)
	var b_x blatte.Value
	b_x = blatte.WrapWS(" ", blatte.Text("1"))
	_ = b_x
	b_x = blatte.WrapWS(" ", blatte.Text("2"))
	var v0 = blatte.WrapWS(" ", b_x)
	return v0
})`,
		},
		{
			// defining a parameter's name assigns to the parameter
			src: `{\lambda {\a} {\define \a 1} \a}`,
			want: `blatte.Callable(func(named blatte.Named, args ...blatte.Value) blatte.Value {
	var pos, _ = blatte.BindArgs(args, 1, false)
	var b_a blatte.Value = pos[0]
	_ = b_a
	b_a = blatte.WrapWS(" ", blatte.Text("1"))
	var v0 = blatte.WrapWS(" ", b_a)
	return v0
})`,
		},
		{
			// defining a let binding's name assigns to the binding
			src: `{\let {{\a 1}} {\define \a 2} \a}`,
			want: `func(b_a blatte.Value) blatte.Value {
	b_a = blatte.WrapWS(" ", blatte.Text("2"))
	var v0 = blatte.WrapWS(" ", b_a)
	return v0
}(blatte.WrapWS(" ", blatte.Text("1")))`,
		},
	}

	for _, tc := range testCases {
		var got = generate(tt, tc.src)
		if got != tc.want {
			tt.Fatalf("Generate(%q) =\n%s\nwant:\n%s", tc.src, got, tc.want)
		}
	}
}

func TestParseDocumentRedefine(tt *testing.T) {
	var codes, err = compiler.ParseDocument(strings.NewReader(`{\define \x 1}{\define \x 2}`))
	if err != nil {
		tt.Fatalf("ParseDocument failed: %v", err)
	}
	var want = []string{
		`var b_x blatte.Value
b_x = blatte.WrapWS(" ", blatte.Text("1"))
_ = b_x`,
		`b_x = blatte.WrapWS(" ", blatte.Text("2"))`,
	}
	if len(codes) != len(want) {
		tt.Fatalf("ParseDocument = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			tt.Fatalf("ParseDocument[%d] =\n%s\nwant:\n%s", i, codes[i], want[i])
		}
	}
}

func TestPredeclare(tt *testing.T) {
	var expr, parseErr = parser.Default().Parse(strings.NewReader(`{\define \uc shadowed}`))
	if parseErr != nil {
		tt.Fatalf("Parse failed: %v", parseErr)
	}
	var g = compiler.NewGenerator()
	g.Predeclare("uc")
	var code, genErr = g.Generate(expr)
	if genErr != nil {
		tt.Fatalf("Generate failed: %v", genErr)
	}
	var want = `b_uc = blatte.WrapWS(" ", blatte.Text("shadowed"))`
	if code != want {
		tt.Fatalf("Generate =\n%s\nwant:\n%s", code, want)
	}
}

func TestMangle(tt *testing.T) {
	var testCases = []struct {
		name string
		want string
	}{
		{name: "x", want: "b_x"},
		{name: "set!", want: "b_set_b"},
		{name: "let*", want: "b_let_s"},
		{name: "a_b", want: "b_a__b"},
		{name: "camelCase9", want: "b_camelCase9"},
	}
	for _, tc := range testCases {
		if got := compiler.Mangle(tc.name); got != tc.want {
			tt.Fatalf("Mangle(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}

	// the underscore escape keeps distinct names distinct
	if compiler.Mangle("a_b") == compiler.Mangle("a__b") ||
		compiler.Mangle("set!") == compiler.Mangle("set_b") {
		tt.Fatal("Mangle is not injective")
	}
}

func TestParseConsumesLeading(tt *testing.T) {
	var buf = `\x tail`
	var code, err = compiler.Parse(&buf)
	if err != nil {
		tt.Fatalf("Parse failed: %v", err)
	}
	if code != "b_x" {
		tt.Fatalf("Parse = %q, want %q", code, "b_x")
	}
	if buf != " tail" {
		tt.Fatalf("buffer after Parse = %q, want %q", buf, " tail")
	}
}

func TestParseDocument(tt *testing.T) {
	var codes, err = compiler.ParseDocument(strings.NewReader("a b"))
	if err != nil {
		tt.Fatalf("ParseDocument failed: %v", err)
	}
	var want = []string{
		`blatte.Text("a")`,
		`blatte.WrapWS(" ", blatte.Text("b"))`,
	}
	if len(codes) != len(want) {
		tt.Fatalf("ParseDocument = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			tt.Fatalf("ParseDocument[%d] = %q, want %q", i, codes[i], want[i])
		}
	}
}

func TestGenerateErrors(tt *testing.T) {
	var _, err = compiler.NewGenerator().Generate(ast.NamedArg{Name: "x"})
	if err == nil {
		tt.Fatal("Generate succeeded on a stray named argument, want error")
	}
	if _, ok := err.(compiler.CodeGenError); !ok {
		tt.Fatalf("Generate error is %T, want CodeGenError", err)
	}
}

// toValue mirrors what evaluating the generated code yields for documents
// made of literals only, so rendering round trips can be checked without
// running the generated program.
func toValue(tt *testing.T, expr ast.Expr) runtime.Value {
	tt.Helper()
	switch x := expr.(type) {
	case ast.Wrapped:
		return runtime.WrapWS(x.WS, toValue(tt, x.X))
	case ast.Text:
		return runtime.Text(x.Lit)
	case ast.Group:
		var items = make(runtime.List, 0, len(x.Items))
		for _, item := range x.Items {
			items = append(items, toValue(tt, item))
		}
		return items
	}
	tt.Fatalf("unexpected node %T in a literal document", expr)
	return nil
}

func TestLiteralRoundTrip(tt *testing.T) {
	var testCases = []struct {
		doc  string
		want string
	}{
		{doc: "hello world", want: "hello world"},
		{doc: "a  {b \t c}\nd", want: "a  b \t c\nd"},
		{doc: "{{x}}", want: "x"},
		{doc: "A \\/B", want: "AB"},
		{doc: "A \\; note\n B", want: "A \n B"},
		{doc: "tail  \n", want: "tail  \n"},
	}

	for _, tc := range testCases {
		var exprs, err = parser.Default().ParseAll(strings.NewReader(tc.doc))
		if err != nil {
			tt.Fatalf("ParseAll(%q) failed: %v", tc.doc, err)
		}
		var b strings.Builder
		for _, expr := range exprs {
			b.WriteString(runtime.Flatten(toValue(tt, expr)))
		}
		if got := b.String(); got != tc.want {
			tt.Fatalf("render(%q) = %q, want %q", tc.doc, got, tc.want)
		}
	}
}
