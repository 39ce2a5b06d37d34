// Package builtins provides the standard callables a compiled document may
// reference. Every entry has the generated calling convention, so a document
// calls a builtin exactly the way it calls its own lambdas.
//
// Text arguments are flattened before use; numeric builtins parse the
// flattened text as a decimal number. Comparison and logic results are the
// texts "1" and "0", which are the canonical true and false scalars.
package builtins

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/siadat/blatte/runtime"
)

// Table returns the name to callable registry. The keys are lexable
// identifiers, so every builtin can be referenced as \name in a document.
func Table() map[string]runtime.Callable {
	return map[string]runtime.Callable{
		"concat":  concat,
		"flatten": flatten,
		"list":    list,
		"length":  length,
		"nth":     nth,
		"reverse": reverse,
		"join":    join,
		"split":   split,
		"uc":      uc,
		"lc":      lc,
		"repeat":  repeat,
		"add":     add,
		"sub":     sub,
		"mul":     mul,
		"div":     div,
		"mod":     mod,
		"eq":      compare("eq", func(a, b float64) bool { return a == b }),
		"ne":      compare("ne", func(a, b float64) bool { return a != b }),
		"lt":      compare("lt", func(a, b float64) bool { return a < b }),
		"gt":      compare("gt", func(a, b float64) bool { return a > b }),
		"le":      compare("le", func(a, b float64) bool { return a <= b }),
		"ge":      compare("ge", func(a, b float64) bool { return a >= b }),
		"not":     not,
		"streq":   streq,
		"quote":   quote,
	}
}

func failf(layout string, args ...interface{}) {
	panic(runtime.CallError{Msg: fmt.Sprintf(layout, args...)})
}

// wantArgs checks the argument count; max < 0 means unbounded.
func wantArgs(name string, args []runtime.Value, min, max int) {
	if len(args) < min || (max >= 0 && len(args) > max) {
		failf("%s: wrong number of arguments: %d", name, len(args))
	}
}

// text renders one argument, dropping the whitespace wrapper that separated
// it from the previous argument at the call site.
func text(v runtime.Value) string {
	return runtime.Flatten(runtime.UnwrapWS(v))
}

func number(name string, v runtime.Value) float64 {
	var s = strings.TrimSpace(text(v))
	var f, err = strconv.ParseFloat(s, 64)
	if err != nil {
		failf("%s: not a number: %q", name, s)
	}
	return f
}

func formatNumber(f float64) runtime.Text {
	return runtime.Text(strconv.FormatFloat(f, 'f', -1, 64))
}

func boolean(v bool) runtime.Text {
	if v {
		return runtime.Text("1")
	}
	return runtime.Text("0")
}

// seq views one argument as a sequence: a list is itself, nil is empty, and
// a scalar is a one-item sequence.
func seq(v runtime.Value) runtime.List {
	switch x := runtime.UnwrapWS(v).(type) {
	case nil:
		return nil
	case runtime.List:
		return x
	default:
		return runtime.List{x}
	}
}

func concat(named runtime.Named, args ...runtime.Value) runtime.Value {
	var b strings.Builder
	for _, arg := range args {
		b.WriteString(text(arg))
	}
	return runtime.Text(b.String())
}

// flatten keeps the whitespace between its arguments, unlike concat.
func flatten(named runtime.Named, args ...runtime.Value) runtime.Value {
	return runtime.Text(runtime.Flatten(runtime.List(args), ""))
}

func list(named runtime.Named, args ...runtime.Value) runtime.Value {
	return runtime.List(args)
}

func length(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("length", args, 1, 1)
	return formatNumber(float64(len(seq(args[0]))))
}

func nth(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("nth", args, 2, 2)
	var idx = int(number("nth", args[0]))
	var items = seq(args[1])
	if idx < 0 || idx >= len(items) {
		failf("nth: index %d out of range for %d items", idx, len(items))
	}
	return items[idx]
}

func reverse(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("reverse", args, 1, 1)
	var items = seq(args[0])
	var out = make(runtime.List, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return out
}

func join(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("join", args, 1, 1)
	var sep = ""
	if v, ok := named["sep"]; ok {
		sep = text(v)
	}
	var parts []string
	for _, item := range seq(args[0]) {
		parts = append(parts, text(item))
	}
	return runtime.Text(strings.Join(parts, sep))
}

// split cuts on the \sep= text, or on whitespace runs when no separator is
// given.
func split(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("split", args, 1, 1)
	var s = text(args[0])
	var parts []string
	if v, ok := named["sep"]; ok {
		parts = strings.Split(s, text(v))
	} else {
		parts = strings.Fields(s)
	}
	var out = make(runtime.List, 0, len(parts))
	for _, part := range parts {
		out = append(out, runtime.Text(part))
	}
	return out
}

func uc(named runtime.Named, args ...runtime.Value) runtime.Value {
	return runtime.Text(strings.ToUpper(concatText(args)))
}

func lc(named runtime.Named, args ...runtime.Value) runtime.Value {
	return runtime.Text(strings.ToLower(concatText(args)))
}

func concatText(args []runtime.Value) string {
	var b strings.Builder
	for _, arg := range args {
		b.WriteString(text(arg))
	}
	return b.String()
}

func repeat(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("repeat", args, 2, 2)
	var n = int(number("repeat", args[0]))
	if n < 0 {
		failf("repeat: negative count %d", n)
	}
	var out = make(runtime.List, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, runtime.UnwrapWS(args[1]))
	}
	return out
}

func add(named runtime.Named, args ...runtime.Value) runtime.Value {
	var sum = 0.0
	for _, arg := range args {
		sum += number("add", arg)
	}
	return formatNumber(sum)
}

// sub subtracts the remaining arguments from the first; a single argument is
// negated.
func sub(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("sub", args, 1, -1)
	var acc = number("sub", args[0])
	if len(args) == 1 {
		return formatNumber(-acc)
	}
	for _, arg := range args[1:] {
		acc -= number("sub", arg)
	}
	return formatNumber(acc)
}

func mul(named runtime.Named, args ...runtime.Value) runtime.Value {
	var product = 1.0
	for _, arg := range args {
		product *= number("mul", arg)
	}
	return formatNumber(product)
}

func div(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("div", args, 2, -1)
	var acc = number("div", args[0])
	for _, arg := range args[1:] {
		var d = number("div", arg)
		if d == 0 {
			failf("div: division by zero")
		}
		acc /= d
	}
	return formatNumber(acc)
}

func mod(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("mod", args, 2, 2)
	var d = number("mod", args[1])
	if d == 0 {
		failf("mod: division by zero")
	}
	return formatNumber(math.Mod(number("mod", args[0]), d))
}

// compare builds a chained comparison: every adjacent pair must satisfy cmp.
func compare(name string, cmp func(a, b float64) bool) runtime.Callable {
	return func(named runtime.Named, args ...runtime.Value) runtime.Value {
		wantArgs(name, args, 2, -1)
		var prev = number(name, args[0])
		for _, arg := range args[1:] {
			var next = number(name, arg)
			if !cmp(prev, next) {
				return boolean(false)
			}
			prev = next
		}
		return boolean(true)
	}
}

func not(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("not", args, 1, 1)
	return boolean(!runtime.True(args[0]))
}

// quote escapes its flattened argument so that re-reading the result as a
// document reproduces the text.
func quote(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("quote", args, 1, 1)
	return runtime.Text(runtime.Quote(text(args[0])))
}

func streq(named runtime.Named, args ...runtime.Value) runtime.Value {
	wantArgs("streq", args, 2, -1)
	var first = text(args[0])
	for _, arg := range args[1:] {
		if text(arg) != first {
			return boolean(false)
		}
	}
	return boolean(true)
}
