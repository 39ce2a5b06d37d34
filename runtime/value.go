// Package runtime holds the value model shared by generated programs and by
// the tree utilities that render evaluated values back to text. Generated
// code imports it under the alias blatte.
package runtime

import (
	"fmt"
)

// Value is a scalar, an ordered sequence, a whitespace wrapper, or an opaque
// callable. A nil Value behaves as the empty list.
type Value interface {
	value()
}

// Text is an atomic scalar.
type Text string

// List is an ordered sequence. It is never flattened implicitly; nested
// lists stay nested until a consumer traverses them.
type List []Value

// Wrapped pairs a value with the whitespace that preceded it in the source.
type Wrapped struct {
	WS    string
	Inner Value
}

// Callable is the shape of every generated function: the named-argument
// mapping comes first (possibly empty), positional arguments follow in call
// order.
type Callable func(named Named, args ...Value) Value

type Named map[string]Value

// NamedArg marks a \name=EXPR argument at a call site. Group consumes it;
// it never appears inside an evaluated tree.
type NamedArg struct {
	Name  string
	Value Value
}

func (Text) value()     {}
func (List) value()     {}
func (Wrapped) value()  {}
func (Callable) value() {}
func (NamedArg) value() {}

// CallError reports an argument-binding failure inside a running generated
// program.
type CallError struct {
	Msg string
}

func (e CallError) Error() string {
	return e.Msg
}

// Group implements the list-or-call dispatch of a generic group. The
// decision depends on the runtime type of the first element: a callable gets
// the named-argument mapping and the remaining positional arguments; any
// other value yields a literal list of everything in written order, with
// named arguments contributing their values.
func Group(first Value, args ...Value) Value {
	var named = Named{}
	var positional = make([]Value, 0, len(args))
	for _, a := range args {
		if na, ok := a.(NamedArg); ok {
			named[na.Name] = na.Value
		} else {
			positional = append(positional, a)
		}
	}

	if f, ok := UnwrapWS(first).(Callable); ok {
		return f(named, positional...)
	}

	var items = make(List, 0, len(args)+1)
	items = append(items, first)
	for _, a := range args {
		if na, ok := a.(NamedArg); ok {
			items = append(items, na.Value)
		} else {
			items = append(items, a)
		}
	}
	return items
}

// BindArgs distributes a callable's positional arguments: the first npos go
// to the declared positional parameters, the remainder to the rest parameter
// in original order. Too few positionals, or surplus without a rest
// parameter, is an error of the running program.
func BindArgs(args []Value, npos int, hasRest bool) ([]Value, List) {
	if len(args) < npos {
		panic(CallError{Msg: fmt.Sprintf("call needs %d positional arguments, got %d", npos, len(args))})
	}
	if !hasRest && len(args) > npos {
		panic(CallError{Msg: fmt.Sprintf("call accepts %d positional arguments, got %d", npos, len(args))})
	}
	return args[:npos], List(args[npos:])
}
