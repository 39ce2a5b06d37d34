package runtime

import (
	"strings"
)

// VisitFunc receives the whitespace chosen for a scalar and the scalar's
// text. Its return value reports whether the scalar consumed the whitespace
// that was offered to it; once a visit consumes an explicitly supplied
// whitespace, later scalars fall back to their own wrappers.
type VisitFunc func(ws string, scalar string) bool

// Traverse walks an evaluated value tree depth first, left to right, and
// calls visit on every scalar. An explicitly supplied ws overrides wrapper
// whitespace until the first visit that consumes it; callables are never
// traversed into. The returned flag reports whether any visit consumed.
func Traverse(v Value, visit VisitFunc, ws ...string) bool {
	var forced *string
	if len(ws) > 0 {
		forced = &ws[0]
	}
	return traverse(v, visit, forced)
}

func traverse(v Value, visit VisitFunc, forced *string) bool {
	switch x := v.(type) {
	case nil:
		return false
	case Wrapped:
		if forced == nil {
			var w = x.WS
			forced = &w
		}
		return traverse(x.Inner, visit, forced)
	case List:
		if len(x) == 0 {
			return false
		}
		var consumed = traverse(x[0], visit, forced)
		for _, el := range x[1:] {
			if consumed {
				traverse(el, visit, nil)
			} else {
				consumed = traverse(el, visit, forced)
			}
		}
		return consumed
	case Callable:
		return false
	case NamedArg:
		return traverse(x.Value, visit, forced)
	case Text:
		var w string
		if forced != nil {
			w = *forced
		}
		return visit(w, string(x))
	default:
		return false
	}
}

// Flatten renders a value tree to text. The first scalar uses ws if
// supplied, otherwise its own wrapper's whitespace; every following scalar
// uses its own wrapper's whitespace.
func Flatten(v Value, ws ...string) string {
	var b strings.Builder
	Traverse(v, func(w, scalar string) bool {
		b.WriteString(w)
		b.WriteString(scalar)
		return true
	}, ws...)
	return b.String()
}

func WrapWS(ws string, v Value) Value {
	return Wrapped{WS: ws, Inner: v}
}

// UnwrapWS strips wrappers until a non-wrapper is reached.
func UnwrapWS(v Value) Value {
	for {
		if w, ok := v.(Wrapped); ok {
			v = w.Inner
			continue
		}
		return v
	}
}

// WSOf returns the immediate wrapper's whitespace, or "" if v is unwrapped.
func WSOf(v Value) string {
	if w, ok := v.(Wrapped); ok {
		return w.WS
	}
	return ""
}

// True unwraps v and reports its truth: exactly the numeral zero, the empty
// string, an empty sequence, and nil are false. A non-empty sequence is true
// regardless of its elements.
func True(v Value) bool {
	switch x := UnwrapWS(v).(type) {
	case nil:
		return false
	case Text:
		return x != "" && x != "0"
	case List:
		return len(x) > 0
	default:
		return true
	}
}
