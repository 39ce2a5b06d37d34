package token

import (
	"fmt"
	"strconv"
)

type Token int

const (
	ILLEGAL Token = iota
	EOF
	SPACE // a verbatim whitespace run

	literal_beg
	WORD   // plain text, metacharacter escapes resolved
	STRING // \"...\" delimited, escapes resolved
	literal_end

	LBRACE // {
	RBRACE // }

	// backslash-introduced tokens
	VAR        // \ident
	NAMEDARG   // \ident=
	NAMEDPARAM // \=ident
	RESTPARAM  // \&ident
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",

	EOF:   "EOF",
	SPACE: "SPACE",

	WORD:   "WORD",
	STRING: "STRING",

	LBRACE: "LBRACE",
	RBRACE: "RBRACE",

	VAR:        "VAR",
	NAMEDARG:   "NAMEDARG",
	NAMEDPARAM: "NAMEDPARAM",
	RESTPARAM:  "RESTPARAM",
}

func (tok Token) String() string {
	var s = ""
	if 0 <= tok && tok < Token(len(tokens)) {
		s = tokens[tok]
	}
	if s == "" {
		s = "token(" + strconv.Itoa(int(tok)) + ")"
	}
	return s
}

// IsLiteral reports whether the token carries document text.
func (tok Token) IsLiteral() bool {
	return literal_beg < tok && tok < literal_end
}

// Pos is a byte offset into the source with a derived 1-based line and
// column for error reporting.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
