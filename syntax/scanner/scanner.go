package scanner

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/siadat/blatte/syntax/token"
)

// The scanner emits whitespace runs as ordinary tokens. Whether a whitespace
// run is kept or dropped is a decision made by the parser, not the scanner;
// the only exception is the forget marker (backslash slash), which cancels
// the run immediately before it here, so that no downstream component ever
// sees whitespace the author explicitly forgot.

type Scanner struct {
	src          []rune
	currToken    Token
	currRune     rune
	position     int
	readPosition int

	debug bool
}

type Token struct {
	Typ token.Token
	Lit string
	Pos int // rune offset into the source
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Typ, t.Lit)
}

// LexError is returned for inputs the tokenizer cannot classify: an
// unterminated string, a dangling backslash at end of input, or a backslash
// followed by a character with no assigned meaning.
type LexError struct {
	Msg string
	Pos token.Pos
}

func (e LexError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func NewScanner(src io.Reader) *Scanner {
	var s, err = io.ReadAll(src)
	if err != nil {
		panic(err)
	}
	var scanner = &Scanner{
		src: []rune(string(s)),
	}
	scanner.readRune()
	return scanner
}

func (s *Scanner) SetDebug(v bool) {
	s.debug = v
}

func (s *Scanner) Eof() bool {
	return s.currToken.Typ == token.EOF
}

func (s *Scanner) CurrToken() Token {
	return s.currToken
}

func (s *Scanner) readRune() {
	if s.readPosition >= len(s.src) {
		s.currRune = 0
	} else {
		s.currRune = s.src[s.readPosition]
	}
	s.position = s.readPosition
	s.readPosition += 1
}

func (s *Scanner) peekRune() rune {
	if s.readPosition >= len(s.src) {
		return 0
	}
	return s.src[s.readPosition]
}

// PosInfo derives the 1-based line and column of a rune offset.
func (s *Scanner) PosInfo(offset int) token.Pos {
	var line, column = 1, 1
	for i := 0; i < offset && i < len(s.src); i++ {
		if s.src[i] == '\n' {
			line += 1
			column = 1
		} else {
			column += 1
		}
	}
	return token.Pos{Offset: offset, Line: line, Column: column}
}

// ByteOffset converts a rune offset into a byte offset of the original text.
func (s *Scanner) ByteOffset(offset int) int {
	if offset > len(s.src) {
		offset = len(s.src)
	}
	return len(string(s.src[:offset]))
}

func (s *Scanner) errorf(offset int, layout string, args ...interface{}) error {
	return LexError{
		Msg: fmt.Sprintf(layout, args...),
		Pos: s.PosInfo(offset),
	}
}

func (s *Scanner) isWhitespace() bool {
	switch s.currRune {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func (s *Scanner) isIdentFirst() bool {
	var ch = s.currRune
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func (s *Scanner) isIdentMiddle() bool {
	var ch = s.currRune
	// ! and * appear in the form keywords set! and let*, and are allowed
	// in user identifiers the same way
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || (ch >= '0' && ch <= '9') || ch == '!' || ch == '*'
}

func (s *Scanner) isWordRune() bool {
	switch s.currRune {
	case '\\', '{', '}',
		' ', '\t', '\n', '\r',
		0:
		return false
	}
	return true
}

func (s *Scanner) readIdentifier() string {
	var position = s.position
	s.readRune()
	for s.isIdentMiddle() {
		s.readRune()
	}
	return string(s.src[position:s.position])
}

func (s *Scanner) readWhitespace() string {
	var position = s.position
	for s.isWhitespace() {
		s.readRune()
	}
	return string(s.src[position:s.position])
}

// readComment consumes a line comment up to, but not including, the line
// ending, so that the newline joins the surrounding whitespace run.
func (s *Scanner) readComment() {
	s.readRune() // backslash
	s.readRune() // semicolon
	for s.currRune != '\n' && s.currRune != 0 {
		s.readRune()
	}
}

func (s *Scanner) readWord() (Token, error) {
	var position = s.position
	var b strings.Builder
	for {
		if s.isWordRune() {
			b.WriteRune(s.currRune)
			s.readRune()
			continue
		}
		if s.currRune == '\\' {
			switch s.peekRune() {
			case '\\', '{', '}':
				s.readRune()
				b.WriteRune(s.currRune)
				s.readRune()
				continue
			}
		}
		return Token{token.WORD, b.String(), position}, nil
	}
}

func (s *Scanner) readString() (Token, error) {
	var position = s.position
	s.readRune() // backslash
	s.readRune() // double quote
	var b strings.Builder
	for {
		switch s.currRune {
		case 0:
			return Token{}, s.errorf(position, "unterminated string")
		case '\\':
			switch s.peekRune() {
			case '"':
				s.readRune()
				s.readRune()
				return Token{token.STRING, b.String(), position}, nil
			case '\\':
				s.readRune()
				b.WriteRune(s.currRune)
				s.readRune()
			case 0:
				return Token{}, s.errorf(position, "unterminated string")
			default:
				return Token{}, s.errorf(s.position, "illegal escape \\%c in string", s.peekRune())
			}
		default:
			b.WriteRune(s.currRune)
			s.readRune()
		}
	}
}

func (s *Scanner) NextToken() (Token, error) {
	var t, err = s.nextToken()
	s.currToken = t
	if s.debug {
		s.PrintCursor("[debug]")
	}
	return t, err
}

func (s *Scanner) nextToken() (Token, error) {
	// Whitespace runs, comments and forget markers interleave freely.
	// Comments are consumed without breaking the run; a forget marker
	// discards whatever run accumulated before it.
	var position = s.position
	var ws strings.Builder
	for {
		if s.isWhitespace() {
			ws.WriteString(s.readWhitespace())
			continue
		}
		if s.currRune == '\\' {
			if s.peekRune() == ';' {
				s.readComment()
				continue
			}
			if s.peekRune() == '/' {
				s.readRune()
				s.readRune()
				ws.Reset()
				position = s.position
				continue
			}
		}
		break
	}
	if ws.Len() > 0 {
		return Token{token.SPACE, ws.String(), position}, nil
	}

	switch s.currRune {
	case 0:
		return Token{token.EOF, "", s.position}, nil
	case '{':
		var tok = Token{token.LBRACE, "{", s.position}
		s.readRune()
		return tok, nil
	case '}':
		var tok = Token{token.RBRACE, "}", s.position}
		s.readRune()
		return tok, nil
	case '\\':
		return s.readBackslash()
	default:
		return s.readWord()
	}
}

func (s *Scanner) readBackslash() (Token, error) {
	var position = s.position
	switch next := s.peekRune(); {
	case next == 0:
		return Token{}, s.errorf(position, "dangling backslash at end of input")
	case next == '"':
		return s.readString()
	case next == '\\' || next == '{' || next == '}':
		// escaped metacharacter, begins a word
		return s.readWord()
	case next == '=':
		s.readRune()
		s.readRune()
		if !s.isIdentFirst() {
			return Token{}, s.errorf(s.position, "expected identifier after \\=, got %q", s.currRune)
		}
		return Token{token.NAMEDPARAM, s.readIdentifier(), position}, nil
	case next == '&':
		s.readRune()
		s.readRune()
		if !s.isIdentFirst() {
			return Token{}, s.errorf(s.position, "expected identifier after \\&, got %q", s.currRune)
		}
		return Token{token.RESTPARAM, s.readIdentifier(), position}, nil
	default:
		s.readRune()
		if !s.isIdentFirst() {
			return Token{}, s.errorf(position, "illegal escape \\%c", s.currRune)
		}
		var name = s.readIdentifier()
		if s.currRune == '=' {
			s.readRune()
			return Token{token.NAMEDARG, name, position}, nil
		}
		return Token{token.VAR, name, position}, nil
	}
}

func (s *Scanner) PrintCursor(layout string, args ...interface{}) {
	var lines = strings.Split(string(s.src), "\n")
	var b strings.Builder
	var pos = s.PosInfo(s.position)

	var ch string
	if s.currRune == 0 {
		ch = "0"
	} else {
		ch = fmt.Sprintf("%q", s.currRune)
	}

	var prefix = fmt.Sprintf(layout, args...)
	b.WriteString(fmt.Sprintf("%s  %s\n", prefix, lines[pos.Line-1]))
	b.WriteString(fmt.Sprintf("%s  %s▲ [%d]=%s token=%s\n", prefix, strings.Repeat(" ", pos.Column-1), s.position, ch, s.currToken))
	fmt.Fprint(os.Stderr, b.String())
}
