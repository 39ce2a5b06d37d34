package scanner_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/siadat/blatte/syntax/scanner"
	"github.com/siadat/blatte/syntax/token"
)

const IgnorePos = -1

func scanAll(tt *testing.T, src string) ([]scanner.Token, error) {
	tt.Helper()
	var s = scanner.NewScanner(strings.NewReader(src))
	var got []scanner.Token
	for {
		var t, err = s.NextToken()
		if err != nil {
			return got, err
		}
		if t.Typ == token.EOF {
			return got, nil
		}
		t.Pos = IgnorePos
		got = append(got, t)
	}
}

func TestTokens(tt *testing.T) {
	var testCases = []struct {
		src  string
		want []scanner.Token
	}{
		{
			src: `hello,  world!`,
			want: []scanner.Token{
				{token.WORD, `hello,`, IgnorePos},
				{token.SPACE, `  `, IgnorePos},
				{token.WORD, `world!`, IgnorePos},
			},
		},
		{
			src: "a\n\t{b}",
			want: []scanner.Token{
				{token.WORD, `a`, IgnorePos},
				{token.SPACE, "\n\t", IgnorePos},
				{token.LBRACE, `{`, IgnorePos},
				{token.WORD, `b`, IgnorePos},
				{token.RBRACE, `}`, IgnorePos},
			},
		},
		{
			// escaped metacharacters are plain word content
			src: `a\{b\}c \\d`,
			want: []scanner.Token{
				{token.WORD, `a{b}c`, IgnorePos},
				{token.SPACE, ` `, IgnorePos},
				{token.WORD, `\d`, IgnorePos},
			},
		},
		{
			src: `\x {\define \y 1}`,
			want: []scanner.Token{
				{token.VAR, `x`, IgnorePos},
				{token.SPACE, ` `, IgnorePos},
				{token.LBRACE, `{`, IgnorePos},
				{token.VAR, `define`, IgnorePos},
				{token.SPACE, ` `, IgnorePos},
				{token.VAR, `y`, IgnorePos},
				{token.SPACE, ` `, IgnorePos},
				{token.WORD, `1`, IgnorePos},
				{token.RBRACE, `}`, IgnorePos},
			},
		},
		{
			src: `{\lambda {\a \=opt \&rest} \opt=x}`,
			want: []scanner.Token{
				{token.LBRACE, `{`, IgnorePos},
				{token.VAR, `lambda`, IgnorePos},
				{token.SPACE, ` `, IgnorePos},
				{token.LBRACE, `{`, IgnorePos},
				{token.VAR, `a`, IgnorePos},
				{token.SPACE, ` `, IgnorePos},
				{token.NAMEDPARAM, `opt`, IgnorePos},
				{token.SPACE, ` `, IgnorePos},
				{token.RESTPARAM, `rest`, IgnorePos},
				{token.RBRACE, `}`, IgnorePos},
				{token.SPACE, ` `, IgnorePos},
				{token.NAMEDARG, `opt`, IgnorePos},
				{token.WORD, `x`, IgnorePos},
				{token.RBRACE, `}`, IgnorePos},
			},
		},
		{
			// delimited string: only backslash needs escaping, quotes are literal
			src: `\"it's "fine" {here}\" tail`,
			want: []scanner.Token{
				{token.STRING, `it's "fine" {here}`, IgnorePos},
				{token.SPACE, ` `, IgnorePos},
				{token.WORD, `tail`, IgnorePos},
			},
		},
		{
			src: `\"a\\b\"`,
			want: []scanner.Token{
				{token.STRING, `a\b`, IgnorePos},
			},
		},
		{
			// comments are consumed; the surrounding run stays intact
			src: "a \\; a comment\n b",
			want: []scanner.Token{
				{token.WORD, `a`, IgnorePos},
				{token.SPACE, " \n ", IgnorePos},
				{token.WORD, `b`, IgnorePos},
			},
		},
		{
			// forget marker cancels the run before it
			src: `A \/B`,
			want: []scanner.Token{
				{token.WORD, `A`, IgnorePos},
				{token.WORD, `B`, IgnorePos},
			},
		},
		{
			// whitespace after the marker survives
			src: "A \\/ B",
			want: []scanner.Token{
				{token.WORD, `A`, IgnorePos},
				{token.SPACE, ` `, IgnorePos},
				{token.WORD, `B`, IgnorePos},
			},
		},
	}

	for _, tc := range testCases {
		var got, err = scanAll(tt, tc.src)
		if err != nil {
			tt.Fatalf("src=%q unexpected error: %v", tc.src, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			tt.Fatalf("src=%q mismatch (-want +got):\n%s", tc.src, diff)
		}
	}
}

func TestLexErrors(tt *testing.T) {
	var testCases = []struct {
		src     string
		wantErr string
	}{
		{
			src:     `\"never closed`,
			wantErr: `unterminated string`,
		},
		{
			src:     `\"closes with a backslash \`,
			wantErr: `unterminated string`,
		},
		{
			src:     `word \`,
			wantErr: `dangling backslash at end of input`,
		},
		{
			src:     `\1abc`,
			wantErr: `illegal escape \1`,
		},
		{
			src:     `\"bad \q escape\"`,
			wantErr: `illegal escape \q in string`,
		},
	}

	for _, tc := range testCases {
		var _, err = scanAll(tt, tc.src)
		if err == nil {
			tt.Fatalf("src=%q expected error, got none", tc.src)
		}
		if _, ok := err.(scanner.LexError); !ok {
			tt.Fatalf("src=%q expected LexError, got %T", tc.src, err)
		}
		if !strings.Contains(err.Error(), tc.wantErr) {
			tt.Fatalf("src=%q want error containing %q, got %q", tc.src, tc.wantErr, err.Error())
		}
	}
}

func TestPosInfo(tt *testing.T) {
	var s = scanner.NewScanner(strings.NewReader("ab\ncd"))
	var pos = s.PosInfo(3)
	if pos.Line != 2 || pos.Column != 1 {
		tt.Fatalf("want 2:1, got %s", pos)
	}
}
