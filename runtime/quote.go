package runtime

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s`)

var wordEscaper = strings.NewReplacer(
	`\`, `\\`,
	`{`, `\{`,
	`}`, `\}`,
)

// Quote renders arbitrary text as a source-language literal. Empty text
// needs explicit delimiters, and so does anything containing whitespace;
// inside delimiters only backslashes are escaped. Text with no whitespace is
// returned bare, with its metacharacters escaped individually.
func Quote(s string) string {
	if s == "" {
		return `\"\"`
	}
	if whitespaceRe.MatchString(s) {
		return `\"` + strings.ReplaceAll(s, `\`, `\\`) + `\"`
	}
	return wordEscaper.Replace(s)
}
