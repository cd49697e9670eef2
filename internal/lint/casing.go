package lint

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Casing styles accepted by the casing rules.
const (
	StyleCamel  = "camel"
	StylePascal = "pascal"
	StyleSnake  = "snake"
	StyleKebab  = "kebab"
)

var styles = map[string]*regexp.Regexp{
	StyleCamel:  regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`),
	StylePascal: regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`),
	StyleSnake:  regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`),
	StyleKebab:  regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`),
}

// Matches reports whether name follows style.
func Matches(name, style string) (bool, error) {
	re, ok := styles[style]
	if !ok {
		return false, fmt.Errorf("unknown casing style %q: must be one of %s, %s, %s or %s",
			style, StyleCamel, StyleKebab, StylePascal, StyleSnake)
	}
	return re.MatchString(name), nil
}

// Convert rewrites name in the given style. It is used to suggest a fix.
func Convert(name, style string) string {
	// Casers keep state and cannot be shared between goroutines.
	lower := cases.Lower(language.Und)
	title := cases.Title(language.Und)

	words := Words(name)
	for i, w := range words {
		words[i] = lower.String(w)
	}
	switch style {
	case StyleSnake:
		return strings.Join(words, "_")
	case StyleKebab:
		return strings.Join(words, "-")
	case StylePascal, StyleCamel:
		for i, w := range words {
			if i == 0 && style == StyleCamel {
				continue
			}
			words[i] = title.String(w)
		}
		return strings.Join(words, "")
	}
	return name
}

// Words splits an identifier on separators and case changes:
// "getHTTPStatus_v2" becomes [get HTTP Status v2].
func Words(name string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
