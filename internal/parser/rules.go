package parser

import (
	"regexp"
	"strings"
)

// rule pulls one field out of a line. ok is false when the rule does not apply.
type rule func(line string) (value string, ok bool)

// firstMatch evaluates rules in order and returns the first successful value
func firstMatch(line string, rules []rule) string {
	for _, r := range rules {
		if v, ok := r(line); ok {
			return v
		}
	}
	return ""
}

// capture returns a rule yielding the trimmed submatch group of the first match
func capture(re *regexp.Regexp, group int) rule {
	return func(line string) (string, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil || group >= len(m) {
			return "", false
		}
		v := strings.TrimSpace(m[group])
		return v, v != ""
	}
}

// keyword maps a case-insensitive substring to a classification label
type keyword struct {
	needle string
	label  string
}

func classify(line string, keywords []keyword, fallback string) string {
	lower := strings.ToLower(line)
	for _, k := range keywords {
		if strings.Contains(lower, k.needle) {
			return k.label
		}
	}
	return fallback
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return whitespacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
}
