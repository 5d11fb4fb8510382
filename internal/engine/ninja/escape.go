package ninja

import (
	"regexp"
	"strings"
)

var (
	pathEscaper = strings.NewReplacer(
		"$", "$$",
		"\n", "$\n",
		" ", "$ ")
	outputEscaper = strings.NewReplacer(
		"$", "$$",
		"\n", "$\n",
		" ", "$ ",
		":", "$:")
	commandEscaper = strings.NewReplacer(
		"$", "$$")

	newlines    = regexp.MustCompile(`[\r\n]+\s*`)
	notRuleChar = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// EscapePath escapes an input path for a build statement.
func EscapePath(p string) string {
	return pathEscaper.Replace(p)
}

// EscapeOutput escapes an output path for a build statement.
func EscapeOutput(p string) string {
	return outputEscaper.Replace(p)
}

// EscapeCommand escapes a rule command. Line breaks are collapsed into a single space
// because a rule variable cannot span lines.
func EscapeCommand(cmd string) string {
	return commandEscaper.Replace(newlines.ReplaceAllString(strings.TrimSpace(cmd), " "))
}

// RuleName turns an arbitrary string into a valid rule identifier.
func RuleName(s string) string {
	return notRuleChar.ReplaceAllString(s, "_")
}

func escapeAll(paths []string, escape func(string) string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = escape(p)
	}
	return out
}
