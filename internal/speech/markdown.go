// Package speech prepares assistant replies for speech synthesis.
package speech

import (
	"regexp"
	"strconv"
	"strings"
)

// CodeBlockPlaceholder replaces fenced code blocks, which read badly aloud.
const CodeBlockPlaceholder = "Code block removed for speech."

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Emphasis delimiters only count at word edges, so snake_case names, file
// names like __init__.py and URL paths keep their underscores. A closing
// delimiter may be followed by dots only when the dots end the word.
const (
	leftEdge  = `(^|[^\p{L}\p{N}_])`
	rightEdge = `(\.*(?:[^\p{L}\p{N}_.]|$))`
)

var (
	fence      = regexp.MustCompile("(?s)```.*?```")
	inlineCode = regexp.MustCompile("`([^`\n]+)`")
	held       = regexp.MustCompile(`\x{E000}(\d+)\x{E001}`)
)

// spanRules are repeated until nothing changes, since one match can hide the
// edge of the next ("*a* *b*"). Every replacement shortens the text.
var spanRules = []rule{
	{regexp.MustCompile(leftEdge + `\*\*([^*\s](?:[^\n]*?[^*\s])?)\*\*` + rightEdge), "${1}${2}${3}"},
	{regexp.MustCompile(leftEdge + `__([^_\s](?:[^\n]*?[^_\s])?)__` + rightEdge), "${1}${2}${3}"},
	{regexp.MustCompile(leftEdge + `\*([^*\s](?:[^*\n]*?[^*\s])?)\*` + rightEdge), "${1}${2}${3}"},
	{regexp.MustCompile(leftEdge + `_([^_\s](?:[^_\n]*?[^_\s])?)_` + rightEdge), "${1}${2}${3}"},
	{regexp.MustCompile(`!\[([^\]\n]*)\]\([^)\n]*\)`), "Image: $1"},
	{regexp.MustCompile(`\[([^\]\n]+)\]\([^)\n]*\)`), "$1"},
}

// lineRules run after the spans so markers uncovered by unwrapping
// ("**# x**") are still caught. Horizontal rules go before bullets so "***"
// and "---" lines are not read as list items.
var lineRules = []rule{
	{regexp.MustCompile(`(?m)^(?:#{1,6}[ \t]+)+(.*)$`), "$1"},
	{regexp.MustCompile(`(?m)^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*$`), " "},
	{regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`), "Bullet point: "},
	{regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+`), "Point: "},
}

// StripMarkdown turns a Markdown reply into plain prose for a TTS engine.
// Markup is removed or verbalised; all other text is left as is. The
// contents of inline code are kept verbatim.
func StripMarkdown(text string) string {
	text = fence.ReplaceAllString(text, CodeBlockPlaceholder)

	var code []string
	text = inlineCode.ReplaceAllStringFunc(text, func(m string) string {
		code = append(code, m[1:len(m)-1])
		return "\uE000" + strconv.Itoa(len(code)-1) + "\uE001"
	})

	for changed := true; changed; {
		changed = false
		for _, r := range spanRules {
			next := r.pattern.ReplaceAllString(text, r.replacement)
			if next != text {
				text = next
				changed = true
			}
		}
	}

	for _, r := range lineRules {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}

	if len(code) == 0 {
		return text
	}
	return held.ReplaceAllStringFunc(text, func(m string) string {
		i, err := strconv.Atoi(strings.Trim(m, "\uE000\uE001"))
		if err != nil || i >= len(code) {
			return m
		}
		return code[i]
	})
}
