package speech_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"voice-relay/internal/speech"
)

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "headings and lists",
			input: "# Title\n- one\n- two\n1. first",
			want:  "Title\nBullet point: one\nBullet point: two\nPoint: first",
		},
		{
			name:  "bold reply",
			input: "**Paris** is the capital of France.",
			want:  "Paris is the capital of France.",
		},
		{
			name:  "fenced code",
			input: "Try this:\n```go\nfmt.Println(\"hi\")\n```\nDone.",
			want:  "Try this:\nCode block removed for speech.\nDone.",
		},
		{
			name:  "inline code",
			input: "Run `make build` first.",
			want:  "Run make build first.",
		},
		{
			name:  "emphasis families",
			input: "__strong__ and *soft* and _also soft_ and ***both***",
			want:  "strong and soft and also soft and both",
		},
		{
			name:  "links and images",
			input: "See [the docs](https://example.com) and ![a cat](cat.png).",
			want:  "See the docs and Image: a cat.",
		},
		{
			name:  "horizontal rules",
			input: "above\n---\nmiddle\n***\nbelow\n___",
			want:  "above\n \nmiddle\n \nbelow\n ",
		},
		{
			name:  "star bullets with emphasis",
			input: "* plain item\n* item with *emphasis*",
			want:  "Bullet point: plain item\nBullet point: item with emphasis",
		},
		{
			name:  "numbered with parenthesis",
			input: "1) first\n2) second",
			want:  "Point: first\nPoint: second",
		},
		{
			name:  "deep heading",
			input: "###### Small heading",
			want:  "Small heading",
		},
		{
			name:  "arithmetic is left alone",
			input: "2 * 3 * 4 = 24",
			want:  "2 * 3 * 4 = 24",
		},
		{
			name:  "plain text",
			input: "Nothing to see here.",
			want:  "Nothing to see here.",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "identifiers keep their underscores",
			input: "Set my_var_name to 3. Edit __init__.py and snake_case_id.",
			want:  "Set my_var_name to 3. Edit __init__.py and snake_case_id.",
		},
		{
			name:  "bare urls are left alone",
			input: "See https://example.com/some_long_path for details.",
			want:  "See https://example.com/some_long_path for details.",
		},
		{
			name:  "inline code contents are kept verbatim",
			input: "Call `*args` and `**kwargs`, or `__name__`.",
			want:  "Call *args and **kwargs, or __name__.",
		},
		{
			name:  "emphasis before punctuation",
			input: "It is _very_. Really **bold**... and *done*!",
			want:  "It is very. Really bold... and done!",
		},
		{
			name:  "adjacent emphasis",
			input: "*a* *b* _c_ _d_",
			want:  "a b c d",
		},
		{
			name:  "heading uncovered by bold",
			input: "**# Not a heading**",
			want:  "Not a heading",
		},
		{
			name:  "intraword stars are not emphasis",
			input: "2*3*4 = 24",
			want:  "2*3*4 = 24",
		},
		{
			name:  "empty code fence",
			input: "``````",
			want:  speech.CodeBlockPlaceholder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, speech.StripMarkdown(tt.input))
		})
	}
}

func TestStripMarkdown_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain prose, nothing else",
		"```\ncode\n```",
		"``````",
		"use `x := 1` here",
		"# Heading\n## Sub heading",
		"# # nested heading",
		"**bold** __bold__ *it* _it_ ***both***",
		"**outer *inner* outer**",
		"[label](http://example.com/a_b_c) ![alt](img.png)",
		"---\n***\n___",
		"- a\n* b\n+ c",
		"1. a\n2) b\n10. c",
		"snake_case_name and a_b_c_d_e",
		"* * *",
		"**",
		"*",
		"> quoted **text** with [link](u)",
		"**# Not a heading**",
		"Set my_var_name, __init__.py and https://example.com/some_long_path",
		"Call `*args` and `**kwargs`.",
		"*a* *b* _c_ _d_",
		"_very_. **bold**... *done*!",
		"[*x*](u) and ![_y_](v)",
		"# - item\n- # item",
	}

	for _, in := range inputs {
		once := speech.StripMarkdown(in)
		assert.Equal(t, once, speech.StripMarkdown(once), "input %q", in)
	}
}
