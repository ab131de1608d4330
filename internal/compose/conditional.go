// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"strings"
)

// ConditionalRenderer evaluates pack-gated content before any include is
// resolved, so a directive dropped by an inactive pack is never fetched.
// It also rewrites normalized forms back into canonical directive text for
// the include resolver.
type ConditionalRenderer struct {
	active map[string]bool
}

// NewConditionalRenderer builds a renderer for the given ordered active
// pack set.
func NewConditionalRenderer(activePacks []string) *ConditionalRenderer {
	active := make(map[string]bool, len(activePacks))
	for _, pack := range activePacks {
		active[pack] = true
	}
	return &ConditionalRenderer{active: active}
}

// Render evaluates all conditional directives in text and returns the
// result. Non-conditional directives pass through in canonical form.
func (r *ConditionalRenderer) Render(text string) string {
	tokens := tokenize(text)
	var out strings.Builder
	out.Grow(len(text))

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.kind {
		case tokIncludeIf:
			out.WriteString(r.renderIncludeIf(tok))
		case tokIfOpen:
			i = r.renderIfBlock(&out, tokens, i)
		case tokIfClose:
			// Unbalanced closer, keep it visible rather than eating it.
			out.WriteString(tok.raw)
		default:
			out.WriteString(tok.raw)
		}
	}
	return out.String()
}

// renderIncludeIf handles the function-style conditional. Active pack:
// bare-path content is promoted to a canonical include directive; content
// that is already a directive passes through unchanged. Inactive pack:
// the whole directive renders as empty string.
func (r *ConditionalRenderer) renderIncludeIf(tok token) string {
	if !r.active[tok.pack] {
		return ""
	}
	if strings.HasPrefix(tok.content, "{{") {
		return tok.content
	}
	return "{{include:" + tok.content + "}}"
}

// renderIfBlock handles the block-style conditional starting at index
// open. Returns the index of the consumed {{/if}} (or the last token when
// the block is unterminated). Nested blocks are evaluated recursively when
// the pack is active and skipped wholesale when it is not.
func (r *ConditionalRenderer) renderIfBlock(out *strings.Builder, tokens []token, open int) int {
	end := findIfClose(tokens, open)
	if end == -1 {
		// Unterminated block: emit the opener literally and move on.
		out.WriteString(tokens[open].raw)
		return open
	}
	if !r.active[tokens[open].pack] {
		return end
	}
	for i := open + 1; i < end; i++ {
		tok := tokens[i]
		switch tok.kind {
		case tokIncludeIf:
			out.WriteString(r.renderIncludeIf(tok))
		case tokIfOpen:
			i = r.renderIfBlock(out, tokens[:end], i)
		default:
			out.WriteString(tok.raw)
		}
	}
	return end
}

// findIfClose locates the {{/if}} matching the opener at open, accounting
// for nested blocks. Returns -1 when the block never closes.
func findIfClose(tokens []token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].kind {
		case tokIfOpen:
			depth++
		case tokIfClose:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
