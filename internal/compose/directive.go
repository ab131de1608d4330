// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"strings"
)

// directiveKind discriminates the typed directive stream produced by the
// tokenizer. All directive grammar lives here; the conditional renderer
// and the include resolver consume tokens instead of re-matching text.
type directiveKind int

const (
	// tokLiteral is plain text between directives.
	tokLiteral directiveKind = iota
	// tokInclude is {{include:<path>}} (or the normalized bare-space form).
	tokInclude
	// tokIncludeOptional is {{include-optional:<path>}}.
	tokIncludeOptional
	// tokIncludeSection is {{include-section:<path>#<section>}}.
	tokIncludeSection
	// tokIncludeIf is the function-style conditional
	// {{include-if:has-pack(<pack>):<content>}}.
	tokIncludeIf
	// tokIfOpen is the block-style conditional opener {{#if pack:<pack>}}.
	tokIfOpen
	// tokIfClose is {{/if}}.
	tokIfClose
	// tokPlaceholder is a substitution placeholder such as {{TOOLS}} or
	// {{SECTION:TechStack}}.
	tokPlaceholder
)

// token is one element of the directive stream. Raw always reproduces the
// token's canonical source form, so unprocessed tokens can be copied back
// into output without loss.
type token struct {
	kind    directiveKind
	raw     string
	path    string // tokInclude*, target path
	section string // tokIncludeSection
	pack    string // tokIncludeIf, tokIfOpen
	content string // tokIncludeIf
	name    string // tokPlaceholder
}

// tokenize splits text into a literal/directive stream in one pass.
// Unrecognized {{...}} spans stay literal so authored text that merely
// looks like a directive passes through untouched.
func tokenize(text string) []token {
	var tokens []token
	rest := text

	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		end, ok := matchBraces(rest, start)
		if !ok {
			// Stray {{ with no closer: emit it as literal and keep
			// scanning so later directives still resolve.
			tokens = append(tokens, token{kind: tokLiteral, raw: rest[:start+2]})
			rest = rest[start+2:]
			continue
		}

		inner := rest[start+2 : end-2]
		directive, ok := parseDirective(inner)
		if !ok {
			// Not a directive: emit everything through the closing braces
			// as literal and keep scanning.
			tokens = append(tokens, token{kind: tokLiteral, raw: rest[:end]})
			rest = rest[end:]
			continue
		}

		if start > 0 {
			tokens = append(tokens, token{kind: tokLiteral, raw: rest[:start]})
		}
		tokens = append(tokens, directive)
		rest = rest[end:]
	}

	if rest != "" {
		tokens = append(tokens, token{kind: tokLiteral, raw: rest})
	}
	return tokens
}

// matchBraces finds the end offset (exclusive) of the {{...}} span opening
// at start, counting nested brace pairs: conditional content may itself
// contain a directive, e.g. {{include-if:has-pack(x):{{include:y}}}}.
func matchBraces(text string, start int) (int, bool) {
	depth := 0
	for i := start; i < len(text)-1; i++ {
		switch {
		case text[i] == '{' && text[i+1] == '{':
			depth++
			i++
		case text[i] == '}' && text[i+1] == '}':
			depth--
			i++
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// parseDirective interprets the text between {{ and }}. Returns false for
// spans that are not part of the directive grammar.
func parseDirective(inner string) (token, bool) {
	switch {
	case strings.HasPrefix(inner, "include:"):
		path := strings.TrimSpace(strings.TrimPrefix(inner, "include:"))
		if path == "" {
			return token{}, false
		}
		return token{kind: tokInclude, raw: "{{include:" + path + "}}", path: path}, true

	case strings.HasPrefix(inner, "include-optional:"):
		path := strings.TrimSpace(strings.TrimPrefix(inner, "include-optional:"))
		if path == "" {
			return token{}, false
		}
		return token{kind: tokIncludeOptional, raw: "{{include-optional:" + path + "}}", path: path}, true

	case strings.HasPrefix(inner, "include-section:"):
		arg := strings.TrimSpace(strings.TrimPrefix(inner, "include-section:"))
		path, section, ok := strings.Cut(arg, "#")
		if !ok || path == "" || section == "" {
			return token{}, false
		}
		return token{
			kind:    tokIncludeSection,
			raw:     "{{include-section:" + arg + "}}",
			path:    path,
			section: section,
		}, true

	case strings.HasPrefix(inner, "include-if:has-pack("):
		arg := strings.TrimPrefix(inner, "include-if:has-pack(")
		pack, rest, ok := strings.Cut(arg, ")")
		if !ok || pack == "" || !strings.HasPrefix(rest, ":") {
			return token{}, false
		}
		content := strings.TrimPrefix(rest, ":")
		return token{
			kind:    tokIncludeIf,
			raw:     "{{" + inner + "}}",
			pack:    pack,
			content: content,
		}, true

	case strings.HasPrefix(inner, "#if pack:"):
		pack := strings.TrimSpace(strings.TrimPrefix(inner, "#if pack:"))
		if pack == "" {
			return token{}, false
		}
		return token{kind: tokIfOpen, raw: "{{#if pack:" + pack + "}}", pack: pack}, true

	case inner == "/if":
		return token{kind: tokIfClose, raw: "{{/if}}"}, true

	case strings.HasPrefix(inner, "include "):
		// Author-convenience bare-space variant, normalized to colon form.
		path := strings.TrimSpace(strings.TrimPrefix(inner, "include "))
		if path == "" {
			return token{}, false
		}
		return token{kind: tokInclude, raw: "{{include:" + path + "}}", path: path}, true

	default:
		if name, ok := parsePlaceholderName(inner); ok {
			return token{kind: tokPlaceholder, raw: "{{" + inner + "}}", name: name}, true
		}
		return token{}, false
	}
}

// parsePlaceholderName accepts ALL_CAPS placeholder names ({{TOOLS}},
// {{AGENT_NAME}}) and the SECTION:<name> form ({{SECTION:TechStack}}).
func parsePlaceholderName(inner string) (string, bool) {
	if section, ok := strings.CutPrefix(inner, "SECTION:"); ok {
		if section == "" || strings.ContainsAny(section, " \t\n") {
			return "", false
		}
		return inner, true
	}
	if inner == "" {
		return "", false
	}
	for i, c := range inner {
		switch {
		case c >= 'A' && c <= 'Z':
		case c == '_' && i > 0:
		case c >= '0' && c <= '9' && i > 0:
		default:
			return "", false
		}
	}
	return inner, true
}
