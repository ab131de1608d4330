// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"strings"
)

// regions is the structural extraction of one overlay document: dedicated
// Tools and Guidelines capture regions keyed off second-level headings.
type regions struct {
	tools      string
	guidelines string
}

// extractRegions scans an overlay for `## Tools` and `## Guidelines`
// capture regions. A `## Architecture` heading (any suffix) folds into
// Guidelines with its heading line kept; any other second-level heading
// ends the current region. A document with no recognized headings is
// treated entirely as Guidelines.
func extractRegions(text string) regions {
	var tools, guidelines []string
	current := (*[]string)(nil)
	recognized := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.EqualFold(trimmed, "## Tools"):
			current = &tools
			recognized = true
			continue
		case strings.EqualFold(trimmed, "## Guidelines"):
			current = &guidelines
			recognized = true
			continue
		case strings.HasPrefix(trimmed, "## Architecture"):
			current = &guidelines
			recognized = true
		case strings.HasPrefix(trimmed, "## "):
			current = nil
			continue
		}
		if current != nil {
			*current = append(*current, line)
		}
	}

	if !recognized {
		return regions{guidelines: strings.TrimSpace(text)}
	}
	return regions{
		tools:      strings.TrimSpace(strings.Join(tools, "\n")),
		guidelines: strings.TrimSpace(strings.Join(guidelines, "\n")),
	}
}

// labelledConcat joins per-layer region contributions, each under a
// `### <layer>` sub-heading, skipping empty contributions.
func labelledConcat(names, contributions []string) string {
	var out []string
	for i, contribution := range contributions {
		if contribution == "" {
			continue
		}
		out = append(out, "### "+names[i]+"\n\n"+contribution)
	}
	return strings.Join(out, "\n\n")
}

// assembleTemplate substitutes Core template placeholders with overlay
// region concatenations. The Core template must open with a `# ` header
// line.
func (c *Composer) assembleTemplate(kind Kind, name string, layers *layerSet) (string, error) {
	if !strings.HasPrefix(strings.TrimLeft(layers.core, "\n"), "# ") {
		return "", &Error{
			Kind:   KindTemplateInvalid,
			Entity: entityKey(kind, name),
			Detail: "core template must start with a top-level `# ` header",
		}
	}

	overlayNames := layers.overlayNames()
	overlayTexts := layers.overlayTexts()

	toolParts := make([]string, len(overlayTexts))
	guidelineParts := make([]string, len(overlayTexts))
	for i, text := range overlayTexts {
		extracted := extractRegions(text)
		toolParts[i] = extracted.tools
		guidelineParts[i] = extracted.guidelines
	}

	values := map[string]string{
		"TOOLS":      labelledConcat(overlayNames, toolParts),
		"GUIDELINES": labelledConcat(overlayNames, guidelineParts),
		"AGENT_NAME": name,
		"PACK_NAME":  strings.Join(c.cfg.ActivePacks, ", "),
	}
	values["PACK_CONTEXT"] = packContext(c.cfg.ActivePacks)

	registry := SectionRegistry(overlayTexts)
	return substitutePlaceholders(layers.core, values, registry), nil
}

// packContext renders the active pack list as a bulleted block for the
// PACK_CONTEXT placeholder.
func packContext(packs []string) string {
	if len(packs) == 0 {
		return "(no packs active)"
	}
	lines := make([]string, len(packs))
	for i, pack := range packs {
		lines[i] = "- " + pack
	}
	return strings.Join(lines, "\n")
}

// substitutePlaceholders replaces placeholder tokens with their values.
// SECTION:<name> placeholders draw from the overlay section registry.
// Unknown placeholders stay verbatim so authored all-caps braces survive.
func substitutePlaceholders(text string, values map[string]string, sections map[string]string) string {
	var out strings.Builder
	out.Grow(len(text))
	for _, tok := range tokenize(text) {
		if tok.kind != tokPlaceholder {
			out.WriteString(tok.raw)
			continue
		}
		if section, ok := strings.CutPrefix(tok.name, "SECTION:"); ok {
			if body, found := sections[section]; found {
				out.WriteString(body)
			} else {
				out.WriteString(tok.raw)
			}
			continue
		}
		if value, found := values[tok.name]; found {
			out.WriteString(value)
			continue
		}
		out.WriteString(tok.raw)
	}
	return out.String()
}
