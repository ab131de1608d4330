// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"log/slog"
	"strings"
)

// Section marker grammar:
//
//	<!-- section: Name --> ... <!-- /section: Name -->
//	<!-- extend: Name -->  ... <!-- /extend -->
//
// SECTION blocks are authored in the base (Core) document and form a named
// registry; EXTEND blocks are authored in overlay layers and splice into
// the matching base section.
const (
	sectionOpenPrefix  = "<!-- section:"
	sectionClosePrefix = "<!-- /section:"
	extendOpenPrefix   = "<!-- extend:"
	extendCloseMarker  = "<!-- /extend -->"
	markerSuffix       = "-->"
)

// Section is one marked block in a document.
type Section struct {
	Name string
	Body string
}

// parseSections extracts SECTION blocks from a document in order. Text
// outside any block is ignored here; callers keep the full document for
// output and use the registry for merging and extraction.
func parseSections(text string) []Section {
	var sections []Section
	rest := text
	for {
		name, body, after, ok := nextBlock(rest, sectionOpenPrefix, sectionClosePrefix, true)
		if !ok {
			return sections
		}
		sections = append(sections, Section{Name: name, Body: body})
		rest = after
	}
}

// parseExtends extracts EXTEND blocks from an overlay document in order.
func parseExtends(text string) []Section {
	var extends []Section
	rest := text
	for {
		name, body, after, ok := nextBlock(rest, extendOpenPrefix, "", false)
		if !ok {
			return extends
		}
		extends = append(extends, Section{Name: name, Body: body})
		rest = after
	}
}

// nextBlock finds the next marked block in text. When named is true the
// closer carries the block name (SECTION form); otherwise the closer is
// the bare extend terminator.
func nextBlock(text, openPrefix, closePrefix string, named bool) (name, body, rest string, ok bool) {
	open := strings.Index(text, openPrefix)
	if open == -1 {
		return "", "", "", false
	}
	nameStart := open + len(openPrefix)
	nameEnd := strings.Index(text[nameStart:], markerSuffix)
	if nameEnd == -1 {
		return "", "", "", false
	}
	name = strings.TrimSpace(text[nameStart : nameStart+nameEnd])
	bodyStart := nameStart + nameEnd + len(markerSuffix)

	closer := extendCloseMarker
	if named {
		closer = closePrefix + " " + name + " " + markerSuffix
	}
	closeIdx := strings.Index(text[bodyStart:], closer)
	if closeIdx == -1 {
		return "", "", "", false
	}
	body = text[bodyStart : bodyStart+closeIdx]
	rest = text[bodyStart+closeIdx+len(closer):]
	return name, body, rest, true
}

// extractSection returns the body of the named SECTION block, used by
// include-section directives.
func extractSection(text, name string) (string, bool) {
	for _, section := range parseSections(text) {
		if section.Name == name {
			return strings.TrimSpace(section.Body), true
		}
	}
	return "", false
}

// SectionComposer merges overlay EXTEND blocks into a base document's
// SECTION blocks.
type SectionComposer struct {
	// KeepSectionMarkers retains SECTION open/close markers in the output
	// so the composed result can itself serve as an include-section
	// target. EXTEND markers are always stripped.
	KeepSectionMarkers bool
}

// Merge splices each overlay's EXTEND bodies into the matching base
// SECTION, preserving base document order. Overlays are applied in the
// given order, so later layers append after earlier ones within a
// section. An EXTEND naming no base SECTION is dropped with a warning.
func (c *SectionComposer) Merge(base string, overlays []string) string {
	additions := make(map[string][]string)
	registry := make(map[string]bool)
	for _, section := range parseSections(base) {
		registry[section.Name] = true
	}

	for _, overlay := range overlays {
		for _, ext := range parseExtends(overlay) {
			if !registry[ext.Name] {
				slog.Warn("dropping extend block with no matching base section",
					"section", ext.Name)
				continue
			}
			additions[ext.Name] = append(additions[ext.Name], strings.TrimSpace(ext.Body))
		}
	}

	return c.rewrite(base, additions)
}

// rewrite walks the base document, appending accumulated additions at the
// end of each SECTION body and applying the marker-retention policy.
func (c *SectionComposer) rewrite(base string, additions map[string][]string) string {
	var out strings.Builder
	out.Grow(len(base))
	rest := base

	for {
		open := strings.Index(rest, sectionOpenPrefix)
		if open == -1 {
			out.WriteString(rest)
			return out.String()
		}
		nameStart := open + len(sectionOpenPrefix)
		nameEnd := strings.Index(rest[nameStart:], markerSuffix)
		if nameEnd == -1 {
			out.WriteString(rest)
			return out.String()
		}
		name := strings.TrimSpace(rest[nameStart : nameStart+nameEnd])
		bodyStart := nameStart + nameEnd + len(markerSuffix)
		closer := sectionClosePrefix + " " + name + " " + markerSuffix
		closeIdx := strings.Index(rest[bodyStart:], closer)
		if closeIdx == -1 {
			out.WriteString(rest)
			return out.String()
		}

		out.WriteString(rest[:open])

		body := strings.TrimRight(rest[bodyStart:bodyStart+closeIdx], " \t\n")
		for _, addition := range additions[name] {
			body += "\n\n" + addition
		}

		if c.KeepSectionMarkers {
			out.WriteString(sectionOpenPrefix + " " + name + " " + markerSuffix)
			out.WriteString(body)
			out.WriteString("\n" + closer)
		} else {
			out.WriteString(strings.TrimLeft(body, "\n"))
		}

		rest = rest[bodyStart+closeIdx+len(closer):]
	}
}

// SectionRegistry builds a name-to-body map from overlay documents, used
// for {{SECTION:Name}} placeholder substitution in template-mode
// composition. Later overlays override earlier ones.
func SectionRegistry(overlays []string) map[string]string {
	registry := make(map[string]string)
	for _, overlay := range overlays {
		for _, section := range parseSections(overlay) {
			registry[section.Name] = strings.TrimSpace(section.Body)
		}
	}
	return registry
}
