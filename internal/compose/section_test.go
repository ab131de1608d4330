// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"strings"
	"testing"
)

const sectionedDoc = `# Validator

<!-- section: Checks -->
- base check
<!-- /section: Checks -->

<!-- section: Style -->
- base style
<!-- /section: Style -->
`

func TestParseSections(t *testing.T) {
	t.Parallel()
	sections := parseSections(sectionedDoc)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Name != "Checks" || sections[1].Name != "Style" {
		t.Fatalf("names %q, %q", sections[0].Name, sections[1].Name)
	}
	if strings.TrimSpace(sections[0].Body) != "- base check" {
		t.Fatalf("body %q", sections[0].Body)
	}
}

func TestExtractSection(t *testing.T) {
	t.Parallel()
	body, ok := extractSection(sectionedDoc, "Style")
	if !ok || body != "- base style" {
		t.Fatalf("got %q, %v", body, ok)
	}
	if _, ok := extractSection(sectionedDoc, "Missing"); ok {
		t.Fatal("expected miss for unknown section")
	}
}

func TestSectionComposer_MergeSplicesExtends(t *testing.T) {
	t.Parallel()
	overlay := "<!-- extend: Checks -->\n- pack check\n<!-- /extend -->"
	c := &SectionComposer{}

	got := c.Merge(sectionedDoc, []string{overlay})
	if !strings.Contains(got, "- base check\n\n- pack check") {
		t.Fatalf("extend body not spliced:\n%s", got)
	}
	if strings.Contains(got, "extend:") {
		t.Fatalf("extend markers must be stripped:\n%s", got)
	}
	if strings.Contains(got, "section:") {
		t.Fatalf("section markers stripped by default:\n%s", got)
	}
	// Untouched section survives.
	if !strings.Contains(got, "- base style") {
		t.Fatalf("untouched section lost:\n%s", got)
	}
}

func TestSectionComposer_KeepSectionMarkers(t *testing.T) {
	t.Parallel()
	c := &SectionComposer{KeepSectionMarkers: true}
	got := c.Merge(sectionedDoc, nil)
	if !strings.Contains(got, "<!-- section: Checks -->") ||
		!strings.Contains(got, "<!-- /section: Checks -->") {
		t.Fatalf("section markers should be retained:\n%s", got)
	}
}

func TestSectionComposer_OverlayOrderPreserved(t *testing.T) {
	t.Parallel()
	first := "<!-- extend: Checks -->\n- first\n<!-- /extend -->"
	second := "<!-- extend: Checks -->\n- second\n<!-- /extend -->"
	c := &SectionComposer{}

	got := c.Merge(sectionedDoc, []string{first, second})
	if strings.Index(got, "- first") > strings.Index(got, "- second") {
		t.Fatalf("later overlay should append after earlier:\n%s", got)
	}
}

func TestSectionComposer_UnmatchedExtendDropped(t *testing.T) {
	t.Parallel()
	overlay := "<!-- extend: Nope -->\n- orphan\n<!-- /extend -->"
	c := &SectionComposer{}

	got := c.Merge(sectionedDoc, []string{overlay})
	if strings.Contains(got, "orphan") {
		t.Fatalf("unmatched extend must be dropped:\n%s", got)
	}
}

func TestSectionRegistry_LaterOverlayWins(t *testing.T) {
	t.Parallel()
	a := "<!-- section: TechStack -->\nGo\n<!-- /section: TechStack -->"
	b := "<!-- section: TechStack -->\nGo and CUE\n<!-- /section: TechStack -->"

	registry := SectionRegistry([]string{a, b})
	if registry["TechStack"] != "Go and CUE" {
		t.Fatalf("got %q", registry["TechStack"])
	}
}
