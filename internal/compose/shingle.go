// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"fmt"
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// normalizeText prepares document text for shingling: fenced code blocks
// and heading lines are stripped (they legitimately repeat across layers),
// the remainder is lowercased and tokenized on word characters.
func normalizeText(text string) []string {
	var kept []string
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence || strings.HasPrefix(trimmed, "#") {
			continue
		}
		kept = append(kept, line)
	}
	return wordRe.FindAllString(strings.ToLower(strings.Join(kept, "\n")), -1)
}

// shingleSet computes the set of k-word shingles over the token stream.
// Texts shorter than k words produce an empty set.
func shingleSet(tokens []string, k int) map[string]bool {
	set := make(map[string]bool)
	for i := 0; i+k <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+k], " ")] = true
	}
	return set
}

func intersectCount(a, b map[string]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for shingle := range a {
		if b[shingle] {
			count++
		}
	}
	return count
}

// Violation records one layer pair whose shared shingle count reached the
// configured threshold.
type Violation struct {
	First  string `json:"first"`
	Second string `json:"second"`
	Count  int    `json:"count"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s and %s share %d shingles", v.First, v.Second, v.Count)
}

// DuplicateReport is the outcome of a cross-layer duplication analysis.
type DuplicateReport struct {
	ShingleSize int         `json:"shingle_size"`
	MinShingles int         `json:"min_shingles"`
	Violations  []Violation `json:"violations,omitempty"`
}

// HasViolations reports whether any layer pair crossed the threshold.
func (r *DuplicateReport) HasViolations() bool {
	return r != nil && len(r.Violations) > 0
}

// DuplicationDetector performs shingle-based overlap analysis across
// composition layers.
type DuplicationDetector struct {
	// ShingleSize is the word count per shingle, k.
	ShingleSize int
	// MinShingles is the violation threshold: a layer pair sharing at
	// least this many shingles is flagged.
	MinShingles int
}

// NewDuplicationDetector builds a detector with the given parameters.
func NewDuplicationDetector(shingleSize, minShingles int) *DuplicationDetector {
	return &DuplicationDetector{ShingleSize: shingleSize, MinShingles: minShingles}
}

// Report analyzes the three layer buckets (core, all pack text
// concatenated, project overlay) and flags the canonical pairs core/packs
// and core/overlay whose shared shingle count reaches the threshold.
// Pack-to-overlay overlap is intentionally not checked: overlays are
// expected to restate pack material they override.
func (d *DuplicationDetector) Report(core, packs, overlay string) *DuplicateReport {
	report := &DuplicateReport{ShingleSize: d.ShingleSize, MinShingles: d.MinShingles}

	coreSet := shingleSet(normalizeText(core), d.ShingleSize)
	packsSet := shingleSet(normalizeText(packs), d.ShingleSize)
	overlaySet := shingleSet(normalizeText(overlay), d.ShingleSize)

	if count := intersectCount(coreSet, packsSet); count >= d.MinShingles {
		report.Violations = append(report.Violations, Violation{First: "core", Second: "packs", Count: count})
	}
	if count := intersectCount(coreSet, overlaySet); count >= d.MinShingles {
		report.Violations = append(report.Violations, Violation{First: "core", Second: "overlay", Count: count})
	}
	return report
}

// DedupParagraphs drops lower-priority paragraphs that duplicate
// higher-priority ones. Layers are given in output order (core first,
// then packs in activation order, then project); claim precedence is the
// reverse, with later-activated packs outranking earlier ones. Paragraphs
// are blank-line-delimited blocks, shingled individually; any shingle
// overlap with a claimed paragraph drops the whole block.
func (d *DuplicationDetector) DedupParagraphs(layers []string) []string {
	type paragraph struct {
		text string
		set  map[string]bool
	}

	paragraphs := make([][]paragraph, len(layers))
	for i, layer := range layers {
		var blocks []paragraph
		for _, block := range splitParagraphs(layer) {
			blocks = append(blocks, paragraph{
				text: block,
				set:  shingleSet(normalizeText(block), d.ShingleSize),
			})
		}
		paragraphs[i] = blocks
	}

	// Claim shingles highest priority first so lower layers lose ties.
	claimed := make(map[string]bool)
	dropped := make(map[*paragraph]bool)
	for i := len(paragraphs) - 1; i >= 0; i-- {
		for j := range paragraphs[i] {
			para := &paragraphs[i][j]
			if len(para.set) > 0 && overlapsClaimed(para.set, claimed) {
				dropped[para] = true
				continue
			}
			for shingle := range para.set {
				claimed[shingle] = true
			}
		}
	}

	out := make([]string, len(layers))
	for i := range paragraphs {
		var kept []string
		for j := range paragraphs[i] {
			if !dropped[&paragraphs[i][j]] {
				kept = append(kept, paragraphs[i][j].text)
			}
		}
		out[i] = strings.Join(kept, "\n\n")
	}
	return out
}

func overlapsClaimed(set, claimed map[string]bool) bool {
	for shingle := range set {
		if claimed[shingle] {
			return true
		}
	}
	return false
}

// splitParagraphs breaks text into blank-line-delimited blocks, dropping
// empty blocks.
func splitParagraphs(text string) []string {
	var blocks []string
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		blocks = append(blocks, strings.TrimRight(block, "\n"))
	}
	return blocks
}
