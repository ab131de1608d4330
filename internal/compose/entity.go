// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"fmt"
	"sort"
	"strings"
)

// Mode selects how an entity kind assembles its layers.
type Mode string

const (
	// ModeTemplate substitutes overlay-derived regions into Core template
	// placeholders (agent-style composition).
	ModeTemplate Mode = "template"
	// ModeSections splices overlay EXTEND blocks into matching Core
	// SECTION blocks.
	ModeSections Mode = "sections"
	// ModeConcat appends layers in fixed order with paragraph-level
	// deduplication (guideline-style composition).
	ModeConcat Mode = "concat"
)

// Kind describes one composable entity kind and how its layers merge.
type Kind struct {
	// Name is the singular kind name used on the CLI and in errors.
	Name string
	// Dir is the per-layer subdirectory holding this kind's documents.
	Dir string
	// Mode selects the assembly strategy.
	Mode Mode
	// RequireCore marks kinds that must have a Core template per entity.
	RequireCore bool
}

// The built-in entity kinds.
var (
	KindAgent     = Kind{Name: "agent", Dir: "agents", Mode: ModeTemplate, RequireCore: true}
	KindValidator = Kind{Name: "validator", Dir: "validators", Mode: ModeSections, RequireCore: true}
	KindGuideline = Kind{Name: "guideline", Dir: "guidelines", Mode: ModeConcat, RequireCore: false}
)

// Kinds returns all built-in entity kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindAgent, KindValidator, KindGuideline}
}

// KindByName resolves a kind by its singular name.
func KindByName(name string) (Kind, error) {
	for _, kind := range Kinds() {
		if kind.Name == name {
			return kind, nil
		}
	}
	return Kind{}, fmt.Errorf("unknown entity kind %q", name)
}

// includePrefixes maps content path prefixes to entity kinds for include
// resolution, longest prefix first. A path matching a prefix is composed
// through that kind's own layered pipeline; anything else is a raw file
// read.
var includePrefixes = buildIncludePrefixes()

type includePrefix struct {
	prefix string
	kind   Kind
}

func buildIncludePrefixes() []includePrefix {
	prefixes := make([]includePrefix, 0, len(Kinds()))
	for _, kind := range Kinds() {
		prefixes = append(prefixes, includePrefix{prefix: kind.Dir + "/", kind: kind})
	}
	// Longest prefix first so more specific registrations win.
	sort.Slice(prefixes, func(i, j int) bool {
		return len(prefixes[i].prefix) > len(prefixes[j].prefix)
	})
	return prefixes
}

// entityForIncludePath matches an include path against the prefix table.
// The returned name is the path remainder with its extension stripped.
func entityForIncludePath(path string) (Kind, string, bool) {
	for _, entry := range includePrefixes {
		if rest, ok := strings.CutPrefix(path, entry.prefix); ok {
			if idx := strings.LastIndex(rest, "."); idx > 0 {
				rest = rest[:idx]
			}
			return entry.kind, rest, true
		}
	}
	return Kind{}, "", false
}

// entityKey is the cycle-detection key for one entity document.
func entityKey(kind Kind, name string) string {
	return kind.Dir + "/" + name + ".md"
}
