// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"fmt"
	"strings"

	"strata-cli/internal/workspace"
)

// orderedSet is an insertion-ordered string set used for dependency
// tracking; the order feeds the cache key, so it must be deterministic.
type orderedSet struct {
	seen   map[string]bool
	values []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(value string) {
	if s.seen[value] {
		return
	}
	s.seen[value] = true
	s.values = append(s.values, value)
}

// resolveState is the per-top-level-call bookkeeping for include
// resolution. It is shared across nested entity compositions spawned by
// the same top-level call, so a cycle spanning two entities is still
// caught, but it is never shared between independent calls.
type resolveState struct {
	// inProgress holds raw include keys currently being expanded; hitting
	// one again means a cycle.
	inProgress map[string]bool
	// memo caches resolved text per include key so diamond-shaped
	// reference graphs resolve each target once.
	memo map[string]string
	// deps collects every transitively resolved source path in first-seen
	// order.
	deps *orderedSet
}

func newResolveState() *resolveState {
	return &resolveState{
		inProgress: make(map[string]bool),
		memo:       make(map[string]string),
		deps:       newOrderedSet(),
	}
}

// entityComposeFunc composes a referenced entity through its own layered
// pipeline, sharing the caller's resolve state. The composer wires this in
// so includes can cross into full entity composition without the resolver
// depending on the composer.
type entityComposeFunc func(kind Kind, name string, st *resolveState, depth int) (string, error)

// IncludeResolver expands include directives, tracking every resolved
// source as a dependency. Failures never abort mid-expansion; they embed
// error markers that the wrapping caller treats as fatal.
type IncludeResolver struct {
	ws            *workspace.Workspace
	cond          *ConditionalRenderer
	activePacks   []string
	maxDepth      int
	composeEntity entityComposeFunc
}

// NewIncludeResolver builds a resolver over the workspace's layered
// lookup. composeEntity may be nil, in which case entity-prefixed paths
// fall back to raw layer file reads.
func NewIncludeResolver(ws *workspace.Workspace, cond *ConditionalRenderer, activePacks []string, maxDepth int, composeEntity entityComposeFunc) *IncludeResolver {
	return &IncludeResolver{
		ws:            ws,
		cond:          cond,
		activePacks:   activePacks,
		maxDepth:      maxDepth,
		composeEntity: composeEntity,
	}
}

// Resolve expands text with fresh per-call state and returns the rendered
// result plus the ordered dependency set.
func (r *IncludeResolver) Resolve(text string) (string, []string) {
	st := newResolveState()
	out := r.expand(text, st, 0)
	return out, st.deps.values
}

// expand walks the directive stream at the given nesting depth. Literal
// text and placeholders pass through; includes are resolved in place.
func (r *IncludeResolver) expand(text string, st *resolveState, depth int) string {
	tokens := tokenize(text)
	var out strings.Builder
	out.Grow(len(text))

	for _, tok := range tokens {
		switch tok.kind {
		case tokInclude:
			out.WriteString(r.resolveOne(tok, st, depth, false))
		case tokIncludeOptional:
			out.WriteString(r.resolveOne(tok, st, depth, true))
		case tokIncludeSection:
			out.WriteString(r.resolveSection(tok, st, depth))
		default:
			out.WriteString(tok.raw)
		}
	}
	return out.String()
}

// resolveOne expands a single include target. optional selects the
// missing-target behavior: a placeholder comment instead of a fatal
// marker.
func (r *IncludeResolver) resolveOne(tok token, st *resolveState, depth int, optional bool) string {
	if depth >= r.maxDepth {
		return fmt.Sprintf("<!-- ERROR: Maximum include depth exceeded: %s -->", tok.path)
	}
	if st.inProgress[tok.path] {
		return fmt.Sprintf("<!-- ERROR: Circular include detected: %s -->", tok.path)
	}
	if cached, ok := st.memo[tok.path]; ok {
		return cached
	}

	st.inProgress[tok.path] = true
	defer delete(st.inProgress, tok.path)

	content, found := r.fetch(tok.path, st, depth)
	if !found {
		if optional {
			return fmt.Sprintf("<!-- include-optional: %s not found -->", tok.path)
		}
		return fmt.Sprintf("<!-- ERROR: Include not found: %s -->", tok.path)
	}

	rendered := r.expand(r.cond.Render(content), st, depth+1)
	st.memo[tok.path] = rendered
	return rendered
}

// resolveSection expands an include-section directive, extracting only the
// named SECTION body from the resolved target.
func (r *IncludeResolver) resolveSection(tok token, st *resolveState, depth int) string {
	if depth >= r.maxDepth {
		return fmt.Sprintf("<!-- ERROR: Maximum include depth exceeded: %s -->", tok.path)
	}
	key := tok.path + "#" + tok.section
	if st.inProgress[key] || st.inProgress[tok.path] {
		return fmt.Sprintf("<!-- ERROR: Circular include detected: %s -->", key)
	}
	if cached, ok := st.memo[key]; ok {
		return cached
	}

	st.inProgress[key] = true
	defer delete(st.inProgress, key)

	content, found := r.fetch(tok.path, st, depth)
	if !found {
		return fmt.Sprintf("<!-- ERROR: Include not found: %s -->", tok.path)
	}
	body, ok := extractSection(content, tok.section)
	if !ok {
		return fmt.Sprintf("<!-- ERROR: Section not found: %s in %s -->", tok.section, tok.path)
	}

	rendered := r.expand(r.cond.Render(body), st, depth+1)
	st.memo[key] = rendered
	return rendered
}

// fetch resolves an include path to content. Entity-prefixed paths go
// through the referenced kind's own layered composition; everything else
// is a raw layer file read (project, then packs in reverse activation
// order, then core).
func (r *IncludeResolver) fetch(path string, st *resolveState, depth int) (string, bool) {
	if kind, name, ok := entityForIncludePath(path); ok && r.composeEntity != nil {
		text, err := r.composeEntity(kind, name, st, depth+1)
		if err != nil {
			return "", false
		}
		return text, true
	}

	resolved, found := r.ws.FindLayerFile(path, r.activePacks)
	if !found {
		return "", false
	}
	content, err := r.ws.ReadText(resolved)
	if err != nil {
		return "", false
	}
	st.deps.add(resolved)
	return content, true
}
