// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"strata-cli/internal/config"
	"strata-cli/internal/workspace"
)

// Result is the outcome of one successful entity composition.
type Result struct {
	Kind         Kind
	Name         string
	Text         string
	Dependencies []string
	Hash         string
	CachePath    string
	Report       *DuplicateReport
}

// layerSet holds one entity's discovered layers after conditional
// rendering and include expansion. Absent layers are empty strings with
// present=false so an intentionally empty file is still a layer.
type layerSet struct {
	core        string
	coreFound   bool
	packs       []string // aligned with Composer.activePacks
	packsFound  []bool
	project     string
	projectOK   bool
	packSources []string
}

// Composer orchestrates the per-entity pipeline: conditional rendering,
// include resolution, section or template assembly, duplication analysis,
// and the content cache. A Composer is bound to one workspace and one
// effective configuration; composing on two roots means two Composers, so
// concurrent multi-root composition needs no shared state at all.
type Composer struct {
	ws    *workspace.Workspace
	cfg   *config.Config
	cond  *ConditionalRenderer
	cache *ContentCache
}

// NewComposer builds a composer over the workspace with the effective
// configuration.
func NewComposer(ws *workspace.Workspace, cfg *config.Config) *Composer {
	return &Composer{
		ws:    ws,
		cfg:   cfg,
		cond:  NewConditionalRenderer(cfg.ActivePacks),
		cache: NewContentCache(ws, cfg.CacheDir),
	}
}

// Compose runs the full pipeline for one named entity and persists the
// result. Nothing is written on failure except the best-effort
// duplication report.
func (c *Composer) Compose(kind Kind, name string) (*Result, error) {
	st := newResolveState()
	text, report, err := c.composeWith(kind, name, st, 0, true)
	if err != nil {
		return nil, err
	}

	deps := st.deps.values
	hash := DependencyHash(entityKey(kind, name), deps)
	cachePath, err := c.cache.Write(kind, name, text, deps)
	if err != nil {
		return nil, &Error{Kind: KindCacheWrite, Entity: entityKey(kind, name), Detail: "persisting cache artifact", Cause: err}
	}

	return &Result{
		Kind:         kind,
		Name:         name,
		Text:         text,
		Dependencies: deps,
		Hash:         hash,
		CachePath:    cachePath,
		Report:       report,
	}, nil
}

// ComposeAll composes every discovered entity of the kind. Failures are
// isolated per entity: the error map records them and the rest of the
// batch proceeds.
func (c *Composer) ComposeAll(kind Kind) (map[string]*Result, map[string]error) {
	results := make(map[string]*Result)
	failures := make(map[string]error)
	for _, name := range c.Discover(kind) {
		result, err := c.Compose(kind, name)
		if err != nil {
			slog.Warn("composition failed", "entity", entityKey(kind, name), "error", err)
			failures[name] = err
			continue
		}
		results[name] = result
	}
	return results, failures
}

// Discover lists entity names of the kind present in any layer, sorted.
func (c *Composer) Discover(kind Kind) []string {
	seen := make(map[string]bool)

	patterns := []string{
		filepath.Join(workspace.CoreDirName, kind.Dir, "*.md"),
		filepath.Join(workspace.ProjectDirName, kind.Dir, "*.md"),
	}
	for _, pack := range c.cfg.ActivePacks {
		patterns = append(patterns, filepath.Join(workspace.PacksDirName, pack, kind.Dir, "*.md"))
	}

	for _, pattern := range patterns {
		matches, err := c.ws.Glob(pattern)
		if err != nil {
			continue
		}
		for _, match := range matches {
			name := strings.TrimSuffix(filepath.Base(match), ".md")
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// composeNested is the entityComposeFunc wired into the include resolver:
// a referenced entity is composed through its own pipeline sharing the
// caller's resolve state, without cache writes or duplication
// enforcement. Error markers in the nested text propagate to the top.
func (c *Composer) composeNested(kind Kind, name string, st *resolveState, depth int) (string, error) {
	text, _, err := c.composeWith(kind, name, st, depth, false)
	return text, err
}

// composeWith is the shared pipeline body. topLevel selects duplication
// enforcement, report persistence, and the fail-closed marker scan.
func (c *Composer) composeWith(kind Kind, name string, st *resolveState, depth int, topLevel bool) (string, *DuplicateReport, error) {
	entity := entityKey(kind, name)
	// Mark the entity so a self-referencing include anywhere in the chain
	// trips the resolver's cycle detection. Nested compositions arrive with
	// their key already marked by the include that spawned them.
	if !st.inProgress[entity] {
		st.inProgress[entity] = true
		defer delete(st.inProgress, entity)
	}

	resolver := NewIncludeResolver(c.ws, c.cond, c.cfg.ActivePacks, c.cfg.Compose.MaxDepth, c.composeNested)

	layers, err := c.loadLayers(resolver, kind, name, st, depth)
	if err != nil {
		return "", nil, err
	}

	var text string
	switch kind.Mode {
	case ModeTemplate:
		text, err = c.assembleTemplate(kind, name, layers)
	case ModeSections:
		text, err = c.assembleSections(layers)
	case ModeConcat:
		text = c.assembleConcat(layers)
	default:
		err = fmt.Errorf("unknown composition mode %q", kind.Mode)
	}
	if err != nil {
		return "", nil, err
	}

	var report *DuplicateReport
	if topLevel && kind.Mode != ModeConcat {
		report = c.analyzeDuplication(kind, name, layers)
	}

	if topLevel {
		// A failed include anywhere in the chain outranks duplication; the
		// report side file above is still written either way.
		if marker, found := firstErrorMarker(text); found {
			return "", report, markerError(entity, marker)
		}
		if report.HasViolations() && c.cfg.Compose.DuplicationPolicy == config.PolicyFatal {
			return "", report, &Error{
				Kind:   KindDuplicationViolation,
				Entity: entity,
				Detail: report.Violations[0].String(),
			}
		}
	}
	return text, report, nil
}

// loadLayers discovers and renders the entity's Core, pack, and project
// layers. Each present layer file is a dependency; its text goes through
// conditional rendering and include expansion with the shared state.
func (c *Composer) loadLayers(resolver *IncludeResolver, kind Kind, name string, st *resolveState, depth int) (*layerSet, error) {
	layers := &layerSet{
		packs:      make([]string, len(c.cfg.ActivePacks)),
		packsFound: make([]bool, len(c.cfg.ActivePacks)),
	}

	render := func(path string) (string, error) {
		raw, err := c.ws.ReadText(path)
		if err != nil {
			return "", err
		}
		st.deps.add(path)
		return resolver.expand(c.cond.Render(raw), st, depth), nil
	}

	corePath := c.ws.CoreEntity(kind.Dir, name)
	if c.ws.Exists(corePath) {
		text, err := render(corePath)
		if err != nil {
			return nil, &Error{Kind: KindNotFound, Entity: entityKey(kind, name), Detail: "reading core template", Cause: err}
		}
		layers.core, layers.coreFound = text, true
	} else if kind.RequireCore {
		return nil, &Error{Kind: KindNotFound, Entity: entityKey(kind, name), Detail: fmt.Sprintf("no core template at %s", corePath)}
	}

	for i, pack := range c.cfg.ActivePacks {
		packPath := c.ws.PackEntity(pack, kind.Dir, name)
		if !c.ws.Exists(packPath) {
			continue
		}
		text, err := render(packPath)
		if err != nil {
			return nil, &Error{Kind: KindNotFound, Entity: entityKey(kind, name), Detail: fmt.Sprintf("reading pack overlay %s", pack), Cause: err}
		}
		layers.packs[i], layers.packsFound[i] = text, true
		layers.packSources = append(layers.packSources, pack)
	}

	projectPath := c.ws.ProjectEntity(kind.Dir, name)
	if c.ws.Exists(projectPath) {
		text, err := render(projectPath)
		if err != nil {
			return nil, &Error{Kind: KindNotFound, Entity: entityKey(kind, name), Detail: "reading project overlay", Cause: err}
		}
		layers.project, layers.projectOK = text, true
	}

	return layers, nil
}

// overlayNames returns the label for each present overlay layer in
// application order, "project" last.
func (l *layerSet) overlayNames() []string {
	names := append([]string(nil), l.packSources...)
	if l.projectOK {
		names = append(names, "project")
	}
	return names
}

// overlayTexts returns each present overlay layer's text in application
// order, aligned with overlayNames.
func (l *layerSet) overlayTexts() []string {
	var texts []string
	for i, found := range l.packsFound {
		if found {
			texts = append(texts, l.packs[i])
		}
	}
	if l.projectOK {
		texts = append(texts, l.project)
	}
	return texts
}

// analyzeDuplication runs the cross-layer report over the three buckets
// and persists it best-effort.
func (c *Composer) analyzeDuplication(kind Kind, name string, layers *layerSet) *DuplicateReport {
	detector := NewDuplicationDetector(c.cfg.Compose.ShingleSize, c.cfg.Compose.MinShingles)

	var packsBucket strings.Builder
	for i, found := range layers.packsFound {
		if found {
			packsBucket.WriteString(layers.packs[i])
			packsBucket.WriteString("\n\n")
		}
	}

	report := detector.Report(layers.core, packsBucket.String(), layers.project)
	if report.HasViolations() {
		for _, violation := range report.Violations {
			slog.Warn("cross-layer duplication detected",
				"entity", entityKey(kind, name),
				"layers", violation.First+"/"+violation.Second,
				"shingles", violation.Count)
		}
	}
	c.cache.WriteReport(kind, name, report)
	return report
}

// assembleConcat joins present layers Core → packs → project after
// paragraph-level deduplication. Higher-priority layers keep duplicated
// paragraphs; lower ones lose them.
func (c *Composer) assembleConcat(layers *layerSet) string {
	detector := NewDuplicationDetector(c.cfg.Compose.ShingleSize, c.cfg.Compose.MinShingles)

	var ordered []string
	if layers.coreFound {
		ordered = append(ordered, layers.core)
	}
	ordered = append(ordered, layers.overlayTexts()...)

	var parts []string
	for _, layer := range detector.DedupParagraphs(ordered) {
		if strings.TrimSpace(layer) != "" {
			parts = append(parts, strings.TrimSpace(layer))
		}
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// assembleSections splices overlay EXTEND blocks into the Core document's
// SECTION blocks.
func (c *Composer) assembleSections(layers *layerSet) (string, error) {
	composer := &SectionComposer{KeepSectionMarkers: c.cfg.Compose.KeepSectionMarkers}
	return composer.Merge(layers.core, layers.overlayTexts()), nil
}
