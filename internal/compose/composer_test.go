// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"strata-cli/internal/config"
	"strata-cli/internal/workspace"
)

func newTestComposer(t *testing.T, packs ...string) (*Composer, *workspace.Workspace) {
	t.Helper()
	ws := newTestWorkspace(t)
	cfg := config.DefaultConfig()
	cfg.ActivePacks = packs
	return NewComposer(ws, cfg), ws
}

func TestCompose_TemplateSubstitution(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t, "web")

	writeLayerFile(t, ws, "core/agents/reviewer.md",
		"# {{AGENT_NAME}}\n\nActive packs: {{PACK_NAME}}\n\n{{PACK_CONTEXT}}\n\n## Tools\n\n{{TOOLS}}\n\n## Guidelines\n\n{{GUIDELINES}}\n")
	writeLayerFile(t, ws, "packs/web/agents/reviewer.md",
		"## Tools\n- browser\n\n## Guidelines\n- check contrast\n")
	writeLayerFile(t, ws, "project/agents/reviewer.md",
		"- always lint first\n")

	result, err := c.Compose(KindAgent, "reviewer")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	for _, want := range []string{
		"# reviewer",
		"Active packs: web",
		"- web",
		"### web\n\n- browser",
		"### web\n\n- check contrast",
		// Heading-free project overlay falls back to Guidelines.
		"### project\n\n- always lint first",
	} {
		if !strings.Contains(result.Text, want) {
			t.Fatalf("missing %q in:\n%s", want, result.Text)
		}
	}
	if strings.Contains(result.Text, "{{TOOLS}}") {
		t.Fatalf("placeholder left unsubstituted:\n%s", result.Text)
	}
}

func TestCompose_SectionPlaceholderFromOverlayRegistry(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t, "web")

	writeLayerFile(t, ws, "core/agents/dev.md",
		"# dev\n\nStack: {{SECTION:TechStack}}\n")
	writeLayerFile(t, ws, "packs/web/agents/dev.md",
		"<!-- section: TechStack -->\nGo and CUE\n<!-- /section: TechStack -->\n")

	result, err := c.Compose(KindAgent, "dev")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(result.Text, "Stack: Go and CUE") {
		t.Fatalf("got:\n%s", result.Text)
	}
}

func TestCompose_MissingCoreTemplate(t *testing.T) {
	t.Parallel()
	c, _ := newTestComposer(t)

	_, err := c.Compose(KindAgent, "ghost")
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCompose_TemplateWithoutHeaderIsInvalid(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)
	writeLayerFile(t, ws, "core/agents/bad.md", "no header here\n")

	_, err := c.Compose(KindAgent, "bad")
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindTemplateInvalid {
		t.Fatalf("expected TemplateInvalid, got %v", err)
	}
}

func TestCompose_ValidatorSectionMerge(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t, "web")

	writeLayerFile(t, ws, "core/validators/lint.md",
		"# lint\n\n<!-- section: Checks -->\n- base check\n<!-- /section: Checks -->\n")
	writeLayerFile(t, ws, "packs/web/validators/lint.md",
		"<!-- extend: Checks -->\n- web check\n<!-- /extend -->\n")

	result, err := c.Compose(KindValidator, "lint")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(result.Text, "- base check\n\n- web check") {
		t.Fatalf("got:\n%s", result.Text)
	}
	if strings.Contains(result.Text, "extend:") {
		t.Fatalf("extend markers leaked:\n%s", result.Text)
	}
}

func TestCompose_GuidelineConcatDedups(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)

	duplicated := words(12, "w")
	writeLayerFile(t, ws, "core/guidelines/style.md", "core intro\n\n"+duplicated+"\n")
	writeLayerFile(t, ws, "project/guidelines/style.md", duplicated+"\n\nproject extra\n")

	result, err := c.Compose(KindGuideline, "style")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := strings.Count(result.Text, duplicated); got != 1 {
		t.Fatalf("duplicated paragraph appears %d times:\n%s", got, result.Text)
	}
	// Core comes first, project last.
	if strings.Index(result.Text, "core intro") > strings.Index(result.Text, "project extra") {
		t.Fatalf("layer order broken:\n%s", result.Text)
	}
}

func TestCompose_GuidelineWithoutCore(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)
	writeLayerFile(t, ws, "project/guidelines/local.md", "project only\n")

	result, err := c.Compose(KindGuideline, "local")
	if err != nil {
		t.Fatalf("guidelines must not require a core layer: %v", err)
	}
	if !strings.Contains(result.Text, "project only") {
		t.Fatalf("got:\n%s", result.Text)
	}
}

func TestCompose_DuplicationPolicyFatal(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t, "web")

	shared := words(13, "w")
	writeLayerFile(t, ws, "core/agents/dup.md", "# dup\n\n"+shared+"\n")
	writeLayerFile(t, ws, "packs/web/agents/dup.md", shared+"\n")

	_, err := c.Compose(KindAgent, "dup")
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindDuplicationViolation {
		t.Fatalf("expected DuplicationViolation, got %v", err)
	}
	// No cache artifact on failure...
	if _, statErr := os.Stat(filepath.Join(ws.CacheDir(), "agents", "dup.md")); statErr == nil {
		t.Fatal("cache artifact written on failed compose")
	}
	// ...but the report side file is persisted best-effort.
	if _, statErr := os.Stat(filepath.Join(ws.ReportsDir(), "agents-dup.json")); statErr != nil {
		t.Fatalf("duplication report missing: %v", statErr)
	}
}

func TestCompose_DuplicationPolicyAdvisory(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t, "web")
	c.cfg.Compose.DuplicationPolicy = config.PolicyAdvisory

	shared := words(13, "w")
	writeLayerFile(t, ws, "core/agents/dup.md", "# dup\n\n"+shared+"\n")
	writeLayerFile(t, ws, "packs/web/agents/dup.md", shared+"\n")

	result, err := c.Compose(KindAgent, "dup")
	if err != nil {
		t.Fatalf("advisory policy must not fail: %v", err)
	}
	if !result.Report.HasViolations() {
		t.Fatal("violations should still be reported")
	}
}

func TestCompose_CircularIncludeFailsWithoutCacheWrite(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)

	writeLayerFile(t, ws, "core/guidelines/a.md", "{{include:shared/x.md}}\n")
	writeLayerFile(t, ws, "core/shared/x.md", "{{include:shared/x.md}}")

	_, err := c.Compose(KindGuideline, "a")
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindCircularReference {
		t.Fatalf("expected CircularReference, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(ws.CacheDir(), "guidelines", "a.md")); statErr == nil {
		t.Fatal("cache artifact written on failed compose")
	}
}

func TestCompose_EntityIncludeCrossesComposition(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)

	writeLayerFile(t, ws, "core/guidelines/base.md", "base guideline text\n")
	writeLayerFile(t, ws, "core/guidelines/combined.md",
		"combined intro\n\n{{include:guidelines/base.md}}\n")

	result, err := c.Compose(KindGuideline, "combined")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(result.Text, "base guideline text") {
		t.Fatalf("nested entity text missing:\n%s", result.Text)
	}
}

func TestCompose_CrossEntityCycleFails(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)

	writeLayerFile(t, ws, "core/guidelines/a.md", "{{include:guidelines/b.md}}\n")
	writeLayerFile(t, ws, "core/guidelines/b.md", "{{include:guidelines/a.md}}\n")

	_, err := c.Compose(KindGuideline, "a")
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindCircularReference {
		t.Fatalf("expected CircularReference, got %v", err)
	}
}

func TestCompose_WritesCacheArtifacts(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)
	writeLayerFile(t, ws, "core/guidelines/g.md", "guideline body\n")

	result, err := c.Compose(KindGuideline, "g")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	cached, err := os.ReadFile(result.CachePath)
	if err != nil {
		t.Fatalf("reading cache artifact: %v", err)
	}
	if string(cached) != result.Text {
		t.Fatal("cache artifact differs from result text")
	}

	sidecarPath := filepath.Join(ws.CacheDir(), "guidelines", "g.deps.json")
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		t.Fatalf("reading sidecar: %v", err)
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("decoding sidecar: %v", err)
	}
	if entry.Hash != result.Hash {
		t.Fatalf("sidecar hash %q != result hash %q", entry.Hash, result.Hash)
	}
	if len(entry.DependencyPaths) != 1 {
		t.Fatalf("deps = %v", entry.DependencyPaths)
	}
}

func TestCompose_ZeroOverlayReturnsCoreVerbatim(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)
	writeLayerFile(t, ws, "core/guidelines/solo.md", "only the core layer speaks here\n")

	result, err := c.Compose(KindGuideline, "solo")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if result.Text != "only the core layer speaks here\n" {
		t.Fatalf("got %q", result.Text)
	}
}

func TestCompose_HashIdempotent(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)
	writeLayerFile(t, ws, "core/guidelines/h.md", "stable content\n")

	first, err := c.Compose(KindGuideline, "h")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	second, err := c.Compose(KindGuideline, "h")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if first.Hash != second.Hash {
		t.Fatalf("hash changed across identical composes: %q vs %q", first.Hash, second.Hash)
	}
	if first.Text != second.Text {
		t.Fatal("text changed across identical composes")
	}
}

func TestDependencyHash_Stable(t *testing.T) {
	t.Parallel()
	a := DependencyHash("guidelines/g.md", []string{"x", "y"})
	b := DependencyHash("guidelines/g.md", []string{"x", "y"})
	if a != b {
		t.Fatal("hash must be deterministic")
	}
	if a == DependencyHash("guidelines/g.md", []string{"y", "x"}) {
		t.Fatal("hash must depend on dependency order")
	}
	if a == DependencyHash("guidelines/other.md", []string{"x", "y"}) {
		t.Fatal("hash must depend on the entity id")
	}
}

func TestComposeAll_IsolatesFailures(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)

	writeLayerFile(t, ws, "core/guidelines/good.md", "fine\n")
	writeLayerFile(t, ws, "core/guidelines/bad.md", "{{include:shared/missing.md}}\n")

	results, failures := c.ComposeAll(KindGuideline)
	if _, ok := results["good"]; !ok {
		t.Fatalf("good entity missing from results: %v", results)
	}
	if _, ok := failures["bad"]; !ok {
		t.Fatalf("bad entity missing from failures: %v", failures)
	}
	if len(results) != 1 || len(failures) != 1 {
		t.Fatalf("results=%d failures=%d", len(results), len(failures))
	}
}

func TestDiscover_UnionsLayersSorted(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t, "web")

	writeLayerFile(t, ws, "core/guidelines/zeta.md", "z\n")
	writeLayerFile(t, ws, "packs/web/guidelines/alpha.md", "a\n")
	writeLayerFile(t, ws, "project/guidelines/mid.md", "m\n")

	names := c.Discover(KindGuideline)
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestCompose_CacheWriteFailureReportedAsCacheWrite(t *testing.T) {
	t.Parallel()
	c, ws := newTestComposer(t)

	writeLayerFile(t, ws, "core/guidelines/style.md", "Use tabs.\n")

	// A regular file where the cache directory belongs makes every cache
	// write fail while the sources themselves compose fine.
	if err := os.MkdirAll(filepath.Dir(ws.CacheDir()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ws.CacheDir(), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := c.Compose(KindGuideline, "style")
	if err == nil {
		t.Fatal("expected cache write failure")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if cerr.Kind != KindCacheWrite {
		t.Errorf("Kind = %s, want %s", cerr.Kind, KindCacheWrite)
	}
}
