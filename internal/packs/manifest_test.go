// SPDX-License-Identifier: MPL-2.0

package packs

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"strata-cli/internal/issue"
	"strata-cli/internal/workspace"
)

func newLoaderFixture(t *testing.T) (*workspace.Workspace, ManifestLoader) {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return ws, NewLoader(ws)
}

func writePackFile(t *testing.T, ws *workspace.Workspace, pack, file, content string) {
	t.Helper()
	path := filepath.Join(ws.PackDir(pack), file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_CUEManifest(t *testing.T) {
	t.Parallel()
	ws, loader := newLoaderFixture(t)
	writePackFile(t, ws, "go-backend", "pack.cue", `
name: "go-backend"
dependencies: {
	"chi":        "^5.0.0"
	"pgx":        "5.5.0"
}
scripts: {
	build: "go build ./..."
	test:  "go test ./..."
}
required_packs: ["base"]
`)

	manifest, err := loader.Load("go-backend")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if manifest.Name != "go-backend" {
		t.Errorf("name = %q", manifest.Name)
	}
	if manifest.Dependencies["chi"] != "^5.0.0" {
		t.Errorf("dependencies = %v", manifest.Dependencies)
	}
	if !slices.Equal(manifest.RequiredPacks, []string{"base"}) {
		t.Errorf("required_packs = %v", manifest.RequiredPacks)
	}
}

func TestLoad_CUEManifestDefaultsName(t *testing.T) {
	t.Parallel()
	ws, loader := newLoaderFixture(t)
	writePackFile(t, ws, "unnamed", "pack.cue", `scripts: lint: "golangci-lint run"`)

	manifest, err := loader.Load("unnamed")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if manifest.Name != "unnamed" {
		t.Errorf("expected directory-name default, got %q", manifest.Name)
	}
}

func TestLoad_CUEManifestSchemaViolation(t *testing.T) {
	t.Parallel()
	ws, loader := newLoaderFixture(t)
	writePackFile(t, ws, "bad", "pack.cue", `dependencies: {chi: 5}`)

	_, err := loader.Load("bad")
	if err == nil {
		t.Fatal("expected schema violation error")
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected actionable error, got %T: %v", err, err)
	}
	if ae.Operation != "load pack manifest" {
		t.Errorf("unexpected operation %q", ae.Operation)
	}
}

func TestLoad_TOMLManifest(t *testing.T) {
	t.Parallel()
	ws, loader := newLoaderFixture(t)
	writePackFile(t, ws, "legacy", "pack.toml", `
name = "legacy"
required_packs = ["base"]

[dependencies]
express = "~4.18.0"

[scripts]
start = "node server.js"
`)

	manifest, err := loader.Load("legacy")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if manifest.Dependencies["express"] != "~4.18.0" {
		t.Errorf("dependencies = %v", manifest.Dependencies)
	}
	if manifest.Scripts["start"] != "node server.js" {
		t.Errorf("scripts = %v", manifest.Scripts)
	}
	if !slices.Equal(manifest.RequiredPacks, []string{"base"}) {
		t.Errorf("required_packs = %v", manifest.RequiredPacks)
	}
}

func TestLoad_CUEPreferredOverTOML(t *testing.T) {
	t.Parallel()
	ws, loader := newLoaderFixture(t)
	writePackFile(t, ws, "both", "pack.cue", `name: "from-cue"`)
	writePackFile(t, ws, "both", "pack.toml", `name = "from-toml"`)

	manifest, err := loader.Load("both")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if manifest.Name != "from-cue" {
		t.Errorf("expected pack.cue to win, got %q", manifest.Name)
	}
}

func TestLoad_ContentOnlyPack(t *testing.T) {
	t.Parallel()
	ws, loader := newLoaderFixture(t)
	writePackFile(t, ws, "docs-only", "guidelines/style.md", "# Style")

	manifest, err := loader.Load("docs-only")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if manifest.Name != "docs-only" {
		t.Errorf("name = %q", manifest.Name)
	}
	if len(manifest.Dependencies) != 0 || len(manifest.RequiredPacks) != 0 {
		t.Errorf("expected empty manifest, got %+v", manifest)
	}
}

func TestLoad_MissingPack(t *testing.T) {
	t.Parallel()
	_, loader := newLoaderFixture(t)

	_, err := loader.Load("ghost")
	if !errors.Is(err, ErrPackNotFound) {
		t.Fatalf("expected ErrPackNotFound, got %v", err)
	}
	var notFound *PackNotFoundError
	if !errors.As(err, &notFound) || notFound.Pack != "ghost" {
		t.Errorf("expected typed error naming the pack, got %v", err)
	}
}
