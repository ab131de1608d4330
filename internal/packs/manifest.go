// SPDX-License-Identifier: MPL-2.0

package packs

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"strata-cli/internal/issue"
	"strata-cli/internal/workspace"
	"strata-cli/pkg/cueutil"

	"github.com/pelletier/go-toml/v2"
)

//go:embed pack_schema.cue
var packSchema []byte

// ErrPackNotFound is returned when a selected pack has no directory in the
// workspace.
var ErrPackNotFound = errors.New("pack not found")

type (
	// Manifest describes one pack: its dependency maps, its scripts, and
	// the packs it requires to load first. A pack directory without a
	// manifest file is a content-only pack and gets a zero Manifest.
	Manifest struct {
		// Name is the pack name; defaults to the directory name.
		Name string `json:"name" toml:"name"`
		// Dependencies maps package name to version string.
		Dependencies map[string]string `json:"dependencies" toml:"dependencies"`
		// DevDependencies maps package name to version string.
		DevDependencies map[string]string `json:"dev_dependencies" toml:"dev_dependencies"`
		// Scripts maps script name to command line.
		Scripts map[string]string `json:"scripts" toml:"scripts"`
		// RequiredPacks lists packs that must load before this one.
		RequiredPacks []string `json:"required_packs" toml:"required_packs"`
	}

	// PackNotFoundError is returned when a selected or required pack has no
	// directory in the workspace. It wraps ErrPackNotFound for errors.Is.
	PackNotFoundError struct {
		Pack string
	}

	// ManifestLoader loads the manifest of one pack by name.
	ManifestLoader interface {
		Load(pack string) (*Manifest, error)
	}

	// workspaceLoader reads manifests from a workspace's packs directory,
	// preferring pack.cue over pack.toml.
	workspaceLoader struct {
		ws *workspace.Workspace
	}
)

// Error implements the error interface.
func (e *PackNotFoundError) Error() string {
	return fmt.Sprintf("pack %q not found", e.Pack)
}

// Unwrap returns ErrPackNotFound so callers can use errors.Is.
func (e *PackNotFoundError) Unwrap() error { return ErrPackNotFound }

// NewLoader creates a ManifestLoader backed by the workspace packs
// directory.
func NewLoader(ws *workspace.Workspace) ManifestLoader {
	return &workspaceLoader{ws: ws}
}

// Load reads and validates the manifest of one pack. A pack directory with
// neither pack.cue nor pack.toml yields an empty manifest named after the
// directory (content-only pack).
func (l *workspaceLoader) Load(pack string) (*Manifest, error) {
	dir := l.ws.PackDir(pack)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &PackNotFoundError{Pack: pack}
	}

	cuePath := filepath.Join(dir, workspace.ManifestCUEName)
	if l.ws.Exists(cuePath) {
		return loadCUEManifest(cuePath, pack)
	}

	tomlPath := filepath.Join(dir, workspace.ManifestTOMLName)
	if l.ws.Exists(tomlPath) {
		return loadTOMLManifest(tomlPath, pack)
	}

	return &Manifest{Name: pack}, nil
}

// loadCUEManifest parses a pack.cue file against the embedded #Pack schema.
func loadCUEManifest(path, pack string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	manifest, err := cueutil.ParseAndDecode[Manifest](packSchema, data, "#Pack",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false))
	if err != nil {
		return nil, issue.PackManifest(err, path)
	}

	if manifest.Name == "" {
		manifest.Name = pack
	}
	return manifest, nil
}

// loadTOMLManifest parses a pack.toml file.
func loadTOMLManifest(path, pack string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var manifest Manifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, issue.PackManifest(err, path)
	}
	if manifest.Name == "" {
		manifest.Name = pack
	}
	return &manifest, nil
}
