// SPDX-License-Identifier: MPL-2.0

// Package workspace models a strata workspace on disk and provides the
// filesystem operations the composition engine needs (read, glob, write
// with parent creation).
//
// A Workspace is an explicit, immutable context value: every composer takes
// one instead of consulting process-wide state, so composing against two
// different roots concurrently is safe by construction.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	// ConfigFileName is the workspace config file at the root.
	ConfigFileName = "strata.cue"

	// CoreDirName holds framework-shipped default layers.
	CoreDirName = "core"
	// PacksDirName holds one subdirectory per available pack.
	PacksDirName = "packs"
	// ProjectDirName holds the repo-specific overlay layer.
	ProjectDirName = "project"
	// CacheDirName holds composed artifacts, relative to the root.
	CacheDirName = ".strata/cache"
	// ReportsDirName holds duplication reports, relative to CacheDirName.
	ReportsDirName = "reports"

	// SharedDirName holds raw include snippets inside each layer.
	SharedDirName = "shared"

	// ManifestCUEName is the CUE pack manifest file name.
	ManifestCUEName = "pack.cue"
	// ManifestTOMLName is the TOML pack manifest file name.
	ManifestTOMLName = "pack.toml"
)

// Workspace is a handle on one strata workspace root.
type Workspace struct {
	root string
}

// New creates a Workspace for the given root directory. The root must exist
// and be a directory; nothing else is required (core/, packs/ and project/
// are all optional).
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute workspace root path.
func (w *Workspace) Root() string { return w.root }

// ConfigPath returns the path of the workspace config file.
func (w *Workspace) ConfigPath() string {
	return filepath.Join(w.root, ConfigFileName)
}

// CacheDir returns the content-cache directory.
func (w *Workspace) CacheDir() string {
	return filepath.Join(w.root, filepath.FromSlash(CacheDirName))
}

// ReportsDir returns the duplication-report directory inside the cache.
func (w *Workspace) ReportsDir() string {
	return filepath.Join(w.CacheDir(), ReportsDirName)
}

// CoreEntity returns the path of a core-layer entity document.
func (w *Workspace) CoreEntity(kindDir, name string) string {
	return filepath.Join(w.root, CoreDirName, kindDir, name+".md")
}

// PackEntity returns the path of a pack-layer entity document.
func (w *Workspace) PackEntity(pack, kindDir, name string) string {
	return filepath.Join(w.root, PacksDirName, pack, kindDir, name+".md")
}

// ProjectEntity returns the path of a project-layer entity document.
func (w *Workspace) ProjectEntity(kindDir, name string) string {
	return filepath.Join(w.root, ProjectDirName, kindDir, name+".md")
}

// PackDir returns the directory of one pack.
func (w *Workspace) PackDir(pack string) string {
	return filepath.Join(w.root, PacksDirName, pack)
}

// ListPacks returns the names of all packs that have a directory under
// packs/, sorted for determinism. A pack directory with no manifest is
// still listed; manifest validity is the pack loader's concern.
func (w *Workspace) ListPacks() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(w.root, PacksDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing packs: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// FindLayerFile locates a raw include file by its layer-relative path
// (e.g., "shared/tools/git.md"), searching highest precedence first:
// project, then active packs in reverse activation order, then core.
// Returns the resolved absolute path and whether it was found.
func (w *Workspace) FindLayerFile(rel string, activePacks []string) (string, bool) {
	rel = filepath.FromSlash(rel)

	candidates := make([]string, 0, len(activePacks)+2)
	candidates = append(candidates, filepath.Join(w.root, ProjectDirName, rel))
	for i := len(activePacks) - 1; i >= 0; i-- {
		candidates = append(candidates, filepath.Join(w.root, PacksDirName, activePacks[i], rel))
	}
	candidates = append(candidates, filepath.Join(w.root, CoreDirName, rel))

	for _, candidate := range candidates {
		if w.Exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Exists reports whether path exists and is a regular file.
func (w *Workspace) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ReadText reads a UTF-8 text file.
func (w *Workspace) ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Glob returns the files matching pattern, which is interpreted relative
// to the workspace root when not absolute.
func (w *Workspace) Glob(pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(w.root, filepath.FromSlash(pattern))
	}
	return filepath.Glob(pattern)
}

// WriteText writes a text file, creating parent directories as needed.
func (w *Workspace) WriteText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
