// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"strata-cli/internal/workspace"
)

// ContentCache persists rendered entities keyed by entity id, with a
// sidecar carrying the dependency hash. Write-through only: staleness
// detection is the caller's responsibility via hash comparison, and
// nothing is written on a failed compose except the best-effort
// duplication report.
type ContentCache struct {
	ws  *workspace.Workspace
	dir string
}

// NewContentCache builds a cache rooted at dir, or at the workspace's
// default cache directory when dir is empty.
func NewContentCache(ws *workspace.Workspace, dir string) *ContentCache {
	if dir == "" {
		dir = ws.CacheDir()
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(ws.Root(), dir)
	}
	return &ContentCache{ws: ws, dir: dir}
}

// Dir returns the cache root directory.
func (c *ContentCache) Dir() string { return c.dir }

// CacheEntry is the sidecar metadata persisted next to each rendered
// entity.
type CacheEntry struct {
	Hash            string   `json:"hash"`
	DependencyPaths []string `json:"dependency_paths"`
}

// DependencyHash computes the stable cache key: sha256 over the ordered
// transitive dependency path list plus the entity id discriminator.
func DependencyHash(entityID string, deps []string) string {
	h := sha256.New()
	h.Write([]byte(entityID))
	for _, dep := range deps {
		h.Write([]byte{0})
		h.Write([]byte(dep))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Write persists the rendered text and its sidecar under
// <cache>/<kind.Dir>/<name>.md and .deps.json. Returns the rendered
// artifact path.
func (c *ContentCache) Write(kind Kind, name, text string, deps []string) (string, error) {
	hash := DependencyHash(entityKey(kind, name), deps)
	dir := filepath.Join(c.dir, kind.Dir)
	textPath := filepath.Join(dir, name+".md")
	sidecarPath := filepath.Join(dir, name+".deps.json")

	if err := c.ws.WriteText(textPath, text); err != nil {
		return "", fmt.Errorf("caching %s: %w", entityKey(kind, name), err)
	}
	sidecar, err := json.MarshalIndent(CacheEntry{Hash: hash, DependencyPaths: deps}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding cache sidecar for %s: %w", entityKey(kind, name), err)
	}
	if err := c.ws.WriteText(sidecarPath, string(sidecar)+"\n"); err != nil {
		return "", fmt.Errorf("caching %s: %w", entityKey(kind, name), err)
	}
	return textPath, nil
}

// WriteReport persists a duplication report under the reports
// subdirectory. Best effort: failures are logged, never surfaced, so a
// full report disk is not a compose failure.
func (c *ContentCache) WriteReport(kind Kind, name string, report *DuplicateReport) {
	if report == nil {
		return
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		slog.Warn("encoding duplication report failed", "entity", entityKey(kind, name), "error", err)
		return
	}
	path := filepath.Join(c.dir, workspace.ReportsDirName, kind.Dir+"-"+name+".json")
	if err := c.ws.WriteText(path, string(data)+"\n"); err != nil {
		slog.Warn("writing duplication report failed", "entity", entityKey(kind, name), "error", err)
	}
}
