// SPDX-License-Identifier: MPL-2.0

package packs

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"strata-cli/internal/config"
	"strata-cli/internal/dag"

	"golang.org/x/exp/maps"
)

var (
	// ErrPackGraphCycle is returned when required-pack edges form a cycle.
	ErrPackGraphCycle = errors.New("pack dependency cycle")
	// ErrVersionConflict is returned by the strict strategy on any version
	// mismatch.
	ErrVersionConflict = errors.New("version conflict")
)

type (
	// ConflictRecord documents one merge conflict: the key, both values,
	// the owning pack pair, and how it was resolved.
	ConflictRecord struct {
		// Key is the dependency or script name that collided.
		Key string `json:"key"`
		// FirstPack owns the earlier-seen value (in load order).
		FirstPack string `json:"firstPack"`
		// FirstValue is the earlier-seen value.
		FirstValue string `json:"firstValue"`
		// SecondPack owns the later-seen value.
		SecondPack string `json:"secondPack"`
		// SecondValue is the later-seen value.
		SecondValue string `json:"secondValue"`
		// Resolution is the value that won; for scripts it is the
		// namespaced key the second value was stored under.
		Resolution string `json:"resolution"`
	}

	// ConflictSet groups conflict records by the map they occurred in.
	ConflictSet struct {
		Dependencies    []ConflictRecord `json:"dependencies"`
		DevDependencies []ConflictRecord `json:"devDependencies"`
		Scripts         []ConflictRecord `json:"scripts"`
	}

	// Result is the ordered merge of a pack selection.
	Result struct {
		// LoadOrder is the topological pack order: a pack never appears
		// before a pack it requires.
		LoadOrder []string `json:"loadOrder"`
		// Dependencies is the merged runtime dependency map.
		Dependencies map[string]string `json:"dependencies"`
		// DevDependencies is the merged development dependency map.
		DevDependencies map[string]string `json:"devDependencies"`
		// Scripts is the merged script map, including namespaced keys.
		Scripts map[string]string `json:"scripts"`
		// Conflicts records every resolved collision.
		Conflicts ConflictSet `json:"conflicts"`
	}

	// VersionConflictError is returned by the strict strategy. It wraps
	// ErrVersionConflict for errors.Is.
	VersionConflictError struct {
		Record ConflictRecord
	}

	// Composer resolves a selection of packs into a Result.
	Composer struct {
		loader   ManifestLoader
		strategy config.ConflictStrategy
	}
)

// Error implements the error interface.
func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict for %q: %s declares %q, %s declares %q",
		e.Record.Key, e.Record.FirstPack, e.Record.FirstValue,
		e.Record.SecondPack, e.Record.SecondValue)
}

// Unwrap returns ErrVersionConflict so callers can use errors.Is.
func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }

// NewComposer creates a Composer using the given manifest loader and
// version-conflict strategy.
func NewComposer(loader ManifestLoader, strategy config.ConflictStrategy) *Composer {
	return &Composer{loader: loader, strategy: strategy}
}

// Compose resolves the selected packs plus their transitive required packs
// into load order and merged dependency/script maps. Selection order is
// significant: it breaks ordering ties and decides which pack's content
// wins downstream, so Compose([A,B]) and Compose([B,A]) can differ in
// everything except the topological constraints.
func (c *Composer) Compose(selected []string) (*Result, error) {
	manifests := make(map[string]*Manifest)
	graph := dag.New()

	// Rank selected packs first so ties resolve in selection order;
	// transitive-only packs rank after, in discovery order.
	for _, name := range selected {
		graph.AddNode(name)
	}

	var visit func(name string) error
	visit = func(name string) error {
		if _, ok := manifests[name]; ok {
			return nil
		}
		manifest, err := c.loader.Load(name)
		if err != nil {
			return err
		}
		manifests[name] = manifest
		for _, required := range manifest.RequiredPacks {
			// Edge "A requires B" means B precedes A.
			graph.AddEdge(required, name)
			if err := visit(required); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range selected {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	loadOrder, err := graph.TopologicalSort()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, fmt.Errorf("%w: %v", ErrPackGraphCycle, cycleErr.Cycle)
		}
		return nil, err
	}

	result := &Result{
		LoadOrder:       loadOrder,
		Dependencies:    make(map[string]string),
		DevDependencies: make(map[string]string),
		Scripts:         make(map[string]string),
	}

	owners := map[string]string{}    // dependency key -> owning pack
	devOwners := map[string]string{} // devDependency key -> owning pack
	scriptOwners := map[string]string{}

	for _, pack := range loadOrder {
		manifest := manifests[pack]
		if manifest == nil {
			// Can only happen for packs injected as graph nodes but never
			// visited; selected packs are always visited.
			continue
		}

		if err := c.mergeVersions(result.Dependencies, owners, manifest.Dependencies,
			pack, &result.Conflicts.Dependencies); err != nil {
			return nil, err
		}
		if err := c.mergeVersions(result.DevDependencies, devOwners, manifest.DevDependencies,
			pack, &result.Conflicts.DevDependencies); err != nil {
			return nil, err
		}
		mergeScripts(result.Scripts, scriptOwners, manifest.Scripts,
			pack, &result.Conflicts.Scripts)
	}

	return result, nil
}

// mergeVersions folds one pack's dependency map into the merged map,
// applying the configured strategy when the same key carries a different
// version. Identical repeats are not conflicts.
func (c *Composer) mergeVersions(merged, owners, incoming map[string]string,
	pack string, conflicts *[]ConflictRecord) error {

	keys := maps.Keys(incoming)
	slices.Sort(keys)

	for _, key := range keys {
		value := incoming[key]
		existing, seen := merged[key]
		if !seen {
			merged[key] = value
			owners[key] = pack
			continue
		}
		if existing == value {
			continue
		}

		record := ConflictRecord{
			Key:         key,
			FirstPack:   owners[key],
			FirstValue:  existing,
			SecondPack:  pack,
			SecondValue: value,
		}

		switch c.strategy {
		case config.StrategyStrict:
			return &VersionConflictError{Record: record}
		case config.StrategyFirstWins:
			record.Resolution = existing
		case config.StrategyLatestWins:
			fallthrough
		default:
			// Larger loose version wins; ties favor the later-seen value.
			if parseLooseVersion(value).Compare(parseLooseVersion(existing)) >= 0 {
				merged[key] = value
				owners[key] = pack
				record.Resolution = value
			} else {
				record.Resolution = existing
			}
		}

		slog.Debug("resolved version conflict",
			"key", key, "first", record.FirstValue, "second", record.SecondValue,
			"resolution", record.Resolution, "strategy", string(c.strategy))
		*conflicts = append(*conflicts, record)
	}
	return nil
}

// mergeScripts folds one pack's scripts into the merged map. The first
// pack to define a script name owns the canonical key; a later identical
// command is skipped silently, a later differing command is stored under
// "<pack>:<script>" and recorded as a conflict. The canonical key is never
// overwritten.
func mergeScripts(merged, owners, incoming map[string]string,
	pack string, conflicts *[]ConflictRecord) {

	keys := maps.Keys(incoming)
	slices.Sort(keys)

	for _, key := range keys {
		value := incoming[key]
		existing, seen := merged[key]
		if !seen {
			merged[key] = value
			owners[key] = pack
			continue
		}
		if existing == value {
			continue
		}

		namespaced := pack + ":" + key
		merged[namespaced] = value
		*conflicts = append(*conflicts, ConflictRecord{
			Key:         key,
			FirstPack:   owners[key],
			FirstValue:  existing,
			SecondPack:  pack,
			SecondValue: value,
			Resolution:  namespaced,
		})
	}
}
