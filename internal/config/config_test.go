// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "strata.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{
		WorkspaceRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Compose.ShingleSize != DefaultShingleSize {
		t.Errorf("expected default shingle size %d, got %d", DefaultShingleSize, cfg.Compose.ShingleSize)
	}
	if cfg.Compose.MinShingles != DefaultMinShingles {
		t.Errorf("expected default min shingles %d, got %d", DefaultMinShingles, cfg.Compose.MinShingles)
	}
	if cfg.Compose.MaxDepth != DefaultMaxDepth {
		t.Errorf("expected default max depth %d, got %d", DefaultMaxDepth, cfg.Compose.MaxDepth)
	}
	if cfg.Compose.DuplicationPolicy != PolicyFatal {
		t.Errorf("expected fatal policy, got %q", cfg.Compose.DuplicationPolicy)
	}
	if cfg.Packs.ConflictStrategy != StrategyLatestWins {
		t.Errorf("expected latest-wins, got %q", cfg.Packs.ConflictStrategy)
	}
	if len(cfg.ActivePacks) != 0 {
		t.Errorf("expected no active packs, got %v", cfg.ActivePacks)
	}
}

func TestLoad_WorkspaceFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, `
active_packs: ["go-backend", "postgres"]
compose: {
	min_shingles: 3
	duplication_policy: "advisory"
}
packs: conflict_strategy: "strict"
`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{WorkspaceRoot: root})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !slices.Equal(cfg.ActivePacks, []string{"go-backend", "postgres"}) {
		t.Errorf("unexpected active packs: %v", cfg.ActivePacks)
	}
	if cfg.Compose.MinShingles != 3 {
		t.Errorf("expected min_shingles 3, got %d", cfg.Compose.MinShingles)
	}
	if cfg.Compose.DuplicationPolicy != PolicyAdvisory {
		t.Errorf("expected advisory, got %q", cfg.Compose.DuplicationPolicy)
	}
	if cfg.Packs.ConflictStrategy != StrategyStrict {
		t.Errorf("expected strict, got %q", cfg.Packs.ConflictStrategy)
	}
	// Untouched settings keep defaults.
	if cfg.Compose.ShingleSize != DefaultShingleSize {
		t.Errorf("expected default shingle size, got %d", cfg.Compose.ShingleSize)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, `compose: shingle_size: 1`)

	_, err := NewProvider().Load(context.Background(), LoadOptions{WorkspaceRoot: root})
	if err == nil {
		t.Fatal("expected schema violation error")
	}
}

func TestLoad_UnknownStrategyRejected(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, `packs: conflict_strategy: "newest"`)

	_, err := NewProvider().Load(context.Background(), LoadOptions{WorkspaceRoot: root})
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "absent.cue"),
	})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProvider().Load(ctx, LoadOptions{WorkspaceRoot: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad policy",
			mutate:  func(c *Config) { c.Compose.DuplicationPolicy = "loud" },
			wantErr: ErrInvalidDuplicationPolicy,
		},
		{
			name:    "bad strategy",
			mutate:  func(c *Config) { c.Packs.ConflictStrategy = "newest" },
			wantErr: ErrInvalidConflictStrategy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
