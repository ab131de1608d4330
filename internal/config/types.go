// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
)

const (
	// PolicyFatal aborts a compose when layers duplicate each other.
	PolicyFatal DuplicationPolicy = "fatal"
	// PolicyAdvisory records and logs duplication without failing.
	PolicyAdvisory DuplicationPolicy = "advisory"

	// StrategyFirstWins keeps the earliest-seen version on conflict.
	StrategyFirstWins ConflictStrategy = "first-wins"
	// StrategyStrict raises on any version mismatch.
	StrategyStrict ConflictStrategy = "strict"
	// StrategyLatestWins keeps the larger version on conflict (default).
	StrategyLatestWins ConflictStrategy = "latest-wins"

	// DefaultShingleSize is the k in k-word duplication shingles.
	DefaultShingleSize = 12
	// DefaultMinShingles is the overlap count that counts as a violation.
	DefaultMinShingles = 2
	// DefaultMaxDepth bounds include recursion.
	DefaultMaxDepth = 10
)

var (
	// ErrInvalidDuplicationPolicy is returned when a DuplicationPolicy value is not recognized.
	ErrInvalidDuplicationPolicy = errors.New("invalid duplication policy")
	// ErrInvalidConflictStrategy is returned when a ConflictStrategy value is not recognized.
	ErrInvalidConflictStrategy = errors.New("invalid conflict strategy")
)

type (
	// DuplicationPolicy selects how cross-layer duplication violations are
	// enforced during prompt-style composition.
	DuplicationPolicy string

	// InvalidDuplicationPolicyError is returned when a DuplicationPolicy
	// value is not recognized. It wraps ErrInvalidDuplicationPolicy for
	// errors.Is() compatibility.
	InvalidDuplicationPolicyError struct {
		Value DuplicationPolicy
	}

	// ConflictStrategy selects how differing dependency versions across
	// pack manifests are merged.
	ConflictStrategy string

	// InvalidConflictStrategyError is returned when a ConflictStrategy
	// value is not recognized. It wraps ErrInvalidConflictStrategy for
	// errors.Is() compatibility.
	InvalidConflictStrategyError struct {
		Value ConflictStrategy
	}

	// ComposeConfig holds the document-composition settings.
	ComposeConfig struct {
		// ShingleSize is the k in k-word duplication shingles.
		ShingleSize int `mapstructure:"shingle_size"`
		// MinShingles is the shared-shingle count that counts as a violation.
		MinShingles int `mapstructure:"min_shingles"`
		// MaxDepth bounds include recursion; exceeding it fails the compose.
		MaxDepth int `mapstructure:"max_depth"`
		// DuplicationPolicy selects fatal or advisory enforcement.
		DuplicationPolicy DuplicationPolicy `mapstructure:"duplication_policy"`
		// KeepSectionMarkers retains SECTION markers in composed output so
		// the result can itself serve as an include-section target.
		KeepSectionMarkers bool `mapstructure:"keep_section_markers"`
	}

	// PacksConfig holds the pack-resolution settings.
	PacksConfig struct {
		// ConflictStrategy selects first-wins, strict, or latest-wins.
		ConflictStrategy ConflictStrategy `mapstructure:"conflict_strategy"`
	}

	// Config is the effective workspace configuration.
	Config struct {
		// ActivePacks is the ordered list of packs enabled for composition.
		ActivePacks []string `mapstructure:"active_packs"`
		// CacheDir overrides the default cache location when set.
		CacheDir string `mapstructure:"cache_dir"`
		// Compose holds document-composition settings.
		Compose ComposeConfig `mapstructure:"compose"`
		// Packs holds pack-resolution settings.
		Packs PacksConfig `mapstructure:"packs"`
	}
)

// Error implements the error interface.
func (e *InvalidDuplicationPolicyError) Error() string {
	return fmt.Sprintf("invalid duplication policy %q (must be %q or %q)",
		e.Value, PolicyFatal, PolicyAdvisory)
}

// Unwrap returns ErrInvalidDuplicationPolicy so callers can use errors.Is.
func (e *InvalidDuplicationPolicyError) Unwrap() error { return ErrInvalidDuplicationPolicy }

// IsValid returns whether the DuplicationPolicy is one of the recognized
// values, and a list of validation errors if it is not.
func (p DuplicationPolicy) IsValid() (bool, []error) {
	switch p {
	case PolicyFatal, PolicyAdvisory:
		return true, nil
	default:
		return false, []error{&InvalidDuplicationPolicyError{Value: p}}
	}
}

// String returns the string representation of the DuplicationPolicy.
func (p DuplicationPolicy) String() string { return string(p) }

// Error implements the error interface.
func (e *InvalidConflictStrategyError) Error() string {
	return fmt.Sprintf("invalid conflict strategy %q (must be %q, %q, or %q)",
		e.Value, StrategyFirstWins, StrategyStrict, StrategyLatestWins)
}

// Unwrap returns ErrInvalidConflictStrategy so callers can use errors.Is.
func (e *InvalidConflictStrategyError) Unwrap() error { return ErrInvalidConflictStrategy }

// IsValid returns whether the ConflictStrategy is one of the recognized
// values, and a list of validation errors if it is not.
func (s ConflictStrategy) IsValid() (bool, []error) {
	switch s {
	case StrategyFirstWins, StrategyStrict, StrategyLatestWins:
		return true, nil
	default:
		return false, []error{&InvalidConflictStrategyError{Value: s}}
	}
}

// String returns the string representation of the ConflictStrategy.
func (s ConflictStrategy) String() string { return string(s) }

// DefaultConfig returns the built-in defaults applied before any file or
// environment overrides.
func DefaultConfig() *Config {
	return &Config{
		ActivePacks: nil,
		CacheDir:    "",
		Compose: ComposeConfig{
			ShingleSize:        DefaultShingleSize,
			MinShingles:        DefaultMinShingles,
			MaxDepth:           DefaultMaxDepth,
			DuplicationPolicy:  PolicyFatal,
			KeepSectionMarkers: false,
		},
		Packs: PacksConfig{
			ConflictStrategy: StrategyLatestWins,
		},
	}
}

// Validate checks constraints that the CUE schema cannot express on the
// already-decoded struct (enum membership after env overrides, positive
// numeric settings).
func (c *Config) Validate() error {
	if ok, errs := c.Compose.DuplicationPolicy.IsValid(); !ok {
		return errs[0]
	}
	if ok, errs := c.Packs.ConflictStrategy.IsValid(); !ok {
		return errs[0]
	}
	if c.Compose.ShingleSize < 2 {
		return fmt.Errorf("compose.shingle_size must be at least 2, got %d", c.Compose.ShingleSize)
	}
	if c.Compose.MinShingles < 1 {
		return fmt.Errorf("compose.min_shingles must be at least 1, got %d", c.Compose.MinShingles)
	}
	if c.Compose.MaxDepth < 1 {
		return fmt.Errorf("compose.max_depth must be at least 1, got %d", c.Compose.MaxDepth)
	}
	return nil
}
