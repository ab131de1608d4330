// SPDX-License-Identifier: MPL-2.0

// Package config loads the workspace configuration.
//
// Configuration lives in strata.cue at the workspace root. The file is
// validated against an embedded CUE schema before being merged into viper,
// which layers it over built-in defaults and STRATA_* environment
// variables. The resulting Config is an immutable value passed to the
// composition and pack-resolution pipelines.
package config
