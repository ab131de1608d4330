// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error types for the CLI layer.
//
// ActionableError carries the operation that failed, the resource involved,
// and concrete suggestions for fixing the problem, so command handlers can
// print something more useful than a bare error chain.
package issue
