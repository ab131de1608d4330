// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"fmt"
	"strings"
)

// ErrorKind classifies composition failures. Every failure surfaces as a
// single *Error to the per-entity caller; batch callers collect them per
// entity and keep going.
type ErrorKind string

const (
	// KindNotFound means a required source is missing: a Core template, an
	// include target, or a requested section.
	KindNotFound ErrorKind = "not-found"
	// KindTemplateInvalid means a Core template fails its structural
	// precondition.
	KindTemplateInvalid ErrorKind = "template-invalid"
	// KindCircularReference means an include chain re-entered a document
	// already being resolved.
	KindCircularReference ErrorKind = "circular-reference"
	// KindDepthExceeded means include recursion went past the configured
	// maximum depth.
	KindDepthExceeded ErrorKind = "depth-exceeded"
	// KindDuplicationViolation means two layers duplicate each other beyond
	// the configured shingle threshold under the fatal policy.
	KindDuplicationViolation ErrorKind = "duplication-violation"
	// KindCacheWrite means composition succeeded but the cache artifact
	// could not be persisted.
	KindCacheWrite ErrorKind = "cache-write"
)

// Error is the composition error type. Kind carries the failure class for
// programmatic handling; Entity and Detail describe it.
type Error struct {
	Kind   ErrorKind
	Entity string
	Detail string
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "compose %s: %s", e.Entity, e.Kind)
	if e.Detail != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Detail)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// errorMarkerPrefix is the literal substring whose presence anywhere in
// rendered output marks the compose as failed. Resolution never raises
// mid-stream; it embeds markers and the top-level wrapper scans for them.
const errorMarkerPrefix = "<!-- ERROR:"

// firstErrorMarker extracts the first embedded error marker from rendered
// text, returning the marker body and whether one was found.
func firstErrorMarker(text string) (string, bool) {
	start := strings.Index(text, errorMarkerPrefix)
	if start == -1 {
		return "", false
	}
	rest := text[start:]
	end := strings.Index(rest, "-->")
	if end == -1 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end+len("-->")]), true
}

// markerError converts an embedded error marker into the matching Error
// kind, quoting the marker verbatim.
func markerError(entity, marker string) *Error {
	kind := KindNotFound
	switch {
	case strings.Contains(marker, "Circular include detected"):
		kind = KindCircularReference
	case strings.Contains(marker, "Maximum include depth exceeded"):
		kind = KindDepthExceeded
	}
	return &Error{Kind: kind, Entity: entity, Detail: marker}
}
