// SPDX-License-Identifier: MPL-2.0

// Package compose implements the layered document composition engine.
//
// An entity (agent persona, validator prompt, guideline document) is
// assembled from up to three layer groups in fixed precedence order: the
// Core template, zero or more Pack overlays in activation order, and an
// optional Project overlay. Composition runs a fixed pipeline per entity:
//
//	conditional rendering -> include resolution -> section merge ->
//	duplication detection -> content cache
//
// Directive syntax ({{include:...}}, section/extend markers, pack
// conditionals) is a compatibility contract with existing authored
// documents and is reproduced byte-exact.
//
// All state is per-call: a Composer only holds the workspace handle and
// configuration, so composing different entities concurrently is safe.
package compose
