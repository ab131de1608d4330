// SPDX-License-Identifier: MPL-2.0

// Package packs loads pack manifests and composes the ordered merge result
// for a selection of packs: topological load order over required-pack
// edges, merged dependency maps with a configurable version-conflict
// strategy, and namespaced script merging.
//
// The pipeline is independent of document composition; its output feeds the
// active-pack list that the entity composer consumes.
package packs
