// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package opgroup holds the containers exchanged between an RR-Tree and its
// push-down strategies: pending operations, the groups of operations bound for
// one index entry, the map from index entries to groups, and the two-sided
// result of a push-down decision.
//
// All containers live for at most one buffer-emptying pass. The spatial objects
// and index entries they reference are owned by the tree.
//
// A nil *Map is meaningful: it says nothing is pending for a subtree. Every
// read method of *Map accepts a nil receiver and behaves as on an empty map.
package opgroup

import (
	"fmt"

	"github.com/NVIDIA/rrtree/spatial"
)

// Kind says whether an Operation adds or removes its object.
type Kind uint8

const (
	Insertion Kind = iota + 1
	Deletion
)

func (kind Kind) String() string {
	switch kind {
	case Insertion:
		return "Insertion"
	case Deletion:
		return "Deletion"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(kind))
	}
}

// OpKey identifies the logical update an Operation stands for.
//
// Two Operations with equal OpKeys are the same update even when they are
// distinct records (e.g. one deletion registered under two index entries).
//
type OpKey struct {
	ObjectID uint64
	Kind     Kind
}

// Operation is an immutable pending insertion or deletion of one spatial object.
type Operation struct {
	object *spatial.Object
	kind   Kind
}

// OperationGroup is an unordered multiset of Operations bound for one index entry.
type OperationGroup struct {
	ops    []*Operation
	counts map[OpKey]int
}

// IndexEntry is one (child, bounding rectangle) slot of a tree node.
//
// Map keys on the *IndexEntry pointer, never on its contents. A nil *IndexEntry
// is the orphan key for operations no subtree can accept.
//
type IndexEntry struct {
	ID    uint64
	Rect  spatial.Rectangle
	Child interface{}
}

// Map maps index entries to the (never empty) group of operations bound for each.
type Map struct {
	groups map[*IndexEntry]*OperationGroup
}

// Result is the (push-down, buffer) split returned by a push-down strategy.
type Result struct {
	forPushDown *Map
	forBuffer   *Map
}

func (entry *IndexEntry) String() string {
	if nil == entry {
		return "<orphan>"
	}
	return fmt.Sprintf("IndexEntry(%d)%v", entry.ID, entry.Rect)
}
