// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package pushdown decides, during a buffer-emptying pass of an RR-Tree, which
// groups of buffered operations move one level down the tree now and which
// stay in the buffer.
//
// A Strategy is consulted once per node visited by the pass. It receives the
// pending operations grouped by the index entries of that node and splits them
// into a push-down Map and a buffer Map. Every operation of the input lands in
// exactly one side, except deletions copied by the split-delete variant.
//
// Strategies are not safe for concurrent use. They keep only cumulative
// diagnostic counters and never retain the maps they are handed.
package pushdown

import (
	"fmt"

	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/opgroup"
)

// Strategy is the push-down decision of a buffer-emptying pass.
type Strategy interface {
	// ChoosePushDownGroups splits groupsToFilter. A nil groupsToFilter means
	// nothing is pending; childNodeLevel is the level of the nodes receiving
	// the groups (0 for leaves) and childNodeSize their entry count.
	ChoosePushDownGroups(groupsToFilter *opgroup.Map, childNodeLevel int, childNodeSize int, calledFromRestart bool) (result *opgroup.Result)
	// WillEmptyBigPartOfBuffer tells the tree whether to rebuild its buffer
	// from the buffer side of the result instead of removing the pushed-down operations.
	WillEmptyBigPartOfBuffer() bool
	// EqualLargestGroups counts ties seen while selecting a largest group.
	EqualLargestGroups() uint64
}

// Tree is what every tree-aware strategy queries.
type Tree interface {
	Height() int
}

// CapacityTree is a Tree that also reports its node capacity bounds.
type CapacityTree interface {
	Tree
	MinNodeCapacity() int
	MaxNodeCapacity() int
}

// ThresholdCounter is implemented by threshold-based strategies.
type ThresholdCounter interface {
	ThresholdSatisfactions() uint64
	ThresholdUnsatisfactions() uint64
}

// Kind names a Strategy variant.
type Kind uint8

const (
	KindPushDownAll Kind = iota
	KindThreshold
	KindRootLevelThreshold
	KindLargestBufGroup
	KindLargestBufGroupSplitDeletes
	KindDivideByFanoutBelowRoot
	KindThresholdBelowRoot
	KindDivideByConstantBelowRoot
)

var kindNames = map[Kind]string{
	KindPushDownAll:                 "PushDownAll",
	KindThreshold:                   "Threshold",
	KindRootLevelThreshold:          "RootLevelThreshold",
	KindLargestBufGroup:             "LargestBufGroup",
	KindLargestBufGroupSplitDeletes: "LargestBufGroupSplitDeletes",
	KindDivideByFanoutBelowRoot:     "DivideByFanoutBelowRoot",
	KindThresholdBelowRoot:          "ThresholdBelowRoot",
	KindDivideByConstantBelowRoot:   "DivideByConstantBelowRoot",
}

func (kind Kind) String() string {
	name, ok := kindNames[kind]
	if !ok {
		return fmt.Sprintf("Kind(%d)", uint8(kind))
	}
	return name
}

// ParseKind maps a name as produced by Kind.String() back to its Kind.
func ParseKind(name string) (kind Kind, err error) {
	for candidate, candidateName := range kindNames {
		if candidateName == name {
			kind = candidate
			err = nil
			return
		}
	}
	err = blunder.NewError(blunder.UnknownStrategyError, "pushdown.ParseKind(\"%s\") matches no strategy", name)
	return
}

// IsBelowRoot reports whether kind delegates child-of-root decisions to a sub-strategy.
func (kind Kind) IsBelowRoot() bool {
	switch kind {
	case KindDivideByFanoutBelowRoot, KindThresholdBelowRoot, KindDivideByConstantBelowRoot:
		return true
	default:
		return false
	}
}

// isChildOfRoot reports whether nodes at childNodeLevel hang directly off the root.
func isChildOfRoot(tree Tree, childNodeLevel int) bool {
	return tree.Height() == (childNodeLevel + 1)
}

// pushDownEverything returns the result that moves all of groupsToFilter down.
func pushDownEverything(groupsToFilter *opgroup.Map) *opgroup.Result {
	return opgroup.NewResult(opgroup.CopyMap(groupsToFilter), nil)
}
