// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package pushdown

import (
	"github.com/NVIDIA/rrtree/logger"
	"github.com/NVIDIA/rrtree/opgroup"
)

// thresholdBase carries the group-size threshold selection shared by all threshold variants.
type thresholdBase struct {
	threshold             int
	groupSizeByInsertions bool
	satisfied             uint64
	unsatisfied           uint64
}

// PushDownAll moves every pending group down.
type PushDownAll struct{}

// Threshold pushes down groups of at least threshold operations, forcing
// progress with the largest group when none qualifies.
type Threshold struct {
	thresholdBase
}

// RootLevelThreshold applies Threshold only to the children of the root and
// pushes everything down below them.
type RootLevelThreshold struct {
	thresholdBase
	tree Tree
}

func (base *thresholdBase) ThresholdSatisfactions() uint64 {
	return base.satisfied
}

func (base *thresholdBase) ThresholdUnsatisfactions() uint64 {
	return base.unsatisfied
}

// selectGroupsAboveThreshold moves each group of groupsToFilter with at least
// threshold significant operations into groupsForPushDown and the rest into
// groupsForBuffer.
//
// If no group qualifies and emptyPushDownAcceptable is false, the largest group
// (or the first buffered one when all are of size 0) is pushed down anyway.
//
func (base *thresholdBase) selectGroupsAboveThreshold(threshold int, groupsToFilter *opgroup.Map, groupsForPushDown *opgroup.Map, groupsForBuffer *opgroup.Map, emptyPushDownAcceptable bool) {
	var (
		biggestEntry     *opgroup.IndexEntry
		biggestFound     bool
		biggestGroup     *opgroup.OperationGroup
		biggestGroupSize int
	)

	if nil == groupsToFilter {
		base.satisfied++
		return
	}

	groupsToFilter.Range(func(entry *opgroup.IndexEntry, group *opgroup.OperationGroup) bool {
		groupSize := group.SizeInSignificantOps(base.groupSizeByInsertions)
		if !emptyPushDownAcceptable && (groupSize > biggestGroupSize) {
			biggestEntry = entry
			biggestFound = true
			biggestGroup = group
			biggestGroupSize = groupSize
		}
		if groupSize >= threshold {
			groupsForPushDown.Put(entry, group)
		} else {
			groupsForBuffer.Put(entry, group)
		}
		return true
	})

	if !groupsForPushDown.IsEmpty() || groupsForBuffer.IsEmpty() {
		base.satisfied++
		return
	}

	base.unsatisfied++

	if emptyPushDownAcceptable {
		return
	}

	if !biggestFound {
		// Only groups of size 0 (e.g. deletions while counting insertions); any will do
		biggestEntry = groupsForBuffer.Entries()[0]
		biggestGroup, _ = groupsForBuffer.Get(biggestEntry)
	}

	logger.Tracef("pushdown: threshold %d unsatisfied, forcing %v (%d ops) down", threshold, biggestEntry, biggestGroup.Size())

	groupsForPushDown.MoveGroupFrom(groupsForBuffer, biggestEntry, biggestGroup)
}

// applyThreshold splits groupsToFilter by threshold without forcing progress.
func (base *thresholdBase) applyThreshold(threshold int, groupsToFilter *opgroup.Map) *opgroup.Result {
	groupsForPushDown := opgroup.NewMap()
	groupsForBuffer := opgroup.NewMap()

	base.selectGroupsAboveThreshold(threshold, groupsToFilter, groupsForPushDown, groupsForBuffer, true)

	return opgroup.NewResult(groupsForPushDown, groupsForBuffer)
}

// forceThreshold splits groupsToFilter by the configured threshold, forcing progress.
func (base *thresholdBase) forceThreshold(groupsToFilter *opgroup.Map) *opgroup.Result {
	groupsForPushDown := opgroup.NewMap()
	groupsForBuffer := opgroup.NewMap()

	base.selectGroupsAboveThreshold(base.threshold, groupsToFilter, groupsForPushDown, groupsForBuffer, false)

	return opgroup.NewResult(groupsForPushDown, groupsForBuffer)
}

func NewPushDownAll() *PushDownAll {
	return &PushDownAll{}
}

func (strategy *PushDownAll) ChoosePushDownGroups(groupsToFilter *opgroup.Map, childNodeLevel int, childNodeSize int, calledFromRestart bool) (result *opgroup.Result) {
	result = pushDownEverything(groupsToFilter)
	return
}

func (strategy *PushDownAll) WillEmptyBigPartOfBuffer() bool {
	return true
}

func (strategy *PushDownAll) EqualLargestGroups() uint64 {
	return 0
}

func NewThreshold(threshold int, groupSizeByInsertions bool) *Threshold {
	return &Threshold{
		thresholdBase: thresholdBase{
			threshold:             threshold,
			groupSizeByInsertions: groupSizeByInsertions,
		},
	}
}

// ChoosePushDownGroups ignores the node level and restart flag: the same forced threshold applies everywhere.
func (strategy *Threshold) ChoosePushDownGroups(groupsToFilter *opgroup.Map, childNodeLevel int, childNodeSize int, calledFromRestart bool) (result *opgroup.Result) {
	result = strategy.forceThreshold(groupsToFilter)
	return
}

func (strategy *Threshold) WillEmptyBigPartOfBuffer() bool {
	return true
}

func (strategy *Threshold) EqualLargestGroups() uint64 {
	return 0
}

func NewRootLevelThreshold(tree Tree, threshold int, groupSizeByInsertions bool) *RootLevelThreshold {
	return &RootLevelThreshold{
		thresholdBase: thresholdBase{
			threshold:             threshold,
			groupSizeByInsertions: groupSizeByInsertions,
		},
		tree: tree,
	}
}

func (strategy *RootLevelThreshold) ChoosePushDownGroups(groupsToFilter *opgroup.Map, childNodeLevel int, childNodeSize int, calledFromRestart bool) (result *opgroup.Result) {
	if !isChildOfRoot(strategy.tree, childNodeLevel) {
		result = pushDownEverything(groupsToFilter)
		return
	}

	result = strategy.forceThreshold(groupsToFilter)
	return
}

func (strategy *RootLevelThreshold) WillEmptyBigPartOfBuffer() bool {
	return false
}

func (strategy *RootLevelThreshold) EqualLargestGroups() uint64 {
	return 0
}
