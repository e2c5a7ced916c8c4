// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package pushdown

import (
	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/logger"
	"github.com/NVIDIA/rrtree/opgroup"
)

// LargestBufGroup pushes down only the largest group(s) at the children of the
// root and everything below them. Split deletes in the buffered groups are left alone.
type LargestBufGroup struct {
	tree                  Tree
	groupSizeByInsertions bool
	equalLargestGroups    uint64
	splitDeletes          func(groupsForPushDown *opgroup.Map, groupsForBuffer *opgroup.Map)
}

// LargestBufGroupSplitDeletes is LargestBufGroup that also delivers, with the
// chosen groups, every buffered deletion one of them already carries.
type LargestBufGroupSplitDeletes struct {
	LargestBufGroup
	splitDeleteCopies uint64
}

func NewLargestBufGroup(tree Tree, groupSizeByInsertions bool) (strategy *LargestBufGroup) {
	strategy = &LargestBufGroup{
		tree:                  tree,
		groupSizeByInsertions: groupSizeByInsertions,
	}
	strategy.splitDeletes = func(*opgroup.Map, *opgroup.Map) {}
	return
}

func NewLargestBufGroupSplitDeletes(tree Tree, groupSizeByInsertions bool) (strategy *LargestBufGroupSplitDeletes) {
	strategy = &LargestBufGroupSplitDeletes{
		LargestBufGroup: LargestBufGroup{
			tree:                  tree,
			groupSizeByInsertions: groupSizeByInsertions,
		},
	}
	strategy.splitDeletes = strategy.handleSplitDeletes
	return
}

func (strategy *LargestBufGroup) ChoosePushDownGroups(groupsToFilter *opgroup.Map, childNodeLevel int, childNodeSize int, calledFromRestart bool) (result *opgroup.Result) {
	if calledFromRestart {
		result = pushDownEverything(groupsToFilter)
		return
	}

	if !isChildOfRoot(strategy.tree, childNodeLevel) {
		result = pushDownEverything(groupsToFilter)
		return
	}

	groupsForPushDown := opgroup.NewMap()
	groupsForBuffer := opgroup.CopyMap(groupsToFilter)
	biggestGroupSize := 0

	groupsToFilter.Range(func(entry *opgroup.IndexEntry, group *opgroup.OperationGroup) bool {
		groupSize := group.SizeInSignificantOps(strategy.groupSizeByInsertions)
		switch {
		case groupSize > biggestGroupSize:
			groupsForBuffer.Copy(groupsForPushDown)
			groupsForPushDown.ClearAndSet(entry, group)
			groupsForBuffer.Remove(entry)
			biggestGroupSize = groupSize
		case groupSize == biggestGroupSize:
			groupsForPushDown.MoveGroupFrom(groupsForBuffer, entry, group)
		}
		return true
	})

	if 1 < groupsForPushDown.Size() {
		strategy.equalLargestGroups += uint64(groupsForPushDown.Size() - 1)
	}

	strategy.splitDeletes(groupsForPushDown, groupsForBuffer)

	result = opgroup.NewResult(groupsForPushDown, groupsForBuffer)
	return
}

func (strategy *LargestBufGroup) WillEmptyBigPartOfBuffer() bool {
	return false
}

func (strategy *LargestBufGroup) EqualLargestGroups() uint64 {
	return strategy.equalLargestGroups
}

// SplitDeleteCopies counts the buffered deletions that were delivered alongside a chosen group.
func (strategy *LargestBufGroupSplitDeletes) SplitDeleteCopies() uint64 {
	return strategy.splitDeleteCopies
}

// handleSplitDeletes moves every buffered operation that also appears in a
// push-down group into an extra push-down group under its own entry.
//
// Only deletions may be bound for more than one subtree; anything else found
// on both sides is a broken tree.
//
func (strategy *LargestBufGroupSplitDeletes) handleSplitDeletes(groupsForPushDown *opgroup.Map, groupsForBuffer *opgroup.Map) {
	extraPushDown := opgroup.NewMap()

	inPushDown := func(op *opgroup.Operation) bool {
		found := false
		groupsForPushDown.Range(func(_ *opgroup.IndexEntry, group *opgroup.OperationGroup) bool {
			found = group.Contains(op)
			return !found
		})
		return found
	}

	for _, entry := range groupsForBuffer.Entries() {
		group, _ := groupsForBuffer.Get(entry)

		removed := group.RemoveIf(inPushDown)

		for _, op := range removed {
			if !op.IsDeletion() {
				err := blunder.NewError(blunder.InvariantError, "%v buffered under %v is also being pushed down", op, entry)
				logger.PanicfWithError(err, "pushdown: only deletions may be split across subtrees")
			}
			extraPushDown.AddEntry(entry, op)
			strategy.splitDeleteCopies++
		}

		if 0 == group.Size() {
			groupsForBuffer.Remove(entry)
		}
	}

	groupsForPushDown.Copy(extraPushDown)
}
