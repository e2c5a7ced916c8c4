// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package rrtreepkg

import (
	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/logger"
	"github.com/NVIDIA/rrtree/opgroup"
	"github.com/NVIDIA/rrtree/pushdown"
	"github.com/NVIDIA/rrtree/utils"
)

// passStruct tracks deletions across the subtrees one emptying pass delivers them to.
type passStruct struct {
	completedDeletions map[opgroup.OpKey]struct{}
	missedDeletions    map[opgroup.OpKey]*opgroup.Operation
}

func newPass() *passStruct {
	return &passStruct{
		completedDeletions: make(map[opgroup.OpKey]struct{}),
		missedDeletions:    make(map[opgroup.OpKey]*opgroup.Operation),
	}
}

// EmptyBuffer runs one buffer-emptying pass.
//
// When the chosen strategy leaves the buffer full, or makes no progress at
// all, a second pass pushes the whole buffer down to the leaves.
//
func (tree *Tree) EmptyBuffer() {
	startLen := tree.buffer.len()
	if 0 == startLen {
		return
	}

	stopwatch := utils.NewStopwatch()
	tree.stats.EmptyBufferPasses.Increment()

	tree.runPass(tree.strategy)

	if (tree.buffer.len() >= tree.config.BufferSize) || (tree.buffer.len() >= startLen) {
		tree.stats.FailedEmptyings.Increment()
		logger.Tracef("pass left %d of %d operations buffered; pushing down everything", tree.buffer.len(), startLen)
		tree.runPass(tree.fallback)
	}

	_ = stopwatch.Stop()
	tree.stats.EmptyBufferUsecs.Add(uint64(stopwatch.ElapsedUs()))

	logger.Tracef("emptied buffer from %d to %d operations in %s (height %d, %d objects)",
		startLen, tree.buffer.len(), stopwatch.ElapsedString(), tree.Height(), tree.objectCount)
}

func (tree *Tree) runPass(strategy pushdown.Strategy) {
	tree.active = strategy
	tree.pass = newPass()

	ops := tree.buffer.operations()

	if tree.root.isLeaf() {
		tree.buffer.clear()
		tree.updateLeaf(tree.root, ops)
	} else {
		groups := tree.groupOperations(tree.root, ops)
		tree.resolveOrphans(groups, true)
		result := tree.choosePushDownGroups(groups, tree.root, false)
		pushDown := result.PushDownGroups()

		if strategy.WillEmptyBigPartOfBuffer() {
			tree.buffer.clear()
			for _, op := range result.BufferGroups().Flatten() {
				tree.buffer.put(op)
			}
		} else {
			for _, op := range pushDown.Flatten() {
				_ = tree.buffer.remove(op.Key())
			}
			// Deletions split between both sides stay buffered
			for _, op := range result.BufferGroups().Flatten() {
				tree.buffer.put(op)
			}
		}

		tree.updateNonLeaf(tree.root, pushDown)
	}

	tree.adjustRoot()
	tree.resolveMissedDeletions()

	tree.pass = nil
	tree.active = nil
}

// groupOperations binds each op to the entries of n it must travel through.
//
// An insertion goes to exactly one entry. A deletion goes to every entry whose
// rectangle contains the object or, when none does, to the nil (orphan) entry.
//
func (tree *Tree) groupOperations(n *node, ops []*opgroup.Operation) (groups *opgroup.Map) {
	groups = opgroup.NewMap()

	for _, op := range ops {
		rect := op.Object().Rect

		if op.IsInsertion() {
			groups.AddEntry(n.chooseEntry(rect), op)
			continue
		}

		containing := n.containingEntries(rect)
		if 0 == len(containing) {
			groups.AddEntry(nil, op)
			continue
		}
		for _, entry := range containing {
			groups.AddEntry(entry, op)
		}
		if len(containing) > 1 {
			tree.stats.SplitDeleteCopies.Add(uint64(len(containing) - 1))
		}
	}

	return
}

// resolveOrphans removes the orphan group. No subtree of the root can hold an
// orphan deletion's object, so at the root it is settled as not found.
func (tree *Tree) resolveOrphans(groups *opgroup.Map, atRoot bool) {
	orphans, ok := groups.Get(nil)
	if !ok {
		return
	}
	groups.Remove(nil)

	for _, op := range orphans.Operations() {
		if op.IsInsertion() {
			err := blunder.NewError(blunder.InvariantError, "%v has no subtree to go to", op)
			logger.PanicfWithError(err, "orphaned insertion")
		}
		if atRoot {
			tree.unbuffer(op)
			tree.stats.NotFoundDeletions.Increment()
			tree.retire(op)
		} else {
			tree.pass.missedDeletions[op.Key()] = op
		}
	}
}

func (tree *Tree) choosePushDownGroups(groups *opgroup.Map, n *node, calledFromRestart bool) (result *opgroup.Result) {
	result = tree.active.ChoosePushDownGroups(groups, n.level, n.size(), calledFromRestart)

	orphans, ok := result.PushDownGroups().Get(nil)
	if ok {
		result.BufferGroups().MoveGroupFrom(result.PushDownGroups(), nil, orphans)
	}

	result.PushDownGroups().Range(func(_ *opgroup.IndexEntry, group *opgroup.OperationGroup) bool {
		tree.stats.PushDownGroupSizes.Add(uint64(group.Size()))
		return true
	})

	return
}

// unbuffer drops op from the buffer if op itself is what the buffer holds for its key.
func (tree *Tree) unbuffer(op *opgroup.Operation) {
	buffered, ok := tree.buffer.get(op.Key())
	if ok && (buffered == op) {
		_ = tree.buffer.remove(op.Key())
	}
}

func (tree *Tree) isCompletedDeletion(op *opgroup.Operation) (completed bool) {
	if !op.IsDeletion() {
		return false
	}
	_, completed = tree.pass.completedDeletions[op.Key()]
	return
}

func (tree *Tree) putBackToBuffer(groups *opgroup.Map) {
	for _, op := range groups.Flatten() {
		if tree.isCompletedDeletion(op) {
			continue
		}
		tree.buffer.put(op)
		tree.stats.BackToBufferOps.Increment()
	}
}

// groupUpdate applies group to the subtree rooted at n.
func (tree *Tree) groupUpdate(n *node, group *opgroup.OperationGroup, calledFromRestart bool) {
	tree.stats.GroupUpdates.Increment()

	ops := make([]*opgroup.Operation, 0, group.Size())
	group.Range(func(op *opgroup.Operation) bool {
		if !tree.isCompletedDeletion(op) {
			ops = append(ops, op)
		}
		return true
	})

	if n.isLeaf() {
		tree.updateLeaf(n, ops)
		return
	}

	groups := tree.groupOperations(n, ops)
	tree.resolveOrphans(groups, false)
	if groups.IsEmpty() {
		return
	}

	result := tree.choosePushDownGroups(groups, n, calledFromRestart)
	tree.putBackToBuffer(result.BufferGroups())
	tree.updateNonLeaf(n, result.PushDownGroups())
}

// updateNonLeaf sends every push-down group of n into its child.
//
// A child split adds entries to n, so the groups still pending are regrouped
// against the new entries and the strategy is consulted again.
//
func (tree *Tree) updateNonLeaf(n *node, pushDown *opgroup.Map) {
	for !pushDown.IsEmpty() {
		splitHappened := false

		for _, entry := range pushDown.Entries() {
			group, _ := pushDown.Get(entry)
			pushDown.Remove(entry)

			tree.groupUpdate(entry.Child.(*node), group, false)

			if tree.integrateChild(n, entry) {
				splitHappened = true
				break
			}
		}

		if !splitHappened || pushDown.IsEmpty() {
			return
		}

		tree.stats.GroupUpdateRestarts.Increment()

		ops := make([]*opgroup.Operation, 0, pushDown.NumOfDistinctOps())
		for _, op := range pushDown.Flatten() {
			if !tree.isCompletedDeletion(op) {
				ops = append(ops, op)
			}
		}

		groups := tree.groupOperations(n, ops)
		tree.resolveOrphans(groups, false)
		result := tree.choosePushDownGroups(groups, n, true)
		tree.putBackToBuffer(result.BufferGroups())
		pushDown = result.PushDownGroups()
	}
}

// integrateChild refreshes entry after its child was updated: an emptied child
// is dropped and an overflowing one is split into new entries of n.
func (tree *Tree) integrateChild(n *node, entry *opgroup.IndexEntry) (split bool) {
	child := entry.Child.(*node)

	if 0 == child.size() {
		n.removeEntry(entry)
		split = false
		return
	}

	nodes := child.split(tree.config.MinNodeCapacity, tree.config.MaxNodeCapacity)
	entry.Rect, _ = child.bound()

	for _, sibling := range nodes[1:] {
		tree.stats.NodeSplits.Increment()
		n.entries = append(n.entries, tree.newIndexEntry(sibling))
	}

	split = len(nodes) > 1
	return
}

// updateLeaf executes ops on leaf n, deletions first.
func (tree *Tree) updateLeaf(n *node, ops []*opgroup.Operation) {
	tree.stats.LeafUpdates.Increment()

	for _, op := range ops {
		if op.IsDeletion() {
			tree.executeDeletion(n, op)
		}
	}
	for _, op := range ops {
		if op.IsInsertion() {
			tree.executeInsertion(n, op)
		}
	}
}

// executeDeletion removes the stored object only when it was inserted before the deletion was accepted.
func (tree *Tree) executeDeletion(n *node, op *opgroup.Operation) {
	if tree.isCompletedDeletion(op) {
		return
	}

	key := op.Key()

	stored := n.objects.Get(objectItemKey(op.Object().ID))
	if (nil == stored) || (stored.(*objectItem).seq > tree.seqs[op]) {
		tree.pass.missedDeletions[key] = op
		return
	}

	n.objects.Delete(stored)
	tree.objectCount--
	tree.stats.CompletedDeletions.Increment()

	tree.pass.completedDeletions[key] = struct{}{}
	delete(tree.pass.missedDeletions, key)
	tree.unbuffer(op)
	tree.retire(op)
}

// executeInsertion stores op's object, replacing one with the same ID in this leaf.
func (tree *Tree) executeInsertion(n *node, op *opgroup.Operation) {
	item := &objectItem{object: op.Object(), seq: tree.seqs[op]}

	if nil == n.objects.ReplaceOrInsert(item) {
		tree.objectCount++
	}
	tree.stats.CompletedInsertions.Increment()
	tree.retire(op)
}

// adjustRoot grows the tree while the root overflows and shrinks it while a non-leaf root has a single child.
func (tree *Tree) adjustRoot() {
	for tree.root.size() > tree.config.MaxNodeCapacity {
		nodes := tree.root.split(tree.config.MinNodeCapacity, tree.config.MaxNodeCapacity)
		newRoot := newNonLeafNode(tree.root.level + 1)
		for _, child := range nodes {
			newRoot.entries = append(newRoot.entries, tree.newIndexEntry(child))
		}
		tree.stats.NodeSplits.Add(uint64(len(nodes) - 1))
		tree.root = newRoot
		logger.Tracef("root split into %d; height now %d", len(nodes), tree.Height())
	}

	for !tree.root.isLeaf() && (tree.root.size() <= 1) {
		if 0 == tree.root.size() {
			tree.root = newLeafNode()
		} else {
			tree.root = tree.root.entries[0].Child.(*node)
		}
		logger.Tracef("root collapsed; height now %d", tree.Height())
	}
}

// resolveMissedDeletions settles, as not found, every deletion that missed in
// all subtrees it reached this pass and has no copy left in the buffer.
func (tree *Tree) resolveMissedDeletions() {
	for key, op := range tree.pass.missedDeletions {
		_, completed := tree.pass.completedDeletions[key]
		if completed {
			continue
		}
		_, buffered := tree.buffer.get(key)
		if buffered {
			continue
		}
		tree.stats.NotFoundDeletions.Increment()
		tree.retire(op)
	}
}
