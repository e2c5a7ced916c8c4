// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package rrtreepkg

import (
	"sort"

	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/bucketstats"
	"github.com/NVIDIA/rrtree/opgroup"
	"github.com/NVIDIA/rrtree/pushdown"
	"github.com/NVIDIA/rrtree/spatial"
)

// Config sizes a Tree.
type Config struct {
	MinNodeCapacity int // Smallest fill a split leaves in either half
	MaxNodeCapacity int // Nodes above this fill are split
	BufferSize      int // Buffered operations that trigger an emptying pass
}

// StrategyMaker builds the push-down strategy for a tree under construction.
type StrategyMaker func(tree pushdown.CapacityTree) (strategy pushdown.Strategy, err error)

type statsStruct struct {
	EmptyBufferPasses     bucketstats.Total
	FailedEmptyings       bucketstats.Total
	GroupUpdates          bucketstats.Total
	GroupUpdateRestarts   bucketstats.Total
	LeafUpdates           bucketstats.Total
	NodeSplits            bucketstats.Total
	PushDownGroupSizes    bucketstats.BucketLog2Round
	BackToBufferOps       bucketstats.Total
	CompletedInsertions   bucketstats.Total
	CompletedDeletions    bucketstats.Total
	NotFoundDeletions     bucketstats.Total
	AnnihilatedInsertions bucketstats.Total
	SplitDeleteCopies     bucketstats.Total
	EmptyBufferUsecs      bucketstats.BucketLog2Round
}

// Tree is an in-memory R-tree whose updates are collected in a buffer and
// pushed down in batches by a pushdown.Strategy.
//
// A Tree is not safe for concurrent use.
//
type Tree struct {
	config      Config
	strategy    pushdown.Strategy
	fallback    pushdown.Strategy
	active      pushdown.Strategy // Strategy consulted by the pass in progress
	root        *node
	buffer      *operationBuffer
	seqs        map[*opgroup.Operation]uint64 // Accept order of every live operation
	nextSeq     uint64
	nextEntryID uint64
	objectCount int
	pass        *passStruct
	stats       *statsStruct
}

func newStats() (stats *statsStruct) {
	stats = &statsStruct{}
	stats.PushDownGroupSizes.NBucket = 65
	stats.EmptyBufferUsecs.NBucket = 65
	return
}

// NewTree returns an empty tree driven by the strategy makeStrategy builds for it.
func NewTree(config Config, makeStrategy StrategyMaker) (tree *Tree, err error) {
	if config.MinNodeCapacity < 1 {
		err = blunder.NewError(blunder.BadCapacityError, "MinNodeCapacity (%d) must be at least 1", config.MinNodeCapacity)
		return
	}
	if config.MaxNodeCapacity < 2*config.MinNodeCapacity {
		err = blunder.NewError(blunder.BadCapacityError, "MaxNodeCapacity (%d) must be at least twice MinNodeCapacity (%d)", config.MaxNodeCapacity, config.MinNodeCapacity)
		return
	}
	if config.BufferSize < 1 {
		err = blunder.NewError(blunder.BadCapacityError, "BufferSize (%d) must be at least 1", config.BufferSize)
		return
	}
	if nil == makeStrategy {
		err = blunder.NewError(blunder.InvalidArgError, "NewTree() requires a StrategyMaker")
		return
	}

	newTree := &Tree{
		config:   config,
		fallback: pushdown.NewPushDownAll(),
		root:     newLeafNode(),
		buffer:   newOperationBuffer(),
		seqs:     make(map[*opgroup.Operation]uint64),
		stats:    newStats(),
	}

	newTree.strategy, err = makeStrategy(newTree)
	if nil != err {
		return
	}
	if nil == newTree.strategy {
		err = blunder.NewError(blunder.InvalidArgError, "StrategyMaker returned no strategy")
		return
	}

	tree = newTree
	err = nil
	return
}

// Height counts levels, a lone leaf root being height 1.
func (tree *Tree) Height() int {
	return tree.root.level + 1
}

func (tree *Tree) MinNodeCapacity() int {
	return tree.config.MinNodeCapacity
}

func (tree *Tree) MaxNodeCapacity() int {
	return tree.config.MaxNodeCapacity
}

// Strategy returns the push-down strategy chosen at construction.
func (tree *Tree) Strategy() pushdown.Strategy {
	return tree.strategy
}

// Len returns the number of objects stored in the tree proper, not counting the buffer.
func (tree *Tree) Len() int {
	return tree.objectCount
}

func (tree *Tree) BufferLen() int {
	return tree.buffer.len()
}

func (tree *Tree) enqueue(op *opgroup.Operation) {
	tree.nextSeq++
	tree.seqs[op] = tree.nextSeq
	tree.buffer.put(op)
}

func (tree *Tree) retire(op *opgroup.Operation) {
	delete(tree.seqs, op)
}

func (tree *Tree) makeRoom() {
	if tree.buffer.len() >= tree.config.BufferSize {
		tree.EmptyBuffer()
	}
}

// Insert buffers the insertion of object, replacing any buffered insertion with the same ID.
func (tree *Tree) Insert(object *spatial.Object) (err error) {
	if nil == object {
		err = blunder.NewError(blunder.InvalidArgError, "Insert() requires an object")
		return
	}

	tree.makeRoom()

	op := opgroup.NewInsertion(object)
	buffered, ok := tree.buffer.get(op.Key())
	if ok {
		tree.retire(buffered)
		tree.stats.AnnihilatedInsertions.Increment()
	}
	tree.enqueue(op)

	err = nil
	return
}

// Delete buffers the deletion of object, which must carry the rectangle it was inserted with.
//
// A buffered insertion of the same ID is discarded. The deletion itself stays
// buffered as an older copy of the object may already be stored.
//
func (tree *Tree) Delete(object *spatial.Object) (err error) {
	if nil == object {
		err = blunder.NewError(blunder.InvalidArgError, "Delete() requires an object")
		return
	}

	tree.makeRoom()

	op := opgroup.NewDeletion(object)

	// One deletion per ID fits in the buffer. A pending one aimed at a copy
	// stored elsewhere must reach it first.
	for {
		bufferedDeletion, ok := tree.buffer.get(op.Key())
		if !ok {
			break
		}
		if bufferedDeletion.Object().Rect == object.Rect {
			tree.retire(bufferedDeletion)
			break
		}
		tree.EmptyBuffer()
	}

	insertionKey := opgroup.OpKey{ObjectID: object.ID, Kind: opgroup.Insertion}
	bufferedInsertion, ok := tree.buffer.get(insertionKey)
	if ok {
		_ = tree.buffer.remove(insertionKey)
		tree.retire(bufferedInsertion)
		tree.stats.AnnihilatedInsertions.Increment()
	}

	tree.enqueue(op)

	err = nil
	return
}

// Flush runs emptying passes until the buffer is empty.
func (tree *Tree) Flush() {
	for tree.buffer.len() > 0 {
		tree.EmptyBuffer()
	}
}

// Query returns, ordered by ID, the objects intersecting rect as seen through the buffer.
func (tree *Tree) Query(rect spatial.Rectangle) (objects []*spatial.Object) {
	found := make(map[uint64]*objectItem)

	// Until a pass settles them, an object may be stored both before and after a
	// reinsertion elsewhere in the tree; the latest insertion wins.
	tree.root.search(rect, func(item *objectItem) {
		existing, ok := found[item.object.ID]
		if !ok || (existing.seq < item.seq) {
			found[item.object.ID] = item
		}
	})

	for _, op := range tree.buffer.operations() {
		objectID := op.Object().ID
		seq := tree.seqs[op]
		item, ok := found[objectID]
		if ok && (item.seq < seq) {
			delete(found, objectID)
		}
		if op.IsInsertion() && op.Object().Rect.Overlaps(rect) {
			found[objectID] = &objectItem{object: op.Object(), seq: seq}
		}
	}

	objects = make([]*spatial.Object, 0, len(found))
	for _, item := range found {
		objects = append(objects, item.object)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].ID < objects[j].ID })

	return
}

func (tree *Tree) newIndexEntry(child *node) (entry *opgroup.IndexEntry) {
	tree.nextEntryID++
	rect, _ := child.bound()
	entry = &opgroup.IndexEntry{ID: tree.nextEntryID, Rect: rect, Child: child}
	return
}

// Validate walks the whole tree checking levels, fill, bounding rectangles and the object count.
func (tree *Tree) Validate() (err error) {
	var (
		objectIDs = make(map[uint64]struct{})
	)

	err = tree.validateNode(tree.root, true, objectIDs)
	if nil != err {
		return
	}

	if len(objectIDs) != tree.objectCount {
		err = blunder.NewError(blunder.InvariantError, "tree holds %d objects but counts %d", len(objectIDs), tree.objectCount)
		return
	}

	err = nil
	return
}

func (tree *Tree) validateNode(n *node, isRoot bool, objectIDs map[uint64]struct{}) (err error) {
	if n.size() > tree.config.MaxNodeCapacity {
		err = blunder.NewError(blunder.InvariantError, "level %d node holds %d > %d members", n.level, n.size(), tree.config.MaxNodeCapacity)
		return
	}

	if n.isLeaf() {
		for _, item := range n.items() {
			_, duplicate := objectIDs[item.object.ID]
			if duplicate {
				err = blunder.NewError(blunder.InvariantError, "object %016X stored twice", item.object.ID)
				return
			}
			objectIDs[item.object.ID] = struct{}{}
		}
		err = nil
		return
	}

	if (0 == n.size()) || (isRoot && (1 == n.size())) {
		err = blunder.NewError(blunder.InvariantError, "level %d non-leaf node holds %d entries", n.level, n.size())
		return
	}

	for _, entry := range n.entries {
		child, ok := entry.Child.(*node)
		if !ok || (nil == child) {
			err = blunder.NewError(blunder.InvariantError, "%v has no child node", entry)
			return
		}
		if child.level != n.level-1 {
			err = blunder.NewError(blunder.InvariantError, "%v child at level %d under level %d", entry, child.level, n.level)
			return
		}
		childBound, ok := child.bound()
		if !ok {
			err = blunder.NewError(blunder.InvariantError, "%v has an empty child", entry)
			return
		}
		if !entry.Rect.Contains(childBound) {
			err = blunder.NewError(blunder.InvariantError, "%v does not contain its child's bound %v", entry, childBound)
			return
		}
		err = tree.validateNode(child, false, objectIDs)
		if nil != err {
			return
		}
	}

	err = nil
	return
}
