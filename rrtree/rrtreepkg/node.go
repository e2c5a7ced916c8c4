// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package rrtreepkg

import (
	"math"

	"github.com/google/btree"

	"github.com/NVIDIA/rrtree/opgroup"
	"github.com/NVIDIA/rrtree/spatial"
)

const leafBTreeDegree = 16

// objectItem is a stored object plus the sequence number of the insertion that put it there.
type objectItem struct {
	object *spatial.Object
	seq    uint64
}

func (item *objectItem) Less(than btree.Item) bool {
	return item.object.ID < than.(*objectItem).object.ID
}

func objectItemKey(objectID uint64) *objectItem {
	return &objectItem{object: &spatial.Object{ID: objectID}}
}

// node is one host R-tree node. Leaves (level 0) hold objects; all others hold entries.
type node struct {
	level   int
	entries []*opgroup.IndexEntry // Child of each is a *node at level-1
	objects *btree.BTree          // of *objectItem
}

func newLeafNode() *node {
	return &node{level: 0, objects: btree.New(leafBTreeDegree)}
}

func newNonLeafNode(level int) *node {
	return &node{level: level, entries: make([]*opgroup.IndexEntry, 0)}
}

func (n *node) isLeaf() bool {
	return 0 == n.level
}

func (n *node) size() int {
	if n.isLeaf() {
		return n.objects.Len()
	}
	return len(n.entries)
}

func (n *node) items() (items []*objectItem) {
	items = make([]*objectItem, 0, n.objects.Len())
	n.objects.Ascend(func(i btree.Item) bool {
		items = append(items, i.(*objectItem))
		return true
	})
	return
}

func (n *node) rects() (rects []spatial.Rectangle) {
	if n.isLeaf() {
		rects = make([]spatial.Rectangle, 0, n.objects.Len())
		n.objects.Ascend(func(i btree.Item) bool {
			rects = append(rects, i.(*objectItem).object.Rect)
			return true
		})
		return
	}
	rects = make([]spatial.Rectangle, 0, len(n.entries))
	for _, entry := range n.entries {
		rects = append(rects, entry.Rect)
	}
	return
}

// bound returns the minimum bounding rectangle of n's content; ok is false for an empty node.
func (n *node) bound() (bound spatial.Rectangle, ok bool) {
	bound, ok = spatial.Bound(n.rects()...)
	return
}

// chooseEntry picks the subtree for an insertion: least enlargement, then least area, then lowest ID.
func (n *node) chooseEntry(rect spatial.Rectangle) (chosen *opgroup.IndexEntry) {
	var (
		chosenArea        float64
		chosenEnlargement float64
	)

	for _, entry := range n.entries {
		enlargement := entry.Rect.Enlargement(rect)
		area := entry.Rect.Area()
		if (nil == chosen) ||
			(enlargement < chosenEnlargement) ||
			((enlargement == chosenEnlargement) && (area < chosenArea)) ||
			((enlargement == chosenEnlargement) && (area == chosenArea) && (entry.ID < chosen.ID)) {
			chosen = entry
			chosenArea = area
			chosenEnlargement = enlargement
		}
	}

	return
}

// containingEntries lists every entry whose rectangle could hold an object at rect.
func (n *node) containingEntries(rect spatial.Rectangle) (containing []*opgroup.IndexEntry) {
	containing = make([]*opgroup.IndexEntry, 0, 1)
	for _, entry := range n.entries {
		if entry.Rect.Contains(rect) {
			containing = append(containing, entry)
		}
	}
	return
}

func (n *node) removeEntry(toRemove *opgroup.IndexEntry) {
	for i, entry := range n.entries {
		if entry == toRemove {
			n.entries = append(n.entries[:i], n.entries[i+1:]...)
			return
		}
	}
}

func (n *node) search(rect spatial.Rectangle, visit func(item *objectItem)) {
	if n.isLeaf() {
		n.objects.Ascend(func(i btree.Item) bool {
			item := i.(*objectItem)
			if item.object.Rect.Overlaps(rect) {
				visit(item)
			}
			return true
		})
		return
	}
	for _, entry := range n.entries {
		if entry.Rect.Overlaps(rect) {
			entry.Child.(*node).search(rect, visit)
		}
	}
}

// pickSeeds returns the pair of rects that would waste the most area if grouped together.
func pickSeeds(rects []spatial.Rectangle) (seed1 int, seed2 int) {
	maxWaste := math.Inf(-1)
	seed1, seed2 = 0, 1

	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			waste := rects[i].Union(rects[j]).Area() - rects[i].Area() - rects[j].Area()
			if waste > maxWaste {
				maxWaste = waste
				seed1, seed2 = i, j
			}
		}
	}

	return
}

// quadraticSplit partitions rects (at least two) into two groups of at least minFill members each.
func quadraticSplit(rects []spatial.Rectangle, minFill int) (first []int, second []int) {
	if minFill > len(rects)/2 {
		minFill = len(rects) / 2
	}

	seed1, seed2 := pickSeeds(rects)
	first = []int{seed1}
	second = []int{seed2}
	bound1 := rects[seed1]
	bound2 := rects[seed2]

	remaining := make([]int, 0, len(rects)-2)
	for i := range rects {
		if (i != seed1) && (i != seed2) {
			remaining = append(remaining, i)
		}
	}

	for len(remaining) > 0 {
		if len(first)+len(remaining) <= minFill {
			first = append(first, remaining...)
			return
		}
		if len(second)+len(remaining) <= minFill {
			second = append(second, remaining...)
			return
		}

		// pickNext: the rect with the strongest preference for one group
		next := 0
		maxDiff := math.Inf(-1)
		for pos, i := range remaining {
			diff := math.Abs(bound1.Enlargement(rects[i]) - bound2.Enlargement(rects[i]))
			if diff > maxDiff {
				maxDiff = diff
				next = pos
			}
		}
		i := remaining[next]
		remaining = append(remaining[:next], remaining[next+1:]...)

		enlargement1 := bound1.Enlargement(rects[i])
		enlargement2 := bound2.Enlargement(rects[i])
		toFirst := enlargement1 < enlargement2
		if enlargement1 == enlargement2 {
			area1 := bound1.Area()
			area2 := bound2.Area()
			toFirst = (area1 < area2) || ((area1 == area2) && (len(first) <= len(second)))
		}

		if toFirst {
			first = append(first, i)
			bound1 = bound1.Union(rects[i])
		} else {
			second = append(second, i)
			bound2 = bound2.Union(rects[i])
		}
	}

	return
}

// splitOnce moves the second half of a quadratic split of n into a new sibling.
func (n *node) splitOnce(minFill int) (sibling *node) {
	first, second := quadraticSplit(n.rects(), minFill)

	if n.isLeaf() {
		items := n.items()
		n.objects = btree.New(leafBTreeDegree)
		sibling = newLeafNode()
		for _, i := range first {
			n.objects.ReplaceOrInsert(items[i])
		}
		for _, i := range second {
			sibling.objects.ReplaceOrInsert(items[i])
		}
		return
	}

	entries := n.entries
	n.entries = make([]*opgroup.IndexEntry, 0, len(first))
	sibling = newNonLeafNode(n.level)
	for _, i := range first {
		n.entries = append(n.entries, entries[i])
	}
	for _, i := range second {
		sibling.entries = append(sibling.entries, entries[i])
	}
	return
}

// split breaks an overflowing n into nodes of at most maxFill members; n itself is the first of them.
func (n *node) split(minFill int, maxFill int) (nodes []*node) {
	if n.size() <= maxFill {
		nodes = []*node{n}
		return
	}

	sibling := n.splitOnce(minFill)
	nodes = append(n.split(minFill, maxFill), sibling.split(minFill, maxFill)...)
	return
}
