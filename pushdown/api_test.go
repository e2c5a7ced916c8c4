// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package pushdown

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/opgroup"
	"github.com/NVIDIA/rrtree/spatial"
)

type testTree struct {
	height          int
	minNodeCapacity int
	maxNodeCapacity int
}

func (tree *testTree) Height() int {
	return tree.height
}

func (tree *testTree) MinNodeCapacity() int {
	return tree.minNodeCapacity
}

func (tree *testTree) MaxNodeCapacity() int {
	return tree.maxNodeCapacity
}

var (
	testNextEntryID  uint64 = 1
	testNextObjectID uint64 = 1
)

func makeIndexEntry(rect spatial.Rectangle) (entry *opgroup.IndexEntry) {
	entry = &opgroup.IndexEntry{ID: testNextEntryID, Rect: rect}
	testNextEntryID++
	return
}

func makeOperation(rect spatial.Rectangle, kind opgroup.Kind) *opgroup.Operation {
	object := spatial.NewObject(testNextObjectID, rect)
	testNextObjectID++
	op, err := opgroup.NewOperation(object, kind)
	if nil != err {
		panic(err)
	}
	return op
}

func makeGroupingOfKind(kind opgroup.Kind, groupSizes ...int) (grouping *opgroup.Map) {
	grouping = opgroup.NewMap()
	uniqPos := 0.0
	for _, groupSize := range groupSizes {
		entry := makeIndexEntry(spatial.NewRectangle(0.0, 0.0, 1.0, 1.0))
		for i := 0; i < groupSize; i++ {
			grouping.AddEntry(entry, makeOperation(spatial.NewRectangle(uniqPos, uniqPos, uniqPos+1.0, uniqPos+1.0), kind))
			uniqPos++
		}
	}
	return
}

// makeGrouping returns one insertion-only group per size, in entry order.
func makeGrouping(groupSizes ...int) *opgroup.Map {
	return makeGroupingOfKind(opgroup.Insertion, groupSizes...)
}

func makeDeleteGrouping(groupSizes ...int) *opgroup.Map {
	return makeGroupingOfKind(opgroup.Deletion, groupSizes...)
}

func checkPushDownResults(t *testing.T, buffered int, pushedDown int, result *opgroup.Result) {
	assert.Equal(t, buffered, result.BufferGroups().Size(), "buffer groups")
	assert.Equal(t, pushedDown, result.PushDownGroups().Size(), "push-down groups")
}

func checkPushDownThresholds(t *testing.T, satisfied uint64, unsatisfied uint64, counter ThresholdCounter) {
	assert.Equal(t, satisfied, counter.ThresholdSatisfactions(), "satisfactions")
	assert.Equal(t, unsatisfied, counter.ThresholdUnsatisfactions(), "unsatisfactions")
}

// checkConservation verifies no operation was lost or duplicated by a split.
func checkConservation(t *testing.T, input *opgroup.Map, result *opgroup.Result) {
	assert.Equal(t, input.NumOfDistinctOps(), result.PushDownGroups().NumOfDistinctOps()+result.BufferGroups().NumOfDistinctOps())
	for _, op := range input.Flatten() {
		inPushDown := false
		inBuffer := false
		result.PushDownGroups().Range(func(_ *opgroup.IndexEntry, group *opgroup.OperationGroup) bool {
			inPushDown = inPushDown || group.Contains(op)
			return true
		})
		result.BufferGroups().Range(func(_ *opgroup.IndexEntry, group *opgroup.OperationGroup) bool {
			inBuffer = inBuffer || group.Contains(op)
			return true
		})
		assert.True(t, inPushDown != inBuffer, "%v must be on exactly one side", op)
	}
}

func TestKind(t *testing.T) {
	assert := assert.New(t)

	for kind := KindPushDownAll; kind <= KindDivideByConstantBelowRoot; kind++ {
		parsed, err := ParseKind(kind.String())
		assert.Nil(err)
		assert.Equal(kind, parsed)
	}

	_, err := ParseKind("LargestGroup")
	assert.True(blunder.Is(err, blunder.UnknownStrategyError))

	assert.Equal("Kind(42)", Kind(42).String())

	assert.True(KindThresholdBelowRoot.IsBelowRoot())
	assert.False(KindLargestBufGroup.IsBelowRoot())
}

func TestAllStrategiesNullSafe(t *testing.T) {
	assert := assert.New(t)

	tree := &testTree{height: 2, minNodeCapacity: 4, maxNodeCapacity: 10}
	strategies := []Strategy{
		NewPushDownAll(),
		NewThreshold(10, false),
		NewRootLevelThreshold(tree, 10, false),
		NewLargestBufGroup(tree, false),
		NewLargestBufGroupSplitDeletes(tree, false),
		NewDivideByFanoutBelowRoot(tree, NewLargestBufGroup(tree, false), 1.0, false),
		NewThresholdBelowRoot(tree, NewLargestBufGroup(tree, false), 10, false),
		NewDivideByConstantBelowRoot(tree, NewLargestBufGroup(tree, false), 1.0, false),
	}

	for _, strategy := range strategies {
		for level := 0; level < 3; level++ {
			for _, restart := range []bool{false, true} {
				result := strategy.ChoosePushDownGroups(nil, level, 0, restart)
				assert.NotNil(result)
				checkPushDownResults(t, 0, 0, result)
			}
		}
	}
}

func TestAllStrategiesConserveOperations(t *testing.T) {
	tree := &testTree{height: 3, minNodeCapacity: 4, maxNodeCapacity: 10}

	for level := 0; level < 3; level++ {
		for _, restart := range []bool{false, true} {
			strategies := []Strategy{
				NewPushDownAll(),
				NewThreshold(30, false),
				NewRootLevelThreshold(tree, 30, false),
				NewLargestBufGroup(tree, false),
				NewLargestBufGroupSplitDeletes(tree, false),
				NewDivideByFanoutBelowRoot(tree, NewLargestBufGroup(tree, false), 1.0, false),
				NewThresholdBelowRoot(tree, NewLargestBufGroup(tree, false), 30, false),
				NewDivideByConstantBelowRoot(tree, NewLargestBufGroup(tree, false), 1.0, false),
			}
			for _, strategy := range strategies {
				grouping := makeGrouping(10, 15, 20, 25, 100, 20)
				result := strategy.ChoosePushDownGroups(grouping, level, 6, restart)
				checkConservation(t, grouping, result)
			}
		}
	}
}
