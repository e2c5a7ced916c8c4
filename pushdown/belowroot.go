// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package pushdown

import (
	"math"

	"github.com/NVIDIA/rrtree/opgroup"
)

// belowRoot delegates the children of the root to sub and thresholds the levels below.
type belowRoot struct {
	thresholdBase
	tree Tree
	sub  Strategy
}

// DivideByFanoutBelowRoot pushes down, below the children of the root, the
// groups holding at least their fair share (pending ops / node fanout, scaled
// by a coefficient) of the pending operations.
type DivideByFanoutBelowRoot struct {
	belowRoot
	coefficient float64
}

// ThresholdBelowRoot applies a fixed forced threshold below the children of the root.
type ThresholdBelowRoot struct {
	belowRoot
}

// DivideByConstantBelowRoot is DivideByFanoutBelowRoot with the average node
// capacity of the tree in place of the actual fanout.
type DivideByConstantBelowRoot struct {
	belowRoot
	capacityTree CapacityTree
	coefficient  float64
}

func (strategy *belowRoot) WillEmptyBigPartOfBuffer() bool {
	return false
}

func (strategy *belowRoot) EqualLargestGroups() uint64 {
	return strategy.sub.EqualLargestGroups()
}

// Sub returns the strategy used for the children of the root.
func (strategy *belowRoot) Sub() Strategy {
	return strategy.sub
}

// thresholdFromRatio returns floor(numerator / denominator) or 0 for any value that is not a usable threshold.
func thresholdFromRatio(numerator float64, denominator float64) int {
	if !(denominator > 0) || math.IsInf(denominator, 0) {
		return 0
	}
	ratio := math.Floor(numerator / denominator)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || (0 > ratio) || (float64(math.MaxInt32) < ratio) {
		return 0
	}
	return int(ratio)
}

func NewDivideByFanoutBelowRoot(tree Tree, sub Strategy, coefficient float64, groupSizeByInsertions bool) *DivideByFanoutBelowRoot {
	return &DivideByFanoutBelowRoot{
		belowRoot: belowRoot{
			thresholdBase: thresholdBase{
				groupSizeByInsertions: groupSizeByInsertions,
			},
			tree: tree,
			sub:  sub,
		},
		coefficient: coefficient,
	}
}

func (strategy *DivideByFanoutBelowRoot) ChoosePushDownGroups(groupsToFilter *opgroup.Map, childNodeLevel int, childNodeSize int, calledFromRestart bool) (result *opgroup.Result) {
	if nil == groupsToFilter {
		result = strategy.applyThreshold(0, nil)
		return
	}

	if isChildOfRoot(strategy.tree, childNodeLevel) {
		result = strategy.sub.ChoosePushDownGroups(groupsToFilter, childNodeLevel, childNodeSize, calledFromRestart)
		return
	}

	threshold := 0
	if 0 < childNodeSize {
		threshold = thresholdFromRatio(float64(groupsToFilter.NumOfDistinctOps())/float64(childNodeSize)*strategy.coefficient, 1.0)
	}

	result = strategy.applyThreshold(threshold, groupsToFilter)
	return
}

func NewThresholdBelowRoot(tree Tree, sub Strategy, threshold int, groupSizeByInsertions bool) *ThresholdBelowRoot {
	return &ThresholdBelowRoot{
		belowRoot: belowRoot{
			thresholdBase: thresholdBase{
				threshold:             threshold,
				groupSizeByInsertions: groupSizeByInsertions,
			},
			tree: tree,
			sub:  sub,
		},
	}
}

func (strategy *ThresholdBelowRoot) ChoosePushDownGroups(groupsToFilter *opgroup.Map, childNodeLevel int, childNodeSize int, calledFromRestart bool) (result *opgroup.Result) {
	if isChildOfRoot(strategy.tree, childNodeLevel) {
		result = strategy.sub.ChoosePushDownGroups(groupsToFilter, childNodeLevel, childNodeSize, calledFromRestart)
		return
	}

	result = strategy.forceThreshold(groupsToFilter)
	return
}

func NewDivideByConstantBelowRoot(tree CapacityTree, sub Strategy, coefficient float64, groupSizeByInsertions bool) *DivideByConstantBelowRoot {
	return &DivideByConstantBelowRoot{
		belowRoot: belowRoot{
			thresholdBase: thresholdBase{
				groupSizeByInsertions: groupSizeByInsertions,
			},
			tree: tree,
			sub:  sub,
		},
		capacityTree: tree,
		coefficient:  coefficient,
	}
}

func (strategy *DivideByConstantBelowRoot) ChoosePushDownGroups(groupsToFilter *opgroup.Map, childNodeLevel int, childNodeSize int, calledFromRestart bool) (result *opgroup.Result) {
	if nil == groupsToFilter {
		result = strategy.applyThreshold(0, nil)
		return
	}

	if isChildOfRoot(strategy.tree, childNodeLevel) {
		result = strategy.sub.ChoosePushDownGroups(groupsToFilter, childNodeLevel, childNodeSize, calledFromRestart)
		return
	}

	averageCapacity := (strategy.capacityTree.MinNodeCapacity() + strategy.capacityTree.MaxNodeCapacity()) / 2
	divisor := float64(averageCapacity) * strategy.coefficient
	threshold := thresholdFromRatio(float64(groupsToFilter.NumOfDistinctOps()), divisor)

	result = strategy.applyThreshold(threshold, groupsToFilter)
	return
}
