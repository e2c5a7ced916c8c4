// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package pushdown

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/conf"
)

func makeTestConfMap(t *testing.T, confStrings ...string) conf.ConfMap {
	confMap, err := conf.MakeConfMapFromStrings(confStrings)
	if nil != err {
		t.Fatalf("conf.MakeConfMapFromStrings() failed: %v", err)
	}
	return confMap
}

func TestMakeStrategy(t *testing.T) {
	assert := assert.New(t)

	tree := &testTree{height: 2, minNodeCapacity: 4, maxNodeCapacity: 10}

	strategy, err := MakeStrategy(makeTestConfMap(t, "PushDown.Strategy=PushDownAll"), tree)
	assert.Nil(err)
	assert.IsType(&PushDownAll{}, strategy)

	strategy, err = MakeStrategy(makeTestConfMap(t,
		"PushDown.Strategy=Threshold",
		"PushDown.Threshold=25",
		"PushDown.GroupSizeByInsertions=true",
	), tree)
	assert.Nil(err)
	if assert.IsType(&Threshold{}, strategy) {
		assert.Equal(25, strategy.(*Threshold).threshold)
		assert.True(strategy.(*Threshold).groupSizeByInsertions)
	}

	strategy, err = MakeStrategy(makeTestConfMap(t,
		"PushDown.Strategy=RootLevelThreshold",
		"PushDown.Threshold=7",
	), tree)
	assert.Nil(err)
	assert.IsType(&RootLevelThreshold{}, strategy)

	strategy, err = MakeStrategy(makeTestConfMap(t, "PushDown.Strategy=LargestBufGroupSplitDeletes"), tree)
	assert.Nil(err)
	assert.IsType(&LargestBufGroupSplitDeletes{}, strategy)

	strategy, err = MakeStrategy(makeTestConfMap(t,
		"PushDown.Strategy=DivideByFanoutBelowRoot",
		"PushDown.Coefficient=1.5",
	), tree)
	assert.Nil(err)
	if assert.IsType(&DivideByFanoutBelowRoot{}, strategy) {
		assert.Equal(1.5, strategy.(*DivideByFanoutBelowRoot).coefficient)
		assert.IsType(&LargestBufGroup{}, strategy.(*DivideByFanoutBelowRoot).Sub())
	}

	strategy, err = MakeStrategy(makeTestConfMap(t,
		"PushDown.Strategy=DivideByConstantBelowRoot",
		"PushDown.Coefficient=0",
		"PushDown.SubStrategy=LargestBufGroupSplitDeletes",
	), tree)
	assert.Nil(err)
	if assert.IsType(&DivideByConstantBelowRoot{}, strategy) {
		assert.IsType(&LargestBufGroupSplitDeletes{}, strategy.(*DivideByConstantBelowRoot).Sub())
	}

	strategy, err = MakeStrategy(makeTestConfMap(t,
		"PushDown.Strategy=ThresholdBelowRoot",
		"PushDown.Threshold=150",
		"PushDown.SubStrategy=RootLevelThreshold",
	), tree)
	assert.Nil(err)
	if assert.IsType(&ThresholdBelowRoot{}, strategy) {
		sub := strategy.(*ThresholdBelowRoot).Sub()
		if assert.IsType(&RootLevelThreshold{}, sub) {
			assert.Equal(150, sub.(*RootLevelThreshold).threshold)
		}
	}
}

func TestMakeStrategyErrors(t *testing.T) {
	assert := assert.New(t)

	tree := &testTree{height: 2, minNodeCapacity: 4, maxNodeCapacity: 10}

	badConfs := [][]string{
		{"PushDown.Threshold=10"},
		{"PushDown.Strategy=BiggestFirst"},
		{"PushDown.Strategy=Threshold"},
		{"PushDown.Strategy=Threshold", "PushDown.Threshold=-3"},
		{"PushDown.Strategy=Threshold", "PushDown.Threshold=10", "PushDown.GroupSizeByInsertions=maybe"},
		{"PushDown.Strategy=DivideByFanoutBelowRoot"},
		{"PushDown.Strategy=DivideByFanoutBelowRoot", "PushDown.Coefficient=lots"},
		{"PushDown.Strategy=DivideByFanoutBelowRoot", "PushDown.Coefficient=1.0", "PushDown.SubStrategy=ThresholdBelowRoot"},
		{"PushDown.Strategy=DivideByFanoutBelowRoot", "PushDown.Coefficient=1.0", "PushDown.SubStrategy=Nope"},
		{"PushDown.Strategy=DivideByConstantBelowRoot", "PushDown.Coefficient=1.0", "PushDown.SubStrategy=Threshold"},
	}

	for _, badConf := range badConfs {
		strategy, err := MakeStrategy(makeTestConfMap(t, badConf...), tree)
		assert.Nil(strategy, "%v", badConf)
		assert.True(blunder.Is(err, blunder.InvalidArgError), "%v: %v", badConf, err)
	}
}
