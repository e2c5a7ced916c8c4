// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package pushdown

import (
	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/conf"
	"github.com/NVIDIA/rrtree/logger"
)

const (
	confSection       = "PushDown"
	defaultSubKind    = KindLargestBufGroup
	defaultBySizeFlag = false
)

type strategyConfig struct {
	kind                  Kind
	subKind               Kind
	threshold             int
	coefficient           float64
	groupSizeByInsertions bool
}

// MakeStrategy builds the Strategy described by the [PushDown] section of confMap for tree.
//
// Recognized options:
//
//   [PushDown]
//   Strategy:              <Kind name>
//   Threshold:             <uint32>   (Threshold, RootLevelThreshold, ThresholdBelowRoot)
//   Coefficient:           <float64>  (DivideByFanoutBelowRoot, DivideByConstantBelowRoot)
//   GroupSizeByInsertions: <bool>     (optional, default false)
//   SubStrategy:           <Kind name> (below-root variants, optional, default LargestBufGroup)
//
// Any missing or malformed value yields a blunder.InvalidArgError.
//
func MakeStrategy(confMap conf.ConfMap, tree CapacityTree) (strategy Strategy, err error) {
	var (
		config *strategyConfig
	)

	config, err = fetchStrategyConfig(confMap)
	if nil != err {
		return
	}

	if config.kind.IsBelowRoot() {
		var (
			sub Strategy
		)

		sub, err = makeStrategy(config.subKind, config, tree, nil)
		if nil != err {
			return
		}

		strategy, err = makeStrategy(config.kind, config, tree, sub)
	} else {
		strategy, err = makeStrategy(config.kind, config, tree, nil)
	}
	if nil != err {
		return
	}

	logger.Infof("pushdown: using %v strategy (sub %v, threshold %d, coefficient %v, by insertions %v)",
		config.kind, config.subKind, config.threshold, config.coefficient, config.groupSizeByInsertions)

	err = nil
	return
}

func fetchStrategyConfig(confMap conf.ConfMap) (config *strategyConfig, err error) {
	var (
		kindName  string
		threshold uint32
	)

	config = &strategyConfig{
		subKind:               defaultSubKind,
		groupSizeByInsertions: defaultBySizeFlag,
	}

	kindName, err = confMap.FetchOptionValueString(confSection, "Strategy")
	if nil != err {
		err = blunder.AddError(err, blunder.InvalidArgError)
		return
	}
	config.kind, err = ParseKind(kindName)
	if nil != err {
		return
	}

	if nil != confMap.VerifyOptionIsMissing(confSection, "GroupSizeByInsertions") {
		config.groupSizeByInsertions, err = confMap.FetchOptionValueBool(confSection, "GroupSizeByInsertions")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
	}

	if config.kind.IsBelowRoot() && (nil != confMap.VerifyOptionIsMissing(confSection, "SubStrategy")) {
		kindName, err = confMap.FetchOptionValueString(confSection, "SubStrategy")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
		config.subKind, err = ParseKind(kindName)
		if nil != err {
			return
		}
		if config.subKind.IsBelowRoot() {
			err = blunder.NewError(blunder.InvalidArgError, "[%s]SubStrategy may not be another below-root strategy (%v)", confSection, config.subKind)
			return
		}
	}

	if config.kind.usesThreshold() || (config.kind.IsBelowRoot() && config.subKind.usesThreshold()) {
		threshold, err = confMap.FetchOptionValueUint32(confSection, "Threshold")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
		config.threshold = int(threshold)
	}

	if config.kind.usesCoefficient() {
		config.coefficient, err = confMap.FetchOptionValueFloat64(confSection, "Coefficient")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
	}

	err = nil
	return
}

func (kind Kind) usesThreshold() bool {
	switch kind {
	case KindThreshold, KindRootLevelThreshold, KindThresholdBelowRoot:
		return true
	default:
		return false
	}
}

func (kind Kind) usesCoefficient() bool {
	return (KindDivideByFanoutBelowRoot == kind) || (KindDivideByConstantBelowRoot == kind)
}

func makeStrategy(kind Kind, config *strategyConfig, tree CapacityTree, sub Strategy) (strategy Strategy, err error) {
	switch kind {
	case KindPushDownAll:
		strategy = NewPushDownAll()
	case KindThreshold:
		strategy = NewThreshold(config.threshold, config.groupSizeByInsertions)
	case KindRootLevelThreshold:
		strategy = NewRootLevelThreshold(tree, config.threshold, config.groupSizeByInsertions)
	case KindLargestBufGroup:
		strategy = NewLargestBufGroup(tree, config.groupSizeByInsertions)
	case KindLargestBufGroupSplitDeletes:
		strategy = NewLargestBufGroupSplitDeletes(tree, config.groupSizeByInsertions)
	case KindDivideByFanoutBelowRoot:
		strategy = NewDivideByFanoutBelowRoot(tree, sub, config.coefficient, config.groupSizeByInsertions)
	case KindThresholdBelowRoot:
		strategy = NewThresholdBelowRoot(tree, sub, config.threshold, config.groupSizeByInsertions)
	case KindDivideByConstantBelowRoot:
		strategy = NewDivideByConstantBelowRoot(tree, sub, config.coefficient, config.groupSizeByInsertions)
	default:
		err = blunder.NewError(blunder.UnknownStrategyError, "pushdown.makeStrategy() called with unknown kind %v", kind)
		return
	}

	err = nil
	return
}
