// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package rrtreepkg

import (
	"fmt"

	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/bucketstats"
	"github.com/NVIDIA/rrtree/conf"
	"github.com/NVIDIA/rrtree/logger"
	"github.com/NVIDIA/rrtree/pushdown"
	"github.com/NVIDIA/rrtree/spatial"
)

func start(confMap conf.ConfMap) (err error) {
	globals.Lock()
	defer globals.Unlock()

	if nil != globals.tree {
		err = blunder.NewError(blunder.InvalidArgError, "rrtreepkg already started")
		return
	}

	err = initializeGlobals(confMap)
	if nil != err {
		return
	}

	logger.Infof("rrtreepkg started with %T", globals.tree.strategy)

	err = nil
	return
}

func stop() (err error) {
	globals.Lock()
	defer globals.Unlock()

	err = uninitializeGlobals()
	return
}

func signal() (err error) {
	globals.Lock()
	defer globals.Unlock()

	tree, err := startedTree()
	if nil != err {
		return
	}

	logger.Infof("rrtreepkg height %d, %d objects stored, %d operations buffered", tree.Height(), tree.Len(), tree.BufferLen())
	logger.Infof("rrtreepkg stats:\n%s", bucketstats.SprintStats(bucketstats.StatFormatParsable1, statsPkgName, statsGroupName))
	logger.Infof("rrtreepkg strategy counters: %s", strategyCounters(tree.strategy))

	err = nil
	return
}

func startedTree() (tree *Tree, err error) {
	if nil == globals.tree {
		err = blunder.NewError(blunder.InvalidArgError, "rrtreepkg not started")
		return
	}
	tree = globals.tree
	err = nil
	return
}

func insertObject(object *spatial.Object) (err error) {
	globals.Lock()
	defer globals.Unlock()

	tree, err := startedTree()
	if nil != err {
		return
	}

	err = tree.Insert(object)
	return
}

func deleteObject(object *spatial.Object) (err error) {
	globals.Lock()
	defer globals.Unlock()

	tree, err := startedTree()
	if nil != err {
		return
	}

	err = tree.Delete(object)
	return
}

func flushBuffer() (err error) {
	globals.Lock()
	defer globals.Unlock()

	tree, err := startedTree()
	if nil != err {
		return
	}

	tree.Flush()
	return
}

func queryRect(rect spatial.Rectangle) (objects []*spatial.Object, err error) {
	globals.Lock()
	defer globals.Unlock()

	tree, err := startedTree()
	if nil != err {
		return
	}

	objects = tree.Query(rect)
	return
}

func lengths() (stored int, buffered int, err error) {
	globals.Lock()
	defer globals.Unlock()

	tree, err := startedTree()
	if nil != err {
		return
	}

	stored = tree.Len()
	buffered = tree.BufferLen()
	return
}

func validateTree() (err error) {
	globals.Lock()
	defer globals.Unlock()

	tree, err := startedTree()
	if nil != err {
		return
	}

	err = tree.Validate()
	return
}

// strategyCounters renders the cumulative counters a strategy (and its sub-strategy) keeps.
func strategyCounters(strategy pushdown.Strategy) (counters string) {
	counters = fmt.Sprintf("%T{EqualLargestGroups:%d", strategy, strategy.EqualLargestGroups())

	if thresholdCounter, ok := strategy.(pushdown.ThresholdCounter); ok {
		counters += fmt.Sprintf(" ThresholdSatisfactions:%d ThresholdUnsatisfactions:%d",
			thresholdCounter.ThresholdSatisfactions(), thresholdCounter.ThresholdUnsatisfactions())
	}
	if splitDeletes, ok := strategy.(*pushdown.LargestBufGroupSplitDeletes); ok {
		counters += fmt.Sprintf(" SplitDeleteCopies:%d", splitDeletes.SplitDeleteCopies())
	}
	if withSub, ok := strategy.(interface{ Sub() pushdown.Strategy }); ok {
		counters += " Sub:" + strategyCounters(withSub.Sub())
	}

	counters += "}"
	return
}
