// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package rrtreepkg

import (
	"sync"

	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/bucketstats"
	"github.com/NVIDIA/rrtree/conf"
	"github.com/NVIDIA/rrtree/logger"
	"github.com/NVIDIA/rrtree/pushdown"
	"github.com/NVIDIA/rrtree/utils"
)

const (
	confSection = "RRTree"

	statsPkgName   = "rrtree"
	statsGroupName = "RRTree"
)

type configStruct struct {
	MinNodeCapacity uint32
	MaxNodeCapacity uint32
	BufferSize      uint32
}

type globalsStruct struct {
	sync.Mutex
	config configStruct
	tree   *Tree // == nil unless Start() has succeeded
}

var globals globalsStruct

func initializeGlobals(confMap conf.ConfMap) (err error) {
	globals.config.MinNodeCapacity, err = confMap.FetchOptionValueUint32(confSection, "MinNodeCapacity")
	if nil != err {
		err = blunder.AddError(err, blunder.InvalidArgError)
		return
	}
	globals.config.MaxNodeCapacity, err = confMap.FetchOptionValueUint32(confSection, "MaxNodeCapacity")
	if nil != err {
		err = blunder.AddError(err, blunder.InvalidArgError)
		return
	}
	globals.config.BufferSize, err = confMap.FetchOptionValueUint32(confSection, "BufferSize")
	if nil != err {
		err = blunder.AddError(err, blunder.InvalidArgError)
		return
	}

	globals.tree, err = NewTree(
		Config{
			MinNodeCapacity: int(globals.config.MinNodeCapacity),
			MaxNodeCapacity: int(globals.config.MaxNodeCapacity),
			BufferSize:      int(globals.config.BufferSize),
		},
		func(tree pushdown.CapacityTree) (pushdown.Strategy, error) {
			return pushdown.MakeStrategy(confMap, tree)
		})
	if nil != err {
		globals.config = configStruct{}
		return
	}

	bucketstats.Register(statsPkgName, statsGroupName, globals.tree.stats)

	logger.Infof("rrtreepkg config: %s", utils.JSONify(globals.config, false))

	err = nil
	return
}

func uninitializeGlobals() (err error) {
	if nil != globals.tree {
		bucketstats.UnRegister(statsPkgName, statsGroupName)
	}

	globals.config = configStruct{}
	globals.tree = nil

	err = nil
	return
}
