// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package opgroup

// NewResult pairs forPushDown with forBuffer; a nil argument becomes an empty Map.
func NewResult(forPushDown *Map, forBuffer *Map) *Result {
	if nil == forPushDown {
		forPushDown = NewMap()
	}
	if nil == forBuffer {
		forBuffer = NewMap()
	}
	return &Result{forPushDown: forPushDown, forBuffer: forBuffer}
}

// PushDownGroups are the groups to be moved one level toward the leaves.
func (result *Result) PushDownGroups() *Map {
	return result.forPushDown
}

// BufferGroups are the groups to stay buffered at the current node.
func (result *Result) BufferGroups() *Map {
	return result.forBuffer
}

func (result *Result) String() string {
	return "pushDown" + result.forPushDown.String() + " buffer" + result.forBuffer.String()
}
