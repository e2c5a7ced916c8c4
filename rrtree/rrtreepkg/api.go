// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package rrtreepkg hosts an in-memory R-tree whose insertions and deletions
// are buffered and applied in batches, a push-down strategy from package
// pushdown deciding at every node which batches travel further down.
//
// A Tree may be used directly via NewTree(). Alternatively Start() builds one
// from the [RRTree] and [PushDown] sections of a conf.ConfMap and the package
// level functions below operate on it.
//
package rrtreepkg

import (
	"github.com/NVIDIA/rrtree/conf"
	"github.com/NVIDIA/rrtree/spatial"
)

// Start is called to build the package tree from confMap
//
func Start(confMap conf.ConfMap) (err error) {
	err = start(confMap)
	return
}

// Stop is called to discard the package tree
//
func Stop() (err error) {
	err = stop()
	return
}

// Signal is called to log the statistics gathered so far
//
func Signal() (err error) {
	err = signal()
	return
}

// Insert buffers the insertion of object into the package tree
//
func Insert(object *spatial.Object) (err error) {
	err = insertObject(object)
	return
}

// Delete buffers the deletion of object from the package tree
//
func Delete(object *spatial.Object) (err error) {
	err = deleteObject(object)
	return
}

// Flush empties the package tree's buffer
//
func Flush() (err error) {
	err = flushBuffer()
	return
}

// Query returns the objects of the package tree intersecting rect
//
func Query(rect spatial.Rectangle) (objects []*spatial.Object, err error) {
	objects, err = queryRect(rect)
	return
}

// Len returns the number of objects stored in, and buffered for, the package tree
//
func Len() (stored int, buffered int, err error) {
	stored, buffered, err = lengths()
	return
}

// Validate checks the structure of the package tree
//
func Validate() (err error) {
	err = validateTree()
	return
}
