// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package opgroup

import (
	"strings"
)

func NewOperationGroup(ops ...*Operation) (group *OperationGroup) {
	group = &OperationGroup{
		ops:    make([]*Operation, 0, len(ops)),
		counts: make(map[OpKey]int),
	}
	for _, op := range ops {
		group.Add(op)
	}
	return
}

// Size is the total number of operations, duplicates included.
func (group *OperationGroup) Size() int {
	if nil == group {
		return 0
	}
	return len(group.ops)
}

// SizeInSignificantOps is Size() when countInsertionsOnly is false, else the number of insertions.
func (group *OperationGroup) SizeInSignificantOps(countInsertionsOnly bool) (size int) {
	if !countInsertionsOnly {
		size = group.Size()
		return
	}
	if nil == group {
		return
	}
	for _, op := range group.ops {
		if op.IsInsertion() {
			size++
		}
	}
	return
}

// Contains reports whether an operation for the same logical update is in the group.
func (group *OperationGroup) Contains(op *Operation) bool {
	if nil == group {
		return false
	}
	return 0 < group.counts[op.Key()]
}

func (group *OperationGroup) Add(op *Operation) {
	group.ops = append(group.ops, op)
	group.counts[op.Key()]++
}

// Merge adds every operation of other (multiset union).
func (group *OperationGroup) Merge(other *OperationGroup) {
	if nil == other {
		return
	}
	for _, op := range other.ops {
		group.Add(op)
	}
}

// Range calls f for each operation until f returns false.
func (group *OperationGroup) Range(f func(op *Operation) bool) {
	if nil == group {
		return
	}
	for _, op := range group.ops {
		if !f(op) {
			return
		}
	}
}

// Operations returns a copy of the group's operations in insertion order.
func (group *OperationGroup) Operations() (ops []*Operation) {
	ops = make([]*Operation, group.Size())
	if nil != group {
		copy(ops, group.ops)
	}
	return
}

// RemoveIf drops every operation matching pred and returns the dropped ones.
//
// The backing collection is rebuilt rather than edited in place, so pred may
// inspect other groups (or this one) freely.
//
func (group *OperationGroup) RemoveIf(pred func(op *Operation) bool) (removed []*Operation) {
	if nil == group {
		return
	}

	kept := make([]*Operation, 0, len(group.ops))
	counts := make(map[OpKey]int)

	for _, op := range group.ops {
		if pred(op) {
			removed = append(removed, op)
		} else {
			kept = append(kept, op)
			counts[op.Key()]++
		}
	}

	group.ops = kept
	group.counts = counts

	return
}

func (group *OperationGroup) IsInsertionOnly() bool {
	if nil == group {
		return true
	}
	for _, op := range group.ops {
		if op.IsDeletion() {
			return false
		}
	}
	return true
}

func (group *OperationGroup) clone() (newGroup *OperationGroup) {
	newGroup = NewOperationGroup(group.ops...)
	return
}

func (group *OperationGroup) String() string {
	opStrings := make([]string, 0, group.Size())
	group.Range(func(op *Operation) bool {
		opStrings = append(opStrings, op.String())
		return true
	})
	return "{" + strings.Join(opStrings, " ") + "}"
}
