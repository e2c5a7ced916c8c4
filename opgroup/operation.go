// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package opgroup

import (
	"fmt"

	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/spatial"
)

// NewOperation returns a pending operation of kind on object.
//
// A nil object or an unknown kind is rejected with blunder.InvalidArgError.
//
func NewOperation(object *spatial.Object, kind Kind) (op *Operation, err error) {
	if nil == object {
		err = blunder.NewError(blunder.InvalidArgError, "opgroup.NewOperation() called with nil object")
		return
	}
	if (Insertion != kind) && (Deletion != kind) {
		err = blunder.NewError(blunder.InvalidArgError, "opgroup.NewOperation() called with unknown kind %v", kind)
		return
	}

	op = &Operation{object: object, kind: kind}
	err = nil
	return
}

// NewInsertion is NewOperation(object, Insertion) for callers that hold a non-nil object.
func NewInsertion(object *spatial.Object) *Operation {
	return mustOperation(object, Insertion)
}

// NewDeletion is NewOperation(object, Deletion) for callers that hold a non-nil object.
func NewDeletion(object *spatial.Object) *Operation {
	return mustOperation(object, Deletion)
}

func mustOperation(object *spatial.Object, kind Kind) *Operation {
	op, err := NewOperation(object, kind)
	if nil != err {
		panic(err)
	}
	return op
}

func (op *Operation) Kind() Kind {
	return op.kind
}

func (op *Operation) Object() *spatial.Object {
	return op.object
}

func (op *Operation) IsDeletion() bool {
	return Deletion == op.kind
}

func (op *Operation) IsInsertion() bool {
	return Insertion == op.kind
}

func (op *Operation) Key() OpKey {
	return OpKey{ObjectID: op.object.ID, Kind: op.kind}
}

func (op *Operation) String() string {
	return fmt.Sprintf("%v(%v)", op.kind, op.object)
}
