// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package rrtreepkg

import (
	"fmt"

	"github.com/NVIDIA/sortedmap"

	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/logger"
	"github.com/NVIDIA/rrtree/opgroup"
)

// operationBuffer holds at most one pending operation per OpKey, ordered by (ObjectID, Kind).
type operationBuffer struct {
	ops sortedmap.LLRBTree // key: opgroup.OpKey; value: *opgroup.Operation
}

func compareOpKeys(key1 sortedmap.Key, key2 sortedmap.Key) (result int, err error) {
	opKey1, ok1 := key1.(opgroup.OpKey)
	opKey2, ok2 := key2.(opgroup.OpKey)
	if !ok1 || !ok2 {
		err = blunder.NewError(blunder.InvalidArgError, "compareOpKeys(%v, %v) requires two opgroup.OpKeys", key1, key2)
		return
	}

	switch {
	case opKey1.ObjectID < opKey2.ObjectID:
		result = -1
	case opKey1.ObjectID > opKey2.ObjectID:
		result = 1
	case opKey1.Kind < opKey2.Kind:
		result = -1
	case opKey1.Kind > opKey2.Kind:
		result = 1
	default:
		result = 0
	}

	err = nil
	return
}

func newOperationBuffer() (buffer *operationBuffer) {
	buffer = &operationBuffer{}
	buffer.ops = sortedmap.NewLLRBTree(compareOpKeys, buffer)
	return
}

func (buffer *operationBuffer) DumpKey(key sortedmap.Key) (keyAsString string, err error) {
	opKey, ok := key.(opgroup.OpKey)
	if !ok {
		err = fmt.Errorf("operationBuffer.DumpKey() expected an opgroup.OpKey, got %T", key)
		return
	}
	keyAsString = fmt.Sprintf("%016X:%v", opKey.ObjectID, opKey.Kind)
	err = nil
	return
}

func (buffer *operationBuffer) DumpValue(value sortedmap.Value) (valueAsString string, err error) {
	op, ok := value.(*opgroup.Operation)
	if !ok {
		err = fmt.Errorf("operationBuffer.DumpValue() expected an *opgroup.Operation, got %T", value)
		return
	}
	valueAsString = op.String()
	err = nil
	return
}

func (buffer *operationBuffer) len() int {
	numberOfOps, err := buffer.ops.Len()
	if nil != err {
		logger.PanicfWithError(err, "operationBuffer.ops.Len() failed")
	}
	return numberOfOps
}

func (buffer *operationBuffer) get(key opgroup.OpKey) (op *opgroup.Operation, ok bool) {
	value, ok, err := buffer.ops.GetByKey(key)
	if nil != err {
		logger.PanicfWithError(err, "operationBuffer.ops.GetByKey(%v) failed", key)
	}
	if ok {
		op = value.(*opgroup.Operation)
	}
	return
}

// put stores op, replacing whatever was buffered under the same OpKey.
func (buffer *operationBuffer) put(op *opgroup.Operation) {
	ok, err := buffer.ops.PatchByKey(op.Key(), op)
	if nil != err {
		logger.PanicfWithError(err, "operationBuffer.ops.PatchByKey(%v) failed", op)
	}
	if ok {
		return
	}
	ok, err = buffer.ops.Put(op.Key(), op)
	if nil != err {
		logger.PanicfWithError(err, "operationBuffer.ops.Put(%v) failed", op)
	}
	if !ok {
		err = blunder.NewError(blunder.InvariantError, "%v neither patched nor put", op)
		logger.PanicfWithError(err, "operationBuffer.put() lost an operation")
	}
}

func (buffer *operationBuffer) remove(key opgroup.OpKey) (removed bool) {
	removed, err := buffer.ops.DeleteByKey(key)
	if nil != err {
		logger.PanicfWithError(err, "operationBuffer.ops.DeleteByKey(%v) failed", key)
	}
	return
}

// operations lists the buffered operations in key order.
func (buffer *operationBuffer) operations() (ops []*opgroup.Operation) {
	numberOfOps := buffer.len()
	ops = make([]*opgroup.Operation, 0, numberOfOps)
	for i := 0; i < numberOfOps; i++ {
		_, value, ok, err := buffer.ops.GetByIndex(i)
		if nil != err {
			logger.PanicfWithError(err, "operationBuffer.ops.GetByIndex(%d) failed", i)
		}
		if !ok {
			err = blunder.NewError(blunder.InvariantError, "index %d of %d missing", i, numberOfOps)
			logger.PanicfWithError(err, "operationBuffer.operations() came up short")
		}
		ops = append(ops, value.(*opgroup.Operation))
	}
	return
}

func (buffer *operationBuffer) clear() {
	buffer.ops.Reset()
}
