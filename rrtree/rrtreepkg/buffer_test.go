// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package rrtreepkg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NVIDIA/rrtree/opgroup"
	"github.com/NVIDIA/rrtree/spatial"
)

func TestOperationBuffer(t *testing.T) {
	assert := assert.New(t)

	buffer := newOperationBuffer()
	assert.Equal(0, buffer.len())

	object7 := spatial.NewObject(7, spatial.Point(1.0, 1.0))
	object3 := spatial.NewObject(3, spatial.Point(2.0, 2.0))

	deletion7 := opgroup.NewDeletion(object7)
	insertion7 := opgroup.NewInsertion(object7)
	insertion3 := opgroup.NewInsertion(object3)

	buffer.put(deletion7)
	buffer.put(insertion7)
	buffer.put(insertion3)
	assert.Equal(3, buffer.len())

	// Ordered by ObjectID, then insertions before deletions
	assert.Equal([]*opgroup.Operation{insertion3, insertion7, deletion7}, buffer.operations())

	// Same key replaces
	insertion7Again := opgroup.NewInsertion(object7)
	buffer.put(insertion7Again)
	assert.Equal(3, buffer.len())
	op, ok := buffer.get(insertion7.Key())
	assert.True(ok)
	assert.True(insertion7Again == op)

	assert.True(buffer.remove(deletion7.Key()))
	assert.False(buffer.remove(deletion7.Key()))
	_, ok = buffer.get(deletion7.Key())
	assert.False(ok)
	assert.Equal(2, buffer.len())

	keyAsString, err := buffer.DumpKey(insertion3.Key())
	assert.Nil(err)
	assert.Equal("0000000000000003:Insertion", keyAsString)
	_, err = buffer.DumpKey("nope")
	assert.NotNil(err)
	valueAsString, err := buffer.DumpValue(insertion3)
	assert.Nil(err)
	assert.Equal(insertion3.String(), valueAsString)

	buffer.clear()
	assert.Equal(0, buffer.len())
	assert.Equal(0, len(buffer.operations()))
}

func TestCompareOpKeys(t *testing.T) {
	assert := assert.New(t)

	result, err := compareOpKeys(opgroup.OpKey{ObjectID: 1, Kind: opgroup.Deletion}, opgroup.OpKey{ObjectID: 2, Kind: opgroup.Insertion})
	assert.Nil(err)
	assert.True(result < 0)

	result, err = compareOpKeys(opgroup.OpKey{ObjectID: 2, Kind: opgroup.Deletion}, opgroup.OpKey{ObjectID: 2, Kind: opgroup.Insertion})
	assert.Nil(err)
	assert.True(result > 0)

	result, err = compareOpKeys(opgroup.OpKey{ObjectID: 2, Kind: opgroup.Deletion}, opgroup.OpKey{ObjectID: 2, Kind: opgroup.Deletion})
	assert.Nil(err)
	assert.Equal(0, result)

	_, err = compareOpKeys(2, opgroup.OpKey{ObjectID: 2, Kind: opgroup.Deletion})
	assert.NotNil(err)
}
