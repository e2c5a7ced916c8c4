// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package opgroup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/spatial"
)

func testObject(id uint64) *spatial.Object {
	return spatial.NewObject(id, spatial.Point(float64(id), float64(id)))
}

func TestOperation(t *testing.T) {
	assert := assert.New(t)

	_, err := NewOperation(nil, Insertion)
	assert.True(blunder.Is(err, blunder.InvalidArgError))

	_, err = NewOperation(testObject(1), Kind(7))
	assert.True(blunder.Is(err, blunder.InvalidArgError))

	op, err := NewOperation(testObject(1), Deletion)
	assert.Nil(err)
	assert.True(op.IsDeletion())
	assert.False(op.IsInsertion())
	assert.Equal(Deletion, op.Kind())
	assert.Equal(uint64(1), op.Object().ID)
	assert.Equal(OpKey{ObjectID: 1, Kind: Deletion}, op.Key())
	assert.Equal("Deletion(0000000000000001[(1,1),(1,1)])", op.String())

	assert.Panics(func() { NewInsertion(nil) })
}

func TestOperationGroup(t *testing.T) {
	assert := assert.New(t)

	ins1 := NewInsertion(testObject(1))
	ins2 := NewInsertion(testObject(2))
	del3 := NewDeletion(testObject(3))
	otherDel3 := NewDeletion(testObject(3))

	group := NewOperationGroup(ins1, del3)
	assert.Equal(2, group.Size())
	assert.Equal(2, group.SizeInSignificantOps(false))
	assert.Equal(1, group.SizeInSignificantOps(true))
	assert.True(group.Contains(ins1))
	assert.True(group.Contains(otherDel3)) // same logical update
	assert.False(group.Contains(ins2))
	assert.False(group.IsInsertionOnly())

	group.Merge(NewOperationGroup(ins2, otherDel3))
	assert.Equal(4, group.Size())

	removed := group.RemoveIf(func(op *Operation) bool { return op.IsDeletion() })
	assert.Equal(2, len(removed))
	assert.Equal(2, group.Size())
	assert.False(group.Contains(del3))
	assert.True(group.IsInsertionOnly())
	assert.Equal([]*Operation{ins1, ins2}, group.Operations())

	visited := 0
	group.Range(func(op *Operation) bool {
		visited++
		return false
	})
	assert.Equal(1, visited)

	var nilGroup *OperationGroup
	assert.Equal(0, nilGroup.Size())
	assert.Equal(0, nilGroup.SizeInSignificantOps(true))
	assert.False(nilGroup.Contains(ins1))
	assert.Equal(0, len(nilGroup.Operations()))
}

func TestMap(t *testing.T) {
	assert := assert.New(t)

	ie1 := &IndexEntry{ID: 1}
	ie2 := &IndexEntry{ID: 2}
	ie3 := &IndexEntry{ID: 3}

	ins1 := NewInsertion(testObject(1))
	ins2 := NewInsertion(testObject(2))
	del3 := NewDeletion(testObject(3))

	m := NewMap()
	assert.True(m.IsEmpty())

	m.Put(ie2, NewOperationGroup(ins2))
	m.AddEntry(ie1, ins1)
	m.AddEntry(nil, del3)
	assert.Equal(3, m.Size())
	assert.Equal([]*IndexEntry{ie1, ie2, nil}, m.Entries())

	// empty group removes
	m.Put(ie2, NewOperationGroup())
	assert.Equal(2, m.Size())
	_, ok := m.Get(ie2)
	assert.False(ok)

	assert.True(m.AddIfNotExists(ie1, del3))
	assert.False(m.AddIfNotExists(ie1, NewDeletion(testObject(3))))
	group, ok := m.Get(ie1)
	assert.True(ok)
	assert.Equal(2, group.Size())

	// del3 is under ie1 and the orphan key; it counts once
	assert.Equal(2, m.NumOfDistinctOps())
	assert.Equal(2, len(m.Flatten()))
	assert.Equal([]*Operation{ins1}, m.FlattenOnlyInsertions())

	m.Remove(nil)
	assert.Equal(1, m.Size())

	m.ClearAndSet(ie3, NewOperationGroup(ins2))
	assert.Equal([]*IndexEntry{ie3}, m.Entries())
	assert.Equal(1, len(m.Operations()))
}

func TestMapCopyAndMove(t *testing.T) {
	assert := assert.New(t)

	ie1 := &IndexEntry{ID: 1}
	ie2 := &IndexEntry{ID: 2}

	ins1 := NewInsertion(testObject(1))
	ins2 := NewInsertion(testObject(2))
	ins3 := NewInsertion(testObject(3))

	src := NewMap()
	src.Put(ie1, NewOperationGroup(ins1))
	src.Put(ie2, NewOperationGroup(ins2))

	dst := NewMap()
	dst.Put(ie1, NewOperationGroup(ins3))
	dst.Copy(src)
	dst.Copy(nil)

	group, _ := dst.Get(ie1)
	assert.Equal(2, group.Size()) // merged, not overwritten
	assert.Equal(3, dst.NumOfDistinctOps())
	assert.Equal(2, src.NumOfDistinctOps()) // src untouched

	// copies are independent of src
	copied := CopyMap(src)
	copiedGroup, _ := copied.Get(ie2)
	copiedGroup.Add(ins3)
	srcGroup, _ := src.Get(ie2)
	assert.Equal(1, srcGroup.Size())
	assert.True(CopyMap(nil).IsEmpty())

	moved := NewMap()
	moved.Put(ie2, NewOperationGroup(ins3))
	moved.MoveGroupFrom(src, ie2, srcGroup)
	_, ok := src.Get(ie2)
	assert.False(ok)
	movedGroup, _ := moved.Get(ie2)
	assert.Equal(2, movedGroup.Size())
	assert.Equal(1, src.Size())
}

func TestNilMap(t *testing.T) {
	assert := assert.New(t)

	var m *Map

	assert.True(m.IsEmpty())
	assert.Equal(0, m.Size())
	assert.Equal(0, m.NumOfDistinctOps())
	assert.Equal(0, len(m.Entries()))
	assert.Equal(0, len(m.Flatten()))
	_, ok := m.Get(&IndexEntry{})
	assert.False(ok)
	m.Remove(nil)
	m.Range(func(*IndexEntry, *OperationGroup) bool {
		t.Fatalf("nil Map must not yield pairs")
		return true
	})
}

func TestFlattenDuplicatedInsertion(t *testing.T) {
	assert := assert.New(t)

	ins1 := NewInsertion(testObject(1))

	m := NewMap()
	m.AddEntry(&IndexEntry{ID: 1}, ins1)
	m.AddEntry(&IndexEntry{ID: 2}, ins1)

	assert.Equal(1, m.NumOfDistinctOps())
	assert.Panics(func() { m.Flatten() })
}

func TestResult(t *testing.T) {
	assert := assert.New(t)

	r := NewResult(nil, nil)
	assert.NotNil(r.PushDownGroups())
	assert.NotNil(r.BufferGroups())
	assert.True(r.PushDownGroups().IsEmpty())
	assert.True(r.BufferGroups().IsEmpty())

	pd := NewMap()
	pd.AddEntry(&IndexEntry{ID: 9}, NewInsertion(testObject(9)))
	r = NewResult(pd, nil)
	assert.Equal(pd, r.PushDownGroups())
	assert.Contains(r.String(), "IndexEntry(9)")
}
