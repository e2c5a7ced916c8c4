// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectangle(t *testing.T) {
	assert := assert.New(t)

	r := NewRectangle(4, 3, 0, 1)
	assert.Equal(Rectangle{MinX: 0, MinY: 1, MaxX: 4, MaxY: 3}, r)
	assert.Equal(float64(8), r.Area())
	assert.Equal(float64(6), r.Margin())

	p := Point(2, 2)
	assert.Equal(float64(0), p.Area())
	assert.True(r.Contains(p))
	assert.True(r.Overlaps(p))
	assert.False(p.Contains(r))

	// touching edges overlap
	assert.True(r.Overlaps(NewRectangle(4, 3, 5, 5)))
	assert.False(r.Overlaps(NewRectangle(4.5, 3, 5, 5)))

	u := r.Union(Point(6, 0))
	assert.Equal(Rectangle{MinX: 0, MinY: 0, MaxX: 6, MaxY: 3}, u)
	assert.Equal(float64(10), r.Enlargement(Point(6, 0)))
	assert.Equal(float64(0), r.Enlargement(p))

	assert.Equal("[(0,1),(4,3)]", r.String())
}

func TestBound(t *testing.T) {
	assert := assert.New(t)

	_, ok := Bound()
	assert.False(ok)

	bound, ok := Bound(Point(1, 1), Point(-1, 5), NewRectangle(0, 0, 2, 2))
	assert.True(ok)
	assert.Equal(Rectangle{MinX: -1, MinY: 0, MaxX: 2, MaxY: 5}, bound)
}

func TestObject(t *testing.T) {
	assert := assert.New(t)

	var nilObject *Object
	assert.Equal("<nil>", nilObject.String())

	o := NewObject(0x1F, Point(1, 2))
	assert.Equal("000000000000001F[(1,2),(1,2)]", o.String())
}
