// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package spatial provides the two-dimensional rectangles that describe index
// entries and the data objects stored in an RR-Tree.
package spatial

import (
	"fmt"
	"math"
)

// Rectangle is an axis-aligned bounding box. A point is a Rectangle with Min == Max.
type Rectangle struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Object is the payload of a pending operation and the unit stored in leaves.
//
// ID identifies the object; two Objects with the same ID are the same logical object.
//
type Object struct {
	ID   uint64
	Rect Rectangle
}

// NewRectangle returns the Rectangle spanning both corners, in either order.
func NewRectangle(x1 float64, y1 float64, x2 float64, y2 float64) Rectangle {
	return Rectangle{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// Point returns the degenerate Rectangle at (x,y).
func Point(x float64, y float64) Rectangle {
	return Rectangle{MinX: x, MinY: y, MaxX: x, MaxY: y}
}

func NewObject(id uint64, rect Rectangle) *Object {
	return &Object{ID: id, Rect: rect}
}

func (r Rectangle) Area() float64 {
	return (r.MaxX - r.MinX) * (r.MaxY - r.MinY)
}

// Margin is the half-perimeter, used to break area ties between degenerate rectangles.
func (r Rectangle) Margin() float64 {
	return (r.MaxX - r.MinX) + (r.MaxY - r.MinY)
}

// Overlaps reports whether r and other share at least one point (edges included).
func (r Rectangle) Overlaps(other Rectangle) bool {
	return (r.MinX <= other.MaxX) && (r.MaxX >= other.MinX) &&
		(r.MinY <= other.MaxY) && (r.MaxY >= other.MinY)
}

// Contains reports whether other lies entirely within r (edges included).
func (r Rectangle) Contains(other Rectangle) bool {
	return (r.MinX <= other.MinX) && (r.MaxX >= other.MaxX) &&
		(r.MinY <= other.MinY) && (r.MaxY >= other.MaxY)
}

// Union returns the smallest Rectangle containing both r and other.
func (r Rectangle) Union(other Rectangle) Rectangle {
	return Rectangle{
		MinX: math.Min(r.MinX, other.MinX),
		MinY: math.Min(r.MinY, other.MinY),
		MaxX: math.Max(r.MaxX, other.MaxX),
		MaxY: math.Max(r.MaxY, other.MaxY),
	}
}

// Enlargement returns how much area r would gain to also cover other.
func (r Rectangle) Enlargement(other Rectangle) float64 {
	return r.Union(other).Area() - r.Area()
}

func (r Rectangle) String() string {
	return fmt.Sprintf("[(%g,%g),(%g,%g)]", r.MinX, r.MinY, r.MaxX, r.MaxY)
}

func (o *Object) String() string {
	if nil == o {
		return "<nil>"
	}
	return fmt.Sprintf("%016X%v", o.ID, o.Rect)
}

// Bound returns the union of all rects; ok is false when rects is empty.
func Bound(rects ...Rectangle) (bound Rectangle, ok bool) {
	if 0 == len(rects) {
		return
	}

	bound = rects[0]
	for _, rect := range rects[1:] {
		bound = bound.Union(rect)
	}

	ok = true
	return
}
