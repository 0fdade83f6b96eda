// Package geom provides the pure 2D predicates the editor core is built on:
// point-in-polygon, segment intersection, signed area, self-intersection,
// and the distance/projection helpers used for hit-testing and sub-node
// re-projection. All functions are stateless and deterministic.
//
// Coordinates are model-space meters carried as orb.Point values; loops are
// orb.Ring vertex sequences. A ring is treated as implicitly closed: the
// segment from the last vertex back to the first is always part of the loop,
// whether or not the caller repeats the first vertex.
package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// Tolerances. Eps guards orientation and degeneracy tests where values near
// zero mean "parallel" or "zero length". CoincideTol is the coordinate
// coincidence tolerance: two points closer than this are the same model
// point. MeshTol is the contour clearance used when validating that voids
// keep their distance from the outline and from each other.
const (
	Eps         = 1e-9
	CoincideTol = 1e-6
	MeshTol     = 1e-6
)

// Cross returns the z component of (a-o) x (b-o). Positive means the turn
// o->a->b is counter-clockwise.
func Cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// Dist returns the euclidean distance between two points.
func Dist(a, b orb.Point) float64 {
	return math.Hypot(b[0]-a[0], b[1]-a[1])
}

// Coincident reports whether two points are the same model point within
// CoincideTol.
func Coincident(a, b orb.Point) bool {
	return Dist(a, b) <= CoincideTol
}

// Lerp returns the affine interpolation of a and b at parameter t.
func Lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// PointSegmentDistance returns the distance from p to the closed segment ab.
func PointSegmentDistance(p, a, b orb.Point) float64 {
	t := ProjectParam(p, a, b)
	return Dist(p, Lerp(a, b, t))
}

// ProjectParam returns the parameter t in [0, 1] of the point on segment ab
// closest to p. A degenerate (zero-length) segment yields t = 0.
func ProjectParam(p, a, b orb.Point) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	len2 := dx*dx + dy*dy
	if len2 < Eps {
		return 0
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / len2
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// RingSegment returns the i-th segment of the loop, with the closing segment
// (last vertex back to first) at index len-1. A trailing repeated first
// vertex is ignored so closed and open representations index identically.
func RingSegment(loop orb.Ring, i int) (a, b orb.Point) {
	n := RingLen(loop)
	a = loop[i%n]
	b = loop[(i+1)%n]
	return a, b
}

// RingLen returns the number of distinct vertices in the loop, ignoring a
// trailing repeat of the first vertex.
func RingLen(loop orb.Ring) int {
	n := len(loop)
	if n > 1 && Coincident(loop[0], loop[n-1]) {
		n--
	}
	return n
}

// SignedArea returns the shoelace sum divided by two. The sign encodes the
// winding direction: positive for counter-clockwise loops. The caller relies
// on the sign staying constant across accepted edits.
func SignedArea(loop orb.Ring) float64 {
	n := RingLen(loop)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += loop[i][0]*loop[j][1] - loop[j][0]*loop[i][1]
	}
	return sum / 2
}
