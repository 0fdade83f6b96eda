package geom

import "github.com/paulmach/orb"

// PointInPolygon reports whether p lies inside the loop, using ray casting.
// Points on the boundary (within CoincideTol of an edge) count as inside,
// which is the behavior hit-testing and void containment both want.
func PointInPolygon(p orb.Point, loop orb.Ring) bool {
	n := RingLen(loop)
	if n < 3 {
		return false
	}

	for i := 0; i < n; i++ {
		a, b := RingSegment(loop, i)
		if PointSegmentDistance(p, a, b) <= CoincideTol {
			return true
		}
	}

	inside := false
	for i := 0; i < n; i++ {
		a, b := RingSegment(loop, i)
		// Edge crosses the horizontal ray from p going +x.
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := a[0] + (p[1]-a[1])/(b[1]-a[1])*(b[0]-a[0])
			if p[0] < x {
				inside = !inside
			}
		}
	}
	return inside
}

// SegmentsIntersect reports whether segments ab and cd properly cross.
// Parallel and collinear pairs are classified as non-intersecting, as are
// pairs that merely touch at an endpoint: only a strict crossing, where
// each segment separates the other's endpoints, counts.
func SegmentsIntersect(a, b, c, d orb.Point) bool {
	d1 := Cross(c, d, a)
	d2 := Cross(c, d, b)
	d3 := Cross(a, b, c)
	d4 := Cross(a, b, d)

	return ((d1 > Eps && d2 < -Eps) || (d1 < -Eps && d2 > Eps)) &&
		((d3 > Eps && d4 < -Eps) || (d3 < -Eps && d4 > Eps))
}

// SegmentDistance returns the minimum distance between segments ab and cd,
// zero if they cross.
func SegmentDistance(a, b, c, d orb.Point) float64 {
	if SegmentsIntersect(a, b, c, d) {
		return 0
	}
	min := PointSegmentDistance(a, c, d)
	if v := PointSegmentDistance(b, c, d); v < min {
		min = v
	}
	if v := PointSegmentDistance(c, a, b); v < min {
		min = v
	}
	if v := PointSegmentDistance(d, a, b); v < min {
		min = v
	}
	return min
}

// IsSelfIntersecting reports whether any two non-adjacent edges of the loop
// cross. The check is O(n²) over edge pairs. A 3-vertex loop has no
// non-adjacent edge pairs and is therefore never self-intersecting,
// regardless of vertex positions.
func IsSelfIntersecting(loop orb.Ring) bool {
	n := RingLen(loop)
	if n < 4 {
		return false
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			// Skip the pair (i, j) when the edges share a vertex:
			// consecutive edges, and the first/last edge closing the loop.
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			a, b := RingSegment(loop, i)
			c, d := RingSegment(loop, j)
			if SegmentsIntersect(a, b, c, d) {
				return true
			}
		}
	}
	return false
}

// LoopInsideLoop reports whether inner lies strictly inside outer with at
// least tol clearance: every inner vertex inside outer, no edge crossings,
// and no edge pair closer than tol.
func LoopInsideLoop(inner, outer orb.Ring, tol float64) bool {
	ni := RingLen(inner)
	if ni < 3 {
		return false
	}
	for i := 0; i < ni; i++ {
		if !PointInPolygon(inner[i], outer) {
			return false
		}
	}
	return !LoopsTouch(inner, outer, tol)
}

// LoopsTouch reports whether any edge of a comes within tol of any edge
// of b (crossings count as touching).
func LoopsTouch(a, b orb.Ring, tol float64) bool {
	na, nb := RingLen(a), RingLen(b)
	for i := 0; i < na; i++ {
		p1, p2 := RingSegment(a, i)
		for j := 0; j < nb; j++ {
			q1, q2 := RingSegment(b, j)
			if SegmentDistance(p1, p2, q1, q2) < tol {
				return true
			}
		}
	}
	return false
}

// HasDegenerateEdge reports whether the loop contains an edge shorter than
// CoincideTol.
func HasDegenerateEdge(loop orb.Ring) bool {
	n := RingLen(loop)
	for i := 0; i < n; i++ {
		a, b := RingSegment(loop, i)
		if Dist(a, b) <= CoincideTol {
			return true
		}
	}
	return false
}
