package mesher

import (
	"math"

	"github.com/paulmach/orb"
)

// Incremental Bowyer-Watson triangulation over point indices. The three
// super-triangle vertices are appended after the real points and filtered
// out at the end, so a triangle touches the super-triangle iff any of its
// indices >= the real point count.

type triangle [3]int

// circumcircle returns the center and radius of the circle through a, b, c.
// Near-collinear triples get an infinite radius.
func circumcircle(a, b, c orb.Point) (cx, cy, r float64) {
	ax, ay := a[0], a[1]
	bx, by := b[0], b[1]
	ccx, ccy := c[0], c[1]

	d := 2 * (ax*(by-ccy) + bx*(ccy-ay) + ccx*(ay-by))
	if math.Abs(d) < 1e-10 {
		return 0, 0, math.Inf(1)
	}

	ux := (ax*ax+ay*ay)*(by-ccy) + (bx*bx+by*by)*(ccy-ay) + (ccx*ccx+ccy*ccy)*(ay-by)
	uy := (ax*ax+ay*ay)*(ccx-bx) + (bx*bx+by*by)*(ax-ccx) + (ccx*ccx+ccy*ccy)*(bx-ax)

	cx = ux / d
	cy = uy / d
	r = math.Hypot(cx-ax, cy-ay)
	return cx, cy, r
}

// inCircumcircle reports whether p lies inside the circumcircle of t.
// Degenerate triangles report false so the insertion cavity stays
// star-shaped; sliver triangles are culled after triangulation instead.
func inCircumcircle(p orb.Point, pts []orb.Point, t triangle) bool {
	cx, cy, r := circumcircle(pts[t[0]], pts[t[1]], pts[t[2]])
	if math.IsInf(r, 1) {
		return false
	}
	return math.Hypot(p[0]-cx, p[1]-cy) < r
}

// superTriangle returns three vertices enclosing every input point with a
// wide margin.
func superTriangle(pts []orb.Point) [3]orb.Point {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p[0])
		maxX = math.Max(maxX, p[0])
		minY = math.Min(minY, p[1])
		maxY = math.Max(maxY, p[1])
	}
	dm := math.Max(maxX-minX, maxY-minY)
	if dm == 0 {
		dm = 1
	}
	midX := (minX + maxX) / 2
	midY := (minY + maxY) / 2
	return [3]orb.Point{
		{midX - 20*dm, midY - dm},
		{midX, midY + 20*dm},
		{midX + 20*dm, midY - dm},
	}
}

type triEdge struct{ a, b int }

func normEdge(a, b int) triEdge {
	if a > b {
		a, b = b, a
	}
	return triEdge{a, b}
}

// bowyerWatson triangulates the points, returning triangles as index
// triples into pts. Points are inserted in slice order, which keeps the
// result deterministic for a given input.
func bowyerWatson(pts []orb.Point) []triangle {
	n := len(pts)
	if n < 3 {
		return nil
	}

	super := superTriangle(pts)
	work := make([]orb.Point, n, n+3)
	copy(work, pts)
	work = append(work, super[0], super[1], super[2])

	tris := []triangle{{n, n + 1, n + 2}}

	for i := 0; i < n; i++ {
		p := work[i]

		// Triangles whose circumcircle contains p form the cavity.
		var bad []triangle
		var keep []triangle
		for _, t := range tris {
			if inCircumcircle(p, work, t) {
				bad = append(bad, t)
			} else {
				keep = append(keep, t)
			}
		}

		// The cavity boundary is every edge used by exactly one bad
		// triangle.
		edgeUse := make(map[triEdge]int)
		for _, t := range bad {
			edgeUse[normEdge(t[0], t[1])]++
			edgeUse[normEdge(t[1], t[2])]++
			edgeUse[normEdge(t[2], t[0])]++
		}
		tris = keep
		for _, t := range bad {
			for _, e := range [3]triEdge{
				normEdge(t[0], t[1]),
				normEdge(t[1], t[2]),
				normEdge(t[2], t[0]),
			} {
				if edgeUse[e] == 1 {
					tris = append(tris, triangle{e.a, e.b, i})
					edgeUse[e] = 0 // re-fan each boundary edge once
				}
			}
		}
	}

	// Drop everything still attached to the super-triangle.
	out := tris[:0]
	for _, t := range tris {
		if t[0] < n && t[1] < n && t[2] < n {
			out = append(out, t)
		}
	}
	return out
}

// triArea2 returns twice the signed area of the triangle.
func triArea2(pts []orb.Point, t triangle) float64 {
	a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// orientCCW flips triangles with negative area in place.
func orientCCW(pts []orb.Point, tris []triangle) {
	for i, t := range tris {
		if triArea2(pts, t) < 0 {
			tris[i] = triangle{t[0], t[2], t[1]}
		}
	}
}

func centroid(pts []orb.Point, t triangle) orb.Point {
	a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
	return orb.Point{(a[0] + b[0] + c[0]) / 3, (a[1] + b[1] + c[1]) / 3}
}
