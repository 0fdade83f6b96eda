package mesher

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// Pairs of triangles sharing an interior diagonal are merged into
// quadrilaterals where the result is convex and reasonably square. The
// merge is greedy, best candidates first, and deterministic.

const (
	quadMinAngle = 45.0 * math.Pi / 180
	quadMaxAngle = 135.0 * math.Pi / 180
)

type quadCandidate struct {
	edge  triEdge
	t1    int
	t2    int
	quad  [4]int
	score float64 // max deviation from a right angle, lower is better
}

// mergeQuads pairs up triangles across shared edges. Returns the quads and
// the triangles left unpaired.
func mergeQuads(pts []orb.Point, tris []triangle) ([][4]int, []triangle) {
	edgeTris := make(map[triEdge][]int)
	for i, t := range tris {
		edgeTris[normEdge(t[0], t[1])] = append(edgeTris[normEdge(t[0], t[1])], i)
		edgeTris[normEdge(t[1], t[2])] = append(edgeTris[normEdge(t[1], t[2])], i)
		edgeTris[normEdge(t[2], t[0])] = append(edgeTris[normEdge(t[2], t[0])], i)
	}

	var cands []quadCandidate
	for e, owners := range edgeTris {
		if len(owners) != 2 {
			continue
		}
		q, ok := quadAcross(pts, tris[owners[0]], tris[owners[1]], e)
		if !ok {
			continue
		}
		score, ok := quadScore(pts, q)
		if !ok {
			continue
		}
		cands = append(cands, quadCandidate{edge: e, t1: owners[0], t2: owners[1], quad: q, score: score})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score < cands[j].score
		}
		if cands[i].edge.a != cands[j].edge.a {
			return cands[i].edge.a < cands[j].edge.a
		}
		return cands[i].edge.b < cands[j].edge.b
	})

	usedTri := make([]bool, len(tris))
	var quads [][4]int
	for _, c := range cands {
		if usedTri[c.t1] || usedTri[c.t2] {
			continue
		}
		usedTri[c.t1] = true
		usedTri[c.t2] = true
		quads = append(quads, c.quad)
	}

	var rest []triangle
	for i, t := range tris {
		if !usedTri[i] {
			rest = append(rest, t)
		}
	}
	return quads, rest
}

// quadAcross builds the CCW quad formed by two CCW triangles sharing edge
// e: the two far vertices become opposite corners.
func quadAcross(pts []orb.Point, t1, t2 triangle, e triEdge) ([4]int, bool) {
	far1, ok1 := farVertex(t1, e)
	far2, ok2 := farVertex(t2, e)
	if !ok1 || !ok2 || far1 == far2 {
		return [4]int{}, false
	}
	// Walk t1 so the shared edge appears as (u, v); the CCW quad is then
	// far1, u, far2, v.
	u, v := e.a, e.b
	if !followsCCW(t1, far1, u, v) {
		u, v = v, u
	}
	q := [4]int{far1, u, far2, v}
	if quadArea2(pts, q) <= 0 {
		return [4]int{}, false
	}
	return q, true
}

func farVertex(t triangle, e triEdge) (int, bool) {
	for _, idx := range t {
		if idx != e.a && idx != e.b {
			return idx, true
		}
	}
	return 0, false
}

// followsCCW reports whether triangle t visits far, u, v in its own
// winding order.
func followsCCW(t triangle, far, u, v int) bool {
	for i := 0; i < 3; i++ {
		if t[i] == far {
			return t[(i+1)%3] == u && t[(i+2)%3] == v
		}
	}
	return false
}

func quadArea2(pts []orb.Point, q [4]int) float64 {
	var a float64
	for i := 0; i < 4; i++ {
		p1 := pts[q[i]]
		p2 := pts[q[(i+1)%4]]
		a += p1[0]*p2[1] - p2[0]*p1[1]
	}
	return a
}

// quadScore rejects non-convex or badly skewed quads and scores the rest
// by their worst corner angle's deviation from 90 degrees.
func quadScore(pts []orb.Point, q [4]int) (float64, bool) {
	worst := 0.0
	for i := 0; i < 4; i++ {
		prev := pts[q[(i+3)%4]]
		cur := pts[q[i]]
		next := pts[q[(i+1)%4]]
		v1x, v1y := prev[0]-cur[0], prev[1]-cur[1]
		v2x, v2y := next[0]-cur[0], next[1]-cur[1]
		cross := v1x*v2y - v1y*v2x
		if cross >= 0 {
			return 0, false // reflex or flat corner
		}
		dot := v1x*v2x + v1y*v2y
		angle := math.Atan2(math.Abs(cross), dot)
		if angle < quadMinAngle || angle > quadMaxAngle {
			return 0, false
		}
		if d := math.Abs(angle - math.Pi/2); d > worst {
			worst = d
		}
	}
	return worst, true
}
