package mesher

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/geom"
)

// GenerateGrid meshes the domain with an axis-aligned quad grid: cells
// whose center lies inside the outline and outside every void become
// elements. For an axis-aligned rectangular outline this is exact (a
// w×h plate at size s yields ceil(w/s)×ceil(h/s) quads); for anything
// else it is the voxel approximation the conforming path falls back to.
// It cannot fail to terminate.
func GenerateGrid(outline orb.Ring, voids []orb.Ring, size float64) (*Result, error) {
	if size <= 0 {
		return nil, &GenerationFailure{Stage: "grid", Reason: fmt.Sprintf("mesh size must be positive, got %v", size)}
	}
	bound := outline.Bound()
	w := bound.Max[0] - bound.Min[0]
	h := bound.Max[1] - bound.Min[1]
	if w <= 0 || h <= 0 {
		return nil, &GenerationFailure{Stage: "grid", Reason: "outline has no extent"}
	}

	nx := int(math.Ceil(w/size - geom.Eps))
	ny := int(math.Ceil(h/size - geom.Eps))
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}
	if (nx+1)*(ny+1) > maxPoints {
		return nil, &GenerationFailure{
			Stage:  "grid",
			Reason: fmt.Sprintf("mesh size %v yields a %dx%d grid, over the point limit", size, nx, ny),
		}
	}
	cw := w / float64(nx)
	ch := h / float64(ny)

	res := &Result{}
	vert := make(map[[2]int]int)
	vertexAt := func(i, j int) int {
		key := [2]int{i, j}
		if idx, ok := vert[key]; ok {
			return idx
		}
		p := orb.Point{bound.Min[0] + float64(i)*cw, bound.Min[1] + float64(j)*ch}
		res.Points = append(res.Points, p)
		vert[key] = len(res.Points) - 1
		return len(res.Points) - 1
	}

	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			center := orb.Point{
				bound.Min[0] + (float64(i)+0.5)*cw,
				bound.Min[1] + (float64(j)+0.5)*ch,
			}
			if !geom.PointInPolygon(center, outline) {
				continue
			}
			inVoid := false
			for _, v := range voids {
				if geom.PointInPolygon(center, v) {
					inVoid = true
					break
				}
			}
			if inVoid {
				continue
			}
			res.Quads = append(res.Quads, [4]int{
				vertexAt(i, j),
				vertexAt(i+1, j),
				vertexAt(i+1, j+1),
				vertexAt(i, j+1),
			})
		}
	}
	if len(res.Quads) == 0 {
		return nil, &GenerationFailure{Stage: "grid", Reason: "no cell center falls inside the contour"}
	}

	res.Chains = gridChains(res, outline, voids)
	return res, nil
}

type contourSeg struct {
	a, b orb.Point
}

func contourSegs(outline orb.Ring, voids []orb.Ring) []contourSeg {
	var segs []contourSeg
	rings := append([]orb.Ring{outline}, voids...)
	for _, ring := range rings {
		n := geom.RingLen(ring)
		for i := 0; i < n; i++ {
			a, b := geom.RingSegment(ring, i)
			segs = append(segs, contourSeg{a, b})
		}
	}
	return segs
}

// gridChains derives one boundary chain per contour segment from the mesh
// boundary: each mesh boundary edge is assigned to the contour segment its
// midpoint is closest to, and each segment's vertices are ordered along
// the segment. Exact on grid-aligned contours, approximate on voxelized
// ones.
func gridChains(res *Result, outline orb.Ring, voids []orb.Ring) []BoundaryChain {
	segs := contourSegs(outline, voids)

	edgeUse := make(map[triEdge]int)
	for _, q := range res.Quads {
		for i := 0; i < 4; i++ {
			edgeUse[normEdge(q[i], q[(i+1)%4])]++
		}
	}

	segVerts := make([]map[int]bool, len(segs))
	for i := range segVerts {
		segVerts[i] = make(map[int]bool)
	}
	for e, uses := range edgeUse {
		if uses != 1 {
			continue
		}
		mid := geom.Lerp(res.Points[e.a], res.Points[e.b], 0.5)
		best, bestD := -1, 0.0
		for si, s := range segs {
			d := geom.PointSegmentDistance(mid, s.a, s.b)
			if best < 0 || d < bestD {
				best, bestD = si, d
			}
		}
		segVerts[best][e.a] = true
		segVerts[best][e.b] = true
	}

	chains := make([]BoundaryChain, len(segs))
	for si, s := range segs {
		ch := BoundaryChain{SegmentIndex: si, Start: s.a, End: s.b}
		ids := make([]int, 0, len(segVerts[si]))
		for idx := range segVerts[si] {
			ids = append(ids, idx)
		}
		sort.Slice(ids, func(x, y int) bool {
			tx := geom.ProjectParam(res.Points[ids[x]], s.a, s.b)
			ty := geom.ProjectParam(res.Points[ids[y]], s.a, s.b)
			if tx != ty {
				return tx < ty
			}
			return ids[x] < ids[y]
		})
		ch.Points = ids
		chains[si] = ch
	}
	return chains
}
