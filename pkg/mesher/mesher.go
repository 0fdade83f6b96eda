// Package mesher generates boundary-conforming plate meshes. The primary
// path is a conforming Delaunay triangulation with tri-pair quad merging;
// when it cannot honor the contour it falls back to a structured quad grid
// that always terminates. Inputs are contours in model space; outputs are
// index meshes plus one boundary chain per contour segment, which is what
// edge-load continuity is rebuilt from after a remesh.
package mesher

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/geom"
)

// BoundaryChain is the realized node chain of one contour segment.
// SegmentIndex is the polygonEdgeIndex: outline segments first, then each
// void's segments in order.
type BoundaryChain struct {
	SegmentIndex int
	Start, End   orb.Point
	Points       []int // ordered indices into Result.Points, Start to End
}

// Result is a generated mesh, index-based and unaware of the topology
// store. The store assigns real node and element ids when applying it.
type Result struct {
	Points   []orb.Point
	Tris     [][3]int
	Quads    [][4]int
	Chains   []BoundaryChain
	Fallback bool // true when the structured grid stood in for the conforming path
}

// ElementCount returns the number of elements of any shape.
func (r *Result) ElementCount() int {
	return len(r.Tris) + len(r.Quads)
}

// GenerationFailure reports that no mesh could be produced. The conforming
// path failing alone is not a GenerationFailure; only both paths failing
// surfaces one.
type GenerationFailure struct {
	Stage  string
	Reason string
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("mesh generation failed (%s): %s", e.Stage, e.Reason)
}

// Generate meshes the domain bounded by outline minus voids at the target
// element size. On conforming-path failure it degrades to the structured
// grid and marks the result as a fallback.
func Generate(outline orb.Ring, voids []orb.Ring, size float64) (*Result, error) {
	if size <= 0 {
		return nil, &GenerationFailure{Stage: "setup", Reason: fmt.Sprintf("mesh size must be positive, got %v", size)}
	}
	res, err := generateConforming(outline, voids, size)
	if err == nil {
		return res, nil
	}
	grid, gridErr := GenerateGrid(outline, voids, size)
	if gridErr != nil {
		return nil, fmt.Errorf("conforming path: %w; grid fallback: %v", err, gridErr)
	}
	grid.Fallback = true
	return grid, nil
}

func generateConforming(outline orb.Ring, voids []orb.Ring, size float64) (*Result, error) {
	ps := newPointSet()
	segs := sampleContours(ps, outline, voids, size)
	seedInterior(ps, outline, voids, size)
	if len(ps.pts) > maxPoints {
		return nil, &GenerationFailure{
			Stage:  "sampling",
			Reason: fmt.Sprintf("mesh size %v yields %d points, over the %d limit", size, len(ps.pts), maxPoints),
		}
	}

	tris := bowyerWatson(ps.pts)
	for round := 0; round < recoverRounds; round++ {
		missing := missingSubEdges(segs, tris)
		if len(missing) == 0 {
			break
		}
		bisectMissing(ps, segs, missing)
		if len(ps.pts) > maxPoints {
			return nil, &GenerationFailure{Stage: "recovery", Reason: "edge recovery exceeded the point limit"}
		}
		tris = bowyerWatson(ps.pts)
	}
	if missing := missingSubEdges(segs, tris); len(missing) > 0 {
		return nil, &GenerationFailure{
			Stage:  "recovery",
			Reason: fmt.Sprintf("%d contour sub-edges unresolved after %d rounds", len(missing), recoverRounds),
		}
	}

	tris = cullOutside(ps.pts, tris, outline, voids)
	if len(tris) == 0 {
		return nil, &GenerationFailure{Stage: "culling", Reason: "no elements inside the contour"}
	}
	orientCCW(ps.pts, tris)

	quads, rest := mergeQuads(ps.pts, tris)
	res := &Result{
		Points: ps.pts,
		Quads:  quads,
		Chains: buildChains(segs),
	}
	for _, t := range rest {
		res.Tris = append(res.Tris, t)
	}
	compact(res)
	return res, nil
}

// Warp attempts to reuse a mesh after a contour vertex moved from one
// position to another: nearby points shift with a linear falloff and the
// connectivity is kept. It refuses when the move would invert an element,
// in which case the caller regenerates from scratch.
func Warp(prev *Result, from, to orb.Point, radius float64) (*Result, bool) {
	if prev == nil || radius <= 0 {
		return nil, false
	}
	dx, dy := to[0]-from[0], to[1]-from[1]
	if math.Hypot(dx, dy) > radius {
		return nil, false
	}

	next := &Result{
		Points:   make([]orb.Point, len(prev.Points)),
		Tris:     append([][3]int(nil), prev.Tris...),
		Quads:    append([][4]int(nil), prev.Quads...),
		Chains:   make([]BoundaryChain, len(prev.Chains)),
		Fallback: prev.Fallback,
	}
	moved := false
	for i, p := range prev.Points {
		d := geom.Dist(p, from)
		if d >= radius {
			next.Points[i] = p
			continue
		}
		w := 1 - d/radius
		next.Points[i] = orb.Point{p[0] + w*dx, p[1] + w*dy}
		moved = true
	}
	if !moved {
		return nil, false
	}

	for i, ch := range prev.Chains {
		cp := ch
		cp.Points = append([]int(nil), ch.Points...)
		if geom.Coincident(cp.Start, from) {
			cp.Start = to
		}
		if geom.Coincident(cp.End, from) {
			cp.End = to
		}
		next.Chains[i] = cp
	}

	for _, t := range next.Tris {
		if triArea2(next.Points, triangle(t)) <= 1e-12 {
			return nil, false
		}
	}
	for _, q := range next.Quads {
		if _, ok := quadScore(next.Points, q); !ok {
			return nil, false
		}
	}
	return next, true
}
