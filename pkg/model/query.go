package model

import (
	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/geom"
)

// Hit-testing queries. Model sizes stay in the hundreds of entities, so a
// linear scan beats maintaining a spatial index across remeshes.

// NodeAt returns the node within tol of the point, preferring the closest.
func (m *Model) NodeAt(x, y, tol float64) *Node {
	p := orb.Point{x, y}
	var best *Node
	bestD := tol
	for _, n := range m.Nodes {
		d := geom.Dist(p, n.Pos())
		if d <= bestD {
			best, bestD = n, d
		}
	}
	return best
}

// NearestNode returns the closest node and its distance, or nil when the
// model has no nodes.
func (m *Model) NearestNode(x, y float64) (*Node, float64) {
	p := orb.Point{x, y}
	var best *Node
	bestD := 0.0
	for _, n := range m.Nodes {
		d := geom.Dist(p, n.Pos())
		if best == nil || d < bestD {
			best, bestD = n, d
		}
	}
	return best, bestD
}

// NearestBeam returns the beam whose axis is closest to the point.
func (m *Model) NearestBeam(x, y float64) (*BeamElement, float64) {
	p := orb.Point{x, y}
	var best *BeamElement
	bestD := 0.0
	for _, b := range m.Beams {
		n1, ok1 := m.Nodes[b.N1]
		n2, ok2 := m.Nodes[b.N2]
		if !ok1 || !ok2 {
			continue
		}
		d := geom.PointSegmentDistance(p, n1.Pos(), n2.Pos())
		if best == nil || d < bestD {
			best, bestD = b, d
		}
	}
	return best, bestD
}

// NearestEdge returns the mesh boundary edge whose node chain passes
// closest to the point.
func (m *Model) NearestEdge(x, y float64) (*Edge, float64) {
	p := orb.Point{x, y}
	var best *Edge
	bestD := 0.0
	for _, e := range m.Edges {
		d, ok := m.edgeDistance(p, e)
		if !ok {
			continue
		}
		if best == nil || d < bestD {
			best, bestD = e, d
		}
	}
	return best, bestD
}

func (m *Model) edgeDistance(p orb.Point, e *Edge) (float64, bool) {
	if len(e.Chain) < 2 {
		return geom.PointSegmentDistance(p, e.Start, e.End), true
	}
	best := -1.0
	for i := 0; i+1 < len(e.Chain); i++ {
		a, ok1 := m.Nodes[e.Chain[i]]
		b, ok2 := m.Nodes[e.Chain[i+1]]
		if !ok1 || !ok2 {
			continue
		}
		d := geom.PointSegmentDistance(p, a.Pos(), b.Pos())
		if best < 0 || d < best {
			best = d
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// RegionAt returns the plate region whose contour contains the point,
// voids excluded. With overlapping regions the smallest containing region
// wins, matching pick expectations when a small plate sits on a large one.
func (m *Model) RegionAt(x, y float64) *PlateRegion {
	p := orb.Point{x, y}
	var best *PlateRegion
	bestArea := 0.0
	for _, r := range m.Regions {
		if !geom.PointInPolygon(p, r.Outline) {
			continue
		}
		inVoid := false
		for _, v := range r.Voids {
			if geom.PointInPolygon(p, v) && !onLoopBoundary(p, v) {
				inVoid = true
				break
			}
		}
		if inVoid {
			continue
		}
		area := geom.SignedArea(r.Outline)
		if area < 0 {
			area = -area
		}
		if best == nil || area < bestArea {
			best, bestArea = r, area
		}
	}
	return best
}
