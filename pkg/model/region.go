package model

import (
	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/geom"
)

// RegionKind distinguishes axis-aligned rectangular regions, which mesh on
// the structured grid path with exact element counts, from general polygon
// regions, which mesh via constrained triangulation.
type RegionKind int

const (
	RegionRectangular RegionKind = iota
	RegionPolygon
)

func (k RegionKind) String() string {
	switch k {
	case RegionRectangular:
		return "rectangular"
	case RegionPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// PlateRegion is a meshed plate defined by an outline contour and zero or
// more void contours. The mesh realization (elements, nodes, edges) is fully
// replaced on every remesh; the contour and the per-segment edge indexing
// are what persists.
//
// Invariants: the outline is simple with consistent winding; voids lie
// strictly inside the outline and never touch it or each other within the
// meshing tolerance.
type PlateRegion struct {
	ID         RegionID   `json:"id"`
	Kind       RegionKind `json:"kind"`
	Outline    orb.Ring   `json:"outline"`
	Voids      []orb.Ring `json:"voids,omitempty"`
	MeshSize   float64    `json:"meshSize"`  // target element edge length m
	Thickness  float64    `json:"thickness"` // m
	MaterialID string     `json:"materialId"`

	// Mesh realization, owned by the region and replaced atomically.
	ElementIDs      []SurfaceID `json:"elementIds,omitempty"`
	NodeIDs         []NodeID    `json:"nodeIds,omitempty"`
	BoundaryNodeIDs []NodeID    `json:"boundaryNodeIds,omitempty"`
	EdgeIDs         []EdgeID    `json:"edgeIds,omitempty"`

	// windingSign is the sign of the outline's signed area at creation.
	// Accepted edits must keep it; see ValidateContour.
	windingSign float64
}

// SegmentCount returns the number of contour segments across the outline
// and all voids, which is the domain of polygonEdgeIndex values.
func (r *PlateRegion) SegmentCount() int {
	n := geom.RingLen(r.Outline)
	for _, v := range r.Voids {
		n += geom.RingLen(v)
	}
	return n
}

// Segment returns the endpoints of the contour segment with the given
// polygonEdgeIndex. Outline segments come first, then each void's segments
// in order.
func (r *PlateRegion) Segment(index int) (a, b orb.Point, ok bool) {
	n := geom.RingLen(r.Outline)
	if index < n {
		a, b = geom.RingSegment(r.Outline, index)
		return a, b, true
	}
	index -= n
	for _, v := range r.Voids {
		vn := geom.RingLen(v)
		if index < vn {
			a, b = geom.RingSegment(v, index)
			return a, b, true
		}
		index -= vn
	}
	return a, b, false
}
