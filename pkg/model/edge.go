package model

import "github.com/paulmach/orb"

// Edge is the mesh realization of one contour segment of a plate region: the
// ordered chain of boundary nodes whose consecutive pairs are element edges
// tracing the segment. Edge ids are replaced wholesale by a remesh; the
// PolygonEdgeIndex is the stable identity a distributed load follows across
// regenerations.
type Edge struct {
	ID               EdgeID    `json:"id"`
	RegionID         RegionID  `json:"regionId"`
	Start            orb.Point `json:"start"`
	End              orb.Point `json:"end"`
	Chain            []NodeID  `json:"chain"` // ordered from Start to End
	PolygonEdgeIndex int       `json:"polygonEdgeIndex"`
}
