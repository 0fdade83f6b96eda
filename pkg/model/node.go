package model

import "github.com/paulmach/orb"

// Support describes the boundary conditions at a node: fixed degrees of
// freedom and optional elastic spring stiffnesses (N/m for kx/ky, Nm/rad
// for kr). A spring on a non-fixed degree of freedom models elastic
// foundation behavior.
type Support struct {
	FixX bool    `json:"fixX,omitempty"`
	FixY bool    `json:"fixY,omitempty"`
	FixR bool    `json:"fixR,omitempty"`
	KX   float64 `json:"kx,omitempty"`
	KY   float64 `json:"ky,omitempty"`
	KR   float64 `json:"kr,omitempty"`
}

// Any reports whether the support constrains or springs any degree of
// freedom.
func (s Support) Any() bool {
	return s.FixX || s.FixY || s.FixR || s.KX != 0 || s.KY != 0 || s.KR != 0
}

// PointLoad is the case-independent nodal load carried directly on the node.
// Load cases add further case-keyed loads on top.
type PointLoad struct {
	FX float64 `json:"fx,omitempty"` // N
	FY float64 `json:"fy,omitempty"` // N
	MZ float64 `json:"mz,omitempty"` // Nm
}

// Node is a structural joint in model space (meters).
type Node struct {
	ID       NodeID    `json:"id"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Support  Support   `json:"support,omitempty"`
	Load     PointLoad `json:"load,omitempty"`
	GridLine string    `json:"gridLine,omitempty"` // soft association, never enforced
}

// Pos returns the node position as a geometry point.
func (n *Node) Pos() orb.Point {
	return orb.Point{n.X, n.Y}
}
