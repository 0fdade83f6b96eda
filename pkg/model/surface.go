package model

// SurfaceElement is a plate finite element, triangular (3 nodes) or
// quadrilateral (4 nodes). A surface element belongs to at most one
// PlateRegion; the region id is zero for free-standing elements.
type SurfaceElement struct {
	ID         SurfaceID `json:"id"`
	Nodes      []NodeID  `json:"nodes"` // 3 or 4, counter-clockwise
	MaterialID string    `json:"materialId"`
	Thickness  float64   `json:"thickness"` // m
	RegionID   RegionID  `json:"regionId,omitempty"`
}

// IsQuad reports whether the element is quadrilateral.
func (s *SurfaceElement) IsQuad() bool {
	return len(s.Nodes) == 4
}
