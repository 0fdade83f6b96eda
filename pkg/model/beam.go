package model

// ConnType is the end connection of a beam element.
type ConnType int

const (
	ConnRigid       ConnType = iota // full moment connection
	ConnHinge                       // moment released
	ConnTensionOnly                 // carries axial tension only
	ConnPressureOnly
)

func (c ConnType) String() string {
	switch c {
	case ConnRigid:
		return "rigid"
	case ConnHinge:
		return "hinge"
	case ConnTensionOnly:
		return "tension-only"
	case ConnPressureOnly:
		return "pressure-only"
	default:
		return "unknown"
	}
}

// Section carries the cross-section properties a beam is analyzed with.
// Profile is the catalog name the values came from, kept so the section can
// be re-resolved or swapped; the numeric fields are authoritative.
type Section struct {
	Profile string  `json:"profile,omitempty"`
	A       float64 `json:"a"`  // m²
	Iy      float64 `json:"iy"` // m⁴
	H       float64 `json:"h"`  // m
}

// BeamElement is a line element between two shared nodes. The nodes are
// referenced, never owned: removing a node cascades to its beams, not the
// other way around. Length and angle are always derived from the current
// node positions.
type BeamElement struct {
	ID          BeamID   `json:"id"`
	N1          NodeID   `json:"n1"`
	N2          NodeID   `json:"n2"`
	MaterialID  string   `json:"materialId"`
	Section     Section  `json:"section"`
	StartConn   ConnType `json:"startConn"`
	EndConn     ConnType `json:"endConn"`
	ElementType string   `json:"elementType,omitempty"` // "beam", "column", "brace"
}
