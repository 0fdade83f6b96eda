package model

// LoadCategory classifies a load case for combination purposes.
type LoadCategory string

const (
	CategoryPermanent LoadCategory = "permanent"
	CategoryLive      LoadCategory = "live"
	CategoryWind      LoadCategory = "wind"
	CategorySnow      LoadCategory = "snow"
	CategoryOther     LoadCategory = "other"
)

// ValidCategories enumerates the accepted load case categories.
var ValidCategories = map[LoadCategory]bool{
	CategoryPermanent: true,
	CategoryLive:      true,
	CategoryWind:      true,
	CategorySnow:      true,
	CategoryOther:     true,
}

// DistributedLoad is a line load on exactly one of a beam element or a
// plate boundary edge. QX/QY are intensities in N/m at StartT; QXEnd/QYEnd,
// when set, make the load trapezoidal. StartT/EndT restrict the loaded
// extent in normalized element coordinates. CoordLocal measures qx along
// and qy perpendicular to the member axis; CoordGlobal uses model axes.
type DistributedLoad struct {
	ID          LoadID   `json:"id"`
	BeamID      BeamID   `json:"beamId,omitempty"`
	EdgeID      EdgeID   `json:"edgeId,omitempty"`
	QX          float64  `json:"qx"`
	QY          float64  `json:"qy"`
	QXEnd       *float64 `json:"qxEnd,omitempty"`
	QYEnd       *float64 `json:"qyEnd,omitempty"`
	StartT      float64  `json:"startT"`
	EndT        float64  `json:"endT"`
	CoordSystem string   `json:"coordSystem"` // "local" | "global"
	Description string   `json:"description,omitempty"`
}

const (
	CoordLocal  = "local"
	CoordGlobal = "global"
)

// EndQX returns the intensity at EndT, falling back to the start value for
// uniform loads.
func (l *DistributedLoad) EndQX() float64 {
	if l.QXEnd != nil {
		return *l.QXEnd
	}
	return l.QX
}

// EndQY returns the qy intensity at EndT.
func (l *DistributedLoad) EndQY() float64 {
	if l.QYEnd != nil {
		return *l.QYEnd
	}
	return l.QY
}

// CasePointLoad is a case-keyed nodal load.
type CasePointLoad struct {
	ID     LoadID  `json:"id"`
	NodeID NodeID  `json:"nodeId"`
	FX     float64 `json:"fx,omitempty"`
	FY     float64 `json:"fy,omitempty"`
	MZ     float64 `json:"mz,omitempty"`
}

// ThermalLoad is a uniform temperature change on a beam or surface element.
type ThermalLoad struct {
	ID        LoadID    `json:"id"`
	BeamID    BeamID    `json:"beamId,omitempty"`
	SurfaceID SurfaceID `json:"surfaceId,omitempty"`
	DeltaT    float64   `json:"deltaT"` // K
}

// LoadCase groups loads that act together. Every model starts with one
// default permanent case.
type LoadCase struct {
	ID          LoadCaseID         `json:"id"`
	Name        string             `json:"name"`
	Category    LoadCategory       `json:"category"`
	Distributed []*DistributedLoad `json:"distributed,omitempty"`
	Points      []*CasePointLoad   `json:"points,omitempty"`
	Thermal     []*ThermalLoad     `json:"thermal,omitempty"`
}
