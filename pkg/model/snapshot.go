package model

import (
	"encoding/json"
	"fmt"

	"github.com/chazu/gusset/pkg/geom"
)

// Snapshot is the serializable image of a model: every entity table plus
// the id counters, so a restored model keeps issuing fresh ids and never
// re-uses one from before the save.
type Snapshot struct {
	Nodes    []*Node           `json:"nodes"`
	Beams    []*BeamElement    `json:"beams"`
	Surfaces []*SurfaceElement `json:"surfaces,omitempty"`
	Regions  []*PlateRegion    `json:"regions,omitempty"`
	Edges    []*Edge           `json:"edges,omitempty"`
	SubNodes []*SubNode        `json:"subNodes,omitempty"`
	Cases    []*LoadCase       `json:"loadCases"`

	MeshVersion uint64     `json:"meshVersion"`
	NextIDs     [8]int64   `json:"nextIds"` // node, beam, surface, region, edge, subnode, case, load
	DefaultCase LoadCaseID `json:"defaultCase"`
}

// Snapshot captures the model. Entity pointers are deep-copied so the
// snapshot stays stable while the live model keeps mutating.
func (m *Model) Snapshot() *Snapshot {
	s := &Snapshot{
		MeshVersion: m.meshVersion,
		NextIDs: [8]int64{
			m.nextNode, m.nextBeam, m.nextSurface, m.nextRegion,
			m.nextEdge, m.nextSubNode, m.nextCase, m.nextLoad,
		},
		DefaultCase: m.defaultCase,
	}
	for _, n := range m.Nodes {
		cp := *n
		s.Nodes = append(s.Nodes, &cp)
	}
	for _, b := range m.Beams {
		cp := *b
		s.Beams = append(s.Beams, &cp)
	}
	for _, sf := range m.Surfaces {
		cp := *sf
		cp.Nodes = append([]NodeID(nil), sf.Nodes...)
		s.Surfaces = append(s.Surfaces, &cp)
	}
	for _, r := range m.Regions {
		cp := *r
		cp.Outline = cloneRing(r.Outline)
		cp.Voids = cloneRings(r.Voids)
		cp.ElementIDs = append([]SurfaceID(nil), r.ElementIDs...)
		cp.NodeIDs = append([]NodeID(nil), r.NodeIDs...)
		cp.BoundaryNodeIDs = append([]NodeID(nil), r.BoundaryNodeIDs...)
		cp.EdgeIDs = append([]EdgeID(nil), r.EdgeIDs...)
		s.Regions = append(s.Regions, &cp)
	}
	for _, e := range m.Edges {
		cp := *e
		cp.Chain = append([]NodeID(nil), e.Chain...)
		s.Edges = append(s.Edges, &cp)
	}
	for _, sn := range m.SubNodes {
		cp := *sn
		s.SubNodes = append(s.SubNodes, &cp)
	}
	for _, lc := range m.Cases {
		cp := &LoadCase{ID: lc.ID, Name: lc.Name, Category: lc.Category}
		for _, l := range lc.Distributed {
			lcp := *l
			cp.Distributed = append(cp.Distributed, &lcp)
		}
		for _, l := range lc.Points {
			lcp := *l
			cp.Points = append(cp.Points, &lcp)
		}
		for _, l := range lc.Thermal {
			lcp := *l
			cp.Thermal = append(cp.Thermal, &lcp)
		}
		s.Cases = append(s.Cases, cp)
	}
	return s
}

// FromSnapshot rebuilds a model from a snapshot, re-deriving the per-region
// winding signs from the stored outlines.
func FromSnapshot(s *Snapshot) (*Model, error) {
	m := &Model{
		Nodes:       make(map[NodeID]*Node, len(s.Nodes)),
		Beams:       make(map[BeamID]*BeamElement, len(s.Beams)),
		Surfaces:    make(map[SurfaceID]*SurfaceElement, len(s.Surfaces)),
		Regions:     make(map[RegionID]*PlateRegion, len(s.Regions)),
		Edges:       make(map[EdgeID]*Edge, len(s.Edges)),
		SubNodes:    make(map[SubNodeID]*SubNode, len(s.SubNodes)),
		Cases:       make(map[LoadCaseID]*LoadCase, len(s.Cases)),
		meshVersion: s.MeshVersion,
		defaultCase: s.DefaultCase,
	}
	m.nextNode, m.nextBeam, m.nextSurface, m.nextRegion = s.NextIDs[0], s.NextIDs[1], s.NextIDs[2], s.NextIDs[3]
	m.nextEdge, m.nextSubNode, m.nextCase, m.nextLoad = s.NextIDs[4], s.NextIDs[5], s.NextIDs[6], s.NextIDs[7]

	for _, n := range s.Nodes {
		cp := *n
		m.Nodes[cp.ID] = &cp
	}
	for _, b := range s.Beams {
		cp := *b
		m.Beams[cp.ID] = &cp
	}
	for _, sf := range s.Surfaces {
		cp := *sf
		m.Surfaces[cp.ID] = &cp
	}
	for _, r := range s.Regions {
		cp := *r
		cp.windingSign = signOf(geom.SignedArea(cp.Outline))
		m.Regions[cp.ID] = &cp
	}
	for _, e := range s.Edges {
		cp := *e
		m.Edges[cp.ID] = &cp
	}
	for _, sn := range s.SubNodes {
		cp := *sn
		m.SubNodes[cp.ID] = &cp
	}
	for _, lc := range s.Cases {
		cp := &LoadCase{ID: lc.ID, Name: lc.Name, Category: lc.Category}
		for _, l := range lc.Distributed {
			lcp := *l
			cp.Distributed = append(cp.Distributed, &lcp)
		}
		for _, l := range lc.Points {
			lcp := *l
			cp.Points = append(cp.Points, &lcp)
		}
		for _, l := range lc.Thermal {
			lcp := *l
			cp.Thermal = append(cp.Thermal, &lcp)
		}
		m.Cases[cp.ID] = cp
	}

	if m.defaultCase.IsZero() || m.Cases[m.defaultCase] == nil {
		return nil, fmt.Errorf("snapshot has no default load case")
	}
	return m, nil
}

// MarshalJSON serializes the model through its snapshot.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

// UnmarshalJSON rebuilds the model from snapshot JSON.
func (m *Model) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	restored, err := FromSnapshot(&s)
	if err != nil {
		return err
	}
	*m = *restored
	return nil
}
