// Package solve defines the analysis contract between the editor core and
// a structural solver, builds requests from the topology, and provides two
// Solver implementations: an in-process linear frame solver and a remote
// HTTP adapter speaking the same JSON contract.
package solve

import (
	"context"
	"fmt"
	"sort"

	"github.com/chazu/gusset/pkg/catalog"
	"github.com/chazu/gusset/pkg/model"
)

// AnalysisType selects the formulation a request is solved with.
type AnalysisType string

const (
	AnalysisFrame        AnalysisType = "frame"
	AnalysisPlaneStress  AnalysisType = "plane-stress"
	AnalysisPlaneStrain  AnalysisType = "plane-strain"
	AnalysisPlateBending AnalysisType = "plate-bending"
)

// NodeRecord carries one node: position, constraints, springs, and the
// nodal loads already summed for the requested load case. Units are N, m,
// Pa throughout.
type NodeRecord struct {
	ID   int64   `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	FixX bool    `json:"fixX,omitempty"`
	FixY bool    `json:"fixY,omitempty"`
	FixR bool    `json:"fixR,omitempty"`
	KX   float64 `json:"kx,omitempty"`
	KY   float64 `json:"ky,omitempty"`
	KR   float64 `json:"kr,omitempty"`
	FX   float64 `json:"fx,omitempty"`
	FY   float64 `json:"fy,omitempty"`
	MZ   float64 `json:"mz,omitempty"`
}

// BeamLoad is a distributed load on a beam, linear between its start and
// end intensities over the partial extent [StartT, EndT].
type BeamLoad struct {
	QX     float64 `json:"qx"`
	QY     float64 `json:"qy"`
	QXEnd  float64 `json:"qxEnd"`
	QYEnd  float64 `json:"qyEnd"`
	StartT float64 `json:"startT"`
	EndT   float64 `json:"endT"`
	Coord  string  `json:"coord"` // local | global
}

// BeamRecord carries one beam element with resolved section and material
// values; the solver never sees catalog names.
type BeamRecord struct {
	ID            int64      `json:"id"`
	N1            int64      `json:"n1"`
	N2            int64      `json:"n2"`
	E             float64    `json:"e"`
	A             float64    `json:"a"`
	I             float64    `json:"i"`
	StartReleased bool       `json:"startReleased,omitempty"`
	EndReleased   bool       `json:"endReleased,omitempty"`
	Loads         []BeamLoad `json:"loads,omitempty"`
}

// SurfaceRecord carries one plate element for the plate analysis types.
type SurfaceRecord struct {
	ID        int64   `json:"id"`
	Nodes     []int64 `json:"nodes"`
	Thickness float64 `json:"thickness"`
	E         float64 `json:"e"`
	Nu        float64 `json:"nu"`
}

// Request is the full analysis input.
type Request struct {
	AnalysisType       AnalysisType    `json:"analysisType"`
	GeometricNonlinear bool            `json:"geometricNonlinear,omitempty"`
	Nodes              []NodeRecord    `json:"nodes"`
	Beams              []BeamRecord    `json:"beams"`
	Surfaces           []SurfaceRecord `json:"surfaces,omitempty"`
}

// Displacement is a nodal result triple, indexed via NodeIDOrder.
type Displacement struct {
	UX float64 `json:"ux"`
	UY float64 `json:"uy"`
	RZ float64 `json:"rz"`
}

// Reaction is the support reaction at a constrained node.
type Reaction struct {
	NodeID int64   `json:"nodeId"`
	FX     float64 `json:"fx"`
	FY     float64 `json:"fy"`
	MZ     float64 `json:"mz"`
}

// BeamForces are the member end forces: axial (tension positive), shear,
// and moment at each end, in the beam's local system.
type BeamForces struct {
	BeamID int64   `json:"beamId"`
	N1     float64 `json:"n1"`
	V1     float64 `json:"v1"`
	M1     float64 `json:"m1"`
	N2     float64 `json:"n2"`
	V2     float64 `json:"v2"`
	M2     float64 `json:"m2"`
}

// Response is the full analysis output. NodeIDOrder maps node ids to
// indices into Displacements.
type Response struct {
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	Displacements []Displacement `json:"displacements,omitempty"`
	Reactions     []Reaction     `json:"reactions,omitempty"`
	BeamForces    []BeamForces   `json:"beamForces,omitempty"`
	NodeIDOrder   map[int64]int  `json:"nodeIdOrder,omitempty"`
}

// Solver runs one analysis. Implementations must honor ctx cancellation.
type Solver interface {
	Solve(ctx context.Context, req *Request) (*Response, error)
}

// UnsupportedAnalysisError reports a request outside a solver's
// capabilities.
type UnsupportedAnalysisError struct {
	Type      AnalysisType
	Nonlinear bool
}

func (e *UnsupportedAnalysisError) Error() string {
	if e.Nonlinear {
		return fmt.Sprintf("unsupported analysis: %s with geometric nonlinearity", e.Type)
	}
	return fmt.Sprintf("unsupported analysis type %q", e.Type)
}

// BuildRequest assembles an analysis request from the model for one load
// case. Frame analyses carry only beam-connected nodes; plate analyses add
// the plate elements and their nodes. Nodal loads are the sum of the
// node's own load and the case's point loads.
func BuildRequest(m *model.Model, lc *model.LoadCase, at AnalysisType) (*Request, error) {
	if lc == nil {
		return nil, fmt.Errorf("nil load case")
	}
	req := &Request{AnalysisType: at}

	wantPlates := at == AnalysisPlaneStress || at == AnalysisPlaneStrain || at == AnalysisPlateBending

	nodeIDs := make(map[model.NodeID]bool)
	for _, b := range m.Beams {
		nodeIDs[b.N1] = true
		nodeIDs[b.N2] = true
	}
	if wantPlates {
		for _, s := range m.Surfaces {
			for _, nid := range s.Nodes {
				nodeIDs[nid] = true
			}
		}
	}

	caseFX := make(map[model.NodeID][3]float64)
	for _, pl := range lc.Points {
		acc := caseFX[pl.NodeID]
		acc[0] += pl.FX
		acc[1] += pl.FY
		acc[2] += pl.MZ
		caseFX[pl.NodeID] = acc
	}

	ids := make([]model.NodeID, 0, len(nodeIDs))
	for nid := range nodeIDs {
		ids = append(ids, nid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, nid := range ids {
		n := m.Nodes[nid]
		if n == nil {
			return nil, fmt.Errorf("element references missing node %d", nid)
		}
		acc := caseFX[nid]
		req.Nodes = append(req.Nodes, NodeRecord{
			ID: int64(nid), X: n.X, Y: n.Y,
			FixX: n.Support.FixX, FixY: n.Support.FixY, FixR: n.Support.FixR,
			KX: n.Support.KX, KY: n.Support.KY, KR: n.Support.KR,
			FX: n.Load.FX + acc[0], FY: n.Load.FY + acc[1], MZ: n.Load.MZ + acc[2],
		})
	}

	loadsByBeam := make(map[model.BeamID][]BeamLoad)
	for _, dl := range lc.Distributed {
		if dl.BeamID.IsZero() {
			continue // edge loads ride on plate elements, outside this contract
		}
		loadsByBeam[dl.BeamID] = append(loadsByBeam[dl.BeamID], BeamLoad{
			QX: dl.QX, QY: dl.QY,
			QXEnd: dl.EndQX(), QYEnd: dl.EndQY(),
			StartT: dl.StartT, EndT: dl.EndT,
			Coord: dl.CoordSystem,
		})
	}

	beamIDs := make([]model.BeamID, 0, len(m.Beams))
	for bid := range m.Beams {
		beamIDs = append(beamIDs, bid)
	}
	sort.Slice(beamIDs, func(i, j int) bool { return beamIDs[i] < beamIDs[j] })
	for _, bid := range beamIDs {
		b := m.Beams[bid]
		mat, err := catalog.MaterialByName(b.MaterialID)
		if err != nil {
			return nil, fmt.Errorf("beam %d: %w", bid, err)
		}
		req.Beams = append(req.Beams, BeamRecord{
			ID: int64(bid), N1: int64(b.N1), N2: int64(b.N2),
			E: mat.E, A: b.Section.A, I: b.Section.Iy,
			StartReleased: b.StartConn == model.ConnHinge,
			EndReleased:   b.EndConn == model.ConnHinge,
			Loads:         loadsByBeam[bid],
		})
	}

	if wantPlates {
		sids := make([]model.SurfaceID, 0, len(m.Surfaces))
		for sid := range m.Surfaces {
			sids = append(sids, sid)
		}
		sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })
		for _, sid := range sids {
			s := m.Surfaces[sid]
			mat, err := catalog.MaterialByName(s.MaterialID)
			if err != nil {
				return nil, fmt.Errorf("surface %d: %w", sid, err)
			}
			rec := SurfaceRecord{
				ID: int64(sid), Thickness: s.Thickness, E: mat.E, Nu: mat.Nu,
			}
			for _, nid := range s.Nodes {
				rec.Nodes = append(rec.Nodes, int64(nid))
			}
			req.Surfaces = append(req.Surfaces, rec)
		}
	}
	return req, nil
}
