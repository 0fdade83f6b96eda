package model

import (
	"fmt"
	"math"

	"github.com/chazu/gusset/pkg/geom"
)

// SubNode records a beam split: a bound node sitting at parameter T on the
// axis between the original endpoints, and the two half beams that replaced
// the original. The record is what makes the split reversible.
type SubNode struct {
	ID        SubNodeID `json:"id"`
	NodeID    NodeID    `json:"nodeId"`
	BeamStart NodeID    `json:"beamStartNodeId"`
	BeamEnd   NodeID    `json:"beamEndNodeId"`
	T         float64   `json:"t"`
	Beam1     BeamID    `json:"beam1Id"`
	Beam2     BeamID    `json:"beam2Id"`
}

// splitTMin and splitTMax keep the bound node off the beam endpoints.
const (
	splitTMin = 0.01
	splitTMax = 0.99
)

// SplitBeamAt replaces a beam with two halves joined at a new bound node
// placed at parameter t along the axis. t is clamped to [0.01, 0.99].
// Section, material, and end connection types carry over; distributed and
// thermal loads are retargeted onto the halves so the load picture on the
// axis is unchanged.
func (m *Model) SplitBeamAt(id BeamID, t float64) (*SubNode, error) {
	b, err := m.Beam(id)
	if err != nil {
		return nil, err
	}
	t = clampSplitT(t)

	n1, n2 := m.Nodes[b.N1], m.Nodes[b.N2]
	p := geom.Lerp(n1.Pos(), n2.Pos(), t)
	bound := m.AddNode(p[0], p[1])

	m.nextBeam++
	b1 := &BeamElement{
		ID:          BeamID(m.nextBeam),
		N1:          b.N1,
		N2:          bound.ID,
		MaterialID:  b.MaterialID,
		Section:     b.Section,
		StartConn:   b.StartConn,
		EndConn:     ConnRigid,
		ElementType: b.ElementType,
	}
	m.Beams[b1.ID] = b1
	m.nextBeam++
	b2 := &BeamElement{
		ID:          BeamID(m.nextBeam),
		N1:          bound.ID,
		N2:          b.N2,
		MaterialID:  b.MaterialID,
		Section:     b.Section,
		StartConn:   ConnRigid,
		EndConn:     b.EndConn,
		ElementType: b.ElementType,
	}
	m.Beams[b2.ID] = b2

	m.retargetLoadsForSplit(id, b1.ID, b2.ID, t)
	delete(m.Beams, id)

	m.nextSubNode++
	sn := &SubNode{
		ID:        SubNodeID(m.nextSubNode),
		NodeID:    bound.ID,
		BeamStart: b.N1,
		BeamEnd:   b.N2,
		T:         t,
		Beam1:     b1.ID,
		Beam2:     b2.ID,
	}
	m.SubNodes[sn.ID] = sn
	m.bump()
	return sn, nil
}

// SubNodeByID returns the sub-node record with the given id.
func (m *Model) SubNodeByID(id SubNodeID) (*SubNode, error) {
	sn, ok := m.SubNodes[id]
	if !ok {
		return nil, danglingSubNode(id)
	}
	return sn, nil
}

// RemoveSubNode merges the two half beams back into a single beam between
// the original endpoints and deletes the bound node and the record. The
// merge refuses if anything else has since attached to the bound node:
// other beams or surface elements, a support, a nodal load, or case point
// loads. Loads on the halves are retargeted onto the merged beam.
func (m *Model) RemoveSubNode(id SubNodeID) (*BeamElement, error) {
	sn, err := m.SubNodeByID(id)
	if err != nil {
		return nil, err
	}
	b1, err := m.Beam(sn.Beam1)
	if err != nil {
		return nil, err
	}
	b2, err := m.Beam(sn.Beam2)
	if err != nil {
		return nil, err
	}

	bound := m.Nodes[sn.NodeID]
	if bound == nil {
		return nil, danglingNode(sn.NodeID)
	}
	for _, b := range m.BeamsAtNode(sn.NodeID) {
		if b.ID != sn.Beam1 && b.ID != sn.Beam2 {
			return nil, fmt.Errorf("cannot merge: beam %d attaches to the bound node", b.ID)
		}
	}
	if len(m.SurfacesAtNode(sn.NodeID)) > 0 {
		return nil, fmt.Errorf("cannot merge: a surface element attaches to the bound node")
	}
	if bound.Support.Any() {
		return nil, fmt.Errorf("cannot merge: the bound node carries a support")
	}
	if bound.Load != (PointLoad{}) {
		return nil, fmt.Errorf("cannot merge: the bound node carries a nodal load")
	}
	for _, lc := range m.Cases {
		for _, pl := range lc.Points {
			if pl.NodeID == sn.NodeID {
				return nil, fmt.Errorf("cannot merge: load %d targets the bound node", pl.ID)
			}
		}
	}

	m.nextBeam++
	merged := &BeamElement{
		ID:          BeamID(m.nextBeam),
		N1:          sn.BeamStart,
		N2:          sn.BeamEnd,
		MaterialID:  b1.MaterialID,
		Section:     b1.Section,
		StartConn:   b1.StartConn,
		EndConn:     b2.EndConn,
		ElementType: b1.ElementType,
	}
	m.Beams[merged.ID] = merged

	m.retargetLoadsForMerge(sn, merged.ID)
	delete(m.Beams, sn.Beam1)
	delete(m.Beams, sn.Beam2)
	delete(m.Nodes, sn.NodeID)
	delete(m.SubNodes, sn.ID)
	m.bump()
	return merged, nil
}

// reprojectSubNode moves the bound node back onto the axis between the
// original endpoints at the stored parameter. Called whenever an endpoint
// moves.
func (m *Model) reprojectSubNode(sn *SubNode) {
	a, ok1 := m.Nodes[sn.BeamStart]
	b, ok2 := m.Nodes[sn.BeamEnd]
	n, ok3 := m.Nodes[sn.NodeID]
	if !ok1 || !ok2 || !ok3 {
		return
	}
	p := geom.Lerp(a.Pos(), b.Pos(), sn.T)
	n.X, n.Y = p[0], p[1]
}

func clampSplitT(t float64) float64 {
	if t < splitTMin {
		return splitTMin
	}
	if t > splitTMax {
		return splitTMax
	}
	return t
}

// retargetLoadsForSplit rewrites every load on the original beam onto the
// halves. A load spanning the cut becomes one load per half; intensities
// at the cut are interpolated so trapezoids stay continuous.
func (m *Model) retargetLoadsForSplit(orig, half1, half2 BeamID, t float64) {
	for _, lc := range m.Cases {
		var kept []*DistributedLoad
		for _, l := range lc.Distributed {
			if l.BeamID != orig {
				kept = append(kept, l)
				continue
			}
			if nl, ok := sliceLoad(l, 0, t); ok {
				nl.BeamID = half1
				m.nextLoad++
				nl.ID = LoadID(m.nextLoad)
				kept = append(kept, nl)
			}
			if nl, ok := sliceLoad(l, t, 1); ok {
				nl.BeamID = half2
				m.nextLoad++
				nl.ID = LoadID(m.nextLoad)
				kept = append(kept, nl)
			}
		}
		lc.Distributed = kept

		for _, tl := range lc.Thermal {
			if tl.BeamID == orig {
				tl.BeamID = half1
				m.nextLoad++
				dup := &ThermalLoad{ID: LoadID(m.nextLoad), BeamID: half2, DeltaT: tl.DeltaT}
				lc.Thermal = append(lc.Thermal, dup)
			}
		}
	}
}

// retargetLoadsForMerge rewrites loads on the halves onto the merged beam,
// rescaling their parameter spans back into the original axis.
func (m *Model) retargetLoadsForMerge(sn *SubNode, merged BeamID) {
	t := sn.T
	for _, lc := range m.Cases {
		for _, l := range lc.Distributed {
			switch l.BeamID {
			case sn.Beam1:
				l.BeamID = merged
				l.StartT *= t
				l.EndT *= t
			case sn.Beam2:
				l.BeamID = merged
				l.StartT = t + l.StartT*(1-t)
				l.EndT = t + l.EndT*(1-t)
			}
		}
		// Duplicate thermal loads collapse to one on the merged beam.
		seen := false
		var keptThermal []*ThermalLoad
		for _, tl := range lc.Thermal {
			if tl.BeamID == sn.Beam1 || tl.BeamID == sn.Beam2 {
				if seen {
					continue
				}
				tl.BeamID = merged
				seen = true
			}
			keptThermal = append(keptThermal, tl)
		}
		lc.Thermal = keptThermal
	}
}

// sliceLoad maps a distributed load's overlap with the original-axis span
// [lo, hi] into a load parameterized over that span. Returns false when
// the overlap is empty.
func sliceLoad(l *DistributedLoad, lo, hi float64) (*DistributedLoad, bool) {
	s := math.Max(l.StartT, lo)
	e := math.Min(l.EndT, hi)
	if e-s <= 1e-12 {
		return nil, false
	}
	out := *l
	out.StartT = (s - lo) / (hi - lo)
	out.EndT = (e - lo) / (hi - lo)
	if l.QXEnd != nil || l.QYEnd != nil {
		span := l.EndT - l.StartT
		atS := (s - l.StartT) / span
		atE := (e - l.StartT) / span
		qxs := l.QX + (l.EndQX()-l.QX)*atS
		qxe := l.QX + (l.EndQX()-l.QX)*atE
		qys := l.QY + (l.EndQY()-l.QY)*atS
		qye := l.QY + (l.EndQY()-l.QY)*atE
		out.QX, out.QY = qxs, qys
		out.QXEnd, out.QYEnd = &qxe, &qye
	}
	return &out, true
}

func beamAngle(n1, n2 *Node) float64 {
	return math.Atan2(n2.Y-n1.Y, n2.X-n1.X)
}
