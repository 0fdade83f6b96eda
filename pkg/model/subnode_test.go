package model

import (
	"math"
	"testing"
)

func splitFixture(t *testing.T) (*Model, *BeamElement) {
	t.Helper()
	m := New()
	n1 := m.AddNode(0, 0)
	n2 := m.AddNode(4, 0)
	b, err := m.AddBeam(n1.ID, n2.ID, "S355", testSection())
	if err != nil {
		t.Fatal(err)
	}
	return m, b
}

func TestSplitBeamAtQuarter(t *testing.T) {
	m, b := splitFixture(t)
	if err := m.SetBeamConns(b.ID, ConnHinge, ConnRigid); err != nil {
		t.Fatal(err)
	}

	sn, err := m.SplitBeamAt(b.ID, 0.25)
	if err != nil {
		t.Fatalf("SplitBeamAt: %v", err)
	}
	if _, ok := m.Beams[b.ID]; ok {
		t.Error("original beam still present")
	}
	bound := m.Nodes[sn.NodeID]
	if bound == nil {
		t.Fatal("bound node missing")
	}
	if bound.X != 1 || bound.Y != 0 {
		t.Errorf("bound node at (%f, %f), want (1, 0)", bound.X, bound.Y)
	}
	l1, _ := m.BeamLength(sn.Beam1)
	l2, _ := m.BeamLength(sn.Beam2)
	if l1 != 1 || l2 != 3 {
		t.Errorf("half lengths = %f, %f, want 1, 3", l1, l2)
	}
	b1 := m.Beams[sn.Beam1]
	b2 := m.Beams[sn.Beam2]
	if b1.StartConn != ConnHinge || b1.EndConn != ConnRigid {
		t.Error("first half lost the original start connection")
	}
	if b2.StartConn != ConnRigid || b2.EndConn != ConnRigid {
		t.Error("second half connections wrong")
	}
	if b1.MaterialID != "S355" || b2.Section.Profile != "IPE 200" {
		t.Error("halves lost section or material")
	}
}

func TestSplitClampsT(t *testing.T) {
	m, b := splitFixture(t)
	sn, err := m.SplitBeamAt(b.ID, 0.0001)
	if err != nil {
		t.Fatalf("SplitBeamAt: %v", err)
	}
	if sn.T != 0.01 {
		t.Errorf("t = %f, want 0.01", sn.T)
	}
	bound := m.Nodes[sn.NodeID]
	if math.Abs(bound.X-0.04) > 1e-12 {
		t.Errorf("bound x = %f, want 0.04", bound.X)
	}
}

func TestSplitRemoveRoundTrip(t *testing.T) {
	m, b := splitFixture(t)
	origN1, origN2 := b.N1, b.N2
	if err := m.SetBeamConns(b.ID, ConnRigid, ConnHinge); err != nil {
		t.Fatal(err)
	}

	sn, err := m.SplitBeamAt(b.ID, 0.25)
	if err != nil {
		t.Fatalf("SplitBeamAt: %v", err)
	}
	merged, err := m.RemoveSubNode(sn.ID)
	if err != nil {
		t.Fatalf("RemoveSubNode: %v", err)
	}

	if merged.N1 != origN1 || merged.N2 != origN2 {
		t.Errorf("merged endpoints = %d, %d, want %d, %d", merged.N1, merged.N2, origN1, origN2)
	}
	if got, _ := m.BeamLength(merged.ID); got != 4 {
		t.Errorf("merged length = %f, want 4", got)
	}
	if merged.StartConn != ConnRigid || merged.EndConn != ConnHinge {
		t.Error("merged beam lost the original connections")
	}
	if merged.Section != b.Section {
		t.Error("merged beam lost the section")
	}
	if len(m.SubNodes) != 0 {
		t.Error("sub-node record survived the merge")
	}
	if _, ok := m.Nodes[sn.NodeID]; ok {
		t.Error("bound node survived the merge")
	}
	if len(m.Beams) != 1 {
		t.Errorf("beams = %d, want 1", len(m.Beams))
	}
}

func TestSplitRetargetsUniformLoad(t *testing.T) {
	m, b := splitFixture(t)
	caseID := m.DefaultCase().ID
	if _, err := m.AddDistributedLoad(caseID, DistributedLoad{BeamID: b.ID, QY: -10e3}); err != nil {
		t.Fatal(err)
	}

	sn, err := m.SplitBeamAt(b.ID, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	lc := m.DefaultCase()
	if len(lc.Distributed) != 2 {
		t.Fatalf("loads = %d, want 2 after the split", len(lc.Distributed))
	}
	for _, l := range lc.Distributed {
		if l.BeamID != sn.Beam1 && l.BeamID != sn.Beam2 {
			t.Errorf("load targets beam %d, not a half", l.BeamID)
		}
		if l.StartT != 0 || l.EndT != 1 {
			t.Errorf("half load span = [%f, %f], want [0, 1]", l.StartT, l.EndT)
		}
		if l.QY != -10e3 {
			t.Errorf("half load qy = %f, want -10e3", l.QY)
		}
	}
}

func TestSplitKeepsPartialLoadInItsHalf(t *testing.T) {
	m, b := splitFixture(t)
	caseID := m.DefaultCase().ID
	if _, err := m.AddDistributedLoad(caseID, DistributedLoad{BeamID: b.ID, QY: -8e3, StartT: 0.5, EndT: 1}); err != nil {
		t.Fatal(err)
	}

	sn, err := m.SplitBeamAt(b.ID, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	lc := m.DefaultCase()
	if len(lc.Distributed) != 1 {
		t.Fatalf("loads = %d, want 1", len(lc.Distributed))
	}
	l := lc.Distributed[0]
	if l.BeamID != sn.Beam2 {
		t.Error("load should live on the second half")
	}
	if math.Abs(l.StartT-1.0/3) > 1e-12 || l.EndT != 1 {
		t.Errorf("span = [%f, %f], want [1/3, 1]", l.StartT, l.EndT)
	}
}

func TestSplitInterpolatesTrapezoidAtCut(t *testing.T) {
	m, b := splitFixture(t)
	caseID := m.DefaultCase().ID
	end := -12e3
	if _, err := m.AddDistributedLoad(caseID, DistributedLoad{BeamID: b.ID, QY: 0, QYEnd: &end}); err != nil {
		t.Fatal(err)
	}

	sn, err := m.SplitBeamAt(b.ID, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	lc := m.DefaultCase()
	if len(lc.Distributed) != 2 {
		t.Fatalf("loads = %d, want 2", len(lc.Distributed))
	}
	for _, l := range lc.Distributed {
		switch l.BeamID {
		case sn.Beam1:
			if l.QY != 0 || l.EndQY() != -6e3 {
				t.Errorf("first half ramp = %f..%f, want 0..-6e3", l.QY, l.EndQY())
			}
		case sn.Beam2:
			if l.QY != -6e3 || l.EndQY() != -12e3 {
				t.Errorf("second half ramp = %f..%f, want -6e3..-12e3", l.QY, l.EndQY())
			}
		default:
			t.Errorf("load on unexpected beam %d", l.BeamID)
		}
	}
}

func TestMergeRetargetsLoadsOntoMergedBeam(t *testing.T) {
	m, b := splitFixture(t)
	caseID := m.DefaultCase().ID
	if _, err := m.AddDistributedLoad(caseID, DistributedLoad{BeamID: b.ID, QY: -10e3}); err != nil {
		t.Fatal(err)
	}
	sn, err := m.SplitBeamAt(b.ID, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	merged, err := m.RemoveSubNode(sn.ID)
	if err != nil {
		t.Fatal(err)
	}

	lc := m.DefaultCase()
	if len(lc.Distributed) != 2 {
		t.Fatalf("loads = %d, want 2", len(lc.Distributed))
	}
	spans := make(map[float64]float64)
	for _, l := range lc.Distributed {
		if l.BeamID != merged.ID {
			t.Errorf("load still targets beam %d", l.BeamID)
		}
		if l.QY != -10e3 {
			t.Errorf("qy = %f, want -10e3", l.QY)
		}
		spans[l.StartT] = l.EndT
	}
	if spans[0] != 0.25 || spans[0.25] != 1 {
		t.Errorf("spans = %v, want contiguous [0,0.25] and [0.25,1]", spans)
	}
}

func TestMergeRefusesEntangledBoundNode(t *testing.T) {
	m, b := splitFixture(t)
	sn, err := m.SplitBeamAt(b.ID, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	hang := m.AddNode(2, 3)
	extra, err := m.AddBeam(sn.NodeID, hang.ID, "S235", testSection())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.RemoveSubNode(sn.ID); err == nil {
		t.Error("merge succeeded with a beam hanging off the bound node")
	}
	if err := m.RemoveBeam(extra.ID); err != nil {
		t.Fatal(err)
	}

	if err := m.SetSupport(sn.NodeID, Support{FixY: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.RemoveSubNode(sn.ID); err == nil {
		t.Error("merge succeeded with a support on the bound node")
	}
	if err := m.SetSupport(sn.NodeID, Support{}); err != nil {
		t.Fatal(err)
	}

	if _, err := m.AddCasePointLoad(m.DefaultCase().ID, sn.NodeID, 1e3, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.RemoveSubNode(sn.ID); err == nil {
		t.Error("merge succeeded with a point load on the bound node")
	}
}

func TestEndpointMoveReprojectsBoundNode(t *testing.T) {
	m, b := splitFixture(t)
	sn, err := m.SplitBeamAt(b.ID, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateNodePosition(sn.BeamEnd, 4, 4); err != nil {
		t.Fatalf("UpdateNodePosition: %v", err)
	}
	bound := m.Nodes[sn.NodeID]
	if bound.X != 2 || bound.Y != 2 {
		t.Errorf("bound node at (%f, %f), want (2, 2) back on the axis", bound.X, bound.Y)
	}
}
