package model

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/mesher"
)

func TestRemoveNodeCascadesToBeamAndLoads(t *testing.T) {
	m := New()
	n1 := m.AddNode(0, 0)
	n2 := m.AddNode(4, 0)
	n3 := m.AddNode(8, 0)
	b12, _ := m.AddBeam(n1.ID, n2.ID, "S235", testSection())
	b23, _ := m.AddBeam(n2.ID, n3.ID, "S235", testSection())
	caseID := m.DefaultCase().ID
	if _, err := m.AddDistributedLoad(caseID, DistributedLoad{BeamID: b12.ID, QY: -10e3}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddCasePointLoad(caseID, n2.ID, 0, -5e3, 0); err != nil {
		t.Fatal(err)
	}

	if err := m.RemoveNode(n2.ID); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}

	if _, ok := m.Beams[b12.ID]; ok {
		t.Error("beam 1-2 survived its endpoint")
	}
	if _, ok := m.Beams[b23.ID]; ok {
		t.Error("beam 2-3 survived its endpoint")
	}
	if _, ok := m.Nodes[n1.ID]; !ok {
		t.Error("unrelated node removed")
	}
	if _, ok := m.Nodes[n3.ID]; !ok {
		t.Error("unrelated node removed")
	}
	lc := m.DefaultCase()
	if len(lc.Distributed) != 0 {
		t.Error("distributed load on removed beam survived")
	}
	if len(lc.Points) != 0 {
		t.Error("point load on removed node survived")
	}
}

func TestRemoveBeamKeepsNodes(t *testing.T) {
	m := New()
	n1 := m.AddNode(0, 0)
	n2 := m.AddNode(4, 0)
	b, _ := m.AddBeam(n1.ID, n2.ID, "S235", testSection())
	caseID := m.DefaultCase().ID
	if _, err := m.AddDistributedLoad(caseID, DistributedLoad{BeamID: b.ID, QY: -1e3}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddThermalLoad(caseID, ThermalLoad{BeamID: b.ID, DeltaT: 30}); err != nil {
		t.Fatal(err)
	}

	if err := m.RemoveBeam(b.ID); err != nil {
		t.Fatalf("RemoveBeam: %v", err)
	}
	if len(m.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(m.Nodes))
	}
	lc := m.DefaultCase()
	if len(lc.Distributed) != 0 || len(lc.Thermal) != 0 {
		t.Error("beam loads survived the beam")
	}
}

func meshedRegion(t *testing.T, m *Model) *PlateRegion {
	t.Helper()
	outline := orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	r, err := m.AddRegion(RegionRectangular, outline, nil, 1.0, 0.2, "C25/30")
	if err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	res, err := mesher.GenerateGrid(r.Outline, r.Voids, r.MeshSize)
	if err != nil {
		t.Fatalf("GenerateGrid: %v", err)
	}
	if err := m.ApplyMesh(r.ID, res); err != nil {
		t.Fatalf("ApplyMesh: %v", err)
	}
	return r
}

func TestRemoveRegionCascades(t *testing.T) {
	m := New()
	r := meshedRegion(t, m)
	if len(r.ElementIDs) != 4 {
		t.Fatalf("elements = %d, want 4", len(r.ElementIDs))
	}
	caseID := m.DefaultCase().ID
	if _, err := m.AddDistributedLoad(caseID, DistributedLoad{EdgeID: r.EdgeIDs[0], QY: -2e3}); err != nil {
		t.Fatal(err)
	}

	if err := m.RemoveRegion(r.ID); err != nil {
		t.Fatalf("RemoveRegion: %v", err)
	}
	if len(m.Surfaces) != 0 {
		t.Errorf("surfaces = %d, want 0", len(m.Surfaces))
	}
	if len(m.Edges) != 0 {
		t.Errorf("edges = %d, want 0", len(m.Edges))
	}
	if len(m.Nodes) != 0 {
		t.Errorf("mesh nodes = %d, want 0", len(m.Nodes))
	}
	if len(m.DefaultCase().Distributed) != 0 {
		t.Error("edge load survived its region")
	}
}

func TestRemovingLastElementRemovesRegion(t *testing.T) {
	m := New()
	r := meshedRegion(t, m)
	ids := append([]SurfaceID(nil), r.ElementIDs...)
	for _, sid := range ids[:len(ids)-1] {
		if err := m.RemoveSurface(sid); err != nil {
			t.Fatalf("RemoveSurface: %v", err)
		}
		if _, ok := m.Regions[r.ID]; !ok {
			t.Fatal("region removed before its last element")
		}
	}
	if err := m.RemoveSurface(ids[len(ids)-1]); err != nil {
		t.Fatalf("RemoveSurface: %v", err)
	}
	if _, ok := m.Regions[r.ID]; ok {
		t.Error("empty region survived")
	}
	if len(m.Edges) != 0 {
		t.Error("edges survived the emptied region")
	}
}

func TestRemoveMeshNodeCanEmptyRegion(t *testing.T) {
	m := New()
	outline := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	r, err := m.AddRegion(RegionRectangular, outline, nil, 1.0, 0.2, "C25/30")
	if err != nil {
		t.Fatal(err)
	}
	res, err := mesher.GenerateGrid(r.Outline, nil, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ApplyMesh(r.ID, res); err != nil {
		t.Fatal(err)
	}
	if len(r.ElementIDs) != 1 || len(m.Nodes) != 4 {
		t.Fatalf("setup: %d elements, %d nodes, want 1 and 4", len(r.ElementIDs), len(m.Nodes))
	}

	if err := m.RemoveNode(r.NodeIDs[0]); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if len(m.Regions) != 0 {
		t.Error("region survived losing its only element")
	}
	if len(m.Nodes) != 0 {
		t.Errorf("nodes = %d, want 0 after the cascade", len(m.Nodes))
	}
}

func TestCascadePreservesOtherHalfAfterEndpointRemoval(t *testing.T) {
	m := New()
	n1 := m.AddNode(0, 0)
	n2 := m.AddNode(4, 0)
	b, _ := m.AddBeam(n1.ID, n2.ID, "S235", testSection())
	sn, err := m.SplitBeamAt(b.ID, 0.5)
	if err != nil {
		t.Fatalf("SplitBeamAt: %v", err)
	}

	if err := m.RemoveNode(n1.ID); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if _, ok := m.Beams[sn.Beam1]; ok {
		t.Error("half at the removed endpoint survived")
	}
	if _, ok := m.Beams[sn.Beam2]; !ok {
		t.Error("half away from the removed endpoint was cascaded")
	}
	if _, ok := m.SubNodes[sn.ID]; ok {
		t.Error("sub-node record survived losing a half")
	}
	if _, ok := m.Nodes[sn.NodeID]; !ok {
		t.Error("bound node should survive as a regular node")
	}
}
