package model

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/geom"
)

// Model is the single source of truth for the structural graph. All entity
// collections live behind this mutation API; no other component mutates
// entities directly. The model itself is not synchronized; one logical
// owner (the editor session) serializes access.
type Model struct {
	Nodes    map[NodeID]*Node
	Beams    map[BeamID]*BeamElement
	Surfaces map[SurfaceID]*SurfaceElement
	Regions  map[RegionID]*PlateRegion
	Edges    map[EdgeID]*Edge
	SubNodes map[SubNodeID]*SubNode
	Cases    map[LoadCaseID]*LoadCase

	// meshVersion increments on every topology-changing call so observers
	// can invalidate caches.
	meshVersion uint64

	nextNode    int64
	nextBeam    int64
	nextSurface int64
	nextRegion  int64
	nextEdge    int64
	nextSubNode int64
	nextCase    int64
	nextLoad    int64

	defaultCase LoadCaseID
}

// New creates an empty model with a default permanent load case.
func New() *Model {
	m := &Model{
		Nodes:    make(map[NodeID]*Node),
		Beams:    make(map[BeamID]*BeamElement),
		Surfaces: make(map[SurfaceID]*SurfaceElement),
		Regions:  make(map[RegionID]*PlateRegion),
		Edges:    make(map[EdgeID]*Edge),
		SubNodes: make(map[SubNodeID]*SubNode),
		Cases:    make(map[LoadCaseID]*LoadCase),
	}
	lc, _ := m.AddLoadCase("Permanent", CategoryPermanent)
	m.defaultCase = lc.ID
	return m
}

// MeshVersion returns the current mutation counter.
func (m *Model) MeshVersion() uint64 {
	return m.meshVersion
}

func (m *Model) bump() {
	m.meshVersion++
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

// AddNode creates a node at (x, y) and returns it.
func (m *Model) AddNode(x, y float64) *Node {
	m.nextNode++
	n := &Node{ID: NodeID(m.nextNode), X: x, Y: y}
	m.Nodes[n.ID] = n
	m.bump()
	return n
}

// Node returns the node with the given id.
func (m *Model) Node(id NodeID) (*Node, error) {
	n, ok := m.Nodes[id]
	if !ok {
		return nil, danglingNode(id)
	}
	return n, nil
}

// UpdateNodePosition moves a node and re-projects any sub-nodes bound to
// beams that end at it, so bound nodes stay on their beam axes.
func (m *Model) UpdateNodePosition(id NodeID, x, y float64) error {
	n, err := m.Node(id)
	if err != nil {
		return err
	}
	n.X, n.Y = x, y
	for _, sn := range m.SubNodes {
		if sn.BeamStart == id || sn.BeamEnd == id {
			m.reprojectSubNode(sn)
		}
	}
	m.bump()
	return nil
}

// SetSupport replaces the support conditions at a node.
func (m *Model) SetSupport(id NodeID, s Support) error {
	n, err := m.Node(id)
	if err != nil {
		return err
	}
	n.Support = s
	m.bump()
	return nil
}

// SetPointLoad replaces the case-independent nodal load.
func (m *Model) SetPointLoad(id NodeID, l PointLoad) error {
	n, err := m.Node(id)
	if err != nil {
		return err
	}
	n.Load = l
	m.bump()
	return nil
}

// RemoveNode removes a node, cascading to every beam and surface element
// that references it, and to any plate region left without elements. The
// cascade is atomic: the full closure is computed first, then applied.
func (m *Model) RemoveNode(id NodeID) error {
	if _, ok := m.Nodes[id]; !ok {
		return danglingNode(id)
	}
	c := newCascade(m)
	c.node(id)
	c.apply()
	m.bump()
	return nil
}

// RemoveOrphanNodes sweeps nodes referenced by no beam, surface element,
// sub-node binding, or region node list, and returns the removed ids.
func (m *Model) RemoveOrphanNodes() []NodeID {
	referenced := make(map[NodeID]bool)
	for _, b := range m.Beams {
		referenced[b.N1] = true
		referenced[b.N2] = true
	}
	for _, s := range m.Surfaces {
		for _, nid := range s.Nodes {
			referenced[nid] = true
		}
	}
	for _, sn := range m.SubNodes {
		referenced[sn.NodeID] = true
		referenced[sn.BeamStart] = true
		referenced[sn.BeamEnd] = true
	}
	for _, r := range m.Regions {
		for _, nid := range r.NodeIDs {
			referenced[nid] = true
		}
	}

	var removed []NodeID
	for id := range m.Nodes {
		if !referenced[id] {
			removed = append(removed, id)
			delete(m.Nodes, id)
		}
	}
	if len(removed) > 0 {
		m.bump()
	}
	return removed
}

// ---------------------------------------------------------------------------
// Beams
// ---------------------------------------------------------------------------

// AddBeam creates a beam element between two existing nodes. Both nodes
// must be live, distinct, and non-coincident.
func (m *Model) AddBeam(n1, n2 NodeID, materialID string, section Section) (*BeamElement, error) {
	a, err := m.Node(n1)
	if err != nil {
		return nil, err
	}
	b, err := m.Node(n2)
	if err != nil {
		return nil, err
	}
	if n1 == n2 {
		return nil, &ContourError{Findings: []ValidationError{{
			Message:  fmt.Sprintf("beam endpoints are the same node %d", n1),
			Severity: SeverityError,
		}}}
	}
	if geom.Coincident(a.Pos(), b.Pos()) {
		return nil, &ContourError{Findings: []ValidationError{{
			Message:  "beam has zero length: endpoint nodes are coincident",
			Severity: SeverityError,
		}}}
	}

	m.nextBeam++
	be := &BeamElement{
		ID:         BeamID(m.nextBeam),
		N1:         n1,
		N2:         n2,
		MaterialID: materialID,
		Section:    section,
	}
	m.Beams[be.ID] = be
	m.bump()
	return be, nil
}

// Beam returns the beam with the given id.
func (m *Model) Beam(id BeamID) (*BeamElement, error) {
	b, ok := m.Beams[id]
	if !ok {
		return nil, danglingBeam(id)
	}
	return b, nil
}

// SetBeamSection replaces a beam's section.
func (m *Model) SetBeamSection(id BeamID, s Section) error {
	b, err := m.Beam(id)
	if err != nil {
		return err
	}
	b.Section = s
	m.bump()
	return nil
}

// SetBeamConns sets the per-end connection types.
func (m *Model) SetBeamConns(id BeamID, start, end ConnType) error {
	b, err := m.Beam(id)
	if err != nil {
		return err
	}
	b.StartConn = start
	b.EndConn = end
	m.bump()
	return nil
}

// RemoveBeam removes a beam, its distributed and thermal loads, and any
// sub-node record one of whose halves it is.
func (m *Model) RemoveBeam(id BeamID) error {
	if _, ok := m.Beams[id]; !ok {
		return danglingBeam(id)
	}
	c := newCascade(m)
	c.beam(id)
	c.apply()
	m.bump()
	return nil
}

// BeamLength returns the derived length of a beam.
func (m *Model) BeamLength(id BeamID) (float64, error) {
	b, err := m.Beam(id)
	if err != nil {
		return 0, err
	}
	n1, n2 := m.Nodes[b.N1], m.Nodes[b.N2]
	return geom.Dist(n1.Pos(), n2.Pos()), nil
}

// BeamAngle returns the derived axis angle of a beam in radians.
func (m *Model) BeamAngle(id BeamID) (float64, error) {
	b, err := m.Beam(id)
	if err != nil {
		return 0, err
	}
	n1, n2 := m.Nodes[b.N1], m.Nodes[b.N2]
	return beamAngle(n1, n2), nil
}

// ---------------------------------------------------------------------------
// Surface elements
// ---------------------------------------------------------------------------

// AddSurface creates a free-standing surface element from 3 or 4 live,
// distinct nodes.
func (m *Model) AddSurface(nodes []NodeID, materialID string, thickness float64) (*SurfaceElement, error) {
	if len(nodes) < 3 || len(nodes) > 4 {
		return nil, &ContourError{Findings: []ValidationError{{
			Message:  fmt.Sprintf("surface element needs 3 or 4 nodes, got %d", len(nodes)),
			Severity: SeverityError,
		}}}
	}
	seen := make(map[NodeID]bool, len(nodes))
	for _, nid := range nodes {
		if _, err := m.Node(nid); err != nil {
			return nil, err
		}
		if seen[nid] {
			return nil, &ContourError{Findings: []ValidationError{{
				Message:  fmt.Sprintf("surface element repeats node %d", nid),
				Severity: SeverityError,
			}}}
		}
		seen[nid] = true
	}

	m.nextSurface++
	s := &SurfaceElement{
		ID:         SurfaceID(m.nextSurface),
		Nodes:      append([]NodeID(nil), nodes...),
		MaterialID: materialID,
		Thickness:  thickness,
	}
	m.Surfaces[s.ID] = s
	m.bump()
	return s, nil
}

// Surface returns the surface element with the given id.
func (m *Model) Surface(id SurfaceID) (*SurfaceElement, error) {
	s, ok := m.Surfaces[id]
	if !ok {
		return nil, danglingSurface(id)
	}
	return s, nil
}

// RemoveSurface removes one surface element; a region left empty is removed
// with it.
func (m *Model) RemoveSurface(id SurfaceID) error {
	if _, ok := m.Surfaces[id]; !ok {
		return danglingSurface(id)
	}
	c := newCascade(m)
	c.surface(id)
	c.apply()
	m.bump()
	return nil
}

// ---------------------------------------------------------------------------
// Plate regions
// ---------------------------------------------------------------------------

// AddRegion creates an unmeshed plate region after validating its contour.
// The caller remeshes it to realize elements, nodes, and edges.
func (m *Model) AddRegion(kind RegionKind, outline orb.Ring, voids []orb.Ring, meshSize, thickness float64, materialID string) (*PlateRegion, error) {
	if err := CheckContour(outline, voids, 0); err != nil {
		return nil, err
	}
	if meshSize <= 0 {
		return nil, &ContourError{Findings: []ValidationError{{
			Message:  fmt.Sprintf("mesh size must be positive, got %v", meshSize),
			Severity: SeverityError,
		}}}
	}

	m.nextRegion++
	r := &PlateRegion{
		ID:          RegionID(m.nextRegion),
		Kind:        kind,
		Outline:     cloneRing(outline),
		Voids:       cloneRings(voids),
		MeshSize:    meshSize,
		Thickness:   thickness,
		MaterialID:  materialID,
		windingSign: signOf(geom.SignedArea(outline)),
	}
	m.Regions[r.ID] = r
	m.bump()
	return r, nil
}

// Region returns the region with the given id.
func (m *Model) Region(id RegionID) (*PlateRegion, error) {
	r, ok := m.Regions[id]
	if !ok {
		return nil, danglingRegion(id)
	}
	return r, nil
}

// UpdateRegionContour replaces a region's outline and voids. The new
// contour must validate and keep the outline's original winding sign. The
// existing mesh is left in place; the caller is expected to remesh.
func (m *Model) UpdateRegionContour(id RegionID, outline orb.Ring, voids []orb.Ring) error {
	r, err := m.Region(id)
	if err != nil {
		return err
	}
	if err := CheckContour(outline, voids, r.windingSign); err != nil {
		return err
	}
	r.Outline = cloneRing(outline)
	r.Voids = cloneRings(voids)
	m.bump()
	return nil
}

// SetRegionMeshSize updates the target element edge length.
func (m *Model) SetRegionMeshSize(id RegionID, size float64) error {
	r, err := m.Region(id)
	if err != nil {
		return err
	}
	if size <= 0 {
		return &ContourError{Findings: []ValidationError{{
			Message:  fmt.Sprintf("mesh size must be positive, got %v", size),
			Severity: SeverityError,
		}}}
	}
	r.MeshSize = size
	m.bump()
	return nil
}

// RemoveRegion removes a region with its elements, edges, mesh-only nodes,
// and the loads attached to any of them.
func (m *Model) RemoveRegion(id RegionID) error {
	if _, ok := m.Regions[id]; !ok {
		return danglingRegion(id)
	}
	c := newCascade(m)
	c.region(id)
	c.apply()
	m.bump()
	return nil
}

// ---------------------------------------------------------------------------
// Adjacency queries
// ---------------------------------------------------------------------------

// BeamsAtNode returns every beam with an endpoint at the node.
func (m *Model) BeamsAtNode(id NodeID) []*BeamElement {
	var out []*BeamElement
	for _, b := range m.Beams {
		if b.N1 == id || b.N2 == id {
			out = append(out, b)
		}
	}
	return out
}

// SurfacesAtNode returns every surface element that uses the node.
func (m *Model) SurfacesAtNode(id NodeID) []*SurfaceElement {
	var out []*SurfaceElement
	for _, s := range m.Surfaces {
		for _, nid := range s.Nodes {
			if nid == id {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// RegionOfSurface returns the plate region owning the element, if any.
func (m *Model) RegionOfSurface(id SurfaceID) (*PlateRegion, bool) {
	s, ok := m.Surfaces[id]
	if !ok || s.RegionID.IsZero() {
		return nil, false
	}
	r, ok := m.Regions[s.RegionID]
	return r, ok
}

// EdgesOfRegion returns the region's boundary edges in the current mesh.
func (m *Model) EdgesOfRegion(id RegionID) []*Edge {
	r, ok := m.Regions[id]
	if !ok {
		return nil
	}
	out := make([]*Edge, 0, len(r.EdgeIDs))
	for _, eid := range r.EdgeIDs {
		if e, ok := m.Edges[eid]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Edge returns the edge with the given id.
func (m *Model) Edge(id EdgeID) (*Edge, bool) {
	e, ok := m.Edges[id]
	return e, ok
}

// ---------------------------------------------------------------------------
// Load cases
// ---------------------------------------------------------------------------

// AddLoadCase creates a load case. Unknown categories fall back to other.
func (m *Model) AddLoadCase(name string, category LoadCategory) (*LoadCase, error) {
	if !ValidCategories[category] {
		category = CategoryOther
	}
	m.nextCase++
	lc := &LoadCase{ID: LoadCaseID(m.nextCase), Name: name, Category: category}
	m.Cases[lc.ID] = lc
	m.bump()
	return lc, nil
}

// LoadCaseByID returns the load case with the given id.
func (m *Model) LoadCaseByID(id LoadCaseID) (*LoadCase, error) {
	lc, ok := m.Cases[id]
	if !ok {
		return nil, danglingCase(id)
	}
	return lc, nil
}

// DefaultCase returns the built-in permanent load case.
func (m *Model) DefaultCase() *LoadCase {
	return m.Cases[m.defaultCase]
}

// RemoveLoadCase removes a case and everything in it. The default case
// cannot be removed.
func (m *Model) RemoveLoadCase(id LoadCaseID) error {
	if _, ok := m.Cases[id]; !ok {
		return danglingCase(id)
	}
	if id == m.defaultCase {
		return fmt.Errorf("cannot remove the default load case")
	}
	delete(m.Cases, id)
	m.bump()
	return nil
}

// AddDistributedLoad attaches a distributed load to a beam or an edge
// (exactly one) in the given case. StartT/EndT are clamped into [0, 1] and
// ordered.
func (m *Model) AddDistributedLoad(caseID LoadCaseID, l DistributedLoad) (*DistributedLoad, error) {
	lc, err := m.LoadCaseByID(caseID)
	if err != nil {
		return nil, err
	}
	if l.BeamID.IsZero() == l.EdgeID.IsZero() {
		return nil, fmt.Errorf("distributed load must target exactly one of a beam or an edge")
	}
	if !l.BeamID.IsZero() {
		if _, err := m.Beam(l.BeamID); err != nil {
			return nil, err
		}
	}
	if !l.EdgeID.IsZero() {
		if _, ok := m.Edges[l.EdgeID]; !ok {
			return nil, &DanglingReferenceError{Entity: "edge", ID: int64(l.EdgeID)}
		}
	}
	if l.CoordSystem == "" {
		l.CoordSystem = CoordLocal
	}
	if l.CoordSystem != CoordLocal && l.CoordSystem != CoordGlobal {
		return nil, fmt.Errorf("unknown coordinate system %q", l.CoordSystem)
	}
	l.StartT = clamp01(l.StartT)
	if l.EndT == 0 && l.StartT == 0 {
		l.EndT = 1
	}
	l.EndT = clamp01(l.EndT)
	if l.EndT < l.StartT {
		l.StartT, l.EndT = l.EndT, l.StartT
	}

	m.nextLoad++
	l.ID = LoadID(m.nextLoad)
	stored := l
	lc.Distributed = append(lc.Distributed, &stored)
	m.bump()
	return &stored, nil
}

// AddCasePointLoad attaches a nodal load to the given case.
func (m *Model) AddCasePointLoad(caseID LoadCaseID, nodeID NodeID, fx, fy, mz float64) (*CasePointLoad, error) {
	lc, err := m.LoadCaseByID(caseID)
	if err != nil {
		return nil, err
	}
	if _, err := m.Node(nodeID); err != nil {
		return nil, err
	}
	m.nextLoad++
	p := &CasePointLoad{ID: LoadID(m.nextLoad), NodeID: nodeID, FX: fx, FY: fy, MZ: mz}
	lc.Points = append(lc.Points, p)
	m.bump()
	return p, nil
}

// AddThermalLoad attaches a temperature change to a beam or surface element
// (exactly one) in the given case.
func (m *Model) AddThermalLoad(caseID LoadCaseID, l ThermalLoad) (*ThermalLoad, error) {
	lc, err := m.LoadCaseByID(caseID)
	if err != nil {
		return nil, err
	}
	if l.BeamID.IsZero() == l.SurfaceID.IsZero() {
		return nil, fmt.Errorf("thermal load must target exactly one of a beam or a surface element")
	}
	if !l.BeamID.IsZero() {
		if _, err := m.Beam(l.BeamID); err != nil {
			return nil, err
		}
	}
	if !l.SurfaceID.IsZero() {
		if _, err := m.Surface(l.SurfaceID); err != nil {
			return nil, err
		}
	}
	m.nextLoad++
	l.ID = LoadID(m.nextLoad)
	stored := l
	lc.Thermal = append(lc.Thermal, &stored)
	m.bump()
	return &stored, nil
}

// RemoveLoad deletes one load (distributed, point, or thermal) from a case.
func (m *Model) RemoveLoad(caseID LoadCaseID, loadID LoadID) error {
	lc, err := m.LoadCaseByID(caseID)
	if err != nil {
		return err
	}
	for i, l := range lc.Distributed {
		if l.ID == loadID {
			lc.Distributed = append(lc.Distributed[:i], lc.Distributed[i+1:]...)
			m.bump()
			return nil
		}
	}
	for i, l := range lc.Points {
		if l.ID == loadID {
			lc.Points = append(lc.Points[:i], lc.Points[i+1:]...)
			m.bump()
			return nil
		}
	}
	for i, l := range lc.Thermal {
		if l.ID == loadID {
			lc.Thermal = append(lc.Thermal[:i], lc.Thermal[i+1:]...)
			m.bump()
			return nil
		}
	}
	return &DanglingReferenceError{Entity: "load", ID: int64(loadID)}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func cloneRing(r orb.Ring) orb.Ring {
	return append(orb.Ring(nil), r...)
}

func cloneRings(rs []orb.Ring) []orb.Ring {
	if rs == nil {
		return nil
	}
	out := make([]orb.Ring, len(rs))
	for i, r := range rs {
		out[i] = cloneRing(r)
	}
	return out
}
