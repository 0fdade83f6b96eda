package model

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/geom"
	"github.com/chazu/gusset/pkg/mesher"
)

// nodeLookup is a spatial hash over existing nodes at the coincidence
// tolerance, used to re-bind mesh points to nodes already in the store.
type nodeLookup struct {
	cells map[[2]int64][]NodeID
}

func newNodeLookup(m *Model) *nodeLookup {
	l := &nodeLookup{cells: make(map[[2]int64][]NodeID)}
	for id, n := range m.Nodes {
		k := lookupCell(n.Pos())
		l.cells[k] = append(l.cells[k], id)
	}
	return l
}

func lookupCell(p orb.Point) [2]int64 {
	return [2]int64{
		int64(math.Floor(p[0] / geom.CoincideTol)),
		int64(math.Floor(p[1] / geom.CoincideTol)),
	}
}

// find returns a node within the coincidence tolerance of p.
func (l *nodeLookup) find(m *Model, p orb.Point) (NodeID, bool) {
	c := lookupCell(p)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, id := range l.cells[[2]int64{c[0] + dx, c[1] + dy}] {
				n, ok := m.Nodes[id]
				if ok && geom.Coincident(n.Pos(), p) {
					return id, true
				}
			}
		}
	}
	return 0, false
}

// ApplyMesh replaces a region's mesh realization with a generated result.
// Mesh points coincident with existing nodes re-bind to them, so beams,
// supports, and loads attached at plate boundaries survive a remesh.
// Previous mesh nodes that nothing references anymore are deleted, except
// nodes carrying a support or load, which are kept for an explicit sweep.
func (m *Model) ApplyMesh(regionID RegionID, res *mesher.Result) error {
	r, err := m.Region(regionID)
	if err != nil {
		return err
	}

	oldNodes := make(map[NodeID]bool, len(r.NodeIDs))
	for _, nid := range r.NodeIDs {
		oldNodes[nid] = true
	}

	// Bind every mesh point to a node, reusing coincident ones.
	lookup := newNodeLookup(m)
	nodeFor := make([]NodeID, len(res.Points))
	reused := make(map[NodeID]bool)
	for i, p := range res.Points {
		// A node can back at most one mesh point per apply.
		if id, ok := lookup.find(m, p); ok && !reused[id] {
			n := m.Nodes[id]
			n.X, n.Y = p[0], p[1]
			nodeFor[i] = id
			reused[id] = true
			continue
		}
		m.nextNode++
		n := &Node{ID: NodeID(m.nextNode), X: p[0], Y: p[1]}
		m.Nodes[n.ID] = n
		nodeFor[i] = n.ID
	}

	// Old realization out.
	for _, sid := range r.ElementIDs {
		delete(m.Surfaces, sid)
	}
	for eid, e := range m.Edges {
		if e.RegionID == regionID {
			delete(m.Edges, eid)
		}
	}

	// New elements in.
	r.ElementIDs = r.ElementIDs[:0]
	for _, t := range res.Tris {
		m.nextSurface++
		s := &SurfaceElement{
			ID:         SurfaceID(m.nextSurface),
			Nodes:      []NodeID{nodeFor[t[0]], nodeFor[t[1]], nodeFor[t[2]]},
			MaterialID: r.MaterialID,
			Thickness:  r.Thickness,
			RegionID:   regionID,
		}
		m.Surfaces[s.ID] = s
		r.ElementIDs = append(r.ElementIDs, s.ID)
	}
	for _, q := range res.Quads {
		m.nextSurface++
		s := &SurfaceElement{
			ID:         SurfaceID(m.nextSurface),
			Nodes:      []NodeID{nodeFor[q[0]], nodeFor[q[1]], nodeFor[q[2]], nodeFor[q[3]]},
			MaterialID: r.MaterialID,
			Thickness:  r.Thickness,
			RegionID:   regionID,
		}
		m.Surfaces[s.ID] = s
		r.ElementIDs = append(r.ElementIDs, s.ID)
	}

	// New edges in, one per contour segment.
	r.EdgeIDs = r.EdgeIDs[:0]
	boundary := make(map[NodeID]bool)
	var boundaryOrder []NodeID
	for _, ch := range res.Chains {
		m.nextEdge++
		e := &Edge{
			ID:               EdgeID(m.nextEdge),
			RegionID:         regionID,
			Start:            ch.Start,
			End:              ch.End,
			PolygonEdgeIndex: ch.SegmentIndex,
		}
		for _, idx := range ch.Points {
			nid := nodeFor[idx]
			e.Chain = append(e.Chain, nid)
			if !boundary[nid] {
				boundary[nid] = true
				boundaryOrder = append(boundaryOrder, nid)
			}
		}
		m.Edges[e.ID] = e
		r.EdgeIDs = append(r.EdgeIDs, e.ID)
	}

	// Region node roster.
	r.NodeIDs = r.NodeIDs[:0]
	seen := make(map[NodeID]bool, len(nodeFor))
	for _, nid := range nodeFor {
		if !seen[nid] {
			seen[nid] = true
			r.NodeIDs = append(r.NodeIDs, nid)
		}
	}
	r.BoundaryNodeIDs = boundaryOrder

	// Stale nodes from the previous realization: gone unless something
	// still needs them.
	keep := m.protectedNodes()
	for nid := range oldNodes {
		if seen[nid] || reused[nid] || keep[nid] {
			continue
		}
		delete(m.Nodes, nid)
	}

	m.bump()
	return nil
}

// protectedNodes returns nodes that must survive a mesh replacement:
// referenced by beams, sub-nodes, surfaces or regions outside this remesh,
// or carrying supports or loads.
func (m *Model) protectedNodes() map[NodeID]bool {
	keep := make(map[NodeID]bool)
	for _, b := range m.Beams {
		keep[b.N1] = true
		keep[b.N2] = true
	}
	for _, sn := range m.SubNodes {
		keep[sn.NodeID] = true
		keep[sn.BeamStart] = true
		keep[sn.BeamEnd] = true
	}
	for _, s := range m.Surfaces {
		for _, nid := range s.Nodes {
			keep[nid] = true
		}
	}
	for _, r := range m.Regions {
		for _, nid := range r.NodeIDs {
			keep[nid] = true
		}
	}
	for _, n := range m.Nodes {
		if n.Support.Any() || n.Load != (PointLoad{}) {
			keep[n.ID] = true
		}
	}
	for _, lc := range m.Cases {
		for _, pl := range lc.Points {
			keep[pl.NodeID] = true
		}
	}
	return keep
}
