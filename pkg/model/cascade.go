package model

// cascade computes the full closure of a removal before touching the model,
// then applies the whole set at once. Nothing is deleted until the closure
// is complete, so a cascade either happens entirely or not at all.
type cascade struct {
	m        *Model
	nodes    map[NodeID]bool
	beams    map[BeamID]bool
	surfaces map[SurfaceID]bool
	regions  map[RegionID]bool
	subNodes map[SubNodeID]bool
}

func newCascade(m *Model) *cascade {
	return &cascade{
		m:        m,
		nodes:    make(map[NodeID]bool),
		beams:    make(map[BeamID]bool),
		surfaces: make(map[SurfaceID]bool),
		regions:  make(map[RegionID]bool),
		subNodes: make(map[SubNodeID]bool),
	}
}

func (c *cascade) node(id NodeID) {
	if c.nodes[id] {
		return
	}
	c.nodes[id] = true
	for _, b := range c.m.Beams {
		if b.N1 == id || b.N2 == id {
			c.beam(b.ID)
		}
	}
	for _, s := range c.m.Surfaces {
		for _, nid := range s.Nodes {
			if nid == id {
				c.surface(s.ID)
				break
			}
		}
	}
	for _, sn := range c.m.SubNodes {
		if sn.NodeID == id {
			c.subNodes[sn.ID] = true
		}
	}
}

func (c *cascade) beam(id BeamID) {
	if c.beams[id] {
		return
	}
	c.beams[id] = true
	for _, sn := range c.m.SubNodes {
		if sn.Beam1 == id || sn.Beam2 == id {
			c.subNodes[sn.ID] = true
		}
	}
}

func (c *cascade) surface(id SurfaceID) {
	if c.surfaces[id] {
		return
	}
	c.surfaces[id] = true
}

func (c *cascade) region(id RegionID) {
	if c.regions[id] {
		return
	}
	c.regions[id] = true
	r := c.m.Regions[id]
	if r == nil {
		return
	}
	for _, sid := range r.ElementIDs {
		c.surface(sid)
	}
}

// emptiedRegions promotes regions whose every element is marked to full
// removal, repeating until stable.
func (c *cascade) emptiedRegions() {
	for {
		grew := false
		for rid, r := range c.m.Regions {
			if c.regions[rid] || len(r.ElementIDs) == 0 {
				continue
			}
			all := true
			for _, sid := range r.ElementIDs {
				if !c.surfaces[sid] {
					all = false
					break
				}
			}
			if all {
				c.region(rid)
				grew = true
			}
		}
		if !grew {
			break
		}
	}
}

func (c *cascade) apply() {
	m := c.m
	c.emptiedRegions()

	// Edges owned by removed regions go with them.
	removedEdges := make(map[EdgeID]bool)
	for eid, e := range m.Edges {
		if c.regions[e.RegionID] {
			removedEdges[eid] = true
		}
	}

	// Mesh-only nodes of removed regions are swept too, unless something
	// that survives the cascade still references them. The census counts
	// only survivors so the decision matches the post-apply state.
	removedNodes := make(map[NodeID]bool, len(c.nodes))
	for nid := range c.nodes {
		removedNodes[nid] = true
	}
	referenced := make(map[NodeID]bool)
	for bid, b := range m.Beams {
		if !c.beams[bid] {
			referenced[b.N1] = true
			referenced[b.N2] = true
		}
	}
	for sid, s := range m.Surfaces {
		if !c.surfaces[sid] {
			for _, nid := range s.Nodes {
				referenced[nid] = true
			}
		}
	}
	for snid, sn := range m.SubNodes {
		if !c.subNodes[snid] {
			referenced[sn.NodeID] = true
			referenced[sn.BeamStart] = true
			referenced[sn.BeamEnd] = true
		}
	}
	for rid, r := range m.Regions {
		if !c.regions[rid] {
			for _, nid := range r.NodeIDs {
				referenced[nid] = true
			}
		}
	}
	for rid := range c.regions {
		r := m.Regions[rid]
		if r == nil {
			continue
		}
		for _, nid := range r.NodeIDs {
			if !referenced[nid] {
				removedNodes[nid] = true
			}
		}
	}

	for _, lc := range m.Cases {
		lc.Distributed = filterDistributed(lc.Distributed, func(l *DistributedLoad) bool {
			if !l.BeamID.IsZero() && c.beams[l.BeamID] {
				return false
			}
			if !l.EdgeID.IsZero() && removedEdges[l.EdgeID] {
				return false
			}
			return true
		})
		lc.Points = filterPoints(lc.Points, func(l *CasePointLoad) bool {
			return !removedNodes[l.NodeID]
		})
		lc.Thermal = filterThermal(lc.Thermal, func(l *ThermalLoad) bool {
			if !l.BeamID.IsZero() && c.beams[l.BeamID] {
				return false
			}
			if !l.SurfaceID.IsZero() && c.surfaces[l.SurfaceID] {
				return false
			}
			return true
		})
	}

	for sid := range c.surfaces {
		delete(m.Surfaces, sid)
	}
	for eid := range removedEdges {
		delete(m.Edges, eid)
	}
	for rid := range c.regions {
		delete(m.Regions, rid)
	}
	for bid := range c.beams {
		delete(m.Beams, bid)
	}
	for snid := range c.subNodes {
		delete(m.SubNodes, snid)
	}
	for nid := range removedNodes {
		delete(m.Nodes, nid)
	}

	// Surviving regions shed references to removed entities.
	for _, r := range m.Regions {
		r.ElementIDs = filterSurfaceIDs(r.ElementIDs, func(sid SurfaceID) bool {
			return !c.surfaces[sid]
		})
		r.NodeIDs = filterNodeIDs(r.NodeIDs, func(nid NodeID) bool {
			return !removedNodes[nid]
		})
		r.BoundaryNodeIDs = filterNodeIDs(r.BoundaryNodeIDs, func(nid NodeID) bool {
			return !removedNodes[nid]
		})
	}
}

func filterDistributed(in []*DistributedLoad, keep func(*DistributedLoad) bool) []*DistributedLoad {
	out := in[:0]
	for _, l := range in {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

func filterPoints(in []*CasePointLoad, keep func(*CasePointLoad) bool) []*CasePointLoad {
	out := in[:0]
	for _, l := range in {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

func filterThermal(in []*ThermalLoad, keep func(*ThermalLoad) bool) []*ThermalLoad {
	out := in[:0]
	for _, l := range in {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

func filterSurfaceIDs(in []SurfaceID, keep func(SurfaceID) bool) []SurfaceID {
	out := in[:0]
	for _, id := range in {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

func filterNodeIDs(in []NodeID, keep func(NodeID) bool) []NodeID {
	out := in[:0]
	for _, id := range in {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}
