package session

import (
	"sort"

	"github.com/chazu/gusset/pkg/mesher"
	"github.com/chazu/gusset/pkg/model"
)

// applyWithContinuity installs a fresh mesh for a region and carries
// edge-bound distributed loads across the edge identity change. Boundary
// edges are matched by their position on the region contour: a load whose
// old edge covered polygon segment k moves to the new edge covering
// segment k. Loads whose segment no longer exists after a contour change
// keep their stale edge reference and are reported as orphans so a caller
// can surface them; they are never silently dropped or guessed onto a
// different segment.
//
// Caller holds s.mu.
func (s *Session) applyWithContinuity(regionID model.RegionID, res *mesher.Result) ([]model.LoadID, error) {
	oldSegment := make(map[model.EdgeID]int)
	for _, e := range s.model.EdgesOfRegion(regionID) {
		oldSegment[e.ID] = e.PolygonEdgeIndex
	}

	if err := s.model.ApplyMesh(regionID, res); err != nil {
		return nil, err
	}

	newEdge := make(map[int]model.EdgeID)
	for _, e := range s.model.EdgesOfRegion(regionID) {
		newEdge[e.PolygonEdgeIndex] = e.ID
	}

	var orphans []model.LoadID
	for _, lc := range s.model.Cases {
		for _, dl := range lc.Distributed {
			if dl.EdgeID.IsZero() {
				continue
			}
			seg, ok := oldSegment[dl.EdgeID]
			if !ok {
				continue // belongs to another region
			}
			if id, ok := newEdge[seg]; ok {
				dl.EdgeID = id
			} else {
				orphans = append(orphans, dl.ID)
			}
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	return orphans, nil
}
