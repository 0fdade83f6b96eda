// Package session owns interactive editing of one structural model: all
// topology mutations run synchronously under the session mutex, contour
// drags are debounced into at most one remesh per idle window, and every
// mesh application goes through the edge-load continuity protocol.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/geom"
	"github.com/chazu/gusset/pkg/mesher"
	"github.com/chazu/gusset/pkg/model"
	"github.com/chazu/gusset/pkg/solve"
)

// DefaultDebounce is the idle window separating pointer moves from the
// remesh they trigger.
const DefaultDebounce = 150 * time.Millisecond

// warpRadiusFactor scales a region's mesh size into the falloff radius for
// localized re-triangulation during drags.
const warpRadiusFactor = 2.0

// ErrSolveSuperseded reports that a newer solve started while this one was
// in flight; its result was discarded.
var ErrSolveSuperseded = errors.New("solve superseded by newer request")

// MeshEvent notifies observers that a region's mesh was replaced.
type MeshEvent struct {
	SessionID   string         `json:"sessionId"`
	RegionID    model.RegionID `json:"regionId"`
	MeshVersion uint64         `json:"meshVersion"`
	Orphans     []model.LoadID `json:"orphans,omitempty"`
}

// Options configure a session.
type Options struct {
	DebounceInterval time.Duration
	Logger           *log.Logger
	OnMesh           func(MeshEvent)
}

// contourEdit is the committed contour captured at BeginContourEdit so
// Cancel can restore it.
type contourEdit struct {
	regionID model.RegionID
	outline  orb.Ring
	voids    []orb.Ring
}

// Session is the single logical owner of one model. All methods are safe
// for concurrent use; mutations are serialized and run to completion, so
// two remeshes of the same region never interleave.
type Session struct {
	ID string

	mu         sync.Mutex
	model      *model.Model
	edit       *contourEdit
	lastMesh   map[model.RegionID]*mesher.Result
	generation uint64 // invalidates pending debounced remeshes
	solveGen   uint64 // supersedes in-flight solves

	debounced func(func())
	logger    *log.Logger
	onMesh    func(MeshEvent)
}

// New creates a session owning m, or a fresh model when m is nil.
func New(m *model.Model, opts Options) *Session {
	if m == nil {
		m = model.New()
	}
	if opts.DebounceInterval <= 0 {
		opts.DebounceInterval = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		ID:        uuid.NewString(),
		model:     m,
		lastMesh:  make(map[model.RegionID]*mesher.Result),
		debounced: debounce.New(opts.DebounceInterval),
		logger:    logger,
		onMesh:    opts.OnMesh,
	}
}

// Mutate runs fn against the model under the session lock.
func (s *Session) Mutate(fn func(*model.Model) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.model)
}

// Snapshot returns a deep copy of the model state.
func (s *Session) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Snapshot()
}

// MeshVersion returns the model's current mesh version.
func (s *Session) MeshVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.MeshVersion()
}

// Remesh regenerates the region's mesh synchronously and returns the ids
// of loads whose contour segment no longer exists. On generation failure
// the previous mesh is untouched.
func (s *Session) Remesh(regionID model.RegionID) ([]model.LoadID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remeshLocked(regionID)
}

func (s *Session) remeshLocked(regionID model.RegionID) ([]model.LoadID, error) {
	r, err := s.model.Region(regionID)
	if err != nil {
		return nil, err
	}
	res, err := s.generate(r)
	if err != nil {
		return nil, err
	}
	orphans, err := s.applyWithContinuity(regionID, res)
	if err != nil {
		return nil, err
	}
	s.lastMesh[regionID] = res
	if res.Fallback {
		s.logger.Warn("conforming mesh failed, structured grid stood in", "region", regionID)
	}
	s.logger.Debug("region remeshed",
		"region", regionID, "elements", res.ElementCount(), "orphans", len(orphans))
	s.notifyLocked(regionID, orphans)
	return orphans, nil
}

// generate picks the mesh path by region kind: rectangular regions go to
// the structured grid directly for exact element counts.
func (s *Session) generate(r *model.PlateRegion) (*mesher.Result, error) {
	if r.Kind == model.RegionRectangular {
		return mesher.GenerateGrid(r.Outline, r.Voids, r.MeshSize)
	}
	return mesher.Generate(r.Outline, r.Voids, r.MeshSize)
}

// BeginContourEdit snapshots the region's committed contour and starts an
// interactive edit. Only one edit can be active at a time.
func (s *Session) BeginContourEdit(regionID model.RegionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit != nil {
		return fmt.Errorf("contour edit already active on region %d", s.edit.regionID)
	}
	r, err := s.model.Region(regionID)
	if err != nil {
		return err
	}
	s.generation++
	s.edit = &contourEdit{
		regionID: regionID,
		outline:  append(orb.Ring(nil), r.Outline...),
		voids:    cloneRings(r.Voids),
	}
	return nil
}

// UpdateContour replaces the edited region's contour and schedules a
// debounced remesh. Invalid contours are rejected with the region
// untouched.
func (s *Session) UpdateContour(outline orb.Ring, voids []orb.Ring) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return errors.New("no contour edit active")
	}
	if err := s.model.UpdateRegionContour(s.edit.regionID, outline, voids); err != nil {
		return err
	}
	s.scheduleRemeshLocked(s.edit.regionID)
	return nil
}

// DragVertex moves the contour vertex at from to to. A boundary node
// coincident with the dragged vertex keeps its identity. When the move
// stays within the warp radius the existing mesh connectivity is reused;
// otherwise a full remesh is scheduled.
func (s *Session) DragVertex(from, to orb.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return errors.New("no contour edit active")
	}
	regionID := s.edit.regionID
	r, err := s.model.Region(regionID)
	if err != nil {
		return err
	}
	outline, voids, found := replaceVertex(r.Outline, r.Voids, from, to)
	if !found {
		return fmt.Errorf("no contour vertex within tolerance of (%v, %v)", from[0], from[1])
	}
	if err := s.model.UpdateRegionContour(regionID, outline, voids); err != nil {
		return err
	}
	if n := s.model.NodeAt(from[0], from[1], geom.CoincideTol); n != nil {
		if err := s.model.UpdateNodePosition(n.ID, to[0], to[1]); err != nil {
			return err
		}
	}

	if prev := s.lastMesh[regionID]; prev != nil {
		radius := warpRadiusFactor * r.MeshSize
		if warped, ok := mesher.Warp(prev, from, to, radius); ok {
			orphans, err := s.applyWithContinuity(regionID, warped)
			if err == nil {
				s.lastMesh[regionID] = warped
				s.notifyLocked(regionID, orphans)
				return nil
			}
			s.logger.Debug("warped mesh rejected, falling back to remesh", "region", regionID, "err", err)
		}
	}
	s.scheduleRemeshLocked(regionID)
	return nil
}

// CommitContourEdit ends the edit with a synchronous remesh, discarding
// any pending debounced one, and reports orphaned loads.
func (s *Session) CommitContourEdit() ([]model.LoadID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return nil, errors.New("no contour edit active")
	}
	regionID := s.edit.regionID
	s.generation++
	s.edit = nil
	return s.remeshLocked(regionID)
}

// CancelContourEdit restores the contour captured at BeginContourEdit and
// remeshes it. Loads orphaned by interim edits stay orphaned.
func (s *Session) CancelContourEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return errors.New("no contour edit active")
	}
	edit := s.edit
	s.generation++
	s.edit = nil
	if err := s.model.UpdateRegionContour(edit.regionID, edit.outline, edit.voids); err != nil {
		return err
	}
	_, err := s.remeshLocked(edit.regionID)
	return err
}

// scheduleRemeshLocked arms the debouncer. The queued closure re-checks
// the generation so an edit started after scheduling discards it.
func (s *Session) scheduleRemeshLocked(regionID model.RegionID) {
	gen := s.generation
	s.debounced(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.generation {
			return
		}
		if _, err := s.remeshLocked(regionID); err != nil {
			s.logger.Warn("debounced remesh failed", "region", regionID, "err", err)
		}
	})
}

// Solve builds a request for the load case under the lock, runs the solver
// outside it, and discards the result if a newer solve started meanwhile.
// A zero caseID selects the default case. The built request is returned
// alongside the response so callers can derive station diagrams from it.
func (s *Session) Solve(ctx context.Context, solver solve.Solver, caseID model.LoadCaseID, at solve.AnalysisType) (*solve.Request, *solve.Response, error) {
	s.mu.Lock()
	s.solveGen++
	gen := s.solveGen
	var lc *model.LoadCase
	var err error
	if caseID.IsZero() {
		lc = s.model.DefaultCase()
	} else {
		lc, err = s.model.LoadCaseByID(caseID)
	}
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	req, err := solve.BuildRequest(s.model, lc, at)
	s.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	resp, err := solver.Solve(ctx, req)

	s.mu.Lock()
	stale := gen != s.solveGen
	s.mu.Unlock()
	if stale {
		return nil, nil, ErrSolveSuperseded
	}
	return req, resp, err
}

func (s *Session) notifyLocked(regionID model.RegionID, orphans []model.LoadID) {
	if s.onMesh == nil {
		return
	}
	ev := MeshEvent{
		SessionID:   s.ID,
		RegionID:    regionID,
		MeshVersion: s.model.MeshVersion(),
		Orphans:     orphans,
	}
	go s.onMesh(ev)
}

// replaceVertex returns the contour with the vertex coincident to from
// moved to to. Searches the outline first, then each void. Every
// coincident occurrence moves so a ring closed by repeating its first
// vertex stays closed.
func replaceVertex(outline orb.Ring, voids []orb.Ring, from, to orb.Point) (orb.Ring, []orb.Ring, bool) {
	out := append(orb.Ring(nil), outline...)
	vs := cloneRings(voids)
	if moveVertex(out, from, to) {
		return out, vs, true
	}
	for _, v := range vs {
		if moveVertex(v, from, to) {
			return out, vs, true
		}
	}
	return nil, nil, false
}

func moveVertex(ring orb.Ring, from, to orb.Point) bool {
	found := false
	for i, p := range ring {
		if geom.Coincident(p, from) {
			ring[i] = to
			found = true
		}
	}
	return found
}

func cloneRings(rs []orb.Ring) []orb.Ring {
	if rs == nil {
		return nil
	}
	out := make([]orb.Ring, len(rs))
	for i, r := range rs {
		out[i] = append(orb.Ring(nil), r...)
	}
	return out
}
