package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/chazu/gusset/pkg/catalog"
	"github.com/chazu/gusset/pkg/model"
	"github.com/chazu/gusset/pkg/script"
	"github.com/chazu/gusset/pkg/session"
	"github.com/chazu/gusset/pkg/solve"
	"github.com/chazu/gusset/pkg/store"
)

func jsonError(c *fiber.Ctx, status int, format string, args ...any) error {
	return c.Status(status).JSON(fiber.Map{"error": fmt.Sprintf(format, args...)})
}

// session resolves :id, writing the 404 itself when the id is unknown.
func (s *Server) session(c *fiber.Ctx) (*session.Session, bool, error) {
	sess, ok := s.sessions.Get(c.Params("id"))
	if !ok {
		return nil, false, jsonError(c, fiber.StatusNotFound, "unknown session %q", c.Params("id"))
	}
	return sess, true, nil
}

type createSessionRequest struct {
	ProjectID string `json:"projectId"`
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid body: %v", err)
		}
	}

	var snap *model.Snapshot
	if req.ProjectID != "" {
		p, err := s.store.Get(c.Context(), req.ProjectID)
		if errors.Is(err, store.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "project %q not found", req.ProjectID)
		}
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "load project: %v", err)
		}
		snap = p.Snapshot
	}

	sess, err := s.sessions.Create(snap)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "restore snapshot: %v", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    sess.ID,
		"model": sess.Snapshot(),
	})
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := s.sessions.Get(id); !ok {
		return jsonError(c, fiber.StatusNotFound, "unknown session %q", id)
	}
	s.sessions.Remove(id)
	s.dropEngine(id)
	s.hub.dropSession(id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleModel(c *fiber.Ctx) error {
	sess, ok, err := s.session(c)
	if !ok {
		return err
	}
	return c.JSON(sess.Snapshot())
}

type scriptRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleScript(c *fiber.Ctx) error {
	sess, ok, err := s.session(c)
	if !ok {
		return err
	}
	var req scriptRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body: %v", err)
	}

	res, err := s.engineFor(sess.ID).Evaluate(req.Source, sess)
	switch {
	case errors.Is(err, script.ErrSuperseded):
		return jsonError(c, fiber.StatusConflict, "%v", err)
	case errors.Is(err, script.ErrTimeout):
		return jsonError(c, fiber.StatusRequestTimeout, "%v", err)
	case err != nil:
		return jsonError(c, fiber.StatusInternalServerError, "evaluate: %v", err)
	}

	if len(res.Errors) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"errors":   res.Errors,
			"warnings": res.Warnings,
		})
	}
	return c.JSON(fiber.Map{
		"model":    sess.Snapshot(),
		"warnings": res.Warnings,
	})
}

func (s *Server) handleRemesh(c *fiber.Ctx) error {
	sess, ok, err := s.session(c)
	if !ok {
		return err
	}
	rid, err := c.ParamsInt("rid")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid region id: %v", err)
	}

	orphans, err := sess.Remesh(model.RegionID(rid))
	var dangling *model.DanglingReferenceError
	switch {
	case errors.As(err, &dangling):
		return jsonError(c, fiber.StatusNotFound, "%v", err)
	case err != nil:
		return jsonError(c, fiber.StatusUnprocessableEntity, "remesh: %v", err)
	}
	if orphans == nil {
		orphans = []model.LoadID{}
	}
	return c.JSON(fiber.Map{
		"meshVersion": sess.MeshVersion(),
		"orphans":     orphans,
	})
}

type solveRequest struct {
	CaseID   int64  `json:"caseId"`
	Analysis string `json:"analysis"`
}

func analysisType(name string) (solve.AnalysisType, error) {
	switch at := solve.AnalysisType(name); at {
	case "":
		return solve.AnalysisFrame, nil
	case solve.AnalysisFrame, solve.AnalysisPlaneStress, solve.AnalysisPlaneStrain, solve.AnalysisPlateBending:
		return at, nil
	default:
		return "", fmt.Errorf("unknown analysis type %q", name)
	}
}

func (s *Server) handleSolve(c *fiber.Ctx) error {
	sess, ok, err := s.session(c)
	if !ok {
		return err
	}
	var req solveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid body: %v", err)
		}
	}
	at, err := analysisType(req.Analysis)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "%v", err)
	}

	sreq, resp, err := sess.Solve(c.Context(), s.solver, model.LoadCaseID(req.CaseID), at)
	var dangling *model.DanglingReferenceError
	var unsupported *solve.UnsupportedAnalysisError
	switch {
	case errors.As(err, &dangling):
		return jsonError(c, fiber.StatusNotFound, "%v", err)
	case errors.As(err, &unsupported):
		return jsonError(c, fiber.StatusUnprocessableEntity, "%v", err)
	case errors.Is(err, session.ErrSolveSuperseded):
		return jsonError(c, fiber.StatusConflict, "%v", err)
	case err != nil:
		return jsonError(c, fiber.StatusInternalServerError, "solve: %v", err)
	}

	if !resp.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"response": resp,
		})
	}
	return c.JSON(fiber.Map{
		"response": resp,
		"diagrams": solve.Diagrams(sreq, resp),
	})
}

func (s *Server) handleProfiles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"profiles": catalog.All(c.Query("prefix")),
	})
}
