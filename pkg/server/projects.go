package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/chazu/gusset/pkg/model"
	"github.com/chazu/gusset/pkg/store"
)

type projectRequest struct {
	Name string `json:"name"`
	// SessionID selects the live session whose model is saved. Empty
	// means a blank model (create) or the stored one unchanged (update).
	SessionID string `json:"sessionId"`
}

func (s *Server) handleListProjects(c *fiber.Ctx) error {
	projects, err := s.store.List(c.Context())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "list projects: %v", err)
	}
	if projects == nil {
		projects = []*store.Project{}
	}
	return c.JSON(fiber.Map{"projects": projects})
}

func (s *Server) handleCreateProject(c *fiber.Ctx) error {
	var req projectRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body: %v", err)
	}
	if req.Name == "" {
		return jsonError(c, fiber.StatusBadRequest, "project name is required")
	}

	snap := model.New().Snapshot()
	if req.SessionID != "" {
		sess, ok := s.sessions.Get(req.SessionID)
		if !ok {
			return jsonError(c, fiber.StatusNotFound, "unknown session %q", req.SessionID)
		}
		snap = sess.Snapshot()
	}

	p, err := s.store.Create(c.Context(), req.Name, snap)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "create project: %v", err)
	}
	s.logger.Info("project created", "id", p.ID, "name", p.Name)
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (s *Server) handleGetProject(c *fiber.Ctx) error {
	p, err := s.store.Get(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return jsonError(c, fiber.StatusNotFound, "project %q not found", c.Params("id"))
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "load project: %v", err)
	}
	return c.JSON(p)
}

func (s *Server) handleUpdateProject(c *fiber.Ctx) error {
	id := c.Params("id")
	var req projectRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body: %v", err)
	}

	existing, err := s.store.Get(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return jsonError(c, fiber.StatusNotFound, "project %q not found", id)
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "load project: %v", err)
	}

	name := req.Name
	if name == "" {
		name = existing.Name
	}
	snap := existing.Snapshot
	if req.SessionID != "" {
		sess, ok := s.sessions.Get(req.SessionID)
		if !ok {
			return jsonError(c, fiber.StatusNotFound, "unknown session %q", req.SessionID)
		}
		snap = sess.Snapshot()
	}

	p, err := s.store.Update(c.Context(), id, name, snap)
	if errors.Is(err, store.ErrNotFound) {
		return jsonError(c, fiber.StatusNotFound, "project %q not found", id)
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "update project: %v", err)
	}
	s.logger.Info("project updated", "id", p.ID, "name", p.Name)
	return c.JSON(p)
}

func (s *Server) handleDeleteProject(c *fiber.Ctx) error {
	err := s.store.Delete(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return jsonError(c, fiber.StatusNotFound, "project %q not found", c.Params("id"))
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "delete project: %v", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
