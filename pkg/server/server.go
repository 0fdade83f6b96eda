// Package server exposes the editor core over HTTP: sessions, script
// evaluation, remeshing, solving, the section catalog, and stored
// projects, plus a websocket pushing mesh invalidations to clients.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/chazu/gusset/pkg/config"
	"github.com/chazu/gusset/pkg/script"
	"github.com/chazu/gusset/pkg/session"
	"github.com/chazu/gusset/pkg/solve"
	"github.com/chazu/gusset/pkg/store"
)

// Server wires the editor core into a Fiber app.
type Server struct {
	app      *fiber.App
	cfg      *config.Config
	sessions *session.Manager
	solver   solve.Solver
	store    *store.Store
	hub      *Hub
	logger   *log.Logger

	mu      sync.Mutex
	engines map[string]*script.Engine
}

// New assembles the app with middleware and routes registered. The hub
// must be the one receiving the session manager's mesh events.
func New(cfg *config.Config, sessions *session.Manager, solver solve.Solver, st *store.Store, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	app := fiber.New(fiber.Config{
		AppName:               "gusset",
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:      app,
		cfg:      cfg,
		sessions: sessions,
		solver:   solver,
		store:    st,
		hub:      hub,
		logger:   logger,
		engines:  make(map[string]*script.Engine),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// App returns the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	s.app.Use(logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.Server.AllowOrigins,
		AllowHeaders: s.cfg.Server.AllowHeaders,
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	api := s.app.Group("/api")

	api.Post("/sessions", s.handleCreateSession)
	api.Delete("/sessions/:id", s.handleDeleteSession)
	api.Get("/sessions/:id/model", s.handleModel)
	api.Post("/sessions/:id/script", s.handleScript)
	api.Post("/sessions/:id/regions/:rid/remesh", s.handleRemesh)
	api.Post("/sessions/:id/solve", s.handleSolve)

	api.Get("/profiles", s.handleProfiles)

	api.Get("/projects", s.handleListProjects)
	api.Post("/projects", s.handleCreateProject)
	api.Get("/projects/:id", s.handleGetProject)
	api.Put("/projects/:id", s.handleUpdateProject)
	api.Delete("/projects/:id", s.handleDeleteProject)

	api.Get("/ws/:id", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if _, ok := s.sessions.Get(c.Params("id")); !ok {
			return fiber.ErrNotFound
		}
		return c.Next()
	}, websocket.New(s.handleWS))
}

// handleWS subscribes the connection to its session's mesh events and
// holds it open until the peer goes away. Client frames are discarded.
func (s *Server) handleWS(c *websocket.Conn) {
	id := c.Params("id")
	s.hub.subscribe(id, c)
	s.logger.Debug("ws subscribed", "session", id)
	defer func() {
		s.hub.unsubscribe(id, c)
		c.Close()
		s.logger.Debug("ws closed", "session", id)
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// engineFor returns the session's script engine, creating it on first
// use. Each session gets its own engine so one editor's evaluation never
// supersedes another's.
func (s *Server) engineFor(sessionID string) *script.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, ok := s.engines[sessionID]
	if !ok {
		eng = script.NewEngine(s.logger)
		s.engines[sessionID] = eng
	}
	return eng
}

func (s *Server) dropEngine(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, sessionID)
}

// Listen serves on the configured address until ctx is canceled, then
// drains connections and returns.
func (s *Server) Listen(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down")
		if err := s.app.ShutdownWithTimeout(10 * time.Second); err != nil {
			s.logger.Error("shutdown", "err", err)
		}
	}()

	s.logger.Info("listening", "addr", s.cfg.Server.Addr)
	return s.app.Listen(s.cfg.Server.Addr)
}
