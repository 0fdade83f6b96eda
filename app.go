package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/chazu/gusset/pkg/config"
	"github.com/chazu/gusset/pkg/script"
	"github.com/chazu/gusset/pkg/server"
	"github.com/chazu/gusset/pkg/session"
	"github.com/chazu/gusset/pkg/solve"
	"github.com/chazu/gusset/pkg/store"
)

// App wires the service together: the project store, the session manager
// publishing mesh events into the websocket hub, the solver, and the HTTP
// server on top of them.
type App struct {
	cfg      *config.Config
	logger   *log.Logger
	store    *store.Store
	hub      *server.Hub
	sessions *session.Manager
	solver   solve.Solver
	server   *server.Server
}

// NewApp builds the full service from cfg.
func NewApp(cfg *config.Config, logger *log.Logger) (*App, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open project store: %w", err)
	}
	hub := server.NewHub(logger)
	sessions := session.NewManager(session.Options{
		DebounceInterval: cfg.Session.DebounceInterval,
		Logger:           logger,
		OnMesh:           hub.Publish,
	})
	solver := newSolver(cfg, logger)
	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		hub:      hub,
		sessions: sessions,
		solver:   solver,
		server:   server.New(cfg, sessions, solver, st, hub, logger),
	}, nil
}

// newSolver picks the in-process frame solver unless a remote backend is
// configured.
func newSolver(cfg *config.Config, logger *log.Logger) solve.Solver {
	if cfg.Solver.URL == "" {
		return solve.NewFrame(logger)
	}
	return solve.NewRemote(cfg.Solver.URL, cfg.Solver.Timeout, logger)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	return a.server.Listen(ctx)
}

// Close releases the project store. Live sessions die with the process.
func (a *App) Close() error {
	return a.store.Close()
}

// evalFile runs a script file against a fresh session, the offline
// counterpart of the script route used by the eval and solve commands.
func evalFile(logger *log.Logger, path string) (*session.Session, *script.EvalResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	sess := session.New(nil, session.Options{Logger: logger})
	res, err := script.NewEngine(logger).Evaluate(string(source), sess)
	if err != nil {
		return nil, nil, err
	}
	return sess, res, nil
}

// reportEvalErrors prints script errors the way a compiler would and
// returns a single summarizing error, or nil when the script was clean.
func reportEvalErrors(path string, res *script.EvalResult) error {
	if len(res.Errors) == 0 {
		return nil
	}
	for _, e := range res.Errors {
		fmt.Fprintf(os.Stderr, "%s:%d:%d: %s\n", path, e.Line, e.Col, e.Message)
	}
	return fmt.Errorf("%s: %d script error(s)", path, len(res.Errors))
}
