package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/chazu/gusset/pkg/catalog"
	"github.com/chazu/gusset/pkg/config"
	"github.com/chazu/gusset/pkg/model"
	"github.com/chazu/gusset/pkg/script"
	"github.com/chazu/gusset/pkg/session"
	"github.com/chazu/gusset/pkg/solve"
	"github.com/chazu/gusset/pkg/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := log.New(io.Discard)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hub := NewHub(logger)
	sessions := session.NewManager(session.Options{Logger: logger, OnMesh: hub.Publish})
	cfg := &config.Config{}
	cfg.Server.Addr = ":0"
	cfg.Server.AllowOrigins = "*"
	cfg.Server.AllowHeaders = "Origin, Content-Type, Accept"

	return New(cfg, sessions, solve.NewFrame(logger), st, hub, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, 30000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp, data
}

func decode(t *testing.T, data []byte, into any) {
	t.Helper()
	if err := json.Unmarshal(data, into); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

type sessionEnvelope struct {
	ID    string          `json:"id"`
	Model *model.Snapshot `json:"model"`
}

type scriptEnvelope struct {
	Model    *model.Snapshot    `json:"model"`
	Errors   []script.EvalError `json:"errors"`
	Warnings []string           `json:"warnings"`
}

// createSession opens a fresh session over the API.
func createSession(t *testing.T, s *Server) string {
	t.Helper()
	resp, data := doJSON(t, s, "POST", "/api/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d: %s", resp.StatusCode, data)
	}
	var env sessionEnvelope
	decode(t, data, &env)
	if env.ID == "" {
		t.Fatal("create session: empty id")
	}
	return env.ID
}

// runScript evaluates source in the session, failing on any eval error.
func runScript(t *testing.T, s *Server, id, source string) scriptEnvelope {
	t.Helper()
	resp, data := doJSON(t, s, "POST", "/api/sessions/"+id+"/script",
		map[string]string{"source": source})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("script: status %d: %s", resp.StatusCode, data)
	}
	var env scriptEnvelope
	decode(t, data, &env)
	return env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, _ := doJSON(t, s, "GET", "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCreateSessionAndGetModel(t *testing.T) {
	s := newTestServer(t)

	resp, data := doJSON(t, s, "POST", "/api/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	var env sessionEnvelope
	decode(t, data, &env)
	if len(env.Model.Cases) != 1 {
		t.Errorf("fresh model has %d load cases, want 1", len(env.Model.Cases))
	}

	resp, data = doJSON(t, s, "GET", "/api/sessions/"+env.ID+"/model", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get model: status %d", resp.StatusCode)
	}
	var snap model.Snapshot
	decode(t, data, &snap)
	if len(snap.Nodes) != 0 || len(snap.Cases) != 1 {
		t.Errorf("snapshot: %d nodes, %d cases", len(snap.Nodes), len(snap.Cases))
	}

	resp, _ = doJSON(t, s, "GET", "/api/sessions/not-a-session/model", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	resp, _ := doJSON(t, s, "DELETE", "/api/sessions/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, s, "GET", "/api/sessions/"+id+"/model", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", resp.StatusCode)
	}
	resp, _ = doJSON(t, s, "DELETE", "/api/sessions/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestScriptBuildsModel(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	env := runScript(t, s, id, `(structure :portal-frame :span 6 :height 3)`)
	if len(env.Model.Nodes) != 4 || len(env.Model.Beams) != 3 {
		t.Errorf("portal frame: %d nodes, %d beams, want 4, 3",
			len(env.Model.Nodes), len(env.Model.Beams))
	}

	resp, data := doJSON(t, s, "POST", "/api/sessions/"+id+"/script",
		map[string]string{"source": "(node 0 0"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("syntax error: status = %d: %s", resp.StatusCode, data)
	}
	var bad scriptEnvelope
	decode(t, data, &bad)
	if len(bad.Errors) == 0 {
		t.Error("syntax error produced no error records")
	}

	resp, _ = doJSON(t, s, "POST", "/api/sessions/missing/script",
		map[string]string{"source": "(node 0 0)"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", resp.StatusCode)
	}
}

func TestRemeshRoute(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	runScript(t, s, id, `
(plate (ring 0 0 4 0 4 2 0 2) :mesh 0.5 :thickness 0.2)
(remesh 1)
`)

	resp, data := doJSON(t, s, "POST", "/api/sessions/"+id+"/regions/1/remesh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remesh: status = %d: %s", resp.StatusCode, data)
	}
	var env struct {
		MeshVersion uint64         `json:"meshVersion"`
		Orphans     []model.LoadID `json:"orphans"`
	}
	decode(t, data, &env)
	if env.MeshVersion != 2 {
		t.Errorf("meshVersion = %d, want 2 (script remesh then route remesh)", env.MeshVersion)
	}
	if env.Orphans == nil || len(env.Orphans) != 0 {
		t.Errorf("orphans = %v, want empty array", env.Orphans)
	}

	resp, _ = doJSON(t, s, "POST", "/api/sessions/"+id+"/regions/99/remesh", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown region: status = %d, want 404", resp.StatusCode)
	}
	resp, _ = doJSON(t, s, "POST", "/api/sessions/"+id+"/regions/abc/remesh", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad region id: status = %d, want 400", resp.StatusCode)
	}
}

func TestSolveRoute(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	runScript(t, s, id, `
(structure :portal-frame :span 6 :height 3)
(point-load 2 :fx 10e3)
`)

	resp, data := doJSON(t, s, "POST", "/api/sessions/"+id+"/solve", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("solve: status = %d: %s", resp.StatusCode, data)
	}
	var env struct {
		Response *solve.Response     `json:"response"`
		Diagrams []solve.BeamDiagram `json:"diagrams"`
	}
	decode(t, data, &env)
	if !env.Response.Success {
		t.Fatalf("solve failed: %s", env.Response.Error)
	}
	if len(env.Response.Reactions) == 0 {
		t.Error("no reactions in response")
	}
	if len(env.Diagrams) != 3 {
		t.Fatalf("diagrams = %d, want 3", len(env.Diagrams))
	}
	for _, d := range env.Diagrams {
		if len(d.Stations) != solve.StationCount {
			t.Errorf("beam %d: %d stations, want %d", d.BeamID, len(d.Stations), solve.StationCount)
		}
	}

	resp, _ = doJSON(t, s, "POST", "/api/sessions/"+id+"/solve",
		map[string]any{"analysis": "plane-stress"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("plate analysis on frame solver: status = %d, want 422", resp.StatusCode)
	}
	resp, _ = doJSON(t, s, "POST", "/api/sessions/"+id+"/solve",
		map[string]any{"analysis": "modal"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown analysis: status = %d, want 400", resp.StatusCode)
	}
	resp, _ = doJSON(t, s, "POST", "/api/sessions/"+id+"/solve",
		map[string]any{"caseId": 99})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown case: status = %d, want 404", resp.StatusCode)
	}
}

func TestSolveReportsMechanism(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	// Two nodes, one beam, no supports: rigid body motion.
	runScript(t, s, id, `
(node 0 0)
(node 6 0)
(beam 1 2)
(point-load 2 :fy -1e3)
`)

	resp, data := doJSON(t, s, "POST", "/api/sessions/"+id+"/solve", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	var env struct {
		Response *solve.Response `json:"response"`
	}
	decode(t, data, &env)
	if env.Response == nil || env.Response.Success {
		t.Errorf("expected unsuccessful response, got %+v", env.Response)
	}
}

func TestProfilesRoute(t *testing.T) {
	s := newTestServer(t)

	resp, data := doJSON(t, s, "GET", "/api/profiles?prefix=IPE", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var env struct {
		Profiles []catalog.Profile `json:"profiles"`
	}
	decode(t, data, &env)
	if len(env.Profiles) == 0 {
		t.Fatal("no profiles returned")
	}
	for _, p := range env.Profiles {
		if p.Series != "IPE" {
			t.Errorf("profile %q leaked into IPE prefix query", p.Name)
		}
	}

	resp, data = doJSON(t, s, "GET", "/api/profiles", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var all struct {
		Profiles []catalog.Profile `json:"profiles"`
	}
	decode(t, data, &all)
	if len(all.Profiles) <= len(env.Profiles) {
		t.Errorf("unfiltered catalog (%d) not larger than IPE slice (%d)",
			len(all.Profiles), len(env.Profiles))
	}
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	runScript(t, s, id, `(structure :portal-frame)`)

	resp, data := doJSON(t, s, "POST", "/api/projects",
		map[string]string{"name": "hall", "sessionId": id})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project: status = %d: %s", resp.StatusCode, data)
	}
	var created store.Project
	decode(t, data, &created)
	if created.ID == "" || created.Name != "hall" {
		t.Fatalf("created = %+v", created)
	}
	if len(created.Snapshot.Nodes) != 4 {
		t.Errorf("saved snapshot has %d nodes, want 4", len(created.Snapshot.Nodes))
	}

	resp, data = doJSON(t, s, "GET", "/api/projects", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d", resp.StatusCode)
	}
	var list struct {
		Projects []store.Project `json:"projects"`
	}
	decode(t, data, &list)
	if len(list.Projects) != 1 || list.Projects[0].Snapshot != nil {
		t.Errorf("list = %+v", list.Projects)
	}

	resp, data = doJSON(t, s, "PUT", "/api/projects/"+created.ID,
		map[string]string{"name": "warehouse"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename: status = %d: %s", resp.StatusCode, data)
	}
	var renamed store.Project
	decode(t, data, &renamed)
	if renamed.Name != "warehouse" {
		t.Errorf("renamed to %q", renamed.Name)
	}
	if len(renamed.Snapshot.Nodes) != 4 {
		t.Errorf("rename dropped the snapshot: %d nodes", len(renamed.Snapshot.Nodes))
	}

	// A new session seeded from the stored project.
	resp, data = doJSON(t, s, "POST", "/api/sessions",
		map[string]string{"projectId": created.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seeded session: status = %d: %s", resp.StatusCode, data)
	}
	var seeded sessionEnvelope
	decode(t, data, &seeded)
	if len(seeded.Model.Nodes) != 4 || len(seeded.Model.Beams) != 3 {
		t.Errorf("seeded model: %d nodes, %d beams", len(seeded.Model.Nodes), len(seeded.Model.Beams))
	}

	resp, _ = doJSON(t, s, "DELETE", "/api/projects/"+created.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, s, "GET", "/api/projects/"+created.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, s, "POST", "/api/sessions",
		map[string]string{"projectId": "no-such-project"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("seed from missing project: status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	s := newTestServer(t)
	resp, _ := doJSON(t, s, "POST", "/api/projects", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	resp, _ := doJSON(t, s, "GET", "/api/ws/whatever", nil)
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
