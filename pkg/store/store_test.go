package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/gusset/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleSnapshot(t *testing.T, nodes int) *model.Snapshot {
	t.Helper()
	m := model.New()
	ids := make([]model.NodeID, 0, nodes)
	for i := 0; i < nodes; i++ {
		ids = append(ids, m.AddNode(float64(i)*3, 0).ID)
	}
	if nodes >= 2 {
		sec := model.Section{Profile: "IPE 200", A: 28.5e-4, Iy: 1943e-8, H: 0.2}
		if _, err := m.AddBeam(ids[0], ids[1], "S235", sec); err != nil {
			t.Fatalf("AddBeam: %v", err)
		}
	}
	return m.Snapshot()
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.Create(ctx, "warehouse", sampleSnapshot(t, 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.Name != "warehouse" {
		t.Errorf("Name = %q", created.Name)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := st.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Snapshot == nil {
		t.Fatal("expected snapshot")
	}
	if len(got.Snapshot.Nodes) != 2 || len(got.Snapshot.Beams) != 1 {
		t.Errorf("snapshot has %d nodes, %d beams, want 2, 1",
			len(got.Snapshot.Nodes), len(got.Snapshot.Beams))
	}

	m, err := model.FromSnapshot(got.Snapshot)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	n, err := m.Node(got.Snapshot.Nodes[1].ID)
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if n.X != 3 || n.Y != 0 {
		t.Errorf("restored node at (%g, %g), want (3, 0)", n.X, n.Y)
	}
}

func TestGetMissing(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.Get(context.Background(), "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: err = %v, want ErrNotFound", err)
	}
}

func TestListOmitsSnapshots(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	for _, name := range []string{"hall", "footbridge"} {
		if _, err := st.Create(ctx, name, sampleSnapshot(t, 2)); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	projects, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("List returned %d projects, want 2", len(projects))
	}
	names := map[string]bool{}
	for _, p := range projects {
		if p.Snapshot != nil {
			t.Errorf("project %s: list entry carries a snapshot", p.ID)
		}
		names[p.Name] = true
	}
	if !names["hall"] || !names["footbridge"] {
		t.Errorf("names = %v", names)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.Create(ctx, "draft", sampleSnapshot(t, 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := st.Update(ctx, created.ID, "final", sampleSnapshot(t, 3))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "final" {
		t.Errorf("Name = %q, want final", updated.Name)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if len(updated.Snapshot.Nodes) != 3 {
		t.Errorf("snapshot has %d nodes, want 3", len(updated.Snapshot.Nodes))
	}
}

func TestUpdateMissing(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Update(context.Background(), "no-such-id", "x", sampleSnapshot(t, 2))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update missing: err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.Create(ctx, "scrap", sampleSnapshot(t, 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := st.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestFileBackedReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "projects.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	created, err := st.Create(ctx, "persistent", sampleSnapshot(t, 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	got, err := st2.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Name != "persistent" || len(got.Snapshot.Nodes) != 2 {
		t.Errorf("reopened project = %q with %d nodes", got.Name, len(got.Snapshot.Nodes))
	}
}
