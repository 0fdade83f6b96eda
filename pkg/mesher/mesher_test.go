package mesher

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func rect(w, h float64) orb.Ring {
	return orb.Ring{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// elementEdges collects every undirected element edge of a result.
func elementEdges(r *Result) map[triEdge]bool {
	edges := make(map[triEdge]bool)
	for _, t := range r.Tris {
		edges[normEdge(t[0], t[1])] = true
		edges[normEdge(t[1], t[2])] = true
		edges[normEdge(t[2], t[0])] = true
	}
	for _, q := range r.Quads {
		for i := 0; i < 4; i++ {
			edges[normEdge(q[i], q[(i+1)%4])] = true
		}
	}
	return edges
}

func checkChainsConform(t *testing.T, r *Result) {
	t.Helper()
	edges := elementEdges(r)
	for _, ch := range r.Chains {
		for i := 0; i+1 < len(ch.Points); i++ {
			e := normEdge(ch.Points[i], ch.Points[i+1])
			if !edges[e] {
				t.Errorf("chain %d: points %d-%d are not an element edge", ch.SegmentIndex, ch.Points[i], ch.Points[i+1])
			}
		}
	}
}

func checkOrientation(t *testing.T, r *Result) {
	t.Helper()
	for i, tr := range r.Tris {
		if triArea2(r.Points, triangle(tr)) <= 0 {
			t.Errorf("triangle %d is not counter-clockwise", i)
		}
	}
	for i, q := range r.Quads {
		if quadArea2(r.Points, q) <= 0 {
			t.Errorf("quad %d is not counter-clockwise", i)
		}
	}
}

func TestGridExactRectangle(t *testing.T) {
	res, err := GenerateGrid(rect(4, 2), nil, 0.5)
	if err != nil {
		t.Fatalf("GenerateGrid: %v", err)
	}
	if len(res.Quads) != 32 {
		t.Errorf("quads = %d, want 32", len(res.Quads))
	}
	if len(res.Tris) != 0 {
		t.Errorf("tris = %d, want 0", len(res.Tris))
	}
	if len(res.Points) != 45 {
		t.Errorf("points = %d, want 45", len(res.Points))
	}
	if len(res.Chains) != 4 {
		t.Fatalf("chains = %d, want 4", len(res.Chains))
	}
	wantLens := []int{9, 5, 9, 5}
	for i, ch := range res.Chains {
		if ch.SegmentIndex != i {
			t.Errorf("chain %d has segment index %d", i, ch.SegmentIndex)
		}
		if len(ch.Points) != wantLens[i] {
			t.Errorf("chain %d has %d points, want %d", i, len(ch.Points), wantLens[i])
		}
	}
	checkChainsConform(t, res)
	checkOrientation(t, res)
}

func TestGridRectangleWithVoid(t *testing.T) {
	void := orb.Ring{{1.5, 0.5}, {2.5, 0.5}, {2.5, 1.5}, {1.5, 1.5}}
	res, err := GenerateGrid(rect(4, 2), []orb.Ring{void}, 0.5)
	if err != nil {
		t.Fatalf("GenerateGrid: %v", err)
	}
	if len(res.Quads) != 28 {
		t.Errorf("quads = %d, want 28", len(res.Quads))
	}
	if len(res.Chains) != 8 {
		t.Fatalf("chains = %d, want 8 (4 outline + 4 void)", len(res.Chains))
	}
	for _, ch := range res.Chains[4:] {
		if len(ch.Points) < 2 {
			t.Errorf("void chain %d has %d points, want >= 2", ch.SegmentIndex, len(ch.Points))
		}
	}
	checkChainsConform(t, res)
	checkOrientation(t, res)
}

func TestGridRejectsDegenerate(t *testing.T) {
	if _, err := GenerateGrid(orb.Ring{{0, 0}, {4, 0}, {8, 0}}, nil, 0.5); err == nil {
		t.Error("zero-height outline meshed without error")
	}
	if _, err := GenerateGrid(rect(4, 2), nil, 0); err == nil {
		t.Error("zero mesh size accepted")
	}
}

func TestGridPointLimit(t *testing.T) {
	_, err := GenerateGrid(rect(100, 100), nil, 0.01)
	if err == nil {
		t.Fatal("expected point limit failure")
	}
	var gf *GenerationFailure
	if !errors.As(err, &gf) {
		t.Fatalf("error is %T, want *GenerationFailure", err)
	}
	if gf.Stage != "grid" {
		t.Errorf("stage = %q, want grid", gf.Stage)
	}
}

func TestConformingConvex(t *testing.T) {
	for _, tc := range []struct {
		name    string
		outline orb.Ring
	}{
		{"triangle", orb.Ring{{0, 0}, {4, 0}, {0, 3}}},
		{"square", rect(2, 2)},
		{"wide", rect(4, 2)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := generateConforming(tc.outline, nil, 0.5)
			if err != nil {
				t.Fatalf("generateConforming: %v", err)
			}
			if res.ElementCount() == 0 {
				t.Fatal("empty mesh")
			}
			if len(res.Chains) != len(tc.outline) {
				t.Errorf("chains = %d, want %d", len(res.Chains), len(tc.outline))
			}
			checkChainsConform(t, res)
			checkOrientation(t, res)
		})
	}
}

func TestGenerateLShape(t *testing.T) {
	outline := orb.Ring{{0, 0}, {4, 0}, {4, 2}, {2, 2}, {2, 4}, {0, 4}}
	res, err := Generate(outline, nil, 0.5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.ElementCount() == 0 {
		t.Fatal("empty mesh")
	}
	if len(res.Chains) != 6 {
		t.Errorf("chains = %d, want 6", len(res.Chains))
	}
	checkChainsConform(t, res)
	checkOrientation(t, res)
}

func TestGenerateWithVoidChainsCoverEverySegment(t *testing.T) {
	outline := rect(6, 4)
	void := orb.Ring{{2, 1.5}, {4, 1.5}, {4, 2.5}, {2, 2.5}}
	res, err := Generate(outline, []orb.Ring{void}, 0.5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Chains) != 8 {
		t.Fatalf("chains = %d, want 8", len(res.Chains))
	}
	seen := make(map[int]bool)
	for _, ch := range res.Chains {
		if seen[ch.SegmentIndex] {
			t.Errorf("segment index %d appears twice", ch.SegmentIndex)
		}
		seen[ch.SegmentIndex] = true
	}
	for i := 0; i < 8; i++ {
		if !seen[i] {
			t.Errorf("segment index %d has no chain", i)
		}
	}
	checkChainsConform(t, res)
}

func TestGenerateIdempotent(t *testing.T) {
	outline := orb.Ring{{0, 0}, {5, 0}, {6, 3}, {2, 4}}
	a, err := Generate(outline, nil, 0.6)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	b, err := Generate(outline, nil, 0.6)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if a.ElementCount() != b.ElementCount() {
		t.Errorf("element counts differ: %d vs %d", a.ElementCount(), b.ElementCount())
	}
	if len(a.Points) != len(b.Points) {
		t.Errorf("point counts differ: %d vs %d", len(a.Points), len(b.Points))
	}
	if a.Fallback != b.Fallback {
		t.Errorf("fallback flags differ: %v vs %v", a.Fallback, b.Fallback)
	}
}

func TestWarpSmallMoveKeepsConnectivity(t *testing.T) {
	res, err := GenerateGrid(rect(4, 2), nil, 0.5)
	if err != nil {
		t.Fatalf("GenerateGrid: %v", err)
	}
	warped, ok := Warp(res, orb.Point{0, 0}, orb.Point{-0.05, -0.05}, 0.3)
	if !ok {
		t.Fatal("warp refused a small outward corner move")
	}
	if warped.ElementCount() != res.ElementCount() {
		t.Errorf("element count changed: %d vs %d", warped.ElementCount(), res.ElementCount())
	}
	if len(warped.Points) != len(res.Points) {
		t.Errorf("point count changed: %d vs %d", len(warped.Points), len(res.Points))
	}
	moved := false
	for i := range warped.Points {
		if warped.Points[i] != res.Points[i] {
			moved = true
		}
	}
	if !moved {
		t.Error("no point moved")
	}
	for _, ch := range warped.Chains {
		if ch.Start == (orb.Point{0, 0}) || ch.End == (orb.Point{0, 0}) {
			t.Errorf("chain %d still anchored at the old corner", ch.SegmentIndex)
		}
	}
	checkOrientation(t, warped)
}

func TestWarpRefusesInvertingMove(t *testing.T) {
	res, err := GenerateGrid(rect(4, 2), nil, 0.5)
	if err != nil {
		t.Fatalf("GenerateGrid: %v", err)
	}
	if _, ok := Warp(res, orb.Point{0, 0}, orb.Point{0.55, 0.55}, 0.6); ok {
		t.Error("warp accepted a move that inverts the corner cell")
	}
	if _, ok := Warp(res, orb.Point{0, 0}, orb.Point{2, 2}, 0.5); ok {
		t.Error("warp accepted a move larger than its radius")
	}
}

func TestGenerateThinSliver(t *testing.T) {
	// Thin plates stress both paths: no room for interior seeds, cells
	// thinner than the target size.
	outline := orb.Ring{{0, 0}, {4, 0}, {4, 0.05}, {0, 0.05}}
	res, err := Generate(outline, nil, 0.5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.ElementCount() == 0 {
		t.Fatal("empty mesh")
	}
	checkOrientation(t, res)
}
