package geom

import (
	"testing"

	"github.com/paulmach/orb"
)

func square(x, y, w, h float64) orb.Ring {
	return orb.Ring{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
}

func TestPointInPolygon(t *testing.T) {
	loop := square(0, 0, 4, 2)

	tests := []struct {
		name string
		p    orb.Point
		want bool
	}{
		{"center", orb.Point{2, 1}, true},
		{"outside right", orb.Point{5, 1}, false},
		{"outside above", orb.Point{2, 3}, false},
		{"on edge", orb.Point{2, 0}, true},
		{"on vertex", orb.Point{0, 0}, true},
		{"just outside", orb.Point{4.001, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.p, loop); got != tt.want {
				t.Errorf("PointInPolygon(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPointInPolygonConcave(t *testing.T) {
	// L-shape: the notch at the top right is outside.
	loop := orb.Ring{{0, 0}, {4, 0}, {4, 2}, {2, 2}, {2, 4}, {0, 4}}

	if !PointInPolygon(orb.Point{1, 3}, loop) {
		t.Error("point in the vertical arm should be inside")
	}
	if PointInPolygon(orb.Point{3, 3}, loop) {
		t.Error("point in the notch should be outside")
	}
}

func TestSegmentsIntersect(t *testing.T) {
	tests := []struct {
		name       string
		a, b, c, d orb.Point
		want       bool
	}{
		{"proper cross", orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{0, 2}, orb.Point{2, 0}, true},
		{"disjoint", orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{0, 1}, orb.Point{1, 1}, false},
		{"parallel", orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{0, 1}, orb.Point{2, 1}, false},
		{"collinear overlapping", orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{1, 0}, orb.Point{3, 0}, false},
		{"collinear disjoint", orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, orb.Point{3, 0}, false},
		{"shared endpoint", orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{2, 0}, orb.Point{2, 2}, false},
		{"T touch", orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{2, 0}, orb.Point{2, 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentsIntersect(tt.a, tt.b, tt.c, tt.d); got != tt.want {
				t.Errorf("SegmentsIntersect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSelfIntersecting(t *testing.T) {
	simple := square(0, 0, 4, 2)
	if IsSelfIntersecting(simple) {
		t.Error("rectangle flagged self-intersecting")
	}

	// Bowtie: edges 0-1 and 2-3 cross.
	bowtie := orb.Ring{{0, 0}, {2, 2}, {2, 0}, {0, 2}}
	if !IsSelfIntersecting(bowtie) {
		t.Error("bowtie not flagged self-intersecting")
	}
}

func TestThreeVertexLoopNeverSelfIntersecting(t *testing.T) {
	// Any triangle, including degenerate ones, has no non-adjacent edge
	// pairs to test.
	loops := []orb.Ring{
		{{0, 0}, {4, 0}, {2, 3}},
		{{0, 0}, {4, 0}, {2, 0}},   // collinear
		{{0, 0}, {0, 0}, {1, 1}},   // repeated vertex
		{{5, 5}, {-3, 2}, {7, -9}}, // arbitrary
	}
	for i, loop := range loops {
		if IsSelfIntersecting(loop) {
			t.Errorf("loop %d: 3-vertex loop flagged self-intersecting", i)
		}
	}
}

func TestLoopInsideLoop(t *testing.T) {
	outer := square(0, 0, 6, 6)

	if !LoopInsideLoop(square(2, 2, 2, 2), outer, MeshTol) {
		t.Error("contained void not recognized")
	}
	if LoopInsideLoop(square(5, 5, 3, 3), outer, MeshTol) {
		t.Error("overlapping loop accepted")
	}
	if LoopInsideLoop(square(10, 10, 1, 1), outer, MeshTol) {
		t.Error("disjoint loop accepted")
	}
	// Touching the outline violates the clearance even though every vertex
	// is technically contained.
	if LoopInsideLoop(square(0, 2, 2, 2), outer, MeshTol) {
		t.Error("void touching the outline accepted")
	}
}

func TestLoopsTouch(t *testing.T) {
	a := square(0, 0, 2, 2)
	if !LoopsTouch(a, square(2, 0, 2, 2), MeshTol) {
		t.Error("edge-sharing squares should touch")
	}
	if LoopsTouch(a, square(3, 0, 2, 2), MeshTol) {
		t.Error("separated squares should not touch")
	}
	if !LoopsTouch(a, square(1, 1, 2, 2), MeshTol) {
		t.Error("overlapping squares should touch")
	}
}

func TestHasDegenerateEdge(t *testing.T) {
	if HasDegenerateEdge(square(0, 0, 1, 1)) {
		t.Error("unit square flagged degenerate")
	}
	pinched := orb.Ring{{0, 0}, {1, 0}, {1, 1e-9}, {0, 1}}
	if !HasDegenerateEdge(pinched) {
		t.Error("near-zero edge not flagged")
	}
}

func TestSegmentDistance(t *testing.T) {
	// Crossing segments have distance zero.
	if d := SegmentDistance(orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{0, 2}, orb.Point{2, 0}); d != 0 {
		t.Errorf("crossing distance = %v, want 0", d)
	}
	// Parallel horizontal segments one apart.
	if d := SegmentDistance(orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{0, 1}, orb.Point{2, 1}); d != 1 {
		t.Errorf("parallel distance = %v, want 1", d)
	}
}
