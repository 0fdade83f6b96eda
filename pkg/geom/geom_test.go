package geom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestSignedAreaWinding(t *testing.T) {
	ccw := orb.Ring{{0, 0}, {4, 0}, {4, 2}, {0, 2}}
	cw := orb.Ring{{0, 0}, {0, 2}, {4, 2}, {4, 0}}

	if a := SignedArea(ccw); math.Abs(a-8) > 1e-12 {
		t.Errorf("ccw area = %v, want 8", a)
	}
	if a := SignedArea(cw); math.Abs(a+8) > 1e-12 {
		t.Errorf("cw area = %v, want -8", a)
	}
}

func TestSignedAreaClosedRingMatchesOpen(t *testing.T) {
	open := orb.Ring{{0, 0}, {3, 0}, {3, 3}, {0, 3}}
	closed := orb.Ring{{0, 0}, {3, 0}, {3, 3}, {0, 3}, {0, 0}}

	if SignedArea(open) != SignedArea(closed) {
		t.Errorf("open = %v, closed = %v", SignedArea(open), SignedArea(closed))
	}
}

func TestSignedAreaDegenerate(t *testing.T) {
	if a := SignedArea(orb.Ring{{0, 0}, {1, 1}}); a != 0 {
		t.Errorf("2-vertex loop area = %v, want 0", a)
	}
}

func TestProjectParam(t *testing.T) {
	a := orb.Point{0, 0}
	b := orb.Point{4, 0}

	tests := []struct {
		name string
		p    orb.Point
		want float64
	}{
		{"midpoint above", orb.Point{2, 1}, 0.5},
		{"before start", orb.Point{-3, 0}, 0},
		{"past end", orb.Point{9, -2}, 1},
		{"quarter", orb.Point{1, 5}, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectParam(tt.p, a, b); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ProjectParam = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProjectParamDegenerateSegment(t *testing.T) {
	a := orb.Point{1, 1}
	if got := ProjectParam(orb.Point{5, 5}, a, a); got != 0 {
		t.Errorf("degenerate segment param = %v, want 0", got)
	}
}

func TestPointSegmentDistance(t *testing.T) {
	a := orb.Point{0, 0}
	b := orb.Point{4, 0}

	if d := PointSegmentDistance(orb.Point{2, 3}, a, b); math.Abs(d-3) > 1e-12 {
		t.Errorf("perpendicular distance = %v, want 3", d)
	}
	// Beyond the end the distance is to the endpoint, not the infinite line.
	if d := PointSegmentDistance(orb.Point{7, 4}, a, b); math.Abs(d-5) > 1e-12 {
		t.Errorf("endpoint distance = %v, want 5", d)
	}
}

func TestLerp(t *testing.T) {
	p := Lerp(orb.Point{0, 0}, orb.Point{4, 2}, 0.25)
	if p[0] != 1 || p[1] != 0.5 {
		t.Errorf("Lerp = %v, want {1 0.5}", p)
	}
}

func TestRingLenIgnoresClosingVertex(t *testing.T) {
	open := orb.Ring{{0, 0}, {1, 0}, {1, 1}}
	closed := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}

	if RingLen(open) != 3 {
		t.Errorf("open RingLen = %d, want 3", RingLen(open))
	}
	if RingLen(closed) != 3 {
		t.Errorf("closed RingLen = %d, want 3", RingLen(closed))
	}
}
