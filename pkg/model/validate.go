package model

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/geom"
)

// voidClearanceWarn flags voids that pass validation but sit close enough
// to the outline that meshing between them gets thin.
const voidClearanceWarn = 10 * geom.CoincideTol

// ValidateContour checks a plate contour and returns every finding, errors
// and warnings alike. requiredSign pins the outline winding: pass the sign
// recorded at region creation to reject edits that flip the loop, or 0 to
// accept either orientation.
func ValidateContour(outline orb.Ring, voids []orb.Ring, requiredSign float64) []ValidationError {
	var out []ValidationError

	n := geom.RingLen(outline)
	if n < 3 {
		out = append(out, ValidationError{
			Message:  fmt.Sprintf("outline needs at least 3 vertices, got %d", n),
			Severity: SeverityError,
		})
		return out
	}
	if geom.HasDegenerateEdge(outline) {
		out = append(out, ValidationError{
			Message:  "outline has a zero-length edge",
			Severity: SeverityError,
		})
	}
	if geom.IsSelfIntersecting(outline) {
		out = append(out, ValidationError{
			Message:  "outline is self-intersecting",
			Severity: SeverityError,
		})
	}
	area := geom.SignedArea(outline)
	if area == 0 {
		out = append(out, ValidationError{
			Message:  "outline encloses no area",
			Severity: SeverityError,
		})
	} else if requiredSign != 0 && signOf(area) != requiredSign {
		out = append(out, ValidationError{
			Message:  "outline winding is reversed",
			Severity: SeverityError,
		})
	}

	for i, v := range voids {
		vn := geom.RingLen(v)
		if vn < 3 {
			out = append(out, ValidationError{
				Message:  fmt.Sprintf("void %d needs at least 3 vertices, got %d", i, vn),
				Severity: SeverityError,
			})
			continue
		}
		if geom.HasDegenerateEdge(v) {
			out = append(out, ValidationError{
				Message:  fmt.Sprintf("void %d has a zero-length edge", i),
				Severity: SeverityError,
			})
		}
		if geom.IsSelfIntersecting(v) {
			out = append(out, ValidationError{
				Message:  fmt.Sprintf("void %d is self-intersecting", i),
				Severity: SeverityError,
			})
		}
		if geom.SignedArea(v) == 0 {
			out = append(out, ValidationError{
				Message:  fmt.Sprintf("void %d encloses no area", i),
				Severity: SeverityError,
			})
			continue
		}
		if !geom.LoopInsideLoop(v, outline, geom.CoincideTol) {
			out = append(out, ValidationError{
				Message:  fmt.Sprintf("void %d is not strictly inside the outline", i),
				Severity: SeverityError,
			})
		} else if clearance := loopClearance(v, outline); clearance < voidClearanceWarn {
			out = append(out, ValidationError{
				Message:  fmt.Sprintf("void %d is within %.2g of the outline", i, clearance),
				Severity: SeverityWarning,
			})
		}
		for j := i + 1; j < len(voids); j++ {
			if geom.RingLen(voids[j]) < 3 {
				continue
			}
			if geom.LoopsTouch(v, voids[j], geom.CoincideTol) ||
				voidsOverlap(v, voids[j]) {
				out = append(out, ValidationError{
					Message:  fmt.Sprintf("voids %d and %d overlap or touch", i, j),
					Severity: SeverityError,
				})
			}
		}
	}
	return out
}

// CheckContour runs ValidateContour and folds blocking findings into a
// ContourError. Warnings alone do not produce an error.
func CheckContour(outline orb.Ring, voids []orb.Ring, requiredSign float64) error {
	findings := ValidateContour(outline, voids, requiredSign)
	var blocking []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			blocking = append(blocking, f)
		}
	}
	if len(blocking) > 0 {
		return &ContourError{Findings: blocking}
	}
	return nil
}

// loopClearance returns the smallest segment-to-segment distance between
// two loops.
func loopClearance(a, b orb.Ring) float64 {
	na, nb := geom.RingLen(a), geom.RingLen(b)
	best := -1.0
	for i := 0; i < na; i++ {
		a1, a2 := geom.RingSegment(a, i)
		for j := 0; j < nb; j++ {
			b1, b2 := geom.RingSegment(b, j)
			d := geom.SegmentDistance(a1, a2, b1, b2)
			if best < 0 || d < best {
				best = d
			}
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// voidsOverlap detects one void poking into another: any vertex of either
// loop strictly inside the other counts.
func voidsOverlap(a, b orb.Ring) bool {
	for i := 0; i < geom.RingLen(a); i++ {
		if geom.PointInPolygon(a[i], b) && !onLoopBoundary(a[i], b) {
			return true
		}
	}
	for i := 0; i < geom.RingLen(b); i++ {
		if geom.PointInPolygon(b[i], a) && !onLoopBoundary(b[i], a) {
			return true
		}
	}
	return false
}

func onLoopBoundary(p orb.Point, loop orb.Ring) bool {
	for i := 0; i < geom.RingLen(loop); i++ {
		a, b := geom.RingSegment(loop, i)
		if geom.PointSegmentDistance(p, a, b) <= geom.CoincideTol {
			return true
		}
	}
	return false
}
