package mesher

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/geom"
)

// The conforming path samples every contour segment at the target mesh
// size, triangulates boundary and interior points together, and then
// verifies each boundary sub-edge appears in the triangulation. Missing
// sub-edges are bisected and the triangulation rerun; segments keep their
// ordered sample lists throughout, which is what the boundary chains are
// built from.

const (
	// quantum merges points closer than a nanometer when deduplicating.
	quantum = 1e-9
	// recoverRounds bounds the bisection loop.
	recoverRounds = 8
	// maxPoints aborts before a tiny mesh size can hang the editor.
	maxPoints = 20000
)

type segSample struct {
	t   float64
	idx int
}

type segment struct {
	start, end orb.Point
	samples    []segSample // ordered by t, always includes t=0 and t=1
}

type pointSet struct {
	pts   []orb.Point
	index map[[2]int64]int
}

func newPointSet() *pointSet {
	return &pointSet{index: make(map[[2]int64]int)}
}

func (s *pointSet) key(p orb.Point) [2]int64 {
	return [2]int64{
		int64(math.Round(p[0] / quantum)),
		int64(math.Round(p[1] / quantum)),
	}
}

func (s *pointSet) add(p orb.Point) int {
	k := s.key(p)
	if i, ok := s.index[k]; ok {
		return i
	}
	s.pts = append(s.pts, p)
	s.index[k] = len(s.pts) - 1
	return len(s.pts) - 1
}

// sampleContours subdivides every outline and void segment into pieces no
// longer than size. Segment order matches polygonEdgeIndex: outline
// segments first, then each void's in turn.
func sampleContours(ps *pointSet, outline orb.Ring, voids []orb.Ring, size float64) []*segment {
	var segs []*segment
	rings := append([]orb.Ring{outline}, voids...)
	for _, ring := range rings {
		n := geom.RingLen(ring)
		for i := 0; i < n; i++ {
			a, b := geom.RingSegment(ring, i)
			seg := &segment{start: a, end: b}
			pieces := int(math.Ceil(geom.Dist(a, b)/size - geom.Eps))
			if pieces < 1 {
				pieces = 1
			}
			for k := 0; k <= pieces; k++ {
				t := float64(k) / float64(pieces)
				idx := ps.add(geom.Lerp(a, b, t))
				seg.samples = append(seg.samples, segSample{t: t, idx: idx})
			}
			segs = append(segs, seg)
		}
	}
	return segs
}

// seedInterior drops a point grid inside the domain, keeping clear of the
// contours so boundary sampling stays authoritative there.
func seedInterior(ps *pointSet, outline orb.Ring, voids []orb.Ring, size float64) {
	bound := outline.Bound()
	clearance := 0.5 * size
	for x := bound.Min[0] + size; x < bound.Max[0]-geom.Eps; x += size {
		for y := bound.Min[1] + size; y < bound.Max[1]-geom.Eps; y += size {
			p := orb.Point{x, y}
			if !geom.PointInPolygon(p, outline) {
				continue
			}
			if contourDistance(p, outline, voids) < clearance {
				continue
			}
			inVoid := false
			for _, v := range voids {
				if geom.PointInPolygon(p, v) {
					inVoid = true
					break
				}
			}
			if !inVoid {
				ps.add(p)
			}
		}
	}
}

func contourDistance(p orb.Point, outline orb.Ring, voids []orb.Ring) float64 {
	best := math.Inf(1)
	rings := append([]orb.Ring{outline}, voids...)
	for _, ring := range rings {
		n := geom.RingLen(ring)
		for i := 0; i < n; i++ {
			a, b := geom.RingSegment(ring, i)
			if d := geom.PointSegmentDistance(p, a, b); d < best {
				best = d
			}
		}
	}
	return best
}

// missingSubEdges returns, per segment, the consecutive sample pairs that
// the triangulation does not realize as a triangle edge.
func missingSubEdges(segs []*segment, tris []triangle) [][2]int {
	have := make(map[triEdge]bool)
	for _, t := range tris {
		have[normEdge(t[0], t[1])] = true
		have[normEdge(t[1], t[2])] = true
		have[normEdge(t[2], t[0])] = true
	}
	var missing [][2]int
	for si, seg := range segs {
		for k := 0; k+1 < len(seg.samples); k++ {
			e := normEdge(seg.samples[k].idx, seg.samples[k+1].idx)
			if !have[e] {
				missing = append(missing, [2]int{si, k})
			}
		}
	}
	return missing
}

// bisectMissing inserts the midpoint of every missing sub-edge into its
// segment's sample list. Insertion order within a segment is by t, kept
// sorted so chains stay ordered.
func bisectMissing(ps *pointSet, segs []*segment, missing [][2]int) {
	// Process per segment from the tail so indices recorded against the
	// original sample list stay valid while inserting.
	bySeg := make(map[int][]int)
	for _, mk := range missing {
		bySeg[mk[0]] = append(bySeg[mk[0]], mk[1])
	}
	for si, ks := range bySeg {
		seg := segs[si]
		sort.Sort(sort.Reverse(sort.IntSlice(ks)))
		for _, k := range ks {
			a, b := seg.samples[k], seg.samples[k+1]
			t := (a.t + b.t) / 2
			idx := ps.add(geom.Lerp(seg.start, seg.end, t))
			seg.samples = append(seg.samples, segSample{})
			copy(seg.samples[k+2:], seg.samples[k+1:])
			seg.samples[k+1] = segSample{t: t, idx: idx}
		}
	}
}

// cullOutside keeps triangles whose centroid lies in the plate domain and
// drops degenerate slivers.
func cullOutside(pts []orb.Point, tris []triangle, outline orb.Ring, voids []orb.Ring) []triangle {
	out := tris[:0]
	for _, t := range tris {
		if math.Abs(triArea2(pts, t)) < 1e-12 {
			continue
		}
		c := centroid(pts, t)
		if !geom.PointInPolygon(c, outline) {
			continue
		}
		inVoid := false
		for _, v := range voids {
			if geom.PointInPolygon(c, v) && contourDistance(c, v, nil) > geom.CoincideTol {
				inVoid = true
				break
			}
		}
		if !inVoid {
			out = append(out, t)
		}
	}
	return out
}

// buildChains converts the per-segment sample lists into boundary chains,
// one per polygonEdgeIndex in order.
func buildChains(segs []*segment) []BoundaryChain {
	chains := make([]BoundaryChain, len(segs))
	for i, seg := range segs {
		ch := BoundaryChain{SegmentIndex: i, Start: seg.start, End: seg.end}
		for _, s := range seg.samples {
			ch.Points = append(ch.Points, s.idx)
		}
		chains[i] = ch
	}
	return chains
}

// compact drops points unused by any element and remaps all indices.
// Chain points are remapped too; a chain point that lost every element
// (possible only for degenerate inputs) is dropped from the chain.
func compact(res *Result) {
	used := make([]bool, len(res.Points))
	for _, t := range res.Tris {
		used[t[0]], used[t[1]], used[t[2]] = true, true, true
	}
	for _, q := range res.Quads {
		used[q[0]], used[q[1]], used[q[2]], used[q[3]] = true, true, true, true
	}
	remap := make([]int, len(res.Points))
	var pts []orb.Point
	for i, u := range used {
		if u {
			remap[i] = len(pts)
			pts = append(pts, res.Points[i])
		} else {
			remap[i] = -1
		}
	}
	for i, t := range res.Tris {
		res.Tris[i] = triangle{remap[t[0]], remap[t[1]], remap[t[2]]}
	}
	for i, q := range res.Quads {
		res.Quads[i] = [4]int{remap[q[0]], remap[q[1]], remap[q[2]], remap[q[3]]}
	}
	for ci := range res.Chains {
		ch := &res.Chains[ci]
		kept := ch.Points[:0]
		for _, idx := range ch.Points {
			if remap[idx] >= 0 {
				kept = append(kept, remap[idx])
			}
		}
		ch.Points = kept
	}
	res.Points = pts
}
