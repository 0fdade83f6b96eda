package solve

import "math"

// StationCount is the number of evaluation points per beam diagram,
// t = 0, 0.05, ..., 1.0.
const StationCount = 21

// Station is one point of the internal force diagrams: axial N, shear V,
// bending moment M at normalized position T along the member.
type Station struct {
	T float64 `json:"t"`
	N float64 `json:"n"`
	V float64 `json:"v"`
	M float64 `json:"m"`
}

// BeamDiagram holds the force diagrams for one beam.
type BeamDiagram struct {
	BeamID   int64     `json:"beamId"`
	Stations []Station `json:"stations"`
}

// Diagrams interpolates N/V/M between the solved member end forces by
// integrating the distributed loads along each beam. Beams without end
// forces in the response are skipped.
func Diagrams(req *Request, resp *Response) []BeamDiagram {
	pos := make(map[int64][2]float64, len(req.Nodes))
	for _, n := range req.Nodes {
		pos[n.ID] = [2]float64{n.X, n.Y}
	}
	forces := make(map[int64]BeamForces, len(resp.BeamForces))
	for _, bf := range resp.BeamForces {
		forces[bf.BeamID] = bf
	}

	out := make([]BeamDiagram, 0, len(req.Beams))
	for i := range req.Beams {
		b := &req.Beams[i]
		bf, ok := forces[b.ID]
		if !ok {
			continue
		}
		p1, ok1 := pos[b.N1]
		p2, ok2 := pos[b.N2]
		if !ok1 || !ok2 {
			continue
		}
		dx, dy := p2[0]-p1[0], p2[1]-p1[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		c, s := dx/l, dy/l

		type span struct{ a, b, qx0, qx1, qy0, qy1 float64 }
		spans := make([]span, 0, len(b.Loads))
		for _, ld := range b.Loads {
			a := clampT(ld.StartT) * l
			e := clampT(ld.EndT) * l
			if e <= a {
				continue
			}
			qx0, qy0 := ld.QX, ld.QY
			qx1, qy1 := ld.QXEnd, ld.QYEnd
			if ld.Coord == "global" {
				qx0, qy0 = c*qx0+s*qy0, -s*qx0+c*qy0
				qx1, qy1 = c*qx1+s*qy1, -s*qx1+c*qy1
			}
			spans = append(spans, span{a, e, qx0, qx1, qy0, qy1})
		}

		d := BeamDiagram{BeamID: b.ID, Stations: make([]Station, 0, StationCount)}
		for k := 0; k < StationCount; k++ {
			t := float64(k) / float64(StationCount-1)
			x := t * l
			st := Station{T: t, N: bf.N1, V: bf.V1, M: bf.M1 + bf.V1*x}
			for _, sp := range spans {
				ix, _ := loadIntegrals(sp.a, sp.b, sp.qx0, sp.qx1, x)
				iy, jy := loadIntegrals(sp.a, sp.b, sp.qy0, sp.qy1, x)
				st.N -= ix
				st.V += iy
				st.M += jy
			}
			d.Stations = append(d.Stations, st)
		}
		out = append(out, d)
	}
	return out
}

// loadIntegrals evaluates, for a load linear from q0 at a to q1 at b, the
// running integrals up to x:
//
//	i0 = ∫ q(ξ) dξ        (shear contribution)
//	i1 = ∫ (x-ξ) q(ξ) dξ  (moment contribution)
func loadIntegrals(a, b, q0, q1, x float64) (i0, i1 float64) {
	if x <= a || b <= a {
		return 0, 0
	}
	e := math.Min(x, b)
	d := e - a
	m := (q1 - q0) / (b - a)
	i0 = q0*d + m*d*d/2
	i1 = (x-a)*i0 - (q0*d*d/2 + m*d*d*d/3)
	return i0, i1
}
