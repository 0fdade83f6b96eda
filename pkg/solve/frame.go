package solve

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/mat"

	"github.com/chazu/gusset/pkg/geom"
)

// dispFloor clamps numerical noise in the displacement vector to zero.
const dispFloor = 1e-10

// Frame is the in-process linear-elastic 2D frame solver: Euler-Bernoulli
// beam elements with three degrees of freedom per node, assembled by the
// direct stiffness method. It refuses plate analyses and geometric
// nonlinearity; route those to a Remote solver instead.
type Frame struct {
	Logger *log.Logger
}

// NewFrame returns a frame solver logging through logger, or log.Default()
// when nil.
func NewFrame(logger *log.Logger) *Frame {
	if logger == nil {
		logger = log.Default()
	}
	return &Frame{Logger: logger}
}

// fail wraps an analysis failure that is the request's fault, not the
// caller's: the response reports it, the error stays nil.
func fail(format string, args ...any) (*Response, error) {
	return &Response{Success: false, Error: fmt.Sprintf(format, args...)}, nil
}

// Solve assembles and solves K·u = F, then recovers reactions and member
// end forces. Singular systems (mechanisms) come back as an unsuccessful
// Response; requests outside the frame formulation return an
// UnsupportedAnalysisError. Degrees of freedom left without any stiffness,
// like the rotation of a joint where every member is hinged, are held at
// zero instead of counting as a mechanism.
func (f *Frame) Solve(ctx context.Context, req *Request) (*Response, error) {
	if req.AnalysisType != AnalysisFrame || req.GeometricNonlinear {
		return nil, &UnsupportedAnalysisError{Type: req.AnalysisType, Nonlinear: req.GeometricNonlinear}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Nodes) == 0 {
		return fail("empty model: no nodes")
	}

	// Deterministic DOF numbering: nodes sorted by id, three DOFs each.
	nodes := make([]NodeRecord, len(req.Nodes))
	copy(nodes, req.Nodes)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	order := make(map[int64]int, len(nodes))
	for i, n := range nodes {
		order[n.ID] = i
	}

	ndof := 3 * len(nodes)
	K := mat.NewDense(ndof, ndof, nil)
	F := mat.NewVecDense(ndof, nil)

	elems := make([]*frameElement, 0, len(req.Beams))
	for i := range req.Beams {
		b := &req.Beams[i]
		ni, ok := order[b.N1]
		if !ok {
			return fail("beam %d references unknown node %d", b.ID, b.N1)
		}
		nj, ok := order[b.N2]
		if !ok {
			return fail("beam %d references unknown node %d", b.ID, b.N2)
		}
		e, err := newFrameElement(b, ni, nj, nodes[ni], nodes[nj])
		if err != nil {
			return fail("beam %d: %v", b.ID, err)
		}
		elems = append(elems, e)
		e.assemble(K, F)
	}

	for i, n := range nodes {
		addAt(K, 3*i, 3*i, n.KX)
		addAt(K, 3*i+1, 3*i+1, n.KY)
		addAt(K, 3*i+2, 3*i+2, n.KR)
		F.SetVec(3*i, F.AtVec(3*i)+n.FX)
		F.SetVec(3*i+1, F.AtVec(3*i+1)+n.FY)
		F.SetVec(3*i+2, F.AtVec(3*i+2)+n.MZ)
	}

	fixed := make([]bool, ndof)
	free := make([]int, 0, ndof)
	for i, n := range nodes {
		fixed[3*i] = n.FixX
		fixed[3*i+1] = n.FixY
		fixed[3*i+2] = n.FixR
	}
	for d := 0; d < ndof; d++ {
		if !fixed[d] {
			free = append(free, d)
		}
	}

	// Condensed releases leave numerically-zero rows behind: a joint whose
	// members are all hinged has no rotational stiffness at all. Hold such
	// DOFs at zero so they do not poison the reduced system. Loading one
	// is a genuine mechanism.
	var maxDiag float64
	for d := 0; d < ndof; d++ {
		if v := math.Abs(K.At(d, d)); v > maxDiag {
			maxDiag = v
		}
	}
	tol := maxDiag * 1e-12
	kept := make([]int, 0, len(free))
	for _, d := range free {
		zero := true
		for _, e := range free {
			if math.Abs(K.At(d, e)) > tol {
				zero = false
				break
			}
		}
		if !zero {
			kept = append(kept, d)
			continue
		}
		if math.Abs(F.AtVec(d)) > 1e-9 {
			return fail("node %d: load on a degree of freedom with no stiffness", nodes[d/3].ID)
		}
	}
	free = kept

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u := make([]float64, ndof)
	if len(free) > 0 {
		kred := mat.NewDense(len(free), len(free), nil)
		fred := mat.NewVecDense(len(free), nil)
		for a, da := range free {
			fred.SetVec(a, F.AtVec(da))
			for b, db := range free {
				kred.Set(a, b, K.At(da, db))
			}
		}
		var ured mat.VecDense
		if err := ured.SolveVec(kred, fred); err != nil {
			f.Logger.Warn("stiffness solve failed", "dofs", len(free), "err", err)
			return fail("singular stiffness matrix: structure is a mechanism")
		}
		for a, d := range free {
			u[d] = ured.AtVec(a)
		}
	}
	for d := range u {
		if math.Abs(u[d]) < dispFloor {
			u[d] = 0
		}
	}

	resp := &Response{Success: true, NodeIDOrder: order}
	for i := range nodes {
		resp.Displacements = append(resp.Displacements, Displacement{
			UX: u[3*i], UY: u[3*i+1], RZ: u[3*i+2],
		})
	}

	// Reactions are the residual K·u - F at the fixed DOFs. Spring forces
	// never show up here: a sprung free DOF is in equilibrium by solution.
	uvec := mat.NewVecDense(ndof, u)
	var ku mat.VecDense
	ku.MulVec(K, uvec)
	for i, n := range nodes {
		if !n.FixX && !n.FixY && !n.FixR {
			continue
		}
		r := Reaction{NodeID: n.ID}
		if n.FixX {
			r.FX = ku.AtVec(3*i) - F.AtVec(3*i)
		}
		if n.FixY {
			r.FY = ku.AtVec(3*i+1) - F.AtVec(3*i+1)
		}
		if n.FixR {
			r.MZ = ku.AtVec(3*i+2) - F.AtVec(3*i+2)
		}
		resp.Reactions = append(resp.Reactions, r)
	}

	for _, e := range elems {
		resp.BeamForces = append(resp.BeamForces, e.endForces(u))
	}

	f.Logger.Debug("frame analysis solved",
		"nodes", len(nodes), "beams", len(elems), "dofs", ndof, "free", len(free))
	return resp, nil
}

// frameElement is one assembled beam: condensed local stiffness and
// consistent load vector plus the global transform.
type frameElement struct {
	rec  *BeamRecord
	i, j int // node indices in DOF order
	l    float64
	c, s float64
	k    *mat.Dense    // 6x6 local, releases condensed out
	f0   *mat.VecDense // local consistent load vector, condensed
	t    *mat.Dense    // global -> local transform
}

func newFrameElement(b *BeamRecord, ni, nj int, a, c NodeRecord) (*frameElement, error) {
	dx, dy := c.X-a.X, c.Y-a.Y
	l := math.Hypot(dx, dy)
	if l < geom.Eps {
		return nil, fmt.Errorf("zero length")
	}
	if b.E <= 0 || b.A <= 0 || b.I <= 0 {
		return nil, fmt.Errorf("non-positive section constants E=%g A=%g I=%g", b.E, b.A, b.I)
	}
	e := &frameElement{rec: b, i: ni, j: nj, l: l, c: dx / l, s: dy / l}
	e.k = localStiffness(b.E, b.A, b.I, l)
	e.f0 = e.loadVector()
	if b.StartReleased {
		condense(e.k, e.f0, 2)
	}
	if b.EndReleased {
		condense(e.k, e.f0, 5)
	}
	e.t = transform(e.c, e.s)
	return e, nil
}

// localStiffness is the standard 2D Euler-Bernoulli element stiffness for
// DOFs [u1, v1, r1, u2, v2, r2] in local coordinates.
func localStiffness(E, A, I, L float64) *mat.Dense {
	ea := E * A / L
	b12 := 12 * E * I / (L * L * L)
	b6 := 6 * E * I / (L * L)
	b4 := 4 * E * I / L
	b2 := 2 * E * I / L
	return mat.NewDense(6, 6, []float64{
		ea, 0, 0, -ea, 0, 0,
		0, b12, b6, 0, -b12, b6,
		0, b6, b4, 0, -b6, b2,
		-ea, 0, 0, ea, 0, 0,
		0, -b12, -b6, 0, b12, -b6,
		0, b6, b2, 0, -b6, b4,
	})
}

func transform(c, s float64) *mat.Dense {
	return mat.NewDense(6, 6, []float64{
		c, s, 0, 0, 0, 0,
		-s, c, 0, 0, 0, 0,
		0, 0, 1, 0, 0, 0,
		0, 0, 0, c, s, 0,
		0, 0, 0, -s, c, 0,
		0, 0, 0, 0, 0, 1,
	})
}

// gauss3 integrates polynomials up to degree five exactly, enough for the
// Hermite shape functions against a linear load.
var gauss3 = [3]struct{ x, w float64 }{
	{-0.7745966692414834, 5.0 / 9.0},
	{0, 8.0 / 9.0},
	{0.7745966692414834, 5.0 / 9.0},
}

// loadVector integrates the element's distributed loads against the shape
// functions: linear interpolation for the axial terms, Hermite cubics for
// the transverse ones. Loads in global coordinates are rotated into the
// member frame first.
func (e *frameElement) loadVector() *mat.VecDense {
	f := mat.NewVecDense(6, nil)
	for _, ld := range e.rec.Loads {
		a := clampT(ld.StartT) * e.l
		b := clampT(ld.EndT) * e.l
		if b-a < geom.Eps {
			continue
		}
		qx0, qy0 := e.toLocal(ld.Coord, ld.QX, ld.QY)
		qx1, qy1 := e.toLocal(ld.Coord, ld.QXEnd, ld.QYEnd)

		half := (b - a) / 2
		mid := (a + b) / 2
		for _, g := range gauss3 {
			x := mid + half*g.x
			w := half * g.w
			s := (x - a) / (b - a)
			qx := qx0 + s*(qx1-qx0)
			qy := qy0 + s*(qy1-qy0)

			xi := x / e.l
			h1 := 1 - 3*xi*xi + 2*xi*xi*xi
			h2 := e.l * (xi - 2*xi*xi + xi*xi*xi)
			h3 := 3*xi*xi - 2*xi*xi*xi
			h4 := e.l * (xi*xi*xi - xi*xi)

			f.SetVec(0, f.AtVec(0)+w*qx*(1-xi))
			f.SetVec(3, f.AtVec(3)+w*qx*xi)
			f.SetVec(1, f.AtVec(1)+w*qy*h1)
			f.SetVec(2, f.AtVec(2)+w*qy*h2)
			f.SetVec(4, f.AtVec(4)+w*qy*h3)
			f.SetVec(5, f.AtVec(5)+w*qy*h4)
		}
	}
	return f
}

func (e *frameElement) toLocal(coord string, qx, qy float64) (float64, float64) {
	if coord == "global" {
		return e.c*qx + e.s*qy, -e.s*qx + e.c*qy
	}
	return qx, qy
}

// condense eliminates the released rotation DOF r by static condensation,
// folding its row and column into the rest of the matrix and load vector.
func condense(k *mat.Dense, f *mat.VecDense, r int) {
	d := k.At(r, r)
	if d == 0 {
		return
	}
	var col, row [6]float64
	for i := 0; i < 6; i++ {
		col[i] = k.At(i, r)
		row[i] = k.At(r, i)
	}
	fr := f.AtVec(r)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			k.Set(i, j, k.At(i, j)-col[i]*row[j]/d)
		}
		f.SetVec(i, f.AtVec(i)-col[i]*fr/d)
	}
}

// assemble scatters the element's global stiffness and equivalent nodal
// loads into the system.
func (e *frameElement) assemble(K *mat.Dense, F *mat.VecDense) {
	var kg mat.Dense
	kg.Product(e.t.T(), e.k, e.t)
	var fg mat.VecDense
	fg.MulVec(e.t.T(), e.f0)

	dofs := e.dofs()
	for a := 0; a < 6; a++ {
		F.SetVec(dofs[a], F.AtVec(dofs[a])+fg.AtVec(a))
		for b := 0; b < 6; b++ {
			addAt(K, dofs[a], dofs[b], kg.At(a, b))
		}
	}
}

func (e *frameElement) dofs() [6]int {
	return [6]int{3 * e.i, 3*e.i + 1, 3*e.i + 2, 3 * e.j, 3*e.j + 1, 3*e.j + 2}
}

// endForces recovers local member end forces s = k·u_local - f0 and maps
// them to the engineering convention: tension-positive axial, shear and
// sagging-positive moment continuous along the member.
func (e *frameElement) endForces(u []float64) BeamForces {
	dofs := e.dofs()
	ug := mat.NewVecDense(6, nil)
	for a := 0; a < 6; a++ {
		ug.SetVec(a, u[dofs[a]])
	}
	var ul, s mat.VecDense
	ul.MulVec(e.t, ug)
	s.MulVec(e.k, &ul)
	s.SubVec(&s, e.f0)

	return BeamForces{
		BeamID: e.rec.ID,
		N1:     -s.AtVec(0), V1: s.AtVec(1), M1: -s.AtVec(2),
		N2: s.AtVec(3), V2: -s.AtVec(4), M2: s.AtVec(5),
	}
}

func addAt(m *mat.Dense, i, j int, v float64) {
	if v != 0 {
		m.Set(i, j, m.At(i, j)+v)
	}
}

func clampT(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}
