package script

import (
	"fmt"

	"github.com/chazu/gusset/pkg/model"
)

// templateParams carries the knobs shared by the structure templates.
// span is the total length, except for continuous-beam where it is the
// length of one bay.
type templateParams struct {
	span   float64
	height float64
	panels int
	spans  int

	material string
	section  model.Section
}

// buildTemplate populates the model with a named starter structure. All
// templates build along the x axis from the origin and create nodes and
// beams in a fixed order, so follow-up commands can refer to their ids
// predictably.
func buildTemplate(m *model.Model, name string, p templateParams) error {
	if p.span <= 0 {
		return fmt.Errorf("template %s: span must be positive", name)
	}
	switch name {
	case "simply-supported":
		return buildSimplySupported(m, p)
	case "cantilever":
		return buildCantilever(m, p)
	case "portal-frame":
		return buildPortalFrame(m, p)
	case "truss":
		return buildTruss(m, p)
	case "continuous-beam":
		return buildContinuousBeam(m, p)
	}
	return fmt.Errorf("unknown structure template %q", name)
}

func member(m *model.Model, n1, n2 model.NodeID, p templateParams, elementType string) error {
	el, err := m.AddBeam(n1, n2, p.material, p.section)
	if err != nil {
		return err
	}
	el.ElementType = elementType
	return nil
}

// trussMember adds a pin-ended member.
func trussMember(m *model.Model, n1, n2 model.NodeID, p templateParams, elementType string) error {
	el, err := m.AddBeam(n1, n2, p.material, p.section)
	if err != nil {
		return err
	}
	el.ElementType = elementType
	return m.SetBeamConns(el.ID, model.ConnHinge, model.ConnHinge)
}

func buildSimplySupported(m *model.Model, p templateParams) error {
	n1 := m.AddNode(0, 0)
	n2 := m.AddNode(p.span, 0)
	if err := m.SetSupport(n1.ID, supportKinds["pinned"]); err != nil {
		return err
	}
	if err := m.SetSupport(n2.ID, supportKinds["roller"]); err != nil {
		return err
	}
	return member(m, n1.ID, n2.ID, p, "beam")
}

func buildCantilever(m *model.Model, p templateParams) error {
	root := m.AddNode(0, 0)
	tip := m.AddNode(p.span, 0)
	if err := m.SetSupport(root.ID, supportKinds["fixed"]); err != nil {
		return err
	}
	return member(m, root.ID, tip.ID, p, "beam")
}

func buildPortalFrame(m *model.Model, p templateParams) error {
	if p.height <= 0 {
		return fmt.Errorf("template portal-frame: height must be positive")
	}
	b1 := m.AddNode(0, 0)
	t1 := m.AddNode(0, p.height)
	t2 := m.AddNode(p.span, p.height)
	b2 := m.AddNode(p.span, 0)
	for _, id := range []model.NodeID{b1.ID, b2.ID} {
		if err := m.SetSupport(id, supportKinds["fixed"]); err != nil {
			return err
		}
	}
	if err := member(m, b1.ID, t1.ID, p, "column"); err != nil {
		return err
	}
	if err := member(m, t1.ID, t2.ID, p, "beam"); err != nil {
		return err
	}
	return member(m, b2.ID, t2.ID, p, "column")
}

// buildTruss lays out a Pratt truss: parallel chords, verticals, and
// diagonals sloping down toward midspan. Fewer than two panels gets
// clamped to two, which degenerates into a king-post.
func buildTruss(m *model.Model, p templateParams) error {
	if p.height <= 0 {
		return fmt.Errorf("template truss: height must be positive")
	}
	np := p.panels
	if np < 2 {
		np = 2
	}
	dx := p.span / float64(np)

	bottom := make([]model.NodeID, np+1)
	for i := 0; i <= np; i++ {
		bottom[i] = m.AddNode(float64(i)*dx, 0).ID
	}
	// top[0] stays unused; interior joints only.
	top := make([]model.NodeID, np)
	for i := 1; i < np; i++ {
		top[i] = m.AddNode(float64(i)*dx, p.height).ID
	}

	for i := 0; i < np; i++ {
		if err := trussMember(m, bottom[i], bottom[i+1], p, "beam"); err != nil {
			return err
		}
	}
	for i := 1; i < np-1; i++ {
		if err := trussMember(m, top[i], top[i+1], p, "beam"); err != nil {
			return err
		}
	}
	for i := 1; i < np; i++ {
		if err := trussMember(m, bottom[i], top[i], p, "column"); err != nil {
			return err
		}
	}
	// End diagonals rise from the supports.
	if err := trussMember(m, bottom[0], top[1], p, "brace"); err != nil {
		return err
	}
	if err := trussMember(m, bottom[np], top[np-1], p, "brace"); err != nil {
		return err
	}
	for j := 1; j <= np-2; j++ {
		var n1, n2 model.NodeID
		if j < np/2 {
			n1, n2 = top[j], bottom[j+1]
		} else {
			n1, n2 = top[j+1], bottom[j]
		}
		if err := trussMember(m, n1, n2, p, "brace"); err != nil {
			return err
		}
	}

	if err := m.SetSupport(bottom[0], supportKinds["pinned"]); err != nil {
		return err
	}
	return m.SetSupport(bottom[np], supportKinds["roller"])
}

func buildContinuousBeam(m *model.Model, p templateParams) error {
	ns := p.spans
	if ns < 1 {
		ns = 1
	}
	prev := m.AddNode(0, 0)
	if err := m.SetSupport(prev.ID, supportKinds["pinned"]); err != nil {
		return err
	}
	for i := 1; i <= ns; i++ {
		next := m.AddNode(float64(i)*p.span, 0)
		if err := m.SetSupport(next.ID, supportKinds["roller"]); err != nil {
			return err
		}
		if err := member(m, prev.ID, next.ID, p, "beam"); err != nil {
			return err
		}
		prev = next
	}
	return nil
}
