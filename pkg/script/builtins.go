package script

import (
	"errors"
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/paulmach/orb"

	"github.com/chazu/gusset/pkg/catalog"
	"github.com/chazu/gusset/pkg/geom"
	"github.com/chazu/gusset/pkg/model"
	"github.com/chazu/gusset/pkg/session"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites command source before it reaches zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal).
//     Registering keyword symbols as globals would collide with user
//     variables of the same name; a tagged string cannot.
//
//  2. Kebab-case to underscore: point-load -> point_load. zygomys reads
//     a hyphen as the subtraction operator, so hyphenated command names
//     are rewritten outside strings and comments.
//
//  3. Lisp ; line comments become zygomys // comments.
//
// All three transforms respect double-quoted and backtick string bounds.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments, ;; included, to // for zygomys.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Rewrite hyphens inside identifiers; a minus operator keeps at
		// least one non-identifier neighbor.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Evaluation state
// ---------------------------------------------------------------------------

// errCanceled aborts an evaluation whose engine generation was replaced
// or timed out. The builder checks it before every command so a stale
// script stops mutating the session.
var errCanceled = errors.New("evaluation canceled by a newer request")

// builder is the state the builtins share: the target session, the load
// case new loads attach to, and the stop channel of this generation.
// canceled records a tripped stop check, since zygomys flattens builtin
// errors into strings on the way out of Run.
type builder struct {
	sess     *session.Session
	active   model.LoadCaseID
	result   *EvalResult
	stop     chan struct{}
	canceled bool
}

func (b *builder) checkStop() error {
	select {
	case <-b.stop:
		b.canceled = true
		return errCanceled
	default:
		return nil
	}
}

func (b *builder) mutate(fn func(*model.Model) error) error {
	if err := b.checkStop(); err != nil {
		return err
	}
	return b.sess.Mutate(fn)
}

func (b *builder) warnf(format string, args ...any) {
	b.result.Warnings = append(b.result.Warnings, fmt.Sprintf(format, args...))
}

// sexpRing carries a polygon contour from (ring ...) into (plate ...)
// and (void ...).
type sexpRing struct {
	ring orb.Ring
}

func (r *sexpRing) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(ring %d vertices)", len(r.ring))
}
func (r *sexpRing) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// argSpec declares the options a builtin accepts. Valued options consume
// the following argument; flag options stand alone. Every other keyword
// is rejected, so a typo fails instead of silently swallowing the next
// argument as its value.
type argSpec struct {
	valued map[string]bool
	flags  map[string]bool
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	flags      map[string]bool
	positional []zygo.Sexp
}

func parseArgs(fn string, sp argSpec, args []zygo.Sexp) (kwArgs, error) {
	res := kwArgs{kw: make(map[string]zygo.Sexp), flags: make(map[string]bool)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			i++
			continue
		}
		switch {
		case sp.valued[name]:
			if i+1 >= len(args) {
				return res, fmt.Errorf("%s: option :%s needs a value", fn, name)
			}
			res.kw[name] = args[i+1]
			i += 2
		case sp.flags[name]:
			res.flags[name] = true
			i++
		default:
			return res, fmt.Errorf("%s: unknown option :%s", fn, name)
		}
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt64 extracts an integer id from a Sexp.
func toInt64(s zygo.Sexp) (int64, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_local) and plain strings ("local").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toRing extracts a contour from a sexpRing.
func toRing(s zygo.Sexp) (orb.Ring, error) {
	if r, ok := s.(*sexpRing); ok {
		return r.ring, nil
	}
	return nil, fmt.Errorf("expected (ring ...), got %T (%s)", s, s.SexpString(nil))
}

func intSexp(v int64) zygo.Sexp { return &zygo.SexpInt{Val: v} }

// supportKinds names the standard support conditions.
var supportKinds = map[string]model.Support{
	"free":     {},
	"pinned":   {FixX: true, FixY: true},
	"roller":   {FixY: true},
	"roller-x": {FixX: true},
	"fixed":    {FixX: true, FixY: true, FixR: true},
}

func supportKind(s zygo.Sexp) (model.Support, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return model.Support{}, err
	}
	sup, ok := supportKinds[name]
	if !ok {
		return model.Support{}, fmt.Errorf("unknown support kind %q (pinned, roller, roller-x, fixed, free)", name)
	}
	return sup, nil
}

// materialAliases maps convenience keywords onto catalog grades, so a
// script can say :steel without caring which grade the catalog carries.
var materialAliases = map[string]string{
	"steel":    "S235",
	"concrete": "C25/30",
	"timber":   "GL24h",
}

func materialArg(s zygo.Sexp) (string, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return "", err
	}
	if grade, ok := materialAliases[strings.ToLower(name)]; ok {
		name = grade
	}
	mat, err := catalog.MaterialByName(name)
	if err != nil {
		return "", err
	}
	return mat.Name, nil
}

func sectionFor(profile string) (model.Section, error) {
	p, err := catalog.ProfileByName(profile)
	if err != nil {
		return model.Section{}, err
	}
	return model.Section{Profile: p.Name, A: p.A, Iy: p.Iy, H: p.H}, nil
}

func sectionArg(s zygo.Sexp) (model.Section, error) {
	name, err := toString(s)
	if err != nil {
		return model.Section{}, err
	}
	return sectionFor(name)
}

// isAxisAlignedRect reports whether the ring is a four-vertex rectangle
// with axis-aligned sides, which qualifies for the structured quad mesh.
func isAxisAlignedRect(r orb.Ring) bool {
	if geom.RingLen(r) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		a, b := geom.RingSegment(r, i)
		if math.Abs(b[0]-a[0]) > geom.Eps && math.Abs(b[1]-a[1]) > geom.Eps {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the model-building commands into a zygomys
// environment. The builtins apply to the builder's session in order;
// source must run through preprocessSource first so :keyword tokens
// arrive as tagged string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (ring 0 0 6 0 6 4 0 4)
	// -----------------------------------------------------------------------
	env.AddFunction("ring", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("ring", argSpec{}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional)%2 != 0 {
			return zygo.SexpNull, fmt.Errorf("ring: needs x y pairs, got %d coordinates", len(pa.positional))
		}
		if len(pa.positional) < 6 {
			return zygo.SexpNull, fmt.Errorf("ring: needs at least 3 vertices, got %d", len(pa.positional)/2)
		}
		ring := make(orb.Ring, 0, len(pa.positional)/2)
		for i := 0; i < len(pa.positional); i += 2 {
			x, err := toFloat64(pa.positional[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("ring: coordinate %d: %w", i, err)
			}
			y, err := toFloat64(pa.positional[i+1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("ring: coordinate %d: %w", i+1, err)
			}
			ring = append(ring, orb.Point{x, y})
		}
		return &sexpRing{ring: ring}, nil
	})

	// -----------------------------------------------------------------------
	// (node 4 0)  (node 4 0 :support :pinned)
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("node", argSpec{valued: set("support")}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("node: needs x and y, got %d arguments", len(pa.positional))
		}
		x, err := toFloat64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: x: %w", err)
		}
		y, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: y: %w", err)
		}
		var sup model.Support
		hasSup := false
		if v, ok := pa.kw["support"]; ok {
			sup, err = supportKind(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("node: support: %w", err)
			}
			hasSup = true
		}
		var id model.NodeID
		err = b.mutate(func(m *model.Model) error {
			n := m.AddNode(x, y)
			id = n.ID
			if hasSup {
				return m.SetSupport(n.ID, sup)
			}
			return nil
		})
		if err != nil {
			return zygo.SexpNull, err
		}
		return intSexp(int64(id)), nil
	})

	// -----------------------------------------------------------------------
	// (beam 1 2)  (beam 1 2 :profile "IPE 200" :material :steel)
	// -----------------------------------------------------------------------
	env.AddFunction("beam", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("beam", argSpec{valued: set("profile", "material")}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("beam: needs two node ids, got %d arguments", len(pa.positional))
		}
		n1, err := toInt64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("beam: start node: %w", err)
		}
		n2, err := toInt64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("beam: end node: %w", err)
		}
		sec, err := sectionFor(catalog.DefaultProfile)
		if err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["profile"]; ok {
			sec, err = sectionArg(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("beam: profile: %w", err)
			}
		}
		materialID := catalog.DefaultMaterial
		if v, ok := pa.kw["material"]; ok {
			materialID, err = materialArg(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("beam: material: %w", err)
			}
		}
		var id model.BeamID
		err = b.mutate(func(m *model.Model) error {
			el, err := m.AddBeam(model.NodeID(n1), model.NodeID(n2), materialID, sec)
			if err != nil {
				return err
			}
			id = el.ID
			return nil
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("beam: %w", err)
		}
		return intSexp(int64(id)), nil
	})

	// -----------------------------------------------------------------------
	// (support 3 :fixed)  (support 3 :kx 5e6 :ky 5e6 :kr 2e5)
	// -----------------------------------------------------------------------
	env.AddFunction("support", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("support", argSpec{
			flags:  set("free", "pinned", "roller", "roller-x", "fixed"),
			valued: set("kx", "ky", "kr"),
		}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("support: needs a node id, got %d arguments", len(pa.positional))
		}
		nid, err := toInt64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("support: node: %w", err)
		}
		var sup model.Support
		kinds := 0
		for kind, s := range supportKinds {
			if pa.flags[kind] {
				sup = s
				kinds++
			}
		}
		if kinds > 1 {
			return zygo.SexpNull, fmt.Errorf("support: more than one kind given")
		}
		springs := false
		if v, ok := pa.kw["kx"]; ok {
			sup.KX, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("support: kx: %w", err)
			}
			springs = true
		}
		if v, ok := pa.kw["ky"]; ok {
			sup.KY, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("support: ky: %w", err)
			}
			springs = true
		}
		if v, ok := pa.kw["kr"]; ok {
			sup.KR, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("support: kr: %w", err)
			}
			springs = true
		}
		if kinds == 0 && !springs {
			return zygo.SexpNull, fmt.Errorf("support: needs a kind (:pinned, :roller, :roller-x, :fixed, :free) or spring stiffnesses")
		}
		err = b.mutate(func(m *model.Model) error {
			return m.SetSupport(model.NodeID(nid), sup)
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("support: %w", err)
		}
		return intSexp(nid), nil
	})

	// -----------------------------------------------------------------------
	// (release 5 :start)  (release 5 :both)
	// -----------------------------------------------------------------------
	env.AddFunction("release", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("release", argSpec{flags: set("start", "end", "both")}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("release: needs a beam id, got %d arguments", len(pa.positional))
		}
		bid, err := toInt64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("release: beam: %w", err)
		}
		start := pa.flags["start"] || pa.flags["both"]
		end := pa.flags["end"] || pa.flags["both"]
		if !start && !end {
			return zygo.SexpNull, fmt.Errorf("release: needs :start, :end, or :both")
		}
		err = b.mutate(func(m *model.Model) error {
			el, err := m.Beam(model.BeamID(bid))
			if err != nil {
				return err
			}
			sc, ec := el.StartConn, el.EndConn
			if start {
				sc = model.ConnHinge
			}
			if end {
				ec = model.ConnHinge
			}
			return m.SetBeamConns(el.ID, sc, ec)
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("release: %w", err)
		}
		return intSexp(bid), nil
	})

	// -----------------------------------------------------------------------
	// (point-load 2 :fx 10e3 :fy -5e3)
	//
	// Note: registered as "point_load" because zygomys does not support
	// hyphens in identifiers. The preprocessor rewrites the hyphenated
	// name in source; the same goes for dist-load and load-case.
	// -----------------------------------------------------------------------
	env.AddFunction("point_load", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("point-load", argSpec{valued: set("fx", "fy", "mz")}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("point-load: needs a node id, got %d arguments", len(pa.positional))
		}
		nid, err := toInt64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point-load: node: %w", err)
		}
		var fx, fy, mz float64
		if v, ok := pa.kw["fx"]; ok {
			fx, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("point-load: fx: %w", err)
			}
		}
		if v, ok := pa.kw["fy"]; ok {
			fy, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("point-load: fy: %w", err)
			}
		}
		if v, ok := pa.kw["mz"]; ok {
			mz, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("point-load: mz: %w", err)
			}
		}
		var id model.LoadID
		err = b.mutate(func(m *model.Model) error {
			pl, err := m.AddCasePointLoad(b.active, model.NodeID(nid), fx, fy, mz)
			if err != nil {
				return err
			}
			id = pl.ID
			return nil
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point-load: %w", err)
		}
		return intSexp(int64(id)), nil
	})

	// -----------------------------------------------------------------------
	// (dist-load 4 :qy -12e3)
	// (dist-load 4 :qy -12e3 :qy-end -4e3 :start-t 0.25 :end-t 0.75 :coord :global)
	// -----------------------------------------------------------------------
	env.AddFunction("dist_load", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("dist-load", argSpec{
			valued: set("qx", "qy", "qx-end", "qy-end", "start-t", "end-t", "coord"),
		}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("dist-load: needs a beam id, got %d arguments", len(pa.positional))
		}
		bid, err := toInt64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dist-load: beam: %w", err)
		}
		l := model.DistributedLoad{BeamID: model.BeamID(bid), StartT: 0, EndT: 1}
		if v, ok := pa.kw["qx"]; ok {
			l.QX, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("dist-load: qx: %w", err)
			}
		}
		if v, ok := pa.kw["qy"]; ok {
			l.QY, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("dist-load: qy: %w", err)
			}
		}
		if v, ok := pa.kw["qx-end"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("dist-load: qx-end: %w", err)
			}
			l.QXEnd = &f
		}
		if v, ok := pa.kw["qy-end"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("dist-load: qy-end: %w", err)
			}
			l.QYEnd = &f
		}
		if v, ok := pa.kw["start-t"]; ok {
			l.StartT, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("dist-load: start-t: %w", err)
			}
		}
		if v, ok := pa.kw["end-t"]; ok {
			l.EndT, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("dist-load: end-t: %w", err)
			}
		}
		if v, ok := pa.kw["coord"]; ok {
			l.CoordSystem, err = toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("dist-load: coord: %w", err)
			}
		}
		var id model.LoadID
		err = b.mutate(func(m *model.Model) error {
			dl, err := m.AddDistributedLoad(b.active, l)
			if err != nil {
				return err
			}
			id = dl.ID
			return nil
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dist-load: %w", err)
		}
		return intSexp(int64(id)), nil
	})

	// -----------------------------------------------------------------------
	// (load-case "wind west" :wind)
	//
	// Later loads attach to the newest case until another load-case runs.
	// -----------------------------------------------------------------------
	env.AddFunction("load_case", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("load-case", argSpec{
			flags: set("permanent", "live", "wind", "snow", "other"),
		}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("load-case: needs a name, got %d arguments", len(pa.positional))
		}
		caseName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load-case: name: %w", err)
		}
		cat := model.CategoryOther
		count := 0
		for _, c := range []string{"permanent", "live", "wind", "snow", "other"} {
			if pa.flags[c] {
				cat = model.LoadCategory(c)
				count++
			}
		}
		if count > 1 {
			return zygo.SexpNull, fmt.Errorf("load-case: more than one category given")
		}
		var id model.LoadCaseID
		err = b.mutate(func(m *model.Model) error {
			lc, err := m.AddLoadCase(caseName, cat)
			if err != nil {
				return err
			}
			id = lc.ID
			return nil
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load-case: %w", err)
		}
		b.active = id
		return intSexp(int64(id)), nil
	})

	// -----------------------------------------------------------------------
	// (plate (ring 0 0 6 0 6 4 0 4) :mesh 0.5 :thickness 0.2 :material :concrete)
	// -----------------------------------------------------------------------
	env.AddFunction("plate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("plate", argSpec{valued: set("mesh", "thickness", "material")}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("plate: needs an outline ring, got %d arguments", len(pa.positional))
		}
		outline, err := toRing(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plate: outline: %w", err)
		}
		mesh := 0.5
		if v, ok := pa.kw["mesh"]; ok {
			mesh, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plate: mesh: %w", err)
			}
		}
		thickness := 0.2
		if v, ok := pa.kw["thickness"]; ok {
			thickness, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plate: thickness: %w", err)
			}
		}
		materialID := "C25/30"
		if v, ok := pa.kw["material"]; ok {
			materialID, err = materialArg(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plate: material: %w", err)
			}
		}
		kind := model.RegionPolygon
		if isAxisAlignedRect(outline) {
			kind = model.RegionRectangular
		}
		var id model.RegionID
		err = b.mutate(func(m *model.Model) error {
			r, err := m.AddRegion(kind, outline, nil, mesh, thickness, materialID)
			if err != nil {
				return err
			}
			id = r.ID
			return nil
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plate: %w", err)
		}
		return intSexp(int64(id)), nil
	})

	// -----------------------------------------------------------------------
	// (void 1 (ring 2 1 4 1 4 3 2 3))
	// -----------------------------------------------------------------------
	env.AddFunction("void", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("void", argSpec{}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("void: needs a region id and a ring, got %d arguments", len(pa.positional))
		}
		rid, err := toInt64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("void: region: %w", err)
		}
		hole, err := toRing(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("void: %w", err)
		}
		err = b.mutate(func(m *model.Model) error {
			r, err := m.Region(model.RegionID(rid))
			if err != nil {
				return err
			}
			voids := append(append([]orb.Ring(nil), r.Voids...), hole)
			return m.UpdateRegionContour(r.ID, r.Outline, voids)
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("void: %w", err)
		}
		return intSexp(rid), nil
	})

	// -----------------------------------------------------------------------
	// (split 4 0.25)
	// -----------------------------------------------------------------------
	env.AddFunction("split", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("split", argSpec{}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("split: needs a beam id and a position, got %d arguments", len(pa.positional))
		}
		bid, err := toInt64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split: beam: %w", err)
		}
		t, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split: position: %w", err)
		}
		var nodeID model.NodeID
		err = b.mutate(func(m *model.Model) error {
			sn, err := m.SplitBeamAt(model.BeamID(bid), t)
			if err != nil {
				return err
			}
			nodeID = sn.NodeID
			return nil
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split: %w", err)
		}
		return intSexp(int64(nodeID)), nil
	})

	// -----------------------------------------------------------------------
	// (remesh 1)
	// -----------------------------------------------------------------------
	env.AddFunction("remesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("remesh", argSpec{}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("remesh: needs a region id, got %d arguments", len(pa.positional))
		}
		rid, err := toInt64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remesh: region: %w", err)
		}
		// Remesh locks the session itself, so only the stop check goes
		// through the builder.
		if err := b.checkStop(); err != nil {
			return zygo.SexpNull, err
		}
		orphans, err := b.sess.Remesh(model.RegionID(rid))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remesh: %w", err)
		}
		if len(orphans) > 0 {
			b.warnf("remesh %d orphaned %d load(s): %v", rid, len(orphans), orphans)
		}
		return intSexp(rid), nil
	})

	// -----------------------------------------------------------------------
	// (structure :portal-frame :span 6 :height 3.5)
	// (structure :truss :span 12 :panels 6 :profile "HEA 140")
	// -----------------------------------------------------------------------
	env.AddFunction("structure", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("structure", argSpec{
			flags:  set("simply-supported", "cantilever", "portal-frame", "truss", "continuous-beam"),
			valued: set("span", "height", "panels", "spans", "profile", "material"),
		}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		tmpl := ""
		for _, t := range []string{"simply-supported", "cantilever", "portal-frame", "truss", "continuous-beam"} {
			if !pa.flags[t] {
				continue
			}
			if tmpl != "" {
				return zygo.SexpNull, fmt.Errorf("structure: more than one template given")
			}
			tmpl = t
		}
		if tmpl == "" {
			return zygo.SexpNull, fmt.Errorf("structure: needs a template (:simply-supported, :cantilever, :portal-frame, :truss, :continuous-beam)")
		}
		p := templateParams{span: 6, height: 3, panels: 4, spans: 2}
		if v, ok := pa.kw["span"]; ok {
			p.span, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("structure: span: %w", err)
			}
		}
		if v, ok := pa.kw["height"]; ok {
			p.height, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("structure: height: %w", err)
			}
		}
		if v, ok := pa.kw["panels"]; ok {
			n, err := toInt64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("structure: panels: %w", err)
			}
			p.panels = int(n)
		}
		if v, ok := pa.kw["spans"]; ok {
			n, err := toInt64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("structure: spans: %w", err)
			}
			p.spans = int(n)
		}
		p.material = catalog.DefaultMaterial
		if v, ok := pa.kw["material"]; ok {
			p.material, err = materialArg(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("structure: material: %w", err)
			}
		}
		p.section, err = sectionFor(catalog.DefaultProfile)
		if err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["profile"]; ok {
			p.section, err = sectionArg(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("structure: profile: %w", err)
			}
		}
		err = b.mutate(func(m *model.Model) error {
			return buildTemplate(m, tmpl, p)
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("structure: %w", err)
		}
		return zygo.SexpNull, nil
	})
}
