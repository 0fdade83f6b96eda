package model

import "fmt"

// DanglingReferenceError reports an operation given an id that does not
// resolve to a live entity, either never issued or already removed. It is
// always returned as a typed failure, never swallowed into a silent no-op.
type DanglingReferenceError struct {
	Entity string // "node", "beam", "surface", "region", "edge", "subnode", "load case"
	ID     int64
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("stale %s id %d", e.Entity, e.ID)
}

func danglingNode(id NodeID) error { return &DanglingReferenceError{Entity: "node", ID: int64(id)} }
func danglingBeam(id BeamID) error { return &DanglingReferenceError{Entity: "beam", ID: int64(id)} }
func danglingRegion(id RegionID) error {
	return &DanglingReferenceError{Entity: "region", ID: int64(id)}
}
func danglingSurface(id SurfaceID) error {
	return &DanglingReferenceError{Entity: "surface", ID: int64(id)}
}
func danglingSubNode(id SubNodeID) error {
	return &DanglingReferenceError{Entity: "subnode", ID: int64(id)}
}
func danglingCase(id LoadCaseID) error {
	return &DanglingReferenceError{Entity: "load case", ID: int64(id)}
}

// ValidationSeverity indicates whether a finding blocks the mutation or is
// merely advisory.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks the mutation
	SeverityWarning                           // advisory
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single geometry validation finding. Findings
// are produced before any mutation reaches the store; a rejected edit leaves
// the committed state untouched.
type ValidationError struct {
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
}

// ContourError bundles the blocking findings of a contour validation into a
// single error value.
type ContourError struct {
	Findings []ValidationError
}

func (e *ContourError) Error() string {
	if len(e.Findings) == 1 {
		return "invalid contour: " + e.Findings[0].Message
	}
	return fmt.Sprintf("invalid contour: %d findings, first: %s", len(e.Findings), e.Findings[0].Message)
}
