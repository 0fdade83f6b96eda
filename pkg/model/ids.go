package model

// Typed entity ids. Ids are allocated from per-table monotonic counters and
// are never reused, so holding a stale id can always be detected: the lookup
// fails instead of silently resolving to a recycled slot. Zero is never a
// valid id.
type (
	NodeID     int64
	BeamID     int64
	SurfaceID  int64
	RegionID   int64
	EdgeID     int64
	SubNodeID  int64
	LoadCaseID int64
	LoadID     int64
)

// IsZero reports whether the id is the invalid zero value.
func (id NodeID) IsZero() bool { return id == 0 }
func (id BeamID) IsZero() bool { return id == 0 }
func (id SurfaceID) IsZero() bool { return id == 0 }
func (id RegionID) IsZero() bool { return id == 0 }
func (id EdgeID) IsZero() bool { return id == 0 }
func (id SubNodeID) IsZero() bool { return id == 0 }
func (id LoadCaseID) IsZero() bool { return id == 0 }
func (id LoadID) IsZero() bool { return id == 0 }
