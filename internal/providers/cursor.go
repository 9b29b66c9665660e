package providers

import "slices"

// UnknownTotal marks a group whose page count has not been discovered yet
const UnknownTotal = -1

// GroupProgress is the pagination progress of one source group
type GroupProgress struct {
	// Name is the namespace enumerated by this group (account owner or team)
	Name string `json:"name"`

	// Attempted is the number of pages already requested
	Attempted int `json:"attempted"`

	// TotalPages is the known page count, or UnknownTotal
	TotalPages int `json:"totalPages"`

	// Offset is the provider offset for the next request (offset based providers)
	Offset int `json:"offset"`
}

// Exhausted reports whether every page of the group was attempted
func (g GroupProgress) Exhausted() bool {
	return g.TotalPages != UnknownTotal && g.Attempted >= g.TotalPages
}

// Cursor is the per-account enumeration state. It is a value: adapters return
// an advanced copy instead of mutating their own fields, so a cursor belongs to
// exactly one ingestion pass.
type Cursor struct {
	// Initialized is set once the adapter discovered its source groups
	Initialized bool `json:"initialized"`

	// Groups are enumerated in order
	Groups []GroupProgress `json:"groups"`
}

// NewCursor returns an empty cursor
func NewCursor() Cursor {
	return Cursor{}
}

// Clone returns a deep copy of the cursor
func (c Cursor) Clone() Cursor {
	return Cursor{
		Initialized: c.Initialized,
		Groups:      slices.Clone(c.Groups),
	}
}

// Exhausted reports whether enumeration is complete
func (c Cursor) Exhausted() bool {
	if !c.Initialized {
		return false
	}
	for _, g := range c.Groups {
		if !g.Exhausted() {
			return false
		}
	}
	return true
}

// NextGroup returns the index of the first group that still has pages, or -1
func (c Cursor) NextGroup() int {
	for i, g := range c.Groups {
		if !g.Exhausted() {
			return i
		}
	}
	return -1
}

// PagesAttempted returns the total number of pages requested across groups
func (c Cursor) PagesAttempted() int {
	total := 0
	for _, g := range c.Groups {
		total += g.Attempted
	}
	return total
}

// singleGroupCursor initializes a cursor with one group for linear providers
func singleGroupCursor(c Cursor, name string) Cursor {
	if c.Initialized {
		return c.Clone()
	}
	return Cursor{
		Initialized: true,
		Groups:      []GroupProgress{{Name: name, TotalPages: UnknownTotal}},
	}
}
