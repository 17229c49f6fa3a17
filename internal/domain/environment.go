package domain

import "slices"

// Environment is the mutable state shared by every controller of one window
// action instance: what is being searched, how it is grouped, and which
// record is current.
type Environment struct {
	Model     string
	Domain    Domain
	Context   Context
	GroupBy   []string
	CurrentID int64
	IDs       []int64
}

// Clone returns a copy controllers can keep without observing later changes.
func (e Environment) Clone() Environment {
	e.Domain = slices.Clone(e.Domain)
	e.Context = e.Context.Clone()
	e.GroupBy = slices.Clone(e.GroupBy)
	e.IDs = slices.Clone(e.IDs)
	return e
}

// EnvironmentPatch carries a partial update. Nil fields are left alone.
type EnvironmentPatch struct {
	Domain    Domain
	Context   Context
	GroupBy   []string
	CurrentID *int64
	IDs       []int64
}

// Apply merges p into e.
func (e *Environment) Apply(p EnvironmentPatch) {
	if p.Domain != nil {
		e.Domain = slices.Clone(p.Domain)
	}
	if p.Context != nil {
		e.Context = p.Context.Clone()
	}
	if p.GroupBy != nil {
		e.GroupBy = slices.Clone(p.GroupBy)
	}
	if p.CurrentID != nil {
		e.CurrentID = *p.CurrentID
	}
	if p.IDs != nil {
		e.IDs = slices.Clone(p.IDs)
	}
}
