package accounts

import "fmt"

// CycleError reports a header that is its own ancestor.
type CycleError struct {
	HeaderID int64
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("header #%d is part of a parent cycle", e.HeaderID)
}

// InUseError reports a chart node that cannot be removed or changed while
// something depends on it.
type InUseError struct {
	Resource string
	ID       int64
	Reason   string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s #%d is in use: %s", e.Resource, e.ID, e.Reason)
}

// DuplicateSlugError reports a slug already taken by another node.
type DuplicateSlugError struct {
	Resource string
	Slug     string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("%s slug %q already exists", e.Resource, e.Slug)
}
