package hierarchy

import (
	"errors"
	"fmt"
)

var (
	// ErrCategoryNotFound is returned when an operation names a
	// category that is not in the order list.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrSubCategoryNotFound is returned when an operation names a
	// sub-category that is not in its category's order list.
	ErrSubCategoryNotFound = errors.New("sub-category not found")

	// ErrItemNotFound is returned when an operation names an item id
	// that is not in the collection.
	ErrItemNotFound = errors.New("item not found")

	// ErrRefetchInFlight is returned when a refetch is requested
	// while a previous one is still outstanding.
	ErrRefetchInFlight = errors.New("refetch already in flight")

	// errNoChange signals that an operation was a defined no-op.
	// mutate swallows it: nothing is persisted and no event is
	// emitted.
	errNoChange = errors.New("no change")
)

// ValidationError reports an input the store refuses to apply:
// renaming onto a taken name, or reordering with a list that is not a
// permutation of the current membership. The hierarchy state is
// untouched when one is returned.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func validationf(op, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
