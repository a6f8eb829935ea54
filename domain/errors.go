package domain

import "fmt"

// ErrNotFound is returned by operations that require a targeted record to
// exist when no record satisfies the criteria. Filtered bulk operations never
// return it; absence there yields a zero count.
type ErrNotFound struct {
	Model   string
	Locator string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("no record found in %s for uri %s", e.Model, e.Locator)
}

// ErrConnectionNotEstablished is returned when an operation requiring an
// active store handle runs before the connection completes. Lifecycle
// operations defer instead of failing.
type ErrConnectionNotEstablished struct {
	Op string
}

func (e *ErrConnectionNotEstablished) Error() string {
	return fmt.Sprintf("connection not established, cannot run %s", e.Op)
}

// ErrMissingLocator is returned by Save when the record carries no locator in
// its identity field. Save replaces an existing document; Create is the
// operation for new ones.
type ErrMissingLocator struct {
	Model string
}

func (e *ErrMissingLocator) Error() string {
	return fmt.Sprintf("record for %s carries no uri, use Create for new records", e.Model)
}

// ErrBadSortEntry is returned when a sort entry carries a direction token that
// is neither ASC nor DESC.
type ErrBadSortEntry struct {
	Entry string
}

func (e *ErrBadSortEntry) Error() string {
	return fmt.Sprintf("cannot parse sort entry %q, expected \"field\", \"field ASC\" or \"field DESC\"", e.Entry)
}
