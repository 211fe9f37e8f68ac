package imposition

import (
	"errors"
	"fmt"
)

// ConfigError is a rejected configuration value.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// AmbiguousNamingError means no page number could be derived consistently
// from the file names.
type AmbiguousNamingError struct {
	Name   string
	Reason string
}

func (e *AmbiguousNamingError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("ambiguous page naming: %s", e.Reason)
	}
	return fmt.Sprintf("ambiguous page naming at %s: %s", e.Name, e.Reason)
}

// DuplicateKeyError means two files resolve to the same page number.
type DuplicateKeyError struct {
	Key    int
	First  string
	Second string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate page number %d: %s and %s", e.Key, e.First, e.Second)
}

// InsufficientPagesError means fewer than four pages are left to bind.
type InsufficientPagesError struct {
	Count int
}

func (e *InsufficientPagesError) Error() string {
	return fmt.Sprintf("not enough pages to bind: %d (need at least 4)", e.Count)
}

// InvalidSpreadPlacementError means a split spread would land on the front
// or back face of the booklet.
type InvalidSpreadPlacementError struct {
	Position int
	Total    int
}

func (e *InvalidSpreadPlacementError) Error() string {
	where := "first"
	if e.Position != 0 {
		where = "last"
	}
	return fmt.Sprintf("double page at position %d of %d would be the %s page", e.Position, e.Total, where)
}

// UnresolvableBindingError means the page count could not be brought to a
// multiple of four within the allowed additions and removals.
type UnresolvableBindingError struct {
	Count   int
	Added   int
	Removed int
}

func (e *UnresolvableBindingError) Error() string {
	return fmt.Sprintf("page count %d is not divisible by 4 after adding %d and removing %d pages", e.Count, e.Added, e.Removed)
}

// PageFailure records a page that could not be processed by a stage.
type PageFailure struct {
	Stage string
	Name  string
	Err   error
}

func (f PageFailure) Error() string { return fmt.Sprintf("%s: %s: %v", f.Stage, f.Name, f.Err) }

func (f PageFailure) Unwrap() error { return f.Err }

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// IsNamingError reports whether err comes from page-number extraction.
func IsNamingError(err error) bool {
	var ambErr *AmbiguousNamingError
	var dupErr *DuplicateKeyError
	return errors.As(err, &ambErr) || errors.As(err, &dupErr)
}

// IsBindingError reports whether err is a binding-constraint violation.
func IsBindingError(err error) bool {
	var insErr *InsufficientPagesError
	var placeErr *InvalidSpreadPlacementError
	var unresErr *UnresolvableBindingError
	return errors.As(err, &insErr) || errors.As(err, &placeErr) || errors.As(err, &unresErr)
}

// Hint returns remediation advice for domain errors, or "" for others.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConfigError(err):
		return "check the direction, paper size and page width settings"
	case IsNamingError(err):
		return "rename the files consistently: 001.png, p001.png or one 3-4 digit number per name"
	}
	var placeErr *InvalidSpreadPlacementError
	if errors.As(err, &placeErr) {
		return "a double page cannot be the cover or back page; reorder or remove it"
	}
	var insErr *InsufficientPagesError
	if errors.As(err, &insErr) {
		return "provide at least 4 pages"
	}
	var unresErr *UnresolvableBindingError
	if errors.As(err, &unresErr) {
		return "add or delete pages manually until the total is divisible by 4"
	}
	return ""
}
