package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a named outcome, follow-up, group, study, or
// covariate does not exist in its owning collection.
type ErrNotFound struct {
	Kind EntityKind
	Name string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// ErrDuplicate is returned when adding an entity whose name already exists.
type ErrDuplicate struct {
	Kind EntityKind
	Name string
}

func (e ErrDuplicate) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Name)
}

// ErrInvalidArgument is returned for inconsistent operation parameters, such
// as a rename scoped to a follow-up without naming its outcome.
type ErrInvalidArgument struct {
	Reason string
}

func (e ErrInvalidArgument) Error() string {
	return "invalid argument: " + e.Reason
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var target ErrNotFound
	return errors.As(err, &target)
}

// IsDuplicate reports whether err is an ErrDuplicate.
func IsDuplicate(err error) bool {
	var target ErrDuplicate
	return errors.As(err, &target)
}

// IsInvalidArgument reports whether err is an ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	var target ErrInvalidArgument
	return errors.As(err, &target)
}
