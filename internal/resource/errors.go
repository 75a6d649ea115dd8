package resource

import "fmt"

// DuplicateNameError reports a resource name declared more than once
// within one container.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("resource %q already declared", e.Name)
}

// UnknownResourceError reports a selection naming a resource the
// container does not hold.
type UnknownResourceError struct {
	Name string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown resource %q", e.Name)
}

// NotVerifiedError reports an install attempted before a successful
// verify.
type NotVerifiedError struct {
	Name string
}

func (e *NotVerifiedError) Error() string {
	return fmt.Sprintf("resource %q is not verified; fetch it first", e.Name)
}

// DestinationRequiredError reports an install with no destination
// directory.
type DestinationRequiredError struct {
	Name string
}

func (e *DestinationRequiredError) Error() string {
	return fmt.Sprintf("destination is required for install of %q", e.Name)
}
