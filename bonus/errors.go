package bonus

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPolicy     = errors.New("invalid bonus policy")
	ErrPolicyNotFound    = errors.New("bonus policy not found")
	ErrPolicyInactive    = errors.New("bonus policy is inactive")
	ErrBatchNotFound     = errors.New("bonus batch not found")
	ErrBatchExists       = errors.New("bonus batch already exists")
	ErrRecordNotFound    = errors.New("bonus record not found")
	ErrInvalidTransition = errors.New("invalid bonus batch status transition")
	ErrBatchLocked       = errors.New("bonus batch is no longer pending")
	ErrInvalidRange      = errors.New("start month cannot be after end month")
	ErrNoResults         = errors.New("could not calculate bonus for any employee")
)

// PolicyError lists every problem found in a policy.
type PolicyError struct {
	Problems []string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("invalid bonus policy: %s", strings.Join(e.Problems, ", "))
}

func (e *PolicyError) Unwrap() error { return ErrInvalidPolicy }

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, ErrPolicyInactive) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrBatchLocked) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrNoResults)
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrBatchNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}
