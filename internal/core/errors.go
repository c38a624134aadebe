package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRule reports a redex whose tag pair matches no interaction rule.
	// Always an upstream defect in net construction, never user-correctable.
	ErrNoRule = errors.New("core: no interaction rule for port pair")

	// ErrUndefinedRef reports a dereference of a definition id absent from
	// the book. Evaluation must abort; the net is left unmutated.
	ErrUndefinedRef = errors.New("core: undefined reference")

	// ErrMalformedNet reports a rewrite that found the net in a state the
	// rule's preconditions exclude, such as annihilating nodes of unequal
	// arity or an operator-less numeral pair.
	ErrMalformedNet = errors.New("core: malformed net")

	// ErrArenaFull reports node-store exhaustion. Distinct from defects so
	// a driver can back off submission instead of aborting.
	ErrArenaFull = errors.New("core: node arena full")

	// ErrBadConfig reports invalid net construction parameters.
	ErrBadConfig = errors.New("core: invalid net configuration")
)

// InvariantError carries the offending port pair and the rule that was being
// attempted when an invariant violation was detected.
type InvariantError struct {
	A, B   Port
	Rule   Rule
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("core: invariant violation applying %s to (%s, %s): %s",
		e.Rule, e.A, e.B, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	if e.Reason == "no applicable rule" {
		return ErrNoRule
	}
	return ErrMalformedNet
}
