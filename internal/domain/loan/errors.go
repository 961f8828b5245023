package loan

import "errors"

var (
	// ErrNotApplicable means the loan is outside the evaluator's state or time
	// window. It filters a result out; it is not a failure.
	ErrNotApplicable = errors.New("loan not applicable")

	ErrNotFound        = errors.New("loan not found")
	ErrRead            = errors.New("ledger read failed")
	ErrMalformedRecord = errors.New("malformed loan record")

	// Write outcomes.
	ErrUnauthorized   = errors.New("no authorized signer configured")
	ErrAlreadyHandled = errors.New("loan already in the requested state")
	ErrNotYetEligible = errors.New("loan not yet eligible for this transition")
)
