package radio

import "errors"

var (
	// ErrConfig is fatal and only produced while constructing the engine:
	// empty source chain, empty vote candidate seed, malformed catalog.
	ErrConfig = errors.New("radio: invalid configuration")

	// ErrNoResults means a source returned nothing usable for a tag.
	ErrNoResults = errors.New("radio: no results")

	// ErrTimeout means a source exceeded its search deadline. Resolution
	// treats it exactly like ErrNoResults.
	ErrTimeout = errors.New("radio: source timeout")

	// ErrUnavailable means a source failed transport- or quota-wise.
	ErrUnavailable = errors.New("radio: source unavailable")

	// ErrEmptyCatalog means the whole chain, including every fallback tag,
	// produced no playable candidate. Recoverable: the cycle is skipped.
	ErrEmptyCatalog = errors.New("radio: catalog exhausted")

	// ErrInvalidState rejects a command whose precondition does not hold.
	// No state is mutated; the message goes back to the caller only.
	ErrInvalidState = errors.New("radio: command not valid in current state")
)
