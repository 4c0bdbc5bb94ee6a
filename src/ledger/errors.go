package ledger

import "errors"

// Domain errors. Callers discriminate with errors.Is; messages carry the
// concrete amounts involved.
var (
	// ErrInvalidInput rejects non-positive quantities, prices or rates
	// before any state change.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientShares means a sale or reservation asked for more
	// than is sellable/reservable. Nothing was changed.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrInconsistent is an internal invariant violation, e.g. a FIFO
	// walk that cannot satisfy a sale already validated as sellable.
	// This is a defect, not a user error; do not retry.
	ErrInconsistent = errors.New("inconsistent lot state")
)
