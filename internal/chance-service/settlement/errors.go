package settlement

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPersistence         = errors.New("persistence failure")
	ErrDuplicateSubmission = errors.New("duplicate submission")

	ErrRoundActive     = errors.New("round already active")
	ErrNoActiveRound   = errors.New("no active round")
	ErrCashOutTooEarly = errors.New("cash-out before minimum round duration")
	ErrRoundCrashed    = errors.New("round already crashed")
	ErrWrongGame       = errors.New("operation not valid for this game")
	ErrInvalidBox      = errors.New("invalid box")
	ErrSessionClosed   = errors.New("session closed")
)
