package game

import "errors"

// Player-facing failures. Every one of these degrades to an ERROR event on
// the originating client; none of them mutates state.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidOwnership   = errors.New("invalid ownership")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrWrongPhase         = errors.New("command not legal in current phase")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrUnknownProperty    = errors.New("unknown property")
	ErrInvalidBid         = errors.New("invalid bid")
	ErrNoActiveTrade      = errors.New("no active trade")
	ErrTableFull          = errors.New("table is full")
	ErrAlreadyStarted     = errors.New("game already started")
	ErrNotStarted         = errors.New("game not started")
	ErrWrongPassword      = errors.New("wrong table password")
)
