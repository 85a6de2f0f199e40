package play

import (
	"errors"
	"fmt"
	"time"
)

type Kind int

const (
	// Exhaustion is a temporary shortage the player can wait out.
	Exhaustion Kind = iota
	Validation
	State
	Unauthorized
	// Integrity means stored data broke an invariant.
	Integrity
)

func (k Kind) String() string {
	switch k {
	case Exhaustion:
		return "exhaustion"
	case Validation:
		return "validation"
	case State:
		return "state"
	case Unauthorized:
		return "unauthorized"
	case Integrity:
		return "integrity"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	ErrNoEnergy     = errors.New("not enough energy")
	ErrNoGames      = errors.New("no games available")
	ErrNoWordCards  = errors.New("not enough word cards to deal a card set")
	ErrSpamCooldown = errors.New("too many guesses, cooling down")

	ErrInvalidClue = errors.New("invalid clue")

	ErrNoAssignment = errors.New("no game assigned")
	ErrNoCardSet    = errors.New("no card set assigned")
	ErrGameNotFound = errors.New("game not found")
	ErrEmailTaken   = errors.New("email already registered")

	ErrInvalidCredentials = errors.New("wrong email or password")

	ErrCorrupt = errors.New("stored game data is inconsistent")
)

type Error struct {
	Kind Kind
	// RetryAt is when an exhausted resource is expected back, if known.
	RetryAt *time.Time
	msg     string
	err     error
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.err.Error()
	}
	return e.msg + ": " + e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(kind Kind, err error, format string, args ...interface{}) error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

func exhausted(sentinel error, retryAt *time.Time) error {
	return &Error{Kind: Exhaustion, RetryAt: retryAt, err: sentinel}
}

func invalid(format string, args ...interface{}) error {
	return newError(Validation, ErrInvalidClue, format, args...)
}

func wrongState(sentinel error) error {
	return &Error{Kind: State, err: sentinel}
}

func corrupt(err error) error {
	return &Error{Kind: Integrity, err: fmt.Errorf("%w: %w", ErrCorrupt, err)}
}

// KindOf reports the kind of a play error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var perr *Error
	if !errors.As(err, &perr) {
		return 0, false
	}
	return perr.Kind, true
}

// RetryAt returns the retry time carried by err, if any.
func RetryAt(err error) *time.Time {
	var perr *Error
	if !errors.As(err, &perr) {
		return nil
	}
	return perr.RetryAt
}
