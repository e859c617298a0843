package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz definition could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrResponseNotFound indicates a response id is not in the ledger.
	ErrResponseNotFound = errors.New("response not found")
	// ErrSessionNotFound is returned when acting on an unknown session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidQuizDefinition marks a structurally broken quiz. Fatal for
	// that quiz, never retried.
	ErrInvalidQuizDefinition = errors.New("invalid quiz definition")
	// ErrValidation covers bad participant input (empty name, out-of-range
	// option). Retryable by correcting the input.
	ErrValidation = errors.New("validation failed")
	// ErrIncompleteAnswer is returned by next() when no option has been
	// selected for the current question.
	ErrIncompleteAnswer = errors.New("no answer selected for current question")
	// ErrSubmission wraps a ledger append failure after retries. The session
	// keeps its answers and stays in Submitting so the caller can retry.
	ErrSubmission = errors.New("submission failed")
	// ErrSessionState is returned when an operation does not apply to the
	// session's current state.
	ErrSessionState = errors.New("operation not allowed in current session state")
	// ErrQuizNotActive is returned when joining a quiz the teacher has not
	// started yet.
	ErrQuizNotActive = errors.New("quiz not active")
	// ErrQuizEnded is returned when joining or submitting to an ended quiz.
	ErrQuizEnded = errors.New("quiz ended")
	// ErrTimeUp is returned when a timed session acts after its deadline.
	// The next advance auto-submits with the remaining questions unanswered.
	ErrTimeUp = errors.New("quiz time is up")
	// ErrStatusTransition is returned for an illegal lifecycle transition.
	ErrStatusTransition = errors.New("illegal quiz status transition")
)
