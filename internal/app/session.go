package app

import (
	"fmt"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

// SessionState is the lifecycle position of one participant's attempt.
type SessionState int

const (
	StateJoining SessionState = iota
	StateInProgress
	StateSubmitting
	StateCompleted
	StateAbandoned
)

func (s SessionState) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateInProgress:
		return "in_progress"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Session drives one participant through a quiz: join, answer loop, submit.
// It belongs to exactly one participant's connection and is never shared or
// migrated; all mutation goes through its methods.
type Session struct {
	id   string
	quiz domain.Quiz
	now  func() time.Time

	mu         sync.Mutex
	name       string
	state      SessionState
	cursor     int
	answers    []domain.Answer
	pending    int
	hasPending bool
	startedAt  time.Time
	deadline   time.Time
	lastActive time.Time
	result     domain.Response
}

func newSession(id string, quiz domain.Quiz, now func() time.Time) *Session {
	return &Session{
		id:         id,
		quiz:       quiz,
		now:        now,
		state:      StateJoining,
		lastActive: now(),
	}
}

// NewSessionWithClock is exported for tests that need deterministic time.
func NewSessionWithClock(id string, quiz domain.Quiz, now func() time.Time) *Session {
	return newSession(id, quiz, now)
}

func (s *Session) ID() string     { return s.id }
func (s *Session) QuizID() string { return s.quiz.ID }
func (s *Session) Quiz() domain.Quiz { return s.quiz }

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive reports when the session was last touched by its participant,
// for idle sweeping.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// join moves Joining → InProgress, captures the start timestamp and arms the
// deadline for timed quizzes. The name must already be trimmed and non-empty.
func (s *Session) join(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateJoining {
		return fmt.Errorf("%w: join in state %s", domain.ErrSessionState, s.state)
	}
	now := s.now()
	s.name = name
	s.startedAt = now
	if s.quiz.DurationSeconds > 0 {
		s.deadline = now.Add(time.Duration(s.quiz.DurationSeconds) * time.Second)
	}
	s.state = StateInProgress
	s.lastActive = now
	return nil
}

// Current returns the question at the cursor together with its index and the
// question count. ok is false outside the answer loop.
func (s *Session) Current() (q domain.Question, index, total int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || s.cursor >= len(s.quiz.Questions) {
		return domain.Question{}, 0, len(s.quiz.Questions), false
	}
	return s.quiz.Questions[s.cursor], s.cursor, len(s.quiz.Questions), true
}

// Select records the pending answer for the current question without
// advancing the cursor. Selecting again overwrites the previous choice.
func (s *Session) Select(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return fmt.Errorf("%w: select in state %s", domain.ErrSessionState, s.state)
	}
	if s.expiredLocked() {
		return domain.ErrTimeUp
	}
	question := s.quiz.Questions[s.cursor]
	if index < 0 || index >= len(question.Options) {
		return fmt.Errorf("%w: option %d out of range for question %q", domain.ErrValidation, index, question.ID)
	}
	s.pending = index
	s.hasPending = true
	s.lastActive = s.now()
	return nil
}

// Next finalizes the pending answer and advances the cursor, moving to
// Submitting after the last question. Without a pending answer it fails with
// ErrIncompleteAnswer and changes nothing.
func (s *Session) Next() (submitting bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		// A previous submission attempt failed; the answers are complete.
		return true, nil
	case StateInProgress:
	default:
		return false, fmt.Errorf("%w: next in state %s", domain.ErrSessionState, s.state)
	}
	if s.expiredLocked() {
		s.expireLocked()
		return true, nil
	}
	if !s.hasPending {
		return false, domain.ErrIncompleteAnswer
	}
	s.answers = append(s.answers, domain.Answer{
		QuestionID:    s.quiz.Questions[s.cursor].ID,
		SelectedIndex: s.pending,
	})
	s.hasPending = false
	s.cursor++
	s.lastActive = s.now()
	if s.cursor == len(s.quiz.Questions) {
		s.state = StateSubmitting
		return true, nil
	}
	return false, nil
}

// Expired reports whether a timed session has run out of time while still in
// the answer loop.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateInProgress && s.expiredLocked()
}

func (s *Session) expiredLocked() bool {
	return !s.deadline.IsZero() && s.now().After(s.deadline)
}

// expireLocked closes out a timed-out answer loop: the pending selection (if
// any) counts for the current question, every remaining question is recorded
// as Unanswered, and the session moves to Submitting.
func (s *Session) expireLocked() {
	if s.hasPending {
		s.answers = append(s.answers, domain.Answer{
			QuestionID:    s.quiz.Questions[s.cursor].ID,
			SelectedIndex: s.pending,
		})
		s.hasPending = false
		s.cursor++
	}
	for ; s.cursor < len(s.quiz.Questions); s.cursor++ {
		s.answers = append(s.answers, domain.Answer{
			QuestionID:    s.quiz.Questions[s.cursor].ID,
			SelectedIndex: domain.Unanswered,
		})
	}
	s.state = StateSubmitting
	s.lastActive = s.now()
}

// Expire forces a timed-out session into Submitting. No-op unless the
// session is in the answer loop past its deadline.
func (s *Session) Expire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || !s.expiredLocked() {
		return false
	}
	s.expireLocked()
	return true
}

// buildResponse snapshots the session into an unappended response. Only
// valid in Submitting.
func (s *Session) buildResponse(score int) (domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		return domain.Response{}, fmt.Errorf("%w: submit in state %s", domain.ErrSessionState, s.state)
	}
	now := s.now()
	taken := int(now.Sub(s.startedAt).Round(time.Second) / time.Second)
	if taken < 0 {
		taken = 0
	}
	answers := make([]domain.Answer, len(s.answers))
	copy(answers, s.answers)
	return domain.Response{
		QuizID:           s.quiz.ID,
		Name:             s.name,
		Score:            score,
		TimeTakenSeconds: taken,
		SubmittedAt:      now,
		Answers:          answers,
	}, nil
}

// Answers returns a copy of the finalized answers so far.
func (s *Session) Answers() []domain.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make([]domain.Answer, len(s.answers))
	copy(answers, s.answers)
	return answers
}

// complete moves Submitting → Completed once the ledger append succeeded.
func (s *Session) complete(result domain.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		return
	}
	s.state = StateCompleted
	s.result = result
	s.lastActive = s.now()
}

// Result returns the final response after completion.
func (s *Session) Result() (domain.Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.state == StateCompleted
}

// Abandon terminates the session without producing a response. Terminal
// states are left untouched.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCompleted || s.state == StateAbandoned {
		return
	}
	s.state = StateAbandoned
	s.lastActive = s.now()
}
