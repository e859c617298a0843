package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{ID: "q1", Prompt: "2 + 2?", Options: []string{"4", "5"}, CorrectIndex: 0},
			{ID: "q2", Prompt: "3 * 3?", Options: []string{"6", "9"}, CorrectIndex: 1},
		},
	}
}

func TestSessionAnswerLoop(t *testing.T) {
	clock := newFakeClock()
	s := newSession("s-1", testQuiz(), clock.Now)
	if err := s.join("Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if s.State() != StateInProgress {
		t.Fatalf("expected InProgress, got %s", s.State())
	}

	q, index, total, ok := s.Current()
	if !ok || q.ID != "q1" || index != 0 || total != 2 {
		t.Fatalf("unexpected current question %v %d/%d %v", q, index, total, ok)
	}

	if err := s.Select(0); err != nil {
		t.Fatalf("select: %v", err)
	}
	submitting, err := s.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if submitting {
		t.Fatalf("expected more questions")
	}

	q, index, _, _ = s.Current()
	if q.ID != "q2" || index != 1 {
		t.Fatalf("cursor did not advance: %v %d", q, index)
	}

	if err := s.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	submitting, err = s.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !submitting || s.State() != StateSubmitting {
		t.Fatalf("expected Submitting after last question, got %s", s.State())
	}

	answers := s.Answers()
	if len(answers) != 2 || answers[0].SelectedIndex != 0 || answers[1].SelectedIndex != 1 {
		t.Fatalf("unexpected answers %+v", answers)
	}
}

func TestSessionNextWithoutSelection(t *testing.T) {
	s := newSession("s-1", testQuiz(), newFakeClock().Now)
	if err := s.join("Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := s.Next(); !errors.Is(err, domain.ErrIncompleteAnswer) {
		t.Fatalf("expected ErrIncompleteAnswer, got %v", err)
	}
	if s.State() != StateInProgress {
		t.Fatalf("failed next must not change state, got %s", s.State())
	}
	if _, index, _, _ := s.Current(); index != 0 {
		t.Fatalf("failed next must not advance cursor")
	}
}

func TestSessionSelectOutOfRange(t *testing.T) {
	s := newSession("s-1", testQuiz(), newFakeClock().Now)
	if err := s.join("Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := s.Select(7); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := s.Select(-1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for negative index, got %v", err)
	}
}

func TestSessionSelectOverwritesPending(t *testing.T) {
	s := newSession("s-1", testQuiz(), newFakeClock().Now)
	if err := s.join("Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := s.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.Select(0); err != nil {
		t.Fatalf("re-select: %v", err)
	}
	if _, err := s.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := s.Answers()[0].SelectedIndex; got != 0 {
		t.Fatalf("expected latest selection to win, got %d", got)
	}
}

func TestSessionActionsBeforeJoin(t *testing.T) {
	s := newSession("s-1", testQuiz(), newFakeClock().Now)
	if err := s.Select(0); !errors.Is(err, domain.ErrSessionState) {
		t.Fatalf("expected ErrSessionState, got %v", err)
	}
	if _, err := s.Next(); !errors.Is(err, domain.ErrSessionState) {
		t.Fatalf("expected ErrSessionState, got %v", err)
	}
}

func TestSessionTimedExpiry(t *testing.T) {
	clock := newFakeClock()
	quiz := testQuiz()
	quiz.DurationSeconds = 30
	s := newSession("s-1", quiz, clock.Now)
	if err := s.join("Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := s.Select(0); err != nil {
		t.Fatalf("select: %v", err)
	}
	clock.Advance(31 * time.Second)

	if err := s.Select(1); !errors.Is(err, domain.ErrTimeUp) {
		t.Fatalf("expected ErrTimeUp, got %v", err)
	}
	if !s.Expired() {
		t.Fatalf("expected session expired")
	}
	if !s.Expire() {
		t.Fatalf("expected expire to close out the session")
	}
	if s.State() != StateSubmitting {
		t.Fatalf("expected Submitting, got %s", s.State())
	}

	answers := s.Answers()
	if len(answers) != 2 {
		t.Fatalf("expected every question recorded, got %+v", answers)
	}
	if answers[0].SelectedIndex != 0 {
		t.Fatalf("pending selection should count, got %+v", answers[0])
	}
	if answers[1].SelectedIndex != domain.Unanswered {
		t.Fatalf("remaining question should be unanswered, got %+v", answers[1])
	}
}

func TestSessionBuildResponseClampsNegativeElapsed(t *testing.T) {
	clock := newFakeClock()
	s := newSession("s-1", testQuiz(), clock.Now)
	if err := s.join("Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}
	for i, idx := range []int{0, 1} {
		if err := s.Select(idx); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if _, err := s.Next(); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}

	clock.Advance(-time.Minute) // clock skew
	resp, err := s.buildResponse(100)
	if err != nil {
		t.Fatalf("build response: %v", err)
	}
	if resp.TimeTakenSeconds != 0 {
		t.Fatalf("expected clamped time taken, got %d", resp.TimeTakenSeconds)
	}
}

func TestSessionAbandon(t *testing.T) {
	s := newSession("s-1", testQuiz(), newFakeClock().Now)
	if err := s.join("Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Abandon()
	if s.State() != StateAbandoned {
		t.Fatalf("expected Abandoned, got %s", s.State())
	}
	if _, ok := s.Result(); ok {
		t.Fatalf("abandoned session must not have a result")
	}

	// Abandon never reverts a completed session.
	s2 := newSession("s-2", testQuiz(), newFakeClock().Now)
	if err := s2.join("Ben"); err != nil {
		t.Fatalf("join: %v", err)
	}
	for _, idx := range []int{0, 1} {
		if err := s2.Select(idx); err != nil {
			t.Fatalf("select: %v", err)
		}
		if _, err := s2.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	resp, err := s2.buildResponse(100)
	if err != nil {
		t.Fatalf("build response: %v", err)
	}
	resp.ID = "r-1"
	s2.complete(resp)
	s2.Abandon()
	if s2.State() != StateCompleted {
		t.Fatalf("abandon must not touch a completed session, got %s", s2.State())
	}
}
