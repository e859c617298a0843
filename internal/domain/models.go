package domain

import (
	"fmt"
	"strings"
	"time"
)

// QuizStatus tracks the teacher-controlled lifecycle of a quiz.
type QuizStatus string

const (
	StatusCreated QuizStatus = "created"
	StatusActive  QuizStatus = "active"
	StatusEnded   QuizStatus = "ended"
)

// statusOrder defines the only legal direction for status transitions.
var statusOrder = map[QuizStatus]int{
	StatusCreated: 0,
	StatusActive:  1,
	StatusEnded:   2,
}

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s QuizStatus) bool {
	_, ok := statusOrder[s]
	return ok
}

// CanTransition reports whether a quiz may move from one status to the next.
// Transitions only move forward, one step at a time: created → active → ended.
func CanTransition(from, to QuizStatus) bool {
	a, ok1 := statusOrder[from]
	b, ok2 := statusOrder[to]
	return ok1 && ok2 && b == a+1
}

// Unanswered marks a question the participant never selected an option for.
// It is only produced when a timed session expires before reaching the end.
const Unanswered = -1

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// Quiz is the immutable definition of a quiz: title, ordered questions and
// an optional time limit. Status lives in a separate store because cached
// definitions never change after load.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Questions       []Question `json:"questions"`
	DurationSeconds int        `json:"durationSeconds,omitempty"` // 0 means untimed
}

// Validate checks the structural invariants of a quiz definition. Any
// violation is fatal for the quiz and wraps ErrInvalidQuizDefinition.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %q has no questions", ErrInvalidQuizDefinition, q.ID)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" {
			return fmt.Errorf("%w: quiz %q question %d has no id", ErrInvalidQuizDefinition, q.ID, i)
		}
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("%w: quiz %q has duplicate question id %q", ErrInvalidQuizDefinition, q.ID, question.ID)
		}
		seen[question.ID] = struct{}{}
		if len(question.Options) < 2 {
			return fmt.Errorf("%w: question %q needs at least two options", ErrInvalidQuizDefinition, question.ID)
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			return fmt.Errorf("%w: question %q correctIndex %d out of range", ErrInvalidQuizDefinition, question.ID, question.CorrectIndex)
		}
	}
	return nil
}

// Answer records the option a participant selected for one question.
// SelectedIndex is Unanswered when the question was never answered.
type Answer struct {
	QuestionID    string `json:"questionId"`
	SelectedIndex int    `json:"selectedIndex"`
}

// Response is the immutable record of one completed session. The ID is
// assigned by the ledger on append; everything else is fixed at submission.
type Response struct {
	ID               string    `json:"id"`
	QuizID           string    `json:"quizId"`
	Name             string    `json:"name"`
	Score            int       `json:"score"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	SubmittedAt      time.Time `json:"submittedAt"`
	Answers          []Answer  `json:"answers"`
}

// LeaderboardEntry is a ranked view over one response. Rank is derived,
// never stored.
type LeaderboardEntry struct {
	Rank             int       `json:"rank"`
	ResponseID       string    `json:"responseId"`
	Name             string    `json:"name"`
	Score            int       `json:"score"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// Leaderboard captures the ordered scoreboard and quiz status at one point
// in time. Revision increases with every mutation of the underlying ledger
// or status, so a higher revision always reflects newer state.
type Leaderboard struct {
	QuizID    string             `json:"quizId"`
	Status    QuizStatus         `json:"status"`
	Entries   []LeaderboardEntry `json:"entries"`
	Revision  uint64             `json:"revision"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// TrimName normalizes a participant name and reports whether anything
// remains. Empty names are rejected at join time.
func TrimName(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	return trimmed, trimmed != ""
}
