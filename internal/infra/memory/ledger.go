package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
)

// Ledger is an in-memory implementation of app.ResponseLedger. A single
// mutex per ledger serializes appends so concurrent submissions for the same
// quiz never lose writes; snapshots copy out so readers never block writers
// for long or observe partial entries.
type Ledger struct {
	mu        sync.RWMutex
	responses map[string][]domain.Response // quizID → append order
	byID      map[string]map[string]int    // quizID → responseID → slot
}

func NewLedger() *Ledger {
	return &Ledger{
		responses: make(map[string][]domain.Response),
		byID:      make(map[string]map[string]int),
	}
}

func (l *Ledger) Append(_ context.Context, r domain.Response) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r.ID = uuid.NewString()
	l.responses[r.QuizID] = append(l.responses[r.QuizID], r)
	ids, ok := l.byID[r.QuizID]
	if !ok {
		ids = make(map[string]int)
		l.byID[r.QuizID] = ids
	}
	ids[r.ID] = len(l.responses[r.QuizID]) - 1
	return r.ID, nil
}

func (l *Ledger) Snapshot(_ context.Context, quizID string) ([]domain.Response, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stored := l.responses[quizID]
	out := make([]domain.Response, len(stored))
	for i, r := range stored {
		out[i] = cloneResponse(r)
	}
	return out, nil
}

func (l *Ledger) Detail(_ context.Context, quizID, responseID string) (domain.Response, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids, ok := l.byID[quizID]
	if !ok {
		return domain.Response{}, domain.ErrResponseNotFound
	}
	slot, ok := ids[responseID]
	if !ok {
		return domain.Response{}, domain.ErrResponseNotFound
	}
	return cloneResponse(l.responses[quizID][slot]), nil
}

// cloneResponse copies the answers slice too, so callers can never reach the
// ledger's internal storage through a returned response.
func cloneResponse(r domain.Response) domain.Response {
	answers := make([]domain.Answer, len(r.Answers))
	copy(answers, r.Answers)
	r.Answers = answers
	return r
}

func (l *Ledger) Reset(_ context.Context, quizID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.responses, quizID)
	delete(l.byID, quizID)
	return nil
}
