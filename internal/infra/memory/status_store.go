package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/domain"
)

// StatusStore keeps quiz lifecycle status in memory. Quizzes default to
// StatusCreated until the teacher starts them.
type StatusStore struct {
	mu       sync.RWMutex
	statuses map[string]domain.QuizStatus
}

func NewStatusStore() *StatusStore {
	return &StatusStore{statuses: make(map[string]domain.QuizStatus)}
}

func (s *StatusStore) Get(_ context.Context, quizID string) (domain.QuizStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status, ok := s.statuses[quizID]; ok {
		return status, nil
	}
	return domain.StatusCreated, nil
}

func (s *StatusStore) Set(_ context.Context, quizID string, status domain.QuizStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[quizID] = status
	return nil
}
