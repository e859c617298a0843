package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/domain"
)

// StatusStore keeps the quiz lifecycle status under quiz:{quizID}:status so
// every instance sharing the Redis sees the same teacher decisions.
type StatusStore struct {
	client *redis.Client
}

func NewStatusStore(client *redis.Client) *StatusStore {
	return &StatusStore{client: client}
}

func (s *StatusStore) Get(ctx context.Context, quizID string) (domain.QuizStatus, error) {
	raw, err := s.client.Get(ctx, s.key(quizID)).Result()
	if err == redis.Nil {
		return domain.StatusCreated, nil
	}
	if err != nil {
		return "", fmt.Errorf("load status: %w", err)
	}
	status := domain.QuizStatus(raw)
	if !domain.ValidStatus(status) {
		return domain.StatusCreated, nil
	}
	return status, nil
}

func (s *StatusStore) Set(ctx context.Context, quizID string, status domain.QuizStatus) error {
	if err := s.client.Set(ctx, s.key(quizID), string(status), 0).Err(); err != nil {
		return fmt.Errorf("store status: %w", err)
	}
	return nil
}

func (s *StatusStore) key(quizID string) string {
	return "quiz:" + quizID + ":status"
}
