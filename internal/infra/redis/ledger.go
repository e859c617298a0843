package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/domain"
)

// Ledger stores responses in a Redis hash per quiz:
// HSET responses:{quizID} {responseID} {json}. HSET is atomic per call, so
// concurrent appends from many sessions land without coordination and a
// snapshot never observes a half-written entry. Reset deletes the whole
// hash.
type Ledger struct {
	client *redis.Client
}

func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

func (l *Ledger) Append(ctx context.Context, r domain.Response) (string, error) {
	r.ID = uuid.NewString()
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal response: %w", err)
	}
	if err := l.client.HSet(ctx, l.key(r.QuizID), r.ID, raw).Err(); err != nil {
		return "", fmt.Errorf("append response: %w", err)
	}
	return r.ID, nil
}

func (l *Ledger) Snapshot(ctx context.Context, quizID string) ([]domain.Response, error) {
	entries, err := l.client.HGetAll(ctx, l.key(quizID)).Result()
	if err != nil {
		return nil, fmt.Errorf("snapshot responses: %w", err)
	}
	responses := make([]domain.Response, 0, len(entries))
	for id, raw := range entries {
		var r domain.Response
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("unmarshal response %s: %w", id, err)
		}
		responses = append(responses, r)
	}
	return responses, nil
}

func (l *Ledger) Detail(ctx context.Context, quizID, responseID string) (domain.Response, error) {
	raw, err := l.client.HGet(ctx, l.key(quizID), responseID).Bytes()
	if err == redis.Nil {
		return domain.Response{}, domain.ErrResponseNotFound
	}
	if err != nil {
		return domain.Response{}, fmt.Errorf("load response: %w", err)
	}
	var r domain.Response
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Response{}, fmt.Errorf("unmarshal response %s: %w", responseID, err)
	}
	return r, nil
}

func (l *Ledger) Reset(ctx context.Context, quizID string) error {
	if err := l.client.Del(ctx, l.key(quizID)).Err(); err != nil {
		return fmt.Errorf("reset responses: %w", err)
	}
	return nil
}

func (l *Ledger) key(quizID string) string {
	return "responses:" + quizID
}
