package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

// Ledger is the durable response ledger. Each append is a single INSERT, so
// the atomicity requirement falls out of the database; snapshots are plain
// SELECTs and never see a partial row.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) Append(ctx context.Context, r domain.Response) (string, error) {
	r.ID = uuid.NewString()
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO responses (id, quiz_id, name, score, time_taken_seconds, submitted_at, answers)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.QuizID, r.Name, r.Score, r.TimeTakenSeconds, r.SubmittedAt, answers)
	if err != nil {
		return "", fmt.Errorf("append response: %w", err)
	}
	return r.ID, nil
}

func (l *Ledger) Snapshot(ctx context.Context, quizID string) ([]domain.Response, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, quiz_id, name, score, time_taken_seconds, submitted_at, answers
		 FROM responses WHERE quiz_id=$1`, quizID)
	if err != nil {
		return nil, fmt.Errorf("snapshot responses: %w", err)
	}
	defer rows.Close()

	var responses []domain.Response
	for rows.Next() {
		r, err := scanResponse(rows.Scan)
		if err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot responses: %w", err)
	}
	return responses, nil
}

func (l *Ledger) Detail(ctx context.Context, quizID, responseID string) (domain.Response, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT id, quiz_id, name, score, time_taken_seconds, submitted_at, answers
		 FROM responses WHERE quiz_id=$1 AND id=$2`, quizID, responseID)
	r, err := scanResponse(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Response{}, domain.ErrResponseNotFound
	}
	return r, err
}

func (l *Ledger) Reset(ctx context.Context, quizID string) error {
	if _, err := l.pool.Exec(ctx, `DELETE FROM responses WHERE quiz_id=$1`, quizID); err != nil {
		return fmt.Errorf("reset responses: %w", err)
	}
	return nil
}

func scanResponse(scan func(dest ...interface{}) error) (domain.Response, error) {
	var r domain.Response
	var answers []byte
	if err := scan(&r.ID, &r.QuizID, &r.Name, &r.Score, &r.TimeTakenSeconds, &r.SubmittedAt, &answers); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Response{}, err
		}
		return domain.Response{}, fmt.Errorf("scan response: %w", err)
	}
	if err := json.Unmarshal(answers, &r.Answers); err != nil {
		return domain.Response{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return r, nil
}
