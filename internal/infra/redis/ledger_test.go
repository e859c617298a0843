package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"live-quiz-service/internal/domain"
)

func TestLedgerAppendSnapshotReset(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	ledger := NewLedger(newClient(mr))

	id1, err := ledger.Append(ctx, sampleResponse("Ana", 100, 10))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	id2, err := ledger.Append(ctx, sampleResponse("Ben", 50, 5))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique response ids")
	}

	snap, err := ledger.Snapshot(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(snap))
	}

	if err := ledger.Reset(ctx, "quiz-1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap, err = ledger.Snapshot(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("snapshot after reset: %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("expected empty ledger after reset, got %d", len(snap))
	}
}

func TestLedgerDetail(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	ledger := NewLedger(newClient(mr))

	id, err := ledger.Append(ctx, sampleResponse("Ana", 100, 10))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	detail, err := ledger.Detail(ctx, "quiz-1", id)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Name != "Ana" || len(detail.Answers) != 2 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	if detail.ID != id {
		t.Fatalf("expected stored id %s, got %s", id, detail.ID)
	}

	if _, err := ledger.Detail(ctx, "quiz-1", "missing"); !errors.Is(err, domain.ErrResponseNotFound) {
		t.Fatalf("expected ErrResponseNotFound, got %v", err)
	}
}

func TestStatusStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewStatusStore(newClient(mr))

	status, err := store.Get(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if status != domain.StatusCreated {
		t.Fatalf("expected created default, got %s", status)
	}

	if err := store.Set(ctx, "quiz-1", domain.StatusActive); err != nil {
		t.Fatalf("set: %v", err)
	}
	status, err = store.Get(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if status != domain.StatusActive {
		t.Fatalf("expected active, got %s", status)
	}
}

func sampleResponse(name string, score, taken int) domain.Response {
	return domain.Response{
		QuizID:           "quiz-1",
		Name:             name,
		Score:            score,
		TimeTakenSeconds: taken,
		SubmittedAt:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Answers: []domain.Answer{
			{QuestionID: "q1", SelectedIndex: 0},
			{QuestionID: "q2", SelectedIndex: 1},
		},
	}
}
