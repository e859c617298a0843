package scoring

import (
	"errors"
	"fmt"
	"testing"

	"live-quiz-service/internal/domain"
)

func TestScoreAllCorrect(t *testing.T) {
	quiz := twoQuestionQuiz()
	score, err := Score(quiz, []domain.Answer{
		{QuestionID: "q1", SelectedIndex: 0},
		{QuestionID: "q2", SelectedIndex: 1},
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 100 {
		t.Fatalf("expected 100, got %d", score)
	}
}

func TestScoreNoAnswers(t *testing.T) {
	score, err := Score(twoQuestionQuiz(), nil)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 0 {
		t.Fatalf("expected 0, got %d", score)
	}
}

func TestScoreHalfCorrect(t *testing.T) {
	score, err := Score(twoQuestionQuiz(), []domain.Answer{
		{QuestionID: "q1", SelectedIndex: 0},
		{QuestionID: "q2", SelectedIndex: 0},
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 50 {
		t.Fatalf("expected 50, got %d", score)
	}
}

func TestScoreRoundsHalfUp(t *testing.T) {
	// 1 of 8 correct is 12.5%, which rounds up to 13.
	quiz := quizWithQuestions(8)
	score, err := Score(quiz, []domain.Answer{{QuestionID: "q0", SelectedIndex: 0}})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 13 {
		t.Fatalf("expected 13, got %d", score)
	}

	// 1 of 3 correct is 33.33%, which rounds down to 33.
	quiz = quizWithQuestions(3)
	score, err = Score(quiz, []domain.Answer{{QuestionID: "q0", SelectedIndex: 0}})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 33 {
		t.Fatalf("expected 33, got %d", score)
	}
}

func TestScoreOrderInvariant(t *testing.T) {
	quiz := twoQuestionQuiz()
	a := []domain.Answer{
		{QuestionID: "q1", SelectedIndex: 0},
		{QuestionID: "q2", SelectedIndex: 0},
	}
	b := []domain.Answer{
		{QuestionID: "q2", SelectedIndex: 0},
		{QuestionID: "q1", SelectedIndex: 0},
	}
	sa, err := Score(quiz, a)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	sb, err := Score(quiz, b)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if sa != sb {
		t.Fatalf("reordering changed score: %d vs %d", sa, sb)
	}
}

func TestScoreCountsEachQuestionOnce(t *testing.T) {
	// Duplicate correct answers for the same question must not push the
	// score past what the question is worth.
	score, err := Score(twoQuestionQuiz(), []domain.Answer{
		{QuestionID: "q1", SelectedIndex: 0},
		{QuestionID: "q1", SelectedIndex: 0},
		{QuestionID: "q1", SelectedIndex: 0},
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 50 {
		t.Fatalf("expected 50, got %d", score)
	}
}

func TestScoreIgnoresUnknownQuestions(t *testing.T) {
	score, err := Score(twoQuestionQuiz(), []domain.Answer{
		{QuestionID: "q1", SelectedIndex: 0},
		{QuestionID: "ghost", SelectedIndex: 0},
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 50 {
		t.Fatalf("expected unknown question to count for nothing, got %d", score)
	}
}

func TestScoreUnansweredIsWrong(t *testing.T) {
	score, err := Score(twoQuestionQuiz(), []domain.Answer{
		{QuestionID: "q1", SelectedIndex: 0},
		{QuestionID: "q2", SelectedIndex: domain.Unanswered},
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 50 {
		t.Fatalf("expected 50, got %d", score)
	}
}

func TestScoreEmptyQuizFails(t *testing.T) {
	_, err := Score(domain.Quiz{ID: "empty"}, nil)
	if !errors.Is(err, domain.ErrInvalidQuizDefinition) {
		t.Fatalf("expected ErrInvalidQuizDefinition, got %v", err)
	}
}

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{ID: "q1", Prompt: "2 + 2?", Options: []string{"4", "5"}, CorrectIndex: 0},
			{ID: "q2", Prompt: "3 * 3?", Options: []string{"6", "9"}, CorrectIndex: 1},
		},
	}
}

func quizWithQuestions(n int) domain.Quiz {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			ID:      fmt.Sprintf("q%d", i),
			Prompt:  "pick the first",
			Options: []string{"right", "wrong"},
		}
	}
	return domain.Quiz{ID: "quiz-n", Questions: questions}
}
