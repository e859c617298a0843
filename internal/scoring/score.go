// Package scoring turns a completed answer sheet into a percentage score.
package scoring

import (
	"fmt"

	"live-quiz-service/internal/domain"
)

// Score maps submitted answers against a quiz definition to an integer
// percentage in [0,100]. Answers referencing unknown questions count as
// wrong, as does the Unanswered sentinel, and each question counts at most
// once no matter how many answers name it. Pure and safe for concurrent use;
// the same (quiz, answers) pair always yields the same score.
func Score(quiz domain.Quiz, answers []domain.Answer) (int, error) {
	total := len(quiz.Questions)
	if total == 0 {
		return 0, fmt.Errorf("%w: quiz %q has no questions", domain.ErrInvalidQuizDefinition, quiz.ID)
	}

	correctByID := make(map[string]int, total)
	for _, q := range quiz.Questions {
		correctByID[q.ID] = q.CorrectIndex
	}

	hit := make(map[string]struct{}, total)
	for _, a := range answers {
		if a.SelectedIndex == domain.Unanswered {
			continue
		}
		if want, ok := correctByID[a.QuestionID]; ok && a.SelectedIndex == want {
			hit[a.QuestionID] = struct{}{}
		}
	}
	correct := len(hit)

	// round(correct/total*100) with half rounded up, in integer arithmetic.
	return (correct*200 + total) / (2 * total), nil
}
