package http

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"live-quiz-service/internal/domain"
)

// ServeExport writes every response for a quiz as CSV, in leaderboard
// order, including the per-question answer detail.
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	responses, err := h.engine.Responses(r.Context(), quizID)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", quizID+"-responses.csv"))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ID", "Name", "Score", "Time Taken (seconds)", "Submitted At", "Answers"})
	for _, resp := range responses {
		_ = cw.Write([]string{
			resp.ID,
			resp.Name,
			strconv.Itoa(resp.Score),
			strconv.Itoa(resp.TimeTakenSeconds),
			resp.SubmittedAt.UTC().Format("2006-01-02 15:04:05"),
			formatAnswers(resp.Answers),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		// Headers are out already; nothing left to do but note it.
		log.Printf("csv export for %s failed: %v", quizID, err)
	}
}

// formatAnswers renders answers as "Q<id>:<index>" pairs, "-" when the
// question went unanswered.
func formatAnswers(answers []domain.Answer) string {
	parts := make([]string, len(answers))
	for i, a := range answers {
		selected := "-"
		if a.SelectedIndex != domain.Unanswered {
			selected = strconv.Itoa(a.SelectedIndex)
		}
		parts[i] = "Q" + a.QuestionID + ":" + selected
	}
	return strings.Join(parts, ";")
}
