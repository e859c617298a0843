package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// Handler exposes the quiz engine over websockets plus a CSV export.
type Handler struct {
	engine   *app.Engine
	passcode string
	upgrader websocket.Upgrader
}

func NewHandler(engine *app.Engine, passcode string) *Handler {
	return &Handler{
		engine:   engine,
		passcode: passcode,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	SessionID       string `json:"sessionId"`
	QuizID          string `json:"quizId"`
	Title           string `json:"title"`
	QuestionCount   int    `json:"questionCount"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type questionPayload struct {
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type selectPayload struct {
	Index int `json:"index"`
}

type submittedPayload struct {
	ResponseID       string `json:"responseId"`
	Score            int    `json:"score"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
	TimedOut         bool   `json:"timedOut,omitempty"`
}

// ServeQuizWS runs one participant's session over a websocket: join on
// connect, then a select/next loop until submission. Disconnecting before
// the submission lands abandons the session without a response.
func (h *Handler) ServeQuizWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	name := r.URL.Query().Get("name")
	if quizID == "" || name == "" {
		http.Error(w, "missing quizId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.engine.StartSession(r.Context(), quizID, name)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	completed := false
	defer func() {
		if !completed {
			h.engine.Abandon(session.ID())
		}
	}()

	quiz := session.Quiz()
	_ = conn.WriteJSON(outboundMessage[joinedPayload]{Type: "joined", Payload: joinedPayload{
		SessionID:       session.ID(),
		QuizID:          quiz.ID,
		Title:           quiz.Title,
		QuestionCount:   len(quiz.Questions),
		DurationSeconds: quiz.DurationSeconds,
	}})
	h.writeCurrentQuestion(conn, session)

	for !completed {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "invalid select payload")
				continue
			}
			if err := h.engine.Select(session.ID(), payload.Index); err != nil {
				h.writeError(conn, err.Error())
				continue
			}
			_ = conn.WriteJSON(outboundMessage[selectPayload]{Type: "selected", Payload: payload})
		case "next":
			progress, err := h.engine.Advance(r.Context(), session.ID())
			if err != nil {
				h.writeError(conn, err.Error())
				continue
			}
			if !progress.Done {
				h.writeCurrentQuestion(conn, session)
				continue
			}
			completed = true
			_ = conn.WriteJSON(outboundMessage[submittedPayload]{Type: "submitted", Payload: submittedPayload{
				ResponseID:       progress.Response.ID,
				Score:            progress.Response.Score,
				TimeTakenSeconds: progress.Response.TimeTakenSeconds,
				TimedOut:         progress.TimedOut,
			}})
		default:
			h.writeError(conn, "unsupported message type")
		}
	}
}

func (h *Handler) writeCurrentQuestion(conn *websocket.Conn, session *app.Session) {
	question, index, total, ok := session.Current()
	if !ok {
		return
	}
	_ = conn.WriteJSON(outboundMessage[questionPayload]{Type: "question", Payload: questionPayload{
		Index:   index,
		Total:   total,
		Prompt:  question.Prompt,
		Options: question.Options,
	}})
}

func (h *Handler) writeError(conn *websocket.Conn, message string) {
	_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}})
}

// statusCode maps domain errors onto HTTP statuses for the plain endpoints.
func statusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrResponseNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidQuizDefinition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
