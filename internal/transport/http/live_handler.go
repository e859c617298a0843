package http

import (
	"encoding/json"
	"log"
	"net/http"

	"live-quiz-service/internal/domain"
)

type resetPayload struct {
	Confirm string `json:"confirm"`
}

type ackPayload struct {
	Action string `json:"action"`
}

// ServeLeaderboardWS streams leaderboard/status snapshots to a viewer. The
// first message is the current snapshot; afterwards one message per ledger
// or status mutation, coalesced for slow readers.
func (h *Handler) ServeLeaderboardWS(w http.ResponseWriter, r *http.Request) {
	h.serveLive(w, r, false)
}

// ServeControlWS is the teacher screen: the viewer stream plus start/end/
// reset commands. Gated by the static passcode when one is configured.
func (h *Handler) ServeControlWS(w http.ResponseWriter, r *http.Request) {
	if h.passcode != "" && r.URL.Query().Get("passcode") != h.passcode {
		http.Error(w, "invalid passcode", http.StatusForbidden)
		return
	}
	h.serveLive(w, r, true)
}

func (h *Handler) serveLive(w http.ResponseWriter, r *http.Request, control bool) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.engine.Subscribe(r.Context(), quizID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-writerDone:
				return
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !control {
			// Viewers only listen.
			continue
		}
		switch inbound.Type {
		case "start":
			h.applyControl(send, writerDone, "start", func() error {
				return h.engine.SetStatus(r.Context(), quizID, domain.StatusActive)
			})
		case "end":
			h.applyControl(send, writerDone, "end", func() error {
				return h.engine.SetStatus(r.Context(), quizID, domain.StatusEnded)
			})
		case "reset":
			var payload resetPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Confirm != quizID {
				trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "reset requires confirm set to the quiz id"}})
				continue
			}
			h.applyControl(send, writerDone, "reset", func() error {
				return h.engine.Reset(r.Context(), quizID)
			})
		default:
			trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *Handler) applyControl(send chan<- outboundMessage[any], writerDone <-chan struct{}, action string, apply func() error) {
	if err := apply(); err != nil {
		trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	trySend(send, writerDone, outboundMessage[any]{Type: "ack", Payload: ackPayload{Action: action}})
}

// trySend queues a message for the writer goroutine, giving up when the
// writer has already exited so the read loop can never block on a dead
// connection's full buffer.
func trySend(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) {
	select {
	case send <- msg:
	case <-writerDone:
	}
}
