// Package app implements the quiz engine use cases: sessions, submissions,
// leaderboards and teacher controls.
package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/leaderboard"
	"live-quiz-service/internal/live"
	"live-quiz-service/internal/scoring"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResponseLedger is the append-only collection of completed submissions per
// quiz. Append assigns the response id. Concurrent appends for the same quiz
// must all survive into later snapshots; Snapshot returns whole responses
// only, never a partial write.
type ResponseLedger interface {
	Append(ctx context.Context, r domain.Response) (string, error)
	Snapshot(ctx context.Context, quizID string) ([]domain.Response, error)
	Detail(ctx context.Context, quizID, responseID string) (domain.Response, error)
	Reset(ctx context.Context, quizID string) error
}

// StatusStore tracks the teacher-controlled lifecycle per quiz. Unknown
// quizzes report StatusCreated.
type StatusStore interface {
	Get(ctx context.Context, quizID string) (domain.QuizStatus, error)
	Set(ctx context.Context, quizID string, status domain.QuizStatus) error
}

// SessionStore holds live in-process sessions keyed by session id.
type SessionStore interface {
	Put(s *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
	Range(fn func(s *Session) bool)
}

// Options tune engine behavior; zero values pick sane defaults.
type Options struct {
	TopN          int // leaderboard truncation, 0 = unlimited
	SubmitRetries int
	SubmitBackoff time.Duration
	Clock         func() time.Time
}

// Engine wires the session state machine, scoring, ledger and distributor
// together.
type Engine struct {
	quizzes  QuizRepository
	ledger   ResponseLedger
	statuses StatusStore
	sessions SessionStore
	hub      *live.Hub

	topN    int
	retries int
	backoff time.Duration
	now     func() time.Time

	pubMu sync.Mutex
	pubs  map[string]*quizPublisher
}

// quizPublisher is the per-quiz serialization point for leaderboard
// publishes: snapshot, revision stamp and hand-off to the hub happen under
// its lock, so revisions increase strictly with ledger/status state.
type quizPublisher struct {
	mu  sync.Mutex
	rev uint64
}

func NewEngine(quizzes QuizRepository, ledger ResponseLedger, statuses StatusStore, sessions SessionStore, hub *live.Hub, opts Options) *Engine {
	if opts.SubmitRetries <= 0 {
		opts.SubmitRetries = 3
	}
	if opts.SubmitBackoff <= 0 {
		opts.SubmitBackoff = 100 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{
		quizzes:  quizzes,
		ledger:   ledger,
		statuses: statuses,
		sessions: sessions,
		hub:      hub,
		topN:     opts.TopN,
		retries:  opts.SubmitRetries,
		backoff:  opts.SubmitBackoff,
		now:      opts.Clock,
		pubs:     make(map[string]*quizPublisher),
	}
}

// StartSession validates the participant name and quiz, then creates an
// InProgress session. Joining requires the quiz to be active.
func (e *Engine) StartSession(ctx context.Context, quizID, name string) (*Session, error) {
	trimmed, ok := domain.TrimName(name)
	if !ok {
		return nil, fmt.Errorf("%w: participant name is empty", domain.ErrValidation)
	}

	quiz, err := e.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := quiz.Validate(); err != nil {
		return nil, err
	}

	status, err := e.statuses.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	switch status {
	case domain.StatusEnded:
		return nil, domain.ErrQuizEnded
	case domain.StatusCreated:
		return nil, domain.ErrQuizNotActive
	}

	session := newSession(uuid.NewString(), quiz, e.now)
	if err := session.join(trimmed); err != nil {
		return nil, err
	}
	e.sessions.Put(session)
	return session, nil
}

// Session resolves a live session by id.
func (e *Engine) Session(id string) (*Session, error) {
	session, ok := e.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Progress is the outcome of advancing a session.
type Progress struct {
	Done     bool
	TimedOut bool
	Response domain.Response
}

// Select records the pending answer for the session's current question.
func (e *Engine) Select(sessionID string, index int) error {
	session, err := e.Session(sessionID)
	if err != nil {
		return err
	}
	return session.Select(index)
}

// Advance finalizes the pending answer and moves the session forward. When
// the last question is answered (or the clock ran out) it scores the
// session, appends the response to the ledger with bounded retries, and
// publishes the refreshed leaderboard.
func (e *Engine) Advance(ctx context.Context, sessionID string) (Progress, error) {
	session, err := e.Session(sessionID)
	if err != nil {
		return Progress{}, err
	}

	timedOut := session.Expire()
	submitting := timedOut
	if !submitting {
		submitting, err = session.Next()
		if err != nil {
			return Progress{}, err
		}
	}
	if !submitting {
		return Progress{}, nil
	}

	response, err := e.submit(ctx, session)
	if err != nil {
		return Progress{}, err
	}
	return Progress{Done: true, TimedOut: timedOut, Response: response}, nil
}

// Abandon terminates a session without a response and forgets it.
func (e *Engine) Abandon(sessionID string) {
	session, ok := e.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Abandon()
	e.sessions.Delete(sessionID)
}

// submit scores a Submitting session and appends its response. The session
// only reaches Completed once the append succeeded; on failure it stays in
// Submitting with its answers intact so Advance can retry.
func (e *Engine) submit(ctx context.Context, session *Session) (domain.Response, error) {
	status, err := e.statuses.Get(ctx, session.QuizID())
	if err == nil && status == domain.StatusEnded {
		return domain.Response{}, domain.ErrQuizEnded
	}

	score, err := scoring.Score(session.Quiz(), session.Answers())
	if err != nil {
		return domain.Response{}, err
	}
	response, err := session.buildResponse(score)
	if err != nil {
		return domain.Response{}, err
	}

	var id string
	var appendErr error
	backoff := e.backoff
	for attempt := 0; attempt < e.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return domain.Response{}, fmt.Errorf("%w: %v", domain.ErrSubmission, ctx.Err())
			}
			backoff *= 2
		}
		id, appendErr = e.ledger.Append(ctx, response)
		if appendErr == nil {
			break
		}
	}
	if appendErr != nil {
		return domain.Response{}, fmt.Errorf("%w: append after %d attempts: %v", domain.ErrSubmission, e.retries, appendErr)
	}

	response.ID = id
	session.complete(response)
	e.broadcast(ctx, session.QuizID())
	return response, nil
}

// Leaderboard builds the current ranked snapshot for a quiz.
func (e *Engine) Leaderboard(ctx context.Context, quizID string) (domain.Leaderboard, error) {
	responses, err := e.ledger.Snapshot(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	status, err := e.statuses.Get(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	entries := leaderboard.Top(leaderboard.Rank(responses), e.topN)
	return domain.Leaderboard{
		QuizID:    quizID,
		Status:    status,
		Entries:   entries,
		UpdatedAt: e.now(),
	}, nil
}

// Subscribe registers a viewer for leaderboard/status updates. The first
// delivery is the current snapshot; the cancel func releases the
// subscription. Snapshot and registration happen under the quiz's publish
// lock so no newer publish can slip in between them.
func (e *Engine) Subscribe(ctx context.Context, quizID string) (<-chan domain.Leaderboard, func(), error) {
	if _, err := e.quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, nil, err
	}
	pub := e.publisherFor(quizID)
	pub.mu.Lock()
	defer pub.mu.Unlock()
	initial, err := e.Leaderboard(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	initial.Revision = pub.rev
	ch, cancel := e.hub.Subscribe(quizID, initial)
	return ch, cancel, nil
}

// SetStatus applies a teacher lifecycle transition and notifies subscribers.
func (e *Engine) SetStatus(ctx context.Context, quizID string, to domain.QuizStatus) error {
	if !domain.ValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, to)
	}
	if _, err := e.quizzes.GetQuiz(ctx, quizID); err != nil {
		return err
	}
	from, err := e.statuses.Get(ctx, quizID)
	if err != nil {
		return err
	}
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("%w: from %s to %s", domain.ErrStatusTransition, from, to)
	}
	if err := e.statuses.Set(ctx, quizID, to); err != nil {
		return err
	}
	e.broadcast(ctx, quizID)
	return nil
}

// Reset clears every response for a quiz. Destructive and teacher-only; the
// transport layer requires an explicit confirmation before calling this.
func (e *Engine) Reset(ctx context.Context, quizID string) error {
	if _, err := e.quizzes.GetQuiz(ctx, quizID); err != nil {
		return err
	}
	if err := e.ledger.Reset(ctx, quizID); err != nil {
		return err
	}
	e.broadcast(ctx, quizID)
	return nil
}

// Responses returns the full ledger snapshot in leaderboard order, for
// export.
func (e *Engine) Responses(ctx context.Context, quizID string) ([]domain.Response, error) {
	responses, err := e.ledger.Snapshot(ctx, quizID)
	if err != nil {
		return nil, err
	}
	ordered := make([]domain.Response, len(responses))
	copy(ordered, responses)
	sortResponses(ordered)
	return ordered, nil
}

// AnswerDetail returns one response including its per-question answers.
func (e *Engine) AnswerDetail(ctx context.Context, quizID, responseID string) (domain.Response, error) {
	return e.ledger.Detail(ctx, quizID, responseID)
}

// SweepIdleSessions abandons and forgets sessions idle for longer than
// maxIdle. Resource hygiene only; abandoned sessions never produce a
// response either way.
func (e *Engine) SweepIdleSessions(maxIdle time.Duration) int {
	cutoff := e.now().Add(-maxIdle)
	var stale []*Session
	e.sessions.Range(func(s *Session) bool {
		state := s.State()
		if state != StateCompleted && state != StateAbandoned && s.LastActive().Before(cutoff) {
			stale = append(stale, s)
		}
		return true
	})
	for _, s := range stale {
		s.Abandon()
		e.sessions.Delete(s.ID())
	}
	return len(stale)
}

func (e *Engine) publisherFor(quizID string) *quizPublisher {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	pub, ok := e.pubs[quizID]
	if !ok {
		pub = &quizPublisher{}
		e.pubs[quizID] = pub
	}
	return pub
}

// broadcast snapshots and publishes under the quiz's publish lock. Two
// concurrent mutations therefore publish in snapshot order, and every
// subscriber's deliveries carry strictly increasing revisions.
func (e *Engine) broadcast(ctx context.Context, quizID string) {
	pub := e.publisherFor(quizID)
	pub.mu.Lock()
	defer pub.mu.Unlock()
	lb, err := e.Leaderboard(ctx, quizID)
	if err != nil {
		// Subscribers converge on the next successful mutation; nothing to
		// deliver from here.
		return
	}
	pub.rev++
	lb.Revision = pub.rev
	e.hub.Publish(quizID, lb)
}

// sortResponses applies the leaderboard's total order in place.
func sortResponses(responses []domain.Response) {
	sort.Slice(responses, func(i, j int) bool {
		return leaderboard.Less(responses[i], responses[j])
	})
}
