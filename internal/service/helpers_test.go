package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go-trade-journal/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeArchivedRepo is an in-memory ArchivedSessionRepository. failNext makes
// the next mutation fail, for partial-restore scenarios.
type fakeArchivedRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.TradingSession
	failNext bool
}

func newFakeArchivedRepo() *fakeArchivedRepo {
	return &fakeArchivedRepo{sessions: make(map[string]*model.TradingSession)}
}

func (r *fakeArchivedRepo) GetByID(_ context.Context, id string) (*model.TradingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrSessionNotFound, id)
	}
	out := *s
	out.Operations = append([]model.Operation(nil), s.Operations...)
	return &out, nil
}

func (r *fakeArchivedRepo) Upsert(_ context.Context, session *model.TradingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return fmt.Errorf("archive backend down")
	}
	stored := *session
	stored.Operations = append([]model.Operation(nil), session.Operations...)
	r.sessions[session.ID] = &stored
	return nil
}

func (r *fakeArchivedRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeArchivedRepo) List(_ context.Context) ([]model.TradingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.TradingSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out, nil
}

type notice struct {
	message  string
	severity string
}

// recordingSink captures notifications instead of toasting them.
type recordingSink struct {
	mu      sync.Mutex
	notices []notice
}

func (s *recordingSink) Notify(message, severity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice{message: message, severity: severity})
}

func (s *recordingSink) all() []notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notice(nil), s.notices...)
}

// recordingRefresher captures UI refresh reasons.
type recordingRefresher struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recordingRefresher) RefreshUI(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *recordingRefresher) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}

// fixedClock returns a now func pinned to t, adjustable through the pointer.
func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}
