package telegram

import (
	"context"
	"sync"

	"truckbrick/api/internal/brick"
)

// session is one chat's settings plus its in-flight invocation. Only the newest
// invocation may answer: seq identifies it.
type session struct {
	mu sync.Mutex

	style        brick.Style
	scale        string
	customPieces int
	render       bool
	awaitPieces  bool

	seq    uint64
	cancel context.CancelFunc
}

type settings struct {
	Style        brick.Style
	Scale        string
	CustomPieces int
	Render       bool
}

func (r *Router) session(chatID int64) *session {
	if v, ok := r.sessions.Load(chatID); ok {
		return v.(*session)
	}
	s := &session{
		style:  brick.StyleMouldKingTechnic,
		scale:  r.Pipeline.Catalog().Default().Key,
		render: r.Pipeline.CanRender(),
	}
	v, _ := r.sessions.LoadOrStore(chatID, s)
	return v.(*session)
}

func (s *session) snapshot() settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return settings{Style: s.style, Scale: s.scale, CustomPieces: s.customPieces, Render: s.render}
}

func (s *session) update(fn func(s *session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *session) awaitingPieces() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitPieces
}

// begin cancels any running invocation and starts a new one.
func (s *session) begin(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.seq++
	s.cancel = cancel
	return ctx, s.seq
}

// finish releases the invocation and reports whether it is still the current one.
func (s *session) finish(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

func (s *session) cancelRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	s.seq++
	return true
}
