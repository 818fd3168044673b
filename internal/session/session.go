package session

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/worklog/internal/models"
	"github.com/baalimago/worklog/internal/transcript"
	"github.com/baalimago/worklog/internal/worklog"
)

var (
	ErrBusy  = errors.New("a reply is already being generated")
	ErrReset = errors.New("session was reset while replying")
)

// Responder produces the growing reply to a message, see conversation.Driver
type Responder interface {
	Respond(ctx context.Context, history []models.Message, message string) (chan models.CompletionEvent, error)
}

// Panel is the output section of the page. It's only visible once a work-log
// has been found in the latest reply.
type Panel struct {
	Visible  bool          `json:"visible"`
	Markdown string        `json:"markdown"`
	HTML     template.HTML `json:"html"`
}

type Snapshot struct {
	ID        string           `json:"-"`
	Messages  []models.Message `json:"messages"`
	Streaming bool             `json:"streaming"`
	Panel     Panel            `json:"panel"`
}

// Session is the state of one browser: its transcript and output panel.
type Session struct {
	ID string

	mu         sync.Mutex
	responder  Responder
	transcript transcript.Transcript
	panel      Panel
	// generation is bumped on every reset, so that replies started before
	// the reset know to stop
	generation int
	cancel     context.CancelFunc
	lastActive time.Time
}

func New(id string, responder Responder) *Session {
	return &Session{
		ID:         id,
		responder:  responder,
		lastActive: time.Now(),
	}
}

// Respond appends message and a reply placeholder to the transcript, then overwrites the
// placeholder with every update from the responder. onUpdate is called with a snapshot after
// each change, and once more after the panel has been updated. Blocking operation.
//
// Only one reply at a time is allowed per session, others get ErrBusy. If the reply fails the
// exchange is removed from the transcript again.
func (s *Session) Respond(ctx context.Context, message string, onUpdate func(Snapshot)) error {
	if onUpdate == nil {
		onUpdate = func(Snapshot) {}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.transcript.Streaming() {
		s.mu.Unlock()
		return ErrBusy
	}
	history := s.transcript.History()
	if err := s.transcript.AppendUser(message); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to append message: %w", err)
	}
	if err := s.transcript.BeginAssistant(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to begin reply: %w", err)
	}
	gen := s.generation
	s.cancel = cancel
	s.lastActive = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	events, err := s.responder.Respond(ctx, history, message)
	if err != nil {
		s.abort(gen)
		return fmt.Errorf("failed to respond: %w", err)
	}
	// Nothing is reported until the responder has accepted the message, so that
	// callers may still turn a failed request into a plain error
	onUpdate(snap)

	var streamErr error
	for ev := range events {
		switch cast := ev.(type) {
		case string:
			s.mu.Lock()
			if gen != s.generation {
				s.mu.Unlock()
				return ErrReset
			}
			if err := s.transcript.UpdateAssistant(cast); err != nil {
				s.mu.Unlock()
				s.abort(gen)
				return fmt.Errorf("failed to update reply: %w", err)
			}
			snap = s.snapshotLocked()
			s.mu.Unlock()
			onUpdate(snap)
		case error:
			if streamErr == nil {
				streamErr = cast
			}
		}
	}

	if streamErr == nil && ctx.Err() != nil {
		streamErr = ctx.Err()
	}
	if streamErr != nil {
		if s.abort(gen) {
			return fmt.Errorf("failed to complete reply: %w", streamErr)
		}
		return ErrReset
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return ErrReset
	}
	if err := s.transcript.FinishAssistant(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to finish reply: %w", err)
	}
	s.panel = panelFrom(s.transcript.Messages())
	s.cancel = nil
	s.lastActive = time.Now()
	snap = s.snapshotLocked()
	s.mu.Unlock()
	onUpdate(snap)
	return nil
}

// abort the exchange started in generation gen. Returns false if the session has
// been reset since.
func (s *Session) abort(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.cancel = nil
	if s.transcript.Streaming() {
		_ = s.transcript.Abort()
	}
	return true
}

// Reset clears the transcript and hides the panel, cancelling any reply in progress.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.transcript.Reset()
	s.panel = Panel{}
	s.lastActive = time.Now()
	return s.snapshotLocked()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Worklog returns the markdown of the finished work-log, if there is one.
func (s *Session) Worklog() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panel.Markdown, s.panel.Visible
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) idleSince(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.transcript.Streaming() && s.lastActive.Before(t)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:        s.ID,
		Messages:  s.transcript.Messages(),
		Streaming: s.transcript.Streaming(),
		Panel:     s.panel,
	}
}

func panelFrom(msgs []models.Message) Panel {
	doc, found := worklog.FromMessages(msgs)
	if !found || doc == "" {
		return Panel{}
	}
	rendered, err := worklog.Render(doc)
	if err != nil {
		ancli.PrintWarn(fmt.Sprintf("failed to render work-log, showing it as text: %v\n", err))
		rendered = template.HTML("<pre>" + template.HTMLEscapeString(doc) + "</pre>")
	}
	return Panel{
		Visible:  true,
		Markdown: doc,
		HTML:     rendered,
	}
}
