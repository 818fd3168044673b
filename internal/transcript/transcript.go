// Package transcript holds the turns of one work-log interview.
//
// Turns alternate user/assistant, starting with the user. Completed turns are
// never modified; the only mutable turn is a trailing assistant reply while it
// is being streamed in.
package transcript

import (
	"errors"
	"fmt"
	"strings"

	"github.com/baalimago/worklog/internal/models"
)

var (
	ErrOutOfOrder    = errors.New("turns must alternate user/assistant, starting with user")
	ErrInProgress    = errors.New("assistant reply is in progress")
	ErrNoPlaceholder = errors.New("no assistant reply in progress")
	ErrNotExtending  = errors.New("reply update does not extend the previous reply")
)

// Transcript is not safe for concurrent use, the owner is expected to guard it.
type Transcript struct {
	turns     []models.Message
	streaming bool
}

// AppendUser adds a completed user turn.
func (t *Transcript) AppendUser(content string) error {
	if t.streaming {
		return ErrInProgress
	}
	if len(t.turns)%2 != 0 {
		return fmt.Errorf("failed to append user turn: %w", ErrOutOfOrder)
	}
	t.turns = append(t.turns, models.Message{Role: models.RoleUser, Content: content})
	return nil
}

// BeginAssistant appends an empty assistant placeholder which may then be
// overwritten with UpdateAssistant until FinishAssistant or Abort.
func (t *Transcript) BeginAssistant() error {
	if t.streaming {
		return ErrInProgress
	}
	if len(t.turns)%2 != 1 {
		return fmt.Errorf("failed to begin assistant turn: %w", ErrOutOfOrder)
	}
	t.turns = append(t.turns, models.Message{Role: models.RoleAssistant})
	t.streaming = true
	return nil
}

// UpdateAssistant overwrites the placeholder. The new content has to extend
// what was there before.
func (t *Transcript) UpdateAssistant(content string) error {
	if !t.streaming {
		return ErrNoPlaceholder
	}
	last := &t.turns[len(t.turns)-1]
	if !strings.HasPrefix(content, last.Content) {
		return ErrNotExtending
	}
	last.Content = content
	return nil
}

// FinishAssistant seals the placeholder as a completed turn.
func (t *Transcript) FinishAssistant() error {
	if !t.streaming {
		return ErrNoPlaceholder
	}
	t.streaming = false
	return nil
}

// Abort drops the placeholder along with the user turn it answers, leaving the
// transcript as it was before the exchange started.
func (t *Transcript) Abort() error {
	if !t.streaming {
		return ErrNoPlaceholder
	}
	t.turns = t.turns[:len(t.turns)-2]
	t.streaming = false
	return nil
}

// Reset to an empty transcript, regardless of state.
func (t *Transcript) Reset() {
	t.turns = nil
	t.streaming = false
}

// Messages returns a copy of the turns.
func (t *Transcript) Messages() []models.Message {
	cpy := make([]models.Message, len(t.turns))
	copy(cpy, t.turns)
	return cpy
}

// History is the completed exchanges. While a reply is streaming, the user turn
// it answers and the placeholder are left out.
func (t *Transcript) History() []models.Message {
	msgs := t.Messages()
	if t.streaming {
		return msgs[:len(msgs)-2]
	}
	return msgs
}

func (t *Transcript) Len() int {
	return len(t.turns)
}

func (t *Transcript) Streaming() bool {
	return t.streaming
}
