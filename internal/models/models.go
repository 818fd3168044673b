package models

import (
	"context"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionEvent is anything emitted on a completion stream. In practice
// it's a string, an error or a NoopEvent.
type CompletionEvent any

// NoopEvent is emitted for stream lines which carry no content, such as
// keep-alives and role announcements.
type NoopEvent struct{}

type StreamCompleter interface {
	// StreamCompletions of the chat. The returned channel is closed once the
	// vendor signals that the reply is complete, or once ctx is cancelled.
	StreamCompletions(ctx context.Context, chat Chat) (chan CompletionEvent, error)
}

type Chat struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LastOfRole returns the last Message with role, and its index
func (c *Chat) LastOfRole(role string) (Message, int, error) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		msg := c.Messages[i]
		if msg.Role == role {
			return msg, i, nil
		}
	}
	return Message{}, -1, fmt.Errorf("failed to find any %v message", role)
}
