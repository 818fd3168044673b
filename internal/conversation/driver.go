package conversation

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/debug"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/baalimago/worklog/internal/models"
)

// Driver runs one exchange of the interview against a StreamCompleter.
type Driver struct {
	completer    models.StreamCompleter
	systemPrompt string
	debug        bool
}

func NewDriver(completer models.StreamCompleter, systemPrompt string) *Driver {
	return &Driver{
		completer:    completer,
		systemPrompt: systemPrompt,
		debug:        misc.Truthy(os.Getenv("DEBUG")) || misc.Truthy(os.Getenv("DEBUG_CONVERSATION")),
	}
}

// Respond to message, given the prior history. The returned channel emits the reply
// accumulated so far as a string each time it grows, so every string is an extension of
// the one before it. Upstream failures are emitted as errors. The channel is closed once
// the model is done or ctx is cancelled. history is never modified.
func (d *Driver) Respond(ctx context.Context, history []models.Message, message string) (chan models.CompletionEvent, error) {
	chat := d.chat(history, message)
	if d.debug {
		ancli.PrintOK(fmt.Sprintf("conversation chat: %v\n", debug.IndentedJsonFmt(chat)))
	}
	completions, err := d.completer.StreamCompletions(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("failed to stream completions: %w", err)
	}

	out := make(chan models.CompletionEvent)
	go func() {
		defer close(out)
		var reply strings.Builder
		for {
			select {
			case completion, ok := <-completions:
				// Channel gracefully closed, the reply is complete
				if !ok {
					return
				}
				var event models.CompletionEvent
				switch cast := completion.(type) {
				case string:
					if cast == "" {
						continue
					}
					reply.WriteString(cast)
					event = reply.String()
				case error:
					event = fmt.Errorf("completion stream error: %w", cast)
				case models.NoopEvent:
					continue
				default:
					event = fmt.Errorf("unknown completion type: %v", completion)
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// chat is the system prompt, followed by history, followed by the new message.
func (d *Driver) chat(history []models.Message, message string) models.Chat {
	msgs := make([]models.Message, 0, len(history)+2)
	msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: d.systemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, models.Message{Role: models.RoleUser, Content: message})
	return models.Chat{Messages: msgs}
}
