package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/debug"
	"github.com/baalimago/worklog/internal/models"
)

var (
	dataPrefix = []byte("data: ")
	doneToken  = []byte("[DONE]")
)

// StreamCompletions taking the messages as prompt conversation. Returns the tokens from the chat model
// as they arrive. The channel is closed when the model is done, the body is exhausted or ctx is cancelled.
func (g *ChatGPT) StreamCompletions(ctx context.Context, chat models.Chat) (chan models.CompletionEvent, error) {
	req, err := g.createRequest(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %v, body: %v", res.Status, string(body))
	}
	return g.handleStreamResponse(ctx, res), nil
}

func (g *ChatGPT) createRequest(ctx context.Context, chat models.Chat) (*http.Request, error) {
	temperature := g.Temperature
	reqData := gptReq{
		Model:       g.Model,
		Messages:    chat.Messages,
		Stream:      true,
		Temperature: &temperature,
		MaxTokens:   g.MaxTokens,
	}
	if g.debug {
		ancli.PrintOK(fmt.Sprintf("openai request: %v\n", debug.IndentedJsonFmt(reqData)))
	}
	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %v", g.apiKey))
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Connection", "keep-alive")
	return req, nil
}

func (g *ChatGPT) handleStreamResponse(ctx context.Context, res *http.Response) chan models.CompletionEvent {
	outChan := make(chan models.CompletionEvent)
	go func() {
		br := bufio.NewReader(res.Body)
		defer func() {
			res.Body.Close()
			close(outChan)
		}()
		for {
			token, err := br.ReadBytes('\n')
			if len(token) > 0 {
				event, done := g.handleStreamChunk(token)
				if done {
					return
				}
				if _, isNoop := event.(models.NoopEvent); !isNoop {
					if !send(ctx, outChan, event) {
						return
					}
				}
			}
			if err != nil {
				// EOF without [DONE] happens with some compatible hosts, treat it as completion
				if !errors.Is(err, io.EOF) {
					send(ctx, outChan, fmt.Errorf("failed to read line: %w", err))
				}
				return
			}
		}
	}()

	return outChan
}

func send(ctx context.Context, outChan chan<- models.CompletionEvent, event models.CompletionEvent) bool {
	select {
	case outChan <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// handleStreamChunk parses one line of the event stream. The returned bool is true
// once the model has signaled that the reply is complete.
func (g *ChatGPT) handleStreamChunk(token []byte) (models.CompletionEvent, bool) {
	token = bytes.TrimSpace(token)
	token = bytes.TrimPrefix(token, bytes.TrimSpace(dataPrefix))
	token = bytes.TrimSpace(token)
	if len(token) == 0 || token[0] != '{' {
		if bytes.Equal(token, doneToken) {
			return models.NoopEvent{}, true
		}
		// Blank separators, comments and 'event:' lines
		return models.NoopEvent{}, false
	}

	if g.debug {
		ancli.PrintOK(fmt.Sprintf("token: %+v\n", string(token)))
	}
	var chunk chatCompletionChunk
	err := json.Unmarshal(token, &chunk)
	if err != nil {
		if g.debug {
			// Expect some failing unmarshalls, which seems to be fine
			ancli.PrintWarn(fmt.Sprintf("failed to unmarshal token: %v, err: %v\n", string(token), err))
		}
		return models.NoopEvent{}, false
	}
	if chunk.Error != nil {
		return fmt.Errorf("api error: %v, type: %v", chunk.Error.Message, chunk.Error.Type), false
	}
	if len(chunk.Choices) == 0 {
		return models.NoopEvent{}, false
	}

	// Only one choice is ever requested
	content := chunk.Choices[0].Delta.Content
	if content == "" {
		return models.NoopEvent{}, false
	}
	return content, false
}
