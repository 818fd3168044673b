package openai

import (
	"fmt"
	"net/http"
	"os"

	"github.com/baalimago/go_away_boilerplate/pkg/misc"
)

var GptDefault = ChatGPT{
	Model:       "gpt-4o-mini",
	Temperature: 0,
	URL:         ChatURL,
}

// ChatGPT streams chat completions from OpenAI, or any host which speaks
// the same chat completions dialect.
type ChatGPT struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   *int    `json:"max_tokens"` // Use a pointer to allow null value
	URL         string  `json:"url"`

	client *http.Client
	apiKey string
	debug  bool
}

func (g *ChatGPT) Setup() error {
	apiKey := os.Getenv(APIKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("environment variable '%v' not set", APIKeyEnv)
	}
	g.apiKey = apiKey
	if g.URL == "" {
		g.URL = ChatURL
	}
	if g.client == nil {
		g.client = &http.Client{}
	}
	if misc.Truthy(os.Getenv("DEBUG")) || misc.Truthy(os.Getenv(DebugEnv)) {
		g.debug = true
	}
	return nil
}
