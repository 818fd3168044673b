package openai

const (
	ChatURL = "https://api.openai.com/v1/chat/completions"
	// APIKeyEnv is where the bearer token is read from
	APIKeyEnv = "OPENAI_API_KEY"
	DebugEnv  = "DEBUG_OPENAI"
)
