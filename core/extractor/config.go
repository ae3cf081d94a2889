package extractor

// Config holds configuration for the reward-rule extraction service.
type Config struct {
	// Endpoint is the chat-completions URL of an OpenAI-compatible API.
	Endpoint string `mapstructure:"endpoint" default:"https://api.openai.com/v1/chat/completions"`
	// ApiKey is the bearer token for the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// Model is the model name sent with each request.
	Model string `mapstructure:"model" default:"gpt-4o-mini"`
	// TimeoutSeconds is the request timeout in seconds. Extraction of a
	// long terms page can take a while.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"120"`
	// MaxContentChars truncates the page content sent to the model.
	MaxContentChars int `mapstructure:"max_content_chars" default:"60000"`
}
