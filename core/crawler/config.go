package crawler

// Config holds configuration for the page crawler.
type Config struct {
	// TimeoutSeconds is the HTTP request timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxBodyBytes caps the downloaded response body size.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" default:"10485760"`
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" default:"reward-tracker/1.0"`
}
