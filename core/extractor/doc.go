// Package extractor turns normalized reward-page markdown into structured
// reward rules by calling an OpenAI-compatible chat-completions endpoint.
//
// The model is instructed to answer with a single JSON object mapping
// reward-rule fields to values. Anything else (transport errors, HTTP
// failures, a non-JSON answer) is reported as a typed extraction failure
// whose detail ends up in the AI_FAILED audit outcome.
package extractor
