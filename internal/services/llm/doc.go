// Package llm provides an OpenAI-compatible chat client for structured
// script generation.
//
// The client sends system and user prompts to a configured model with a
// JSON response format and returns the raw JSON payload. Callers decode
// the payload with DecodeJSON, which tolerates common model formatting
// quirks (code fences, prose wrapping the JSON object).
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON payload.
// Client.HealthCheck: verify API key and model availability.
// DecodeJSON: decode a model payload into a target value.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default),
// honouring Retry-After when the server sends one. Context cancellation
// aborts retries immediately.
package llm
