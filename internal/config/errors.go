package config

import "errors"

var (
	ErrMissingAPIKey = errors.New("agent API key is required (set ANTHROPIC_API_KEY or agent.api_key)")
)
