// Package claude talks to Anthropic's Messages API. It is the default
// transport for summary generation.
package claude

import (
	"context"
	"strings"
	"time"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/gitsquash/internal/model/interfaces"
	"github.com/maxbolgarin/lang"
)

const (
	defaultModel   = "claude-3-7-sonnet-20250219"
	defaultBaseURL = "https://api.anthropic.com/v1/messages"

	anthropicVersion = "2023-06-01"
)

var _ interfaces.AgentAPI = (*Agent)(nil)

// Agent is the Claude-backed AgentAPI transport.
type Agent struct {
	cfg model.ModelConfig
	cli *cliex.HTTP
}

// New configures the HTTP client for the Messages API. With IsTest set it
// also sends a one-token ping so a bad key fails at startup, not on the
// first summary.
func New(ctx context.Context, cli *cliex.HTTP, cfg model.ModelConfig) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, errm.New("Claude API key is required")
	}
	cfg.Model = lang.Check(cfg.Model, defaultModel)
	cfg.URL = lang.Check(cfg.URL, defaultBaseURL)

	cli.C().SetHeader("x-api-key", cfg.APIKey)
	cli.C().SetHeader("anthropic-version", anthropicVersion)

	a := &Agent{cfg: cfg, cli: cli}
	if cfg.IsTest {
		if err := a.ping(ctx); err != nil {
			return nil, errm.Wrap(err, "failed to connect to Claude API")
		}
	}
	return a, nil
}

// CallAPI sends one prompt and returns the concatenated text blocks.
func (a *Agent) CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error) {
	body := messagesRequest{
		Model:       a.cfg.Model,
		System:      req.SystemPrompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	}

	var resp messagesResponse
	if _, err := a.cli.Post(ctx, a.cfg.URL, body, &resp); err != nil {
		return model.APIResponse{}, errm.Wrap(err, "failed to make API request")
	}
	if resp.Error != nil {
		return model.APIResponse{}, errm.Errorf("Claude API error: %s", resp.Error.Message)
	}
	if len(resp.Content) == 0 {
		return model.APIResponse{}, errm.New("no content in response")
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return model.APIResponse{
		CreateTime:       time.Now(),
		Content:          strings.TrimSpace(text.String()),
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func (a *Agent) ping(ctx context.Context) error {
	_, err := a.CallAPI(ctx, model.APIRequest{
		Prompt:      "Respond with 'OK' if you can understand this message.",
		MaxTokens:   10,
		Temperature: 0.5,
	})
	if err != nil {
		return errm.Wrap(err, "connection test failed")
	}
	return nil
}
