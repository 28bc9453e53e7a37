// Package openai talks to the Chat Completions API as an alternative
// summary transport.
package openai

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
	defaultModel = "gpt-4o-mini"
	defaultURL   = "https://api.openai.com/v1/chat/completions"
)

var _ interfaces.AgentAPI = (*Agent)(nil)

// Agent is the OpenAI-backed AgentAPI transport.
type Agent struct {
	cli *cliex.HTTP
	cfg model.ModelConfig
}

// New configures Bearer auth for the Chat Completions API. With IsTest set
// it sends a one-token ping so a bad key fails at startup.
func New(ctx context.Context, cli *cliex.HTTP, cfg model.ModelConfig) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, errm.New("OpenAI API key is required")
	}
	cfg.Model = lang.Check(cfg.Model, defaultModel)
	cfg.URL = lang.Check(cfg.URL, defaultURL)

	cli.C().SetAuthToken(cfg.APIKey)

	a := &Agent{cli: cli, cfg: cfg}
	if cfg.IsTest {
		if err := a.ping(ctx); err != nil {
			return nil, errm.Wrap(err, "failed to connect to OpenAI API")
		}
	}
	return a, nil
}

// CallAPI sends the system and user prompts as one chat turn.
func (a *Agent) CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error) {
	body := chatCompletionRequest{
		Model: a.cfg.Model,
		Messages: []message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp chatCompletionResponse
	if _, err := a.cli.Post(ctx, lang.Check(req.URL, a.cfg.URL), body, &resp); err != nil {
		return model.APIResponse{}, errm.Wrap(err, "failed to make API request")
	}
	if resp.Error != nil {
		return model.APIResponse{}, errm.Errorf("OpenAI API error: %s", resp.Error.Message)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}

	return model.APIResponse{
		CreateTime:       time.Unix(resp.Created, 0),
		Content:          content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
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
