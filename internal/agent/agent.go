package agent

import (
	"context"
	"regexp"
	"strings"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/gitsquash/internal/agent/claude"
	"github.com/maxbolgarin/gitsquash/internal/agent/gemini"
	"github.com/maxbolgarin/gitsquash/internal/agent/mock"
	"github.com/maxbolgarin/gitsquash/internal/agent/openai"
	"github.com/maxbolgarin/gitsquash/internal/agent/prompts"
	"github.com/maxbolgarin/gitsquash/internal/analyze"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/gitsquash/internal/model/interfaces"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

var (
	commitMessageRegexp = regexp.MustCompile(`(?is)<commit-message>\s*(.*?)\s*</commit-message>`)
	branchNameRegexp    = regexp.MustCompile(`(?is)<branch-name>\s*(.*?)\s*</branch-name>`)
	branchSlugCleaner   = regexp.MustCompile(`[^a-z0-9-]+`)
	dashCollapser       = regexp.MustCompile(`-{2,}`)
)

const maxBranchSlugLength = 50

var _ interfaces.SummaryGenerator = (*Agent)(nil)

// Agent generates commit summaries through an LLM backend. API failures never
// propagate to the caller: a heuristic fallback summary is returned instead so
// a plan can always be built offline.
type Agent struct {
	cfg    Config
	logger logze.Logger
	pb     *prompts.Builder
	api    interfaces.AgentAPI
}

// New creates a summary generator for the configured backend. The mock type
// needs no credentials and short-circuits to the deterministic generator.
func New(ctx context.Context, cfg Config) (interfaces.SummaryGenerator, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}

	if cfg.Type == Mock {
		return mock.New(cfg.Limits), nil
	}

	agent := &Agent{
		cfg:    cfg,
		logger: logze.With("component", "agent", "type", string(cfg.Type)),
		pb:     prompts.NewBuilder(cfg.Limits),
	}

	modelCfg := model.ModelConfig{
		APIKey:   cfg.APIKey,
		Model:    lang.Check(cfg.Model, cfg.Limits.Model),
		URL:      cfg.BaseURL,
		ProxyURL: cfg.ProxyURL,
		IsTest:   cfg.IsTest,
	}

	cli, err := cliex.NewWithConfig(cliex.Config{
		BaseURL:        cfg.BaseURL,
		UserAgent:      cfg.UserAgent,
		ProxyAddress:   cfg.ProxyURL,
		RequestTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, errm.Wrap(err, "failed to create HTTP client")
	}

	switch cfg.Type {
	case Gemini:
		agent.api, err = gemini.New(ctx, modelCfg)
	case OpenAI:
		agent.api, err = openai.New(ctx, cli, modelCfg)
	case Claude:
		agent.api, err = claude.New(ctx, cli, modelCfg)
	default:
		return nil, errm.Errorf("unsupported agent type: %s", cfg.Type)
	}
	if err != nil {
		return nil, errm.Wrap(err, "failed to create agent")
	}

	return agent, nil
}

// GenerateSummary asks the backend for a commit message covering the batch.
// Any API or parsing failure degrades to the heuristic fallback summary.
func (a *Agent) GenerateSummary(ctx context.Context, req model.SummaryRequest) (string, error) {
	response, err := a.apiCall(ctx, a.pb.BuildSummaryPrompt(req))
	if err != nil {
		a.logger.Warn("summary generation failed, using fallback", "date", req.Date, "error", err)
		return analyze.FallbackSummary(req.Date, req.Analysis, a.cfg.Limits), nil
	}

	summary := parseTagged(response, commitMessageRegexp)
	if summary == "" {
		a.logger.Warn("no commit message in response, using fallback", "date", req.Date)
		return analyze.FallbackSummary(req.Date, req.Analysis, a.cfg.Limits), nil
	}

	return summary, nil
}

// SuggestBranchName asks the backend for a branch slug describing the
// summaries and sanitizes the result. Failures degrade to a keyword slug.
func (a *Agent) SuggestBranchName(ctx context.Context, summaries []string) (string, error) {
	response, err := a.apiCall(ctx, a.pb.BuildBranchNamePrompt(summaries))
	if err != nil {
		a.logger.Warn("branch name suggestion failed, using fallback", "error", err)
		return keywordBranchSlug(summaries), nil
	}

	slug := CleanBranchSlug(parseTagged(response, branchNameRegexp))
	if slug == "" {
		return keywordBranchSlug(summaries), nil
	}

	return slug, nil
}

func (a *Agent) apiCall(ctx context.Context, prompt model.Prompt) (string, error) {
	response, err := a.api.CallAPI(ctx, model.APIRequest{
		Prompt:       prompt.UserPrompt,
		SystemPrompt: prompt.SystemPrompt,
		MaxTokens:    a.cfg.MaxTokens,
		Temperature:  a.cfg.Temperature,
		ResponseType: "text/plain",
	})
	if err != nil {
		return "", errm.Wrap(err, "failed to call API")
	}

	if response.Content == "" {
		return "", errm.New("empty response from API")
	}

	return response.Content, nil
}

// parseTagged extracts the tagged section of a response, falling back to the
// whole response when the model omitted the tags.
func parseTagged(response string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(response); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}

// CleanBranchSlug normalizes a suggested branch name into a safe git ref
// component: lowercase, dash-separated, at most 50 characters.
func CleanBranchSlug(raw string) string {
	slug := strings.ToLower(strings.TrimSpace(raw))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = branchSlugCleaner.ReplaceAllString(slug, "-")
	slug = dashCollapser.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxBranchSlugLength {
		slug = strings.Trim(slug[:maxBranchSlugLength], "-")
	}
	return slug
}

func keywordBranchSlug(summaries []string) string {
	all := strings.ToLower(strings.Join(summaries, " "))
	for _, kw := range []string{"cache", "performance", "metrics", "api", "buffer"} {
		if strings.Contains(all, kw) {
			return kw + "-improvements"
		}
	}
	return "updates"
}
