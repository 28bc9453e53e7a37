package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/gitsquash/internal/agent/prompts"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/logze/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	response string
	err      error
	requests []model.APIRequest
}

func (s *stubAPI) CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return model.APIResponse{}, s.err
	}
	return model.APIResponse{Content: s.response}, nil
}

func testLimits() model.MessageLimits {
	return model.MessageLimits{
		SubjectLineLimit:  96,
		BodyLineWidth:     96,
		TotalMessageLimit: 1500,
		Model:             "claude-3-7-sonnet-20250219",
	}
}

func newTestAgent(api *stubAPI) *Agent {
	cfg := Config{Type: Claude, APIKey: "key", Limits: testLimits()}
	return &Agent{
		cfg:    cfg,
		logger: logze.With("component", "agent"),
		pb:     prompts.NewBuilder(cfg.Limits),
		api:    api,
	}
}

func summaryRequest() model.SummaryRequest {
	return model.SummaryRequest{
		Date:     "2025-06-23",
		Subjects: []string{"Add metrics collector", "Fix counter overflow"},
		Analysis: model.ChangeAnalysis{
			Categories: model.CommitCategories{
				Features: []string{"Add metrics collector"},
				Fixes:    []string{"Fix counter overflow"},
			},
			FileChanges: map[string]int{"metrics.go": 2},
		},
		Attempt: 1,
	}
}

func TestGenerateSummaryParsesTaggedResponse(t *testing.T) {
	api := &stubAPI{response: "Some preamble\n<commit-message>\nAdd metrics pipeline\n\n- collect counters\n</commit-message>\ntrailing"}
	a := newTestAgent(api)

	summary, err := a.GenerateSummary(context.Background(), summaryRequest())
	require.NoError(t, err)
	assert.Equal(t, "Add metrics pipeline\n\n- collect counters", summary)
	require.Len(t, api.requests, 1)
	assert.Contains(t, api.requests[0].Prompt, "2025-06-23")
}

func TestGenerateSummaryWithoutTagsUsesWholeResponse(t *testing.T) {
	api := &stubAPI{response: "  Add metrics pipeline\n\n- collect counters  "}
	a := newTestAgent(api)

	summary, err := a.GenerateSummary(context.Background(), summaryRequest())
	require.NoError(t, err)
	assert.Equal(t, "Add metrics pipeline\n\n- collect counters", summary)
}

func TestGenerateSummaryFallsBackOnAPIError(t *testing.T) {
	api := &stubAPI{err: errm.New("connection refused")}
	a := newTestAgent(api)

	summary, err := a.GenerateSummary(context.Background(), summaryRequest())
	require.NoError(t, err, "API failures must not surface to the caller")
	assert.NotEmpty(t, summary)
	assert.LessOrEqual(t, len(summary), testLimits().TotalMessageLimit)
	assert.Contains(t, summary, "1 feature")
}

func TestGenerateSummaryFallsBackOnEmptyResponse(t *testing.T) {
	api := &stubAPI{response: "<commit-message></commit-message>"}
	a := newTestAgent(api)

	summary, err := a.GenerateSummary(context.Background(), summaryRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
}

func TestSuggestBranchName(t *testing.T) {
	api := &stubAPI{response: "<branch-name>Metrics Pipeline!!</branch-name>"}
	a := newTestAgent(api)

	name, err := a.SuggestBranchName(context.Background(), []string{"Add metrics pipeline"})
	require.NoError(t, err)
	assert.Equal(t, "metrics-pipeline", name)
}

func TestSuggestBranchNameFallsBackOnError(t *testing.T) {
	api := &stubAPI{err: errm.New("timeout")}
	a := newTestAgent(api)

	name, err := a.SuggestBranchName(context.Background(), []string{"Improve cache eviction"})
	require.NoError(t, err)
	assert.Equal(t, "cache-improvements", name)

	name, err = a.SuggestBranchName(context.Background(), []string{"Rework docs"})
	require.NoError(t, err)
	assert.Equal(t, "updates", name)
}

func TestCleanBranchSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Feature Updates", "feature-updates"},
		{"  --cache--layer--  ", "cache-layer"},
		{"UPPER_case/slash", "upper-case-slash"},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanBranchSlug(tt.in), "input %q", tt.in)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := Config{Type: Claude}
	assert.Error(t, cfg.PrepareAndValidate(), "api key required for real backends")

	cfg = Config{Type: Mock}
	assert.NoError(t, cfg.PrepareAndValidate(), "mock needs no key")

	cfg = Config{Type: "banana", APIKey: "key"}
	assert.Error(t, cfg.PrepareAndValidate())

	cfg = Config{APIKey: "key"}
	require.NoError(t, cfg.PrepareAndValidate())
	assert.Equal(t, Claude, cfg.Type, "empty type defaults to claude")
	assert.Equal(t, float32(defaultTemperature), cfg.Temperature)
}
