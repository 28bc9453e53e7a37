package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maxbolgarin/gitsquash/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareAndValidateDefaults(t *testing.T) {
	cfg := Config{Agent: agent.Config{Type: agent.Mock}}
	require.NoError(t, cfg.PrepareAndValidate())

	assert.Equal(t, ".", cfg.Repo)
	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, 96, cfg.Squash.SubjectLineLimit)
	assert.Equal(t, 1500, cfg.Squash.TotalMessageLimit)
	assert.Equal(t, cfg.Squash.Limits(), cfg.Agent.Limits,
		"message limits travel from squash config into the agent")
}

func TestPrepareAndValidateRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := Config{}
	err := cfg.PrepareAndValidate()
	assert.ErrorIs(t, err, ErrMissingAPIKey, "default backend needs a key")
}

func TestPrepareAndValidateAPIKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg := Config{}
	require.NoError(t, cfg.PrepareAndValidate())
	assert.Equal(t, "sk-test", cfg.Agent.APIKey)
	assert.Equal(t, agent.Claude, cfg.Agent.Type)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
repo: /tmp/repo
base_branch: develop
squash:
  total_message_limit: 800
  branch_prefix: work/
agent:
  type: mock
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.PrepareAndValidate())

	assert.Equal(t, "/tmp/repo", cfg.Repo)
	assert.Equal(t, "develop", cfg.BaseBranch)
	assert.Equal(t, 800, cfg.Squash.TotalMessageLimit)
	assert.Equal(t, "work/", cfg.Squash.BranchPrefix)
	assert.Equal(t, agent.Mock, cfg.Agent.Type)
	assert.Equal(t, 96, cfg.Squash.SubjectLineLimit, "unset fields keep defaults")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
