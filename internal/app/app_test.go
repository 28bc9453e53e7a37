package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/gitsquash/internal/agent"
	"github.com/maxbolgarin/gitsquash/internal/cache"
	"github.com/maxbolgarin/gitsquash/internal/config"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var when = time.Date(2025, 6, 23, 10, 0, 0, 0, time.UTC)

// newFixtureRepo builds a repository with a base commit on main and three
// feature commits spread over two days.
func newFixtureRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	commit := func(name, content, subject string, at time.Time) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		wt, err := repo.Worktree()
		require.NoError(t, err)
		_, err = wt.Add(name)
		require.NoError(t, err)
		_, err = wt.Commit(subject, &git.CommitOptions{
			Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: at},
		})
		require.NoError(t, err)
	}

	commit("base.txt", "base", "Initial commit", when.Add(-24*time.Hour))

	head, err := repo.Head()
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), head.Hash())))

	commit("a.txt", "one", "Add cache layer", when)
	commit("b.txt", "two", "Fix cache eviction", when.Add(time.Hour))
	commit("c.txt", "three", "Add cache tests", when.AddDate(0, 0, 1))

	return dir, repo
}

func newTestApp(t *testing.T, dir string, opts RunOptions) (*App, *bytes.Buffer) {
	t.Helper()

	cfg := config.Config{
		Repo:       dir,
		BaseBranch: "main",
		Agent:      agent.Config{Type: agent.Mock, IsTest: true},
		Cache:      cache.Config{Dir: t.TempDir()},
	}

	ctx := contem.New()
	t.Cleanup(func() { ctx.Shutdown() })

	a, err := New(ctx, cfg, opts)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	a.out = out
	a.in = strings.NewReader("")
	return a, out
}

func TestRunDryRun(t *testing.T) {
	dir, _ := newFixtureRepo(t)
	a, out := newTestApp(t, dir, RunOptions{})

	require.NoError(t, a.Run(context.Background(), RunOptions{}))

	text := out.String()
	assert.Contains(t, text, "Squash plan")
	assert.Contains(t, text, "2025-06-23")
	assert.Contains(t, text, "2025-06-24")
	assert.Contains(t, text, "3 commits → 2 squashed commits")
	assert.Contains(t, text, "Dry run")
	assert.NotContains(t, text, "Done:")
}

func TestRunExecuteCreatesBranch(t *testing.T) {
	dir, repo := newFixtureRepo(t)
	a, out := newTestApp(t, dir, RunOptions{})

	opts := RunOptions{Execute: true, TargetBranch: "feature/test", AssumeYes: true}
	require.NoError(t, a.Run(context.Background(), opts))

	assert.Contains(t, out.String(), "Done: feature/test now holds 2 squashed commits.")
	_, err := repo.Reference("refs/heads/feature/test", true)
	assert.NoError(t, err, "target branch exists")
}

func TestRunExecuteConfirmDeclined(t *testing.T) {
	dir, repo := newFixtureRepo(t)
	a, out := newTestApp(t, dir, RunOptions{})
	a.in = strings.NewReader("n\n")

	opts := RunOptions{Execute: true, TargetBranch: "feature/declined"}
	require.NoError(t, a.Run(context.Background(), opts))

	assert.Contains(t, out.String(), "Aborted.")
	_, err := repo.Reference("refs/heads/feature/declined", true)
	assert.Error(t, err, "no branch created when declined")
}

func TestRunExecuteConfirmAccepted(t *testing.T) {
	dir, repo := newFixtureRepo(t)
	a, _ := newTestApp(t, dir, RunOptions{})
	a.in = strings.NewReader("maybe\ny\n")

	opts := RunOptions{Execute: true, TargetBranch: "feature/accepted"}
	require.NoError(t, a.Run(context.Background(), opts))

	_, err := repo.Reference("refs/heads/feature/accepted", true)
	assert.NoError(t, err, "unrecognized answer is re-asked, then accepted")
}

func TestRunSavePlan(t *testing.T) {
	dir, _ := newFixtureRepo(t)
	a, out := newTestApp(t, dir, RunOptions{})

	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, a.Run(context.Background(), RunOptions{SavePlan: path}))
	assert.Contains(t, out.String(), "Plan saved to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var plan model.Plan
	require.NoError(t, json.Unmarshal(data, &plan))
	assert.Equal(t, 3, plan.TotalCommits)
	assert.Len(t, plan.Items, 2)
	assert.NotEmpty(t, plan.Items[0].Summary)
}

func TestCacheCommands(t *testing.T) {
	dir, _ := newFixtureRepo(t)

	a, out := newTestApp(t, dir, RunOptions{})
	require.NoError(t, a.Run(context.Background(), RunOptions{ShowCacheStats: true}))
	assert.Contains(t, out.String(), "Cache directory:")

	a, out = newTestApp(t, dir, RunOptions{})
	require.NoError(t, a.Run(context.Background(), RunOptions{ClearCache: true}))
	assert.Contains(t, out.String(), "Cache cleared.")

	a, out = newTestApp(t, dir, RunOptions{})
	require.NoError(t, a.Run(context.Background(), RunOptions{CleanupCache: true}))
	assert.Contains(t, out.String(), "Expired cache entries removed.")
}

func TestCacheCommandsNeedNoRepositoryOrKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	// A plain directory, not a git repository, and no agent credentials.
	cfg := cache.Config{Dir: filepath.Join(t.TempDir(), "cache")}

	var out bytes.Buffer
	opts := RunOptions{ShowCacheStats: true}
	require.True(t, opts.IsCacheCommand())
	require.NoError(t, RunCacheCommand(cfg, opts, &out))
	assert.Contains(t, out.String(), "Cache directory:")

	out.Reset()
	require.NoError(t, RunCacheCommand(cfg, RunOptions{ClearCache: true}, &out))
	assert.Contains(t, out.String(), "Cache cleared.")

	out.Reset()
	require.NoError(t, RunCacheCommand(cfg, RunOptions{CleanupCache: true}, &out))
	assert.Contains(t, out.String(), "Expired cache entries removed.")
}

func TestRunNoCommits(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	// One commit, and main already points at it: nothing above the base.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.txt"), []byte("base"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("base.txt")
	require.NoError(t, err)
	_, err = wt.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: when},
	})
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), head.Hash())))

	cfg := config.Config{
		Repo:       dir,
		BaseBranch: "main",
		Agent:      agent.Config{Type: agent.Mock, IsTest: true},
		Cache:      cache.Config{Dir: t.TempDir()},
	}
	ctx := contem.New()
	t.Cleanup(func() { ctx.Shutdown() })

	a, err := New(ctx, cfg, RunOptions{})
	require.NoError(t, err)
	a.out = &bytes.Buffer{}

	err = a.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.True(t, errm.Is(err, model.ErrNoCommits))
}
