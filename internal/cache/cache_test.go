package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = model.MessageLimits{
	SubjectLineLimit:  96,
	BodyLineWidth:     96,
	TotalMessageLimit: 1500,
	Model:             "claude-3-7-sonnet-20250219",
}

func testCommits(hashes ...string) []model.Commit {
	commits := make([]model.Commit, 0, len(hashes))
	for i, h := range hashes {
		commits = append(commits, model.Commit{
			Hash:    h + "0000000000000000000000000000000000000000"[len(h):],
			Subject: "Commit " + h,
			When:    time.Date(2025, 6, 23, 10, i, 0, 0, time.UTC),
		})
	}
	return commits
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(Config{Dir: t.TempDir(), TTL: time.Hour})
	require.NoError(t, err)
	return c
}

func TestSummaryRoundTrip(t *testing.T) {
	c := newTestCache(t)
	commits := testCommits("aaaa", "bbbb")

	_, ok := c.GetSummary("2025-06-23", commits, "diff", testLimits)
	assert.False(t, ok)

	require.NoError(t, c.SetSummary("2025-06-23", commits, "diff", testLimits, "Add things"))

	got, ok := c.GetSummary("2025-06-23", commits, "diff", testLimits)
	require.True(t, ok)
	assert.Equal(t, "Add things", got)
}

func TestSummaryKeyDeterminism(t *testing.T) {
	commits := testCommits("aaaa", "bbbb", "cccc", "dddd")
	hashes := commitHashes(commits)
	diffHash := hashContent("diff")
	cfgHash := hashConfig(testLimits)

	base := summaryKey("2025-06-23", hashes, diffHash, cfgHash)
	assert.Equal(t, base, summaryKey("2025-06-23", hashes, diffHash, cfgHash))
	assert.Len(t, base, keyLength)

	assert.NotEqual(t, base, summaryKey("2025-06-24", hashes, diffHash, cfgHash))
	assert.NotEqual(t, base, summaryKey("2025-06-23", hashes[:3], diffHash, cfgHash))
	assert.NotEqual(t, base, summaryKey("2025-06-23", hashes, hashContent("other"), cfgHash))

	other := testLimits
	other.Model = "claude-sonnet-4"
	assert.NotEqual(t, base, summaryKey("2025-06-23", hashes, diffHash, hashConfig(other)))

	// Reordering the leading hashes changes the key too.
	reordered := append([]string{hashes[1], hashes[0]}, hashes[2:]...)
	assert.NotEqual(t, base, summaryKey("2025-06-23", reordered, diffHash, cfgHash))
}

func TestSummaryExpiry(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Config{Dir: dir, TTL: time.Millisecond})
	require.NoError(t, err)

	commits := testCommits("aaaa")
	require.NoError(t, c.SetSummary("2025-06-23", commits, "diff", testLimits, "Add things"))

	time.Sleep(5 * time.Millisecond)

	_, ok := c.GetSummary("2025-06-23", commits, "diff", testLimits)
	assert.False(t, ok)

	// Expired entries are dropped at load time, not retained.
	reloaded, err := New(Config{Dir: dir, TTL: time.Millisecond})
	require.NoError(t, err)
	assert.Zero(t, reloaded.Stats().TotalSummaries)
}

func testPlan(commits []model.Commit) model.Plan {
	return model.Plan{
		Items: []model.PlanItem{{
			Date:    "2025-06-23",
			Commits: commits,
			Summary: "Add things",
		}},
		TotalCommits: len(commits),
		Limits:       testLimits,
	}
}

func TestPlanRoundTrip(t *testing.T) {
	c := newTestCache(t)
	commits := testCommits("aaaa", "bbbb")

	require.NoError(t, c.SetPlan("", "", commits, testLimits, testPlan(commits)))

	cached, ok := c.GetPlan("", "", commits, testLimits)
	require.True(t, ok)
	assert.Equal(t, len(commits), cached.TotalCommits)
	require.Len(t, cached.Items, 1)
	assert.Equal(t, "Add things", cached.Items[0].Summary)
	assert.Equal(t, 2, cached.Items[0].CommitCount)
	assert.Equal(t, commitHashes(commits), cached.Items[0].CommitHashes)
}

func TestInvalidatePlans(t *testing.T) {
	c := newTestCache(t)
	first := testCommits("aaaa", "bbbb")
	second := testCommits("cccc", "dddd")

	require.NoError(t, c.SetPlan("", "", first, testLimits, testPlan(first)))
	require.NoError(t, c.SetPlan("2025-06-24", "", second, testLimits, testPlan(second)))

	// Invalidating by one commit of the first plan removes only that plan.
	require.NoError(t, c.InvalidatePlans([]string{first[1].Hash}))

	_, ok := c.GetPlan("", "", first, testLimits)
	assert.False(t, ok)
	_, ok = c.GetPlan("2025-06-24", "", second, testLimits)
	assert.True(t, ok)
}

func TestClearAllAndExpired(t *testing.T) {
	c := newTestCache(t)
	commits := testCommits("aaaa")

	require.NoError(t, c.SetSummary("2025-06-23", commits, "diff", testLimits, "Add things"))
	require.NoError(t, c.SetPlan("", "", commits, testLimits, testPlan(commits)))

	require.NoError(t, c.ClearExpired()) // nothing expired yet
	stats := c.Stats()
	assert.Equal(t, 1, stats.TotalSummaries)
	assert.Equal(t, 1, stats.TotalPlans)

	require.NoError(t, c.ClearAll())
	stats = c.Stats()
	assert.Zero(t, stats.TotalSummaries)
	assert.Zero(t, stats.TotalPlans)
}

func TestCorruptTableIsColdCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, summaryCacheFile), []byte("{not json"), 0o644))

	c, err := New(Config{Dir: dir, TTL: time.Hour})
	require.NoError(t, err)
	assert.Zero(t, c.Stats().TotalSummaries)
}

func TestVersionMismatchDiscarded(t *testing.T) {
	dir := t.TempDir()
	stale := `{"version":"0.9","updated_at":"2025-06-23T10:00:00Z","entries":{"abc":{"key":"abc","value":"x","created_at":"2025-06-23T10:00:00Z","expires_at":"2125-06-23T10:00:00Z","context_hash":"","metadata":{}}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, planCacheFile), []byte(stale), 0o644))

	c, err := New(Config{Dir: dir, TTL: time.Hour})
	require.NoError(t, err)
	assert.Zero(t, c.Stats().TotalPlans)
}

func TestPersistedAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	commits := testCommits("aaaa", "bbbb")

	c1, err := New(Config{Dir: dir, TTL: time.Hour})
	require.NoError(t, err)
	require.NoError(t, c1.SetSummary("2025-06-23", commits, "diff", testLimits, "Add things"))

	c2, err := New(Config{Dir: dir, TTL: time.Hour})
	require.NoError(t, err)
	got, ok := c2.GetSummary("2025-06-23", commits, "diff", testLimits)
	require.True(t, ok)
	assert.Equal(t, "Add things", got)
}
