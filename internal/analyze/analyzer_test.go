package analyze

import (
	"testing"
	"time"

	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitWithSubject(subject string) model.Commit {
	return model.Commit{
		Hash:        "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
		Subject:     subject,
		AuthorName:  "Dev",
		AuthorEmail: "dev@example.com",
		When:        time.Date(2025, 6, 23, 12, 0, 0, 0, time.UTC),
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		subject string
		check   func(t *testing.T, cats model.CommitCategories)
	}{
		{"Add user authentication", func(t *testing.T, c model.CommitCategories) {
			assert.Len(t, c.Features, 1)
		}},
		{"Fix race in worker pool", func(t *testing.T, c model.CommitCategories) {
			assert.Len(t, c.Fixes, 1)
		}},
		{"Increase coverage for parser", func(t *testing.T, c model.CommitCategories) {
			assert.Len(t, c.Tests, 1)
		}},
		{"Rewrite readme", func(t *testing.T, c model.CommitCategories) {
			assert.Len(t, c.Docs, 1)
		}},
		{"Bump golang.org/x/sys", func(t *testing.T, c model.CommitCategories) {
			assert.Len(t, c.Dependencies, 1)
		}},
		{"Cleanup config loading", func(t *testing.T, c model.CommitCategories) {
			assert.Len(t, c.Refactoring, 1)
		}},
		{"Make lookups faster", func(t *testing.T, c model.CommitCategories) {
			assert.Len(t, c.Performance, 1)
		}},
		{"Tweak CI matrix", func(t *testing.T, c model.CommitCategories) {
			assert.Len(t, c.Other, 1)
		}},
	}

	analyzer := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			cats := analyzer.Categorize([]model.Commit{commitWithSubject(tt.subject)})
			assert.Equal(t, 1, cats.Total())
			tt.check(t, cats)
		})
	}
}

func TestCategorizeFirstMatchWins(t *testing.T) {
	analyzer := NewAnalyzer()

	// "add" (feature) appears before "fix" is checked, so the commit
	// lands in features only.
	cats := analyzer.Categorize([]model.Commit{commitWithSubject("Add fix for login")})
	assert.Len(t, cats.Features, 1)
	assert.Empty(t, cats.Fixes)
	assert.Equal(t, 1, cats.Total())
}

func TestDetectSpecialConditions(t *testing.T) {
	analyzer := NewAnalyzer()

	commits := []model.Commit{
		commitWithSubject("Hotfix for token leak"),
		commitWithSubject("Stub out billing client"),
		commitWithSubject("WIP dashboard layout"),
	}

	critical, mocked, incomplete := analyzer.DetectSpecialConditions(commits, "")
	assert.True(t, critical)
	assert.True(t, mocked)
	assert.True(t, incomplete)

	critical, mocked, incomplete = analyzer.DetectSpecialConditions(
		[]model.Commit{commitWithSubject("Refactor storage layer")}, "")
	assert.False(t, critical)
	assert.False(t, mocked)
	assert.False(t, incomplete)
}

func TestAnalyze(t *testing.T) {
	analyzer := NewAnalyzer()

	diff := "diff --git a/main.go b/main.go\n+++ b/main.go\n+func main() {}\n" +
		"diff --git a/util.go b/util.go\n+++ b/util.go\n+package main\n"

	commits := []model.Commit{
		commitWithSubject("Add main entrypoint"),
		commitWithSubject("Fix nil deref in util"),
	}

	analysis := analyzer.Analyze(commits, diff, " 2 files changed")
	require.Len(t, analysis.Categories.Features, 1)
	require.Len(t, analysis.Categories.Fixes, 1)
	assert.Equal(t, " 2 files changed", analysis.DiffStats)
	assert.Equal(t, map[string]int{"main.go": 1, "util.go": 1}, analysis.FileChanges)
	assert.False(t, analysis.NeedsReview())
}

func TestAnalyzeEmpty(t *testing.T) {
	analysis := NewAnalyzer().Analyze(nil, "", "")
	assert.Equal(t, 0, analysis.Categories.Total())
	assert.Empty(t, analysis.FileChanges)
	assert.False(t, analysis.NeedsReview())
}

func TestFallbackSummary(t *testing.T) {
	limits := model.MessageLimits{SubjectLineLimit: 96, BodyLineWidth: 96, TotalMessageLimit: 1500}

	analysis := model.ChangeAnalysis{
		Categories: model.CommitCategories{
			Features: []string{"Add cache layer", "Add metrics"},
			Fixes:    []string{"Fix flaky shutdown"},
		},
		HasMockedDependencies: true,
	}

	summary := FallbackSummary("2025-06-23", analysis, limits)
	assert.Contains(t, summary, "2 features")
	assert.Contains(t, summary, "1 fix")
	assert.Contains(t, summary, "- note: Uses mocked dependencies")
	assert.LessOrEqual(t, len(summary), limits.TotalMessageLimit)

	empty := FallbackSummary("2025-06-23", model.ChangeAnalysis{}, limits)
	assert.Equal(t, "Update implementation for 2025-06-23", empty)
}
