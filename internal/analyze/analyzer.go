package analyze

import (
	"strings"

	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/logze/v2"
)

// Keyword sets checked in priority order: the first matching category wins,
// so a commit is never counted twice.
var (
	featureKeywords     = []string{"add", "implement", "create", "new", "feature"}
	fixKeywords         = []string{"fix", "bug", "issue", "resolve", "patch"}
	testKeywords        = []string{"test", "spec", "coverage"}
	docKeywords         = []string{"doc", "readme", "comment"}
	dependencyKeywords  = []string{"update", "bump", "dependency", "dependencies"}
	refactorKeywords    = []string{"refactor", "cleanup", "reorganize", "restructure"}
	performanceKeywords = []string{"optimize", "performance", "speed", "faster"}

	criticalKeywords   = []string{"critical", "security", "vulnerability", "urgent", "hotfix"}
	mockedKeywords     = []string{"mock", "stub", "fake", "temporary", "todo"}
	incompleteKeywords = []string{"wip", "incomplete", "partial", "draft", "placeholder"}
)

// Analyzer inspects commit batches and their diffs without touching the
// repository itself.
type Analyzer struct {
	log logze.Logger
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		log: logze.With("component", "analyzer"),
	}
}

// Categorize buckets commit subjects by change kind using keyword matching.
func (a *Analyzer) Categorize(commits []model.Commit) model.CommitCategories {
	var cats model.CommitCategories

	for _, commit := range commits {
		subject := strings.ToLower(commit.Subject)

		switch {
		case containsAny(subject, featureKeywords):
			cats.Features = append(cats.Features, commit.Subject)
		case containsAny(subject, fixKeywords):
			cats.Fixes = append(cats.Fixes, commit.Subject)
		case containsAny(subject, testKeywords):
			cats.Tests = append(cats.Tests, commit.Subject)
		case containsAny(subject, docKeywords):
			cats.Docs = append(cats.Docs, commit.Subject)
		case containsAny(subject, dependencyKeywords):
			cats.Dependencies = append(cats.Dependencies, commit.Subject)
		case containsAny(subject, refactorKeywords):
			cats.Refactoring = append(cats.Refactoring, commit.Subject)
		case containsAny(subject, performanceKeywords):
			cats.Performance = append(cats.Performance, commit.Subject)
		default:
			cats.Other = append(cats.Other, commit.Subject)
		}
	}

	return cats
}

// DetectSpecialConditions scans the concatenated subjects for terms that
// warrant a review note in the generated message.
func (a *Analyzer) DetectSpecialConditions(commits []model.Commit, diffText string) (hasCritical, hasMocked, hasIncomplete bool) {
	var b strings.Builder
	for _, c := range commits {
		b.WriteString(strings.ToLower(c.Subject))
		b.WriteString(" ")
	}
	allSubjects := b.String()

	hasCritical = containsAny(allSubjects, criticalKeywords)
	hasMocked = containsAny(allSubjects, mockedKeywords)
	hasIncomplete = containsAny(allSubjects, incompleteKeywords)

	return hasCritical, hasMocked, hasIncomplete
}

// FileChanges extracts per-file change counts from "diff --git" headers.
func (a *Analyzer) FileChanges(diffText string) map[string]int {
	fileChanges := make(map[string]int)

	for _, line := range strings.Split(diffText, "\n") {
		if !strings.HasPrefix(line, "diff --git") {
			continue
		}
		if idx := strings.LastIndex(line, " b/"); idx != -1 {
			filename := line[idx+3:]
			fileChanges[filename]++
		}
	}

	return fileChanges
}

// Analyze composes categorization, file extraction and special-condition
// detection. An empty commit list yields the all-empty analysis.
func (a *Analyzer) Analyze(commits []model.Commit, diffText, diffStats string) model.ChangeAnalysis {
	if len(commits) == 0 {
		return model.ChangeAnalysis{FileChanges: map[string]int{}}
	}

	a.log.Debug("analyzing commits", "count", len(commits))

	cats := a.Categorize(commits)
	hasCritical, hasMocked, hasIncomplete := a.DetectSpecialConditions(commits, diffText)

	analysis := model.ChangeAnalysis{
		Categories:            cats,
		DiffStats:             diffStats,
		HasCriticalChanges:    hasCritical,
		HasMockedDependencies: hasMocked,
		HasIncompleteFeatures: hasIncomplete,
		FileChanges:           a.FileChanges(diffText),
	}

	a.log.Debug("analysis complete",
		"features", len(cats.Features),
		"fixes", len(cats.Fixes),
		"needs_review", analysis.NeedsReview(),
	)

	return analysis
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
