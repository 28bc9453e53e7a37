package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxbolgarin/gitsquash/internal/analyze"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/gitsquash/internal/model/interfaces"
	"github.com/maxbolgarin/logze/v2"
)

var _ interfaces.SummaryGenerator = (*Generator)(nil)

// Generator produces deterministic summaries from keyword heuristics over
// subjects and diff content. It needs no network or credentials, which makes
// it the test-mode backend and the workhorse of the test suite.
type Generator struct {
	limits    model.MessageLimits
	formatter *analyze.Formatter
	log       logze.Logger
}

func New(limits model.MessageLimits) *Generator {
	return &Generator{
		limits:    limits,
		formatter: analyze.NewFormatter(limits),
		log:       logze.With("component", "mock_generator"),
	}
}

// GenerateSummary builds a summary from the analysis and diff. On retries it
// drops body lines until the message fits the total budget.
func (g *Generator) GenerateSummary(ctx context.Context, req model.SummaryRequest) (string, error) {
	g.log.Debug("generating mock summary", "date", req.Date, "attempt", req.Attempt)

	subject := analyze.TruncateSubject(g.subjectFor(req), g.limits.SubjectLineLimit)

	bodyLines := g.bodyFor(req)

	formatted := g.formatter.Format(assemble(subject, bodyLines))

	if req.Attempt > 1 {
		for len(formatted) > g.limits.TotalMessageLimit && len(bodyLines) > 1 {
			bodyLines = bodyLines[:len(bodyLines)-1]
			formatted = g.formatter.Format(assemble(subject, bodyLines))
		}
	}

	return formatted, nil
}

// SuggestBranchName derives a slug from keywords in the first summaries.
func (g *Generator) SuggestBranchName(ctx context.Context, summaries []string) (string, error) {
	var keywords []string

	for i, summary := range summaries {
		if i == 3 {
			break
		}
		firstLine := strings.ToLower(strings.Split(summary, "\n")[0])

		switch {
		case strings.Contains(firstLine, "cache"):
			keywords = append(keywords, "cache")
		case strings.Contains(firstLine, "buffer"):
			keywords = append(keywords, "buffer")
		case strings.Contains(firstLine, "api"):
			keywords = append(keywords, "api")
		case strings.Contains(firstLine, "performance"), strings.Contains(firstLine, "optimize"):
			keywords = append(keywords, "performance")
		case strings.Contains(firstLine, "fix"):
			keywords = append(keywords, "fixes")
		case strings.Contains(firstLine, "feature"):
			keywords = append(keywords, "features")
		}
	}

	switch len(keywords) {
	case 0:
		return "general-updates", nil
	case 1:
		return keywords[0] + "-improvements", nil
	default:
		return keywords[0] + "-" + keywords[1], nil
	}
}

func (g *Generator) subjectFor(req model.SummaryRequest) string {
	allSubjects := strings.ToLower(strings.Join(req.Subjects, " "))
	diffLower := strings.ToLower(req.Diff)

	switch {
	case strings.Contains(allSubjects, "metrics") || strings.Contains(diffLower, "metrics"):
		if strings.Contains(allSubjects, "dashboard") || strings.Contains(diffLower, "dashboard") {
			return "Implement metrics dashboard and visualization"
		}
		return "Implement metrics collection system"
	case strings.Contains(allSubjects, "buffer") || strings.Contains(diffLower, "buffer"):
		return "Implement buffer management system"
	case strings.Contains(allSubjects, "cache") || strings.Contains(diffLower, "cache"):
		return "Add cache layer and optimization"
	case strings.Contains(allSubjects, "fix") || strings.Contains(allSubjects, "bug") || strings.Contains(allSubjects, "issue"):
		return "Fix bugs and resolve issues"
	case strings.Contains(allSubjects, "test"):
		return "Add comprehensive test coverage"
	case strings.Contains(allSubjects, "performance") || strings.Contains(allSubjects, "optimize"):
		return "Optimize performance and efficiency"
	}

	// Use the first meaningful word from the subjects.
	for _, word := range strings.Fields(allSubjects) {
		switch word {
		case "add", "update", "fix", "the", "and", "or", "to", "of", "in", "for":
			continue
		}
		return "Update " + word + " implementation"
	}

	return "Update implementation for " + req.Date
}

func (g *Generator) bodyFor(req model.SummaryRequest) []string {
	var body []string
	cats := req.Analysis.Categories

	if len(req.Analysis.FileChanges) > 0 {
		body = append(body, fmt.Sprintf("- touch %d files across the tree", len(req.Analysis.FileChanges)))
	}
	if len(cats.Features) > 0 {
		body = append(body, "- implement new functionality: "+strings.ToLower(cats.Features[0]))
	}
	if len(cats.Fixes) > 0 {
		body = append(body, "- fix: address reported issues")
	}
	if len(cats.Tests) > 0 {
		body = append(body, "- add test coverage")
	}
	if len(cats.Performance) > 0 {
		body = append(body, "- optimize system performance")
	}

	body = append(body, g.notesFor(req)...)
	return body
}

func (g *Generator) notesFor(req model.SummaryRequest) []string {
	var notes []string

	if req.Analysis.HasMockedDependencies {
		notes = append(notes, "- note: Implementation uses mocked upstream dependencies")
	}
	if req.Analysis.HasCriticalChanges {
		notes = append(notes, "- note: Contains critical stability fixes")
	}
	if req.Analysis.HasIncompleteFeatures {
		notes = append(notes, "- note: Contains temporary implementation pending review")
	}

	allSubjects := strings.ToLower(strings.Join(req.Subjects, " "))
	if strings.Contains(allSubjects, "breaking") {
		notes = append(notes, "- note: Contains breaking changes to public API")
	}

	return notes
}

func assemble(subject string, body []string) string {
	if len(body) == 0 {
		return subject
	}
	return subject + "\n\n" + strings.Join(body, "\n")
}
