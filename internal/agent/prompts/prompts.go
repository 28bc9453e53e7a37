package prompts

import (
	"fmt"
	"strings"

	"github.com/maxbolgarin/gitsquash/internal/model"
)

const (
	// maxDiffSize bounds the diff included in a prompt so it cannot blow
	// the model's context window.
	maxDiffSize = 10000

	// maxSubjectsInContext bounds the list of original commit subjects.
	maxSubjectsInContext = 15

	// maxSummariesInContext bounds the summaries used for branch naming.
	maxSummariesInContext = 5
)

// Builder assembles prompts for summary generation and branch naming.
type Builder struct {
	limits model.MessageLimits
}

func NewBuilder(limits model.MessageLimits) *Builder {
	return &Builder{limits: limits}
}

// BuildSummaryPrompt builds the prompt for one summary generation attempt.
// On retries the previous over-length result drives a "make it shorter"
// instruction.
func (b *Builder) BuildSummaryPrompt(req model.SummaryRequest) model.Prompt {
	lengthGuidance := fmt.Sprintf("Keep total message under %d characters.", b.limits.TotalMessageLimit)
	if req.Attempt > 1 {
		lengthGuidance = fmt.Sprintf(
			"Previous summary was %d chars. Create a more concise version under %d chars.",
			len(req.Previous), b.limits.TotalMessageLimit)
	}

	return model.Prompt{
		SystemPrompt: summarySystemPrompt,
		UserPrompt: fmt.Sprintf(summaryUserPromptTemplate,
			req.Date,
			b.buildContext(req),
			b.limits.SubjectLineLimit,
			b.limits.BodyLineWidth,
			lengthGuidance,
		),
	}
}

// BuildBranchNamePrompt builds the prompt for branch name suggestion.
func (b *Builder) BuildBranchNamePrompt(summaries []string) model.Prompt {
	return model.Prompt{
		SystemPrompt: branchNameSystemPrompt,
		UserPrompt:   fmt.Sprintf(branchNameUserPromptTemplate, buildBranchNameContext(summaries)),
	}
}

func (b *Builder) buildContext(req model.SummaryRequest) string {
	lines := []string{
		fmt.Sprintf("Commits being summarized: %d", len(req.Subjects)),
		"",
		"Original commit messages:",
	}

	for i, subject := range req.Subjects {
		if i == maxSubjectsInContext {
			lines = append(lines, fmt.Sprintf("... and %d more", len(req.Subjects)-maxSubjectsInContext))
			break
		}
		lines = append(lines, "- "+subject)
	}
	lines = append(lines, "")

	if req.Analysis.DiffStats != "" {
		lines = append(lines, "File changes:", req.Analysis.DiffStats, "")
	}

	if req.Diff != "" {
		lines = append(lines, "Code changes (diff):", "---")
		lines = append(lines, smartTruncateDiff(req.Diff, maxDiffSize))
		lines = append(lines, "---", "")
	}

	cats := req.Analysis.Categories
	var insights []string
	if n := len(cats.Features); n > 0 {
		insights = append(insights, fmt.Sprintf("%d feature additions", n))
	}
	if n := len(cats.Fixes); n > 0 {
		insights = append(insights, fmt.Sprintf("%d bug fixes", n))
	}
	if n := len(cats.Performance); n > 0 {
		insights = append(insights, fmt.Sprintf("%d performance improvements", n))
	}
	if n := len(cats.Refactoring); n > 0 {
		insights = append(insights, fmt.Sprintf("%d refactoring changes", n))
	}
	if n := len(cats.Tests); n > 0 {
		insights = append(insights, fmt.Sprintf("%d test changes", n))
	}
	if len(insights) > 0 {
		lines = append(lines, "Change summary: "+strings.Join(insights, ", "))
	}

	var warnings []string
	if req.Analysis.HasCriticalChanges {
		warnings = append(warnings, "Contains critical/security changes")
	}
	if req.Analysis.HasMockedDependencies {
		warnings = append(warnings, "Uses mocked dependencies")
	}
	if req.Analysis.HasIncompleteFeatures {
		warnings = append(warnings, "Contains incomplete features")
	}
	if len(warnings) > 0 {
		lines = append(lines, "")
		for _, w := range warnings {
			lines = append(lines, "WARNING: "+w)
		}
	}

	return strings.Join(lines, "\n")
}

func buildBranchNameContext(summaries []string) string {
	var sample []string

	for i, summary := range summaries {
		if i == maxSummariesInContext {
			break
		}
		lines := strings.Split(summary, "\n")
		if len(lines) == 0 {
			continue
		}
		sample = append(sample, "Subject: "+strings.TrimSpace(lines[0]))

		for _, line := range lines[1:min(8, len(lines))] {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "- ") && containsAnyKeyword(line) {
				sample = append(sample, "  "+line)
			}
		}
	}

	return strings.Join(sample, "\n")
}

func containsAnyKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range []string{"feature:", "fix:", "add", "implement", "update"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// smartTruncateDiff truncates a diff while keeping file headers intact, so
// the model still sees which files changed even when hunks are cut.
func smartTruncateDiff(diff string, maxSize int) string {
	if len(diff) <= maxSize {
		return diff
	}

	var result []string
	currentSize := 0
	inFile := false

	for _, line := range strings.Split(diff, "\n") {
		lineSize := len(line) + 1

		if strings.HasPrefix(line, "diff --git") || strings.HasPrefix(line, "+++") ||
			strings.HasPrefix(line, "---") || strings.HasPrefix(line, "@@") {
			inFile = true
			if currentSize+lineSize > maxSize-100 {
				result = append(result, "... (diff truncated for length)")
				break
			}
		}

		if currentSize+lineSize > maxSize {
			if inFile {
				result = append(result, "... (file changes truncated)")
			}
			result = append(result, "... (additional files omitted)")
			break
		}

		result = append(result, line)
		currentSize += lineSize
	}

	return strings.Join(result, "\n")
}
