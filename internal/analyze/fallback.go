package analyze

import (
	"fmt"
	"strings"

	"github.com/maxbolgarin/gitsquash/internal/model"
)

// FallbackSummary builds a deterministic message straight from the analysis
// counts and flags. It is used whenever the generation backend is unavailable
// so planning can always complete.
func FallbackSummary(date string, analysis model.ChangeAnalysis, limits model.MessageLimits) string {
	cats := analysis.Categories

	var parts []string
	if len(cats.Features) > 0 {
		parts = append(parts, fmt.Sprintf("%d features", len(cats.Features)))
	}
	if len(cats.Fixes) > 0 {
		parts = append(parts, fmt.Sprintf("%d fixes", len(cats.Fixes)))
	}
	if len(cats.Performance) > 0 {
		parts = append(parts, "performance improvements")
	}

	subject := "Update implementation for " + date
	if len(parts) > 0 {
		subject = "Add " + strings.Join(parts, ", ")
	}
	subject = TruncateSubject(subject, limits.SubjectLineLimit)

	var body []string
	if len(cats.Features) > 0 {
		body = append(body, "- feature: "+strings.ToLower(cats.Features[0]))
	}
	if len(cats.Fixes) > 0 {
		body = append(body, "- fix: "+strings.ToLower(cats.Fixes[0]))
	}
	if len(cats.Tests) > 0 {
		body = append(body, "- tests: add test coverage")
	}
	if len(cats.Performance) > 0 {
		body = append(body, "- performance: optimize implementation")
	}

	if analysis.HasCriticalChanges {
		body = append(body, "- note: Contains critical security or stability fixes")
	}
	if analysis.HasMockedDependencies {
		body = append(body, "- note: Uses mocked dependencies")
	}
	if analysis.HasIncompleteFeatures {
		body = append(body, "- note: Contains incomplete features")
	}

	if len(body) == 0 {
		return subject
	}

	return subject + "\n\n" + strings.Join(body, "\n")
}
