package model

import "fmt"

// PlanItem is one planned output commit subsuming an ordered, non-empty
// run of source commits.
type PlanItem struct {
	Date     string          `json:"date"`
	Commits  []Commit        `json:"commits"`
	Summary  string          `json:"summary"`
	Part     int             `json:"part,omitempty"` // 1-based when a date was split, 0 otherwise
	Analysis *ChangeAnalysis `json:"analysis,omitempty"`
}

// StartHash returns the hash of the first subsumed commit.
func (i PlanItem) StartHash() string {
	if len(i.Commits) == 0 {
		return ""
	}
	return i.Commits[0].Hash
}

// EndHash returns the hash of the last subsumed commit. Its tree becomes
// the tree of the synthesized commit.
func (i PlanItem) EndHash() string {
	if len(i.Commits) == 0 {
		return ""
	}
	return i.Commits[len(i.Commits)-1].Hash
}

// Author returns the identity of the first subsumed commit, which is the
// identity attached to the synthesized commit.
func (i PlanItem) Author() Signature {
	if len(i.Commits) == 0 {
		return Signature{}
	}
	first := i.Commits[0]
	return Signature{
		Name:  first.AuthorName,
		Email: first.AuthorEmail,
		When:  first.When,
	}
}

// DisplayName returns the date label with the part suffix when the date
// was split into multiple items.
func (i PlanItem) DisplayName() string {
	if i.Part > 0 {
		return fmt.Sprintf("%s (part %d)", i.Date, i.Part)
	}
	return i.Date
}

// Plan is the ordered squash plan: items appear in non-decreasing
// chronological order and together cover the filtered commit set exactly.
type Plan struct {
	Items        []PlanItem    `json:"items"`
	TotalCommits int           `json:"total_original_commits"`
	Limits       MessageLimits `json:"limits"`
}

// TotalSquashed returns the number of commits the plan will produce.
func (p Plan) TotalSquashed() int {
	return len(p.Items)
}

// SummaryStats returns the one-line compression summary shown after a plan.
func (p Plan) SummaryStats() string {
	return fmt.Sprintf("%d commits → %d squashed commits", p.TotalCommits, p.TotalSquashed())
}

// CommitHashes returns every source commit hash the plan subsumes.
func (p Plan) CommitHashes() []string {
	hashes := make([]string, 0, p.TotalCommits)
	for _, item := range p.Items {
		for _, c := range item.Commits {
			hashes = append(hashes, c.Hash)
		}
	}
	return hashes
}

// MessageLimits captures the configuration fields that shape generated
// messages. It travels with plans and feeds cache fingerprints.
type MessageLimits struct {
	SubjectLineLimit  int    `json:"subject_line_limit"`
	BodyLineWidth     int    `json:"body_line_width"`
	TotalMessageLimit int    `json:"total_message_limit"`
	Model             string `json:"model"`
}
