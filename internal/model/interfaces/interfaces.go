package interfaces

import (
	"context"

	"github.com/maxbolgarin/gitsquash/internal/model"
)

// VersionControl defines the repository capabilities the squash engine consumes.
type VersionControl interface {
	// ListCommits returns commits reachable from untilRef but not from sinceRef,
	// oldest first. An empty sinceRef walks back to the repository root.
	// Malformed records are skipped, not fatal.
	ListCommits(ctx context.Context, sinceRef, untilRef string) ([]model.Commit, error)

	// Diff and DiffStats cover the changes introduced by start..end including
	// start itself; a root commit is diffed against the empty tree.
	Diff(ctx context.Context, startHash, endHash string) (string, error)
	DiffStats(ctx context.Context, startHash, endHash string) (string, error)

	// Commit object operations
	TreeOf(ctx context.Context, commitHash string) (string, error)
	ParentOf(ctx context.Context, commitHash string) (string, error) // "" for a root commit
	CreateCommit(ctx context.Context, message, treeHash, parentHash string, author model.Signature) (string, error)

	// Branch and reference operations
	CreateBranch(ctx context.Context, name, startRef string) error
	BranchExists(ctx context.Context, name string) bool
	Checkout(ctx context.Context, name string) error
	Reset(ctx context.Context, ref string, hard bool) error
	UpdateRef(ctx context.Context, branch, commitHash string) error

	Resolve(ctx context.Context, ref string) (string, error)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	Head(ctx context.Context) (string, error)
}

// SummaryGenerator defines the summary generation port the planner holds.
type SummaryGenerator interface {
	GenerateSummary(ctx context.Context, req model.SummaryRequest) (string, error)
	SuggestBranchName(ctx context.Context, summaries []string) (string, error)
}

// AgentAPI defines the interface for calling LLM AI models
type AgentAPI interface {
	CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error)
}
