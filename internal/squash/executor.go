package squash

import (
	"context"
	"fmt"
	"time"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/gitsquash/internal/cache"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/gitsquash/internal/model/interfaces"
	"github.com/maxbolgarin/logze/v2"
)

// Executor replays a squash plan as new commits on a target branch rooted at
// the base branch. Every plan item becomes one commit reusing the tree of its
// last source commit.
type Executor struct {
	cfg   Config
	repo  interfaces.VersionControl
	cache *cache.Cache
	log   logze.Logger
}

func NewExecutor(cfg Config, repo interfaces.VersionControl, c *cache.Cache) *Executor {
	return &Executor{
		cfg:   cfg,
		repo:  repo,
		cache: c,
		log:   logze.With("component", "executor"),
	}
}

// Execute applies the plan: a backup branch is taken from HEAD, the target
// branch is created from the base reference, and plan items are committed in
// order. The first item's parent preserves original ancestry only when that
// ancestry is still reachable from the base; otherwise it grafts onto the
// base tip, which keeps incremental squashes fast-forward-mergeable.
//
// A failure mid-replay leaves the partially built target branch in place for
// inspection; the backup branch from step one is the rollback point.
func (e *Executor) Execute(ctx context.Context, plan model.Plan, targetBranch, baseBranch string) error {
	if len(plan.Items) == 0 {
		return erro.New("plan has no items")
	}

	if !e.cfg.SkipBackup {
		if err := e.createBackup(ctx); err != nil {
			return erro.Wrap(err, "create backup branch")
		}
	}

	baseTip, err := e.repo.Resolve(ctx, baseBranch)
	if err != nil {
		return erro.Wrap(err, "resolve base branch "+baseBranch)
	}

	if err := e.repo.CreateBranch(ctx, targetBranch, baseBranch); err != nil {
		return erro.Wrap(err, "create target branch "+targetBranch)
	}

	parent, err := e.firstParent(ctx, plan.Items[0], baseTip)
	if err != nil {
		return erro.Wrap(err, "determine first parent")
	}

	for i, item := range plan.Items {
		tree, err := e.repo.TreeOf(ctx, item.EndHash())
		if err != nil {
			return erro.Wrap(err, "resolve tree for "+item.DisplayName())
		}

		hash, err := e.repo.CreateCommit(ctx, item.Summary, tree, parent, item.Author())
		if err != nil {
			return erro.Wrap(err, "create commit for "+item.DisplayName())
		}

		if err := e.repo.UpdateRef(ctx, targetBranch, hash); err != nil {
			return erro.Wrap(err, "advance target branch")
		}

		e.log.Info("created squashed commit",
			"item", item.DisplayName(),
			"hash", hash[:8],
			"commits", len(item.Commits),
			"progress", fmt.Sprintf("%d/%d", i+1, len(plan.Items)))

		parent = hash
	}

	if err := e.repo.Checkout(ctx, targetBranch); err != nil {
		return erro.Wrap(err, "checkout target branch")
	}

	if e.cache != nil {
		if err := e.cache.InvalidatePlans(plan.CommitHashes()); err != nil {
			e.log.Warn("failed to invalidate cached plans", "error", err)
		}
	}

	e.log.Info("squash executed",
		"branch", targetBranch,
		"items", len(plan.Items),
		"original_commits", plan.TotalCommits)

	return nil
}

// createBackup points a timestamped backup branch at current HEAD.
func (e *Executor) createBackup(ctx context.Context) error {
	head, err := e.repo.Head(ctx)
	if err != nil {
		return erro.Wrap(err, "resolve HEAD")
	}

	name := e.cfg.BackupBranchPrefix + time.Now().Format("20060102-150405")
	if e.repo.BranchExists(ctx, name) {
		name = name + "-" + head[:8]
	}

	if err := e.repo.CreateBranch(ctx, name, head); err != nil {
		return err
	}

	e.log.Info("created backup branch", "branch", name, "head", head[:8])
	return nil
}

// firstParent picks the parent of the first replayed commit. Original
// ancestry is kept only when the original parent is still an ancestor of the
// base tip; a rewritten or missing parent grafts onto the base tip instead.
func (e *Executor) firstParent(ctx context.Context, first model.PlanItem, baseTip string) (string, error) {
	original, err := e.repo.ParentOf(ctx, first.StartHash())
	if err != nil {
		return "", erro.Wrap(err, "resolve original parent")
	}
	if original == "" {
		// Root commit: graft onto the base rather than creating a second root.
		return baseTip, nil
	}

	ok, err := e.repo.IsAncestor(ctx, original, baseTip)
	if err != nil {
		return "", erro.Wrap(err, "check ancestry of original parent")
	}
	if ok {
		return original, nil
	}

	e.log.Debug("original parent rewritten, grafting onto base tip",
		"original", original[:8], "base", baseTip[:8])
	return baseTip, nil
}
