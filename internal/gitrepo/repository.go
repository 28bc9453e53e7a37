package gitrepo

import (
	"context"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/gitsquash/internal/model/interfaces"
	"github.com/maxbolgarin/logze/v2"
)

var _ interfaces.VersionControl = (*Repository)(nil)

// Repository implements the VersionControl interface over a local git
// repository using go-git, without shelling out to a git binary.
type Repository struct {
	repo *git.Repository
	log  logze.Logger
}

// Open opens the repository at path, walking up to find the .git directory
// the same way the git CLI does.
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errm.Wrap(err, "not a git repository")
	}

	return &Repository{
		repo: repo,
		log:  logze.With("component", "gitrepo"),
	}, nil
}

// ListCommits returns commits reachable from untilRef but not from sinceRef,
// in forward chronological order.
func (r *Repository) ListCommits(ctx context.Context, sinceRef, untilRef string) ([]model.Commit, error) {
	if untilRef == "" {
		untilRef = "HEAD"
	}

	untilHash, err := r.resolve(untilRef)
	if err != nil {
		return nil, errm.Wrap(err, "resolve until ref")
	}

	excluded := make(map[plumbing.Hash]struct{})
	if sinceRef != "" {
		baseHash, err := r.resolve(sinceRef)
		if err != nil {
			return nil, errm.Wrap(err, "resolve since ref")
		}
		baseCommit, err := r.repo.CommitObject(baseHash)
		if err != nil {
			return nil, errm.Wrap(err, "load since commit")
		}
		iter := object.NewCommitPreorderIter(baseCommit, nil, nil)
		err = iter.ForEach(func(c *object.Commit) error {
			excluded[c.Hash] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, errm.Wrap(err, "walk since history")
		}
	}

	iter, err := r.repo.Log(&git.LogOptions{From: untilHash})
	if err != nil {
		return nil, errm.Wrap(err, "list commits")
	}
	defer iter.Close()

	var commits []model.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := excluded[c.Hash]; ok {
			return nil
		}

		subject, ok := firstLine(c.Message)
		if !ok {
			r.log.Warn("skipping commit with unreadable message", "hash", c.Hash.String()[:8])
			return nil
		}

		commits = append(commits, model.Commit{
			Hash:        c.Hash.String(),
			Subject:     subject,
			AuthorName:  c.Author.Name,
			AuthorEmail: c.Author.Email,
			When:        c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, errm.Wrap(err, "walk commits")
	}

	// The log walk yields child before parent. Reversing it restores
	// ancestry order; author timestamps cannot (1-second resolution means
	// same-second commits would tie and keep the walk's newest-first order).
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}

	r.log.Debug("listed commits", "count", len(commits), "since", sinceRef, "until", untilRef)
	return commits, nil
}

// Diff returns the textual diff covering startHash..endHash including the
// start commit itself. A root start commit is diffed against the empty tree.
func (r *Repository) Diff(ctx context.Context, startHash, endHash string) (string, error) {
	patch, err := r.patch(ctx, startHash, endHash)
	if err != nil {
		return "", err
	}
	return patch.String(), nil
}

// DiffStats returns the diffstat text for the same range as Diff.
func (r *Repository) DiffStats(ctx context.Context, startHash, endHash string) (string, error) {
	patch, err := r.patch(ctx, startHash, endHash)
	if err != nil {
		return "", err
	}
	return patch.Stats().String(), nil
}

func (r *Repository) patch(ctx context.Context, startHash, endHash string) (*object.Patch, error) {
	startCommit, err := r.repo.CommitObject(plumbing.NewHash(startHash))
	if err != nil {
		return nil, errm.Wrap(err, "load start commit")
	}
	endCommit, err := r.repo.CommitObject(plumbing.NewHash(endHash))
	if err != nil {
		return nil, errm.Wrap(err, "load end commit")
	}

	// fromTree stays nil for a root commit, which diffs against the
	// empty tree.
	var fromTree *object.Tree
	if startCommit.NumParents() > 0 {
		parent, err := startCommit.Parent(0)
		if err != nil {
			return nil, errm.Wrap(err, "load start parent")
		}
		fromTree, err = parent.Tree()
		if err != nil {
			return nil, errm.Wrap(err, "load start parent tree")
		}
	}

	toTree, err := endCommit.Tree()
	if err != nil {
		return nil, errm.Wrap(err, "load end tree")
	}

	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, errm.Wrap(err, "diff trees")
	}

	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return nil, errm.Wrap(err, "build patch")
	}
	return patch, nil
}

// TreeOf returns the tree hash of a commit.
func (r *Repository) TreeOf(ctx context.Context, commitHash string) (string, error) {
	commit, err := r.repo.CommitObject(plumbing.NewHash(commitHash))
	if err != nil {
		return "", errm.Wrap(err, "load commit")
	}
	return commit.TreeHash.String(), nil
}

// ParentOf returns the first parent of a commit, or "" for a root commit.
func (r *Repository) ParentOf(ctx context.Context, commitHash string) (string, error) {
	commit, err := r.repo.CommitObject(plumbing.NewHash(commitHash))
	if err != nil {
		return "", errm.Wrap(err, "load commit")
	}
	if commit.NumParents() == 0 {
		return "", nil
	}
	return commit.ParentHashes[0].String(), nil
}

// CreateCommit synthesizes a commit object reusing an existing tree. The
// author identity and date come from the caller; the committer action
// happens now. An empty parentHash creates a root commit.
func (r *Repository) CreateCommit(ctx context.Context, message, treeHash, parentHash string, author model.Signature) (string, error) {
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}

	commit := &object.Commit{
		TreeHash: plumbing.NewHash(treeHash),
		Author: object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  author.When,
		},
		Committer: object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
		Message: message,
	}
	if parentHash != "" {
		commit.ParentHashes = []plumbing.Hash{plumbing.NewHash(parentHash)}
	}

	obj := r.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return "", errm.Wrap(err, "encode commit")
	}

	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", errm.Wrap(err, "store commit")
	}

	r.log.Debug("created commit", "hash", hash.String()[:8], "parent", short(parentHash))
	return hash.String(), nil
}

// CreateBranch points a branch at startRef, creating or moving it.
func (r *Repository) CreateBranch(ctx context.Context, name, startRef string) error {
	hash, err := r.resolve(startRef)
	if err != nil {
		return errm.Wrap(err, "resolve start ref")
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return errm.Wrap(err, "set branch reference")
	}

	r.log.Debug("created branch", "name", name, "at", hash.String()[:8])
	return nil
}

// BranchExists reports whether a local branch with this name exists.
func (r *Repository) BranchExists(ctx context.Context, name string) bool {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	return err == nil
}

// Checkout switches the worktree to an existing branch.
func (r *Repository) Checkout(ctx context.Context, name string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return errm.Wrap(err, "open worktree")
	}
	err = wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)})
	if err != nil {
		return errm.Wrap(err, "checkout branch")
	}
	return nil
}

// Reset moves the current branch (and worktree, when hard) to ref.
func (r *Repository) Reset(ctx context.Context, ref string, hard bool) error {
	hash, err := r.resolve(ref)
	if err != nil {
		return errm.Wrap(err, "resolve ref")
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return errm.Wrap(err, "open worktree")
	}

	mode := git.SoftReset
	if hard {
		mode = git.HardReset
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: mode}); err != nil {
		return errm.Wrap(err, "reset")
	}
	return nil
}

// UpdateRef points an existing branch at a commit.
func (r *Repository) UpdateRef(ctx context.Context, branch, commitHash string) error {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), plumbing.NewHash(commitHash))
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return errm.Wrap(err, "update branch reference")
	}
	return nil
}

// Resolve turns any revision expression (branch, tag, hash prefix, HEAD)
// into a full commit hash.
func (r *Repository) Resolve(ctx context.Context, ref string) (string, error) {
	hash, err := r.resolve(ref)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (r *Repository) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	ancCommit, err := r.repo.CommitObject(plumbing.NewHash(ancestor))
	if err != nil {
		return false, errm.Wrap(err, "load ancestor commit")
	}
	descCommit, err := r.repo.CommitObject(plumbing.NewHash(descendant))
	if err != nil {
		return false, errm.Wrap(err, "load descendant commit")
	}

	ok, err := ancCommit.IsAncestor(descCommit)
	if err != nil {
		return false, errm.Wrap(err, "ancestry check")
	}
	return ok, nil
}

// Head returns the commit hash HEAD points at.
func (r *Repository) Head(ctx context.Context) (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", errm.Wrap(err, "resolve HEAD")
	}
	return ref.Hash().String(), nil
}

func (r *Repository) resolve(ref string) (plumbing.Hash, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, errm.Wrap(err, "resolve revision "+ref)
	}
	return *hash, nil
}

func firstLine(message string) (string, bool) {
	line, _, _ := strings.Cut(message, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	return line, true
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
