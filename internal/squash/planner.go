package squash

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/gitsquash/internal/analyze"
	"github.com/maxbolgarin/gitsquash/internal/cache"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/gitsquash/internal/model/interfaces"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

// maxSplitDepth bounds batch bisection against a generator that never
// produces a message under budget.
const maxSplitDepth = 10

const truncationMarker = "- ...additional changes"

// truncationReserve keeps room for the truncation marker and its joining
// newline when a message is hard-cut at the single-commit base case.
const truncationReserve = len(truncationMarker) + 1

// PlanOptions select and shape the commit set for one planning run.
type PlanOptions struct {
	StartDate  string // inclusive, YYYY-MM-DD, empty = open
	EndDate    string // inclusive, YYYY-MM-DD, empty = open
	Combine    bool   // flatten all dates into one batch
	BaseBranch string // commits reachable from it are excluded
}

// Planner builds squash plans: it groups commits by calendar date, generates
// a summary message per group with retries, and bisects groups whose message
// cannot be brought under the total budget.
type Planner struct {
	cfg       Config
	repo      interfaces.VersionControl
	gen       interfaces.SummaryGenerator
	cache     *cache.Cache
	analyzer  *analyze.Analyzer
	formatter *analyze.Formatter
	log       logze.Logger

	cacheHits   int
	cacheMisses int
}

func NewPlanner(cfg Config, repo interfaces.VersionControl, gen interfaces.SummaryGenerator, c *cache.Cache) *Planner {
	return &Planner{
		cfg:       cfg,
		repo:      repo,
		gen:       gen,
		cache:     c,
		analyzer:  analyze.NewAnalyzer(),
		formatter: analyze.NewFormatter(cfg.Limits()),
		log:       logze.With("component", "planner"),
	}
}

// Prepare builds the squash plan for the commits above the base branch.
// It returns model.ErrNoCommits when there is nothing to squash and
// model.ErrInvalidDateRange when the date filter excludes everything.
func (p *Planner) Prepare(ctx context.Context, opts PlanOptions) (model.Plan, error) {
	timer := abstract.StartTimer()

	commits, err := p.listCommits(ctx, opts.BaseBranch)
	if err != nil {
		return model.Plan{}, erro.Wrap(err, "list commits")
	}
	if len(commits) == 0 {
		return model.Plan{}, model.ErrNoCommits
	}

	filtered := filterByDate(commits, opts.StartDate, opts.EndDate)
	if len(filtered) == 0 {
		return model.Plan{}, model.ErrInvalidDateRange
	}

	limits := p.cfg.Limits()

	if plan, ok := p.reconstructCachedPlan(opts, filtered, limits); ok {
		p.log.Info("using cached plan", "items", len(plan.Items), "commits", plan.TotalCommits)
		return plan, nil
	}

	batches := p.batch(filtered, opts.Combine)

	var items []model.PlanItem
	for _, b := range batches {
		batchItems, err := p.processBatch(ctx, b.label, b.commits, 0)
		if err != nil {
			return model.Plan{}, erro.Wrap(err, "process batch "+b.label)
		}
		items = append(items, batchItems...)
	}

	assignPartNumbers(items)

	plan := model.Plan{
		Items:        items,
		TotalCommits: len(filtered),
		Limits:       limits,
	}

	if p.cache != nil {
		if err := p.cache.SetPlan(opts.StartDate, opts.EndDate, filtered, limits, plan); err != nil {
			p.log.Warn("failed to cache plan", "error", err)
		}
	}

	p.log.Info("plan prepared",
		"commits", plan.TotalCommits,
		"items", len(plan.Items),
		"cache_hits", p.cacheHits,
		"cache_misses", p.cacheMisses,
		"elapsed", timer.ElapsedTime().String())

	return plan, nil
}

// SuggestBranchName asks the generator for a slug describing the plan and
// prepends the configured branch prefix.
func (p *Planner) SuggestBranchName(ctx context.Context, plan model.Plan) (string, error) {
	summaries := make([]string, 0, len(plan.Items))
	for _, item := range plan.Items {
		summaries = append(summaries, item.Summary)
	}

	slug, err := p.gen.SuggestBranchName(ctx, summaries)
	if err != nil || slug == "" {
		p.log.Warn("branch name suggestion failed", "error", err)
		slug = "updates"
	}

	return p.cfg.BranchPrefix + slug, nil
}

// CacheStats reports summary cache hits and misses accumulated by this
// planner instance.
func (p *Planner) CacheStats() (hits, misses int) {
	return p.cacheHits, p.cacheMisses
}

func (p *Planner) listCommits(ctx context.Context, baseBranch string) ([]model.Commit, error) {
	base := baseBranch
	if base != "" {
		if _, err := p.repo.Resolve(ctx, base); err != nil {
			p.log.Warn("base branch not found, walking to repository root", "base", base)
			base = ""
		}
	}
	return p.repo.ListCommits(ctx, base, "HEAD")
}

type commitBatch struct {
	label   string
	commits []model.Commit
}

// batch groups the filtered commits by calendar date, or flattens them into
// one range-labeled batch when combine is set.
func (p *Planner) batch(commits []model.Commit, combine bool) []commitBatch {
	if combine {
		label := commits[0].Date()
		if last := commits[len(commits)-1].Date(); last != label {
			label = label + " to " + last
		}
		return []commitBatch{{label: label, commits: commits}}
	}

	var batches []commitBatch
	for _, c := range commits {
		date := c.Date()
		if n := len(batches); n > 0 && batches[n-1].label == date {
			batches[n-1].commits = append(batches[n-1].commits, c)
			continue
		}
		batches = append(batches, commitBatch{label: date, commits: []model.Commit{c}})
	}
	return batches
}

// processBatch turns one batch into plan items, bisecting when the best
// achievable message still exceeds the total budget.
func (p *Planner) processBatch(ctx context.Context, label string, commits []model.Commit, depth int) ([]model.PlanItem, error) {
	analysis, diff := p.analyzeBatch(ctx, commits)

	if depth >= maxSplitDepth {
		p.log.Warn("split depth exceeded, using synthetic message", "label", label, "commits", len(commits))
		return []model.PlanItem{{
			Date:     label,
			Commits:  commits,
			Summary:  fmt.Sprintf("Update %s (%d commits)", label, len(commits)),
			Analysis: &analysis,
		}}, nil
	}

	summary, err := p.generateWithRetry(ctx, label, commits, analysis, diff)
	if err != nil {
		return nil, err
	}

	if len(summary) <= p.cfg.TotalMessageLimit {
		return []model.PlanItem{{
			Date:     label,
			Commits:  commits,
			Summary:  summary,
			Analysis: &analysis,
		}}, nil
	}

	if len(commits) == 1 {
		return []model.PlanItem{{
			Date:     label,
			Commits:  commits,
			Summary:  p.truncate(summary),
			Analysis: &analysis,
		}}, nil
	}

	p.log.Debug("message over budget, splitting batch",
		"label", label, "commits", len(commits), "length", len(summary), "depth", depth)

	half := len(commits) / 2
	first, err := p.processBatch(ctx, label, commits[:half], depth+1)
	if err != nil {
		return nil, err
	}
	second, err := p.processBatch(ctx, label, commits[half:], depth+1)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}

// analyzeBatch fetches the batch diff once and runs categorization over it.
// Diff failures degrade to a subjects-only analysis.
func (p *Planner) analyzeBatch(ctx context.Context, commits []model.Commit) (model.ChangeAnalysis, string) {
	start, end := commits[0].Hash, commits[len(commits)-1].Hash

	diff, err := p.repo.Diff(ctx, start, end)
	if err != nil {
		p.log.Warn("failed to get batch diff", "start", start[:8], "error", err)
		diff = ""
	}

	stats, err := p.repo.DiffStats(ctx, start, end)
	if err != nil {
		stats = ""
	}

	return p.analyzer.Analyze(commits, diff, stats), diff
}

// generateWithRetry runs the summary retry loop. The cache is consulted on
// the first attempt only; a too-long result is carried forward so the
// generator can shorten it. The last result is returned even when still over
// budget, leaving the split-or-truncate decision to the caller.
func (p *Planner) generateWithRetry(ctx context.Context, label string, commits []model.Commit, analysis model.ChangeAnalysis, diff string) (string, error) {
	limits := p.cfg.Limits()
	subjects := make([]string, 0, len(commits))
	for _, c := range commits {
		subjects = append(subjects, c.Subject)
	}

	var previous string
	for attempt := 1; attempt <= p.cfg.MaxRetryAttempts; attempt++ {
		if attempt == 1 && p.cache != nil && diff != "" {
			if cached, ok := p.cache.GetSummary(label, commits, diff, limits); ok {
				p.cacheHits++
				p.log.Debug("summary cache hit", "label", label)
				return cached, nil
			}
			p.cacheMisses++
		}

		raw, err := p.gen.GenerateSummary(ctx, model.SummaryRequest{
			Date:     label,
			Analysis: analysis,
			Subjects: subjects,
			Diff:     diff,
			Attempt:  attempt,
			Previous: previous,
		})
		if err != nil {
			p.log.Warn("summary generation failed, using fallback", "label", label, "error", err)
			raw = analyze.FallbackSummary(label, analysis, limits)
		}

		formatted := p.formatter.Format(raw)
		if formatted == "" {
			formatted = analyze.FallbackSummary(label, analysis, limits)
		}

		if len(formatted) <= p.cfg.TotalMessageLimit {
			if attempt == 1 && p.cache != nil && diff != "" {
				if err := p.cache.SetSummary(label, commits, diff, limits, formatted); err != nil {
					p.log.Warn("failed to cache summary", "label", label, "error", err)
				}
			}
			return formatted, nil
		}

		p.log.Debug("summary over budget, retrying",
			"label", label, "attempt", attempt, "length", len(formatted))
		previous = formatted
	}

	return previous, nil
}

// truncate hard-cuts a message for the single-commit base case: subject,
// blank line, whole body lines under the reserved budget, then a marker.
func (p *Planner) truncate(message string) string {
	budget := p.cfg.TotalMessageLimit - truncationReserve

	lines := strings.Split(message, "\n")
	kept := []string{lines[0], ""}
	length := len(lines[0]) + 1

	for _, line := range lines[1:] {
		if line == "" && len(kept) == 2 {
			continue
		}
		if length+len(line)+1 > budget {
			break
		}
		kept = append(kept, line)
		length += len(line) + 1
	}

	kept = append(kept, truncationMarker)
	return strings.Join(kept, "\n")
}

// reconstructCachedPlan rebuilds a cached plan against the freshly fetched
// commit set. Any hash or count mismatch is a cache miss.
func (p *Planner) reconstructCachedPlan(opts PlanOptions, commits []model.Commit, limits model.MessageLimits) (model.Plan, bool) {
	if p.cache == nil {
		return model.Plan{}, false
	}

	cached, ok := p.cache.GetPlan(opts.StartDate, opts.EndDate, commits, limits)
	if !ok {
		return model.Plan{}, false
	}

	byHash := make(map[string]model.Commit, len(commits))
	for _, c := range commits {
		byHash[c.Hash] = c
	}

	items := make([]model.PlanItem, 0, len(cached.Items))
	covered := 0
	for _, ci := range cached.Items {
		batch := make([]model.Commit, 0, len(ci.CommitHashes))
		for _, h := range ci.CommitHashes {
			c, found := byHash[h]
			if !found {
				p.log.Debug("cached plan references unknown commit, rebuilding", "hash", lang.If(len(h) >= 8, h[:8], h))
				return model.Plan{}, false
			}
			batch = append(batch, c)
		}
		if len(batch) != ci.CommitCount {
			p.log.Debug("cached plan item count mismatch, rebuilding", "date", ci.Date)
			return model.Plan{}, false
		}
		covered += len(batch)
		items = append(items, model.PlanItem{
			Date:    ci.Date,
			Commits: batch,
			Summary: ci.Summary,
			Part:    ci.Part,
		})
	}

	if covered != len(commits) || cached.TotalCommits != len(commits) {
		p.log.Debug("cached plan coverage mismatch, rebuilding",
			"covered", covered, "commits", len(commits))
		return model.Plan{}, false
	}

	return model.Plan{Items: items, TotalCommits: len(commits), Limits: limits}, true
}

func filterByDate(commits []model.Commit, startDate, endDate string) []model.Commit {
	if startDate == "" && endDate == "" {
		return commits
	}
	var out []model.Commit
	for _, c := range commits {
		date := c.Date()
		if startDate != "" && date < startDate {
			continue
		}
		if endDate != "" && date > endDate {
			continue
		}
		out = append(out, c)
	}
	return out
}

// assignPartNumbers gives 1-based part numbers to items sharing a date label
// after splitting; an unsplit date keeps part 0.
func assignPartNumbers(items []model.PlanItem) {
	counts := make(map[string]int, len(items))
	for _, item := range items {
		counts[item.Date]++
	}
	next := make(map[string]int, len(counts))
	for i := range items {
		if counts[items[i].Date] < 2 {
			continue
		}
		next[items[i].Date]++
		items[i].Part = next[items[i].Date]
	}
}
