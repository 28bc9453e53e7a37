package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/gitsquash/internal/agent"
	"github.com/maxbolgarin/gitsquash/internal/cache"
	"github.com/maxbolgarin/gitsquash/internal/config"
	"github.com/maxbolgarin/gitsquash/internal/gitrepo"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/gitsquash/internal/model/interfaces"
	"github.com/maxbolgarin/gitsquash/internal/squash"
	"github.com/maxbolgarin/logze/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RunOptions carry the per-invocation choices from the command line.
type RunOptions struct {
	StartDate string
	EndDate   string
	Combine   bool

	Execute      bool
	TargetBranch string // empty = ask the generator for a name
	SavePlan     string // write the plan as JSON to this path
	AssumeYes    bool   // skip the confirmation prompt

	NoCache        bool // plan against a throwaway cache directory
	ClearCache     bool
	CleanupCache   bool
	ShowCacheStats bool
}

// App wires the repository, the summary generator, the cache and the squash
// engine together for one invocation.
type App struct {
	repo     interfaces.VersionControl
	gen      interfaces.SummaryGenerator
	cache    *cache.Cache
	planner  *squash.Planner
	executor *squash.Executor

	cfg config.Config
	log logze.Logger

	in  io.Reader
	out io.Writer
}

// New creates the application and all its components.
func New(ctx contem.Context, cfg config.Config, opts RunOptions) (*App, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}

	app := &App{
		cfg: cfg,
		log: logze.With("component", "app"),
		in:  os.Stdin,
		out: os.Stdout,
	}

	if err := app.init(ctx, cfg, opts); err != nil {
		return nil, errm.Wrap(err, "failed to initialize application")
	}

	return app, nil
}

func (a *App) init(ctx contem.Context, cfg config.Config, opts RunOptions) (err error) {
	a.repo, err = gitrepo.Open(cfg.Repo)
	if err != nil {
		return errm.Wrap(err, "open repository")
	}

	a.gen, err = agent.New(ctx, cfg.Agent)
	if err != nil {
		return errm.Wrap(err, "failed to create agent")
	}

	cacheCfg := cfg.Cache
	if opts.NoCache {
		// A throwaway directory keeps the run cold without touching the
		// shared cache.
		dir, err := os.MkdirTemp("", "gitsquash-nocache-")
		if err != nil {
			return errm.Wrap(err, "create throwaway cache dir")
		}
		ctx.Add(func(context.Context) error { return os.RemoveAll(dir) })
		cacheCfg.Dir = dir
	}
	a.cache, err = cache.New(cacheCfg)
	if err != nil {
		return errm.Wrap(err, "failed to create cache")
	}

	a.planner = squash.NewPlanner(cfg.Squash, a.repo, a.gen, a.cache)
	a.executor = squash.NewExecutor(cfg.Squash, a.repo, a.cache)

	return nil
}

// Run performs one invocation: cache maintenance commands short-circuit,
// otherwise a plan is prepared, displayed and optionally executed.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	if done, err := a.runCacheCommand(opts); done {
		return err
	}

	plan, err := a.planner.Prepare(ctx, squash.PlanOptions{
		StartDate:  opts.StartDate,
		EndDate:    opts.EndDate,
		Combine:    opts.Combine,
		BaseBranch: a.cfg.BaseBranch,
	})
	if err != nil {
		return errm.Wrap(err, "prepare plan")
	}

	a.displayPlan(plan)

	if opts.SavePlan != "" {
		if err := a.savePlan(plan, opts.SavePlan); err != nil {
			return errm.Wrap(err, "save plan")
		}
		fmt.Fprintf(a.out, "\nPlan saved to %s\n", opts.SavePlan)
	}

	if !opts.Execute {
		hits, misses := a.planner.CacheStats()
		fmt.Fprintf(a.out, "\nDry run: no branches created (cache: %d hits, %d misses).\n", hits, misses)
		fmt.Fprintln(a.out, "Re-run with --execute to apply this plan.")
		return nil
	}

	target := opts.TargetBranch
	if target == "" {
		target, err = a.planner.SuggestBranchName(ctx, plan)
		if err != nil {
			return errm.Wrap(err, "suggest branch name")
		}
	}

	if !opts.AssumeYes && !a.confirm(plan, target) {
		fmt.Fprintln(a.out, "Aborted.")
		return nil
	}

	if err := a.executor.Execute(ctx, plan, target, a.cfg.BaseBranch); err != nil {
		return errm.Wrap(err, "execute plan")
	}

	fmt.Fprintf(a.out, "\nDone: %s now holds %d squashed commits.\n", target, plan.TotalSquashed())
	fmt.Fprintf(a.out, "Merge it with: git checkout %s && git merge --ff-only %s\n", a.cfg.BaseBranch, target)
	return nil
}

// IsCacheCommand reports whether the invocation is pure cache maintenance.
func (o RunOptions) IsCacheCommand() bool {
	return o.ClearCache || o.CleanupCache || o.ShowCacheStats
}

// RunCacheCommand serves the cache maintenance flags standalone. Only the
// cache directory is needed: no repository, no generator, no API key.
func RunCacheCommand(cfg cache.Config, opts RunOptions, out io.Writer) error {
	c, err := cache.New(cfg)
	if err != nil {
		return errm.Wrap(err, "open cache")
	}
	return cacheCommand(c, opts, out)
}

// runCacheCommand handles the maintenance flags. It reports whether the
// invocation is finished.
func (a *App) runCacheCommand(opts RunOptions) (bool, error) {
	if !opts.IsCacheCommand() {
		return false, nil
	}
	return true, cacheCommand(a.cache, opts, a.out)
}

func cacheCommand(c *cache.Cache, opts RunOptions, out io.Writer) error {
	switch {
	case opts.ClearCache:
		if err := c.ClearAll(); err != nil {
			return errm.Wrap(err, "clear cache")
		}
		fmt.Fprintln(out, "Cache cleared.")

	case opts.CleanupCache:
		if err := c.ClearExpired(); err != nil {
			return errm.Wrap(err, "cleanup cache")
		}
		fmt.Fprintln(out, "Expired cache entries removed.")

	case opts.ShowCacheStats:
		stats := c.Stats()
		fmt.Fprintf(out, "Cache directory: %s\n", stats.Dir)
		fmt.Fprintf(out, "Summaries:       %d (%d bytes)\n", stats.TotalSummaries, stats.SummarySizeBytes)
		fmt.Fprintf(out, "Plans:           %d (%d bytes)\n", stats.TotalPlans, stats.PlanSizeBytes)
		fmt.Fprintf(out, "TTL:             %s\n", stats.TTL)
	}
	return nil
}

func (a *App) displayPlan(plan model.Plan) {
	fmt.Fprintln(a.out, "Squash plan")
	fmt.Fprintln(a.out, strings.Repeat("=", 60))

	for _, item := range plan.Items {
		first, last := item.Commits[0], item.Commits[len(item.Commits)-1]
		fmt.Fprintf(a.out, "\n%s: %d commits (%s..%s), message %d chars\n",
			item.DisplayName(), len(item.Commits), first.ShortHash(), last.ShortHash(), len(item.Summary))
		fmt.Fprintln(a.out, strings.Repeat("-", 60))
		fmt.Fprintln(a.out, item.Summary)
	}

	fmt.Fprintln(a.out, strings.Repeat("=", 60))
	fmt.Fprintln(a.out, plan.SummaryStats())
}

func (a *App) savePlan(plan model.Plan, path string) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return errm.Wrap(err, "marshal plan")
	}
	return os.WriteFile(path, data, 0o644)
}

// confirm asks the user to approve the plan before any branch is touched.
func (a *App) confirm(plan model.Plan, target string) bool {
	reader := bufio.NewReader(a.in)
	for {
		fmt.Fprintf(a.out, "\nCreate branch %q with %d squashed commits? [y/N] ", target, plan.TotalSquashed())
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		}
	}
}
