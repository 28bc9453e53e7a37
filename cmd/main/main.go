package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/gitsquash/internal/agent"
	"github.com/maxbolgarin/gitsquash/internal/app"
	"github.com/maxbolgarin/gitsquash/internal/config"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/gitsquash/internal/squash"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

var (
	Version, Branch, Commit, BuildDate string
)

var (
	configPath = kingpin.Flag("config", "path to config file").Short('c').String()
	repoPath   = kingpin.Flag("repo", "path to the git repository").String()
	baseBranch = kingpin.Flag("base-branch", "base branch the result must merge into").String()

	startDate = kingpin.Flag("start-date", "first date to include (YYYY-MM-DD)").String()
	fromDate  = kingpin.Flag("from", "alias for --start-date").Hidden().String()
	endDate   = kingpin.Flag("end-date", "last date to include (YYYY-MM-DD)").String()
	toDate    = kingpin.Flag("to", "alias for --end-date").Hidden().String()
	combine   = kingpin.Flag("combine", "squash all days into a single commit").Bool()

	execute      = kingpin.Flag("execute", "apply the plan instead of a dry run").Bool()
	dryRun       = kingpin.Flag("dry-run", "show the plan without executing (default behavior)").Bool()
	targetBranch = kingpin.Flag("target-branch", "branch to create (default: ask the generator)").String()
	savePlan     = kingpin.Flag("save-plan", "write the plan as JSON to this path").String()
	assumeYes    = kingpin.Flag("yes", "skip the confirmation prompt").Short('y').Bool()
	noBackup     = kingpin.Flag("no-backup", "skip the backup branch").Bool()

	messageLimit = kingpin.Flag("message-limit", "total commit message length limit").Int()
	branchPrefix = kingpin.Flag("branch-prefix", "prefix for suggested branch names").String()
	modelName    = kingpin.Flag("model", "model used for summary generation").String()
	testMode     = kingpin.Flag("test-mode", "use the deterministic generator, no API calls").Bool()

	noCache      = kingpin.Flag("no-cache", "plan with a throwaway cache").Bool()
	cacheDir     = kingpin.Flag("cache-dir", "cache directory").String()
	clearCache   = kingpin.Flag("clear-cache", "remove all cache entries and exit").Bool()
	cleanupCache = kingpin.Flag("cleanup-cache", "remove expired cache entries and exit").Bool()
	cacheStats   = kingpin.Flag("cache-stats", "print cache statistics and exit").Bool()

	verbose = kingpin.Flag("verbose", "enable debug logging").Short('v').Bool()
)

func main() {
	kingpin.Version(Version)
	kingpin.Parse()

	var err error
	ctx := contem.New(contem.WithLogger(logze.DefaultPtr()), contem.Exit(&err))
	defer ctx.Shutdown()

	err = run(ctx)
	if err != nil && !errm.Is(err, model.ErrNoCommits) {
		logze.DefaultPtr().Error("cannot run", "error", err)
	}
}

func run(ctx contem.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return erro.Wrap(err, "load config")
	}
	applyFlags(&cfg)

	level := logze.LevelInfo
	if cfg.Verbose {
		level = logze.LevelDebug
	}
	logze.Init(logze.C().WithConsole().WithLevel(level))

	opts := app.RunOptions{
		StartDate:      lang.Check(*startDate, *fromDate),
		EndDate:        lang.Check(*endDate, *toDate),
		Combine:        *combine,
		Execute:        *execute && !*dryRun,
		TargetBranch:   *targetBranch,
		SavePlan:       *savePlan,
		AssumeYes:      *assumeYes,
		NoCache:        *noCache,
		ClearCache:     *clearCache,
		CleanupCache:   *cleanupCache,
		ShowCacheStats: *cacheStats,
	}

	// Cache maintenance needs neither a repository nor an API key.
	if opts.IsCacheCommand() {
		return app.RunCacheCommand(cfg.Cache, opts, os.Stdout)
	}

	tool, err := app.New(ctx, cfg, opts)
	if err != nil {
		return erro.Wrap(err, "new app")
	}

	if err := tool.Run(ctx, opts); err != nil {
		if errm.Is(err, model.ErrNoCommits) {
			logze.DefaultPtr().Info("nothing to squash")
			return err
		}
		if errm.Is(err, model.ErrInvalidDateRange) {
			return erro.Wrap(err, "no commits in the requested date range")
		}
		return erro.Wrap(err, "run")
	}

	return nil
}

// applyFlags folds command-line overrides into the loaded configuration.
func applyFlags(cfg *config.Config) {
	if *repoPath != "" {
		cfg.Repo = *repoPath
	}
	if *baseBranch != "" {
		cfg.BaseBranch = *baseBranch
	}
	if *cacheDir != "" {
		cfg.Cache.Dir = *cacheDir
	}
	if *verbose {
		cfg.Verbose = true
	}
	if *noBackup {
		cfg.Squash.SkipBackup = true
	}
	if *testMode {
		cfg.Agent.Type = agent.Mock
		cfg.Agent.IsTest = true
	}

	cfg.Squash = cfg.Squash.WithOverrides(squash.Overrides{
		TotalMessageLimit: *messageLimit,
		BranchPrefix:      *branchPrefix,
		Model:             *modelName,
	})
	if *modelName != "" {
		cfg.Agent.Model = *modelName
	}
}
