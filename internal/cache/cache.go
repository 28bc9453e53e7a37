package cache

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

const (
	// SchemaVersion tags the on-disk table format. Tables written by an
	// incompatible version are discarded as a cold cache, never misread.
	SchemaVersion = "1.0"

	summaryCacheFile = "summary_cache.json"
	planCacheFile    = "plan_cache.json"

	defaultTTL    = 7 * 24 * time.Hour
	defaultSubdir = "gitsquash"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config represents cache storage configuration.
type Config struct {
	Dir string        `yaml:"dir" env:"GIT_SQUASH_CACHE_DIR"`
	TTL time.Duration `yaml:"ttl" env:"GIT_SQUASH_CACHE_TTL"`
}

func (c *Config) PrepareAndValidate() error {
	if c.Dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return errm.Wrap(err, "resolve user cache dir")
		}
		c.Dir = filepath.Join(base, defaultSubdir)
	}
	c.TTL = lang.Check(c.TTL, defaultTTL)
	if c.TTL < 0 {
		return errm.New("cache ttl cannot be negative")
	}
	return nil
}

// Entry is one cached value with its lifecycle metadata.
type Entry struct {
	Key         string            `json:"key"`
	Value       string            `json:"value"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	ContextHash string            `json:"context_hash"`
	Metadata    map[string]string `json:"metadata"`
}

func (e Entry) isExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

type table struct {
	Version   string           `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Entries   map[string]Entry `json:"entries"`
}

// CachedPlanItem is the serialized form of one plan item: enough to rebuild
// the item against a freshly fetched commit set.
type CachedPlanItem struct {
	Date         string   `json:"date"`
	Part         int      `json:"part"`
	Summary      string   `json:"summary"`
	CommitCount  int      `json:"commit_count"`
	CommitHashes []string `json:"commit_hashes"`
}

// CachedPlan is the serialized form of a whole squash plan.
type CachedPlan struct {
	TotalCommits int              `json:"total_original_commits"`
	Items        []CachedPlanItem `json:"items"`
}

// Stats reports per-table entry counts and sizes.
type Stats struct {
	Dir              string        `json:"cache_dir"`
	TotalSummaries   int           `json:"total_summaries"`
	TotalPlans       int           `json:"total_plans"`
	SummarySizeBytes int           `json:"summary_cache_size_bytes"`
	PlanSizeBytes    int           `json:"plan_cache_size_bytes"`
	TTL              time.Duration `json:"ttl"`
}

// Cache is a two-table TTL store for generated summaries and squash plans,
// persisted as JSON documents under one directory. Reads take a shared
// advisory lock, writes an exclusive one, and every persist is a
// write-temp-fsync-rename so a concurrent invocation never observes a torn
// table.
type Cache struct {
	cfg       Config
	summaries map[string]Entry
	plans     map[string]Entry
	log       logze.Logger
}

// New creates the cache directory and table files if absent and loads both
// tables, dropping expired and incompatible entries.
func New(cfg Config) (*Cache, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate cache config")
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errm.Wrap(err, "create cache dir")
	}

	c := &Cache{
		cfg:       cfg,
		summaries: make(map[string]Entry),
		plans:     make(map[string]Entry),
		log:       logze.With("component", "cache"),
	}

	for _, path := range []string{c.summaryPath(), c.planPath()} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			empty := table{Version: SchemaVersion, UpdatedAt: time.Now(), Entries: map[string]Entry{}}
			if err := c.writeTable(path, empty); err != nil {
				return nil, errm.Wrap(err, "initialize cache file")
			}
		}
	}

	c.summaries = c.loadTable(c.summaryPath())
	c.plans = c.loadTable(c.planPath())

	c.log.Debug("cache loaded",
		"dir", cfg.Dir, "summaries", len(c.summaries), "plans", len(c.plans), "ttl", cfg.TTL)

	return c, nil
}

// GetSummary returns the cached summary for this batch, if present and fresh.
func (c *Cache) GetSummary(date string, commits []model.Commit, diff string, limits model.MessageLimits) (string, bool) {
	key := summaryKey(date, commitHashes(commits), hashContent(diff), hashConfig(limits))

	entry, ok := c.summaries[key]
	if !ok || entry.isExpired(time.Now()) {
		c.log.Debug("summary cache miss", "key", key)
		return "", false
	}

	c.log.Debug("summary cache hit", "key", key)
	return entry.Value, true
}

// SetSummary caches a freshly generated summary with a new TTL and persists
// both tables.
func (c *Cache) SetSummary(date string, commits []model.Commit, diff string, limits model.MessageLimits, summary string) error {
	hashes := commitHashes(commits)
	diffHash := hashContent(diff)
	key := summaryKey(date, hashes, diffHash, hashConfig(limits))

	now := time.Now()
	c.summaries[key] = Entry{
		Key:         key,
		Value:       summary,
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.cfg.TTL),
		ContextHash: diffHash,
		Metadata: map[string]string{
			"date":         date,
			"commit_count": itoa(len(commits)),
			"first_commit": shortHash(hashes),
		},
	}

	return c.persist()
}

// GetPlan returns the cached plan for this commit set, if present and fresh.
func (c *Cache) GetPlan(startDate, endDate string, commits []model.Commit, limits model.MessageLimits) (CachedPlan, bool) {
	if len(commits) == 0 {
		return CachedPlan{}, false
	}

	key := planKey(startDate, endDate, len(commits),
		commits[0].Hash, commits[len(commits)-1].Hash, hashConfig(limits))

	entry, ok := c.plans[key]
	if !ok || entry.isExpired(time.Now()) {
		c.log.Debug("plan cache miss", "key", key)
		return CachedPlan{}, false
	}

	var cached CachedPlan
	if err := json.Unmarshal([]byte(entry.Value), &cached); err != nil {
		c.log.Warn("dropping unreadable cached plan", "key", key, "error", err)
		delete(c.plans, key)
		return CachedPlan{}, false
	}

	c.log.Debug("plan cache hit", "key", key)
	return cached, true
}

// SetPlan caches a freshly built plan, serialized so it can be reconstructed
// against a later commit fetch.
func (c *Cache) SetPlan(startDate, endDate string, commits []model.Commit, limits model.MessageLimits, plan model.Plan) error {
	if len(commits) == 0 {
		return nil
	}

	cached := CachedPlan{TotalCommits: plan.TotalCommits}
	for _, item := range plan.Items {
		cached.Items = append(cached.Items, CachedPlanItem{
			Date:         item.Date,
			Part:         item.Part,
			Summary:      item.Summary,
			CommitCount:  len(item.Commits),
			CommitHashes: commitHashes(item.Commits),
		})
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return errm.Wrap(err, "marshal plan")
	}

	configHash := hashConfig(limits)
	key := planKey(startDate, endDate, len(commits),
		commits[0].Hash, commits[len(commits)-1].Hash, configHash)

	now := time.Now()
	c.plans[key] = Entry{
		Key:         key,
		Value:       string(raw),
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.cfg.TTL),
		ContextHash: configHash,
		Metadata: map[string]string{
			"start_date":       startDate,
			"end_date":         endDate,
			"total_commits":    itoa(len(commits)),
			"squashed_commits": itoa(len(plan.Items)),
		},
	}

	return c.persist()
}

// InvalidatePlans removes every cached plan that references any of the given
// commit hashes. Over-invalidation is fine; serving a plan for commits that
// were already squashed away is not.
func (c *Cache) InvalidatePlans(hashes []string) error {
	squashed := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		squashed[h] = struct{}{}
	}

	var removed []string
	for key, entry := range c.plans {
		var cached CachedPlan
		if err := json.Unmarshal([]byte(entry.Value), &cached); err != nil {
			removed = append(removed, key)
			continue
		}
	items:
		for _, item := range cached.Items {
			for _, h := range item.CommitHashes {
				if _, ok := squashed[h]; ok {
					removed = append(removed, key)
					break items
				}
			}
		}
	}

	if len(removed) == 0 {
		return nil
	}

	for _, key := range removed {
		delete(c.plans, key)
	}
	c.log.Debug("invalidated cached plans", "count", len(removed))

	return c.persist()
}

// ClearExpired sweeps both tables and persists if anything was dropped.
func (c *Cache) ClearExpired() error {
	now := time.Now()
	dropped := 0

	for key, entry := range c.summaries {
		if entry.isExpired(now) {
			delete(c.summaries, key)
			dropped++
		}
	}
	for key, entry := range c.plans {
		if entry.isExpired(now) {
			delete(c.plans, key)
			dropped++
		}
	}

	if dropped == 0 {
		return nil
	}
	c.log.Info("cleared expired cache entries", "count", dropped)

	return c.persist()
}

// ClearAll empties both tables.
func (c *Cache) ClearAll() error {
	c.summaries = make(map[string]Entry)
	c.plans = make(map[string]Entry)
	c.log.Info("cleared all cache entries")
	return c.persist()
}

// Stats returns entry counts and approximate sizes for both tables.
func (c *Cache) Stats() Stats {
	stats := Stats{
		Dir:            c.cfg.Dir,
		TotalSummaries: len(c.summaries),
		TotalPlans:     len(c.plans),
		TTL:            c.cfg.TTL,
	}
	for _, e := range c.summaries {
		stats.SummarySizeBytes += len(e.Value)
	}
	for _, e := range c.plans {
		stats.PlanSizeBytes += len(e.Value)
	}
	return stats
}

// Dir returns the cache directory in use.
func (c *Cache) Dir() string {
	return c.cfg.Dir
}

func (c *Cache) summaryPath() string { return filepath.Join(c.cfg.Dir, summaryCacheFile) }
func (c *Cache) planPath() string    { return filepath.Join(c.cfg.Dir, planCacheFile) }

func (c *Cache) persist() error {
	now := time.Now()
	if err := c.writeTable(c.summaryPath(), table{Version: SchemaVersion, UpdatedAt: now, Entries: c.summaries}); err != nil {
		return errm.Wrap(err, "persist summary cache")
	}
	if err := c.writeTable(c.planPath(), table{Version: SchemaVersion, UpdatedAt: now, Entries: c.plans}); err != nil {
		return errm.Wrap(err, "persist plan cache")
	}
	return nil
}

// loadTable reads one table, discarding anything unreadable, incompatible or
// expired. Corruption means a cold cache, never a failure.
func (c *Cache) loadTable(path string) map[string]Entry {
	entries := make(map[string]Entry)

	lock := flock.New(lockPath(path))
	if err := lock.RLock(); err != nil {
		c.log.Warn("advisory read lock unavailable", "path", path, "error", err)
	} else {
		defer func() { _ = lock.Unlock() }()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		c.log.Warn("cannot read cache table, starting fresh", "path", path, "error", err)
		return entries
	}

	var t table
	if err := json.Unmarshal(raw, &t); err != nil {
		c.log.Warn("corrupt cache table, starting fresh", "path", path, "error", err)
		return entries
	}
	if t.Version != SchemaVersion {
		c.log.Warn("cache table version mismatch, starting fresh",
			"path", path, "version", t.Version, "expected", SchemaVersion)
		return entries
	}

	now := time.Now()
	for key, entry := range t.Entries {
		if entry.isExpired(now) {
			continue
		}
		entries[key] = entry
	}

	return entries
}

// writeTable persists atomically: temp file in the same directory, fsync,
// rename over the target. The exclusive lock covers the temp write and is
// released before the rename; atomicity holds even if locking fails.
func (c *Cache) writeTable(path string, t table) error {
	raw, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return errm.Wrap(err, "marshal cache table")
	}

	lock := flock.New(lockPath(path))
	locked := true
	if err := lock.Lock(); err != nil {
		c.log.Warn("advisory write lock unavailable", "path", path, "error", err)
		locked = false
	}

	tmp, err := os.CreateTemp(c.cfg.Dir, filepath.Base(path)+".tmp")
	if err != nil {
		if locked {
			_ = lock.Unlock()
		}
		return errm.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()

	writeErr := func() error {
		defer tmp.Close()
		if _, err := tmp.Write(raw); err != nil {
			return errm.Wrap(err, "write temp file")
		}
		if err := tmp.Sync(); err != nil {
			return errm.Wrap(err, "fsync temp file")
		}
		return nil
	}()

	if locked {
		_ = lock.Unlock()
	}

	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return writeErr
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errm.Wrap(err, "replace cache table")
	}

	return nil
}

func lockPath(path string) string {
	return path + ".lock"
}

func commitHashes(commits []model.Commit) []string {
	hashes := make([]string, 0, len(commits))
	for _, c := range commits {
		hashes = append(hashes, c.Hash)
	}
	return hashes
}

func shortHash(hashes []string) string {
	if len(hashes) == 0 {
		return ""
	}
	h := hashes[0]
	if len(h) > 8 {
		h = h[:8]
	}
	return h
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
