package squash

import (
	"strings"
	"time"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/lang"
)

const (
	defaultSubjectLineLimit  = 96
	defaultBodyLineWidth     = 96
	defaultTotalMessageLimit = 1500

	defaultSplitThresholdCommits = 20
	defaultSplitThresholdSpan    = 23 * time.Hour
	defaultTimeGap               = 2 * time.Hour
	defaultMaxRetryAttempts      = 3

	defaultBranchPrefix       = "feature/"
	defaultBackupBranchPrefix = "backup/"

	defaultModel = "claude-3-7-sonnet-20250219"
)

// Config represents squash behavior configuration
type Config struct {
	SubjectLineLimit  int `yaml:"subject_line_limit" env:"GIT_SQUASH_SUBJECT_LINE_LIMIT"`
	BodyLineWidth     int `yaml:"body_line_width" env:"GIT_SQUASH_BODY_LINE_WIDTH"`
	TotalMessageLimit int `yaml:"total_message_limit" env:"GIT_SQUASH_TOTAL_MESSAGE_LIMIT"`

	SplitThresholdCommits int           `yaml:"split_threshold_commits" env:"GIT_SQUASH_SPLIT_THRESHOLD_COMMITS"`
	SplitThresholdSpan    time.Duration `yaml:"split_threshold_span" env:"GIT_SQUASH_SPLIT_THRESHOLD_SPAN"`
	TimeGap               time.Duration `yaml:"time_gap" env:"GIT_SQUASH_TIME_GAP"`
	MaxRetryAttempts      int           `yaml:"max_retry_attempts" env:"GIT_SQUASH_MAX_RETRY_ATTEMPTS"`

	BranchPrefix       string `yaml:"branch_prefix" env:"GIT_SQUASH_BRANCH_PREFIX"`
	BackupBranchPrefix string `yaml:"backup_branch_prefix" env:"GIT_SQUASH_BACKUP_BRANCH_PREFIX"`

	Model string `yaml:"model" env:"GIT_SQUASH_MODEL"`

	SkipBackup bool `yaml:"skip_backup" env:"GIT_SQUASH_SKIP_BACKUP"`
}

func (c *Config) PrepareAndValidate() error {
	c.SubjectLineLimit = lang.Check(c.SubjectLineLimit, defaultSubjectLineLimit)
	c.BodyLineWidth = lang.Check(c.BodyLineWidth, defaultBodyLineWidth)
	c.TotalMessageLimit = lang.Check(c.TotalMessageLimit, defaultTotalMessageLimit)
	c.SplitThresholdCommits = lang.Check(c.SplitThresholdCommits, defaultSplitThresholdCommits)
	c.SplitThresholdSpan = lang.Check(c.SplitThresholdSpan, defaultSplitThresholdSpan)
	c.TimeGap = lang.Check(c.TimeGap, defaultTimeGap)
	c.MaxRetryAttempts = lang.Check(c.MaxRetryAttempts, defaultMaxRetryAttempts)
	c.BranchPrefix = lang.Check(c.BranchPrefix, defaultBranchPrefix)
	c.BackupBranchPrefix = lang.Check(c.BackupBranchPrefix, defaultBackupBranchPrefix)
	c.Model = lang.Check(c.Model, defaultModel)

	if c.SubjectLineLimit < 0 || c.BodyLineWidth < 0 || c.TotalMessageLimit < 0 {
		return erro.New("message limits must be positive")
	}
	if c.SubjectLineLimit > c.TotalMessageLimit {
		return erro.New("subject line limit cannot exceed total message limit")
	}
	if c.SplitThresholdCommits < 0 {
		return erro.New("split threshold commits must be positive")
	}
	if c.MaxRetryAttempts < 1 || c.MaxRetryAttempts > 10 {
		return erro.New("max retry attempts must be between 1 and 10")
	}
	if err := validateBranchPrefix(c.BranchPrefix); err != nil {
		return err
	}
	return validateBranchPrefix(c.BackupBranchPrefix)
}

// Overrides holds optional per-run configuration replacements; zero
// values leave the base configuration untouched.
type Overrides struct {
	SubjectLineLimit  int
	BodyLineWidth     int
	TotalMessageLimit int
	MaxRetryAttempts  int
	BranchPrefix      string
	Model             string
}

// WithOverrides returns a copy of the configuration with non-zero
// override values applied. The receiver is never mutated.
func (c Config) WithOverrides(o Overrides) Config {
	out := c
	if o.SubjectLineLimit > 0 {
		out.SubjectLineLimit = o.SubjectLineLimit
	}
	if o.BodyLineWidth > 0 {
		out.BodyLineWidth = o.BodyLineWidth
	}
	if o.TotalMessageLimit > 0 {
		out.TotalMessageLimit = o.TotalMessageLimit
	}
	if o.MaxRetryAttempts > 0 {
		out.MaxRetryAttempts = o.MaxRetryAttempts
	}
	if o.BranchPrefix != "" {
		out.BranchPrefix = o.BranchPrefix
	}
	if o.Model != "" {
		out.Model = o.Model
	}
	return out
}

// Limits returns the message-affecting configuration snapshot that
// travels with plans and feeds cache fingerprints.
func (c Config) Limits() model.MessageLimits {
	return model.MessageLimits{
		SubjectLineLimit:  c.SubjectLineLimit,
		BodyLineWidth:     c.BodyLineWidth,
		TotalMessageLimit: c.TotalMessageLimit,
		Model:             c.Model,
	}
}

func validateBranchPrefix(prefix string) error {
	if strings.ContainsAny(prefix, " \n\t~^:?*[\\") || strings.Contains(prefix, "..") {
		return erro.New("invalid characters in branch prefix: %q", prefix)
	}
	return nil
}
