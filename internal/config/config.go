package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/gitsquash/internal/agent"
	"github.com/maxbolgarin/gitsquash/internal/cache"
	"github.com/maxbolgarin/gitsquash/internal/squash"
	"github.com/maxbolgarin/lang"
)

// Config represents the main application configuration
type Config struct {
	Repo       string `yaml:"repo" env:"GIT_SQUASH_REPO"`
	BaseBranch string `yaml:"base_branch" env:"GIT_SQUASH_BASE_BRANCH"`
	Verbose    bool   `yaml:"verbose" env:"GIT_SQUASH_VERBOSE"`

	Squash squash.Config `yaml:"squash"`
	Agent  agent.Config  `yaml:"agent"`
	Cache  cache.Config  `yaml:"cache"`
}

// Load reads the configuration file (when a path is given) and merges
// environment variables over it. Defaults and validation are applied later
// by PrepareAndValidate, after command-line overrides have been folded in.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, errm.Wrap(err, "read config file")
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, errm.Wrap(err, "read environment")
		}
	}

	return cfg, nil
}

func (c *Config) PrepareAndValidate() error {
	c.Repo = lang.Check(c.Repo, ".")
	c.BaseBranch = lang.Check(c.BaseBranch, "main")

	if err := c.Squash.PrepareAndValidate(); err != nil {
		return errm.Wrap(err, "squash config")
	}

	// The conventional provider variable works without any config file.
	if c.Agent.APIKey == "" {
		c.Agent.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Agent.APIKey == "" && c.Agent.Type != agent.Mock {
		return ErrMissingAPIKey
	}
	c.Agent.Limits = c.Squash.Limits()
	if err := c.Agent.PrepareAndValidate(); err != nil {
		return errm.Wrap(err, "agent config")
	}

	if err := c.Cache.PrepareAndValidate(); err != nil {
		return errm.Wrap(err, "cache config")
	}

	return nil
}
