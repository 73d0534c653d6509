package repo

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Config struct {
	RepoRoot string  `mapstructure:"-" toml:"-"`
	Log      Log     `mapstructure:"log" toml:"log"`
	Storage  Storage `mapstructure:"storage" toml:"storage"`
	Ledger   Ledger  `mapstructure:"ledger" toml:"ledger"`
	Metrics  Metrics `mapstructure:"metrics" toml:"metrics"`
}

type Log struct {
	Level        string        `mapstructure:"level" toml:"level"`
	Filename     string        `mapstructure:"filename" toml:"filename"`
	ReportCaller bool          `mapstructure:"report_caller" toml:"report_caller"`
	MaxAge       time.Duration `mapstructure:"max_age" toml:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time" toml:"rotation_time"`
}

type Storage struct {
	// leveldb, badger or memory
	Backend string `mapstructure:"backend" toml:"backend"`
	// OpenRetries is how often opening is retried while the database is locked
	OpenRetries uint          `mapstructure:"open_retries" toml:"open_retries"`
	OpenBackoff time.Duration `mapstructure:"open_backoff" toml:"open_backoff"`
}

type Ledger struct {
	UniqueProposalIDs   bool `mapstructure:"unique_proposal_ids" toml:"unique_proposal_ids"`
	EnforceVotingWindow bool `mapstructure:"enforce_voting_window" toml:"enforce_voting_window"`
}

type Metrics struct {
	Enable bool `mapstructure:"enable" toml:"enable"`
	// Textfile is written after every call, relative to the repo root
	Textfile string `mapstructure:"textfile" toml:"textfile"`
}

func DefaultConfig(repoRoot string) *Config {
	return &Config{
		RepoRoot: repoRoot,
		Log: Log{
			Level:        "info",
			Filename:     "ballot.log",
			ReportCaller: false,
			MaxAge:       30 * 24 * time.Hour,
			RotationTime: 24 * time.Hour,
		},
		Storage: Storage{
			Backend:     "leveldb",
			OpenRetries: 3,
			OpenBackoff: 500 * time.Millisecond,
		},
		Ledger: Ledger{
			UniqueProposalIDs:   false,
			EnforceVotingWindow: false,
		},
		Metrics: Metrics{
			Enable:   false,
			Textfile: "ballot.prom",
		},
	}
}

// Validate rejects settings that would only fail once the ledger is opened.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	switch c.Storage.Backend {
	case "leveldb", "badger", "memory":
	default:
		return errors.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Storage.OpenBackoff < 0 {
		return errors.Errorf("storage.open_backoff: negative duration %s", c.Storage.OpenBackoff)
	}
	if c.Metrics.Enable && c.Metrics.Textfile == "" {
		return errors.New("metrics.textfile: required when metrics are enabled")
	}
	return nil
}
