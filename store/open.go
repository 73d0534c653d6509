package store

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	LevelDBBackend = "leveldb"
	BadgerBackend  = "badger"
	MemoryBackend  = "memory"
)

type Options struct {
	Backend string
	Path    string
	Logger  *logrus.Logger

	// Retries bounds how often opening is attempted while another
	// process still holds the database lock
	Retries uint
	Backoff time.Duration
}

// Open opens the configured backend.
func Open(opts Options) (Backend, error) {
	var backend Backend

	switch opts.Backend {
	case LevelDBBackend, BadgerBackend, MemoryBackend:
	case "":
		opts.Backend = LevelDBBackend
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}

	open := func() (err error) {
		switch opts.Backend {
		case LevelDBBackend:
			backend, err = NewLevelDB(filepath.Join(opts.Path, "leveldb"))
		case BadgerBackend:
			backend, err = NewBadger(WithBadgerDataDir(opts.Path), WithBadgerLogger(opts.Logger))
		case MemoryBackend:
			backend, err = NewBadger(WithBadgerLogger(opts.Logger))
		}
		return err
	}

	attempts := opts.Retries + 1
	action := func(attempt uint) error {
		err := open()
		if err != nil && opts.Logger != nil {
			opts.Logger.WithFields(logrus.Fields{
				"backend": opts.Backend,
				"attempt": attempt,
			}).Warnf("open storage failed: %s", err)
		}
		return err
	}
	if err := retry.Retry(action, strategy.Limit(attempts), strategy.Backoff(backoff.Fibonacci(opts.Backoff))); err != nil {
		return nil, errors.Wrapf(err, "open %s storage at %s", opts.Backend, opts.Path)
	}

	return backend, nil
}
