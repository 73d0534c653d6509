package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/sirupsen/logrus"
)

var _ Backend = (*Badger)(nil)

type BadgerOptionFunc func(*Badger)

// WithBadgerDataDir specifies the data directory. Without one the database
// is kept in memory.
func WithBadgerDataDir(dataDir string) BadgerOptionFunc {
	return func(b *Badger) {
		b.dataDir = dataDir
	}
}

// WithBadgerLogger specifies the logger badger reports to
func WithBadgerLogger(logger *logrus.Logger) BadgerOptionFunc {
	return func(b *Badger) {
		b.logger = logger
	}
}

// Badger stores all data in badger. Data is not persisted when no data
// directory is configured.
type Badger struct {
	db      *badger.DB
	logger  *logrus.Logger
	dataDir string
}

func NewBadger(opts ...BadgerOptionFunc) (*Badger, error) {
	b := &Badger{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logrus.New()
		b.logger.SetOutput(io.Discard)
	}

	var badgerOpts badger.Options
	if b.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithInMemory(true)
	} else {
		if err := os.MkdirAll(b.dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(b.dataDir, "badger")).
			WithCompression(options.Snappy)
	}
	badgerOpts = badgerOpts.
		WithLogger(b.logger).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	b.db = db
	return b, nil
}

func (b *Badger) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	return val, err
}

func (b *Badger) Apply(changes []Change) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, c := range changes {
			if c.Delete {
				if err := txn.Delete(c.Key); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set(c.Key, c.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Badger) Close() error {
	return b.db.Close()
}
