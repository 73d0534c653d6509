package store

import (
	"github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/pkg/errors"
)

var _ Backend = (*LevelDB)(nil)

// LevelDB is the default on-disk backend.
type LevelDB struct {
	db storage.Storage
}

func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.New(path)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// axiom-kit panics on read and write failures
func recoverStorage(op string, err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = errors.Wrapf(e, "leveldb %s", op)
			return
		}
		*err = errors.Errorf("leveldb %s: %v", op, r)
	}
}

func (l *LevelDB) Get(key []byte) (_ []byte, err error) {
	defer recoverStorage("get", &err)

	val := l.db.Get(key)
	if val == nil {
		return nil, ErrKeyNotFound
	}
	return val, nil
}

func (l *LevelDB) Apply(changes []Change) (err error) {
	defer recoverStorage("commit", &err)

	batch := l.db.NewBatch()
	for _, c := range changes {
		if c.Delete {
			batch.Delete(c.Key)
			continue
		}
		batch.Put(c.Key, c.Value)
	}
	batch.Commit()
	return nil
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}
