package core

import (
	"testing"
	"time"

	"github.com/axiomesh/ballot/store"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const creator = "creator"

var (
	testStart = time.Unix(0, 1_000_000_101).UTC()
	testEnd   = time.Unix(0, 1_000_000_202).UTC()
)

func newTestKV(t *testing.T) *store.Context {
	backend, err := store.NewBadger()
	require.Nil(t, err)
	t.Cleanup(func() {
		assert.Nil(t, backend.Close())
	})
	return store.NewContext(backend)
}

// newTestLedger returns a ledger and registry over a fresh store owned by creator.
func newTestLedger(t *testing.T, opts Options) (*Contract, *store.Context) {
	c := New(opts)
	kv := newTestKV(t)
	_, err := c.Init(kv, Env{}, Info{Sender: creator})
	require.Nil(t, err)
	return c, kv
}

func submit(t *testing.T, c *Contract, kv store.KV, id string, choices uint8) *Proposal {
	p, err := c.Ledger().Submit(kv, creator, id, choices, testStart, testEnd)
	require.Nil(t, err)
	return p
}

func register(t *testing.T, c *Contract, kv store.KV, proposalID, external string, power uint64) {
	_, err := c.Registry().Register(kv, creator, proposalID, external, "secret"+external, uint256.NewInt(power))
	require.Nil(t, err)
}
