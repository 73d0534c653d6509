package core

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterVoter(t *testing.T) {
	c, kv := newTestLedger(t, Options{})
	registry := c.Registry()

	_, err := registry.Register(kv, creator, "prop1", "0xBEEF", "secretvoter1", uint256.NewInt(100))
	assert.ErrorIs(t, err, ErrEmptyLedger)

	submit(t, c, kv, "prop1", 4)

	_, err = registry.Register(kv, "mallory", "prop1", "0xBEEF", "secretvoter1", uint256.NewInt(100))
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = registry.Register(kv, creator, "prop2", "0xBEEF", "secretvoter1", uint256.NewInt(100))
	assert.ErrorIs(t, err, ErrUnknownProposal)
	_, err = registry.Register(kv, creator, "prop1", "0xBEEF", "secretvoter1", nil)
	assert.ErrorIs(t, err, ErrInvalidPower)

	register(t, c, kv, "prop1", "0xBEEF", 100)
	register(t, c, kv, "prop1", "0xDEAD", 250)

	n, err := registry.VoterCount(kv, "prop1")
	require.Nil(t, err)
	assert.EqualValues(t, 2, n)
}

func TestRegisterVoterOverwrites(t *testing.T) {
	c, kv := newTestLedger(t, Options{})
	submit(t, c, kv, "prop1", 4)

	register(t, c, kv, "prop1", "0xBEEF", 100)
	_, err := c.Registry().Register(kv, creator, "prop1", "0xBEEF", "secretvoter9", uint256.NewInt(7))
	require.Nil(t, err)

	n, err := c.Registry().VoterCount(kv, "prop1")
	require.Nil(t, err)
	assert.EqualValues(t, 1, n)

	v, err := c.Registry().Voter(kv, "prop1", "0xBEEF")
	require.Nil(t, err)
	assert.Equal(t, "secretvoter9", v.NativeAddress)
	assert.EqualValues(t, 7, v.Power.Uint64())
	assert.False(t, v.HasVoted)
}

func TestRegisterVoterAfterVoteRejected(t *testing.T) {
	c, kv := newTestLedger(t, Options{})
	submit(t, c, kv, "prop1", 4)
	register(t, c, kv, "prop1", "0xBEEF", 100)

	_, _, err := c.Registry().CastVote(kv, Env{}, "prop1", "0xBEEF", "secret0xBEEF", 0)
	require.Nil(t, err)

	_, err = c.Registry().Register(kv, creator, "prop1", "0xBEEF", "secret0xBEEF", uint256.NewInt(1000))
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	v, err := c.Registry().Voter(kv, "prop1", "0xBEEF")
	require.Nil(t, err)
	assert.True(t, v.HasVoted)
	assert.EqualValues(t, 100, v.Power.Uint64())
}

func TestVotersArePerProposal(t *testing.T) {
	c, kv := newTestLedger(t, Options{})
	submit(t, c, kv, "prop1", 4)
	submit(t, c, kv, "prop2", 4)

	register(t, c, kv, "prop1", "0xBEEF", 100)
	register(t, c, kv, "prop2", "0xBEEF", 5)
	register(t, c, kv, "prop2", "0xDEAD", 6)

	n, err := c.Registry().VoterCount(kv, "prop1")
	require.Nil(t, err)
	assert.EqualValues(t, 1, n)

	// empty id selects the current proposal
	n, err = c.Registry().VoterCount(kv, "")
	require.Nil(t, err)
	assert.EqualValues(t, 2, n)

	_, _, err = c.Registry().CastVote(kv, Env{}, "prop1", "0xDEAD", "secret0xDEAD", 0)
	assert.ErrorIs(t, err, ErrUnknownVoter)

	voters, err := c.Registry().Voters(kv, "prop2")
	require.Nil(t, err)
	require.Len(t, voters, 2)
	assert.Equal(t, "0xBEEF", voters[0].ExternalAddress)
	assert.Equal(t, "0xDEAD", voters[1].ExternalAddress)
}

func TestCastVote(t *testing.T) {
	c, kv := newTestLedger(t, Options{})
	submit(t, c, kv, "prop1", 4)
	register(t, c, kv, "prop1", "0xBEEF", 100)
	register(t, c, kv, "prop1", "0xDEAD", 250)

	v, p, err := c.Registry().CastVote(kv, Env{}, "prop1", "0xBEEF", "secretvoter1", 2)
	require.Nil(t, err)
	assert.True(t, v.HasVoted)
	assert.EqualValues(t, 100, p.Counters[2].Uint64())

	_, p, err = c.Registry().CastVote(kv, Env{}, "prop1", "0xDEAD", "secretvoter2", 1)
	require.Nil(t, err)
	assert.EqualValues(t, 250, p.Counters[1].Uint64())

	stored, err := c.Ledger().FindByID(kv, "prop1")
	require.Nil(t, err)
	assert.EqualValues(t, 350, stored.TotalPower().Uint64())

	// votes update the proposal in place
	n, err := c.Ledger().Count(kv)
	require.Nil(t, err)
	assert.EqualValues(t, 1, n)

	w := Tally(stored)
	assert.EqualValues(t, 1, w.Choice)
	assert.EqualValues(t, 250, w.Count.Uint64())
}

func TestCastVoteRejections(t *testing.T) {
	c, kv := newTestLedger(t, Options{})

	_, _, err := c.Registry().CastVote(kv, Env{}, "prop1", "0xBEEF", "", 0)
	assert.ErrorIs(t, err, ErrEmptyLedger)

	submit(t, c, kv, "prop1", 3)
	register(t, c, kv, "prop1", "0xBEEF", 100)

	_, _, err = c.Registry().CastVote(kv, Env{}, "prop2", "0xBEEF", "", 0)
	assert.ErrorIs(t, err, ErrUnknownProposal)
	_, _, err = c.Registry().CastVote(kv, Env{}, "prop1", "0xCAFE", "", 0)
	assert.ErrorIs(t, err, ErrUnknownVoter)
	_, _, err = c.Registry().CastVote(kv, Env{}, "prop1", "0xBEEF", "", 3)
	assert.ErrorIs(t, err, ErrInvalidChoice)

	v, err := c.Registry().Voter(kv, "prop1", "0xBEEF")
	require.Nil(t, err)
	assert.False(t, v.HasVoted)

	_, _, err = c.Registry().CastVote(kv, Env{}, "prop1", "0xBEEF", "", 0)
	require.Nil(t, err)
	_, _, err = c.Registry().CastVote(kv, Env{}, "prop1", "0xBEEF", "", 1)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	p, err := c.Ledger().FindByID(kv, "prop1")
	require.Nil(t, err)
	assert.EqualValues(t, 100, p.Counters[0].Uint64())
	assert.True(t, p.Counters[1].IsZero())
}

func TestCastVoteWindow(t *testing.T) {
	c, kv := newTestLedger(t, Options{EnforceVotingWindow: true})
	submit(t, c, kv, "prop1", 2)
	register(t, c, kv, "prop1", "0xBEEF", 100)

	_, _, err := c.Registry().CastVote(kv, Env{Time: testStart.Add(-1)}, "prop1", "0xBEEF", "", 0)
	assert.ErrorIs(t, err, ErrVotingClosed)
	_, _, err = c.Registry().CastVote(kv, Env{Time: testEnd}, "prop1", "0xBEEF", "", 0)
	assert.ErrorIs(t, err, ErrVotingClosed)

	_, _, err = c.Registry().CastVote(kv, Env{Time: testStart}, "prop1", "0xBEEF", "", 0)
	require.Nil(t, err)
}

func TestCastVoteWindowBeyond2262(t *testing.T) {
	c, kv := newTestLedger(t, Options{EnforceVotingWindow: true})
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.Ledger().Submit(kv, creator, "far", 2, start, end)
	require.Nil(t, err)
	register(t, c, kv, "far", "0xBEEF", 100)

	p, err := c.Ledger().FindByID(kv, "far")
	require.Nil(t, err)
	assert.True(t, end.Equal(p.EndTime), p.EndTime)

	_, _, err = c.Registry().CastVote(kv, Env{Time: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)}, "far", "0xBEEF", "", 1)
	require.Nil(t, err)
}

func TestCastVoteOverflow(t *testing.T) {
	c, kv := newTestLedger(t, Options{})
	submit(t, c, kv, "prop1", 2)

	max := new(uint256.Int).SetAllOne()
	_, err := c.Registry().Register(kv, creator, "prop1", "0xBEEF", "", max)
	require.Nil(t, err)
	register(t, c, kv, "prop1", "0xDEAD", 1)

	_, _, err = c.Registry().CastVote(kv, Env{}, "prop1", "0xBEEF", "", 0)
	require.Nil(t, err)
	_, _, err = c.Registry().CastVote(kv, Env{}, "prop1", "0xDEAD", "", 0)
	assert.ErrorIs(t, err, ErrCounterOverflow)

	v, err := c.Registry().Voter(kv, "prop1", "0xDEAD")
	require.Nil(t, err)
	assert.False(t, v.HasVoted)

	p, err := c.Ledger().FindByID(kv, "prop1")
	require.Nil(t, err)
	assert.Equal(t, max, p.Counters[0])
}

func TestCastVoteNoChoices(t *testing.T) {
	c, kv := newTestLedger(t, Options{})
	submit(t, c, kv, "prop1", 0)
	register(t, c, kv, "prop1", "0xBEEF", 100)

	_, _, err := c.Registry().CastVote(kv, Env{}, "prop1", "0xBEEF", "", 0)
	assert.ErrorIs(t, err, ErrInvalidChoice)
}
