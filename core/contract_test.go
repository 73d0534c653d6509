package core

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/axiomesh/ballot/store"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.events = append(r.events, e)
}

// testHost runs every call in its own committed or discarded context.
type testHost struct {
	t        *testing.T
	backend  store.Backend
	contract *Contract
}

func newTestHost(t *testing.T, opts Options) *testHost {
	backend, err := store.NewBadger()
	require.Nil(t, err)
	t.Cleanup(func() {
		assert.Nil(t, backend.Close())
	})
	return &testHost{t: t, backend: backend, contract: New(opts)}
}

func (h *testHost) init(sender string) error {
	_, err := h.contract.Instantiate(h.backend, Env{}, Info{Sender: sender})
	return err
}

func (h *testHost) execute(sender string, msg ExecuteMsg) error {
	_, err := h.contract.Call(h.backend, Env{}, Info{Sender: sender}, msg)
	return err
}

func (h *testHost) query(msg QueryMsg, out any) error {
	return store.View(h.backend, func(kv store.KV) error {
		data, err := h.contract.Query(kv, msg)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, out)
	})
}

func submitMsg(id string, choices uint8) ExecuteMsg {
	return ExecuteMsg{SubmitProposal: &SubmitProposalMsg{ID: id, ChoiceCount: choices, StartTime: testStart, EndTime: testEnd}}
}

func registerMsg(proposalID, external, native, power string) ExecuteMsg {
	return ExecuteMsg{RegisterVoter: &RegisterVoterMsg{ProposalID: proposalID, ExternalAddress: external, NativeAddress: native, Power: power}}
}

func voteMsg(proposalID, external, native string, choice uint8) ExecuteMsg {
	return ExecuteMsg{CastVote: &CastVoteMsg{ProposalID: proposalID, ExternalAddress: external, NativeAddress: native, Choice: choice}}
}

func TestContractInit(t *testing.T) {
	h := newTestHost(t, Options{})
	require.Nil(t, h.init(creator))
	assert.ErrorIs(t, h.init("mallory"), ErrAlreadyInitialized)

	var owner OwnerResponse
	require.Nil(t, h.query(QueryMsg{Owner: &Empty{}}, &owner))
	assert.Equal(t, creator, owner.Owner)
}

func TestContractAddProposal(t *testing.T) {
	h := newTestHost(t, Options{})
	require.Nil(t, h.init(creator))

	require.Nil(t, h.execute(creator, submitMsg("prop1", 4)))
	require.Nil(t, h.execute(creator, submitMsg("prop2", 3)))

	var current ProposalResponse
	require.Nil(t, h.query(QueryMsg{CurrentProposal: &Empty{}}, &current))
	assert.Equal(t, ProposalResponse{ID: "prop2", ChoiceCount: 3}, current)

	var first ProposalResponse
	require.Nil(t, h.query(QueryMsg{ProposalByID: &ProposalByIDQuery{ProposalID: "prop1"}}, &first))
	assert.Equal(t, ProposalResponse{ID: "prop1", ChoiceCount: 4}, first)

	var count CountResponse
	require.Nil(t, h.query(QueryMsg{ProposalCount: &Empty{}}, &count))
	assert.EqualValues(t, 2, count.Count)

	err := h.query(QueryMsg{ProposalByID: &ProposalByIDQuery{ProposalID: "prop3"}}, &first)
	assert.ErrorIs(t, err, ErrUnknownProposal)
}

func TestContractRegisterVoter(t *testing.T) {
	h := newTestHost(t, Options{})
	require.Nil(t, h.init(creator))
	require.Nil(t, h.execute(creator, submitMsg("prop1", 4)))

	require.Nil(t, h.execute(creator, registerMsg("prop1", "0xBEEF", "secretvoter1", "100")))
	require.Nil(t, h.execute(creator, registerMsg("prop1", "0xDEAD", "secretvoter2", "250")))

	var count CountResponse
	require.Nil(t, h.query(QueryMsg{VoterCount: &VoterCountQuery{}}, &count))
	assert.EqualValues(t, 2, count.Count)

	err := h.execute(creator, registerMsg("prop1", "0xCAFE", "secretvoter3", "-5"))
	assert.ErrorIs(t, err, ErrInvalidPower)

	var voter VoterResponse
	require.Nil(t, h.query(QueryMsg{Voter: &VoterQuery{ProposalID: "prop1", ExternalAddress: "0xDEAD"}}, &voter))
	assert.Equal(t, VoterResponse{
		ProposalID:      "prop1",
		ExternalAddress: "0xDEAD",
		NativeAddress:   "secretvoter2",
		Power:           "250",
	}, voter)
}

func TestContractCastVote(t *testing.T) {
	h := newTestHost(t, Options{})
	require.Nil(t, h.init(creator))
	require.Nil(t, h.execute(creator, submitMsg("prop1", 4)))
	require.Nil(t, h.execute(creator, registerMsg("prop1", "0xBEEF", "secretvoter1", "100")))
	require.Nil(t, h.execute(creator, registerMsg("prop1", "0xDEAD", "secretvoter2", "250")))

	require.Nil(t, h.execute(creator, voteMsg("prop1", "0xBEEF", "secretvoter1", 2)))
	require.Nil(t, h.execute(creator, voteMsg("prop1", "0xDEAD", "secretvoter2", 1)))

	var winner WinnerResponse
	require.Nil(t, h.query(QueryMsg{WhoWon: &WhoWonQuery{ProposalID: "prop1"}}, &winner))
	assert.Equal(t, WinnerResponse{Choice: 1, ChoiceCount: "250"}, winner)

	var count CountResponse
	require.Nil(t, h.query(QueryMsg{ProposalCount: &Empty{}}, &count))
	assert.EqualValues(t, 1, count.Count)
}

func TestContractWhoWonSelectsProposal(t *testing.T) {
	h := newTestHost(t, Options{})
	require.Nil(t, h.init(creator))
	require.Nil(t, h.execute(creator, submitMsg("prop1", 4)))
	require.Nil(t, h.execute(creator, registerMsg("prop1", "0xBEEF", "", "100")))
	require.Nil(t, h.execute(creator, voteMsg("prop1", "0xBEEF", "", 3)))
	require.Nil(t, h.execute(creator, submitMsg("prop2", 2)))

	var winner WinnerResponse
	require.Nil(t, h.query(QueryMsg{WhoWon: &WhoWonQuery{ProposalID: "prop1"}}, &winner))
	assert.Equal(t, WinnerResponse{Choice: 3, ChoiceCount: "100"}, winner)

	require.Nil(t, h.query(QueryMsg{WhoWon: &WhoWonQuery{}}, &winner))
	assert.Equal(t, WinnerResponse{Choice: 0, ChoiceCount: "0"}, winner)

	err := h.query(QueryMsg{WhoWon: &WhoWonQuery{ProposalID: "prop9"}}, &winner)
	assert.ErrorIs(t, err, ErrUnknownProposal)
}

func TestContractEmptyLedger(t *testing.T) {
	h := newTestHost(t, Options{})
	require.Nil(t, h.init(creator))

	err := h.execute(creator, registerMsg("prop1", "0xBEEF", "secretvoter1", "100"))
	assert.ErrorIs(t, err, ErrEmptyLedger)

	var p ProposalResponse
	err = h.query(QueryMsg{CurrentProposal: &Empty{}}, &p)
	assert.ErrorIs(t, err, ErrEmptyLedger)

	var count CountResponse
	err = h.query(QueryMsg{VoterCount: &VoterCountQuery{}}, &count)
	assert.ErrorIs(t, err, ErrEmptyLedger)
}

func TestContractUnauthorized(t *testing.T) {
	h := newTestHost(t, Options{})

	// nothing is owned before init
	assert.ErrorIs(t, h.execute(creator, submitMsg("prop1", 4)), ErrUnauthorized)

	require.Nil(t, h.init(creator))
	assert.ErrorIs(t, h.execute("mallory", submitMsg("prop1", 4)), ErrUnauthorized)
	require.Nil(t, h.execute(creator, submitMsg("prop1", 4)))
	assert.ErrorIs(t, h.execute("mallory", registerMsg("prop1", "0xBEEF", "", "1")), ErrUnauthorized)
}

func TestContractInvalidMessages(t *testing.T) {
	h := newTestHost(t, Options{})
	require.Nil(t, h.init(creator))

	assert.ErrorIs(t, h.execute(creator, ExecuteMsg{}), ErrInvalidMessage)
	both := submitMsg("prop1", 4)
	both.CastVote = &CastVoteMsg{ProposalID: "prop1"}
	assert.ErrorIs(t, h.execute(creator, both), ErrInvalidMessage)

	var out any
	assert.ErrorIs(t, h.query(QueryMsg{}, &out), ErrInvalidMessage)
	assert.ErrorIs(t, h.query(QueryMsg{Owner: &Empty{}, ProposalCount: &Empty{}}, &out), ErrInvalidMessage)
}

func TestContractFailedVoteChangesNothing(t *testing.T) {
	h := newTestHost(t, Options{})
	require.Nil(t, h.init(creator))
	require.Nil(t, h.execute(creator, submitMsg("prop1", 2)))
	require.Nil(t, h.execute(creator, registerMsg("prop1", "0xBEEF", "", "100")))
	require.Nil(t, h.execute(creator, voteMsg("prop1", "0xBEEF", "", 1)))

	assert.ErrorIs(t, h.execute(creator, voteMsg("prop1", "0xBEEF", "", 0)), ErrAlreadyVoted)
	assert.ErrorIs(t, h.execute(creator, voteMsg("prop1", "0xBEEF", "", 2)), ErrInvalidChoice)

	var winner WinnerResponse
	require.Nil(t, h.query(QueryMsg{WhoWon: &WhoWonQuery{ProposalID: "prop1"}}, &winner))
	assert.Equal(t, WinnerResponse{Choice: 1, ChoiceCount: "100"}, winner)
}

func TestContractVoteSums(t *testing.T) {
	h := newTestHost(t, Options{})
	require.Nil(t, h.init(creator))
	require.Nil(t, h.execute(creator, submitMsg("prop1", 4)))

	rnd := rand.New(rand.NewSource(7))
	powers := make(map[string]uint64)
	for i := 0; i < 20; i++ {
		addr := fmt.Sprintf("0x%02x", i)
		power := uint64(rnd.Intn(1000))
		powers[addr] = power
		require.Nil(t, h.execute(creator, registerMsg("prop1", addr, "", fmt.Sprint(power))))
	}

	var voted uint64
	prev := make([]uint64, 4)
	for i := 0; i < 40; i++ {
		addr := fmt.Sprintf("0x%02x", rnd.Intn(20))
		err := h.execute(addr, voteMsg("prop1", addr, "", uint8(rnd.Intn(4))))
		if err == nil {
			voted += powers[addr]
		} else {
			assert.ErrorIs(t, err, ErrAlreadyVoted)
		}

		require.Nil(t, store.View(h.backend, func(kv store.KV) error {
			p, err := h.contract.Ledger().FindByID(kv, "prop1")
			require.Nil(t, err)
			for c, counter := range p.Counters {
				assert.GreaterOrEqual(t, counter.Uint64(), prev[c])
				prev[c] = counter.Uint64()
			}
			assert.Equal(t, uint256.NewInt(voted), p.TotalPower())
			return nil
		}))
	}
}

func TestContractObserver(t *testing.T) {
	rec := &recorder{}
	logger, hook := test.NewNullLogger()
	h := newTestHost(t, Options{Observer: MultiObserver{rec, &LogObserver{Logger: logger}}})

	require.Nil(t, h.init(creator))
	require.Nil(t, h.execute(creator, submitMsg("prop1", 4)))
	require.Nil(t, h.execute(creator, registerMsg("prop1", "0xBEEF", "", "100")))
	require.Nil(t, h.execute(creator, voteMsg("prop1", "0xBEEF", "", 2)))
	assert.ErrorIs(t, h.execute(creator, voteMsg("prop1", "0xBEEF", "", 2)), ErrAlreadyVoted)

	require.Len(t, rec.events, 5)
	assert.Equal(t, ActionInit, rec.events[0].Action)
	assert.Equal(t, ActionSubmitProposal, rec.events[1].Action)
	assert.Equal(t, ActionRegisterVoter, rec.events[2].Action)
	assert.EqualValues(t, 100, rec.events[2].Power.Uint64())
	vote := rec.events[3]
	assert.Equal(t, ActionCastVote, vote.Action)
	assert.Equal(t, "0xBEEF", vote.Voter)
	assert.EqualValues(t, 2, vote.Choice)
	assert.Nil(t, vote.Err)
	assert.ErrorIs(t, rec.events[4].Err, ErrAlreadyVoted)

	require.Len(t, hook.AllEntries(), 5)
	last := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, last.Level)
	assert.Equal(t, ActionCastVote, last.Data["action"])
	assert.Equal(t, "prop1", last.Data["proposal_id"])
}

// failingBackend rejects every commit.
type failingBackend struct {
	store.Backend
}

func (failingBackend) Apply([]store.Change) error {
	return fmt.Errorf("disk full")
}

func TestContractObserverAfterCommit(t *testing.T) {
	rec := &recorder{}
	h := newTestHost(t, Options{Observer: rec})
	require.Nil(t, h.init(creator))

	_, err := h.contract.Call(failingBackend{Backend: h.backend}, Env{}, Info{Sender: creator}, submitMsg("prop1", 2))
	require.NotNil(t, err)

	require.Len(t, rec.events, 2)
	assert.Equal(t, ActionSubmitProposal, rec.events[1].Action)
	assert.Equal(t, "internal", Kind(rec.events[1].Err))

	var count CountResponse
	require.Nil(t, h.query(QueryMsg{ProposalCount: &Empty{}}, &count))
	assert.EqualValues(t, 0, count.Count)

	// malformed messages reach no operation and are not observed
	assert.ErrorIs(t, h.execute(creator, ExecuteMsg{}), ErrInvalidMessage)
	assert.Len(t, rec.events, 2)
}

func TestContractResponseAttributes(t *testing.T) {
	h := newTestHost(t, Options{})

	res, err := h.contract.Instantiate(h.backend, Env{}, Info{Sender: creator})
	require.Nil(t, err)
	owner, ok := res.Attribute("owner")
	assert.True(t, ok)
	assert.Equal(t, creator, owner)

	for i, id := range []string{"prop1", "prop2"} {
		res, err = h.contract.Call(h.backend, Env{}, Info{Sender: creator}, submitMsg(id, 2))
		require.Nil(t, err)
		seq, ok := res.Attribute("seq")
		assert.True(t, ok)
		assert.Equal(t, fmt.Sprint(i), seq)
	}

	_, err = h.contract.Call(h.backend, Env{}, Info{Sender: creator}, registerMsg("prop1", "0xBEEF", "n", "5"))
	require.Nil(t, err)
	res, err = h.contract.Call(h.backend, Env{}, Info{Sender: "anyone"}, voteMsg("prop1", "0xBEEF", "n", 1))
	require.Nil(t, err)
	action, _ := res.Attribute("action")
	assert.Equal(t, ActionCastVote, action)
	choice, ok := res.Attribute("choice")
	assert.True(t, ok)
	assert.Equal(t, "1", choice)
	_, ok = res.Attribute("seq")
	assert.False(t, ok)
}
