package core

import (
	"encoding/json"
	"strconv"

	"github.com/axiomesh/ballot/collection"
	"github.com/axiomesh/ballot/store"
	"github.com/pkg/errors"
)

// Storage layout. Each collection owns every key starting with its prefix.
var (
	ownerKey           = []byte{0x01}
	proposalsNamespace = []byte{0x02}
	votersNamespace    = []byte{0x03}
)

type Options struct {
	// UniqueProposalIDs rejects a proposal whose id was already submitted
	UniqueProposalIDs bool

	// EnforceVotingWindow rejects votes outside [StartTime, EndTime)
	EnforceVotingWindow bool

	Observer Observer
}

// Contract dispatches host calls to the owner guard, the proposal ledger
// and the voter registry. It holds no state of its own: every call works
// on the store.KV handed in by the host, which commits it only when the
// call returns without error.
type Contract struct {
	guard    *OwnerGuard
	ledger   *Ledger
	registry *Registry
	observer Observer
}

func New(opts Options) *Contract {
	guard := NewOwnerGuard(collection.NewItem[string](ownerKey, collection.RLP[string]{}))
	ledger := NewLedger(
		collection.NewAppendList[*Proposal](proposalsNamespace, collection.RLP[*Proposal]{}),
		guard,
		opts.UniqueProposalIDs,
	)
	registry := NewRegistry(
		ledger,
		collection.NewKeymap[string, *Voter](votersNamespace, collection.StringKey{}, collection.RLP[*Voter]{}),
		guard,
		opts.EnforceVotingWindow,
	)

	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &Contract{
		guard:    guard,
		ledger:   ledger,
		registry: registry,
		observer: observer,
	}
}

func (c *Contract) Ledger() *Ledger {
	return c.ledger
}

func (c *Contract) Registry() *Registry {
	return c.registry
}

// Init records the caller as owner. Observers are not notified; use
// Instantiate to run Init as a committed call.
func (c *Contract) Init(kv store.KV, env Env, info Info) (*Response, error) {
	res, _, err := c.instantiate(kv, info)
	return res, err
}

// Execute applies exactly one mutating operation to kv. Observers are not
// notified; use Call to run Execute as a committed call.
func (c *Contract) Execute(kv store.KV, env Env, info Info, msg ExecuteMsg) (*Response, error) {
	res, _, err := c.execute(kv, env, info, msg)
	return res, err
}

// Instantiate runs Init as one atomic call against backend.
func (c *Contract) Instantiate(backend store.Backend, env Env, info Info) (*Response, error) {
	return c.call(backend, func(kv store.KV) (*Response, Event, error) {
		return c.instantiate(kv, info)
	})
}

// Call runs Execute as one atomic call against backend. Writes are committed
// only when the operation succeeds. The observer sees the call after the
// commit, so a failed commit is reported as a rejected call.
func (c *Contract) Call(backend store.Backend, env Env, info Info, msg ExecuteMsg) (*Response, error) {
	return c.call(backend, func(kv store.KV) (*Response, Event, error) {
		return c.execute(kv, env, info, msg)
	})
}

func (c *Contract) call(backend store.Backend, fn func(kv store.KV) (*Response, Event, error)) (*Response, error) {
	var (
		res *Response
		e   Event
	)
	err := store.Update(backend, func(kv store.KV) (err error) {
		res, e, err = fn(kv)
		return err
	})
	// malformed messages name no action
	if e.Action != "" {
		e.Err = err
		c.observer.Observe(e)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Contract) instantiate(kv store.KV, info Info) (*Response, Event, error) {
	e := Event{Action: ActionInit, Sender: info.Sender}
	if err := c.guard.Initialize(kv, info.Sender); err != nil {
		return nil, e, err
	}
	return (&Response{}).
		add("action", ActionInit).
		add("owner", info.Sender), e, nil
}

func (c *Contract) execute(kv store.KV, env Env, info Info, msg ExecuteMsg) (*Response, Event, error) {
	set := 0
	for _, ok := range []bool{msg.SubmitProposal != nil, msg.RegisterVoter != nil, msg.CastVote != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, Event{}, errors.Wrapf(ErrInvalidMessage, "execute message must carry one operation, got %d", set)
	}

	switch {
	case msg.SubmitProposal != nil:
		return c.submitProposal(kv, info, msg.SubmitProposal)
	case msg.RegisterVoter != nil:
		return c.registerVoter(kv, info, msg.RegisterVoter)
	default:
		return c.castVote(kv, env, info, msg.CastVote)
	}
}

func (c *Contract) submitProposal(kv store.KV, info Info, msg *SubmitProposalMsg) (*Response, Event, error) {
	e := Event{
		Action:     ActionSubmitProposal,
		Sender:     info.Sender,
		ProposalID: msg.ID,
	}
	p, err := c.ledger.Submit(kv, info.Sender, msg.ID, msg.ChoiceCount, msg.StartTime, msg.EndTime)
	if err != nil {
		return nil, e, err
	}
	return (&Response{}).
		add("action", ActionSubmitProposal).
		add("proposal_id", p.ID).
		add("seq", strconv.FormatUint(p.Seq, 10)), e, nil
}

func (c *Contract) registerVoter(kv store.KV, info Info, msg *RegisterVoterMsg) (*Response, Event, error) {
	e := Event{
		Action:     ActionRegisterVoter,
		Sender:     info.Sender,
		ProposalID: msg.ProposalID,
		Voter:      msg.ExternalAddress,
	}
	power, err := ParsePower(msg.Power)
	if err != nil {
		return nil, e, err
	}
	e.Power = power
	if _, err := c.registry.Register(kv, info.Sender, msg.ProposalID, msg.ExternalAddress, msg.NativeAddress, power); err != nil {
		return nil, e, err
	}
	return (&Response{}).
		add("action", ActionRegisterVoter).
		add("proposal_id", msg.ProposalID).
		add("voter", msg.ExternalAddress), e, nil
}

func (c *Contract) castVote(kv store.KV, env Env, info Info, msg *CastVoteMsg) (*Response, Event, error) {
	e := Event{
		Action:     ActionCastVote,
		Sender:     info.Sender,
		ProposalID: msg.ProposalID,
		Voter:      msg.ExternalAddress,
		Choice:     msg.Choice,
	}
	v, _, err := c.registry.CastVote(kv, env, msg.ProposalID, msg.ExternalAddress, msg.NativeAddress, msg.Choice)
	if err != nil {
		return nil, e, err
	}
	e.Power = v.Power
	return (&Response{}).
		add("action", ActionCastVote).
		add("proposal_id", msg.ProposalID).
		add("voter", msg.ExternalAddress).
		add("choice", strconv.Itoa(int(msg.Choice))), e, nil
}

// Query answers a read-only message with its JSON encoded response.
func (c *Contract) Query(kv store.KV, msg QueryMsg) ([]byte, error) {
	set := 0
	for _, ok := range []bool{
		msg.CurrentProposal != nil,
		msg.ProposalByID != nil,
		msg.ProposalCount != nil,
		msg.VoterCount != nil,
		msg.WhoWon != nil,
		msg.Owner != nil,
		msg.Voter != nil,
	} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, errors.Wrapf(ErrInvalidMessage, "query message must carry one operation, got %d", set)
	}

	var (
		res any
		err error
	)
	switch {
	case msg.CurrentProposal != nil:
		res, err = c.CurrentProposal(kv)
	case msg.ProposalByID != nil:
		res, err = c.ProposalByID(kv, msg.ProposalByID.ProposalID)
	case msg.ProposalCount != nil:
		res, err = c.ProposalCount(kv)
	case msg.VoterCount != nil:
		res, err = c.VoterCount(kv, msg.VoterCount.ProposalID)
	case msg.WhoWon != nil:
		res, err = c.WhoWon(kv, msg.WhoWon.ProposalID)
	case msg.Owner != nil:
		res, err = c.Owner(kv)
	default:
		res, err = c.Voter(kv, msg.Voter.ProposalID, msg.Voter.ExternalAddress)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

func (c *Contract) CurrentProposal(kv store.KV) (*ProposalResponse, error) {
	p, err := c.ledger.Current(kv)
	if err != nil {
		return nil, err
	}
	return &ProposalResponse{ID: p.ID, ChoiceCount: p.ChoiceCount}, nil
}

func (c *Contract) ProposalByID(kv store.KV, id string) (*ProposalResponse, error) {
	p, err := c.ledger.FindByID(kv, id)
	if err != nil {
		return nil, err
	}
	return &ProposalResponse{ID: p.ID, ChoiceCount: p.ChoiceCount}, nil
}

func (c *Contract) ProposalCount(kv store.KV) (*CountResponse, error) {
	n, err := c.ledger.Count(kv)
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: n}, nil
}

func (c *Contract) VoterCount(kv store.KV, proposalID string) (*CountResponse, error) {
	n, err := c.registry.VoterCount(kv, proposalID)
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: n}, nil
}

// WhoWon tallies the named proposal, or the current one when proposalID is empty.
func (c *Contract) WhoWon(kv store.KV, proposalID string) (*WinnerResponse, error) {
	p, err := c.ledger.Resolve(kv, proposalID)
	if err != nil {
		return nil, err
	}
	w := Tally(p)
	return &WinnerResponse{Choice: w.Choice, ChoiceCount: formatPower(w.Count)}, nil
}

func (c *Contract) Owner(kv store.KV) (*OwnerResponse, error) {
	owner, err := c.guard.Owner(kv)
	if err != nil {
		return nil, err
	}
	return &OwnerResponse{Owner: owner}, nil
}

func (c *Contract) Voter(kv store.KV, proposalID, external string) (*VoterResponse, error) {
	v, err := c.registry.Voter(kv, proposalID, external)
	if err != nil {
		return nil, err
	}
	return &VoterResponse{
		ProposalID:      v.ProposalID,
		ExternalAddress: v.ExternalAddress,
		NativeAddress:   v.NativeAddress,
		Power:           formatPower(v.Power),
		HasVoted:        v.HasVoted,
	}, nil
}
