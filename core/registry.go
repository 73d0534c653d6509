package core

import (
	"encoding/binary"

	"github.com/axiomesh/ballot/collection"
	"github.com/axiomesh/ballot/store"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Registry keeps the voters of every proposal, one derived map per
// proposal keyed by external address, and applies votes.
type Registry struct {
	ledger *Ledger
	voters *collection.Keymap[string, *Voter]
	guard  *OwnerGuard

	enforceWindow bool
}

func NewRegistry(ledger *Ledger, voters *collection.Keymap[string, *Voter], guard *OwnerGuard, enforceWindow bool) *Registry {
	return &Registry{
		ledger:        ledger,
		voters:        voters,
		guard:         guard,
		enforceWindow: enforceWindow,
	}
}

func (r *Registry) votersOf(p *Proposal) *collection.Keymap[string, *Voter] {
	return r.voters.Derive(binary.BigEndian.AppendUint64(nil, p.Seq))
}

// Register stores the voter for the proposal, replacing an earlier
// registration of the same external address. A voter that already voted
// cannot be registered again.
func (r *Registry) Register(kv store.KV, sender, proposalID, external, native string, power *uint256.Int) (*Voter, error) {
	if err := r.guard.RequireOwner(kv, sender); err != nil {
		return nil, err
	}
	if power == nil {
		return nil, errors.Wrap(ErrInvalidPower, "missing power")
	}

	p, err := r.ledger.FindByID(kv, proposalID)
	if err != nil {
		return nil, err
	}

	voters := r.votersOf(p)
	prev, err := voters.Get(kv, external)
	switch {
	case err == nil:
		if prev.HasVoted {
			return nil, errors.Wrapf(ErrAlreadyVoted, "voter %s on proposal %s", external, proposalID)
		}
	case errors.Is(err, collection.ErrNotFound):
	default:
		return nil, err
	}

	v := &Voter{
		ProposalID:      proposalID,
		ExternalAddress: external,
		NativeAddress:   native,
		Power:           new(uint256.Int).Set(power),
	}
	if err := voters.Insert(kv, external, v); err != nil {
		return nil, errors.Wrapf(err, "register voter %s", external)
	}
	return v, nil
}

// CastVote adds the voter's power to the chosen counter of the proposal.
// It returns the updated voter and proposal.
func (r *Registry) CastVote(kv store.KV, env Env, proposalID, external, native string, choice uint8) (*Voter, *Proposal, error) {
	p, err := r.ledger.FindByID(kv, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if int(choice) >= len(p.Counters) {
		return nil, nil, errors.Wrapf(ErrInvalidChoice, "choice %d of %d on proposal %s", choice, len(p.Counters), proposalID)
	}
	if r.enforceWindow && !p.Open(env.Time) {
		return nil, nil, errors.Wrapf(ErrVotingClosed, "proposal %s at %s", proposalID, env.Time)
	}

	voters := r.votersOf(p)
	v, err := voters.Get(kv, external)
	if err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			return nil, nil, errors.Wrapf(ErrUnknownVoter, "voter %s on proposal %s", external, proposalID)
		}
		return nil, nil, err
	}
	if v.HasVoted {
		return nil, nil, errors.Wrapf(ErrAlreadyVoted, "voter %s on proposal %s", external, proposalID)
	}

	updated := p.Clone()
	if _, overflow := updated.Counters[choice].AddOverflow(updated.Counters[choice], v.Power); overflow {
		return nil, nil, errors.Wrapf(ErrCounterOverflow, "choice %d on proposal %s", choice, proposalID)
	}

	v.HasVoted = true
	if err := voters.Insert(kv, external, v); err != nil {
		return nil, nil, err
	}
	if err := r.ledger.Update(kv, updated); err != nil {
		return nil, nil, err
	}
	return v, updated, nil
}

// VoterCount returns the number of distinct addresses registered for the
// proposal; an empty id selects the current proposal.
func (r *Registry) VoterCount(kv store.KV, proposalID string) (uint64, error) {
	p, err := r.ledger.Resolve(kv, proposalID)
	if err != nil {
		return 0, err
	}
	return r.votersOf(p).Len(kv)
}

func (r *Registry) Voter(kv store.KV, proposalID, external string) (*Voter, error) {
	p, err := r.ledger.Resolve(kv, proposalID)
	if err != nil {
		return nil, err
	}
	v, err := r.votersOf(p).Get(kv, external)
	if errors.Is(err, collection.ErrNotFound) {
		return nil, errors.Wrapf(ErrUnknownVoter, "voter %s on proposal %s", external, p.ID)
	}
	return v, err
}

// Voters lists the proposal's voters in registration order.
func (r *Registry) Voters(kv store.KV, proposalID string) ([]*Voter, error) {
	p, err := r.ledger.Resolve(kv, proposalID)
	if err != nil {
		return nil, err
	}
	var voters []*Voter
	it := r.votersOf(p).Iterator(kv)
	for it.Next() {
		voters = append(voters, it.Value())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return voters, nil
}
