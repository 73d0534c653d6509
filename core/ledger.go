package core

import (
	"time"

	"github.com/axiomesh/ballot/collection"
	"github.com/axiomesh/ballot/store"
	"github.com/pkg/errors"
)

// Ledger is the append-only list of proposals. A proposal's position is
// its Seq and never changes; vote counts are written back in place.
type Ledger struct {
	proposals *collection.AppendList[*Proposal]
	guard     *OwnerGuard

	uniqueIDs bool
}

func NewLedger(proposals *collection.AppendList[*Proposal], guard *OwnerGuard, uniqueIDs bool) *Ledger {
	return &Ledger{
		proposals: proposals,
		guard:     guard,
		uniqueIDs: uniqueIDs,
	}
}

// Submit appends a proposal with one zeroed counter per choice.
func (l *Ledger) Submit(kv store.KV, sender, id string, choiceCount uint8, start, end time.Time) (*Proposal, error) {
	if err := l.guard.RequireOwner(kv, sender); err != nil {
		return nil, err
	}

	if l.uniqueIDs {
		_, err := l.FindByID(kv, id)
		switch {
		case err == nil:
			return nil, errors.Wrapf(ErrDuplicateProposal, "proposal %s", id)
		case errors.Is(err, ErrEmptyLedger), errors.Is(err, ErrUnknownProposal):
		default:
			return nil, err
		}
	}

	seq, err := l.proposals.Len(kv)
	if err != nil {
		return nil, err
	}
	p := NewProposal(seq, id, choiceCount, start, end)
	if _, err := l.proposals.Push(kv, p); err != nil {
		return nil, errors.Wrapf(err, "append proposal %s", id)
	}
	return p, nil
}

// Current returns the most recently submitted proposal.
func (l *Ledger) Current(kv store.KV) (*Proposal, error) {
	p, err := l.proposals.Last(kv)
	if errors.Is(err, collection.ErrOutOfRange) {
		return nil, ErrEmptyLedger
	}
	return p, err
}

// FindByID returns the first proposal submitted with id.
func (l *Ledger) FindByID(kv store.KV, id string) (*Proposal, error) {
	it := l.proposals.Iterator(kv)
	found := false
	for it.Next() {
		found = true
		if it.Value().ID == id {
			return it.Value(), nil
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrEmptyLedger
	}
	return nil, errors.Wrapf(ErrUnknownProposal, "proposal %s", id)
}

// Resolve returns the proposal named by id, or the current one when id is empty.
func (l *Ledger) Resolve(kv store.KV, id string) (*Proposal, error) {
	if id == "" {
		return l.Current(kv)
	}
	return l.FindByID(kv, id)
}

func (l *Ledger) Get(kv store.KV, seq uint64) (*Proposal, error) {
	p, err := l.proposals.Get(kv, seq)
	if errors.Is(err, collection.ErrOutOfRange) {
		return nil, errors.Wrapf(ErrUnknownProposal, "seq %d", seq)
	}
	return p, err
}

func (l *Ledger) Count(kv store.KV) (uint64, error) {
	return l.proposals.Len(kv)
}

// Update overwrites the stored proposal at p.Seq.
func (l *Ledger) Update(kv store.KV, p *Proposal) error {
	if err := l.proposals.Set(kv, p.Seq, p); err != nil {
		return errors.Wrapf(err, "update proposal %s", p.ID)
	}
	return nil
}
