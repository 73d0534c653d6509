package core

import (
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Env describes the host environment of a call.
type Env struct {
	Time time.Time
}

// Info identifies the caller. The host authenticates Sender before dispatch.
type Info struct {
	Sender string
}

type Proposal struct {
	// Seq is the ledger position assigned at submission. It never changes
	// and names the proposal's voter namespace.
	Seq         uint64
	ID          string
	ChoiceCount uint8
	StartTime   time.Time
	EndTime     time.Time

	// Counters holds one power accumulator per choice
	Counters []*uint256.Int
}

func NewProposal(seq uint64, id string, choiceCount uint8, start, end time.Time) *Proposal {
	counters := make([]*uint256.Int, choiceCount)
	for i := range counters {
		counters[i] = new(uint256.Int)
	}
	return &Proposal{
		Seq:         seq,
		ID:          id,
		ChoiceCount: choiceCount,
		StartTime:   start,
		EndTime:     end,
		Counters:    counters,
	}
}

// Clone returns a deep copy, so counters can be changed without touching
// the original.
func (p *Proposal) Clone() *Proposal {
	cp := *p
	cp.Counters = make([]*uint256.Int, len(p.Counters))
	for i, c := range p.Counters {
		cp.Counters[i] = new(uint256.Int).Set(c)
	}
	return &cp
}

// Open reports whether votes may be cast at t. The window is [StartTime, EndTime).
func (p *Proposal) Open(t time.Time) bool {
	return !t.Before(p.StartTime) && t.Before(p.EndTime)
}

// TotalPower is the sum of all counters.
func (p *Proposal) TotalPower() *uint256.Int {
	total := new(uint256.Int)
	for _, c := range p.Counters {
		total.Add(total, c)
	}
	return total
}

type proposalRecord struct {
	Seq         uint64
	ID          string
	ChoiceCount uint8
	StartTime   []byte
	EndTime     []byte
	Counters    []*big.Int
}

func (p *Proposal) EncodeRLP(w io.Writer) error {
	counters := make([]*big.Int, len(p.Counters))
	for i, c := range p.Counters {
		counters[i] = c.ToBig()
	}
	start, err := encodeTime(p.StartTime)
	if err != nil {
		return errors.Wrapf(err, "start time of proposal %s", p.ID)
	}
	end, err := encodeTime(p.EndTime)
	if err != nil {
		return errors.Wrapf(err, "end time of proposal %s", p.ID)
	}
	return rlp.Encode(w, &proposalRecord{
		Seq:         p.Seq,
		ID:          p.ID,
		ChoiceCount: p.ChoiceCount,
		StartTime:   start,
		EndTime:     end,
		Counters:    counters,
	})
}

func (p *Proposal) DecodeRLP(s *rlp.Stream) error {
	var r proposalRecord
	if err := s.Decode(&r); err != nil {
		return err
	}
	counters := make([]*uint256.Int, len(r.Counters))
	for i, c := range r.Counters {
		v, overflow := uint256.FromBig(c)
		if overflow {
			return errors.Errorf("counter %d of proposal %s overflows 256 bits", i, r.ID)
		}
		counters[i] = v
	}
	start, err := decodeTime(r.StartTime)
	if err != nil {
		return errors.Wrapf(err, "start time of proposal %s", r.ID)
	}
	end, err := decodeTime(r.EndTime)
	if err != nil {
		return errors.Wrapf(err, "end time of proposal %s", r.ID)
	}
	*p = Proposal{
		Seq:         r.Seq,
		ID:          r.ID,
		ChoiceCount: r.ChoiceCount,
		StartTime:   start,
		EndTime:     end,
		Counters:    counters,
	}
	return nil
}

type Voter struct {
	ProposalID      string
	ExternalAddress string
	NativeAddress   string
	Power           *uint256.Int
	HasVoted        bool
}

type voterRecord struct {
	ProposalID      string
	ExternalAddress string
	NativeAddress   string
	Power           *big.Int
	HasVoted        bool
}

func (v *Voter) EncodeRLP(w io.Writer) error {
	power := new(big.Int)
	if v.Power != nil {
		power = v.Power.ToBig()
	}
	return rlp.Encode(w, &voterRecord{
		ProposalID:      v.ProposalID,
		ExternalAddress: v.ExternalAddress,
		NativeAddress:   v.NativeAddress,
		Power:           power,
		HasVoted:        v.HasVoted,
	})
}

func (v *Voter) DecodeRLP(s *rlp.Stream) error {
	var r voterRecord
	if err := s.Decode(&r); err != nil {
		return err
	}
	power, overflow := uint256.FromBig(r.Power)
	if overflow {
		return errors.Errorf("power of voter %s overflows 256 bits", r.ExternalAddress)
	}
	*v = Voter{
		ProposalID:      r.ProposalID,
		ExternalAddress: r.ExternalAddress,
		NativeAddress:   r.NativeAddress,
		Power:           power,
		HasVoted:        r.HasVoted,
	}
	return nil
}

// Timestamps are stored in UTC in time's binary form, which covers every
// year a time.Time can hold; an empty value means unset.
func encodeTime(t time.Time) ([]byte, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.UTC().MarshalBinary()
}

func decodeTime(data []byte) (time.Time, error) {
	var t time.Time
	if len(data) == 0 {
		return t, nil
	}
	if err := t.UnmarshalBinary(data); err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ParsePower parses a decimal voting power.
func ParsePower(s string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidPower, "%q is not a decimal integer", s)
	}
	if b.Sign() < 0 {
		return nil, errors.Wrapf(ErrInvalidPower, "%s is negative", s)
	}
	power, overflow := uint256.FromBig(b)
	if overflow {
		return nil, errors.Wrapf(ErrInvalidPower, "%s overflows 256 bits", s)
	}
	return power, nil
}

func formatPower(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.ToBig().String()
}
