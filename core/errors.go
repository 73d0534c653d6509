package core

import "github.com/pkg/errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyInitialized = errors.New("owner already initialized")
	ErrEmptyLedger        = errors.New("no proposals")
	ErrUnknownProposal    = errors.New("unknown proposal")
	ErrDuplicateProposal  = errors.New("proposal id already submitted")
	ErrUnknownVoter       = errors.New("unknown voter")
	ErrAlreadyVoted       = errors.New("voter has already voted")
	ErrInvalidChoice      = errors.New("invalid choice")
	ErrVotingClosed       = errors.New("proposal is not open for voting")
	ErrCounterOverflow    = errors.New("vote counter overflow")
	ErrInvalidPower       = errors.New("invalid voting power")
	ErrInvalidMessage     = errors.New("invalid message")
)

var errorKinds = []struct {
	err  error
	name string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrAlreadyInitialized, "already_initialized"},
	{ErrEmptyLedger, "empty_ledger"},
	{ErrUnknownProposal, "unknown_proposal"},
	{ErrDuplicateProposal, "duplicate_proposal"},
	{ErrUnknownVoter, "unknown_voter"},
	{ErrAlreadyVoted, "already_voted"},
	{ErrInvalidChoice, "invalid_choice"},
	{ErrVotingClosed, "voting_closed"},
	{ErrCounterOverflow, "counter_overflow"},
	{ErrInvalidPower, "invalid_power"},
	{ErrInvalidMessage, "invalid_message"},
}

// Kind names the class of err: "ok" for nil, "internal" for storage and
// other unexpected failures.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
