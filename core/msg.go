package core

import "time"

// ExecuteMsg carries exactly one mutating operation.
type ExecuteMsg struct {
	SubmitProposal *SubmitProposalMsg `json:"submit_proposal,omitempty"`
	RegisterVoter  *RegisterVoterMsg  `json:"register_voter,omitempty"`
	CastVote       *CastVoteMsg       `json:"cast_vote,omitempty"`
}

type SubmitProposalMsg struct {
	ID          string    `json:"id"`
	ChoiceCount uint8     `json:"choice_count"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

type RegisterVoterMsg struct {
	ProposalID      string `json:"proposal_id"`
	ExternalAddress string `json:"external_address"`
	NativeAddress   string `json:"native_address"`
	// Power is a decimal unsigned 256-bit integer
	Power string `json:"power"`
}

type CastVoteMsg struct {
	ProposalID      string `json:"proposal_id"`
	ExternalAddress string `json:"external_address"`
	NativeAddress   string `json:"native_address"`
	Choice          uint8  `json:"choice"`
}

type Empty struct{}

// QueryMsg carries exactly one read-only operation.
type QueryMsg struct {
	CurrentProposal *Empty             `json:"current_proposal,omitempty"`
	ProposalByID    *ProposalByIDQuery `json:"proposal_by_id,omitempty"`
	ProposalCount   *Empty             `json:"proposal_count,omitempty"`
	VoterCount      *VoterCountQuery   `json:"voter_count,omitempty"`
	WhoWon          *WhoWonQuery       `json:"who_won,omitempty"`
	Owner           *Empty             `json:"owner,omitempty"`
	Voter           *VoterQuery        `json:"voter,omitempty"`
}

type ProposalByIDQuery struct {
	ProposalID string `json:"proposal_id"`
}

// VoterCountQuery counts the current proposal's voters when ProposalID is empty.
type VoterCountQuery struct {
	ProposalID string `json:"proposal_id,omitempty"`
}

// WhoWonQuery tallies the current proposal when ProposalID is empty.
type WhoWonQuery struct {
	ProposalID string `json:"proposal_id,omitempty"`
}

type VoterQuery struct {
	ProposalID      string `json:"proposal_id,omitempty"`
	ExternalAddress string `json:"external_address"`
}

type ProposalResponse struct {
	ID          string `json:"id"`
	ChoiceCount uint8  `json:"choice_count"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}

type WinnerResponse struct {
	Choice      uint8  `json:"choice"`
	ChoiceCount string `json:"choice_count"`
}

type OwnerResponse struct {
	Owner string `json:"owner"`
}

type VoterResponse struct {
	ProposalID      string `json:"proposal_id"`
	ExternalAddress string `json:"external_address"`
	NativeAddress   string `json:"native_address"`
	Power           string `json:"power"`
	HasVoted        bool   `json:"has_voted"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response lists what a mutating call did.
type Response struct {
	Attributes []Attribute `json:"attributes"`
}

func (r *Response) add(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the value of the first attribute named key.
func (r *Response) Attribute(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}
