package core

import (
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

const (
	ActionInit           = "init"
	ActionSubmitProposal = "submit_proposal"
	ActionRegisterVoter  = "register_voter"
	ActionCastVote       = "cast_vote"
)

// Event describes the outcome of a mutating call. Err is nil on success.
type Event struct {
	Action     string
	Sender     string
	ProposalID string
	Voter      string
	Choice     uint8
	Power      *uint256.Int
	Err        error
}

// Observer receives an Event for every call run through Contract.Call or
// Contract.Instantiate, after its writes were committed or dropped.
// Observers must not affect the outcome of the call.
type Observer interface {
	Observe(e Event)
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// LogObserver writes events to a logrus logger.
type LogObserver struct {
	Logger logrus.FieldLogger
}

func (o *LogObserver) Observe(e Event) {
	fields := logrus.Fields{
		"action": e.Action,
		"sender": e.Sender,
	}
	if e.ProposalID != "" {
		fields["proposal_id"] = e.ProposalID
	}
	if e.Voter != "" {
		fields["voter"] = e.Voter
	}
	if e.Action == ActionCastVote {
		fields["choice"] = e.Choice
	}
	if e.Power != nil {
		fields["power"] = formatPower(e.Power)
	}

	entry := o.Logger.WithFields(fields)
	if e.Err != nil {
		entry.WithError(e.Err).Warn("call rejected")
		return
	}
	entry.Info("call applied")
}
