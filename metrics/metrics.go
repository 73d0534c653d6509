package metrics

import (
	"math/big"

	"github.com/axiomesh/ballot/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ core.Observer = (*Observer)(nil)

// Observer counts contract calls by action and outcome.
type Observer struct {
	calls     *prometheus.CounterVec
	votePower prometheus.Counter
	proposals prometheus.Counter
}

func New(registry prometheus.Registerer) *Observer {
	factory := promauto.With(registry)
	return &Observer{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ballot_calls_total",
			Help: "Total number of mutating calls by action and result",
		}, []string{"action", "result"}),
		votePower: factory.NewCounter(prometheus.CounterOpts{
			Name: "ballot_vote_power_total",
			Help: "Voting power added to proposal counters, approximated as a float",
		}),
		proposals: factory.NewCounter(prometheus.CounterOpts{
			Name: "ballot_proposals_submitted_total",
			Help: "Total number of submitted proposals",
		}),
	}
}

func (o *Observer) Observe(e core.Event) {
	o.calls.WithLabelValues(e.Action, core.Kind(e.Err)).Inc()
	if e.Err != nil {
		return
	}
	switch e.Action {
	case core.ActionSubmitProposal:
		o.proposals.Inc()
	case core.ActionCastVote:
		if e.Power != nil {
			f, _ := new(big.Float).SetInt(e.Power.ToBig()).Float64()
			o.votePower.Add(f)
		}
	}
}

// WriteTextfile dumps the gathered metrics in the text exposition format,
// for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
