package core

import "github.com/holiman/uint256"

type Winner struct {
	Choice uint8
	Count  *uint256.Int
}

// Tally returns the choice with the greatest accumulated power. Counters
// are scanned from the lowest index and only a strictly greater count
// replaces the leader, so the lowest index wins a tie. A proposal without
// votes yields choice 0 with count 0.
func Tally(p *Proposal) Winner {
	winner := Winner{Count: new(uint256.Int)}
	for i, c := range p.Counters {
		if c.Gt(winner.Count) {
			winner.Choice = uint8(i)
			winner.Count = new(uint256.Int).Set(c)
		}
	}
	return winner
}
