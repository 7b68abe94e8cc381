package table

import (
	"sort"

	"pokertable-server/pkg/deck"
	"pokertable-server/pkg/handanalyzer"
)

// pot is a layer of the pot. Chips above an all-in player's contribution form a new layer
// that only the players who covered it can win.
type pot struct {
	amount       int64
	eligible     []*Player
	contributors int
}

func (p *pot) contested() bool {
	return p.contributors >= 2
}

// buildPots layers the hand's contributions into a main pot and side pots
func buildPots(participants []*Player) []*pot {
	levels := make([]int64, 0, len(participants))
	seen := make(map[int64]bool)
	for _, p := range participants {
		if p.contributed > 0 && !seen[p.contributed] {
			seen[p.contributed] = true
			levels = append(levels, p.contributed)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]*pot, 0, len(levels))
	var prev int64
	var carry *pot
	for _, level := range levels {
		layer := &pot{}
		if carry != nil {
			layer.amount = carry.amount
			layer.contributors = carry.contributors
			carry = nil
		}

		for _, p := range participants {
			in := min64(p.contributed, level) - min64(p.contributed, prev)
			if in > 0 {
				layer.amount += in
				layer.contributors++
			}

			if p.isActive() && p.contributed >= level {
				layer.eligible = append(layer.eligible, p)
			}
		}
		prev = level

		if len(layer.eligible) == 0 {
			// only folded players reached this level; the chips are dead money
			if len(pots) == 0 {
				carry = layer
				continue
			}

			last := pots[len(pots)-1]
			last.amount += layer.amount
			last.contributors += layer.contributors
			continue
		}

		if len(pots) > 0 {
			last := pots[len(pots)-1]
			if last.contested() == layer.contested() && samePlayers(last.eligible, layer.eligible) {
				last.amount += layer.amount
				continue
			}
		}

		pots = append(pots, layer)
	}

	return pots
}

// resolveShowdown pays out the pot and ends the hand. ApplyAction calls it once the last
// bet is settled or only one player is left, so callers never resolve a hand themselves.
func (t *Table) resolveShowdown(showdown bool) *HandResult {
	t.street = Showdown
	t.toAct = -1

	result := &HandResult{
		HandID:     t.hand.id,
		HandNumber: t.handNumber,
		TableID:    t.id,
		Pot:        t.pot,
		SawFlop:    t.hand.sawFlop,
		Showdown:   showdown,
		Board:      t.board.Clone(),
		Pots:       make([]PotResult, 0),
		Winners:    make([]Winner, 0),
	}

	pots := buildPots(t.hand.participants)

	var contested int64
	for _, p := range pots {
		if p.contested() {
			contested += p.amount
		}
	}

	result.Rake = t.options.Rake.Calculate(contested, t.hand.sawFlop)
	takeRake(pots, result.Rake.Rake)

	strengths := make(map[*Player]*handanalyzer.HandAnalyzer)
	if showdown {
		for _, p := range t.hand.participants {
			if p.isActive() {
				cards := append(p.cards.Clone(), t.board...)
				strengths[p] = handanalyzer.New(cards)
			}
		}
	}

	won := make(map[*Player]int64)
	refunds := make(map[*Player]int64)
	winnerTotals := make(map[*Player]int64)
	for _, p := range pots {
		winners := t.potWinners(p, strengths)
		payouts := t.split(p.amount, winners)

		potResult := PotResult{
			Amount:    p.amount,
			Eligible:  seatsOf(p.eligible),
			Winners:   seatsOf(winners),
			Contested: p.contested(),
		}
		result.Pots = append(result.Pots, potResult)

		for player, amount := range payouts {
			won[player] += amount
			if p.contested() {
				winnerTotals[player] += amount
			} else {
				refunds[player] += amount
			}
		}
	}

	var paid int64
	for _, p := range t.hand.participants {
		p.stack += won[p]
		paid += won[p]

		result.Participants = append(result.Participants, Participant{
			PlayerID:    p.ID,
			Seat:        p.seat,
			Contributed: p.contributed,
			Won:         won[p],
			Refund:      refunds[p],
			Stack:       p.stack,
		})
	}

	for _, p := range t.hand.participants {
		amount, ok := winnerTotals[p]
		if !ok {
			continue
		}

		w := Winner{
			PlayerID: p.ID,
			Seat:     p.seat,
			Amount:   amount,
		}
		if analyzer, ok := strengths[p]; ok {
			w.Hand = analyzer.GetHand().String()
			w.Cards = p.cards.Clone()
		}
		result.Winners = append(result.Winners, w)
	}

	paid += result.Rake.Rake
	t.hand.paidOut += paid
	t.pot -= paid
	t.seq++

	t.finishHand(result)
	return result
}

// potWinners returns the best hands among the pot's eligible players
func (t *Table) potWinners(p *pot, strengths map[*Player]*handanalyzer.HandAnalyzer) []*Player {
	if len(p.eligible) == 1 || len(strengths) == 0 {
		return p.eligible
	}

	best := -1
	winners := make([]*Player, 0, 1)
	for _, player := range p.eligible {
		strength := strengths[player].GetStrength()
		switch {
		case strength > best:
			best = strength
			winners = []*Player{player}
		case strength == best:
			winners = append(winners, player)
		}
	}

	return winners
}

// split divides amount evenly. Odd chips go one at a time starting left of the button.
func (t *Table) split(amount int64, winners []*Player) map[*Player]int64 {
	payouts := make(map[*Player]int64)
	if len(winners) == 0 || amount == 0 {
		return payouts
	}

	ordered := make([]*Player, len(winners))
	copy(ordered, winners)
	n := len(t.seats)
	distance := func(p *Player) int {
		return ((p.seat-t.button-1)%n + n) % n
	}
	sort.Slice(ordered, func(i, j int) bool {
		return distance(ordered[i]) < distance(ordered[j])
	})

	share := amount / int64(len(ordered))
	remainder := amount % int64(len(ordered))
	for i, p := range ordered {
		payouts[p] = share
		if int64(i) < remainder {
			payouts[p]++
		}
	}

	return payouts
}

// takeRake removes the rake from the contested pots, starting with the last side pot
func takeRake(pots []*pot, amount int64) {
	for i := len(pots) - 1; i >= 0 && amount > 0; i-- {
		if !pots[i].contested() {
			continue
		}

		take := min64(amount, pots[i].amount)
		pots[i].amount -= take
		amount -= take
	}
}

// finishHand returns the table to waiting and vacates anyone who left or busted
func (t *Table) finishHand(result *HandResult) {
	for _, p := range t.hand.participants {
		p.inHand = false
		p.folded = false
		p.allIn = false
		p.acted = false
		p.committed = 0
	}

	for i, p := range t.seats {
		if p == nil {
			continue
		}

		if p.leaving || p.stack == 0 {
			result.Vacated = append(result.Vacated, Vacated{
				PlayerID: p.ID,
				Seat:     p.seat,
				Stack:    p.stack,
			})
			t.seats[i] = nil
		}
	}

	t.street = Waiting
	t.currentBet = 0
	t.minRaise = 0
	t.lastResult = result
}

func seatsOf(players []*Player) []int {
	seats := make([]int, len(players))
	for i, p := range players {
		seats[i] = p.seat
	}

	return seats
}

func samePlayers(a, b []*Player) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}

	return b
}

// RevealedCards returns the hole cards shown at showdown
func (r *HandResult) RevealedCards() map[string]deck.Hand {
	out := make(map[string]deck.Hand)
	for _, w := range r.Winners {
		if len(w.Cards) > 0 {
			out[w.PlayerID] = w.Cards
		}
	}

	return out
}
