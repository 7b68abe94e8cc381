package handanalyzer

import (
	"math"
	"sort"

	"pokertable-server/pkg/deck"
)

// handSize is the number of cards that make up a poker hand
const handSize = 5

// HandAnalyzer finds the best five card hand out of any number of cards
type HandAnalyzer struct {
	cards deck.Hand

	// ranks that appear exactly n times, highest first
	quads []int
	trips []int
	pairs []int

	flush         []int
	straight      int
	straightFlush int

	hand     Hand
	ranks    []int
	strength int
}

// New will return a new HandAnalyzer instance
func New(cards []*deck.Card) *HandAnalyzer {
	// clone to prevent modifying original
	sorted := make(deck.Hand, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank > sorted[j].Rank
	})

	h := &HandAnalyzer{cards: sorted}
	h.analyzeHand()
	h.calculateHand()
	return h
}

// analyzeHand tallies the sets, flushes and straights in the cards
func (h *HandAnalyzer) analyzeHand() {
	rankCount := make(map[int]int)
	suitRanks := make(map[deck.Suit][]int)
	for _, card := range h.cards {
		rankCount[card.Rank]++
		suitRanks[card.Suit] = append(suitRanks[card.Suit], card.Rank)
	}

	for rank := deck.Ace; rank >= 2; rank-- {
		switch rankCount[rank] {
		case 4:
			h.quads = append(h.quads, rank)
		case 3:
			h.trips = append(h.trips, rank)
		case 2:
			h.pairs = append(h.pairs, rank)
		}
	}

	h.straight = findStraight(rankCount)

	for _, suit := range deck.Suits {
		ranks := suitRanks[suit]
		if len(ranks) < handSize {
			continue
		}

		// ranks are already ordered high to low
		if h.flush == nil || compareRanks(ranks[:handSize], h.flush) > 0 {
			h.flush = ranks[:handSize]
		}

		inSuit := make(map[int]int)
		for _, rank := range ranks {
			inSuit[rank]++
		}

		if sf := findStraight(inSuit); sf > h.straightFlush {
			h.straightFlush = sf
		}
	}
}

// findStraight returns the high card of the best straight, or zero.
// The ace also plays low, so a wheel returns 5.
func findStraight(rankCount map[int]int) int {
	has := func(rank int) bool {
		if rank == deck.LowAce {
			rank = deck.Ace
		}
		return rankCount[rank] > 0
	}

	for high := deck.Ace; high >= 5; high-- {
		found := true
		for rank := high; rank > high-handSize; rank-- {
			if !has(rank) {
				found = false
				break
			}
		}

		if found {
			return high
		}
	}

	return 0
}

// kickers returns up to n of the highest ranks not in exclude
func (h *HandAnalyzer) kickers(n int, exclude ...int) []int {
	out := make([]int, 0, n)
	for _, card := range h.cards {
		if len(out) == n {
			break
		}

		skip := false
		for _, e := range exclude {
			if card.Rank == e {
				skip = true
				break
			}
		}

		if !skip {
			out = append(out, card.Rank)
		}
	}

	return out
}

func (h *HandAnalyzer) calculateHand() {
	switch {
	case h.straightFlush > 0:
		h.hand = StraightFlush
		h.ranks = []int{h.straightFlush}
	case len(h.quads) > 0:
		h.hand = FourOfAKind
		h.ranks = append([]int{h.quads[0]}, h.kickers(1, h.quads[0])...)
	case len(h.trips) > 0 && (len(h.trips) > 1 || len(h.pairs) > 0):
		pair := 0
		if len(h.pairs) > 0 {
			pair = h.pairs[0]
		}
		if len(h.trips) > 1 && h.trips[1] > pair {
			pair = h.trips[1]
		}

		h.hand = FullHouse
		h.ranks = []int{h.trips[0], pair}
	case h.flush != nil:
		h.hand = Flush
		h.ranks = h.flush
	case h.straight > 0:
		h.hand = Straight
		h.ranks = []int{h.straight}
	case len(h.trips) > 0:
		h.hand = ThreeOfAKind
		h.ranks = append([]int{h.trips[0]}, h.kickers(2, h.trips[0])...)
	case len(h.pairs) > 1:
		h.hand = TwoPair
		h.ranks = append([]int{h.pairs[0], h.pairs[1]}, h.kickers(1, h.pairs[0], h.pairs[1])...)
	case len(h.pairs) > 0:
		h.hand = OnePair
		h.ranks = append([]int{h.pairs[0]}, h.kickers(3, h.pairs[0])...)
	default:
		h.hand = HighCard
		h.ranks = h.kickers(handSize)
	}

	h.strength = calculateStrength(h.hand, h.ranks)
}

// GetHand will return the best possible hand the cards can make
func (h *HandAnalyzer) GetHand() Hand {
	return h.hand
}

// GetStrength returns the strength of the hand. A higher strength always beats a lower one,
// and equal strengths split.
func (h *HandAnalyzer) GetStrength() int {
	return h.strength
}

// GetStraight will return the best straight, if possible
func (h *HandAnalyzer) GetStraight() (int, bool) {
	return h.straight, h.straight > 0
}

// GetFlush will return the best possible flush, if possible
func (h *HandAnalyzer) GetFlush() ([]int, bool) {
	return h.flush, h.flush != nil
}

// calculateStrength packs the hand category and up to five deciding ranks into base 15
func calculateStrength(hand Hand, ranks []int) int {
	fiveCards := make([]int, handSize)
	copy(fiveCards, ranks)

	strength := math.Pow(15, handSize) * float64(hand)
	for i := 0; i < handSize; i++ {
		strength += math.Pow(15, float64(handSize-1-i)) * float64(fiveCards[i])
	}

	return int(strength)
}

func compareRanks(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] - b[i]
		}
	}

	return 0
}
