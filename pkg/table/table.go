// Package table is the authoritative state of a single No-Limit Hold'em table.
// A Table is not safe for concurrent use; its owner must serialize every call.
package table

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"pokertable-server/internal/rng"
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/deck"
)

// holeCards is the number of private cards each player is dealt
const holeCards = 2

// Table is a poker table
type Table struct {
	id      string
	options Options

	seats  []*Player
	button int
	street Street
	board  deck.Hand
	deck   *deck.Deck

	pot        int64
	currentBet int64
	minRaise   int64
	toAct      int
	seq        uint64

	hand       *hand
	handNumber int
	lastResult *HandResult

	newDeck func() *deck.Deck
}

// hand is the bookkeeping for the hand in progress
type hand struct {
	id           string
	participants []*Player
	sawFlop      bool
	paidOut      int64
}

// New returns an empty table
func New(id string, options Options) (*Table, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	return &Table{
		id:      id,
		options: options,
		seats:   make([]*Player, options.Capacity),
		button:  -1,
		toAct:   -1,
		newDeck: func() *deck.Deck {
			d := deck.New()
			d.Shuffle(rng.Crypto{})
			return d
		},
	}, nil
}

// ID returns the table identifier
func (t *Table) ID() string {
	return t.id
}

// Options returns the table options
func (t *Table) Options() Options {
	return t.options
}

// Street returns the current street
func (t *Table) Street() Street {
	return t.street
}

// InHand returns true if a hand is in progress
func (t *Table) InHand() bool {
	return t.street != Waiting
}

// Seq returns the action sequence number
func (t *Table) Seq() uint64 {
	return t.seq
}

// Pot returns the chips in the pot
func (t *Table) Pot() int64 {
	return t.pot
}

// HandID returns the ID of the current (or last) hand
func (t *Table) HandID() string {
	if t.hand == nil {
		return ""
	}

	return t.hand.id
}

// ToAct returns the seat to act
func (t *Table) ToAct() (int, bool) {
	return t.toAct, t.toAct >= 0
}

// LastResult returns the result of the last completed hand
func (t *Table) LastResult() *HandResult {
	return t.lastResult
}

// SeatOf returns the seat of the player
func (t *Table) SeatOf(playerID string) (int, bool) {
	if p := t.playerByID(playerID); p != nil {
		return p.seat, true
	}

	return -1, false
}

// PlayerAt returns the player in the seat
func (t *Table) PlayerAt(seat int) (PlayerState, bool) {
	if seat < 0 || seat >= len(t.seats) || t.seats[seat] == nil {
		return PlayerState{}, false
	}

	return t.seats[seat].state(), true
}

// Players returns the seated players in seat order
func (t *Table) Players() []PlayerState {
	players := make([]PlayerState, 0, len(t.seats))
	for _, p := range t.seats {
		if p != nil {
			players = append(players, p.state())
		}
	}

	return players
}

// HoleCards returns a player's private cards for the hand in progress
func (t *Table) HoleCards(playerID string) (deck.Hand, bool) {
	p := t.playerByID(playerID)
	if p == nil || !p.inHand || len(p.cards) == 0 {
		return nil, false
	}

	return p.cards.Clone(), true
}

func (t *Table) playerByID(playerID string) *Player {
	for _, p := range t.seats {
		if p != nil && p.ID == playerID {
			return p
		}
	}

	return nil
}

// ValidateSeat checks whether Seat would succeed without changing anything
func (t *Table) ValidateSeat(playerID string, seat int, buyIn int64) error {
	if t.InHand() {
		return apperror.New(apperror.InvalidState, "cannot sit down while a hand is in progress")
	}

	if seat < 0 || seat >= len(t.seats) {
		return apperror.New(apperror.InvalidState, "seat %d does not exist", seat)
	}

	if _, ok := t.SeatOf(playerID); ok {
		return apperror.New(apperror.SeatTaken, "you are already seated")
	}

	if t.seats[seat] != nil {
		return apperror.New(apperror.SeatTaken, "seat %d is taken", seat)
	}

	if buyIn < t.options.MinBuyIn {
		return apperror.New(apperror.InsufficientFunds, "the minimum buy-in is %d", t.options.MinBuyIn)
	}

	if t.options.MaxBuyIn > 0 && buyIn > t.options.MaxBuyIn {
		return apperror.New(apperror.InvalidAmount, "the maximum buy-in is %d", t.options.MaxBuyIn)
	}

	return nil
}

// Seat sits a player down with buyIn chips
func (t *Table) Seat(info PlayerInfo, seat int, buyIn int64) error {
	if err := t.ValidateSeat(info.ID, seat, buyIn); err != nil {
		return err
	}

	t.seats[seat] = &Player{
		PlayerInfo: info,
		seat:       seat,
		stack:      buyIn,
	}
	t.seq++

	return nil
}

// Unseat removes a player and returns the stack to settle.
// A player still contesting a hand cannot leave; use MarkLeaving instead.
func (t *Table) Unseat(playerID string) (int64, error) {
	p := t.playerByID(playerID)
	if p == nil {
		return 0, apperror.New(apperror.InvalidState, "you are not seated")
	}

	if t.InHand() && p.isActive() {
		return 0, apperror.New(apperror.InvalidState, "cannot stand up during a hand")
	}

	t.seats[p.seat] = nil
	t.seq++

	return p.stack, nil
}

// MarkLeaving flags a player to be folded on their turn and vacated when the hand ends
func (t *Table) MarkLeaving(playerID string) error {
	p := t.playerByID(playerID)
	if p == nil {
		return apperror.New(apperror.InvalidState, "you are not seated")
	}

	p.leaving = true
	return nil
}

// MarkDisconnected records when a player lost their connection. It returns false if the player
// is not seated or was already disconnected.
func (t *Table) MarkDisconnected(playerID string, at time.Time) bool {
	p := t.playerByID(playerID)
	if p == nil || !p.disconnectedAt.IsZero() {
		return false
	}

	p.disconnectedAt = at
	return true
}

// MarkConnected clears a player's disconnected state
func (t *Table) MarkConnected(playerID string) bool {
	p := t.playerByID(playerID)
	if p == nil || p.disconnectedAt.IsZero() {
		return false
	}

	p.disconnectedAt = time.Time{}
	return true
}

// eligibleForHand returns true if the player will be dealt into the next hand
func eligibleForHand(p *Player) bool {
	return p != nil && p.stack > 0 && !p.leaving
}

// StartHand moves the button, posts the blinds and deals the hole cards.
// A HandResult is returned only if the blinds put everyone all-in and the hand played itself out.
func (t *Table) StartHand() (*HandResult, error) {
	if t.InHand() {
		return nil, apperror.New(apperror.InvalidState, "a hand is already in progress")
	}

	eligible := 0
	for _, p := range t.seats {
		if eligibleForHand(p) {
			eligible++
		}
	}

	if eligible < 2 {
		return nil, apperror.New(apperror.InvalidState, "at least two players with chips are needed to start a hand")
	}

	t.button = t.nextSeat(t.button, eligibleForHand)
	t.handNumber++
	t.hand = &hand{
		id:           uuid.New().String(),
		participants: make([]*Player, 0, eligible),
	}

	for _, p := range t.seats {
		if p == nil {
			continue
		}

		if eligibleForHand(p) {
			p.resetForHand()
			t.hand.participants = append(t.hand.participants, p)
		} else {
			p.inHand = false
			p.cards = nil
		}
	}

	t.board = make(deck.Hand, 0, 5)
	t.deck = t.newDeck()
	t.pot = 0
	t.street = Preflop

	inHand := func(p *Player) bool { return p != nil && p.inHand }
	smallBlind := t.button
	if eligible > 2 {
		smallBlind = t.nextSeat(t.button, inHand)
	}
	bigBlind := t.nextSeat(smallBlind, inHand)

	t.pot += t.seats[smallBlind].commit(t.options.SmallBlind)
	t.pot += t.seats[bigBlind].commit(t.options.BigBlind)
	t.currentBet = t.options.BigBlind
	t.minRaise = t.options.BigBlind

	for i := 0; i < holeCards; i++ {
		seat := t.button
		for range t.hand.participants {
			seat = t.nextSeat(seat, inHand)
			card, err := t.deck.Draw()
			if err != nil {
				return nil, fmt.Errorf("could not deal hole cards: %w", err)
			}

			t.seats[seat].cards.AddCard(card)
		}
	}

	t.seq++
	t.toAct = -1
	if t.roundComplete() {
		// everyone was put all-in by the blinds
		result, err := t.advanceStreet(&ActionResult{})
		if err != nil {
			return nil, err
		}

		return result.HandResult, nil
	}

	t.toAct = t.nextToAct(bigBlind)
	return nil, nil
}

// ApplyAction applies a betting decision from the seat to act
func (t *Table) ApplyAction(seat int, action Action) (*ActionResult, error) {
	if !t.street.IsBetting() {
		return nil, apperror.New(apperror.InvalidState, "no betting round is in progress")
	}

	if t.toAct < 0 || seat != t.toAct {
		return nil, apperror.New(apperror.NotYourTurn, "it is not your turn")
	}

	p := t.seats[seat]
	result := &ActionResult{
		Seat:     seat,
		PlayerID: p.ID,
		Action:   action.Type,
		Street:   t.street,
	}

	switch action.Type {
	case Fold:
		p.folded = true
	case Check:
		if p.committed < t.currentBet {
			return nil, apperror.New(apperror.IllegalAction, "cannot check, the bet is %d", t.currentBet)
		}
	case Call:
		toCall := t.currentBet - p.committed
		if toCall <= 0 {
			return nil, apperror.New(apperror.IllegalAction, "there is nothing to call")
		}

		result.Amount = p.commit(toCall)
		t.pot += result.Amount
	case Raise:
		if err := t.raise(p, action.Amount, result); err != nil {
			return nil, err
		}
	default:
		return nil, apperror.New(apperror.IllegalAction, "unknown action: %s", action.Type)
	}

	p.acted = true
	result.AllIn = p.allIn
	t.seq++
	result.Seq = t.seq

	return t.afterAction(seat, result)
}

func (t *Table) raise(p *Player, to int64, result *ActionResult) error {
	if to <= 0 {
		return apperror.New(apperror.InvalidAmount, "raise amount must be a positive number")
	}

	if p.acted {
		// only a short all-in has happened since this player last acted
		return apperror.New(apperror.IllegalAction, "the betting was not reopened, you may only call or fold")
	}

	maxTo := p.committed + p.stack
	if to > maxTo {
		// raising beyond the stack is an all-in
		to = maxTo
	}

	if to <= t.currentBet {
		return apperror.New(apperror.InvalidAmount, "raise must be more than the current bet of %d", t.currentBet)
	}

	raiseBy := to - t.currentBet
	if raiseBy < t.minRaise && to < maxTo {
		return apperror.New(apperror.IllegalAction, "the minimum raise is to %d", t.currentBet+t.minRaise)
	}

	t.pot += p.commit(to - p.committed)
	if raiseBy >= t.minRaise {
		t.minRaise = raiseBy

		// a full raise reopens the betting
		for _, other := range t.hand.participants {
			if other != p {
				other.acted = false
			}
		}
	}

	t.currentBet = to
	result.Amount = to
	return nil
}

func (t *Table) afterAction(seat int, result *ActionResult) (*ActionResult, error) {
	if t.countActive() == 1 {
		result.HandResult = t.resolveShowdown(false)
		return result, nil
	}

	if t.roundComplete() {
		return t.advanceStreet(result)
	}

	t.toAct = t.nextToAct(seat)
	return result, nil
}

// advanceStreet deals the next street. If fewer than two players can still bet, the board
// is run out to the river and the hand goes to showdown.
func (t *Table) advanceStreet(result *ActionResult) (*ActionResult, error) {
	t.toAct = -1
	for {
		for _, p := range t.hand.participants {
			p.resetForStreet()
		}
		t.currentBet = 0
		t.minRaise = t.options.BigBlind

		if t.street == River {
			result.HandResult = t.resolveShowdown(true)
			return result, nil
		}

		t.street++
		n := t.street.cardsFor()
		for i := 0; i < n; i++ {
			card, err := t.deck.Draw()
			if err != nil {
				return nil, fmt.Errorf("could not deal the %s: %w", t.street, err)
			}

			t.board.AddCard(card)
			result.Dealt = append(result.Dealt, card)
		}

		if t.street == Flop && t.countActive() >= 2 {
			t.hand.sawFlop = true
		}

		result.StreetChanged = true
		result.NewStreet = t.street

		if t.countCanAct() >= 2 {
			t.toAct = t.nextToAct(t.button)
			return result, nil
		}
	}
}

// TimeoutAction returns what a seat does when its time runs out: check if it can, otherwise fold
func (t *Table) TimeoutAction(seat int) Action {
	if seat >= 0 && seat < len(t.seats) && t.seats[seat] != nil && t.seats[seat].committed >= t.currentBet {
		return Action{Type: Check}
	}

	return Action{Type: Fold}
}

// roundComplete returns true when every player who can still act has matched the bet
func (t *Table) roundComplete() bool {
	canAct := make([]*Player, 0, len(t.hand.participants))
	for _, p := range t.hand.participants {
		if p.canAct() {
			canAct = append(canAct, p)
		}
	}

	if len(canAct) == 0 {
		return true
	}

	if len(canAct) == 1 && canAct[0].committed >= t.currentBet {
		// nobody is left to respond to a bet
		return true
	}

	for _, p := range canAct {
		if !p.acted || p.committed < t.currentBet {
			return false
		}
	}

	return true
}

func (t *Table) needsAction(p *Player) bool {
	return p != nil && p.canAct() && (!p.acted || p.committed < t.currentBet)
}

// nextToAct returns the first seat after from that needs to act
func (t *Table) nextToAct(from int) int {
	return t.nextSeat(from, t.needsAction)
}

// nextSeat returns the first seat clockwise after from that matches, or -1
func (t *Table) nextSeat(from int, match func(p *Player) bool) int {
	n := len(t.seats)
	for i := 1; i <= n; i++ {
		seat := ((from+i)%n + n) % n
		if match(t.seats[seat]) {
			return seat
		}
	}

	return -1
}

func (t *Table) countActive() int {
	n := 0
	for _, p := range t.hand.participants {
		if p.isActive() {
			n++
		}
	}

	return n
}

func (t *Table) countCanAct() int {
	n := 0
	for _, p := range t.hand.participants {
		if p.canAct() {
			n++
		}
	}

	return n
}

// CheckInvariants returns an error if the table is in an inconsistent state
func (t *Table) CheckInvariants() error {
	var contributed int64
	var paidOut int64
	if t.hand != nil {
		for _, p := range t.hand.participants {
			contributed += p.contributed
		}
		paidOut = t.hand.paidOut
	}

	if t.pot != contributed-paidOut {
		return fmt.Errorf("pot is %d, but %d was contributed and %d paid out", t.pot, contributed, paidOut)
	}

	for _, p := range t.seats {
		if p != nil && p.stack < 0 {
			return fmt.Errorf("seat %d has a negative stack of %d", p.seat, p.stack)
		}
	}

	if t.toAct >= 0 {
		if !t.street.IsBetting() {
			return fmt.Errorf("seat %d is to act on the %s", t.toAct, t.street)
		}

		if !t.needsAction(t.seats[t.toAct]) {
			return fmt.Errorf("seat %d is to act but cannot", t.toAct)
		}
	}

	return nil
}
