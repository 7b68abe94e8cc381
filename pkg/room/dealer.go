package room

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/events"
	"pokertable-server/pkg/ledger"
	"pokertable-server/pkg/table"
)

// Dealer is responsible for a single room. Every change to the table happens on its run loop.
type Dealer struct {
	roomID    string
	shiftID   string
	options   Options
	table     *table.Table
	ledger    Ledger
	publisher events.Publisher
	log       logrus.FieldLogger

	clients map[*Client]bool
	lock    sync.RWMutex

	// mailbox holds work for the run loop, in order. It never blocks the sender.
	mailbox     []func()
	mailboxLock sync.Mutex
	wake        chan bool
	close       chan bool
	closeOnce   sync.Once
	stopped     bool
	// closing is set once the shift has ended but ledger writes are still pending
	closing bool

	logMessages []*LogMessage

	// pending ledger writes, in order
	pending []ledger.Delta
	// parked ledger writes that were rejected and need reconciliation
	parked []ledger.Delta
	// buy-ins the ledger never confirmed, by player
	unconfirmed map[string]sitAttempt

	turnStarted time.Time
	turnSeq     uint64
	handEndedAt time.Time

	now func() time.Time
}

// NewDealer creates a new dealer object
// This is called from a blocking state, so it needs to return quickly
func NewDealer(roomID string, options Options, l Ledger, publisher events.Publisher) (*Dealer, error) {
	tbl, err := table.New(roomID, options.Table)
	if err != nil {
		return nil, err
	}

	if publisher == nil {
		publisher = events.Noop{}
	}

	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}

	if options.LedgerTimeout <= 0 {
		options.LedgerTimeout = 5 * time.Second
	}

	return &Dealer{
		roomID:        roomID,
		shiftID:       uuid.New().String(),
		options:       options,
		table:         tbl,
		ledger:        l,
		publisher:     publisher,
		log:           logrus.WithField("room", roomID),
		clients:       make(map[*Client]bool),
		unconfirmed:   make(map[string]sitAttempt),
		wake:          make(chan bool, 1),
		close:         make(chan bool),
		now:           time.Now,
	}, nil
}

// RoomID returns the room identifier
func (d *Dealer) RoomID() string {
	return d.roomID
}

// Clients will return a slice of connected (at the time) clients
func (d *Dealer) Clients() []*Client {
	d.lock.RLock()
	defer d.lock.RUnlock()

	clients := make([]*Client, 0, len(d.clients))
	for client := range d.clients {
		clients = append(clients, client)
	}

	return clients
}

// ClientCount returns the number of connected clients
func (d *Dealer) ClientCount() int {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return len(d.clients)
}

// StartShift starts the run loop
func (d *Dealer) StartShift() {
	go d.runLoop()
}

func (d *Dealer) runLoop() {
	d.log.Debug("creating dealer run loop")

	ticker := time.NewTicker(d.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.wake:
			for _, fn := range d.takeMail() {
				fn()
				if d.stopped {
					d.log.Debug("terminating dealer run loop")
					return
				}
			}
		case <-ticker.C:
			d.tick(d.now())
			if d.stopped {
				d.log.Debug("terminating dealer run loop")
				return
			}
		case <-d.close:
			d.log.Debug("terminating dealer run loop")
			return
		}
	}
}

// do queues fn on the run loop and returns immediately. It is dropped if the shift is over.
func (d *Dealer) do(fn func()) {
	select {
	case <-d.close:
		return
	default:
	}

	d.mailboxLock.Lock()
	d.mailbox = append(d.mailbox, fn)
	d.mailboxLock.Unlock()

	select {
	case d.wake <- true:
	default:
	}
}

func (d *Dealer) takeMail() []func() {
	d.mailboxLock.Lock()
	defer d.mailboxLock.Unlock()

	mail := d.mailbox
	d.mailbox = nil
	return mail
}

// exec runs fn on the run loop and waits for it to finish.
// apperror.ErrRoomNotFound is returned if the dealer's shift is over.
func (d *Dealer) exec(ctx context.Context, fn func()) error {
	done := make(chan bool)
	wrapped := func() {
		fn()
		close(done)
	}

	select {
	case <-d.close:
		return apperror.ErrRoomNotFound
	default:
	}

	d.do(wrapped)

	select {
	case <-done:
		return nil
	case <-d.close:
		return apperror.ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddClient adds a client
// This method must return quickly
func (d *Dealer) AddClient(client *Client) {
	d.lock.Lock()
	d.clients[client] = true
	d.lock.Unlock()

	d.do(func() {
		d.clientJoined(client)
	})
}

// RemoveClient removes a client and returns the number of clients left
// This method must return quickly
func (d *Dealer) RemoveClient(client *Client) int {
	d.lock.Lock()
	delete(d.clients, client)
	nClients := len(d.clients)
	d.lock.Unlock()

	d.do(func() {
		d.clientLeft(client)
	})

	return nClients
}

// EndShift stands everyone up, releasing their chips, and stops the run loop
func (d *Dealer) EndShift() {
	d.do(d.endShift)
}

// Kill stops the run loop without settling anything
func (d *Dealer) Kill() {
	d.closeOnce.Do(func() {
		close(d.close)
	})
}

// Retire ends the shift if the room is idle. done is called from the run loop with
// whether the shift ended, so it must not block.
func (d *Dealer) Retire(done func(retired bool)) {
	d.do(func() {
		if !d.idle() {
			done(false)
			return
		}

		d.endShift()
		done(true)
	})
}

// idle returns true if nobody is connected, no hand is being played and nothing is
// waiting to be settled
// NOTE: must only be called from the run loop
func (d *Dealer) idle() bool {
	return !d.closing && d.ClientCount() == 0 && !d.table.InHand() && !d.settling()
}

// Snapshot returns the public state of the room
func (d *Dealer) Snapshot(ctx context.Context) (*RoomState, error) {
	var state *RoomState
	err := d.exec(ctx, func() {
		state = d.roomState()
	})

	return state, err
}

// ReceivedMessage is called when a client sends a message to the room
func (d *Dealer) ReceivedMessage(c *Client, msg *PayloadIn) {
	d.do(func() {
		d.handleMessage(c, msg)
	})
}

// NOTE: must only be called from the run loop
func (d *Dealer) handleMessage(c *Client, msg *PayloadIn) {
	log := d.log.WithFields(logrus.Fields{
		"player": c.playerID,
		"type":   msg.Type,
	})

	var err error
	switch {
	case d.closing:
		err = apperror.New(apperror.InvalidState, "the room is closing")
	case msg.Type == Sit:
		err = d.sit(c, msg)
	case msg.Type == Stand:
		err = d.stand(c.playerID)
	case msg.Type == StartHand:
		err = d.startHand()
	default:
		action, ok := msg.actionType()
		if !ok {
			err = apperror.New(apperror.BadRequest, "unknown message type: %s", msg.Type)
			break
		}

		err = d.playerAction(c.playerID, table.Action{Type: action, Amount: msg.Amount})
	}

	if err != nil {
		log.WithError(err).Debug("rejected message")
		c.Send(NewErrorResponse(d.roomID, msg.Context, err))
	}
}

func (d *Dealer) sit(c *Client, msg *PayloadIn) error {
	if d.settling() {
		return apperror.New(apperror.InvalidState, "the last hand is still being settled")
	}

	var seat int
	if msg.Seat != nil {
		seat = *msg.Seat
	} else if seat = d.openSeat(); seat < 0 {
		return apperror.New(apperror.InvalidState, "the table is full")
	}

	if err := d.table.ValidateSeat(c.playerID, seat, msg.Amount); err != nil {
		return err
	}

	if err := d.reserve(c.playerID, msg.Amount, seat); err != nil {
		return err
	}

	info := table.PlayerInfo{ID: c.playerID, DisplayName: c.DisplayName()}
	if err := d.table.Seat(info, seat, msg.Amount); err != nil {
		// the table changed between validating and seating, give the chips back
		d.enqueue(d.releaseDelta(c.playerID, msg.Amount, ""))
		return err
	}

	d.addLogMessages(newLogMessage(c.playerID, "sat down in seat %d with %d", seat+1, msg.Amount))
	d.sendRoomState()
	return nil
}

// openSeat returns the first empty seat, or -1
func (d *Dealer) openSeat() int {
	for seat := 0; seat < d.options.Table.Capacity; seat++ {
		if _, taken := d.table.PlayerAt(seat); !taken {
			return seat
		}
	}

	return -1
}

// stand removes a player from the table. A player still in a hand leaves when it ends.
func (d *Dealer) stand(playerID string) error {
	p, ok := d.seated(playerID)
	if !ok {
		return apperror.New(apperror.InvalidState, "you are not seated")
	}

	if d.table.InHand() && p.InHand {
		if err := d.table.MarkLeaving(playerID); err != nil {
			return err
		}

		d.addLogMessages(newLogMessage(playerID, "will leave after this hand"))
		if seat, ok := d.table.ToAct(); ok && seat == p.Seat {
			return d.autoAction(seat, table.Action{Type: table.Fold}, "leaving")
		}

		d.sendRoomState()
		return nil
	}

	stack, err := d.table.Unseat(playerID)
	if err != nil {
		return err
	}

	if stack > 0 {
		d.enqueue(d.releaseDelta(playerID, stack, ""))
	}

	d.addLogMessages(newLogMessage(playerID, "stood up with %d", stack))
	d.sendRoomState()
	return nil
}

func (d *Dealer) seated(playerID string) (table.PlayerState, bool) {
	seat, ok := d.table.SeatOf(playerID)
	if !ok {
		return table.PlayerState{}, false
	}

	return d.table.PlayerAt(seat)
}

func (d *Dealer) startHand() error {
	if d.settling() {
		return apperror.New(apperror.InvalidState, "the last hand is still being settled")
	}

	hr, err := d.table.StartHand()
	if err != nil {
		return err
	}

	d.log.WithField("hand", d.table.HandID()).Info("starting hand")
	d.addLogMessages(newLogMessage("", "hand #%d started", d.table.Snapshot().GameState.HandNumber))
	d.resetTurnClock()
	d.sendRoomState()

	for _, p := range d.table.Players() {
		d.sendHoleCards(p.ID)
	}

	if hr != nil {
		d.handEnded(hr)
	}

	return nil
}

// playerAction applies a betting decision from a player
func (d *Dealer) playerAction(playerID string, action table.Action) error {
	seat, ok := d.table.SeatOf(playerID)
	if !ok {
		return apperror.New(apperror.InvalidState, "you are not seated")
	}

	return d.applyAction(seat, action, "")
}

// autoAction acts on a player's behalf
func (d *Dealer) autoAction(seat int, action table.Action, reason string) error {
	return d.applyAction(seat, action, reason)
}

func (d *Dealer) applyAction(seat int, action table.Action, auto string) error {
	res, err := d.table.ApplyAction(seat, action)
	if err != nil {
		return err
	}

	d.resetTurnClock()

	d.addLogMessages(newLogMessage(res.PlayerID, "%s", action.LogMessage(res.Amount)))

	d.broadcast(&ActionBroadcast{
		Response: Response{
			Type:   ActionBroadcastMessage,
			RoomID: d.roomID,
		},
		PlayerID: res.PlayerID,
		Seat:     res.Seat,
		Action:   res.Action,
		Amount:   res.Amount,
		AllIn:    res.AllIn,
		Seq:      res.Seq,
		Auto:     auto,
	})

	if res.StreetChanged && res.HandResult == nil {
		dealt := newLogMessage("", "dealt the %s", res.NewStreet)
		dealt.Cards = res.Dealt
		d.addLogMessages(dealt)
	}

	if res.HandResult != nil {
		d.handEnded(res.HandResult)
		return nil
	}

	d.sendRoomState()
	return nil
}

// handEnded settles a finished hand and tells the room who won
// NOTE: must only be called from the run loop
func (d *Dealer) handEnded(hr *table.HandResult) {
	d.handEndedAt = d.now()

	log := d.log.WithField("hand", hr.HandID)
	log.WithFields(logrus.Fields{
		"pot":  hr.Pot,
		"rake": hr.Rake.Rake,
	}).Info("hand complete")

	for _, w := range hr.Winners {
		if w.Hand != "" {
			d.addLogMessages(newLogMessage(w.PlayerID, "won %d with %s", w.Amount, w.Hand))
		} else {
			d.addLogMessages(newLogMessage(w.PlayerID, "won %d", w.Amount))
		}
	}

	d.enqueue(d.settlementDeltas(hr)...)

	d.broadcast(&Winner{
		Response: Response{
			Type:   WinnerMessage,
			RoomID: d.roomID,
		},
		HandID:   hr.HandID,
		Winners:  hr.Winners,
		Pot:      hr.Pot,
		Rake:     hr.Rake.Rake,
		Pots:     hr.Pots,
		Board:    hr.Board,
		Showdown: hr.Showdown,
	})
	d.sendRoomState()

	ctx, cancel := d.ledgerContext()
	defer cancel()
	if err := d.publisher.Publish(ctx, events.SubjectHandCompleted, hr); err != nil {
		log.WithError(err).Warn("could not publish hand result")
	}
}

func (d *Dealer) resetTurnClock() {
	d.turnStarted = d.now()
	d.turnSeq = d.table.Seq()
}

// tick is called periodically by the run loop to act for players who ran out of time
// NOTE: must only be called from the run loop
func (d *Dealer) tick(now time.Time) {
	if d.settling() && d.flushPending() {
		d.log.Info("pending settlement applied")
		d.sendRoomState()
	}

	if d.closing {
		if !d.settling() {
			d.log.Info("pending settlement applied, closing room")
			d.stopShift()
		}
		return
	}

	if seat, ok := d.table.ToAct(); ok {
		p, _ := d.table.PlayerAt(seat)
		if d.turnSeq != d.table.Seq() {
			d.resetTurnClock()
		}

		var err error
		switch {
		case p.Leaving:
			err = d.autoAction(seat, table.Action{Type: table.Fold}, "leaving")
		case !p.Connected && now.Sub(p.DisconnectedAt) >= d.options.ReconnectGrace:
			d.log.WithField("player", p.ID).Info("player did not reconnect in time, folding")
			err = d.autoAction(seat, table.Action{Type: table.Fold}, "disconnected")
		case d.options.TurnTimeout > 0 && now.Sub(d.turnStarted) >= d.options.TurnTimeout:
			err = d.autoAction(seat, d.table.TimeoutAction(seat), "timeout")
		}

		if err != nil {
			d.log.WithError(err).WithField("seat", seat).Error("could not act for player")
		}
	}

	d.vacateDisconnected(now)

	if d.options.AutoStart && !d.table.InHand() && !d.settling() && now.Sub(d.handEndedAt) >= d.options.NextHandDelay {
		if err := d.startHand(); err != nil && apperror.KindOf(err) != apperror.InvalidState {
			d.log.WithError(err).Error("could not start the next hand")
		}
	}
}

// vacateDisconnected stands up players whose reconnect grace expired
func (d *Dealer) vacateDisconnected(now time.Time) {
	for _, p := range d.table.Players() {
		if p.Connected || now.Sub(p.DisconnectedAt) < d.options.ReconnectGrace {
			continue
		}

		if d.table.InHand() && p.InHand {
			if !p.Leaving {
				_ = d.table.MarkLeaving(p.ID)
			}
			continue
		}

		d.log.WithField("player", p.ID).Info("vacating seat of disconnected player")
		if err := d.stand(p.ID); err != nil {
			d.log.WithError(err).WithField("player", p.ID).Error("could not vacate seat")
		}
	}
}

// NOTE: must only be called from the run loop
func (d *Dealer) clientJoined(c *Client) {
	if d.table.MarkConnected(c.playerID) {
		d.addLogMessages(newLogMessage(c.playerID, "reconnected"))
	}

	d.broadcast(newPresence(PlayerJoinedMessage, d.roomID, c))
	c.Send(d.roomState())
	d.sendHoleCardsTo(c)
}

// NOTE: must only be called from the run loop
func (d *Dealer) clientLeft(c *Client) {
	d.broadcast(newPresence(PlayerLeftMessage, d.roomID, c))

	for _, other := range d.Clients() {
		if other.playerID == c.playerID {
			// still connected from somewhere else
			return
		}
	}

	if d.table.MarkDisconnected(c.playerID, d.now()) {
		d.log.WithField("player", c.playerID).Info("seated player disconnected")
		d.sendRoomState()
	}
}

// endShift vacates every seat and stops the run loop. If the ledger can't take the
// writes yet, the run loop keeps retrying them on each tick and stops once they land.
// NOTE: must only be called from the run loop
func (d *Dealer) endShift() {
	if d.closing {
		return
	}

	for _, p := range d.table.Players() {
		if d.table.InHand() && p.InHand {
			// the PitBoss only ends a shift between hands
			d.log.WithField("player", p.ID).Error("ending shift with a hand in progress")
			continue
		}

		stack, err := d.table.Unseat(p.ID)
		if err != nil {
			d.log.WithError(err).WithField("player", p.ID).Error("could not unseat player")
			continue
		}

		if stack > 0 {
			d.pending = append(d.pending, d.releaseDelta(p.ID, stack, ""))
		}
	}

	d.unwindUnconfirmed()

	d.closing = true
	if !d.flushPending() {
		d.log.WithField("pending", len(d.pending)).Warn("closing room, waiting for the ledger to settle")
		return
	}

	d.stopShift()
}

// NOTE: must only be called from the run loop
func (d *Dealer) stopShift() {
	d.stopped = true
	d.Kill()
}

// Done is closed once the run loop has stopped
func (d *Dealer) Done() <-chan bool {
	return d.close
}

// roomState builds the public state of the room
func (d *Dealer) roomState() *RoomState {
	snap := d.table.Snapshot()
	logMessages := make([]*LogMessage, len(d.logMessages))
	copy(logMessages, d.logMessages)

	return &RoomState{
		Response: Response{
			Type:   RoomStateMessage,
			RoomID: d.roomID,
		},
		Players:   snap.Players,
		Pot:       snap.Pot,
		GameState: snap.GameState,
		Log:       logMessages,
		Settling:  d.settling(),
	}
}

func (d *Dealer) sendRoomState() {
	d.broadcast(d.roomState())
}

// sendHoleCards sends a player's private cards to each of their connections
func (d *Dealer) sendHoleCards(playerID string) {
	for _, c := range d.Clients() {
		if c.playerID == playerID {
			d.sendHoleCardsTo(c)
		}
	}
}

func (d *Dealer) sendHoleCardsTo(c *Client) {
	cards, ok := d.table.HoleCards(c.playerID)
	if !ok || !d.table.InHand() {
		return
	}

	c.Send(&DealCards{
		Response: Response{
			Type:   DealCardsMessage,
			RoomID: d.roomID,
		},
		PlayerID: c.playerID,
		HandID:   d.table.HandID(),
		Cards:    cards,
	})
}

func (d *Dealer) broadcast(msg interface{}) {
	for _, c := range d.Clients() {
		c.Send(msg)
	}
}
