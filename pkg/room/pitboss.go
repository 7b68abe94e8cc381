package room

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/events"
)

// PitBoss is responsible for dispatching players to rooms. It opens a room the first time
// somebody joins it and reaps it once it has been empty for the room grace.
type PitBoss struct {
	options   Options
	ledger    Ledger
	publisher events.Publisher

	dealers    map[string]*Dealer
	reapTimers map[string]*time.Timer

	connect    chan *membership
	disconnect chan *membership
	reap       chan string
	exec       chan func()
	close      chan bool
}

// membership is a request to join or leave a room
type membership struct {
	client *Client
	roomID string
	reply  chan error
}

// RoomSummary describes a live room
type RoomSummary struct {
	RoomID       string `json:"roomId"`
	TournamentID string `json:"tournamentId,omitempty"`
	Clients      int    `json:"clients"`
}

// NewPitBoss returns a new dispatch object
func NewPitBoss(options Options, l Ledger, publisher events.Publisher) (*PitBoss, error) {
	if err := options.Table.Validate(); err != nil {
		return nil, err
	}

	if publisher == nil {
		publisher = events.Noop{}
	}

	return &PitBoss{
		options:    options,
		ledger:     l,
		publisher:  publisher,
		dealers:    make(map[string]*Dealer),
		reapTimers: make(map[string]*time.Timer),
		connect:    make(chan *membership, 256),
		disconnect: make(chan *membership, 256),
		reap:       make(chan string, 256),
		exec:       make(chan func(), 256),
		close:      make(chan bool),
	}, nil
}

// StartShift starts the PitBoss run loop
func (p *PitBoss) StartShift() {
	go p.runLoop()
}

// EndShift stops the PitBoss run loop and ends every room's shift
func (p *PitBoss) EndShift() {
	p.exec <- func() {
		for roomID, dealer := range p.dealers {
			dealer.EndShift()
			p.discard(roomID)
		}

		close(p.close)
	}
}

// Shutdown ends the shift and waits until every open room has released its seats. A room
// whose ledger writes are still pending keeps retrying them until ctx is done.
func (p *PitBoss) Shutdown(ctx context.Context) error {
	var dealers []*Dealer
	if err := p.do(ctx, func() {
		for _, dealer := range p.dealers {
			dealers = append(dealers, dealer)
		}
	}); err != nil {
		return err
	}

	p.EndShift()

	for _, dealer := range dealers {
		select {
		case <-dealer.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (p *PitBoss) runLoop() {
	for {
		select {
		case m := <-p.connect:
			m.reply <- p.join(m.client, m.roomID)
		case m := <-p.disconnect:
			m.reply <- p.leave(m.client, m.roomID)
		case roomID := <-p.reap:
			p.reapRoom(roomID)
		case fn := <-p.exec:
			fn()
		case <-p.close:
			logrus.Debug("terminating pit boss run loop")
			return
		}
	}
}

// resolve returns the room's dealer, opening the room if needed
// NOTE: must only be called from the run loop
func (p *PitBoss) resolve(roomID string) (*Dealer, error) {
	if dealer, found := p.dealers[roomID]; found {
		return dealer, nil
	}

	dealer, err := NewDealer(roomID, p.options, p.ledger, p.publisher)
	if err != nil {
		return nil, err
	}

	logrus.WithField("room", roomID).Info("opening room")
	dealer.StartShift()
	p.dealers[roomID] = dealer
	return dealer, nil
}

func (p *PitBoss) join(client *Client, roomID string) error {
	log := logrus.WithFields(logrus.Fields{
		"room":   roomID,
		"client": client.String(),
	})

	if client.dealer(roomID) != nil {
		return apperror.New(apperror.InvalidState, "you have already joined room %s", roomID)
	}

	dealer, err := p.resolve(roomID)
	if err != nil {
		log.WithError(err).Error("could not open room")
		return err
	}

	if timer, ok := p.reapTimers[roomID]; ok {
		timer.Stop()
		delete(p.reapTimers, roomID)
	}

	log.Debug("client joined room")
	client.setDealer(roomID, dealer)
	dealer.AddClient(client)
	return nil
}

func (p *PitBoss) leave(client *Client, roomID string) error {
	log := logrus.WithFields(logrus.Fields{
		"room":   roomID,
		"client": client.String(),
	})

	dealer := client.dealer(roomID)
	if dealer == nil {
		return apperror.New(apperror.RoomNotFound, "you have not joined room %s", roomID)
	}

	client.setDealer(roomID, nil)
	log.Debug("client left room")

	if dealer.RemoveClient(client) == 0 {
		p.armReapTimer(roomID)
	}

	return nil
}

// NOTE: must only be called from the run loop
func (p *PitBoss) armReapTimer(roomID string) {
	if timer, ok := p.reapTimers[roomID]; ok {
		timer.Stop()
	}

	p.reapTimers[roomID] = time.AfterFunc(p.options.RoomGrace, func() {
		select {
		case p.reap <- roomID:
		case <-p.close:
		}
	})
}

// reapRoom asks an empty room to close. The dealer answers on the run loop through
// retired, so a busy room never holds up the others.
// NOTE: must only be called from the run loop
func (p *PitBoss) reapRoom(roomID string) {
	delete(p.reapTimers, roomID)

	dealer, found := p.dealers[roomID]
	if !found || dealer.ClientCount() > 0 {
		return
	}

	dealer.Retire(func(retired bool) {
		p.queue(func() {
			p.retired(roomID, dealer, retired)
		})
	})
}

// retired is called once a dealer has answered a reap
// NOTE: must only be called from the run loop
func (p *PitBoss) retired(roomID string, dealer *Dealer, retired bool) {
	log := logrus.WithField("room", roomID)

	if p.dealers[roomID] != dealer {
		return
	}

	if !retired {
		if _, armed := p.reapTimers[roomID]; !armed && dealer.ClientCount() == 0 {
			log.Debug("room is empty but not idle, waiting")
			p.armReapTimer(roomID)
		}
		return
	}

	log.Info("reaped empty room")
	p.discard(roomID)

	// anybody who joined while the room was closing gets a fresh one
	for _, client := range dealer.Clients() {
		client.setDealer(roomID, nil)
		if err := p.join(client, roomID); err != nil {
			client.Send(NewErrorResponse(roomID, "", err))
		}
	}
}

// queue runs fn on the run loop without waiting for it
func (p *PitBoss) queue(fn func()) {
	go func() {
		select {
		case p.exec <- fn:
		case <-p.close:
		}
	}()
}

func (p *PitBoss) discard(roomID string) {
	if timer, ok := p.reapTimers[roomID]; ok {
		timer.Stop()
		delete(p.reapTimers, roomID)
	}

	delete(p.dealers, roomID)
}

// Join adds the client to a room, opening it if needed
func (p *PitBoss) Join(client *Client, roomID string) error {
	return p.send(p.connect, client, roomID)
}

// Leave removes the client from a room
func (p *PitBoss) Leave(client *Client, roomID string) error {
	return p.send(p.disconnect, client, roomID)
}

func (p *PitBoss) send(ch chan *membership, client *Client, roomID string) error {
	m := &membership{
		client: client,
		roomID: roomID,
		reply:  make(chan error, 1),
	}

	select {
	case ch <- m:
	case <-p.close:
		return apperror.New(apperror.InvalidState, "the server is shutting down")
	}

	select {
	case err := <-m.reply:
		return err
	case <-p.close:
		return apperror.New(apperror.InvalidState, "the server is shutting down")
	}
}

// ClientDisconnected is called when a client's connection closes. It leaves every room the
// client joined.
func (p *PitBoss) ClientDisconnected(client *Client) {
	for _, roomID := range client.rooms() {
		if err := p.Leave(client, roomID); err != nil {
			logrus.WithError(err).WithField("client", client.String()).Warn("could not leave room")
		}
	}
}

// do runs fn on the run loop and waits for it
func (p *PitBoss) do(ctx context.Context, fn func()) error {
	done := make(chan bool)
	select {
	case p.exec <- func() {
		fn()
		close(done)
	}:
	case <-p.close:
		return apperror.New(apperror.InvalidState, "the server is shutting down")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolve returns a room's dealer, opening the room if it doesn't exist
func (p *PitBoss) Resolve(ctx context.Context, roomID string) (*Dealer, error) {
	var dealer *Dealer
	var err error
	if doErr := p.do(ctx, func() {
		dealer, err = p.resolve(roomID)
	}); doErr != nil {
		return nil, doErr
	}

	return dealer, err
}

// Lookup returns a room's dealer, or RoomNotFound
func (p *PitBoss) Lookup(ctx context.Context, roomID string) (*Dealer, error) {
	var dealer *Dealer
	if err := p.do(ctx, func() {
		dealer = p.dealers[roomID]
	}); err != nil {
		return nil, err
	}

	if dealer == nil {
		return nil, apperror.New(apperror.RoomNotFound, "room %s was not found", roomID)
	}

	return dealer, nil
}

// Rooms returns the live rooms, ordered by ID
func (p *PitBoss) Rooms(ctx context.Context) ([]RoomSummary, error) {
	var rooms []RoomSummary
	if err := p.do(ctx, func() {
		rooms = make([]RoomSummary, 0, len(p.dealers))
		for roomID, dealer := range p.dealers {
			rooms = append(rooms, RoomSummary{
				RoomID:       roomID,
				TournamentID: p.options.Table.TournamentID,
				Clients:      dealer.ClientCount(),
			})
		}
	}); err != nil {
		return nil, err
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].RoomID < rooms[j].RoomID
	})

	return rooms, nil
}
