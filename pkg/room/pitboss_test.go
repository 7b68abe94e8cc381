package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/ledger"
)

func newTestPitBoss(t *testing.T, roomGrace time.Duration) (*PitBoss, *switchLedger) {
	t.Helper()

	opts := testOptions()
	opts.RoomGrace = roomGrace
	opts.TickInterval = 10 * time.Millisecond

	l := newSwitchLedger(t, map[string]int64{"p1": 1000, "p2": 1000})
	p, err := NewPitBoss(opts, l, nil)
	require.NoError(t, err)

	p.StartShift()
	t.Cleanup(p.EndShift)

	return p, l
}

func newPitBossClient(p *PitBoss, playerID string) *Client {
	return NewClient(nil, "conn-"+playerID, playerID, playerID, p)
}

func waitFor(t *testing.T, c *Client, match func(msg interface{}) bool) {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.SendChan():
			if match(msg) {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for message")
		}
	}
}

func TestPitBoss_JoinOpensRoom(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	p, _ := newTestPitBoss(t, time.Minute)

	_, err := p.Lookup(ctx, "room-1")
	a.True(apperror.KindOf(err) == apperror.RoomNotFound)

	c1 := newPitBossClient(p, "p1")
	c1.ReceivedMessage(&PayloadIn{Type: JoinRoom, RoomID: "room-1"})
	waitFor(t, c1, func(msg interface{}) bool {
		_, ok := msg.(*RoomState)
		return ok
	})

	dealer, err := p.Lookup(ctx, "room-1")
	require.NoError(t, err)
	a.Equal("room-1", dealer.RoomID())

	rooms, err := p.Rooms(ctx)
	require.NoError(t, err)
	a.Equal([]RoomSummary{{RoomID: "room-1", Clients: 1}}, rooms)

	// joining twice is an error
	c1.ReceivedMessage(&PayloadIn{Type: JoinRoom, RoomID: "room-1"})
	waitFor(t, c1, func(msg interface{}) bool {
		e, ok := msg.(*ErrorResponse)
		return ok && e.Kind == string(apperror.InvalidState)
	})

	resolved, err := p.Resolve(ctx, "room-2")
	require.NoError(t, err)
	a.Equal("room-2", resolved.RoomID())
}

func TestPitBoss_MessageForUnjoinedRoom(t *testing.T) {
	p, _ := newTestPitBoss(t, time.Minute)

	c1 := newPitBossClient(p, "p1")
	c1.ReceivedMessage(&PayloadIn{Type: Fold, RoomID: "room-9", Context: "abc"})
	waitFor(t, c1, func(msg interface{}) bool {
		e, ok := msg.(*ErrorResponse)
		return ok && e.Kind == string(apperror.RoomNotFound) && e.Context == "abc"
	})

	c1.ReceivedMessage(&PayloadIn{Type: LeaveRoom, RoomID: "room-9"})
	waitFor(t, c1, func(msg interface{}) bool {
		e, ok := msg.(*ErrorResponse)
		return ok && e.Kind == string(apperror.RoomNotFound)
	})
}

func TestPitBoss_PlayerMismatchIsUnauthorized(t *testing.T) {
	p, _ := newTestPitBoss(t, time.Minute)

	c1 := newPitBossClient(p, "p1")
	c1.ReceivedMessage(&PayloadIn{Type: JoinRoom, RoomID: "room-1", PlayerID: "p2"})
	waitFor(t, c1, func(msg interface{}) bool {
		e, ok := msg.(*ErrorResponse)
		return ok && e.Kind == string(apperror.Unauthorized)
	})

	_, err := p.Lookup(context.Background(), "room-1")
	assert.Error(t, err)
}

func TestPitBoss_ReapsEmptyRoom(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	p, l := newTestPitBoss(t, 20*time.Millisecond)

	c1 := newPitBossClient(p, "p1")
	c1.ReceivedMessage(&PayloadIn{Type: JoinRoom, RoomID: "room-1"})
	c1.ReceivedMessage(&PayloadIn{Type: Sit, RoomID: "room-1", Seat: seatPtr(2), Amount: 300})

	a.Eventually(func() bool {
		return l.balance(t, "p1").Reserved == 300
	}, time.Second, 5*time.Millisecond)

	p.ClientDisconnected(c1)

	a.Eventually(func() bool {
		_, err := p.Lookup(ctx, "room-1")
		return apperror.KindOf(err) == apperror.RoomNotFound
	}, 2*time.Second, 10*time.Millisecond)

	// ending the shift released the seat
	a.Eventually(func() bool {
		return l.balance(t, "p1") == ledger.Balance{Balance: 1000}
	}, time.Second, 5*time.Millisecond)
}

func TestPitBoss_RejoinKeepsRoom(t *testing.T) {
	ctx := context.Background()

	p, _ := newTestPitBoss(t, 100*time.Millisecond)

	c1 := newPitBossClient(p, "p1")
	c1.ReceivedMessage(&PayloadIn{Type: JoinRoom, RoomID: "room-1"})
	c1.ReceivedMessage(&PayloadIn{Type: LeaveRoom, RoomID: "room-1"})

	c2 := newPitBossClient(p, "p2")
	c2.ReceivedMessage(&PayloadIn{Type: JoinRoom, RoomID: "room-1"})

	time.Sleep(250 * time.Millisecond)

	dealer, err := p.Lookup(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 1, dealer.ClientCount())
}

func TestPitBoss_ShutdownReleasesSeats(t *testing.T) {
	opts := testOptions()
	opts.TickInterval = 10 * time.Millisecond

	l := newSwitchLedger(t, map[string]int64{"p1": 1000})
	p, err := NewPitBoss(opts, l, nil)
	require.NoError(t, err)
	p.StartShift()

	c1 := newPitBossClient(p, "p1")
	c1.ReceivedMessage(&PayloadIn{Type: JoinRoom, RoomID: "room-1"})
	c1.ReceivedMessage(&PayloadIn{Type: Sit, RoomID: "room-1", Seat: seatPtr(0), Amount: 400})

	assert.Eventually(t, func() bool {
		return l.balance(t, "p1").Reserved == 400
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, p.Shutdown(ctx))
	assert.Equal(t, ledger.Balance{Balance: 1000}, l.balance(t, "p1"))
}

func TestPitBoss_ReapWaitsForPendingSettlement(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	p, l := newTestPitBoss(t, 20*time.Millisecond)

	c1 := newPitBossClient(p, "p1")
	c2 := newPitBossClient(p, "p2")
	for i, c := range []*Client{c1, c2} {
		c.ReceivedMessage(&PayloadIn{Type: JoinRoom, RoomID: "room-1"})
		c.ReceivedMessage(&PayloadIn{Type: Sit, RoomID: "room-1", Seat: seatPtr(i), Amount: 300})
	}

	a.Eventually(func() bool {
		return l.balance(t, "p1").Reserved == 300 && l.balance(t, "p2").Reserved == 300
	}, time.Second, 5*time.Millisecond)

	c1.ReceivedMessage(&PayloadIn{Type: StartHand, RoomID: "room-1"})
	waitFor(t, c1, func(msg interface{}) bool {
		_, ok := msg.(*DealCards)
		return ok
	})

	l.setDown(true)

	// only the player to act can fold, and that ends the hand
	c1.ReceivedMessage(&PayloadIn{Type: Fold, RoomID: "room-1"})
	c2.ReceivedMessage(&PayloadIn{Type: Fold, RoomID: "room-1"})
	waitFor(t, c1, func(msg interface{}) bool {
		_, ok := msg.(*Winner)
		return ok
	})

	p.ClientDisconnected(c1)
	p.ClientDisconnected(c2)

	// the room outlives several grace periods while the hand is unsettled
	time.Sleep(150 * time.Millisecond)
	_, err := p.Lookup(ctx, "room-1")
	require.NoError(t, err)
	a.Equal(ledger.Balance{Balance: 1000, Reserved: 300}, l.balance(t, "p1"))

	l.setDown(false)

	a.Eventually(func() bool {
		_, err := p.Lookup(ctx, "room-1")
		return apperror.KindOf(err) == apperror.RoomNotFound
	}, 2*time.Second, 10*time.Millisecond)

	a.Eventually(func() bool {
		return l.balance(t, "p1").Reserved == 0 && l.balance(t, "p2").Reserved == 0
	}, time.Second, 5*time.Millisecond)

	p1, p2 := l.balance(t, "p1"), l.balance(t, "p2")
	a.Equal(int64(2000), p1.Balance+p2.Balance)
	a.NotEqual(int64(1000), p1.Balance)
}

func TestPitBoss_ShutdownWaitsForLedger(t *testing.T) {
	opts := testOptions()
	opts.TickInterval = 10 * time.Millisecond

	l := newSwitchLedger(t, map[string]int64{"p1": 1000})
	p, err := NewPitBoss(opts, l, nil)
	require.NoError(t, err)
	p.StartShift()

	c1 := newPitBossClient(p, "p1")
	c1.ReceivedMessage(&PayloadIn{Type: JoinRoom, RoomID: "room-1"})
	c1.ReceivedMessage(&PayloadIn{Type: Sit, RoomID: "room-1", Seat: seatPtr(0), Amount: 400})

	assert.Eventually(t, func() bool {
		return l.balance(t, "p1").Reserved == 400
	}, time.Second, 5*time.Millisecond)

	l.setDown(true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.Shutdown(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("shutdown returned before the seat was released: %v", err)
	default:
	}

	l.setDown(false)
	require.NoError(t, <-done)
	assert.Equal(t, ledger.Balance{Balance: 1000}, l.balance(t, "p1"))
}

// slowLedger takes its time with one player's writes
type slowLedger struct {
	*switchLedger
	playerID string
	delay    time.Duration
}

func (s *slowLedger) ApplyDelta(ctx context.Context, d ledger.Delta) (*ledger.Transaction, error) {
	if d.PlayerID == s.playerID {
		time.Sleep(s.delay)
	}

	return s.switchLedger.ApplyDelta(ctx, d)
}

func TestPitBoss_SlowRoomDoesNotBlockOthers(t *testing.T) {
	a := assert.New(t)

	opts := testOptions()
	opts.RoomGrace = 10 * time.Millisecond
	opts.TickInterval = 10 * time.Millisecond

	l := &slowLedger{
		switchLedger: newSwitchLedger(t, map[string]int64{"slow": 1000, "p2": 1000}),
		playerID:     "slow",
		delay:        time.Second,
	}
	p, err := NewPitBoss(opts, l, nil)
	require.NoError(t, err)
	p.StartShift()
	t.Cleanup(p.EndShift)

	slow := newPitBossClient(p, "slow")
	require.NoError(t, p.Join(slow, "room-a"))
	slow.ReceivedMessage(&PayloadIn{Type: Sit, RoomID: "room-a", Seat: seatPtr(0), Amount: 300})

	// room-a is now stuck in the ledger, give its reap timer time to fire
	time.Sleep(20 * time.Millisecond)
	p.ClientDisconnected(slow)
	time.Sleep(50 * time.Millisecond)

	c2 := newPitBossClient(p, "p2")
	start := time.Now()
	require.NoError(t, p.Join(c2, "room-b"))
	a.Less(int64(time.Since(start)), int64(200*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	rooms, err := p.Rooms(ctx)
	require.NoError(t, err)
	a.Len(rooms, 2)

	// once the sit lands, room-a closes and hands the chips back
	a.Eventually(func() bool {
		_, err := p.Lookup(context.Background(), "room-a")
		return apperror.KindOf(err) == apperror.RoomNotFound
	}, 5*time.Second, 20*time.Millisecond)
	a.Eventually(func() bool {
		return l.balance(t, "slow") == ledger.Balance{Balance: 1000}
	}, 5*time.Second, 20*time.Millisecond)
}
