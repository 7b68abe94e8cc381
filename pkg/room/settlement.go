package room

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/ledger"
	"pokertable-server/pkg/table"
)

// Ledger applies balance changes. *ledger.Service satisfies it.
type Ledger interface {
	ApplyDelta(ctx context.Context, d ledger.Delta) (*ledger.Transaction, error)
}

func (d *Dealer) ledgerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.options.LedgerTimeout)
}

// sitAttempt is a buy-in the ledger may or may not have applied
type sitAttempt struct {
	amount int64
	seat   int
	key    string
}

// reserve moves chips from a player's available balance onto the table. If the ledger
// can't confirm the write, the next attempt by that player reuses its key.
func (d *Dealer) reserve(playerID string, amount int64, seat int) error {
	attempt := sitAttempt{
		amount: amount,
		seat:   seat,
		key:    fmt.Sprintf("%s:%s:sit:%d", d.shiftID, playerID, d.table.Seq()),
	}

	if prev, ok := d.unconfirmed[playerID]; ok {
		if prev.amount != amount {
			return apperror.New(apperror.InvalidState, "your buy-in of %d is still being confirmed", prev.amount)
		}
		attempt.key = prev.key
	}

	ctx, cancel := d.ledgerContext()
	defer cancel()

	_, err := d.ledger.ApplyDelta(ctx, d.reserveDelta(playerID, attempt))
	if apperror.KindOf(err) == apperror.LedgerUnavailable {
		d.unconfirmed[playerID] = attempt
		return err
	}

	delete(d.unconfirmed, playerID)
	return err
}

func (d *Dealer) reserveDelta(playerID string, attempt sitAttempt) ledger.Delta {
	return ledger.Delta{
		PlayerID:       playerID,
		Denomination:   d.options.Denomination,
		Type:           ledger.Transfer,
		Reserved:       attempt.amount,
		Reference:      fmt.Sprintf("room:%s/sit", d.roomID),
		IdempotencyKey: attempt.key,
		Metadata: map[string]interface{}{
			"roomId": d.roomID,
			"seat":   attempt.seat,
		},
	}
}

// unwindUnconfirmed queues each unconfirmed buy-in followed by its release, so a
// reservation that did land is handed back
func (d *Dealer) unwindUnconfirmed() {
	for playerID, attempt := range d.unconfirmed {
		d.pending = append(d.pending,
			d.reserveDelta(playerID, attempt),
			d.releaseDelta(playerID, attempt.amount, attempt.key+":release"),
		)
		delete(d.unconfirmed, playerID)
	}
}

// releaseDelta returns a player's stack to their available balance
func (d *Dealer) releaseDelta(playerID string, stack int64, key string) ledger.Delta {
	if key == "" {
		key = uuid.New().String()
	}

	return ledger.Delta{
		PlayerID:       playerID,
		Denomination:   d.options.Denomination,
		Type:           ledger.Transfer,
		Reserved:       -stack,
		Reference:      fmt.Sprintf("room:%s/stand", d.roomID),
		IdempotencyKey: key,
		Metadata: map[string]interface{}{
			"roomId": d.roomID,
		},
	}
}

// settlementDeltas are the ledger writes for a finished hand. Seated chips are reserved
// balance, so a player's net loss comes out of both balance and reserved.
func (d *Dealer) settlementDeltas(hr *table.HandResult) []ledger.Delta {
	ref := fmt.Sprintf("room:%s/hand:%s", d.roomID, hr.HandID)
	deltas := make([]ledger.Delta, 0, len(hr.Participants)*2+1)

	newDelta := func(p table.Participant, t ledger.TxType, amount int64) ledger.Delta {
		return ledger.Delta{
			PlayerID:       p.PlayerID,
			Denomination:   d.options.Denomination,
			Type:           t,
			Balance:        amount,
			Reserved:       amount,
			Reference:      ref,
			IdempotencyKey: fmt.Sprintf("%s:%s:%s", hr.HandID, p.PlayerID, t),
			Metadata: map[string]interface{}{
				"roomId":     d.roomID,
				"handId":     hr.HandID,
				"handNumber": hr.HandNumber,
				"seat":       p.Seat,
			},
		}
	}

	for _, p := range hr.Participants {
		if bet := p.Contributed - p.Refund; bet > 0 {
			deltas = append(deltas, newDelta(p, ledger.Bet, -bet))
		}
	}

	for _, p := range hr.Participants {
		if won := p.Won - p.Refund; won > 0 {
			deltas = append(deltas, newDelta(p, ledger.Win, won))
		}
	}

	if hr.Rake.Rake > 0 {
		deltas = append(deltas, ledger.Delta{
			PlayerID:       d.options.HouseAccount,
			Denomination:   d.options.Denomination,
			Type:           ledger.Rake,
			Balance:        hr.Rake.Rake,
			Reference:      ref,
			IdempotencyKey: fmt.Sprintf("%s:rake", hr.HandID),
			Metadata: map[string]interface{}{
				"roomId":     d.roomID,
				"handId":     hr.HandID,
				"capApplied": hr.Rake.CapApplied,
			},
		})
	}

	for _, v := range hr.Vacated {
		if v.Stack > 0 {
			deltas = append(deltas, d.releaseDelta(v.PlayerID, v.Stack, fmt.Sprintf("%s:%s:release", hr.HandID, v.PlayerID)))
		}
	}

	return deltas
}

// enqueue adds ledger writes to the back of the pending queue and tries to flush it
func (d *Dealer) enqueue(deltas ...ledger.Delta) {
	d.pending = append(d.pending, deltas...)
	d.flushPending()
}

// flushPending applies the pending ledger writes in order. It stops at the first write the
// ledger can't accept right now and returns false if anything is left.
// NOTE: must only be called from the run loop
func (d *Dealer) flushPending() bool {
	for len(d.pending) > 0 {
		delta := d.pending[0]

		ctx, cancel := d.ledgerContext()
		_, err := d.ledger.ApplyDelta(ctx, delta)
		cancel()

		if err != nil {
			log := d.log.WithError(err).WithFields(logrus.Fields{
				"player": delta.PlayerID,
				"txType": delta.Type,
				"ref":    delta.Reference,
			})

			if apperror.KindOf(err) == apperror.LedgerUnavailable {
				log.WithField("pending", len(d.pending)).Warn("ledger unavailable, settlement is pending")
				return false
			}

			log.WithField("type", "exception").Error("ledger consistency fault, parking delta for reconciliation")
			d.parked = append(d.parked, delta)
		}

		d.pending = d.pending[1:]
	}

	return true
}

// settling returns true while ledger writes are waiting
func (d *Dealer) settling() bool {
	return len(d.pending) > 0
}
