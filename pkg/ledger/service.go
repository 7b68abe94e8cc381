package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/events"
)

// RetryOptions bounds how hard the service tries when the store is unavailable
type RetryOptions struct {
	MaxRetries      uint64        `yaml:"maxRetries" envconfig:"max_retries"`
	InitialInterval time.Duration `yaml:"initialInterval" envconfig:"initial_interval"`
	MaxInterval     time.Duration `yaml:"maxInterval" envconfig:"max_interval"`
}

// DefaultRetryOptions are used when a zero RetryOptions is given
var DefaultRetryOptions = RetryOptions{
	MaxRetries:      4,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
}

// Service validates deltas and applies them to a Store
type Service struct {
	store     Store
	retry     RetryOptions
	publisher events.Publisher
	logger    logrus.FieldLogger
}

// NewService returns a new Service
func NewService(store Store, retry RetryOptions, publisher events.Publisher) *Service {
	if retry.InitialInterval <= 0 {
		retry = DefaultRetryOptions
	}

	if publisher == nil {
		publisher = events.Noop{}
	}

	return &Service{
		store:     store,
		retry:     retry,
		publisher: publisher,
		logger:    logrus.WithField("component", "ledger"),
	}
}

func (s *Service) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialInterval
	if s.retry.MaxInterval > 0 {
		b.MaxInterval = s.retry.MaxInterval
	}
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, s.retry.MaxRetries), ctx)
}

// ApplyDelta validates and applies a delta.
// LedgerUnavailable is retried with backoff; any other error is returned immediately.
func (s *Service) ApplyDelta(ctx context.Context, d Delta) (*Transaction, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"player": d.PlayerID,
		"type":   d.Type,
	})

	var tx *Transaction
	attempt := 0
	op := func() error {
		attempt++

		var err error
		tx, err = s.store.ApplyDelta(ctx, &d)
		if err == nil {
			return nil
		}

		if errors.Is(err, apperror.ErrLedgerUnavailable) {
			log.WithError(err).WithField("attempt", attempt).Warn("ledger unavailable, will retry")
			return err
		}

		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, s.newBackOff(ctx)); err != nil {
		if ctx.Err() != nil && !errors.Is(err, apperror.ErrLedgerUnavailable) {
			return nil, apperror.Wrap(apperror.LedgerUnavailable, ctx.Err(), "ledger write was cancelled")
		}

		return nil, err
	}

	log.WithFields(logrus.Fields{
		"tx":       tx.ID,
		"balance":  tx.BalanceAfter,
		"reserved": tx.ReservedAfter,
	}).Debug("applied delta")

	if err := s.publisher.Publish(ctx, events.SubjectTransaction, tx); err != nil {
		log.WithError(err).Warn("could not publish transaction")
	}

	return tx, nil
}

// Balances returns both denominations for a player, creating zero balances on first lookup
func (s *Service) Balances(ctx context.Context, playerID string) (*Balances, error) {
	if playerID == "" {
		return nil, apperror.New(apperror.BadRequest, "player ID is required")
	}

	return s.store.Balances(ctx, playerID)
}

// History returns a player's most recent transactions
func (s *Service) History(ctx context.Context, playerID string, d Denomination, limit int) ([]*Transaction, error) {
	if playerID == "" {
		return nil, apperror.New(apperror.BadRequest, "player ID is required")
	}

	if d != "" && !d.Valid() {
		return nil, apperror.New(apperror.BadRequest, "unknown denomination: %s", d)
	}

	if limit <= 0 || limit > 100 {
		limit = 100
	}

	return s.store.Transactions(ctx, playerID, d, limit)
}
