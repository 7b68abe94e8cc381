package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type balanceKey struct {
	playerID     string
	denomination Denomination
}

// MemoryStore is a Store that lives in process memory.
// It is used by tests and by single-node development servers.
type MemoryStore struct {
	mu           sync.Mutex
	balances     map[balanceKey]Balance
	transactions map[string][]*Transaction
	idempotency  map[string]*Transaction
	now          func() time.Time
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:     make(map[balanceKey]Balance),
		transactions: make(map[string][]*Transaction),
		idempotency:  make(map[string]*Transaction),
		now:          time.Now,
	}
}

// ApplyDelta implements Store
func (m *MemoryStore) ApplyDelta(_ context.Context, d *Delta) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d.IdempotencyKey != "" {
		if tx, ok := m.idempotency[d.IdempotencyKey]; ok {
			return tx, nil
		}
	}

	key := balanceKey{playerID: d.PlayerID, denomination: d.Denomination}
	next, err := m.balances[key].Apply(d)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:             uuid.New().String(),
		PlayerID:       d.PlayerID,
		Denomination:   d.Denomination,
		Type:           d.Type,
		BalanceDelta:   d.Balance,
		ReservedDelta:  d.Reserved,
		BalanceAfter:   next.Balance,
		ReservedAfter:  next.Reserved,
		Reference:      d.Reference,
		IdempotencyKey: d.IdempotencyKey,
		Metadata:       d.Metadata,
		Created:        m.now(),
	}

	m.transactions[d.PlayerID] = append(m.transactions[d.PlayerID], tx)
	if d.IdempotencyKey != "" {
		m.idempotency[d.IdempotencyKey] = tx
	}
	m.balances[key] = next

	return tx, nil
}

// Balances implements Store
func (m *MemoryStore) Balances(_ context.Context, playerID string) (*Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := &Balances{PlayerID: playerID}
	for _, d := range Denominations {
		key := balanceKey{playerID: playerID, denomination: d}
		bal, ok := m.balances[key]
		if !ok {
			m.balances[key] = bal
		}
		b.Set(d, bal)
	}

	return b, nil
}

// Transactions implements Store
func (m *MemoryStore) Transactions(_ context.Context, playerID string, d Denomination, limit int) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.transactions[playerID]
	out := make([]*Transaction, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}

		if d == "" || all[i].Denomination == d {
			out = append(out, all[i])
		}
	}

	return out, nil
}

// Replay folds a player's transaction log and returns the resulting balance.
// It must always equal the materialized balance.
func (m *MemoryStore) Replay(playerID string, d Denomination) Balance {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b Balance
	for _, tx := range m.transactions[playerID] {
		if tx.Denomination != d {
			continue
		}

		b.Balance += tx.BalanceDelta
		b.Reserved += tx.ReservedDelta
	}

	return b
}
