package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// InMemory is a concurrency-safe Ledger useful for unit tests. Accounts
// without a seeded balance are unfunded.
type InMemory struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
	history  map[string][]Transaction
	reserve  Reserve
	err      error
	holds    map[string]chan struct{}
	calls    map[string]int
}

// NewInMemory creates an empty in-memory ledger.
func NewInMemory() *InMemory {
	return &InMemory{
		balances: make(map[string]decimal.Decimal),
		history:  make(map[string][]Transaction),
		holds:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
}

func (l *InMemory) Balance(ctx context.Context, address string) (Balance, error) {
	if err := l.wait(ctx, address); err != nil {
		return UnknownBalance(address), err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls["balance:"+address]++
	if l.err != nil {
		return UnknownBalance(address), l.err
	}
	amount, ok := l.balances[address]
	if !ok {
		return UnknownBalance(address), nil
	}
	return Balance{Address: address, Amount: amount, Known: true}, nil
}

func (l *InMemory) History(ctx context.Context, address string) ([]Transaction, error) {
	if err := l.wait(ctx, address); err != nil {
		return []Transaction{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls["history:"+address]++
	if l.err != nil {
		return []Transaction{}, l.err
	}
	return append([]Transaction{}, l.history[address]...), nil
}

func (l *InMemory) Reserve(context.Context) (Reserve, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.err != nil {
		return Reserve{}, l.err
	}
	return l.reserve, nil
}

// wait blocks while address is held.
func (l *InMemory) wait(ctx context.Context, address string) error {
	l.mu.RLock()
	hold := l.holds[address]
	l.mu.RUnlock()
	if hold == nil {
		return nil
	}
	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
