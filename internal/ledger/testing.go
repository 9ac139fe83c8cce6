package ledger

import "github.com/shopspring/decimal"

// SeedBalance funds address with the given XRP amount on the in-memory ledger.
func SeedBalance(l *InMemory, address, xrp string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[address] = decimal.RequireFromString(xrp)
}

// SeedHistory replaces the transaction history of address.
func SeedHistory(l *InMemory, address string, txs ...Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history[address] = append([]Transaction{}, txs...)
}

// SeedReserve sets the reserve returned by the in-memory ledger.
func SeedReserve(l *InMemory, xrp string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reserve = Reserve{Amount: decimal.RequireFromString(xrp), Known: true}
}

// FailWith makes every read fail with err; nil restores normal behavior.
func FailWith(l *InMemory, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// Hold blocks balance and history reads of address until the returned
// release function is called.
func Hold(l *InMemory, address string) (release func()) {
	ch := make(chan struct{})
	l.mu.Lock()
	l.holds[address] = ch
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		if l.holds[address] == ch {
			delete(l.holds, address)
		}
		l.mu.Unlock()
		close(ch)
	}
}

// Calls reports how many balance ("balance") or history ("history") reads
// of address completed.
func Calls(l *InMemory, kind, address string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.calls[kind+":"+address]
}
