// Package live keeps the selected account's balance and history current.
// The Controller owns the account subscription on a long-lived session,
// turns transaction events into notifications and resynchronizes state
// after every event, selection change or explicit refresh.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/congo-pay/xrp_wallet/internal/account"
	"github.com/congo-pay/xrp_wallet/internal/ledger"
	"github.com/congo-pay/xrp_wallet/internal/notification"
	"github.com/congo-pay/xrp_wallet/internal/xrpl"
)

// ErrClosed is returned by Select after Close.
var ErrClosed = errors.New("live controller closed")

// Options tune subscription setup. The zero value makes a single attempt.
type Options struct {
	// SubscribeRetries is the number of extra attempts after a failed subscribe.
	SubscribeRetries int
	// SubscribeBackoff is the wait before the first retry; it doubles each time.
	SubscribeBackoff time.Duration
}

type subscription struct {
	address  string
	listener xrpl.ListenerID
	lost     xrpl.ListenerID
}

// Controller is the live update state machine. Select is the only
// transition; calls to it are serialized.
type Controller struct {
	session  xrpl.Session
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
	opts     Options

	transition sync.Mutex

	mu           sync.Mutex
	state        State
	selected     *account.Account
	sub          *subscription
	generation   uint64
	subErr       error
	balance      ledger.Balance
	transactions []ledger.Transaction
	reserve      ledger.Reserve
	seq          uint64
	balanceSeq   uint64
	historySeq   uint64
	closed       bool

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController returns an Idle controller. It owns session from now on and
// disconnects it on Close.
func NewController(session xrpl.Session, l ledger.Ledger, notifier notification.Notifier, logger *slog.Logger, opts Options) *Controller {
	bg, cancel := context.WithCancel(context.Background())
	return &Controller{
		session:      session,
		ledger:       l,
		notifier:     notifier,
		logger:       logger.With("component", "live"),
		opts:         opts,
		transactions: []ledger.Transaction{},
		bg:           bg,
		cancel:       cancel,
	}
}

// Select makes a the active account, or returns to Idle when a is nil.
// The previous subscription is torn down first; its unsubscribe is best
// effort. Balance and history of a are refreshed in the background right
// away. A subscribe failure is logged, leaves the controller Degraded and
// is returned.
func (c *Controller) Select(ctx context.Context, a *account.Account) error {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	c.teardown(ctx)

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.subErr = nil
	c.transactions = []ledger.Transaction{}
	// results of fetches started before this point belong to the old selection
	c.balanceSeq, c.historySeq = c.seq, c.seq
	if a == nil {
		c.selected = nil
		c.balance = ledger.Balance{}
		c.state = Idle
		c.mu.Unlock()
		c.logger.Info("selection cleared")
		return nil
	}
	selected := *a
	c.selected = &selected
	c.balance = ledger.UnknownBalance(selected.Address)
	c.state = Subscribing
	c.mu.Unlock()

	c.logger.Info("account selected", "address", selected.Address)
	c.refreshAsync(selected.Address)

	sub, err := c.subscribe(ctx, selected.Address, gen)

	if err == nil && !c.session.IsConnected() {
		// dropped between the subscribe response and now
		c.removeListeners(sub)
		sub, err = nil, xrpl.ErrConnectionLost
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.subErr = err
		c.state = Degraded
		c.logger.Error("subscribe failed", "address", selected.Address, "error", err)
		return fmt.Errorf("subscribe %s: %w", selected.Address, err)
	}
	c.sub = sub
	c.state = Live
	c.logger.Info("live updates started", "address", selected.Address)
	return nil
}

// subscribe connects the shared session if needed, attaches the event
// listener for generation gen and subscribes to address, retrying as
// configured. The listener is removed again when every attempt fails.
func (c *Controller) subscribe(ctx context.Context, address string, gen uint64) (*subscription, error) {
	id := c.session.On(xrpl.EventTransaction, c.listener(address, gen))
	lost := c.session.On(xrpl.EventDisconnected, c.lostListener(address, gen))
	sub := &subscription{address: address, listener: id, lost: lost}

	var err error
	backoff := c.opts.SubscribeBackoff
	for attempt := 0; attempt <= c.opts.SubscribeRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying subscribe", "address", address, "attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				c.removeListeners(sub)
				return nil, ctx.Err()
			}
			backoff *= 2
		}
		if err = c.session.Connect(ctx); err != nil {
			continue
		}
		if err = c.session.Subscribe(ctx, address); err == nil {
			return sub, nil
		}
	}
	c.removeListeners(sub)
	return nil, err
}

func (c *Controller) removeListeners(sub *subscription) {
	c.session.RemoveListener(xrpl.EventTransaction, sub.listener)
	c.session.RemoveListener(xrpl.EventDisconnected, sub.lost)
}

// teardown removes the listener of the current subscription and
// unsubscribes its account. Unsubscribe failures are only logged.
func (c *Controller) teardown(ctx context.Context) {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub == nil {
		return
	}

	c.removeListeners(sub)
	if !c.session.IsConnected() {
		return
	}
	if err := c.session.Unsubscribe(ctx, sub.address); err != nil {
		c.logger.Warn("unsubscribe failed", "address", sub.address, "error", err)
		return
	}
	c.logger.Info("live updates stopped", "address", sub.address)
}

func (c *Controller) listener(address string, gen uint64) xrpl.Handler {
	return func(payload json.RawMessage) {
		ev, err := xrpl.ParseTransactionEvent(payload)
		if err != nil {
			c.logger.Warn("ignoring stream message", "address", address, "error", err)
			return
		}

		c.mu.Lock()
		current := c.generation == gen && !c.closed
		c.mu.Unlock()
		if !current {
			c.logger.Debug("dropping event of previous subscription", "address", address, "hash", ev.Transaction.Hash)
			return
		}
		c.handleEvent(address, ev)
	}
}

// lostListener degrades the subscription of generation gen when the
// session loses its connection. Selecting again resubscribes.
func (c *Controller) lostListener(address string, gen uint64) xrpl.Handler {
	return func(payload json.RawMessage) {
		cause := xrpl.ParseDisconnectEvent(payload)

		c.mu.Lock()
		sub := c.sub
		if c.generation != gen || c.closed || sub == nil {
			c.mu.Unlock()
			return
		}
		c.sub = nil
		c.subErr = cause
		c.state = Degraded
		c.mu.Unlock()

		c.removeListeners(sub)
		c.logger.Error("live updates interrupted", "address", address, "error", cause)
	}
}

func (c *Controller) handleEvent(address string, ev xrpl.TransactionEvent) {
	tx := ev.Transaction
	amount, hasAmount := eventAmount(ev)
	payment := tx.TransactionType == xrpl.TransactionPayment && hasAmount
	var msg *notification.Message
	switch {
	case !ev.Meta.Succeeded():
		m := notification.Failed(address, tx.Hash)
		msg = &m
	case tx.Account != address && tx.Destination != address:
		// only resynchronized
	case !payment:
		m := notification.Succeeded(address, tx.TransactionType, tx.Hash)
		msg = &m
	case tx.Account == address:
		m := notification.Sent(address, amount, tx.Hash)
		msg = &m
	default:
		m := notification.Received(address, amount, tx.Hash)
		msg = &m
	}
	if msg != nil && c.notifier != nil {
		if err := c.notifier.Send(c.bg, *msg); err != nil {
			c.logger.Warn("notification failed", "kind", msg.Kind, "error", err)
		}
	}

	c.logger.Info("transaction event", "address", address, "hash", tx.Hash, "result", ev.Meta.TransactionResult)
	c.refreshAsync(address)
}

// eventAmount prefers delivered_amount, falling back to the nominal amount
// when it is absent or "unavailable". It reports false when neither can be
// displayed.
func eventAmount(ev xrpl.TransactionEvent) (string, bool) {
	for _, a := range []xrpl.Amount{ev.Meta.DeliveredAmount, ev.Transaction.SentAmount()} {
		if a.Issued != nil {
			return a.String(), true
		}
		if _, err := a.XRP(); err == nil {
			return a.String(), true
		}
	}
	return "", false
}

// RefreshBalance fetches the balance of the selected account and applies
// it unless a newer result was applied meanwhile. Without a selection it
// does nothing.
func (c *Controller) RefreshBalance(ctx context.Context) {
	if a, ok := c.Selected(); ok {
		c.refreshBalance(ctx, a.Address)
	}
}

// RefreshTransactions is RefreshBalance for the transaction history.
func (c *Controller) RefreshTransactions(ctx context.Context) {
	if a, ok := c.Selected(); ok {
		c.refreshHistory(ctx, a.Address)
	}
}

// LoadReserve fetches the network reserve. A failure leaves it unknown.
func (c *Controller) LoadReserve(ctx context.Context) {
	reserve, err := c.ledger.Reserve(ctx)
	if err != nil {
		c.logger.Warn("reserve unavailable", "error", err)
	}
	c.mu.Lock()
	c.reserve = reserve
	c.mu.Unlock()
}

func (c *Controller) refreshAsync(address string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(2)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.refreshBalance(c.bg, address)
	}()
	go func() {
		defer c.wg.Done()
		c.refreshHistory(c.bg, address)
	}()
}

func (c *Controller) refreshBalance(ctx context.Context, address string) {
	seq := c.nextSeq()
	balance, err := c.ledger.Balance(ctx, address)
	if err != nil {
		c.logger.Debug("balance unknown", "address", address, "error", err)
	}
	c.applyBalance(seq, address, balance)
}

// applyBalance stores balance unless address is no longer selected or a
// result of a later fetch was already applied.
func (c *Controller) applyBalance(seq uint64, address string, balance ledger.Balance) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isSelected(address) || seq <= c.balanceSeq {
		c.logger.Debug("discarding stale balance", "address", address, "seq", seq)
		return false
	}
	c.balanceSeq = seq
	c.balance = balance
	return true
}

func (c *Controller) refreshHistory(ctx context.Context, address string) {
	seq := c.nextSeq()
	txs, err := c.ledger.History(ctx, address)
	if err != nil {
		c.logger.Debug("transactions unavailable", "address", address, "error", err)
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	c.applyHistory(seq, address, txs)
}

func (c *Controller) applyHistory(seq uint64, address string, txs []ledger.Transaction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isSelected(address) || seq <= c.historySeq {
		c.logger.Debug("discarding stale transactions", "address", address, "seq", seq)
		return false
	}
	c.historySeq = seq
	c.transactions = txs
	return true
}

func (c *Controller) nextSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// isSelected must be called with c.mu held.
func (c *Controller) isSelected(address string) bool {
	return c.selected != nil && c.selected.Address == address
}

// Selected returns the selected account, if any.
func (c *Controller) Selected() (account.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return account.Account{}, false
	}
	return *c.selected, true
}

// State returns the current subscription state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the exposed state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:        c.state,
		Balance:      c.balance,
		Transactions: append([]ledger.Transaction{}, c.transactions...),
		Reserve:      c.reserve,
	}
	if c.selected != nil {
		selected := *c.selected
		s.Selected = &selected
	}
	if c.subErr != nil {
		s.SubscribeError = c.subErr.Error()
	}
	return s
}

// Wait blocks until background refreshes started so far have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close tears down the subscription, disconnects the session and waits for
// background refreshes. The controller cannot be used afterwards.
func (c *Controller) Close(ctx context.Context) error {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.teardown(ctx)

	c.mu.Lock()
	c.closed = true
	c.state = Idle
	c.mu.Unlock()

	c.cancel()
	err := c.session.Disconnect()
	c.wg.Wait()
	return err
}
