package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/congo-pay/xrp_wallet/internal/account"
	"github.com/congo-pay/xrp_wallet/internal/live"
)

var (
	// ErrInvalidAccount is returned when an added account has no address.
	ErrInvalidAccount = errors.New("invalid account")
	// ErrUnknownAccount is returned for addresses that are not in the store.
	ErrUnknownAccount = errors.New("unknown account")
)

// Service is the UI surface of the wallet: the account list, the selected
// account and its live state.
type Service struct {
	// mu keeps the persisted selection and the controller selection in step.
	mu     sync.Mutex
	store  *account.Store
	live   *live.Controller
	logger *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(store *account.Store, controller *live.Controller, logger *slog.Logger) *Service {
	return &Service{store: store, live: controller, logger: logger.With("component", "wallet")}
}

// Start loads persisted accounts, fetches the network reserve once and
// resumes live updates for the persisted selection.
func (s *Service) Start(ctx context.Context) error {
	if err := s.store.Load(ctx); err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	s.live.LoadReserve(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if selected, ok := s.store.Selected(); ok {
		// a subscribe failure leaves the controller degraded; it is not fatal
		_ = s.live.Select(ctx, &selected)
	}
	return nil
}

// Accounts lists the known accounts in insertion order.
func (s *Service) Accounts() []account.Account {
	return s.store.List()
}

// AddAccount stores a. The address is not checked against the ledger
// address format. Adding a known address returns
// account.ErrDuplicateAccount and changes nothing.
func (s *Service) AddAccount(ctx context.Context, a account.Account) error {
	if a.Address == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidAccount)
	}
	return s.store.Add(ctx, a)
}

// RemoveAccount removes the account with address. Removing the selected
// account also clears the selection.
func (s *Service) RemoveAccount(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.store.Find(address)
	if !ok {
		return ErrUnknownAccount
	}
	if _, err := s.store.Remove(ctx, a); err != nil {
		return err
	}
	if selected, ok := s.store.Selected(); ok && selected.Address == address {
		return s.selectAccount(ctx, nil)
	}
	return nil
}

// SelectWallet makes the account with address the active one; an empty
// address clears the selection.
func (s *Service) SelectWallet(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if address == "" {
		return s.selectAccount(ctx, nil)
	}
	a, ok := s.store.Find(address)
	if !ok {
		return ErrUnknownAccount
	}
	return s.selectAccount(ctx, &a)
}

// selectAccount must be called with s.mu held.
func (s *Service) selectAccount(ctx context.Context, a *account.Account) error {
	if err := s.store.Select(ctx, a); err != nil {
		return err
	}
	if err := s.live.Select(ctx, a); errors.Is(err, live.ErrClosed) {
		return err
	}
	return nil
}

// RefreshBalance resynchronizes the balance of the selected account.
func (s *Service) RefreshBalance(ctx context.Context) State {
	s.live.RefreshBalance(ctx)
	return s.State()
}

// RefreshTransactions resynchronizes the history of the selected account.
func (s *Service) RefreshTransactions(ctx context.Context) State {
	s.live.RefreshTransactions(ctx)
	return s.State()
}

// State returns the current UI view.
func (s *Service) State() State {
	return stateOf(s.live.Snapshot())
}
