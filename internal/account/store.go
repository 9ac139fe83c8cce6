// Package account keeps the set of known accounts and the selected one,
// persisted through a storage.KV.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/congo-pay/xrp_wallet/internal/storage"
)

const (
	keyAccounts = "accounts"
	keySelected = "selectedAccount"
)

// ErrDuplicateAccount is returned by Add when the address is already known.
// The store is left unchanged.
var ErrDuplicateAccount = errors.New("account already exists")

// Store holds accounts in insertion order and the current selection.
type Store struct {
	kv     storage.KV
	logger *slog.Logger

	mu       sync.RWMutex
	accounts []Account
	selected *Account
}

// NewStore builds an empty store; call Load to read persisted state.
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	return &Store{kv: kv, logger: logger.With("component", "account_store")}
}

// Load replaces the in-memory state with the persisted one. Missing keys
// yield an empty list and no selection.
func (s *Store) Load(ctx context.Context) error {
	var accounts []Account
	if err := s.read(ctx, keyAccounts, &accounts); err != nil {
		return err
	}
	var selected *Account
	if err := s.read(ctx, keySelected, &selected); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = accounts
	s.selected = selected
	return nil
}

// List returns a copy of the accounts in insertion order.
func (s *Store) List() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Account{}, s.accounts...)
}

// Find looks an account up by address.
func (s *Store) Find(address string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Address == address {
			return a, true
		}
	}
	return Account{}, false
}

// Add appends a and persists the list.
func (s *Store) Add(ctx context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Address == a.Address {
			s.logger.Info("account duplication: not added", "address", a.Address)
			return ErrDuplicateAccount
		}
	}

	updated := append(append([]Account{}, s.accounts...), a)
	if err := s.write(ctx, keyAccounts, updated); err != nil {
		return err
	}
	s.accounts = updated
	return nil
}

// Remove deletes the account with a's address and persists the remaining
// list. It reports whether an account was removed.
func (s *Store) Remove(ctx context.Context, a Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := make([]Account, 0, len(s.accounts))
	for _, existing := range s.accounts {
		if existing.Address != a.Address {
			updated = append(updated, existing)
		}
	}
	if len(updated) == len(s.accounts) {
		return false, nil
	}

	if err := s.write(ctx, keyAccounts, updated); err != nil {
		return false, err
	}
	s.accounts = updated
	return true, nil
}

// Select persists a as the selected account; nil clears the selection.
// Membership in the list is the caller's concern.
func (s *Store) Select(ctx context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == nil {
		if err := s.kv.Delete(ctx, keySelected); err != nil {
			return fmt.Errorf("clear %s: %w", keySelected, err)
		}
		s.selected = nil
		return nil
	}

	selected := *a
	if err := s.write(ctx, keySelected, selected); err != nil {
		return err
	}
	s.selected = &selected
	return nil
}

// Selected returns the selected account, if any.
func (s *Store) Selected() (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return Account{}, false
	}
	return *s.selected, true
}

func (s *Store) read(ctx context.Context, key string, dst any) error {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
