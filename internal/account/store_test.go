package account

import (
	"context"
	"errors"
	"testing"

	"github.com/congo-pay/xrp_wallet/internal/logging"
	"github.com/congo-pay/xrp_wallet/internal/storage"
)

type failingKV struct {
	storage.KV
}

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func newStore(t *testing.T, kv storage.KV) *Store {
	t.Helper()
	s := NewStore(kv, logging.Discard())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestLoadEmptyStore(t *testing.T) {
	s := newStore(t, storage.NewMemory())
	if got := s.List(); len(got) != 0 {
		t.Fatalf("expected no accounts, got %v", got)
	}
	if _, ok := s.Selected(); ok {
		t.Fatal("expected no selection")
	}
}

func TestAddRejectsDuplicateAddress(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, storage.NewMemory())

	if err := s.Add(ctx, Account{Address: "rAAA"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(ctx, Account{Address: "rAAA", Label: "again"}); !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	got := s.List()
	if len(got) != 1 || got[0] != (Account{Address: "rAAA"}) {
		t.Fatalf("expected single original account, got %v", got)
	}
}

func TestAddKeepsInsertionOrderAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := newStore(t, kv)
	for _, addr := range []string{"rCCC", "rAAA", "rBBB"} {
		if err := s.Add(ctx, Account{Address: addr, Seed: "s" + addr}); err != nil {
			t.Fatalf("add %s: %v", addr, err)
		}
	}

	reloaded := newStore(t, kv)
	got := reloaded.List()
	if len(got) != 3 || got[0].Address != "rCCC" || got[1].Address != "rAAA" || got[2].Address != "rBBB" {
		t.Fatalf("unexpected persisted order: %v", got)
	}
	if got[0].Seed != "srCCC" {
		t.Fatalf("expected seed to persist, got %q", got[0].Seed)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := newStore(t, kv)
	_ = s.Add(ctx, Account{Address: "rAAA"})
	_ = s.Add(ctx, Account{Address: "rBBB"})

	removed, err := s.Remove(ctx, Account{Address: "rAAA"})
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	for _, a := range newStore(t, kv).List() {
		if a.Address == "rAAA" {
			t.Fatal("removed account still persisted")
		}
	}

	removed, err = s.Remove(ctx, Account{Address: "rZZZ"})
	if err != nil || removed {
		t.Fatalf("expected no-op for non member, removed=%v err=%v", removed, err)
	}
	if got := s.List(); len(got) != 1 || got[0].Address != "rBBB" {
		t.Fatalf("unexpected accounts: %v", got)
	}
}

func TestSelectPersistsPointer(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := newStore(t, kv)

	// selection of an account that is not in the list is allowed
	if err := s.Select(ctx, &Account{Address: "rOutside"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	selected, ok := newStore(t, kv).Selected()
	if !ok || selected.Address != "rOutside" {
		t.Fatalf("expected persisted selection, got %v %v", selected, ok)
	}

	if err := s.Select(ctx, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := newStore(t, kv).Selected(); ok {
		t.Fatal("expected cleared selection to persist")
	}
}

func TestAddLeavesStateUnchangedWhenPersistFails(t *testing.T) {
	s := newStore(t, failingKV{KV: storage.NewMemory()})
	if err := s.Add(context.Background(), Account{Address: "rAAA"}); err == nil {
		t.Fatal("expected persist error")
	}
	if got := s.List(); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}
