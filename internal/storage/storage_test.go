package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	_ "modernc.org/sqlite"
)

// exerciseKV runs the behaviour every backend must share.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "accounts"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}
	if err := kv.Set(ctx, "accounts", []byte(`[{"address":"rAAA"}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "accounts", []byte(`[{"address":"rBBB"}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := kv.Get(ctx, "accounts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"address":"rBBB"}]` {
		t.Fatalf("unexpected value %s", got)
	}
	if err := kv.Delete(ctx, "accounts"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := kv.Get(ctx, "accounts"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := kv.Delete(ctx, "never-set"); err != nil {
		t.Fatalf("delete of missing key: %v", err)
	}
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemory())
}

func TestRedisKV(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseKV(t, NewRedis(client, ""))

	if err := NewRedis(client, "").Set(context.Background(), "selectedAccount", []byte(`{}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists(defaultRedisPrefix + "selectedAccount") {
		t.Fatal("expected prefixed key in redis")
	}
}

func TestSQLiteKV(t *testing.T) {
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "wallet.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	kv, err := NewSQLite(context.Background(), db)
	if err != nil {
		t.Fatalf("new sqlite kv: %v", err)
	}
	exerciseKV(t, kv)
}
