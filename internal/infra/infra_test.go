package infra

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), "")
	if err != nil {
		t.Fatalf("new redis client: %v", err)
	}
	defer client.Close()

	if _, err := NewRedisClient(context.Background(), "", "xrp-wallet"); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestOpenSQLiteCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallet.db")
	db, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE smoke (id INTEGER)`); err != nil {
		t.Fatalf("exec: %v", err)
	}
}
