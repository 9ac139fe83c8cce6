package xrpl

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDropsToXRP(t *testing.T) {
	got, err := DropsToXRP("25000001")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got.String() != "25.000001" {
		t.Fatalf("expected 25.000001, got %s", got)
	}

	if _, err := DropsToXRP("1.5"); err == nil {
		t.Fatal("expected error for fractional drops")
	}
	if _, err := DropsToXRP("unavailable"); err == nil {
		t.Fatal("expected error for non numeric drops")
	}
}

func TestXRPToDrops(t *testing.T) {
	got, err := XRPToDrops(decimal.RequireFromString("10.5"))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got != "10500000" {
		t.Fatalf("expected 10500000, got %s", got)
	}

	if _, err := XRPToDrops(decimal.RequireFromString("0.0000001")); err == nil {
		t.Fatal("expected error for sub-drop precision")
	}
	if _, err := XRPToDrops(decimal.RequireFromString("-1")); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestAmountDecodesNativeAndIssued(t *testing.T) {
	var native Amount
	if err := json.Unmarshal([]byte(`"1000000"`), &native); err != nil {
		t.Fatalf("decode native: %v", err)
	}
	if !native.IsNative() || native.String() != "1 XRP" {
		t.Fatalf("unexpected native amount: %+v", native)
	}

	var issued Amount
	if err := json.Unmarshal([]byte(`{"currency":"USD","issuer":"rIssuer","value":"3"}`), &issued); err != nil {
		t.Fatalf("decode issued: %v", err)
	}
	if issued.IsNative() || issued.String() != "3 USD" {
		t.Fatalf("unexpected issued amount: %+v", issued)
	}

	b, err := json.Marshal(XRP("42"))
	if err != nil || string(b) != `"42"` {
		t.Fatalf("unexpected encoding %s (%v)", b, err)
	}
}
