package xrpl

import "testing"

func TestEncodeAccountZero(t *testing.T) {
	got, err := EncodeAccountID(make([]byte, 20))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got != "rrrrrrrrrrrrrrrrrrrrrhoLvTp" {
		t.Fatalf("unexpected account zero address %s", got)
	}
}

func TestAddressFromPublicKey(t *testing.T) {
	// Key pair of the "masterpassphrase" genesis account.
	got, err := AddressFromPublicKey("0330E7FC9D56BB25D6893BA3F317AE5BCF33B3291BD63DB32654A313222F7FD020")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if got != fundedAccount {
		t.Fatalf("expected %s, got %s", fundedAccount, got)
	}

	if _, err := AddressFromPublicKey("abcd"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestDecodeAddressRoundTrip(t *testing.T) {
	id, err := DecodeAddress(fundedAccount)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	again, err := EncodeAccountID(id)
	if err != nil || again != fundedAccount {
		t.Fatalf("round trip gave %s (%v)", again, err)
	}
}

func TestValidAddressRejectsCorruption(t *testing.T) {
	for _, addr := range []string{
		"",
		"rAAA",
		"rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTj",
		"0Hb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
	} {
		if ValidAddress(addr) {
			t.Fatalf("expected %q to be invalid", addr)
		}
	}
	if !ValidAddress(fundedAccount) {
		t.Fatal("expected genesis address to be valid")
	}
}
