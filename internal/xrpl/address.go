package xrpl

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	addresscodec "github.com/Peersyst/xrpl-go/address-codec"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // account IDs are defined with RIPEMD-160
)

const (
	accountIDLen = 20
	publicKeyLen = 33
)

// ErrInvalidAddress is returned for strings that are not classic addresses.
var ErrInvalidAddress = errors.New("invalid classic address")

// EncodeAccountID renders a 20 byte account ID as a classic address.
func EncodeAccountID(id []byte) (string, error) {
	if len(id) != accountIDLen {
		return "", fmt.Errorf("account id must be %d bytes, got %d", accountIDLen, len(id))
	}
	return addresscodec.EncodeAccountIDToClassicAddress(id)
}

// DecodeAddress returns the account ID of a classic address after checking
// its version and checksum.
func DecodeAddress(address string) ([]byte, error) {
	if !addresscodec.IsValidClassicAddress(address) {
		return nil, ErrInvalidAddress
	}
	_, id, err := addresscodec.DecodeClassicAddressToAccountID(address)
	if err != nil || len(id) != accountIDLen {
		return nil, ErrInvalidAddress
	}
	return id, nil
}

// ValidAddress reports whether address is a well formed classic address.
func ValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// AddressFromPublicKey derives the classic address owned by a hex encoded
// 33 byte public key (secp256k1 compressed, or 0xED prefixed ed25519).
func AddressFromPublicKey(publicKeyHex string) (string, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	if len(key) != publicKeyLen {
		return "", fmt.Errorf("public key must be %d bytes, got %d", publicKeyLen, len(key))
	}
	sha := sha256.Sum256(key)
	h := ripemd160.New()
	h.Write(sha[:])
	return EncodeAccountID(h.Sum(nil))
}
