// Package solana validates Solana account addresses used as token identifiers.
package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// AddressLen is the byte length of a Solana public key.
const AddressLen = 32

// ErrInvalidAddress is returned for strings that do not decode to a 32-byte key.
var ErrInvalidAddress = errors.New("invalid solana address")

// Address is a decoded 32-byte Solana public key.
type Address [AddressLen]byte

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	var a Address
	if s == "" {
		return a, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != AddressLen {
		return a, fmt.Errorf("%w: decoded %d bytes, want %d", ErrInvalidAddress, len(raw), AddressLen)
	}
	copy(a[:], raw)
	return a, nil
}

// String returns the base58 form.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// OnCurve reports whether the key is a valid ed25519 point.
// Wallets are on the curve; program-derived addresses are not.
func (a Address) OnCurve() bool {
	return IsOnCurve(a[:])
}

// IsOnCurve reports whether point decodes to an ed25519 curve point.
func IsOnCurve(point []byte) bool {
	if len(point) != AddressLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// ValidMint reports whether s is usable as a mint address.
func ValidMint(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}
