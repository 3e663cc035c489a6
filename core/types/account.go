package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// AccountIDLength is the size of a ledger account identifier in bytes.
const AccountIDLength = 20

// rippleAlphabet is the base58 dictionary used by classic ledger addresses.
var rippleAlphabet = base58.NewAlphabet("rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz")

const classicAddressPrefix byte = 0x00

var (
	ErrInvalidAccountID = errors.New("types: invalid account id")
	ErrChecksumMismatch = errors.New("types: address checksum mismatch")
)

// AccountID identifies a ledger account. The all-zero value is reserved as the
// "no account" sentinel and never names a real account.
type AccountID [AccountIDLength]byte

// IsZero reports whether the identifier is the all-zero sentinel.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// Hex returns the lowercase hex form of the identifier.
func (a AccountID) Hex() string {
	return hex.EncodeToString(a[:])
}

// String renders the classic base58 address (r...).
func (a AccountID) String() string {
	payload := make([]byte, 0, 1+AccountIDLength+4)
	payload = append(payload, classicAddressPrefix)
	payload = append(payload, a[:]...)
	sum := addressChecksum(payload)
	payload = append(payload, sum[:]...)
	return base58.EncodeAlphabet(payload, rippleAlphabet)
}

// MarshalText encodes the account as its classic address.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts either a classic address or 40 hex characters.
func (a *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAccountID decodes an account identifier from a classic r-address or a
// 40 character hex string.
func ParseAccountID(raw string) (AccountID, error) {
	var id AccountID
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return id, fmt.Errorf("%w: empty", ErrInvalidAccountID)
	}
	if len(trimmed) == 2*AccountIDLength {
		if decoded, err := hex.DecodeString(trimmed); err == nil {
			copy(id[:], decoded)
			return id, nil
		}
	}
	if trimmed[0] != 'r' {
		return id, fmt.Errorf("%w: %q", ErrInvalidAccountID, raw)
	}
	decoded, err := base58.DecodeAlphabet(trimmed, rippleAlphabet)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidAccountID, err)
	}
	if len(decoded) != 1+AccountIDLength+4 || decoded[0] != classicAddressPrefix {
		return id, fmt.Errorf("%w: %q", ErrInvalidAccountID, raw)
	}
	body := decoded[:1+AccountIDLength]
	want := addressChecksum(body)
	if string(want[:]) != string(decoded[1+AccountIDLength:]) {
		return id, ErrChecksumMismatch
	}
	copy(id[:], decoded[1:1+AccountIDLength])
	return id, nil
}

// MustParseAccountID is ParseAccountID for constants and tests.
func MustParseAccountID(raw string) AccountID {
	id, err := ParseAccountID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func addressChecksum(payload []byte) [4]byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	var out [4]byte
	copy(out[:], second[:4])
	return out
}

// Asset selects the unit a payout is denominated in. The zero value is the
// native unit (drops); an issued asset carries a currency code and issuer.
type Asset struct {
	Currency string
	Issuer   AccountID
}

// NativeAsset is the ledger's native unit.
var NativeAsset = Asset{}

// Native reports whether the asset is the native unit.
func (a Asset) Native() bool {
	return strings.TrimSpace(a.Currency) == ""
}

// String renders XRP for native payouts and CUR/issuer otherwise.
func (a Asset) String() string {
	if a.Native() {
		return "XRP"
	}
	return strings.ToUpper(strings.TrimSpace(a.Currency)) + "/" + a.Issuer.String()
}

// Code returns the short label used for metrics and policy lookups.
func (a Asset) Code() string {
	if a.Native() {
		return "XRP"
	}
	return strings.ToUpper(strings.TrimSpace(a.Currency))
}
