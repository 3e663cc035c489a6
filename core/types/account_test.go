package types

import (
	"errors"
	"strings"
	"testing"
)

func TestAccountIDClassicRoundTrip(t *testing.T) {
	var id AccountID
	for i := range id {
		id[i] = byte(i * 7)
	}
	addr := id.String()
	if !strings.HasPrefix(addr, "r") {
		t.Fatalf("expected classic address prefix, got %s", addr)
	}
	parsed, err := ParseAccountID(addr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("round trip mismatch: %x != %x", parsed, id)
	}
}

func TestParseAccountIDHex(t *testing.T) {
	raw := "00112233445566778899aabbccddeeff00112233"
	id, err := ParseAccountID(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Hex() != raw {
		t.Fatalf("unexpected hex %s", id.Hex())
	}
}

func TestParseAccountIDRejectsBadChecksum(t *testing.T) {
	var id AccountID
	id[0] = 1
	addr := []byte(id.String())
	last := addr[len(addr)-1]
	if last == 'r' {
		addr[len(addr)-1] = 'p'
	} else {
		addr[len(addr)-1] = 'r'
	}
	_, err := ParseAccountID(string(addr))
	if err == nil {
		t.Fatalf("expected error for corrupted address")
	}
	if !errors.Is(err, ErrChecksumMismatch) && !errors.Is(err, ErrInvalidAccountID) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestZeroAccountSentinel(t *testing.T) {
	if !(AccountID{}).IsZero() {
		t.Fatalf("zero id should report IsZero")
	}
	if _, err := ParseAccountID(""); !errors.Is(err, ErrInvalidAccountID) {
		t.Fatalf("expected ErrInvalidAccountID for empty input, got %v", err)
	}
}

func TestAssetLabels(t *testing.T) {
	if NativeAsset.String() != "XRP" || !NativeAsset.Native() {
		t.Fatalf("unexpected native asset rendering")
	}
	issued := Asset{Currency: "drippy"}
	if issued.Code() != "DRIPPY" {
		t.Fatalf("unexpected code %s", issued.Code())
	}
}
