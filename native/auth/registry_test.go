package auth

import (
	"errors"
	"testing"

	"gamechain/state"
	"gamechain/storage"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(state.NewManager(storage.NewMemDB()), "test")
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func TestInstantiateSeedsOwnerAndAdmin(t *testing.T) {
	reg := newTestRegistry(t)
	owner := addr(1)
	if err := reg.Instantiate(owner); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	got, err := reg.Owner()
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if got != owner {
		t.Fatalf("owner mismatch: got %x", got)
	}
	if !reg.IsAdmin(owner) {
		t.Fatalf("instantiating account should be admin")
	}
	if reg.IsAdmin(addr(2)) {
		t.Fatalf("unknown account should not be admin")
	}
}

func TestOwnerUnset(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.Owner(); !errors.Is(err, ErrOwnerUnset) {
		t.Fatalf("expected ErrOwnerUnset, got %v", err)
	}
}

func TestTransferOwnershipOwnerOnly(t *testing.T) {
	reg := newTestRegistry(t)
	owner := addr(1)
	admin := addr(2)
	next := addr(3)
	if err := reg.Instantiate(owner); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if err := reg.SetAdmin(owner, admin, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	// Admin status does not grant ownership transfer.
	if err := reg.TransferOwnership(admin, next); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := reg.TransferOwnership(owner, next); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	got, err := reg.Owner()
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if got != next {
		t.Fatalf("owner mismatch after transfer: got %x", got)
	}
	// The old owner keeps its admin flag but loses ownership.
	if err := reg.TransferOwnership(owner, addr(4)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old owner should be rejected, got %v", err)
	}
	if !reg.IsAdmin(owner) {
		t.Fatalf("old owner should still be admin")
	}
}

func TestSetAdminRevocation(t *testing.T) {
	reg := newTestRegistry(t)
	owner := addr(1)
	admin := addr(2)
	if err := reg.Instantiate(owner); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if err := reg.SetAdmin(admin, admin, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner set admin should fail, got %v", err)
	}
	if err := reg.SetAdmin(owner, admin, true); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !reg.IsAdmin(admin) {
		t.Fatalf("grant not visible")
	}
	if err := reg.SetAdmin(owner, admin, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if reg.IsAdmin(admin) {
		t.Fatalf("revocation not visible")
	}
}

func TestSetSignerRequiresAdmin(t *testing.T) {
	reg := newTestRegistry(t)
	owner := addr(1)
	if err := reg.Instantiate(owner); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	key := []byte{0x02, 0xaa, 0xbb}
	if err := reg.SetSigner(addr(9), key); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := reg.SetSigner(owner, key); err != nil {
		t.Fatalf("set signer: %v", err)
	}
	got := reg.Signer()
	if string(got) != string(key) {
		t.Fatalf("signer mismatch: got %x", got)
	}
}

func TestConsumeNonceReplay(t *testing.T) {
	reg := newTestRegistry(t)
	if reg.IsUsedNonce("n-1") {
		t.Fatalf("fresh nonce should be unused")
	}
	if err := reg.ConsumeNonce("n-1"); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if !reg.IsUsedNonce("n-1") {
		t.Fatalf("nonce should be marked used")
	}
	if err := reg.ConsumeNonce("n-1"); !errors.Is(err, ErrNonceUsed) {
		t.Fatalf("expected ErrNonceUsed, got %v", err)
	}
	// Different modules keep independent nonce sets.
	other := NewRegistry(state.NewManager(storage.NewMemDB()), "other")
	if err := other.ConsumeNonce("n-1"); err != nil {
		t.Fatalf("cross-module nonce should be fresh: %v", err)
	}
}

func TestCheckExpiryWindow(t *testing.T) {
	const now = int64(1_700_000_000)
	cases := []struct {
		name    string
		ts      int64
		expired bool
	}{
		{"fresh", now - 1, false},
		{"edge inside", now - SignatureTTLSeconds + 1, false},
		{"edge expired", now - SignatureTTLSeconds, true},
		{"stale", now - 3600, true},
		{"future", now + 3600, false},
	}
	for _, tc := range cases {
		err := CheckExpiry(tc.ts, now)
		if tc.expired && !errors.Is(err, ErrTimeExpired) {
			t.Fatalf("%s: expected ErrTimeExpired, got %v", tc.name, err)
		}
		if !tc.expired && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}
