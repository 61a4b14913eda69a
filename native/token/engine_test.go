package token

import (
	"errors"
	"math/big"
	"testing"

	"gamechain/crypto"
	"gamechain/native/auth"
	"gamechain/state"
	"gamechain/storage"
)

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

type fixture struct {
	engine *Engine
	owner  [20]byte
	signer *crypto.PrivateKey
	now    int64
}

func newFixture(t *testing.T, cap *big.Int) *fixture {
	t.Helper()
	engine := NewEngine()
	engine.SetState(state.NewManager(storage.NewMemDB()))
	now := int64(1_700_000_000)
	engine.SetNowFunc(func() int64 { return now })

	owner := addr(1)
	if err := engine.Instantiate(owner, Info{Name: "Game Gold", Symbol: "GOLD", Decimals: 6, Cap: cap}); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	signer, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if err := engine.Registry().SetSigner(owner, signer.PubKey().CompressedBytes()); err != nil {
		t.Fatalf("set signer: %v", err)
	}
	return &fixture{engine: engine, owner: owner, signer: signer, now: now}
}

func (f *fixture) signMint(t *testing.T, p MintPayload) []byte {
	t.Helper()
	digest, err := auth.Digest(p)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	sig, err := f.signer.Sign(digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

func TestMintWithSignature(t *testing.T) {
	f := newFixture(t, nil)
	user := addr(7)
	payload := MintPayload{Sender: user, Amount: big.NewInt(500), Nonce: "mint-1", Timestamp: f.now}
	sig := f.signMint(t, payload)

	if err := f.engine.MintWithSignature(user, payload.Amount, payload.Nonce, payload.Timestamp, sig); err != nil {
		t.Fatalf("mint: %v", err)
	}
	balance, err := f.engine.BalanceOf(user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("balance mismatch: got %s", balance)
	}
	info, err := f.engine.Info()
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Supply.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("supply mismatch: got %s", info.Supply)
	}
}

func TestMintReplayRejected(t *testing.T) {
	f := newFixture(t, nil)
	user := addr(7)
	payload := MintPayload{Sender: user, Amount: big.NewInt(500), Nonce: "mint-1", Timestamp: f.now}
	sig := f.signMint(t, payload)

	if err := f.engine.MintWithSignature(user, payload.Amount, payload.Nonce, payload.Timestamp, sig); err != nil {
		t.Fatalf("first mint: %v", err)
	}
	err := f.engine.MintWithSignature(user, payload.Amount, payload.Nonce, payload.Timestamp, sig)
	if !errors.Is(err, auth.ErrNonceUsed) {
		t.Fatalf("expected ErrNonceUsed, got %v", err)
	}
	// Replay must leave supply untouched.
	info, err := f.engine.Info()
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Supply.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("supply changed on replay: got %s", info.Supply)
	}
}

func TestMintRetryAfterDiscardedFailure(t *testing.T) {
	base := storage.NewMemDB()
	engine := NewEngine()
	now := int64(1_700_000_000)
	engine.SetNowFunc(func() int64 { return now })

	setup := storage.NewOverlay(base)
	engine.SetState(state.NewManager(setup))
	owner := addr(1)
	if err := engine.Instantiate(owner, Info{Name: "Game Gold", Symbol: "GOLD", Decimals: 6}); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	signer, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if err := engine.Registry().SetSigner(owner, signer.PubKey().CompressedBytes()); err != nil {
		t.Fatalf("set signer: %v", err)
	}
	if err := setup.Commit(); err != nil {
		t.Fatalf("commit setup: %v", err)
	}

	user := addr(7)
	payload := MintPayload{Sender: user, Amount: big.NewInt(500), Nonce: "mint-1", Timestamp: now}

	// The failed call runs in its own overlay; discarding it takes the
	// consumed nonce with it.
	failed := storage.NewOverlay(base)
	engine.SetState(state.NewManager(failed))
	err = engine.MintWithSignature(user, payload.Amount, payload.Nonce, payload.Timestamp, make([]byte, 64))
	if !errors.Is(err, auth.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	failed.Discard()

	// The same nonce retries cleanly against the untouched base.
	retry := storage.NewOverlay(base)
	engine.SetState(state.NewManager(retry))
	digest, err := auth.Digest(payload)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := engine.MintWithSignature(user, payload.Amount, payload.Nonce, payload.Timestamp, sig); err != nil {
		t.Fatalf("retry mint: %v", err)
	}
	if err := retry.Commit(); err != nil {
		t.Fatalf("commit retry: %v", err)
	}
	balance, err := engine.BalanceOf(user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("balance mismatch: got %s", balance)
	}
}

func TestMintExpiredPayload(t *testing.T) {
	f := newFixture(t, nil)
	user := addr(7)
	stale := f.now - auth.SignatureTTLSeconds
	payload := MintPayload{Sender: user, Amount: big.NewInt(10), Nonce: "mint-1", Timestamp: stale}
	sig := f.signMint(t, payload)

	err := f.engine.MintWithSignature(user, payload.Amount, payload.Nonce, payload.Timestamp, sig)
	if !errors.Is(err, auth.ErrTimeExpired) {
		t.Fatalf("expected ErrTimeExpired, got %v", err)
	}
}

func TestMintBadSignature(t *testing.T) {
	f := newFixture(t, nil)
	user := addr(7)
	payload := MintPayload{Sender: user, Amount: big.NewInt(10), Nonce: "mint-1", Timestamp: f.now}
	sig := f.signMint(t, payload)

	// Amount tampered after signing.
	err := f.engine.MintWithSignature(user, big.NewInt(99), payload.Nonce, payload.Timestamp, sig)
	if !errors.Is(err, auth.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestMintCapEnforced(t *testing.T) {
	f := newFixture(t, big.NewInt(1000))
	user := addr(7)

	first := MintPayload{Sender: user, Amount: big.NewInt(900), Nonce: "mint-1", Timestamp: f.now}
	if err := f.engine.MintWithSignature(user, first.Amount, first.Nonce, first.Timestamp, f.signMint(t, first)); err != nil {
		t.Fatalf("first mint: %v", err)
	}
	over := MintPayload{Sender: user, Amount: big.NewInt(200), Nonce: "mint-2", Timestamp: f.now}
	err := f.engine.MintWithSignature(user, over.Amount, over.Nonce, over.Timestamp, f.signMint(t, over))
	if !errors.Is(err, ErrCannotExceedCap) {
		t.Fatalf("expected ErrCannotExceedCap, got %v", err)
	}
	exact := MintPayload{Sender: user, Amount: big.NewInt(100), Nonce: "mint-3", Timestamp: f.now}
	if err := f.engine.MintWithSignature(user, exact.Amount, exact.Nonce, exact.Timestamp, f.signMint(t, exact)); err != nil {
		t.Fatalf("mint to cap: %v", err)
	}
}

func TestTransferAndBurn(t *testing.T) {
	f := newFixture(t, nil)
	user := addr(7)
	other := addr(8)
	payload := MintPayload{Sender: user, Amount: big.NewInt(1000), Nonce: "mint-1", Timestamp: f.now}
	if err := f.engine.MintWithSignature(user, payload.Amount, payload.Nonce, payload.Timestamp, f.signMint(t, payload)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := f.engine.Transfer(user, other, big.NewInt(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := f.engine.Transfer(user, other, big.NewInt(700)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := f.engine.Burn(other, big.NewInt(150)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	userBal, _ := f.engine.BalanceOf(user)
	otherBal, _ := f.engine.BalanceOf(other)
	info, _ := f.engine.Info()
	if userBal.Cmp(big.NewInt(600)) != 0 || otherBal.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("balance mismatch: user=%s other=%s", userBal, otherBal)
	}
	if info.Supply.Cmp(big.NewInt(850)) != 0 {
		t.Fatalf("supply mismatch: got %s", info.Supply)
	}
}

func TestMintZeroAmount(t *testing.T) {
	f := newFixture(t, nil)
	err := f.engine.MintWithSignature(addr(7), big.NewInt(0), "mint-1", f.now, make([]byte, 64))
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
