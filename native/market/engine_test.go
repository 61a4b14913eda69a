package market

import (
	"errors"
	"math/big"
	"testing"

	"gamechain/core/types"
	"gamechain/native/payment"
	"gamechain/state"
	"gamechain/storage"
)

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

type assetKey struct {
	contract [20]byte
	tokenID  string
}

type mockQuerier struct {
	balances map[assetKey]*big.Int
	owners   map[assetKey][20]byte
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{
		balances: make(map[assetKey]*big.Int),
		owners:   make(map[assetKey][20]byte),
	}
}

func (q *mockQuerier) BalanceOf(token, owner [20]byte) (*big.Int, error) {
	key := assetKey{token, string(owner[:])}
	if balance, ok := q.balances[key]; ok {
		return balance, nil
	}
	return big.NewInt(0), nil
}

func (q *mockQuerier) OwnerOf(contract [20]byte, tokenID string) ([20]byte, bool, error) {
	owner, ok := q.owners[assetKey{contract, tokenID}]
	return owner, ok, nil
}

func (q *mockQuerier) setBalance(token, owner [20]byte, amount int64) {
	q.balances[assetKey{token, string(owner[:])}] = big.NewInt(amount)
}

type fixture struct {
	engine   *Engine
	policy   *payment.Engine
	querier  *mockQuerier
	owner    [20]byte
	self     [20]byte
	nft      [20]byte
	fungible [20]byte
	payToken [20]byte
	now      int64
}

// Shared fee for both asset classes in the fixture: 5%.
const testFee = 500

func newFixture(t *testing.T) *fixture {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())

	owner := addr(1)
	self := addr(2)
	nftContract := addr(10)
	fungibleContract := addr(11)
	payToken := addr(12)

	policy := payment.NewEngine()
	policy.SetState(manager)
	if err := policy.Instantiate(owner); err != nil {
		t.Fatalf("instantiate policy: %v", err)
	}
	if err := policy.AddContractSupport(owner, nftContract, testFee, true, payToken); err != nil {
		t.Fatalf("support nft: %v", err)
	}
	if err := policy.AddContractSupport(owner, fungibleContract, testFee, false, payToken); err != nil {
		t.Fatalf("support fungible: %v", err)
	}

	engine := NewEngine()
	engine.SetState(manager)
	engine.SetPolicy(policy)
	querier := newMockQuerier()
	engine.SetQuerier(querier)
	now := int64(1_700_000_000)
	engine.SetNowFunc(func() int64 { return now })
	if err := engine.Instantiate(owner, self, "Game Market", "GMKT", 250); err != nil {
		t.Fatalf("instantiate market: %v", err)
	}
	return &fixture{
		engine:   engine,
		policy:   policy,
		querier:  querier,
		owner:    owner,
		self:     self,
		nft:      nftContract,
		fungible: fungibleContract,
		payToken: payToken,
		now:      now,
	}
}

func TestCreateOrderFungible(t *testing.T) {
	f := newFixture(t)
	seller := addr(7)
	f.querier.setBalance(f.fungible, seller, 1000)

	id, msgs, err := f.engine.CreateOrder(seller, f.fungible, f.payToken, "", big.NewInt(400), big.NewInt(5))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if id != "1" {
		t.Fatalf("expected first id 1, got %s", id)
	}
	escrow, ok := msgs[0].(types.TokenTransferFrom)
	if !ok || escrow.Recipient != f.self || escrow.Amount.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unexpected escrow message: %#v", msgs[0])
	}
	order, err := f.engine.Order(id)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if !order.Active || !order.IsFungible || order.Quantity.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unexpected order: %#v", order)
	}

	// Balance short of quantity.
	if _, _, err := f.engine.CreateOrder(seller, f.fungible, f.payToken, "", big.NewInt(2000), big.NewInt(5)); !errors.Is(err, ErrInsufficientTokenBalance) {
		t.Fatalf("expected ErrInsufficientTokenBalance, got %v", err)
	}
	// Zero quantity.
	if _, _, err := f.engine.CreateOrder(seller, f.fungible, f.payToken, "", big.NewInt(0), big.NewInt(5)); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	// Unsupported payment token.
	if _, _, err := f.engine.CreateOrder(seller, f.fungible, addr(13), "", big.NewInt(10), big.NewInt(5)); !errors.Is(err, ErrPaymentMethodNotSupport) {
		t.Fatalf("expected ErrPaymentMethodNotSupport, got %v", err)
	}
}

func TestCreateOrderNFTRegistersClaim(t *testing.T) {
	f := newFixture(t)
	seller := addr(7)
	f.querier.owners[assetKey{f.nft, "7"}] = seller

	id, msgs, err := f.engine.CreateOrder(seller, f.nft, f.payToken, "7", big.NewInt(1), big.NewInt(1000))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	escrow, ok := msgs[0].(types.NFTTransfer)
	if !ok || escrow.Recipient != f.self || escrow.TokenID != "7" {
		t.Fatalf("unexpected escrow message: %#v", msgs[0])
	}
	claim, found, err := f.engine.Claim(f.nft, "7", seller)
	if err != nil || !found {
		t.Fatalf("claim missing: %v", err)
	}
	if !claim.Active || claim.OrderID != id {
		t.Fatalf("unexpected claim: %#v", claim)
	}

	// Not the on-chain owner.
	if _, _, err := f.engine.CreateOrder(addr(8), f.nft, f.payToken, "7", big.NewInt(1), big.NewInt(1000)); !errors.Is(err, ErrNotOwnedNFT) {
		t.Fatalf("expected ErrNotOwnedNFT, got %v", err)
	}
	// Unknown token id.
	if _, _, err := f.engine.CreateOrder(seller, f.nft, f.payToken, "404", big.NewInt(1), big.NewInt(1000)); !errors.Is(err, ErrNotExistedNFT) {
		t.Fatalf("expected ErrNotExistedNFT, got %v", err)
	}
	// Non-fungible listings carry exactly one unit.
	f.querier.owners[assetKey{f.nft, "8"}] = seller
	if _, _, err := f.engine.CreateOrder(seller, f.nft, f.payToken, "8", big.NewInt(2), big.NewInt(1000)); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, _, err := f.engine.CreateOrder(seller, f.nft, f.payToken, "8", nil, big.NewInt(1000)); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestBuyOrderPartialAndFull(t *testing.T) {
	f := newFixture(t)
	seller := addr(7)
	buyer := addr(8)
	f.querier.setBalance(f.fungible, seller, 1000)

	id, _, err := f.engine.CreateOrder(seller, f.fungible, f.payToken, "", big.NewInt(400), big.NewInt(10))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// Overfill rejected.
	if _, err := f.engine.BuyOrder(buyer, id, big.NewInt(401)); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	// Partial fill: 100 units at price 10 with 5% fee.
	msgs, err := f.engine.BuyOrder(buyer, id, big.NewInt(100))
	if err != nil {
		t.Fatalf("partial buy: %v", err)
	}
	pull, ok := msgs[0].(types.TokenTransferFrom)
	if !ok || pull.Amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected gross pull: %#v", msgs[0])
	}
	payout, ok := msgs[2].(types.TokenTransfer)
	if !ok || payout.Recipient != seller || payout.Amount.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("unexpected net payout: %#v", msgs[2])
	}
	order, err := f.engine.Order(id)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if !order.Active || order.Quantity.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected order after partial fill: %#v", order)
	}

	// Full fill flips the order terminal.
	if _, err := f.engine.BuyOrder(buyer, id, big.NewInt(300)); err != nil {
		t.Fatalf("full buy: %v", err)
	}
	order, err = f.engine.Order(id)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if order.Active || order.Quantity.Sign() != 0 {
		t.Fatalf("order should be terminal: %#v", order)
	}
	// Terminal state rejects every follow-up.
	if _, err := f.engine.BuyOrder(buyer, id, big.NewInt(1)); !errors.Is(err, ErrOrderCanceled) {
		t.Fatalf("expected ErrOrderCanceled, got %v", err)
	}
	if _, err := f.engine.UpdateOrder(seller, id, big.NewInt(10), big.NewInt(10)); !errors.Is(err, ErrOrderCanceled) {
		t.Fatalf("expected ErrOrderCanceled, got %v", err)
	}
	if _, err := f.engine.CancelOrder(seller, id); !errors.Is(err, ErrOrderCanceled) {
		t.Fatalf("expected ErrOrderCanceled, got %v", err)
	}
}

func TestCreateCancelRoundTrip(t *testing.T) {
	f := newFixture(t)
	seller := addr(7)
	f.querier.setBalance(f.fungible, seller, 1000)

	id, _, err := f.engine.CreateOrder(seller, f.fungible, f.payToken, "", big.NewInt(400), big.NewInt(10))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	// Only the owner may cancel.
	if _, err := f.engine.CancelOrder(addr(8), id); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	msgs, err := f.engine.CancelOrder(seller, id)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	refund, ok := msgs[0].(types.TokenTransfer)
	if !ok || refund.Recipient != seller || refund.Amount.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("refund mismatch: %#v", msgs[0])
	}
	order, err := f.engine.Order(id)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if order.Active || order.Quantity.Sign() != 0 {
		t.Fatalf("order should be inactive with zero quantity: %#v", order)
	}
}

func TestUpdateOrderDeltaSettlement(t *testing.T) {
	f := newFixture(t)
	seller := addr(7)
	f.querier.setBalance(f.fungible, seller, 1000)

	id, _, err := f.engine.CreateOrder(seller, f.fungible, f.payToken, "", big.NewInt(400), big.NewInt(10))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	// Raise pulls the delta.
	msgs, err := f.engine.UpdateOrder(seller, id, big.NewInt(500), big.NewInt(12))
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	pull, ok := msgs[0].(types.TokenTransferFrom)
	if !ok || pull.Amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected pull: %#v", msgs[0])
	}
	// Cut refunds the delta.
	msgs, err = f.engine.UpdateOrder(seller, id, big.NewInt(200), big.NewInt(12))
	if err != nil {
		t.Fatalf("cut: %v", err)
	}
	refund, ok := msgs[0].(types.TokenTransfer)
	if !ok || refund.Amount.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected refund: %#v", msgs[0])
	}
	order, err := f.engine.Order(id)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if order.Quantity.Cmp(big.NewInt(200)) != 0 || order.Price.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("unexpected order: %#v", order)
	}
	// Non-owner update.
	if _, err := f.engine.UpdateOrder(addr(8), id, big.NewInt(200), big.NewInt(12)); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestBuyOrderAfterSupportRemoved(t *testing.T) {
	f := newFixture(t)
	seller := addr(7)
	buyer := addr(8)
	f.querier.setBalance(f.fungible, seller, 1000)

	id, _, err := f.engine.CreateOrder(seller, f.fungible, f.payToken, "", big.NewInt(100), big.NewInt(10))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := f.policy.RemoveContractSupport(f.owner, f.fungible); err != nil {
		t.Fatalf("remove support: %v", err)
	}
	// The resting listing still settles at the stored fee.
	msgs, err := f.engine.BuyOrder(buyer, id, big.NewInt(100))
	if err != nil {
		t.Fatalf("buy after removal: %v", err)
	}
	payout, ok := msgs[2].(types.TokenTransfer)
	if !ok || payout.Recipient != seller || payout.Amount.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("unexpected payout: %#v", msgs[2])
	}
}

func TestComputeNetBounds(t *testing.T) {
	cases := []struct {
		amount int64
		fee    uint64
		want   int64
	}{
		{1000, 0, 1000},
		{1000, 500, 950},
		{1000, 10000, 0},
		{999, 500, 949},
		{1, 9999, 0},
	}
	for _, tc := range cases {
		got := ComputeNet(big.NewInt(tc.amount), tc.fee)
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("ComputeNet(%d, %d) = %s, want %d", tc.amount, tc.fee, got, tc.want)
		}
		if got.Sign() < 0 || got.Cmp(big.NewInt(tc.amount)) > 0 {
			t.Fatalf("net out of bounds: %s", got)
		}
	}
}
