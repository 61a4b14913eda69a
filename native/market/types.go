package market

import (
	"errors"
	"math/big"
)

var (
	// ErrOrderNotFound indicates an unknown order id.
	ErrOrderNotFound = errors.New("market: order not found")
	// ErrBidNotFound indicates an unknown bid id.
	ErrBidNotFound = errors.New("market: bid not found")
	// ErrBundleNotFound indicates an unknown bundle id.
	ErrBundleNotFound = errors.New("market: bundle not found")
	// ErrOrderCanceled indicates the order is in its terminal state.
	ErrOrderCanceled = errors.New("market: order canceled")
	// ErrBidCanceled indicates the bid is in its terminal state.
	ErrBidCanceled = errors.New("market: bid canceled")
	// ErrBundleCanceled indicates the bundle is in its terminal state.
	ErrBundleCanceled = errors.New("market: bundle canceled")
	// ErrBidExpired indicates the bid's expiry timestamp has passed.
	ErrBidExpired = errors.New("market: bid expired")
	// ErrCanNotAcceptBid indicates no claim route exists for the caller.
	ErrCanNotAcceptBid = errors.New("market: can not accept bid")
	// ErrInvalidQuantity indicates a zero quantity or an overfill.
	ErrInvalidQuantity = errors.New("market: invalid quantity")
	// ErrInvalidPrice indicates a zero or negative price.
	ErrInvalidPrice = errors.New("market: invalid price")
	// ErrInvalidNumberItem indicates a bundle outside the 1..20 item range.
	ErrInvalidNumberItem = errors.New("market: invalid number of items")
	// ErrInvalidFee indicates a fee above the basis-point scale.
	ErrInvalidFee = errors.New("market: invalid fee")
	// ErrInsufficientTokenBalance indicates the seller holds fewer tokens
	// than the listing needs.
	ErrInsufficientTokenBalance = errors.New("market: insufficient token balance")
	// ErrNotOwnedNFT indicates the referenced asset belongs to someone else.
	ErrNotOwnedNFT = errors.New("market: not owned nft")
	// ErrNotExistedNFT indicates the referenced asset does not exist.
	ErrNotExistedNFT = errors.New("market: not existed nft")
	// ErrNotOwner indicates the caller does not own the listing.
	ErrNotOwner = errors.New("market: not owner")
	// ErrPaymentMethodNotSupport indicates the asset/payment pairing is not
	// allow-listed by the payment policy.
	ErrPaymentMethodNotSupport = errors.New("market: payment method not supported")
	// ErrOnlySupportNFT indicates a bid or bundle against a fungible asset.
	ErrOnlySupportNFT = errors.New("market: only non-fungible assets supported")
)

// FeeDenominator is the basis-point scale for marketplace fees.
const FeeDenominator = 10000

// ContractInfo carries the marketplace identity, the monotonic id counters,
// the bundle fee and the payment policy contract reference. Counters only
// grow; ids are never reused.
type ContractInfo struct {
	Name        string
	Symbol      string
	OrderCount  uint64
	BidCount    uint64
	BundleCount uint64
	BundleFee   uint64
	Policy      [20]byte
}

// Order is a resting sell listing. The asset sits in contract custody while
// the order is active.
type Order struct {
	ID         string
	Owner      [20]byte
	Token      [20]byte
	PayToken   [20]byte
	TokenID    string
	Quantity   *big.Int
	Price      *big.Int
	IsFungible bool
	Active     bool
}

// Bid is a resting buy offer on a non-fungible asset. The full price sits in
// contract custody while the bid is active.
type Bid struct {
	ID       string
	Owner    [20]byte
	Token    [20]byte
	PayToken [20]byte
	TokenID  string
	Price    *big.Int
	Expired  uint64
	Active   bool
}

// BundleItem identifies one asset inside a bundle.
type BundleItem struct {
	Token   [20]byte
	TokenID string
}

// Bundle is a resting multi-asset listing sold as one lot.
type Bundle struct {
	ID       string
	Owner    [20]byte
	Items    []BundleItem
	PayToken [20]byte
	Price    *big.Int
	Active   bool
}

// CanAccept is the claim-route index entry: it tells a bid acceptance whether
// the contract-held asset is claimable through an active order or bundle
// owned by the accepting caller. At most one of OrderID and BundleID is set.
type CanAccept struct {
	Active   bool
	OrderID  string
	BundleID string
}

// ComputeNet applies the basis-point fee: amount*(10000-fee)/10000, integer
// division truncating toward zero. The remainder stays in contract custody.
func ComputeNet(amount *big.Int, feeBps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	if feeBps >= FeeDenominator {
		return big.NewInt(0)
	}
	net := new(big.Int).Mul(amount, big.NewInt(int64(FeeDenominator-feeBps)))
	return net.Div(net, big.NewInt(FeeDenominator))
}
