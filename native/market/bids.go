package market

import (
	"math/big"

	"gamechain/core/types"
)

// Bid returns the stored bid record.
func (e *Engine) Bid(id string) (Bid, error) {
	var bid Bid
	ok, err := e.store.KVGet(bidKey(id), &bid)
	if err != nil {
		return Bid{}, err
	}
	if !ok {
		return Bid{}, ErrBidNotFound
	}
	return bid, nil
}

func (e *Engine) putBid(bid Bid) error {
	return e.store.KVPut(bidKey(bid.ID), bid)
}

// CreateBid places a buy offer on a non-fungible asset, escrowing the full
// price up front.
func (e *Engine) CreateBid(sender, asset, payToken [20]byte, tokenID string, price *big.Int, expired uint64) (string, []types.Message, error) {
	if err := e.ready(); err != nil {
		return "", nil, err
	}
	if err := e.guard(); err != nil {
		return "", nil, err
	}
	if !e.policy.IsTokenSupport(asset, payToken) {
		return "", nil, ErrPaymentMethodNotSupport
	}
	isNFT, err := e.policy.IsNFTContract(asset)
	if err != nil {
		return "", nil, err
	}
	if !isNFT {
		return "", nil, ErrOnlySupportNFT
	}
	if price == nil || price.Sign() <= 0 {
		return "", nil, ErrInvalidPrice
	}
	id, err := e.nextID(func(info *ContractInfo) uint64 {
		info.BidCount++
		return info.BidCount
	})
	if err != nil {
		return "", nil, err
	}
	bid := Bid{
		ID:       id,
		Owner:    sender,
		Token:    asset,
		PayToken: payToken,
		TokenID:  tokenID,
		Price:    price,
		Expired:  expired,
		Active:   true,
	}
	if err := e.putBid(bid); err != nil {
		return "", nil, err
	}
	msgs := []types.Message{
		types.TokenTransferFrom{Token: payToken, Owner: sender, Recipient: e.self, Amount: price},
	}
	e.emitter.Emit(bidEvent{Action: "create", Bid: bid})
	return id, msgs, nil
}

// UpdateBid reprices a resting bid, settling the escrow delta: a raise pulls
// the difference, a cut refunds it.
func (e *Engine) UpdateBid(sender [20]byte, bidID string, price *big.Int, expired uint64) ([]types.Message, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	bid, err := e.Bid(bidID)
	if err != nil {
		return nil, err
	}
	if !bid.Active {
		return nil, ErrBidCanceled
	}
	if sender != bid.Owner {
		return nil, ErrNotOwner
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	var msgs []types.Message
	switch price.Cmp(bid.Price) {
	case 1:
		delta := new(big.Int).Sub(price, bid.Price)
		msgs = append(msgs, types.TokenTransferFrom{Token: bid.PayToken, Owner: sender, Recipient: e.self, Amount: delta})
	case -1:
		delta := new(big.Int).Sub(bid.Price, price)
		msgs = append(msgs, types.TokenTransfer{Token: bid.PayToken, Recipient: sender, Amount: delta})
	}
	bid.Price = price
	bid.Expired = expired
	if err := e.putBid(bid); err != nil {
		return nil, err
	}
	e.emitter.Emit(bidEvent{Action: "update", Bid: bid})
	return msgs, nil
}

// AcceptBid sells the asset to the bidder. Two routes exist: the caller is
// the asset's direct on-chain owner, or the asset sits in contract custody
// under an active order or bundle owned by the caller, discovered through
// the claim index. The claiming order or bundle is force-cancelled and any
// co-bundled assets return to their owner.
func (e *Engine) AcceptBid(sender [20]byte, bidID string) ([]types.Message, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	bid, err := e.Bid(bidID)
	if err != nil {
		return nil, err
	}
	if !bid.Active {
		return nil, ErrBidCanceled
	}
	// A zero expiry timestamp is already in the past, so such bids are dead
	// on arrival.
	if bid.Expired < uint64(e.nowFn()) {
		return nil, ErrBidExpired
	}
	fee, err := e.policy.ContractFee(bid.Token)
	if err != nil {
		return nil, err
	}
	var msgs []types.Message
	owner, found, err := e.querier.OwnerOf(bid.Token, bid.TokenID)
	if err != nil {
		return nil, err
	}
	switch {
	case found && owner == sender:
		// Direct ownership: asset moves straight to the bidder.
		msgs = append(msgs, types.NFTTransfer{Contract: bid.Token, Recipient: bid.Owner, TokenID: bid.TokenID})
	default:
		claim, ok, err := e.Claim(bid.Token, bid.TokenID, sender)
		if err != nil {
			return nil, err
		}
		if !ok || !claim.Active {
			return nil, ErrCanNotAcceptBid
		}
		released, err := e.forceCancelClaim(bid, claim, sender)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, released...)
	}
	net := ComputeNet(bid.Price, fee)
	msgs = append(msgs, types.TokenTransfer{Token: bid.PayToken, Recipient: sender, Amount: net})

	bid.Active = false
	if err := e.putBid(bid); err != nil {
		return nil, err
	}
	e.emitter.Emit(bidEvent{Action: "accept", Bid: bid, Seller: &sender})
	return msgs, nil
}

// forceCancelClaim retires the order or bundle backing a claim route,
// releases the bid target to the bidder and returns any co-bundled assets
// to their owner.
func (e *Engine) forceCancelClaim(bid Bid, claim CanAccept, custodian [20]byte) ([]types.Message, error) {
	var msgs []types.Message
	switch {
	case claim.OrderID != "":
		order, err := e.Order(claim.OrderID)
		if err != nil {
			return nil, err
		}
		if !order.Active {
			return nil, ErrCanNotAcceptBid
		}
		order.Active = false
		order.Quantity = big.NewInt(0)
		if err := e.putOrder(order); err != nil {
			return nil, err
		}
		if err := e.releaseClaim(bid.Token, bid.TokenID, custodian); err != nil {
			return nil, err
		}
		msgs = append(msgs, types.NFTTransfer{Contract: bid.Token, Recipient: bid.Owner, TokenID: bid.TokenID})
	case claim.BundleID != "":
		bundle, err := e.Bundle(claim.BundleID)
		if err != nil {
			return nil, err
		}
		if !bundle.Active {
			return nil, ErrCanNotAcceptBid
		}
		bundle.Active = false
		if err := e.putBundle(bundle); err != nil {
			return nil, err
		}
		for _, item := range bundle.Items {
			if err := e.releaseClaim(item.Token, item.TokenID, bundle.Owner); err != nil {
				return nil, err
			}
			if item.Token == bid.Token && item.TokenID == bid.TokenID {
				msgs = append(msgs, types.NFTTransfer{Contract: item.Token, Recipient: bid.Owner, TokenID: item.TokenID})
				continue
			}
			msgs = append(msgs, types.NFTTransfer{Contract: item.Token, Recipient: bundle.Owner, TokenID: item.TokenID})
		}
	default:
		return nil, ErrCanNotAcceptBid
	}
	return msgs, nil
}

// CancelBid refunds the escrowed price and retires the bid.
func (e *Engine) CancelBid(sender [20]byte, bidID string) ([]types.Message, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	bid, err := e.Bid(bidID)
	if err != nil {
		return nil, err
	}
	if !bid.Active {
		return nil, ErrBidCanceled
	}
	if sender != bid.Owner {
		return nil, ErrNotOwner
	}
	bid.Active = false
	if err := e.putBid(bid); err != nil {
		return nil, err
	}
	e.emitter.Emit(bidEvent{Action: "cancel", Bid: bid})
	return []types.Message{
		types.TokenTransfer{Token: bid.PayToken, Recipient: bid.Owner, Amount: bid.Price},
	}, nil
}
