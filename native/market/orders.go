package market

import (
	"math/big"

	"gamechain/core/types"
)

// Order returns the stored order record.
func (e *Engine) Order(id string) (Order, error) {
	var order Order
	ok, err := e.store.KVGet(orderKey(id), &order)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (e *Engine) putOrder(order Order) error {
	return e.store.KVPut(orderKey(order.ID), order)
}

// CreateOrder lists an asset for sale, escrowing it into contract custody.
// Fungible listings escrow quantity units; non-fungible listings escrow the
// single asset and register a claim route so resting bids on it stay
// acceptable by the seller.
func (e *Engine) CreateOrder(sender, asset, payToken [20]byte, tokenID string, quantity, price *big.Int) (string, []types.Message, error) {
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
	if price == nil || price.Sign() <= 0 {
		return "", nil, ErrInvalidPrice
	}
	var msgs []types.Message
	if isNFT {
		if quantity == nil || quantity.Cmp(big.NewInt(1)) != 0 {
			return "", nil, ErrInvalidQuantity
		}
		owner, found, err := e.querier.OwnerOf(asset, tokenID)
		if err != nil {
			return "", nil, err
		}
		if !found {
			return "", nil, ErrNotExistedNFT
		}
		if owner != sender {
			return "", nil, ErrNotOwnedNFT
		}
		msgs = append(msgs, types.NFTTransfer{Contract: asset, Recipient: e.self, TokenID: tokenID})
	} else {
		if quantity == nil || quantity.Sign() <= 0 {
			return "", nil, ErrInvalidQuantity
		}
		balance, err := e.querier.BalanceOf(asset, sender)
		if err != nil {
			return "", nil, err
		}
		if balance.Cmp(quantity) < 0 {
			return "", nil, ErrInsufficientTokenBalance
		}
		msgs = append(msgs, types.TokenTransferFrom{Token: asset, Owner: sender, Recipient: e.self, Amount: quantity})
	}
	id, err := e.nextID(func(info *ContractInfo) uint64 {
		info.OrderCount++
		return info.OrderCount
	})
	if err != nil {
		return "", nil, err
	}
	order := Order{
		ID:         id,
		Owner:      sender,
		Token:      asset,
		PayToken:   payToken,
		TokenID:    tokenID,
		Quantity:   quantity,
		Price:      price,
		IsFungible: !isNFT,
		Active:     true,
	}
	if err := e.putOrder(order); err != nil {
		return "", nil, err
	}
	if isNFT {
		if err := e.putClaim(asset, tokenID, sender, CanAccept{Active: true, OrderID: id}); err != nil {
			return "", nil, err
		}
	}
	e.emitter.Emit(orderEvent{Action: "create", Order: order})
	return id, msgs, nil
}

// UpdateOrder adjusts a resting order. Quantity deltas are settled against
// the seller; the price is replaced unconditionally.
func (e *Engine) UpdateOrder(sender [20]byte, orderID string, quantity, price *big.Int) ([]types.Message, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	order, err := e.Order(orderID)
	if err != nil {
		return nil, err
	}
	if !order.Active {
		return nil, ErrOrderCanceled
	}
	if sender != order.Owner {
		return nil, ErrNotOwner
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if quantity == nil || quantity.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !order.IsFungible && quantity.Cmp(big.NewInt(1)) != 0 {
		return nil, ErrInvalidQuantity
	}
	var msgs []types.Message
	switch quantity.Cmp(order.Quantity) {
	case 1:
		delta := new(big.Int).Sub(quantity, order.Quantity)
		balance, err := e.querier.BalanceOf(order.Token, sender)
		if err != nil {
			return nil, err
		}
		if balance.Cmp(delta) < 0 {
			return nil, ErrInsufficientTokenBalance
		}
		msgs = append(msgs, types.TokenTransferFrom{Token: order.Token, Owner: sender, Recipient: e.self, Amount: delta})
	case -1:
		delta := new(big.Int).Sub(order.Quantity, quantity)
		msgs = append(msgs, types.TokenTransfer{Token: order.Token, Recipient: sender, Amount: delta})
	}
	order.Quantity = quantity
	order.Price = price
	if err := e.putOrder(order); err != nil {
		return nil, err
	}
	e.emitter.Emit(orderEvent{Action: "update", Order: order})
	return msgs, nil
}

// BuyOrder fills a resting order partially or fully. The buyer pays the
// gross amount; the seller receives it net of the fee looked up from the
// payment policy at buy time.
func (e *Engine) BuyOrder(sender [20]byte, orderID string, quantity *big.Int) ([]types.Message, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	order, err := e.Order(orderID)
	if err != nil {
		return nil, err
	}
	if !order.Active {
		return nil, ErrOrderCanceled
	}
	if quantity == nil || quantity.Sign() <= 0 || quantity.Cmp(order.Quantity) > 0 {
		return nil, ErrInvalidQuantity
	}
	fee, err := e.policy.ContractFee(order.Token)
	if err != nil {
		return nil, err
	}
	gross := new(big.Int).Mul(order.Price, quantity)
	net := ComputeNet(gross, fee)

	msgs := []types.Message{
		types.TokenTransferFrom{Token: order.PayToken, Owner: sender, Recipient: e.self, Amount: gross},
	}
	if order.IsFungible {
		msgs = append(msgs, types.TokenTransfer{Token: order.Token, Recipient: sender, Amount: quantity})
	} else {
		msgs = append(msgs, types.NFTTransfer{Contract: order.Token, Recipient: sender, TokenID: order.TokenID})
	}
	msgs = append(msgs, types.TokenTransfer{Token: order.PayToken, Recipient: order.Owner, Amount: net})

	if quantity.Cmp(order.Quantity) == 0 {
		order.Active = false
		order.Quantity = big.NewInt(0)
		if !order.IsFungible {
			if err := e.releaseClaim(order.Token, order.TokenID, order.Owner); err != nil {
				return nil, err
			}
		}
	} else {
		order.Quantity = new(big.Int).Sub(order.Quantity, quantity)
	}
	if err := e.putOrder(order); err != nil {
		return nil, err
	}
	e.emitter.Emit(orderEvent{Action: "buy", Order: order, Buyer: &sender, Amount: gross})
	return msgs, nil
}

// CancelOrder returns the escrowed asset to the seller and retires the
// order.
func (e *Engine) CancelOrder(sender [20]byte, orderID string) ([]types.Message, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	order, err := e.Order(orderID)
	if err != nil {
		return nil, err
	}
	if !order.Active {
		return nil, ErrOrderCanceled
	}
	if sender != order.Owner {
		return nil, ErrNotOwner
	}
	var msgs []types.Message
	if order.IsFungible {
		msgs = append(msgs, types.TokenTransfer{Token: order.Token, Recipient: order.Owner, Amount: order.Quantity})
	} else {
		msgs = append(msgs, types.NFTTransfer{Contract: order.Token, Recipient: order.Owner, TokenID: order.TokenID})
		if err := e.releaseClaim(order.Token, order.TokenID, order.Owner); err != nil {
			return nil, err
		}
	}
	order.Active = false
	order.Quantity = big.NewInt(0)
	if err := e.putOrder(order); err != nil {
		return nil, err
	}
	e.emitter.Emit(orderEvent{Action: "cancel", Order: order})
	return msgs, nil
}
