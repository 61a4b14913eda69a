package market

import (
	"math/big"

	"gamechain/core/types"
)

// MaxBundleItems caps bundle size.
const MaxBundleItems = 20

// Bundle returns the stored bundle record.
func (e *Engine) Bundle(id string) (Bundle, error) {
	var bundle Bundle
	ok, err := e.store.KVGet(bundleKey(id), &bundle)
	if err != nil {
		return Bundle{}, err
	}
	if !ok {
		return Bundle{}, ErrBundleNotFound
	}
	return bundle, nil
}

func (e *Engine) putBundle(bundle Bundle) error {
	return e.store.KVPut(bundleKey(bundle.ID), bundle)
}

// CreateBundle lists up to 20 non-fungible assets as one lot. Every asset is
// escrowed and gets its own claim route pointing at the bundle.
func (e *Engine) CreateBundle(sender [20]byte, items []BundleItem, payToken [20]byte, price *big.Int) (string, []types.Message, error) {
	if err := e.ready(); err != nil {
		return "", nil, err
	}
	if err := e.guard(); err != nil {
		return "", nil, err
	}
	if len(items) == 0 || len(items) > MaxBundleItems {
		return "", nil, ErrInvalidNumberItem
	}
	if price == nil || price.Sign() <= 0 {
		return "", nil, ErrInvalidPrice
	}
	for _, item := range items {
		if !e.policy.IsTokenSupport(item.Token, payToken) {
			return "", nil, ErrPaymentMethodNotSupport
		}
		isNFT, err := e.policy.IsNFTContract(item.Token)
		if err != nil {
			return "", nil, err
		}
		if !isNFT {
			return "", nil, ErrOnlySupportNFT
		}
		owner, found, err := e.querier.OwnerOf(item.Token, item.TokenID)
		if err != nil {
			return "", nil, err
		}
		if !found {
			return "", nil, ErrNotExistedNFT
		}
		if owner != sender {
			return "", nil, ErrNotOwnedNFT
		}
	}
	id, err := e.nextID(func(info *ContractInfo) uint64 {
		info.BundleCount++
		return info.BundleCount
	})
	if err != nil {
		return "", nil, err
	}
	bundle := Bundle{
		ID:       id,
		Owner:    sender,
		Items:    items,
		PayToken: payToken,
		Price:    price,
		Active:   true,
	}
	if err := e.putBundle(bundle); err != nil {
		return "", nil, err
	}
	msgs := make([]types.Message, 0, len(items))
	for _, item := range items {
		msgs = append(msgs, types.NFTTransfer{Contract: item.Token, Recipient: e.self, TokenID: item.TokenID})
		if err := e.putClaim(item.Token, item.TokenID, sender, CanAccept{Active: true, BundleID: id}); err != nil {
			return "", nil, err
		}
	}
	e.emitter.Emit(bundleEvent{Action: "create", Bundle: bundle})
	return id, msgs, nil
}

// BuyBundle sells the whole lot: the buyer pays the bundle price, every
// escrowed asset moves to the buyer and the seller receives the price net of
// the bundle fee.
func (e *Engine) BuyBundle(sender [20]byte, bundleID string) ([]types.Message, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	bundle, err := e.Bundle(bundleID)
	if err != nil {
		return nil, err
	}
	if !bundle.Active {
		return nil, ErrBundleCanceled
	}
	info, err := e.Info()
	if err != nil {
		return nil, err
	}
	net := ComputeNet(bundle.Price, info.BundleFee)

	msgs := []types.Message{
		types.TokenTransferFrom{Token: bundle.PayToken, Owner: sender, Recipient: e.self, Amount: bundle.Price},
	}
	for _, item := range bundle.Items {
		msgs = append(msgs, types.NFTTransfer{Contract: item.Token, Recipient: sender, TokenID: item.TokenID})
		if err := e.releaseClaim(item.Token, item.TokenID, bundle.Owner); err != nil {
			return nil, err
		}
	}
	msgs = append(msgs, types.TokenTransfer{Token: bundle.PayToken, Recipient: bundle.Owner, Amount: net})

	bundle.Active = false
	if err := e.putBundle(bundle); err != nil {
		return nil, err
	}
	e.emitter.Emit(bundleEvent{Action: "buy", Bundle: bundle, Buyer: &sender})
	return msgs, nil
}

// CancelBundle returns every escrowed asset to the seller and retires the
// bundle.
func (e *Engine) CancelBundle(sender [20]byte, bundleID string) ([]types.Message, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	bundle, err := e.Bundle(bundleID)
	if err != nil {
		return nil, err
	}
	if !bundle.Active {
		return nil, ErrBundleCanceled
	}
	if sender != bundle.Owner {
		return nil, ErrNotOwner
	}
	msgs := make([]types.Message, 0, len(bundle.Items))
	for _, item := range bundle.Items {
		msgs = append(msgs, types.NFTTransfer{Contract: item.Token, Recipient: bundle.Owner, TokenID: item.TokenID})
		if err := e.releaseClaim(item.Token, item.TokenID, bundle.Owner); err != nil {
			return nil, err
		}
	}
	bundle.Active = false
	if err := e.putBundle(bundle); err != nil {
		return nil, err
	}
	e.emitter.Emit(bundleEvent{Action: "cancel", Bundle: bundle})
	return msgs, nil
}
