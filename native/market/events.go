package market

import (
	"math/big"
	"strconv"

	"gamechain/core/types"
	"gamechain/crypto"
)

const (
	eventTypeOrder  = "market.order"
	eventTypeBid    = "market.bid"
	eventTypeBundle = "market.bundle"
)

type orderEvent struct {
	Action string
	Order  Order
	Buyer  *[20]byte
	Amount *big.Int
}

func (e orderEvent) EventType() string { return eventTypeOrder }

func (e orderEvent) Event() *types.Event {
	attrs := map[string]string{
		"action":   e.Action,
		"order_id": e.Order.ID,
		"owner":    crypto.MustAddress(e.Order.Owner),
		"active":   strconv.FormatBool(e.Order.Active),
	}
	if e.Buyer != nil {
		attrs["buyer"] = crypto.MustAddress(*e.Buyer)
	}
	if e.Amount != nil {
		attrs["amount"] = e.Amount.String()
	}
	return &types.Event{Type: eventTypeOrder, Attributes: attrs}
}

type bidEvent struct {
	Action string
	Bid    Bid
	Seller *[20]byte
}

func (e bidEvent) EventType() string { return eventTypeBid }

func (e bidEvent) Event() *types.Event {
	attrs := map[string]string{
		"action": e.Action,
		"bid_id": e.Bid.ID,
		"owner":  crypto.MustAddress(e.Bid.Owner),
		"active": strconv.FormatBool(e.Bid.Active),
	}
	if e.Seller != nil {
		attrs["seller"] = crypto.MustAddress(*e.Seller)
	}
	return &types.Event{Type: eventTypeBid, Attributes: attrs}
}

type bundleEvent struct {
	Action string
	Bundle Bundle
	Buyer  *[20]byte
}

func (e bundleEvent) EventType() string { return eventTypeBundle }

func (e bundleEvent) Event() *types.Event {
	attrs := map[string]string{
		"action":    e.Action,
		"bundle_id": e.Bundle.ID,
		"owner":     crypto.MustAddress(e.Bundle.Owner),
		"items":     strconv.Itoa(len(e.Bundle.Items)),
		"active":    strconv.FormatBool(e.Bundle.Active),
	}
	if e.Buyer != nil {
		attrs["buyer"] = crypto.MustAddress(*e.Buyer)
	}
	return &types.Event{Type: eventTypeBundle, Attributes: attrs}
}
