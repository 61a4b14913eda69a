package token

import (
	"math/big"

	"gamechain/core/types"
	"gamechain/crypto"
)

const (
	eventTypeMinted      = "token.minted"
	eventTypeTransferred = "token.transferred"
	eventTypeBurned      = "token.burned"
)

type mintedEvent struct {
	Recipient [20]byte
	Amount    *big.Int
	Supply    *big.Int
}

func (e mintedEvent) EventType() string { return eventTypeMinted }

func (e mintedEvent) Event() *types.Event {
	return &types.Event{
		Type: eventTypeMinted,
		Attributes: map[string]string{
			"recipient": crypto.MustAddress(e.Recipient),
			"amount":    e.Amount.String(),
			"supply":    e.Supply.String(),
		},
	}
}

type transferredEvent struct {
	Sender    [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

func (e transferredEvent) EventType() string { return eventTypeTransferred }

func (e transferredEvent) Event() *types.Event {
	return &types.Event{
		Type: eventTypeTransferred,
		Attributes: map[string]string{
			"sender":    crypto.MustAddress(e.Sender),
			"recipient": crypto.MustAddress(e.Recipient),
			"amount":    e.Amount.String(),
		},
	}
}

type burnedEvent struct {
	Owner  [20]byte
	Amount *big.Int
	Supply *big.Int
}

func (e burnedEvent) EventType() string { return eventTypeBurned }

func (e burnedEvent) Event() *types.Event {
	return &types.Event{
		Type: eventTypeBurned,
		Attributes: map[string]string{
			"owner":  crypto.MustAddress(e.Owner),
			"amount": e.Amount.String(),
			"supply": e.Supply.String(),
		},
	}
}
