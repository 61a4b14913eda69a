package bridge

import (
	"math/big"

	"gamechain/core/types"
	"gamechain/crypto"
)

const eventTypeSwap = "bridge.swap"

type swapEvent struct {
	TxID   string
	User   [20]byte
	Amount *big.Int
	Side   string
}

func (e swapEvent) EventType() string { return eventTypeSwap }

func (e swapEvent) Event() *types.Event {
	return &types.Event{
		Type: eventTypeSwap,
		Attributes: map[string]string{
			"tx_id":  e.TxID,
			"user":   crypto.MustAddress(e.User),
			"amount": e.Amount.String(),
			"side":   e.Side,
		},
	}
}
