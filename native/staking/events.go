package staking

import (
	"math/big"
	"strconv"

	"gamechain/core/types"
	"gamechain/crypto"
)

const (
	eventTypeStaked   = "staking.staked"
	eventTypeUnstaked = "staking.unstaked"
)

type stakedEvent struct {
	User     [20]byte
	Token    [20]byte
	Amount   *big.Int
	Duration uint64
}

func (e stakedEvent) EventType() string { return eventTypeStaked }

func (e stakedEvent) Event() *types.Event {
	return &types.Event{
		Type: eventTypeStaked,
		Attributes: map[string]string{
			"user":     crypto.MustAddress(e.User),
			"token":    crypto.MustAddress(e.Token),
			"amount":   e.Amount.String(),
			"duration": strconv.FormatUint(e.Duration, 10),
		},
	}
}

type unstakedEvent struct {
	User   [20]byte
	Token  [20]byte
	Amount *big.Int
}

func (e unstakedEvent) EventType() string { return eventTypeUnstaked }

func (e unstakedEvent) Event() *types.Event {
	return &types.Event{
		Type: eventTypeUnstaked,
		Attributes: map[string]string{
			"user":   crypto.MustAddress(e.User),
			"token":  crypto.MustAddress(e.Token),
			"amount": e.Amount.String(),
		},
	}
}
