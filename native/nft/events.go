package nft

import (
	"strconv"

	"gamechain/core/types"
	"gamechain/crypto"
)

const eventTypeConverted = "nft.converted"

type convertedEvent struct {
	Sender [20]byte
	Boxes  int
	Mints  int
}

func (e convertedEvent) EventType() string { return eventTypeConverted }

func (e convertedEvent) Event() *types.Event {
	return &types.Event{
		Type: eventTypeConverted,
		Attributes: map[string]string{
			"sender": crypto.MustAddress(e.Sender),
			"boxes":  strconv.Itoa(e.Boxes),
			"mints":  strconv.Itoa(e.Mints),
		},
	}
}
