package payment

import (
	"strconv"

	"gamechain/core/types"
	"gamechain/crypto"
)

const eventTypeSupport = "payment.support"

type supportEvent struct {
	Asset  [20]byte
	Fee    uint64
	Active bool
}

func (e supportEvent) EventType() string { return eventTypeSupport }

func (e supportEvent) Event() *types.Event {
	return &types.Event{
		Type: eventTypeSupport,
		Attributes: map[string]string{
			"asset":  crypto.MustAddress(e.Asset),
			"fee":    strconv.FormatUint(e.Fee, 10),
			"active": strconv.FormatBool(e.Active),
		},
	}
}
