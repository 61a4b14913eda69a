package types

// Event captures a structured notification emitted while processing a
// contract call. Attributes are flat string pairs so hosts can index them
// without decoding module-specific payloads.
type Event struct {
	Type       string
	Attributes map[string]string
}
