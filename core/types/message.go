package types

import "math/big"

// Message is an outbound effect requested by a contract engine. The host
// dispatches messages in order after the call's state changes commit; the set
// is closed, so dispatchers switch on the concrete type.
type Message interface {
	isMessage()
}

// TokenTransfer moves tokens held by the emitting contract to a recipient.
type TokenTransfer struct {
	Token     [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

// TokenTransferFrom pulls tokens from an owner into a recipient using the
// allowance granted to the emitting contract.
type TokenTransferFrom struct {
	Token     [20]byte
	Owner     [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

// TokenMint asks the token contract to mint new supply for a recipient.
type TokenMint struct {
	Token     [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

// TokenBurnFrom asks the token contract to destroy tokens held by an owner.
type TokenBurnFrom struct {
	Token  [20]byte
	Owner  [20]byte
	Amount *big.Int
}

// NFTTransfer moves a single non-fungible asset to a recipient.
type NFTTransfer struct {
	Contract  [20]byte
	Recipient [20]byte
	TokenID   string
}

// NFTBurn destroys a single non-fungible asset.
type NFTBurn struct {
	Contract [20]byte
	TokenID  string
}

// NFTMintBatch mints a batch of non-fungible assets to one owner.
type NFTMintBatch struct {
	Contract [20]byte
	Owner    [20]byte
	TokenIDs []string
}

func (TokenTransfer) isMessage()     {}
func (TokenTransferFrom) isMessage() {}
func (TokenMint) isMessage()         {}
func (TokenBurnFrom) isMessage()     {}
func (NFTTransfer) isMessage()       {}
func (NFTBurn) isMessage()           {}
func (NFTMintBatch) isMessage()      {}
