package bridge

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"gamechain/core/events"
	"gamechain/core/types"
	"gamechain/crypto"
	"gamechain/native/auth"
	"gamechain/native/common"
)

const moduleName = "bridge"

// Swap sides as persisted in the swap record.
const (
	SideMint = "mint"
	SideBurn = "burn"
)

var (
	// ErrTransactionExisted indicates the transaction id already carries a
	// swap record.
	ErrTransactionExisted = errors.New("bridge: transaction existed")
	// ErrInvalidSwapData indicates a sender/user mismatch or a token outside
	// the accepted lists.
	ErrInvalidSwapData = errors.New("bridge: invalid swap data")
	// ErrExceededMaxAmount indicates the amount is above the per-token limit
	// and the transaction carries no admin approval.
	ErrExceededMaxAmount = errors.New("bridge: exceeded max swap amount")
	// ErrInvalidAmount indicates a zero or negative swap amount.
	ErrInvalidAmount = errors.New("bridge: invalid amount")
)

// Storage is the state contract the bridge needs.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// SwapMessage describes one cross-chain transfer. CurToken and CurUser live
// on this chain; DesToken and DesUser identify the foreign side.
type SwapMessage struct {
	TxID     string
	CurToken [20]byte
	DesToken string
	CurUser  [20]byte
	DesUser  string
	Amount   *big.Int
}

// CanonicalMessage renders the swap in its fixed signing form.
func (m SwapMessage) CanonicalMessage() (string, error) {
	if m.Amount == nil || m.Amount.Sign() <= 0 {
		return "", ErrInvalidAmount
	}
	if strings.TrimSpace(m.TxID) == "" {
		return "", fmt.Errorf("bridge: tx id must not be empty")
	}
	return fmt.Sprintf("GAME_BRIDGE_SWAP_V1|txid=%s|cur_token=%s|des_token=%s|cur_user=%s|des_user=%s|amount=%s",
		m.TxID, crypto.MustAddress(m.CurToken), m.DesToken,
		crypto.MustAddress(m.CurUser), m.DesUser, m.Amount.String()), nil
}

// SwapData is the persisted swap record. A record with a non-zero amount
// marks its transaction id as permanently spent.
type SwapData struct {
	CurToken [20]byte
	DesToken string
	CurUser  [20]byte
	DesUser  string
	Amount   *big.Int
	Side     string
}

// Engine validates cross-chain swap orders and records them, delegating the
// actual supply change to the external token contract via messages.
type Engine struct {
	store    Storage
	registry *auth.Registry
	emitter  events.Emitter
	pauses   common.PauseView
}

// NewEngine returns an engine with safe defaults.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState binds the engine to a storage backend.
func (e *Engine) SetState(store Storage) {
	e.store = store
	e.registry = auth.NewRegistry(store, moduleName)
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the module pause switchboard.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// Registry exposes the module's access registry.
func (e *Engine) Registry() *auth.Registry { return e.registry }

// Instantiate seeds the access registry.
func (e *Engine) Instantiate(owner [20]byte) error {
	if e.store == nil {
		return fmt.Errorf("bridge: storage not configured")
	}
	return e.registry.Instantiate(owner)
}

func curTokenKey(token [20]byte) []byte {
	return []byte("bridge/cur/" + crypto.MustAddress(token))
}

func desTokenKey(token string) []byte {
	return []byte("bridge/des/" + token)
}

func maxAmountKey(token [20]byte) []byte {
	return []byte("bridge/max/" + crypto.MustAddress(token))
}

func approvedKey(txID string) []byte {
	return []byte("bridge/approved/" + txID)
}

func swapKey(txID string) []byte {
	return []byte("bridge/swap/" + txID)
}

// SetAcceptedCurToken flips a local token's acceptance flag. Admin-gated.
func (e *Engine) SetAcceptedCurToken(caller, token [20]byte, status bool) error {
	if err := e.registry.RequireAdmin(caller); err != nil {
		return err
	}
	return e.store.KVPut(curTokenKey(token), status)
}

// IsAcceptedCurToken reports whether the local token may be bridged.
func (e *Engine) IsAcceptedCurToken(token [20]byte) bool {
	var status bool
	ok, err := e.store.KVGet(curTokenKey(token), &status)
	if err != nil || !ok {
		return false
	}
	return status
}

// SetAcceptedDesToken flips a foreign token's acceptance flag. Admin-gated.
func (e *Engine) SetAcceptedDesToken(caller [20]byte, token string, status bool) error {
	if err := e.registry.RequireAdmin(caller); err != nil {
		return err
	}
	return e.store.KVPut(desTokenKey(token), status)
}

// IsAcceptedDesToken reports whether the foreign token may be bridged to.
func (e *Engine) IsAcceptedDesToken(token string) bool {
	var status bool
	ok, err := e.store.KVGet(desTokenKey(token), &status)
	if err != nil || !ok {
		return false
	}
	return status
}

// SetMaxSwapAmount caps single-swap volume for a local token. Zero removes
// the cap. Admin-gated.
func (e *Engine) SetMaxSwapAmount(caller, token [20]byte, amount *big.Int) error {
	if err := e.registry.RequireAdmin(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return e.store.KVPut(maxAmountKey(token), amount)
}

// MaxSwapAmount returns the per-swap cap for a token, zero when uncapped.
func (e *Engine) MaxSwapAmount(token [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := e.store.KVGet(maxAmountKey(token), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// ApproveTransaction lets an admin pre-clear a transaction id past the max
// swap amount check.
func (e *Engine) ApproveTransaction(caller [20]byte, txID string, status bool) error {
	if err := e.registry.RequireAdmin(caller); err != nil {
		return err
	}
	return e.store.KVPut(approvedKey(txID), status)
}

// IsApprovedTransaction reports whether the transaction id carries an admin
// override.
func (e *Engine) IsApprovedTransaction(txID string) bool {
	var status bool
	ok, err := e.store.KVGet(approvedKey(txID), &status)
	if err != nil || !ok {
		return false
	}
	return status
}

// Swap returns the persisted record for a transaction id.
func (e *Engine) Swap(txID string) (SwapData, bool, error) {
	var data SwapData
	ok, err := e.store.KVGet(swapKey(txID), &data)
	if err != nil {
		return SwapData{}, false, err
	}
	return data, ok, nil
}

func (e *Engine) txUsed(txID string) (bool, error) {
	data, ok, err := e.Swap(txID)
	if err != nil {
		return false, err
	}
	return ok && data.Amount != nil && data.Amount.Sign() > 0, nil
}

func (e *Engine) validateSwap(sender [20]byte, msg SwapMessage) error {
	if msg.Amount == nil || msg.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	used, err := e.txUsed(msg.TxID)
	if err != nil {
		return err
	}
	if used {
		return ErrTransactionExisted
	}
	if sender != msg.CurUser {
		return ErrInvalidSwapData
	}
	if !e.IsAcceptedCurToken(msg.CurToken) || !e.IsAcceptedDesToken(msg.DesToken) {
		return ErrInvalidSwapData
	}
	return nil
}

// Mint handles the inbound direction: a signed order releases supply on this
// chain after the foreign side locked or burned it. The amount is bounded by
// the per-token cap unless an admin approved the transaction id.
func (e *Engine) Mint(sender [20]byte, msg SwapMessage, signature []byte) ([]types.Message, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.validateSwap(sender, msg); err != nil {
		return nil, err
	}
	max, err := e.MaxSwapAmount(msg.CurToken)
	if err != nil {
		return nil, err
	}
	if max.Sign() > 0 && msg.Amount.Cmp(max) > 0 && !e.IsApprovedTransaction(msg.TxID) {
		return nil, ErrExceededMaxAmount
	}
	if !e.registry.Verify(msg, signature) {
		return nil, auth.ErrInvalidSignature
	}
	if err := e.recordSwap(msg, SideMint); err != nil {
		return nil, err
	}
	e.emitter.Emit(swapEvent{TxID: msg.TxID, User: msg.CurUser, Amount: msg.Amount, Side: SideMint})
	return []types.Message{types.TokenMint{Token: msg.CurToken, Recipient: msg.CurUser, Amount: msg.Amount}}, nil
}

// Burn handles the outbound direction: the sender destroys local supply so
// the foreign side can release it. No signature is required since the sender
// only spends its own tokens.
func (e *Engine) Burn(sender [20]byte, msg SwapMessage) ([]types.Message, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.validateSwap(sender, msg); err != nil {
		return nil, err
	}
	if err := e.recordSwap(msg, SideBurn); err != nil {
		return nil, err
	}
	e.emitter.Emit(swapEvent{TxID: msg.TxID, User: msg.CurUser, Amount: msg.Amount, Side: SideBurn})
	return []types.Message{types.TokenBurnFrom{Token: msg.CurToken, Owner: sender, Amount: msg.Amount}}, nil
}

func (e *Engine) recordSwap(msg SwapMessage, side string) error {
	return e.store.KVPut(swapKey(msg.TxID), SwapData{
		CurToken: msg.CurToken,
		DesToken: msg.DesToken,
		CurUser:  msg.CurUser,
		DesUser:  msg.DesUser,
		Amount:   msg.Amount,
		Side:     side,
	})
}
