package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gamechain/core/events"
	"gamechain/crypto"
	"gamechain/native/auth"
	"gamechain/native/common"
)

const moduleName = "token"

var (
	// ErrCannotExceedCap indicates a mint would push supply past the cap.
	ErrCannotExceedCap = errors.New("token: cannot exceed cap")
	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("token: invalid amount")
	// ErrInsufficientBalance indicates the sender holds fewer tokens than the
	// call moves.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrNotInitialised indicates the token info record is missing.
	ErrNotInitialised = errors.New("token: not initialised")
)

// Storage is the state contract the token engine needs.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Info describes the fungible token. A zero cap means uncapped supply.
type Info struct {
	Name     string
	Symbol   string
	Decimals uint8
	Supply   *big.Int
	Cap      *big.Int
}

// MintPayload is the off-chain signed authorisation to mint. The recipient is
// always the submitting sender; there is no separate recipient field.
type MintPayload struct {
	Sender    [20]byte
	Amount    *big.Int
	Nonce     string
	Timestamp int64
}

// CanonicalMessage renders the payload in its fixed signing form.
func (p MintPayload) CanonicalMessage() (string, error) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return "", ErrInvalidAmount
	}
	nonce := strings.TrimSpace(p.Nonce)
	if nonce == "" {
		return "", fmt.Errorf("token: nonce must not be empty")
	}
	return fmt.Sprintf("GAME_TOKEN_MINT_V1|sender=%s|amount=%s|nonce=%s|ts=%d",
		crypto.MustAddress(p.Sender), p.Amount.String(), nonce, p.Timestamp), nil
}

// Engine maintains the fungible ledger: token info, total supply and
// per-account balances.
type Engine struct {
	store    Storage
	registry *auth.Registry
	emitter  events.Emitter
	pauses   common.PauseView
	nowFn    func() int64
}

// NewEngine returns an engine with safe defaults.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
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

// SetNowFunc overrides the ledger clock, mainly for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Registry exposes the module's access registry for host-level admin calls.
func (e *Engine) Registry() *auth.Registry { return e.registry }

var (
	infoKey = []byte("token/info")
)

func balanceKey(addr [20]byte) []byte {
	return []byte("token/balance/" + crypto.MustAddress(addr))
}

// Instantiate seeds the token info and access registry. Supply always starts
// at zero; minting is the only issuance path.
func (e *Engine) Instantiate(owner [20]byte, info Info) error {
	if e.store == nil {
		return fmt.Errorf("token: storage not configured")
	}
	if strings.TrimSpace(info.Name) == "" || strings.TrimSpace(info.Symbol) == "" {
		return fmt.Errorf("token: name and symbol are required")
	}
	if info.Cap != nil && info.Cap.Sign() < 0 {
		return fmt.Errorf("token: cap must not be negative")
	}
	info.Supply = big.NewInt(0)
	if info.Cap == nil {
		info.Cap = big.NewInt(0)
	}
	if err := e.registry.Instantiate(owner); err != nil {
		return err
	}
	return e.store.KVPut(infoKey, info)
}

// Info returns the stored token descriptor.
func (e *Engine) Info() (Info, error) {
	var info Info
	ok, err := e.store.KVGet(infoKey, &info)
	if err != nil {
		return Info{}, err
	}
	if !ok {
		return Info{}, ErrNotInitialised
	}
	return info, nil
}

// BalanceOf returns the account balance, zero when absent.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := e.store.KVGet(balanceKey(addr), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

func (e *Engine) setBalance(addr [20]byte, amount *big.Int) error {
	return e.store.KVPut(balanceKey(addr), amount)
}

// MintWithSignature credits the sender with freshly minted supply. The call
// carries an off-chain admin signature over the canonical mint payload and is
// guarded by nonce replay protection and the staleness window.
func (e *Engine) MintWithSignature(sender [20]byte, amount *big.Int, nonce string, timestamp int64, signature []byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	info, err := e.Info()
	if err != nil {
		return err
	}
	if err := auth.CheckExpiry(timestamp, e.nowFn()); err != nil {
		return err
	}
	// Consumed before verification; a later failure aborts the call and
	// discards the mark with the rest of the write set.
	if err := e.registry.ConsumeNonce(nonce); err != nil {
		return err
	}
	payload := MintPayload{Sender: sender, Amount: amount, Nonce: nonce, Timestamp: timestamp}
	if !e.registry.Verify(payload, signature) {
		return auth.ErrInvalidSignature
	}
	supply := new(big.Int).Add(info.Supply, amount)
	if info.Cap.Sign() > 0 && supply.Cmp(info.Cap) > 0 {
		return ErrCannotExceedCap
	}
	info.Supply = supply
	if err := e.store.KVPut(infoKey, info); err != nil {
		return err
	}
	balance, err := e.BalanceOf(sender)
	if err != nil {
		return err
	}
	if err := e.setBalance(sender, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	e.emitter.Emit(mintedEvent{Recipient: sender, Amount: amount, Supply: supply})
	return nil
}

// Transfer moves tokens between accounts.
func (e *Engine) Transfer(sender, recipient [20]byte, amount *big.Int) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	from, err := e.BalanceOf(sender)
	if err != nil {
		return err
	}
	if from.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := e.setBalance(sender, new(big.Int).Sub(from, amount)); err != nil {
		return err
	}
	to, err := e.BalanceOf(recipient)
	if err != nil {
		return err
	}
	if err := e.setBalance(recipient, new(big.Int).Add(to, amount)); err != nil {
		return err
	}
	e.emitter.Emit(transferredEvent{Sender: sender, Recipient: recipient, Amount: amount})
	return nil
}

// Burn destroys tokens held by the sender and shrinks total supply.
func (e *Engine) Burn(sender [20]byte, amount *big.Int) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := e.BalanceOf(sender)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	info, err := e.Info()
	if err != nil {
		return err
	}
	if err := e.setBalance(sender, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	info.Supply = new(big.Int).Sub(info.Supply, amount)
	if err := e.store.KVPut(infoKey, info); err != nil {
		return err
	}
	e.emitter.Emit(burnedEvent{Owner: sender, Amount: amount, Supply: info.Supply})
	return nil
}
