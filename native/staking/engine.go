package staking

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gamechain/core/events"
	"gamechain/core/types"
	"gamechain/crypto"
	"gamechain/native/auth"
	"gamechain/native/common"
)

const moduleName = "staking"

var (
	// ErrNotAcceptedToken indicates the token is not on the staking
	// allow-list.
	ErrNotAcceptedToken = errors.New("staking: token not accepted")
	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("staking: invalid amount")
)

// Storage is the state contract the vault needs.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// StakeData is one staking position. Positions are append-only; unstaking
// does not remove them.
type StakeData struct {
	Amount    *big.Int
	Duration  uint64
	Token     [20]byte
	StakeTime uint64
}

// UnstakePayload is the off-chain signed withdrawal order.
type UnstakePayload struct {
	Sender    [20]byte
	Token     [20]byte
	Amount    *big.Int
	Nonce     string
	Timestamp int64
}

// CanonicalMessage renders the payload in its fixed signing form.
func (p UnstakePayload) CanonicalMessage() (string, error) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return "", ErrInvalidAmount
	}
	if strings.TrimSpace(p.Nonce) == "" {
		return "", fmt.Errorf("staking: nonce must not be empty")
	}
	return fmt.Sprintf("GAME_STAKING_UNSTAKE_V1|sender=%s|token=%s|amount=%s|nonce=%s|ts=%d",
		crypto.MustAddress(p.Sender), crypto.MustAddress(p.Token),
		p.Amount.String(), p.Nonce, p.Timestamp), nil
}

// Engine is the staking vault: deposits move tokens into contract custody and
// append positions, withdrawals are authorised off chain.
type Engine struct {
	store    Storage
	registry *auth.Registry
	emitter  events.Emitter
	pauses   common.PauseView
	nowFn    func() int64
	self     [20]byte
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

// Registry exposes the module's access registry.
func (e *Engine) Registry() *auth.Registry { return e.registry }

// selfAddress returns the custody account, reloading it from state when the
// engine was rebound after instantiation.
func (e *Engine) selfAddress() ([20]byte, error) {
	if e.self != ([20]byte{}) {
		return e.self, nil
	}
	ok, err := e.store.KVGet([]byte("staking/self"), &e.self)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, fmt.Errorf("staking: not instantiated")
	}
	return e.self, nil
}

// Instantiate seeds the access registry and records the vault's custody
// account.
func (e *Engine) Instantiate(owner, self [20]byte) error {
	if e.store == nil {
		return fmt.Errorf("staking: storage not configured")
	}
	e.self = self
	if err := e.registry.Instantiate(owner); err != nil {
		return err
	}
	return e.store.KVPut([]byte("staking/self"), self)
}

func tokenKey(token [20]byte) []byte {
	return []byte("staking/token/" + crypto.MustAddress(token))
}

func stakesKey(user [20]byte) []byte {
	return []byte("staking/stakes/" + crypto.MustAddress(user))
}

func totalKey(user [20]byte) []byte {
	return []byte("staking/total/" + crypto.MustAddress(user))
}

var tokenListKey = []byte("staking/tokens")

// SetAcceptedToken flips a token's staking acceptance flag. Admin-gated.
// Tokens stay on the enumeration list once seen; the flag decides
// acceptance.
func (e *Engine) SetAcceptedToken(caller, token [20]byte, status bool) error {
	if err := e.registry.RequireAdmin(caller); err != nil {
		return err
	}
	if err := e.store.KVPut(tokenKey(token), status); err != nil {
		return err
	}
	return e.store.KVAppend(tokenListKey, token[:])
}

// IsAcceptedToken reports whether the token may be staked.
func (e *Engine) IsAcceptedToken(token [20]byte) bool {
	var status bool
	ok, err := e.store.KVGet(tokenKey(token), &status)
	if err != nil || !ok {
		return false
	}
	return status
}

// AcceptedTokens returns every currently accepted token.
func (e *Engine) AcceptedTokens() ([][20]byte, error) {
	var raw [][]byte
	if err := e.store.KVGetList(tokenListKey, &raw); err != nil {
		return nil, err
	}
	tokens := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 20 {
			continue
		}
		var token [20]byte
		copy(token[:], entry)
		if e.IsAcceptedToken(token) {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

// Stakes returns the user's staking positions in creation order.
func (e *Engine) Stakes(user [20]byte) ([]StakeData, error) {
	var stakes []StakeData
	ok, err := e.store.KVGet(stakesKey(user), &stakes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []StakeData{}, nil
	}
	return stakes, nil
}

// TotalStaked returns the user's running deposit total. The counter only
// ever grows; withdrawals do not shrink it, matching the deployed ledger
// history downstream consumers reconcile against.
func (e *Engine) TotalStaked(user [20]byte) (*big.Int, error) {
	total := new(big.Int)
	ok, err := e.store.KVGet(totalKey(user), total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return total, nil
}

// Stake moves tokens into vault custody and opens a new position.
func (e *Engine) Stake(sender, token [20]byte, amount *big.Int, duration uint64) ([]types.Message, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if !e.IsAcceptedToken(token) {
		return nil, ErrNotAcceptedToken
	}
	stakes, err := e.Stakes(sender)
	if err != nil {
		return nil, err
	}
	stakes = append(stakes, StakeData{
		Amount:    amount,
		Duration:  duration,
		Token:     token,
		StakeTime: uint64(e.nowFn()),
	})
	if err := e.store.KVPut(stakesKey(sender), stakes); err != nil {
		return nil, err
	}
	total, err := e.TotalStaked(sender)
	if err != nil {
		return nil, err
	}
	if err := e.store.KVPut(totalKey(sender), new(big.Int).Add(total, amount)); err != nil {
		return nil, err
	}
	self, err := e.selfAddress()
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(stakedEvent{User: sender, Token: token, Amount: amount, Duration: duration})
	return []types.Message{types.TokenTransferFrom{Token: token, Owner: sender, Recipient: self, Amount: amount}}, nil
}

// Unstake releases tokens from custody against an off-chain signed
// withdrawal order. Positions and the running total are left as-is.
func (e *Engine) Unstake(sender [20]byte, payload UnstakePayload, signature []byte) ([]types.Message, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if payload.Amount == nil || payload.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if sender != payload.Sender {
		return nil, auth.ErrUnauthorized
	}
	if !e.IsAcceptedToken(payload.Token) {
		return nil, ErrNotAcceptedToken
	}
	if err := auth.CheckExpiry(payload.Timestamp, e.nowFn()); err != nil {
		return nil, err
	}
	if err := e.registry.ConsumeNonce(payload.Nonce); err != nil {
		return nil, err
	}
	if !e.registry.Verify(payload, signature) {
		return nil, auth.ErrInvalidSignature
	}
	e.emitter.Emit(unstakedEvent{User: sender, Token: payload.Token, Amount: payload.Amount})
	return []types.Message{types.TokenTransfer{Token: payload.Token, Recipient: sender, Amount: payload.Amount}}, nil
}
