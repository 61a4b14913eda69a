package nft

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gamechain/core/events"
	"gamechain/core/types"
	"gamechain/crypto"
	"gamechain/native/auth"
	"gamechain/native/common"
)

const moduleName = "nft"

var (
	// ErrInvalidBoxContract indicates a burn source outside the box allow-list.
	ErrInvalidBoxContract = errors.New("nft: invalid box contract")
	// ErrNotOwnedNFT indicates the referenced asset belongs to someone else.
	ErrNotOwnedNFT = errors.New("nft: not owned nft")
	// ErrNotExistedNFT indicates the referenced asset does not exist.
	ErrNotExistedNFT = errors.New("nft: not existed nft")
	// ErrNotAdmin indicates this module is not the minter of a target contract.
	ErrNotAdmin = errors.New("nft: not admin of mint target")
	// ErrInvalidNftInfo indicates an empty box or mint list.
	ErrInvalidNftInfo = errors.New("nft: invalid nft info")
)

// Storage is the state contract the converter needs.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Querier resolves ownership and minter facts against the external NFT
// contracts. Results are re-queried on every call; nothing is cached.
type Querier interface {
	OwnerOf(contract [20]byte, tokenID string) (owner [20]byte, found bool, err error)
	MinterOf(contract [20]byte) ([20]byte, error)
}

// BoxItem identifies one box asset to burn.
type BoxItem struct {
	Contract [20]byte
	TokenID  string
}

// MintTarget identifies a destination collection and the token ids to mint
// into it.
type MintTarget struct {
	Contract [20]byte
	TokenIDs []string
}

// ConvertPayload is the off-chain signed conversion order. Replay protection
// comes from the burn itself: a replayed payload fails the ownership check
// because the boxes no longer exist.
type ConvertPayload struct {
	Sender    [20]byte
	Boxes     []BoxItem
	Mints     []MintTarget
	Timestamp int64
}

// CanonicalMessage renders the payload in its fixed signing form.
func (p ConvertPayload) CanonicalMessage() (string, error) {
	if len(p.Boxes) == 0 || len(p.Mints) == 0 {
		return "", ErrInvalidNftInfo
	}
	boxes := make([]string, 0, len(p.Boxes))
	for _, box := range p.Boxes {
		if strings.TrimSpace(box.TokenID) == "" {
			return "", ErrInvalidNftInfo
		}
		boxes = append(boxes, crypto.MustAddress(box.Contract)+":"+box.TokenID)
	}
	mints := make([]string, 0, len(p.Mints))
	for _, target := range p.Mints {
		if len(target.TokenIDs) == 0 {
			return "", ErrInvalidNftInfo
		}
		mints = append(mints, crypto.MustAddress(target.Contract)+":"+strings.Join(target.TokenIDs, "+"))
	}
	return fmt.Sprintf("GAME_NFT_CONVERT_V1|sender=%s|boxes=%s|mints=%s|ts=%d",
		crypto.MustAddress(p.Sender), strings.Join(boxes, ","), strings.Join(mints, ","), p.Timestamp), nil
}

// Engine burns allow-listed box assets and mints replacement assets, both via
// messages dispatched by the host after commit.
type Engine struct {
	store    Storage
	registry *auth.Registry
	querier  Querier
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

// SetQuerier wires the external NFT contract querier.
func (e *Engine) SetQuerier(q Querier) { e.querier = q }

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

// selfAddress returns the module's own account, reloading it from state when
// the engine was rebound after instantiation.
func (e *Engine) selfAddress() ([20]byte, error) {
	if e.self != ([20]byte{}) {
		return e.self, nil
	}
	ok, err := e.store.KVGet([]byte("nft/self"), &e.self)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, fmt.Errorf("nft: not instantiated")
	}
	return e.self, nil
}

// Instantiate seeds the access registry and records the module's own account,
// used for minter checks against target collections.
func (e *Engine) Instantiate(owner, self [20]byte) error {
	if e.store == nil {
		return fmt.Errorf("nft: storage not configured")
	}
	e.self = self
	if err := e.registry.Instantiate(owner); err != nil {
		return err
	}
	return e.store.KVPut([]byte("nft/self"), self)
}

func boxKey(contract [20]byte) []byte {
	return []byte("nft/box/" + crypto.MustAddress(contract))
}

// SetBoxContract flips a contract's membership in the box allow-list.
// Admin-gated.
func (e *Engine) SetBoxContract(caller, contract [20]byte, status bool) error {
	if err := e.registry.RequireAdmin(caller); err != nil {
		return err
	}
	return e.store.KVPut(boxKey(contract), status)
}

// IsBoxContract reports whether the contract is an accepted box source.
func (e *Engine) IsBoxContract(contract [20]byte) bool {
	var status bool
	ok, err := e.store.KVGet(boxKey(contract), &status)
	if err != nil || !ok {
		return false
	}
	return status
}

// Convert validates the signed conversion order, then returns burn messages
// for every box and mint messages for every target. Messages are built only
// after full validation so a failure emits nothing.
func (e *Engine) Convert(sender [20]byte, payload ConvertPayload, signature []byte) ([]types.Message, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.querier == nil {
		return nil, fmt.Errorf("nft: querier not configured")
	}
	if len(payload.Boxes) == 0 || len(payload.Mints) == 0 {
		return nil, ErrInvalidNftInfo
	}
	if sender != payload.Sender {
		return nil, auth.ErrUnauthorized
	}
	if err := auth.CheckExpiry(payload.Timestamp, e.nowFn()); err != nil {
		return nil, err
	}
	if !e.registry.Verify(payload, signature) {
		return nil, auth.ErrInvalidSignature
	}
	for _, box := range payload.Boxes {
		if !e.IsBoxContract(box.Contract) {
			return nil, ErrInvalidBoxContract
		}
		owner, found, err := e.querier.OwnerOf(box.Contract, box.TokenID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, ErrNotExistedNFT
		}
		if owner != sender {
			return nil, ErrNotOwnedNFT
		}
	}
	self, err := e.selfAddress()
	if err != nil {
		return nil, err
	}
	for _, target := range payload.Mints {
		minter, err := e.querier.MinterOf(target.Contract)
		if err != nil {
			return nil, err
		}
		if minter != self {
			return nil, ErrNotAdmin
		}
	}
	msgs := make([]types.Message, 0, len(payload.Boxes)+len(payload.Mints))
	for _, box := range payload.Boxes {
		msgs = append(msgs, types.NFTBurn{Contract: box.Contract, TokenID: box.TokenID})
	}
	for _, target := range payload.Mints {
		msgs = append(msgs, types.NFTMintBatch{Contract: target.Contract, Owner: sender, TokenIDs: target.TokenIDs})
	}
	e.emitter.Emit(convertedEvent{Sender: sender, Boxes: len(payload.Boxes), Mints: len(payload.Mints)})
	return msgs, nil
}
