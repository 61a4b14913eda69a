package market

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"gamechain/core/events"
	"gamechain/crypto"
	"gamechain/native/auth"
	"gamechain/native/common"
)

const moduleName = "market"

// Storage is the state contract the marketplace needs.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// PaymentPolicy is the policy side-car consulted before accepting listings
// and at settlement time for fees. Satisfied by the payment engine.
type PaymentPolicy interface {
	IsTokenSupport(asset, payToken [20]byte) bool
	ContractFee(asset [20]byte) (uint64, error)
	IsNFTContract(asset [20]byte) (bool, error)
}

// TokenQuerier resolves balances and ownership against the external asset
// contracts. Every check re-queries current state.
type TokenQuerier interface {
	BalanceOf(token, owner [20]byte) (*big.Int, error)
	OwnerOf(contract [20]byte, tokenID string) (owner [20]byte, found bool, err error)
}

// Engine is the marketplace matching engine: orders, bids and bundles with
// escrow custody and the claim-route index.
type Engine struct {
	store    Storage
	registry *auth.Registry
	policy   PaymentPolicy
	querier  TokenQuerier
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

// SetPolicy wires the payment policy collaborator.
func (e *Engine) SetPolicy(p PaymentPolicy) { e.policy = p }

// SetQuerier wires the asset contract querier.
func (e *Engine) SetQuerier(q TokenQuerier) { e.querier = q }

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

var infoKey = []byte("market/info")

// Instantiate seeds the marketplace identity, the access registry and the
// custody account.
func (e *Engine) Instantiate(owner, self [20]byte, name, symbol string, bundleFee uint64) error {
	if e.store == nil {
		return fmt.Errorf("market: storage not configured")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("market: name is required")
	}
	if bundleFee > FeeDenominator {
		return ErrInvalidFee
	}
	e.self = self
	if err := e.registry.Instantiate(owner); err != nil {
		return err
	}
	if err := e.store.KVPut([]byte("market/self"), self); err != nil {
		return err
	}
	return e.store.KVPut(infoKey, ContractInfo{Name: name, Symbol: symbol, BundleFee: bundleFee})
}

// Info returns the marketplace descriptor and counters.
func (e *Engine) Info() (ContractInfo, error) {
	var info ContractInfo
	ok, err := e.store.KVGet(infoKey, &info)
	if err != nil {
		return ContractInfo{}, err
	}
	if !ok {
		return ContractInfo{}, fmt.Errorf("market: not initialised")
	}
	return info, nil
}

// UpdateBundleFee replaces the bundle fee. Owner-gated; resting bundles
// settle at the fee in force when bought.
func (e *Engine) UpdateBundleFee(caller [20]byte, fee uint64) error {
	owner, err := e.registry.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return auth.ErrUnauthorized
	}
	if fee > FeeDenominator {
		return ErrInvalidFee
	}
	info, err := e.Info()
	if err != nil {
		return err
	}
	info.BundleFee = fee
	return e.store.KVPut(infoKey, info)
}

// UpdatePaymentPolicy records the payment policy contract reference the host
// should route policy queries to. Owner-gated. The engine itself consults
// the injected PaymentPolicy collaborator; the stored address is the
// cross-contract pointer surfaced to queries.
func (e *Engine) UpdatePaymentPolicy(caller, policy [20]byte) error {
	owner, err := e.registry.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return auth.ErrUnauthorized
	}
	info, err := e.Info()
	if err != nil {
		return err
	}
	info.Policy = policy
	return e.store.KVPut(infoKey, info)
}

func orderKey(id string) []byte  { return []byte("market/order/" + id) }
func bidKey(id string) []byte    { return []byte("market/bid/" + id) }
func bundleKey(id string) []byte { return []byte("market/bundle/" + id) }

// Claim-route key: asset contract + token id + custodian, string-concatenated.
func claimKey(asset [20]byte, tokenID string, custodian [20]byte) []byte {
	return []byte("market/canaccept/" + crypto.MustAddress(asset) + tokenID + crypto.MustAddress(custodian))
}

// Claim returns the claim-route entry for an (asset, token id, custodian)
// triple.
func (e *Engine) Claim(asset [20]byte, tokenID string, custodian [20]byte) (CanAccept, bool, error) {
	var claim CanAccept
	ok, err := e.store.KVGet(claimKey(asset, tokenID, custodian), &claim)
	if err != nil {
		return CanAccept{}, false, err
	}
	return claim, ok, nil
}

func (e *Engine) putClaim(asset [20]byte, tokenID string, custodian [20]byte, claim CanAccept) error {
	return e.store.KVPut(claimKey(asset, tokenID, custodian), claim)
}

func (e *Engine) releaseClaim(asset [20]byte, tokenID string, custodian [20]byte) error {
	return e.store.KVPut(claimKey(asset, tokenID, custodian), CanAccept{})
}

// nextID bumps the named counter and returns its new value as the entity id.
func (e *Engine) nextID(bump func(*ContractInfo) uint64) (string, error) {
	info, err := e.Info()
	if err != nil {
		return "", err
	}
	id := bump(&info)
	if err := e.store.KVPut(infoKey, info); err != nil {
		return "", err
	}
	return strconv.FormatUint(id, 10), nil
}

func (e *Engine) ready() error {
	if e.store == nil || e.policy == nil || e.querier == nil {
		return fmt.Errorf("market: engine not fully configured")
	}
	if e.self == ([20]byte{}) {
		ok, err := e.store.KVGet([]byte("market/self"), &e.self)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("market: not instantiated")
		}
	}
	return nil
}

func (e *Engine) guard() error {
	return common.Guard(e.pauses, moduleName)
}
