package payment

import (
	"errors"
	"fmt"

	"gamechain/core/events"
	"gamechain/crypto"
	"gamechain/native/auth"
	"gamechain/native/common"
)

const moduleName = "payment"

// FeeDenominator is the basis-point scale shared with the marketplace.
const FeeDenominator = 10000

var (
	// ErrNotSupported indicates the asset contract has no support record.
	ErrNotSupported = errors.New("payment: contract not supported")
	// ErrInvalidFee indicates a fee above the basis-point scale.
	ErrInvalidFee = errors.New("payment: invalid fee")
)

// Storage is the state contract the policy store needs.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// ContractSupport classifies one asset contract for marketplace use.
type ContractSupport struct {
	Fee    uint64
	IsNFT  bool
	Active bool
}

// Engine is the payment policy side-car the marketplace consults before
// accepting listings.
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
		return fmt.Errorf("payment: storage not configured")
	}
	return e.registry.Instantiate(owner)
}

func (e *Engine) requireOwner(caller [20]byte) error {
	owner, err := e.registry.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return auth.ErrUnauthorized
	}
	return nil
}

func supportKey(asset [20]byte) []byte {
	return []byte("payment/support/" + crypto.MustAddress(asset))
}

// Composite key: asset contract + payment token, string-concatenated.
func methodKey(asset, payToken [20]byte) []byte {
	return []byte("payment/method/" + crypto.MustAddress(asset) + crypto.MustAddress(payToken))
}

// AddContractSupport registers an asset contract with its fee and
// fungibility class and accepts the initial payment token. Owner-gated.
func (e *Engine) AddContractSupport(caller, asset [20]byte, fee uint64, isNFT bool, payToken [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if fee > FeeDenominator {
		return ErrInvalidFee
	}
	support := ContractSupport{Fee: fee, IsNFT: isNFT, Active: true}
	if err := e.store.KVPut(supportKey(asset), support); err != nil {
		return err
	}
	if err := e.store.KVPut(methodKey(asset, payToken), true); err != nil {
		return err
	}
	e.emitter.Emit(supportEvent{Asset: asset, Fee: fee, Active: true})
	return nil
}

// UpdateFee replaces the fee for an already supported contract. Owner-gated.
// Resting marketplace listings pick the new fee up at settlement time.
func (e *Engine) UpdateFee(caller, asset [20]byte, fee uint64) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if fee > FeeDenominator {
		return ErrInvalidFee
	}
	support, err := e.support(asset)
	if err != nil {
		return err
	}
	support.Fee = fee
	if err := e.store.KVPut(supportKey(asset), support); err != nil {
		return err
	}
	e.emitter.Emit(supportEvent{Asset: asset, Fee: fee, Active: support.Active})
	return nil
}

// SetPaymentMethod flips acceptance of a payment token for an asset
// contract. Owner-gated.
func (e *Engine) SetPaymentMethod(caller, asset, payToken [20]byte, status bool) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.store.KVPut(methodKey(asset, payToken), status)
}

// RemoveContractSupport soft-deletes the support record: only the active
// flag flips. The stored fee and class keep serving queries, so resting
// marketplace listings still settle.
func (e *Engine) RemoveContractSupport(caller, asset [20]byte) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	support, err := e.support(asset)
	if err != nil {
		return err
	}
	support.Active = false
	if err := e.store.KVPut(supportKey(asset), support); err != nil {
		return err
	}
	e.emitter.Emit(supportEvent{Asset: asset, Fee: support.Fee, Active: false})
	return nil
}

// support loads the record regardless of the active flag; the flag is
// descriptive, not a query gate.
func (e *Engine) support(asset [20]byte) (ContractSupport, error) {
	var support ContractSupport
	ok, err := e.store.KVGet(supportKey(asset), &support)
	if err != nil {
		return ContractSupport{}, err
	}
	if !ok {
		return ContractSupport{}, ErrNotSupported
	}
	return support, nil
}

// ContractSupportInfo returns the support record for an asset, active or not.
func (e *Engine) ContractSupportInfo(asset [20]byte) (ContractSupport, error) {
	return e.support(asset)
}

// ContractFee returns the basis-point fee for an asset contract. Unknown
// contracts report a zero fee.
func (e *Engine) ContractFee(asset [20]byte) (uint64, error) {
	var support ContractSupport
	ok, err := e.store.KVGet(supportKey(asset), &support)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return support.Fee, nil
}

// IsNFTContract reports whether the asset contract is classified
// non-fungible.
func (e *Engine) IsNFTContract(asset [20]byte) (bool, error) {
	support, err := e.support(asset)
	if err != nil {
		return false, err
	}
	return support.IsNFT, nil
}

// IsTokenSupport reports whether the payment token is accepted for the asset
// contract. Only the payment-method flag decides; the support record's
// active flag does not factor in.
func (e *Engine) IsTokenSupport(asset, payToken [20]byte) bool {
	var status bool
	ok, err := e.store.KVGet(methodKey(asset, payToken), &status)
	if err != nil || !ok {
		return false
	}
	return status
}
