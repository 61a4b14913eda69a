package auth

import (
	"fmt"
	"strings"

	"gamechain/crypto"
)

// Storage abstracts the subset of state manager functionality required by the
// access registry.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// SignatureTTLSeconds bounds how long an off-chain signed payload stays
// submittable after its embedded timestamp.
const SignatureTTLSeconds int64 = 120

// Registry holds the owner, admin allow-list, signer key and consumed nonce
// set for one contract module. Every module carries its own namespace so
// nonce sets never bleed across contracts.
type Registry struct {
	store  Storage
	module string
}

// NewRegistry binds a registry to the supplied storage backend under the
// given module namespace.
func NewRegistry(store Storage, module string) *Registry {
	return &Registry{store: store, module: strings.TrimSpace(module)}
}

func (r *Registry) key(parts ...string) []byte {
	return []byte("auth/" + r.module + "/" + strings.Join(parts, "/"))
}

// Instantiate seeds the registry: the instantiating account becomes owner and
// its own first admin.
func (r *Registry) Instantiate(owner [20]byte) error {
	if r == nil || r.store == nil {
		return fmt.Errorf("auth: registry not initialised")
	}
	if err := r.store.KVPut(r.key("owner"), owner); err != nil {
		return ErrInternal
	}
	if err := r.store.KVPut(r.key("admin", crypto.MustAddress(owner)), true); err != nil {
		return ErrInternal
	}
	return nil
}

// Owner returns the current highest-privilege principal.
func (r *Registry) Owner() ([20]byte, error) {
	var owner [20]byte
	ok, err := r.store.KVGet(r.key("owner"), &owner)
	if err != nil {
		return owner, err
	}
	if !ok {
		return owner, ErrOwnerUnset
	}
	return owner, nil
}

// TransferOwnership reassigns the owner. Only the current owner may call it;
// admins cannot.
func (r *Registry) TransferOwnership(caller, user [20]byte) error {
	owner, err := r.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrUnauthorized
	}
	if err := r.store.KVPut(r.key("owner"), user); err != nil {
		return ErrInternal
	}
	return nil
}

// SetAdmin flips the admin flag for an account. Owner-gated.
func (r *Registry) SetAdmin(caller, user [20]byte, status bool) error {
	owner, err := r.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrUnauthorized
	}
	if err := r.store.KVPut(r.key("admin", crypto.MustAddress(user)), status); err != nil {
		return ErrInternal
	}
	return nil
}

// IsAdmin reports whether the account carries the admin flag. Absence and
// storage errors both read as false.
func (r *Registry) IsAdmin(user [20]byte) bool {
	var status bool
	ok, err := r.store.KVGet(r.key("admin", crypto.MustAddress(user)), &status)
	if err != nil || !ok {
		return false
	}
	return status
}

// RequireAdmin fails with ErrUnauthorized unless the caller is a listed
// admin.
func (r *Registry) RequireAdmin(caller [20]byte) error {
	if !r.IsAdmin(caller) {
		return ErrUnauthorized
	}
	return nil
}

// SetSigner replaces the trusted signer public key. Admin-gated. There is
// exactly one active key; rotating it invalidates every in-flight signature.
func (r *Registry) SetSigner(caller [20]byte, pubKey []byte) error {
	if err := r.RequireAdmin(caller); err != nil {
		return err
	}
	if err := r.store.KVPut(r.key("signer"), pubKey); err != nil {
		return ErrInternal
	}
	return nil
}

// Signer returns the currently stored signer public key, empty when unset.
func (r *Registry) Signer() []byte {
	var pubKey []byte
	ok, err := r.store.KVGet(r.key("signer"), &pubKey)
	if err != nil || !ok {
		return nil
	}
	return pubKey
}

// IsUsedNonce reports whether the nonce has been consumed.
func (r *Registry) IsUsedNonce(nonce string) bool {
	var used bool
	ok, err := r.store.KVGet(r.key("nonce", nonce), &used)
	if err != nil || !ok {
		return false
	}
	return used
}

// ConsumeNonce marks the nonce as spent, failing with ErrNonceUsed when it
// already was. The mark is written before signature verification; a later
// validation failure aborts the whole call, so nothing persists on error
// paths and the caller may retry with the same nonce.
func (r *Registry) ConsumeNonce(nonce string) error {
	if r.IsUsedNonce(nonce) {
		return ErrNonceUsed
	}
	if err := r.store.KVPut(r.key("nonce", nonce), true); err != nil {
		return ErrInternal
	}
	return nil
}

// CheckExpiry enforces the signature validity window: a payload fails once
// its timestamp is two minutes or more behind the ledger clock. Future
// timestamps pass; the window is a staleness rule, not a forward bound.
func CheckExpiry(timestamp, now int64) error {
	if timestamp+SignatureTTLSeconds <= now {
		return ErrTimeExpired
	}
	return nil
}
