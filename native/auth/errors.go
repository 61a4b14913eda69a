package auth

import "errors"

var (
	// ErrUnauthorized indicates the caller lacks the role the call requires.
	ErrUnauthorized = errors.New("auth: unauthorized")
	// ErrNonceUsed indicates the supplied nonce was already consumed by a
	// prior successful call.
	ErrNonceUsed = errors.New("auth: nonce used")
	// ErrTimeExpired indicates the signed payload fell outside its validity
	// window.
	ErrTimeExpired = errors.New("auth: time expired")
	// ErrInvalidSignature indicates the payload signature did not verify
	// against the stored signer key.
	ErrInvalidSignature = errors.New("auth: invalid signature")
	// ErrOwnerUnset indicates the registry was queried before instantiation.
	ErrOwnerUnset = errors.New("auth: owner not set")
	// ErrInternal flags a storage write failure; not expected in normal
	// operation.
	ErrInternal = errors.New("auth: internal")
)
