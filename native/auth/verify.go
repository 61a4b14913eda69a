package auth

import (
	"crypto/sha256"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Payload is implemented by every off-chain signable action. The canonical
// message must be byte-identical for equal logical input: field order and
// representation are fixed by the payload's schema, never by map iteration.
type Payload interface {
	CanonicalMessage() (string, error)
}

// Digest computes the SHA-256 digest of the payload's canonical message.
func Digest(p Payload) ([]byte, error) {
	message, err := p.CanonicalMessage()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(message))
	return sum[:], nil
}

// Verify reports whether the signature over the payload's canonical digest
// checks out against the stored signer key. Malformed signatures and
// canonicalisation failures both read as invalid; callers surface
// ErrInvalidSignature.
func (r *Registry) Verify(p Payload, signature []byte) bool {
	if r == nil || p == nil {
		return false
	}
	signer := r.Signer()
	if len(signer) == 0 {
		return false
	}
	digest, err := Digest(p)
	if err != nil {
		return false
	}
	if len(signature) < 64 {
		return false
	}
	return ethcrypto.VerifySignature(signer, digest, signature[:64])
}
