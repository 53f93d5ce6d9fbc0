// Package vpnerr defines the sentinel error kinds shared across the tunnel
// plane: package-level vars checked with errors.Is rather than ad hoc
// string matching.
package vpnerr

import "errors"

var (
	// ErrSetup signals a failure bringing up the TUN device or its addressing.
	ErrSetup = errors.New("vpntun: failed to set up tun device")

	// ErrInvalidPrivateKeyFormat signals a key file that is not PKCS#8 Ed25519.
	ErrInvalidPrivateKeyFormat = errors.New("vpntun: invalid private key format")

	// ErrInvalidSignature signals a signature verification failure.
	ErrInvalidSignature = errors.New("vpntun: invalid signature")

	// ErrBrokenMessage signals a serialization, deserialization, or AEAD-tag failure.
	ErrBrokenMessage = errors.New("vpntun: broken message")

	// ErrNonceExhausted signals that a session's nonce sequence has been
	// exhausted and the session must be torn down.
	ErrNonceExhausted = errors.New("vpntun: nonce sequence exhausted")
)
