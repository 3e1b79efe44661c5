// file: internal/security/codec.go

package security

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	json "github.com/goccy/go-json"
)

// Canonicalize renders a payload as canonical JSON: keys sorted
// lexicographically at every nesting level, no insignificant whitespace,
// numbers kept as their literal form. Two payloads representing the same
// logical structure canonicalize to identical bytes regardless of field
// insertion order. The signature is always computed over these exact bytes,
// and these exact bytes are what goes on the wire.
func Canonicalize(payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	// Round-trip through a generic value so struct payloads and map payloads
	// collapse to the same map form. UseNumber keeps numeric literals intact
	// instead of forcing them through float64.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to normalize payload: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to encode canonical payload: %w", err)
	}
	return canonical, nil
}

// Sign produces an ECDSA P-384 signature over data using a SHA-384 digest.
// The signature is ASN.1 DER, returned as standard base64 for the
// x-signature header. Signatures are not bit-stable across calls; only
// Verify-compatibility is guaranteed.
func Sign(key *ecdsa.PrivateKey, data []byte) (string, error) {
	digest := sha512.Sum384(data)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return "", fmt.Errorf("ecdsa sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether sigB64 is a valid base64 ECDSA P-384/SHA-384
// signature over data. Malformed input is a verification failure, never an
// error.
func Verify(pub *ecdsa.PublicKey, data []byte, sigB64 string) bool {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	digest := sha512.Sum384(data)
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}
