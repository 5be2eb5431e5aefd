package websub

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"net/http"
	"strings"
)

// SignatureHeader is the header carrying the hub's HMAC signature,
// formatted "algorithm=hexdigest".
const SignatureHeader = "X-Hub-Signature"

var (
	// ErrMissingSignature indicates the signature header was absent.
	ErrMissingSignature = errors.New("missing X-Hub-Signature header")

	// ErrSignatureMismatch indicates the computed HMAC did not match the
	// provided digest.
	ErrSignatureMismatch = errors.New("HMAC signature verification failed")
)

// UnsupportedAlgorithmError indicates a signature algorithm outside the
// allow-list. Rejected before any hash computation; accepting arbitrary
// algorithm tokens would let a sender pick a weak hash.
type UnsupportedAlgorithmError struct {
	Algorithm string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported signature method: %s", e.Algorithm)
}

// hashConstructors is the fixed allow-list of accepted HMAC hash functions.
var hashConstructors = map[string]func() hash.Hash{
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// VerifySignature checks the authenticity of a hub push delivery against the
// shared secret. The signature header is located case-insensitively and the
// digest comparison is constant-time. Returns nil when the request is
// authentic.
func VerifySignature(header http.Header, body []byte, secret string) error {
	// http.Header lookup is case-insensitive by construction.
	signature := header.Get(SignatureHeader)
	if signature == "" {
		return ErrMissingSignature
	}

	algorithm, digest, _ := strings.Cut(signature, "=")
	newHash, ok := hashConstructors[algorithm]
	if !ok {
		return &UnsupportedAlgorithmError{Algorithm: algorithm}
	}

	provided, err := hex.DecodeString(digest)
	if err != nil {
		return ErrSignatureMismatch
	}

	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrSignatureMismatch
	}

	return nil
}

// Sign computes the hex HMAC digest of body for the given algorithm.
func Sign(algorithm string, secret string, body []byte) (string, error) {
	newHash, ok := hashConstructors[algorithm]
	if !ok {
		return "", &UnsupportedAlgorithmError{Algorithm: algorithm}
	}
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// FormatSignature renders an "algorithm=hexdigest" header value.
func FormatSignature(algorithm, hexDigest string) string {
	return algorithm + "=" + hexDigest
}
