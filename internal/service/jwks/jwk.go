// Package jwks encodes RSA public keys as JSON Web Key Sets (RFC 7517)
// and fetches key sets published by other instances.
package jwks

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

const (
	KeyTypeRSA = "RSA"
	UseSig     = "sig"
	AlgRS256   = "RS256"
)

var ErrKeyNotFound = errors.New("key not found in key set")

type Key struct {
	KeyType   string `json:"kty"`
	Use       string `json:"use,omitempty"`
	Algorithm string `json:"alg,omitempty"`
	KeyID     string `json:"kid"`
	N         string `json:"n"`
	E         string `json:"e"`
}

type Set struct {
	Keys []Key `json:"keys"`
}

// FromRSA converts public key to JWK with thumbprint as key id
func FromRSA(pub *rsa.PublicKey) Key {
	k := Key{
		KeyType:   KeyTypeRSA,
		Use:       UseSig,
		Algorithm: AlgRS256,
		N:         base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:         base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
	k.KeyID = k.Thumbprint()
	return k
}

// Thumbprint computes RFC 7638 thumbprint: members in lexicographic order, no whitespace
func (k Key) Thumbprint() string {
	canonical := fmt.Sprintf(`{"e":%q,"kty":%q,"n":%q}`, k.E, k.KeyType, k.N)
	sum := sha256.Sum256([]byte(canonical))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (k Key) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.KeyType != KeyTypeRSA {
		return nil, fmt.Errorf("unsupported key type %q", k.KeyType)
	}

	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	exponent := new(big.Int).SetBytes(e)
	if len(n) == 0 || !exponent.IsInt64() || exponent.Int64() < 3 {
		return nil, errors.New("invalid rsa public key")
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exponent.Int64())}, nil
}

// Find returns key with the key id
func (s Set) Find(kid string) (Key, error) {
	for _, k := range s.Keys {
		if k.KeyID == kid {
			return k, nil
		}
	}
	return Key{}, ErrKeyNotFound
}
