package tokenmanager

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/tenantauth/internal/service/jwks"
)

const (
	minSigningKeyBits   = 2048
	minRefreshSecretLen = 32
)

// KeyMaterial holds everything needed to sign tokens
// Loaded once on startup and never mutated afterwards
type KeyMaterial struct {
	signingKey    *rsa.PrivateKey
	publicKey     jwks.Key
	refreshSecret []byte
}

// LoadKeyMaterial parses PEM encoded RSA private key (PKCS#1 or PKCS#8)
// refreshSecret signs refresh tokens and has to be at least 32 bytes long
func LoadKeyMaterial(privateKeyPEM []byte, refreshSecret string) (*KeyMaterial, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("invalid signing key. Err: %w", err)
	}
	if key.N.BitLen() < minSigningKeyBits {
		return nil, fmt.Errorf("signing key is too short: %d bits, at least %d required", key.N.BitLen(), minSigningKeyBits)
	}

	if len(refreshSecret) < minRefreshSecretLen {
		return nil, fmt.Errorf("refresh secret is too short, at least %d bytes required", minRefreshSecretLen)
	}

	return &KeyMaterial{
		signingKey:    key,
		publicKey:     jwks.FromRSA(&key.PublicKey),
		refreshSecret: []byte(refreshSecret),
	}, nil
}

// ReadKeyMaterial reads private key from the file
func ReadKeyMaterial(privateKeyPath string, refreshSecret string) (*KeyMaterial, error) {
	if privateKeyPath == "" {
		return nil, errors.New("private key path must not be empty")
	}

	data, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("error while reading private key. Err: %w", err)
	}

	return LoadKeyMaterial(data, refreshSecret)
}

// KeyID is the thumbprint of the public key, sent as 'kid' header
func (k *KeyMaterial) KeyID() string {
	return k.publicKey.KeyID
}

// JWKS returns public part of the material as key set document
func (k *KeyMaterial) JWKS() jwks.Set {
	return jwks.Set{Keys: []jwks.Key{k.publicKey}}
}

// PublicKeys returns key set that resolves the local public key only
func (k *KeyMaterial) PublicKeys() KeySet {
	return staticKeySet{kid: k.publicKey.KeyID, key: &k.signingKey.PublicKey}
}

// KeySet resolves public keys to verify access tokens by key id
// jwks.Client satisfies it for keys published by other instances
type KeySet interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type staticKeySet struct {
	kid string
	key *rsa.PublicKey
}

func (s staticKeySet) PublicKey(_ context.Context, kid string) (*rsa.PublicKey, error) {
	if kid != s.kid {
		return nil, jwks.ErrKeyNotFound
	}
	return s.key, nil
}
