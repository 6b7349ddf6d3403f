package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
)

// Secret long enough to sign refresh tokens in tests
const RefreshSecret = "test-refresh-secret-0123456789abcdef"

var (
	keyOnce sync.Once
	keyPEM  []byte
	keyErr  error
)

// RSAPrivateKeyPEM returns PKCS#8 PEM encoded RSA key
// The key is generated once per test binary: RSA generation is slow
func RSAPrivateKeyPEM(t *testing.T) []byte {
	t.Helper()

	keyOnce.Do(func() {
		keyPEM, keyErr = GenerateRSAPrivateKeyPEM()
	})
	if keyErr != nil {
		t.Fatalf("failed to generate rsa key: %v", keyErr)
	}

	return keyPEM
}

// GenerateRSAPrivateKeyPEM generates new 2048 bit key on every call
func GenerateRSAPrivateKeyPEM() ([]byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
