// Command genkeys generates key material for tenantauth:
// RSA private key to sign access tokens with and a refresh token secret.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

const (
	SecretKeyBytesLen = 32
	defaultKeyBits    = 2048
)

func run(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("genkeys", pflag.ContinueOnError)
	bits := fs.IntP("bits", "b", defaultKeyBits, "RSA key size")
	out := fs.StringP("out", "o", "private.pem", "Path to write private key to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bits < defaultKeyBits {
		return fmt.Errorf("key size %d is too small, minimum is %d", *bits, defaultKeyBits)
	}

	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		return fmt.Errorf("error while generating private key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("error while encoding private key: %w", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(*out, block, 0o600); err != nil {
		return fmt.Errorf("error while writing private key: %w", err)
	}

	secret := make([]byte, SecretKeyBytesLen)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("error while generating secret key: %w", err)
	}

	_, err = fmt.Fprintf(stdout, "PRIVATE_KEY_PATH=%s\nREFRESH_TOKEN_SECRET=%s\n", *out, hex.EncodeToString(secret))
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
