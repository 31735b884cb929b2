package media

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// Signer signs payloads for generating signed media URLs.
type Signer interface {
	// Email returns the service account email used as the GoogleAccessID.
	Email() string
	// SignBytes signs the payload with the underlying private key.
	SignBytes(ctx context.Context, payload []byte) ([]byte, error)
}

// ServiceAccountSigner implements Signer backed by a service account RSA key.
type ServiceAccountSigner struct {
	email string
	key   *rsa.PrivateKey
}

// NewServiceAccountSigner builds a signer from a service account email and a
// PEM encoded private key.
func NewServiceAccountSigner(email, privateKeyPEM string) (*ServiceAccountSigner, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("media: signer email is required")
	}
	privateKeyPEM = strings.TrimSpace(privateKeyPEM)
	if privateKeyPEM == "" {
		return nil, errors.New("media: signer private key is required")
	}

	key, err := parseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &ServiceAccountSigner{email: email, key: key}, nil
}

// Email returns the signer service account email.
func (s *ServiceAccountSigner) Email() string {
	if s == nil {
		return ""
	}
	return s.email
}

// SignBytes applies RSA SHA256 signing over the payload.
func (s *ServiceAccountSigner) SignBytes(ctx context.Context, payload []byte) ([]byte, error) {
	if s == nil || s.key == nil {
		return nil, errors.New("media: signer not initialised")
	}
	if len(payload) == 0 {
		return nil, errors.New("media: payload is empty")
	}
	if ctx != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("media: sign payload: %w", err)
	}
	return sig, nil
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("media: failed to decode PEM private key")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("media: private key is not RSA")
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("media: parse private key: %w", err)
	}
	return rsaKey, nil
}
