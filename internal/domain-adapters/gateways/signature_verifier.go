package gateways

import (
	"context"
	"errors"
	"fmt"

	"github.com/ochairo/decant/internal/domain/interfaces"
	"github.com/ochairo/decant/internal/external-adapters/gpg"
)

// ErrSignatureMismatch is returned when an installer's detached signature does not verify
var ErrSignatureMismatch = errors.New("signature verification failed")

// signatureVerifier wraps the external OpenPGP adapter for installer signatures
type signatureVerifier struct {
	logger interfaces.Logger
}

// NewSignatureVerifier creates a new signature verifier gateway
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewSignatureVerifier(logger interfaces.Logger) *signatureVerifier {
	return &signatureVerifier{logger: interfaces.OrNoOp(logger)}
}

// Verify checks sigPath against filePath using the public keys in keyringPaths.
// A fresh keyring is built per call so keys never leak between builds.
func (s *signatureVerifier) Verify(ctx context.Context, filePath, sigPath string, keyringPaths []string) (string, error) {
	if len(keyringPaths) == 0 {
		return "", fmt.Errorf("%w: no keyring provided", ErrSignatureMismatch)
	}

	verifier := gpg.NewVerifier()
	for _, keyPath := range keyringPaths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := verifier.ImportKeyFromFile(keyPath); err != nil {
			return "", fmt.Errorf("failed to import key %s: %w", keyPath, err)
		}
	}
	s.logger.Debug("keyring loaded", interfaces.F("keys", verifier.GetKeyringSize()))

	fingerprint, err := verifier.VerifySignatureFromFile(filePath, sigPath)
	if err != nil {
		if errors.Is(err, gpg.ErrBadSignature) {
			return "", fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
		}
		return "", err
	}

	s.logger.Info("signature verified", interfaces.F("file", filePath), interfaces.F("signer", fingerprint))
	return fingerprint, nil
}
