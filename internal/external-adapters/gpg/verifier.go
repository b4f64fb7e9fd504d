// Package gpg provides OpenPGP detached signature verification.
package gpg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE-----"

// Errors reported by the verifier
var (
	ErrNoKeys       = errors.New("no OpenPGP keys imported")
	ErrBadSignature = errors.New("signature does not match")
)

// Verifier checks detached signatures against keys loaded from local files.
// It uses ProtonMail's go-crypto, the maintained fork of x/crypto/openpgp.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a verifier with an empty keyring
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
	}
}

// ImportKeyFromFile adds the keys in keyPath, armored or binary, to the keyring
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath is user-provided for key import
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		// Try reading as binary
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entities) == 0 {
		return fmt.Errorf("no keys found in %s", keyPath)
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// AddEntities appends already parsed keys to the keyring
func (v *Verifier) AddEntities(entities ...*openpgp.Entity) {
	v.keyring = append(v.keyring, entities...)
}

// VerifySignatureFromFile checks sigPath as a detached signature over filePath
// and returns the signer's fingerprint in upper-case hex
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) (string, error) {
	//nolint:gosec // G304: sigPath is user-provided for verification
	sigFile, err := os.Open(sigPath)
	if err != nil {
		return "", fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer sigFile.Close()

	//nolint:gosec // G304: filePath is user-provided for verification
	dataFile, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer dataFile.Close()

	return v.Verify(dataFile, sigFile)
}

// Verify checks sig as a detached signature over data. Armored and binary
// signatures are both accepted.
func (v *Verifier) Verify(data, sig io.Reader) (string, error) {
	if len(v.keyring) == 0 {
		return "", ErrNoKeys
	}

	// Peek at the signature to determine if it's armored
	br := bufio.NewReader(sig)
	peek, _ := br.Peek(len(armoredSignaturePrefix))
	isArmored := string(peek) == armoredSignaturePrefix

	var (
		signer    *openpgp.Entity
		verifyErr error
	)
	if isArmored {
		signer, verifyErr = openpgp.CheckArmoredDetachedSignature(v.keyring, data, br, nil)
	} else {
		signer, verifyErr = openpgp.CheckDetachedSignature(v.keyring, data, br, nil)
	}
	if verifyErr != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, verifyErr)
	}

	return fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint), nil
}

// GetKeyringSize returns the number of keys in the keyring
func (v *Verifier) GetKeyringSize() int {
	return len(v.keyring)
}

// ClearKeyring clears all imported keys
func (v *Verifier) ClearKeyring() {
	v.keyring = make(openpgp.EntityList, 0)
}
