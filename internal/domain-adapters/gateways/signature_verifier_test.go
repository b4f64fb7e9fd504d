package gateways

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signedFixture struct {
	data    string
	sig     string
	keyring string
}

func newSignedFixture(t *testing.T, payload []byte) signedFixture {
	t.Helper()
	dir := t.TempDir()
	entity, err := openpgp.NewEntity("Vendor", "", "release@vendor.example", nil)
	require.NoError(t, err)

	var key bytes.Buffer
	w, err := armor.Encode(&key, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())

	var sig bytes.Buffer
	require.NoError(t, openpgp.ArmoredDetachSign(&sig, entity, bytes.NewReader(payload), nil))

	f := signedFixture{
		data:    filepath.Join(dir, "setup.exe"),
		sig:     filepath.Join(dir, "setup.exe.asc"),
		keyring: filepath.Join(dir, "vendor.asc"),
	}
	require.NoError(t, os.WriteFile(f.data, payload, 0o600))
	require.NoError(t, os.WriteFile(f.sig, sig.Bytes(), 0o600))
	require.NoError(t, os.WriteFile(f.keyring, key.Bytes(), 0o600))
	return f
}

func TestSignatureVerifier_Valid(t *testing.T) {
	f := newSignedFixture(t, []byte("MZ installer"))

	signer, err := NewSignatureVerifier(nil).Verify(context.Background(), f.data, f.sig, []string{f.keyring})

	require.NoError(t, err)
	assert.Len(t, signer, 40)
}

func TestSignatureVerifier_Mismatch(t *testing.T) {
	f := newSignedFixture(t, []byte("MZ installer"))
	require.NoError(t, os.WriteFile(f.data, []byte("MZ patched"), 0o600))

	_, err := NewSignatureVerifier(nil).Verify(context.Background(), f.data, f.sig, []string{f.keyring})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSignatureMismatch))
}

func TestSignatureVerifier_NoKeyring(t *testing.T) {
	_, err := NewSignatureVerifier(nil).Verify(context.Background(), "a.exe", "a.exe.sig", nil)

	assert.True(t, errors.Is(err, ErrSignatureMismatch))
}

func TestSignatureVerifier_MissingKeyFile(t *testing.T) {
	f := newSignedFixture(t, []byte("MZ"))

	_, err := NewSignatureVerifier(nil).Verify(context.Background(), f.data, f.sig, []string{filepath.Join(t.TempDir(), "none.asc")})

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSignatureMismatch))
}
