package cryptoutils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/ruteri/driving-tests-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticKeySource serves fixed key material and counts fetches.
type staticKeySource struct {
	mu      sync.Mutex
	data    []byte
	err     error
	fetches int
}

func (s *staticKeySource) Fetch(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func (s *staticKeySource) Available(ctx context.Context) bool { return true }
func (s *staticKeySource) Name() string                       { return "static" }
func (s *staticKeySource) LocationURI() string                { return "static:" }

var (
	testKeysOnce sync.Once
	testPubPEM   []byte
	testPrivPEM  []byte
)

func testKeyPair(t *testing.T) ([]byte, []byte) {
	t.Helper()
	testKeysOnce.Do(func() {
		var err error
		testPubPEM, testPrivPEM, err = GenerateKeyPairPEM(DefaultKeyBits)
		if err != nil {
			panic(err)
		}
	})
	return testPubPEM, testPrivPEM
}

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	pubPEM, privPEM := testKeyPair(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	keys := NewKeyStore(&staticKeySource{data: pubPEM}, &staticKeySource{data: privPEM}, logger)
	return NewVault(keys, logger)
}

func TestVault_RoundTrip(t *testing.T) {
	vault := newTestVault(t)
	ctx := context.Background()

	testCases := []struct {
		name      string
		plaintext string
	}{
		{name: "simple", plaintext: "hunter2"},
		{name: "empty", plaintext: ""},
		{name: "unicode", plaintext: "pässwörd-密码"},
		{name: "max size", plaintext: strings.Repeat("a", 190)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := vault.Encrypt(ctx, tc.plaintext)
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(ciphertext), ciphertext, "ciphertext must be lowercase hex")
			assert.Len(t, ciphertext, 2*256)

			decrypted, err := vault.Decrypt(ctx, ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, decrypted)
		})
	}
}

func TestVault_EncryptionIsRandomized(t *testing.T) {
	vault := newTestVault(t)
	ctx := context.Background()

	first, err := vault.Encrypt(ctx, "secret")
	require.NoError(t, err)
	second, err := vault.Encrypt(ctx, "secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	ok, err := vault.Verify(ctx, "secret", first)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = vault.Verify(ctx, "secret", second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVault_OversizedCredential(t *testing.T) {
	vault := newTestVault(t)

	maxSize, err := vault.MaxPlaintextSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 190, maxSize)

	_, err = vault.Encrypt(context.Background(), strings.Repeat("a", 191))
	assert.ErrorIs(t, err, interfaces.ErrCrypto)
}

func TestVault_Decrypt_Errors(t *testing.T) {
	vault := newTestVault(t)
	ctx := context.Background()

	testCases := []struct {
		name       string
		ciphertext string
	}{
		{name: "not hex", ciphertext: "zz-not-hex"},
		{name: "odd length", ciphertext: "abc"},
		{name: "empty", ciphertext: ""},
		{name: "wrong length", ciphertext: "deadbeef"},
		{name: "garbage of right length", ciphertext: strings.Repeat("00", 256)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := vault.Decrypt(ctx, tc.ciphertext)
			assert.ErrorIs(t, err, interfaces.ErrCrypto)
		})
	}
}

func TestVault_WrongKey(t *testing.T) {
	vault := newTestVault(t)
	ctx := context.Background()

	ciphertext, err := vault.Encrypt(ctx, "secret")
	require.NoError(t, err)

	otherPub, otherPriv, err := GenerateKeyPairPEM(DefaultKeyBits)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	other := NewVault(NewKeyStore(&staticKeySource{data: otherPub}, &staticKeySource{data: otherPriv}, logger), logger)

	_, err = other.Decrypt(ctx, ciphertext)
	assert.ErrorIs(t, err, interfaces.ErrCrypto)

	ok, err := other.Verify(ctx, "secret", ciphertext)
	assert.ErrorIs(t, err, interfaces.ErrCrypto)
	assert.False(t, ok)
}

func TestVault_Verify(t *testing.T) {
	vault := newTestVault(t)
	ctx := context.Background()

	stored, err := vault.Encrypt(ctx, "correct horse")
	require.NoError(t, err)

	testCases := []struct {
		name      string
		candidate string
		stored    string
		expected  bool
		expectErr bool
	}{
		{name: "match", candidate: "correct horse", stored: stored, expected: true},
		{name: "mismatch", candidate: "battery staple", stored: stored, expected: false},
		{name: "prefix", candidate: "correct", stored: stored, expected: false},
		{name: "empty candidate", candidate: "", stored: stored, expected: false},
		{name: "corrupt stored", candidate: "correct horse", stored: "nothex", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := vault.Verify(ctx, tc.candidate, tc.stored)
			if tc.expectErr {
				assert.ErrorIs(t, err, interfaces.ErrCrypto)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ok)
		})
	}
}

func TestVault_VerifyLeavesLoggingToCaller(t *testing.T) {
	pubPEM, privPEM := testKeyPair(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	vault := NewVault(NewKeyStore(&staticKeySource{data: pubPEM}, &staticKeySource{data: privPEM}, logger), logger)

	ok, err := vault.Verify(context.Background(), "secret", "nothex")
	assert.ErrorIs(t, err, interfaces.ErrCrypto)
	assert.False(t, ok)
	assert.NotContains(t, buf.String(), "level=ERROR")
}

func TestVault_KeyUnavailable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	failing := &staticKeySource{err: errors.New("connection refused")}
	vault := NewVault(NewKeyStore(failing, failing, logger), logger)

	_, err := vault.Encrypt(context.Background(), "secret")
	assert.ErrorIs(t, err, interfaces.ErrKeyLoad)

	_, err = vault.Decrypt(context.Background(), "abcd")
	assert.ErrorIs(t, err, interfaces.ErrKeyLoad)
}
