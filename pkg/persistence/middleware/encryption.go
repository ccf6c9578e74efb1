package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
)

// envelopePrefix marks the Output of an encrypted envelope.
const envelopePrefix = "enc:v1:"

// ErrNotEncrypted is returned when loading a state that was saved without encryption.
var ErrNotEncrypted = errors.New("state is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next ports.StateStore
	// keys holds the active key first, then the fallbacks in order.
	keys []cipher.AEAD
}

// NewEncryptionMiddleware creates a middleware that encrypts state using AES-GCM (Envelope Encryption).
// It panics if the active key is not 32 bytes or a fallback key is not a valid AES key.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	keys := make([]cipher.AEAD, 0, 1+len(config.FallbackKeys))
	for _, k := range append([][]byte{config.ActiveKey}, config.FallbackKeys...) {
		aead, err := newGCM(k)
		if err != nil {
			panic(fmt.Sprintf("invalid encryption key: %v", err))
		}
		keys = append(keys, aead)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{next: next, keys: keys}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	plainText, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	sealed, err := m.seal(plainText)
	if err != nil {
		return fmt.Errorf("failed to encrypt state: %w", err)
	}

	// The envelope keeps the phase and timestamps visible for listing and
	// monitoring. The conversation and the email only live in the ciphertext.
	return m.next.Save(ctx, sessionID, &domain.State{
		SessionID: state.SessionID,
		Phase:     state.Phase,
		Steps:     state.Steps,
		Output:    envelopePrefix + base64.StdEncoding.EncodeToString(sealed),
		CreatedAt: state.CreatedAt,
		UpdatedAt: state.UpdatedAt,
	})
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Fail secure: a store configured for encryption only accepts envelopes.
	encoded, ok := strings.CutPrefix(envelope.Output, envelopePrefix)
	if !ok || len(envelope.Messages) > 0 {
		return nil, ErrNotEncrypted
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := m.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state: %w", err)
	}

	state := new(domain.State)
	if err := json.Unmarshal(plainText, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted state: %w", err)
	}
	return state, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// seal encrypts with the active key and prepends the nonce.
func (m *encryptionMiddleware) seal(plainText []byte) ([]byte, error) {
	active := m.keys[0]
	nonce := make([]byte, active.NonceSize(), active.NonceSize()+len(plainText)+active.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return active.Seal(nonce, nonce, plainText, nil), nil
}

// open tries the active key, then each fallback key.
func (m *encryptionMiddleware) open(sealed []byte) ([]byte, error) {
	for _, aead := range m.keys {
		n := aead.NonceSize()
		if len(sealed) < n {
			return nil, errors.New("ciphertext too short")
		}
		if plain, err := aead.Open(nil, sealed[:n], sealed[n:], nil); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
