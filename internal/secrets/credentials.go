// Package secrets encrypts scan credentials before they are placed on the
// job queue. AES-256-GCM with a server-held key; decryption tolerates legacy
// plaintext payloads from before encryption was introduced.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// EncryptedPayload is the wire shape of an encrypted credential blob.
type EncryptedPayload struct {
	Encrypted string `json:"encrypted"` // hex ciphertext (without tag)
	IV        string `json:"iv"`        // hex nonce
	Tag       string `json:"tag"`       // hex GCM tag
}

// Box seals and opens credential payloads with a fixed key.
type Box struct {
	key [32]byte
}

// NewBox derives a 256-bit key from the configured secret. An empty secret is
// rejected so encryption can never silently run with a zero key.
func NewBox(secret string) (*Box, error) {
	if secret == "" {
		return nil, errors.New("secrets: empty encryption secret")
	}
	return &Box{key: sha256.Sum256([]byte(secret))}, nil
}

// Encrypt seals plaintext and returns the {encrypted, iv, tag} triple.
func (b *Box) Encrypt(plaintext []byte) (*EncryptedPayload, error) {
	block, err := aes.NewCipher(b.key[:])
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - gcm.Overhead()

	return &EncryptedPayload{
		Encrypted: hex.EncodeToString(sealed[:tagStart]),
		IV:        hex.EncodeToString(iv),
		Tag:       hex.EncodeToString(sealed[tagStart:]),
	}, nil
}

// Decrypt opens a sealed payload.
func (b *Box) Decrypt(p *EncryptedPayload) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil payload")
	}
	ciphertext, err := hex.DecodeString(p.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	iv, err := hex.DecodeString(p.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	tag, err := hex.DecodeString(p.Tag)
	if err != nil {
		return nil, fmt.Errorf("decode tag: %w", err)
	}

	block, err := aes.NewCipher(b.key[:])
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("gcm open: %w", err)
	}
	return plaintext, nil
}

// EncryptCredentials marshals and seals creds for queue transport.
func (b *Box) EncryptCredentials(creds *model.Credentials) (*EncryptedPayload, error) {
	data, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}
	return b.Encrypt(data)
}

// DecryptCredentials opens raw queue payload bytes into credentials. Legacy
// tasks carried plaintext JSON credentials; when the payload does not decode
// as an encrypted triple, or decryption fails, the payload is treated as
// already-plaintext rather than aborting the job.
func (b *Box) DecryptCredentials(raw []byte) (*model.Credentials, error) {
	var sealed EncryptedPayload
	if err := json.Unmarshal(raw, &sealed); err == nil && sealed.Encrypted != "" && sealed.IV != "" {
		if plain, err := b.Decrypt(&sealed); err == nil {
			var creds model.Credentials
			if err := json.Unmarshal(plain, &creds); err != nil {
				return nil, fmt.Errorf("unmarshal decrypted credentials: %w", err)
			}
			return &creds, nil
		}
		// Decryption failed: fall through to the plaintext path.
	}

	var creds model.Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("unmarshal plaintext credentials: %w", err)
	}
	return &creds, nil
}
