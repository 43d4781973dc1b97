// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlitestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for deriving a per-record data key from the
// OATTY_HISTORY_KEY master material.
const (
	argon2Time        = 3
	argon2Memory      = 64 * 1024 // 64MB in KB
	argon2Parallelism = 4
	argon2KeyLength   = 32 // 256 bits for AES-256
	argon2SaltSize    = 16
)

// EncryptionKey protects stored default values at rest with AES-256-GCM,
// deriving the data key from master key material via Argon2id so a
// plain-string passphrase never touches AES directly.
type EncryptionKey struct {
	master []byte
}

// LoadEncryptionKey loads the master key material from
// OATTY_HISTORY_KEY: a base64-encoded value is decoded as-is, anything
// else is used as a raw passphrase. Argon2id derives the actual AES
// key per Encrypt/Decrypt call from this material plus a random salt,
// so the master material's length and format don't need to match
// AES-256's 32-byte key size. Returns (nil, nil) when the variable is
// unset, signaling encryption is off.
func LoadEncryptionKey() (*EncryptionKey, error) {
	keyStr := os.Getenv("OATTY_HISTORY_KEY")
	if keyStr == "" {
		return nil, nil
	}

	master, err := base64.StdEncoding.DecodeString(keyStr)
	if err != nil {
		master = []byte(keyStr)
	}
	if len(master) == 0 {
		return nil, fmt.Errorf("encryption key material must not be empty")
	}

	return &EncryptionKey{master: master}, nil
}

// GenerateEncryptionKey generates new random 32-byte master key
// material, suitable for storing in OATTY_HISTORY_KEY.
func GenerateEncryptionKey() (*EncryptionKey, error) {
	master := make([]byte, 32)
	if _, err := rand.Read(master); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return &EncryptionKey{master: master}, nil
}

// String returns the base64-encoded master key material, suitable for
// storing in OATTY_HISTORY_KEY.
func (k *EncryptionKey) String() string {
	return base64.StdEncoding.EncodeToString(k.master)
}

// deriveKey runs Argon2id over the master key material and salt to
// produce the AES-256 data key for one Encrypt/Decrypt call.
func (k *EncryptionKey) deriveKey(salt []byte) []byte {
	return argon2.IDKey(k.master, salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLength)
}

// Encrypt encrypts plaintext with AES-256-GCM under a freshly derived
// Argon2id key, returning base64 with the salt and nonce prepended.
func (k *EncryptionKey) Encrypt(plaintext []byte) (string, error) {
	if k == nil {
		return "", fmt.Errorf("encryption key is nil")
	}

	salt := make([]byte, argon2SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	block, err := aes.NewCipher(k.deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt decrypts base64-encoded ciphertext with the salt and nonce
// prepended by Encrypt.
func (k *EncryptionKey) Decrypt(encoded string) ([]byte, error) {
	if k == nil {
		return nil, fmt.Errorf("encryption key is nil")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(data) < argon2SaltSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	salt, rest := data[:argon2SaltSize], data[argon2SaltSize:]

	block, err := aes.NewCipher(k.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := rest[:nonceSize], rest[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}
