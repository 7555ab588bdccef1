// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/avelinek/parley/internal/util"
)

const (
	keySize   = 32 // AES-256
	saltSize  = 32
	nonceSize = 12 // standard GCM nonce

	// The master secret is random, not a passphrase, so the iteration
	// count only needs to bind the salt into the derived key.
	kdfIterations = 4096
)

var (
	// ErrCiphertextTooShort indicates a truncated or garbage state file.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Cipher encrypts the state file with AES-256-GCM. The master secret
// lives in a separate key file with owner-only permissions; each
// encryption derives a fresh key from a random salt via PBKDF2.
//
// Blob layout: salt | nonce | ciphertext.
type Cipher struct {
	secret []byte
}

// NewCipher loads the master secret from keyPath, generating and
// persisting a new one when the file does not exist yet.
func NewCipher(keyPath string) (*Cipher, error) {
	secret, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		secret = make([]byte, keySize)
		if _, err := io.ReadFull(rand.Reader, secret); err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
		if err := util.AtomicWriteFile(keyPath, secret, 0o600); err != nil {
			return nil, fmt.Errorf("failed to store key: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	if len(secret) != keySize {
		return nil, fmt.Errorf("key file %s has %d bytes, want %d", keyPath, len(secret), keySize)
	}
	return &Cipher{secret: secret}, nil
}

// Encrypt seals plaintext into a salt|nonce|ciphertext blob.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt.
func (c *Cipher) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < saltSize+nonceSize {
		return nil, ErrCiphertextTooShort
	}
	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	aead, err := c.aead(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.secret, salt, kdfIterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
