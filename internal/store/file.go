// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/avelinek/parley/internal/util"
)

// FileKV persists the key/value state as a single JSON file, written
// atomically on every mutation. With a non-nil Cipher the file content
// is encrypted at rest.
type FileKV struct {
	mu     sync.RWMutex
	path   string
	cipher *Cipher // nil means plaintext
	data   map[string]string
}

// NewFileKV opens (or creates) a plaintext state file at path.
func NewFileKV(path string) (*FileKV, error) {
	return newFileKV(path, nil)
}

// NewEncryptedFileKV opens (or creates) a state file encrypted with
// the key material at keyPath. The key file is created on first use.
func NewEncryptedFileKV(path, keyPath string) (*FileKV, error) {
	c, err := NewCipher(keyPath)
	if err != nil {
		return nil, err
	}
	return newFileKV(path, c)
}

func newFileKV(path string, cipher *Cipher) (*FileKV, error) {
	kv := &FileKV{
		path:   path,
		cipher: cipher,
		data:   make(map[string]string),
	}
	if err := kv.load(); err != nil {
		return nil, err
	}
	return kv, nil
}

// Get implements KV.
func (f *FileKV) Get(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	return v, ok
}

// Set implements KV.
func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return f.flush()
}

// Delete implements KV.
func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flush()
}

func (f *FileKV) load() error {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if f.cipher != nil {
		raw, err = f.cipher.Decrypt(raw)
		if err != nil {
			return fmt.Errorf("failed to decrypt state file: %w", err)
		}
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return fmt.Errorf("state file is corrupt: %w", err)
	}
	return nil
}

// flush writes the full map to disk. Callers hold the write lock.
func (f *FileKV) flush() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if f.cipher != nil {
		raw, err = f.cipher.Encrypt(raw)
		if err != nil {
			return fmt.Errorf("failed to encrypt state: %w", err)
		}
	}
	// Tokens live in this file; keep it owner-only.
	return util.AtomicWriteFile(f.path, raw, 0o600)
}
