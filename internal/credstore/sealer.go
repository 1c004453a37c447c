package credstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/kryptograf"
	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/pslog"
)

const descriptorName = "oxycord:session"

// Sealer protects encoded session bytes at rest.
type Sealer interface {
	Seal(plain []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// PlainSealer stores bytes unchanged.
type PlainSealer struct{}

// Seal returns a copy of plain.
func (PlainSealer) Seal(plain []byte) ([]byte, error) {
	return append([]byte(nil), plain...), nil
}

// Open returns a copy of sealed.
func (PlainSealer) Open(sealed []byte) ([]byte, error) {
	return append([]byte(nil), sealed...), nil
}

// KeySealer encrypts with a root key kept in a keymgmt bundle.
type KeySealer struct {
	root     keymgmt.RootKey
	material keymgmt.Material
}

// NewKeySealer loads or creates the key bundle at path and derives the session key.
func NewKeySealer(path string, logger pslog.Logger) (*KeySealer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("key store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		if logger != nil {
			logger.Warn("key store ensure failed", "err", err)
		}
		return nil, err
	}
	store, err := keymgmt.LoadProto(path)
	if err != nil {
		if logger != nil {
			logger.Warn("key store ensure failed", "err", err)
		}
		return nil, err
	}
	root, err := store.EnsureRootKey()
	if err != nil {
		if logger != nil {
			logger.Warn("key store ensure failed", "err", err)
		}
		return nil, err
	}
	material, err := store.EnsureDescriptor(descriptorName, root, []byte(descriptorName))
	if err != nil {
		if logger != nil {
			logger.Warn("key material ensure failed", "err", err)
		}
		return nil, err
	}
	if err := store.Commit(); err != nil {
		if logger != nil {
			logger.Warn("key store commit failed", "err", err)
		}
		return nil, err
	}
	if logger != nil {
		logger.Debug("key store ensure ok", "path", path)
	}
	return &KeySealer{root: root, material: material}, nil
}

// Seal encrypts plain.
func (s *KeySealer) Seal(plain []byte) ([]byte, error) {
	var out bytes.Buffer
	writer, err := kryptograf.New(s.root).EncryptWriter(&out, s.material)
	if err != nil {
		return nil, err
	}
	if _, err := writer.Write(plain); err != nil {
		_ = writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Open decrypts sealed.
func (s *KeySealer) Open(sealed []byte) ([]byte, error) {
	reader, err := kryptograf.New(s.root).DecryptReader(bytes.NewReader(sealed), s.material)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()
	return io.ReadAll(reader)
}
