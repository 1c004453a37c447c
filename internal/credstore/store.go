package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/oxycord/schema"
	"pkt.systems/pslog"
)

var (
	// ErrRead indicates the session file exists but could not be read.
	ErrRead = errors.New("session read failed")
	// ErrDecode indicates the session file content is not a valid session record.
	ErrDecode = errors.New("session decode failed")
	// ErrWrite indicates the session file could not be written.
	ErrWrite = errors.New("session write failed")
	// ErrEncode indicates the session record could not be encoded.
	ErrEncode = errors.New("session encode failed")
)

// Store loads and saves session data at a fixed path.
type Store struct {
	path   string
	sealer Sealer
	log    pslog.Logger
}

// New constructs a store. A nil sealer stores plain bytes.
func New(path string, sealer Sealer, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("session file path is required")
	}
	if sealer == nil {
		sealer = PlainSealer{}
	}
	if logger != nil {
		logger = logger.With("session_file", path)
	}
	return &Store{path: path, sealer: sealer, log: logger}, nil
}

// Load reads session data. A missing file yields empty session data.
func (s *Store) Load() (schema.SessionData, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("session load miss")
			}
			return schema.SessionData{}, nil
		}
		if s.log != nil {
			s.log.Warn("session load failed", "err", err)
		}
		return schema.SessionData{}, fmt.Errorf("%w: %w", ErrRead, err)
	}
	plain, err := s.sealer.Open(raw)
	if err != nil {
		if s.log != nil {
			s.log.Warn("session load failed", "err", err)
		}
		return schema.SessionData{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	data, err := Decode(plain)
	if err != nil {
		if s.log != nil {
			s.log.Warn("session load failed", "err", err)
		}
		return schema.SessionData{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if s.log != nil {
		s.log.Debug("session load ok", "has_token", data.HasToken())
	}
	return data, nil
}

// Save writes session data atomically.
func (s *Store) Save(data schema.SessionData) error {
	sealed, err := s.sealer.Seal(Encode(data))
	if err != nil {
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := writeAtomic(s.path, sealed); err != nil {
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if s.log != nil {
		s.log.Debug("session save ok", "has_token", data.HasToken())
	}
	return nil
}

// Clear removes the session file. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		if s.log != nil {
			s.log.Warn("session clear failed", "err", err)
		}
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if s.log != nil {
		s.log.Info("session cleared")
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
