package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrEmptyChanges is returned by Update when no keys were supplied.
var ErrEmptyChanges = errors.New("config: empty changes")

// Store is the single on-disk source of truth for the flat configuration
// mapping. Every Update is merged under an exclusive lock and persisted
// before the call returns. Keys unknown to Config are kept verbatim so that
// the file round-trips.
type Store struct {
	mu    sync.Mutex
	path  string
	cfg   Config
	extra map[string]json.RawMessage
}

// OpenStore loads path into a new Store. A missing file yields defaults and
// no error; an unreadable or malformed file yields defaults together with the
// load error so the caller can log it. The Store is usable in both cases.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path, cfg: *DefaultConfig()}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("config: read %s: %w", path, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return s, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg := *DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return s, fmt.Errorf("config: decode %s: %w", path, err)
	}
	_ = cfg.Validate()
	s.cfg = cfg
	s.extra = unknownKeys(raw)
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Read returns a copy of the current configuration.
func (s *Store) Read() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// Mapping returns the full flat mapping, including keys unknown to Config.
func (s *Store) Mapping() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.encodeLocked(s.cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Update merges changes into the mapping, validates, and persists it
// synchronously. On any error the in-memory state is left untouched.
func (s *Store) Update(changes map[string]any) (Config, error) {
	if len(changes) == 0 {
		return s.Read(), ErrEmptyChanges
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := json.Marshal(s.cfg)
	if err != nil {
		return s.cfg.Clone(), err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(current, &merged); err != nil {
		return s.cfg.Clone(), err
	}
	extra := make(map[string]json.RawMessage, len(s.extra))
	for k, v := range s.extra {
		extra[k] = v
	}
	for k, v := range changes {
		raw, err := json.Marshal(v)
		if err != nil {
			return s.cfg.Clone(), fmt.Errorf("config: encode %q: %w", k, err)
		}
		merged[k] = raw
	}
	patch, err := json.Marshal(merged)
	if err != nil {
		return s.cfg.Clone(), err
	}
	next := *DefaultConfig()
	if err := json.Unmarshal(patch, &next); err != nil {
		return s.cfg.Clone(), fmt.Errorf("config: apply changes: %w", err)
	}
	_ = next.Validate()
	for k, v := range unknownKeys(merged) {
		extra[k] = v
	}

	prevExtra := s.extra
	s.extra = extra
	data, err := s.encodeLocked(next)
	if err == nil {
		err = writeFileAtomic(s.path, data)
	}
	if err != nil {
		s.extra = prevExtra
		return s.cfg.Clone(), err
	}
	s.cfg = next
	return s.cfg.Clone(), nil
}

func (s *Store) encodeLocked(cfg Config) ([]byte, error) {
	base, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	if len(s.extra) == 0 {
		return indent(base)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range s.extra {
		m[k] = v
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return indent(out)
}

func indent(data []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

// knownKeys is derived from the Config json tags.
var knownKeys = func() map[string]struct{} {
	data, _ := json.Marshal(DefaultConfig())
	var m map[string]json.RawMessage
	_ = json.Unmarshal(data, &m)
	keys := make(map[string]struct{}, len(m))
	for k := range m {
		keys[k] = struct{}{}
	}
	return keys
}()

func unknownKeys(m map[string]json.RawMessage) map[string]json.RawMessage {
	var out map[string]json.RawMessage
	for k, v := range m {
		if _, ok := knownKeys[k]; ok {
			continue
		}
		if out == nil {
			out = make(map[string]json.RawMessage)
		}
		out[k] = v
	}
	return out
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("config: temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("config: close: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("config: rename: %w", err)
	}
	return nil
}
