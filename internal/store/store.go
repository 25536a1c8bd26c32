// Package store persists optimizer data files.
//
// Several trial processes may run the same program at the same time, so
// every write is a read-modify-write under an exclusive file lock: the
// process reloads what is on disk, merges its own changes in, and writes
// the result back before releasing the lock.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rogpeppe/go-internal/lockedfile"
	"github.com/thalesfsp/hotrack/model"
	"gopkg.in/yaml.v3"
)

// Protocol is the data file encoding.
type Protocol string

const (
	// JSON encodes data files as indented JSON.
	JSON Protocol = "json"

	// YAML encodes data files as YAML.
	YAML Protocol = "yaml"
)

// ErrUnknownProtocol indicates a protocol other than JSON and YAML.
var ErrUnknownProtocol = errors.New("store: unknown protocol")

// suffix is inserted between the base name and the protocol extension.
const suffix = ".hotrack."

// ParseProtocol validates a protocol name. The empty string means JSON.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
	}
}

// Path returns the data file path for base, tag and protocol: for
// example "train" and tag "_lr" give "train_lr.hotrack.json".
func Path(base, tag string, protocol Protocol) string {
	return base + tag + suffix + string(protocol)
}

// ProtocolOf guesses the protocol from a data file path.
func ProtocolOf(path string) Protocol {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Store reads and writes one data file.
type Store struct {
	path     string
	protocol Protocol
}

// New creates a Store for the data file at path, creating its directory.
func New(path string, protocol Protocol) (*Store, error) {
	if _, err := ParseProtocol(string(protocol)); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return &Store{path: path, protocol: protocol}, nil
}

// Path returns the data file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the data file under a shared lock. A missing file yields
// empty data.
func (s *Store) Load() (*model.Data, error) {
	raw, err := lockedfile.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewData(), nil
	}
	if err != nil {
		return nil, err
	}
	return s.decode(raw)
}

// Update runs fn on the current content of the data file while holding an
// exclusive lock, then writes the result back. When fn fails nothing is
// written.
func (s *Store) Update(fn func(data *model.Data) error) (*model.Data, error) {
	f, err := lockedfile.Edit(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	data, err := s.decode(raw)
	if err != nil {
		return nil, err
	}
	if err := fn(data); err != nil {
		return nil, err
	}
	out, err := s.encode(data)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := f.Write(out); err != nil {
		return nil, err
	}
	return data, f.Close()
}

// Save merges data into the data file and returns the merged content.
func (s *Store) Save(data *model.Data) (*model.Data, error) {
	return s.Update(func(onDisk *model.Data) error {
		return onDisk.Merge(data)
	})
}

// decode parses raw data file content. Empty content is empty data.
func (s *Store) decode(raw []byte) (*model.Data, error) {
	data := model.NewData()
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	var err error
	switch s.protocol {
	case YAML:
		err = yaml.Unmarshal(raw, data)
	default:
		err = json.Unmarshal(raw, data)
	}
	if err != nil {
		return nil, fmt.Errorf("store: decoding %s: %w", s.path, err)
	}
	if data.Params == nil {
		data.Params = map[string]model.ParamSpec{}
	}
	return data, nil
}

// encode serializes data in the store protocol.
func (s *Store) encode(data *model.Data) ([]byte, error) {
	switch s.protocol {
	case YAML:
		return yaml.Marshal(data)
	default:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
}
