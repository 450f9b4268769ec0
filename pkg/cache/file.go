package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RecordSuffix is appended to a key to form its record file name.
const RecordSuffix = ".json"

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// mkdir is replaced in tests to simulate a root created concurrently.
var mkdir = os.Mkdir

// FileStore keeps one JSON record per key in a single directory.
//
// V should be a value type; its Validate method runs after every decode.
// A FileStore holds no locks. Writers to different keys never interfere,
// writers to the same key race and the last rename wins.
type FileStore[V Record] struct {
	dir string
}

// NewFileStore opens a store rooted at dir.
//
// An existing directory is used as is. A missing one is created, but only
// one level deep: if the parent does not exist the store is not created.
// Every failure is returned as an *InitError.
func NewFileStore[V Record](dir string) (*FileStore[V], error) {
	if dir == "" {
		return nil, &InitError{Dir: dir, Err: errors.New("cache root is empty")}
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, &InitError{Dir: dir, Err: errors.New("not a directory")}
		}
	case errors.Is(err, fs.ErrNotExist):
		err := mkdir(dir, dirPerm)
		if errors.Is(err, fs.ErrExist) {
			// Created by someone else since the stat.
			info, err = os.Stat(dir)
			if err != nil {
				return nil, &InitError{Dir: dir, Err: errors.Wrap(err, "stat cache root")}
			}
			if !info.IsDir() {
				return nil, &InitError{Dir: dir, Err: errors.New("not a directory")}
			}
		} else if err != nil {
			return nil, &InitError{Dir: dir, Err: errors.Wrap(err, "create cache root")}
		}
	default:
		return nil, &InitError{Dir: dir, Err: errors.Wrap(err, "stat cache root")}
	}

	return &FileStore[V]{dir: dir}, nil
}

// Dir returns the cache root.
func (s *FileStore[V]) Dir() string {
	return s.dir
}

// Path returns the record file path for key.
func (s *FileStore[V]) Path(key Key) string {
	return filepath.Join(s.dir, string(key)+RecordSuffix)
}

// Get implements Cache.
func (s *FileStore[V]) Get(ctx context.Context, key Key) (V, bool, error) {
	var zero V
	if key == "" {
		return zero, false, &ReadError{Key: key, Err: ErrEmptyKey}
	}
	path := s.Path(key)

	if err := ctx.Err(); err != nil {
		return zero, false, &ReadError{Key: key, Path: path, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zero, false, nil
		}
		return zero, false, &ReadError{Key: key, Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return zero, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Removed between the stat and the read.
		if errors.Is(err, fs.ErrNotExist) {
			return zero, false, nil
		}
		return zero, false, &ReadError{Key: key, Path: path, Err: err}
	}

	value, err := decodeRecord[V](data)
	if err != nil {
		return zero, false, &ReadError{Key: key, Path: path, Err: err}
	}
	return value, true, nil
}

// Save implements Cache.
//
// The record is written to a temporary sibling and renamed into place, so a
// reader sees either the previous record or the new one.
func (s *FileStore[V]) Save(ctx context.Context, key Key, value V) error {
	if key == "" {
		return &WriteError{Key: key, Err: ErrEmptyKey}
	}
	path := s.Path(key)

	if err := ctx.Err(); err != nil {
		return &WriteError{Key: key, Path: path, Err: err}
	}

	data, err := encodeRecord(value)
	if err != nil {
		return &WriteError{Key: key, Path: path, Err: err}
	}

	if err := replace(path, data); err != nil {
		return &WriteError{Key: key, Path: path, Err: err}
	}
	return nil
}

// Keys lists the keys that currently have a record file, sorted.
func (s *FileStore[V]) Keys(ctx context.Context) ([]Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list cache root %s", s.dir)
	}

	var keys []Key
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name, ok := strings.CutSuffix(entry.Name(), RecordSuffix)
		if !ok || name == "" {
			continue
		}
		keys = append(keys, Key(name))
	}
	slices.Sort(keys)
	return keys, nil
}

// Delete removes the record for key. Deleting a missing key is not an error.
func (s *FileStore[V]) Delete(ctx context.Context, key Key) error {
	if key == "" {
		return &WriteError{Key: key, Err: ErrEmptyKey}
	}
	path := s.Path(key)

	if err := ctx.Err(); err != nil {
		return &WriteError{Key: key, Path: path, Err: err}
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &WriteError{Key: key, Path: path, Err: errors.Wrap(err, "remove record")}
	}
	return nil
}

// replace writes data to a temp file beside path and renames it over path.
func replace(path string, data []byte) error {
	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return errors.Wrap(err, "create temp record")
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "write temp record")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "close temp record")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "rename record")
	}
	return nil
}

func encodeRecord[V any](value V) ([]byte, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode record")
	}
	return append(data, '\n'), nil
}

func decodeRecord[V Record](data []byte) (V, error) {
	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("%w: decode: %w", ErrCorrupt, err)
	}
	if err := value.Validate(); err != nil {
		return value, fmt.Errorf("%w: invalid record: %w", ErrCorrupt, err)
	}
	return value, nil
}
