// Package docstore reads and writes JSON documents at a document location:
// a local directory or an S3 prefix.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDocumentNotFound is returned when a document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// Store holds documents by file name.
type Store interface {
	Read(ctx context.Context, name string) ([]byte, error)
	// Write stores data so readers never observe a partial document.
	Write(ctx context.Context, name string, data []byte) error
	// Location renders where name lives, for diagnostics.
	Location(name string) string
}

// Open resolves a document location. "s3://bucket/prefix" selects S3,
// anything else is a local directory.
func Open(location string) (Store, error) {
	if strings.HasPrefix(location, "s3://") {
		rest := strings.TrimPrefix(location, "s3://")
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("s3 location %q has no bucket", location)
		}
		return NewS3Store(bucket, prefix), nil
	}
	if location == "" {
		location = "."
	}
	return NewLocalStore(location), nil
}

// LocalStore keeps documents in a directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Location(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *LocalStore) Read(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(s.Location(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.Location(name), ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Location(name), err)
	}
	return b, nil
}

// Write goes through a temp file in the same directory and a rename.
func (s *LocalStore) Write(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	cleanup := func() {
		f.Close()
		os.Remove(tmp)
	}
	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.Location(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
