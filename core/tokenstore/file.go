package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File is the persistent backend: the token is kept in a single 0600 file
// under a scoped directory. Writes go through a temp file and rename, so a
// crash mid-write never leaves a torn token behind.
type File struct {
	path string

	mu     sync.RWMutex
	mirror string // last token observed by this process
}

// NewFile creates a file-backed store at dir/name. The directory is created
// on demand with 0700 permissions.
func NewFile(dir, name string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("tokenstore: failed to create %s: %w", dir, err)
	}
	f := &File{path: filepath.Join(dir, name)}
	// Warm the fast-path mirror; absence is not an error.
	if data, err := os.ReadFile(f.path); err == nil {
		f.mirror = strings.TrimSpace(string(data))
	}
	return f, nil
}

func (f *File) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("tokenstore: failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}

	f.mu.Lock()
	f.mirror = token
	f.mu.Unlock()
	return token, nil
}

func (f *File) SetToken(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".token-*")
	if err != nil {
		return fmt.Errorf("tokenstore: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(token); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("tokenstore: failed to write token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("tokenstore: failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("tokenstore: failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("tokenstore: failed to replace token file: %w", err)
	}

	f.mu.Lock()
	f.mirror = token
	f.mu.Unlock()
	return nil
}

func (f *File) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("tokenstore: failed to remove token file: %w", err)
	}

	f.mu.Lock()
	f.mirror = ""
	f.mu.Unlock()
	return nil
}

// FastToken implements FastReader from the in-process mirror. It can lag
// writes made by other processes sharing the same file.
func (f *File) FastToken() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mirror
}
