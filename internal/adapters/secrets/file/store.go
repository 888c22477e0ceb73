// Package file keeps secrets as one 0600 file per reference.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/ports"
)

const (
	dirMode  = 0o700
	fileMode = 0o600
)

var (
	errEmptyKey   = errors.New("secret key is empty")
	errEmptyValue = errors.New("secret value is empty")
)

type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Get trims surrounding whitespace so files written with echo work.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	path, err := s.resolve(ctx, key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("file secret %q: %w", key, domain.ErrSecretNotFound)
	case err != nil:
		return "", fmt.Errorf("read file secret %q: %w", key, err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("file secret %q: %w", key, errEmptyValue)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if strings.TrimSpace(value) == "" {
		return errEmptyValue
	}
	path, err := s.resolve(ctx, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("create secret directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(value+"\n"), fileMode); err != nil {
		return fmt.Errorf("write file secret %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(ctx, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file secret %q: %w", key, err)
	}
	return nil
}

// resolve maps key below root and refuses anything that escapes it.
func (s *Store) resolve(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", errEmptyKey
	}
	rel := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(rel) || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret key %q", key)
	}
	return filepath.Join(s.root, rel), nil
}
