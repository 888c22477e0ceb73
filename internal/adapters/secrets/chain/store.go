// Package chain tries secret backends in order.
package chain

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	filestore "github.com/bnema/dashd/internal/adapters/secrets/file"
	passstore "github.com/bnema/dashd/internal/adapters/secrets/pass"
	"github.com/bnema/dashd/internal/ports"
)

var errNoBackends = errors.New("secret chain has no backends")

type Store struct {
	backends []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

func New(backends ...ports.SecretStore) (*Store, error) {
	kept := make([]ports.SecretStore, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		return nil, errNoBackends
	}
	return &Store{backends: kept}, nil
}

// Default reads pass first and then files under configDir/secrets.
func Default(configDir string) (*Store, error) {
	return New(passstore.NewStore(), filestore.NewStore(filepath.Join(configDir, "secrets")))
}

// Get returns the first value found; on a total miss the joined error keeps
// every backend's cause.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	errs := make([]error, 0, len(s.backends))
	for i, b := range s.backends {
		value, err := b.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if ctxDone(err) {
			return "", err
		}
		errs = append(errs, fmt.Errorf("backend %d: %w", i, err))
	}
	return "", fmt.Errorf("get secret %q: %w", key, errors.Join(errs...))
}

// Put writes to the first backend that accepts the value.
func (s *Store) Put(ctx context.Context, key string, value string) error {
	errs := make([]error, 0, len(s.backends))
	for i, b := range s.backends {
		err := b.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if ctxDone(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("backend %d: %w", i, err))
	}
	return fmt.Errorf("put secret %q: %w", key, errors.Join(errs...))
}

// Delete removes key from every backend so no stale copy survives.
func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	for i, b := range s.backends {
		if err := b.Delete(ctx, key); err != nil {
			if ctxDone(err) {
				return err
			}
			errs = append(errs, fmt.Errorf("backend %d: %w", i, err))
		}
	}
	if len(errs) == len(s.backends) {
		return fmt.Errorf("delete secret %q: %w", key, errors.Join(errs...))
	}
	return nil
}

func ctxDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
