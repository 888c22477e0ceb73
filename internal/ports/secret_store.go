package ports

import "context"

// SecretStore resolves the *_ref keys of the config file. A missing key
// wraps domain.ErrSecretNotFound.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
