// Package pass reads secrets from the standard unix password manager.
package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/ports"
)

var ErrUnavailable = errors.New("pass command unavailable")

const notInStore = "is not in the password store"

type runner func(ctx context.Context, stdin string, args ...string) (stdout, stderr string, err error)

type Store struct {
	run runner
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{run: execPass}
}

// Get returns the first line of the entry; pass keeps the password there and
// free-form metadata below it.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	stdout, err := s.exec(ctx, "get", key, "", "show", key)
	if err != nil {
		return "", err
	}

	first, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimRight(first, "\r"), nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	_, err := s.exec(ctx, "put", key, value+"\n", "insert", "--multiline", "--force", key)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.exec(ctx, "delete", key, "", "rm", "--force", key)
	return err
}

func (s *Store) exec(ctx context.Context, op, key, stdin string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := s.run(ctx, stdin, args...)
	switch {
	case err == nil:
		return stdout, nil
	case strings.Contains(stderr, notInStore):
		return "", fmt.Errorf("pass %s %q: %w", op, key, domain.ErrSecretNotFound)
	case stderr != "":
		return "", fmt.Errorf("pass %s %q: %w: %s", op, key, err, stderr)
	default:
		return "", fmt.Errorf("pass %s %q: %w", op, key, err)
	}
}

func execPass(ctx context.Context, stdin string, args ...string) (string, string, error) {
	bin, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
