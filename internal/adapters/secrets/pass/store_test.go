package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/dashd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeRun(t *testing.T, wantArgs []string, wantStdin string, stdout, stderr string, err error) runner {
	t.Helper()

	return func(_ context.Context, stdin string, args ...string) (string, string, error) {
		assert.Equal(t, wantArgs, args)
		assert.Equal(t, wantStdin, stdin)
		return stdout, stderr, err
	}
}

func TestGetReturnsFirstLine(t *testing.T) {
	t.Parallel()

	store := &Store{run: fakeRun(t, []string{"show", "dashd/pihole"}, "", "hunter2\r\nurl: http://pi.hole\n", "", nil)}

	value, err := store.Get(context.Background(), "dashd/pihole")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)
}

func TestGetMissingEntry(t *testing.T) {
	t.Parallel()

	store := &Store{run: fakeRun(t, []string{"show", "dashd/none"}, "",
		"", "Error: dashd/none is not in the password store.", errors.New("exit status 1"))}

	_, err := store.Get(context.Background(), "dashd/none")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestPutInsertsMultiline(t *testing.T) {
	t.Parallel()

	store := &Store{run: fakeRun(t, []string{"insert", "--multiline", "--force", "dashd/owm"}, "key-1\n", "", "", nil)}
	require.NoError(t, store.Put(context.Background(), "dashd/owm", "key-1"))
}

func TestDeleteKeepsStderr(t *testing.T) {
	t.Parallel()

	store := &Store{run: fakeRun(t, []string{"rm", "--force", "dashd/owm"}, "", "", "gpg: agent refused", errors.New("exit status 2"))}

	err := store.Delete(context.Background(), "dashd/owm")
	require.ErrorContains(t, err, "gpg: agent refused")
}

func TestCancelledContextSkipsCommand(t *testing.T) {
	t.Parallel()

	store := &Store{run: func(context.Context, string, ...string) (string, string, error) {
		t.Fatal("pass must not run")
		return "", "", nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "dashd/owm")
	require.ErrorIs(t, err, context.Canceled)
}
