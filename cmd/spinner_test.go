package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bnema/dashd/internal/application"
	"github.com/bnema/dashd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleProgressModelTicksOffSources(t *testing.T) {
	t.Parallel()

	m := newCycleProgressModel([]domain.SourceID{domain.SourceClock, domain.SourceWeather, domain.SourcePihole}, nil)
	assert.Contains(t, m.View(), "Refreshing 0/3")
	assert.Contains(t, m.View(), "weather …")

	next, _ := m.Update(sourceDoneMsg{result: domain.Result{Source: domain.SourceWeather, Outcome: domain.OutcomeSuccess}})
	next, _ = next.Update(sourceDoneMsg{result: domain.Result{Source: domain.SourcePihole, Outcome: domain.OutcomeFailed}})
	m = next.(cycleProgressModel)

	view := m.View()
	assert.Contains(t, view, "Refreshing 2/3")
	assert.Contains(t, view, "clock …")
	assert.Contains(t, view, "weather ✓")
	assert.Contains(t, view, "pihole ✗")

	next, cmd := m.Update(cycleDoneMsg{})
	require.NotNil(t, cmd)
	assert.Empty(t, next.View())
}

func TestWithCycleProgressReturnsWorkError(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	errBoom := errors.New("boom")
	err := withCycleProgress(context.Background(), &out, []domain.SourceID{domain.SourceClock}, func(_ context.Context, progress application.Progress) error {
		progress(domain.Result{Source: domain.SourceClock, Outcome: domain.OutcomeDegraded})
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
}
