package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/medtrack-cli/internal/events"
	"github.com/gmsas95/medtrack-cli/internal/medication"
	"github.com/gmsas95/medtrack-cli/internal/metrics"
	"github.com/gmsas95/medtrack-cli/internal/registry"
)

type nopStore struct{}

func (nopStore) SaveEntry(context.Context, medication.Document) error { return nil }
func (nopStore) DeleteEntry(context.Context, string) error            { return nil }
func (nopStore) LoadAll(context.Context) ([]medication.Document, error) {
	return nil, nil
}

func TestRunOnce(t *testing.T) {
	bus := events.NewBus(zap.NewNop())
	defer bus.Close()
	reg := registry.New(nopStore{}, bus, metrics.New(), registry.Options{}, zap.NewNop())

	_, err := reg.Add(context.Background(), medication.Data{
		Name:      "Lisinopril",
		Dosage:    "10mg",
		Frequency: medication.FrequencyDaily,
		Times:     []string{"08:00"},
	})
	require.NoError(t, err)

	s := New(reg, metrics.New(), "@every 1m", zap.NewNop())
	result := s.RunOnce(context.Background())
	assert.Equal(t, 1, result.Evaluated)
}

func TestStartRejectsBadSpec(t *testing.T) {
	bus := events.NewBus(zap.NewNop())
	defer bus.Close()
	reg := registry.New(nopStore{}, bus, metrics.New(), registry.Options{}, zap.NewNop())

	s := New(reg, metrics.New(), "not a cron spec", zap.NewNop())
	assert.Error(t, s.Start(context.Background()))
}

func TestStartAndStop(t *testing.T) {
	bus := events.NewBus(zap.NewNop())
	defer bus.Close()
	reg := registry.New(nopStore{}, bus, metrics.New(), registry.Options{}, zap.NewNop())

	s := New(reg, metrics.New(), "@every 1h", zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	// Stopping twice is a no-op.
	s.Stop()
}
