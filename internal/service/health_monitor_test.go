package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waqf-api/internal/docstore"
)

type readOnlyStore struct {
	docstore.Store
}

func (readOnlyStore) Set(ctx context.Context, doc docstore.Document) (docstore.Document, error) {
	return docstore.Document{}, errors.New("backend is read only")
}

func TestHealthMonitorCheckHealthy(t *testing.T) {
	monitor := NewHealthMonitor(newTestStore(t), time.Minute, testLogger())

	_, ok := monitor.Latest()
	require.False(t, ok)

	status := monitor.Check(context.Background())
	require.True(t, status.OK)
	require.Equal(t, "healthy", status.Status)
	require.True(t, status.Details.Connection.OK)
	require.True(t, status.Details.Write.OK)
	require.True(t, status.Details.EmptyRead.OK)
	require.True(t, status.Details.ExistingRead.OK)

	latest, ok := monitor.Latest()
	require.True(t, ok)
	require.Equal(t, status.Status, latest.Status)

	// The probe document is overwritten on every run.
	require.True(t, monitor.Check(context.Background()).OK)
}

func TestHealthMonitorCheckDegradedWhenWritesFail(t *testing.T) {
	monitor := NewHealthMonitor(readOnlyStore{Store: newTestStore(t)}, time.Minute, testLogger())

	status := monitor.Check(context.Background())
	require.False(t, status.OK)
	require.Equal(t, "degraded", status.Status)
	require.True(t, status.Details.Connection.OK)
	require.False(t, status.Details.Write.OK)
	require.Contains(t, status.Details.Write.Error, "read only")
	require.True(t, status.Details.EmptyRead.OK)
	require.False(t, status.Details.ExistingRead.OK)
}

func TestHealthMonitorSubscribersReceiveResults(t *testing.T) {
	monitor := NewHealthMonitor(newTestStore(t), time.Minute, testLogger())

	updates, cancel := monitor.Subscribe()
	monitor.Check(context.Background())

	select {
	case status := <-updates:
		require.True(t, status.OK)
	case <-time.After(time.Second):
		t.Fatal("expected health update")
	}

	cancel()
	cancel()
	_, open := <-updates
	require.False(t, open)

	// Publishing after unsubscribe must not panic on the closed channel.
	monitor.Check(context.Background())
}

func TestHealthMonitorStartAndStop(t *testing.T) {
	monitor := NewHealthMonitor(newTestStore(t), time.Hour, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, monitor.Start(ctx))
	require.Error(t, monitor.Start(ctx))

	latest, ok := monitor.Latest()
	require.True(t, ok)
	require.True(t, latest.OK)

	monitor.Stop()
	monitor.Stop()
	require.NoError(t, monitor.Start(ctx))
	monitor.Stop()
}
