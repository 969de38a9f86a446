//go:build integration

package watch_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"geoflow/internal/domain"
	"geoflow/internal/watch"
	"geoflow/pkg/testutil/containers"
)

func TestKafkaWatcherDeliversChangeEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redpanda := containers.NewRedpandaContainer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	watcher, err := watch.NewKafkaWatcher(ctx, watch.KafkaConfig{
		Brokers: []string{redpanda.Broker},
		Topic:   "users.changes",
		Group:   "geoflow-test",
	}, logger)
	require.NoError(t, err)
	defer watcher.Close()

	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	producer, err := kgo.NewClient(kgo.SeedBrokers(redpanda.Broker))
	require.NoError(t, err)
	defer producer.Close()

	produce := func(value string) {
		res := producer.ProduceSync(ctx, &kgo.Record{
			Topic: "users.changes",
			Value: []byte(value),
		})
		require.NoError(t, res.FirstErr())
	}

	// A malformed envelope must be skipped, not stall the feed.
	produce(`{"kind":"create"`)
	produce(`{"kind":"create","userId":"u1","after":{"name":"Ada","zip":"10001","lastRequestId":"r1"}}`)

	select {
	case ev := <-watcher.Events():
		assert.Equal(t, domain.ChangeCreate, ev.Kind)
		assert.Equal(t, "u1", ev.UserID)
		require.NotNil(t, ev.After)
		assert.Equal(t, "r1", ev.After.LastRequestID)
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for change event")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
