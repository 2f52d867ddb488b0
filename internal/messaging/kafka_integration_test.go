//go:build integration

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/joao-fontenele/storefront-sync/internal/cart"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

func TestCartEventsRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		tckafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	producer := NewProducer(brokers, DefaultCartTopic)
	t.Cleanup(func() { _ = producer.Close() })

	pub := NewCartPublisher(producer, func() string { return "u1" }, nil)
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, pub.Render(cart.State{Seq: seq, ItemCount: int(seq), Reason: domain.CartReasonAdd}))
	}

	consumer := NewConsumer(brokers, DefaultCartTopic, "integration", WithStartOffset(kafka.FirstOffset))
	t.Cleanup(func() { _ = consumer.Close() })

	errDone := errors.New("done")
	var seqs []uint64
	err = consumer.Consume(ctx, func(_ context.Context, key string, payload []byte) error {
		require.Equal(t, "u1", key)
		var event domain.CartUpdatedEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		seqs = append(seqs, event.Seq)
		if len(seqs) == 3 {
			return errDone
		}
		return nil
	})
	require.ErrorIs(t, err, errDone)
	require.Equal(t, []uint64{1, 2, 3}, seqs)
}
