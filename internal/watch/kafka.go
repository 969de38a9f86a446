package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"geoflow/internal/domain"
)

// KafkaConfig holds the consumer settings for the change feed.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// changeEnvelope is the wire format published by the store's CDC pipeline.
type changeEnvelope struct {
	Kind   string       `json:"kind"`
	UserID string       `json:"userId"`
	Before *domain.User `json:"before,omitempty"`
	After  *domain.User `json:"after,omitempty"`
}

// KafkaWatcher consumes user-record change envelopes from a topic and
// translates them into domain change events. Malformed envelopes are logged
// and skipped; the feed itself must never stall on bad input.
type KafkaWatcher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
	events chan domain.ChangeEvent
}

// NewKafkaWatcher connects a consumer group to the change topic, creating
// the topic when it does not exist yet.
func NewKafkaWatcher(ctx context.Context, cfg KafkaConfig, logger *slog.Logger) (*KafkaWatcher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka watcher: no brokers configured")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, -1, nil, cfg.Topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", cfg.Topic, err)
	}

	return &KafkaWatcher{
		client: client,
		topic:  cfg.Topic,
		logger: logger,
		events: make(chan domain.ChangeEvent, 64),
	}, nil
}

func (w *KafkaWatcher) Events() <-chan domain.ChangeEvent {
	return w.events
}

// Run polls the topic until the context is canceled or the client is closed.
func (w *KafkaWatcher) Run(ctx context.Context) error {
	defer close(w.events)

	for {
		fetches := w.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			w.logger.Error("kafka fetch error",
				"topic", topic, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			ev, err := decodeEnvelope(rec.Value)
			if err != nil {
				w.logger.Warn("skipping malformed change envelope",
					"topic", rec.Topic, "offset", rec.Offset, "error", err)
				return
			}
			select {
			case w.events <- ev:
			case <-ctx.Done():
			}
		})
	}
}

// Close shuts down the underlying client, which also unblocks Run.
func (w *KafkaWatcher) Close() {
	w.client.Close()
}

func decodeEnvelope(raw []byte) (domain.ChangeEvent, error) {
	var env changeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("decode change envelope: %w", err)
	}

	kind := domain.ChangeKind(env.Kind)
	switch kind {
	case domain.ChangeCreate, domain.ChangeUpdate, domain.ChangeDelete:
	default:
		return domain.ChangeEvent{}, fmt.Errorf("unknown change kind %q", env.Kind)
	}
	if env.UserID == "" {
		return domain.ChangeEvent{}, errors.New("change envelope missing userId")
	}

	return domain.ChangeEvent{
		ID:     uuid.NewString(),
		Kind:   kind,
		UserID: env.UserID,
		Before: env.Before,
		After:  env.After,
	}, nil
}
