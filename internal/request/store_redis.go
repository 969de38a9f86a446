package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"geoflow/internal/domain"
	"geoflow/pkg/platform/sentinel"
)

const requestKeyPrefix = "requests:"

// wireOutcome is the persisted JSON shape. Error fields are pointers so an
// absent code/message serializes as an explicit null, letting polling
// clients tell "deliberately absent" apart from "never set". Timestamp is
// unix milliseconds.
type wireOutcome struct {
	Status          string  `json:"status"`
	ErrorCode       *string `json:"errorCode"`
	ErrorMessage    *string `json:"errorMessage"`
	Timestamp       int64   `json:"timestamp"`
	RequesterUserID string  `json:"requesterUserId"`
}

// RedisStore persists outcomes as JSON values under requests:{id}. SET gives
// the full-replace semantics the ledger contract requires.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Set(ctx context.Context, requestID string, outcome domain.Outcome) error {
	raw, err := json.Marshal(toWire(outcome))
	if err != nil {
		return fmt.Errorf("marshal outcome %s: %w", requestID, err)
	}
	if err := s.client.Set(ctx, requestKeyPrefix+requestID, raw, 0).Err(); err != nil {
		return fmt.Errorf("set outcome %s: %w", requestID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, requestID string) (domain.Outcome, error) {
	raw, err := s.client.Get(ctx, requestKeyPrefix+requestID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Outcome{}, fmt.Errorf("get request %s: %w", requestID, sentinel.ErrNotFound)
	}
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("get request %s: %w", requestID, err)
	}

	var wire wireOutcome
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.Outcome{}, fmt.Errorf("unmarshal outcome %s: %w", requestID, err)
	}
	return fromWire(wire), nil
}

func toWire(outcome domain.Outcome) wireOutcome {
	wire := wireOutcome{
		Status:          string(outcome.Status),
		Timestamp:       outcome.Timestamp.UnixMilli(),
		RequesterUserID: outcome.RequesterUserID,
	}
	if outcome.ErrorCode != "" {
		code := string(outcome.ErrorCode)
		wire.ErrorCode = &code
	}
	if outcome.ErrorMessage != "" {
		msg := outcome.ErrorMessage
		wire.ErrorMessage = &msg
	}
	return wire
}

func fromWire(wire wireOutcome) domain.Outcome {
	outcome := domain.Outcome{
		Status:          domain.Status(wire.Status),
		RequesterUserID: wire.RequesterUserID,
	}
	if wire.ErrorCode != nil {
		outcome.ErrorCode = domain.ErrorCode(*wire.ErrorCode)
	}
	if wire.ErrorMessage != nil {
		outcome.ErrorMessage = *wire.ErrorMessage
	}
	if wire.Timestamp != 0 {
		outcome.Timestamp = time.UnixMilli(wire.Timestamp)
	}
	return outcome
}
