// Package events publishes attempt and settlement events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/fd1az/flasharb/business/execution/app"
	"github.com/fd1az/flasharb/business/execution/domain"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/logger"
)

var _ app.EventPublisher = (*RedisPublisher)(nil)

const (
	attemptsStream    = "flasharb:attempts"
	settlementsStream = "flasharb:settlements"
	maxStreamLen      = 10_000
)

// RedisPublisher emits attempt records to a Redis stream for the
// admin/monitoring side, and settlement events for confirmed attempts
// to a second stream consumed by the profit-settlement collaborator.
type RedisPublisher struct {
	client *redis.Client
	logger logger.LoggerInterface
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, url string, log logger.LoggerInterface) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid redis url"),
		)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, apperror.New(apperror.CodeExternalServiceError,
			apperror.WithCause(err),
			apperror.WithContext("redis ping failed"),
		)
	}

	return &RedisPublisher{client: client, logger: log}, nil
}

type attemptEvent struct {
	AttemptID      string  `json:"attempt_id"`
	PlanID         string  `json:"plan_id"`
	ChainID        uint64  `json:"chain_id"`
	Asset          string  `json:"asset"`
	Retry          int     `json:"retry"`
	ProviderID     string  `json:"provider_id,omitempty"`
	TxHash         string  `json:"tx_hash,omitempty"`
	Status         string  `json:"status"`
	RealizedProfit *string `json:"realized_profit,omitempty"`
	GasUsed        uint64  `json:"gas_used"`
	FailureReason  string  `json:"failure_reason,omitempty"`
	ResolvedAt     string  `json:"resolved_at,omitempty"`
}

// PublishAttempt emits the attempt record, and a settlement event when
// the attempt confirmed.
func (p *RedisPublisher) PublishAttempt(ctx context.Context, attempt *domain.Attempt) error {
	event := attemptEvent{
		AttemptID:     attempt.ID.String(),
		PlanID:        attempt.PlanID.String(),
		ChainID:       attempt.ChainID,
		Asset:         attempt.BaseAsset,
		Retry:         attempt.Retry,
		ProviderID:    attempt.ProviderID,
		Status:        string(attempt.Status),
		GasUsed:       attempt.GasUsed,
		FailureReason: attempt.FailureReason,
	}
	if attempt.TxHash != (common.Hash{}) {
		event.TxHash = attempt.TxHash.Hex()
	}
	if attempt.RealizedProfit != nil {
		s := attempt.RealizedProfit.String()
		event.RealizedProfit = &s
	}
	if !attempt.ResolvedAt.IsZero() {
		event.ResolvedAt = attempt.ResolvedAt.UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: attemptsStream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]any{"event": payload},
	}).Err(); err != nil {
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithCause(err),
			apperror.WithContext("xadd failed on "+attemptsStream),
		)
	}

	if attempt.Status == domain.StatusConfirmed {
		if err := p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: settlementsStream,
			MaxLen: maxStreamLen,
			Approx: true,
			Values: map[string]any{"event": payload},
		}).Err(); err != nil {
			return apperror.New(apperror.CodeExternalServiceError,
				apperror.WithCause(err),
				apperror.WithContext("xadd failed on "+settlementsStream),
			)
		}
	}

	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
