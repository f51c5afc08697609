package store

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/business/execution/app"
	"github.com/fd1az/flasharb/business/execution/domain"
	"github.com/fd1az/flasharb/internal/apperror"
)

var _ app.AttemptStore = (*Postgres)(nil)

const attemptsSchema = `
CREATE TABLE IF NOT EXISTS execution_attempts (
	id              UUID PRIMARY KEY,
	plan_id         UUID NOT NULL,
	chain_id        BIGINT NOT NULL,
	base_asset      TEXT NOT NULL DEFAULT '',
	retry           INT NOT NULL,
	provider_id     TEXT NOT NULL DEFAULT '',
	tx_hash         TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	realized_profit NUMERIC,
	gas_used        BIGINT NOT NULL DEFAULT 0,
	failure_reason  TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	submitted_at    TIMESTAMPTZ,
	resolved_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS execution_attempts_plan_idx ON execution_attempts (plan_id);
CREATE INDEX IF NOT EXISTS execution_attempts_created_idx ON execution_attempts (created_at DESC);
`

// Postgres stores attempts in PostgreSQL. The table is the policy
// layer's training corpus, so rows are only ever inserted or advanced,
// never deleted.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and ensures the schema exists.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, apperror.New(apperror.CodeStoreUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("postgres connect failed"),
		)
	}
	if _, err := pool.Exec(ctx, attemptsSchema); err != nil {
		pool.Close()
		return nil, apperror.New(apperror.CodeStoreUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("schema migration failed"),
		)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Save upserts an attempt by ID.
func (p *Postgres) Save(ctx context.Context, a *domain.Attempt) error {
	var realized *decimal.Decimal
	if a.RealizedProfit != nil {
		r := *a.RealizedProfit
		realized = &r
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO execution_attempts
			(id, plan_id, chain_id, base_asset, retry, provider_id, tx_hash, status,
			 realized_profit, gas_used, failure_reason, created_at, submitted_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			provider_id     = EXCLUDED.provider_id,
			tx_hash         = EXCLUDED.tx_hash,
			status          = EXCLUDED.status,
			realized_profit = EXCLUDED.realized_profit,
			gas_used        = EXCLUDED.gas_used,
			failure_reason  = EXCLUDED.failure_reason,
			submitted_at    = EXCLUDED.submitted_at,
			resolved_at     = EXCLUDED.resolved_at
	`,
		a.ID, a.PlanID, a.ChainID, a.BaseAsset, a.Retry, a.ProviderID, a.TxHash.Hex(), string(a.Status),
		realized, a.GasUsed, a.FailureReason, a.CreatedAt,
		nullableTime(a.SubmittedAt), nullableTime(a.ResolvedAt),
	)
	if err != nil {
		return apperror.New(apperror.CodeStoreUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("failed to save attempt "+a.ID.String()),
		)
	}
	return nil
}

// ByPlan returns every attempt for a plan, oldest first.
func (p *Postgres) ByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.Attempt, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, plan_id, chain_id, base_asset, retry, provider_id, tx_hash, status,
		       realized_profit, gas_used, failure_reason, created_at, submitted_at, resolved_at
		FROM execution_attempts
		WHERE plan_id = $1
		ORDER BY created_at ASC
	`, planID)
	if err != nil {
		return nil, apperror.New(apperror.CodeStoreUnavailable, apperror.WithCause(err))
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// Recent returns the newest attempts up to limit, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]*domain.Attempt, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, plan_id, chain_id, base_asset, retry, provider_id, tx_hash, status,
		       realized_profit, gas_used, failure_reason, created_at, submitted_at, resolved_at
		FROM execution_attempts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperror.New(apperror.CodeStoreUnavailable, apperror.WithCause(err))
	}
	defer rows.Close()
	return scanAttempts(rows)
}

type attemptRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAttempts(rows attemptRows) ([]*domain.Attempt, error) {
	var out []*domain.Attempt
	for rows.Next() {
		var (
			a           domain.Attempt
			status      string
			txHash      string
			realized    *decimal.Decimal
			submittedAt *time.Time
			resolvedAt  *time.Time
		)
		if err := rows.Scan(
			&a.ID, &a.PlanID, &a.ChainID, &a.BaseAsset, &a.Retry, &a.ProviderID, &txHash, &status,
			&realized, &a.GasUsed, &a.FailureReason, &a.CreatedAt, &submittedAt, &resolvedAt,
		); err != nil {
			return nil, apperror.New(apperror.CodeStoreUnavailable, apperror.WithCause(err))
		}
		a.Status = domain.AttemptStatus(status)
		a.TxHash = common.HexToHash(txHash)
		a.RealizedProfit = realized
		if submittedAt != nil {
			a.SubmittedAt = *submittedAt
		}
		if resolvedAt != nil {
			a.ResolvedAt = *resolvedAt
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.New(apperror.CodeStoreUnavailable, apperror.WithCause(err))
	}
	return out, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
