// Package store persists execution attempts.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fd1az/flasharb/business/execution/app"
	"github.com/fd1az/flasharb/business/execution/domain"
)

var _ app.AttemptStore = (*Memory)(nil)

// Memory is the in-process attempt store used when no database is
// configured. History does not survive a restart, which also means the
// policy trainer starts cold.
type Memory struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]*domain.Attempt
	order    []uuid.UUID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{attempts: make(map[uuid.UUID]*domain.Attempt)}
}

// Save upserts an attempt by ID.
func (m *Memory) Save(_ context.Context, attempt *domain.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.attempts[attempt.ID]; !exists {
		m.order = append(m.order, attempt.ID)
	}
	cp := *attempt
	if attempt.RealizedProfit != nil {
		realized := *attempt.RealizedProfit
		cp.RealizedProfit = &realized
	}
	m.attempts[attempt.ID] = &cp
	return nil
}

// ByPlan returns every attempt for a plan, oldest first.
func (m *Memory) ByPlan(_ context.Context, planID uuid.UUID) ([]*domain.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Attempt
	for _, id := range m.order {
		if a := m.attempts[id]; a.PlanID == planID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Recent returns the newest attempts up to limit, newest first.
func (m *Memory) Recent(_ context.Context, limit int) ([]*domain.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uuid.UUID, len(m.order))
	copy(ids, m.order)
	sort.SliceStable(ids, func(i, j int) bool {
		return m.attempts[ids[i]].CreatedAt.After(m.attempts[ids[j]].CreatedAt)
	})

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*domain.Attempt, 0, len(ids))
	for _, id := range ids {
		cp := *m.attempts[id]
		out = append(out, &cp)
	}
	return out, nil
}
