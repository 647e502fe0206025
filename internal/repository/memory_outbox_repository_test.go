package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOutboxRepository_AppendAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOutboxRepository()
	tx, _ := repo.BeginTx(ctx)

	events := []*domain.OutboxEvent{
		{AggregateID: "ABC12345", EventType: domain.EventPaymentRequested, CreatedAt: time.Now()},
		{AggregateID: "ABC12345", EventType: domain.EventBookingRequested, CreatedAt: time.Now()},
	}
	require.NoError(t, repo.Append(ctx, tx, events))
	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, int64(2), events[1].ID)
}

func TestMemoryOutboxRepository_ClaimPendingReturnsPendingAndFailedOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOutboxRepository()
	tx, _ := repo.BeginTx(ctx)

	events := []*domain.OutboxEvent{
		{AggregateID: "A", EventType: domain.EventPaymentRequested},
		{AggregateID: "B", EventType: domain.EventBookingRequested},
		{AggregateID: "C", EventType: domain.EventPaymentRequested},
	}
	require.NoError(t, repo.Append(ctx, tx, events))
	require.NoError(t, repo.MarkProcessed(ctx, tx, events[1].ID))
	require.NoError(t, repo.MarkFailed(ctx, tx, events[2].ID, "boom"))

	ids, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{events[0].ID, events[2].ID}, ids)
}

func TestMemoryOutboxRepository_ClaimPendingRespectsLimitAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOutboxRepository()
	tx, _ := repo.BeginTx(ctx)

	events := []*domain.OutboxEvent{
		{AggregateID: "A", EventType: domain.EventPaymentRequested},
		{AggregateID: "B", EventType: domain.EventBookingRequested},
		{AggregateID: "C", EventType: domain.EventPaymentRequested},
	}
	require.NoError(t, repo.Append(ctx, tx, events))

	ids, err := repo.ClaimPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, events[0].ID, ids[0])
	assert.Equal(t, events[1].ID, ids[1])
}

func TestMemoryOutboxRepository_MarkProcessedClearsLastError(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOutboxRepository()
	tx, _ := repo.BeginTx(ctx)

	events := []*domain.OutboxEvent{{AggregateID: "A", EventType: domain.EventPaymentRequested}}
	require.NoError(t, repo.Append(ctx, tx, events))
	require.NoError(t, repo.MarkFailed(ctx, tx, events[0].ID, "transient error"))
	require.NoError(t, repo.MarkProcessed(ctx, tx, events[0].ID))

	loaded, err := repo.Load(ctx, tx, events[0].ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, domain.OutboxProcessed, loaded.Status)
	assert.Empty(t, loaded.LastError)
}
