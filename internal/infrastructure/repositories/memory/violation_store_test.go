package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetrix/internal/core/domain"
)

func TestViolationStore_AppendIsNeverDeduplicated(t *testing.T) {
	store := NewMemoryViolationStore()
	ctx := context.Background()

	record := domain.ViolationRecord{Type: domain.ViolationTabSwitch, Timestamp: time.Now()}
	require.NoError(t, store.Append(ctx, "meeting-1", "alice", record))
	require.NoError(t, store.Append(ctx, "meeting-1", "alice", record))

	records, err := store.List(ctx, "meeting-1", "alice")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestViolationStore_ScopedByParticipant(t *testing.T) {
	store := NewMemoryViolationStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "meeting-1", "alice", domain.ViolationRecord{Type: domain.ViolationFullscreenExit, Timestamp: time.Now()}))
	require.NoError(t, store.Append(ctx, "meeting-1", "bob", domain.ViolationRecord{Type: domain.ViolationTabSwitch, Timestamp: time.Now()}))

	alice, err := store.List(ctx, "meeting-1", "alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Equal(t, domain.ViolationFullscreenExit, alice[0].Type)

	other, err := store.List(ctx, "meeting-2", "alice")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestViolationStore_RejectsEmptyKeys(t *testing.T) {
	store := NewMemoryViolationStore()

	err := store.Append(context.Background(), "", "alice", domain.ViolationRecord{Type: domain.ViolationTabSwitch})
	assert.Error(t, err)
}

func TestViolationStore_ListReturnsCopy(t *testing.T) {
	store := NewMemoryViolationStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "meeting-1", "alice", domain.ViolationRecord{Type: domain.ViolationTabSwitch, Timestamp: time.Now()}))

	records, err := store.List(ctx, "meeting-1", "alice")
	require.NoError(t, err)
	records[0].Type = domain.ViolationScreenShareEnded

	again, err := store.List(ctx, "meeting-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.ViolationTabSwitch, again[0].Type)
}
