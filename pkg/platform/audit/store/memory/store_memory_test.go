package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "proctor/pkg/domain"
	audit "proctor/pkg/platform/audit"
)

func TestInMemoryStore_IndexesByUserAndSession(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	userID := id.UserID(uuid.New())
	sessionA := id.NewSessionID()
	sessionB := id.NewSessionID()

	require.NoError(t, store.Append(ctx, audit.Event{UserID: userID, SessionID: sessionA, Action: "a"}))
	require.NoError(t, store.Append(ctx, audit.Event{UserID: userID, SessionID: sessionB, Action: "b"}))
	require.NoError(t, store.Append(ctx, audit.Event{SessionID: sessionA, Action: "c"}))

	byUser, err := store.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	bySession, err := store.ListBySession(ctx, sessionA)
	require.NoError(t, err)
	require.Len(t, bySession, 2)
	assert.Equal(t, "a", bySession[0].Action)
	assert.Equal(t, "c", bySession[1].Action)

	store.Clear()
	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInMemoryStore_ListRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, audit.Event{Action: "e", Timestamp: base.Add(time.Duration(i) * time.Minute)}))
	}

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, base.Add(4*time.Minute), recent[0].Timestamp)
	assert.Equal(t, base.Add(3*time.Minute), recent[1].Timestamp)
}
