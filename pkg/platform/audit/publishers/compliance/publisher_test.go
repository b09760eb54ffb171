package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "proctor/pkg/domain"
	audit "proctor/pkg/platform/audit"
	"proctor/pkg/platform/audit/store/memory"
)

type failingSink struct{ err error }

func (f failingSink) Append(context.Context, audit.Event) error { return f.err }

func TestEmit_PersistsWithComplianceCategory(t *testing.T) {
	store := memory.NewInMemoryStore()
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p := New(store, WithClock(func() time.Time { return fixed }))
	sessionID := id.NewSessionID()

	err := p.Emit(context.Background(), audit.Event{
		SessionID: sessionID,
		Action:    string(audit.EventCertificateDecided),
		Decision:  "issued",
	})
	require.NoError(t, err)

	events, err := store.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, fixed, events[0].Timestamp)
}

func TestEmit_FailsClosed(t *testing.T) {
	cause := errors.New("outbox down")
	p := New(failingSink{err: cause})

	err := p.Emit(context.Background(), audit.Event{
		TestSessionID: id.TestSessionID(id.NewSessionID()),
		Action:        string(audit.EventAdminOverrideRecorded),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestEmit_RejectsIncompleteEvents(t *testing.T) {
	p := New(memory.NewInMemoryStore())

	err := p.Emit(context.Background(), audit.Event{SessionID: id.NewSessionID()})
	assert.ErrorContains(t, err, "requires Action")

	err = p.Emit(context.Background(), audit.Event{Action: string(audit.EventSessionStopped)})
	assert.ErrorContains(t, err, "requires SessionID")
}
