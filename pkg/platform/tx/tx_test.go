package tx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTx_NilLeavesContextUntouched(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))

	_, ok := From(ctx)
	assert.False(t, ok)
}

func TestWithTx_RoundTrip(t *testing.T) {
	tx := &sql.Tx{}
	got, ok := From(WithTx(context.Background(), tx))
	assert.True(t, ok)
	assert.Same(t, tx, got)
}

func TestNoopRunner_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := NoopRunner{}.RunInTx(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
