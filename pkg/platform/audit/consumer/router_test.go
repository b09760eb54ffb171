package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"proctor/internal/platform/kafka/consumer"
)

func TestRouter_DispatchesByTopic(t *testing.T) {
	var got []string
	record := func(name string) consumer.HandlerFunc {
		return func(_ context.Context, msg *consumer.Message) error {
			got = append(got, name+":"+msg.Topic)
			return nil
		}
	}
	r := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), record("fallback"))
	r.Register("proctor.audit", record("audit"))

	ctx := context.Background()
	assert.NoError(t, r.Handle(ctx, &consumer.Message{Topic: "proctor.audit"}))
	assert.NoError(t, r.Handle(ctx, &consumer.Message{Topic: "other"}))
	assert.Equal(t, []string{"audit:proctor.audit", "fallback:other"}, got)
}

func TestRouter_UnroutedWithoutFallbackIsAcknowledged(t *testing.T) {
	r := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	assert.NoError(t, r.Handle(context.Background(), &consumer.Message{Topic: "stray", Offset: 9}))
}

func TestRouter_PropagatesHandlerError(t *testing.T) {
	boom := errors.New("store down")
	r := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	r.Register("proctor.audit", consumer.HandlerFunc(func(context.Context, *consumer.Message) error { return boom }))

	assert.ErrorIs(t, r.Handle(context.Background(), &consumer.Message{Topic: "proctor.audit"}), boom)
}
