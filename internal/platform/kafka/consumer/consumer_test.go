package consumer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestFromRecord_CopiesHeaders(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := FromRecord(&kgo.Record{
		Topic:     "proctor.audit",
		Partition: 2,
		Offset:    41,
		Key:       []byte("k"),
		Value:     []byte("v"),
		Headers:   []kgo.RecordHeader{{Key: "event_type", Value: []byte("certificate_decided")}},
		Timestamp: ts,
	})

	assert.Equal(t, "proctor.audit", msg.Topic)
	assert.Equal(t, int32(2), msg.Partition)
	assert.Equal(t, int64(41), msg.Offset)
	assert.Equal(t, "certificate_decided", msg.Headers["event_type"])
	assert.Equal(t, ts, msg.Timestamp)
}
