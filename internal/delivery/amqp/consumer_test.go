package amqp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcker struct {
	acked    []uint64
	nacked   []uint64
	requeued []bool
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	f.requeued = append(f.requeued, requeue)
	return nil
}

const validEvent = `{
	"event_id": "01930000-0000-7000-8000-0000000000aa",
	"job_id": "01930000-0000-7000-8000-0000000000bb",
	"kind": "generation",
	"owner_id": "123",
	"status": "COMPLETED",
	"result_ref": "https://fal.media/files/img.png",
	"occurred_at": "2026-01-02T03:04:05Z"
}`

func TestDecodeDelivery_SettlesThroughChannel(t *testing.T) {
	ch := &fakeAcker{}

	msg, err := decodeDelivery([]byte(validEvent), 7, ch)
	require.NoError(t, err)
	assert.Equal(t, "123", msg.Event.OwnerID)
	assert.Equal(t, "https://fal.media/files/img.png", msg.Event.ResultRef)

	require.NoError(t, msg.Ack())
	require.NoError(t, msg.Nack(true))
	assert.Equal(t, []uint64{7}, ch.acked)
	assert.Equal(t, []uint64{7}, ch.nacked)
	assert.Equal(t, []bool{true}, ch.requeued)
}

func TestDecodeDelivery_RejectsBadBodies(t *testing.T) {
	bodies := map[string]string{
		"not json":       `{`,
		"missing ids":    `{"kind":"training","status":"FAILED"}`,
		"pending status": `{"event_id":"01930000-0000-7000-8000-0000000000aa","job_id":"01930000-0000-7000-8000-0000000000bb","kind":"training","status":"PENDING"}`,
		"unknown kind":   `{"event_id":"01930000-0000-7000-8000-0000000000aa","job_id":"01930000-0000-7000-8000-0000000000bb","kind":"video","status":"FAILED"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := decodeDelivery([]byte(body), 1, &fakeAcker{})
			assert.Error(t, err)
		})
	}
}
