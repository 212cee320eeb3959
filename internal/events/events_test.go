package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKafkaWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeKafkaWriter{}
	p := NewKafkaPublisherWith(w)

	ev := NewSearchEvent("hades", "eur", "pc", "ok")
	ev.Groups = 3
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	assert.Equal(t, []byte("hades"), w.msgs[0].Key)
	var got SearchEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, 3, got.Groups)
	assert.Equal(t, "eur", got.Currency)
	assert.NoError(t, p.Close())
}

func TestPublishAsync_ReportsFailure(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaPublisherWith(&fakeKafkaWriter{err: boom})

	err := <-PublishAsync(p, NewSearchEvent("hades", "eur", "pc", "ok"), nil)
	assert.ErrorIs(t, err, boom)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), SearchEvent{}))
	assert.NoError(t, <-PublishAsync(p, SearchEvent{}, nil))
}

func TestNewSearchEvent(t *testing.T) {
	a := NewSearchEvent("t", "eur", "pc", "ok")
	b := NewSearchEvent("t", "eur", "pc", "ok")
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.OccurredAt.IsZero())
}
