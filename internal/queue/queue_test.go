package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryQueueDelivers(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())

	var mu sync.Mutex
	var got []string
	require.NoError(t, q.Subscribe(TopicOutreachRuns, func(p []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(p))
		return nil
	}))

	require.NoError(t, q.Publish(TopicOutreachRuns, []byte(`{"campaign_id":1}`)))
	require.NoError(t, q.Wait(context.Background()))
	assert.Equal(t, []string{`{"campaign_id":1}`}, got)
}

func TestInMemoryQueueRetries(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	q.backoff = time.Millisecond

	var calls int32
	require.NoError(t, q.Subscribe("t", func(p []byte) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}))
	require.NoError(t, q.Publish("t", nil))
	require.NoError(t, q.Wait(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestInMemoryQueueGivesUp(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	q.backoff = time.Millisecond

	var calls int32
	require.NoError(t, q.Subscribe("t", func(p []byte) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("permanent")
	}))
	require.NoError(t, q.Publish("t", nil))
	require.NoError(t, q.Wait(context.Background()))
	assert.Equal(t, int32(defaultMaxRetries+1), atomic.LoadInt32(&calls))
}

func TestInMemoryQueueNoSubscribers(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	assert.Error(t, q.Publish("nobody", []byte("x")))
}

func TestRetryCountHeader(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 2, retryCount(amqp.Table{retryHeader: int32(2)}))
	assert.Equal(t, 3, retryCount(amqp.Table{retryHeader: int64(3)}))
	assert.Equal(t, 0, retryCount(amqp.Table{retryHeader: "x"}))
}
