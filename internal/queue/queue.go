package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TopicOutreachRuns carries requests to run outreach for a campaign.
const TopicOutreachRuns = "outreach_runs"

const defaultMaxRetries = 3

// Handler processes one message. A non-nil error asks for a retry.
type Handler func(payload []byte) error

type Queue interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler Handler) error
}

// InMemoryQueue delivers messages to in-process subscribers with retry.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	wg         sync.WaitGroup
	log        *zap.Logger
	maxRetries int
	backoff    time.Duration
}

func NewInMemoryQueue(log *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		log:        log,
		maxRetries: defaultMaxRetries,
		backoff:    500 * time.Millisecond,
	}
}

type job struct {
	topic      string
	payload    []byte
	retryCount int
}

// Publish hands the payload to every subscriber of topic.
func (q *InMemoryQueue) Publish(topic string, payload []byte) error {
	q.mu.Lock()
	handlers := append([]Handler(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, h := range handlers {
		q.wg.Add(1)
		go q.process(h, job{topic: topic, payload: payload})
	}
	return nil
}

func (q *InMemoryQueue) process(h Handler, j job) {
	defer q.wg.Done()
	for {
		err := h(j.payload)
		if err == nil {
			return
		}
		j.retryCount++
		if j.retryCount > q.maxRetries {
			q.log.Error("job permanently failed",
				zap.String("topic", j.topic), zap.Int("attempts", j.retryCount), zap.Error(err))
			return
		}
		q.log.Warn("job failed, retrying",
			zap.String("topic", j.topic), zap.Int("attempt", j.retryCount), zap.Error(err))
		time.Sleep(time.Duration(j.retryCount) * q.backoff)
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job has finished or ctx is done.
func (q *InMemoryQueue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
