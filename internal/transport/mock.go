package transport

import (
	"context"
	"math/rand"
	"sync"
)

// MockTransport simulates delivery with a fixed success rate. Used when no
// actor token is configured.
type MockTransport struct {
	mu         sync.Mutex
	rng        *rand.Rand
	successPct int
}

func NewMockTransport(successPct int, seed int64) *MockTransport {
	return &MockTransport{rng: rand.New(rand.NewSource(seed)), successPct: successPct}
}

func (m *MockTransport) SendBatch(ctx context.Context, sessionID string, usernames []string, body string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		results[u] = m.rng.Intn(100) < m.successPct
	}
	return results, nil
}

var _ Transport = (*MockTransport)(nil)
