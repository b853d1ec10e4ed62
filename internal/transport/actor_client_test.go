package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestActorClientSendBatch(t *testing.T) {
	var got actorInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/acts/owner~dm-actor/run-sync-get-dataset-items", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode([]actorItem{
			{Username: "ana", Status: "success"},
			{Username: "marc", Status: "failed"},
			{Username: "stranger", Status: "success"},
		})
	}))
	defer srv.Close()

	c := NewActorClient(srv.URL+"/", "tok", "owner~dm-actor", 45*time.Second, zap.NewNop())
	res, err := c.SendBatch(context.Background(), "sess", []string{"ana", "marc", "jo"}, "hello")
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"ana": true, "marc": false, "jo": false}, res)
	assert.Equal(t, "sess", got.SessionID)
	assert.Equal(t, []string{"ana", "marc", "jo"}, got.TargetUsernames)
	assert.Equal(t, "hello", got.Message)
	assert.Equal(t, 45, got.DelayBetweenMessages)
	assert.Equal(t, 3, got.MaxUsers)
	assert.True(t, got.Proxy.UseApifyProxy)
}

func TestActorClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewActorClient(srv.URL, "bad", "a", time.Second, zap.NewNop())
	_, err := c.SendBatch(context.Background(), "sess", []string{"ana"}, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestActorClientEmptyBatch(t *testing.T) {
	c := NewActorClient("http://127.0.0.1:1", "tok", "a", time.Second, zap.NewNop())
	res, err := c.SendBatch(context.Background(), "sess", nil, "hello")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestMockTransport(t *testing.T) {
	all := NewMockTransport(100, 1)
	res, err := all.SendBatch(context.Background(), "s", []string{"a", "b"}, "x")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": true, "b": true}, res)

	none := NewMockTransport(0, 1)
	res, err = none.SendBatch(context.Background(), "s", []string{"a"}, "x")
	require.NoError(t, err)
	assert.False(t, res["a"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = all.SendBatch(ctx, "s", []string{"a"}, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
