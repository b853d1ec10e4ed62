package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ActorClient runs the DM automation actor synchronously and reads back its
// dataset items.
type ActorClient struct {
	baseURL      string
	token        string
	actorID      string
	messageDelay time.Duration
	httpClient   *http.Client
	log          *zap.Logger
}

func NewActorClient(baseURL, token, actorID string, messageDelay time.Duration, log *zap.Logger) *ActorClient {
	return &ActorClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		actorID:      actorID,
		messageDelay: messageDelay,
		httpClient: &http.Client{
			// the actor waits between recipients, so a run takes minutes
			Timeout: 15 * time.Minute,
		},
		log: log,
	}
}

type actorProxy struct {
	UseApifyProxy    bool     `json:"useApifyProxy"`
	ApifyProxyGroups []string `json:"apifyProxyGroups"`
}

type actorInput struct {
	SessionID            string     `json:"sessionid"`
	TargetUsernames      []string   `json:"target_usernames"`
	Message              string     `json:"message"`
	DelayBetweenMessages int        `json:"delay_between_messages"`
	Proxy                actorProxy `json:"proxy"`
	MaxUsers             int        `json:"max_users"`
}

type actorItem struct {
	Username string `json:"username"`
	Status   string `json:"status"`
}

func (c *ActorClient) SendBatch(ctx context.Context, sessionID string, usernames []string, body string) (map[string]bool, error) {
	if len(usernames) == 0 {
		return map[string]bool{}, nil
	}

	payload, err := json.Marshal(actorInput{
		SessionID:            sessionID,
		TargetUsernames:      usernames,
		Message:              body,
		DelayBetweenMessages: int(c.messageDelay / time.Second),
		Proxy: actorProxy{
			UseApifyProxy:    true,
			ApifyProxyGroups: []string{"RESIDENTIAL"},
		},
		MaxUsers: len(usernames),
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items", c.baseURL, url.PathEscape(c.actorID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.log.Info("starting actor run", zap.Int("recipients", len(usernames)))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("actor unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("actor returned %d: %s", resp.StatusCode, string(b))
	}

	var items []actorItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode actor dataset: %w", err)
	}

	results := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		results[u] = false
	}
	for _, item := range items {
		if item.Username == "" {
			continue
		}
		if _, requested := results[item.Username]; !requested {
			continue
		}
		results[item.Username] = item.Status == "success"
		if item.Status != "success" {
			c.log.Info("actor reported failed delivery",
				zap.String("username", item.Username), zap.String("status", item.Status))
		}
	}
	return results, nil
}

var _ Transport = (*ActorClient)(nil)
