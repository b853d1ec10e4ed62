// Package transport delivers direct messages through the automation actor.
package transport

import "context"

// Transport sends one message body to a group of recipients and reports, per
// username, whether delivery succeeded. A returned error means the call itself
// failed and no recipient should be treated as delivered.
type Transport interface {
	SendBatch(ctx context.Context, sessionID string, usernames []string, body string) (map[string]bool, error)
}
