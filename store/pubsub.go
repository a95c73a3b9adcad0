package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/marketpulse/pipeline/model"
)

// receiveTimeout bounds every blocking subscription receive so a
// cancellation flag is observed at least once per interval (§4.1).
const receiveTimeout = 1 * time.Second

// Publish fire-and-forgets a Notification on channel, returning the
// subscriber count for observability only (§4.1).
func (s *Store) Publish(ctx context.Context, channel string, n model.Notification) (subscribers int64, err error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return 0, fmt.Errorf("marshal notification: %w", err)
	}
	count, err := s.rdb.Publish(ctx, channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", channel, err)
	}
	return count, nil
}

// Subscription wraps a redis.PubSub bound to one channel, reused
// across the lifetime of a worker loop (no resubscribe per tick).
type Subscription struct {
	sub *redis.PubSub
}

// Subscribe opens a subscription to channel. Close it on shutdown
// without sending an unsubscribe round-trip (§4.1/§9) — the store
// cleans up the connection itself.
func (s *Store) Subscribe(ctx context.Context, channel string) *Subscription {
	return &Subscription{sub: s.rdb.Subscribe(ctx, channel)}
}

// Close tears down the subscription.
func (sub *Subscription) Close() error { return sub.sub.Close() }

// WaitOrPoll yields a tick: either a parsed Notification from the
// subscription, or a nil Notification every pollInterval when
// notifications are disabled (§4.1 "wait_or_poll"). It blocks using
// bounded receives so ctx cancellation is observed within
// receiveTimeout. A malformed payload is logged and skipped, not
// returned as an error (§4.1 failure semantics) — Skipped reports that
// case so the caller can loop again without treating it as a tick.
func (sub *Subscription) WaitOrPoll(ctx context.Context, notificationsEnabled bool, pollInterval time.Duration, onMalformed func(raw string, err error)) (n *model.Notification, skipped bool, err error) {
	if !notificationsEnabled {
		return pollWait(ctx, pollInterval)
	}

	deadline := time.Now().Add(pollInterval)
	for {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		raw, recvErr := sub.sub.ReceiveTimeout(ctx, receiveTimeout)
		if recvErr != nil {
			if isTimeout(recvErr) {
				if pollInterval > 0 && time.Now().After(deadline) {
					// Poll fallback within an event-driven worker:
					// nothing arrived before the fallback interval
					// elapsed, tick anyway (continuous-mode hybrid).
					return nil, false, nil
				}
				continue
			}
			return nil, false, fmt.Errorf("subscription receive: %w", recvErr)
		}
		msg, ok := raw.(*redis.Message)
		if !ok {
			// Subscription/unsubscription confirmations etc.
			continue
		}
		var parsed model.Notification
		if jerr := json.Unmarshal([]byte(msg.Payload), &parsed); jerr != nil {
			if onMalformed != nil {
				onMalformed(msg.Payload, jerr)
			}
			return nil, true, nil
		}
		return &parsed, false, nil
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// pollWait blocks in ≤1s increments until pollInterval has elapsed or
// ctx is cancelled, then returns a poll tick (nil notification, no
// error) — the polling fallback path (§4.1).
func pollWait(ctx context.Context, pollInterval time.Duration) (*model.Notification, bool, error) {
	deadline := time.Now().Add(pollInterval)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false, nil
		}
		wait := remaining
		if wait > receiveTimeout {
			wait = receiveTimeout
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, false, ctx.Err()
		case <-t.C:
		}
	}
}
