package serve

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/pipeline/observability"
	"github.com/marketpulse/pipeline/store"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	mr := miniredis.RunT(t)
	st := store.New(store.Options{Addr: mr.Addr()}, zerolog.Nop())
	return NewHub(st, observability.NewMetrics("test"), zerolog.Nop())
}

// testClient mirrors newClient without a real websocket conn, same
// pattern the cartographus hub tests use for its mock Client.
func testClient(hub *Hub, channels []string) *client {
	chanSet := map[string]bool{}
	for _, c := range channels {
		chanSet[c] = true
	}
	return &client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, 8), channels: chanSet}
}

func TestHubDispatchesToSubscribedChannelOnly(t *testing.T) {
	hub := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	trending := testClient(hub, []string{"trending_keywords"})
	newsFeed := testClient(hub, []string{"news_feed"})
	hub.Register <- trending
	hub.Register <- newsFeed
	time.Sleep(20 * time.Millisecond)

	hub.BroadcastSection("trending_keywords", []string{"rate-cut"})

	select {
	case msg := <-trending.send:
		require.Equal(t, "trending_keywords", msg.Channel)
	case <-time.After(time.Second):
		t.Fatal("subscribed client never received the update")
	}

	select {
	case <-newsFeed.send:
		t.Fatal("unsubscribed client should not receive the update")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDispatchesToAllWildcard(t *testing.T) {
	hub := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := testClient(hub, []string{"all"})
	hub.Register <- c
	time.Sleep(20 * time.Millisecond)

	hub.BroadcastSection("metadata", map[string]int{"count": 1})

	select {
	case msg := <-c.send:
		require.Equal(t, "metadata", msg.Channel)
	case <-time.After(time.Second):
		t.Fatal("all-subscribed client never received the update")
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := testClient(hub, []string{"all"})
	hub.Register <- c
	time.Sleep(20 * time.Millisecond)
	hub.Unregister <- c
	time.Sleep(20 * time.Millisecond)

	_, open := <-c.send
	require.False(t, open, "send channel must be closed after unregister")
}
