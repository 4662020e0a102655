package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ergo-lite/indexer/internal/nodeclient"
	"github.com/ergo-lite/indexer/internal/syncengine"
)

func TestStatusFeedSendsInitialSnapshotOnConnect(t *testing.T) {
	store := openTestStore(t)
	pool := nodeclient.NewPool(nil, "", testLogger())
	engine := syncengine.New(pool, store, testLogger(), true, 10, time.Second)
	feed := NewStatusFeed(engine, testLogger())

	srv := httptest.NewServer(http.HandlerFunc(feed.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg StatusMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "status", msg.Type)
	require.NotEmpty(t, msg.Timestamp)
}

func TestStatusFeedBroadcastsToRegisteredClients(t *testing.T) {
	store := openTestStore(t)
	pool := nodeclient.NewPool(nil, "", testLogger())
	engine := syncengine.New(pool, store, testLogger(), true, 10, time.Second)
	feed := NewStatusFeed(engine, testLogger())

	srv := httptest.NewServer(http.HandlerFunc(feed.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var initial StatusMessage
	require.NoError(t, conn.ReadJSON(&initial))

	require.Eventually(t, func() bool {
		return len(feed.clients) == 1
	}, time.Second, 10*time.Millisecond)

	feed.broadcast(context.Background())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var pushed StatusMessage
	require.NoError(t, conn.ReadJSON(&pushed))
	require.Equal(t, "status", pushed.Type)
}
