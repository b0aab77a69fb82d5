package live_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaWS "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/recordkeeper/internal/common/jwtverify"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
	"github.com/AlibekovAA/recordkeeper/internal/recording/domain"
	"github.com/AlibekovAA/recordkeeper/internal/recording/live"
)

func startHub(t *testing.T) (*live.Hub, *httptest.Server) {
	t.Helper()
	log := logger.NewWriter(io.Discard, "test", "info")
	hub := live.NewHub(log)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	handler := live.NewHandler(hub, log)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		if user == "" {
			handler.ServeHTTP(w, r)
			return
		}
		handler.ServeHTTP(w, r.WithContext(jwtverify.WithClaims(r.Context(), jwtverify.Claims{UserID: user})))
	}))

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *gorillaWS.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/recordings/live?user=" + user
	conn, _, err := gorillaWS.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorillaWS.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_FanOut(t *testing.T) {
	hub, srv := startHub(t)

	a := dial(t, srv, "alice")
	b := dial(t, srv, "bob")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(domain.Recording{ID: "rec-1", Owner: "alice", Type: "bp", Extra: map[string]any{"systolic": 120.0}})

	for _, conn := range []*gorillaWS.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, live.TypeRecordingCreated, msg["type"])
		payload, ok := msg["payload"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "rec-1", payload["id"])
		assert.Equal(t, 120.0, payload["systolic"])
	}
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RequiresClaims(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/recordings/live")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub, _ := startHub(t)

	assert.NotPanics(t, func() {
		for i := 0; i < 200; i++ {
			hub.Publish(domain.Recording{ID: "x"})
		}
	})
}

func TestHub_RegisterAfterShutdown(t *testing.T) {
	hub := live.NewHub(logger.NewWriter(io.Discard, "test", "info"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.False(t, hub.Register(&live.Client{}))
	hub.Publish(domain.Recording{ID: "late"})
}
