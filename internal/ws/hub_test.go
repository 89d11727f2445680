package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlastrack/atlastrack/internal/store"
	"github.com/atlastrack/atlastrack/internal/ws"
	"github.com/atlastrack/atlastrack/pkg/types"
)

var at = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	st   *store.Store
	hub  *ws.Hub
	url  string
	stop context.CancelFunc
}

// newHarness runs a store writer and a hub behind an httptest server.
func newHarness(t *testing.T, interval time.Duration) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	st := store.New()
	go st.Run(ctx)

	hubCtx, stopHub := context.WithCancel(ctx)
	hub := ws.New(st, interval)
	go hub.Run(hubCtx)

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &harness{st: st, hub: hub, url: "ws" + strings.TrimPrefix(srv.URL, "http"), stop: stopHub}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type pushed struct {
	Event string `json:"event"`
	Seq   uint64 `json:"seq"`
	Data  struct {
		OK    bool           `json:"ok"`
		Cache types.Snapshot `json:"cache"`
	} `json:"data"`
}

func next(t *testing.T, conn *websocket.Conn) pushed {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m pushed
	require.NoError(t, conn.ReadJSON(&m))
	require.Equal(t, "snapshot", m.Event)
	require.True(t, m.Data.OK)
	return m
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

// --- connect ----------------------------------------------------------------

func TestConnect_FirstMessageIsCurrentSnapshot(t *testing.T) {
	h := newHarness(t, time.Hour)

	m := next(t, h.dial(t))
	assert.Equal(t, types.SourceNone, m.Data.Cache.Source)
	assert.Equal(t, types.MagNormal, m.Data.Cache.MagStatus)
	assert.Nil(t, m.Data.Cache.LatestMag)
	assert.NotZero(t, m.Seq)
}

func TestConnect_PlainHTTPIsRejected(t *testing.T) {
	h := newHarness(t, time.Hour)

	resp, err := http.Get("http" + strings.TrimPrefix(h.url, "ws"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConnect_AfterHubStoppedIsClosed(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.stop()
	time.Sleep(20 * time.Millisecond)

	conn := h.dial(t)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

// --- pushes -----------------------------------------------------------------

func TestPush_IntervalCarriesNewState(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)
	conn := h.dial(t)
	first := next(t, conn)

	require.NoError(t, h.st.SetDistance(context.Background(), 3e8, at))

	for {
		m := next(t, conn)
		assert.Greater(t, m.Seq, first.Seq)
		if d := m.Data.Cache.DistanceKm; d != nil && *d == 3e8 {
			return
		}
	}
}

func TestPush_NotifyIsImmediate(t *testing.T) {
	h := newHarness(t, time.Hour)
	conn := h.dial(t)
	first := next(t, conn)

	require.NoError(t, h.st.SetDistance(context.Background(), 2e8, at))
	h.hub.Notify(types.Snapshot{})

	m := next(t, conn)
	require.NotNil(t, m.Data.Cache.DistanceKm)
	assert.Equal(t, 2e8, *m.Data.Cache.DistanceKm)
	assert.Equal(t, first.Seq+1, m.Seq)
}

func TestNotify_DoesNotBlockWithoutRun(t *testing.T) {
	hub := ws.New(store.New(), time.Hour)
	for i := 0; i < 10; i++ {
		hub.Notify(types.Snapshot{})
	}
}

// --- subscribers ------------------------------------------------------------

func TestCount_TracksConnectAndDisconnect(t *testing.T) {
	h := newHarness(t, time.Hour)

	conns := []*websocket.Conn{h.dial(t), h.dial(t), h.dial(t)}
	for _, c := range conns {
		next(t, c)
	}
	eventually(t, func() bool { return h.hub.Count() == 3 })

	conns[0].Close()
	eventually(t, func() bool { return h.hub.Count() == 2 })
}

func TestStop_ClosesSubscribers(t *testing.T) {
	h := newHarness(t, time.Hour)
	conn := h.dial(t)
	next(t, conn)

	h.stop()
	eventually(t, func() bool { return h.hub.Count() == 0 })

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
