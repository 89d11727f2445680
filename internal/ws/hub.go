package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atlastrack/atlastrack/internal/api"
	"github.com/atlastrack/atlastrack/internal/store"
	"github.com/atlastrack/atlastrack/pkg/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// queueDepth is how many pushes a subscriber may fall behind before it
	// is dropped.
	queueDepth = 8

	// maxInbound caps client frames; clients only send control frames.
	maxInbound = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is the JSON envelope pushed to subscribers. Seq increases by one
// with every push the hub encodes.
type Message struct {
	Event string             `json:"event"`
	Seq   uint64             `json:"seq"`
	Data  api.LatestResponse `json:"data"`
}

// Hub pushes the cache snapshot to WebSocket subscribers. The subscriber set
// is owned by the Run goroutine; ServeHTTP hands connections over through
// channels.
type Hub struct {
	store    store.Reader
	interval time.Duration

	kick  chan struct{}
	join  chan *subscriber
	leave chan *subscriber
	done  chan struct{}

	seq   uint64 // Run goroutine only
	count atomic.Int64
}

type subscriber struct {
	conn *websocket.Conn
	out  chan []byte
}

// New creates a Hub reading from st and pushing at least once per interval.
func New(st store.Reader, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		kick:     make(chan struct{}, 1),
		join:     make(chan *subscriber),
		leave:    make(chan *subscriber),
		done:     make(chan struct{}),
	}
}

// Notify asks for an immediate push. Pending requests coalesce, so Notify
// never blocks the store's writer.
func (h *Hub) Notify(types.Snapshot) {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

// Run owns the subscriber set until ctx is cancelled, then closes every
// subscriber.
func (h *Hub) Run(ctx context.Context) {
	subs := make(map[*subscriber]struct{})
	tick := time.NewTicker(h.interval)
	defer tick.Stop()
	defer close(h.done)

	drop := func(s *subscriber) {
		if _, ok := subs[s]; ok {
			delete(subs, s)
			close(s.out)
			h.count.Add(-1)
		}
	}

	for {
		select {
		case <-ctx.Done():
			for s := range subs {
				drop(s)
			}
			return

		case s := <-h.join:
			msg, err := h.encode()
			if err != nil {
				slog.Error("ws: encode snapshot", "err", err)
			} else {
				s.out <- msg // empty buffer, cannot block
			}
			subs[s] = struct{}{}
			h.count.Add(1)

		case s := <-h.leave:
			drop(s)

		case <-tick.C:
			h.push(subs, drop)

		case <-h.kick:
			h.push(subs, drop)
		}
	}
}

func (h *Hub) push(subs map[*subscriber]struct{}, drop func(*subscriber)) {
	if len(subs) == 0 {
		return
	}
	msg, err := h.encode()
	if err != nil {
		slog.Error("ws: encode snapshot", "err", err)
		return
	}
	for s := range subs {
		select {
		case s.out <- msg:
		default:
			slog.Warn("ws: subscriber too slow, dropping", "remote", s.conn.RemoteAddr().String())
			drop(s)
		}
	}
}

func (h *Hub) encode() ([]byte, error) {
	h.seq++
	return json.Marshal(Message{
		Event: "snapshot",
		Seq:   h.seq,
		Data:  api.LatestResponse{OK: true, Cache: h.store.Snapshot()},
	})
}

// ServeHTTP upgrades the request and serves the subscriber until it
// disconnects or the hub stops. The current snapshot is the first message.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("ws: upgrade failed", "err", err)
		return
	}

	s := &subscriber{conn: conn, out: make(chan []byte, queueDepth)}
	select {
	case h.join <- s:
	case <-h.done:
		conn.Close()
		return
	}

	go s.writeLoop()
	s.readLoop()

	select {
	case h.leave <- s:
	case <-h.done:
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	return int(h.count.Load())
}

// writeLoop sends queued messages and keepalive pings. A closed queue means
// the hub dropped the subscriber.
func (s *subscriber) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards client frames and returns once the connection fails.
func (s *subscriber) readLoop() {
	defer s.conn.Close()
	s.conn.SetReadLimit(maxInbound)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.NextReader(); err != nil {
			return
		}
	}
}
