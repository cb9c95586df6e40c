package render

import (
	"net/http"
	"sync"
	"time"

	"aquarium_dashboard/internal/logger"
	"aquarium_dashboard/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
	sendBuffer = 64
)

// Frame types.
const (
	FrameSeries      = "series"
	FrameDispose     = "dispose"
	FramePlaceholder = "placeholder"
	FrameAlerts      = "alerts"
	FrameFeedings    = "feedings"
	FramePrediction  = "prediction"
	FrameNotice      = "notice"
)

// Frame is the envelope written to every WebSocket client.
type Frame struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type feedingTables struct {
	Pending []models.FeedingRow `json:"pending"`
	History []models.FeedingRow `json:"history"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	id   string
	send chan Frame
	quit chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.quit) })
}

// Hub is a Sink that streams frames to every connected tab. The latest frame
// per panel is retained and replayed to tabs that connect later, so all tabs
// show the same view.
type Hub struct {
	log *logger.Logger

	mu       sync.Mutex
	clients  map[string]*client
	retained map[string]Frame
	order    []string
	closed   bool
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:      log,
		clients:  make(map[string]*client),
		retained: make(map[string]Frame),
	}
}

func retainKey(f Frame) string {
	switch f.Type {
	case FrameSeries, FramePlaceholder:
		return f.Type + ":" + f.Channel
	}
	return f.Type
}

func (h *Hub) publish(f Frame, retain bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if retain {
		key := retainKey(f)
		if _, ok := h.retained[key]; !ok {
			h.order = append(h.order, key)
		}
		h.retained[key] = f
	}
	for id, c := range h.clients {
		select {
		case c.send <- f:
		default:
			h.log.Warnw("ws_client_too_slow", "client_id", id)
			c.stop()
			delete(h.clients, id)
		}
	}
}

func (h *Hub) forget(key string) {
	if _, ok := h.retained[key]; !ok {
		return
	}
	delete(h.retained, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Hub) RenderSeries(channel string, points []models.Point) {
	h.publish(Frame{Type: FrameSeries, Channel: channel, Data: points}, true)
}

func (h *Hub) DisposeSeries(channel string) {
	h.mu.Lock()
	h.forget(FrameSeries + ":" + channel)
	h.mu.Unlock()
	h.publish(Frame{Type: FrameDispose, Channel: channel}, false)
}

func (h *Hub) ShowPlaceholder(channel string, show bool) {
	h.publish(Frame{Type: FramePlaceholder, Channel: channel, Data: show}, true)
}

func (h *Hub) RenderAlerts(alerts []models.Alert) {
	h.publish(Frame{Type: FrameAlerts, Data: alerts}, true)
}

func (h *Hub) RenderFeedingTables(pending, history []models.FeedingRow) {
	h.publish(Frame{Type: FrameFeedings, Data: feedingTables{Pending: pending, History: history}}, true)
}

func (h *Hub) RenderPrediction(p models.Prediction) {
	h.publish(Frame{Type: FramePrediction, Data: p}, true)
}

// Notify is broadcast but not replayed.
func (h *Hub) Notify(n models.Notice) {
	h.publish(Frame{Type: FrameNotice, Data: n}, false)
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and drops retained frames.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		c.stop()
		delete(h.clients, id)
	}
	h.retained = make(map[string]Frame)
	h.order = nil
}

func (h *Hub) register() (*client, []Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil, false
	}
	c := &client{id: uuid.NewString(), send: make(chan Frame, sendBuffer), quit: make(chan struct{})}
	h.clients[c.id] = c
	replay := make([]Frame, 0, len(h.order))
	for _, k := range h.order {
		replay = append(replay, h.retained[k])
	}
	return c, replay, true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.stop()
}

// ServeWS upgrades the request and streams frames until either side closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	c, replay, ok := h.register()
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "dashboard closed"), time.Now().Add(writeWait))
		return
	}
	defer h.unregister(c)
	h.log.Infow("ws_client_connected", "client_id", c.id)

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, c.id, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for _, f := range replay {
		if err := writeFrame(conn, f); err != nil {
			h.log.Infow("ws_write_failed_initial", "client_id", c.id, "err", err)
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case <-c.quit:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "dashboard closed"), time.Now().Add(writeWait))
			return
		case f := <-c.send:
			if err := writeFrame(conn, f); err != nil {
				h.log.Infow("ws_write_failed", "client_id", c.id, "err", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "client_id", c.id, "err", err)
				return
			}
		}
	}
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Hub) startReader(conn *websocket.Conn, id string, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Infow("ws_read_closed", "client_id", id, "err", err)
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}
