package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ============================================================================
// State WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
// Studio state stays daemon-owned. The initial snapshot on connect is
// requested through the events channel, and every later message comes from a
// StateBroadcast published by the Studio.
//
// Messages are JSON text frames with an envelope: {type, ts, data}.
// The first message on connect is "state_init".
// Clients whose send buffer fills are disconnected.
//
// ============================================================================

// wsMessageSnapshot is the JSON `data` payload for "state_init".
type wsMessageSnapshot struct {
	State      string      `json:"state"`
	Session    string      `json:"session,omitempty"`
	Trajectory string      `json:"trajectory,omitempty"`
	Segment    int         `json:"segment"`
	Segments   int         `json:"segments"`
	ElapsedS   float64     `json:"elapsed_s"`
	JointNames []string    `json:"joint_names"`
	ViaPoints  [][]float64 `json:"via_points"`
}

type wsPlaybackStartedData struct {
	Session   string  `json:"session"`
	Name      string  `json:"name"`
	Segments  int     `json:"segments"`
	DurationS float64 `json:"duration_s"`
}

type wsSegmentChangedData struct {
	Session  string `json:"session"`
	Segment  int    `json:"segment"`
	Segments int    `json:"segments"`
}

type wsJointCommandData struct {
	Session    string    `json:"session"`
	Segment    int       `json:"segment"`
	Positions  []float64 `json:"positions"`
	Velocities []float64 `json:"velocities"`
}

type wsPlaybackFinishedData struct {
	Session string `json:"session"`
	Reason  string `json:"reason"`
	Error   string `json:"error,omitempty"`
}

type wsViaPointsChangedData struct {
	Points [][]float64 `json:"points"`
}

// wsOutboundEvent is a pre-typed, externally-consumable state event.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time // zero means "use now"
}

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

func marshalEnvelope(ev wsOutboundEvent) ([]byte, error) {
	ts := ev.At.UTC()
	if ev.At.IsZero() {
		ts = time.Now().UTC()
	}
	return json.Marshal(envelope{Type: ev.Type, Ts: &ts, Data: ev.Data})
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	// Buffered broadcast channel for already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size (default 32).
	SendBuf int

	// BroadcastBuf is the hub inbound broadcast queue size (default 128).
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled.
// It disconnects all clients on shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "client", c.id, "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients under the lock, remove them after.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeCloseChan(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	// Closing send signals writePump to exit.
	safeCloseChan(c.send)

	h.logger.Info("ws client disconnected", "client", c.id, "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

func safeCloseChan(ch chan []byte) {
	defer func() {
		_ = recover() // ignore "close of closed channel"
	}()
	close(ch)
}

// SendTo queues msg for a single client. It reports false when the client is
// no longer registered or its queue is full. Holding mu keeps the hub from
// closing c.send underneath the send.
func (h *Hub) SendTo(c *Client, msg []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// BroadcastBytes enqueues a pre-serialized JSON WS frame for broadcast.
// It never blocks; if the hub queue is full it drops the message.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	id         string
	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		id:         uuid.New().String(),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

const (
	writeWait = 5 * time.Second

	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// wsJointCommandCoalesceWindow is the maximum rate at which joint_command
// frames reach clients. The physics loop produces one per tick; only the
// latest within each window is sent.
const wsJointCommandCoalesceWindow = 50 * time.Millisecond

// closeStatus extracts a human-readable websocket close code / text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

func (c *Client) logExit(pump, kind string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("ws "+pump+" exiting (close)", "client", c.id, "code", code, "reason", text)
		return
	}
	c.logger.Info("ws "+pump+" exiting ("+kind+")", "client", c.id, "error", err)
}

// writePump writes messages from the send queue to the websocket.
// It exits on write error or when send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", "write error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", "ping error", err)
				return
			}
		}
	}
}

// readPump reads and discards incoming messages to detect disconnects and
// handle control frames. It unregisters the client on exit.
func (c *Client) readPump(ctx context.Context) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("readPump", "read error", err)
			if c.hub != nil {
				c.hub.unregister <- c
			}
			return
		}
	}
}

// ============================================================================
// HTTP Handler
// ============================================================================

type Server struct {
	logger *slog.Logger

	hub *Hub

	// Used for the initial snapshot request on connect.
	events chan<- Event
}

type ServerConfig struct {
	Hub HubConfig
}

// NewServer constructs the WS state server components. Call Register on a
// mux, then start Hub().Run(ctx) and RunBroadcaster.
func NewServer(logger *slog.Logger, events chan<- Event, cfg ServerConfig) *Server {
	return &Server{
		logger: logger,
		hub:    NewHub(logger, cfg.Hub),
		events: events,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Register registers the WS handler on the provided mux.
func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStateWS upgrades and registers a client, then sends state_init.
func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	s.hub.register <- client

	// The pumps outlive this handler; net/http cancels r.Context() on return.
	go client.writePump(context.Background())
	go client.readPump(context.Background())

	if s.events == nil {
		return
	}

	snap, ok := s.requestSnapshot(r.Context())
	if !ok {
		return
	}
	initMsg, err := marshalEnvelope(wsOutboundEvent{
		Type: "state_init",
		Data: snapshotPayload(snap),
		At:   snap.At,
	})
	if err != nil {
		s.logger.Warn("ws state_init marshal failed", "error", err)
		return
	}
	if !s.hub.SendTo(client, initMsg) {
		s.hub.unregister <- client
	}
}

// requestSnapshot asks the daemon loop for a snapshot, giving up after one
// second or when ctx ends.
func (s *Server) requestSnapshot(ctx context.Context) (StateSnapshot, bool) {
	reply := make(chan StateSnapshot, 1)

	select {
	case <-ctx.Done():
		return StateSnapshot{}, false
	case s.events <- RequestStateSnapshot{Reply: reply}:
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	select {
	case <-waitCtx.Done():
		if !errors.Is(waitCtx.Err(), context.Canceled) {
			s.logger.Warn("ws snapshot request failed", "error", waitCtx.Err())
		}
		return StateSnapshot{}, false
	case snap := <-reply:
		return snap, true
	}
}

func snapshotPayload(snap StateSnapshot) wsMessageSnapshot {
	vp := snap.ViaPoints
	if vp == nil {
		vp = [][]float64{}
	}
	return wsMessageSnapshot{
		State:      snap.State,
		Session:    snap.Session,
		Trajectory: snap.Trajectory,
		Segment:    snap.Segment,
		Segments:   snap.Segments,
		ElapsedS:   snap.ElapsedS,
		JointNames: snap.JointNames,
		ViaPoints:  vp,
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster reads StateBroadcast events, marshals them and broadcasts
// them to all hub clients. Intended to run as a single goroutine.
//
// joint_command frames are rate-limited (latest wins, at most one per
// wsJointCommandCoalesceWindow). Any other event flushes the pending
// joint_command first so ordering within a session is preserved.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	var pending *wsOutboundEvent
	var timer *time.Timer
	var timerC <-chan time.Time

	emit := func(ev wsOutboundEvent) {
		msg, err := marshalEnvelope(ev)
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err, "type", ev.Type)
			return
		}
		hub.BroadcastBytes(msg)
	}

	flushPending := func() {
		if pending == nil {
			return
		}
		emit(*pending)
		pending = nil
	}

	stopTimer := func() {
		if timer != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer = nil
		timerC = nil
	}

	for {
		select {
		case <-ctx.Done():
			flushPending()
			stopTimer()
			return

		case <-timerC:
			// Keep the window running only while commands keep arriving.
			if pending == nil {
				stopTimer()
				continue
			}
			flushPending()
			timer.Reset(wsJointCommandCoalesceWindow)

		case b, ok := <-src:
			if !ok {
				flushPending()
				stopTimer()
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}

			ev, ok := convertBroadcast(b)
			if !ok {
				continue
			}

			if ev.Type == "joint_command" {
				pending = &ev
				if timer == nil {
					timer = time.NewTimer(wsJointCommandCoalesceWindow)
					timerC = timer.C
				}
				continue
			}

			flushPending()
			stopTimer()
			emit(ev)
		}
	}
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastPlaybackStarted:
		return wsOutboundEvent{
			Type: "playback_started",
			Data: wsPlaybackStartedData{Session: ev.Session, Name: ev.Name, Segments: ev.Segments, DurationS: ev.DurationS},
			At:   ev.At,
		}, true

	case BroadcastSegmentChanged:
		return wsOutboundEvent{
			Type: "segment_changed",
			Data: wsSegmentChangedData{Session: ev.Session, Segment: ev.Segment, Segments: ev.Segments},
			At:   ev.At,
		}, true

	case BroadcastJointCommand:
		return wsOutboundEvent{
			Type: "joint_command",
			Data: wsJointCommandData{Session: ev.Session, Segment: ev.Segment, Positions: ev.Positions, Velocities: ev.Velocities},
			At:   ev.At,
		}, true

	case BroadcastPlaybackFinished:
		return wsOutboundEvent{
			Type: "playback_finished",
			Data: wsPlaybackFinishedData{Session: ev.Session, Reason: ev.Reason, Error: ev.Error},
			At:   ev.At,
		}, true

	case BroadcastViaPointsChanged:
		points := ev.Points
		if points == nil {
			points = [][]float64{}
		}
		return wsOutboundEvent{
			Type: "via_points_changed",
			Data: wsViaPointsChangedData{Points: points},
			At:   ev.At,
		}, true

	default:
		return wsOutboundEvent{}, false
	}
}
