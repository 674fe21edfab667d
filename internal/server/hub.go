package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/builder"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog"
	"github.com/magefree/mage-deckbuilder-go/internal/config"
	"github.com/magefree/mage-deckbuilder-go/internal/deck"
	"github.com/magefree/mage-deckbuilder-go/internal/gesture"
	"github.com/magefree/mage-deckbuilder-go/internal/replay"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1 << 20
)

var errNoSession = errors.New("no session attached; send create_session or join_session first")

// ErrHubStopped is returned for work submitted after Stop.
var ErrHubStopped = errors.New("websocket hub stopped")

// Client is one websocket connection. A client is attached to at most one
// builder session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string // guarded by hub.mu
}

// Hub routes websocket messages to builder sessions and fans session
// updates out to every client attached to the same session.
type Hub struct {
	cfg      config.WebSocketConfig
	idle     time.Duration
	manager  *builder.Manager
	recorder *replay.Recorder
	logger   *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	stopped    bool
	mu         sync.RWMutex

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub over manager. recorder may be nil.
func NewHub(cfg config.ServerConfig, manager *builder.Manager, recorder *replay.Recorder, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:        cfg.WebSocket,
		idle:       cfg.SessionIdle,
		manager:    manager,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		timers:     make(map[string]*time.Timer),
		ctx:        ctx,
		cancel:     cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (h *Hub) pingPeriod() time.Duration {
	if h.cfg.PingInterval > 0 {
		return h.cfg.PingInterval
	}
	return 30 * time.Second
}

func (h *Hub) pongWait() time.Duration {
	return h.pingPeriod() * 10 / 9
}

func (h *Hub) sendQueue() int {
	if h.cfg.SendQueue > 0 {
		return h.cfg.SendQueue
	}
	return 256
}

// Run processes registrations and sweeps idle sessions until Stop.
func (h *Hub) Run() {
	sweep := h.idle / 2
	if sweep <= 0 {
		sweep = time.Minute
	}
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("websocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.Int("clients", count))

		case client := <-h.unregister:
			h.removeClient(client)

		case now := <-ticker.C:
			if h.idle > 0 {
				if n := h.manager.CloseIdle(now, h.idle); n > 0 {
					h.logger.Info("closed idle sessions", zap.Int("count", n))
				}
			}
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("websocket client disconnected", zap.Int("clients", count))
	}
}

// Stop disconnects every client and cancels pending hold timers and
// searches. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
		close(h.done)
		h.cancel()

		h.timersMu.Lock()
		for id, t := range h.timers {
			t.Stop()
			delete(h.timers, id)
		}
		h.timersMu.Unlock()

		h.wg.Wait()
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWs upgrades the request and starts the client pumps.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		http.Error(w, "websocket hub is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendQueue()),
	}

	select {
	case h.register <- client:
		go client.writePump()
		go client.readPump()
	case <-h.done:
		_ = conn.Close()
	}
}

func (h *Hub) sessionOf(c *Client) (*builder.Session, error) {
	h.mu.RLock()
	id := c.sessionID
	h.mu.RUnlock()
	if id == "" {
		return nil, errNoSession
	}
	return h.manager.GetSession(id)
}

func (h *Hub) attach(c *Client, sessionID string) {
	h.mu.Lock()
	c.sessionID = sessionID
	h.mu.Unlock()
}

// deliver queues data for one client. It reports false when the client is
// gone or its queue is full.
func (h *Hub) deliver(c *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) reply(c *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	if !h.deliver(c, data) {
		h.logger.Warn("dropping message for slow client", zap.String("type", event.Type))
	}
}

func (h *Hub) replyError(c *Client, request string, err error) {
	h.reply(c, Event{Type: MsgError, Data: ErrorResponse{Request: request, Error: err.Error()}})
}

// broadcast sends event to every client attached to sessionID. Clients whose
// queue is full are disconnected.
func (h *Hub) broadcast(sessionID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.clients {
		if client.sessionID != sessionID {
			continue
		}
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("disconnecting slow client", zap.String("session_id", sessionID))
		h.removeClient(client)
	}
}

func (h *Hub) broadcastState(s *builder.Session) {
	h.broadcast(s.ID, Event{Type: MsgState, SessionID: s.ID, Data: s.Snapshot()})
}

func decode[T any](msg Message) (T, error) {
	var v T
	if len(msg.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return v, fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	return v, nil
}

func (h *Hub) handleMessage(c *Client, msg Message) {
	h.logger.Debug("received message", zap.String("type", msg.Type))

	var err error
	switch msg.Type {
	case MsgCreateSession:
		err = h.handleCreate(c)
	case MsgJoinSession:
		err = h.handleJoin(c, msg.SessionID)
	case MsgInput:
		err = h.handleInput(c, msg)
	case MsgSearch:
		err = h.handleSearch(c, msg)
	case MsgLoadDeck:
		err = h.handleLoadDeck(c, msg)
	case MsgExport:
		err = h.handleExport(c, msg)
	case MsgRecordStart, MsgRecordSave:
		err = h.handleRecord(c, msg.Type)
	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}
	if err != nil {
		h.replyError(c, msg.Type, err)
	}
}

func (h *Hub) handleCreate(c *Client) error {
	s, err := h.manager.CreateSession()
	if err != nil {
		return err
	}
	h.attach(c, s.ID)
	h.reply(c, Event{Type: MsgState, SessionID: s.ID, Data: s.Snapshot()})
	return nil
}

func (h *Hub) handleJoin(c *Client, sessionID string) error {
	s, err := h.manager.GetSession(sessionID)
	if err != nil {
		return err
	}
	h.attach(c, s.ID)
	h.reply(c, Event{Type: MsgState, SessionID: s.ID, Data: s.Snapshot()})
	return nil
}

func (h *Hub) handleInput(c *Client, msg Message) error {
	s, err := h.sessionOf(c)
	if err != nil {
		return err
	}
	in, err := decode[builder.Input](msg)
	if err != nil {
		return err
	}
	// Inputs are stamped on arrival so they share a clock with hold ticks.
	in.At = h.now()

	update, err := s.Apply(in)
	if err != nil {
		return err
	}
	h.scheduleHold(s)
	h.broadcast(s.ID, Event{Type: MsgUpdate, SessionID: s.ID, Data: UpdateEvent{Update: update, State: s.Snapshot()}})
	return nil
}

// scheduleHold arms a timer that delivers the tick input once the session's
// hold deadline passes, replacing any earlier timer.
func (h *Hub) scheduleHold(s *builder.Session) {
	deadline, ok := s.HoldDeadline()

	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if t, exists := h.timers[s.ID]; exists {
		t.Stop()
		delete(h.timers, s.ID)
	}
	if !ok || h.ctx.Err() != nil {
		return
	}
	h.timers[s.ID] = time.AfterFunc(deadline.Sub(h.now()), func() {
		h.fireHold(s, deadline)
	})
}

func (h *Hub) fireHold(s *builder.Session, deadline time.Time) {
	if h.ctx.Err() != nil {
		return
	}
	update, err := s.Apply(builder.Input{Kind: builder.InputTick, At: deadline})
	if err != nil {
		h.logger.Warn("hold tick failed", zap.String("session_id", s.ID), zap.Error(err))
		return
	}
	if update.Outcome == gesture.OutcomeNone {
		return
	}
	h.broadcast(s.ID, Event{Type: MsgUpdate, SessionID: s.ID, Data: UpdateEvent{Update: update, State: s.Snapshot()}})
}

func (h *Hub) handleSearch(c *Client, msg Message) error {
	s, err := h.sessionOf(c)
	if err != nil {
		return err
	}
	q, err := decode[catalog.Query](msg)
	if err != nil {
		return err
	}

	// Add must not race the Wait in Stop.
	h.mu.RLock()
	if h.stopped {
		h.mu.RUnlock()
		return ErrHubStopped
	}
	h.wg.Add(1)
	h.mu.RUnlock()
	go func() {
		defer h.wg.Done()
		_, err := s.Search(h.ctx, q)
		switch {
		case errors.Is(err, catalog.ErrSuperseded), errors.Is(err, context.Canceled):
			return
		case err != nil:
			h.replyError(c, MsgSearch, err)
			return
		}
		h.broadcastState(s)
	}()
	return nil
}

func (h *Hub) handleLoadDeck(c *Client, msg Message) error {
	s, err := h.sessionOf(c)
	if err != nil {
		return err
	}
	req, err := decode[LoadDeckRequest](msg)
	if err != nil {
		return err
	}
	if len(req.LegacyDeck) > 0 || len(req.LegacySideboard) > 0 {
		s.LoadLegacy(req.LegacyDeck, req.LegacySideboard)
	} else {
		s.LoadDeck(req.Deck, req.Sideboard)
	}
	h.broadcastState(s)
	return nil
}

func (h *Hub) handleExport(c *Client, msg Message) error {
	s, err := h.sessionOf(c)
	if err != nil {
		return err
	}
	req, err := decode[ExportRequest](msg)
	if err != nil {
		return err
	}
	if req.Format == "" {
		req.Format = deck.FormatArena
	}
	text, err := s.Export(&deck.ExportOptions{Format: req.Format, IncludeHeaders: req.IncludeHeaders})
	if err != nil {
		return err
	}
	h.reply(c, Event{Type: MsgExported, SessionID: s.ID, Data: ExportResponse{Format: req.Format, Text: text}})
	return nil
}

func (h *Hub) handleRecord(c *Client, msgType string) error {
	if h.recorder == nil {
		return errors.New("recording is disabled")
	}
	s, err := h.sessionOf(c)
	if err != nil {
		return err
	}

	var resp RecordResponse
	if msgType == MsgRecordStart {
		h.recorder.StartRecording(s)
	} else {
		path, err := h.recorder.SaveRecording(s.ID)
		if err != nil {
			return err
		}
		resp.Path = path
	}
	h.reply(c, Event{Type: MsgRecorded, SessionID: s.ID, Data: resp})
	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	pongWait := c.hub.pongWait()
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.replyError(c, "", fmt.Errorf("malformed message: %w", err))
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

// writePump pumps queued messages to the websocket connection. Each queued
// message is written as its own frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("websocket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
