package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"settlers-lite/apps/server/internal/auth"
	"settlers-lite/apps/server/internal/codec"
	"settlers-lite/apps/server/internal/lobby"
	"settlers-lite/apps/server/internal/table"

	"github.com/gorilla/websocket"
)

const (
	readLimit    = 65536
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
)

// Connection represents a WebSocket client connection
type Connection struct {
	ID       string
	UserID   uint64
	Nickname string
	Conn     *websocket.Conn
	Send     chan *codec.ServerEnvelope
	Gateway  *Gateway
	LastPing time.Time

	// binary is set once the client speaks protobuf frames.
	binary atomic.Bool
	closed atomic.Bool

	mu    sync.Mutex
	Table *table.Table
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	userConns   map[uint64]*Connection // userID -> connection
	userTables  map[uint64]string      // userID -> last joined table, for resume
	nextConnID  uint64
	seq         atomic.Uint64

	lobby    *lobby.Lobby
	auth     auth.Service
	upgrader websocket.Upgrader
}

// New creates a gateway. allowedOrigins restricts browser origins; empty
// accepts any origin.
func New(authSvc auth.Service, allowedOrigins []string) *Gateway {
	g := &Gateway{
		connections: make(map[string]*Connection),
		userConns:   make(map[uint64]*Connection),
		userTables:  make(map[uint64]string),
		auth:        authSvc,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return g
}

// SetLobby attaches the lobby. The lobby needs SendToUser, so it is built after the gateway.
func (g *Gateway) SetLobby(lby *lobby.Lobby) {
	g.mu.Lock()
	g.lobby = lby
	g.mu.Unlock()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			set[strings.ToLower(o)] = true
		}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		// non-browser clients send no origin
		return origin == "" || set[strings.ToLower(origin)]
	}
}

// HandleWebSocket authenticates, upgrades and serves one client.
// Clients pass ?token= for an existing session; without one a guest account is created.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	acct, token, err := g.identify(r.Context(), q.Get("token"), q.Get("nickname"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:       fmt.Sprintf("conn_%d", g.nextConnID),
		UserID:   acct.ID,
		Nickname: acct.Username,
		Conn:     conn,
		Send:     make(chan *codec.ServerEnvelope, sendBuffer),
		Gateway:  g,
		LastPing: time.Now(),
	}
	c.binary.Store(q.Get("format") == "binary")
	previous := g.userConns[acct.ID]
	g.connections[c.ID] = c
	g.userConns[acct.ID] = c
	resumeTable := g.userTables[acct.ID]
	total := len(g.connections)
	g.mu.Unlock()

	if previous != nil {
		log.Printf("[Gateway] User %d reconnected, closing %s", acct.ID, previous.ID)
		previous.close()
	}
	log.Printf("[Gateway] Client connected: %s (userID=%d), total: %d", c.ID, c.UserID, total)

	go c.writePump()
	c.sendEnvelope(codec.TypeWelcome, codec.Welcome{
		UserID:       acct.ID,
		Username:     acct.Username,
		SessionToken: token,
		Guest:        acct.Guest,
	})
	if resumeTable != "" {
		c.resume(resumeTable)
	}
	go c.readPump()
}

func (g *Gateway) identify(ctx context.Context, token, nickname string) (auth.Account, string, error) {
	if token = strings.TrimSpace(token); token != "" {
		acct, ok := g.auth.Resolve(ctx, token)
		if !ok {
			return auth.Account{}, "", errors.New("invalid or expired session")
		}
		// the client already holds its token
		return acct, "", nil
	}
	return g.auth.Guest(ctx, nickname)
}

func (c *Connection) resume(tableID string) {
	t := c.Gateway.getLobby().GetTable(tableID)
	if t == nil {
		return
	}
	err := t.SubmitEvent(table.Event{Type: table.EventConnResume, UserID: c.UserID, Nickname: c.Nickname})
	if err != nil {
		return
	}
	c.setTable(t)
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.LastPing = time.Now()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}
		binary := messageType == websocket.BinaryMessage
		c.binary.Store(binary)
		c.handleMessage(message, binary)
	}
}

func (c *Connection) handleMessage(data []byte, binary bool) {
	env, err := codec.DecodeClient(data, binary)
	if err != nil {
		log.Printf("[Gateway] Bad message from user %d: %v", c.UserID, err)
		c.sendError(codec.ErrCodeBadMessage, err.Error())
		return
	}

	switch env.Type {
	case codec.ClientJoin:
		c.handleJoinTable(env)
	case codec.ClientLeave:
		c.handleLeaveTable()
	case codec.ClientListTables:
		c.sendEnvelope(codec.TypeTables, c.Gateway.getLobby().ListTables())
	case codec.ClientSit:
		c.submit(table.Event{Type: table.EventSitDown}, codec.ErrCodeRejected)
	case codec.ClientStand:
		c.submit(table.Event{Type: table.EventStandUp}, codec.ErrCodeRejected)
	case codec.ClientAddBot:
		c.submit(table.Event{Type: table.EventAddBot, Persona: env.Persona}, codec.ErrCodeRejected)
	case codec.ClientStart:
		c.submit(table.Event{Type: table.EventStart}, codec.ErrCodeRejected)
	case codec.ClientAction:
		c.submit(table.Event{Type: table.EventAction, Action: env.Action}, codec.ErrCodeAction)
	default:
		c.sendError(codec.ErrCodeBadMessage, "unknown message type "+env.Type)
	}
}

func (c *Connection) handleJoinTable(env *codec.ClientEnvelope) {
	lby := c.Gateway.getLobby()
	var (
		t   *table.Table
		err error
	)
	if env.TableID != "" {
		if t = lby.GetTable(env.TableID); t == nil {
			c.sendError(codec.ErrCodeNoTable, "table not found: "+env.TableID)
			return
		}
	} else if t, err = lby.QuickStart(c.UserID); err != nil {
		c.sendError(codec.ErrCodeNoTable, err.Error())
		return
	}

	if current := c.currentTable(); current != nil && current != t {
		c.handleLeaveTable()
	}
	if err := t.SubmitEvent(table.Event{Type: table.EventJoinTable, UserID: c.UserID, Nickname: c.Nickname}); err != nil {
		c.sendError(codec.ErrCodeNoTable, err.Error())
		return
	}
	c.setTable(t)
	c.Gateway.mu.Lock()
	c.Gateway.userTables[c.UserID] = t.ID
	c.Gateway.mu.Unlock()
	log.Printf("[Gateway] User %d joined table %s", c.UserID, t.ID)
}

func (c *Connection) handleLeaveTable() {
	t := c.currentTable()
	if t == nil {
		return
	}
	if err := t.SubmitEvent(table.Event{Type: table.EventLeaveTable, UserID: c.UserID}); err != nil && !errors.Is(err, table.ErrTableClosed) {
		c.sendError(codec.ErrCodeRejected, err.Error())
	}
	c.setTable(nil)
	c.Gateway.mu.Lock()
	delete(c.Gateway.userTables, c.UserID)
	c.Gateway.mu.Unlock()
}

func (c *Connection) submit(e table.Event, code int32) {
	t := c.currentTable()
	if t == nil {
		c.sendError(codec.ErrCodeNotInTable, "not in a table")
		return
	}
	e.UserID = c.UserID
	e.Nickname = c.Nickname
	if err := t.SubmitEvent(e); err != nil {
		c.sendError(code, err.Error())
	}
}

func (c *Connection) currentTable() *table.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Table
}

func (c *Connection) setTable(t *table.Table) {
	c.mu.Lock()
	c.Table = t
	c.mu.Unlock()
}

func (c *Connection) tableID() string {
	if t := c.currentTable(); t != nil {
		return t.ID
	}
	return ""
}

func (c *Connection) sendEnvelope(typ string, payload any) {
	c.enqueue(codec.Wrap(c.tableID(), c.Gateway.seq.Add(1), typ, payload))
}

func (c *Connection) sendError(code int32, msg string) {
	c.sendEnvelope(codec.TypeError, codec.Error{Code: code, Message: msg})
}

func (c *Connection) enqueue(env *codec.ServerEnvelope) {
	if c.closed.Load() {
		return
	}
	select {
	case c.Send <- env:
	default:
		log.Printf("[Gateway] Send buffer full for %s, dropping %s", c.ID, env.Type)
	}
}

func (c *Connection) close() {
	if c.closed.CompareAndSwap(false, true) {
		c.Conn.Close()
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case env := <-c.Send:
			binary := c.binary.Load()
			data, err := codec.Encode(env, binary)
			if err != nil {
				log.Printf("[Gateway] Encode %s failed: %v", env.Type, err)
				continue
			}
			frame := websocket.TextMessage
			if binary {
				frame = websocket.BinaryMessage
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(frame, data); err != nil {
				return
			}

		case <-ticker.C:
			if c.closed.Load() {
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	delete(g.connections, c.ID)
	current := g.userConns[c.UserID] == c
	if current {
		delete(g.userConns, c.UserID)
	}
	total := len(g.connections)
	g.mu.Unlock()

	// a replaced connection leaves the table to its successor
	if t := c.currentTable(); t != nil && current {
		_ = t.SubmitEvent(table.Event{Type: table.EventConnLost, UserID: c.UserID})
	}
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, total)
}

func (g *Gateway) getLobby() *lobby.Lobby {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lobby
}

// SendToUser delivers a table envelope to a user's live connection, if any.
func (g *Gateway) SendToUser(userID uint64, env *codec.ServerEnvelope) {
	g.mu.RLock()
	c := g.userConns[userID]
	g.mu.RUnlock()
	if c != nil {
		c.enqueue(env)
	}
}

// Broadcast sends a message to all connections
func (g *Gateway) Broadcast(typ string, payload any) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		c.enqueue(codec.Wrap("", g.seq.Add(1), typ, payload))
	}
}

// ConnectionCount reports live connections, for health output.
func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}
