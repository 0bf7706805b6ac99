package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// WebSocketConfig holds the limits applied to popup connections.
type WebSocketConfig struct {
	// AllowedOrigins lists accepted Origin values. "*" allows any origin,
	// "*.example.com" any subdomain. An empty list allows requests without
	// an Origin header only (non-browser clients).
	AllowedOrigins []string
	// MaxMessageRate is the sustained number of requests per second.
	MaxMessageRate int
	// MaxMessageSize caps a single request in bytes.
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns conservative limits.
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		MaxMessageRate: 10,
		MaxMessageSize: 64 << 10,
	}
}

// isOriginAllowed checks origin against the allow list.
func isOriginAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, a := range allowed {
		switch {
		case a == "*":
			return true
		case a == origin:
			return true
		case strings.HasPrefix(a, "*."):
			if strings.HasSuffix(u.Hostname(), a[1:]) {
				return true
			}
		}
	}
	return false
}

// rateBucket is a token bucket allowing bursts of twice the rate.
type rateBucket struct {
	tokens   float64
	capacity float64
	rate     float64
	last     time.Time
}

func newRateBucket(perSecond int) *rateBucket {
	return &rateBucket{
		tokens:   float64(perSecond) * 2,
		capacity: float64(perSecond) * 2,
		rate:     float64(perSecond),
		last:     time.Now(),
	}
}

func (b *rateBucket) allow() bool {
	now := time.Now()
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.last).Seconds()*b.rate)
	b.last = now
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// WebSocketHandler serves the request/response exchange over a websocket.
// Each text frame carries one Request; the answer is written back as one
// Response frame with the same ID. resolve finds the page's responder; it
// returns nil when the page does not exist.
func WebSocketHandler(cfg WebSocketConfig, resolve func(r *http.Request) Responder) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			ok := isOriginAllowed(origin, cfg.AllowedOrigins)
			if !ok {
				logging.SecurityEvent("websocket_origin_rejected", "messaging", "origin", origin)
			}
			return ok
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		responder := resolve(r)
		if responder == nil {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
			return
		}
		if cfg.MaxMessageSize > 0 {
			conn.SetReadLimit(cfg.MaxMessageSize)
		}
		c := &wsConn{
			conn:      conn,
			responder: responder,
			send:      make(chan []byte, 16),
			bucket:    newRateBucket(max(cfg.MaxMessageRate, 1)),
		}
		logging.WebSocketEvent("connect", 1, "remote_addr", r.RemoteAddr)
		ctx := context.WithoutCancel(r.Context())
		go c.writePump()
		c.readPump(ctx)
	}
}

type wsConn struct {
	conn      *websocket.Conn
	responder Responder
	send      chan []byte
	bucket    *rateBucket
}

func (c *wsConn) readPump(ctx context.Context) {
	defer func() {
		close(c.send)
		logging.WebSocketEvent("disconnect", 0)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("websocket unexpected close", "error", err)
			}
			return
		}
		if !c.bucket.allow() {
			logging.SecurityEvent("websocket_rate_limited", "messaging")
			if out, err := json.Marshal(Response{Error: "rate limit exceeded"}); err == nil {
				c.send <- out
			}
			return
		}

		var req Request
		var resp Response
		if err := json.Unmarshal(data, &req); err != nil {
			resp.Error = "malformed request: " + err.Error()
		} else {
			resp, err = c.responder.Handle(ctx, req)
			resp.ID = req.ID
			if err != nil {
				resp.Error = err.Error()
			}
		}
		out, err := json.Marshal(resp)
		if err != nil {
			logging.Error("failed to marshal response", "error", err)
			continue
		}
		c.send <- out
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketClient sends requests over one websocket connection. Requests
// are serialised; it is safe for concurrent use.
type WebSocketClient struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64
}

// DialWebSocket connects to a page's websocket endpoint. A page that does
// not exist, or a host that is not listening, yields ErrNoResponder.
func DialWebSocket(ctx context.Context, rawURL string, header http.Header) (*WebSocketClient, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp == nil || resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("dial %s: %w (%v)", rawURL, errors.ErrNoResponder, err)
		}
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	return &WebSocketClient{conn: conn}, nil
}

// Send implements Sender.
func (c *WebSocketClient) Send(ctx context.Context, req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	req.ID = c.nextID
	if dl, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(dl)
		c.conn.SetReadDeadline(dl)
	} else {
		c.conn.SetWriteDeadline(time.Time{})
		c.conn.SetReadDeadline(time.Time{})
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", req.Action, err)
	}
	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Response{}, fmt.Errorf("page closed: %w", errors.ErrNoResponder)
			}
			return Response{}, fmt.Errorf("receive %s: %w", req.Action, err)
		}
		if resp.ID != req.ID {
			continue
		}
		if resp.Error != "" {
			return resp, fmt.Errorf("%s: %s", req.Action, resp.Error)
		}
		return resp, nil
	}
}

// Close closes the connection.
func (c *WebSocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.conn.Close()
}
