package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/partycoord/internal/model"
)

// ConnConfig holds per-connection WebSocket settings
type ConnConfig struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendQueueSize  int
	DisconnectWait time.Duration
}

// DefaultConnConfig returns the default WebSocket settings
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
		SendQueueSize:  256,
		DisconnectWait: 5 * time.Second,
	}
}

// Connection is one WebSocket client. It implements Peer.
type Connection struct {
	id     string
	ws     *websocket.Conn
	cfg    ConnConfig
	logger *slog.Logger

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

var _ Peer = (*Connection)(nil)

// NewConnection wraps an upgraded WebSocket
func NewConnection(ws *websocket.Conn, cfg ConnConfig, logger *slog.Logger) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:     id,
		ws:     ws,
		cfg:    cfg,
		logger: logger.With(slog.String("connection_id", id)),
		send:   make(chan []byte, cfg.SendQueueSize),
		closed: make(chan struct{}),
	}
}

// ID returns the connection identifier
func (c *Connection) ID() string {
	return c.id
}

// Deliver queues event for writing. It never blocks; a full queue closes the connection.
func (c *Connection) Deliver(event model.Event) bool {
	data, err := EncodeEvent(event)
	if err != nil {
		c.logger.Error("failed to encode event",
			slog.String("event", string(event.Type)),
			slog.String("error", err.Error()))
		return true
	}

	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn("send queue full, closing connection",
			slog.Int("queue_size", c.cfg.SendQueueSize))
		c.Close()
		return false
	}
}

// Close stops the connection. It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// Serve runs the connection until the client goes away or ctx is cancelled,
// then leaves the bound party through gw.
func (c *Connection) Serve(ctx context.Context, gw *Gateway) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(ctx)
	}()

	c.readPump(ctx, gw)
	c.Close()

	leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.DisconnectWait)
	defer cancel()
	gw.Disconnect(leaveCtx, c)

	<-writerDone
	c.logger.Debug("connection closed")
}

func (c *Connection) readPump(ctx context.Context, gw *Gateway) {
	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("connection read failed", slog.String("error", err.Error()))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))

		if messageType != websocket.TextMessage {
			gw.reply(c, "", model.ErrMalformedFrame)
			continue
		}
		gw.HandleFrame(ctx, c, data)
	}
}

// writePump owns every write to the socket and closes it on exit
func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Info("connection write failed", slog.String("error", err.Error()))
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-ctx.Done():
			c.Close()
			c.writeClose(websocket.CloseGoingAway, "server shutting down")
			return

		case <-c.closed:
			c.flush()
			c.writeClose(websocket.CloseNormalClosure, "")
			return
		}
	}
}

// flush writes whatever is already queued before the close frame
func (c *Connection) flush() {
	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Connection) writeClose(code int, text string) {
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(c.cfg.WriteTimeout),
	)
}
