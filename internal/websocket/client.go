package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one member's subscription to their community's live updates.
type Client struct {
	hub         *Hub
	conn        *ws.Conn
	send        chan []byte
	communityID string
	userID      string
}

func NewClient(hub *Hub, conn *ws.Conn, communityID, userID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		communityID: communityID,
		userID:      userID,
	}
}

// Run subscribes the client and forwards hub messages until the peer goes
// away or the hub drops it.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	// Updates only flow outward. CloseRead discards inbound frames and
	// cancels ctx once the peer closes.
	ctx = c.conn.CloseRead(ctx)

	if err := c.forward(ctx); err != nil {
		c.conn.Close(ws.StatusGoingAway, "")
		return
	}
	c.conn.Close(ws.StatusNormalClosure, "")
}

// forward writes queued messages and keeps the connection alive with pings.
// It returns nil when the hub closes the send channel.
func (c *Client) forward(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return nil
			}
			if err := c.write(ctx, msg); err != nil {
				return err
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
