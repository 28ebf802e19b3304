package server

import (
	"sync/atomic"
	"time"

	"market-flipper/src/models"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	hub          *FastAPIServer
	conn         *websocket.Conn
	send         chan *models.MLatestData
	subscription atomic.Pointer[subscription]
}

// filter applies the client's current subscription to a broadcast state.
func (c *Client) filter(state *models.MLatestData) *models.MLatestData {
	sub := c.subscription.Load()
	if sub == nil {
		return state
	}
	return sub.apply(state)
}

// -----------------------------------------------------------------------------
// readPump reads subscribe commands until the peer goes away. Any read error,
// including a missed pong, ends the connection.
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.Logger.Debug("Client %s disconnected", c.conn.RemoteAddr())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Warning("WebSocket error: %v", err)
			}
			return
		}
		c.hub.HandleClientMessage(c, message)
	}
}

func (c *Client) extendReadDeadline() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// -----------------------------------------------------------------------------
// writePump owns all writes on the connection: state frames and pings.
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case state, ok := <-c.send:
			if !ok {
				// hub dropped this client
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			frame, err := sonic.Marshal(state)
			if err != nil {
				c.hub.Logger.Error("Encode state: %v", err)
				continue
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.hub.Logger.Warning("Write error: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
