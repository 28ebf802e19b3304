package server

import (
	"net/http"

	"market-flipper/src/models"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// clientReply is a direct answer routed through the hub so that sends never
// race with the hub closing a client's channel.
type clientReply struct {
	client *Client
	state  *models.MLatestData
}

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				s.dropClient(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Store(int64(len(s.clients)))
			// Send initial state on connect
			s.stateMutex.RLock()
			initial := *s.latestState
			s.stateMutex.RUnlock()
			initial.Type = "INITIAL"
			client.send <- &initial

		case r := <-s.replies:
			if _, ok := s.clients[r.client]; ok {
				select {
				case r.client.send <- r.state:
				default:
				}
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.dropClient(client)
			}

		case message := <-s.broadcast:
			s.stateMutex.Lock()
			s.latestState = message
			s.stateMutex.Unlock()

			for client := range s.clients {
				select {
				case client.send <- client.filter(message):
				default:
					// Client too slow, disconnect to prevent Hub blocking
					s.dropClient(client)
				}
			}
		}
	}
}

// dropClient must only be called from the hub goroutine.
func (s *FastAPIServer) dropClient(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.connections.Store(int64(len(s.clients)))
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a new state for every connected client.
func (s *FastAPIServer) Broadcast(state *models.MLatestData) {
	if state == nil {
		return
	}
	update := *state
	update.Type = "UPDATE"

	select {
	case s.broadcast <- &update:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------

// SetLatestState - Thread-safe state update without notifying clients
func (s *FastAPIServer) SetLatestState(state *models.MLatestData) {
	s.stateMutex.Lock()
	state.Type = "UPDATE"
	s.latestState = state
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warning("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MLatestData, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command and answers with the
// filtered current state.
func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := sonic.Unmarshal(message, &cmd); err != nil {
		s.Logger.Warning("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	sub := newSubscription(cmd)
	client.subscription.Store(sub)

	s.stateMutex.RLock()
	response := sub.apply(s.latestState)
	s.stateMutex.RUnlock()
	response.Type = "INITIAL"

	select {
	case s.replies <- clientReply{client: client, state: response}:
	case <-s.done:
	}
}
