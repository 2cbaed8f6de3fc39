package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	sendBufferSize = 32
)

// Client is one connected viewer: the websocket connection, its session
// identity and the snapshot subscription of the room it sits in.
type Client struct {
	conn     *websocket.Conn
	server   *Server
	playerID string

	send chan Message
	done chan struct{}

	mu        sync.Mutex
	roomID    string
	stopWatch func()
}

func newClient(conn *websocket.Conn, server *Server, playerID string) *Client {
	return &Client{
		conn:     conn,
		server:   server,
		playerID: playerID,

		send: make(chan Message, sendBufferSize),
		done: make(chan struct{}),
	}
}

// push queues a message for delivery, dropping it when the client is gone.
func (that *Client) push(message Message) {
	select {
	case that.send <- message:
	case <-that.done:
	}
}

// watchRoom forwards every committed snapshot of the room to this client
// together with the client's role, replacing any previous watch.
func (that *Client) watchRoom(ctx context.Context, roomID string) error {
	subscription, err := that.server.coordinator.Subscribe(ctx, roomID)
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)

	that.mu.Lock()
	if that.stopWatch != nil {
		that.stopWatch()
	}
	that.roomID = roomID
	that.stopWatch = func() {
		cancel()
		_ = subscription.Close()
	}
	that.mu.Unlock()

	go func() {
		for {
			select {
			case snapshot, ok := <-subscription.C:
				if !ok {
					return
				}
				role, _ := snapshot.RoleOf(that.playerID)
				that.push(newMessage("room:update", ResponsePayload{Room: snapshot, Role: role}))
			case <-watchCtx.Done():
				return
			}
		}
	}()

	return nil
}

func (that *Client) currentRoom() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.roomID
}

func (that *Client) shutdown() {
	that.mu.Lock()
	if that.stopWatch != nil {
		that.stopWatch()
		that.stopWatch = nil
	}
	that.mu.Unlock()

	close(that.done)
}

// readLoop consumes client commands until the connection drops; it owns the
// connection teardown.
func (that *Client) readLoop(ctx context.Context) {
	log := that.server.logger.With("method", "readLoop", "player", that.playerID)

	defer func() {
		that.shutdown()
		that.conn.Close()
		that.server.disconnected(ctx, that)
	}()

	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var message Message
		if err := that.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("unexpected close", "error", err)
			}
			return
		}

		handler, ok := that.server.handlers[message.Action]
		if !ok {
			that.push(newMessage(message.Action, ResponsePayload{Error: "unknown action"}))
			continue
		}

		if err := handler(ctx, that, &message); err != nil {
			that.push(newMessage(message.Action, ResponsePayload{Error: errorCode(err)}))
		}
	}
}

// writeLoop flushes queued messages and keeps the connection alive with
// pings.
func (that *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		that.conn.Close()
	}()

	for {
		select {
		case message := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-that.done:
			return
		}
	}
}

func (that *Client) role(room *entity.Room) entity.Role {
	role, _ := room.RoleOf(that.playerID)
	return role
}
