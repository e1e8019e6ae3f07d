package relay

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/studyroomhq/studyroom/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is one authenticated websocket connection. A connection is joined
// to at most one room at a time.
type Client struct {
	id       string
	conn     *websocket.Conn
	server   *RoomServer
	log      *log.Logger
	user     types.User
	send     chan *ServerMessage
	room     *Room
	roomLock sync.RWMutex
	stop     chan struct{}
}

func NewClient(user types.User, conn *websocket.Conn, rs *RoomServer, l *log.Logger) *Client {
	return &Client{
		id:     rs.nextConnId(),
		conn:   conn,
		server: rs,
		log:    l,
		user:   user,
		send:   make(chan *ServerMessage, 256),
		stop:   make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.UserId = c.user.Id
		msg.Timestamp = Now()

		switch {
		case msg.Join != nil:
			c.joinRoom(&msg)
		case msg.Leave != nil:
			c.leaveRoom(&msg)
		case msg.Timer != nil:
			c.routeToRoom(&msg, msg.Timer.RoomId)
		case msg.HostTransfer != nil:
			c.routeToRoom(&msg, msg.HostTransfer.RoomId)
		case msg.EndRoom != nil:
			c.routeToRoom(&msg, msg.EndRoom.RoomId)
		default:
			c.queueMessage(ErrInvalidMessage(msg.Id))
		}
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	close(c.stop)
}

// cleanup runs on every read-pump exit path so a dropped connection always
// releases its presence entry.
func (c *Client) cleanup() {
	c.server.deRegisterChan <- c
	c.leaveCurrentRoom()
	c.stopClient()
}

func (c *Client) leaveCurrentRoom() {
	if room := c.getRoom(); room != nil {
		room.leaveChan <- &ClientMessage{
			Leave:  &Leave{RoomId: room.id},
			UserId: c.user.Id,
			client: c,
		}
	}
}

func (c *Client) joinRoom(msg *ClientMessage) {
	// a connection is in one room at a time, so switching rooms leaves the
	// previous one first
	if cur := c.getRoom(); cur != nil && cur.id != msg.Join.RoomId {
		c.leaveCurrentRoom()
	}

	select {
	case c.server.joinChan <- msg:
	default:
		c.log.Printf("joinChan full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) leaveRoom(msg *ClientMessage) {
	room := c.getRoom()
	if room == nil || room.id != msg.Leave.RoomId {
		c.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}

	select {
	case room.leaveChan <- msg:
	default:
		c.log.Printf("leaveChan full for room %d", room.id)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) routeToRoom(msg *ClientMessage, roomId int) {
	room := c.getRoom()
	if room == nil || room.id != roomId {
		c.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}

	select {
	case room.cmdChan <- msg:
	default:
		c.log.Printf("cmdChan full for room %d", room.id)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) setRoom(r *Room) {
	c.roomLock.Lock()
	defer c.roomLock.Unlock()
	c.room = r
}

func (c *Client) delRoom(id int) {
	c.roomLock.Lock()
	defer c.roomLock.Unlock()

	if c.room != nil && c.room.id == id {
		c.room = nil
	}
}

func (c *Client) getRoom() *Room {
	c.roomLock.RLock()
	defer c.roomLock.RUnlock()
	return c.room
}
