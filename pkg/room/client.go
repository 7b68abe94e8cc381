package room

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"pokertable-server/pkg/apperror"
)

// sendBuffer is how many messages can queue for a client before it is dropped
const sendBuffer = 256

// Client is a client connected to the server via websockets
type Client struct {
	// Conn is the underlying websocket connection
	Conn *websocket.Conn

	// send is a channel for sending messages to the client
	send chan interface{}

	// Close is a channel for closing the client
	Close chan string

	// CloseError contains the reason why the connection was closed
	CloseError error

	id          string
	playerID    string
	displayName string
	pitBoss     *PitBoss

	lock    sync.Mutex
	dealers map[string]*Dealer
}

// NewClient returns a new client object
func NewClient(conn *websocket.Conn, id, playerID, displayName string, pitBoss *PitBoss) *Client {
	return &Client{
		Conn:        conn,
		send:        make(chan interface{}, sendBuffer),
		Close:       make(chan string, 1),
		id:          id,
		playerID:    playerID,
		displayName: displayName,
		pitBoss:     pitBoss,
		dealers:     make(map[string]*Dealer),
	}
}

// PlayerID returns the authenticated player
func (c *Client) PlayerID() string {
	return c.playerID
}

// DisplayName returns the name shown to other players
func (c *Client) DisplayName() string {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.displayName
}

// Send sends a message to the web client without blocking.
// If the client can't keep up, it is disconnected.
func (c *Client) Send(msg interface{}) bool {
	select {
	case c.send <- msg:
		return true
	default:
		logrus.WithField("client", c.String()).Warn("send buffer is full, dropping client")
		c.Disconnect("too slow")
		return false
	}
}

// SendChan returns a read-only channel
func (c *Client) SendChan() <-chan interface{} {
	return c.send
}

// Disconnect asks the write loop to close the connection
func (c *Client) Disconnect(reason string) {
	select {
	case c.Close <- reason:
	default:
	}
}

// String returns a traceable identifier for the connection
func (c *Client) String() string {
	return fmt.Sprintf("%s:%s", c.playerID, c.id)
}

func (c *Client) dealer(roomID string) *Dealer {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.dealers[roomID]
}

func (c *Client) setDealer(roomID string, d *Dealer) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if d == nil {
		delete(c.dealers, roomID)
		return
	}

	c.dealers[roomID] = d
}

// rooms returns the rooms the client has joined
func (c *Client) rooms() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	rooms := make([]string, 0, len(c.dealers))
	for roomID := range c.dealers {
		rooms = append(rooms, roomID)
	}

	return rooms
}

// ReceivedMessage is called when the server receives a message from a connected client
func (c *Client) ReceivedMessage(msg *PayloadIn) {
	if msg.RoomID == "" {
		c.Send(NewErrorResponse("", msg.Context, apperror.New(apperror.BadRequest, "roomId is required")))
		return
	}

	if msg.PlayerID != "" && msg.PlayerID != c.playerID {
		c.Send(NewErrorResponse(msg.RoomID, msg.Context, apperror.New(apperror.Unauthorized, "you cannot act for another player")))
		return
	}

	switch msg.Type {
	case JoinRoom:
		if msg.DisplayName != "" {
			c.lock.Lock()
			c.displayName = msg.DisplayName
			c.lock.Unlock()
		}

		if err := c.pitBoss.Join(c, msg.RoomID); err != nil {
			c.Send(NewErrorResponse(msg.RoomID, msg.Context, err))
		}
	case LeaveRoom:
		if err := c.pitBoss.Leave(c, msg.RoomID); err != nil {
			c.Send(NewErrorResponse(msg.RoomID, msg.Context, err))
		}
	default:
		d := c.dealer(msg.RoomID)
		if d == nil {
			c.Send(NewErrorResponse(msg.RoomID, msg.Context, apperror.New(apperror.RoomNotFound, "you have not joined room %s", msg.RoomID)))
			return
		}

		d.ReceivedMessage(c, msg)
	}
}
