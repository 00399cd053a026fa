package server

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/openmonopoly/monopoly-server-go/internal/game"
	"github.com/openmonopoly/monopoly-server-go/internal/game/rules"
)

const sendBuffer = 256

// client is one websocket connection bound to one seat. The session id is
// minted here and stamped onto every command, so a client can never act as
// another player no matter what its payloads claim.
type client struct {
	srv       *Server
	table     *game.Table
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	busHandle int
	log       *zap.Logger
}

// newClient binds a connection to a session. A non-empty sessionID resumes
// an existing seat; the id acts as a bearer token only its owner knows.
func newClient(s *Server, table *game.Table, conn *websocket.Conn, sessionID string) *client {
	id := sessionID
	if id == "" {
		id = uuid.NewString()
	}
	return &client{
		srv:       s,
		table:     table,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: id,
		log: s.log.With(
			zap.String("session_id", id),
			zap.String("game_id", table.ID()),
		),
	}
}

func (c *client) start() {
	c.busHandle = c.table.Bus().Subscribe(c.onEvent)
	go c.writePump()
	go c.readPump()
}

// onEvent runs on the table goroutine; it must not block. Error events are
// private to the player who caused them, everything else is broadcast.
func (c *client) onEvent(ev rules.Event) {
	if ev.Type == rules.EventError && ev.PlayerID != c.sessionID {
		return
	}
	data, err := marshalEvent(ev)
	if err != nil {
		c.log.Error("event marshal failed", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		// Slow consumer: drop the event. The next STATE_UPDATE
		// resynchronizes the client.
		c.log.Warn("send buffer full, dropping event",
			zap.String("event_type", string(ev.Type)))
	}
}

func (c *client) readPump() {
	defer c.close()

	pong := c.srv.cfg.Server.PongTimeout
	c.conn.SetReadDeadline(time.Now().Add(pong))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pong))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", zap.Error(err))
			}
			return
		}

		var cmd game.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.log.Debug("bad command payload", zap.Error(err))
			continue
		}
		cmd.PlayerID = c.sessionID

		if cmd.Type == game.CmdHello {
			if err := c.srv.checkPassword(cmd.Password); err != nil {
				ev := rules.NewEvent(rules.EventError, c.table.ID(), c.sessionID)
				ev.Message = err.Error()
				if data, merr := marshalEvent(ev); merr == nil {
					select {
					case c.send <- data:
					default:
					}
				}
				continue
			}
			cmd.Password = ""
		}

		if !c.table.Submit(cmd) {
			c.log.Warn("command dropped, table not accepting",
				zap.String("command", string(cmd.Type)))
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.srv.cfg.Server.PongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeTimeout := c.srv.cfg.Server.WriteTimeout
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close tears the connection down once, marks the seat disconnected, and
// detaches from the event bus.
func (c *client) close() {
	c.table.Bus().Unsubscribe(c.busHandle)
	c.table.Submit(game.Command{Type: game.CmdDisconnect, PlayerID: c.sessionID})
	c.conn.Close()
	c.log.Info("client disconnected")
}
