package main

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type connID string

type connection struct {
	id   connID
	send chan []byte
	w    websocketManager
	h    *hub
	log  *zap.Logger
}

func newConnection(w websocketManager, h *hub) *connection {
	id := connID(uuid.NewString())
	return &connection{
		id:   id,
		send: make(chan []byte, 256),
		w:    w,
		h:    h,
		log:  h.log.With(zap.String("conn", string(id))),
	}
}

func (c *connection) run() {
	if err := c.h.call(command{cmd: CONNECT, conn: c}).err; err != nil {
		c.log.Info("connection refused", zap.Error(err))
		c.w.wsClose()
		return
	}
	incr("websockets", 1)
	defer func() {
		decr("websockets", 1)
		c.h.call(command{cmd: DISCONNECT, id: c.id})
	}()
	go c.writer(c.h.ticker.subscribe())
	c.reader()
}

func (c *connection) reader() {
	c.w.wsSetReadLimit()
	c.w.wsSetReadDeadline()
	c.w.wsSetPongHandler()
	for {
		if err := c.readMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("read error", zap.Error(err))
			}
			break
		}
	}
	c.w.wsClose()
}

// readMessage reads one frame and hands it to the hub. Only transport
// errors are returned; a malformed frame is logged and skipped.
func (c *connection) readMessage() error {
	_, text, err := c.w.wsReadMessage()
	if err != nil {
		return err
	}
	incr("conn.recv", 1)
	f, err := decodeFrame(text)
	if err != nil {
		c.log.Warn("bad frame", zap.Error(err))
		return nil
	}
	switch f.Event {
	case registerEvent:
		c.h.call(command{cmd: REGISTER, id: c.id, code: f.registeredCode()})
	default:
		c.log.Debug("event", zap.String("event", f.Event), zap.ByteString("data", f.Data))
	}
	return nil
}

// writer sends queued frames and keepalive pings until the hub closes
// c.send.
func (c *connection) writer(sub *subscriber) {
	defer func() {
		c.h.ticker.unsubscribe(sub)
		c.w.wsClose()
		c.h.writers.Done()
	}()
	tick := sub.tick
	for {
		select {
		case text, ok := <-c.send:
			c.w.wsSetWriteDeadline()
			if !ok {
				c.w.wsWriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.w.wsWriteMessage(websocket.TextMessage, text); err != nil {
				return
			}
			incr("conn.send", 1)
		case _, ok := <-tick:
			if !ok {
				// Ticker stopped; keep draining c.send.
				tick = nil
				continue
			}
			c.w.wsSetWriteDeadline()
			if err := c.w.wsWriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
