package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestConnReadMessage(t *testing.T) {
	h := newTestHub(t)
	go h.run()
	defer h.close(context.Background())
	c := newTestConnection(h)
	h.call(command{cmd: CONNECT, conn: c})
	h.writers.Done()

	// Assert on error, do nothing
	c.w = mockWsInteractor{err: errors.New("Message Read Error")}
	if err := c.readMessage(); err == nil {
		t.Fatal("No Error Returned")
	}

	// A malformed frame is skipped, the connection stays up
	c.w = mockWsInteractor{msg: []byte("banana")}
	if err := c.readMessage(); err != nil {
		t.Fatal("Expectation: Error should be nil, Received:", err)
	}

	// Other events are only logged
	c.w = mockWsInteractor{msg: []byte(`{"event":"HELLO","data":{"code":"monkey"}}`)}
	if err := c.readMessage(); err != nil {
		t.Fatal("Expectation: Error should be nil, Received:", err)
	}
	if n := h.count(); n != 0 {
		t.Fatal("Expectation: 0, Received:", n)
	}

	// A register frame registers the code
	c.w = mockWsInteractor{msg: []byte(`{"event":"REGISTER","data":{"code":"monkey"}}`)}
	if err := c.readMessage(); err != nil {
		t.Fatal("Expectation: Error should be nil, Received:", err)
	}
	if n := h.count(); n != 1 {
		t.Fatal("Expectation: 1, Received:", n)
	}
}

func TestConnWriter(t *testing.T) {
	h := newTestHub(t)
	c := newTestConnection(h)
	w := newRecordingWs()
	c.w = w
	sub := newSubscriber()
	h.writers.Add(1)
	go c.writer(sub)

	// On receipt of valid message, message written
	// with type websocket.TextMessage
	c.send <- []byte("bananas")
	msg := <-w.writes
	if string(msg.payload) != "bananas" || msg.messageType != websocket.TextMessage {
		t.Fatal("Expectation: bananas, Received:", string(msg.payload), msg.messageType)
	}

	// On ticks, ping with nil message
	// and type websocket.PingMessage
	sub.tick <- time.Now()
	msg = <-w.writes
	if len(msg.payload) != 0 || msg.messageType != websocket.PingMessage {
		t.Fatal("Expectation: ping, Received:", string(msg.payload), msg.messageType)
	}

	// Closing send writes a close frame and ends the writer
	close(c.send)
	msg = <-w.writes
	if msg.messageType != websocket.CloseMessage {
		t.Fatal("Expectation: close frame, Received:", msg.messageType)
	}
	h.writers.Wait()
	select {
	case <-w.closed:
	case <-time.After(time.Second):
		t.Fatal("ERR: websocket not closed")
	}
}

func TestConnWriterSurvivesStoppedTicker(t *testing.T) {
	h := newTestHub(t)
	c := newTestConnection(h)
	w := newRecordingWs()
	c.w = w
	sub := newSubscriber()
	h.writers.Add(1)
	go c.writer(sub)

	close(sub.tick)
	c.send <- []byte("bananas")
	if msg := <-w.writes; string(msg.payload) != "bananas" {
		t.Fatal("Expectation: bananas, Received:", string(msg.payload))
	}
	close(c.send)
	h.writers.Wait()
}

type mockWsInteractor struct {
	msg []byte
	err error
}

func (mq mockWsInteractor) wsSetReadLimit() {}

func (mq mockWsInteractor) wsSetReadDeadline() {}

func (mq mockWsInteractor) wsSetPongHandler() {}

func (mq mockWsInteractor) wsClose() {}

func (mq mockWsInteractor) wsSetWriteDeadline() {}

func (mq mockWsInteractor) wsReadMessage() (messageType int, p []byte, err error) {
	return websocket.TextMessage, mq.msg, mq.err
}

func (mq mockWsInteractor) wsWriteMessage(messageType int, payload []byte) (err error) {
	return mq.err
}

type written struct {
	messageType int
	payload     []byte
}

// recordingWs hands every write to the test and blocks reads until closed.
type recordingWs struct {
	mockWsInteractor
	writes chan written
	closed chan struct{}
}

func newRecordingWs() *recordingWs {
	return &recordingWs{
		writes: make(chan written, 16),
		closed: make(chan struct{}),
	}
}

func (w *recordingWs) wsWriteMessage(messageType int, payload []byte) error {
	w.writes <- written{messageType, payload}
	return nil
}

func (w *recordingWs) wsClose() {
	select {
	case <-w.closed:
	default:
		close(w.closed)
	}
}

func (w *recordingWs) wsReadMessage() (int, []byte, error) {
	<-w.closed
	return 0, nil, errors.New("closed")
}
