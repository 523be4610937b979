package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	CONNECT = iota
	REGISTER
	DISCONNECT
	NOTIFY
	DRAIN
	COUNT
)

var (
	errMissingParams = errors.New("code or msg is missing")
	errCodeNotFound  = errors.New("provided code not found in list of clients")
	errHubClosed     = errors.New("hub is shutting down")
)

type command struct {
	cmd   int
	conn  *connection
	id    connID
	code  string
	text  []byte
	reply chan reply
}

type reply struct {
	n   int
	err error
}

type queue chan command

// respond never blocks: every reply channel has room for one value.
func (cmd command) respond(n int, err error) {
	if cmd.reply != nil {
		cmd.reply <- reply{n: n, err: err}
	}
}

// hub owns the connection table and the registry. Every read and write of
// either happens on the goroutine running hub.run.
type hub struct {
	queue    queue
	conns    map[connID]*connection
	registry *registry
	ticker   *mTicker
	log      *zap.Logger
	draining bool

	writers   sync.WaitGroup
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		queue:    make(queue, 16),
		conns:    make(map[connID]*connection),
		registry: newRegistry(),
		ticker:   newMTicker(pingPeriod),
		log:      log.Named("hub"),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (h *hub) run() {
	defer close(h.done)
	for {
		select {
		case cmd := <-h.queue:
			h.handle(cmd)
		case <-h.quit:
			h.closeAll()
			return
		}
	}
}

func (h *hub) handle(cmd command) {
	switch cmd.cmd {
	case CONNECT:
		h.connect(cmd)
	case REGISTER:
		h.register(cmd)
	case DISCONNECT:
		h.disconnect(cmd)
	case NOTIFY:
		h.notify(cmd)
	case DRAIN:
		h.draining = true
		h.log.Info("draining: new connections and registrations refused")
		cmd.respond(0, nil)
	case COUNT:
		cmd.respond(h.registry.len(), nil)
	default:
		panic(fmt.Sprintf("unexpected hub cmd: %v\n", cmd))
	}
}

// call queues cmd and waits for the hub to answer it.
func (h *hub) call(cmd command) reply {
	cmd.reply = make(chan reply, 1)
	select {
	case h.queue <- cmd:
	case <-h.done:
		return reply{err: errHubClosed}
	}
	select {
	case r := <-cmd.reply:
		return r
	case <-h.done:
		return reply{err: errHubClosed}
	}
}

func (h *hub) connect(cmd command) {
	if h.draining {
		cmd.respond(0, errHubClosed)
		return
	}
	c := cmd.conn
	h.conns[c.id] = c
	h.writers.Add(1)
	h.log.Info("connect", zap.String("conn", string(c.id)))
	h.emit(c, welcomeFrame)
	cmd.respond(0, nil)
}

func (h *hub) register(cmd command) {
	log := h.log.With(zap.String("conn", string(cmd.id)))
	switch {
	case cmd.code == "":
		log.Info("code not provided")
	case h.draining:
		log.Info("registration refused while draining", zap.String("code", cmd.code))
	case h.conns[cmd.id] == nil:
		log.Info("registration from closed connection ignored", zap.String("code", cmd.code))
	default:
		if prev, ok := h.registry.register(cmd.id, cmd.code); ok && prev != cmd.code {
			log.Info("client replaced code", zap.String("previous", prev))
		}
		log.Info("client registered code",
			zap.String("code", cmd.code),
			zap.Int("registered", h.registry.len()))
		gauge("registry.codes", int64(h.registry.len()))
	}
	cmd.respond(h.registry.len(), nil)
}

func (h *hub) disconnect(cmd command) {
	log := h.log.With(zap.String("conn", string(cmd.id)))
	if c, ok := h.conns[cmd.id]; ok {
		h.removeConn(c)
	}
	if code, ok := h.registry.unregister(cmd.id); ok {
		log.Info("unregistering connection: success", zap.String("code", code))
		gauge("registry.codes", int64(h.registry.len()))
	} else {
		log.Info("unregistering connection: failed, could not find code")
	}
	cmd.respond(h.registry.len(), nil)
}

// notify resolves cmd.code and emits cmd.text to it within a single hub
// step, so the connection cannot go away between lookup and emit.
func (h *hub) notify(cmd command) {
	id, ok := h.registry.lookup(cmd.code)
	if !ok {
		mark("notify.notfound", 1)
		cmd.respond(0, errCodeNotFound)
		return
	}
	c, ok := h.conns[id]
	if !ok || !h.emit(c, cmd.text) {
		mark("notify.notfound", 1)
		cmd.respond(0, errCodeNotFound)
		return
	}
	mark("notify.delivered", 1)
	cmd.respond(1, nil)
}

// emit queues text on c without blocking. A connection that cannot keep up
// is dropped.
func (h *hub) emit(c *connection, text []byte) bool {
	select {
	case c.send <- text:
		return true
	default:
		h.log.Warn("send buffer full, dropping connection", zap.String("conn", string(c.id)))
		mark("drops", 1)
		h.removeConn(c)
		if _, ok := h.registry.unregister(c.id); ok {
			gauge("registry.codes", int64(h.registry.len()))
		}
		return false
	}
}

func (h *hub) removeConn(c *connection) {
	if _, ok := h.conns[c.id]; !ok {
		return
	}
	delete(h.conns, c.id)
	close(c.send)
}

func (h *hub) closeAll() {
	for _, c := range h.conns {
		h.removeConn(c)
	}
	h.registry = newRegistry()
	gauge("registry.codes", 0)
	h.ticker.stop()
	h.log.Info("hub closed")
}

func (h *hub) drain() {
	h.call(command{cmd: DRAIN})
}

func (h *hub) count() int {
	return h.call(command{cmd: COUNT}).n
}

// close stops the hub, closes every connection and waits for their writers
// to flush, or for ctx to expire.
func (h *hub) close(ctx context.Context) error {
	h.closeOnce.Do(func() { close(h.quit) })
	flushed := make(chan struct{})
	go func() {
		<-h.done
		h.writers.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "close hub")
	}
}
