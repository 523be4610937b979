package main

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func newHandler(h *hub, origin string) http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(h.log.Named("http")))

	// Route websocket requests on any path
	r.NewRoute().HeadersRegexp(
		"Connection", "(?i)upgrade",
		"Upgrade", "(?i)websocket",
	).Handler(wsHandler{h: h, upgrader: newUpgrader(origin)})

	r.Path("/notify").Methods("GET").Handler(notifyHandler{h: h})
	r.Path("/heartbeat").Methods("GET").HandlerFunc(heartbeat)
	r.Path("/metrics").Methods("GET").HandlerFunc(metricsSnapshot)
	r.Path("/").Methods("GET").Handler(clientHandler{})

	c := cors.Options{AllowedMethods: []string{http.MethodGet}}
	if origin != "" {
		c.AllowedOrigins = []string{origin}
	}
	return cors.New(c).Handler(r)
}

type wsHandler struct {
	h        *hub
	upgrader *websocket.Upgrader
}

func (wsh wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := wsh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		wsh.h.log.Info("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newConnection(websocketInteractor{ws}, wsh.h)
	c.run()
}

type notifyHandler struct {
	h *hub
}

func (nh notifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, err := parsePayload(r.URL.RawQuery)
	if err == nil {
		err = nh.h.dispatch(data.get("code"), data.get("event"), data)
	}
	switch status := dispatchStatus(err); status {
	case http.StatusOK:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("OK"))
	case http.StatusBadRequest:
		sendError(w, status, "400 Bad Request: code or msg is missing")
	case http.StatusNotFound:
		sendError(w, status, "404: Provided code not found in list of clients")
	default:
		nh.h.log.Error("notify failed", zap.Error(err))
		sendError(w, status, fmt.Sprintf("%d: %s", status, http.StatusText(status)))
	}
}

func heartbeat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"heartbeat": "OK"})
}

func metricsSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	m.writeOnce(w)
}

func sendError(w http.ResponseWriter, status int, str string) {
	http.Error(w, str, status)
}
