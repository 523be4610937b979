package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookgo/httpdown"
	"go.uber.org/zap"
)

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := newLogger(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := serve(opts, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

// serve runs until SIGINT or SIGTERM, then shuts down in order: refuse new
// registrations, stop the HTTP server, close the websockets.
func serve(opts options, log *zap.Logger) error {
	startMetrics(log, opts.MetricsTick)
	defer finalMetrics()

	h := newHub(log)
	go h.run()

	// Prepare the stoppable HTTP server
	server := &http.Server{
		Addr:    opts.Addr,
		Handler: newHandler(h, opts.Origin),
	}
	hd := &httpdown.HTTP{
		StopTimeout: opts.StopTimeout,
		KillTimeout: opts.KillTimeout,
	}
	s, err := hd.ListenAndServe(server)
	if err != nil {
		return err
	}
	log.Info("listening", zap.String("addr", opts.Addr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	served := make(chan error, 1)
	go func() { served <- s.Wait() }()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}
	stop()
	log.Info("caught signal, stopping server")

	h.drain()
	if err := s.Stop(); err != nil {
		log.Warn("http server stop", zap.Error(err))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), opts.CloseTimeout)
	defer cancel()
	if err := h.close(closeCtx); err != nil {
		log.Error("websockets did not close in time", zap.Error(err))
		finalMetrics()
		log.Sync()
		os.Exit(1)
	}
	log.Info("shutdown complete")
	return nil
}
