// Package http runs HTTP servers as interruptible actors.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/oklog/run"
)

// ShutdownTimeout bounds graceful shutdown before connections are forcibly closed.
const ShutdownTimeout = 5 * time.Second

// Server wraps an http.Server so it can participate in a run.Group.
type Server struct {
	log      logr.Logger
	listener net.Listener
	server   *http.Server
}

// NewServer creates a Server that serves handler on listener.
func NewServer(logger logr.Logger, listener net.Listener, handler http.Handler) *Server {
	return &Server{
		log:      logger,
		listener: listener,
		server: &http.Server{
			Handler: handler,

			// Mitigate Slowloris attacks. 20 seconds is based on Apache's recommended 20-40
			// recommendation. The metadata API has few headers so 20s is plenty of time.
			// https://en.wikipedia.org/wiki/Slowloris_(computer_security)
			ReadHeaderTimeout: 20 * time.Second,
		},
	}
}

// Addr returns the address the Server listens on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run serves until Interrupt is called. It satisfies the execute half of a run.Group actor.
func (s *Server) Run() error {
	s.log.Info(fmt.Sprintf("Listening on %s", s.listener.Addr()))
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Interrupt attempts a graceful shutdown, forcing the server closed if it takes longer than
// ShutdownTimeout. It satisfies the interrupt half of a run.Group actor.
func (s *Server) Interrupt(error) {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Error(err, "Graceful shutdown failed")
		s.server.Close()
	}
}

// Serve is a blocking call that begins serving the provided handler on address. When ctx is
// done it will attempt to gracefully shutdown.
func Serve(ctx context.Context, logger logr.Logger, address string, handler http.Handler) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)

	var g run.Group
	AddServer(&g, NewServer(logger, listener, handler))
	g.Add(
		func() error {
			<-ctx.Done()
			return nil
		},
		func(error) { cancel() },
	)

	return g.Run()
}

// AddServer registers s as an actor of g.
func AddServer(g *run.Group, s *Server) {
	g.Add(s.Run, s.Interrupt)
}
