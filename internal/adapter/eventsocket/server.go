package eventsocket

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/ports"
)

// CallHandler runs a whole call over its transport
type CallHandler interface {
	Handle(ctx context.Context, transport ports.CallTransport) error
}

// Server accepts the outbound sockets opened by the switch, one per call
type Server struct {
	addr    string
	handler CallHandler
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewServer(addr string, handler CallHandler, log *zap.Logger) *Server {
	return &Server{addr: addr, handler: handler, log: log}
}

// ListenAndServe blocks until ctx is done, then waits for running calls
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.log.Info("Event socket server listening", zap.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.log.Error("Accept failed", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	transport := NewConn(conn, s.log)
	defer transport.Close()

	if err := s.handler.Handle(ctx, transport); err != nil {
		s.log.Warn("Call ended with error",
			zap.String("remote", conn.RemoteAddr().String()),
			zap.Error(err),
		)
	}
}
