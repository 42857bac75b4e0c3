// Package tcp hosts the player-facing listener: one accept loop, one
// goroutine per connection, each running the authenticate-then-forward
// handler loop against the game engine.
package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"suquid-trivia-server/internal/game"
	"suquid-trivia-server/internal/wire"
)

const defaultWriteTimeout = 10 * time.Second

// Server accepts player connections and runs their handler loops.
type Server struct {
	log          zerolog.Logger
	engine       *game.Engine
	addr         string
	writeTimeout time.Duration

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, engine *game.Engine, writeTimeout time.Duration, log zerolog.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Server{
		log:          log.With().Str("component", "tcp").Logger(),
		engine:       engine,
		addr:         addr,
		writeTimeout: writeTimeout,
	}
}

// Listen binds the listener without accepting yet, letting callers learn the
// bound address (tests listen on port 0).
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound listen address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is canceled. Each accepted connection
// is handled on its own goroutine; a blocked read only ever stalls that
// connection's handler.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.ln
		s.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening for players")
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handle(ctx, nc)
	}
}

// handle runs one connection's lifecycle: authenticate, forward answers,
// clean up. The cleanup sequence runs exactly once no matter which exit path
// is taken.
func (s *Server) handle(ctx context.Context, nc net.Conn) {
	remote := nc.RemoteAddr().String()
	s.log.Info().Str("addr", remote).Msg("client connected")

	conn := newPlayerConn(nc, s.writeTimeout)
	scanner := bufio.NewScanner(nc)

	if !scanner.Scan() {
		s.log.Info().Str("addr", remote).Msg("client left before authenticating")
		_ = nc.Close()
		return
	}
	username := strings.TrimSpace(scanner.Text())
	if username == "" {
		_ = conn.Send(wire.AuthReject{})
		_ = nc.Close()
		return
	}
	if err := s.engine.RegisterPlayer(username, conn); err != nil {
		s.log.Info().Str("addr", remote).Str("player", username).Err(err).Msg("registration rejected")
		_ = conn.Send(wire.AuthReject{})
		_ = nc.Close()
		return
	}

	var cleanup sync.Once
	disconnect := func() {
		cleanup.Do(func() {
			s.engine.HandleDisconnect(username)
			_ = nc.Close()
		})
	}
	defer disconnect()

	if err := conn.Send(wire.AuthOK{}); err != nil {
		s.log.Warn().Err(err).Str("player", username).Msg("auth ack failed")
		return
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch msg := wire.ParseClient(line).(type) {
		case wire.Answer:
			s.engine.SubmitAnswer(username, msg.Option)
		case wire.Unknown:
			s.log.Debug().Str("player", username).Str("raw", msg.Raw).Msg("ignoring unrecognized message")
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.log.Warn().Err(err).Str("player", username).Msg("connection read error")
	}
}
