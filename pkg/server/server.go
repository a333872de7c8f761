// Package server exposes the latest world snapshot over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/ovalrace/log"
	"github.com/mpapenbr/ovalrace/pkg/publish/codec"
	"github.com/mpapenbr/ovalrace/pkg/sim"
)

type (
	StateServer struct {
		addr    string
		session string
		codec   codec.Codec
		latest  atomic.Pointer[sim.Snapshot]
		srv     *http.Server
		l       *log.Logger
	}
	Option func(*StateServer)
)

func WithAddr(addr string) Option {
	return func(s *StateServer) {
		s.addr = addr
	}
}

func WithSession(session string) Option {
	return func(s *StateServer) {
		s.session = session
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *StateServer) {
		s.l = l
	}
}

func NewStateServer(opts ...Option) *StateServer {
	c, _ := codec.New(string(codec.FormatJSON))
	ret := &StateServer{
		addr:  "localhost:8080",
		codec: c,
		l:     log.Default().Named("server"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Update replaces the snapshot served by /state
func (s *StateServer) Update(snap *sim.Snapshot) {
	s.latest.Store(snap)
}

func (s *StateServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return newCORS().Handler(mux)
}

func (s *StateServer) handleState(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest.Load()
	if snap == nil {
		http.Error(w, "no state yet", http.StatusServiceUnavailable)
		return
	}
	data, err := s.codec.Encode(codec.StatePayload(s.session, snap))
	if err != nil {
		s.l.Error("could not encode state", log.ErrorField(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", s.codec.ContentType())
	_, _ = w.Write(data)
}

// Start serves until ctx is done. Cleartext HTTP/2 is accepted.
func (s *StateServer) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.l.Warn("shutdown failed", log.ErrorField(err))
		}
	}()
	s.l.Info("Starting state server", log.String("addr", s.addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         int(2 * time.Hour / time.Second),
	})
}
