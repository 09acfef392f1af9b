package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hnrobert/dharmagate/internal/content"
	"github.com/hnrobert/dharmagate/internal/gate"
	"github.com/hnrobert/dharmagate/internal/logger"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	ListenAddr string

	// Secret signs session tokens; see auth.DecodeSecret for the accepted forms.
	Secret       string
	CookieName   string
	CookieSecure bool
	CookieMaxAge time.Duration
}

type Server struct {
	cfg Config
	h   http.Handler
}

func New(cfg Config, g *gate.Gate, lib *content.Library) (*Server, error) {
	app, err := newApp(cfg, g, lib)
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, h: app.routes()}, nil
}

func (s *Server) Handler() http.Handler {
	return s.h
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", s.cfg.ListenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
