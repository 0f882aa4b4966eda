package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ecorder/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	e    *echo.Echo
	opts Options
	log  *zap.Logger
}

func New(opts Options, h Handlers, jwtSecret string, limiter middleware.Limiter, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(log))

	RegisterRoutes(e, h, jwtSecret, limiter, log)
	return &Server{e: e, opts: opts, log: log}
}

// Handler はテスト用に echo をそのまま返す
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start は ctx が終わるまで待ち受け、終わったら graceful に止める
func (s *Server) Start(ctx context.Context) error {
	s.e.Server.ReadTimeout = s.opts.ReadTimeout
	s.e.Server.WriteTimeout = s.opts.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.opts.Addr))
		if err := s.e.Start(s.opts.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	return s.e.Shutdown(shutdownCtx)
}
