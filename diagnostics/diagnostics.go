// Package diagnostics exposes a small ambient HTTP surface — a health
// check and pprof — separate from any domain API, which stays out of this
// module's scope.
package diagnostics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kestrelhealth/pacsindex/logger"
)

// Server serves /healthz and /debug/pprof on its own port.
type Server struct {
	echo *echo.Echo
	addr string
	log  *logger.Logger
}

// HealthFunc reports whether the index is healthy enough to serve traffic.
type HealthFunc func() error

// New builds the diagnostics server. health is called on every /healthz
// request; a nil health always reports ok.
func New(port int, health HealthFunc, log *logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		if health != nil {
			if err := health(); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	registerPprof(e)

	return &Server{
		echo: e,
		addr: fmt.Sprintf(":%d", port),
		log:  log,
	}
}

func registerPprof(e *echo.Echo) {
	group := e.Group("/debug/pprof")
	group.GET("", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	group.GET("/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	group.GET("/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	group.GET("/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	group.GET("/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
	for _, name := range []string{"goroutine", "heap", "threadcreate", "block", "mutex", "allocs"} {
		group.GET("/"+name, echo.WrapHandler(pprof.Handler(name)))
	}
}

// Start runs the server until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("diagnostics server starting", "addr", s.addr)
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}
