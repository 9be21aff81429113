package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/nfrund/tavern/internal/config"
	"github.com/nfrund/tavern/internal/handlers"
	"github.com/nfrund/tavern/internal/middleware"
	"github.com/nfrund/tavern/internal/module"
	"github.com/nfrund/tavern/internal/registry"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E        *echo.Echo
	Cfg      config.Provider
	Registry *registry.Registry
	modules  []module.Module
	booted   []module.Module
}

// New creates the echo instance with the shared middleware stack.
func New(reg *registry.Registry, modules []module.Module) *Server {
	cfg := reg.Config()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e)

	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())

	store := sessions.NewCookieStore([]byte(cfg.GetSessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	e.Use(session.Middleware(store))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	return &Server{E: e, Cfg: cfg, Registry: reg, modules: modules}
}

// InitModules registers every module, then boots each under its own
// route group. Modules are booted in order only after all have registered.
func (s *Server) InitModules(ctx context.Context) error {
	for _, m := range s.modules {
		slog.Info("Registering module", "module", m.Name())
		if err := m.Register(s.Registry); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	for _, m := range s.modules {
		slog.Info("Booting module", "module", m.Name())
		if err := m.Boot(ctx, s.E.Group("/"+m.Name()), s.Registry); err != nil {
			return fmt.Errorf("boot module %s: %w", m.Name(), err)
		}
		s.booted = append(s.booted, m)
	}
	return nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", s.Cfg.GetServerAddr())
		if err := s.E.Start(s.Cfg.GetServerAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("shutting down the server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops the modules in reverse boot order, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(s.booted) - 1; i >= 0; i-- {
		if err := s.booted[i].Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown module %s: %w", s.booted[i].Name(), err))
		}
	}
	s.booted = nil
	if err := s.E.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	slog.Info("Server stopped")
	return errors.Join(errs...)
}
