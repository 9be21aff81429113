package module

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/tavern/internal/registry"
)

// Module is a self-contained feature of the server.
type Module interface {
	// Name returns a unique identifier for the module.
	Name() string

	// Register publishes the module's services in the registry.
	Register(reg *registry.Registry) error

	// Boot runs after every module has registered. Routes are mounted on
	// router, which is already prefixed with the module name.
	Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) error

	// Shutdown releases background work.
	Shutdown(ctx context.Context) error
}

// BaseModule provides no-op lifecycle methods for embedding.
type BaseModule struct{}

func (m *BaseModule) Register(reg *registry.Registry) error { return nil }
func (m *BaseModule) Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) error {
	return nil
}
func (m *BaseModule) Shutdown(ctx context.Context) error { return nil }
