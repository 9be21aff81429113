// Package table mounts the turn-taking table on the server: JSON endpoints
// for the engine operations and a websocket feed that pushes views.
package table

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/tavern/internal/database"
	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/engine"
	"github.com/nfrund/tavern/internal/module"
	"github.com/nfrund/tavern/internal/pubsub"
	"github.com/nfrund/tavern/internal/registry"
	"github.com/nfrund/tavern/internal/websocket"
)

// SubmitsPerMinute bounds messages and rolls per participant.
const SubmitsPerMinute = 30

// Module implements module.Module for the table.
type Module struct {
	module.BaseModule

	bridge  *websocket.Bridge
	cancel  context.CancelFunc
	liveSub *database.Subscription
	live    *database.LiveQueryService
}

// New creates the table module.
func New() *Module {
	return &Module{}
}

// Name returns the route prefix of the module.
func (m *Module) Name() string {
	return "table"
}

// Register builds the engine from the shared services.
func (m *Module) Register(reg *registry.Registry) error {
	cfg := reg.Config()
	publisher, _ := registry.Get(reg, registry.PublisherKey)

	eng, err := engine.New(engine.Dependencies{
		Log:           registry.MustGet(reg, registry.MessageLogKey),
		Characters:    registry.MustGet(reg, registry.CharactersKey),
		Dice:          registry.MustGet(reg, registry.DiceKey),
		IsDM:          domain.DMSet(cfg.GetDMUIDs()...),
		Publisher:     publisher,
		Limit:         cfg.GetMessageLimit(),
		ErrorPhotoURL: cfg.GetErrorPhotoURL(),
	})
	if err != nil {
		return err
	}
	registry.Set(reg, registry.EngineKey, eng)

	slog.Info("Table engine registered", "dm_count", len(cfg.GetDMUIDs()), "message_limit", cfg.GetMessageLimit())
	return nil
}

// Boot mounts the routes and starts the view feed.
func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	eng := registry.MustGet(reg, registry.EngineKey)
	h := NewHandler(eng)

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.bridge = websocket.NewBridge(h.viewFor, h.inbound)
	go m.bridge.Run(runCtx)
	h.bridge = m.bridge

	if sub, ok := registry.Get(reg, registry.SubscriberKey); ok {
		err := pubsub.Subscribe(runCtx, sub, engine.LogChanged, func(ctx context.Context, ev engine.LogChangedEvent) error {
			slog.Debug("Refreshing table views", "source", ev.Source, "action", ev.Action)
			m.bridge.Refresh()
			return nil
		})
		if err != nil {
			cancel()
			return err
		}
	}

	if live, ok := registry.Get(reg, registry.LiveQueryKey); ok && live != nil {
		if err := m.watchDatabase(runCtx, live, reg); err != nil {
			slog.Warn("Live query unavailable, views refresh on local writes only", "error", err)
		}
	}

	h.Routes(g)

	slog.Info("Table module booted")
	return nil
}

// watchDatabase turns writes made by other server instances into refreshes.
func (m *Module) watchDatabase(ctx context.Context, live *database.LiveQueryService, reg *registry.Registry) error {
	publisher, hasPublisher := registry.Get(reg, registry.PublisherKey)
	sub, err := live.Subscribe(ctx, "message", func(ctx context.Context, table string, action database.LiveQueryAction, _ any) {
		if !hasPublisher {
			m.bridge.Refresh()
			return
		}
		ev := engine.NewLogChanged("live", string(action))
		if err := pubsub.Publish(ctx, publisher, engine.LogChanged, "", ev); err != nil {
			slog.Error("Failed to publish live change", "table", table, "error", err)
		}
	})
	if err != nil {
		return err
	}
	m.live = live
	m.liveSub = sub
	return nil
}

// Shutdown stops the view feed and the live query.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.live != nil && m.liveSub != nil {
		m.live.Unsubscribe(m.liveSub.ID)
	}
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}
