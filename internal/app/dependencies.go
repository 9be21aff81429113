package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/nfrund/tavern/internal/config"
	"github.com/nfrund/tavern/internal/database"
	"github.com/nfrund/tavern/internal/database/memstore"
	"github.com/nfrund/tavern/internal/dice"
	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/pubsub"
	"github.com/nfrund/tavern/internal/registry"
	"github.com/nfrund/tavern/internal/storage"
)

// Dependencies holds the core services that are required by the application's modules.
type Dependencies struct {
	Publisher  pubsub.Publisher
	Subscriber pubsub.Subscriber
	MessageLog domain.MessageLog
	Characters domain.CharacterRepository
	Roster     storage.RosterWriter
	Dice       *dice.Resolver
	// LiveQuery is nil when running on the in-memory store.
	LiveQuery *database.LiveQueryService

	closers []func(context.Context) error
}

// NewDependencies builds the shared services. SurrealDB is used when it is
// configured; otherwise the table lives in memory for the life of the process.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	d := &Dependencies{}

	tracer, shutdownTracing, err := pubsub.SetupOTel(ctx, pubsub.LoadTracingConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	d.closers = append(d.closers, func(context.Context) error { shutdownTracing(); return nil })

	bridge := pubsub.NewWatermillBridgeWithTracer(tracer)
	d.Publisher, d.Subscriber = bridge, bridge
	d.closers = append(d.closers, func(context.Context) error { return bridge.Close() })

	if d.Dice, err = dice.NewRandomResolver(); err != nil {
		return nil, fmt.Errorf("seed dice: %w", err)
	}

	if err := cfg.RequireDB(); err == nil {
		if err := d.useSurreal(ctx, cfg); err != nil {
			_ = d.Close(ctx)
			return nil, err
		}
	} else {
		slog.Warn("SurrealDB not configured, using the in-memory table store", "reason", err)
		store := memstore.New()
		d.MessageLog, d.Characters, d.Roster = store, store, store
	}

	if path := cfg.GetRosterFile(); path != "" {
		loader := storage.NewRosterLoader(afero.NewOsFs())
		chars, err := loader.Import(ctx, d.Roster, path)
		if err != nil {
			_ = d.Close(ctx)
			return nil, fmt.Errorf("import roster: %w", err)
		}
		slog.Info("Roster imported", "path", path, "characters", len(chars))
	}
	return d, nil
}

func (d *Dependencies) useSurreal(ctx context.Context, cfg *config.Config) error {
	conn := database.NewConnection(cfg)
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	d.closers = append(d.closers, conn.Close)
	conn.StartMonitoring(30 * time.Second)

	if err := database.EnsureSchema(ctx, conn); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	chars := database.NewCharacterStore(conn, cfg)
	d.MessageLog = database.NewMessageStore(conn, cfg)
	d.Characters, d.Roster = chars, chars

	d.LiveQuery = database.NewLiveQueryService(conn)
	live := d.LiveQuery
	d.closers = append(d.closers, func(context.Context) error { live.Close(); return nil })
	return nil
}

// Registry publishes the services for the modules.
func (d *Dependencies) Registry(cfg config.Provider) *registry.Registry {
	reg := registry.New(cfg)
	registry.Set(reg, registry.PublisherKey, d.Publisher)
	registry.Set(reg, registry.SubscriberKey, d.Subscriber)
	registry.Set(reg, registry.MessageLogKey, d.MessageLog)
	registry.Set(reg, registry.CharactersKey, d.Characters)
	registry.Set(reg, registry.DiceKey, d.Dice)
	if d.LiveQuery != nil {
		registry.Set(reg, registry.LiveQueryKey, d.LiveQuery)
	}
	return reg
}

// Close releases the services in reverse order of creation.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
