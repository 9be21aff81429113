package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nfrund/tavern/cmd/tavern-cli/internal/output"
	"github.com/nfrund/tavern/internal/config"
	"github.com/nfrund/tavern/internal/database"
)

// version is set at build time using -ldflags.
var version = "0.1.0"

type rootOptions struct {
	format  string
	verbose bool
}

// NewRootCmd builds the tavern-cli command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "tavern-cli",
		Short: "Tavern table administration tool",
		Long: `tavern-cli manages a Tavern table from the command line.

Available commands:
  roll         Roll a dice expression such as 3d6
  characters   Import, export and list the roster
  log          Show or clear the table log
  topics       List the events the table publishes
  version      Print the version

Commands that touch the table read SURREAL_* settings from the environment or a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			_, err := output.ParseFormat(opts.format)
			return err
		},
	}
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "table", "Output format (table, json)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newVersionCmd(),
		newRollCmd(opts),
		newCharactersCmd(opts),
		newLogCmd(opts),
		newTopicsCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *rootOptions) printer(cmd *cobra.Command) *output.Printer {
	format, _ := output.ParseFormat(o.format)
	return output.NewPrinter(cmd.OutOrStdout(), format)
}

// backend is an open SurrealDB connection with the table stores.
type backend struct {
	cfg        *config.Config
	conn       *database.Connection
	messages   *database.MessageStore
	characters *database.CharacterStore
}

func openBackend(ctx context.Context) (*backend, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDB(); err != nil {
		return nil, err
	}

	conn := database.NewConnection(cfg)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx, conn); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &backend{
		cfg:        cfg,
		conn:       conn,
		messages:   database.NewMessageStore(conn, cfg),
		characters: database.NewCharacterStore(conn, cfg),
	}, nil
}

func (b *backend) Close() {
	if err := b.conn.Close(context.Background()); err != nil {
		slog.Warn("Failed to close database connection", "error", err)
	}
}
