package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/storage"
)

// importDebounce collapses the burst of events editors emit on save.
const importDebounce = 250 * time.Millisecond

func newCharactersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "characters",
		Short: "Manage the roster",
	}
	cmd.AddCommand(
		newCharactersListCmd(opts),
		newCharactersImportCmd(opts),
		newCharactersExportCmd(),
	)
	return cmd
}

func newCharactersListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every character at the table",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			roster, err := b.characters.List(cmd.Context())
			if err != nil {
				return err
			}
			return printRoster(opts, cmd, roster)
		},
	}
}

func newCharactersImportCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun bool
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import characters from a JSON roster file",
		Long: `Import reads a JSON array of characters (or {"characters": [...]}) and
upserts each one by uid. With --watch the file is re-imported whenever it changes.

Examples:
  tavern-cli characters import roster.json --dry-run
  tavern-cli characters import roster.json --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			loader := storage.NewRosterLoader(afero.NewOsFs())

			if dryRun {
				chars, err := loader.Load(path)
				if err != nil {
					return err
				}
				return printRoster(opts, cmd, chars)
			}

			b, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			stored, err := loader.Import(cmd.Context(), b.characters, path)
			if err != nil {
				return err
			}
			if err := printRoster(opts, cmd, stored); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchRoster(ctx, path, func() {
				chars, err := loader.Import(ctx, b.characters, path)
				if err != nil {
					slog.Error("Re-import failed", "path", path, "error", err)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "re-imported %d characters from %s\n", len(chars), path)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without writing")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-import when the file changes")
	return cmd
}

func newCharactersExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the roster to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			roster, err := b.characters.List(cmd.Context())
			if err != nil {
				return err
			}
			if err := storage.NewRosterLoader(afero.NewOsFs()).Save(args[0], roster); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d characters to %s\n", len(roster), args[0])
			return nil
		},
	}
}

// watchRoster calls reload after path is written, until ctx ends. The
// directory is watched so editors that replace the file are seen too.
func watchRoster(ctx context.Context, path string, reload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	slog.Info("Watching roster", "path", abs)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(importDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

func printRoster(opts *rootOptions, cmd *cobra.Command, roster []domain.Character) error {
	rows := make([][]string, 0, len(roster))
	for _, c := range roster {
		rows = append(rows, []string{
			c.Name, c.UID,
			strconv.Itoa(c.Str), strconv.Itoa(c.Dex), strconv.Itoa(c.Con),
			strconv.Itoa(c.Int), strconv.Itoa(c.Wis), strconv.Itoa(c.Cha),
			fmt.Sprintf("%d/%d", c.HP, c.MaxHP),
		})
	}
	return opts.printer(cmd).Print(roster,
		[]string{"NAME", "UID", "STR", "DEX", "CON", "INT", "WIS", "CHA", "HP"}, rows)
}
