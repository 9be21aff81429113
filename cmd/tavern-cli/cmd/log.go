package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfrund/tavern/cmd/tavern-cli/internal/output"
	"github.com/nfrund/tavern/internal/database"
	"github.com/nfrund/tavern/internal/domain"
)

func newLogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the table log",
	}
	cmd.AddCommand(newLogTailCmd(opts), newLogClearCmd())
	return cmd
}

func newLogTailCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent log entries, oldest first",
		Long: `Tail prints the newest entries of the table log. Private messages are
included and marked. With --follow, the log is printed again whenever it changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			show := func(ctx context.Context) error {
				msgs, err := b.messages.QueryOrdered(ctx, limit)
				if err != nil {
					return err
				}
				return printLog(opts, cmd, msgs)
			}
			if err := show(cmd.Context()); err != nil {
				return err
			}
			if !follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			changed := make(chan struct{}, 1)
			live := database.NewLiveQueryService(b.conn)
			defer live.Close()
			if _, err := live.Subscribe(ctx, "message", func(context.Context, string, database.LiveQueryAction, any) {
				select {
				case changed <- struct{}{}:
				default:
				}
			}); err != nil {
				return err
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-changed:
					if opts.format == string(output.Table) {
						fmt.Fprintf(cmd.OutOrStdout(), "\n--- %s ---\n", time.Now().Format(time.TimeOnly))
					}
					if err := show(ctx); err != nil && !errors.Is(err, context.Canceled) {
						slog.Error("Failed to read log", "error", err)
					}
				}
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "lines", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep printing as the log changes")
	return cmd
}

func newLogClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry of the table log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the log without --yes")
			}
			b, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.messages.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "table log cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func printLog(opts *rootOptions, cmd *cobra.Command, msgs []domain.Message) error {
	rows := make([][]string, 0, len(msgs))
	for _, m := range msgs {
		flags := string(m.Type)
		if m.Private {
			flags += ",private"
		}
		if m.Request != nil {
			state := "pending"
			if m.Request.Resolved {
				state = "resolved"
			}
			flags += fmt.Sprintf(",%s:%s", m.Request.Command.Name, state)
		}
		rows = append(rows, []string{
			m.CreatedAt.Format(time.TimeOnly),
			m.AuthorUID,
			flags,
			output.Truncate(strings.ReplaceAll(m.Text, "\n", " / "), 60),
		})
	}
	return opts.printer(cmd).Print(msgs, []string{"TIME", "AUTHOR", "KIND", "TEXT"}, rows)
}
