package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nfrund/tavern/cmd/tavern-cli/internal/output"
	"github.com/nfrund/tavern/internal/engine"
	"github.com/nfrund/tavern/internal/topicmgr"
)

// tableEvents are the topics the engine publishes. Referencing them
// registers them with the default manager.
var tableEvents = []string{
	engine.MessageAppended.Name(),
	engine.ChatsPurged.Name(),
	engine.RequestResolved.Name(),
	engine.CharacterUpdated.Name(),
	engine.LogChanged.Name(),
}

type topicDisplay struct {
	Name        string         `json:"name"`
	Scope       string         `json:"scope"`
	Module      string         `json:"module"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func newTopicsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Explore the events published by the table",
	}

	var module, scope string
	list := &cobra.Command{
		Use:   "list",
		Short: "List all registered topics",
		Long: `List every topic registered with the topic manager.

Examples:
  tavern-cli topics list
  tavern-cli topics list --module table --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			topics, err := filterTopics(module, scope)
			if err != nil {
				return err
			}
			if len(topics) == 0 && opts.format == string(output.Table) {
				fmt.Fprintln(cmd.OutOrStdout(), "No topics found")
				return nil
			}

			displays := make([]topicDisplay, 0, len(topics))
			rows := make([][]string, 0, len(topics))
			for _, t := range topics {
				mod := t.Module()
				if mod == "" {
					mod = "-"
				}
				displays = append(displays, topicDisplay{
					Name:        t.Name(),
					Scope:       string(t.Scope()),
					Module:      t.Module(),
					Description: t.Description(),
					Metadata:    t.Metadata(),
				})
				rows = append(rows, []string{t.Name(), string(t.Scope()), mod, output.Truncate(t.Description(), 50)})
			}
			result := struct {
				Topics []topicDisplay `json:"topics"`
				Count  int            `json:"count"`
			}{displays, len(displays)}
			return opts.printer(cmd).Print(result, []string{"NAME", "SCOPE", "MODULE", "DESCRIPTION"}, rows)
		},
	}
	list.Flags().StringVarP(&module, "module", "m", "", "Filter topics by module name")
	list.Flags().StringVarP(&scope, "scope", "s", "", "Filter topics by scope (framework, module)")

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Show one topic and its payload fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := topicmgr.Default().Get(args[0])
			if err != nil {
				return err
			}
			d := topicDisplay{
				Name:        t.Name(),
				Scope:       string(t.Scope()),
				Module:      t.Module(),
				Description: t.Description(),
				Metadata:    t.Metadata(),
			}
			rows := [][]string{
				{"Name", d.Name},
				{"Scope", d.Scope},
				{"Module", d.Module},
				{"Description", d.Description},
				{"Fields", fmt.Sprint(d.Metadata["payload_fields"])},
			}
			return opts.printer(cmd).Print(d, []string{"FIELD", "VALUE"}, rows)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}
