package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nfrund/tavern/internal/dice"
)

func newRollCmd(opts *rootOptions) *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "roll <NdM>",
		Short: "Roll a dice expression",
		Long: `Roll count dice with the given number of sides. Sides must be one of
4, 6, 8, 10, 12 or 20.

Examples:
  tavern-cli roll 3d6
  tavern-cli roll 1d20 --seed 42 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := dice.Parse(args[0])
			if err != nil {
				return err
			}

			var resolver *dice.Resolver
			if cmd.Flags().Changed("seed") {
				resolver = dice.NewSeededResolver(seed)
			} else if resolver, err = dice.NewRandomResolver(); err != nil {
				return err
			}

			roll := resolver.Roll(expr)
			result := struct {
				Expression string `json:"expression"`
				Results    []int  `json:"results"`
				Total      int    `json:"total"`
			}{expr.String(), roll.Results, roll.Total}

			return opts.printer(cmd).Print(result,
				[]string{"EXPRESSION", "RESULTS", "TOTAL"},
				[][]string{{expr.String(), roll.Breakdown(), strconv.Itoa(roll.Total)}})
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for a reproducible roll")
	return cmd
}
