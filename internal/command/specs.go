package command

import (
	"fmt"
	"strconv"

	"github.com/nfrund/tavern/internal/dice"
	"github.com/nfrund/tavern/internal/domain"
)

// Command names.
const (
	NameSkillCheck = "skillcheck"
	NameHit        = "hit"
	NameHeal       = "heal"
	NameAskRoll    = "askroll"
	NameRoll       = "roll"
)

// Check validates one argument of a parsed command.
type Check func(cmd domain.Command) error

// Call is a command that passed its target checks, handed to a renderer.
type Call struct {
	Command domain.Command
	Input   Input
	Target  domain.Character

	builder *Builder
}

// Spec describes one command: its arity, argument checks and message template.
// Targeted commands name a character in their first argument and become requests.
type Spec struct {
	Name     string
	Syntax   string
	Arity    int
	Targeted bool
	Checks   []Check
	Render   func(c Call) (string, error)
}

// DefaultSpecs is the standard command table.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			Name:     NameSkillCheck,
			Syntax:   "/skillcheck <player_name> <stat> <DC>",
			Arity:    3,
			Targeted: true,
			Checks:   []Check{statAt(1), numberAt(2, "DC")},
			Render: func(c Call) (string, error) {
				return fmt.Sprintf("%s, make a %s skill check! (DC %s)",
					c.builder.Upper(c.Target.Name), c.builder.Upper(c.Command.Arg(1)), c.Command.Arg(2)), nil
			},
		},
		{
			Name:     NameHit,
			Syntax:   "/hit <player_name> <hp>",
			Arity:    2,
			Targeted: true,
			Checks:   []Check{amountAt(1, "Hit Points")},
			Render: func(c Call) (string, error) {
				return fmt.Sprintf("%s, you lost %s hit points!", c.builder.Upper(c.Target.Name), c.Command.Arg(1)), nil
			},
		},
		{
			Name:     NameHeal,
			Syntax:   "/heal <player_name> <hp>",
			Arity:    2,
			Targeted: true,
			Checks:   []Check{amountAt(1, "Hit Points")},
			Render: func(c Call) (string, error) {
				return fmt.Sprintf("%s, you gained %s hit points!", c.builder.Upper(c.Target.Name), c.Command.Arg(1)), nil
			},
		},
		{
			Name:     NameAskRoll,
			Syntax:   "/askroll <player_name> <die>",
			Arity:    2,
			Targeted: true,
			Checks:   []Check{diceAt(1)},
			Render: func(c Call) (string, error) {
				return fmt.Sprintf("%s, roll %s!", c.builder.Upper(c.Target.Name), c.Command.Arg(1)), nil
			},
		},
		{
			Name:   NameRoll,
			Syntax: "/roll <die>",
			Arity:  1,
			Checks: []Check{diceAt(0)},
			Render: func(c Call) (string, error) {
				expr := c.Command.Arg(0)
				roll, err := c.builder.Roll(expr)
				if err != nil {
					return "", fail(ErrInvalidDiceExpression, fmt.Sprintf("Unknown dice: %s", expr))
				}
				return fmt.Sprintf("DUNGEON MASTER rolled %s!\n%s = %d", expr, roll.Breakdown(), roll.Total), nil
			},
		},
	}
}

func statAt(i int) Check {
	return func(cmd domain.Command) error {
		if _, ok := domain.ParseStat(cmd.Arg(i)); !ok {
			return fail(ErrInvalidStat, fmt.Sprintf("Unknown stat: %s", cmd.Arg(i)))
		}
		return nil
	}
}

func numberAt(i int, desc string) Check {
	return func(cmd domain.Command) error {
		if _, err := strconv.Atoi(cmd.Arg(i)); err != nil {
			return fail(ErrNotANumber, fmt.Sprintf("%s must be a number. Provided: %s", desc, cmd.Arg(i)))
		}
		return nil
	}
}

// amountAt is numberAt for hit point amounts, which must be at least 1.
func amountAt(i int, desc string) Check {
	return func(cmd domain.Command) error {
		n, err := strconv.Atoi(cmd.Arg(i))
		if err != nil {
			return fail(ErrNotANumber, fmt.Sprintf("%s must be a number. Provided: %s", desc, cmd.Arg(i)))
		}
		if n < 1 {
			return fail(ErrNotANumber, fmt.Sprintf("%s must be a positive number. Provided: %s", desc, cmd.Arg(i)))
		}
		return nil
	}
}

func diceAt(i int) Check {
	return func(cmd domain.Command) error {
		if _, err := dice.Parse(cmd.Arg(i)); err != nil {
			return fail(ErrInvalidDiceExpression, fmt.Sprintf("Unknown dice: %s", cmd.Arg(i)))
		}
		return nil
	}
}
