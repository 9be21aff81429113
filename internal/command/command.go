// Package command parses and validates the Dungeon Master's slash-commands
// and turns them into table messages.
package command

import (
	"strings"

	"github.com/nfrund/tavern/internal/domain"
)

// Marker prefixes every command.
const Marker = "/"

// HasMarker reports whether text is written as a command.
func HasMarker(text string) bool {
	return strings.HasPrefix(text, Marker)
}

// Parse splits "/name arg1 arg2" into a command. Runs of whitespace separate
// arguments. The caller is expected to have checked HasMarker.
func Parse(text string) domain.Command {
	tokens := strings.Fields(strings.TrimPrefix(text, Marker))
	if len(tokens) == 0 {
		return domain.Command{Args: []string{}}
	}
	return domain.Command{Name: tokens[0], Args: tokens[1:]}
}
