package app

import (
	"github.com/nfrund/tavern/internal/module"
	"github.com/nfrund/tavern/internal/modules/table"
)

// NewModules returns the active modules. This is the single source of truth
// for which features are enabled.
func NewModules() []module.Module {
	return []module.Module{
		table.New(),
	}
}
