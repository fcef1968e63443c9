package rules

import (
	"fmt"

	"github.com/domino14/rummikub/tilemapping"
)

// ConfigError reports a ruleset parameter outside its valid range. It is
// always the caller's fault and is raised before any solving work.
type ConfigError struct {
	Param    string
	Value    int
	Min, Max int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid ruleset: %s is %d, must be between %d and %d",
		e.Param, e.Value, e.Min, e.Max)
}

// InvariantError reports game state that cannot exist, such as more copies
// of a tile on rack and table than the pool holds. It indicates a bug in
// whoever manages the state and must not be retried.
type InvariantError struct {
	Tile  tilemapping.Tile
	Count int
	Limit int
	Msg   string
}

func (e *InvariantError) Error() string {
	if e.Msg != "" {
		return "invariant violation: " + e.Msg
	}
	return fmt.Sprintf("invariant violation: %d copies of %v in play, the pool only has %d",
		e.Count, e.Tile, e.Limit)
}
