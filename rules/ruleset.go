// Package rules holds the configurable parameters of a Rummikub game.
package rules

import (
	"fmt"

	"github.com/domino14/rummikub/tilemapping"
)

// Bounds for the ruleset parameters.
const (
	MinNumbers, MaxNumbers                 = 1, 26
	MinRepeats, MaxRepeats                 = 1, 4
	MinColours, MaxColours                 = 1, tilemapping.MaxColours
	MinJokers, MaxJokers                   = 0, 4
	MinMinLen, MaxMinLen                   = 2, 6
	MinMinInitialValue, MaxMinInitialValue = 1, 50
)

// Params are the raw, unvalidated inputs for a Ruleset.
type Params struct {
	Numbers         int
	Repeats         int
	Colours         int
	Jokers          int
	MinLen          int
	MinInitialValue int
}

// DefaultParams are the parameters of the standard Rummikub game.
func DefaultParams() Params {
	return Params{
		Numbers:         13,
		Repeats:         2,
		Colours:         4,
		Jokers:          2,
		MinLen:          3,
		MinInitialValue: 30,
	}
}

// Ruleset is a validated, immutable set of game parameters. It is a plain
// comparable value so it can be used as a map key.
type Ruleset struct {
	numbers         int
	repeats         int
	colours         int
	jokers          int
	minLen          int
	minInitialValue int
}

// New validates p and creates a Ruleset. The returned error is a
// *ConfigError naming the first parameter out of range.
func New(p Params) (*Ruleset, error) {
	checks := []struct {
		name     string
		val      int
		min, max int
	}{
		{"numbers", p.Numbers, MinNumbers, MaxNumbers},
		{"repeats", p.Repeats, MinRepeats, MaxRepeats},
		{"colours", p.Colours, MinColours, MaxColours},
		{"jokers", p.Jokers, MinJokers, MaxJokers},
		{"min-len", p.MinLen, MinMinLen, MaxMinLen},
		{"min-initial-value", p.MinInitialValue, MinMinInitialValue, MaxMinInitialValue},
	}
	for _, c := range checks {
		if c.val < c.min || c.val > c.max {
			return nil, &ConfigError{Param: c.name, Value: c.val, Min: c.min, Max: c.max}
		}
	}
	return &Ruleset{
		numbers:         p.Numbers,
		repeats:         p.Repeats,
		colours:         p.Colours,
		jokers:          p.Jokers,
		minLen:          p.MinLen,
		minInitialValue: p.MinInitialValue,
	}, nil
}

// Default returns the standard ruleset.
func Default() *Ruleset {
	rs, err := New(DefaultParams())
	if err != nil {
		panic(err)
	}
	return rs
}

func (rs *Ruleset) Numbers() int         { return rs.numbers }
func (rs *Ruleset) Repeats() int         { return rs.repeats }
func (rs *Ruleset) NumColours() int      { return rs.colours }
func (rs *Ruleset) Jokers() int          { return rs.jokers }
func (rs *Ruleset) MinLen() int          { return rs.minLen }
func (rs *Ruleset) MinInitialValue() int { return rs.minInitialValue }

// Params returns the parameters this ruleset was created from.
func (rs *Ruleset) Params() Params {
	return Params{
		Numbers:         rs.numbers,
		Repeats:         rs.repeats,
		Colours:         rs.colours,
		Jokers:          rs.jokers,
		MinLen:          rs.minLen,
		MinInitialValue: rs.minInitialValue,
	}
}

// Colours returns the colours in play, in notation order.
func (rs *Ruleset) Colours() []tilemapping.Colour {
	cs := make([]tilemapping.Colour, rs.colours)
	for i := range cs {
		cs[i] = tilemapping.Colour(i)
	}
	return cs
}

// NumTiles is the number of distinct tile kinds, the joker included.
func (rs *Ruleset) NumTiles() int {
	n := rs.numbers * rs.colours
	if rs.jokers > 0 {
		n++
	}
	return n
}

// Index maps a tile kind to its dense index: colour-major numbered tiles,
// then the joker.
func (rs *Ruleset) Index(t tilemapping.Tile) (int, bool) {
	if t.IsJoker() {
		if rs.jokers == 0 {
			return 0, false
		}
		return rs.numbers * rs.colours, true
	}
	if int(t.Colour) >= rs.colours || t.Number < 1 || int(t.Number) > rs.numbers {
		return 0, false
	}
	return int(t.Colour)*rs.numbers + int(t.Number) - 1, true
}

// TileAt is the inverse of Index.
func (rs *Ruleset) TileAt(i int) tilemapping.Tile {
	if rs.jokers > 0 && i == rs.numbers*rs.colours {
		return tilemapping.JokerTile
	}
	return tilemapping.NewTile(tilemapping.Colour(i/rs.numbers), i%rs.numbers+1)
}

// JokerIndex returns the index of the joker, if the ruleset has jokers.
func (rs *Ruleset) JokerIndex() (int, bool) {
	return rs.Index(tilemapping.JokerTile)
}

// Tiles lists every tile kind in index order.
func (rs *Ruleset) Tiles() []tilemapping.Tile {
	tiles := make([]tilemapping.Tile, rs.NumTiles())
	for i := range tiles {
		tiles[i] = rs.TileAt(i)
	}
	return tiles
}

// PoolCount is the number of physical copies of a tile kind.
func (rs *Ruleset) PoolCount(t tilemapping.Tile) int {
	if _, ok := rs.Index(t); !ok {
		return 0
	}
	if t.IsJoker() {
		return rs.jokers
	}
	return rs.repeats
}

// Pool returns the full multiset of physical tiles.
func (rs *Ruleset) Pool() *tilemapping.Inventory {
	inv := tilemapping.NewInventory(rs)
	for i := 0; i < rs.NumTiles(); i++ {
		inv.SetAt(i, rs.PoolCount(rs.TileAt(i)))
	}
	return inv
}

// Key is a short string identifying game states that fit this ruleset.
// The minimum set length and initial value do not change what a game state
// holds, so they are not part of the key.
func (rs *Ruleset) Key() string {
	return fmt.Sprintf("n%dr%dc%dj%d", rs.numbers, rs.repeats, rs.colours, rs.jokers)
}

func (rs *Ruleset) String() string {
	return fmt.Sprintf("numbers=%d repeats=%d colours=%d jokers=%d min-len=%d min-initial-value=%d",
		rs.numbers, rs.repeats, rs.colours, rs.jokers, rs.minLen, rs.minInitialValue)
}

// CheckInventories verifies that the inventories together never hold more
// of a tile kind than the pool does. A violation is reported as an
// *InvariantError.
func (rs *Ruleset) CheckInventories(invs ...*tilemapping.Inventory) error {
	for i := 0; i < rs.NumTiles(); i++ {
		total := 0
		for _, inv := range invs {
			if inv.Indexer().NumTiles() != rs.NumTiles() {
				return &InvariantError{Msg: "inventory does not belong to ruleset " + rs.Key()}
			}
			total += inv.CountAt(i)
		}
		t := rs.TileAt(i)
		if limit := rs.PoolCount(t); total > limit {
			return &InvariantError{Tile: t, Count: total, Limit: limit}
		}
	}
	return nil
}

// Available returns the tiles not accounted for by the inventories: still
// in the bag or on other players' racks.
func (rs *Ruleset) Available(invs ...*tilemapping.Inventory) *tilemapping.Inventory {
	avail := rs.Pool()
	for _, inv := range invs {
		avail.Subtract(inv)
	}
	return avail
}
