// Package meld enumerates the legal sets of tiles ("melds") of a ruleset:
// groups of one number in distinct colours, and runs of consecutive numbers
// in one colour, with jokers standing in for missing tiles.
package meld

import (
	"strings"

	"github.com/domino14/rummikub/tilemapping"
)

type Kind uint8

const (
	Group Kind = iota
	Run
)

func (k Kind) String() string {
	if k == Run {
		return "run"
	}
	return "group"
}

// Requirement is the number of tiles of one kind a meld needs.
type Requirement struct {
	Index int
	Count int
}

// Meld is one fully specified candidate set. Tiles are the physical tiles
// in table order; Slots are the tiles each position stands for, which only
// differ from Tiles where a joker is used.
type Meld struct {
	kind  Kind
	tiles []tilemapping.Tile
	slots []tilemapping.Tile
	reqs  []Requirement
	key   string
	value int
}

func (m *Meld) Kind() Kind { return m.kind }

// Len is the number of tiles in the meld.
func (m *Meld) Len() int { return len(m.tiles) }

// Tiles returns the physical tiles, jokers included.
func (m *Meld) Tiles() []tilemapping.Tile {
	return append([]tilemapping.Tile(nil), m.tiles...)
}

// Slots returns the tile each position represents.
func (m *Meld) Slots() []tilemapping.Tile {
	return append([]tilemapping.Tile(nil), m.slots...)
}

// Requirements lists the tile kinds the meld uses, by ruleset tile index.
func (m *Meld) Requirements() []Requirement {
	return m.reqs
}

// Key identifies the meld by tile composition.
func (m *Meld) Key() string { return m.key }

// Jokers is the number of jokers in the meld.
func (m *Meld) Jokers() int {
	n := 0
	for _, t := range m.tiles {
		if t.IsJoker() {
			n++
		}
	}
	return n
}

// Value is the point total of the meld, with every joker counted as the
// tile it stands for.
func (m *Meld) Value() int { return m.value }

// JokerValue is the part of Value contributed by jokers.
func (m *Meld) JokerValue() int {
	v := 0
	for i, t := range m.tiles {
		if t.IsJoker() {
			v += m.slots[i].Value()
		}
	}
	return v
}

// JokerSlots returns the tiles the jokers of this meld stand for.
func (m *Meld) JokerSlots() []tilemapping.Tile {
	var slots []tilemapping.Tile
	for i, t := range m.tiles {
		if t.IsJoker() {
			slots = append(slots, m.slots[i])
		}
	}
	return slots
}

// String shows the meld in notation; run jokers show the tile they
// replace, e.g. "k1 j(k2) k3".
func (m *Meld) String() string {
	return m.format(tilemapping.Tile.String)
}

// Styled is String with ANSI colours.
func (m *Meld) Styled() string {
	return m.format(tilemapping.Tile.Styled)
}

func (m *Meld) format(f func(tilemapping.Tile) string) string {
	parts := make([]string, len(m.tiles))
	for i, t := range m.tiles {
		parts[i] = f(t)
		if t.IsJoker() && m.kind == Run {
			parts[i] += "(" + m.slots[i].String() + ")"
		}
	}
	return strings.Join(parts, " ")
}
