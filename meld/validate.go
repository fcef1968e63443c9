package meld

import (
	"errors"
	"fmt"

	"github.com/domino14/rummikub/rules"
	"github.com/domino14/rummikub/tilemapping"
)

var (
	ErrTooShort      = errors.New("meld is shorter than the minimum set length")
	ErrTooManyJokers = errors.New("meld uses more jokers than the ruleset has")
	ErrSlotMismatch  = errors.New("meld tile does not match the tile it stands for")
)

// Validate checks that m is a legal group or run under rs.
func Validate(m *Meld, rs *rules.Ruleset) error {
	if m.Len() < rs.MinLen() {
		return ErrTooShort
	}
	if m.Jokers() > rs.Jokers() {
		return ErrTooManyJokers
	}
	for i, t := range m.tiles {
		s := m.slots[i]
		if s.IsJoker() {
			return fmt.Errorf("slot %d stands for a joker", i)
		}
		if _, ok := rs.Index(s); !ok {
			return fmt.Errorf("slot %d holds %v, not part of the ruleset", i, s)
		}
		if !t.IsJoker() && t != s {
			return ErrSlotMismatch
		}
	}
	switch m.kind {
	case Run:
		if m.Len() > rs.Numbers() {
			return fmt.Errorf("run of %d is longer than the %d numbers", m.Len(), rs.Numbers())
		}
		for i := 1; i < len(m.slots); i++ {
			if m.slots[i].Colour != m.slots[0].Colour {
				return fmt.Errorf("run mixes colours %v and %v", m.slots[0].Colour, m.slots[i].Colour)
			}
			if m.slots[i].Number != m.slots[i-1].Number+1 {
				return fmt.Errorf("run is not consecutive at position %d", i)
			}
		}
	case Group:
		if m.Len() > rs.NumColours() {
			return fmt.Errorf("group of %d is larger than the %d colours", m.Len(), rs.NumColours())
		}
		seen := map[tilemapping.Colour]bool{}
		for _, s := range m.slots {
			if s.Number != m.slots[0].Number {
				return fmt.Errorf("group mixes numbers %d and %d", m.slots[0].Number, s.Number)
			}
			if seen[s.Colour] {
				return fmt.Errorf("group repeats colour %v", s.Colour)
			}
			seen[s.Colour] = true
		}
	default:
		return fmt.Errorf("unknown meld kind %d", m.kind)
	}
	return nil
}

// Redundant reports whether a joker in m could be left out with the meld
// staying legal: a group with a joker that is larger than the minimum, or
// a longer-than-minimum run with a joker at either end.
func Redundant(m *Meld, rs *rules.Ruleset) bool {
	if m.Jokers() == 0 || m.Len() == rs.MinLen() {
		return false
	}
	if m.kind == Group {
		return true
	}
	return m.tiles[0].IsJoker() || m.tiles[len(m.tiles)-1].IsJoker()
}
