// Package game holds the state of one named Rummikub game as seen by one
// player: their rack, the shared table, and whether they still have to
// play their initial meld.
package game

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/rummikub/rules"
	"github.com/domino14/rummikub/tilemapping"
)

const DefaultName = "default"

var ErrNothingToUndo = errors.New("nothing to undo")

// NotAvailableError is returned when tiles are moved that the source does
// not hold.
type NotAvailableError struct {
	Source string
	Tiles  []tilemapping.Tile
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("not enough tiles in %s for %s", e.Source, tilemapping.FormatTiles(e.Tiles))
}

// State is one game. Every mutation keeps rack plus table within the pool.
type State struct {
	name    string
	rs      *rules.Ruleset
	rack    *tilemapping.Inventory
	table   *tilemapping.Inventory
	initial bool

	// one level of undo
	backup *stateBackup
}

// stateBackup is the subset of State needed to undo a mutation.
type stateBackup struct {
	rack    *tilemapping.Inventory
	table   *tilemapping.Inventory
	initial bool
}

// New creates an empty game that still needs its initial meld.
func New(rs *rules.Ruleset, name string) *State {
	return &State{
		name:    name,
		rs:      rs,
		rack:    tilemapping.NewInventory(rs),
		table:   tilemapping.NewInventory(rs),
		initial: true,
	}
}

// Restore recreates a game from stored parts.
func Restore(rs *rules.Ruleset, name string, rack, table []tilemapping.Tile, initial bool) (*State, error) {
	s := New(rs, name)
	s.initial = initial
	if err := s.rack.Add(rack...); err != nil {
		return nil, err
	}
	if err := s.table.Add(table...); err != nil {
		return nil, err
	}
	if err := rs.CheckInventories(s.rack, s.table); err != nil {
		return nil, fmt.Errorf("game %s: %w", name, err)
	}
	return s, nil
}

func (s *State) Name() string { return s.name }

func (s *State) SetName(name string) { s.name = name }

func (s *State) Ruleset() *rules.Ruleset { return s.rs }

// Rack returns a copy of the rack.
func (s *State) Rack() *tilemapping.Inventory { return s.rack.Copy() }

// Table returns a copy of the table.
func (s *State) Table() *tilemapping.Inventory { return s.table.Copy() }

// Initial reports whether the player still has to play their initial meld.
func (s *State) Initial() bool { return s.initial }

func (s *State) SetInitial(initial bool) {
	s.backupState()
	s.initial = initial
}

// Available returns the tiles that are neither on the rack nor on the
// table.
func (s *State) Available() *tilemapping.Inventory {
	return s.rs.Available(s.rack, s.table)
}

func (s *State) backupState() {
	s.backup = &stateBackup{rack: s.rack.Copy(), table: s.table.Copy(), initial: s.initial}
}

// Undo reverts the last mutation.
func (s *State) Undo() error {
	if s.backup == nil {
		return ErrNothingToUndo
	}
	s.rack, s.table, s.initial = s.backup.rack, s.backup.table, s.backup.initial
	s.backup = nil
	return nil
}

// move takes tiles from one inventory and adds them to another, all or
// nothing. A nil destination discards the tiles; a nil source draws them
// from the undrawn tiles.
func (s *State) move(srcName string, src, dst *tilemapping.Inventory, tiles []tilemapping.Tile) error {
	from := src
	if from == nil {
		from = s.Available()
	}
	want, err := tilemapping.InventoryFromTiles(s.rs, tiles)
	if err != nil {
		return err
	}
	if !from.Contains(want) {
		return &NotAvailableError{Source: srcName, Tiles: tiles}
	}
	s.backupState()
	if src != nil {
		src.Subtract(want)
	}
	if dst != nil {
		dst.AddInventory(want)
	}
	log.Debug().Str("game", s.name).Str("from", srcName).Int("tiles", len(tiles)).Msg("moved-tiles")
	return nil
}

// AddRack puts undrawn tiles on the rack.
func (s *State) AddRack(tiles ...tilemapping.Tile) error {
	return s.move("the bag", nil, s.rack, tiles)
}

func (s *State) RemoveRack(tiles ...tilemapping.Tile) error {
	return s.move("the rack", s.rack, nil, tiles)
}

// AddTable puts undrawn tiles on the table, as played by other players.
func (s *State) AddTable(tiles ...tilemapping.Tile) error {
	return s.move("the bag", nil, s.table, tiles)
}

func (s *State) RemoveTable(tiles ...tilemapping.Tile) error {
	return s.move("the table", s.table, nil, tiles)
}

// Place moves tiles from the rack to the table.
func (s *State) Place(tiles ...tilemapping.Tile) error {
	return s.move("the rack", s.rack, s.table, tiles)
}

// Take moves tiles from the table back to the rack.
func (s *State) Take(tiles ...tilemapping.Tile) error {
	return s.move("the table", s.table, s.rack, tiles)
}

func (s *State) ClearRack() {
	s.backupState()
	s.rack.Clear()
}

func (s *State) ClearTable() {
	s.backupState()
	s.table.Clear()
}

// Clear empties rack and table.
func (s *State) Clear() {
	s.backupState()
	s.rack.Clear()
	s.table.Clear()
}

// Reset empties rack and table and marks the initial meld as not played.
func (s *State) Reset() {
	s.backupState()
	s.rack.Clear()
	s.table.Clear()
	s.initial = true
}

// Draw moves n random undrawn tiles to the rack. It draws fewer when the
// bag runs out.
func (s *State) Draw(n int) []tilemapping.Tile {
	bag := s.Available().Tiles()
	frand.Shuffle(len(bag), func(i, j int) { bag[i], bag[j] = bag[j], bag[i] })
	drawn := bag[:min(max(n, 0), len(bag))]
	s.backupState()
	// drawn tiles come from the bag, so this cannot fail
	if err := s.rack.Add(drawn...); err != nil {
		panic(err)
	}
	return drawn
}

// Apply moves placed tiles from the rack to the table and marks the
// initial meld as played.
func (s *State) Apply(placed *tilemapping.Inventory) error {
	if err := s.Place(placed.Tiles()...); err != nil {
		return err
	}
	s.initial = false
	return nil
}

// Validate checks the pool invariant.
func (s *State) Validate() error {
	return s.rs.CheckInventories(s.rack, s.table)
}
