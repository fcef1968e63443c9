package tilemapping

import (
	"fmt"
	"strings"
)

// Inventory is a machine-friendly count of tile kinds, used for a rack, the
// table, the pool and anything in between.
type Inventory struct {
	// counts is indexed by the Indexer's tile index.
	counts   []int
	numTiles int
	indexer  Indexer
}

// NewInventory creates an empty inventory for the tile kinds of idx.
func NewInventory(idx Indexer) *Inventory {
	return &Inventory{
		indexer: idx,
		counts:  make([]int, idx.NumTiles()),
	}
}

// InventoryFromTiles creates an inventory holding the given tiles.
func InventoryFromTiles(idx Indexer, tiles []Tile) (*Inventory, error) {
	inv := NewInventory(idx)
	if err := inv.Add(tiles...); err != nil {
		return nil, err
	}
	return inv, nil
}

// InventoryFromString parses tile notation into an inventory.
func InventoryFromString(idx Indexer, s string) (*Inventory, error) {
	tiles, err := ParseTiles(s)
	if err != nil {
		return nil, err
	}
	return InventoryFromTiles(idx, tiles)
}

// Copy returns a deep copy of this inventory.
func (inv *Inventory) Copy() *Inventory {
	n := &Inventory{
		numTiles: inv.numTiles,
		indexer:  inv.indexer,
	}
	n.counts = make([]int, len(inv.counts))
	copy(n.counts, inv.counts)
	return n
}

func (inv *Inventory) CopyFrom(other *Inventory) {
	inv.numTiles = other.numTiles
	inv.indexer = other.indexer
	if len(inv.counts) != len(other.counts) {
		inv.counts = make([]int, len(other.counts))
	}
	copy(inv.counts, other.counts)
}

func (inv *Inventory) Indexer() Indexer {
	return inv.indexer
}

func (inv *Inventory) index(t Tile) (int, error) {
	i, ok := inv.indexer.Index(t)
	if !ok {
		return 0, fmt.Errorf("tile %v is not part of this tile set", t)
	}
	return i, nil
}

// Add adds tiles. It fails without changing the inventory if any tile is
// not part of the tile set.
func (inv *Inventory) Add(tiles ...Tile) error {
	idxs := make([]int, len(tiles))
	for n, t := range tiles {
		i, err := inv.index(t)
		if err != nil {
			return err
		}
		idxs[n] = i
	}
	for _, i := range idxs {
		inv.counts[i]++
	}
	inv.numTiles += len(idxs)
	return nil
}

// Take removes tiles. It fails without changing the inventory if the
// tiles are not all present.
func (inv *Inventory) Take(tiles ...Tile) error {
	need := NewInventory(inv.indexer)
	if err := need.Add(tiles...); err != nil {
		return err
	}
	if !inv.Contains(need) {
		return fmt.Errorf("cannot take %v: not all tiles are present in %v", need, inv)
	}
	inv.Subtract(need)
	return nil
}

// Has reports whether at least one tile of kind t is present.
func (inv *Inventory) Has(t Tile) bool {
	return inv.CountOf(t) > 0
}

// CountOf returns the number of tiles of kind t; 0 for unknown kinds.
func (inv *Inventory) CountOf(t Tile) int {
	i, ok := inv.indexer.Index(t)
	if !ok {
		return 0
	}
	return inv.counts[i]
}

// CountAt returns the count at a tile index.
func (inv *Inventory) CountAt(i int) int {
	return inv.counts[i]
}

// SetAt sets the count at a tile index. Negative counts are clamped to 0.
func (inv *Inventory) SetAt(i, count int) {
	if count < 0 {
		count = 0
	}
	inv.numTiles += count - inv.counts[i]
	inv.counts[i] = count
}

// Counts returns a copy of the raw count array.
func (inv *Inventory) Counts() []int {
	c := make([]int, len(inv.counts))
	copy(c, inv.counts)
	return c
}

// Contains reports whether every count in other is covered by inv.
func (inv *Inventory) Contains(other *Inventory) bool {
	for i, c := range other.counts {
		if inv.counts[i] < c {
			return false
		}
	}
	return true
}

// AddInventory adds all counts of other to inv.
func (inv *Inventory) AddInventory(other *Inventory) {
	for i, c := range other.counts {
		inv.counts[i] += c
	}
	inv.numTiles += other.numTiles
}

// Subtract removes the counts of other from inv, clamping at zero.
func (inv *Inventory) Subtract(other *Inventory) {
	for i, c := range other.counts {
		inv.SetAt(i, inv.counts[i]-c)
	}
}

// Equal reports whether both inventories hold exactly the same tiles.
func (inv *Inventory) Equal(other *Inventory) bool {
	if len(inv.counts) != len(other.counts) || inv.numTiles != other.numTiles {
		return false
	}
	for i, c := range inv.counts {
		if other.counts[i] != c {
			return false
		}
	}
	return true
}

func (inv *Inventory) Clear() {
	for i := range inv.counts {
		inv.counts[i] = 0
	}
	inv.numTiles = 0
}

// Tiles returns every physical tile, ordered by tile index (colour, then
// number, joker last).
func (inv *Inventory) Tiles() []Tile {
	tiles := make([]Tile, 0, inv.numTiles)
	for i, c := range inv.counts {
		t := inv.indexer.TileAt(i)
		for j := 0; j < c; j++ {
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// ScoreOn returns the total face value of the tiles; jokers count 0.
func (inv *Inventory) ScoreOn() int {
	score := 0
	for i, c := range inv.counts {
		score += inv.indexer.TileAt(i).Value() * c
	}
	return score
}

// NumTiles returns the current number of tiles.
func (inv *Inventory) NumTiles() int {
	return inv.numTiles
}

func (inv *Inventory) Empty() bool {
	return inv.numTiles == 0
}

// String returns the tiles in notation, space separated.
func (inv *Inventory) String() string {
	return FormatTiles(inv.Tiles())
}

// ColourCounts summarises the inventory per colour, e.g. "3k, 2r, 1j".
func (inv *Inventory) ColourCounts() string {
	per := map[Colour]int{}
	order := []Colour{}
	for _, t := range inv.Tiles() {
		if per[t.Colour] == 0 {
			order = append(order, t.Colour)
		}
		per[t.Colour]++
	}
	parts := make([]string, len(order))
	for i, c := range order {
		parts[i] = c.Style(fmt.Sprintf("%d%c", per[c], c.Letter()))
	}
	return strings.Join(parts, ", ")
}
