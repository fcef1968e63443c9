package tilemapping

import (
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
)

// fourColours is a 13-number, 4-colour tile set with a joker.
type fourColours struct{}

func (fourColours) NumTiles() int { return 13*4 + 1 }

func (fourColours) Index(t Tile) (int, bool) {
	if t.IsJoker() {
		return 52, true
	}
	if t.Colour >= 4 || t.Number < 1 || t.Number > 13 {
		return 0, false
	}
	return int(t.Colour)*13 + int(t.Number) - 1, true
}

func (fourColours) TileAt(i int) Tile {
	if i == 52 {
		return JokerTile
	}
	return NewTile(Colour(i/13), i%13+1)
}

func TestInventoryFromString(t *testing.T) {
	is := is.New(t)
	inv, err := InventoryFromString(fourColours{}, "k1 k1 r5 j")
	is.NoErr(err)

	expected := make([]int, 53)
	expected[0] = 2
	expected[3*13+4] = 1
	expected[52] = 1
	assert.Equal(t, expected, inv.Counts())
	is.Equal(inv.NumTiles(), 4)
	is.Equal(inv.String(), "k1 k1 r5 j")
}

func TestInventoryTake(t *testing.T) {
	is := is.New(t)
	inv, err := InventoryFromString(fourColours{}, "k1 k1 r5")
	is.NoErr(err)

	is.NoErr(inv.Take(NewTile(Black, 1)))
	is.Equal(inv.CountOf(NewTile(Black, 1)), 1)

	// taking more than is present leaves the inventory untouched
	err = inv.Take(NewTile(Red, 5), NewTile(Red, 5))
	is.True(err != nil)
	is.Equal(inv.CountOf(NewTile(Red, 5)), 1)
	is.Equal(inv.NumTiles(), 2)
}

func TestInventoryRejectsUnknownTile(t *testing.T) {
	is := is.New(t)
	inv := NewInventory(fourColours{})
	err := inv.Add(NewTile(Black, 3), NewTile(Green, 3))
	is.True(err != nil)
	is.True(inv.Empty())
}

func TestInventoryArithmetic(t *testing.T) {
	is := is.New(t)
	a, err := InventoryFromString(fourColours{}, "k1-4 j")
	is.NoErr(err)
	b, err := InventoryFromString(fourColours{}, "k2 k3")
	is.NoErr(err)

	is.True(a.Contains(b))
	is.True(!b.Contains(a))

	c := a.Copy()
	c.Subtract(b)
	is.Equal(c.String(), "k1 k4 j")
	is.Equal(a.NumTiles(), 5)

	c.AddInventory(b)
	is.True(c.Equal(a))
	is.Equal(a.ScoreOn(), 10)

	c.SetAt(0, 0)
	is.Equal(c.NumTiles(), 4)
	c.Clear()
	is.True(c.Empty())
}
