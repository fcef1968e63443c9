package tilemapping

import (
	"fmt"
	"strconv"
)

// Colour is the colour of a numbered tile. The joker has its own pseudo
// colour so that a Tile can carry it without a separate flag.
type Colour uint8

const (
	Black Colour = iota
	Blue
	Orange
	Red
	Green
	Magenta
	White
	Cyan
	Joker
)

// MaxColours is the number of real colours a ruleset can choose from.
const MaxColours = 8

// JokerToken is the user-visible representation of a joker.
const JokerToken = 'j'

var colourLetters = [...]byte{'k', 'b', 'o', 'r', 'g', 'm', 'w', 'c', JokerToken}

var colourNames = [...]string{
	"black", "blue", "orange", "red", "green", "magenta", "white", "cyan", "joker",
}

// ANSI styles; black and the joker are shown reversed so they stay
// readable on dark terminals.
var colourStyles = [...]string{
	"\033[97;7m", "\033[94m", "\033[93m", "\033[91m",
	"\033[92m", "\033[95m", "\033[97m", "\033[96m", "\033[96;7m",
}

const styleReset = "\033[0m"

// Letter returns the single letter used in tile notation for this colour.
func (c Colour) Letter() byte {
	if int(c) >= len(colourLetters) {
		return '?'
	}
	return colourLetters[c]
}

func (c Colour) String() string {
	if int(c) >= len(colourNames) {
		return "Colour(" + strconv.Itoa(int(c)) + ")"
	}
	return colourNames[c]
}

// Style wraps text in the ANSI colour codes for this colour.
func (c Colour) Style(text string) string {
	if int(c) >= len(colourStyles) {
		return text
	}
	return colourStyles[c] + text + styleReset
}

// ColourFromLetter looks up the colour for a notation letter.
func ColourFromLetter(b byte) (Colour, bool) {
	for i, l := range colourLetters {
		if l == b {
			return Colour(i), true
		}
	}
	return 0, false
}

// Tile is a tile kind: a colour and a number, or the joker. Physical
// copies of the same kind are indistinguishable, so a Tile is also the
// key for every count structure.
type Tile struct {
	Colour Colour
	Number uint8
}

// JokerTile is the only tile kind with the Joker colour.
var JokerTile = Tile{Colour: Joker}

// NewTile creates a numbered tile.
func NewTile(c Colour, number int) Tile {
	return Tile{Colour: c, Number: uint8(number)}
}

func (t Tile) IsJoker() bool {
	return t.Colour == Joker
}

// Value is the face value of the tile. A joker on its own is worth nothing;
// its value inside a meld depends on the tile it stands in for.
func (t Tile) Value() int {
	if t.IsJoker() {
		return 0
	}
	return int(t.Number)
}

// String returns the tile in notation form, e.g. k13 or j.
func (t Tile) String() string {
	if t.IsJoker() {
		return string(JokerToken)
	}
	return fmt.Sprintf("%c%d", t.Colour.Letter(), t.Number)
}

// Styled returns the notation form with ANSI colours.
func (t Tile) Styled() string {
	return t.Colour.Style(t.String())
}

// Indexer maps tile kinds onto a dense range of indexes [0, NumTiles()).
// A ruleset implements it; inventories and models are built on top.
type Indexer interface {
	NumTiles() int
	Index(t Tile) (int, bool)
	TileAt(i int) Tile
}
