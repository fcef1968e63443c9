package solver

import "fmt"

// Mode selects the objective of a solve.
type Mode uint8

const (
	// Auto picks Initial until the player has opened, Tiles after.
	Auto Mode = iota
	// Tiles maximises the number of tiles placed.
	Tiles
	// Value maximises the point value of the tiles placed.
	Value
	// Initial places an opening meld from the rack alone, worth at least
	// the ruleset's minimum initial value.
	Initial
)

var modeNames = [...]string{"auto", "tiles", "value", "initial"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", m)
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	return Auto, fmt.Errorf("unknown solve mode %q", s)
}
