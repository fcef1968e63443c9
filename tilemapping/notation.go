package tilemapping

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrEmptyToken = errors.New("empty tile token")

// tileRef matches a single tile (k3), a run of one colour (k3-6) or a
// group of one number (kro10).
var tileRef = regexp.MustCompile(`^(?:` +
	`(?P<run>[kbormgwc])(?P<start>[1-9][0-9]?)-(?P<end>[1-9][0-9]?)` +
	`|(?P<colours>[kbormgwc]{2,})(?P<num>[1-9][0-9]?)` +
	`|(?P<colour>[kbormgwc])(?P<single>[1-9][0-9]?)` +
	`|(?P<joker>j)` +
	`)$`)

// ParseTile parses a single tile token such as k13 or j.
func ParseTile(token string) (Tile, error) {
	tiles, err := ExpandToken(token)
	if err != nil {
		return Tile{}, err
	}
	if len(tiles) != 1 {
		return Tile{}, fmt.Errorf("%q is not a single tile", token)
	}
	return tiles[0], nil
}

// ExpandToken turns a single token into the tiles it names. Runs and
// groups are expanded: k1-3 is k1 k2 k3, and kro5 is k5 r5 o5.
func ExpandToken(token string) ([]Tile, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return nil, ErrEmptyToken
	}
	m := tileRef.FindStringSubmatch(token)
	if m == nil {
		return nil, fmt.Errorf("invalid tile %q", token)
	}
	group := func(name string) string {
		return m[tileRef.SubexpIndex(name)]
	}
	switch {
	case group("joker") != "":
		return []Tile{JokerTile}, nil
	case group("colour") != "":
		c, _ := ColourFromLetter(group("colour")[0])
		n, _ := strconv.Atoi(group("single"))
		return []Tile{NewTile(c, n)}, nil
	case group("run") != "":
		c, _ := ColourFromLetter(group("run")[0])
		start, _ := strconv.Atoi(group("start"))
		end, _ := strconv.Atoi(group("end"))
		if end < start {
			return nil, fmt.Errorf("run %q ends before it starts", token)
		}
		tiles := make([]Tile, 0, end-start+1)
		for n := start; n <= end; n++ {
			tiles = append(tiles, NewTile(c, n))
		}
		return tiles, nil
	default:
		n, _ := strconv.Atoi(group("num"))
		letters := group("colours")
		tiles := make([]Tile, 0, len(letters))
		seen := map[byte]bool{}
		for i := 0; i < len(letters); i++ {
			if seen[letters[i]] {
				return nil, fmt.Errorf("group %q repeats colour %c", token, letters[i])
			}
			seen[letters[i]] = true
			c, _ := ColourFromLetter(letters[i])
			tiles = append(tiles, NewTile(c, n))
		}
		return tiles, nil
	}
}

// ParseTiles parses whitespace or comma separated tokens.
func ParseTiles(s string) ([]Tile, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	tiles := []Tile{}
	for _, f := range fields {
		t, err := ExpandToken(f)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, t...)
	}
	return tiles, nil
}

// FormatTiles is the inverse of ParseTiles for individual tokens.
func FormatTiles(tiles []Tile) string {
	parts := make([]string, len(tiles))
	for i, t := range tiles {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// StyledTiles formats tiles comma separated with ANSI colours.
func StyledTiles(tiles []Tile) string {
	parts := make([]string, len(tiles))
	for i, t := range tiles {
		parts[i] = t.Styled()
	}
	return strings.Join(parts, ", ")
}
