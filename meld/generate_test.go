package meld

import (
	"math/bits"
	"sort"
	"testing"

	"github.com/matryer/is"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/domino14/rummikub/rules"
	"github.com/domino14/rummikub/tilemapping"
)

func keyOf(t *testing.T, rs *rules.Ruleset, s string) string {
	tiles, err := tilemapping.ParseTiles(s)
	if err != nil {
		t.Fatal(err)
	}
	idxs := make([]int, len(tiles))
	for i, tl := range tiles {
		idx, ok := rs.Index(tl)
		if !ok {
			t.Fatalf("tile %v not in ruleset", tl)
		}
		idxs[i] = idx
	}
	sort.Ints(idxs)
	key := make([]byte, len(idxs))
	for i, idx := range idxs {
		key[i] = byte(idx)
	}
	return string(key)
}

func byKey(melds []*Meld) map[string]*Meld {
	m := map[string]*Meld{}
	for _, ml := range melds {
		m[ml.Key()] = ml
	}
	return m
}

func TestGenerateAllLegal(t *testing.T) {
	is := is.New(t)
	rs := rules.Default()
	melds := Generate(rs)
	is.True(len(melds) > 0)
	for i, m := range melds {
		if err := Validate(m, rs); err != nil {
			t.Fatalf("%v: %v", m, err)
		}
		if Redundant(m, rs) {
			t.Fatalf("%v has a joker that can be dropped", m)
		}
		if i > 0 && melds[i-1].Key() >= m.Key() {
			t.Fatalf("melds out of order or duplicated at %d", i)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	is := is.New(t)
	rs := rules.Default()
	a, b := Generate(rs), Generate(rs)
	is.Equal(len(a), len(b))
	for i := range a {
		is.Equal(a[i].Key(), b[i].Key())
		is.Equal(a[i].Value(), b[i].Value())
	}
}

func TestGenerateJokerInterpretations(t *testing.T) {
	is := is.New(t)
	rs := rules.Default()
	melds := byKey(Generate(rs))

	m, ok := melds[keyOf(t, rs, "k12 k13 j")]
	is.True(ok)
	is.Equal(m.Kind(), Run)
	is.Equal(m.Value(), 36)
	is.Equal(m.JokerValue(), 11)

	// run k5 k6 k7 scores more than any group of fives
	m, ok = melds[keyOf(t, rs, "k5 j j")]
	is.True(ok)
	is.Equal(m.Value(), 18)
	is.Equal(m.Jokers(), 2)

	m, ok = melds[keyOf(t, rs, "k1 j k3 k4")]
	is.True(ok)
	is.Equal(m.String(), "k1 j(k2) k3 k4")

	_, ok = melds[keyOf(t, rs, "k1 k2 k3 j")]
	is.True(!ok)
	_, ok = melds[keyOf(t, rs, "k7 b7 o7 j")]
	is.True(!ok)
	_, ok = melds[keyOf(t, rs, "k7 b7 o7 r7")]
	is.True(ok)
	_, ok = melds[keyOf(t, rs, "k1 k2 k3 k4 k5 k6")]
	is.True(!ok)
}

func TestGenerateWithoutJokers(t *testing.T) {
	is := is.New(t)
	p := rules.DefaultParams()
	p.Jokers = 0
	rs, err := rules.New(p)
	is.NoErr(err)
	melds := Generate(rs)
	// 4 colours of 11+10+9 runs, 13 numbers of 4+1 groups
	is.Equal(len(melds), 120+65)
	for _, m := range melds {
		is.Equal(m.Jokers(), 0)
	}
}

func TestValidateRejects(t *testing.T) {
	is := is.New(t)
	rs := rules.Default()
	k := tilemapping.Black
	gap := newMeld(rs, Run, []tilemapping.Tile{
		tilemapping.NewTile(k, 1), tilemapping.NewTile(k, 2), tilemapping.NewTile(k, 4),
	}, nil)
	is.True(Validate(gap, rs) != nil)

	short := newMeld(rs, Run, []tilemapping.Tile{
		tilemapping.NewTile(k, 1), tilemapping.NewTile(k, 2),
	}, nil)
	is.Equal(Validate(short, rs), ErrTooShort)

	sameColour := newMeld(rs, Group, []tilemapping.Tile{
		tilemapping.NewTile(k, 5), tilemapping.NewTile(k, 5), tilemapping.NewTile(tilemapping.Blue, 5),
	}, nil)
	is.True(Validate(sameColour, rs) != nil)
}

func TestCatalog(t *testing.T) {
	is := is.New(t)
	c := NewCatalog()
	rs := rules.Default()
	a := c.Sets(rs)
	b := c.Sets(rules.Default())
	is.Equal(len(a), len(b))
	is.True(a[0] == b[0])
	is.Equal(c.Len(), 1)
	c.Invalidate(rs)
	is.Equal(c.Len(), 0)
}

// minimalKey is the composition key of slots with the positions set in
// mask replaced by jokers.
func minimalKey(t *testing.T, rs *rules.Ruleset, slots []tilemapping.Tile, mask int) string {
	t.Helper()
	joker, _ := rs.JokerIndex()
	idxs := make([]int, len(slots))
	for i, s := range slots {
		if mask&(1<<i) != 0 {
			idxs[i] = joker
			continue
		}
		idx, ok := rs.Index(s)
		if !ok {
			t.Fatalf("tile %v not in ruleset", s)
		}
		idxs[i] = idx
	}
	sort.Ints(idxs)
	key := make([]byte, len(idxs))
	for i, idx := range idxs {
		key[i] = byte(idx)
	}
	return string(key)
}

func TestGenerateMinimalMelds(t *testing.T) {
	for _, tc := range []struct {
		name                             string
		numbers, colours, jokers, minLen int
	}{
		{"n6-c3-j3-m3", 6, 3, 3, 3},
		{"n5-c5-j4-m2", 5, 5, 4, 2},
		{"n8-c6-j2-m4", 8, 6, 2, 4},
		{"n2-c2-j1-m2", 2, 2, 1, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := rules.DefaultParams()
			p.Numbers, p.Colours, p.Jokers, p.MinLen = tc.numbers, tc.colours, tc.jokers, tc.minLen
			rs, err := rules.New(p)
			if err != nil {
				t.Fatal(err)
			}
			melds := Generate(rs)
			for _, m := range melds {
				if err := Validate(m, rs); err != nil {
					t.Fatalf("%v: %v", m, err)
				}
				if Redundant(m, rs) {
					t.Fatalf("%v has a joker that can be dropped", m)
				}
			}
			have := byKey(melds)

			var minimal [][]tilemapping.Tile
			colours := rs.Colours()
			for _, c := range colours {
				for start := 1; start+tc.minLen-1 <= tc.numbers; start++ {
					slots := make([]tilemapping.Tile, tc.minLen)
					for i := range slots {
						slots[i] = tilemapping.NewTile(c, start+i)
					}
					minimal = append(minimal, slots)
				}
			}
			if tc.minLen <= len(colours) {
				for n := 1; n <= tc.numbers; n++ {
					for _, cs := range combin.Combinations(len(colours), tc.minLen) {
						slots := make([]tilemapping.Tile, tc.minLen)
						for i, ci := range cs {
							slots[i] = tilemapping.NewTile(colours[ci], n)
						}
						minimal = append(minimal, slots)
					}
				}
			}
			if len(minimal) == 0 {
				t.Fatal("no minimal melds built")
			}

			for _, slots := range minimal {
				for mask := 0; mask < 1<<len(slots); mask++ {
					if bits.OnesCount(uint(mask)) > tc.jokers {
						continue
					}
					if _, ok := have[minimalKey(t, rs, slots, mask)]; !ok {
						t.Fatalf("no meld for %v with joker mask %b", slots, mask)
					}
				}
			}
		})
	}
}
