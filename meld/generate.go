package meld

import (
	"sort"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/domino14/rummikub/rules"
	"github.com/domino14/rummikub/tilemapping"
)

// Generate enumerates every legal meld of the ruleset.
//
// Runs are between min-len and 2*min-len-1 tiles long; anything longer
// splits into two legal runs. Groups are between min-len and the number of
// colours in size. Jokers are combined in any position of a min-len meld.
// In longer melds a joker could be dropped while keeping the meld legal, so
// longer groups get no jokers and longer runs only get jokers between their
// first and last tile.
//
// Melds are unique by tile composition. When several interpretations share
// one, e.g. (k5 j j) as a run or a group, the highest-scoring
// interpretation is kept. The result is sorted by composition.
func Generate(rs *rules.Ruleset) []*Meld {
	b := &builder{rs: rs, byKey: map[string]*Meld{}}
	b.runs()
	b.groups()

	melds := make([]*Meld, 0, len(b.byKey))
	for _, m := range b.byKey {
		melds = append(melds, m)
	}
	sort.Slice(melds, func(i, j int) bool { return melds[i].key < melds[j].key })
	log.Debug().Str("ruleset", rs.String()).Int("melds", len(melds)).Msg("generated-melds")
	return melds
}

type builder struct {
	rs    *rules.Ruleset
	byKey map[string]*Meld
}

func (b *builder) runs() {
	minLen, numbers := b.rs.MinLen(), b.rs.Numbers()
	for _, c := range b.rs.Colours() {
		for length := minLen; length < 2*minLen && length <= numbers; length++ {
			for start := 1; start+length-1 <= numbers; start++ {
				slots := make([]tilemapping.Tile, length)
				for i := range slots {
					slots[i] = tilemapping.NewTile(c, start+i)
				}
				b.withJokers(Run, slots, length > minLen)
			}
		}
	}
}

func (b *builder) groups() {
	minLen, colours := b.rs.MinLen(), b.rs.Colours()
	for n := 1; n <= b.rs.Numbers(); n++ {
		for size := minLen; size <= len(colours); size++ {
			for _, cs := range combin.Combinations(len(colours), size) {
				slots := make([]tilemapping.Tile, size)
				for i, ci := range cs {
					slots[i] = tilemapping.NewTile(colours[ci], n)
				}
				if size == minLen {
					b.withJokers(Group, slots, false)
				} else {
					b.add(Group, slots, nil)
				}
			}
		}
	}
}

// withJokers adds the meld for slots with every admissible set of joker
// positions. innerOnly keeps the first and last position real.
func (b *builder) withJokers(kind Kind, slots []tilemapping.Tile, innerOnly bool) {
	b.add(kind, slots, nil)
	maxJokers := min(b.rs.Jokers(), len(slots))
	for r := 1; r <= maxJokers; r++ {
		for _, pos := range combin.Combinations(len(slots), r) {
			if innerOnly && (pos[0] == 0 || pos[len(pos)-1] == len(slots)-1) {
				continue
			}
			b.add(kind, slots, pos)
		}
	}
}

func (b *builder) add(kind Kind, slots []tilemapping.Tile, jokerPos []int) {
	m := newMeld(b.rs, kind, slots, jokerPos)
	if prev, ok := b.byKey[m.key]; ok && prev.value >= m.value {
		return
	}
	b.byKey[m.key] = m
}

func newMeld(rs *rules.Ruleset, kind Kind, slots []tilemapping.Tile, jokerPos []int) *Meld {
	m := &Meld{
		kind:  kind,
		slots: append([]tilemapping.Tile(nil), slots...),
		tiles: append([]tilemapping.Tile(nil), slots...),
	}
	for _, p := range jokerPos {
		m.tiles[p] = tilemapping.JokerTile
	}
	counts := map[int]int{}
	idxs := make([]int, 0, len(m.tiles))
	for i, t := range m.tiles {
		idx, _ := rs.Index(t)
		if counts[idx] == 0 {
			idxs = append(idxs, idx)
		}
		counts[idx]++
		m.value += m.slots[i].Value()
	}
	sort.Ints(idxs)
	key := make([]byte, 0, len(m.tiles))
	for _, idx := range idxs {
		m.reqs = append(m.reqs, Requirement{Index: idx, Count: counts[idx]})
		for j := 0; j < counts[idx]; j++ {
			key = append(key, byte(idx))
		}
	}
	m.key = string(key)
	return m
}
