package solver

import (
	"context"
	"errors"
	"slices"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/rummikub/meld"
	"github.com/domino14/rummikub/milp"
	"github.com/domino14/rummikub/tilemapping"
)

// Arrangement is a decomposition of the table into legal melds.
type Arrangement struct {
	Melds []*meld.Meld
	// FreeJokers is the number of table jokers that can be taken off with
	// the remaining table still arrangeable. Melds uses the other jokers.
	FreeJokers int
	// Releasable lists the jokers in Melds that can be swapped for a tile
	// that is still undrawn or on another rack.
	Releasable []JokerRelease
}

// JokerRelease is a joker that a real tile can replace.
type JokerRelease struct {
	Meld *meld.Meld
	// Slot is the tile the joker stands for in Meld.
	Slot tilemapping.Tile
	// Replacements are the tile kinds that free the joker.
	Replacements []tilemapping.Tile
}

// Check arranges the table into legal melds. It returns ErrUnarrangeable
// if that is not possible. rack is only used to tell which tiles are still
// available to free a joker.
func (s *Solver) Check(ctx context.Context, rack, table *tilemapping.Inventory) (*Arrangement, error) {
	if err := s.rs.CheckInventories(rack, table); err != nil {
		return nil, err
	}
	jokerIdx, hasJokers := s.rs.JokerIndex()
	tableJokers := 0
	if hasJokers {
		tableJokers = table.CountAt(jokerIdx)
	}

	// Add jokers back one at a time; a joker that is not needed is free.
	for jc := 0; jc <= tableJokers; jc++ {
		t := table.Copy()
		if hasJokers {
			t.SetAt(jokerIdx, jc)
		}
		melds, err := s.arrange(ctx, t)
		if errors.Is(err, ErrUnarrangeable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		arr := &Arrangement{Melds: melds, FreeJokers: tableJokers - jc}
		if jc > 0 {
			arr.Releasable, err = s.releasable(ctx, s.rs.Available(rack, table), t, melds)
			if err != nil {
				return nil, err
			}
		}
		return arr, nil
	}
	return nil, ErrUnarrangeable
}

// arrange solves the feasibility problem of splitting t into melds.
func (s *Solver) arrange(ctx context.Context, t *tilemapping.Inventory) ([]*meld.Meld, error) {
	if t.Empty() {
		return nil, nil
	}
	model := Build(s.rs, s.Melds(), tilemapping.NewInventory(s.rs), t, Tiles, 0)
	a, err := s.solveModel(ctx, model.LP)
	if errors.Is(err, milp.ErrInfeasible) {
		return nil, ErrUnarrangeable
	}
	if err != nil {
		return nil, err
	}
	sol, err := model.Extract(a)
	if err != nil {
		return nil, err
	}
	return sol.Melds, nil
}

// jokerCandidates are the tiles a joker in position i of m could be
// swapped for. The meld keeps one interpretation of its tiles, but (k5 j j)
// reads as a group or as any run through k5, so the candidates cover the
// joker slots of every interpretation, those of m itself first.
func (s *Solver) jokerCandidates(m *meld.Meld, i int) []tilemapping.Tile {
	slots := m.Slots()
	var tiles []tilemapping.Tile
	seen := map[tilemapping.Tile]bool{}
	add := func(t tilemapping.Tile) {
		if !seen[t] {
			seen[t] = true
			tiles = append(tiles, t)
		}
	}
	if m.Kind() == meld.Run {
		add(slots[i])
	} else {
		s.groupSlots(m, int(slots[i].Number), add)
	}

	var faces []tilemapping.Tile
	for _, t := range m.Tiles() {
		if !t.IsJoker() {
			faces = append(faces, t)
		}
	}
	if len(faces) == 0 {
		return tiles
	}
	if lo, hi, ok := runSpan(faces); ok {
		n := m.Len()
		for start := max(1, hi-n+1); start <= min(lo, s.rs.Numbers()-n+1); start++ {
			for num := start; num < start+n; num++ {
				if t := tilemapping.NewTile(faces[0].Colour, num); !slices.Contains(faces, t) {
					add(t)
				}
			}
		}
	}
	if groupable(faces) && m.Len() <= s.rs.NumColours() {
		s.groupSlots(m, int(faces[0].Number), add)
	}
	return tiles
}

// groupSlots adds every colour of number n that is missing from m.
func (s *Solver) groupSlots(m *meld.Meld, n int, add func(tilemapping.Tile)) {
	present := map[tilemapping.Colour]bool{}
	for _, t := range m.Tiles() {
		if !t.IsJoker() {
			present[t.Colour] = true
		}
	}
	for _, c := range s.rs.Colours() {
		if !present[c] {
			add(tilemapping.NewTile(c, n))
		}
	}
}

// runSpan reports the lowest and highest number of tiles that could sit in
// one run: a single colour with no number repeated.
func runSpan(tiles []tilemapping.Tile) (lo, hi int, ok bool) {
	lo, hi = int(tiles[0].Number), int(tiles[0].Number)
	nums := map[int]bool{}
	for _, t := range tiles {
		if t.Colour != tiles[0].Colour || nums[int(t.Number)] {
			return 0, 0, false
		}
		nums[int(t.Number)] = true
		lo, hi = min(lo, int(t.Number)), max(hi, int(t.Number))
	}
	return lo, hi, true
}

// groupable reports whether tiles share one number with no colour
// repeated.
func groupable(tiles []tilemapping.Tile) bool {
	colours := map[tilemapping.Colour]bool{}
	for _, t := range tiles {
		if t.Number != tiles[0].Number || colours[t.Colour] {
			return false
		}
		colours[t.Colour] = true
	}
	return true
}

// releasable checks, for every joker in the arrangement of t, which
// available tiles could take its place with t still arrangeable.
func (s *Solver) releasable(ctx context.Context, avail, t *tilemapping.Inventory, melds []*meld.Meld) ([]JokerRelease, error) {
	type slot struct {
		meld       *meld.Meld
		tile       tilemapping.Tile
		candidates []tilemapping.Tile
	}
	var slots []slot
	var kinds []tilemapping.Tile
	seen := map[tilemapping.Tile]int{}
	for _, m := range melds {
		for i, tile := range m.Tiles() {
			if !tile.IsJoker() {
				continue
			}
			sl := slot{meld: m, tile: m.Slots()[i]}
			for _, c := range s.jokerCandidates(m, i) {
				if !avail.Has(c) {
					continue
				}
				sl.candidates = append(sl.candidates, c)
				if _, ok := seen[c]; !ok {
					seen[c] = len(kinds)
					kinds = append(kinds, c)
				}
			}
			slots = append(slots, sl)
		}
	}

	jokerIdx, _ := s.rs.JokerIndex()
	feasible := make([]bool, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		i, k := i, k
		g.Go(func() error {
			swapped := t.Copy()
			swapped.SetAt(jokerIdx, swapped.CountAt(jokerIdx)-1)
			if err := swapped.Add(k); err != nil {
				return err
			}
			_, err := s.arrange(gctx, swapped)
			switch {
			case err == nil:
				feasible[i] = true
			case !errors.Is(err, ErrUnarrangeable):
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var released []JokerRelease
	for _, sl := range slots {
		var repl []tilemapping.Tile
		for _, c := range sl.candidates {
			if feasible[seen[c]] {
				repl = append(repl, c)
			}
		}
		if len(repl) > 0 {
			released = append(released, JokerRelease{Meld: sl.meld, Slot: sl.tile, Replacements: repl})
		}
	}
	log.Debug().Int("jokers", len(slots)).Int("candidates", len(kinds)).Int("releasable", len(released)).
		Msg("checked-jokers")
	return released, nil
}
