package solver

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/domino14/rummikub/meld"
	"github.com/domino14/rummikub/milp"
	"github.com/domino14/rummikub/rules"
	"github.com/domino14/rummikub/tilemapping"
)

// Model is the integer program of one solve request along with the meaning
// of its variables.
//
// Every meld that the combined supply can form at least once gets an
// integer multiplicity, every tile kind on the rack gets an integer count
// of tiles placed, and for each tile kind the melds must use exactly the
// table tiles plus the placed tiles.
type Model struct {
	LP *milp.Model

	rs         *rules.Ruleset
	mode       Mode
	table      *tilemapping.Inventory
	melds      []*meld.Meld
	meldVars   []int
	placedVars []int
}

// Build creates the model for rack and table under mode. In Initial mode
// the table is ignored: only rack tiles can be used and the melds formed
// must be worth at least the minimum initial value, jokers counting 0.
//
// In Value mode placed jokers are credited with what they add to the
// numbers all jokers stand for. baseline is the most the jokers already
// on the table stand for in an arrangement of the table alone; it is
// deducted once any joker is placed.
func Build(rs *rules.Ruleset, melds []*meld.Meld, rack, table *tilemapping.Inventory, mode Mode, baseline int) *Model {
	if mode == Initial {
		table = tilemapping.NewInventory(rs)
	}
	n := rs.NumTiles()
	m := &Model{
		LP:         milp.NewModel(fmt.Sprintf("%v-%s", mode, rs.Key()), milp.Maximize),
		rs:         rs,
		mode:       mode,
		table:      table.Copy(),
		placedVars: make([]int, n),
	}
	supply := make([]int, n)
	for k := range supply {
		supply[k] = table.CountAt(k) + rack.CountAt(k)
		m.placedVars[k] = -1
		if c := rack.CountAt(k); c > 0 {
			m.placedVars[k] = m.LP.AddVar("placed:"+rs.TileAt(k).String(), 0, float64(c), true)
		}
	}

	terms := make([][]milp.Term, n)
	for _, ml := range melds {
		ub := math.MaxInt
		for _, r := range ml.Requirements() {
			ub = min(ub, supply[r.Index]/r.Count)
		}
		if ub == 0 {
			continue
		}
		v := m.LP.AddVar("set:"+ml.String(), 0, float64(ub), true)
		m.melds = append(m.melds, ml)
		m.meldVars = append(m.meldVars, v)
		for _, r := range ml.Requirements() {
			terms[r.Index] = append(terms[r.Index], milp.Term{Var: v, Coef: float64(r.Count)})
		}
	}
	for k := range supply {
		if supply[k] == 0 {
			continue
		}
		ts := terms[k]
		if p := m.placedVars[k]; p >= 0 {
			ts = append(ts, milp.Term{Var: p, Coef: -1})
		}
		m.LP.AddConstraint("tile:"+rs.TileAt(k).String(), milp.EQ, float64(table.CountAt(k)), ts...)
	}

	jokerIdx, hasJokers := rs.JokerIndex()
	isJoker := func(k int) bool { return hasJokers && k == jokerIdx }
	switch mode {
	case Tiles:
		for _, p := range m.placedVars {
			if p >= 0 {
				m.LP.SetObjective(p, 1)
			}
		}
	case Value:
		for k, p := range m.placedVars {
			if p >= 0 && !isJoker(k) {
				m.LP.SetObjective(p, float64(rs.TileAt(k).Value()))
			}
		}
		if hasJokers && m.placedVars[jokerIdx] >= 0 {
			m.addJokerValue(jokerIdx, rack.CountAt(jokerIdx), baseline)
		}
	case Initial:
		// One more numbered tile outweighs every joker placed, so jokers
		// are only used when nothing else reaches the threshold.
		weight := float64(rs.Jokers() + 1)
		var score []milp.Term
		for k, p := range m.placedVars {
			switch {
			case p < 0:
			case isJoker(k):
				m.LP.SetObjective(p, -1)
			default:
				m.LP.SetObjective(p, weight)
				score = append(score, milp.Term{Var: p, Coef: float64(rs.TileAt(k).Value())})
			}
		}
		m.LP.AddConstraint("initial-value", milp.GE, float64(rs.MinInitialValue()), score...)
	}
	return m
}

// addJokerValue credits placed jokers with the joker value of the melds
// formed less baseline, the share of the jokers already on the table, and
// with at most the highest number per joker placed.
func (m *Model) addJokerValue(jokerIdx, rackJokers, baseline int) {
	numbers := float64(m.rs.Numbers())
	placed := m.placedVars[jokerIdx]
	w := m.LP.AddVar("joker-value", -float64(baseline), numbers*float64(rackJokers), true)
	m.LP.SetObjective(w, 1)
	bySets := []milp.Term{{Var: w, Coef: 1}}
	for i, ml := range m.melds {
		if jv := ml.JokerValue(); jv > 0 {
			bySets = append(bySets, milp.Term{Var: m.meldVars[i], Coef: -float64(jv)})
		}
	}
	if baseline > 0 {
		// some is 1 exactly when a joker is placed.
		some := m.LP.AddVar("jokers-placed", 0, 1, true)
		bySets = append(bySets, milp.Term{Var: some, Coef: float64(baseline)})
		m.LP.AddConstraint("jokers-placed-some", milp.LE, 0,
			milp.Term{Var: some, Coef: 1}, milp.Term{Var: placed, Coef: -1})
		m.LP.AddConstraint("jokers-placed-none", milp.LE, 0,
			milp.Term{Var: placed, Coef: 1}, milp.Term{Var: some, Coef: -float64(rackJokers)})
	}
	m.LP.AddConstraint("joker-value-sets", milp.LE, 0, bySets...)
	m.LP.AddConstraint("joker-value-placed", milp.LE, 0,
		milp.Term{Var: w, Coef: 1}, milp.Term{Var: placed, Coef: -numbers})
}

// creditJokers replaces the objective by the joker value of the melds.
func (m *Model) creditJokers() {
	for j := range m.LP.Objective {
		m.LP.Objective[j] = 0
	}
	for i, ml := range m.melds {
		m.LP.SetObjective(m.meldVars[i], float64(ml.JokerValue()))
	}
}

// Extract turns an assignment of the model into a Solution. A meld used n
// times appears n times. The arrangement must account for exactly the
// table and placed tiles, anything else is an *rules.InvariantError.
func (m *Model) Extract(a *milp.Assignment) (*Solution, error) {
	placed := tilemapping.NewInventory(m.rs)
	for k, p := range m.placedVars {
		if p >= 0 {
			placed.SetAt(k, a.Int(p))
		}
	}
	used := tilemapping.NewInventory(m.rs)
	var melds []*meld.Meld
	for i, ml := range m.melds {
		count := a.Int(m.meldVars[i])
		for n := 0; n < count; n++ {
			melds = append(melds, ml)
		}
		for _, r := range ml.Requirements() {
			used.SetAt(r.Index, used.CountAt(r.Index)+r.Count*count)
		}
	}
	expected := m.table.Copy()
	expected.AddInventory(placed)
	if !used.Equal(expected) {
		return nil, &rules.InvariantError{
			Msg: fmt.Sprintf("arrangement holds %v, table and placed tiles are %v", used, expected),
		}
	}
	return &Solution{
		Mode:      m.mode,
		Placed:    placed,
		Melds:     melds,
		Objective: a.Objective,
	}, nil
}

// Solution is the outcome of a successful solve.
type Solution struct {
	Mode Mode
	// Placed are the rack tiles to put on the table.
	Placed *tilemapping.Inventory
	// Melds is the arrangement of the table after placing. For an Initial
	// solve these are the opening melds only.
	Melds []*meld.Meld
	// Opening holds the opening melds when an Initial solve on a non-empty
	// table was followed by a second placement in the same turn.
	Opening   []*meld.Meld
	Objective float64
}

// Value is the point value of the placed tiles, jokers counting 0.
func (s *Solution) Value() int {
	return s.Placed.ScoreOn()
}

// MeldValue is the total value of the arrangement, jokers counting as the
// tile they stand for.
func (s *Solution) MeldValue() int {
	return lo.SumBy(s.Melds, func(m *meld.Meld) int { return m.Value() })
}
