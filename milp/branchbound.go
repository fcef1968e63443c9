package milp

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultTolerance    = 1e-9
	DefaultIntTolerance = 1e-6
)

// virtualBound caps variables that could grow without limit and that the
// objective pushes upwards, so the dual simplex method can start from a
// slack basis. A solution ending on it is unbounded.
const virtualBound = 1e6

// BranchAndBound solves models by best-bound branch and bound with
// plunging. Relaxations run on a bounded dual simplex tableau, and a child
// node starts from its parent's basis, so only the pivots the new bound
// forces are paid for.
type BranchAndBound struct {
	// Tolerance is the numeric tolerance of the simplex method and of
	// constraint checks.
	Tolerance float64
	// IntTolerance is how far from an integer a value may be and still
	// count as integral.
	IntTolerance float64
	// MaxNodes bounds the number of relaxations solved. 0 means no limit.
	MaxNodes int
	// MaxTime bounds the wall time of one Solve. 0 means no limit.
	MaxTime time.Duration
}

func (b *BranchAndBound) Name() string {
	if b.MaxTime > 0 {
		return fmt.Sprintf("branch-and-bound(max-nodes=%d,max-time=%v)", b.MaxNodes, b.MaxTime)
	}
	return fmt.Sprintf("branch-and-bound(max-nodes=%d)", b.MaxNodes)
}

func (b *BranchAndBound) tolerances() (float64, float64) {
	tol, intTol := b.Tolerance, b.IntTolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if intTol <= 0 {
		intTol = DefaultIntTolerance
	}
	return tol, intTol
}

// boundChange is the bounds of one variable after a branch.
type boundChange struct {
	v            int
	lower, upper float64
}

// node is an open subproblem: the root bounds with changes applied in
// order, and the basis of the parent it was split from.
type node struct {
	bound   float64
	changes []boundChange
	basis   *basis
}

// nodeQueue is a min-heap on node bounds. Ties go to the deeper node.
type nodeQueue []*node

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound < q[j].bound
	}
	return len(q[i].changes) > len(q[j].changes)
}
func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)   { *q = append(*q, x.(*node)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}

type search struct {
	ctx          context.Context
	bb           *BranchAndBound
	m            *Model
	p            *problem
	lower, upper []float64
	virtual      []bool
	integral     bool
	tol, intTol  float64
	start        time.Time
	open         nodeQueue
	nodes        int
	best         []float64
	bestObj      float64
}

func (b *BranchAndBound) Solve(ctx context.Context, m *Model) (a *Assignment, err error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			a = nil
			err = &BackendError{Backend: b.Name(), Err: fmt.Errorf("simplex panicked: %v", r)}
		}
	}()
	tol, intTol := b.tolerances()
	if len(m.Vars) == 0 {
		if !m.Satisfied(nil, tol) {
			return nil, ErrInfeasible
		}
		return &Assignment{Values: []float64{}}, nil
	}

	// Everything below minimizes.
	sign := 1.0
	if m.Sense == Maximize {
		sign = -1
	}
	cost := make([]float64, len(m.Objective))
	for j, c := range m.Objective {
		cost[j] = sign * c
	}
	s := &search{
		ctx:      ctx,
		bb:       b,
		m:        m,
		p:        newProblem(m, cost),
		lower:    make([]float64, len(m.Vars)),
		upper:    make([]float64, len(m.Vars)),
		virtual:  make([]bool, len(m.Vars)),
		integral: integralObjective(m),
		tol:      tol,
		intTol:   intTol,
		start:    time.Now(),
		bestObj:  math.Inf(1),
	}
	for j, v := range m.Vars {
		s.lower[j], s.upper[j] = v.Lower, v.Upper
		if v.Integer {
			s.lower[j] = math.Ceil(v.Lower - intTol)
			if !math.IsInf(v.Upper, 1) {
				s.upper[j] = math.Floor(v.Upper + intTol)
			}
		}
		if s.lower[j] > s.upper[j] {
			return nil, ErrInfeasible
		}
		if cost[j] < 0 && math.IsInf(s.upper[j], 1) {
			s.upper[j] = max(virtualBound, s.lower[j]+virtualBound)
			s.virtual[j] = true
		}
	}

	heap.Push(&s.open, &node{bound: math.Inf(-1)})
	for s.open.Len() > 0 {
		nd := heap.Pop(&s.open).(*node)
		if nd.bound > s.cutoff() {
			continue
		}
		if err := s.plunge(nd); err != nil {
			if errors.Is(err, ErrNodeLimit) {
				log.Debug().Str("model", m.Name).Int("nodes", s.nodes).Msg("node-limit")
			}
			return nil, err
		}
	}
	log.Debug().Str("model", m.Name).Int("nodes", s.nodes).Bool("feasible", s.best != nil).
		Dur("elapsed", time.Since(s.start)).Msg("branch-and-bound")
	if s.best == nil {
		return nil, ErrInfeasible
	}
	for j, v := range s.virtual {
		if v && s.best[j] >= virtualBound-0.5 {
			return nil, &BackendError{Backend: b.Name(), Err: ErrUnbounded}
		}
	}
	return &Assignment{Values: s.best, Objective: m.Value(s.best), Nodes: s.nodes}, nil
}

// cutoff is the largest relaxation value that can still lead to a better
// incumbent. With an integral objective the bound rounds up.
func (s *search) cutoff() float64 {
	switch {
	case s.best == nil:
		return math.Inf(1)
	case s.integral:
		return s.bestObj - 1 + s.intTol
	}
	return s.bestObj - s.intTol
}

// check reports cancellation and the time budget.
func (s *search) check() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if s.bb.MaxTime > 0 && time.Since(s.start) > s.bb.MaxTime {
		log.Debug().Str("model", s.m.Name).Int("nodes", s.nodes).Msg("time-limit")
		return &BackendError{Backend: s.bb.Name(), Err: ErrTimeLimit}
	}
	return nil
}

// tableau builds the relaxation of nd, warm from its parent's basis when
// that still factors.
func (s *search) tableau(nd *node) (*tableau, error) {
	lower, upper := slices.Clone(s.lower), slices.Clone(s.upper)
	for _, c := range nd.changes {
		lower[c.v], upper[c.v] = c.lower, c.upper
	}
	tb := newTableau(s.p, lower, upper, s.tol)
	if nd.basis != nil {
		tb.setBasis(nd.basis)
		if err := tb.refresh(); err == nil {
			return tb, nil
		}
	}
	tb.slackBasis()
	if err := tb.refresh(); err != nil {
		return nil, &BackendError{Backend: s.bb.Name(), Err: err}
	}
	return tb, nil
}

// plunge solves nd and keeps diving into the child nearer the rounded
// value, queueing the other child, until the dive is pruned or integral.
func (s *search) plunge(nd *node) error {
	tb, err := s.tableau(nd)
	if err != nil {
		return err
	}
	changes := nd.changes
	for {
		if err := s.check(); err != nil {
			return err
		}
		if s.bb.MaxNodes > 0 && s.nodes >= s.bb.MaxNodes {
			return &BackendError{Backend: s.bb.Name(), Err: ErrNodeLimit}
		}
		s.nodes++

		cutoff := s.cutoff()
		status, err := tb.solve(cutoff, s.check)
		if errors.Is(err, ErrStalled) {
			return &BackendError{Backend: s.bb.Name(), Err: err}
		}
		if err != nil {
			return err
		}
		if status != lpOptimal {
			return nil
		}
		obj := tb.objective()
		if obj > cutoff {
			return nil
		}
		k := mostFractional(s.m.Vars, tb.x, s.intTol)
		if k < 0 {
			s.incumbent(tb.x)
			return nil
		}

		v := tb.x[k]
		down := boundChange{v: k, lower: tb.lb[k], upper: math.Floor(v)}
		up := boundChange{v: k, lower: math.Ceil(v), upper: tb.ub[k]}
		next, other := up, down
		if v-math.Floor(v) < 0.5 {
			next, other = down, up
		}
		heap.Push(&s.open, &node{
			bound:   obj,
			changes: append(slices.Clip(changes), other),
			basis:   tb.snapshot(),
		})
		changes = append(slices.Clip(changes), next)
		tb.setBounds(next.v, next.lower, next.upper)
	}
}

func (s *search) incumbent(x []float64) {
	best := slices.Clone(x[:len(s.m.Vars)])
	for j, v := range s.m.Vars {
		if v.Integer {
			best[j] = math.Round(best[j])
		}
	}
	if !s.m.Satisfied(best, max(s.intTol, primalTol)) {
		log.Debug().Str("model", s.m.Name).Msg("rounded-point-rejected")
		return
	}
	obj := floats.Dot(s.p.cost[:len(best)], best)
	if obj < s.bestObj {
		s.best, s.bestObj = best, obj
	}
}

// integralObjective reports whether the objective only takes integer
// values on integer points, which allows rounding relaxation bounds.
func integralObjective(m *Model) bool {
	for j, c := range m.Objective {
		if c == 0 {
			continue
		}
		if !m.Vars[j].Integer || c != math.Trunc(c) {
			return false
		}
	}
	return true
}

func mostFractional(vars []Var, x []float64, intTol float64) int {
	best, bestDist := -1, 1.0
	for j, v := range vars {
		if !v.Integer {
			continue
		}
		f := x[j] - math.Floor(x[j])
		if f <= intTol || f >= 1-intTol {
			continue
		}
		if d := math.Abs(f - 0.5); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}
