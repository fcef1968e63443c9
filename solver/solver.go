// Package solver finds optimal placements of rack tiles onto the table and
// checks that a table can be arranged into legal melds.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/domino14/rummikub/meld"
	"github.com/domino14/rummikub/milp"
	"github.com/domino14/rummikub/rules"
	"github.com/domino14/rummikub/tilemapping"
)

var (
	// ErrNoSolution means no tile from the rack can be placed.
	ErrNoSolution = errors.New("no tiles can be placed")
	// ErrUnarrangeable means the table does not split into legal melds.
	ErrUnarrangeable = errors.New("table cannot be arranged into sets")
)

const DefaultAttempts = 3

// DefaultBackends is the backend chain used when none is configured. A
// retryable failure moves on to the next, more patient backend.
func DefaultBackends() []milp.Backend {
	return []milp.Backend{
		&milp.BranchAndBound{MaxNodes: 20000, MaxTime: 5 * time.Second},
		&milp.BranchAndBound{MaxNodes: 500000, Tolerance: 1e-8, MaxTime: 30 * time.Second},
	}
}

// Solver solves placements for one ruleset. It is safe for concurrent use.
type Solver struct {
	rs       *rules.Ruleset
	catalog  *meld.Catalog
	backends []milp.Backend
	attempts int
}

type Option func(*Solver)

// WithBackends sets the backend chain. Attempt n uses backend n, the last
// backend is reused for any further attempts.
func WithBackends(backends ...milp.Backend) Option {
	return func(s *Solver) {
		if len(backends) > 0 {
			s.backends = backends
		}
	}
}

func WithAttempts(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithCatalog shares a meld catalog between solvers.
func WithCatalog(c *meld.Catalog) Option {
	return func(s *Solver) { s.catalog = c }
}

func New(rs *rules.Ruleset, opts ...Option) *Solver {
	s := &Solver{
		rs:       rs,
		catalog:  meld.NewCatalog(),
		backends: DefaultBackends(),
		attempts: DefaultAttempts,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Solver) Ruleset() *rules.Ruleset { return s.rs }

// Melds returns every legal meld of the ruleset.
func (s *Solver) Melds() []*meld.Meld { return s.catalog.Sets(s.rs) }

// Solve finds the best placement of rack tiles onto the table under mode.
// It returns ErrNoSolution when no tile can be placed; this includes an
// Initial solve whose best opening stays below the minimum value.
func (s *Solver) Solve(ctx context.Context, rack, table *tilemapping.Inventory, mode Mode) (*Solution, error) {
	if mode == Auto {
		return nil, fmt.Errorf("solve needs a concrete mode, got %v", mode)
	}
	if err := s.rs.CheckInventories(rack, table); err != nil {
		return nil, err
	}
	if rack.Empty() {
		return nil, ErrNoSolution
	}
	baseline := 0
	if mode == Value {
		var err error
		if baseline, err = s.tableJokerValue(ctx, rack, table); err != nil {
			return nil, err
		}
	}
	model := Build(s.rs, s.Melds(), rack, table, mode, baseline)
	log.Debug().Str("model", model.LP.Name).Int("vars", len(model.LP.Vars)).
		Int("constraints", len(model.LP.Constraints)).Msg("built-model")
	a, err := s.solveModel(ctx, model.LP)
	if errors.Is(err, milp.ErrInfeasible) {
		return nil, ErrNoSolution
	}
	if err != nil {
		return nil, err
	}
	sol, err := model.Extract(a)
	if err != nil {
		return nil, err
	}
	if sol.Placed.Empty() {
		return nil, ErrNoSolution
	}
	return sol, nil
}

// tableJokerValue is the most the jokers on the table stand for in an
// arrangement of the table alone. It is 0 when no joker can be placed or
// the table only arranges with rack tiles added.
func (s *Solver) tableJokerValue(ctx context.Context, rack, table *tilemapping.Inventory) (int, error) {
	jokerIdx, ok := s.rs.JokerIndex()
	if !ok || rack.CountAt(jokerIdx) == 0 || table.CountAt(jokerIdx) == 0 {
		return 0, nil
	}
	model := Build(s.rs, s.Melds(), tilemapping.NewInventory(s.rs), table, Tiles, 0)
	model.creditJokers()
	a, err := s.solveModel(ctx, model.LP)
	if errors.Is(err, milp.ErrInfeasible) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(math.Round(a.Objective)), nil
}

// SolveTurn solves for a whole turn. Auto resolves to Initial while the
// player still has to open and to Tiles otherwise. An opening on a table
// that already holds tiles is followed by a Tiles solve with the opening
// on the table, so tiles that only fit onto existing sets are placed in the
// same turn.
func (s *Solver) SolveTurn(ctx context.Context, rack, table *tilemapping.Inventory, opening bool, mode Mode) (*Solution, error) {
	if mode == Auto {
		mode = Tiles
		if opening {
			mode = Initial
		}
	}
	first, err := s.Solve(ctx, rack, table, mode)
	if err != nil || mode != Initial || table.Empty() {
		return first, err
	}
	rest := rack.Copy()
	rest.Subtract(first.Placed)
	after := table.Copy()
	after.AddInventory(first.Placed)
	second, err := s.Solve(ctx, rest, after, Tiles)
	if errors.Is(err, ErrNoSolution) {
		return first, nil
	}
	if err != nil {
		return nil, err
	}
	second.Placed.AddInventory(first.Placed)
	second.Mode = Initial
	second.Opening = first.Melds
	return second, nil
}

func retryable(err error) bool {
	var be *milp.BackendError
	return errors.As(err, &be) && be.Retryable()
}

// solveModel runs the backend chain, retrying retryable backend failures.
func (s *Solver) solveModel(ctx context.Context, m *milp.Model) (*milp.Assignment, error) {
	var a *milp.Assignment
	attempt := 0
	err := retry.Do(
		func() error {
			b := s.backends[min(attempt, len(s.backends)-1)]
			attempt++
			var err error
			a, err = b.Solve(ctx, m)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.attempts)),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Uint("n", n).Str("model", m.Name).Msg("backend-failed-try-again")
		}),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
