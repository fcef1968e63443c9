package milp

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
)

func knapsack() *Model {
	m := NewModel("knapsack", Maximize)
	weights := []float64{5, 7, 4, 3}
	values := []float64{8, 11, 6, 4}
	terms := make([]Term, len(weights))
	for i := range weights {
		v := m.AddVar("x", 0, 1, true)
		m.SetObjective(v, values[i])
		terms[i] = Term{Var: v, Coef: weights[i]}
	}
	m.AddConstraint("capacity", LE, 14, terms...)
	return m
}

func TestKnapsack(t *testing.T) {
	is := is.New(t)
	bb := &BranchAndBound{}
	a, err := bb.Solve(context.Background(), knapsack())
	is.NoErr(err)
	is.Equal(a.Objective, 21.0)
	is.Equal([]int{a.Int(0), a.Int(1), a.Int(2), a.Int(3)}, []int{0, 1, 1, 1})
	is.True(a.Nodes > 1)
}

func TestFractionalRelaxation(t *testing.T) {
	is := is.New(t)
	m := NewModel("half", Maximize)
	x := m.AddVar("x", 0, math.Inf(1), true)
	y := m.AddVar("y", 0, math.Inf(1), true)
	m.SetObjective(x, 1)
	m.SetObjective(y, 1)
	m.AddConstraint("c", LE, 3, Term{x, 2}, Term{y, 2})

	a, err := (&BranchAndBound{}).Solve(context.Background(), m)
	is.NoErr(err)
	is.Equal(a.Objective, 1.0)
	is.True(m.Satisfied(a.Values, 1e-9))
}

func TestInfeasible(t *testing.T) {
	odd := NewModel("odd", Minimize)
	x := odd.AddVar("x", 0, 10, true)
	odd.AddConstraint("c", EQ, 3, Term{x, 2})

	tight := NewModel("tight", Maximize)
	a := tight.AddVar("a", 0, 2, true)
	b := tight.AddVar("b", 0, 2, true)
	tight.AddConstraint("c", GE, 5, Term{a, 1}, Term{b, 1})

	inconsistent := NewModel("inconsistent", Maximize)
	p := inconsistent.AddVar("p", 0, 5, true)
	q := inconsistent.AddVar("q", 0, 5, true)
	inconsistent.AddConstraint("c1", EQ, 2, Term{p, 1}, Term{q, 1})
	inconsistent.AddConstraint("c2", EQ, 5, Term{p, 2}, Term{q, 2})

	for _, m := range []*Model{odd, tight, inconsistent} {
		_, err := (&BranchAndBound{}).Solve(context.Background(), m)
		assert.ErrorIs(t, err, ErrInfeasible, m.Name)
	}
}

func TestDependentRows(t *testing.T) {
	is := is.New(t)
	m := NewModel("dependent", Maximize)
	x := m.AddVar("x", 0, 5, true)
	y := m.AddVar("y", 0, 5, true)
	m.SetObjective(x, 1)
	m.AddConstraint("c1", EQ, 2, Term{x, 1}, Term{y, 1})
	m.AddConstraint("c2", EQ, 4, Term{x, 2}, Term{y, 2})
	// a row with nothing left after x and y are fixed by bounds is fine too
	m.AddConstraint("c3", LE, 10, Term{x, 1}, Term{y, 1}, Term{x, -1}, Term{y, -1})

	a, err := (&BranchAndBound{}).Solve(context.Background(), m)
	is.NoErr(err)
	is.Equal(a.Int(x), 2)
	is.Equal(a.Int(y), 0)
}

func TestFixedVariables(t *testing.T) {
	is := is.New(t)
	m := NewModel("fixed", Minimize)
	x := m.AddVar("x", 3, 3, true)
	y := m.AddVar("y", 0, 10, true)
	m.SetObjective(y, 1)
	m.AddConstraint("sum", EQ, 7, Term{x, 1}, Term{y, 1})

	a, err := (&BranchAndBound{}).Solve(context.Background(), m)
	is.NoErr(err)
	is.Equal(a.Int(x), 3)
	is.Equal(a.Int(y), 4)
	is.Equal(a.Objective, 4.0)
}

func TestNodeLimit(t *testing.T) {
	is := is.New(t)
	_, err := (&BranchAndBound{MaxNodes: 1}).Solve(context.Background(), knapsack())
	var be *BackendError
	is.True(errors.As(err, &be))
	is.True(errors.Is(err, ErrNodeLimit))
	is.True(be.Retryable())
}

func TestCancelled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&BranchAndBound{}).Solve(ctx, knapsack())
	is.True(errors.Is(err, context.Canceled))
	is.True(!(&BackendError{Err: err}).Retryable())
}

func TestValidate(t *testing.T) {
	m := NewModel("bad", Minimize)
	m.AddVar("x", math.Inf(-1), 0, false)
	_, err := (&BranchAndBound{}).Solve(context.Background(), m)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInfeasible)
}

func TestTimeLimit(t *testing.T) {
	is := is.New(t)
	bb := &BranchAndBound{MaxTime: time.Nanosecond}
	_, err := bb.Solve(context.Background(), knapsack())
	var be *BackendError
	is.True(errors.As(err, &be))
	is.True(errors.Is(err, ErrTimeLimit))
	is.True(be.Retryable())
	is.Equal(be.Backend, "branch-and-bound(max-nodes=0,max-time=1ns)")
}

func TestUnbounded(t *testing.T) {
	is := is.New(t)
	m := NewModel("unbounded", Maximize)
	x := m.AddVar("x", 0, math.Inf(1), true)
	y := m.AddVar("y", 0, 4, true)
	m.SetObjective(x, 1)
	m.AddConstraint("c", LE, 3, Term{y, 1}, Term{x, -1})
	_, err := (&BranchAndBound{}).Solve(context.Background(), m)
	var be *BackendError
	is.True(errors.As(err, &be))
	is.True(errors.Is(err, ErrUnbounded))
	is.True(!be.Retryable())
}

// TestTwoKnapsacks checks a model that needs many branches against every
// subset of its items.
func TestTwoKnapsacks(t *testing.T) {
	is := is.New(t)
	const items = 14
	m := NewModel("two-knapsacks", Maximize)
	wa, wb, val := make([]float64, items), make([]float64, items), make([]float64, items)
	ta, tb := make([]Term, items), make([]Term, items)
	for i := 0; i < items; i++ {
		wa[i] = float64(3 + (i*7)%11)
		wb[i] = float64(2 + (i*5)%13)
		val[i] = float64(4 + (i*9)%17)
		v := m.AddVar("x", 0, 1, true)
		m.SetObjective(v, val[i])
		ta[i], tb[i] = Term{v, wa[i]}, Term{v, wb[i]}
	}
	m.AddConstraint("a", LE, 37, ta...)
	m.AddConstraint("b", LE, 41, tb...)

	best := 0.0
	for set := 0; set < 1<<items; set++ {
		var a, b, v float64
		for i := 0; i < items; i++ {
			if set&(1<<i) != 0 {
				a, b, v = a+wa[i], b+wb[i], v+val[i]
			}
		}
		if a <= 37 && b <= 41 {
			best = max(best, v)
		}
	}

	start := time.Now()
	a, err := (&BranchAndBound{}).Solve(context.Background(), m)
	is.NoErr(err)
	is.Equal(a.Objective, best)
	is.True(m.Satisfied(a.Values, 1e-9))
	is.True(time.Since(start) < 10*time.Second)
}
