package milp

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// primalTol is how far a basic variable may sit outside its bounds.
	primalTol = 1e-7
	// pivotTol is the smallest tableau entry accepted as a pivot.
	pivotTol = 1e-7
	// refreshEvery is the number of pivots after which the tableau is
	// rebuilt from its basis.
	refreshEvery = 100
)

// problem is a model in bounded row form: row i reads
//
//	sum_j a_ij x_j - r_i = 0
//
// with one activity variable r_i per constraint whose bounds carry the
// relation. Activities are numbered after the structural columns.
type problem struct {
	rows, cols int
	a          *mat.Dense
	cost       []float64
	rowLower   []float64
	rowUpper   []float64
}

func newProblem(m *Model, cost []float64) *problem {
	cols := len(m.Vars)
	// A model without constraints gets one free row so the tableau is
	// never empty.
	rows := max(len(m.Constraints), 1)
	p := &problem{
		rows:     rows,
		cols:     cols,
		a:        mat.NewDense(rows, cols, nil),
		cost:     make([]float64, cols+rows),
		rowLower: make([]float64, rows),
		rowUpper: make([]float64, rows),
	}
	copy(p.cost, cost)
	for i := range p.rowLower {
		p.rowLower[i], p.rowUpper[i] = math.Inf(-1), math.Inf(1)
	}
	for i, c := range m.Constraints {
		for _, t := range c.Terms {
			p.a.Set(i, t.Var, p.a.At(i, t.Var)+t.Coef)
		}
		switch c.Rel {
		case EQ:
			p.rowLower[i], p.rowUpper[i] = c.RHS, c.RHS
		case LE:
			p.rowUpper[i] = c.RHS
		case GE:
			p.rowLower[i] = c.RHS
		}
	}
	return p
}

type varState uint8

const (
	atLower varState = iota
	atUpper
	inBasis
)

// basis is enough of a tableau to rebuild it under other bounds.
type basis struct {
	basic []int
	state []varState
}

type lpStatus uint8

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpCutoff
)

// tableau runs the bounded dual simplex method on a problem. It keeps the
// full tableau B⁻¹[A | -I], the reduced costs, and the value of every
// variable. Nonbasic variables sit at one of their bounds.
type tableau struct {
	p      *problem
	lb, ub []float64
	basic  []int
	state  []varState
	t      *mat.Dense
	d      []float64
	x      []float64
	tol    float64
	pivots int
}

// newTableau returns a tableau for p under the structural bounds lower and
// upper. It has no basis yet.
func newTableau(p *problem, lower, upper []float64, tol float64) *tableau {
	return &tableau{
		p:     p,
		lb:    append(slices.Clone(lower), p.rowLower...),
		ub:    append(slices.Clone(upper), p.rowUpper...),
		basic: make([]int, p.rows),
		state: make([]varState, p.cols+p.rows),
		t:     mat.NewDense(p.rows, p.cols+p.rows, nil),
		d:     make([]float64, p.cols+p.rows),
		x:     make([]float64, p.cols+p.rows),
		tol:   tol,
	}
}

// slackBasis makes every activity basic. Its inverse is -I, so it always
// factors, and with zero activity costs it is dual feasible once the
// structural columns are put at the bound their cost prefers.
func (tb *tableau) slackBasis() {
	for j := 0; j < tb.p.cols; j++ {
		tb.state[j] = atLower
	}
	for i := range tb.basic {
		tb.basic[i] = tb.p.cols + i
		tb.state[tb.p.cols+i] = inBasis
	}
}

func (tb *tableau) setBasis(b *basis) {
	copy(tb.basic, b.basic)
	copy(tb.state, b.state)
}

func (tb *tableau) snapshot() *basis {
	return &basis{basic: slices.Clone(tb.basic), state: slices.Clone(tb.state)}
}

// column writes column j of [A | -I] into dst.
func (tb *tableau) column(dst []float64, j int) {
	if j < tb.p.cols {
		mat.Col(dst, j, tb.p.a)
		return
	}
	clear(dst)
	dst[j-tb.p.cols] = -1
}

// refresh rebuilds the tableau, the reduced costs and the basic values
// from the basis. Nonbasic columns whose reduced cost has the wrong sign
// move to their other bound when it is finite.
func (tb *tableau) refresh() error {
	p := tb.p
	b := mat.NewDense(p.rows, p.rows, nil)
	col := make([]float64, p.rows)
	for k, j := range tb.basic {
		tb.column(col, j)
		b.SetCol(k, col)
	}
	var inv mat.Dense
	if err := inv.Inverse(b); err != nil {
		return err
	}
	var ia mat.Dense
	ia.Mul(&inv, p.a)
	for i := 0; i < p.rows; i++ {
		row := tb.t.RawRowView(i)
		copy(row[:p.cols], ia.RawRowView(i))
		for k := 0; k < p.rows; k++ {
			row[p.cols+k] = -inv.At(i, k)
		}
	}

	copy(tb.d, p.cost)
	for i, j := range tb.basic {
		if c := p.cost[j]; c != 0 {
			floats.AddScaled(tb.d, -c, tb.t.RawRowView(i))
		}
	}
	for j, s := range tb.state {
		switch {
		case s == inBasis:
			tb.d[j] = 0
		case s == atLower && tb.d[j] < -tb.tol && !math.IsInf(tb.ub[j], 1):
			tb.state[j] = atUpper
		case s == atUpper && tb.d[j] > tb.tol && !math.IsInf(tb.lb[j], -1):
			tb.state[j] = atLower
		}
	}
	tb.values()
	tb.pivots = 0
	return nil
}

// boundValue is where nonbasic variable j sits.
func (tb *tableau) boundValue(j int) float64 {
	switch {
	case tb.state[j] == atUpper && !math.IsInf(tb.ub[j], 1):
		return tb.ub[j]
	case !math.IsInf(tb.lb[j], -1):
		return tb.lb[j]
	case !math.IsInf(tb.ub[j], 1):
		return tb.ub[j]
	}
	return 0
}

// values puts the nonbasic variables at their bounds and solves for the
// basic ones: x_B = -Σ_N T_j x_j.
func (tb *tableau) values() {
	xn := make([]float64, len(tb.x))
	for j, s := range tb.state {
		if s != inBasis {
			xn[j] = tb.boundValue(j)
		}
	}
	copy(tb.x, xn)
	for i, j := range tb.basic {
		tb.x[j] = -floats.Dot(tb.t.RawRowView(i), xn)
	}
}

// setBounds changes the bounds of structural variable j, moving it along
// with every basic value when it is nonbasic.
func (tb *tableau) setBounds(j int, lower, upper float64) {
	tb.lb[j], tb.ub[j] = lower, upper
	if tb.state[j] == inBasis {
		return
	}
	delta := tb.boundValue(j) - tb.x[j]
	if delta == 0 {
		return
	}
	for i, k := range tb.basic {
		tb.x[k] -= tb.t.At(i, j) * delta
	}
	tb.x[j] += delta
}

func (tb *tableau) objective() float64 {
	return floats.Dot(tb.p.cost, tb.x)
}

// leaving picks the basic variable furthest outside its bounds. It returns
// -1 when the basis is primal feasible.
func (tb *tableau) leaving() (row int, below bool) {
	row = -1
	worst := primalTol
	for i, j := range tb.basic {
		v := tb.x[j]
		if gap := tb.lb[j] - v; gap > worst {
			row, below, worst = i, true, gap
		} else if gap := v - tb.ub[j]; gap > worst {
			row, below, worst = i, false, gap
		}
	}
	return row, below
}

// entering runs the dual ratio test on row r. It returns -1 when no
// nonbasic variable can move the leaving one back into its bounds, which
// proves the relaxation infeasible.
func (tb *tableau) entering(r int, below bool) int {
	tr := tb.t.RawRowView(r)
	q, best, bestAlpha := -1, math.Inf(1), 0.0
	for j, s := range tb.state {
		if s == inBasis || tb.lb[j] == tb.ub[j] {
			continue
		}
		alpha := tr[j]
		if math.Abs(alpha) < pivotTol {
			continue
		}
		// Raising a variable lowers the basic one when alpha > 0.
		up := s == atLower
		if below == (up == (alpha > 0)) {
			continue
		}
		dj := tb.d[j]
		if up {
			dj = max(dj, 0)
		} else {
			dj = max(-dj, 0)
		}
		ratio := dj / math.Abs(alpha)
		if ratio < best-tb.tol || (ratio <= best+tb.tol && math.Abs(alpha) > bestAlpha) {
			q, best, bestAlpha = j, ratio, math.Abs(alpha)
		}
	}
	return q
}

// pivot brings q into the basis in place of the variable of row r, which
// leaves at the bound it violated.
func (tb *tableau) pivot(r, q int, below bool) {
	tr := tb.t.RawRowView(r)
	alpha := tr[q]
	leave := tb.basic[r]
	target := tb.ub[leave]
	if below {
		target = tb.lb[leave]
	}
	if step := (tb.x[leave] - target) / alpha; step != 0 {
		for i, j := range tb.basic {
			tb.x[j] -= tb.t.At(i, q) * step
		}
		tb.x[q] += step
	}
	tb.x[leave] = target

	floats.Scale(1/alpha, tr)
	for i := range tb.basic {
		if i == r {
			continue
		}
		ri := tb.t.RawRowView(i)
		if f := ri[q]; f != 0 {
			floats.AddScaled(ri, -f, tr)
		}
	}
	if dq := tb.d[q]; dq != 0 {
		floats.AddScaled(tb.d, -dq, tr)
	}
	tb.d[q] = 0

	tb.basic[r] = q
	tb.state[q] = inBasis
	if below {
		tb.state[leave] = atLower
	} else {
		tb.state[leave] = atUpper
	}
	tb.pivots++
}

// solve runs dual simplex pivots from a dual feasible basis until the
// basis is also primal feasible. The objective only grows on the way, so
// the search stops as soon as it passes cutoff. check is polled every few
// pivots and its error ends the search.
func (tb *tableau) solve(cutoff float64, check func() error) (lpStatus, error) {
	maxPivots := 50*(tb.p.rows+tb.p.cols) + 1000
	for iter := 0; ; iter++ {
		if iter%64 == 63 {
			if err := check(); err != nil {
				return 0, err
			}
		}
		if iter > maxPivots {
			return 0, ErrStalled
		}
		if tb.pivots >= refreshEvery {
			if err := tb.rebuild(); err != nil {
				return 0, err
			}
		}
		if tb.objective() > cutoff {
			return lpCutoff, nil
		}
		r, below := tb.leaving()
		if r < 0 {
			if tb.pivots > 0 {
				// Confirm on a freshly factored tableau.
				if err := tb.rebuild(); err != nil {
					return 0, err
				}
				if r, _ = tb.leaving(); r >= 0 {
					continue
				}
			}
			return lpOptimal, nil
		}
		q := tb.entering(r, below)
		if q < 0 {
			return lpInfeasible, nil
		}
		tb.pivot(r, q, below)
	}
}

// rebuild refreshes the tableau, falling back to the slack basis when the
// current basis no longer factors.
func (tb *tableau) rebuild() error {
	if err := tb.refresh(); err == nil {
		return nil
	}
	tb.slackBasis()
	return tb.refresh()
}
