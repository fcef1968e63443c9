// Package milp models small mixed integer linear programs and solves them
// through pluggable backends.
package milp

import (
	"context"
	"fmt"
	"math"
)

type Sense uint8

const (
	Minimize Sense = iota
	Maximize
)

// Rel is the relation of a constraint's left side to its right side.
type Rel uint8

const (
	EQ Rel = iota
	LE
	GE
)

func (r Rel) String() string {
	switch r {
	case LE:
		return "<="
	case GE:
		return ">="
	}
	return "="
}

// Var is a decision variable. Lower must be finite; Upper may be +Inf.
type Var struct {
	Name    string
	Lower   float64
	Upper   float64
	Integer bool
}

type Term struct {
	Var  int
	Coef float64
}

type Constraint struct {
	Name  string
	Terms []Term
	Rel   Rel
	RHS   float64
}

// Model is a linear objective over bounded variables subject to linear
// constraints.
type Model struct {
	Name        string
	Sense       Sense
	Vars        []Var
	Objective   []float64
	Constraints []Constraint
}

func NewModel(name string, sense Sense) *Model {
	return &Model{Name: name, Sense: sense}
}

// AddVar adds a variable with a zero objective coefficient and returns its
// index.
func (m *Model) AddVar(name string, lower, upper float64, integer bool) int {
	m.Vars = append(m.Vars, Var{Name: name, Lower: lower, Upper: upper, Integer: integer})
	m.Objective = append(m.Objective, 0)
	return len(m.Vars) - 1
}

func (m *Model) SetObjective(v int, coef float64) {
	m.Objective[v] = coef
}

func (m *Model) AddConstraint(name string, rel Rel, rhs float64, terms ...Term) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: terms, Rel: rel, RHS: rhs})
}

// Validate checks the model is well formed. It does not check feasibility.
func (m *Model) Validate() error {
	if len(m.Objective) != len(m.Vars) {
		return fmt.Errorf("model %s: %d objective coefficients for %d variables",
			m.Name, len(m.Objective), len(m.Vars))
	}
	for _, v := range m.Vars {
		if math.IsInf(v.Lower, 0) || math.IsNaN(v.Lower) || math.IsNaN(v.Upper) {
			return fmt.Errorf("model %s: variable %s needs a finite lower bound", m.Name, v.Name)
		}
	}
	for _, c := range m.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(m.Vars) {
				return fmt.Errorf("model %s: constraint %s references variable %d", m.Name, c.Name, t.Var)
			}
		}
	}
	return nil
}

// Value evaluates the objective at x.
func (m *Model) Value(x []float64) float64 {
	v := 0.0
	for j, c := range m.Objective {
		v += c * x[j]
	}
	return v
}

// Satisfied reports whether x meets every bound and constraint within tol.
func (m *Model) Satisfied(x []float64, tol float64) bool {
	for j, v := range m.Vars {
		if x[j] < v.Lower-tol || x[j] > v.Upper+tol {
			return false
		}
		if v.Integer && math.Abs(x[j]-math.Round(x[j])) > tol {
			return false
		}
	}
	for _, c := range m.Constraints {
		lhs := 0.0
		for _, t := range c.Terms {
			lhs += t.Coef * x[t.Var]
		}
		switch {
		case c.Rel == EQ && math.Abs(lhs-c.RHS) > tol,
			c.Rel == LE && lhs > c.RHS+tol,
			c.Rel == GE && lhs < c.RHS-tol:
			return false
		}
	}
	return true
}

// Assignment is an optimal point of a model.
type Assignment struct {
	Values    []float64
	Objective float64
	Nodes     int
}

// Int returns the value of an integer variable.
func (a *Assignment) Int(v int) int {
	return int(math.Round(a.Values[v]))
}

// Backend finds an optimal assignment of a model. A model without a
// feasible point yields ErrInfeasible; backend failures are reported as
// *BackendError.
type Backend interface {
	Name() string
	Solve(ctx context.Context, m *Model) (*Assignment, error)
}
