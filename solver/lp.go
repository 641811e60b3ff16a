package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Problem is a small linear-program builder on top of gonum's simplex.
//
// Variables are free unless bounded, constraints are linear rows with a
// sense of <= or =, and the objective is a dense coefficient vector. The
// general form is converted to standard form (lp.Convert) and solved with
// lp.Simplex. Cloning a problem is cheap, which the SREA binary search
// relies on: the base formulation is built once and each confidence probe
// clones it before adding the level-dependent rows.
type Problem struct {
	maximize bool
	obj      []float64
	lo, hi   []float64
	rows     []lpRow
}

// Sense is the relation of a constraint row.
type Sense int

const (
	// LessEq constrains the row to be at most the right-hand side.
	LessEq Sense = iota
	// Equal constrains the row to equal the right-hand side.
	Equal
)

// Term is one linear coefficient of a constraint row.
type Term struct {
	Var   int
	Coeff float64
}

type lpRow struct {
	terms []Term
	sense Sense
	rhs   float64
}

// NewProblem returns an empty problem. When maximize is true the objective
// is maximised, otherwise minimised.
func NewProblem(maximize bool) *Problem {
	return &Problem{maximize: maximize}
}

// AddVariable adds a variable with the given bounds and returns its index.
// Use math.Inf for an unbounded side; stn.MaxFloat-sized sentinels are
// treated as unbounded too.
func (p *Problem) AddVariable(lo, hi float64) int {
	p.obj = append(p.obj, 0)
	p.lo = append(p.lo, lo)
	p.hi = append(p.hi, hi)
	return len(p.obj) - 1
}

// SetBounds replaces the bounds of a variable.
func (p *Problem) SetBounds(v int, lo, hi float64) {
	p.lo[v] = lo
	p.hi[v] = hi
}

// SetObjectiveCoeff sets the objective coefficient of a variable.
func (p *Problem) SetObjectiveCoeff(v int, c float64) {
	p.obj[v] = c
}

// AddConstraint appends a row sum(terms) sense rhs.
func (p *Problem) AddConstraint(sense Sense, rhs float64, terms ...Term) {
	row := lpRow{terms: make([]Term, len(terms)), sense: sense, rhs: rhs}
	copy(row.terms, terms)
	p.rows = append(p.rows, row)
}

// Clone returns an independent copy of the problem.
func (p *Problem) Clone() *Problem {
	cp := &Problem{
		maximize: p.maximize,
		obj:      append([]float64(nil), p.obj...),
		lo:       append([]float64(nil), p.lo...),
		hi:       append([]float64(nil), p.hi...),
		rows:     make([]lpRow, len(p.rows)),
	}
	for i, r := range p.rows {
		cp.rows[i] = lpRow{terms: append([]Term(nil), r.terms...), sense: r.sense, rhs: r.rhs}
	}
	return cp
}

// boundedBelow reports whether lo is a real lower bound.
func boundedBelow(lo float64) bool {
	return !math.IsInf(lo, -1) && lo > -math.MaxFloat64/2
}

// boundedAbove reports whether hi is a real upper bound.
func boundedAbove(hi float64) bool {
	return !math.IsInf(hi, 1) && hi < math.MaxFloat64/2
}

// Solve runs the simplex and returns the variable values and the objective.
// An infeasible program yields ErrInfeasible; any other backend failure is
// wrapped in ErrSolverError.
func (p *Problem) Solve() ([]float64, float64, error) {
	n := len(p.obj)
	if n == 0 {
		return nil, 0, fmt.Errorf("empty problem: %w", ErrSolverError)
	}

	// Collect inequality rows: explicit LessEq rows plus the finite
	// variable bounds.
	var gRows [][]float64
	var h []float64
	var aRows [][]float64
	var b []float64

	dense := func(terms []Term) []float64 {
		row := make([]float64, n)
		for _, t := range terms {
			row[t.Var] += t.Coeff
		}
		return row
	}

	for _, r := range p.rows {
		row := dense(r.terms)
		if r.sense == Equal {
			aRows = append(aRows, row)
			b = append(b, r.rhs)
			continue
		}
		gRows = append(gRows, row)
		h = append(h, r.rhs)
	}
	for v := 0; v < n; v++ {
		if boundedAbove(p.hi[v]) {
			row := make([]float64, n)
			row[v] = 1
			gRows = append(gRows, row)
			h = append(h, p.hi[v])
		}
		if boundedBelow(p.lo[v]) {
			row := make([]float64, n)
			row[v] = -1
			gRows = append(gRows, row)
			h = append(h, -p.lo[v])
		}
	}

	c := make([]float64, n)
	for v := 0; v < n; v++ {
		if p.maximize {
			c[v] = -p.obj[v]
		} else {
			c[v] = p.obj[v]
		}
	}

	if len(gRows) == 0 && len(aRows) == 0 {
		return nil, 0, fmt.Errorf("problem has no constraints: %w", ErrSolverError)
	}
	var g mat.Matrix
	if len(gRows) > 0 {
		g = mat.NewDense(len(gRows), n, flatten(gRows))
	}
	var a mat.Matrix
	if len(aRows) > 0 {
		a = mat.NewDense(len(aRows), n, flatten(aRows))
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	opt, xStd, err := lp.Simplex(cStd, aStd, bStd, 0, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nil, 0, ErrInfeasible
		}
		return nil, 0, fmt.Errorf("simplex: %v: %w", err, ErrSolverError)
	}

	// Standard form splits each free variable x into x+ - x-.
	x := make([]float64, n)
	for v := 0; v < n; v++ {
		x[v] = xStd[v] - xStd[n+v]
	}
	if p.maximize {
		opt = -opt
	}
	return x, opt, nil
}

func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
