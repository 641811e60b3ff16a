package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/dispatchlab/stp-go/stn"
)

// DegreeOfStrongControllability solves an STNU by the LP of Akmal et al.
// (ICAPS 2019): each contingent interval may be shrunk by two non-negative
// slacks until a single assignment of the controllable timepoints satisfies
// every remaining realization. The retained fraction of the contingent
// intervals is the degree of strong controllability; the risk metric is its
// complement, so 0 means fully strongly controllable.
//
// The result is a schedule, not a network of intervals: every controllable
// timepoint is pinned to the midpoint of its LP window, while contingent
// timepoints keep their (shrunk) windows.
type DegreeOfStrongControllability struct {
	// Metrics, when set, receives one lp_runs_total increment per solve.
	Metrics *PrometheusMetrics
}

// Name implements Solver.
func (DegreeOfStrongControllability) Name() string { return "dsc" }

// Solve implements Solver.
func (d DegreeOfStrongControllability) Solve(_ context.Context, n stn.Network) (stn.Network, error) {
	input, ok := n.(*stn.STNU)
	if !ok {
		return nil, fmt.Errorf("dsc: expected *stn.STNU, got %T: %w", n, ErrSolverError)
	}
	w := input.Clone().(*stn.STNU)
	w.CapInfiniteEdges()

	contingent := w.ContingentConstraints()
	contingentTP := make(map[int]bool)
	for _, tp := range w.ContingentTimepoints() {
		contingentTP[tp] = true
	}

	p := NewProblem(false)

	// Two variables per timepoint: the upper and lower bound of its
	// executable window.
	tHi := make(map[int]int)
	tLo := make(map[int]int)
	for _, id := range w.Nodes() {
		hi := math.Inf(1)
		if ub := w.GetEdgeWeight(0, id); !stn.IsUnbounded(ub) {
			hi = ub
		}
		lo := math.Inf(-1)
		if lb := w.GetEdgeWeight(id, 0); !stn.IsUnbounded(lb) {
			lo = -lb
		}
		tHi[id] = p.AddVariable(0, hi)
		tLo[id] = p.AddVariable(lo, math.Inf(1))

		// t- <= t+.
		p.AddConstraint(LessEq, 0, Term{tLo[id], 1}, Term{tHi[id], -1})

		switch {
		case id == 0:
			p.AddConstraint(Equal, 0, Term{tLo[id], 1})
			p.AddConstraint(Equal, 0, Term{tHi[id], 1})
		case !contingentTP[id]:
			// Strong controllability pins every controllable
			// timepoint: its window has zero width.
			p.AddConstraint(Equal, 0, Term{tHi[id], 1}, Term{tLo[id], -1})
		}
	}

	// Shrinkage slacks per contingent constraint, normalised by the
	// interval width in the objective.
	epsHi := make(map[int]int)
	epsLo := make(map[int]int)
	for _, pair := range contingent {
		i, j := pair[0], pair[1]
		wij := w.GetEdgeWeight(i, j)
		wji := w.GetEdgeWeight(j, i)
		epsHi[j] = p.AddVariable(0, math.Inf(1))
		epsLo[j] = p.AddVariable(0, math.Inf(1))

		// t_j^+ - t_i^+ = w_ij - eps_j^+.
		p.AddConstraint(Equal, wij, Term{tHi[j], 1}, Term{tHi[i], -1}, Term{epsHi[j], 1})
		// t_j^- - t_i^- = -w_ji + eps_j^-.
		p.AddConstraint(Equal, -wji, Term{tLo[j], 1}, Term{tLo[i], -1}, Term{epsLo[j], -1})

		if width := wij + wji; width > 0 {
			p.SetObjectiveCoeff(epsHi[j], 1/width)
			p.SetObjectiveCoeff(epsLo[j], 1/width)
		} else {
			p.SetObjectiveCoeff(epsHi[j], 1)
			p.SetObjectiveCoeff(epsLo[j], 1)
		}
	}

	// Requirement constraints couple the windows of their endpoints.
	// Rows at the infinity sentinel are vacuous and omitted.
	for _, pair := range w.Constraints() {
		i, j := pair[0], pair[1]
		if w.IsContingent(i, j) {
			continue
		}
		if upper := w.GetEdgeWeight(i, j); !stn.IsUnbounded(upper) {
			p.AddConstraint(LessEq, upper, Term{tHi[j], 1}, Term{tLo[i], -1})
		}
		if lower := w.GetEdgeWeight(j, i); !stn.IsUnbounded(lower) {
			p.AddConstraint(LessEq, lower, Term{tHi[i], 1}, Term{tLo[j], -1})
		}
	}

	x, _, err := p.Solve()
	d.Metrics.RecordLPRun(d.Name(), lpRunStatus(err))
	if err != nil {
		return nil, fmt.Errorf("dsc: %w", err)
	}

	// Shrink the contingent intervals by the optimal slacks and measure
	// the retained fraction. The degree is the minimum across contingent
	// constraints (the worst case); with a single contingent constraint
	// every aggregation coincides.
	dsc := 1.0
	for _, pair := range contingent {
		i, j := pair[0], pair[1]
		origWidth := w.GetEdgeWeight(i, j) + w.GetEdgeWeight(j, i)
		w.ShrinkContingentConstraint(i, j, x[epsLo[j]], x[epsHi[j]])
		newWidth := w.GetEdgeWeight(i, j) + w.GetEdgeWeight(j, i)
		if origWidth > 0 {
			dsc = math.Min(dsc, newWidth/origWidth)
		}
	}

	// Build the schedule: controllable timepoints collapse to the middle
	// of their window, contingent timepoints keep their LP bounds.
	for _, id := range w.Nodes() {
		if id == 0 {
			continue
		}
		if contingentTP[id] {
			w.UpdateEdgeWeight(0, id, x[tHi[id]])
			w.UpdateEdgeWeight(id, 0, -x[tLo[id]])
			continue
		}
		mid := (x[tLo[id]] + x[tHi[id]]) / 2
		w.UpdateEdgeWeight(0, id, mid)
		w.UpdateEdgeWeight(id, 0, -mid)
	}

	w.SetRiskMetric(1 - dsc)
	return w, nil
}
