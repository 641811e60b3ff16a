package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dispatchlab/stp-go/emit"
	"github.com/dispatchlab/stp-go/stn"
	"github.com/dispatchlab/stp-go/stn/dist"
)

// alphaResolution is the granularity of the confidence-level search: alpha
// levels are probed on a grid of thousandths.
const alphaResolution = 1000

// StaticRobustExecution solves a PSTN with the SREA algorithm (Lund et
// al.): an LP decouples the network at a confidence level alpha by granting
// each contingent constraint the probability mass outside (alpha/2,
// 1-alpha/2), and a binary search finds the smallest alpha at which the LP
// is feasible. That alpha is the schedule's residual risk.
type StaticRobustExecution struct {
	// AlphaLower and AlphaUpper bound the binary search over the
	// confidence level.
	AlphaLower, AlphaUpper float64

	// IntegerSchedule ceil-rounds the bounds written back into the
	// dispatchable graph, yielding integer schedules.
	IntegerSchedule bool

	// Emitter, when set, receives an event per probed alpha level.
	Emitter emit.Emitter

	// Metrics, when set, receives one lp_runs_total increment per
	// probed alpha level.
	Metrics *PrometheusMetrics
}

// NewStaticRobustExecution returns an SREA solver with the default search
// range [0, 0.999] and integer schedules.
func NewStaticRobustExecution() *StaticRobustExecution {
	return &StaticRobustExecution{AlphaUpper: 0.999, IntegerSchedule: true}
}

// Name implements Solver.
func (s *StaticRobustExecution) Name() string { return "srea" }

// sreaContingent is one contingent constraint with its parsed distribution
// and the indices of its two slack variables.
type sreaContingent struct {
	i, j     int
	d        dist.Distribution
	fwd, rev int
}

// Solve implements Solver.
func (s *StaticRobustExecution) Solve(_ context.Context, n stn.Network) (stn.Network, error) {
	input, ok := n.(*stn.PSTN)
	if !ok {
		return nil, fmt.Errorf("srea: expected *stn.PSTN, got %T: %w", n, ErrSolverError)
	}

	// Pre-minimise; inconsistency surfaces here before any LP runs.
	minimal, err := MinimalNetwork(input)
	if err != nil {
		return nil, fmt.Errorf("srea: %w", err)
	}
	w := minimal.(*stn.PSTN)

	pairs := w.ContingentConstraints()
	if len(pairs) == 0 {
		// Every duration is degenerate: nothing to decouple, the
		// minimal network is already robust at zero risk.
		w.SetRiskMetric(0)
		return w, nil
	}
	w.CapInfiniteEdges()

	base, tHi, tLo, contingents, err := s.setUpLP(w, pairs)
	if err != nil {
		return nil, fmt.Errorf("srea: %w", err)
	}
	probe := func(alpha float64) ([]float64, error) {
		return s.probe(base, tHi, tLo, contingents, alpha)
	}

	// Binary search over thousandths of alpha for the smallest feasible
	// confidence level.
	lower := int(math.Ceil(s.AlphaLower*alphaResolution)) - 1
	upper := int(math.Floor(s.AlphaUpper*alphaResolution)) + 1

	var (
		found      bool
		bestAlpha  float64
		bestValues []float64
	)
	for upper-lower > 1 {
		mid := (upper + lower) / 2
		alpha := float64(mid) / alphaResolution
		x, solveErr := probe(alpha)
		s.Metrics.RecordLPRun(s.Name(), lpRunStatus(solveErr))
		s.emitProbe(alpha, solveErr == nil)
		switch {
		case solveErr == nil:
			upper = mid
			found = true
			bestAlpha = alpha
			bestValues = x
		case errors.Is(solveErr, ErrInfeasible):
			lower = mid
		default:
			return nil, fmt.Errorf("srea: alpha %v: %w", alpha, solveErr)
		}
	}
	if !found {
		return nil, fmt.Errorf("srea: %w", ErrInfeasible)
	}

	// Install the decoupling: each timepoint's absolute window becomes
	// the LP bounds, tightening only.
	for _, id := range w.Nodes() {
		if id == 0 {
			continue
		}
		hi := bestValues[tHi[id]]
		lo := bestValues[tLo[id]]
		if s.IntegerSchedule {
			hi = math.Ceil(hi)
			lo = -math.Ceil(-lo)
		}
		w.UpdateEdgeWeight(0, id, hi)
		w.UpdateEdgeWeight(id, 0, -lo)
	}

	w.SetRiskMetric(bestAlpha)
	return w, nil
}

// setUpLP builds the alpha-independent part of the formulation: timepoint
// bounds, the t- <= t+ rows, the requirement rows, the slack variables and
// the objective (maximise the total slack granted back to the contingent
// constraints).
func (s *StaticRobustExecution) setUpLP(w *stn.PSTN, pairs [][2]int) (*Problem, map[int]int, map[int]int, []sreaContingent, error) {
	p := NewProblem(true)

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
		tHi[id] = p.AddVariable(lo, hi)
		tLo[id] = p.AddVariable(lo, hi)
		// t+ >= t-.
		p.AddConstraint(LessEq, 0, Term{tLo[id], 1}, Term{tHi[id], -1})
	}

	contingents := make([]sreaContingent, 0, len(pairs))
	for _, pair := range pairs {
		i, j := pair[0], pair[1]
		d, err := w.ContingentDistribution(i, j)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("%v: %w", err, ErrSolverError)
		}
		fwd := p.AddVariable(0, math.Inf(1))
		rev := p.AddVariable(0, math.Inf(1))
		p.SetObjectiveCoeff(fwd, 1)
		p.SetObjectiveCoeff(rev, 1)
		contingents = append(contingents, sreaContingent{i: i, j: j, d: d, fwd: fwd, rev: rev})
	}

	// Requirement constraints between ordinary timepoints. Edges touching
	// the zero timepoint are handled by the variable bounds, and rows at
	// the infinity sentinel are vacuous.
	for _, pair := range w.Constraints() {
		i, j := pair[0], pair[1]
		if i == 0 || j == 0 || w.IsContingent(i, j) {
			continue
		}
		if upper := w.GetEdgeWeight(i, j); !stn.IsUnbounded(upper) {
			p.AddConstraint(LessEq, upper, Term{tHi[j], 1}, Term{tLo[i], -1})
		}
		if lower := w.GetEdgeWeight(j, i); !stn.IsUnbounded(lower) {
			p.AddConstraint(LessEq, lower, Term{tHi[i], 1}, Term{tLo[j], -1})
		}
	}
	return p, tHi, tLo, contingents, nil
}

// probe runs the LP at one alpha level on a clone of the base problem,
// returning the variable values when feasible.
func (s *StaticRobustExecution) probe(base *Problem, tHi, tLo map[int]int, contingents []sreaContingent, alpha float64) ([]float64, error) {
	p := base.Clone()
	for _, c := range contingents {
		// The interval granted to the contingent duration at this
		// confidence level, and the hard limit of the distribution's
		// support.
		pij := c.d.InvCDF(1 - alpha/2)
		pji := -c.d.InvCDF(alpha / 2)
		limitIJ := c.d.InvCDF(0.997)
		limitJI := -c.d.InvCDF(0.003)

		p.SetBounds(c.fwd, 0, limitIJ-pij)
		p.SetBounds(c.rev, 0, limitJI-pji)

		// t_j^+ - t_i^+ = p_ij + delta_ij.
		p.AddConstraint(Equal, pij,
			Term{tHi[c.j], 1}, Term{tHi[c.i], -1}, Term{c.fwd, -1})
		// t_j^- - t_i^- = -p_ji - delta_ji.
		p.AddConstraint(Equal, -pji,
			Term{tLo[c.j], 1}, Term{tLo[c.i], -1}, Term{c.rev, 1})
	}
	x, _, err := p.Solve()
	if err != nil {
		return nil, err
	}
	return x, nil
}

// emitProbe publishes one binary-search step.
func (s *StaticRobustExecution) emitProbe(alpha float64, feasible bool) {
	if s.Emitter == nil {
		return
	}
	s.Emitter.Emit(emit.Event{
		Solver: s.Name(),
		Msg:    emit.MsgAlphaProbed,
		Meta:   map[string]interface{}{"alpha": alpha, "feasible": feasible},
	})
}
