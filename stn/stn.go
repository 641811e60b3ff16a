package stn

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// consistencyTol absorbs floating-point drift on the shortest-path diagonal.
const consistencyTol = 1e-9

// MaxFloat is the sentinel used in place of +Inf wherever an algorithm
// needs a finite value (LP formulations, minimised working copies).
const MaxFloat = math.MaxFloat64

// edgeKey identifies a directed edge.
type edgeKey struct {
	from, to int
}

// edge is a directed edge of the distance graph. A constraint is always a
// pair of edges: from->to holding the upper bound and to->from holding the
// negated lower bound.
type edge struct {
	weight       float64
	isContingent bool
	distribution string
}

func (e *edge) clone() *edge {
	cp := *e
	return &cp
}

// interInstaller is the variant hook invoked while a task is inserted: it
// installs the edge between two consecutive timepoints of the chain.
// STN installs point requirements, STNU bounded contingent intervals, PSTN
// probabilistic contingent constraints.
type interInstaller interface {
	installInterTimepoint(i, j int, task *Task) error
}

// Network is the operation set shared by the STN, STNU and PSTN variants.
//
// Solvers never mutate their input network; they Clone it and return the
// transformed copy as the dispatchable graph.
type Network interface {
	// Structural mutation.
	AddTask(task *Task, position int) error
	RemoveTask(position int) error
	AddConstraint(i, j int, wji, wij float64) error
	RemoveConstraint(i, j int)
	UpdateEdgeWeight(i, j int, weight float64)
	SetEdgeWeight(i, j int, weight float64)
	CapInfiniteEdges()

	// Dispatch.
	AssignTimepoint(taskID uuid.UUID, kind NodeKind, t float64) error
	GetTime(taskID uuid.UUID, kind NodeKind, lowerBound bool) (float64, error)
	ExecuteTimepoint(id int)

	// Structural queries.
	Nodes() []int
	Node(id int) (*Timepoint, bool)
	HasEdge(i, j int) bool
	GetEdgeWeight(i, j int) float64
	Constraints() [][2]int
	IsContingent(i, j int) bool
	Distribution(i, j int) string
	Tasks() []uuid.UUID
	GetTaskID(position int) (uuid.UUID, error)
	GetTaskPosition(taskID uuid.UUID) (int, error)
	GetTaskNodeIDs(taskID uuid.UUID) []int
	GetEarliestTaskID() (uuid.UUID, error)

	// Consistency.
	ShortestPaths() *DistanceMatrix
	IsConsistent(d *DistanceMatrix) bool
	UpdateEdges(d *DistanceMatrix)

	// Copies and views.
	Clone() Network
	Subgraph(nTasks int) Network

	// Result annotations.
	RiskMetric() (float64, bool)
	SetRiskMetric(v float64)

	// Temporal metrics.
	CompletionTime() float64
	Makespan() float64
	IdleTime() float64
	ComputeTemporalMetric(criterion string) (float64, error)

	// Serialization (JSON node-link format).
	ToJSON() ([]byte, error)
}

// All three variants satisfy Network.
var (
	_ Network = (*STN)(nil)
	_ Network = (*STNU)(nil)
	_ Network = (*PSTN)(nil)
)

// STN is a Simple Temporal Network: a distance graph in which every
// constraint is a requirement. It is the base representation shared by the
// STNU and PSTN variants.
type STN struct {
	nodes map[int]*Timepoint
	edges map[edgeKey]*edge

	riskMetric    float64
	riskMetricSet bool

	// installer dispatches inter-timepoint edge installation to the
	// concrete variant.
	installer interInstaller
}

// NewSTN returns a network holding only the zero timepoint.
func NewSTN() *STN {
	s := &STN{
		nodes: make(map[int]*Timepoint),
		edges: make(map[edgeKey]*edge),
	}
	s.installer = s
	s.addZeroTimepoint()
	return s
}

func (s *STN) addZeroTimepoint() {
	s.nodes[0] = NewTimepoint(uuid.Nil, KindZero)
}

// String renders the constraints of the network, zero-timepoint windows
// first as absolute intervals.
func (s *STN) String() string {
	var b strings.Builder
	for _, pair := range s.Constraints() {
		i, j := pair[0], pair[1]
		lower := -s.GetEdgeWeight(j, i)
		upper := s.GetEdgeWeight(i, j)
		if i == 0 {
			fmt.Fprintf(&b, "Timepoint %d: [%v, %v]", j, lower, upper)
		} else {
			fmt.Fprintf(&b, "Constraint %d => %d: [%v, %v]", i, j, lower, upper)
			if s.IsContingent(i, j) {
				if d := s.Distribution(i, j); d != "" {
					fmt.Fprintf(&b, " (%s)", d)
				} else {
					b.WriteString(" (contingent)")
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// AddConstraint installs the constraint i --[wji, wij]--> j (wji the
// minimum, wij the maximum time from i to j) as the two directed edges
// i->j (weight wij) and j->i (weight -wji). Existing edges between the
// pair are overwritten. An empty interval (wji > wij) is rejected with
// ErrInvalidConstraint. wij may be +Inf.
func (s *STN) AddConstraint(i, j int, wji, wij float64) error {
	return s.addConstraintEdge(i, j, wji, wij, false, "")
}

func (s *STN) addConstraintEdge(i, j int, wji, wij float64, contingent bool, distribution string) error {
	if wji > wij {
		return fmt.Errorf("constraint %d => %d: [%v, %v]: %w", i, j, wji, wij, ErrInvalidConstraint)
	}
	s.edges[edgeKey{i, j}] = &edge{weight: wij, isContingent: contingent, distribution: distribution}
	s.edges[edgeKey{j, i}] = &edge{weight: -wji, isContingent: contingent, distribution: distribution}
	return nil
}

// RemoveConstraint removes both directed edges between i and j. Removing an
// absent constraint is a no-op.
func (s *STN) RemoveConstraint(i, j int) {
	delete(s.edges, edgeKey{i, j})
	delete(s.edges, edgeKey{j, i})
}

// HasEdge reports whether the directed edge i->j is present.
func (s *STN) HasEdge(i, j int) bool {
	_, ok := s.edges[edgeKey{i, j}]
	return ok
}

// GetEdgeWeight returns the weight of the directed edge i->j. A node's
// implicit self-loop has weight 0; an absent edge is +Inf.
func (s *STN) GetEdgeWeight(i, j int) float64 {
	if e, ok := s.edges[edgeKey{i, j}]; ok {
		return e.weight
	}
	if i == j {
		if _, ok := s.nodes[i]; ok {
			return 0
		}
	}
	return math.Inf(1)
}

// UpdateEdgeWeight tightens the directed edge i->j: the weight is replaced
// only when the new value is smaller. Finite weights are rounded to two
// decimals. Updating an absent edge is a no-op.
func (s *STN) UpdateEdgeWeight(i, j int, weight float64) {
	e, ok := s.edges[edgeKey{i, j}]
	if !ok {
		return
	}
	weight = round2(weight)
	if weight < e.weight {
		e.weight = weight
	}
}

// SetEdgeWeight overwrites the weight of the directed edge i->j regardless
// of the current value. A no-op when the edge is absent.
func (s *STN) SetEdgeWeight(i, j int, weight float64) {
	if e, ok := s.edges[edgeKey{i, j}]; ok {
		e.weight = round2(weight)
	}
}

// CapInfiniteEdges replaces every +Inf edge weight with MaxFloat so that
// the network can feed formulations that require finite values.
func (s *STN) CapInfiniteEdges() {
	for _, e := range s.edges {
		if math.IsInf(e.weight, 1) {
			e.weight = MaxFloat
		}
	}
}

// round2 rounds to two decimals. Sentinel and infinite values pass through
// untouched; rounding MaxFloat would overflow.
func round2(v float64) float64 {
	if math.IsInf(v, 0) || math.Abs(v) >= MaxFloat/2 {
		return v
	}
	return math.Round(v*100) / 100
}

// IsUnbounded reports whether a weight denotes "no bound": +Inf or the
// finite sentinel that stands in for it.
func IsUnbounded(w float64) bool {
	return math.IsInf(w, 1) || w >= MaxFloat/2
}

// Nodes returns the node ids in ascending order.
func (s *STN) Nodes() []int {
	ids := make([]int, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Node returns the timepoint with the given id.
func (s *STN) Node(id int) (*Timepoint, bool) {
	tp, ok := s.nodes[id]
	return tp, ok
}

// Constraints returns the constrained pairs (i, j) with i < j, ascending.
func (s *STN) Constraints() [][2]int {
	pairs := make([][2]int, 0, len(s.edges)/2)
	for k := range s.edges {
		if k.from < k.to {
			pairs = append(pairs, [2]int{k.from, k.to})
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})
	return pairs
}

// IsContingent reports whether the constraint between i and j is
// contingent. Always false for a plain STN.
func (s *STN) IsContingent(i, j int) bool {
	if e, ok := s.edges[edgeKey{i, j}]; ok {
		return e.isContingent
	}
	return false
}

// Distribution returns the distribution descriptor attached to the edge
// i->j, or the empty string.
func (s *STN) Distribution(i, j int) string {
	if e, ok := s.edges[edgeKey{i, j}]; ok {
		return e.distribution
	}
	return ""
}

// ExecuteTimepoint marks the timepoint as executed during dispatch.
func (s *STN) ExecuteTimepoint(id int) {
	if tp, ok := s.nodes[id]; ok {
		tp.IsExecuted = true
	}
}

// AddTask inserts the task's three timepoints at the given position
// (1-based). Nodes at or after the insertion point are relabelled upward by
// three, the task's absolute windows are anchored to the zero timepoint,
// and the variant installs the intra-task and wait edges.
func (s *STN) AddTask(task *Task, position int) error {
	if position < 1 {
		return fmt.Errorf("position %d: %w", position, ErrInvalidConstraint)
	}
	start := startID(position)
	pickup := start + 1
	delivery := start + 2

	// The edge that connected the previous delivery to the displaced
	// successor no longer holds once the new task sits between them.
	if s.HasEdge(start-1, start) && start-1 != 0 {
		s.RemoveConstraint(start-1, start)
	}

	s.relabelFrom(start, +3)

	for id, kind := range map[int]NodeKind{start: KindStart, pickup: KindPickup, delivery: KindDelivery} {
		s.nodes[id] = NewTimepoint(task.TaskID, kind)
	}
	for id, name := range map[int]string{start: "start", pickup: "pickup", delivery: "delivery"} {
		c, ok := task.TimepointConstraint(name)
		if !ok {
			return fmt.Errorf("task %s: missing %s window: %w", task.TaskID, name, ErrInvalidConstraint)
		}
		if err := s.AddConstraint(0, id, c.REarliest, c.RLatest); err != nil {
			return err
		}
	}

	chain := []int{start, pickup, delivery}
	if _, ok := s.nodes[delivery+1]; ok {
		chain = append(chain, delivery+1)
	}
	if _, ok := s.nodes[start-1]; ok && start-1 != 0 {
		chain = append([]int{start - 1}, chain...)
	}
	for n := 0; n < len(chain)-1; n++ {
		if err := s.installer.installInterTimepoint(chain[n], chain[n+1], task); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTask drops the three timepoints of the task at the given position
// and relabels the tail downward by three. When both a predecessor and a
// successor remain, the wait edge between them is re-installed.
func (s *STN) RemoveTask(position int) error {
	start := startID(position)
	pickup := start + 1
	delivery := start + 2
	if _, ok := s.nodes[start]; !ok {
		return fmt.Errorf("position %d: %w", position, ErrTaskNotFound)
	}

	_, hasPrev := s.nodes[start-1]
	_, hasNext := s.nodes[delivery+1]

	s.removeNode(start)
	s.removeNode(pickup)
	s.removeNode(delivery)

	s.relabelFrom(start, -3)

	if hasPrev && hasNext && start-1 != 0 {
		if tp, ok := s.nodes[start-1]; ok && tp.Kind == KindDelivery {
			// Wait between the delivery of one task and the start
			// of the next.
			if err := s.AddConstraint(start-1, start, 0, math.Inf(1)); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeNode deletes the node and every incident edge.
func (s *STN) removeNode(id int) {
	delete(s.nodes, id)
	for k := range s.edges {
		if k.from == id || k.to == id {
			delete(s.edges, k)
		}
	}
}

// relabelFrom shifts every node id >= from by delta, edges included.
func (s *STN) relabelFrom(from, delta int) {
	shift := func(id int) int {
		if id >= from {
			return id + delta
		}
		return id
	}
	nodes := make(map[int]*Timepoint, len(s.nodes))
	for id, tp := range s.nodes {
		nodes[shift(id)] = tp
	}
	edges := make(map[edgeKey]*edge, len(s.edges))
	for k, e := range s.edges {
		edges[edgeKey{shift(k.from), shift(k.to)}] = e
	}
	s.nodes = nodes
	s.edges = edges
}

// installInterTimepoint installs the STN edge between two consecutive
// timepoints: point intervals for travel and work durations, [0, +Inf] for
// the wait between tasks.
func (s *STN) installInterTimepoint(i, j int, task *Task) error {
	tp := s.nodes[i]
	switch tp.Kind {
	case KindStart:
		travel, ok := task.InterTimepointConstraint("travel_time")
		if !ok {
			return fmt.Errorf("task %s: missing travel_time: %w", task.TaskID, ErrInvalidConstraint)
		}
		return s.AddConstraint(i, j, travel.Mean, travel.Mean)
	case KindPickup:
		work, ok := task.InterTimepointConstraint("work_time")
		if !ok {
			return fmt.Errorf("task %s: missing work_time: %w", task.TaskID, ErrInvalidConstraint)
		}
		return s.AddConstraint(i, j, work.Mean, work.Mean)
	case KindDelivery:
		return s.AddConstraint(i, j, 0, math.Inf(1))
	}
	return nil
}

// AssignTimepoint tightens both zero-timepoint edges of the task's
// timepoint so that it is fixed to exactly t. Consistency of the resulting
// network must be re-checked by the caller.
func (s *STN) AssignTimepoint(taskID uuid.UUID, kind NodeKind, t float64) error {
	for _, id := range s.Nodes() {
		tp := s.nodes[id]
		if tp.TaskID == taskID && tp.Kind == kind {
			s.UpdateEdgeWeight(0, id, t)
			s.UpdateEdgeWeight(id, 0, -t)
			return nil
		}
	}
	return fmt.Errorf("task %s %s: %w", taskID, kind, ErrTaskNotFound)
}

// GetTime returns the earliest (lowerBound) or latest absolute time of the
// task's timepoint, read off the zero-timepoint edges.
func (s *STN) GetTime(taskID uuid.UUID, kind NodeKind, lowerBound bool) (float64, error) {
	for _, id := range s.Nodes() {
		tp := s.nodes[id]
		if tp.TaskID == taskID && tp.Kind == kind {
			if lowerBound {
				return -s.GetEdgeWeight(id, 0), nil
			}
			return s.GetEdgeWeight(0, id), nil
		}
	}
	return 0, fmt.Errorf("task %s %s: %w", taskID, kind, ErrTaskNotFound)
}

// Tasks returns the task ids in schedule order.
func (s *STN) Tasks() []uuid.UUID {
	var out []uuid.UUID
	for _, id := range s.Nodes() {
		if s.nodes[id].Kind == KindStart {
			out = append(out, s.nodes[id].TaskID)
		}
	}
	return out
}

// GetTaskID returns the id of the task at the given position.
func (s *STN) GetTaskID(position int) (uuid.UUID, error) {
	tp, ok := s.nodes[startID(position)]
	if !ok || tp.Kind != KindStart {
		return uuid.Nil, fmt.Errorf("position %d: %w", position, ErrTaskNotFound)
	}
	return tp.TaskID, nil
}

// GetTaskPosition returns the 1-based position of the task.
func (s *STN) GetTaskPosition(taskID uuid.UUID) (int, error) {
	for _, id := range s.Nodes() {
		tp := s.nodes[id]
		if tp.TaskID == taskID && tp.Kind == KindStart {
			return (id + 2) / 3, nil
		}
	}
	return 0, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
}

// GetTaskNodeIDs returns the node ids belonging to the task, ascending.
func (s *STN) GetTaskNodeIDs(taskID uuid.UUID) []int {
	var out []int
	for _, id := range s.Nodes() {
		if s.nodes[id].TaskID == taskID {
			out = append(out, id)
		}
	}
	return out
}

// GetEarliestTaskID returns the id of the task scheduled first.
func (s *STN) GetEarliestTaskID() (uuid.UUID, error) {
	return s.GetTaskID(1)
}

// copyState deep-copies the nodes, edges and annotations into dst, which
// keeps its own installer (and therefore its variant behaviour).
func (s *STN) copyState(dst *STN) {
	dst.nodes = make(map[int]*Timepoint, len(s.nodes))
	for id, tp := range s.nodes {
		dst.nodes[id] = tp.clone()
	}
	dst.edges = make(map[edgeKey]*edge, len(s.edges))
	for k, e := range s.edges {
		dst.edges[k] = e.clone()
	}
	dst.riskMetric = s.riskMetric
	dst.riskMetricSet = s.riskMetricSet
}

// subgraphState copies node 0, the nodes of the first nTasks tasks and all
// edges among them into dst.
func (s *STN) subgraphState(dst *STN, nTasks int) {
	keep := map[int]bool{0: true}
	tasks := s.Tasks()
	if nTasks < len(tasks) {
		tasks = tasks[:nTasks]
	}
	for _, taskID := range tasks {
		for _, id := range s.GetTaskNodeIDs(taskID) {
			keep[id] = true
		}
	}
	dst.nodes = make(map[int]*Timepoint)
	for id := range keep {
		if tp, ok := s.nodes[id]; ok {
			dst.nodes[id] = tp.clone()
		}
	}
	dst.edges = make(map[edgeKey]*edge)
	for k, e := range s.edges {
		if keep[k.from] && keep[k.to] {
			dst.edges[k] = e.clone()
		}
	}
}

// Clone returns a deep copy of the network.
func (s *STN) Clone() Network {
	n := NewSTN()
	s.copyState(n)
	return n
}

// Subgraph returns a new network holding the zero timepoint, the first
// nTasks tasks and every edge among them.
func (s *STN) Subgraph(nTasks int) Network {
	n := NewSTN()
	s.subgraphState(n, nTasks)
	return n
}

// RiskMetric returns the attached risk metric, if any solver has set one.
func (s *STN) RiskMetric() (float64, bool) {
	return s.riskMetric, s.riskMetricSet
}

// SetRiskMetric attaches the solver's risk metric to the network.
func (s *STN) SetRiskMetric(v float64) {
	s.riskMetric = v
	s.riskMetricSet = true
}

// DistanceMatrix holds all-pairs shortest-path distances, indexed by the
// node ids captured when it was computed.
type DistanceMatrix struct {
	ids   []int
	index map[int]int
	d     *mat.Dense
}

// Dist returns the shortest-path distance from node i to node j.
func (m *DistanceMatrix) Dist(i, j int) float64 {
	return m.d.At(m.index[i], m.index[j])
}

// IDs returns the node ids covered by the matrix.
func (m *DistanceMatrix) IDs() []int {
	return m.ids
}

// ShortestPaths runs Floyd-Warshall over the distance graph. Missing edges
// enter as +Inf and the diagonal starts at zero; the loop order is fixed
// (k, i, j) for deterministic accumulation.
func (s *STN) ShortestPaths() *DistanceMatrix {
	ids := s.Nodes()
	n := len(ids)
	index := make(map[int]int, n)
	for idx, id := range ids {
		index[id] = idx
	}

	d := mat.NewDense(n, n, nil)
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			if a == b {
				d.Set(a, b, 0)
				continue
			}
			d.Set(a, b, s.GetEdgeWeight(ids[a], ids[b]))
		}
	}

	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			dik := d.At(i, k)
			if math.IsInf(dik, 1) {
				continue
			}
			for j := 0; j < n; j++ {
				dkj := d.At(k, j)
				if math.IsInf(dkj, 1) {
					continue
				}
				if cand := dik + dkj; cand < d.At(i, j) {
					d.Set(i, j, cand)
				}
			}
		}
	}
	return &DistanceMatrix{ids: ids, index: index, d: d}
}

// IsConsistent reports whether the network has no negative cycles: every
// diagonal entry of the shortest-path matrix is zero within tolerance.
func (s *STN) IsConsistent(d *DistanceMatrix) bool {
	for _, id := range d.ids {
		if math.Abs(d.Dist(id, id)) > consistencyTol {
			return false
		}
	}
	return true
}

// UpdateEdges tightens every existing edge to its shortest-path distance,
// producing the minimal network.
func (s *STN) UpdateEdges(d *DistanceMatrix) {
	for _, i := range d.ids {
		for _, j := range d.ids {
			s.UpdateEdgeWeight(i, j, d.Dist(i, j))
		}
	}
}
