package solver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dispatchlab/stp-go/emit"
	"github.com/dispatchlab/stp-go/stn"
)

// Solver computes the dispatchable graph of a temporal network. The
// returned network is always of the same variant as the input, carries a
// risk metric, and is a deep copy: solvers never mutate their input.
type Solver interface {
	// Name returns the registry name of the solver.
	Name() string

	// Solve computes the dispatchable graph.
	Solve(ctx context.Context, network stn.Network) (stn.Network, error)
}

// The built-in solvers satisfy Solver.
var (
	_ Solver = FullPathConsistency{}
	_ Solver = DegreeOfStrongControllability{}
	_ Solver = (*StaticRobustExecution)(nil)
)

// NetworkCodec builds and decodes the network variant a solver understands.
type NetworkCodec struct {
	// New returns an empty network of the variant.
	New func() stn.Network

	// FromJSON decodes a node-link payload into the variant.
	FromJSON func(payload []byte) (stn.Network, error)
}

// config collects the options applied when an STP is built.
type config struct {
	emitter         emit.Emitter
	metrics         *PrometheusMetrics
	tracer          trace.Tracer
	alphaLower      float64
	alphaUpper      float64
	integerSchedule bool
	registry        *Registry
}

func defaultConfig() config {
	return config{
		emitter:         emit.NewNullEmitter(),
		alphaUpper:      0.999,
		integerSchedule: true,
		registry:        DefaultRegistry(),
	}
}

// Option configures an STP orchestrator.
type Option func(*config) error

// WithEmitter routes solve events to the given emitter.
func WithEmitter(e emit.Emitter) Option {
	return func(c *config) error {
		if e == nil {
			e = emit.NewNullEmitter()
		}
		c.emitter = e
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection for solve runs.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}

// WithTracer wraps every solve in an OpenTelemetry span.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) error {
		c.tracer = t
		return nil
	}
}

// WithAlphaBounds narrows SREA's binary search over the confidence level.
func WithAlphaBounds(lower, upper float64) Option {
	return func(c *config) error {
		if lower < 0 || upper > 1 || lower >= upper {
			return fmt.Errorf("alpha bounds [%v, %v): %w", lower, upper, ErrSolverError)
		}
		c.alphaLower = lower
		c.alphaUpper = upper
		return nil
	}
}

// WithIntegerSchedule toggles ceil-rounding of the SREA output schedule.
// Enabled by default.
func WithIntegerSchedule(enabled bool) Option {
	return func(c *config) error {
		c.integerSchedule = enabled
		return nil
	}
}

// WithRegistry resolves the solver from a custom registry instead of the
// default one.
func WithRegistry(r *Registry) Option {
	return func(c *config) error {
		if r == nil {
			return fmt.Errorf("nil registry: %w", ErrUnknownSolver)
		}
		c.registry = r
		return nil
	}
}

// Registry maps solver names to solver constructors and to the network
// variant each solver consumes.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

type registryEntry struct {
	newSolver func(cfg config) Solver
	codec     NetworkCodec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register binds a solver constructor and its network codec to a name,
// replacing any previous binding.
func (r *Registry) Register(name string, newSolver func() Solver, codec NetworkCodec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registryEntry{
		newSolver: func(config) Solver { return newSolver() },
		codec:     codec,
	}
}

func (r *Registry) register(name string, newSolver func(cfg config) Solver, codec NetworkCodec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registryEntry{newSolver: newSolver, codec: codec}
}

func (r *Registry) lookup(name string) (registryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered solver names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide registry with the built-in
// solvers: fpc over STN, dsc over STNU, srea over PSTN.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		r := NewRegistry()
		r.register("fpc", func(config) Solver {
			return FullPathConsistency{}
		}, NetworkCodec{
			New:      func() stn.Network { return stn.NewSTN() },
			FromJSON: func(b []byte) (stn.Network, error) { return stn.STNFromJSON(b) },
		})
		r.register("dsc", func(cfg config) Solver {
			return DegreeOfStrongControllability{Metrics: cfg.metrics}
		}, NetworkCodec{
			New:      func() stn.Network { return stn.NewSTNU() },
			FromJSON: func(b []byte) (stn.Network, error) { return stn.STNUFromJSON(b) },
		})
		r.register("srea", func(cfg config) Solver {
			return &StaticRobustExecution{
				AlphaLower:      cfg.alphaLower,
				AlphaUpper:      cfg.alphaUpper,
				IntegerSchedule: cfg.integerSchedule,
				Emitter:         cfg.emitter,
				Metrics:         cfg.metrics,
			}
		}, NetworkCodec{
			New:      func() stn.Network { return stn.NewPSTN() },
			FromJSON: func(b []byte) (stn.Network, error) { return stn.PSTNFromJSON(b) },
		})
		defaultRegistry = r
	})
	return defaultRegistry
}

// STP solves a Simple Temporal Problem with the solver selected at
// construction time. It hands out empty networks of the matching variant,
// runs the solver, and attaches observability around each solve.
//
// The dispatchable graph it computes is not a schedule (an assignment of
// values to timepoints) but the space of solutions to the problem; DSC is
// the exception, returning an offline schedule.
type STP struct {
	name   string
	solver Solver
	codec  NetworkCodec
	cfg    config
}

// New returns an orchestrator bound to the named solver ("fpc", "dsc" or
// "srea" in the default registry). An unregistered name yields
// ErrUnknownSolver.
func New(method string, opts ...Option) (*STP, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	entry, ok := cfg.registry.lookup(method)
	if !ok {
		return nil, fmt.Errorf("%q: %w", method, ErrUnknownSolver)
	}
	return &STP{
		name:   method,
		solver: entry.newSolver(cfg),
		codec:  entry.codec,
		cfg:    cfg,
	}, nil
}

// SolverName returns the name of the bound solver.
func (s *STP) SolverName() string { return s.name }

// GetSTN returns an empty network of the variant the solver consumes.
func (s *STP) GetSTN() stn.Network {
	return s.codec.New()
}

// GetSTNFromJSON decodes a node-link payload into the solver's variant.
func (s *STP) GetSTNFromJSON(payload []byte) (stn.Network, error) {
	return s.codec.FromJSON(payload)
}

// IsConsistent reports whether the network is free of negative cycles.
func (s *STP) IsConsistent(network stn.Network) bool {
	return network.IsConsistent(network.ShortestPaths())
}

// Solve computes the dispatchable graph and risk metric of the network.
//
// Inconsistent networks and infeasible programs surface as ErrNoSolution
// (wrapping the solver's error); backend failures pass through unchanged.
func (s *STP) Solve(ctx context.Context, network stn.Network) (stn.Network, error) {
	if s.cfg.tracer != nil {
		var span trace.Span
		ctx, span = s.cfg.tracer.Start(ctx, "stp.solve",
			trace.WithAttributes(attribute.String("stp.solver", s.name)))
		defer span.End()
	}

	s.cfg.emitter.Emit(emit.Event{Solver: s.name, Msg: emit.MsgSolveStarted})
	started := time.Now()

	graph, err := s.solver.Solve(ctx, network)
	elapsed := time.Since(started)

	if err != nil {
		status := "error"
		if errors.Is(err, ErrInconsistent) || errors.Is(err, ErrInfeasible) {
			status = "no_solution"
			err = fmt.Errorf("%w: %w", ErrNoSolution, err)
		}
		s.cfg.metrics.RecordSolve(s.name, status, elapsed)
		s.cfg.emitter.Emit(emit.Event{
			Solver: s.name,
			Msg:    emit.MsgSolveFailed,
			Meta:   map[string]interface{}{"error": err.Error()},
		})
		return nil, err
	}
	if graph == nil {
		s.cfg.metrics.RecordSolve(s.name, "no_solution", elapsed)
		return nil, fmt.Errorf("%w: solver %s returned no graph", ErrNoSolution, s.name)
	}

	risk, _ := graph.RiskMetric()
	s.cfg.metrics.RecordSolve(s.name, "success", elapsed)
	s.cfg.metrics.RecordRiskMetric(s.name, risk)
	s.cfg.emitter.Emit(emit.Event{
		Solver: s.name,
		Msg:    emit.MsgSolveCompleted,
		Meta: map[string]interface{}{
			"risk_metric": risk,
			"duration_ms": elapsed.Milliseconds(),
		},
	})
	return graph, nil
}
