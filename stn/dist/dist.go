// Package dist models the duration distributions attached to contingent
// constraints: parsing and formatting of the descriptor strings (N_mu_sigma
// for normal, U_a_b for uniform), inverse cumulative density lookups, and
// sampling for dispatch simulation.
//
// Normal inverse CDFs are read off a discretised curve over the clamped
// support [q(0.003), q(0.997)], memoised by (mu, sigma, resolution,
// allowNegative); durations are non-negative so the support is cut at zero
// unless negatives are explicitly allowed.
package dist

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Resolution is the number of points of a discretised inverse-CDF curve.
const Resolution = 1000

// MaxResample bounds how often a normal sample is redrawn to obtain a
// non-negative duration before clamping to zero.
const MaxResample = 10

// ErrBadDescriptor indicates a malformed distribution descriptor string.
var ErrBadDescriptor = errors.New("malformed distribution descriptor")

// Kind discriminates the supported distribution families.
type Kind int

const (
	// KindNormal is N_mu_sigma.
	KindNormal Kind = iota
	// KindUniform is U_a_b.
	KindUniform
)

// Distribution describes the duration of a contingent constraint.
type Distribution struct {
	Kind Kind

	// Mu and Sigma parameterise a normal distribution.
	Mu, Sigma float64

	// A and B bound a uniform distribution.
	A, B float64
}

// Normal returns a normal distribution descriptor.
func Normal(mu, sigma float64) Distribution {
	return Distribution{Kind: KindNormal, Mu: mu, Sigma: sigma}
}

// Uniform returns a uniform distribution descriptor.
func Uniform(a, b float64) Distribution {
	return Distribution{Kind: KindUniform, A: a, B: b}
}

// Parse decodes a descriptor string: "N_<mu>_<sigma>" or "U_<a>_<b>".
func Parse(desc string) (Distribution, error) {
	parts := strings.Split(desc, "_")
	if len(parts) != 3 {
		return Distribution{}, fmt.Errorf("%q: %w", desc, ErrBadDescriptor)
	}
	first, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Distribution{}, fmt.Errorf("%q: %w", desc, ErrBadDescriptor)
	}
	second, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Distribution{}, fmt.Errorf("%q: %w", desc, ErrBadDescriptor)
	}
	switch parts[0] {
	case "N":
		return Normal(first, second), nil
	case "U":
		return Uniform(first, second), nil
	}
	return Distribution{}, fmt.Errorf("%q: %w", desc, ErrBadDescriptor)
}

// String encodes the descriptor back to its wire form.
func (d Distribution) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	if d.Kind == KindUniform {
		return "U_" + f(d.A) + "_" + f(d.B)
	}
	return "N_" + f(d.Mu) + "_" + f(d.Sigma)
}

// Degenerate reports whether the distribution collapses to a point.
func (d Distribution) Degenerate() bool {
	if d.Kind == KindUniform {
		return d.A == d.B
	}
	return d.Sigma == 0
}

// Mean returns the expected duration.
func (d Distribution) Mean() float64 {
	if d.Kind == KindUniform {
		return (d.A + d.B) / 2
	}
	return d.Mu
}

// InvCDF returns the inverse cumulative density of the distribution at p.
//
// For a normal this is a lookup on the memoised discretised curve, so the
// result saturates at the clamped support: p at or above the curve's mass
// returns the upper end rather than +Inf. For a uniform it is the closed
// form a + p*(b-a), with p < 0 mapping to -Inf and p > 1 to +Inf.
func (d Distribution) InvCDF(p float64) float64 {
	switch d.Kind {
	case KindUniform:
		if p < 0 {
			return math.Inf(-1)
		}
		if p > 1 {
			return math.Inf(1)
		}
		return d.A + p*(d.B-d.A)
	default:
		return invCDFNormal(p, d.Mu, d.Sigma, Resolution, false)
	}
}

// Sample draws a realised duration. Normal durations are redrawn up to
// MaxResample times to obtain a non-negative value, then clamped to zero.
// A nil src uses the process-global source.
func (d Distribution) Sample(src rand.Source) float64 {
	if d.Kind == KindUniform {
		u := distuv.Uniform{Min: d.A, Max: d.B, Src: src}
		return u.Rand()
	}
	if d.Sigma == 0 {
		return d.Mu
	}
	n := distuv.Normal{Mu: d.Mu, Sigma: d.Sigma, Src: src}
	for attempt := 0; attempt <= MaxResample; attempt++ {
		if v := n.Rand(); v >= 0 {
			return v
		}
	}
	return 0
}

// curveKey memoises inverse-CDF curves.
type curveKey struct {
	mu, sigma float64
	res       int
	neg       bool
}

// curve is a discretised CDF: cum[i] is the cumulative density at xs[i].
type curve struct {
	xs  []float64
	cum []float64
}

var (
	curveMu sync.Mutex
	curves  = make(map[curveKey]*curve)
)

// normalCurve builds (or returns the memoised) discretised curve for
// N(mu, sigma) over [q(0.003), q(0.997)], cut at zero unless neg.
func normalCurve(mu, sigma float64, res int, neg bool) *curve {
	key := curveKey{mu, sigma, res, neg}
	curveMu.Lock()
	defer curveMu.Unlock()
	if c, ok := curves[key]; ok {
		return c
	}

	n := distuv.Normal{Mu: mu, Sigma: sigma}
	lo := n.Quantile(0.003)
	hi := n.Quantile(0.997)
	if !neg {
		lo = math.Max(lo, 0)
		hi = math.Max(hi, 0)
	}

	xs := make([]float64, res)
	cum := make([]float64, res)
	dx := (hi - lo) / float64(res-1)
	acc := n.CDF(lo)
	for i := 0; i < res; i++ {
		xs[i] = lo + float64(i)*dx
		acc += n.Prob(xs[i]) * dx
		cum[i] = acc
	}

	c := &curve{xs: xs, cum: cum}
	curves[key] = c
	return c
}

// invCDFNormal looks up the inverse CDF of N(mu, sigma) on the discretised
// curve. A zero deviation short-circuits to the mean.
func invCDFNormal(p, mu, sigma float64, res int, neg bool) float64 {
	if sigma == 0 {
		return mu
	}
	c := normalCurve(mu, sigma, res, neg)
	return c.xs[lookupIndex(p, c.cum)]
}

// lookupIndex returns the index of val in the sorted slice, or of the
// element directly below it when absent. Values beyond the ends saturate:
// anything below the second element yields 0, and anything at or above the
// last element yields the index before the last.
func lookupIndex(val float64, sorted []float64) int {
	up := len(sorted) - 1
	lo := 0
	look := (up + lo) / 2
	for up-lo > 1 {
		switch {
		case sorted[look] == val:
			return look
		case val < sorted[look]:
			up = look
		default:
			lo = look
		}
		look = (up + lo) / 2
	}
	return lo
}
