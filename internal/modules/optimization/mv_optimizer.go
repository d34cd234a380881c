package optimization

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	// CleanThreshold zeroes weights below this value before renormalizing.
	CleanThreshold = 1e-4

	varianceFloor = 1e-12
	maxIterations = 5000
	tolerance     = 1e-12
	maxStep       = 1e3
)

// MaxSharpe maximizes (wᵗμ − rf) / sqrt(wᵗΣw) over the simplex
// {w ≥ 0, Σw = 1} by projected gradient ascent with backtracking.
//
// The ratio is not concave on the simplex, so the search runs from equal
// weights and from the best single asset and keeps the better optimum.
// Returned weights are cleaned with CleanThreshold.
func MaxSharpe(mu []float64, sigma mat.Symmetric, rf float64) ([]float64, error) {
	n := len(mu)
	if n == 0 {
		return nil, errors.New("no assets")
	}
	if sigma.SymmetricDim() != n {
		return nil, errors.New("covariance dimension does not match expected returns")
	}
	if n == 1 {
		return []float64{1}, nil
	}

	p := problem{mu: mat.NewVecDense(n, append([]float64(nil), mu...)), sigma: sigma, rf: rf}

	equal := make([]float64, n)
	for i := range equal {
		equal[i] = 1 / float64(n)
	}

	bestSingle, bestSingleScore := 0, math.Inf(-1)
	for i := 0; i < n; i++ {
		vertex := make([]float64, n)
		vertex[i] = 1
		if s := p.sharpe(vertex); s > bestSingleScore {
			bestSingle, bestSingleScore = i, s
		}
	}
	vertex := make([]float64, n)
	vertex[bestSingle] = 1

	best, bestScore := []float64(nil), math.Inf(-1)
	for _, start := range [][]float64{equal, vertex} {
		w := p.ascend(start)
		if s := p.sharpe(w); s > bestScore || best == nil {
			best, bestScore = w, s
		}
	}

	return CleanWeights(best, CleanThreshold), nil
}

type problem struct {
	mu    *mat.VecDense
	sigma mat.Symmetric
	rf    float64
}

func (p problem) variance(w []float64) float64 {
	v := mat.NewVecDense(len(w), w)
	return math.Max(mat.Inner(v, p.sigma, v), varianceFloor)
}

func (p problem) sharpe(w []float64) float64 {
	v := mat.NewVecDense(len(w), w)
	return (mat.Dot(v, p.mu) - p.rf) / math.Sqrt(p.variance(w))
}

// gradient of the Sharpe ratio: μ/σ − (wᵗμ − rf)·Σw/σ³.
func (p problem) gradient(w []float64) []float64 {
	n := len(w)
	v := mat.NewVecDense(n, w)
	excess := mat.Dot(v, p.mu) - p.rf
	variance := p.variance(w)
	sd := math.Sqrt(variance)

	var sw mat.VecDense
	sw.MulVec(p.sigma, v)

	grad := make([]float64, n)
	for i := 0; i < n; i++ {
		grad[i] = p.mu.AtVec(i)/sd - excess*sw.AtVec(i)/(variance*sd)
	}
	return grad
}

func (p problem) ascend(start []float64) []float64 {
	w := ProjectSimplex(start)
	score := p.sharpe(w)
	step := 1.0

	for iter := 0; iter < maxIterations; iter++ {
		grad := p.gradient(w)

		improved := false
		for attempt := 0; attempt < 60; attempt++ {
			candidate := make([]float64, len(w))
			for i := range w {
				candidate[i] = w[i] + step*grad[i]
			}
			candidate = ProjectSimplex(candidate)

			if s := p.sharpe(candidate); s > score {
				gain := s - score
				w, score = candidate, s
				improved = gain > tolerance
				step = math.Min(step*2, maxStep)
				break
			}
			step /= 2
		}
		if !improved {
			break
		}
	}
	return w
}

// ProjectSimplex returns the Euclidean projection of v onto
// {w : w ≥ 0, Σw = 1}.
func ProjectSimplex(v []float64) []float64 {
	n := len(v)
	u := append([]float64(nil), v...)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))

	var cum, theta float64
	for j := 0; j < n; j++ {
		cum += u[j]
		t := (cum - 1) / float64(j+1)
		if u[j]-t > 0 {
			theta = t
		}
	}

	out := make([]float64, n)
	for i, x := range v {
		out[i] = math.Max(x-theta, 0)
	}
	return out
}

// CleanWeights zeroes weights below threshold and renormalizes the rest to
// sum to exactly one. All-zero input yields equal weights.
func CleanWeights(w []float64, threshold float64) []float64 {
	out := make([]float64, len(w))
	var sum float64
	for i, x := range w {
		if x >= threshold {
			out[i] = x
			sum += x
		}
	}
	if sum == 0 {
		return EqualWeights(len(w))
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// EqualWeights returns n weights of 1/n.
func EqualWeights(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}
