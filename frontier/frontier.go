// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package frontier computes the discretized efficient frontier of a fund
// universe by solving a sequence of constrained minimum-variance problems.
package frontier

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/stats"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// NumPoints is the number of target returns sampled between the
	// minimum-variance portfolio and the highest-return asset
	NumPoints = 20

	// MaxSingleWeight prevents over-concentration in a single fund
	MaxSingleWeight = 0.5

	// MinWeightThreshold drops tiny weights that are hard to execute
	MinWeightThreshold = 0.01

	weightTol = 1e-9
)

var (
	ErrNoAssets           = errors.New("no assets to optimize over")
	ErrNoFeasibleSolution = errors.New("no feasible minimum-variance solution")
)

// WeightVector maps asset code to target weight. Weights are non-negative
// and sum to 1 within tolerance.
type WeightVector map[string]float64

// Sum returns the total of all weights
func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Point is one efficient-frontier portfolio. Risk and Return are annualized.
type Point struct {
	Risk    float64      `json:"risk"`
	Return  float64      `json:"return"`
	Weights WeightVector `json:"weights"`
}

// Frontier is an ordered, non-dominated sequence of points with risk
// non-decreasing as return increases.
type Frontier struct {
	Points    []Point  `json:"points"`
	MaxSharpe *Point   `json:"max_sharpe,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Compute builds the efficient frontier from annualized moment estimates.
// When the universe is the risk-free asset alone the frontier collapses to
// a single riskless point.
func Compute(moments *stats.Moments, riskFreeRate *float64) (*Frontier, error) {
	n := len(moments.Codes)
	if n == 0 {
		return nil, ErrNoAssets
	}

	if n == 1 && moments.Codes[0] == data.RiskFreeCode {
		return &Frontier{
			Points: []Point{{
				Risk:    0,
				Return:  moments.AnnualMean[0],
				Weights: WeightVector{data.RiskFreeCode: 1.0},
			}},
		}, nil
	}

	solver := newQPSolver(moments.AnnualCov, moments.AnnualMean)

	mvp, err := solver.minVariance(nil)
	if err != nil {
		return nil, err
	}
	mvpReturn := floats.Dot(moments.AnnualMean, mvp)
	maxReturn := moments.MaxMean()

	targets := make([]float64, NumPoints)
	if NumPoints == 1 || maxReturn <= mvpReturn {
		for idx := range targets {
			targets[idx] = mvpReturn
		}
	} else {
		step := (maxReturn - mvpReturn) / float64(NumPoints-1)
		for idx := range targets {
			targets[idx] = mvpReturn + float64(idx)*step
		}
	}

	// the per-asset cap bounds what return any allocation can reach; the
	// frontier is clipped there, not extrapolated
	maxFeasible := maxAchievableReturn(moments.AnnualMean)

	points := make([]Point, 0, NumPoints)
	for _, target := range targets {
		if target > maxFeasible+weightTol {
			log.Debug().Float64("Target", target).Float64("MaxFeasible", maxFeasible).Msg("skipping infeasible frontier target")
			continue
		}
		raw, err := solver.minVariance(&target)
		if err != nil {
			log.Warn().Stack().Err(err).Float64("Target", target).Msg("skipping infeasible frontier target")
			continue
		}

		weights := cleanWeights(moments.Codes, raw)
		points = append(points, Point{
			Risk:    portfolioRisk(moments.AnnualCov, moments.Codes, weights),
			Return:  target,
			Weights: weights,
		})
	}

	if len(points) == 0 {
		return nil, ErrNoFeasibleSolution
	}

	points = dropDominated(points)

	frontier := &Frontier{
		Points:   points,
		Warnings: solver.warnings,
	}
	frontier.MaxSharpe = maxSharpe(points, riskFreeRate)
	return frontier, nil
}

// cleanWeights zeroes weights below MinWeightThreshold and renormalizes so
// the allocation stays executable. If everything washes out the raw weights
// are kept as-is.
func cleanWeights(codes []string, raw []float64) WeightVector {
	cleaned := make([]float64, len(raw))
	copy(cleaned, raw)
	for idx, v := range cleaned {
		if v < MinWeightThreshold {
			cleaned[idx] = 0
		}
	}
	total := floats.Sum(cleaned)
	if total > 0 {
		floats.Scale(1/total, cleaned)
	} else {
		copy(cleaned, raw)
	}

	weights := make(WeightVector, len(codes))
	for idx, code := range codes {
		if cleaned[idx] != 0 {
			weights[code] = cleaned[idx]
		}
	}
	return weights
}

// maxAchievableReturn is the highest expected return any capped allocation
// can reach: greedily load the best assets up to MaxSingleWeight each.
func maxAchievableReturn(mean []float64) float64 {
	sorted := make([]float64, len(mean))
	copy(sorted, mean)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	remaining := 1.0
	ret := 0.0
	for _, m := range sorted {
		w := math.Min(MaxSingleWeight, remaining)
		ret += w * m
		remaining -= w
		if remaining <= 0 {
			break
		}
	}
	return ret
}

func portfolioRisk(cov *mat.SymDense, codes []string, weights WeightVector) float64 {
	w := make([]float64, len(codes))
	for idx, code := range codes {
		w[idx] = weights[code]
	}
	variance := 0.0
	for i := range w {
		for j := range w {
			variance += w[i] * w[j] * cov.At(i, j)
		}
	}
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// dropDominated removes every point for which another point offers equal or
// higher return at equal or lower risk, then orders the survivors by return.
// Risk is non-decreasing along the result.
func dropDominated(points []Point) []Point {
	kept := make([]Point, 0, len(points))
	for i, p := range points {
		dominated := false
		for j, q := range points {
			if i == j {
				continue
			}
			if q.Return >= p.Return && q.Risk <= p.Risk && (q.Return > p.Return || q.Risk < p.Risk) {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, p)
		}
	}

	// points were generated in ascending target order already; after the
	// dominance filter risk must ascend with return
	for i := 1; i < len(kept); i++ {
		for j := i; j > 0 && kept[j].Return < kept[j-1].Return; j-- {
			kept[j], kept[j-1] = kept[j-1], kept[j]
		}
	}
	return kept
}

func maxSharpe(points []Point, riskFreeRate *float64) *Point {
	rf := 0.0
	if riskFreeRate != nil {
		rf = *riskFreeRate
	}

	var best *Point
	bestRatio := math.Inf(-1)
	for idx := range points {
		p := points[idx]
		var ratio float64
		switch {
		case p.Risk > 0:
			ratio = (p.Return - rf) / p.Risk
		case p.Return > rf:
			ratio = math.Inf(1)
		default:
			continue
		}
		if ratio > bestRatio {
			bestRatio = ratio
			best = &points[idx]
		}
	}
	if best == nil {
		return nil
	}
	cp := *best
	return &cp
}

// qpSolver carries the moment inputs plus the regularization state shared by
// every target solve of a single frontier computation.
type qpSolver struct {
	cov      *mat.SymDense
	mean     []float64
	n        int
	warnings []string
}

func newQPSolver(cov *mat.SymDense, mean []float64) *qpSolver {
	return &qpSolver{cov: cov, mean: mean, n: len(mean)}
}

// minVariance solves min wᵀΣw subject to Σw=1, optionally meanᵀw=target,
// and 0 ≤ w ≤ MaxSingleWeight. Bound constraints are handled by active-set
// iteration on the equality-constrained KKT system: variables that leave
// the box are pinned to the violated bound and the system is re-solved.
func (s *qpSolver) minVariance(target *float64) ([]float64, error) {
	fixed := make(map[int]float64)

	for iter := 0; iter <= 2*s.n; iter++ {
		w, err := s.solveKKT(target, fixed)
		if err != nil {
			return nil, err
		}

		// pin the worst box violation and re-solve
		worstIdx := -1
		worstVal := 0.0
		worstMag := weightTol
		for idx, v := range w {
			if _, ok := fixed[idx]; ok {
				continue
			}
			if v < -worstMag {
				worstIdx, worstVal, worstMag = idx, 0, -v
			} else if v > MaxSingleWeight+worstMag {
				worstIdx, worstVal, worstMag = idx, MaxSingleWeight, v-MaxSingleWeight
			}
		}
		if worstIdx == -1 {
			for idx, v := range w {
				if v < 0 {
					w[idx] = 0
				}
			}
			return w, nil
		}
		fixed[worstIdx] = worstVal

		if len(fixed) >= s.n {
			return nil, ErrNoFeasibleSolution
		}
	}

	return nil, ErrNoFeasibleSolution
}

// solveKKT solves the equality-constrained subproblem with the given
// variables pinned. A singular covariance is recovered with an escalating
// ridge term, surfaced as a warning.
func (s *qpSolver) solveKKT(target *float64, fixed map[int]float64) ([]float64, error) {
	free := make([]int, 0, s.n)
	for idx := 0; idx < s.n; idx++ {
		if _, ok := fixed[idx]; !ok {
			free = append(free, idx)
		}
	}
	nf := len(free)
	if nf == 0 {
		return nil, ErrNoFeasibleSolution
	}

	nc := 1
	if target != nil {
		nc = 2
	}

	fixedSum := 0.0
	fixedReturn := 0.0
	for idx, v := range fixed {
		fixedSum += v
		fixedReturn += s.mean[idx] * v
	}

	build := func(ridge float64) (*mat.Dense, *mat.VecDense) {
		dim := nf + nc
		m := mat.NewDense(dim, dim, nil)
		rhs := mat.NewVecDense(dim, nil)

		for i, gi := range free {
			for j, gj := range free {
				v := 2 * s.cov.At(gi, gj)
				if i == j {
					v += 2 * ridge
				}
				m.Set(i, j, v)
			}
			// cross terms with pinned variables move to the right-hand side
			cross := 0.0
			for idx, fv := range fixed {
				cross += s.cov.At(gi, idx) * fv
			}
			rhs.SetVec(i, -2*cross)

			m.Set(i, nf, 1)
			m.Set(nf, i, 1)
			if target != nil {
				m.Set(i, nf+1, s.mean[gi])
				m.Set(nf+1, i, s.mean[gi])
			}
		}
		rhs.SetVec(nf, 1-fixedSum)
		if target != nil {
			rhs.SetVec(nf+1, *target-fixedReturn)
		}
		return m, rhs
	}

	ridges := []float64{0, 1e-8, 1e-7, 1e-6, 1e-5, 1e-4}
	for _, ridge := range ridges {
		m, rhs := build(ridge)
		var sol mat.VecDense
		if err := sol.SolveVec(m, rhs); err != nil {
			if ridge == 0 {
				continue
			}
			s.warn(fmt.Sprintf("注意：协方差矩阵接近奇异，正则化 λ=%g 仍无法求解。", ridge))
			continue
		}
		if ridge > 0 {
			s.warn(fmt.Sprintf("注意：协方差矩阵接近奇异，已加入 λ=%g 正则化项，结果可能不够精确。", ridge))
		}

		w := make([]float64, s.n)
		for i, gi := range free {
			w[gi] = sol.AtVec(i)
		}
		for idx, v := range fixed {
			w[idx] = v
		}
		return w, nil
	}

	return nil, ErrNoFeasibleSolution
}

func (s *qpSolver) warn(msg string) {
	for _, w := range s.warnings {
		if w == msg {
			return
		}
	}
	s.warnings = append(s.warnings, msg)
}
