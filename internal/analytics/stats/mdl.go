package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soltixdb/airaudit/internal/analytics"
)

// BlankBranch identifies which estimator produced MDL_b
type BlankBranch string

const (
	// BranchStudentT is x̄ + t·SD, used for small blank groups
	BranchStudentT BlankBranch = "student_t"
	// BranchPercentileRank is the 99th-percentile-by-rank value, used for large blank groups
	BranchPercentileRank BlankBranch = "percentile_rank"
)

const (
	// DefaultMDLConfidence is the one-sided confidence level of the critical t value
	DefaultMDLConfidence = 0.99
	// DefaultRankThreshold is the largest blank size still handled by the t estimator
	DefaultRankThreshold = 100
)

// CriticalValueFunc returns the one-sided critical t value at confidence for df degrees of freedom
type CriticalValueFunc func(df int, confidence float64) float64

// StudentTCritical is the exact quantile of Student's t distribution
func StudentTCritical(df int, confidence float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return dist.Quantile(confidence)
}

// MDLResult reports the method detection limit with every intermediate value
type MDLResult struct {
	SpikeCount int     `json:"spike_n"`
	SpikeT     float64 `json:"spike_t"`
	SpikeSD    float64 `json:"spike_sd"`
	MDLs       float64 `json:"mdl_s"`

	BlankCount  int         `json:"blank_n"`
	BlankBranch BlankBranch `json:"blank_branch"`
	BlankMean   float64     `json:"blank_mean"`
	BlankSD     float64     `json:"blank_sd"`
	// BlankT is set on the t branch, BlankRank on the percentile-rank branch (1-indexed)
	BlankT    float64 `json:"blank_t,omitempty"`
	BlankRank int     `json:"blank_rank,omitempty"`
	MDLb      float64 `json:"mdl_b"`

	MDL float64 `json:"mdl"`
}

// MDLEstimator combines a spike and a blank grouping into a method detection limit
type MDLEstimator struct {
	Confidence    float64
	RankThreshold int
	Critical      CriticalValueFunc
}

// NewMDLEstimator returns an estimator using the exact t distribution
func NewMDLEstimator(confidence float64, rankThreshold int) *MDLEstimator {
	if confidence <= 0 || confidence >= 1 {
		confidence = DefaultMDLConfidence
	}
	if rankThreshold <= 0 {
		rankThreshold = DefaultRankThreshold
	}
	return &MDLEstimator{
		Confidence:    confidence,
		RankThreshold: rankThreshold,
		Critical:      StudentTCritical,
	}
}

// Estimate computes MDL = max(MDL_s, MDL_b). Missing values are ignored.
func (e *MDLEstimator) Estimate(spike, blank []float64) (MDLResult, error) {
	spikeStats, err := ComputeBasic(spike)
	if err != nil {
		return MDLResult{}, fmt.Errorf("spike: %w", err)
	}
	blankStats, err := ComputeBasic(blank)
	if err != nil {
		return MDLResult{}, fmt.Errorf("blank: %w", err)
	}
	if spikeStats.Count < 2 {
		return MDLResult{}, fmt.Errorf("spike has %d samples: %w", spikeStats.Count, analytics.ErrInsufficientSamples)
	}

	var res MDLResult
	res.SpikeCount = spikeStats.Count
	res.SpikeSD = spikeStats.SD
	res.SpikeT = e.Critical(spikeStats.Count-1, e.Confidence)
	res.MDLs = res.SpikeT * res.SpikeSD

	res.BlankCount = blankStats.Count
	res.BlankSD = blankStats.SD
	if blankStats.Count <= e.RankThreshold {
		if blankStats.Count < 2 {
			return MDLResult{}, fmt.Errorf("blank has %d samples: %w", blankStats.Count, analytics.ErrInsufficientSamples)
		}
		res.BlankBranch = BranchStudentT
		res.BlankMean = math.Max(blankStats.Mean, 0)
		res.BlankT = e.Critical(blankStats.Count-1, e.Confidence)
		res.MDLb = res.BlankMean + res.BlankT*res.BlankSD
	} else {
		res.BlankBranch = BranchPercentileRank
		res.BlankMean = blankStats.Mean
		res.BlankRank, res.MDLb = percentileRank(blank, e.Confidence)
	}

	res.MDL = math.Max(res.MDLs, res.MDLb)
	return res, nil
}

// percentileRank returns the 1-indexed rank round(confidence·n), with ties rounded to even,
// and the value at that rank in ascending order
func percentileRank(values []float64, confidence float64) (int, float64) {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)

	rank := int(math.RoundToEven(confidence * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return rank, sorted[rank-1]
}
