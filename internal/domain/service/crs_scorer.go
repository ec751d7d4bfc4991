package service

import (
	"math"
	"time"
)

// CRS sub-score weights. These are a fixed scoring policy, not tunables:
// changing them breaks score comparability across runs. They sum to 1.0.
const (
	weightLength    = 0.25
	weightAmount    = 0.20
	weightTime      = 0.20
	weightFrequency = 0.20
	weightVolume    = 0.15
)

// frequencySaturation is the canonical-cycle occurrence count at which the
// frequency sub-score saturates at 1.0.
const frequencySaturation = 3.0

func clamp01(x float64) float64 {
	return math.Max(0.0, math.Min(1.0, x))
}

// round2 rounds half away from zero. Exact half-cent ties therefore round up
// where a banker's-rounding implementation would round to even; this tie mode
// is the documented policy for reported scores.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// crsScorer computes the composite 0-100 Circular Risk Score for a cycle.
// It reads the unpruned aggregate graph: volume and amount sub-scores must
// see the members' full edge sets, hubs included.
type crsScorer struct {
	graph       *txnGraph
	maxDuration time.Duration
}

// lengthScore prefers shorter cycles: 1.0 at the minimum length, decreasing
// linearly toward the maximum.
func (s *crsScorer) lengthScore(cycle []string) float64 {
	length := float64(len(cycle))
	return clamp01((maxCycleLength - length + 1) / (maxCycleLength - minCycleLength + 1))
}

// amountSimilarityScore is 1 minus the coefficient of variation of the
// per-edge average amounts around the cycle. A zero mean scores 0.0; a
// single edge scores 1.0.
func (s *crsScorer) amountSimilarityScore(edges [][2]string) float64 {
	amounts := make([]float64, 0, len(edges))
	for _, e := range edges {
		if edge, ok := s.graph.edge(e[0], e[1]); ok {
			amounts = append(amounts, edge.TotalAmount/float64(edge.Weight))
		}
	}
	if len(amounts) == 0 {
		return 0.0
	}

	mean := 0.0
	for _, a := range amounts {
		mean += a
	}
	mean /= float64(len(amounts))
	if mean == 0 {
		return 0.0
	}
	if len(amounts) == 1 {
		return 1.0
	}

	return clamp01(1 - sampleStdev(amounts, mean)/mean)
}

// sampleStdev matches the n-1 denominator of the reference statistics.
func sampleStdev(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// timeScore rewards compact cycles: 1 minus the timestamp span over the
// maximum allowed duration, clamped. Fewer than two known timestamps is
// insufficient evidence and scores a neutral 0.5.
func (s *crsScorer) timeScore(edges [][2]string) float64 {
	var timestamps []time.Time
	for _, e := range edges {
		for _, meta := range s.graph.edgeMetadata(e[0], e[1]) {
			if meta.Timestamp != nil {
				timestamps = append(timestamps, *meta.Timestamp)
			}
		}
	}
	if len(timestamps) < 2 {
		return 0.5
	}

	earliest, latest := timestamps[0], timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts.Before(earliest) {
			earliest = ts
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	span := latest.Sub(earliest).Seconds()
	return clamp01(1 - span/s.maxDuration.Seconds())
}

// frequencyScore scales how often this exact canonical ring recurred in the
// batch, saturating at three occurrences.
func (s *crsScorer) frequencyScore(cycle []string, occurrences map[string]int) float64 {
	count := occurrences[cycleKey(canonicalCycle(cycle))]
	return clamp01(float64(count) / frequencySaturation)
}

// volumeScore is the fraction of the members' total outflow that stays
// inside the loop. Zero total outflow scores 0.0.
func (s *crsScorer) volumeScore(cycle []string, edges [][2]string) float64 {
	cycleVolume := 0.0
	for _, e := range edges {
		if edge, ok := s.graph.edge(e[0], e[1]); ok {
			cycleVolume += edge.TotalAmount
		}
	}

	totalOutgoing := 0.0
	for _, member := range cycle {
		for _, to := range s.graph.successors(member) {
			if edge, ok := s.graph.edge(member, to); ok {
				totalOutgoing += edge.TotalAmount
			}
		}
	}
	if totalOutgoing == 0 {
		return 0.0
	}
	return clamp01(cycleVolume / totalOutgoing)
}

// compute combines the five sub-scores with the fixed weights, clamps the
// sum, scales to 0-100 and rounds to two decimals.
func (s *crsScorer) compute(cycle []string, occurrences map[string]int) float64 {
	edges := cycleEdges(cycle)

	raw := weightLength*s.lengthScore(cycle) +
		weightAmount*s.amountSimilarityScore(edges) +
		weightTime*s.timeScore(edges) +
		weightFrequency*s.frequencyScore(cycle, occurrences) +
		weightVolume*s.volumeScore(cycle, edges)

	return round2(clamp01(raw) * 100)
}
