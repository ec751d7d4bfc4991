package service

import (
	"math"
	"testing"
	"time"

	"fraud-ring-analyzer/internal/domain/entity"
)

const maxCycleDuration = 7 * 24 * time.Hour

func triangleGraph(amounts [3]float64, timestamps [3]string) *txnGraph {
	return buildTransactionGraph([]*entity.Transaction{
		tx("A", "B", amounts[0], timestamps[0]),
		tx("B", "C", amounts[1], timestamps[1]),
		tx("C", "A", amounts[2], timestamps[2]),
	})
}

func TestCRSWeightsSumToOne(t *testing.T) {
	sum := weightLength + weightAmount + weightTime + weightFrequency + weightVolume
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("weights sum to %v, want 1.0", sum)
	}
}

func TestLengthScore(t *testing.T) {
	s := &crsScorer{}
	tests := []struct {
		length int
		want   float64
	}{
		{3, 1.0},
		{4, 2.0 / 3.0},
		{5, 1.0 / 3.0},
	}
	for _, tt := range tests {
		cycle := make([]string, tt.length)
		if got := s.lengthScore(cycle); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("lengthScore(len %d) = %v, want %v", tt.length, got, tt.want)
		}
	}
}

func TestAmountSimilarityScore(t *testing.T) {
	cycle := []string{"A", "B", "C"}
	edges := cycleEdges(cycle)

	t.Run("Identical amounts", func(t *testing.T) {
		s := &crsScorer{graph: triangleGraph([3]float64{100, 100, 100}, [3]string{"", "", ""})}
		if got := s.amountSimilarityScore(edges); got != 1.0 {
			t.Errorf("score = %v, want 1.0", got)
		}
	})

	t.Run("Dissimilar amounts score lower", func(t *testing.T) {
		similar := &crsScorer{graph: triangleGraph([3]float64{100, 110, 90}, [3]string{"", "", ""})}
		spread := &crsScorer{graph: triangleGraph([3]float64{10, 500, 1000}, [3]string{"", "", ""})}
		if similar.amountSimilarityScore(edges) <= spread.amountSimilarityScore(edges) {
			t.Error("similar amounts must not score below spread amounts")
		}
	})

	t.Run("Zero mean", func(t *testing.T) {
		s := &crsScorer{graph: triangleGraph([3]float64{0, 0, 0}, [3]string{"", "", ""})}
		if got := s.amountSimilarityScore(edges); got != 0.0 {
			t.Errorf("score = %v, want 0.0", got)
		}
	})
}

func TestTimeScore(t *testing.T) {
	cycle := []string{"A", "B", "C"}
	edges := cycleEdges(cycle)

	t.Run("No timestamps is neutral", func(t *testing.T) {
		s := &crsScorer{graph: triangleGraph([3]float64{1, 1, 1}, [3]string{"", "", ""}), maxDuration: maxCycleDuration}
		if got := s.timeScore(edges); got != 0.5 {
			t.Errorf("score = %v, want 0.5", got)
		}
	})

	t.Run("Single timestamp is neutral", func(t *testing.T) {
		s := &crsScorer{graph: triangleGraph([3]float64{1, 1, 1}, [3]string{"2024-03-15 10:00:00", "", ""}), maxDuration: maxCycleDuration}
		if got := s.timeScore(edges); got != 0.5 {
			t.Errorf("score = %v, want 0.5", got)
		}
	})

	t.Run("Compact span scores higher", func(t *testing.T) {
		fast := &crsScorer{graph: triangleGraph([3]float64{1, 1, 1},
			[3]string{"2024-03-15 10:00:00", "2024-03-15 11:00:00", "2024-03-15 12:00:00"}), maxDuration: maxCycleDuration}
		slow := &crsScorer{graph: triangleGraph([3]float64{1, 1, 1},
			[3]string{"2024-03-10 10:00:00", "2024-03-13 11:00:00", "2024-03-16 12:00:00"}), maxDuration: maxCycleDuration}
		if fast.timeScore(edges) <= slow.timeScore(edges) {
			t.Error("compact cycle must not score below slow cycle")
		}
	})

	t.Run("Span beyond maximum clamps to zero", func(t *testing.T) {
		s := &crsScorer{graph: triangleGraph([3]float64{1, 1, 1},
			[3]string{"2024-01-01 00:00:00", "2024-02-01 00:00:00", "2024-03-01 00:00:00"}), maxDuration: maxCycleDuration}
		if got := s.timeScore(edges); got != 0.0 {
			t.Errorf("score = %v, want 0.0", got)
		}
	})
}

func TestFrequencyScore(t *testing.T) {
	s := &crsScorer{}
	cycle := []string{"A", "B", "C"}
	tests := []struct {
		count int
		want  float64
	}{
		{0, 0.0},
		{1, 1.0 / 3.0},
		{2, 2.0 / 3.0},
		{3, 1.0},
		{7, 1.0}, // saturates
	}
	for _, tt := range tests {
		occurrences := map[string]int{cycleKey(cycle): tt.count}
		if got := s.frequencyScore(cycle, occurrences); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("frequencyScore(count %d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestVolumeScore(t *testing.T) {
	cycle := []string{"A", "B", "C"}
	edges := cycleEdges(cycle)

	t.Run("All outflow inside the loop", func(t *testing.T) {
		s := &crsScorer{graph: triangleGraph([3]float64{100, 100, 100}, [3]string{"", "", ""})}
		if got := s.volumeScore(cycle, edges); got != 1.0 {
			t.Errorf("score = %v, want 1.0", got)
		}
	})

	t.Run("Outside outflow dilutes the ratio", func(t *testing.T) {
		g := buildTransactionGraph([]*entity.Transaction{
			tx("A", "B", 100, ""),
			tx("B", "C", 100, ""),
			tx("C", "A", 100, ""),
			tx("A", "Elsewhere", 300, ""),
		})
		s := &crsScorer{graph: g}
		if got := s.volumeScore(cycle, edges); math.Abs(got-0.5) > 1e-9 {
			t.Errorf("score = %v, want 0.5", got)
		}
	})

	t.Run("Zero outgoing", func(t *testing.T) {
		s := &crsScorer{graph: triangleGraph([3]float64{0, 0, 0}, [3]string{"", "", ""})}
		if got := s.volumeScore(cycle, edges); got != 0.0 {
			t.Errorf("score = %v, want 0.0", got)
		}
	})
}

func TestComputeStaysInRange(t *testing.T) {
	graphs := []*txnGraph{
		triangleGraph([3]float64{100, 100, 100}, [3]string{"2024-03-15 10:00:00", "2024-03-15 11:00:00", "2024-03-15 12:00:00"}),
		triangleGraph([3]float64{0, 0, 0}, [3]string{"", "", ""}),
		triangleGraph([3]float64{1, 5000, 2}, [3]string{"2024-01-01", "2024-06-01", ""}),
	}
	cycle := []string{"A", "B", "C"}
	occurrences := map[string]int{cycleKey(cycle): 1}

	for i, g := range graphs {
		s := &crsScorer{graph: g, maxDuration: maxCycleDuration}
		score := s.compute(cycle, occurrences)
		if score < 0 || score > 100 {
			t.Errorf("graph %d: score %v outside [0,100]", i, score)
		}
	}
}

func TestComputeMonotonicInSimilarityAndCompactness(t *testing.T) {
	cycle := []string{"A", "B", "C"}
	occurrences := map[string]int{cycleKey(cycle): 1}

	tight := &crsScorer{graph: triangleGraph([3]float64{100, 100, 100},
		[3]string{"2024-03-15 10:00:00", "2024-03-15 11:00:00", "2024-03-15 12:00:00"}), maxDuration: maxCycleDuration}
	loose := &crsScorer{graph: triangleGraph([3]float64{10, 400, 900},
		[3]string{"2024-03-10 10:00:00", "2024-03-13 11:00:00", "2024-03-16 12:00:00"}), maxDuration: maxCycleDuration}

	if tight.compute(cycle, occurrences) < loose.compute(cycle, occurrences) {
		t.Error("score must be non-decreasing in amount similarity and time compactness")
	}
}
