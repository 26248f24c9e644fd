// Package stats derives read-only rollups over a collection of memory
// records. All functions are O(n), pure, and return neutral values on
// empty input.
package stats

import "github.com/rishabhcli/cardgenie/internal/sm2"

// minutesPerCard is the study-time estimate per due card, 30 seconds.
const minutesPerCard = 0.5

// SetSuccessRate returns the mean success rate across reviewed cards,
// or 0 when no card has been reviewed.
func SetSuccessRate(records []sm2.MemoryRecord) float64 {
	var sum float64
	var reviewed int
	for _, r := range records {
		if r.ReviewCount > 0 {
			sum += r.SuccessRate()
			reviewed++
		}
	}
	if reviewed == 0 {
		return 0
	}
	return sum / float64(reviewed)
}

// TotalReviews returns the total number of completed reviews across
// the collection.
func TotalReviews(records []sm2.MemoryRecord) int {
	var total int
	for _, r := range records {
		total += r.ReviewCount
	}
	return total
}

// AverageEase returns the mean ease factor across reviewed cards. When no
// card has been reviewed it returns the scheduler's default ease, so a fresh
// deck reads as average difficulty rather than zero.
func AverageEase(records []sm2.MemoryRecord) float64 {
	var sum float64
	var reviewed int
	for _, r := range records {
		if r.ReviewCount > 0 {
			sum += r.EaseFactor
			reviewed++
		}
	}
	if reviewed == 0 {
		return sm2.DefaultEase
	}
	return sum / float64(reviewed)
}

// EstimateStudyMinutes estimates how long reviewing dueCount cards takes.
// Consumers display this directly; the 30-seconds-per-card constant is part
// of the contract.
func EstimateStudyMinutes(dueCount int) float64 {
	return float64(dueCount) * minutesPerCard
}
