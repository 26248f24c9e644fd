// Package sm2 implements the spaced-repetition scheduling engine: a
// deterministic SM-2 variant mapping a per-card memory record and a review
// response to the updated record and its next due instant.
//
// Review is a pure function. The clock is injected, nothing is mutated in
// place, and there is no failure path: out-of-range inputs are clamped.
package sm2

import (
	"math"
	"time"
)

const (
	// DefaultEase is the ease factor of a freshly introduced card.
	DefaultEase = 2.5
	// MinEase and MaxEase bound the ease factor; no sequence of reviews
	// can push it outside [MinEase, MaxEase].
	MinEase = 1.3
	MaxEase = 3.0

	// MaxIntervalDays caps the review interval at 100 years. The cap
	// saturates: intervals never decrease because of it.
	MaxIntervalDays = 36500

	easeAgainPenalty = 0.2
	easeEasyBonus    = 0.15
	easyGrowthBonus  = 1.3

	firstGoodIntervalDays = 1
	firstEasyIntervalDays = 4

	// relearnDelay is the short-term retry after a lapse, the one
	// sub-day scheduling case.
	relearnDelay = 10 * time.Minute
)

// Review applies a single review to the record and returns the updated
// record. The input is never mutated.
//
// The ease factor is adjusted first, then the interval is computed from the
// adjusted ease. Day-granularity due dates anchor at local midnight of the
// review instant plus the interval, so all cards reviewed on the same day
// land on the same boundary.
//
// Records whose ease factor has drifted outside [MinEase, MaxEase], or whose
// interval has gone negative, are clamped back into range before the update.
func Review(rec MemoryRecord, resp Response, now time.Time) MemoryRecord {
	out := rec
	out.EaseFactor = clampEase(out.EaseFactor)
	if out.IntervalDays < 0 {
		out.IntervalDays = 0
	}

	switch resp {
	case Again:
		out.EaseFactor = clampEase(out.EaseFactor - easeAgainPenalty)
		out.IntervalDays = 0
		out.NextReviewAt = now.Add(relearnDelay)
		out.LapseCount++

	case Easy:
		out.EaseFactor = clampEase(out.EaseFactor + easeEasyBonus)
		if out.IntervalDays == 0 {
			out.IntervalDays = firstEasyIntervalDays
		} else {
			out.IntervalDays = grow(out.IntervalDays, out.EaseFactor*easyGrowthBonus)
		}
		out.NextReviewAt = startOfDay(now).AddDate(0, 0, out.IntervalDays)
		out.PerfectCount++

	default:
		// Good; unknown responses are treated as Good rather than
		// rejected, since Review has no error path.
		if out.IntervalDays == 0 {
			out.IntervalDays = firstGoodIntervalDays
		} else {
			out.IntervalDays = grow(out.IntervalDays, out.EaseFactor)
		}
		out.NextReviewAt = startOfDay(now).AddDate(0, 0, out.IntervalDays)
		out.CorrectCount++
	}

	out.ReviewCount++
	reviewed := now
	out.LastReviewedAt = &reviewed
	return out
}

// grow multiplies the interval by factor, rounding up, with a floor of
// interval+1 so a low ease can never stall the progression, and a ceiling
// of MaxIntervalDays.
func grow(intervalDays int, factor float64) int {
	next := int(math.Ceil(float64(intervalDays) * factor))
	if next < intervalDays+1 {
		next = intervalDays + 1
	}
	if next > MaxIntervalDays {
		next = MaxIntervalDays
	}
	return next
}

func clampEase(e float64) float64 {
	return math.Min(math.Max(e, MinEase), MaxEase)
}

// startOfDay returns local midnight of t, in t's location.
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
