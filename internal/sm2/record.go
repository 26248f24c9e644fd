package sm2

import "time"

// Classification is the derived study state of a record at a point in time.
type Classification int

const (
	New       Classification = iota + 1 // never reviewed
	Due                                 // reviewed before, review instant has passed
	Scheduled                           // reviewed before, not yet due
)

var classificationNames = [...]string{New: "New", Due: "Due", Scheduled: "Scheduled"}

// String returns the classification name ("New", "Due", "Scheduled").
func (c Classification) String() string {
	if c >= New && c <= Scheduled {
		return classificationNames[c]
	}
	return "Classification(?)"
}

// MemoryRecord is the per-card scheduling state. It is a plain value:
// Review returns a new record and never mutates its input, so records may
// be shared across goroutines freely as long as each review operates on
// its own copy.
type MemoryRecord struct {
	EaseFactor     float64    `json:"ease_factor"`
	IntervalDays   int        `json:"interval_days"`
	NextReviewAt   time.Time  `json:"next_review_at"`
	ReviewCount    int        `json:"review_count"`
	LapseCount     int        `json:"lapse_count"`
	CorrectCount   int        `json:"correct_count"`
	PerfectCount   int        `json:"perfect_count"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"` // nil before first review
}

// NewRecord returns the state of a freshly introduced card: default ease,
// no interval, immediately due.
func NewRecord(now time.Time) MemoryRecord {
	return MemoryRecord{
		EaseFactor:   DefaultEase,
		NextReviewAt: now,
	}
}

// IsNew reports whether the card has never been reviewed.
func (m MemoryRecord) IsNew() bool {
	return m.ReviewCount == 0
}

// IsDue reports whether a previously reviewed card's scheduled instant has
// passed. New cards are never due; they are New.
func (m MemoryRecord) IsDue(now time.Time) bool {
	return m.ReviewCount > 0 && !m.NextReviewAt.After(now)
}

// Classify returns the record's study state at the given instant.
func (m MemoryRecord) Classify(now time.Time) Classification {
	switch {
	case m.IsNew():
		return New
	case m.IsDue(now):
		return Due
	default:
		return Scheduled
	}
}

// SuccessRate returns the fraction of reviews graded Good or Easy,
// in [0, 1]. It is 0 for an unreviewed card.
func (m MemoryRecord) SuccessRate() float64 {
	if m.ReviewCount == 0 {
		return 0
	}
	return float64(m.CorrectCount+m.PerfectCount) / float64(m.ReviewCount)
}
