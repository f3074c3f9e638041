package sm2

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/recall/pkg/models"
)

// ErrInvalidQuality is returned when a caller passes a quality grade outside 0-5.
// The grade is rejected rather than clamped so a buggy caller cannot silently
// skew the ease math.
var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// Quality represents the quality of recall on the SM-2 0-5 scale
type Quality int

const (
	// Complete blackout, unable to recall
	QualityBlackout Quality = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect Quality = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar Quality = 2
	// Correct response but required significant effort
	QualityCorrectDifficult Quality = 3
	// Correct response after some hesitation
	QualityCorrectHesitation Quality = 4
	// Perfect response with no hesitation
	QualityPerfect Quality = 5
)

// Valid reports whether the grade is on the 0-5 scale.
func (q Quality) Valid() bool {
	return q >= QualityBlackout && q <= QualityPerfect
}

// Config holds the tunable constants of the scheduler. The defaults follow the
// classic SM-2 parameters; products may tune them, so nothing is hard-coded.
type Config struct {
	// Quality grades at or above this value count as a successful review
	PassThreshold Quality
	// Flat ease deduction applied on a lapse
	EasePenalty float64
	// Lower bound for the ease factor
	MinEase float64
	// Interval after the first successful review, in days
	FirstInterval float64
	// Interval after the second consecutive successful review, in days
	SecondInterval float64
	// Ceiling for the multiplicative interval growth, in days
	MaxInterval float64
	// Consecutive successful reviews required before an item can be mastered
	MasteryRepetitions int
	// Interval an item must exceed before it can be mastered, in days
	MasteryInterval float64
}

// DefaultConfig returns the standard SM-2 parameters.
func DefaultConfig() Config {
	return Config{
		PassThreshold:      QualityCorrectDifficult,
		EasePenalty:        0.2,
		MinEase:            1.3,
		FirstInterval:      1,
		SecondInterval:     6,
		MaxInterval:        365,
		MasteryRepetitions: 8,
		MasteryInterval:    60,
	}
}

// Engine scores reviews with the SM-2 algorithm. It holds no per-record state;
// every call is a pure transformation of one record plus one quality grade.
type Engine struct {
	cfg Config
}

// New creates an engine with the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Score applies one review outcome to a record and returns the updated copy.
// The input record is never mutated; persistence is the caller's job.
//
// On failure (quality below the pass threshold) the repetition streak and
// interval reset and the ease factor takes a flat penalty. On success the
// streak is incremented first and the interval branch is chosen on the new
// count, so a fresh record always lands on the first fixed interval.
func (e *Engine) Score(rec models.ReviewRecord, quality Quality, now time.Time) (models.ReviewRecord, error) {
	if !quality.Valid() {
		return rec, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}

	if quality < e.cfg.PassThreshold {
		rec.Repetitions = 0
		rec.IntervalDays = e.cfg.FirstInterval
		rec.Lapses++
		rec.EaseFactor = floorEase(rec.EaseFactor-e.cfg.EasePenalty, e.cfg.MinEase)
		rec.Status = models.StatusLearning
	} else {
		rec.Repetitions++
		rec.EaseFactor = floorEase(nextEase(rec.EaseFactor, quality), e.cfg.MinEase)

		switch {
		case rec.Repetitions == 1:
			rec.IntervalDays = e.cfg.FirstInterval
		case rec.Repetitions == 2:
			rec.IntervalDays = e.cfg.SecondInterval
		default:
			rec.IntervalDays = rec.IntervalDays * rec.EaseFactor
			if rec.IntervalDays > e.cfg.MaxInterval {
				rec.IntervalDays = e.cfg.MaxInterval
			}
		}

		rec.Status = e.promote(rec)
	}

	rec.DueAt = now.Add(days(rec.IntervalDays))
	reviewedAt := now
	rec.LastReviewedAt = &reviewedAt

	return rec, nil
}

// promote walks the record through the success-side status transitions:
// new items enter learning on their first review, learning items graduate to
// review after two consecutive successes, and review items become mastered once
// both the repetition and interval thresholds are cleared.
func (e *Engine) promote(rec models.ReviewRecord) models.ReviewStatus {
	status := rec.Status
	if status == models.StatusNew {
		status = models.StatusLearning
	}
	if status == models.StatusLearning && rec.Repetitions >= 2 {
		status = models.StatusReview
	}
	if status == models.StatusReview && rec.Repetitions >= e.cfg.MasteryRepetitions && rec.IntervalDays > e.cfg.MasteryInterval {
		status = models.StatusMastered
	}
	return status
}

// nextEase computes the SM-2 ease adjustment for a successful review.
func nextEase(ease float64, quality Quality) float64 {
	q := float64(quality)
	return ease + (0.1 - (5.0-q)*(0.08+(5.0-q)*0.02))
}

func floorEase(ease, min float64) float64 {
	if ease < min {
		return min
	}
	return ease
}

// days converts a fractional day count to a duration.
func days(d float64) time.Duration {
	return time.Duration(d * float64(24*time.Hour))
}
