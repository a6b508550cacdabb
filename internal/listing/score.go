package listing

import (
	"fmt"
	"math"
)

// ScoreBucket names one of the fixed mechanism score ranges
type ScoreBucket string

const (
	ScoreBelow50 ScoreBucket = "below-50"
	Score50to60  ScoreBucket = "50-60"
	Score60to70  ScoreBucket = "60-70"
	Score70to80  ScoreBucket = "70-80"
	Score80to90  ScoreBucket = "80-90"
	Score90to100 ScoreBucket = "90-100"
)

// ScoreBuckets lists the buckets in display order
var ScoreBuckets = []ScoreBucket{
	ScoreBelow50, Score50to60, Score60to70, Score70to80, Score80to90, Score90to100,
}

type bounds struct {
	lo, hi    float64
	inclusive bool // upper bound included
}

var bucketBounds = map[ScoreBucket]bounds{
	ScoreBelow50: {lo: math.Inf(-1), hi: 50},
	Score50to60:  {lo: 50, hi: 60},
	Score60to70:  {lo: 60, hi: 70},
	Score70to80:  {lo: 70, hi: 80},
	Score80to90:  {lo: 80, hi: 90},
	Score90to100: {lo: 90, hi: 100, inclusive: true},
}

// IsValid reports whether b is one of the fixed buckets
func (b ScoreBucket) IsValid() bool {
	_, ok := bucketBounds[b]
	return ok
}

// Contains reports whether score falls in the bucket. Lower bounds are
// inclusive; only 90-100 includes its upper bound.
func (b ScoreBucket) Contains(score float64) bool {
	r, ok := bucketBounds[b]
	if !ok {
		return false
	}
	if score < r.lo {
		return false
	}
	if r.inclusive {
		return score <= r.hi
	}
	return score < r.hi
}

// ParseScoreBucket parses a bucket label. "all" and empty return "" with no
// error, meaning no score filtering.
func ParseScoreBucket(s string) (ScoreBucket, error) {
	if Disabled(s) {
		return "", nil
	}
	b := ScoreBucket(s)
	if !b.IsValid() {
		return "", fmt.Errorf("unknown score bucket %q", s)
	}
	return b, nil
}

// ApplyScoreBucket keeps the records whose score falls in bucket. An empty or
// unknown bucket returns records unchanged.
func ApplyScoreBucket[T any](records []T, bucket ScoreBucket, score func(T) float64) []T {
	if !bucket.IsValid() {
		return records
	}
	return Where(records, func(r T) bool { return bucket.Contains(score(r)) })
}
