package timetricks

import (
	"math"
	"time"
)

const dayFormat = "20060102"

func SameDay(t time.Time, t2 time.Time) bool {
	return t.Format(dayFormat) == t2.Format(dayFormat)
}

func TrimClock(t time.Time) time.Time {
	h, m, s := t.Clock()
	return t.Add(-1 *
		(time.Duration(h)*time.Hour +
			time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second))
}

// Hours returns the span between two instants in hours, rounded to a tenth.
func Hours(from, to time.Time) float64 {
	return math.Round(to.Sub(from).Hours()*10) / 10
}
