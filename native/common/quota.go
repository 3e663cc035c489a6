package common

import (
	"errors"
	"math"
)

// SecondsPerDay sizes the daily claim window.
const SecondsPerDay = 86_400

var ErrDailyCounterOverflow = errors.New("daily counter overflow")

// DayIndex returns the calendar day index (epoch seconds / 86400).
func DayIndex(ts uint64) uint32 {
	return uint32(ts / SecondsPerDay)
}

// DailyMeter tracks how much was consumed on a given day index.
type DailyMeter struct {
	Day  uint32
	Used uint64
}

// Roll resets the meter when the day changes. The returned meter is only
// persisted by the caller together with the rest of its record.
func (m DailyMeter) Roll(day uint32) DailyMeter {
	if m.Day != day {
		return DailyMeter{Day: day}
	}
	return m
}

// Remaining reports the allowance left under limit. A zero limit is unlimited.
func (m DailyMeter) Remaining(limit uint64) uint64 {
	if limit == 0 {
		return math.MaxUint64
	}
	if m.Used >= limit {
		return 0
	}
	return limit - m.Used
}

// Add records amount against the meter.
func (m DailyMeter) Add(amount uint64) (DailyMeter, error) {
	if amount > 0 && m.Used > math.MaxUint64-amount {
		return m, ErrDailyCounterOverflow
	}
	m.Used += amount
	return m, nil
}
