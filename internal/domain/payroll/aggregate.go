package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// HourTotals are the hour buckets of one caregiver for one period. Weekend
// and night hours are subsets of TotalHours, not extra hours.
type HourTotals struct {
	TotalMinutes  int             `json:"totalMinutes"`
	TotalHours    decimal.Decimal `json:"totalHours"`
	RegularHours  decimal.Decimal `json:"regularHours"`
	OvertimeHours decimal.Decimal `json:"overtimeHours"`
	WeekendHours  decimal.Decimal `json:"weekendHours"`
	NightHours    decimal.Decimal `json:"nightHours"`

	// DailyOvertimeHours is the part of OvertimeHours produced by the daily
	// rule; zero unless daily overtime is enabled.
	DailyOvertimeHours decimal.Decimal `json:"dailyOvertimeHours"`
}

// Aggregate sums billable minutes of reconciled shifts into hour buckets.
//
// The overtime threshold is weekly. Weeks are seven calendar days counted
// from weekStart, normally the period start, and overtime is computed inside
// each week and then summed. With daily overtime enabled, hours beyond
// DailyOvertimeThreshold on a calendar day are overtime and do not count
// toward that week's threshold, so each week takes the greater of the daily
// and the weekly rule.
func Aggregate(shifts []Reconciliation, settings PayrollSettings, weekStart time.Time) HourTotals {
	var total, weekend, night int
	weeks := map[int]map[time.Time]int{}
	for _, shift := range shifts {
		total += shift.BillableMinutes
		if shift.IsWeekend {
			weekend += shift.BillableMinutes
		}
		if shift.IsNight {
			night += shift.BillableMinutes
		}
		day := dateOf(shift.ClockIn)
		week := weekIndex(weekStart, day)
		if weeks[week] == nil {
			weeks[week] = map[time.Time]int{}
		}
		weeks[week][day] += shift.BillableMinutes
	}

	overtime, dailyTotal := decimal.Zero, decimal.Zero
	for _, perDay := range weeks {
		weekMinutes := 0
		for _, minutes := range perDay {
			weekMinutes += minutes
		}
		dailyOT := decimal.Zero
		if settings.DailyOvertimeEnabled {
			dailyOT = dailyOvertime(perDay, settings.DailyOvertimeThreshold)
		}
		weeklyOT := minutesToHours(weekMinutes).Sub(dailyOT).Sub(settings.OvertimeThreshold)
		if weeklyOT.IsNegative() {
			weeklyOT = decimal.Zero
		}
		overtime = overtime.Add(dailyOT).Add(weeklyOT)
		dailyTotal = dailyTotal.Add(dailyOT)
	}

	totalHours := minutesToHours(total)
	return HourTotals{
		TotalMinutes:       total,
		TotalHours:         totalHours,
		RegularHours:       totalHours.Sub(overtime),
		OvertimeHours:      overtime,
		WeekendHours:       minutesToHours(weekend),
		NightHours:         minutesToHours(night),
		DailyOvertimeHours: dailyTotal,
	}
}

// weekIndex numbers the seven day week of day relative to start. Days before
// start fall into week zero.
func weekIndex(start, day time.Time) int {
	days := int(day.Sub(dateOf(start)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 7
}

func dailyOvertime(perDay map[time.Time]int, threshold decimal.Decimal) decimal.Decimal {
	out := decimal.Zero
	for _, minutes := range perDay {
		excess := minutesToHours(minutes).Sub(threshold)
		if excess.IsPositive() {
			out = out.Add(excess)
		}
	}
	return out
}
