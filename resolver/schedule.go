package resolver

import (
	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/places"
)

const (
	placeholderOpen  = "09:00"
	placeholderClose = "18:00"
	endOfDay         = "23:59"
	startOfDay       = "00:00"
)

// upstreamToScheduleDay maps the Places API day index (0 = Sunday) to
// the schedule day (Sunday = 0, Monday = 1 ... Saturday = 6).
var upstreamToScheduleDay = map[int]int{
	0: 0,
	1: 1,
	2: 2,
	3: 3,
	4: 4,
	5: 5,
	6: 6,
}

// scheduleWeek is the emission order, Monday first.
var scheduleWeek = []int{1, 2, 3, 4, 5, 6, 0}

// ParseOpeningHours returns exactly seven day schedules, Monday first.
// Days without a period are closed with placeholder times.
func ParseOpeningHours(hours *places.OpeningHours) []models.DaySchedule {
	var periods []places.Period
	if hours != nil {
		periods = hours.Periods
	}

	if isAlwaysOpen(periods) {
		ans := make([]models.DaySchedule, 0, len(scheduleWeek))
		for _, day := range scheduleWeek {
			ans = append(ans, models.DaySchedule{DayOfWeek: day, OpenTime: startOfDay, CloseTime: endOfDay})
		}

		return ans
	}

	byDay := make(map[int]places.Period, len(periods))

	for _, p := range periods {
		day, ok := upstreamToScheduleDay[p.Open.Day]
		if !ok {
			continue
		}

		if _, seen := byDay[day]; !seen {
			byDay[day] = p
		}
	}

	ans := make([]models.DaySchedule, 0, len(scheduleWeek))

	for _, day := range scheduleWeek {
		p, ok := byDay[day]
		if !ok {
			ans = append(ans, models.DaySchedule{
				DayOfWeek: day,
				OpenTime:  placeholderOpen,
				CloseTime: placeholderClose,
				IsClosed:  true,
			})

			continue
		}

		closeTime := endOfDay
		if p.Close != nil {
			closeTime = FormatTime(p.Close.Time)
		}

		ans = append(ans, models.DaySchedule{
			DayOfWeek: day,
			OpenTime:  FormatTime(p.Open.Time),
			CloseTime: closeTime,
		})
	}

	return ans
}

// isAlwaysOpen detects the upstream encoding of a place open 24 hours:
// a single period opening Sunday at 0000 with no close.
func isAlwaysOpen(periods []places.Period) bool {
	return len(periods) == 1 &&
		periods[0].Close == nil &&
		periods[0].Open.Day == 0 &&
		periods[0].Open.Time == "0000"
}

// FormatTime turns "0900" into "09:00". Other inputs are returned unchanged.
func FormatTime(t string) string {
	if len(t) != 4 {
		return t
	}

	for _, c := range t {
		if c < '0' || c > '9' {
			return t
		}
	}

	return t[:2] + ":" + t[2:]
}
