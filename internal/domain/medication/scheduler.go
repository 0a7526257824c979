package medication

import "time"

// Times of day, in minutes from midnight, emitted per frequency code.
var frequencyTimes = map[Frequency][]int{
	Daily: {8 * 60},
	BID:   {8 * 60, 20 * 60},
	TID:   {8 * 60, 14 * 60, 20 * 60},
	QID:   {8 * 60, 12 * 60, 16 * 60, 20 * 60},
}

// CalculateReminderTimes derives the reminder schedule for one medication.
// For every calendar day from start's day through end's day inclusive it
// emits the frequency's fixed times of day, each shifted earlier by
// notifyBefore. A zero end defaults the window to start plus seven days.
// ONCE and PRN produce no times; their schedules are caller-specified.
func CalculateReminderTimes(frequency Frequency, start time.Time, end time.Time, notifyBefore time.Duration) []time.Time {
	slots, ok := frequencyTimes[frequency]
	if !ok {
		return nil
	}
	if end.IsZero() {
		end = start.AddDate(0, 0, 7)
	}

	var times []time.Time
	loc := start.Location()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	for !day.After(end) {
		for _, minutes := range slots {
			times = append(times, day.Add(time.Duration(minutes)*time.Minute-notifyBefore))
		}
		day = day.AddDate(0, 0, 1)
	}
	return times
}
