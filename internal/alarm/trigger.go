package alarm

import "time"

// searchWindowDays bounds the forward scan for repeating alarms. Any mask with
// at least one flagged weekday matches within 7 days; the extra week is margin.
const searchWindowDays = 14

// NextTrigger computes the next absolute instant the alarm should fire,
// strictly in the future relative to now, in now's location. The second return
// is false when there is nothing to arm: the alarm has no time set, or no day
// in the search window qualifies. That is a normal outcome, not an error.
//
// Seconds are always zeroed: alarms fire exactly on the minute boundary.
// Day stepping uses calendar-day addition so the wall-clock time is kept
// across DST transitions.
func (a *Alarm) NextTrigger(now time.Time) (time.Time, bool, error) {
	if err := a.Repeat.Validate(); err != nil {
		return time.Time{}, false, err
	}
	if a.Hour == nil || a.Minute == nil {
		return time.Time{}, false, nil
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(), *a.Hour, *a.Minute, 0, 0, now.Location())

	if !a.Repeat.HasActive() {
		// One-shot: an alarm exactly at now already counts as past and rolls
		// over to tomorrow.
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate, true, nil
	}

	for d := 0; d < searchWindowDays; d++ {
		c := candidate.AddDate(0, 0, d)
		// time.Weekday is Sunday=0, matching the mask indexing.
		if a.Repeat[c.Weekday()] && c.After(now) {
			return c, true, nil
		}
	}
	return time.Time{}, false, nil
}
