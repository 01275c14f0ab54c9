package alarm

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

const prodID = "-//Raimguhinov//alarm-go//EN"

var rruleDay = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// ICalendar renders the alarm as a VCALENDAR with a single VEVENT at the next
// trigger instant, a weekly RRULE for repeating alarms and an embedded DISPLAY
// VALARM, so exported alarms open in any calendar client.
func (a *Alarm) ICalendar(now time.Time) (*ical.Calendar, error) {
	next, ok, err := a.NextTrigger(now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("alarm %s has no upcoming trigger", a.ID)
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, a.ID.String())
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, next)
	event.Props.SetText(ical.PropSummary, a.Title)
	if a.Message != "" {
		event.Props.SetText(ical.PropDescription, a.Message)
	}

	if a.IsRepeating() {
		opt := rrule.ROption{Freq: rrule.WEEKLY}
		for day := time.Sunday; day <= time.Saturday; day++ {
			if a.Repeat[day] {
				opt.Byweekday = append(opt.Byweekday, rruleDay[day])
			}
		}
		event.Props.SetText(ical.PropRecurrenceRule, opt.String())
	}

	valarm := &ical.Component{Name: ical.CompAlarm, Props: make(ical.Props)}
	valarm.Props.SetText(ical.PropAction, "DISPLAY")
	valarm.Props.SetText(ical.PropDescription, a.Message)
	valarm.Props.SetText(ical.PropTrigger, "PT0S")
	event.Children = append(event.Children, valarm)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Children = append(cal.Children, event.Component)

	return cal, nil
}
