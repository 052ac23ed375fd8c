package integrations

import (
	"io"
	"strings"
	"time"

	ics "github.com/emersion/go-ical"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/models"
)

const icsProductID = "-//crm-connect//Calendar Export//EN"

// EncodeICS writes events as one VCALENDAR. stamp becomes DTSTAMP for
// events the provider never reported an update time for.
func EncodeICS(w io.Writer, events []models.CalendarEvent, stamp time.Time) error {
	cal := ics.NewCalendar()
	cal.Props.SetText(ics.PropVersion, "2.0")
	cal.Props.SetText(ics.PropProductID, icsProductID)

	for _, ev := range events {
		cal.Children = append(cal.Children, vevent(ev, stamp).Component)
	}

	if err := ics.NewEncoder(w).Encode(cal); err != nil {
		return errors.InternalError("failed to encode calendar", err)
	}
	return nil
}

func vevent(ev models.CalendarEvent, stamp time.Time) *ics.Event {
	event := ics.NewEvent()
	uid := ev.UID
	if uid == "" {
		uid = ev.ID
	}
	event.Props.SetText(ics.PropUID, uid)

	dtstamp := ev.Updated
	if dtstamp.IsZero() {
		dtstamp = stamp
	}
	event.Props.SetDateTime(ics.PropDateTimeStamp, dtstamp.UTC())

	if ev.AllDay {
		event.Props.SetDate(ics.PropDateTimeStart, ev.Start)
		if !ev.End.IsZero() {
			event.Props.SetDate(ics.PropDateTimeEnd, ev.End)
		}
	} else {
		event.Props.SetDateTime(ics.PropDateTimeStart, ev.Start.UTC())
		if !ev.End.IsZero() {
			event.Props.SetDateTime(ics.PropDateTimeEnd, ev.End.UTC())
		}
	}

	event.Props.SetText(ics.PropSummary, ev.Title)
	if ev.Description != "" {
		event.Props.SetText(ics.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		event.Props.SetText(ics.PropLocation, ev.Location)
	}
	if ev.Status != "" {
		event.Props.SetText(ics.PropStatus, strings.ToUpper(ev.Status))
	}
	if !ev.Created.IsZero() {
		event.Props.SetDateTime(ics.PropCreated, ev.Created.UTC())
	}
	if !ev.Updated.IsZero() {
		event.Props.SetDateTime(ics.PropLastModified, ev.Updated.UTC())
	}
	if ev.HTMLLink != "" {
		event.Props.SetText(ics.PropURL, ev.HTMLLink)
	}

	if ev.Organizer != nil && ev.Organizer.Email != "" {
		event.Props.Add(person(ics.PropOrganizer, ev.Organizer.Email, ev.Organizer.Name))
	}
	for _, a := range ev.Attendees {
		prop := person(ics.PropAttendee, a.Email, a.Name)
		prop.Params.Set("PARTSTAT", strings.ToUpper(a.Status))
		if a.Optional {
			prop.Params.Set("ROLE", "OPT-PARTICIPANT")
		}
		event.Props.Add(prop)
	}

	// Google reports recurrence as raw content lines (RRULE:..., EXDATE;...:...)
	for _, line := range ev.Recurrence {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.Contains(name, ";") {
			continue
		}
		prop := ics.NewProp(strings.ToUpper(name))
		prop.Value = value
		event.Props.Add(prop)
	}
	return event
}

func person(name, email, cn string) *ics.Prop {
	prop := ics.NewProp(name)
	prop.Value = "mailto:" + email
	if cn != "" {
		prop.Params.Set("CN", cn)
	}
	return prop
}
