package models

import (
	"time"
)

// CalendarEvent is a provider calendar entry flattened for the CRM
type CalendarEvent struct {
	ID          string     `json:"id"`
	UID         string     `json:"uid"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	AllDay      bool       `json:"all_day"`
	Status      string     `json:"status"` // confirmed, tentative, cancelled
	Organizer   *Person    `json:"organizer,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	Recurrence  []string   `json:"recurrence,omitempty"` // raw RRULE/EXDATE lines
	MeetingURL  string     `json:"meeting_url,omitempty"`
	HTMLLink    string     `json:"html_link,omitempty"`
	Created     time.Time  `json:"created"`
	Updated     time.Time  `json:"updated"`
	CalendarID  string     `json:"calendar_id"`
}

// Person is someone identified by email
type Person struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Attendee is an invited participant
type Attendee struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status"` // accepted, declined, tentative, needs-action
	Optional bool   `json:"optional,omitempty"`
}

const (
	EventStatusConfirmed = "confirmed"
	EventStatusTentative = "tentative"
	EventStatusCancelled = "cancelled"
)

const (
	AttendeeStatusAccepted    = "accepted"
	AttendeeStatusDeclined    = "declined"
	AttendeeStatusTentative   = "tentative"
	AttendeeStatusNeedsAction = "needs-action"
)

// CalendarQuery bounds a calendar listing
type CalendarQuery struct {
	CalendarID string
	From       time.Time
	To         time.Time
	MaxResults int64
}

// CalendarMeetingRequest schedules an event with a Google Meet link on the
// primary calendar. Times are sent in TimeZone, UTC when empty.
type CalendarMeetingRequest struct {
	Title       string    `json:"title" validate:"required,max=1024"`
	Description string    `json:"description,omitempty" validate:"max=8192"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required"`
	TimeZone    string    `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	Attendees   []string  `json:"attendees,omitempty" validate:"omitempty,max=100,dive,email"`
}
