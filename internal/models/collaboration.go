package models

import "time"

// Team is a RingCentral team messaging group
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"` // Team, Group, PrivateChat, Everyone
	Members     int       `json:"members"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// TeamMessage is one post in a team
type TeamMessage struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	CreatorID string    `json:"creator_id"`
	Text      string    `json:"text"`
	Created   time.Time `json:"created"`
}

// TeamMessagePage is a slice of a team's history, newest first
type TeamMessagePage struct {
	Messages      []TeamMessage `json:"messages"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

// TeamMessageRequest posts text to a team
type TeamMessageRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

// VideoMeetingRequest schedules a RingCentral Video meeting. A zero Start
// creates an instant meeting.
type VideoMeetingRequest struct {
	Topic           string    `json:"topic" validate:"required,max=256"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	Password        string    `json:"password,omitempty" validate:"omitempty,max=32"`
}

// VideoMeeting is a scheduled RingCentral Video meeting
type VideoMeeting struct {
	ID              string    `json:"id"`
	Topic           string    `json:"topic"`
	Type            string    `json:"type"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	JoinURL         string    `json:"join_url,omitempty"`
	StartURL        string    `json:"start_url,omitempty"`
	Password        string    `json:"password,omitempty"`
}

// VideoMeetingPage is one page of the extension's meetings
type VideoMeetingPage struct {
	Meetings []VideoMeeting `json:"meetings"`
	Page     int            `json:"page"`
	Total    int            `json:"total"`
}

// CallRequest starts a RingOut call between two numbers
type CallRequest struct {
	From string `json:"from" validate:"required,e164"`
	To   string `json:"to" validate:"required,e164"`
}

// CallSession is the telephony session a RingOut created
type CallSession struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
