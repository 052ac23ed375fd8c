package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	ics "github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/models"
)

const eventsJSON = `{
  "items": [
    {
      "id": "evt1",
      "iCalUID": "evt1@google.com",
      "summary": "Discovery call",
      "description": "Intro with Acme",
      "location": "Zoom",
      "status": "confirmed",
      "htmlLink": "https://calendar.google.com/event?eid=evt1",
      "hangoutLink": "https://meet.google.com/abc-defg-hij",
      "created": "2026-10-01T09:00:00Z",
      "updated": "2026-10-02T09:00:00Z",
      "start": {"dateTime": "2026-10-20T15:00:00Z"},
      "end": {"dateTime": "2026-10-20T15:30:00Z"},
      "organizer": {"email": "rep@example.com", "displayName": "Sales Rep"},
      "attendees": [
        {"email": "buyer@acme.test", "displayName": "Buyer", "responseStatus": "accepted"},
        {"email": "cto@acme.test", "responseStatus": "needsAction", "optional": true}
      ]
    },
    {
      "id": "evt2",
      "summary": "Offsite",
      "start": {"date": "2026-10-22"},
      "end": {"date": "2026-10-23"},
      "recurrence": ["RRULE:FREQ=YEARLY"]
    }
  ]
}`

func TestListEvents(t *testing.T) {
	h := newHarness(t)
	h.connect(t, models.ProviderGoogle, "live-token")

	var gotQuery string
	h.api.handle("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, eventsJSON)
	})

	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	events, err := h.svc.ListEvents(context.Background(), rep, models.CalendarQuery{From: from, To: from.Add(7 * 24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Contains(t, gotQuery, "singleEvents=true")
	assert.Contains(t, gotQuery, "orderBy=startTime")
	assert.Contains(t, gotQuery, "timeMin=2026-10-19T00%3A00%3A00Z")

	call := events[0]
	assert.Equal(t, "evt1@google.com", call.UID)
	assert.Equal(t, "Discovery call", call.Title)
	assert.Equal(t, time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC), call.Start.UTC())
	assert.False(t, call.AllDay)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", call.MeetingURL)
	require.NotNil(t, call.Organizer)
	assert.Equal(t, "Sales Rep", call.Organizer.Name)
	require.Len(t, call.Attendees, 2)
	assert.Equal(t, models.AttendeeStatusAccepted, call.Attendees[0].Status)
	assert.Equal(t, models.AttendeeStatusNeedsAction, call.Attendees[1].Status)
	assert.True(t, call.Attendees[1].Optional)

	offsite := events[1]
	assert.True(t, offsite.AllDay)
	assert.Equal(t, "evt2", offsite.UID)
	assert.Equal(t, models.EventStatusConfirmed, offsite.Status)
	assert.Equal(t, "primary", offsite.CalendarID)
}

func TestListEvents_RefreshesRejectedToken(t *testing.T) {
	h := newHarness(t)
	// the stored token looks valid but the provider has already revoked it
	h.connect(t, models.ProviderGoogle, "revoked-at-provider")

	h.api.handle("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"items":[]}`)
	})

	events, err := h.svc.ListEvents(context.Background(), rep, models.CalendarQuery{})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, int32(1), h.api.tokenCalls.Load())

	stored, err := h.store.Get(context.Background(), rep, models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-token-1", stored.AccessToken)
}

func TestListEvents_Errors(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.ListEvents(context.Background(), rep, models.CalendarQuery{})
		assert.True(t, errors.IsType(err, errors.ErrTypeNotConnected))
	})

	t.Run("inverted window", func(t *testing.T) {
		h := newHarness(t)
		now := time.Now()
		_, err := h.svc.ListEvents(context.Background(), rep, models.CalendarQuery{From: now, To: now.Add(-time.Hour)})
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	})

	t.Run("forbidden passes through", func(t *testing.T) {
		h := newHarness(t)
		h.connect(t, models.ProviderGoogle, "live-token")
		h.api.handle("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":403,"message":"Insufficient Permission"}}`))
		})

		_, err := h.svc.ListEvents(context.Background(), rep, models.CalendarQuery{})
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, errors.HTTPStatus(err))
		assert.Equal(t, int32(0), h.api.tokenCalls.Load())
	})
}

func TestEncodeICS(t *testing.T) {
	start := time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		{
			ID:        "evt1",
			UID:       "evt1@google.com",
			Title:     "Discovery call",
			Location:  "Zoom",
			Start:     start,
			End:       start.Add(30 * time.Minute),
			Status:    models.EventStatusConfirmed,
			Organizer: &models.Person{Email: "rep@example.com", Name: "Sales Rep"},
			Attendees: []models.Attendee{{Email: "buyer@acme.test", Status: models.AttendeeStatusAccepted, Optional: true}},
		},
		{
			ID:         "evt2",
			Title:      "Offsite",
			Start:      time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC),
			AllDay:     true,
			Recurrence: []string{"RRULE:FREQ=YEARLY"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeICS(&buf, events, start))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "DTSTART:20261020T150000Z")
	assert.Contains(t, out, "RRULE:FREQ=YEARLY")

	cal, err := ics.NewDecoder(strings.NewReader(out)).Decode()
	require.NoError(t, err)
	vevents := cal.Events()
	require.Len(t, vevents, 2)

	uid, err := vevents[0].Props.Text(ics.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "evt1@google.com", uid)

	attendee := vevents[0].Props.Get(ics.PropAttendee)
	require.NotNil(t, attendee)
	assert.Equal(t, "mailto:buyer@acme.test", attendee.Value)
	assert.Equal(t, "ACCEPTED", attendee.Params.Get("PARTSTAT"))
	assert.Equal(t, "OPT-PARTICIPANT", attendee.Params.Get("ROLE"))

	allDay := vevents[1].Props.Get(ics.PropDateTimeStart)
	require.NotNil(t, allDay)
	assert.Equal(t, "20261022", allDay.Value)
	uid, err = vevents[1].Props.Text(ics.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "evt2", uid)
}

func TestCreateCalendarMeeting_AddsMeetConference(t *testing.T) {
	h := newHarness(t)
	h.connect(t, models.ProviderGoogle, "live-token")

	var sent map[string]interface{}
	var query url.Values
	h.api.handle("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		query = r.URL.Query()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		writeJSON(w, `{
			"id": "evt9",
			"summary": "Acme demo",
			"status": "confirmed",
			"start": {"dateTime": "2026-10-22T17:00:00Z", "timeZone": "UTC"},
			"end": {"dateTime": "2026-10-22T17:30:00Z", "timeZone": "UTC"},
			"attendees": [{"email": "buyer@acme.test", "responseStatus": "needsAction"}],
			"conferenceData": {"entryPoints": [
				{"entryPointType": "phone", "uri": "tel:+1-555-0100"},
				{"entryPointType": "video", "uri": "https://meet.google.com/xyz-abcd-efg"}
			]}
		}`)
	})

	start := time.Date(2026, 10, 22, 17, 0, 0, 0, time.UTC)
	ev, err := h.svc.CreateCalendarMeeting(context.Background(), rep, models.CalendarMeetingRequest{
		Title:     "Acme demo",
		Start:     start,
		End:       start.Add(30 * time.Minute),
		Attendees: []string{"buyer@acme.test"},
	})
	require.NoError(t, err)

	assert.Equal(t, "1", query.Get("conferenceDataVersion"))
	assert.Equal(t, "all", query.Get("sendUpdates"))
	assert.Equal(t, "Acme demo", sent["summary"])
	assert.Equal(t, map[string]interface{}{"dateTime": "2026-10-22T17:00:00Z", "timeZone": "UTC"}, sent["start"])

	reminders := sent["reminders"].(map[string]interface{})
	assert.Equal(t, false, reminders["useDefault"])
	assert.Len(t, reminders["overrides"], 2)

	create := sent["conferenceData"].(map[string]interface{})["createRequest"].(map[string]interface{})
	assert.True(t, strings.HasPrefix(create["requestId"].(string), "crm-"))
	assert.Equal(t, map[string]interface{}{"type": "hangoutsMeet"}, create["conferenceSolutionKey"])

	assert.Equal(t, "evt9", ev.ID)
	assert.Equal(t, "https://meet.google.com/xyz-abcd-efg", ev.MeetingURL)
	assert.Equal(t, start, ev.Start)
	require.Len(t, ev.Attendees, 1)
}

func TestCreateCalendarMeeting_Validation(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2026, 10, 22, 17, 0, 0, 0, time.UTC)

	for name, req := range map[string]models.CalendarMeetingRequest{
		"missing title": {Start: start, End: start.Add(time.Hour)},
		"end before":    {Title: "t", Start: start, End: start.Add(-time.Hour)},
		"zero end":      {Title: "t", Start: start},
		"bad attendee":  {Title: "t", Start: start, End: start.Add(time.Hour), Attendees: []string{"not-an-email"}},
		"bad time zone": {Title: "t", Start: start, End: start.Add(time.Hour), TimeZone: "Mars/Olympus"},
	} {
		_, err := h.svc.CreateCalendarMeeting(context.Background(), rep, req)
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation), name)
	}
	assert.Equal(t, int32(0), h.api.tokenCalls.Load())
}

func TestGetAndDeleteEvent(t *testing.T) {
	h := newHarness(t)
	h.connect(t, models.ProviderGoogle, "live-token")

	var deleteQuery url.Values
	h.api.handle("/calendars/primary/events/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/calendars/primary/events/")
		if id != "evt1" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGone)
			w.Write([]byte(`{"error":{"code":410,"message":"Resource has been deleted"}}`))
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, `{"id":"evt1","summary":"Discovery call","hangoutLink":"https://meet.google.com/abc-defg-hij","start":{"dateTime":"2026-10-20T15:00:00Z"},"end":{"dateTime":"2026-10-20T15:30:00Z"}}`)
		case http.MethodDelete:
			deleteQuery = r.URL.Query()
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	ev, err := h.svc.GetEvent(ctx, rep, "evt1")
	require.NoError(t, err)
	assert.Equal(t, "Discovery call", ev.Title)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", ev.MeetingURL)

	require.NoError(t, h.svc.DeleteEvent(ctx, rep, "evt1"))
	assert.Equal(t, "all", deleteQuery.Get("sendUpdates"))

	err = h.svc.DeleteEvent(ctx, rep, "evt-gone")
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	_, err = h.svc.GetEvent(ctx, rep, "evt-gone")
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	err = h.svc.DeleteEvent(ctx, rep, "")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}
