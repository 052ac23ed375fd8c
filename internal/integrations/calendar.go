package integrations

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/utils"
	"crm-connect/internal/models"
	"crm-connect/internal/providers/google"
)

const (
	defaultCalendarID   = "primary"
	defaultMaxEvents    = 50
	maxEventsPerListing = 250

	// attendees hear about created and cancelled meetings
	sendUpdates = "all"
)

// ListEvents returns single (expanded) events of one calendar ordered by
// start time
func (s *Service) ListEvents(ctx context.Context, owner models.Owner, q models.CalendarQuery) ([]models.CalendarEvent, error) {
	if q.CalendarID == "" {
		q.CalendarID = defaultCalendarID
	}
	if q.MaxResults <= 0 {
		q.MaxResults = defaultMaxEvents
	}
	if q.MaxResults > maxEventsPerListing {
		q.MaxResults = maxEventsPerListing
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.To.After(q.From) {
		return nil, errors.ValidationError("'to' must be after 'from'")
	}

	return withGoogle(ctx, s, owner, func(ctx context.Context, h *google.Handle) ([]models.CalendarEvent, error) {
		svc, err := h.Calendar(ctx)
		if err != nil {
			return nil, err
		}
		call := svc.Events.List(q.CalendarID).
			Context(ctx).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(q.MaxResults)
		if !q.From.IsZero() {
			call = call.TimeMin(q.From.Format(time.RFC3339))
		}
		if !q.To.IsZero() {
			call = call.TimeMax(q.To.Format(time.RFC3339))
		}

		res, err := call.Do()
		if err != nil {
			return nil, google.APIError(err)
		}

		events := make([]models.CalendarEvent, 0, len(res.Items))
		for _, item := range res.Items {
			events = append(events, calendarEvent(q.CalendarID, item))
		}
		return events, nil
	})
}

// CreateCalendarMeeting adds an event with a Google Meet conference to the primary
// calendar and invites the attendees
func (s *Service) CreateCalendarMeeting(ctx context.Context, owner models.Owner, req models.CalendarMeetingRequest) (*models.CalendarEvent, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if !req.End.After(req.Start) {
		return nil, errors.ValidationError("'end' must be after 'start'")
	}
	tz := req.TimeZone
	if tz == "" {
		tz = "UTC"
	}

	event := &calendar.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start:       &calendar.EventDateTime{DateTime: req.Start.Format(time.RFC3339), TimeZone: tz},
		End:         &calendar.EventDateTime{DateTime: req.End.Format(time.RFC3339), TimeZone: tz},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 60},
				{Method: "popup", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             utils.NewConferenceRequestID(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}
	for _, email := range req.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	return withGoogle(ctx, s, owner, func(ctx context.Context, h *google.Handle) (*models.CalendarEvent, error) {
		svc, err := h.Calendar(ctx)
		if err != nil {
			return nil, err
		}
		created, err := svc.Events.Insert(defaultCalendarID, event).
			Context(ctx).
			ConferenceDataVersion(1).
			SendUpdates(sendUpdates).
			Do()
		if err != nil {
			return nil, google.APIError(err)
		}
		ev := calendarEvent(defaultCalendarID, created)
		return &ev, nil
	})
}

// GetEvent reads one event of the primary calendar
func (s *Service) GetEvent(ctx context.Context, owner models.Owner, eventID string) (*models.CalendarEvent, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, errors.ValidationError("an event id is required")
	}
	return withGoogle(ctx, s, owner, func(ctx context.Context, h *google.Handle) (*models.CalendarEvent, error) {
		svc, err := h.Calendar(ctx)
		if err != nil {
			return nil, err
		}
		item, err := svc.Events.Get(defaultCalendarID, eventID).Context(ctx).Do()
		if err != nil {
			return nil, eventError(err, eventID)
		}
		ev := calendarEvent(defaultCalendarID, item)
		return &ev, nil
	})
}

// DeleteEvent cancels an event of the primary calendar and notifies its
// attendees
func (s *Service) DeleteEvent(ctx context.Context, owner models.Owner, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return errors.ValidationError("an event id is required")
	}
	_, err := withGoogle(ctx, s, owner, func(ctx context.Context, h *google.Handle) (struct{}, error) {
		svc, err := h.Calendar(ctx)
		if err != nil {
			return struct{}{}, err
		}
		if err := svc.Events.Delete(defaultCalendarID, eventID).Context(ctx).SendUpdates(sendUpdates).Do(); err != nil {
			return struct{}{}, eventError(err, eventID)
		}
		return struct{}{}, nil
	})
	return err
}

// eventError reports a missing or already deleted event as not_found
func eventError(err error, eventID string) error {
	var gerr *googleapi.Error
	if stderrors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return errors.NotFoundError("calendar event").WithContext("event_id", eventID)
	}
	return google.APIError(err)
}

func calendarEvent(calendarID string, item *calendar.Event) models.CalendarEvent {
	ev := models.CalendarEvent{
		ID:          item.Id,
		UID:         item.ICalUID,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Status:      strings.ToLower(item.Status),
		Recurrence:  item.Recurrence,
		MeetingURL:  item.HangoutLink,
		HTMLLink:    item.HtmlLink,
		CalendarID:  calendarID,
	}
	if ev.UID == "" {
		ev.UID = item.Id
	}
	if ev.Status == "" {
		ev.Status = models.EventStatusConfirmed
	}
	if ev.MeetingURL == "" && item.ConferenceData != nil {
		for _, ep := range item.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				ev.MeetingURL = ep.Uri
				break
			}
		}
	}

	ev.Start, ev.AllDay = eventTime(item.Start)
	ev.End, _ = eventTime(item.End)
	ev.Created, _ = time.Parse(time.RFC3339, item.Created)
	ev.Updated, _ = time.Parse(time.RFC3339, item.Updated)

	if item.Organizer != nil {
		ev.Organizer = &models.Person{Email: item.Organizer.Email, Name: item.Organizer.DisplayName}
	}
	for _, a := range item.Attendees {
		ev.Attendees = append(ev.Attendees, models.Attendee{
			Email:    a.Email,
			Name:     a.DisplayName,
			Status:   attendeeStatus(a.ResponseStatus),
			Optional: a.Optional,
		})
	}
	return ev
}

// eventTime reads either a timed or an all-day boundary
func eventTime(t *calendar.EventDateTime) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	if t.DateTime != "" {
		parsed, _ := time.Parse(time.RFC3339, t.DateTime)
		return parsed, false
	}
	if t.Date != "" {
		parsed, _ := time.Parse("2006-01-02", t.Date)
		return parsed, true
	}
	return time.Time{}, false
}

func attendeeStatus(s string) string {
	switch s {
	case "accepted":
		return models.AttendeeStatusAccepted
	case "declined":
		return models.AttendeeStatusDeclined
	case "tentative":
		return models.AttendeeStatusTentative
	default:
		return models.AttendeeStatusNeedsAction
	}
}
