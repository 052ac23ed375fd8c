package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/integrations"
	"crm-connect/internal/models"
)

const (
	defaultEventWindow   = 7 * 24 * time.Hour
	defaultCallLogWindow = 7 * 24 * time.Hour
	maxRequestBody       = 64 << 10
)

// decodeBody reads a JSON request body into out
func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(out); err != nil {
		return errors.ValidationError("invalid JSON body")
	}
	return nil
}

// timeParam parses an RFC3339 query parameter; empty yields fallback
func timeParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.ValidationError("'" + name + "' must be an RFC3339 timestamp")
	}
	return t, nil
}

func intParam(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.ValidationError("'" + name + "' must be a positive number")
	}
	return n, nil
}

func (h *Handlers) calendarQuery(r *http.Request) (models.CalendarQuery, error) {
	from, err := timeParam(r, "from", h.now())
	if err != nil {
		return models.CalendarQuery{}, err
	}
	to, err := timeParam(r, "to", from.Add(defaultEventWindow))
	if err != nil {
		return models.CalendarQuery{}, err
	}
	max, err := intParam(r, "max")
	if err != nil {
		return models.CalendarQuery{}, err
	}
	return models.CalendarQuery{
		CalendarID: r.URL.Query().Get("calendar"),
		From:       from,
		To:         to,
		MaxResults: max,
	}, nil
}

// CalendarEvents lists the caller's Google Calendar events
// @Summary List calendar events
// @Description Expanded events of one calendar ordered by start time. The window defaults to the next seven days.
// @Tags google
// @Produce json
// @Security BearerAuth
// @Param calendar query string false "Calendar id (default primary)"
// @Param from query string false "RFC3339 start"
// @Param to query string false "RFC3339 end"
// @Param max query int false "Maximum events (default 50, at most 250)"
// @Success 200 {array} models.CalendarEvent
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/google/calendar/events [get]
func (h *Handlers) CalendarEvents(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	q, err := h.calendarQuery(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	events, err := h.integrations.ListEvents(r.Context(), owner, q)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, events)
}

// CalendarICS exports the same listing as an iCalendar file
// @Summary Export calendar events
// @Tags google
// @Produce text/calendar
// @Security BearerAuth
// @Param calendar query string false "Calendar id (default primary)"
// @Param from query string false "RFC3339 start"
// @Param to query string false "RFC3339 end"
// @Success 200 {string} string "iCalendar document"
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/google/calendar/events.ics [get]
func (h *Handlers) CalendarICS(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	q, err := h.calendarQuery(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	events, err := h.integrations.ListEvents(r.Context(), owner, q)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := integrations.EncodeICS(&buf, events, h.now()); err != nil {
		h.sendError(w, r, errors.InternalError("failed to encode calendar", err))
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.Write(buf.Bytes())
}

// GmailMessages lists message summaries from the caller's mailbox
// @Summary List Gmail messages
// @Tags google
// @Produce json
// @Security BearerAuth
// @Param q query string false "Gmail search query"
// @Param max query int false "Maximum messages (default 20, at most 100)"
// @Success 200 {array} models.MailMessage
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/google/gmail/messages [get]
func (h *Handlers) GmailMessages(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	max, err := intParam(r, "max")
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	messages, err := h.integrations.ListMessages(r.Context(), owner, r.URL.Query().Get("q"), max)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, messages)
}

// CreateCalendarMeeting schedules an event with a Google Meet link
// @Summary Schedule a Google Meet meeting
// @Description Adds the event to the primary calendar and emails the attendees.
// @Tags google
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param meeting body models.CalendarMeetingRequest true "Meeting"
// @Success 201 {object} models.CalendarEvent
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/google/calendar/meetings [post]
func (h *Handlers) CreateCalendarMeeting(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	var req models.CalendarMeetingRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.sendError(w, r, err)
		return
	}

	event, err := h.integrations.CreateCalendarMeeting(r.Context(), owner, req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, event)
}

// CalendarEvent reads one event of the primary calendar
// @Summary Get a calendar event
// @Tags google
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event id"
// @Success 200 {object} models.CalendarEvent
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/google/calendar/events/{id} [get]
func (h *Handlers) CalendarEvent(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	event, err := h.integrations.GetEvent(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, event)
}

// DeleteCalendarEvent cancels an event and notifies its attendees
// @Summary Cancel a calendar event
// @Tags google
// @Security BearerAuth
// @Param id path string true "Event id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/google/calendar/events/{id} [delete]
func (h *Handlers) DeleteCalendarEvent(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	if err := h.integrations.DeleteEvent(r.Context(), owner, mux.Vars(r)["id"]); err != nil {
		h.sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GmailMessage reads one message with its plain text body
// @Summary Get a Gmail message
// @Tags google
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message id"
// @Success 200 {object} models.MailMessage
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/google/gmail/messages/{id} [get]
func (h *Handlers) GmailMessage(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	msg, err := h.integrations.GetMessage(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, msg)
}

// GmailLabels lists the mailbox labels
// @Summary List Gmail labels
// @Tags google
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.MailLabel
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/google/gmail/labels [get]
func (h *Handlers) GmailLabels(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	labels, err := h.integrations.Labels(r.Context(), owner)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, labels)
}

// RingCentralAccount describes the connected RingCentral extension
// @Summary RingCentral account
// @Tags ringcentral
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AccountInfo
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/account [get]
func (h *Handlers) RingCentralAccount(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	info, err := h.integrations.Account(r.Context(), owner)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, info)
}

// CallLog lists recent calls of the connected extension
// @Summary RingCentral call log
// @Tags ringcentral
// @Produce json
// @Security BearerAuth
// @Param from query string false "RFC3339 start (default seven days ago)"
// @Param to query string false "RFC3339 end (default now)"
// @Param perPage query int false "Records (default 100, at most 1000)"
// @Success 200 {array} models.CallRecord
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/call-log [get]
func (h *Handlers) CallLog(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	to, err := timeParam(r, "to", h.now())
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	from, err := timeParam(r, "from", to.Add(-defaultCallLogWindow))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	if !to.After(from) {
		h.sendError(w, r, errors.ValidationError("'to' must be after 'from'"))
		return
	}
	perPage, err := intParam(r, "perPage")
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	records, err := h.integrations.CallLog(r.Context(), owner, from, to, int(perPage))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, records)
}

// SendSMS sends a text message from one of the caller's numbers
// @Summary Send an SMS
// @Tags ringcentral
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param message body models.SMSRequest true "Message"
// @Success 200 {object} models.SMSResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/sms [post]
func (h *Handlers) SendSMS(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	var req models.SMSRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.sendError(w, r, err)
		return
	}

	result, err := h.integrations.SendSMS(r.Context(), owner, req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

// ContactsVCF exports the RingCentral address book as vCards
// @Summary Export RingCentral contacts
// @Tags ringcentral
// @Produce text/vcard
// @Security BearerAuth
// @Success 200 {string} string "vCard 4.0 documents"
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/contacts.vcf [get]
func (h *Handlers) ContactsVCF(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	contacts, err := h.integrations.Contacts(r.Context(), owner)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := integrations.EncodeVCards(&buf, contacts); err != nil {
		h.sendError(w, r, errors.InternalError("failed to encode contacts", err))
		return
	}
	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts.vcf"`)
	w.Write(buf.Bytes())
}
