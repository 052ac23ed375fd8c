package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"crm-connect/internal/models"
)

// Teams lists the caller's RingCentral team messaging groups
// @Summary List teams
// @Tags ringcentral
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Team
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/teams [get]
func (h *Handlers) Teams(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	teams, err := h.integrations.Teams(r.Context(), owner)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, teams)
}

// TeamMessages reads a team's posts, newest first
// @Summary List team messages
// @Tags ringcentral
// @Produce json
// @Security BearerAuth
// @Param teamId path string true "Team id"
// @Param limit query int false "Posts (default 30, at most 250)"
// @Param pageToken query string false "Continue from a previous page"
// @Success 200 {object} models.TeamMessagePage
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/teams/{teamId}/messages [get]
func (h *Handlers) TeamMessages(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	page, err := h.integrations.TeamMessages(r.Context(), owner, mux.Vars(r)["teamId"], int(limit), r.URL.Query().Get("pageToken"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, page)
}

// SendTeamMessage posts to a team
// @Summary Post a team message
// @Tags ringcentral
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param teamId path string true "Team id"
// @Param message body models.TeamMessageRequest true "Message"
// @Success 201 {object} models.TeamMessage
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/teams/{teamId}/messages [post]
func (h *Handlers) SendTeamMessage(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	var req models.TeamMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.sendError(w, r, err)
		return
	}

	msg, err := h.integrations.SendTeamMessage(r.Context(), owner, mux.Vars(r)["teamId"], req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, msg)
}

// Meetings lists the caller's RingCentral Video meetings
// @Summary List video meetings
// @Tags ringcentral
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, from 1"
// @Param perPage query int false "Meetings per page (default 25, at most 100)"
// @Success 200 {object} models.VideoMeetingPage
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/meetings [get]
func (h *Handlers) Meetings(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	page, err := intParam(r, "page")
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	perPage, err := intParam(r, "perPage")
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	meetings, err := h.integrations.Meetings(r.Context(), owner, int(page), int(perPage))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, meetings)
}

// CreateMeeting schedules a RingCentral Video meeting
// @Summary Schedule a video meeting
// @Description Without a start time the meeting is instant.
// @Tags ringcentral
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param meeting body models.VideoMeetingRequest true "Meeting"
// @Success 201 {object} models.VideoMeeting
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/meetings [post]
func (h *Handlers) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	var req models.VideoMeetingRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.sendError(w, r, err)
		return
	}

	meeting, err := h.integrations.CreateMeeting(r.Context(), owner, req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, meeting)
}

// Meeting reads one video meeting
// @Summary Get a video meeting
// @Tags ringcentral
// @Produce json
// @Security BearerAuth
// @Param id path string true "Meeting id"
// @Success 200 {object} models.VideoMeeting
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/meetings/{id} [get]
func (h *Handlers) Meeting(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	meeting, err := h.integrations.Meeting(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, meeting)
}

// DeleteMeeting cancels a video meeting
// @Summary Cancel a video meeting
// @Tags ringcentral
// @Security BearerAuth
// @Param id path string true "Meeting id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/meetings/{id} [delete]
func (h *Handlers) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	if err := h.integrations.DeleteMeeting(r.Context(), owner, mux.Vars(r)["id"]); err != nil {
		h.sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MakeCall starts a RingOut call
// @Summary Place a RingOut call
// @Description Rings the from number first and connects it to the to number.
// @Tags ringcentral
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param call body models.CallRequest true "Call"
// @Success 200 {object} models.CallSession
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not connected or re-consent required"
// @Router /api/ringcentral/calls [post]
func (h *Handlers) MakeCall(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	var req models.CallRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.sendError(w, r, err)
		return
	}

	session, err := h.integrations.MakeCall(r.Context(), owner, req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, session)
}
