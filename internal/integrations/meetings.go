package integrations

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/models"
	"crm-connect/internal/providers/ringcentral"
)

const (
	meetingsPath = "/rcvideo/v1/meetings"

	defaultMeetingMinutes = 60
	defaultMeetingsPage   = 25
	maxMeetingsPage       = 100
)

type rcMeetingSchedule struct {
	StartTime         string `json:"startTime,omitempty"`
	DurationInMinutes int    `json:"durationInMinutes,omitempty"`
}

type rcMeetingRequest struct {
	Topic                  string             `json:"topic"`
	MeetingType            string             `json:"meetingType"`
	AllowJoinBeforeHost    bool               `json:"allowJoinBeforeHost"`
	StartHostVideo         bool               `json:"startHostVideo"`
	StartParticipantsVideo bool               `json:"startParticipantsVideo"`
	AudioOptions           []string           `json:"audioOptions"`
	Schedule               *rcMeetingSchedule `json:"schedule,omitempty"`
	Password               string             `json:"password,omitempty"`
}

type rcMeeting struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	MeetingType string            `json:"meetingType"`
	Password    string            `json:"password"`
	Schedule    rcMeetingSchedule `json:"schedule"`
	Links       struct {
		JoinURI  string `json:"joinUri"`
		StartURI string `json:"startUri"`
	} `json:"links"`
}

type rcMeetingPage struct {
	Records []rcMeeting `json:"records"`
	Paging  struct {
		Page          int `json:"page"`
		TotalElements int `json:"totalElements"`
	} `json:"paging"`
}

// CreateMeeting schedules a RingCentral Video meeting. A request without a
// start time creates an instant meeting.
func (s *Service) CreateMeeting(ctx context.Context, owner models.Owner, req models.VideoMeetingRequest) (*models.VideoMeeting, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	body := rcMeetingRequest{
		Topic:               req.Topic,
		MeetingType:         "Instant",
		AllowJoinBeforeHost: true,
		StartHostVideo:      true,
		AudioOptions:        []string{"Phone", "ComputerAudio"},
		Password:            req.Password,
	}
	if !req.Start.IsZero() {
		minutes := req.DurationMinutes
		if minutes == 0 {
			minutes = defaultMeetingMinutes
		}
		body.MeetingType = "Scheduled"
		body.Schedule = &rcMeetingSchedule{
			StartTime:         req.Start.UTC().Format(time.RFC3339),
			DurationInMinutes: minutes,
		}
	}

	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) (*models.VideoMeeting, error) {
		var res rcMeeting
		if err := h.Post(ctx, meetingsPath, body, &res); err != nil {
			return nil, err
		}
		m := videoMeeting(res)
		return &m, nil
	})
}

// Meetings lists one page of the extension's meetings. Pages start at 1.
func (s *Service) Meetings(ctx context.Context, owner models.Owner, page, perPage int) (*models.VideoMeetingPage, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultMeetingsPage
	}
	if perPage > maxMeetingsPage {
		perPage = maxMeetingsPage
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))

	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) (*models.VideoMeetingPage, error) {
		var res rcMeetingPage
		if err := h.Get(ctx, meetingsPath, q, &res); err != nil {
			return nil, err
		}
		out := &models.VideoMeetingPage{
			Meetings: make([]models.VideoMeeting, 0, len(res.Records)),
			Page:     page,
			Total:    res.Paging.TotalElements,
		}
		for _, m := range res.Records {
			out.Meetings = append(out.Meetings, videoMeeting(m))
		}
		return out, nil
	})
}

// Meeting reads one meeting
func (s *Service) Meeting(ctx context.Context, owner models.Owner, id string) (*models.VideoMeeting, error) {
	path, err := meetingPath(id)
	if err != nil {
		return nil, err
	}
	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) (*models.VideoMeeting, error) {
		var res rcMeeting
		if err := h.Get(ctx, path, nil, &res); err != nil {
			return nil, err
		}
		m := videoMeeting(res)
		return &m, nil
	})
}

// DeleteMeeting cancels a meeting
func (s *Service) DeleteMeeting(ctx context.Context, owner models.Owner, id string) error {
	path, err := meetingPath(id)
	if err != nil {
		return err
	}
	_, err = withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) (struct{}, error) {
		return struct{}{}, h.Delete(ctx, path)
	})
	return err
}

func meetingPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.ValidationError("a meeting id is required")
	}
	return meetingsPath + "/" + url.PathEscape(id), nil
}

func videoMeeting(m rcMeeting) models.VideoMeeting {
	out := models.VideoMeeting{
		ID:              m.ID,
		Topic:           m.Topic,
		Type:            m.MeetingType,
		DurationMinutes: m.Schedule.DurationInMinutes,
		JoinURL:         m.Links.JoinURI,
		StartURL:        m.Links.StartURI,
		Password:        m.Password,
	}
	if m.Schedule.StartTime != "" {
		out.Start, _ = time.Parse(time.RFC3339, m.Schedule.StartTime)
	}
	return out
}
