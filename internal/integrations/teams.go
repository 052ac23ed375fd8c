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
	teamsPath     = "/restapi/v1.0/glip/groups"
	teamPostsPath = "/restapi/v1.0/glip/posts"

	teamsPerListing       = 100
	defaultTeamMessages   = 30
	maxTeamMessagesPerGet = 250
)

type rcGroup struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Members          []string  `json:"members"`
	CreationTime     time.Time `json:"creationTime"`
	LastModifiedTime time.Time `json:"lastModifiedTime"`
}

type rcGroupList struct {
	Records []rcGroup `json:"records"`
}

type rcPost struct {
	ID           string    `json:"id"`
	GroupID      string    `json:"groupId"`
	Type         string    `json:"type"`
	Text         string    `json:"text"`
	CreatorID    string    `json:"creatorId"`
	CreationTime time.Time `json:"creationTime"`
}

type rcPostList struct {
	Records    []rcPost `json:"records"`
	Navigation struct {
		PrevPageToken string `json:"prevPageToken"`
	} `json:"navigation"`
}

type rcPostRequest struct {
	GroupID string `json:"groupId"`
	Text    string `json:"text"`
}

// Teams lists the team messaging groups the extension belongs to
func (s *Service) Teams(ctx context.Context, owner models.Owner) ([]models.Team, error) {
	q := url.Values{}
	q.Set("recordCount", strconv.Itoa(teamsPerListing))

	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) ([]models.Team, error) {
		var res rcGroupList
		if err := h.Get(ctx, teamsPath, q, &res); err != nil {
			return nil, err
		}
		teams := make([]models.Team, 0, len(res.Records))
		for _, g := range res.Records {
			teams = append(teams, models.Team{
				ID:          g.ID,
				Name:        g.Name,
				Description: g.Description,
				Type:        g.Type,
				Members:     len(g.Members),
				Created:     g.CreationTime,
				Updated:     g.LastModifiedTime,
			})
		}
		return teams, nil
	})
}

// TeamMessages reads a team's posts, newest first. pageToken continues a
// previous listing.
func (s *Service) TeamMessages(ctx context.Context, owner models.Owner, teamID string, limit int, pageToken string) (*models.TeamMessagePage, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, errors.ValidationError("a team id is required")
	}
	if limit <= 0 {
		limit = defaultTeamMessages
	}
	if limit > maxTeamMessagesPerGet {
		limit = maxTeamMessagesPerGet
	}

	q := url.Values{}
	q.Set("groupId", teamID)
	q.Set("recordCount", strconv.Itoa(limit))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) (*models.TeamMessagePage, error) {
		var res rcPostList
		if err := h.Get(ctx, teamPostsPath, q, &res); err != nil {
			return nil, err
		}
		page := &models.TeamMessagePage{
			Messages:      make([]models.TeamMessage, 0, len(res.Records)),
			NextPageToken: res.Navigation.PrevPageToken,
		}
		for _, p := range res.Records {
			page.Messages = append(page.Messages, teamMessage(p))
		}
		return page, nil
	})
}

// SendTeamMessage posts text to a team as the extension
func (s *Service) SendTeamMessage(ctx context.Context, owner models.Owner, teamID string, req models.TeamMessageRequest) (*models.TeamMessage, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, errors.ValidationError("a team id is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	body := rcPostRequest{GroupID: teamID, Text: req.Text}

	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) (*models.TeamMessage, error) {
		var res rcPost
		if err := h.Post(ctx, teamPostsPath, body, &res); err != nil {
			return nil, err
		}
		msg := teamMessage(res)
		return &msg, nil
	})
}

func teamMessage(p rcPost) models.TeamMessage {
	return models.TeamMessage{
		ID:        p.ID,
		TeamID:    p.GroupID,
		CreatorID: p.CreatorID,
		Text:      p.Text,
		Created:   p.CreationTime,
	}
}
