package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/models"
)

func TestTeams(t *testing.T) {
	h := newHarness(t)
	h.connect(t, models.ProviderRingCentral, "live-token")

	var gotQuery atomic.Value
	h.api.handle(teamsPath, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		writeJSON(w, `{"records":[
			{"id":"1394831362","type":"Team","name":"Deal desk","description":"Pricing approvals","members":["101","102","103"],"creationTime":"2026-09-01T10:00:00Z","lastModifiedTime":"2026-10-14T08:30:00Z"},
			{"id":"1394831400","type":"PrivateChat","members":["101","104"],"creationTime":"2026-09-03T10:00:00Z","lastModifiedTime":"2026-09-03T10:00:00Z"}
		],"navigation":{}}`)
	})

	teams, err := h.svc.Teams(context.Background(), rep)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, []string{"100"}, gotQuery.Load().(url.Values)["recordCount"])

	assert.Equal(t, models.Team{
		ID:          "1394831362",
		Name:        "Deal desk",
		Description: "Pricing approvals",
		Type:        "Team",
		Members:     3,
		Created:     time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Updated:     time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC),
	}, teams[0])
	assert.Equal(t, "PrivateChat", teams[1].Type)
}

func TestTeamMessages(t *testing.T) {
	h := newHarness(t)
	h.connect(t, models.ProviderRingCentral, "live-token")

	var gotQuery atomic.Value
	h.api.handle(teamPostsPath, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		writeJSON(w, `{"records":[
			{"id":"p2","groupId":"1394831362","type":"TextMessage","text":"Approved at 12%","creatorId":"102","creationTime":"2026-10-15T09:05:00Z"},
			{"id":"p1","groupId":"1394831362","type":"TextMessage","text":"Can we discount Acme?","creatorId":"101","creationTime":"2026-10-15T09:00:00Z"}
		],"navigation":{"prevPageToken":"older-page"}}`)
	})

	page, err := h.svc.TeamMessages(context.Background(), rep, "1394831362", 2, "cursor-1")
	require.NoError(t, err)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, "1394831362", q.Get("groupId"))
	assert.Equal(t, "2", q.Get("recordCount"))
	assert.Equal(t, "cursor-1", q.Get("pageToken"))

	require.Len(t, page.Messages, 2)
	assert.Equal(t, "older-page", page.NextPageToken)
	assert.Equal(t, "Approved at 12%", page.Messages[0].Text)
	assert.Equal(t, "102", page.Messages[0].CreatorID)
	assert.Equal(t, "1394831362", page.Messages[1].TeamID)
}

func TestSendTeamMessage(t *testing.T) {
	h := newHarness(t)
	h.connect(t, models.ProviderRingCentral, "live-token")

	var sent rcPostRequest
	h.api.handle(teamPostsPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		writeJSON(w, `{"id":"p3","groupId":"1394831362","type":"TextMessage","text":"Contract signed","creatorId":"101","creationTime":"2026-10-15T10:00:00Z"}`)
	})

	msg, err := h.svc.SendTeamMessage(context.Background(), rep, "1394831362", models.TeamMessageRequest{Text: "Contract signed"})
	require.NoError(t, err)
	assert.Equal(t, rcPostRequest{GroupID: "1394831362", Text: "Contract signed"}, sent)
	assert.Equal(t, "p3", msg.ID)
	assert.Equal(t, time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC), msg.Created)
}

func TestTeams_ValidateBeforeCallingProvider(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.SendTeamMessage(ctx, rep, "1394831362", models.TeamMessageRequest{})
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = h.svc.SendTeamMessage(ctx, rep, " ", models.TeamMessageRequest{Text: "hi"})
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = h.svc.TeamMessages(ctx, rep, "", 0, "")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = h.svc.Teams(ctx, rep)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotConnected))
}

func TestTeams_StaleTokenIsRefreshed(t *testing.T) {
	h := newHarness(t)
	h.connect(t, models.ProviderRingCentral, "stale")
	h.api.handle(teamsPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"records":[]}`)
	})

	teams, err := h.svc.Teams(context.Background(), rep)
	require.NoError(t, err)
	assert.Empty(t, teams)
	assert.Equal(t, int32(1), h.api.tokenCalls.Load())
}
