package integrations

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/models"
	"crm-connect/internal/providers/google"
)

const (
	gmailUser          = "me"
	defaultMaxMessages = 20
	maxMessages        = 100
	// concurrent metadata fetches per listing
	gmailFetchWorkers = 5
)

// ListMessages returns header summaries of the newest messages matching
// query (Gmail search syntax), newest first
func (s *Service) ListMessages(ctx context.Context, owner models.Owner, query string, max int64) ([]models.MailMessage, error) {
	if max <= 0 {
		max = defaultMaxMessages
	}
	if max > maxMessages {
		max = maxMessages
	}

	return withGoogle(ctx, s, owner, func(ctx context.Context, h *google.Handle) ([]models.MailMessage, error) {
		svc, err := h.Gmail(ctx)
		if err != nil {
			return nil, err
		}
		call := svc.Users.Messages.List(gmailUser).Context(ctx).MaxResults(max)
		if query != "" {
			call = call.Q(query)
		}
		listing, err := call.Do()
		if err != nil {
			return nil, google.APIError(err)
		}

		out := make([]models.MailMessage, len(listing.Messages))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(gmailFetchWorkers)
		for i, m := range listing.Messages {
			g.Go(func() error {
				msg, err := svc.Users.Messages.Get(gmailUser, m.Id).
					Context(gctx).
					Format("metadata").
					MetadataHeaders("From", "To", "Subject", "Date").
					Do()
				if err != nil {
					return google.APIError(err)
				}
				out[i] = mailMessage(msg)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// GetMessage reads one message with its plain text body
func (s *Service) GetMessage(ctx context.Context, owner models.Owner, id string) (*models.MailMessage, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.ValidationError("a message id is required")
	}
	return withGoogle(ctx, s, owner, func(ctx context.Context, h *google.Handle) (*models.MailMessage, error) {
		svc, err := h.Gmail(ctx)
		if err != nil {
			return nil, err
		}
		msg, err := svc.Users.Messages.Get(gmailUser, id).Context(ctx).Format("full").Do()
		if err != nil {
			var gerr *googleapi.Error
			if stderrors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
				return nil, errors.NotFoundError("message").WithContext("message_id", id)
			}
			return nil, google.APIError(err)
		}
		m := mailMessage(msg)
		m.Body = plainText(msg.Payload)
		return &m, nil
	})
}

// Labels lists the mailbox's system and user labels
func (s *Service) Labels(ctx context.Context, owner models.Owner) ([]models.MailLabel, error) {
	return withGoogle(ctx, s, owner, func(ctx context.Context, h *google.Handle) ([]models.MailLabel, error) {
		svc, err := h.Gmail(ctx)
		if err != nil {
			return nil, err
		}
		res, err := svc.Users.Labels.List(gmailUser).Context(ctx).Do()
		if err != nil {
			return nil, google.APIError(err)
		}
		labels := make([]models.MailLabel, 0, len(res.Labels))
		for _, l := range res.Labels {
			labels = append(labels, models.MailLabel{
				ID:                    l.Id,
				Name:                  l.Name,
				Type:                  l.Type,
				MessageListVisibility: l.MessageListVisibility,
				LabelListVisibility:   l.LabelListVisibility,
			})
		}
		return labels, nil
	})
}

// plainText returns the first text/plain part, depth first
func plainText(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			data, err = base64.RawURLEncoding.DecodeString(part.Body.Data)
		}
		if err == nil {
			return string(data)
		}
	}
	for _, child := range part.Parts {
		if text := plainText(child); text != "" {
			return text
		}
	}
	return ""
}

func mailMessage(msg *gmail.Message) models.MailMessage {
	m := models.MailMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Labels:   msg.LabelIds,
	}
	for _, label := range msg.LabelIds {
		if label == "UNREAD" {
			m.Unread = true
		}
	}
	if msg.InternalDate > 0 {
		m.Date = time.UnixMilli(msg.InternalDate).UTC()
	}
	if msg.Payload == nil {
		return m
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			m.From = h.Value
		case "To":
			m.To = h.Value
		case "Subject":
			m.Subject = h.Value
		case "Date":
			if m.Date.IsZero() {
				if t, err := mail.ParseDate(h.Value); err == nil {
					m.Date = t.UTC()
				}
			}
		}
	}
	return m
}
