package integrations

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/models"
	"crm-connect/internal/providers/ringcentral"
)

const (
	extensionPath   = "/restapi/v1.0/account/~/extension/~"
	callLogPath     = extensionPath + "/call-log"
	smsPath         = extensionPath + "/sms"
	addressBookPath = extensionPath + "/address-book/contact"

	defaultCallLogPage = 100
	maxCallLogPage     = 1000
	contactsPerPage    = 250
	// address book pages fetched before the listing is cut short
	maxContactPages = 20
)

type rcExtension struct {
	ID              json.Number `json:"id"`
	ExtensionNumber string      `json:"extensionNumber"`
	Name            string      `json:"name"`
	Contact         struct {
		Email string `json:"email"`
	} `json:"contact"`
	Account struct {
		ID json.Number `json:"id"`
	} `json:"account"`
}

// Account reads the account and extension the credential was granted by
func (s *Service) Account(ctx context.Context, owner models.Owner) (*models.AccountInfo, error) {
	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) (*models.AccountInfo, error) {
		var ext rcExtension
		if err := h.Get(ctx, extensionPath, nil, &ext); err != nil {
			return nil, err
		}
		return &models.AccountInfo{
			AccountID:   ext.Account.ID.String(),
			ExtensionID: ext.ID.String(),
			Name:        ext.Name,
			Email:       ext.Contact.Email,
			Extension:   ext.ExtensionNumber,
		}, nil
	})
}

type rcParty struct {
	PhoneNumber     string `json:"phoneNumber"`
	ExtensionNumber string `json:"extensionNumber"`
	Name            string `json:"name"`
}

func (p rcParty) String() string {
	switch {
	case p.PhoneNumber != "":
		return p.PhoneNumber
	case p.ExtensionNumber != "":
		return p.ExtensionNumber
	}
	return p.Name
}

type rcCallLog struct {
	Records []struct {
		ID        string    `json:"id"`
		Direction string    `json:"direction"`
		From      rcParty   `json:"from"`
		To        rcParty   `json:"to"`
		Result    string    `json:"result"`
		StartTime time.Time `json:"startTime"`
		Duration  int       `json:"duration"`
	} `json:"records"`
}

// CallLog lists the extension's calls in [from, to). A zero from leaves the
// platform default (the last 24 hours).
func (s *Service) CallLog(ctx context.Context, owner models.Owner, from, to time.Time, perPage int) ([]models.CallRecord, error) {
	if perPage <= 0 {
		perPage = defaultCallLogPage
	}
	if perPage > maxCallLogPage {
		perPage = maxCallLogPage
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return nil, errors.ValidationError("'to' must be after 'from'")
	}

	q := url.Values{}
	q.Set("view", "Simple")
	q.Set("perPage", strconv.Itoa(perPage))
	if !from.IsZero() {
		q.Set("dateFrom", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		q.Set("dateTo", to.UTC().Format(time.RFC3339))
	}

	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) ([]models.CallRecord, error) {
		var log rcCallLog
		if err := h.Get(ctx, callLogPath, q, &log); err != nil {
			return nil, err
		}
		records := make([]models.CallRecord, 0, len(log.Records))
		for _, r := range log.Records {
			records = append(records, models.CallRecord{
				ID:        r.ID,
				Direction: r.Direction,
				From:      r.From.String(),
				To:        r.To.String(),
				Result:    r.Result,
				StartTime: r.StartTime,
				Duration:  r.Duration,
			})
		}
		return records, nil
	})
}

type rcNumber struct {
	PhoneNumber string `json:"phoneNumber"`
}

type rcSMSRequest struct {
	From rcNumber   `json:"from"`
	To   []rcNumber `json:"to"`
	Text string     `json:"text"`
}

type rcSMSResponse struct {
	ID            json.Number `json:"id"`
	MessageStatus string      `json:"messageStatus"`
}

// SendSMS sends one text from a number the extension owns. The request is
// validated before any credential is touched.
func (s *Service) SendSMS(ctx context.Context, owner models.Owner, req models.SMSRequest) (*models.SMSResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	body := rcSMSRequest{
		From: rcNumber{PhoneNumber: req.From},
		To:   []rcNumber{{PhoneNumber: req.To}},
		Text: req.Text,
	}

	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) (*models.SMSResult, error) {
		var res rcSMSResponse
		if err := h.Post(ctx, smsPath, body, &res); err != nil {
			return nil, err
		}
		return &models.SMSResult{ID: res.ID.String(), Status: res.MessageStatus}, nil
	})
}

type rcContact struct {
	ID            json.Number `json:"id"`
	FirstName     string      `json:"firstName"`
	LastName      string      `json:"lastName"`
	Email         string      `json:"email"`
	Email2        string      `json:"email2"`
	BusinessPhone string      `json:"businessPhone"`
	MobilePhone   string      `json:"mobilePhone"`
	HomePhone     string      `json:"homePhone"`
	BusinessFax   string      `json:"businessFax"`
	Company       string      `json:"company"`
	JobTitle      string      `json:"jobTitle"`
	Notes         string      `json:"notes"`
}

type rcContactPage struct {
	Records []rcContact `json:"records"`
	Paging  struct {
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	} `json:"paging"`
}

// Contacts pages through the extension's personal address book
func (s *Service) Contacts(ctx context.Context, owner models.Owner) ([]models.Contact, error) {
	return withRingCentral(ctx, s, owner, func(ctx context.Context, h *ringcentral.Handle) ([]models.Contact, error) {
		var contacts []models.Contact
		for page := 1; page <= maxContactPages; page++ {
			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			q.Set("perPage", strconv.Itoa(contactsPerPage))

			var res rcContactPage
			if err := h.Get(ctx, addressBookPath, q, &res); err != nil {
				return nil, err
			}
			for _, c := range res.Records {
				contacts = append(contacts, contact(c))
			}
			if res.Paging.TotalPages <= page || len(res.Records) == 0 {
				return contacts, nil
			}
		}
		s.logger.Warn("Address book truncated",
			logging.Field{"pages", maxContactPages},
			logging.Field{"owner", owner.Key()},
		)
		return contacts, nil
	})
}

func contact(c rcContact) models.Contact {
	out := models.Contact{
		ID:           c.ID.String(),
		Organization: c.Company,
		Title:        c.JobTitle,
		Notes:        c.Notes,
	}
	if c.FirstName != "" || c.LastName != "" {
		out.Name = &models.StructuredName{First: c.FirstName, Last: c.LastName}
	}
	out.FullName = strings.TrimSpace(c.FirstName + " " + c.LastName)
	if out.FullName == "" {
		out.FullName = c.Company
	}

	for _, e := range []string{c.Email, c.Email2} {
		if e != "" {
			out.Emails = append(out.Emails, models.EmailAddress{Address: e, Type: models.EmailTypeWork})
		}
	}
	phones := []models.PhoneNumber{
		{Number: c.BusinessPhone, Type: models.PhoneTypeWork},
		{Number: c.MobilePhone, Type: models.PhoneTypeMobile},
		{Number: c.HomePhone, Type: models.PhoneTypeHome},
		{Number: c.BusinessFax, Type: models.PhoneTypeFax},
	}
	for _, p := range phones {
		if p.Number != "" {
			out.Phones = append(out.Phones, p)
		}
	}
	return out
}
