package integrations

import (
	"io"

	"github.com/emersion/go-vcard"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/models"
)

// EncodeVCards writes contacts as a stream of vCard 4.0 cards
func EncodeVCards(w io.Writer, contacts []models.Contact) error {
	enc := vcard.NewEncoder(w)
	for _, c := range contacts {
		if err := enc.Encode(card(c)); err != nil {
			return errors.InternalError("failed to encode contact", err).WithContext("contact_id", c.ID)
		}
	}
	return nil
}

func card(c models.Contact) vcard.Card {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldUID, "urn:ringcentral:contact:"+c.ID)
	card.SetValue(vcard.FieldFormattedName, c.FullName)

	if c.Name != nil {
		card.SetName(&vcard.Name{GivenName: c.Name.First, FamilyName: c.Name.Last})
	}
	if c.Organization != "" {
		card.SetValue(vcard.FieldOrganization, c.Organization)
	}
	if c.Title != "" {
		card.SetValue(vcard.FieldTitle, c.Title)
	}
	if c.Notes != "" {
		card.SetValue(vcard.FieldNote, c.Notes)
	}

	for _, e := range c.Emails {
		card.Add(vcard.FieldEmail, &vcard.Field{
			Value:  e.Address,
			Params: typeParam(e.Type),
		})
	}
	for _, p := range c.Phones {
		card.Add(vcard.FieldTelephone, &vcard.Field{
			Value:  p.Number,
			Params: typeParam(phoneType(p.Type)),
		})
	}

	vcard.ToV4(card)
	return card
}

func typeParam(t string) vcard.Params {
	if t == "" {
		return nil
	}
	return vcard.Params{vcard.ParamType: []string{t}}
}

// phoneType maps onto the TEL types vCard defines
func phoneType(t string) string {
	switch t {
	case models.PhoneTypeMobile:
		return vcard.TypeCell
	case models.PhoneTypeWork:
		return vcard.TypeWork
	case models.PhoneTypeHome:
		return vcard.TypeHome
	case models.PhoneTypeFax:
		return vcard.TypeFax
	}
	return ""
}
