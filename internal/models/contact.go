package models

// Contact is an address book entry from a provider directory
type Contact struct {
	ID           string          `json:"id"`
	FullName     string          `json:"full_name"`
	Name         *StructuredName `json:"name,omitempty"`
	Emails       []EmailAddress  `json:"emails,omitempty"`
	Phones       []PhoneNumber   `json:"phones,omitempty"`
	Organization string          `json:"organization,omitempty"`
	Title        string          `json:"title,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// StructuredName is a parsed name
type StructuredName struct {
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
}

// EmailAddress is an email with its kind
type EmailAddress struct {
	Address string `json:"address"`
	Type    string `json:"type,omitempty"` // work, home, other
}

// PhoneNumber is a phone number with its kind
type PhoneNumber struct {
	Number string `json:"number"`
	Type   string `json:"type,omitempty"` // work, home, mobile, fax
}

const (
	EmailTypeWork  = "work"
	EmailTypeHome  = "home"
	EmailTypeOther = "other"

	PhoneTypeWork   = "work"
	PhoneTypeHome   = "home"
	PhoneTypeMobile = "mobile"
	PhoneTypeFax    = "fax"
	PhoneTypeOther  = "other"
)
