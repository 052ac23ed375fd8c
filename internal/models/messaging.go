package models

import "time"

// MailMessage is a Gmail message header summary
type MailMessage struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	From     string    `json:"from"`
	To       string    `json:"to,omitempty"`
	Subject  string    `json:"subject"`
	Snippet  string    `json:"snippet"`
	Date     time.Time `json:"date"`
	Labels   []string  `json:"labels,omitempty"`
	Unread   bool      `json:"unread"`
	// Body is the text/plain part, filled only when one message is read
	Body string `json:"body,omitempty"`
}

// MailLabel is a Gmail label
type MailLabel struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Type                  string `json:"type"` // system, user
	MessageListVisibility string `json:"message_list_visibility,omitempty"`
	LabelListVisibility   string `json:"label_list_visibility,omitempty"`
}

// CallRecord is one RingCentral call log entry
type CallRecord struct {
	ID        string    `json:"id"`
	Direction string    `json:"direction"` // Inbound, Outbound
	From      string    `json:"from"`
	To        string    `json:"to"`
	Result    string    `json:"result"`
	StartTime time.Time `json:"start_time"`
	Duration  int       `json:"duration"` // seconds
}

// SMSRequest is an outbound text message
type SMSRequest struct {
	From string `json:"from" validate:"required,e164"`
	To   string `json:"to" validate:"required,e164"`
	Text string `json:"text" validate:"required,max=1000"`
}

// SMSResult is the provider's acknowledgement of a sent message
type SMSResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// AccountInfo summarises the RingCentral account behind a credential
type AccountInfo struct {
	AccountID   string `json:"account_id"`
	ExtensionID string `json:"extension_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Extension   string `json:"extension_number,omitempty"`
}
