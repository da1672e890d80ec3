package domain

import "time"

// Email is one parsed message from the email corpus. Records are read-only
// after parsing; a block that fails to yield all five fields is never
// materialized as a partial Email.
type Email struct {
	Sender        string
	SenderName    string // display-name part of "Name <addr>", or the raw string
	Recipient     string
	RecipientName string
	Date          time.Time
	Subject       string
	Body          string
}
