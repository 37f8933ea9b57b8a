// Package queue defines message payloads exchanged over the message broker.
package queue

// MailRequestedEvent is published whenever the API needs an email sent
// (account activation, order confirmation).  It contains everything a
// delivery worker needs without querying the primary database.
type MailRequestedEvent struct {
	To          string         `json:"to"`
	Subject     string         `json:"subject"`
	Template    string         `json:"template"`
	Data        map[string]any `json:"data"`
	RequestedAt string         `json:"requested_at"`
}
