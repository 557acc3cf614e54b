// Package queue defines message payloads exchanged over the message broker
// and the consumer that processes them.
package queue

import "time"

// EmailConfirmationQueue is the durable queue confirmation requests go to.
const EmailConfirmationQueue = "email.confirmation"

// EmailConfirmationRequested is published after signup and when a user asks
// for the confirmation email again. Token is an email-scoped token, so the
// consumer can render the verification link without touching the database.
type EmailConfirmationRequested struct {
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Token       string    `json:"token"`
	RequestedAt time.Time `json:"requested_at"`
}
